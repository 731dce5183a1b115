package locator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/panbanda/jcohesion/pkg/models"
)

// MatchType indicates how a focus resolved.
type MatchType string

const (
	MatchExact  MatchType = "exact"
	MatchGlob   MatchType = "glob"
	MatchSimple MatchType = "simple"
)

// Candidate is one class an ambiguous focus could mean.
type Candidate struct {
	Name   string
	Source string
}

// Result contains the resolved classes or the ambiguous candidates.
type Result struct {
	Type       MatchType
	Classes    []string
	Candidates []Candidate
}

var (
	ErrNotFound       = errors.New("no class found")
	ErrAmbiguousMatch = errors.New("ambiguous match")
	ErrBadPattern     = errors.New("invalid class pattern")
)

// Locate resolves a focus to qualified class names.
// Resolution order: exact qualified name -> glob -> simple name
//
// Globs match package segments the way paths match directories: "*" stays
// inside one package and "**" spans any depth, so "org.example.*" selects
// the classes of org.example and "org.**" everything below org.
func Locate(focus string, classes []models.ClassModel) (*Result, error) {
	focus = strings.TrimSpace(focus)
	if focus == "" {
		return nil, ErrNotFound
	}

	for i := range classes {
		if classes[i].QualifiedName() == focus {
			return &Result{Type: MatchExact, Classes: []string{focus}}, nil
		}
	}

	if containsGlobChars(focus) {
		return locateByGlob(focus, classes)
	}

	return locateBySimpleName(focus, classes)
}

func containsGlobChars(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// slashed turns a dotted class name into the path form doublestar matches.
func slashed(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

func locateByGlob(pattern string, classes []models.ClassModel) (*Result, error) {
	p := slashed(pattern)
	if !doublestar.ValidatePattern(p) {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}

	var matches []string
	for i := range classes {
		name := classes[i].QualifiedName()
		if ok, _ := doublestar.Match(p, slashed(name)); ok {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return &Result{Type: MatchGlob, Classes: matches}, nil
}

func locateBySimpleName(name string, classes []models.ClassModel) (*Result, error) {
	var matches []models.ClassModel
	for _, c := range classes {
		if c.ID == name {
			matches = append(matches, c)
		}
	}

	if len(matches) == 0 {
		return nil, ErrNotFound
	}

	if len(matches) == 1 {
		return &Result{Type: MatchSimple, Classes: []string{matches[0].QualifiedName()}}, nil
	}

	candidates := make([]Candidate, len(matches))
	for i, m := range matches {
		candidates[i] = Candidate{Name: m.QualifiedName(), Source: m.Source}
	}
	return &Result{Candidates: candidates}, ErrAmbiguousMatch
}

// Select keeps the classes matched by any of the focuses, in their
// original order. Every focus must match at least one class.
func Select(focuses []string, classes []models.ClassModel) ([]models.ClassModel, error) {
	keep := make(map[string]bool)
	for _, f := range focuses {
		res, err := Locate(f, classes)
		if errors.Is(err, ErrAmbiguousMatch) {
			names := make([]string, len(res.Candidates))
			for i, c := range res.Candidates {
				names[i] = c.Name
			}
			return nil, fmt.Errorf("%w for %q: %s", err, f, strings.Join(names, ", "))
		}
		if err != nil {
			return nil, fmt.Errorf("%q: %w", f, err)
		}
		for _, name := range res.Classes {
			keep[name] = true
		}
	}

	out := make([]models.ClassModel, 0, len(keep))
	for _, c := range classes {
		if keep[c.QualifiedName()] {
			out = append(out, c)
		}
	}
	return out, nil
}

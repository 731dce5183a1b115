package models

import "sort"

// Package groups the classes that share a package name.
type Package struct {
	Name    string       `json:"name" yaml:"name"`
	Classes []ClassModel `json:"classes" yaml:"classes"`
}

// Skeleton is the structural model of a whole run, grouped by package.
type Skeleton struct {
	Packages []Package `json:"packages" yaml:"packages"`
}

// NewSkeleton groups classes by package. Packages are sorted by name and
// classes by ID so that output is stable regardless of parse order.
func NewSkeleton(classes []ClassModel) *Skeleton {
	byPkg := make(map[string][]ClassModel)
	for _, c := range classes {
		byPkg[c.Package] = append(byPkg[c.Package], c)
	}

	names := make([]string, 0, len(byPkg))
	for name := range byPkg {
		names = append(names, name)
	}
	sort.Strings(names)

	sk := &Skeleton{Packages: make([]Package, 0, len(names))}
	for _, name := range names {
		cls := byPkg[name]
		sort.Slice(cls, func(i, j int) bool {
			return cls[i].ID < cls[j].ID
		})
		sk.Packages = append(sk.Packages, Package{Name: name, Classes: cls})
	}
	return sk
}

// Classes returns every class in package order.
func (s *Skeleton) Classes() []ClassModel {
	var out []ClassModel
	for _, p := range s.Packages {
		out = append(out, p.Classes...)
	}
	return out
}

// Len returns the number of classes.
func (s *Skeleton) Len() int {
	n := 0
	for _, p := range s.Packages {
		n += len(p.Classes)
	}
	return n
}

// Models returns pointers to every class in package order. The pointers
// alias the skeleton's own storage.
func (s *Skeleton) Models() []*ClassModel {
	var out []*ClassModel
	for i := range s.Packages {
		for j := range s.Packages[i].Classes {
			out = append(out, &s.Packages[i].Classes[j])
		}
	}
	return out
}

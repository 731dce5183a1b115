package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Source represents a remote repository to read classes from.
type Source struct {
	URL      string // normalized git URL
	Ref      string // branch, tag, or SHA (empty = default branch)
	CloneDir string // temp directory after clone
}

// Parse detects if a path is a remote reference.
// Returns nil if path exists on filesystem (local path takes precedence).
func Parse(path string) (*Source, error) {
	// Check if path exists locally
	if _, err := os.Stat(path); err == nil {
		return nil, nil
	}

	path, ref := splitRef(path)

	switch {
	case strings.HasPrefix(path, "https://"), strings.HasPrefix(path, "http://"),
		strings.HasPrefix(path, "ssh://"), strings.HasPrefix(path, "git://"),
		strings.HasPrefix(path, "file://"):
		return &Source{URL: path, Ref: ref}, nil
	case strings.HasPrefix(path, "git@") && strings.Contains(path, ":"):
		return &Source{URL: path, Ref: ref}, nil
	case hasKnownHost(path):
		return &Source{URL: "https://" + path, Ref: ref}, nil
	case isGitHubShorthand(path):
		return &Source{URL: "https://github.com/" + path, Ref: ref}, nil
	}

	return nil, nil
}

// splitRef extracts the ref from path@ref syntax. An "@" inside the
// authority of a URL (user@host) is not a ref separator.
func splitRef(path string) (string, string) {
	idx := strings.LastIndex(path, "@")
	if idx == -1 {
		return path, ""
	}
	if scheme := strings.Index(path, "://"); scheme != -1 {
		hostEnd := strings.Index(path[scheme+3:], "/")
		if hostEnd == -1 || idx < scheme+3+hostEnd {
			return path, ""
		}
	}
	if strings.Contains(path[idx+1:], ":") || idx == len(path)-1 {
		return path, ""
	}
	return path[:idx], path[idx+1:]
}

var knownHosts = []string{"github.com/", "gitlab.com/", "bitbucket.org/", "codeberg.org/"}

func hasKnownHost(path string) bool {
	for _, h := range knownHosts {
		if strings.HasPrefix(path, h) && len(path) > len(h) {
			return true
		}
	}
	return false
}

// isGitHubShorthand returns true if path matches owner/repo pattern.
func isGitHubShorthand(path string) bool {
	slashIdx := strings.Index(path, "/")
	if slashIdx == -1 {
		return false
	}
	// Must have exactly one slash
	if strings.Count(path, "/") != 1 {
		return false
	}
	// No dots before the slash (would indicate a domain)
	if strings.Contains(path[:slashIdx], ".") {
		return false
	}
	// Both parts must be non-empty
	return slashIdx > 0 && slashIdx < len(path)-1
}

// Clone fetches the repository into a temporary directory recorded in
// CloneDir. Without a ref a network clone is shallow; with one, full history
// is fetched so the ref can be any branch, tag or commit. The file transport
// cannot serve shallow clones, so local repositories are always cloned whole.
func (s *Source) Clone(ctx context.Context, progress io.Writer) error {
	dir, err := os.MkdirTemp("", "jcohesion-remote-*")
	if err != nil {
		return fmt.Errorf("creating clone directory: %w", err)
	}

	opts := &git.CloneOptions{URL: s.URL, Progress: progress}
	if s.Ref == "" && !s.isLocal() {
		opts.Depth = 1
		opts.SingleBranch = true
	}
	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("cloning %s: %w", s.URL, err)
	}

	s.CloneDir = dir
	return nil
}

func (s *Source) isLocal() bool {
	if strings.HasPrefix(s.URL, "file://") {
		return true
	}
	return !strings.Contains(s.URL, "://") && !strings.HasPrefix(s.URL, "git@")
}

// Cleanup removes the clone directory.
func (s *Source) Cleanup() error {
	if s.CloneDir == "" {
		return nil
	}
	err := os.RemoveAll(s.CloneDir)
	s.CloneDir = ""
	return err
}

package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestParse_LocalPathTakesPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	local := filepath.Join(tmpDir, "owner", "repo")
	if err := os.MkdirAll(local, 0o755); err != nil {
		t.Fatal(err)
	}

	src, err := Parse(local)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src != nil {
		t.Errorf("expected nil for existing path, got %+v", src)
	}
}

func TestParse_GitHubShorthand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantURL string
		wantRef string
	}{
		{
			name:    "simple owner/repo",
			input:   "apache/commons-lang",
			wantURL: "https://github.com/apache/commons-lang",
		},
		{
			name:    "with ref suffix",
			input:   "apache/commons-lang@rel/commons-lang-3.14.0",
			wantURL: "https://github.com/apache/commons-lang",
			wantRef: "rel/commons-lang-3.14.0",
		},
		{
			name:    "with branch ref",
			input:   "owner/repo@feature-branch",
			wantURL: "https://github.com/owner/repo",
			wantRef: "feature-branch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if src == nil {
				t.Fatal("expected a remote source")
			}
			if src.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", src.URL, tt.wantURL)
			}
			if src.Ref != tt.wantRef {
				t.Errorf("Ref = %q, want %q", src.Ref, tt.wantRef)
			}
		})
	}
}

func TestParse_URLs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantURL string
		wantRef string
	}{
		{"host without scheme", "github.com/google/guava", "https://github.com/google/guava", ""},
		{"https URL", "https://github.com/google/guava", "https://github.com/google/guava", ""},
		{"gitlab URL", "https://gitlab.com/group/project", "https://gitlab.com/group/project", ""},
		{"SSH URL", "git@github.com:owner/repo.git", "git@github.com:owner/repo.git", ""},
		{"SSH URL with ref", "git@github.com:owner/repo.git@v2", "git@github.com:owner/repo.git", "v2"},
		{"URL with ref", "github.com/google/guava@v33.0.0", "https://github.com/google/guava", "v33.0.0"},
		{"file URL", "file:///srv/git/app.git", "file:///srv/git/app.git", ""},
		{"user info is not a ref", "https://user@example.com/repo.git", "https://user@example.com/repo.git", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if src == nil {
				t.Fatal("expected a remote source")
			}
			if src.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", src.URL, tt.wantURL)
			}
			if src.Ref != tt.wantRef {
				t.Errorf("Ref = %q, want %q", src.Ref, tt.wantRef)
			}
		})
	}
}

func TestParse_NotRemote(t *testing.T) {
	for _, input := range []string{
		"build/classes/java/main",
		"Foo.class",
		"./missing",
		"my.domain/repo",
	} {
		src, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", input, err)
		}
		if src != nil {
			t.Errorf("Parse(%q) = %+v, want nil", input, src)
		}
	}
}

func TestSource_CloneAndCleanup(t *testing.T) {
	origin := t.TempDir()
	repo, err := git.PlainInit(origin, false)
	if err != nil {
		t.Fatal(err)
	}
	w, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(origin, "Foo.class"), []byte{0xCA, 0xFE, 0xBA, 0xBE}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Add("Foo.class"); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Commit("add", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}

	src := &Source{URL: origin}
	if err := src.Clone(context.Background(), nil); err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	dir := src.CloneDir
	if _, err := os.Stat(filepath.Join(dir, "Foo.class")); err != nil {
		t.Errorf("cloned file missing: %v", err)
	}

	if err := src.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("clone directory should be removed, stat err = %v", err)
	}
	if err := src.Cleanup(); err != nil {
		t.Errorf("second Cleanup() should be a no-op: %v", err)
	}
}

func TestSource_CloneFailure(t *testing.T) {
	src := &Source{URL: filepath.Join(t.TempDir(), "missing")}
	if err := src.Clone(context.Background(), nil); err == nil {
		t.Fatal("expected clone error")
	}
	if src.CloneDir != "" {
		t.Errorf("CloneDir = %q, want empty after failure", src.CloneDir)
	}
}

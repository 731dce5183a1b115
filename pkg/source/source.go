// Package source reads class file blobs from the filesystem, from jar
// archives and from git trees.
package source

import (
	"os"
	"sync"

	"github.com/panbanda/jcohesion/internal/vcs"
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// Blob is one compiled class and where it came from. Path is a filesystem
// or tree path; entries inside a jar are named "archive.jar!/pkg/Foo.class".
type Blob struct {
	Path string
	Data []byte
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// TreeSource reads files from a git tree.
// It is safe for concurrent use by multiple goroutines.
type TreeSource struct {
	tree vcs.Tree
	mu   sync.Mutex
}

// NewTree creates a source that reads from a git tree.
func NewTree(tree vcs.Tree) *TreeSource {
	return &TreeSource{tree: tree}
}

// Read implements ContentSource.
// It is safe for concurrent use.
func (t *TreeSource) Read(path string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.File(path)
}

// Paths lists the class and jar files in the tree, in tree order.
func (t *TreeSource) Paths() ([]string, error) {
	t.mu.Lock()
	entries, err := t.tree.Entries()
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if IsClassFile(e.Path) || IsJar(e.Path) {
			paths = append(paths, e.Path)
		}
	}
	return paths, nil
}

package testutil

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteFile writes content to a file, creating parent directories.
func WriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// FixtureSet maps the class-file path javac would write for each reference
// fixture to its bytes.
func FixtureSet() map[string][]byte {
	return map[string][]byte{
		"Foo.class":                       Foo(),
		"Bar.class":                       Bar(),
		"MethodsWithDiffParamTypes.class": MethodsWithDiffParamTypes(),
		"NoMethods.class":                 NoMethods(),
		"WithoutAttributes.class":         WithoutAttributes(),
		"IndirectlyRelatedPairs.class":    IndirectlyRelatedPairs(),
		"OverloadMethods.class":           OverloadMethods(),
	}
}

// WriteClassTree writes class files under root and returns the written
// paths in sorted order.
func WriteClassTree(t *testing.T, root string, files map[string][]byte) []string {
	t.Helper()
	paths := make([]string, 0, len(files))
	for name, data := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		WriteFile(t, path, data)
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Jar packs entries into an in-memory jar in name order.
func Jar(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("jar entry %s: %v", name, err)
		}
		if _, err := w.Write(entries[name]); err != nil {
			t.Fatalf("jar entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing jar: %v", err)
	}
	return buf.Bytes()
}

package source

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// JarSeparator joins an archive path and an entry name.
const JarSeparator = "!/"

// IsClassFile reports whether name looks like a compiled class.
func IsClassFile(name string) bool {
	return strings.HasSuffix(name, ".class")
}

// IsJar reports whether name looks like a jar archive.
func IsJar(name string) bool {
	return strings.HasSuffix(name, ".jar")
}

// ReadJar returns the class entries of a jar. Entries under META-INF,
// including multi-release variants, are skipped so each class appears once.
func ReadJar(archive string, data []byte) ([]Blob, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", archive, err)
	}

	var blobs []Blob
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !IsClassFile(f.Name) {
			continue
		}
		if strings.HasPrefix(path.Clean(f.Name), "META-INF/") {
			continue
		}
		content, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("%s%s%s: %w", archive, JarSeparator, f.Name, err)
		}
		blobs = append(blobs, Blob{Path: archive + JarSeparator + f.Name, Data: content})
	}
	return blobs, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

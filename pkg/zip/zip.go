// Package zip builds in-memory zip archives for data exports.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// File is one entry in an archive.
type File struct {
	Name string
	Data []byte
}

// Archive packs the files into a zip and returns its bytes.
func Archive(files []File) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("zip entry %q: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("zip entry %q: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

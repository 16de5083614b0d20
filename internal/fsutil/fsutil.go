// Package fsutil reads user-supplied files without following path tricks
// outside their directory.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadFile reads path through an os.Root opened at its directory.
func ReadFile(path string) ([]byte, error) {
	return ReadFileLimited(path, -1)
}

// ReadFileLimited reads at most limit+1 bytes of path and fails when the
// file is larger than limit. A negative limit reads the whole file.
func ReadFileLimited(path string, limit int64) ([]byte, error) {
	cleaned := filepath.Clean(path)
	base := filepath.Base(cleaned)
	if path == "" || base == "." || base == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid file path: %q", path)
	}

	root, err := os.OpenRoot(filepath.Dir(cleaned))
	if err != nil {
		return nil, err
	}
	defer root.Close()

	f, err := root.Open(base)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if limit >= 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if limit >= 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%s is larger than %d bytes", path, limit)
	}
	return data, nil
}

// Package atomicfile writes files through a temporary sibling and a rename,
// so readers never observe a half-written file.
package atomicfile

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFile writes data to name atomically, creating parent directories.
func WriteFile(name string, data []byte, perm fs.FileMode) error {
	return Write(name, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Write streams content produced by fill into name atomically.
func Write(name string, perm fs.FileMode, fill func(w io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return err
	}

	// Same directory keeps the rename on one filesystem.
	f, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err := fill(f); err != nil {
		return err
	}
	if err := f.Chmod(perm); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(f.Name(), name)
}

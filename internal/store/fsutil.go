package store

import (
	"errors"
	"os"
	"path/filepath"
)

// WriteFile writes b to dest through a temp file in the same directory and a rename, so a
// reader never observes a partially written download.
func WriteFile(dest string, b []byte, perm os.FileMode) error {
	dest = filepath.Clean(dest)
	if dest == "" || dest == "." {
		return errors.New("write file: missing dest")
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return atomicWriteFile(dir, "."+filepath.Base(dest)+".*.tmp", dest, b, perm)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

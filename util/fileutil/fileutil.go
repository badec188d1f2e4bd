// Package fileutil has the small filesystem helpers the pipeline
// leans on: existence checks, tilde expansion, safe deletes.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// FileExists returns true if the file at path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	if err != nil && os.IsNotExist(err) {
		return false
	}
	return true
}

// ReadFile reads the file at path, resolving a relative path against
// the current working directory.
func ReadFile(path string) ([]byte, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(absPath)
}

// ExpandTilde expands a leading ~/ to the current user's home
// directory. Paths without a tilde come back unchanged.
func ExpandTilde(filePath string) (string, error) {
	if !strings.Contains(filePath, "~") {
		return filePath, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return strings.Replace(filePath, "~/", usr.HomeDir+"/", 1), nil
}

// MkdirAll creates dir (and parents) if it does not exist.
func MkdirAll(dir string) error {
	if FileExists(dir) {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// CopyFile copies the file at src to dst, returning the number of
// bytes written. A failed copy removes the partial destination.
func CopyFile(src, dst string) (int64, error) {
	source, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer source.Close()
	dest, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(dest, source)
	if closeErr := dest.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		return 0, err
	}
	return written, nil
}

// LooksSafeToDelete reports whether dir looks like a path the cleaner
// should be allowed to remove recursively. We never delete short
// paths or paths near the filesystem root, no matter what the config
// says.
func LooksSafeToDelete(dir string, minLength, minSeparators int) bool {
	separators := strings.Count(dir, string(os.PathSeparator))
	return len(dir) >= minLength && separators >= minSeparators
}

// DeleteTree removes the file or directory at path recursively,
// refusing paths that don't pass LooksSafeToDelete.
func DeleteTree(path string) error {
	if !LooksSafeToDelete(path, 12, 3) {
		return fmt.Errorf("refusing to delete '%s': path is too close to the filesystem root", path)
	}
	return os.RemoveAll(path)
}

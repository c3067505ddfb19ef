//go:build windows
// +build windows

package secure

import (
	"fmt"
	"os"
	"path/filepath"
)

// PermissionError is never returned on Windows, where ACLs rather than mode
// bits control access.
type PermissionError struct {
	Path string
	Mode os.FileMode
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s is accessible by other users", e.Path)
}

func MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

func WriteFile(name string, data []byte, perm os.FileMode) error {
	if err := MkdirAll(filepath.Dir(name), 0o700); err != nil {
		return err
	}
	return os.WriteFile(name, data, perm)
}

func CheckPrivate(name string) error {
	_, err := os.Stat(name)
	return err
}

// Package filex holds small filesystem helpers for locating application
// data on disk.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDataDir resolves name against the working directory and makes sure
// the directory exists, creating it on first use. The absolute path is
// returned so callers can join database or attachment file names onto it.
func EnsureDataDir(name string) (string, error) {
	dir, err := filepath.Abs(name)
	if err != nil {
		return "", fmt.Errorf("resolve data dir %s: %w", name, err)
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", fmt.Errorf("data dir %s exists and is not a directory", dir)
		}
		return dir, nil
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("create data dir %s: %w", dir, err)
		}
		return dir, nil
	default:
		return "", fmt.Errorf("stat data dir %s: %w", dir, err)
	}
}

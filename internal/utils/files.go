package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// OutputPath joins dir and name, creating dir when makeDir is set.
func OutputPath(makeDir bool, dir, name string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if makeDir {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	return filepath.Join(dir, name), nil
}

func OpenFile(makeDir bool, dir, name string) (*os.File, error) {
	path, err := OutputPath(makeDir, dir, name)
	if err != nil {
		return nil, err
	}
	return os.Create(path)
}

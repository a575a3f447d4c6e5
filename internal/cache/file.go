package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// quarantine moves a damaged database aside so a fresh one can be created.
// Any earlier quarantined copy is replaced.
func quarantine(path string) (string, error) {
	dst := path + ".corrupt"
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to remove %s: %w", dst, err)
	}

	if err := os.Rename(path, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}

		// Rename can fail across odd filesystems; fall back to removal
		if rmErr := os.Remove(path); rmErr != nil {
			return "", fmt.Errorf("failed to reset cache database: %w", rmErr)
		}

		return "", nil
	}

	return dst, nil
}

// fileSize returns the size of path, or zero when it cannot be read.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}

	return info.Size()
}

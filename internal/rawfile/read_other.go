//go:build !linux && !darwin
// +build !linux,!darwin

package rawfile

import (
	"fmt"
	"os"
)

// Read falls back to a plain read on platforms without the mmap path.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rawfile: could not read %s: %w", path, err)
	}
	return data, nil
}

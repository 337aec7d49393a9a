//go:build linux || darwin
// +build linux darwin

package rawfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Read maps path into memory read-only and copies it into a plain []byte.
// The mmap is unmapped before returning: the pipeline needs a regular,
// GC-managed slice it can freely reslice and mutate through ByteBuffer, not
// a view pinned to kernel-managed pages.
func Read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rawfile: could not open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("rawfile: could not stat %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		return nil, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("rawfile: could not mmap %s: %w", path, err)
	}
	defer unix.Munmap(data)

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

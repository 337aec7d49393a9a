// Package container sniffs and reads the two binary container formats the
// pipeline understands: PE/COFF and ELF. Both readers walk the file headers
// by hand with encoding/binary rather than a parsing library — the same
// struct-overlay technique the rest of the toolchain uses for its own
// object-file readers and writers. Parsing richer container metadata (debug
// directories, relocations, imports) is out of scope for the labeling core;
// this package exists only to hand the core a raw byte buffer, a section
// table, and an architecture.
package container

import (
	"bytes"
	"fmt"
	"os"

	"github.com/xyproto/b2g/internal/groundtruth"
)

// Format identifies which container a binary was sniffed as.
type Format int

const (
	Unknown Format = iota
	PE
	ELF
)

func (f Format) String() string {
	switch f {
	case PE:
		return "PE"
	case ELF:
		return "ELF"
	default:
		return "unknown"
	}
}

var (
	peMagic  = []byte("MZ")
	elfMagic = []byte("\x7fELF")
)

// Sniff reads the first bytes of path and reports which container format it
// is, without parsing the rest of the file.
func Sniff(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, fmt.Errorf("container: could not open %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, 4)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return Unknown, fmt.Errorf("container: could not read %s: %w", path, err)
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, elfMagic):
		return ELF, nil
	case bytes.HasPrefix(header, peMagic):
		return PE, nil
	default:
		return Unknown, nil
	}
}

// Binary is what the pipeline needs from a parsed container: the whole raw
// byte stream (for NewByteBuffer), the section table, and the architecture.
type Binary struct {
	Raw          []byte
	Sections     []groundtruth.Section
	Architecture groundtruth.Architecture
}

// ReadPE parses path as a PE/COFF image: section table and machine type.
func ReadPE(path string) (Binary, error) {
	return readPE(path)
}

// ReadELF parses path as an ELF image: section table and machine class.
func ReadELF(path string) (Binary, error) {
	return readELF(path)
}

// FindSection looks up a named section (".text") by exact name.
func FindSection(sections []groundtruth.Section, name string) (groundtruth.Section, bool) {
	for _, s := range sections {
		if s.Name == name {
			return s, true
		}
	}
	return groundtruth.Section{}, false
}

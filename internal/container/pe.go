package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/xyproto/b2g/internal/groundtruth"
	"github.com/xyproto/b2g/internal/rawfile"
)

// PE machine-type constants (IMAGE_FILE_HEADER.Machine), COFF spec.
const (
	imageFileMachineI386  = 0x014c
	imageFileMachineAMD64 = 0x8664
)

// coffHeader is the COFF file header that follows the PE signature.
type coffHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// peSectionHeader is one IMAGE_SECTION_HEADER entry.
type peSectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

// readPE walks the DOS stub, PE signature, COFF header, and section table by
// hand with encoding/binary, the same struct-overlay technique the rest of
// the toolchain uses for its own object-file readers and writers.
func readPE(path string) (Binary, error) {
	raw, err := rawfile.Read(path)
	if err != nil {
		return Binary{}, fmt.Errorf("container: could not read %s: %w", path, err)
	}
	f := bytes.NewReader(raw)

	var dosMagic uint16
	if err := binary.Read(f, binary.LittleEndian, &dosMagic); err != nil {
		return Binary{}, fmt.Errorf("container: could not read DOS magic: %w", err)
	}
	if dosMagic != 0x5A4D { // "MZ"
		return Binary{}, fmt.Errorf("container: %s is not a PE file (bad DOS magic)", path)
	}

	if _, err := f.Seek(0x3C, io.SeekStart); err != nil {
		return Binary{}, fmt.Errorf("container: could not seek to PE offset field: %w", err)
	}
	var peOffset uint32
	if err := binary.Read(f, binary.LittleEndian, &peOffset); err != nil {
		return Binary{}, fmt.Errorf("container: could not read PE offset: %w", err)
	}

	if _, err := f.Seek(int64(peOffset), io.SeekStart); err != nil {
		return Binary{}, fmt.Errorf("container: could not seek to PE signature: %w", err)
	}
	var peSig uint32
	if err := binary.Read(f, binary.LittleEndian, &peSig); err != nil {
		return Binary{}, fmt.Errorf("container: could not read PE signature: %w", err)
	}
	if peSig != 0x00004550 { // "PE\0\0"
		return Binary{}, fmt.Errorf("container: %s has bad PE signature 0x%08x", path, peSig)
	}

	var coff coffHeader
	if err := binary.Read(f, binary.LittleEndian, &coff); err != nil {
		return Binary{}, fmt.Errorf("container: could not read COFF header: %w", err)
	}

	arch := groundtruth.UNKNOWN
	switch coff.Machine {
	case imageFileMachineI386:
		arch = groundtruth.X86
	case imageFileMachineAMD64:
		arch = groundtruth.X64
	}

	sectionTableOffset := int64(peOffset) + 4 + int64(binary.Size(coff)) + int64(coff.SizeOfOptionalHeader)
	if _, err := f.Seek(sectionTableOffset, io.SeekStart); err != nil {
		return Binary{}, fmt.Errorf("container: could not seek to section table: %w", err)
	}

	sections := make([]groundtruth.Section, 0, coff.NumberOfSections)
	for i := 0; i < int(coff.NumberOfSections); i++ {
		var raw peSectionHeader
		if err := binary.Read(f, binary.LittleEndian, &raw); err != nil {
			return Binary{}, fmt.Errorf("container: could not read section %d: %w", i, err)
		}
		sections = append(sections, groundtruth.Section{
			Name:          peSectionName(raw.Name),
			VA:            uint64(raw.VirtualAddress),
			RawDataOffset: uint64(raw.PointerToRawData),
			RawDataSize:   uint64(raw.SizeOfRawData),
		})
	}

	return Binary{Raw: raw, Sections: sections, Architecture: arch}, nil
}

func peSectionName(name [8]byte) string {
	n := strings.TrimRight(string(name[:]), "\x00")
	if n == "" {
		return "PLACEHOLDER"
	}
	return n
}

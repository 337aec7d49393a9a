package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/xyproto/b2g/internal/groundtruth"
	"github.com/xyproto/b2g/internal/rawfile"
)

const (
	elfClass32 = 1
	elfClass64 = 2

	emX86_64 = 62
	em386    = 3
)

// elfIdent is the 16-byte e_ident prefix shared by 32- and 64-bit ELF files.
type elfIdent struct {
	Magic   [4]byte
	Class   uint8
	Data    uint8
	Version uint8
	_       [9]byte
}

// elf64Header is Elf64_Ehdr minus e_ident.
type elf64Header struct {
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// elf32Header is Elf32_Ehdr minus e_ident.
type elf32Header struct {
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	Phoff     uint32
	Shoff     uint32
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

type elf64SectionHeader struct {
	Name      uint32
	Type      uint32
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	Addralign uint64
	Entsize   uint64
}

type elf32SectionHeader struct {
	Name      uint32
	Type      uint32
	Flags     uint32
	Addr      uint32
	Offset    uint32
	Size      uint32
	Link      uint32
	Info      uint32
	Addralign uint32
	Entsize   uint32
}

// readELF walks the ELF identification bytes, the (32- or 64-bit) file
// header, and the section header table by hand with encoding/binary,
// mirroring readPE's struct-overlay technique for the other container
// format.
func readELF(path string) (Binary, error) {
	raw, err := rawfile.Read(path)
	if err != nil {
		return Binary{}, fmt.Errorf("container: could not read %s: %w", path, err)
	}
	f := bytes.NewReader(raw)

	var ident elfIdent
	if err := binary.Read(f, binary.LittleEndian, &ident); err != nil {
		return Binary{}, fmt.Errorf("container: could not read e_ident: %w", err)
	}
	if string(ident.Magic[:]) != "\x7fELF" {
		return Binary{}, fmt.Errorf("container: %s is not an ELF file (bad magic)", path)
	}

	arch := groundtruth.UNKNOWN
	switch ident.Class {
	case elfClass32:
		arch = groundtruth.X86
	case elfClass64:
		arch = groundtruth.X64
	}

	var sections []groundtruth.Section
	var shoff int64
	var shnum, shstrndx int
	var shentsize int

	if ident.Class == elfClass64 {
		var hdr elf64Header
		if err := binary.Read(f, binary.LittleEndian, &hdr); err != nil {
			return Binary{}, fmt.Errorf("container: could not read ELF64 header: %w", err)
		}
		shoff, shnum, shstrndx, shentsize = int64(hdr.Shoff), int(hdr.Shnum), int(hdr.Shstrndx), int(hdr.Shentsize)
	} else {
		var hdr elf32Header
		if err := binary.Read(f, binary.LittleEndian, &hdr); err != nil {
			return Binary{}, fmt.Errorf("container: could not read ELF32 header: %w", err)
		}
		shoff, shnum, shstrndx, shentsize = int64(hdr.Shoff), int(hdr.Shnum), int(hdr.Shstrndx), int(hdr.Shentsize)
	}

	if shoff == 0 || shnum == 0 {
		return Binary{Raw: raw, Sections: nil, Architecture: arch}, nil
	}

	rawHeaders := make([][]byte, shnum)
	for i := 0; i < shnum; i++ {
		if _, err := f.Seek(shoff+int64(i*shentsize), io.SeekStart); err != nil {
			return Binary{}, fmt.Errorf("container: could not seek to section header %d: %w", i, err)
		}
		buf := make([]byte, shentsize)
		if _, err := io.ReadFull(f, buf); err != nil {
			return Binary{}, fmt.Errorf("container: could not read section header %d: %w", i, err)
		}
		rawHeaders[i] = buf
	}

	nameOffsets := make([]uint32, shnum)
	vas := make([]uint64, shnum)
	offsets := make([]uint64, shnum)
	sizes := make([]uint64, shnum)

	for i, buf := range rawHeaders {
		if ident.Class == elfClass64 {
			var sh elf64SectionHeader
			readStruct(buf, &sh)
			nameOffsets[i], vas[i], offsets[i], sizes[i] = sh.Name, sh.Addr, sh.Offset, sh.Size
		} else {
			var sh elf32SectionHeader
			readStruct(buf, &sh)
			nameOffsets[i], vas[i], offsets[i], sizes[i] = sh.Name, uint64(sh.Addr), uint64(sh.Offset), uint64(sh.Size)
		}
	}

	var strtab []byte
	if shstrndx < len(rawHeaders) {
		start, size := offsets[shstrndx], sizes[shstrndx]
		if end := start + size; start <= uint64(len(raw)) && end <= uint64(len(raw)) && end >= start {
			strtab = raw[start:end]
		}
	}

	for i := 0; i < shnum; i++ {
		sections = append(sections, groundtruth.Section{
			Name:          elfSectionName(strtab, nameOffsets[i]),
			VA:            vas[i],
			RawDataOffset: offsets[i],
			RawDataSize:   sizes[i],
		})
	}

	return Binary{Raw: raw, Sections: sections, Architecture: arch}, nil
}

func readStruct(buf []byte, v any) {
	_ = binary.Read(bytes.NewReader(buf), binary.LittleEndian, v)
}

func elfSectionName(strtab []byte, offset uint32) string {
	if strtab == nil || int(offset) >= len(strtab) {
		return "PLACEHOLDER"
	}
	end := int(offset)
	for end < len(strtab) && strtab[end] != 0 {
		end++
	}
	if offset == 0 || int(offset) == end {
		return "PLACEHOLDER"
	}
	return string(strtab[offset:end])
}

package pipeline

import (
	"testing"

	"github.com/xyproto/b2g/internal/container"
	"github.com/xyproto/b2g/internal/groundtruth"
	"github.com/xyproto/b2g/internal/symboldump"
)

func TestRunELFMissingTextSection(t *testing.T) {
	bin := container.Binary{Raw: make([]byte, 16)}
	_, err := RunELF("a.so", bin, symboldump.DWARFSymbols{}, byteOracle{})
	if err == nil {
		t.Fatal("expected error when .text is absent")
	}
}

func TestRunELFUsesAbsolutePreTrimOffsets(t *testing.T) {
	// DWARF function offsets are absolute file offsets, not section-relative;
	// RunELF must flag/disassemble against the untrimmed buffer before
	// trimming .text out of it.
	prefix := []byte{0x00, 0x00, 0x00, 0x00}
	text := []byte{0x90, 0x90, 0x90, 0x90}
	raw := append(append([]byte{}, prefix...), text...)

	bin := container.Binary{
		Raw:      raw,
		Sections: []groundtruth.Section{{Name: ".text", VA: 0x2000, RawDataOffset: uint64(len(prefix)), RawDataSize: uint64(len(text))}},
	}
	dwarf := symboldump.DWARFSymbols{
		Architecture: groundtruth.X64,
		Functions:    []groundtruth.Function{{Name: "f", Offset: uint64(len(prefix)), Segment: 0, Size: uint64(len(text))}},
	}

	result, err := RunELF("a.so", bin, dwarf, byteOracle{})
	if err != nil {
		t.Fatalf("RunELF: %v", err)
	}
	if result.Buffer.Len() != len(text) {
		t.Fatalf("Buffer.Len() = %d, want %d", result.Buffer.Len(), len(text))
	}
	if result.Buffer.Bytes[0].Offset != 0x2000 {
		t.Errorf("first byte offset = %#x, want rebased to section VA 0x2000", result.Buffer.Bytes[0].Offset)
	}
	if !result.Buffer.Bytes[0].IsFunctionStart() {
		t.Error("first byte should carry FUNCTION_START")
	}
}

func TestRunELFOutOfRangeFunctionWarnsAndContinues(t *testing.T) {
	// §7 redesign: an out-of-range function is warned about and skipped, the
	// pipeline does not abort outright (unlike the original's early return).
	text := []byte{0x90, 0x90}
	bin := container.Binary{
		Raw:      text,
		Sections: []groundtruth.Section{{Name: ".text", RawDataOffset: 0, RawDataSize: uint64(len(text))}},
	}
	dwarf := symboldump.DWARFSymbols{
		Architecture: groundtruth.X64,
		Functions: []groundtruth.Function{
			{Name: "in_range", Offset: 0, Size: 2},
			{Name: "out_of_range", Offset: 0, Size: 100},
		},
	}

	result, err := RunELF("a.so", bin, dwarf, byteOracle{})
	if err != nil {
		t.Fatalf("RunELF: %v", err)
	}
	if result.Buffer.Len() != len(text) {
		t.Errorf("Buffer.Len() = %d, want %d (pipeline completed despite the oversized function)", result.Buffer.Len(), len(text))
	}
}

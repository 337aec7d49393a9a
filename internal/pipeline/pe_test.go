package pipeline

import (
	"testing"

	"github.com/xyproto/b2g/internal/container"
	"github.com/xyproto/b2g/internal/groundtruth"
	"github.com/xyproto/b2g/internal/symboldump"
)

func TestRunPEMissingTextSection(t *testing.T) {
	bin := container.Binary{Raw: make([]byte, 16)}
	_, err := RunPE("a.dll", bin, symboldump.PDBSymbols{}, byteOracle{})
	if err == nil {
		t.Fatal("expected error when .text is absent")
	}
}

func TestRunPEEmptyTextSection(t *testing.T) {
	// S1: zero-size .text; emission must still succeed with an empty buffer.
	bin := container.Binary{
		Raw:      make([]byte, 16),
		Sections: []groundtruth.Section{{Name: ".text", RawDataOffset: 0, RawDataSize: 0}},
	}
	result, err := RunPE("a.dll", bin, symboldump.PDBSymbols{Architecture: groundtruth.X64}, byteOracle{})
	if err != nil {
		t.Fatalf("RunPE: %v", err)
	}
	if result.Buffer.Len() != 0 {
		t.Errorf("Buffer.Len() = %d, want 0", result.Buffer.Len())
	}
}

func TestRunPERoundTripAndFunctionFlags(t *testing.T) {
	text := []byte{0x90, 0x90, 0x90, 0x90}
	raw := append([]byte{0xDE, 0xAD, 0xBE, 0xEF}, text...) // prefix bytes outside .text
	bin := container.Binary{
		Raw:      raw,
		Sections: []groundtruth.Section{{Name: ".text", VA: 0x2000, RawDataOffset: 4, RawDataSize: uint64(len(text))}},
	}
	pdb := symboldump.PDBSymbols{
		Architecture: groundtruth.X64,
		Functions:    []groundtruth.Function{{Name: "f", Offset: 0, Segment: 0, Size: 4}},
	}

	result, err := RunPE("a.dll", bin, pdb, byteOracle{})
	if err != nil {
		t.Fatalf("RunPE: %v", err)
	}

	// Round-trip law: the buffer's concatenated values equal the original
	// .text slice (the rebase only changes Offset, never Value).
	got := make([]byte, len(result.Buffer.Bytes))
	for i, b := range result.Buffer.Bytes {
		got[i] = b.Value
	}
	if string(got) != string(text) {
		t.Errorf("round trip: got %v, want %v", got, text)
	}

	if !result.Buffer.Bytes[0].IsFunctionStart() {
		t.Error("first byte should carry FUNCTION_START")
	}
	for _, b := range result.Buffer.Bytes {
		if b.IsCode() && b.IsData() {
			t.Error("invariant violated: a byte carries both CODE and DATA")
		}
	}
}

package emit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xyproto/b2g/internal/groundtruth"
)

func TestPlainRunCompression(t *testing.T) {
	buf := groundtruth.NewByteBuffer(make([]byte, 6))
	buf.Rebase(0x1000)
	buf.Bytes[0].Flags.Set(groundtruth.CODE, groundtruth.FUNCTION_START, groundtruth.INSTRUCTION_START)
	buf.Bytes[1].Flags.Set(groundtruth.CODE)
	buf.Bytes[2].Flags.Set(groundtruth.DATA)
	buf.Bytes[3].Flags.Set(groundtruth.DATA)
	buf.Bytes[4].Flags.Set(groundtruth.INSTRUCTION_ALIGNMENT)
	buf.Bytes[5].Flags.Set(groundtruth.INSTRUCTION_ALIGNMENT)

	sections := []groundtruth.Section{{Name: ".text", VA: 0x1000, RawDataSize: 6}}
	out := Plain(sections, 0x400000, buf)

	if !strings.Contains(out, "******* section .text *******") {
		t.Error("missing section header line")
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	var runLines []string
	for _, l := range lines {
		if strings.HasPrefix(l, "@0x") {
			runLines = append(runLines, l)
		}
	}
	if len(runLines) != 3 {
		t.Fatalf("got %d run lines, want 3 (code run, data run, alignment run): %v", len(runLines), runLines)
	}
	if !strings.Contains(runLines[0], "[FIC]C") {
		t.Errorf("first run line = %q, want code run starting [FIC]", runLines[0])
	}
	if !strings.Contains(runLines[1], "D]D") {
		t.Errorf("second run line = %q, want data run", runLines[1])
	}
	if !strings.Contains(runLines[2], "N]N") {
		t.Errorf("third run line = %q, want alignment run", runLines[2])
	}
}

func TestPlainAddressIsDoubleBased(t *testing.T) {
	buf := groundtruth.NewByteBuffer(make([]byte, 1))
	buf.Rebase(0x1000)
	buf.Bytes[0].Flags.Set(groundtruth.CODE)

	sections := []groundtruth.Section{{Name: ".text", VA: 0x1000, RawDataSize: 1}}
	out := Plain(sections, 0x400000, buf)

	// byte offset (already rebased to 0x1000) plus imageBase (0x400000).
	if !strings.Contains(out, "@0x000000401000") {
		t.Errorf("output = %q, want address 0x401000 (offset+imageBase)", out)
	}
}

func TestWritePlainAndWriteDump(t *testing.T) {
	dir := t.TempDir()
	stem := filepath.Join(dir, "out")

	buf := groundtruth.NewByteBuffer([]byte{0x90, 0x90})
	buf.Bytes[0].Flags.Set(groundtruth.CODE)
	buf.Bytes[1].Flags.Set(groundtruth.CODE)

	sections := []groundtruth.Section{{Name: ".text", RawDataSize: 2}}
	if err := WritePlain(stem, sections, 0, buf); err != nil {
		t.Fatalf("WritePlain: %v", err)
	}
	if _, err := os.Stat(stem + ".txt"); err != nil {
		t.Errorf("expected %s.txt to exist: %v", stem, err)
	}

	dump := BuildDump(groundtruth.X64, buf, nil, nil, time.Unix(0, 0))
	if dump.BytesIdentified != 2 || dump.TotalBytes != 2 || dump.Accuracy != 100 {
		t.Errorf("dump = %+v, want fully identified 2-byte buffer", dump)
	}
	if err := WriteDump(stem, dump); err != nil {
		t.Fatalf("WriteDump: %v", err)
	}
	if _, err := os.Stat(stem + ".yaml"); err != nil {
		t.Errorf("expected %s.yaml to exist: %v", stem, err)
	}
}

func TestBuildDumpEmptyBufferAccuracyIsZero(t *testing.T) {
	// S1: a zero-size .text yields total_bytes = 0; this implementation
	// reports accuracy = 0 rather than NaN for an empty buffer.
	buf := groundtruth.NewByteBuffer(nil)
	dump := BuildDump(groundtruth.X64, buf, nil, nil, time.Unix(0, 0))
	if dump.TotalBytes != 0 || dump.Accuracy != 0 {
		t.Errorf("dump = %+v, want TotalBytes=0 Accuracy=0", dump)
	}
}

package symboldump

import (
	"testing"

	"github.com/xyproto/b2g/internal/groundtruth"
)

func TestLoadDWARFBasic(t *testing.T) {
	path := writeTempYAML(t, `
FileHeader:
  Class: ELFCLASS64
Sections:
  - Name: .text
  - Name: .data
Symbols:
  - Name: main
    Type: STT_FUNC
    Value: 16
    Size: 32
    Section: .text
  - Name: not_a_function
    Type: STT_OBJECT
    Value: 0
    Size: 8
    Section: .data
  - Name: incomplete
    Type: STT_FUNC
    Section: .text
`)

	got, err := LoadDWARF(path)
	if err != nil {
		t.Fatalf("LoadDWARF: %v", err)
	}

	if got.Architecture != groundtruth.X64 {
		t.Errorf("Architecture = %v, want X64", got.Architecture)
	}
	if len(got.Functions) != 1 {
		t.Fatalf("Functions = %d, want 1 (non-func and incomplete symbols dropped)", len(got.Functions))
	}
	fn := got.Functions[0]
	if fn.Name != "main" || fn.Offset != 16 || fn.Size != 32 || fn.Segment != 0 {
		t.Errorf("unexpected function: %+v", fn)
	}
}

func TestLoadDWARFUnknownArchitectureClass(t *testing.T) {
	path := writeTempYAML(t, `
Sections:
  - Name: .text
Symbols:
  - Name: f
    Type: STT_FUNC
    Value: 0
    Size: 4
    Section: .text
`)
	got, err := LoadDWARF(path)
	if err != nil {
		t.Fatalf("LoadDWARF: %v", err)
	}
	if got.Architecture != groundtruth.UNKNOWN {
		t.Errorf("Architecture = %v, want UNKNOWN when FileHeader is absent", got.Architecture)
	}
}

func TestLoadDWARFMissingSymbols(t *testing.T) {
	path := writeTempYAML(t, "foo: bar\n")
	if _, err := LoadDWARF(path); err == nil {
		t.Error("expected error for missing Symbols key")
	}
}

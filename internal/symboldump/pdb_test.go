package symboldump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xyproto/b2g/internal/groundtruth"
)

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dump.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPDBBasicRecords(t *testing.T) {
	path := writeTempYAML(t, `
TpiStream: {}
DbiStream:
  MachineType: x64
  Modules:
    - Modi:
        Records:
          - Kind: S_GPROC32
            ProcSym:
              DisplayName: main
              Offset: 16
              Segment: 1
              CodeSize: 32
          - Kind: S_LABEL32
            LabelSym:
              DisplayName: loc_20
              Offset: 20
              Segment: 1
          - Kind: S_LDATA32
            DataSym:
              Offset: 48
              Segment: 1
          - Kind: S_THUNK32
            Thunk32Sym:
              Off: 100
              Seg: 1
              Len: 5
          - Kind: S_UNKNOWN_KIND
`)

	got, err := LoadPDB(path)
	if err != nil {
		t.Fatalf("LoadPDB: %v", err)
	}

	if got.Architecture != groundtruth.X64 {
		t.Errorf("Architecture = %v, want X64", got.Architecture)
	}
	if got.ImageBase != groundtruth.X64.DefaultImageBase() {
		t.Errorf("ImageBase = %#x, want default x64 base", got.ImageBase)
	}
	if len(got.Functions) != 2 { // one proc, one thunk
		t.Fatalf("Functions = %d, want 2", len(got.Functions))
	}
	if len(got.Labels) != 1 {
		t.Fatalf("Labels = %d, want 1", len(got.Labels))
	}
	if len(got.Data) != 1 {
		t.Fatalf("Data = %d, want 1", len(got.Data))
	}
	if got.Data[0].Name != placeholderDataName {
		t.Errorf("Data[0].Name = %q, want PLACEHOLDER", got.Data[0].Name)
	}
	if len(got.Thunks) != 1 {
		t.Fatalf("Thunks = %d, want 1", len(got.Thunks))
	}
}

func TestLoadPDBMissingStreams(t *testing.T) {
	path := writeTempYAML(t, "foo: bar\n")
	if _, err := LoadPDB(path); err == nil {
		t.Error("expected error for missing TpiStream/DbiStream")
	}
}

func TestLoadPDBUnreadableFile(t *testing.T) {
	if _, err := LoadPDB(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

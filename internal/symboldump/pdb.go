// Package symboldump parses the structured debug-symbol dumps (YAML) that
// feed the labeling pipeline: the PDB variant for PE binaries and the DWARF
// variant for ELF binaries.
package symboldump

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xyproto/b2g/internal/groundtruth"
)

// PDBSymbols is everything the PE/PDB adapter extracts from a structured
// symbol dump before the labeling pipeline runs.
type PDBSymbols struct {
	Architecture groundtruth.Architecture
	ImageBase    uint64
	Functions    []groundtruth.Function
	Data         []groundtruth.Data
	Labels       []groundtruth.Label
	Thunks       []groundtruth.Thunk
}

type pdbDoc struct {
	TpiStream *yaml.Node `yaml:"TpiStream"`
	DbiStream *struct {
		MachineType string `yaml:"MachineType"`
		Modules     []struct {
			Modi *struct {
				Records []pdbRecord `yaml:"Records"`
			} `yaml:"Modi"`
		} `yaml:"Modules"`
	} `yaml:"DbiStream"`
}

type pdbRecord struct {
	Kind     string `yaml:"Kind"`
	ProcSym  *procSym  `yaml:"ProcSym"`
	Thunk32  *thunkSym `yaml:"Thunk32Sym"`
	LabelSym *labelSym `yaml:"LabelSym"`
	DataSym  *dataSym  `yaml:"DataSym"`
}

type procSym struct {
	DisplayName string `yaml:"DisplayName"`
	Offset      uint64 `yaml:"Offset"`
	Segment     uint8  `yaml:"Segment"`
	CodeSize    uint64 `yaml:"CodeSize"`
}

type thunkSym struct {
	Off uint64 `yaml:"Off"`
	Seg uint8  `yaml:"Seg"`
	Len uint64 `yaml:"Len"`
}

type labelSym struct {
	DisplayName string `yaml:"DisplayName"`
	Offset      uint64 `yaml:"Offset"`
	Segment     uint8  `yaml:"Segment"`
}

type dataSym struct {
	DisplayName string `yaml:"DisplayName"`
	Offset      uint64 `yaml:"Offset"`
	Segment     uint8  `yaml:"Segment"`
}

// thunkFunctionName is the placeholder name given to a function synthesized
// from an S_THUNK32 record.
const thunkFunctionName = "<thunk>"

// placeholderDataName is substituted for a data symbol with no DisplayName.
const placeholderDataName = "PLACEHOLDER"

// LoadPDB reads and parses a structured PDB symbol dump.
func LoadPDB(path string) (PDBSymbols, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PDBSymbols{}, fmt.Errorf("symboldump: could not read %s: %w", path, err)
	}

	var doc pdbDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return PDBSymbols{}, fmt.Errorf("symboldump: could not parse %s: %w", path, err)
	}

	if doc.TpiStream == nil {
		return PDBSymbols{}, fmt.Errorf("symboldump: %s: could not parse TpiStream", path)
	}
	if doc.DbiStream == nil {
		return PDBSymbols{}, fmt.Errorf("symboldump: %s: could not parse DbiStream", path)
	}

	var functions []groundtruth.Function
	var labels []groundtruth.Label
	var data []groundtruth.Data
	var thunks []groundtruth.Thunk

	for _, mod := range doc.DbiStream.Modules {
		if mod.Modi == nil {
			continue
		}
		for _, rec := range mod.Modi.Records {
			switch rec.Kind {
			case "S_GPROC32", "S_LPROC32", "S_PUB32":
				if rec.ProcSym == nil {
					continue
				}
				functions = append(functions, groundtruth.Function{
					Name:    rec.ProcSym.DisplayName,
					Offset:  rec.ProcSym.Offset,
					Segment: rec.ProcSym.Segment,
					Size:    rec.ProcSym.CodeSize,
				})
			case "S_THUNK32":
				if rec.Thunk32 == nil {
					continue
				}
				thunk := groundtruth.Thunk{
					Offset:  rec.Thunk32.Off,
					Segment: rec.Thunk32.Seg,
					Size:    rec.Thunk32.Len,
				}
				functions = append(functions, groundtruth.Function{
					Name:    thunkFunctionName,
					Offset:  thunk.Offset,
					Segment: thunk.Segment,
					Size:    thunk.Size,
				})
				thunks = append(thunks, thunk)
			case "S_LABEL32":
				if rec.LabelSym == nil {
					continue
				}
				labels = append(labels, groundtruth.Label{
					Name:    rec.LabelSym.DisplayName,
					Offset:  rec.LabelSym.Offset,
					Segment: rec.LabelSym.Segment,
				})
			case "S_LDATA32", "S_GDATA32":
				if rec.DataSym == nil {
					continue
				}
				name := rec.DataSym.DisplayName
				if name == "" {
					name = placeholderDataName
				}
				data = append(data, groundtruth.Data{
					Name:    name,
					Offset:  rec.DataSym.Offset,
					Segment: rec.DataSym.Segment,
				})
			default:
				// Unrecognized record kinds are silently ignored.
			}
		}
	}

	functions = groundtruth.SortAndDedupFunctions(functions)
	data = groundtruth.SortAndDedupData(data)
	labels = groundtruth.SortAndDedupLabels(labels)
	thunks = groundtruth.SortAndDedupThunks(thunks)

	arch := groundtruth.UNKNOWN
	switch doc.DbiStream.MachineType {
	case "x86":
		arch = groundtruth.X86
	case "x64":
		arch = groundtruth.X64
	}

	return PDBSymbols{
		Architecture: arch,
		ImageBase:    arch.DefaultImageBase(),
		Functions:    functions,
		Data:         data,
		Labels:       labels,
		Thunks:       thunks,
	}, nil
}

package symboldump

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xyproto/b2g/internal/groundtruth"
)

// DWARFSymbols is everything the ELF/DWARF adapter extracts from a
// structured symbol dump. ELF has no labels or thunks: the mid/end
// in-line-data cuts and the label/data relationship pass simply never run
// for this variant.
type DWARFSymbols struct {
	Architecture groundtruth.Architecture
	ImageBase    uint64
	Functions    []groundtruth.Function
}

type dwarfDoc struct {
	Symbols    []dwarfSymbol `yaml:"Symbols"`
	FileHeader *struct {
		Class string `yaml:"Class"`
	} `yaml:"FileHeader"`
	Sections []struct {
		Name string `yaml:"Name"`
	} `yaml:"Sections"`
}

type dwarfSymbol struct {
	Name    string `yaml:"Name"`
	Type    string `yaml:"Type"`
	Value   *uint64 `yaml:"Value"`
	Size    *uint64 `yaml:"Size"`
	Section string `yaml:"Section"`
}

// LoadDWARF reads and parses a structured DWARF symbol dump.
func LoadDWARF(path string) (DWARFSymbols, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return DWARFSymbols{}, fmt.Errorf("symboldump: could not read %s: %w", path, err)
	}

	var doc dwarfDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return DWARFSymbols{}, fmt.Errorf("symboldump: could not parse %s: %w", path, err)
	}

	if doc.Symbols == nil {
		return DWARFSymbols{}, fmt.Errorf("symboldump: %s: could not parse Symbols", path)
	}

	sectionIndex := make(map[string]uint8, len(doc.Sections))
	for i, s := range doc.Sections {
		sectionIndex[s.Name] = uint8(i)
	}

	var functions []groundtruth.Function
	for _, sym := range doc.Symbols {
		if sym.Type != "STT_FUNC" {
			continue
		}
		if sym.Section == "" {
			slog.Debug("symboldump: function has no section", "name", sym.Name)
			continue
		}
		if sym.Size == nil {
			slog.Debug("symboldump: function has no size", "name", sym.Name)
			continue
		}
		if sym.Value == nil {
			slog.Debug("symboldump: function has no offset", "name", sym.Name)
			continue
		}
		segment, ok := sectionIndex[sym.Section]
		if !ok {
			slog.Debug("symboldump: function references unknown section", "name", sym.Name, "section", sym.Section)
			continue
		}
		functions = append(functions, groundtruth.Function{
			Name:    sym.Name,
			Offset:  *sym.Value,
			Segment: segment,
			Size:    *sym.Size,
		})
	}

	functions = groundtruth.SortAndDedupFunctions(functions)

	arch := groundtruth.UNKNOWN
	if doc.FileHeader != nil {
		switch doc.FileHeader.Class {
		case "ELFCLASS32":
			arch = groundtruth.X86
		case "ELFCLASS64":
			arch = groundtruth.X64
		}
	}

	return DWARFSymbols{
		Architecture: arch,
		ImageBase:    arch.DefaultImageBase(),
		Functions:    functions,
	}, nil
}

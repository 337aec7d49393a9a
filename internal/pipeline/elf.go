package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/xyproto/b2g/internal/container"
	"github.com/xyproto/b2g/internal/disasm"
	"github.com/xyproto/b2g/internal/groundtruth"
	"github.com/xyproto/b2g/internal/symboldump"
)

// RunELF executes the ELF passes in the order DWARF symbols require: prune,
// flag, disassemble, trim, rebase, alignment, end-of-section. DWARF symbol
// offsets are absolute addresses into the whole file, so flagging and
// disassembly must run against the untrimmed buffer; only afterwards is the
// buffer narrowed down to .text and rebased to its section VA.
func RunELF(fileName string, bin container.Binary, dwarf symboldump.DWARFSymbols, oracle disasm.Oracle) (*Result, error) {
	text, ok := container.FindSection(bin.Sections, ".text")
	if !ok {
		return nil, fmt.Errorf("pipeline: %s has no .text section", fileName)
	}

	buf := groundtruth.NewByteBuffer(bin.Raw)

	fns := PreprocessFunctions(dwarf.Functions)

	// SetByteFlags and Disassemble both report an oversized function; warn
	// only the first time.
	type fnKey struct {
		name         string
		offset, size uint64
	}
	warned := make(map[fnKey]bool)
	outOfBounds := func(f groundtruth.Function) {
		k := fnKey{f.Name, f.Offset, f.Size}
		if warned[k] {
			return
		}
		warned[k] = true
		slog.Warn("function ends outside of the text section", "function", f.Name)
	}

	SetByteFlags(buf, fns, outOfBounds)

	insts, err := Disassemble(buf, fns, oracle, dwarf.Architecture.EffectiveArchitecture(), outOfBounds)
	if err != nil {
		return nil, err
	}

	buf.Trim(text.RawDataOffset, text.RawDataOffset+text.RawDataSize)
	buf.Rebase(text.VA)

	if err := DetectAlignmentBytes(buf, oracle, dwarf.Architecture.EffectiveArchitecture()); err != nil {
		return nil, err
	}
	DetectEndOfSection(buf)

	return &Result{
		FileName:     fileName,
		Architecture: dwarf.Architecture,
		Buffer:       buf,
		Functions:    fns,
		Instructions: insts,
	}, nil
}

package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/xyproto/b2g/internal/container"
	"github.com/xyproto/b2g/internal/disasm"
	"github.com/xyproto/b2g/internal/groundtruth"
	"github.com/xyproto/b2g/internal/symboldump"
)

// Result is what a completed pipeline run hands to the emitters.
type Result struct {
	FileName     string
	Architecture groundtruth.Architecture
	Buffer       *groundtruth.ByteBuffer
	Functions    []groundtruth.Function
	Instructions []groundtruth.Instruction
}

// textSectionBase is the conventional image-relative virtual address the PE
// variant rebases its trimmed .text buffer to (the reference tool's fixed
// choice, independent of the section's real VA).
const textSectionBase = 0x1000

// RunPE executes the nine PE passes in the order DWARF-free PDB symbols
// require: trim, rebase, prune, relate, cut-end, cut-mid, flag, disassemble,
// and finalize (alignment, then end-of-section). PDB offsets are already section-relative, so
// the buffer can be trimmed and rebased before anything else runs.
func RunPE(fileName string, bin container.Binary, pdb symboldump.PDBSymbols, oracle disasm.Oracle) (*Result, error) {
	text, ok := container.FindSection(bin.Sections, ".text")
	if !ok {
		return nil, fmt.Errorf("pipeline: %s has no .text section", fileName)
	}

	buf := groundtruth.NewByteBuffer(bin.Raw)
	buf.Trim(text.RawDataOffset, text.RawDataOffset+text.RawDataSize)
	buf.Rebase(textSectionBase)

	fns := PreprocessFunctions(pdb.Functions)
	fns = CreateRelationships(fns, pdb.Labels, pdb.Data)
	CutInLineDataEnd(fns)
	CutInLineDataMid(fns)

	SetByteFlags(buf, fns, func(f groundtruth.Function) {
		slog.Warn("function extends past .text section", "function", f.Name)
	})

	insts, err := Disassemble(buf, fns, oracle, pdb.Architecture.EffectiveArchitecture(), func(f groundtruth.Function) {
		slog.Warn("function extends past .text section, skipping disassembly", "function", f.Name)
	})
	if err != nil {
		return nil, err
	}

	if err := DetectAlignmentBytes(buf, oracle, pdb.Architecture.EffectiveArchitecture()); err != nil {
		return nil, err
	}
	DetectEndOfSection(buf)

	return &Result{
		FileName:     fileName,
		Architecture: pdb.Architecture,
		Buffer:       buf,
		Functions:    fns,
		Instructions: insts,
	}, nil
}

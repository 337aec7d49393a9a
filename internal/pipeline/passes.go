// Package pipeline runs the ordered set of passes that turn a raw byte
// buffer plus a symbol dump into a fully flagged ByteBuffer and an
// instruction stream. RunPE and RunELF share these passes but
// invoke them in different orders, since DWARF symbol offsets are absolute
// (pre-trim) addresses while PDB symbol offsets are already section-relative.
package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xyproto/b2g/internal/disasm"
	"github.com/xyproto/b2g/internal/groundtruth"
)

// PreprocessFunctions drops every function with a zero size: there is
// nothing for later passes to attach to it.
func PreprocessFunctions(fns []groundtruth.Function) []groundtruth.Function {
	out := fns[:0]
	for _, f := range fns {
		if f.Size > 0 {
			out = append(out, f)
		}
	}
	return out
}

// CreateRelationships attaches each label/data symbol to the function whose
// segment matches and whose byte range strictly contains the symbol's
// offset (boundary-exclusive on both ends, matching the reference parser).
func CreateRelationships(fns []groundtruth.Function, labels []groundtruth.Label, data []groundtruth.Data) []groundtruth.Function {
	for i := range fns {
		f := &fns[i]
		for _, l := range labels {
			if l.Segment != f.Segment {
				continue
			}
			if l.Offset > f.Offset && l.Offset < f.Offset+f.Size {
				f.Labels = append(f.Labels, l)
			}
		}
		for _, d := range data {
			if d.Segment != f.Segment {
				continue
			}
			if d.Offset > f.Offset && d.Offset < f.Offset+f.Size {
				f.Data = append(f.Data, d)
			}
		}
	}
	return fns
}

// CutInLineDataEnd shrinks a function whose in-line tail data (an unnamed
// Data symbol) falls inside its current bounds: the data absorbs everything
// from its offset to the function's old end, and the function shrinks to
// end where the data begins.
func CutInLineDataEnd(fns []groundtruth.Function) {
	for i := range fns {
		f := &fns[i]
		for j := range f.Data {
			d := &f.Data[j]
			if d.Name != "" {
				continue
			}
			if d.Offset > f.Offset && d.Offset < f.Offset+f.Size {
				d.Size = (f.Size + f.Offset) - d.Offset
				f.Size = d.Offset - f.Offset
			}
		}
	}
}

// CutInLineDataMid sizes a mid-function jump table by counting the labels
// whose name contains the table's base name (its own name lowercased with
// every "vec" substring removed), each label accounting for one 4-byte
// table entry.
func CutInLineDataMid(fns []groundtruth.Function) {
	for i := range fns {
		f := &fns[i]
		for j := range f.Data {
			d := &f.Data[j]
			if d.Name == "" {
				continue
			}
			base := strings.ReplaceAll(strings.ToLower(d.Name), "vec", "")
			if base == "" {
				continue
			}
			count := uint64(0)
			for _, l := range f.Labels {
				if strings.Contains(strings.ToLower(l.Name), base) {
					count++
				}
			}
			d.Size = count * 4
		}
	}
}

// SetByteFlags marks every byte belonging to a function's child data as DATA
// and every remaining byte of the function as CODE. outOfBounds is called
// (and the function's remaining bytes skipped) the first time a function
// claims a byte past the end of buf; ELF functions can legitimately do this
// since DWARF sizes are not re-validated against the section, PE functions
// never should.
func SetByteFlags(buf *groundtruth.ByteBuffer, fns []groundtruth.Function, outOfBounds func(groundtruth.Function)) {
	for _, f := range fns {
		for _, d := range f.Data {
			for i := uint64(0); i < d.Size; i++ {
				idx := d.Offset + i
				if idx >= uint64(len(buf.Bytes)) {
					continue
				}
				buf.Bytes[idx].Flags.Set(groundtruth.DATA)
			}
		}

		for i := uint64(0); i < f.Size; i++ {
			idx := f.Offset + i
			if idx >= uint64(len(buf.Bytes)) {
				if outOfBounds != nil {
					outOfBounds(f)
				}
				break
			}
			if buf.Bytes[idx].IsData() {
				continue
			}
			buf.Bytes[idx].Flags.Set(groundtruth.CODE)
		}
	}
}

// Disassemble decodes every function's code bytes (skipping bytes already
// flagged as data) and flags INSTRUCTION_START/INSTRUCTION_END plus each
// instruction's own class flag. additionalOffset accounts for mid-function
// data holes shifting every instruction after them: an instruction whose
// buffer-relative offset lands at or past a data symbol's offset is shifted
// forward by that data's size.
func Disassemble(buf *groundtruth.ByteBuffer, fns []groundtruth.Function, oracle disasm.Oracle, arch groundtruth.Architecture, outOfBounds func(groundtruth.Function)) ([]groundtruth.Instruction, error) {
	var all []groundtruth.Instruction

	for _, f := range fns {
		var functionBuffer []byte
		truncated := false

		for offset := uint64(0); offset < f.Size; offset++ {
			idx := f.Offset + offset
			if idx >= uint64(len(buf.Bytes)) {
				if outOfBounds != nil {
					outOfBounds(f)
				}
				truncated = true
				break
			}
			if buf.Bytes[idx].IsData() {
				continue
			}

			buf.Bytes[idx].Flags.Set(groundtruth.CODE, groundtruth.READABLE, groundtruth.EXECUTABLE)
			functionBuffer = append(functionBuffer, buf.Bytes[idx].Value)
		}
		if truncated {
			continue
		}

		buf.Bytes[f.Offset].Flags.Set(groundtruth.FUNCTION_START)
		buf.Bytes[f.Offset+f.Size-1].Flags.Set(groundtruth.FUNCTION_END)

		insts, err := oracle.Disassemble(functionBuffer, arch)
		if err != nil {
			return nil, fmt.Errorf("pipeline: disassembling %s: %w", f.Name, err)
		}

		for _, inst := range insts {
			var additionalOffset uint64
			for _, d := range f.Data {
				if inst.Offset+f.Offset+additionalOffset >= d.Offset {
					additionalOffset += d.Size
				}
			}

			startIdx := additionalOffset + f.Offset + inst.Offset
			endIdx := startIdx + inst.Length - 1
			if endIdx >= uint64(len(buf.Bytes)) {
				slog.Warn("instruction extends past buffer end, skipping flag placement", "function", f.Name, "offset", inst.Offset)
				continue
			}

			buf.Bytes[startIdx].Flags.Set(groundtruth.INSTRUCTION_START)
			buf.Bytes[endIdx].Flags.Set(groundtruth.INSTRUCTION_END)
			buf.Bytes[startIdx].Flags.Set(inst.Flags)

			all = append(all, inst)
		}
	}

	return all, nil
}

// DetectAlignmentBytes flags every standalone 0xCC (int3) byte directly,
// then redisassembles each hole (maximal run of still-unflagged bytes) to
// catch multi-byte NOP padding forms the single-byte check misses.
func DetectAlignmentBytes(buf *groundtruth.ByteBuffer, oracle disasm.Oracle, arch groundtruth.Architecture) error {
	for i := range buf.Bytes {
		b := &buf.Bytes[i]
		if b.IsCode() || b.IsData() {
			continue
		}
		if b.Value == 0xCC {
			b.Flags.Set(groundtruth.INSTRUCTION_ALIGNMENT)
		}
	}

	for _, hole := range buf.Holes() {
		holeBuf := make([]byte, 0, hole.Size)
		for i := hole.Start; i <= hole.End; i++ {
			holeBuf = append(holeBuf, buf.Bytes[i].Value)
		}

		insts, err := oracle.Disassemble(holeBuf, arch)
		if err != nil {
			return fmt.Errorf("pipeline: disassembling hole at %#x: %w", hole.Start, err)
		}

		for _, inst := range insts {
			if !inst.IsAlignment() {
				continue
			}
			for offset := uint64(0); offset < inst.Length; offset++ {
				buf.Bytes[hole.Start+inst.Offset+offset].Flags.Set(groundtruth.INSTRUCTION_ALIGNMENT)
			}
		}
	}

	return nil
}

// DetectEndOfSection truncates the trailing run of zero-valued bytes that
// carry neither CODE nor DATA: linker padding past the last real function or
// data symbol. The run ends at the last byte that is flagged CODE/DATA or
// non-zero.
func DetectEndOfSection(buf *groundtruth.ByteBuffer) {
	size := len(buf.Bytes)

	for i := len(buf.Bytes) - 1; i >= 0; i-- {
		b := buf.Bytes[i]
		if b.IsCode() || b.IsData() || b.Value != 0x0 {
			break
		}
		size--
	}

	buf.Truncate(size)
}

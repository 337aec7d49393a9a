// Package disasm provides the pluggable disassembler oracle the labeling
// pipeline invokes to turn a byte slice into a flagged instruction stream.
package disasm

import (
	"errors"

	"github.com/xyproto/b2g/internal/groundtruth"
)

// ErrBackendUnimplemented is returned by backends that exist only as a
// documented placeholder for an alternate engine.
var ErrBackendUnimplemented = errors.New("disasm: backend not implemented")

// Oracle decodes a byte buffer into a sequence of instructions for the given
// architecture. Implementations are assumed to be pure functions of their
// input — no state survives between calls.
type Oracle interface {
	Disassemble(buf []byte, arch groundtruth.Architecture) ([]groundtruth.Instruction, error)
}

package disasm

import "github.com/xyproto/b2g/internal/groundtruth"

// StubBackend stands in for an alternate disassembler engine (the reference
// tool references a Zydis binding it never implements). Per the spec's
// re-architecture guidance, the alternate backend is an explicit
// unimplemented variant that errors at construction rather than silently
// returning an empty instruction list.
type StubBackend struct{}

// NewStubBackend always fails: there is no second backend to construct.
func NewStubBackend() (*StubBackend, error) {
	return nil, ErrBackendUnimplemented
}

func (StubBackend) Disassemble([]byte, groundtruth.Architecture) ([]groundtruth.Instruction, error) {
	return nil, ErrBackendUnimplemented
}

package groundtruth

// Instruction is one decoded instruction, as returned by a disasm.Oracle.
// Offset is relative to the start of the buffer the oracle was invoked on
// (a function's code-only buffer, or a hole's raw byte slice) — callers are
// responsible for mapping it back into section-virtual addresses.
type Instruction struct {
	Mnemonic string
	Operand  string
	Bytes    []byte
	Offset   uint64
	Length   uint64
	Flags    Flag
}

func (i Instruction) IsAlignment() bool { return i.Flags.Has(INSTRUCTION_ALIGNMENT) }

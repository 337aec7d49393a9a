package groundtruth

// Byte is one addressable unit of the .text section: its original value
// never changes once read from the binary, only its (virtual) Offset and
// its Flags evolve as passes run.
type Byte struct {
	Offset uint64
	Value  byte
	Flags  Flag
}

func (b *Byte) IsCode() bool              { return b.Flags.Has(CODE) }
func (b *Byte) IsData() bool              { return b.Flags.Has(DATA) }
func (b *Byte) IsAlignment() bool         { return b.Flags.Has(INSTRUCTION_ALIGNMENT) }
func (b *Byte) IsInstructionStart() bool  { return b.Flags.Has(INSTRUCTION_START) }
func (b *Byte) IsInstructionJump() bool   { return b.Flags.Has(INSTRUCTION_JUMP) }
func (b *Byte) IsInstructionReturn() bool { return b.Flags.Has(INSTRUCTION_RET) }
func (b *Byte) IsInstructionInt() bool    { return b.Flags.Has(INSTRUCTION_INT) }
func (b *Byte) IsFunctionStart() bool     { return b.Flags.Has(FUNCTION_START) }

// Hole is a maximal contiguous run of bytes whose flag set is empty at the
// time of inspection. Holes are never stored on the buffer; they are
// recomputed by ByteBuffer.Holes whenever a pass needs them.
type Hole struct {
	Start uint64
	End   uint64
	Size  uint64
}

// ByteBuffer is the random-access, mutable sequence of Byte records the
// whole pipeline operates on. Index i always satisfies
// buf.Bytes[i].Offset == base+i once Rebase has run.
type ByteBuffer struct {
	Bytes []Byte
}

// NewByteBuffer builds a ByteBuffer from raw file bytes, offsets starting at
// their position in the file (pre-trim, pre-rebase).
func NewByteBuffer(raw []byte) *ByteBuffer {
	bytes := make([]Byte, len(raw))
	for i, v := range raw {
		bytes[i] = Byte{Offset: uint64(i), Value: v}
	}
	return &ByteBuffer{Bytes: bytes}
}

// Len returns the number of bytes currently in the buffer.
func (b *ByteBuffer) Len() int { return len(b.Bytes) }

// Trim retains only the byte range [start, end) of the buffer, addressed by
// the buffer's current (pre-trim) offsets.
func (b *ByteBuffer) Trim(start, end uint64) {
	if end > uint64(len(b.Bytes)) {
		end = uint64(len(b.Bytes))
	}
	if start > end {
		start = end
	}
	b.Bytes = append([]Byte(nil), b.Bytes[start:end]...)
}

// Rebase overwrites every byte's Offset to base+index, giving the buffer a
// new virtual address space.
func (b *ByteBuffer) Rebase(base uint64) {
	for i := range b.Bytes {
		b.Bytes[i].Offset = base + uint64(i)
	}
}

// Truncate drops every byte at or past index n, used by end-of-section
// detection.
func (b *ByteBuffer) Truncate(n int) {
	if n < len(b.Bytes) {
		b.Bytes = b.Bytes[:n]
	}
}

// Holes performs a linear scan for maximal runs of flag-less bytes,
// including a run left open at the very end of the buffer.
func (b *ByteBuffer) Holes() []Hole {
	var holes []Hole
	holeLen := 0

	for i, by := range b.Bytes {
		if by.Flags.Empty() {
			holeLen++
			continue
		}
		if holeLen > 0 {
			holes = append(holes, Hole{
				Start: uint64(i - holeLen),
				End:   uint64(i - 1),
				Size:  uint64(holeLen),
			})
		}
		holeLen = 0
	}

	if holeLen > 0 {
		n := len(b.Bytes)
		holes = append(holes, Hole{
			Start: uint64(n - holeLen),
			End:   uint64(n - 1),
			Size:  uint64(holeLen),
		})
	}

	return holes
}

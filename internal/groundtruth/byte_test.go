package groundtruth

import "testing"

func TestFlagSetIdempotent(t *testing.T) {
	var f Flag
	f.Set(CODE)
	f.Set(CODE, READABLE)
	if !f.Has(CODE) || !f.Has(READABLE) {
		t.Fatalf("expected CODE|READABLE, got %s", f)
	}
	if f.Has(DATA) {
		t.Fatalf("did not expect DATA in %s", f)
	}
}

func TestByteBufferTrimRebase(t *testing.T) {
	raw := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	buf := NewByteBuffer(raw)

	buf.Trim(2, 6)
	if buf.Len() != 4 {
		t.Fatalf("expected len 4 after trim, got %d", buf.Len())
	}

	buf.Rebase(0x1000)
	for i, b := range buf.Bytes {
		if b.Offset != 0x1000+uint64(i) {
			t.Fatalf("byte %d: expected offset 0x%x, got 0x%x", i, 0x1000+i, b.Offset)
		}
	}
	if buf.Bytes[0].Value != 2 || buf.Bytes[3].Value != 5 {
		t.Fatalf("trim kept wrong values: %v", buf.Bytes)
	}
}

func TestHoleDetection(t *testing.T) {
	buf := &ByteBuffer{Bytes: make([]Byte, 10)}
	buf.Bytes[3].Flags.Set(CODE)
	buf.Bytes[4].Flags.Set(CODE)

	holes := buf.Holes()
	if len(holes) != 2 {
		t.Fatalf("expected 2 holes, got %d: %+v", len(holes), holes)
	}
	if holes[0].Start != 0 || holes[0].End != 2 || holes[0].Size != 3 {
		t.Fatalf("unexpected leading hole: %+v", holes[0])
	}
	if holes[1].Start != 5 || holes[1].End != 9 || holes[1].Size != 5 {
		t.Fatalf("unexpected trailing hole (should reach buffer end): %+v", holes[1])
	}
}

func TestHoleDetectionNoGaps(t *testing.T) {
	buf := &ByteBuffer{Bytes: make([]Byte, 3)}
	for i := range buf.Bytes {
		buf.Bytes[i].Flags.Set(CODE)
	}
	if holes := buf.Holes(); len(holes) != 0 {
		t.Fatalf("expected no holes, got %+v", holes)
	}
}

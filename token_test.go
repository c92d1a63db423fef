package cxml

import "testing"

// =============================================================================
// PACKING
// =============================================================================

func TestPackToken(t *testing.T) {
	got := packToken(AttributeID, 9)
	want := uint32(AttributeID) | 9<<TokenShift
	if got != want {
		t.Fatalf("packToken(AttributeID, 9) = %d; want %d", got, want)
	}
}

func TestUnknownEndOffsetFor(t *testing.T) {
	cases := []struct {
		name TokenKind
		want TokenKind
	}{
		{OpenElementID, UnknownOpenElementEndOffset},
		{CloseElementID, UnknownCloseElementEndOffset},
		{AttributeID, UnknownAttributeEndOffset},
		{ProcessingID, UnknownProcessingEndOffset},
		{XmlnsID, UnknownXmlnsEndOffset},
		{URIID, UnknownURIEndOffset},
	}
	for _, c := range cases {
		if got := unknownEndOffsetFor(c.name); got != c.want {
			t.Errorf("unknownEndOffsetFor(%v) = %v; want %v", c.name, got, c.want)
		}
	}
}

// =============================================================================
// WRITER CHOKEPOINT
// =============================================================================

func TestTokenWriterFlushesWhenFull(t *testing.T) {
	var flushed [][]uint32
	flusher := FlushFunc(func(buf []uint32) {
		cp := append([]uint32(nil), buf...)
		flushed = append(flushed, cp)
	})

	var w tokenWriter
	buf := make([]uint32, 3) // room for count word + 2 tokens
	w.reset(buf, flusher)

	w.writeToken(OpenElementID, 1)
	w.writeToken(CloseElementID, 2)
	if len(flushed) != 0 {
		t.Fatalf("writer flushed early: %v", flushed)
	}

	w.writeToken(AttributeID, 3)
	if len(flushed) != 1 {
		t.Fatalf("expected exactly one flush once the buffer filled, got %d", len(flushed))
	}
	if flushed[0][0] != 2 {
		t.Fatalf("flushed count word = %d; want 2", flushed[0][0])
	}
	if w.count() != 1 {
		t.Fatalf("writer should carry the triggering token into the fresh buffer, count() = %d; want 1", w.count())
	}
}

func TestTokenWriterFlushWritesCountWord(t *testing.T) {
	var flushed []uint32
	flusher := FlushFunc(func(buf []uint32) {
		flushed = append([]uint32(nil), buf...)
	})

	var w tokenWriter
	buf := make([]uint32, 8)
	w.reset(buf, flusher)
	w.writeToken(OpenElementID, 0)
	w.writeToken(ElementEmitted, 0)
	w.flush()

	if flushed[0] != 2 {
		t.Fatalf("flush count word = %d; want 2", flushed[0])
	}
	if len(flushed) != 3 {
		t.Fatalf("flushed slice length = %d; want 3 (count word + 2 tokens)", len(flushed))
	}
	if w.count() != 0 {
		t.Fatalf("count() after flush = %d; want 0", w.count())
	}
}

func TestTokenWriterNilFlusherIsSafe(t *testing.T) {
	var w tokenWriter
	buf := make([]uint32, 2)
	w.reset(buf, nil)
	w.writeToken(OpenElementID, 0)
	w.writeToken(ElementEmitted, 0) // triggers a flush with no Flusher installed
	if w.count() != 1 {
		t.Fatalf("count() after the second token forced an unflushered flush = %d; want 1", w.count())
	}
}

package cxml

// TokenKind identifies the meaning of a packed token word. There are at
// most 32 kinds (spec.md §4.2: TOKEN_SHIFT = 5).
type TokenKind uint32

const (
	OpenElementID TokenKind = iota
	CloseElementID
	AttributeID
	ProcessingID
	XmlnsID
	URIID
	NamespaceID
	PrefixID
	SgmlID

	ElementEmitted
	ClosedElementEmitted
	SgmlEmitted

	AttributeStartOffset
	AttributeEndOffset
	ValueStartOffset
	ValueEndOffset
	TextStartOffset
	TextEndOffset
	CommentStartOffset
	CommentEndOffset
	CDATAStartOffset
	CDATAEndOffset
	SgmlTextStartOffset
	SgmlTextEndOffset

	UnknownStartOffset
	UnknownOpenElementEndOffset
	UnknownCloseElementEndOffset
	UnknownAttributeEndOffset
	UnknownProcessingEndOffset
	UnknownXmlnsEndOffset
	UnknownURIEndOffset
	UnknownPrefixEndOffset

	PartialLen
	PartialElementID
	PartialAttributeID
	PartialPrefixID
	PartialURIID

	ProcessingEndType
	SgmlNestedStart
	SgmlNestedEnd
)

// TokenShift is the number of payload bits a token kind is packed under.
const TokenShift = 5

var tokenKindNames = map[TokenKind]string{
	OpenElementID:  "OPEN_ELEMENT_ID",
	CloseElementID: "CLOSE_ELEMENT_ID",
	AttributeID:    "ATTRIBUTE_ID",
	ProcessingID:   "PROCESSING_ID",
	XmlnsID:        "XMLNS_ID",
	URIID:          "URI_ID",
	NamespaceID:    "NAMESPACE_ID",
	PrefixID:       "PREFIX_ID",
	SgmlID:         "SGML_ID",

	ElementEmitted:       "ELEMENT_EMITTED",
	ClosedElementEmitted: "CLOSED_ELEMENT_EMITTED",
	SgmlEmitted:          "SGML_EMITTED",

	AttributeStartOffset: "ATTRIBUTE_START_OFFSET",
	AttributeEndOffset:   "ATTRIBUTE_END_OFFSET",
	ValueStartOffset:     "VALUE_START_OFFSET",
	ValueEndOffset:       "VALUE_END_OFFSET",
	TextStartOffset:      "TEXT_START_OFFSET",
	TextEndOffset:        "TEXT_END_OFFSET",
	CommentStartOffset:   "COMMENT_START_OFFSET",
	CommentEndOffset:     "COMMENT_END_OFFSET",
	CDATAStartOffset:     "CDATA_START_OFFSET",
	CDATAEndOffset:       "CDATA_END_OFFSET",
	SgmlTextStartOffset:  "SGML_TEXT_START_OFFSET",
	SgmlTextEndOffset:    "SGML_TEXT_END_OFFSET",

	UnknownStartOffset:           "UNKNOWN_START_OFFSET",
	UnknownOpenElementEndOffset:  "UNKNOWN_OPEN_ELEMENT_END_OFFSET",
	UnknownCloseElementEndOffset: "UNKNOWN_CLOSE_ELEMENT_END_OFFSET",
	UnknownAttributeEndOffset:    "UNKNOWN_ATTRIBUTE_END_OFFSET",
	UnknownProcessingEndOffset:   "UNKNOWN_PROCESSING_END_OFFSET",
	UnknownXmlnsEndOffset:        "UNKNOWN_XMLNS_END_OFFSET",
	UnknownURIEndOffset:          "UNKNOWN_URI_END_OFFSET",
	UnknownPrefixEndOffset:       "UNKNOWN_PREFIX_END_OFFSET",

	PartialLen:         "PARTIAL_LEN",
	PartialElementID:   "PARTIAL_ELEMENT_ID",
	PartialAttributeID: "PARTIAL_ATTRIBUTE_ID",
	PartialPrefixID:    "PARTIAL_PREFIX_ID",
	PartialURIID:       "PARTIAL_URI_ID",

	ProcessingEndType: "PROCESSING_END_TYPE",
	SgmlNestedStart:   "SGML_NESTED_START",
	SgmlNestedEnd:     "SGML_NESTED_END",
}

// String renders a TokenKind for logging and diagnostics.
func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "UNKNOWN_TOKEN_KIND"
}

// unknownEndOffsetDelta is added to a name-token kind to get the matching
// UNKNOWN_*_END_OFFSET kind, per spec.md §4.4's "arithmetic offset from the
// current name-token kind" rule. It is only ever applied to the six kinds
// it was computed from: OpenElementID, CloseElementID, AttributeID,
// ProcessingID, XmlnsID, URIID.
const unknownEndOffsetDelta = UnknownOpenElementEndOffset - OpenElementID

func unknownEndOffsetFor(nameKind TokenKind) TokenKind {
	return nameKind + unknownEndOffsetDelta
}

// packToken combines a kind and payload into one 32-bit output word.
func packToken(kind TokenKind, payload uint32) uint32 {
	return uint32(kind) | payload<<TokenShift
}

// Flusher is the single capability a Parser needs from its host to drain
// a full token buffer. It is invoked synchronously from within Parse.
// Modeled as an interface rather than a closure per spec.md §9, so hosts
// can carry state without an allocation per parse call.
type Flusher interface {
	Flush(buffer []uint32)
}

// FlushFunc adapts a plain function to Flusher.
type FlushFunc func(buffer []uint32)

// Flush implements Flusher.
func (f FlushFunc) Flush(buffer []uint32) { f(buffer) }

// tokenWriter owns the shared output buffer and the single chokepoint
// (writeToken) through which the DFA ever touches it (spec.md §4.2, §5).
type tokenWriter struct {
	buf     []uint32
	ptr     int
	flusher Flusher
	logger  Logger
}

func (w *tokenWriter) reset(buf []uint32, flusher Flusher) {
	w.buf = buf
	w.ptr = 1
	w.flusher = flusher
}

// count returns the number of token words written since the last flush.
func (w *tokenWriter) count() int { return w.ptr - 1 }

func (w *tokenWriter) flush() {
	if w.buf == nil {
		return
	}
	w.buf[0] = uint32(w.count())
	if w.flusher != nil {
		w.flusher.Flush(w.buf[:w.ptr])
	}
	if w.logger != nil {
		w.logger.Logf("cxml: flushed %d tokens", w.count())
	}
	w.ptr = 1
}

// writeToken is the sole writer of the output buffer. It checks for a full
// buffer first and flushes before writing, so the host always sees a
// bounded batch and the parser never indexes past capacity. buffer[0] is
// kept current on every write, not just on flush, so a host inspecting the
// buffer right after a Parse call (without an intervening flush) always
// sees an accurate count.
func (w *tokenWriter) writeToken(kind TokenKind, payload uint32) {
	if w.ptr >= len(w.buf) {
		w.flush()
	}
	w.buf[w.ptr] = packToken(kind, payload)
	w.ptr++
	w.buf[0] = uint32(w.count())
}

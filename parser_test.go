package cxml_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/charto/cxml"
)

// =============================================================================
// TEST UTILITIES
// =============================================================================

type tok struct {
	Kind    cxml.TokenKind
	Payload uint32
}

func decodeTokens(buf []uint32) []tok {
	count := int(buf[0])
	out := make([]tok, count)
	const mask = uint32(1)<<cxml.TokenShift - 1
	for i := 0; i < count; i++ {
		word := buf[1+i]
		out[i] = tok{Kind: cxml.TokenKind(word & mask), Payload: word >> cxml.TokenShift}
	}
	return out
}

func assertTokens(t *testing.T, got, want []tok) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %+v; want %d tokens %+v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %+v; want %+v", i, got[i], want[i])
		}
	}
}

func buildNamespace(t *testing.T, uri string, elements, attributes map[string]uint32) *cxml.Namespace {
	t.Helper()
	var et, at *cxml.Trie
	if elements != nil {
		et = buildTrie(t, elements)
	}
	if attributes != nil {
		at = buildTrie(t, attributes)
	}
	return cxml.NewNamespace(uri, et, at)
}

func mustParse(t *testing.T, p *cxml.Parser, chunk string) {
	t.Helper()
	if errType, err := p.Parse([]byte(chunk)); errType != cxml.OK || err != nil {
		t.Fatalf("Parse(%q) = %v, %v; want OK, nil", chunk, errType, err)
	}
}

// =============================================================================
// CONCRETE SCENARIO 1 — <a/> against a single-entry element trie
// =============================================================================

func TestParserSimpleSelfClosingElement(t *testing.T) {
	const (
		xmlnsToken       = uint32(900)
		emptyPrefixToken = uint32(2)
		xmlnsPrefix      = uint32(901)
		processingPrefix = uint32(902)
	)
	cfg := cxml.NewConfig(xmlnsToken, emptyPrefixToken, xmlnsPrefix, processingPrefix)
	ns := buildNamespace(t, "urn:test", map[string]uint32{"a": 7}, nil)
	idx := cfg.AddNamespace(ns)
	cfg.AddURI(1, idx)
	if !cfg.BindPrefix(emptyPrefixToken, 1) {
		t.Fatalf("BindPrefix failed during setup")
	}

	p := cxml.NewParser(cfg)
	buf := make([]uint32, 64)
	p.SetTokenBuffer(buf, nil)
	mustParse(t, p, "<a/>")

	want := []tok{
		{cxml.PrefixID, idx<<14 | emptyPrefixToken},
		{cxml.OpenElementID, 7},
		{cxml.ClosedElementEmitted, 7},
	}
	assertTokens(t, decodeTokens(buf), want)
}

// =============================================================================
// CONCRETE SCENARIO 2 — xmlns rebinding and restoration (P5)
// =============================================================================

func TestParserXmlnsRebindingAndRestoration(t *testing.T) {
	const (
		xmlnsToken       = uint32(900)
		emptyPrefixToken = uint32(2)
		xmlnsPrefix      = uint32(901)
		processingPrefix = uint32(902)
	)
	cfg := cxml.NewConfig(xmlnsToken, emptyPrefixToken, xmlnsPrefix, processingPrefix)

	ns0 := buildNamespace(t, "urn:ns0", map[string]uint32{"a": 100, "b": 200}, map[string]uint32{"xmlns": xmlnsToken})
	ns1 := buildNamespace(t, "urn:ns1", map[string]uint32{"a": 10, "b": 20}, nil)
	idx0 := cfg.AddNamespace(ns0)
	idx1 := cfg.AddNamespace(ns1)

	cfg.AddURI(4, idx0)
	cfg.AddURI(5, idx1)
	cfg.SetURITrie(buildTrie(t, map[string]uint32{"u2": 5}))
	if !cfg.BindPrefix(emptyPrefixToken, 4) {
		t.Fatalf("initial BindPrefix to ns0 failed during setup")
	}

	p := cxml.NewParser(cfg)
	buf := make([]uint32, 64)
	p.SetTokenBuffer(buf, nil)
	mustParse(t, p, `<a xmlns="u2"><b/></a>`)

	pack1 := idx0<<14 | emptyPrefixToken
	pack2 := idx1<<14 | emptyPrefixToken
	want := []tok{
		{cxml.PrefixID, pack1},
		{cxml.OpenElementID, 100},
		{cxml.AttributeStartOffset, 3},
		{cxml.ValueStartOffset, 10},
		{cxml.ValueEndOffset, 12},
		{cxml.AttributeEndOffset, 12},
		{cxml.NamespaceID, idx1},
		{cxml.ElementEmitted, 100},
		{cxml.PrefixID, pack2},
		{cxml.OpenElementID, 20},
		{cxml.ClosedElementEmitted, 20},
		{cxml.PrefixID, pack2},
		{cxml.CloseElementID, 10},
	}
	assertTokens(t, decodeTokens(buf), want)

	// P5: the default-namespace binding must be restored to ns0 once </a>
	// closes the element that shadowed it. Parse a fresh, unprefixed <a/>
	// with a new Parser sharing the same Config and confirm it resolves
	// against ns0's element trie (id 100) again, not ns1's (id 10).
	p2 := cxml.NewParser(cfg)
	buf2 := make([]uint32, 16)
	p2.SetTokenBuffer(buf2, nil)
	mustParse(t, p2, "<a/>")
	got := decodeTokens(buf2)
	if len(got) == 0 || got[len(got)-2].Kind != cxml.OpenElementID || got[len(got)-2].Payload != 100 {
		t.Fatalf("default namespace binding was not restored after </a>: tokens = %+v", got)
	}
}

// =============================================================================
// CONCRETE SCENARIO 3/4 — comment and CDATA offsets
// =============================================================================

func TestParserCommentOffsets(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	p := cxml.NewParser(cfg)
	buf := make([]uint32, 16)
	p.SetTokenBuffer(buf, nil)

	const input = "<!--hi-->"
	mustParse(t, p, input)

	start := uint32(strings.Index(input, "hi"))
	end := uint32(len(input))
	want := []tok{
		{cxml.CommentStartOffset, start},
		{cxml.CommentEndOffset, end},
	}
	assertTokens(t, decodeTokens(buf), want)
}

func TestParserCDATAOffsets(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	p := cxml.NewParser(cfg)
	buf := make([]uint32, 16)
	p.SetTokenBuffer(buf, nil)

	const input = "<![CDATA[raw]]>"
	mustParse(t, p, input)

	start := uint32(strings.Index(input, "raw"))
	end := uint32(len(input))
	want := []tok{
		{cxml.CDATAStartOffset, start},
		{cxml.CDATAEndOffset, end},
	}
	assertTokens(t, decodeTokens(buf), want)
}

// =============================================================================
// CONCRETE SCENARIO 5 — chunk split mid-name
// =============================================================================

func TestParserChunkSplitNameMatch(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	cfg.SetPrefixTrie(buildTrie(t, map[string]uint32{"abcdefgh": 42}))

	p := cxml.NewParser(cfg)
	buf := make([]uint32, 16)
	p.SetTokenBuffer(buf, nil)

	// Before the first chunk ends, the lookahead for a ':' runs off the
	// end of the chunk without a decision, so per spec.md §4.4 the cursor
	// is bound to the prefix trie on the chance the name turns out to be
	// prefixed; the in-progress match suspends there.
	if errType, err := p.Parse([]byte("<abcd")); errType != cxml.OK || err != nil {
		t.Fatalf("Parse(chunk1) = %v, %v; want OK, nil", errType, err)
	}
	if buf[0] != 0 {
		t.Fatalf("no tokens should be emitted mid-match, buf[0] = %d", buf[0])
	}

	mustParse(t, p, "efgh/>")
	want := []tok{
		{cxml.PrefixID, 0},
		{cxml.OpenElementID, 42},
		{cxml.ClosedElementEmitted, 42},
	}
	assertTokens(t, decodeTokens(buf), want)
}

// =============================================================================
// CONCRETE SCENARIO 6 — unknown name against an empty trie
// =============================================================================

func TestParserUnknownNameEmptyTrie(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	p := cxml.NewParser(cfg)
	buf := make([]uint32, 16)
	p.SetTokenBuffer(buf, nil)

	mustParse(t, p, "<xx")
	want1 := []tok{
		{cxml.PrefixID, 0},
		{cxml.UnknownStartOffset, 1},
	}
	assertTokens(t, decodeTokens(buf), want1)

	mustParse(t, p, ">")
	want2 := append(want1,
		tok{cxml.UnknownOpenElementEndOffset, 0},
		tok{cxml.ElementEmitted, 0},
	)
	assertTokens(t, decodeTokens(buf), want2)
}

// =============================================================================
// P1 — CHUNK INVARIANCE
// =============================================================================

func TestParserChunkInvariance(t *testing.T) {
	newConfig := func(t *testing.T) *cxml.Config {
		cfg := cxml.NewConfig(900, 2, 901, 902)
		ns := buildNamespace(t, "urn:test", map[string]uint32{"a": 10, "b": 20}, nil)
		idx := cfg.AddNamespace(ns)
		cfg.AddURI(1, idx)
		cfg.BindPrefix(2, 1)
		return cfg
	}

	whole := cxml.NewParser(newConfig(t))
	bufWhole := make([]uint32, 32)
	whole.SetTokenBuffer(bufWhole, nil)
	mustParse(t, whole, "<a/><b/>")

	split := cxml.NewParser(newConfig(t))
	bufSplit := make([]uint32, 32)
	split.SetTokenBuffer(bufSplit, nil)
	mustParse(t, split, "<a/>")
	mustParse(t, split, "<b/>")

	assertTokens(t, decodeTokens(bufSplit), decodeTokens(bufWhole))
}

// =============================================================================
// P3 — RANGE PAIRING
// =============================================================================

func TestParserOffsetRangePairing(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	ns := buildNamespace(t, "urn:test", map[string]uint32{"a": 10}, map[string]uint32{"k": 99})
	idx := cfg.AddNamespace(ns)
	cfg.AddURI(1, idx)
	cfg.BindPrefix(2, 1)

	p := cxml.NewParser(cfg)
	buf := make([]uint32, 32)
	p.SetTokenBuffer(buf, nil)
	mustParse(t, p, `<a k="v"/>`)

	got := decodeTokens(buf)
	if len(got) == 0 {
		t.Fatalf("expected tokens, got none")
	}

	startKinds := []cxml.TokenKind{
		cxml.AttributeStartOffset, cxml.ValueStartOffset, cxml.TextStartOffset,
		cxml.CommentStartOffset, cxml.CDATAStartOffset, cxml.SgmlTextStartOffset,
	}
	isStart := func(k cxml.TokenKind) bool {
		for _, s := range startKinds {
			if k == s {
				return true
			}
		}
		return false
	}

	found := 0
	for i, tk := range got {
		if !isStart(tk.Kind) {
			continue
		}
		found++
		wantEnd := tk.Kind + 1
		ok := false
		for j := i + 1; j < len(got); j++ {
			if got[j].Kind == wantEnd && got[j].Payload >= tk.Payload {
				ok = true
				break
			}
		}
		if !ok {
			t.Errorf("no matching end-offset kind %v at or after payload %d (start token[%d] = %+v)", wantEnd, tk.Payload, i, tk)
		}
	}
	if found == 0 {
		t.Fatalf("test produced no start-offset tokens to pair, got = %+v", got)
	}

	// The element must still close with its own id (99 is the attribute's
	// id, not the element's): this also covers the lastElementID fix.
	last := got[len(got)-1]
	if last.Kind != cxml.ClosedElementEmitted || last.Payload != 10 {
		t.Fatalf("final token = %+v; want ClosedElementEmitted(10)", last)
	}
}

// =============================================================================
// P7 — PARTIAL-NAME RECOVERY ACROSS A CHUNK BOUNDARY
// =============================================================================

func TestParserPartialNameRecoveryAcrossChunks(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	cfg.SetPrefixTrie(buildTrie(t, map[string]uint32{"abcdefgh": 1}))

	p := cxml.NewParser(cfg)
	buf := make([]uint32, 32)
	p.SetTokenBuffer(buf, nil)

	if errType, err := p.Parse([]byte("<abcd")); errType != cxml.OK || err != nil {
		t.Fatalf("Parse(chunk1) = %v, %v; want OK, nil", errType, err)
	}
	if buf[0] != 0 {
		t.Fatalf("no tokens should be emitted mid-match, buf[0] = %d", buf[0])
	}

	// 'X' cannot extend the in-progress match (the trie expects 'e'); the
	// matched prefix "abcd" now lives only in a chunk this call no longer
	// has, so recovery must go through PARTIAL_LEN / PARTIAL_PREFIX_ID /
	// UNKNOWN_START_OFFSET rather than reporting a plain offset.
	mustParse(t, p, "XYZ>")
	want := []tok{
		{cxml.PrefixID, 0},
		{cxml.PartialLen, 3},
		{cxml.PartialPrefixID, 1},
		{cxml.UnknownStartOffset, 0},
		{cxml.UnknownOpenElementEndOffset, 3},
		{cxml.ElementEmitted, 0},
	}
	assertTokens(t, decodeTokens(buf), want)
}

// =============================================================================
// CHOKEPOINT INTEGRATION — flush fires mid-parse when the buffer fills
// =============================================================================

func TestParserFlushesWhenBufferFull(t *testing.T) {
	const (
		xmlnsToken       = uint32(900)
		emptyPrefixToken = uint32(2)
	)
	cfg := cxml.NewConfig(xmlnsToken, emptyPrefixToken, 901, 902)
	ns := buildNamespace(t, "urn:test", map[string]uint32{"a": 7}, nil)
	idx := cfg.AddNamespace(ns)
	cfg.AddURI(1, idx)
	cfg.BindPrefix(emptyPrefixToken, 1)

	var flushed [][]uint32
	flusher := cxml.FlushFunc(func(b []uint32) {
		flushed = append(flushed, append([]uint32(nil), b...))
	})

	p := cxml.NewParser(cfg)
	buf := make([]uint32, 2) // room for the count word plus one token
	p.SetTokenBuffer(buf, flusher)
	mustParse(t, p, "<a/>")

	if len(flushed) != 2 {
		t.Fatalf("expected 2 flushes for 3 tokens in a 1-token buffer, got %d: %+v", len(flushed), flushed)
	}

	var all []tok
	for _, b := range flushed {
		all = append(all, decodeTokens(b)...)
	}
	all = append(all, decodeTokens(buf)...) // the still-unflushed trailing token

	want := []tok{
		{cxml.PrefixID, idx<<14 | emptyPrefixToken},
		{cxml.OpenElementID, 7},
		{cxml.ClosedElementEmitted, 7},
	}
	assertTokens(t, all, want)
}

// =============================================================================
// ERROR PATHS
// =============================================================================

func TestParserInvalidNameStartByte(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	p := cxml.NewParser(cfg)
	buf := make([]uint32, 16)
	p.SetTokenBuffer(buf, nil)

	errType, err := p.Parse([]byte("<1a/>"))
	if errType != cxml.InvalidChar || err != nil {
		t.Fatalf("Parse(<1a/>) = %v, %v; want InvalidChar, nil", errType, err)
	}

	if errType, err := p.Parse([]byte("<a/>")); err == nil || errType != cxml.OtherError {
		t.Fatalf("Parse after a terminal error = %v, %v; want OtherError, non-nil", errType, err)
	}
}

func TestParserRequiresTokenBufferAndConfig(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	p := cxml.NewParser(cfg)
	if errType, err := p.Parse([]byte("<a/>")); errType != cxml.OtherError || err == nil {
		t.Fatalf("Parse without SetTokenBuffer = %v, %v; want OtherError, non-nil", errType, err)
	}

	var zero cxml.Parser
	if errType, err := zero.Parse([]byte("<a/>")); errType != cxml.OtherError || err == nil {
		t.Fatalf("Parse on a zero Parser = %v, %v; want OtherError, non-nil", errType, err)
	}
}

func TestParserRowColTracking(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	p := cxml.NewParser(cfg)
	buf := make([]uint32, 16)
	p.SetTokenBuffer(buf, nil)

	mustParse(t, p, "ab\ncd")

	if p.Row() != 1 || p.Col() != 2 {
		t.Fatalf("Row(),Col() = %d,%d; want 1,2", p.Row(), p.Col())
	}
}

func TestParserProhibitedWhitespaceBeforeName(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	p := cxml.NewParser(cfg)
	buf := make([]uint32, 16)
	p.SetTokenBuffer(buf, nil)

	errType, err := p.Parse([]byte("< a/>"))
	if errType != cxml.ProhibitedWhitespace || err != nil {
		t.Fatalf("Parse(< a/>) = %v, %v; want ProhibitedWhitespace, nil", errType, err)
	}
}

func TestParserLoggerReceivesTerminalError(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	p := cxml.NewParser(cfg)
	buf := make([]uint32, 16)
	p.SetTokenBuffer(buf, nil)

	var messages []string
	p.Logger = cxml.LoggerFunc(func(format string, args ...interface{}) {
		messages = append(messages, fmt.Sprintf(format, args...))
	})

	if errType, err := p.Parse([]byte("<1a/>")); errType != cxml.InvalidChar || err != nil {
		t.Fatalf("Parse(<1a/>) = %v, %v; want InvalidChar, nil", errType, err)
	}
	if len(messages) == 0 {
		t.Fatalf("Logger received no messages for a terminal error")
	}
}

package cxml_test

import (
	"context"
	"strings"
	"testing"

	"github.com/charto/cxml"
)

func TestStreamDeliversAllTokens(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	ns := buildNamespace(t, "urn:test", map[string]uint32{"a": 7}, nil)
	idx := cfg.AddNamespace(ns)
	cfg.AddURI(1, idx)
	if !cfg.BindPrefix(2, 1) {
		t.Fatalf("BindPrefix failed during setup")
	}

	p := cxml.NewParser(cfg)
	s := cxml.NewStream(context.Background(), p, strings.NewReader("<a/>"), 64)

	var got []tok
	for batch := range s.Chan() {
		got = append(got, decodeTokens(batch.Tokens)...)
		batch.Release()
	}
	if err := s.Err(); err != nil {
		t.Fatalf("Stream.Err() = %v; want nil", err)
	}

	want := []tok{
		{cxml.PrefixID, idx<<14 | 2},
		{cxml.OpenElementID, 7},
		{cxml.ClosedElementEmitted, 7},
	}
	assertTokens(t, got, want)
}

func TestStreamStopsOnCancelledContext(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	p := cxml.NewParser(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := cxml.NewStream(ctx, p, strings.NewReader("<a/>"), 4096)
	for range s.Chan() {
	}
	if s.Err() == nil {
		t.Fatalf("Stream.Err() = nil after an already-cancelled context; want context.Canceled")
	}
}

func TestStreamChanIsIdempotent(t *testing.T) {
	cfg := cxml.NewConfig(900, 2, 901, 902)
	p := cxml.NewParser(cfg)
	s := cxml.NewStream(context.Background(), p, strings.NewReader(""), 4096)

	c1 := s.Chan()
	c2 := s.Chan()
	if c1 != c2 {
		t.Fatalf("Chan() returned different channels on repeated calls")
	}
	for range c1 {
	}
}

/*
Command cxmltok drives the cxml streaming tokenizer over a document from
the command line.

A vocabulary TOML file describes the reserved token ids, the namespaces
(with their element/attribute word lists), and the prefix/URI tries that
the tokenizer resolves names against. cxmltok compiles that vocabulary
into a cxml.Config with the internal/triebuild compiler, then feeds the
input file to a cxml.Parser in fixed-size chunks, logging every token
that comes out.

# Vocabulary file

	[reserved]
	xmlns_token = 1
	empty_prefix_token = 2
	xmlns_prefix_token = 3
	processing_prefix_token = 4

	[[namespace]]
	uri = "urn:example:default"
	uri_id = 100
	bind_default = true
	elements = { a = 10, b = 20 }
	attributes = { lang = 30 }

	[[namespace]]
	uri = "urn:example:other"
	uri_id = 200
	elements = { c = 40 }

	[prefix_trie]
	xmlns = 3
*/
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/charto/cxml"
	"github.com/charto/cxml/internal/logger"
	"github.com/charto/cxml/internal/triebuild"
)

const (
	Version = "0.1.0"
	AppName = "cxmltok"
)

var logg = logger.Default(AppName)

// sigHandler exits cleanly on an interrupt so a streamed tokenization of a
// large or slow input (e.g. piped from a growing file) can be cut short.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Fprintln(os.Stderr, "\ncxmltok: interrupted")
		os.Exit(130)
	}()
}

func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	vocabPath := flag.String("vocab", "", "Path to the vocabulary TOML file (required)")
	chunkSize := flag.Int("chunk", 4096, "Bytes per Parse call")
	debugMode := flag.Bool("v", false, "Toggle verbose logging")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", AppName, Version)
		os.Exit(0)
	}

	if *debugMode {
		logg.SetLevel(log.DebugLevel)
	} else {
		logg.SetLevel(log.InfoLevel)
	}

	if *vocabPath == "" {
		logg.Fatal("missing required -vocab flag")
	}

	var vocab vocabulary
	if _, err := toml.DecodeFile(*vocabPath, &vocab); err != nil {
		logg.Fatalf("failed to decode vocabulary file: %v", err)
	}

	cfg, err := vocab.buildConfig()
	if err != nil {
		logg.Fatalf("failed to compile vocabulary: %v", err)
	}

	inputPath := flag.Arg(0)
	var in io.Reader = os.Stdin
	if inputPath != "" && inputPath != "-" {
		f, err := os.Open(inputPath)
		if err != nil {
			logg.Fatalf("failed to open input: %v", err)
		}
		defer f.Close()
		in = f
	}

	if *chunkSize <= 0 {
		logg.Fatalf("-chunk must be positive, got %d", *chunkSize)
	}

	counts := map[cxml.TokenKind]int{}
	flusher := cxml.FlushFunc(func(buf []uint32) {
		logTokens(buf, counts)
	})

	p := cxml.NewParser(cfg)
	p.Logger = logger.Adapter{Logger: logg}
	tokenBuf := make([]uint32, 256)
	p.SetTokenBuffer(tokenBuf, flusher)

	chunk := make([]byte, *chunkSize)
	for {
		n, readErr := in.Read(chunk)
		if n > 0 {
			if errType, err := p.Parse(chunk[:n]); errType != cxml.OK {
				logg.Fatalf("parse error at row %d col %d: %v (%v)", p.Row(), p.Col(), errType, err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			logg.Fatalf("read error: %v", readErr)
		}
	}
	logTokens(tokenBuf, counts)

	logg.Infof("done: %d token kinds seen", len(counts))
	for kind, n := range counts {
		logg.Debugf("  %s: %d", kind, n)
	}
}

// logTokens decodes a just-flushed (or final, unflushed) buffer and logs
// each token, tallying kinds for the summary printed at the end.
func logTokens(buf []uint32, counts map[cxml.TokenKind]int) {
	count := int(buf[0])
	const mask = uint32(1)<<cxml.TokenShift - 1
	for i := 0; i < count; i++ {
		word := buf[1+i]
		kind := cxml.TokenKind(word & mask)
		payload := word >> cxml.TokenShift
		counts[kind]++
		logg.Debugf("%s payload=%d", kind, payload)
	}
}

// vocabulary is the TOML-decoded shape of a cxmltok vocabulary file.
type vocabulary struct {
	Reserved   reservedIDs       `toml:"reserved"`
	Namespaces []namespaceEntry  `toml:"namespace"`
	PrefixTrie map[string]uint32 `toml:"prefix_trie"`
}

type reservedIDs struct {
	XmlnsToken            uint32 `toml:"xmlns_token"`
	EmptyPrefixToken      uint32 `toml:"empty_prefix_token"`
	XmlnsPrefixToken      uint32 `toml:"xmlns_prefix_token"`
	ProcessingPrefixToken uint32 `toml:"processing_prefix_token"`
}

type namespaceEntry struct {
	URI         string            `toml:"uri"`
	URIID       uint32            `toml:"uri_id"`
	BindDefault bool              `toml:"bind_default"`
	Elements    map[string]uint32 `toml:"elements"`
	Attributes  map[string]uint32 `toml:"attributes"`
}

// buildConfig compiles a decoded vocabulary into a cxml.Config, building
// one trie per namespace's element/attribute word lists plus the shared
// URI and prefix tries, via internal/triebuild.
func (v *vocabulary) buildConfig() (*cxml.Config, error) {
	cfg := cxml.NewConfig(v.Reserved.XmlnsToken, v.Reserved.EmptyPrefixToken,
		v.Reserved.XmlnsPrefixToken, v.Reserved.ProcessingPrefixToken)

	uriBuilder := triebuild.NewBuilder()
	for _, ns := range v.Namespaces {
		namespace := cxml.NewNamespace(ns.URI, buildTrie(ns.Elements), buildTrie(ns.Attributes))
		idx := cfg.AddNamespace(namespace)

		if ns.URIID == 0 {
			continue
		}
		if !uriBuilder.Insert(ns.URI, ns.URIID) {
			return nil, fmt.Errorf("duplicate namespace uri %q", ns.URI)
		}
		if !cfg.AddURI(ns.URIID, idx) {
			return nil, fmt.Errorf("AddURI failed for namespace %q", ns.URI)
		}
		if ns.BindDefault && !cfg.BindPrefix(v.Reserved.EmptyPrefixToken, ns.URIID) {
			return nil, fmt.Errorf("could not bind default namespace to %q", ns.URI)
		}
	}
	cfg.SetURITrie(uriBuilder.Build())

	if len(v.PrefixTrie) > 0 {
		pb := triebuild.NewBuilder()
		for prefix, id := range v.PrefixTrie {
			pb.Insert(prefix, id)
		}
		cfg.SetPrefixTrie(pb.Build())
	}

	return cfg, nil
}

func buildTrie(words map[string]uint32) *cxml.Trie {
	if len(words) == 0 {
		return nil
	}
	b := triebuild.NewBuilder()
	for w, id := range words {
		b.Insert(w, id)
	}
	return b.Build()
}

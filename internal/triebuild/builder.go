// Package triebuild compiles a wordlist into the bit-packed Patricia trie
// wire format cxml.Trie expects. It is the host-side trie-construction
// collaborator spec.md §1 treats as out of scope for the core engine, kept
// here as a real, testable implementation so the engine can be exercised
// end to end.
//
// github.com/tchap/go-patricia/v2 is used only as a sorting and dedup
// front end: its own node layout is a byte/string-prefix trie, not the
// bit-packed format the wire trie specifies, so entries are enumerated
// from it in alphabetical order and then compiled by a from-scratch bit
// encoder (buildNode below).
package triebuild

import (
	"sort"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/charto/cxml"
)

const (
	idMask24    = 0x7fffff
	noChildFlag = 0x800000
)

// Builder accumulates (string, id) pairs and compiles them into a trie
// buffer once Build is called.
type Builder struct {
	trie *patricia.Trie
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{trie: patricia.NewTrie()}
}

// Insert records that s should resolve to id. It returns false if s was
// already inserted.
func (b *Builder) Insert(s string, id uint32) bool {
	return b.trie.Insert(patricia.Prefix(s), id)
}

type entry struct {
	key []byte
	id  uint32
}

// Build compiles every inserted string into the wire-format buffer and
// returns it wrapped as a *cxml.Trie.
func (b *Builder) Build() *cxml.Trie {
	return cxml.NewTrie(b.BuildBytes())
}

// BuildBytes compiles every inserted string into the raw wire-format
// buffer spec.md §3 defines.
func (b *Builder) BuildBytes() []byte {
	var entries []entry
	b.trie.Visit(func(prefix patricia.Prefix, item patricia.Item) error {
		entries = append(entries, entry{key: append([]byte(nil), prefix...), id: item.(uint32)})
		return nil
	})
	if len(entries) == 0 {
		return cxml.EmptyTrieBuffer()
	}
	sort.Slice(entries, func(i, j int) bool {
		return string(entries[i].key) < string(entries[j].key)
	})
	return buildNode(entries, 0)
}

func bitAt(key []byte, idx int) int {
	byteIdx := idx / 8
	bitIdx := 7 - idx%8
	return int((key[byteIdx] >> uint(bitIdx)) & 1)
}

func commonBitLen(a, b []byte, start int) int {
	limit := len(a) * 8
	if lb := len(b) * 8; lb < limit {
		limit = lb
	}
	n := 0
	for start+n < limit && bitAt(a, start+n) == bitAt(b, start+n) {
		n++
	}
	return n
}

func extractBits(key []byte, start, length int) []byte {
	out := make([]byte, (length+7)/8)
	for i := 0; i < length; i++ {
		if bitAt(key, start+i) == 1 {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

// maxNodeBits is the largest key-fragment bit length a single node's
// 1-byte length field can hold.
const maxNodeBits = 255

// buildNode compiles entries (sorted, all sharing the bits already
// consumed up to bit index start) into a wire-format node tree, splitting
// logical nodes longer than maxNodeBits into continuation nodes per
// spec.md §3.
func buildNode(entries []entry, start int) []byte {
	if len(entries) == 1 {
		e := entries[0]
		remain := len(e.key)*8 - start
		if remain > maxNodeBits {
			return splitContinuation(entries, start)
		}
		frag := extractBits(e.key, start, remain)
		return assembleLeaf(remain, frag, e.id)
	}

	first, last := entries[0], entries[len(entries)-1]
	common := commonBitLen(first.key, last.key, start)
	firstRemain := len(first.key)*8 - start

	if firstRemain <= common {
		// first's key is fully consumed before the group diverges: an
		// accepting node with exactly one child, the rest of the group.
		if firstRemain > maxNodeBits {
			return splitContinuation(entries, start)
		}
		frag := extractBits(first.key, start, firstRemain)
		node := append([]byte{byte(firstRemain)}, frag...)
		ref := first.id & idMask24
		node = append(node, byte(ref>>16), byte(ref>>8), byte(ref))
		node = append(node, buildNode(entries[1:], start+firstRemain)...)
		return node
	}

	// Branch: entries disagree on the bit right after the common run.
	length := common + 1
	if length > maxNodeBits {
		return splitContinuation(entries, start)
	}
	branchBit := start + common
	splitIdx := sort.Search(len(entries), func(i int) bool {
		return bitAt(entries[i].key, branchBit) == 1
	})
	group0, group1 := entries[:splitIdx], entries[splitIdx:]

	frag := extractBits(first.key, start, length)
	child0 := buildNode(group0, start+length)
	child1 := buildNode(group1, start+length)

	node := append([]byte{byte(length)}, frag...)
	offset := 3 + len(child0)
	node = append(node, byte(offset>>16), byte(offset>>8), byte(offset))
	node = append(node, child0...)
	node = append(node, child1...)
	return node
}

// splitContinuation emits one maxNodeBits-long intermediate node carrying
// the notFound sentinel id, with the rest of the logical node following
// as its single child.
func splitContinuation(entries []entry, start int) []byte {
	frag := extractBits(entries[0].key, start, maxNodeBits)
	node := append([]byte{byte(maxNodeBits)}, frag...)
	ref := cxml.NotFound & idMask24 // high bit clear: has one child
	node = append(node, byte(ref>>16), byte(ref>>8), byte(ref))
	node = append(node, buildNode(entries, start+maxNodeBits)...)
	return node
}

func assembleLeaf(bitLen int, frag []byte, id uint32) []byte {
	node := append([]byte{byte(bitLen)}, frag...)
	ref := (id & idMask24) | noChildFlag
	return append(node, byte(ref>>16), byte(ref>>8), byte(ref))
}

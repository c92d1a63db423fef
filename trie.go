package cxml

// Trie is a compact, serialized Patricia trie over byte strings, as
// described in spec.md §3. Its buffer is built by a host (see
// internal/triebuild for a reference builder) and is immutable once
// wrapped; Trie itself never mutates it.
//
// Buffer layout, node by node, starting at offset 0 (the root):
//
//	byte 0:        bit length L of this node's key fragment (0..255)
//	next ceil(L/8) bytes: key fragment, MSB first
//	next 3 bytes:  reference word, big-endian
//
// If this node is an accepting leaf (reached by consuming a whole number
// of bytes exactly), the reference word's top bit set means "no children",
// top bit clear means "exactly one child, the extension subtree, follows
// immediately". The low 23 bits are always the associated id in that case.
// If this node is not an accepting position (L is not a multiple of 8),
// the bit right after the first L bits is a branch bit, stored as 0 in the
// last fragment byte, and the reference word is instead a 24-bit unsigned
// offset, relative to the reference word's own first byte, to the second
// child; the first child always follows immediately after the reference
// word. L counts from the first bit of the input byte in which the node
// starts, so a node that begins right after a mid-byte branch repeats that
// byte's leading bits in its fragment.
type Trie struct {
	data []byte
}

// NotFound is the sentinel id meaning "no string with this id exists".
const NotFound uint32 = 0x7fffff

// idMask extracts the 23-bit id from a 3-byte reference word.
const idMask uint32 = 0x7fffff

// noChildrenFlag is the high bit of a reference word's first byte, set on
// accepting nodes that have no extension subtree.
const noChildrenFlag = 0x80

// NewTrie wraps a pre-built wire-format buffer. An empty buffer is treated
// as an empty trie (see EmptyTrieBuffer).
func NewTrie(buf []byte) *Trie {
	if len(buf) == 0 {
		buf = EmptyTrieBuffer()
	}
	return &Trie{data: buf}
}

// EmptyTrieBuffer returns the minimal valid wire-format buffer for a trie
// with no entries: a zero-length root node flagged as a childless leaf.
func EmptyTrieBuffer() []byte {
	return []byte{0, noChildrenFlag | 0x7f, 0xff, 0xff} // id bits: NotFound
}

// Bytes returns the underlying wire-format buffer.
func (t *Trie) Bytes() []byte { return t.data }

func readRef(buf []byte, pos int) uint32 {
	return uint32(buf[pos])<<16 | uint32(buf[pos+1])<<8 | uint32(buf[pos+2])
}

// Cursor walks a Trie one input byte at a time. A zero Cursor must be
// initialized with Init before use. A failed Advance leaves the cursor
// where it was and does not record the failure, so a later Advance resumes
// from the last matched position; Init restarts it from the root.
type Cursor struct {
	trie  *Trie
	pos   int // offset of the next unconsumed key-fragment byte
	bits  int // remaining bit length of the current node's key fragment
	found int // offset of the last accepting reference word, or -1
}

// Init starts scanning trie from its root.
func (c *Cursor) Init(trie *Trie) {
	c.trie = trie
	c.bits = int(trie.data[0])
	c.pos = 1
	c.found = -1
}

// Advance attempts to extend the currently matched prefix by one byte. It
// returns false, without moving the cursor, as soon as no inserted string
// can match.
func (c *Cursor) Advance(b byte) bool {
	buf := c.trie.data
	p := c.pos
	bits := c.bits

	for bits < 8 {
		var delta byte
		if bits != 0 {
			delta = (b ^ buf[p]) >> uint(7-bits)
			p++
		} else {
			// A zero-length remainder means this position is a
			// completed node boundary: the reference word starts here.
			if buf[p]&noChildrenFlag != 0 {
				return false
			}
		}

		if delta != 0 {
			if delta > 1 {
				return false
			}
			p += int(readRef(buf, p))
		} else {
			p += 3
		}

		bits = int(buf[p])
		p++
	}

	bits -= 8
	if b != buf[p] {
		return false
	}
	p++

	if bits == 0 {
		c.found = p
	}

	c.pos = p
	c.bits = bits
	return true
}

// Data returns the id associated with the last accepting node seen, or
// NotFound if none has been seen since Init.
func (c *Cursor) Data() uint32 {
	if c.found < 0 {
		return NotFound
	}
	return readRef(c.trie.data, c.found) & idMask
}

// FindLeaf returns the id of the lexicographically first descendant leaf
// reachable from the cursor's current (possibly mid-node) position,
// without moving the cursor. It is used to recover the spelling of a
// partially matched name that straddled a chunk boundary (spec.md §4.6).
func (c *Cursor) FindLeaf() uint32 {
	buf := c.trie.data
	p := c.pos
	bits := c.bits

	for {
		// Skip the remaining key-fragment bytes of the current position
		// to reach its reference word.
		p += (bits + 7) / 8

		for bits&7 != 0 {
			// Still mid-byte: this is an unresolved branch bit, always
			// descend into the first child to find the smallest string.
			bits = int(buf[p+3])
			p += (bits+7)/8 + 4
		}

		foundPos := p
		data := readRef(buf, foundPos) & idMask
		if data != NotFound || buf[foundPos]&noChildrenFlag != 0 {
			c.found = foundPos
			return data
		}

		bits = int(buf[p+3])
		p += 4
	}
}

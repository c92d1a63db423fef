package cxml

// uriBinding pairs a registered URI's namespace index with the namespace
// itself, as looked up via Config.uriToNamespace (spec.md §3 C3).
type uriBinding struct {
	namespaceIndex uint32
	namespace      *Namespace
}

// prefixBinding is one row of the fixed-size 256-entry prefix table. A
// zero value means "unbound": namespace is nil and namespaceIndex is 0,
// the reserved sentinel index.
type prefixBinding struct {
	namespaceIndex uint32
	namespace      *Namespace
}

// Config is the shared, immutable-after-setup catalog of namespaces,
// prefix/URI tries, and prefix bindings that one or more Parsers are built
// against (spec.md §3 C3). Only Parser.finishXmlnsValue (through BindPrefix)
// and Parser.popElementRestoringPrefixes (through setBinding) mutate
// prefixBindings afterwards, and a Config must not be shared between
// concurrently running parsers (spec.md §5).
type Config struct {
	// namespaces[0] is the reserved nil sentinel; valid indices start at 1.
	namespaces []*Namespace

	prefixTrie *Trie
	uriTrie    *Trie

	uriToNamespace map[uint32]uriBinding
	prefixBindings [256]prefixBinding

	XmlnsToken            uint32
	EmptyPrefixToken      uint32
	XmlnsPrefixToken      uint32
	ProcessingPrefixToken uint32
}

// NewConfig constructs a Config with the four reserved prefix-table slots
// the constructor must be given up front (spec.md §6): the id of the
// literal attribute name "xmlns", the id reserved for the default-namespace
// binding, the id of the prefix-trie entry "xmlns" (as in "xmlns:foo"), and
// the id reserved for processing-instruction pseudo-elements.
func NewConfig(xmlnsToken, emptyPrefixToken, xmlnsPrefixToken, processingPrefixToken uint32) *Config {
	return &Config{
		namespaces:            []*Namespace{nil},
		prefixTrie:            NewTrie(nil),
		uriTrie:               NewTrie(nil),
		uriToNamespace:        make(map[uint32]uriBinding),
		XmlnsToken:            xmlnsToken,
		EmptyPrefixToken:      emptyPrefixToken,
		XmlnsPrefixToken:      xmlnsPrefixToken,
		ProcessingPrefixToken: processingPrefixToken,
	}
}

// AddNamespace registers ns and returns its 1-based namespace index.
func (c *Config) AddNamespace(ns *Namespace) uint32 {
	c.namespaces = append(c.namespaces, ns)
	return uint32(len(c.namespaces) - 1)
}

// Namespace returns the namespace registered under idx, or nil if idx is
// out of range or the reserved sentinel 0.
func (c *Config) Namespace(idx uint32) *Namespace {
	if idx == 0 || int(idx) >= len(c.namespaces) {
		return nil
	}
	return c.namespaces[idx]
}

// SetPrefixTrie installs the trie used to recognize xmlns prefix strings.
func (c *Config) SetPrefixTrie(t *Trie) { c.prefixTrie = t }

// SetURITrie installs the trie used to recognize namespace URI strings.
func (c *Config) SetURITrie(t *Trie) { c.uriTrie = t }

// AddURI records that uriID (an id returned by the URI trie) identifies
// the namespace registered at namespaceIndex. It returns false if
// namespaceIndex does not name a registered namespace.
func (c *Config) AddURI(uriID, namespaceIndex uint32) bool {
	ns := c.Namespace(namespaceIndex)
	if ns == nil {
		return false
	}
	c.uriToNamespace[uriID] = uriBinding{namespaceIndex: namespaceIndex, namespace: ns}
	return true
}

// BindPrefix sets prefixBindings[prefixID] from the namespace registered
// for uriID. It returns false if prefixID is out of range (the 256-slot
// prefix table is full, spec.md's TOO_MANY_PREFIXES condition) or uriID is
// unregistered.
func (c *Config) BindPrefix(prefixID, uriID uint32) bool {
	if prefixID >= uint32(len(c.prefixBindings)) {
		return false
	}
	bound, ok := c.uriToNamespace[uriID]
	if !ok {
		return false
	}
	c.prefixBindings[prefixID] = prefixBinding{namespaceIndex: bound.namespaceIndex, namespace: bound.namespace}
	return true
}

// binding returns the current prefixBindings row for prefixID, or a zero
// row if out of range.
func (c *Config) binding(prefixID uint32) prefixBinding {
	if prefixID >= uint32(len(c.prefixBindings)) {
		return prefixBinding{}
	}
	return c.prefixBindings[prefixID]
}

// setBinding overwrites prefixBindings[prefixID]. Used by
// Parser.popElementRestoringPrefixes when restoring a shadowed binding.
func (c *Config) setBinding(prefixID uint32, b prefixBinding) {
	if prefixID < uint32(len(c.prefixBindings)) {
		c.prefixBindings[prefixID] = b
	}
}

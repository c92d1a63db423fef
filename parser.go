package cxml

// dfaState enumerates every state the tokenizer's DFA can suspend in
// between bytes. A handful of continuation fields on Parser (afterNameState,
// afterTextState, matchState/noMatchState/partialMatchState) parameterize
// a few of these into reusable sub-machines, per spec.md §4.3/§9.
type dfaState int

const (
	stBOM dfaState = iota
	stBeforeText
	stText

	stAfterLT
	stBeforeSGML
	stSGMLDeclaration
	stCommentStart
	stComment
	stCDATAStart
	stCDATA

	stBeforeName
	stMatchTrie
	stName
	stUnknownName

	stAfterElementName
	stSelfCloseExpectGT
	stProcessingExpectGT
	stAfterCloseElementName

	stExpectAttributeEquals
	stAttributeValueStart

	stXmlnsBeforeValue
	stXmlnsValue
	stXmlnsUnknownValue

	stMatchLiteral
	stParseError
)

// matchTargetKind selects which trie the cursor is walking and which
// identifier class a successful match produces (spec.md §3 C4).
type matchTargetKind int

const (
	targetElement matchTargetKind = iota
	targetElementNamespace
	targetAttribute
	targetAttributeNamespace
)

// tagTypeKind is the kind of tag currently open (spec.md §3 C4).
type tagTypeKind int

const (
	tagElement tagTypeKind = iota
	tagProcessing
	tagSGML
)

var bomBytes = [3]byte{0xef, 0xbb, 0xbf}
var cdataOpenBytes = []byte("CDATA[")
var cdataCloseBytes = []byte("]]>")
var commentCloseBytes = []byte("-->")
var attrEqualsQuoteBytes = []byte("=\"")

// Parser implements the chunked, namespace-aware XML tokenizer (spec.md
// C4). A zero Parser is not usable; construct one with NewParser. One
// Parser processes one document; Parse is called once per input chunk and
// must not run concurrently with itself (spec.md §5).
type Parser struct {
	config *Config
	w      tokenWriter

	state             dfaState
	afterNameState    dfaState
	afterTextState    dfaState
	matchState        dfaState
	noMatchState      dfaState
	partialMatchState dfaState

	cursor      Cursor
	matchTarget matchTargetKind
	tagType     tagTypeKind

	namePartIsAttribute bool
	nameTokenKind       TokenKind

	definingXmlnsPrefix bool
	pendingPrefixID     uint32

	elementPrefixID       uint32
	elementNamespaceIdx   uint32
	attributePrefixID     uint32
	attributeNamespaceIdx uint32

	elementStack stack[elementFrame]
	prefixStack  stack[prefixFrame]

	pos        int // bytes consumed so far in the current name/value match
	tokenStart int // offset of the current match's first byte within this chunk

	row, col uint32

	endChar byte

	pattern     []byte
	patternPos  int
	sparseMatch bool

	textStrict     bool
	inAttribute    bool
	pendingEndKind TokenKind

	lastElementID uint32

	// matchCrossedChunk is true while the in-progress trie match began in
	// an earlier Parse call, so its matched bytes are no longer readable
	// from the current chunk (spec.md §4.6).
	matchCrossedChunk bool

	sgmlNesting int

	dead    bool
	errType ErrorType

	// Logger, when set, receives one line for every flush of the token
	// buffer and one for every terminal error. Parser logs nothing else.
	Logger Logger
}

// Logger is the single optional diagnostic hook a Parser can report
// through. Implementations must be safe to call from whatever goroutine
// drives Parse; Parser itself never calls it from more than one.
type Logger interface {
	Logf(format string, args ...interface{})
}

// LoggerFunc adapts a plain function to Logger, the same way FlushFunc
// adapts one to Flusher.
type LoggerFunc func(format string, args ...interface{})

// Logf implements Logger.
func (f LoggerFunc) Logf(format string, args ...interface{}) { f(format, args...) }

// NewParser constructs a Parser bound to config. config must not be shared
// with any other concurrently running Parser.
func NewParser(config *Config) *Parser {
	return &Parser{config: config, state: stBOM}
}

// SetTokenBuffer installs the shared output buffer and flush capability
// that Parse writes through (spec.md §4.2). Must be called before the
// first Parse.
func (p *Parser) SetTokenBuffer(buf []uint32, flusher Flusher) {
	p.w.reset(buf, flusher)
}

// Row and Col return the current source position (spec.md §6).
func (p *Parser) Row() uint32 { return p.row }
func (p *Parser) Col() uint32 { return p.col }

// Parse consumes one chunk of input, writing tokens through the configured
// buffer and invoking flush as needed. It returns OK if the whole chunk
// was consumed without a terminal error. Any other ErrorType is terminal:
// the Parser must not be used again (spec.md §5, §7).
func (p *Parser) Parse(chunk []byte) (ErrorType, error) {
	if p.dead {
		return OtherError, errDeadParser
	}
	if p.config == nil {
		p.fail(OtherError)
		return OtherError, errNilConfig
	}
	if p.w.buf == nil {
		p.fail(OtherError)
		return OtherError, errNoTokenBuffer
	}
	p.w.logger = p.Logger

	// A match still in progress when a new chunk arrives means its matched
	// bytes live in a chunk we no longer have; emitPartialName needs to
	// know this to decide between the two recovery offsets of spec.md §4.6.
	p.matchCrossedChunk = p.pos > 0

	i := 0
	for i < len(chunk) {
		c := chunk[i]

		switch p.state {

		case stBOM:
			if len(chunk)-i >= 3 && chunk[i] == bomBytes[0] && chunk[i+1] == bomBytes[1] && chunk[i+2] == bomBytes[2] {
				p.consumeN(chunk, &i, 3)
			}
			p.state = stBeforeText

		case stBeforeText:
			switch {
			case whiteCharTbl[c]:
				p.consume(c, &i)
			case c == '<':
				p.consume(c, &i)
				p.state = stAfterLT
			default:
				p.beginText(TextStartOffset, TextEndOffset, '<', stAfterLT, true, i)
			}

		case stText:
			if c == p.endChar {
				p.w.writeToken(p.pendingEndKind, uint32(i))
				if p.pendingEndKind == ValueEndOffset && p.inAttribute {
					p.w.writeToken(AttributeEndOffset, uint32(i))
					p.inAttribute = false
				}
				p.consume(c, &i)
				p.state = p.afterTextState
				continue
			}
			if p.textStrict && !valueCharTbl[c] {
				p.fail(InvalidChar)
				return p.errType, nil
			}
			p.consume(c, &i)

		case stAfterLT:
			switch c {
			case '!':
				p.consume(c, &i)
				p.state = stBeforeSGML
			case '?':
				p.consume(c, &i)
				p.beginName(tagProcessing, ProcessingID, i)
			case '/':
				p.consume(c, &i)
				p.beginName(tagElement, CloseElementID, i)
			default:
				p.beginName(tagElement, OpenElementID, i)
			}

		case stBeforeSGML:
			switch c {
			case '[':
				p.consume(c, &i)
				p.tagType = tagSGML
				p.beginMatch(cdataOpenBytes, false, stCDATAStart, stParseError, stParseError)
			case '-':
				p.consume(c, &i)
				p.tagType = tagSGML
				p.beginMatch([]byte{'-'}, false, stCommentStart, stParseError, stParseError)
			default:
				p.tagType = tagSGML
				p.state = stSGMLDeclaration
			}

		case stSGMLDeclaration:
			switch {
			case c == '>':
				p.w.writeToken(SgmlEmitted, 0)
				p.consume(c, &i)
				p.state = stBeforeText
			case c == '[':
				p.w.writeToken(SgmlNestedStart, uint32(i))
				p.sgmlNesting++
				p.consume(c, &i)
			case c == ']' && p.sgmlNesting > 0:
				p.w.writeToken(SgmlNestedEnd, uint32(i))
				p.sgmlNesting--
				p.consume(c, &i)
			case c == '"' || c == '\'':
				quote := c
				p.consume(c, &i)
				p.beginText(SgmlTextStartOffset, SgmlTextEndOffset, quote, stSGMLDeclaration, false, i)
			case dtdNameChars[c] || whiteCharTbl[c]:
				p.consume(c, &i)
			default:
				p.fail(InvalidChar)
				return p.errType, nil
			}

		case stCommentStart:
			p.w.writeToken(CommentStartOffset, uint32(i))
			p.patternPos = 0
			p.state = stComment

		case stComment:
			if p.matchSuffix(c, commentCloseBytes, &i) {
				p.w.writeToken(CommentEndOffset, uint32(i))
				p.state = stBeforeText
			}

		case stCDATAStart:
			p.w.writeToken(CDATAStartOffset, uint32(i))
			p.patternPos = 0
			p.state = stCDATA

		case stCDATA:
			if p.matchSuffix(c, cdataCloseBytes, &i) {
				p.w.writeToken(CDATAEndOffset, uint32(i))
				p.state = stBeforeText
			}

		case stBeforeName:
			if !xmlNameStartChars[c] {
				if whiteCharTbl[c] {
					p.fail(ProhibitedWhitespace)
				} else {
					p.fail(InvalidChar)
				}
				return p.errType, nil
			}
			p.tokenStart = i
			p.pos = 0
			p.matchCrossedChunk = false
			if p.lookaheadHasPrefix(chunk, i) {
				if p.namePartIsAttribute {
					p.matchTarget = targetAttributeNamespace
				} else {
					p.matchTarget = targetElementNamespace
				}
				p.cursor.Init(p.config.prefixTrie)
			} else {
				b := p.defaultBinding()
				if b.namespace == nil {
					p.setCurrentPrefix(p.config.EmptyPrefixToken, 0)
					p.w.writeToken(PrefixID, p.packPrefix())
					p.state = stUnknownName
					continue
				}
				p.setCurrentPrefix(p.config.EmptyPrefixToken, b.namespaceIndex)
				if p.namePartIsAttribute {
					p.matchTarget = targetAttribute
					p.cursor.Init(b.namespace.AttributeTrie)
				} else {
					p.matchTarget = targetElement
					p.cursor.Init(b.namespace.ElementTrie)
				}
			}
			p.state = stMatchTrie

		case stMatchTrie:
			if xmlNameChars[c] || xmlNameStartChars[c] {
				if p.cursor.Advance(c) {
					p.pos++
					p.consume(c, &i)
					continue
				}
				p.emitPartialName(i)
				p.state = stUnknownName
				continue
			}
			p.state = stName

		case stName:
			if c == ':' && p.tagType != tagSGML {
				id := p.cursor.Data()
				if id == p.config.XmlnsPrefixToken && p.matchTarget == targetAttributeNamespace {
					p.consume(c, &i)
					p.beginDefineXmlnsPrefixName(i)
					continue
				}
				if id == NotFound {
					p.w.writeToken(PrefixID, p.packPrefix())
					p.state = stUnknownName
					continue
				}
				b := p.config.binding(id)
				if b.namespace == nil {
					p.w.writeToken(PrefixID, p.packPrefix())
					p.consume(c, &i)
					p.state = stUnknownName
					continue
				}
				p.setCurrentPrefix(id, b.namespaceIndex)
				p.consume(c, &i)
				p.tokenStart = i
				p.pos = 0
				p.matchCrossedChunk = false
				if p.namePartIsAttribute {
					p.matchTarget = targetAttribute
					p.cursor.Init(b.namespace.AttributeTrie)
				} else {
					p.matchTarget = targetElement
					p.cursor.Init(b.namespace.ElementTrie)
				}
				p.state = stMatchTrie
				continue
			}

			id := p.cursor.Data()
			if id == p.config.XmlnsToken && p.matchTarget == targetAttribute {
				p.pendingPrefixID = p.config.EmptyPrefixToken
				p.endChar = '"'
				p.beginMatch(attrEqualsQuoteBytes, true, stXmlnsBeforeValue, stParseError, stParseError)
				continue
			}
			if p.definingXmlnsPrefix && id != NotFound {
				p.pendingPrefixID = id
				p.definingXmlnsPrefix = false
				p.endChar = '"'
				p.beginMatch(attrEqualsQuoteBytes, true, stXmlnsBeforeValue, stParseError, stParseError)
				continue
			}
			if id == NotFound {
				p.emitPartialName(i)
				p.state = stUnknownName
				continue
			}
			if !p.updateElementStack(id) {
				return p.errType, nil
			}
			if !p.namePartIsAttribute {
				p.lastElementID = id
			}
			p.w.writeToken(PrefixID, p.packPrefix())
			p.w.writeToken(p.nameTokenKind, id)
			p.state = p.afterNameState

		case stUnknownName:
			if c == ':' && p.tagType == tagElement && !p.namePartIsAttribute {
				p.w.writeToken(UnknownPrefixEndOffset, uint32(i))
				p.w.flush()
				p.consume(c, &i)
				p.w.writeToken(UnknownStartOffset, uint32(i))
				p.tokenStart = i
				continue
			}
			if xmlNameChars[c] || xmlNameStartChars[c] {
				p.consume(c, &i)
				continue
			}
			if p.definingXmlnsPrefix {
				p.pendingPrefixID = NotFound
				p.definingXmlnsPrefix = false
				p.w.writeToken(UnknownPrefixEndOffset, uint32(i))
				p.w.flush()
				p.endChar = '"'
				p.beginMatch(attrEqualsQuoteBytes, true, stXmlnsBeforeValue, stParseError, stParseError)
				continue
			}
			p.w.writeToken(unknownEndOffsetFor(p.nameTokenKind), uint32(i))
			p.state = p.afterNameState

		case stAfterElementName:
			switch {
			case whiteCharTbl[c]:
				p.consume(c, &i)
			case c == '>':
				p.consume(c, &i)
				if p.tagType == tagProcessing {
					p.w.writeToken(ProcessingEndType, 1)
				}
				p.w.writeToken(ElementEmitted, p.lastElementID)
				p.state = stBeforeText
			case c == '/' && p.tagType != tagProcessing:
				p.consume(c, &i)
				if !p.popElementRestoringPrefixes() {
					return p.errType, nil
				}
				p.w.writeToken(ClosedElementEmitted, p.lastElementID)
				p.state = stSelfCloseExpectGT
			case c == '?' && p.tagType == tagProcessing:
				p.consume(c, &i)
				p.w.writeToken(ProcessingEndType, 0)
				p.w.writeToken(ElementEmitted, p.lastElementID)
				p.state = stProcessingExpectGT
			default:
				p.beginAttribute(i)
			}

		case stSelfCloseExpectGT, stProcessingExpectGT:
			if c != '>' {
				p.fail(OtherError)
				return p.errType, nil
			}
			p.consume(c, &i)
			p.state = stBeforeText

		case stAfterCloseElementName:
			switch {
			case whiteCharTbl[c]:
				p.consume(c, &i)
			case c == '>':
				p.consume(c, &i)
				p.state = stBeforeText
			default:
				p.fail(OtherError)
				return p.errType, nil
			}

		case stExpectAttributeEquals:
			p.endChar = '"'
			p.beginMatch(attrEqualsQuoteBytes, true, stAttributeValueStart, stParseError, stParseError)

		case stAttributeValueStart:
			p.beginText(ValueStartOffset, ValueEndOffset, p.endChar, stAfterElementName, true, i)

		case stXmlnsBeforeValue:
			p.tokenStart = i
			p.pos = 0
			p.matchCrossedChunk = false
			p.w.writeToken(ValueStartOffset, uint32(i))
			p.cursor.Init(p.config.uriTrie)
			p.matchTarget = targetElementNamespace
			p.state = stXmlnsValue

		case stXmlnsValue:
			if c == p.endChar {
				p.finishXmlnsValue(i)
				p.consume(c, &i)
				p.state = stAfterElementName
				continue
			}
			if p.cursor.Advance(c) {
				p.pos++
				p.consume(c, &i)
				continue
			}
			p.state = stXmlnsUnknownValue

		case stXmlnsUnknownValue:
			if c == p.endChar {
				p.finishXmlnsValue(i)
				p.consume(c, &i)
				p.state = stAfterElementName
				continue
			}
			p.consume(c, &i)

		case stMatchLiteral:
			p.stepMatchLiteral(c, &i)

		case stParseError:
			p.fail(OtherError)
			return p.errType, nil

		default:
			p.fail(OtherError)
			return p.errType, nil
		}
	}

	return OK, nil
}

func (p *Parser) consume(c byte, i *int) {
	updateRowCol(&p.row, &p.col, c)
	*i++
}

func (p *Parser) consumeN(chunk []byte, i *int, n int) {
	for k := 0; k < n; k++ {
		updateRowCol(&p.row, &p.col, chunk[*i])
		*i++
	}
}

func (p *Parser) fail(t ErrorType) {
	p.dead = true
	p.errType = t
	p.w.flush()
	if p.Logger != nil {
		p.Logger.Logf("cxml: parse failed at row %d col %d: %s", p.row, p.col, t)
	}
}

func (p *Parser) beginText(startKind, endKind TokenKind, endChar byte, after dfaState, strict bool, i int) {
	p.w.writeToken(startKind, uint32(i))
	p.endChar = endChar
	p.afterTextState = after
	p.pendingEndKind = endKind
	p.textStrict = strict
	p.state = stText
}

func (p *Parser) beginName(tt tagTypeKind, nameKind TokenKind, i int) {
	p.tagType = tt
	p.nameTokenKind = nameKind
	p.namePartIsAttribute = false
	switch nameKind {
	case OpenElementID:
		p.afterNameState = stAfterElementName
	case CloseElementID:
		p.afterNameState = stAfterCloseElementName
	case ProcessingID:
		p.afterNameState = stAfterElementName
	}
	p.state = stBeforeName
}

func (p *Parser) beginAttribute(i int) {
	p.namePartIsAttribute = true
	p.nameTokenKind = AttributeID
	p.afterNameState = stExpectAttributeEquals
	p.inAttribute = true
	p.w.writeToken(AttributeStartOffset, uint32(i))
	p.state = stBeforeName
}

func (p *Parser) beginDefineXmlnsPrefixName(i int) {
	p.definingXmlnsPrefix = true
	p.nameTokenKind = XmlnsID
	p.tokenStart = i
	p.pos = 0
	p.matchCrossedChunk = false
	p.cursor.Init(p.config.prefixTrie)
	p.matchTarget = targetElementNamespace
	p.state = stMatchTrie
}

func (p *Parser) beginMatch(pattern []byte, sparse bool, matchState, noMatchState, partialMatchState dfaState) {
	p.pattern = pattern
	p.patternPos = 0
	p.sparseMatch = sparse
	p.matchState = matchState
	p.noMatchState = noMatchState
	p.partialMatchState = partialMatchState
	p.state = stMatchLiteral
}

// stepMatchLiteral advances the generic literal matcher by the byte at *i.
// The Quote refinement (spec.md §4.4) lets a pattern byte of '"' also be
// satisfied by '\'', adopting '\'' as the value's text-end-char.
func (p *Parser) stepMatchLiteral(c byte, i *int) {
	if p.sparseMatch && whiteCharTbl[c] {
		p.consume(c, i)
		return
	}
	want := p.pattern[p.patternPos]
	matchesQuote := want == '"' && c == '\''
	if c == want || matchesQuote {
		if matchesQuote {
			p.endChar = '\''
		}
		p.consume(c, i)
		p.patternPos++
		if p.patternPos == len(p.pattern) {
			p.state = p.matchState
		}
		return
	}
	if p.patternPos == 0 {
		p.state = p.noMatchState
		return
	}
	p.state = p.partialMatchState
}

// matchSuffix advances a simple rolling suffix match (used for "-->" and
// "]]>") and consumes c. It returns true once pattern has just been fully
// matched.
func (p *Parser) matchSuffix(c byte, pattern []byte, i *int) bool {
	if c == pattern[p.patternPos] {
		p.patternPos++
	} else if p.patternPos == 2 && c == pattern[0] && c == pattern[1] {
		// "]]]" or "---" still ends in the first two pattern bytes.
	} else if c == pattern[0] {
		p.patternPos = 1
	} else {
		p.patternPos = 0
	}
	p.consume(c, i)
	return p.patternPos == len(pattern)
}

// lookaheadHasPrefix scans forward from i within chunk to decide whether
// the name beginning at i is, or might turn out to be, namespace-prefixed
// (spec.md §4.4).
func (p *Parser) lookaheadHasPrefix(chunk []byte, i int) bool {
	j := i
	for j < len(chunk) {
		b := chunk[j]
		if b == ':' {
			return true
		}
		if !xmlNameStartChars[b] && !xmlNameChars[b] {
			return false
		}
		j++
	}
	return true
}

// defaultBinding resolves the namespace binding an unprefixed name uses.
// Elements use the document default namespace slot; unprefixed attributes
// are scoped to the enclosing element's own namespace rather than the
// document default, per XML namespace semantics (see DESIGN.md).
func (p *Parser) defaultBinding() prefixBinding {
	if p.namePartIsAttribute {
		idx := p.elementNamespaceIdx
		return prefixBinding{namespaceIndex: idx, namespace: p.config.Namespace(idx)}
	}
	return p.config.binding(p.config.EmptyPrefixToken)
}

func (p *Parser) packPrefix() uint32 {
	prefixID, nsIdx := p.elementPrefixID, p.elementNamespaceIdx
	if p.namePartIsAttribute {
		prefixID, nsIdx = p.attributePrefixID, p.attributeNamespaceIdx
	}
	return nsIdx<<14 | prefixID
}

func (p *Parser) setCurrentPrefix(prefixID, nsIdx uint32) {
	if p.namePartIsAttribute {
		p.attributePrefixID, p.attributeNamespaceIdx = prefixID, nsIdx
	} else {
		p.elementPrefixID, p.elementNamespaceIdx = prefixID, nsIdx
	}
}

// emitPartialName implements the chunk-boundary recovery policy described
// in spec.md §4.6. It always starts by reporting the prefix pair in effect
// for this name attempt, matching the other entry points into Unknown-Name
// (spec.md §4.4's Name/Before-Name branches, which write PREFIX_ID before
// falling through here). When the failed match crossed a chunk boundary,
// its matched bytes are gone; the spelling is recovered instead via
// FindLeaf and the unknown run is reported starting at the current byte.
// Otherwise the whole attempt is still visible in this chunk and the
// unknown run starts where the name itself started.
func (p *Parser) emitPartialName(i int) {
	p.w.writeToken(PrefixID, p.packPrefix())
	if p.matchCrossedChunk && p.pos > 1 {
		p.w.writeToken(PartialLen, uint32(p.pos-1))
		p.w.writeToken(p.partialCategory(), p.cursor.FindLeaf())
		p.w.writeToken(UnknownStartOffset, uint32(i))
	} else {
		p.w.writeToken(UnknownStartOffset, uint32(p.tokenStart))
	}
}

func (p *Parser) partialCategory() TokenKind {
	switch p.matchTarget {
	case targetElement:
		return PartialElementID
	case targetAttribute:
		return PartialAttributeID
	case targetElementNamespace, targetAttributeNamespace:
		return PartialPrefixID
	default:
		return PartialURIID
	}
}

// finishXmlnsValue completes an xmlns/xmlns:prefix attribute value: it
// emits the URI/NAMESPACE token, then binds the pending prefix, pushing
// the shadowed prior binding onto the prefix stack for later restoration
// (spec.md §4.4, §4.5).
func (p *Parser) finishXmlnsValue(i int) {
	p.w.writeToken(ValueEndOffset, uint32(i))
	if p.inAttribute {
		p.w.writeToken(AttributeEndOffset, uint32(i))
		p.inAttribute = false
	}

	uriID := p.cursor.Data()
	if uriID == NotFound {
		p.w.flush()
		return
	}
	bound, ok := p.config.uriToNamespace[uriID]
	if ok {
		p.w.writeToken(NamespaceID, bound.namespaceIndex)
	} else {
		p.w.writeToken(URIID, uriID)
	}

	if p.pendingPrefixID == NotFound {
		return
	}
	prev := p.config.binding(p.pendingPrefixID)
	p.prefixStack.push(prefixFrame{prefixID: p.pendingPrefixID, previousNamespaceIndex: prev.namespaceIndex})
	if !p.config.BindPrefix(p.pendingPrefixID, uriID) {
		p.fail(TooManyPrefixes)
		return
	}
	if p.pendingPrefixID == p.config.EmptyPrefixToken {
		p.elementNamespaceIdx = p.config.binding(p.pendingPrefixID).namespaceIndex
	}
}

// updateElementStack pushes the element stack when a name finishes
// matching as an opening element, or pops and restores shadowed prefix
// bindings when it finishes matching as a closing element (spec.md §4.5).
// It returns false (after calling fail) if a close tag arrives with an
// empty element stack.
func (p *Parser) updateElementStack(id uint32) bool {
	switch p.nameTokenKind {
	case OpenElementID:
		p.elementStack.push(elementFrame{prefixStackOffset: p.prefixStack.len()})
		return true
	case CloseElementID:
		return p.popElementRestoringPrefixes()
	}
	return true
}

func (p *Parser) popElementRestoringPrefixes() bool {
	frame, ok := p.elementStack.pop()
	if !ok {
		p.fail(OtherError)
		return false
	}
	for p.prefixStack.len() > frame.prefixStackOffset {
		entry, _ := p.prefixStack.pop()
		idx := entry.previousNamespaceIndex
		p.config.setBinding(entry.prefixID, prefixBinding{namespaceIndex: idx, namespace: p.config.Namespace(idx)})
	}
	return true
}

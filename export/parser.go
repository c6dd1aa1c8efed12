package export

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/c360studio/semsync/rdf"
)

// SyntaxError reports malformed Turtle or TriG input.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// ParseOption configures Parse.
type ParseOption func(*parser)

// WithBase sets the IRI that relative references resolve against.
func WithBase(base string) ParseOption {
	return func(p *parser) { p.base = base }
}

// WithGraph places triples outside any graph block into g instead of the
// default graph.
func WithGraph(g rdf.Term) ParseOption {
	return func(p *parser) {
		if g.IsIRI() {
			p.defaultGraph = g
		}
	}
}

// WithScopedBlankNodes rewrites every blank node label with a prefix unique
// to this parse, so labels from separate documents never collide.
func WithScopedBlankNodes() ParseOption {
	return func(p *parser) {
		p.scope = "s" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12] + "_"
	}
}

// Parse reads Turtle or TriG (N-Triples is accepted as a subset) and returns
// the quads it describes. Blank node labels are kept as written unless
// WithScopedBlankNodes is given.
func Parse(src string, opts ...ParseOption) ([]rdf.Quad, error) {
	p := &parser{
		src:          src,
		prefixes:     make(map[string]string),
		defaultGraph: rdf.DefaultGraph,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.graph = p.defaultGraph

	if err := p.document(); err != nil {
		return nil, err
	}
	return p.out, nil
}

// ParseReader is Parse over the full contents of r.
func ParseReader(r io.Reader, opts ...ParseOption) ([]rdf.Quad, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(string(data), opts...)
}

type parser struct {
	src      string
	pos      int
	base     string
	prefixes map[string]string
	scope    string

	defaultGraph rdf.Term
	graph        rdf.Term
	out          []rdf.Quad
}

func (p *parser) document() error {
	for {
		p.skipSpace()
		if p.eof() {
			return nil
		}
		if err := p.statement(); err != nil {
			return err
		}
	}
}

func (p *parser) statement() error {
	switch {
	case strings.HasPrefix(p.src[p.pos:], "@prefix"):
		p.pos += len("@prefix")
		return p.prefixDecl(true)
	case strings.HasPrefix(p.src[p.pos:], "@base"):
		p.pos += len("@base")
		return p.baseDecl(true)
	case p.keyword("PREFIX"):
		return p.prefixDecl(false)
	case p.keyword("BASE"):
		return p.baseDecl(false)
	case p.keyword("GRAPH"):
		p.skipSpace()
		g, err := p.subject()
		if err != nil {
			return err
		}
		p.skipSpace()
		return p.graphBlock(g)
	case p.peek() == '{':
		return p.graphBlock(p.defaultGraph)
	}
	return p.triples(true)
}

func (p *parser) prefixDecl(dotted bool) error {
	p.skipSpace()
	start := p.pos
	for isNameChar(rune(p.peek())) || p.peek() == '.' {
		p.pos++
	}
	if p.peek() != ':' {
		return p.errorf("expected prefix name followed by ':'")
	}
	name := p.src[start:p.pos]
	p.pos++

	p.skipSpace()
	if p.peek() != '<' {
		return p.errorf("expected IRI for prefix %q", name)
	}
	ns, err := p.iriRef()
	if err != nil {
		return err
	}
	p.prefixes[name] = ns
	return p.endDirective(dotted)
}

func (p *parser) baseDecl(dotted bool) error {
	p.skipSpace()
	if p.peek() != '<' {
		return p.errorf("expected IRI after base")
	}
	base, err := p.iriRef()
	if err != nil {
		return err
	}
	p.base = base
	return p.endDirective(dotted)
}

func (p *parser) endDirective(dotted bool) error {
	if !dotted {
		return nil
	}
	p.skipSpace()
	return p.expect('.')
}

// triples parses one subject with its predicate-object list. At the top
// level a subject followed by '{' opens a named graph block instead.
func (p *parser) triples(topLevel bool) error {
	if p.peek() == '[' {
		subj, err := p.blankNodePropertyList()
		if err != nil {
			return err
		}
		p.skipSpace()
		switch p.peek() {
		case '.', '}':
		default:
			if err := p.predicateObjectList(subj); err != nil {
				return err
			}
		}
	} else {
		subj, err := p.subject()
		if err != nil {
			return err
		}
		p.skipSpace()
		if topLevel && p.peek() == '{' {
			return p.graphBlock(subj)
		}
		if err := p.predicateObjectList(subj); err != nil {
			return err
		}
	}

	if topLevel {
		p.skipSpace()
		return p.expect('.')
	}
	return nil
}

func (p *parser) graphBlock(g rdf.Term) error {
	if !g.IsIRI() && !g.IsDefaultGraph() {
		return p.errorf("graph name must be an IRI, got %s", g.Kind())
	}
	if err := p.expect('{'); err != nil {
		return err
	}

	prev := p.graph
	p.graph = g
	defer func() { p.graph = prev }()

	for {
		p.skipSpace()
		switch {
		case p.eof():
			return p.errorf("unterminated graph block")
		case p.peek() == '}':
			p.pos++
			return nil
		}
		if err := p.triples(false); err != nil {
			return err
		}
		p.skipSpace()
		switch p.peek() {
		case '.':
			p.pos++
		case '}':
		default:
			return p.errorf("expected '.' or '}' in graph block")
		}
	}
}

func (p *parser) predicateObjectList(subj rdf.Term) error {
	for {
		p.skipSpace()
		pred, err := p.verb()
		if err != nil {
			return err
		}
		if err := p.objectList(subj, pred); err != nil {
			return err
		}

		p.skipSpace()
		if p.peek() != ';' {
			return nil
		}
		for p.peek() == ';' {
			p.pos++
			p.skipSpace()
		}
		switch p.peek() {
		case '.', ']', '}', 0:
			return nil
		}
	}
}

func (p *parser) objectList(subj, pred rdf.Term) error {
	for {
		p.skipSpace()
		obj, err := p.object()
		if err != nil {
			return err
		}
		p.emit(subj, pred, obj)

		p.skipSpace()
		if p.peek() != ',' {
			return nil
		}
		p.pos++
	}
}

func (p *parser) verb() (rdf.Term, error) {
	if w := p.word(); w == "a" && p.at(p.pos+1) != ':' {
		p.pos++
		return rdf.RDFType, nil
	}
	switch p.peek() {
	case '<':
		iri, err := p.iriRef()
		return rdf.IRI(iri), err
	default:
		iri, err := p.prefixedName()
		return rdf.IRI(iri), err
	}
}

func (p *parser) subject() (rdf.Term, error) {
	switch {
	case p.peek() == '<':
		iri, err := p.iriRef()
		return rdf.IRI(iri), err
	case strings.HasPrefix(p.src[p.pos:], "_:"):
		return p.blankNodeLabel()
	case p.peek() == '(':
		return p.collection()
	case p.peek() == '[':
		return p.blankNodePropertyList()
	default:
		iri, err := p.prefixedName()
		return rdf.IRI(iri), err
	}
}

func (p *parser) object() (rdf.Term, error) {
	c := p.peek()
	switch {
	case c == '"' || c == '\'':
		return p.literal()
	case c == '+' || c == '-' || isDigit(c) || (c == '.' && isDigit(p.at(p.pos+1))):
		return p.numeric()
	case c == '<', c == '(', c == '[', strings.HasPrefix(p.src[p.pos:], "_:"):
		return p.subject()
	}

	if w := p.word(); (w == "true" || w == "false") && p.at(p.pos+len(w)) != ':' {
		p.pos += len(w)
		return rdf.TypedLiteral(w, rdf.XSDBoolean), nil
	}
	if p.eof() {
		return rdf.Term{}, p.errorf("unexpected end of input, expected object")
	}
	iri, err := p.prefixedName()
	return rdf.IRI(iri), err
}

func (p *parser) literal() (rdf.Term, error) {
	value, err := p.stringLiteral()
	if err != nil {
		return rdf.Term{}, err
	}

	switch {
	case p.peek() == '@':
		p.pos++
		start := p.pos
		for !p.eof() && (isAlpha(p.peek()) || isDigit(p.peek()) || p.peek() == '-') {
			p.pos++
		}
		if p.pos == start {
			return rdf.Term{}, p.errorf("empty language tag")
		}
		if tag := p.src[start:p.pos]; !rdf.ValidLangTag(tag) {
			return rdf.Term{}, p.errorf("invalid language tag %q", tag)
		}
		return rdf.LangLiteral(value, p.src[start:p.pos]), nil
	case strings.HasPrefix(p.src[p.pos:], "^^"):
		p.pos += 2
		var dt string
		if p.peek() == '<' {
			dt, err = p.iriRef()
		} else {
			dt, err = p.prefixedName()
		}
		if err != nil {
			return rdf.Term{}, err
		}
		return rdf.TypedLiteral(value, dt), nil
	}
	return rdf.Literal(value), nil
}

func (p *parser) stringLiteral() (string, error) {
	quote := p.src[p.pos : p.pos+1]
	long := strings.HasPrefix(p.src[p.pos:], strings.Repeat(quote, 3))
	if long {
		p.pos += 3
	} else {
		p.pos++
	}

	var sb strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}
		c := p.peek()
		switch {
		case long && strings.HasPrefix(p.src[p.pos:], strings.Repeat(quote, 3)):
			p.pos += 3
			return sb.String(), nil
		case !long && c == quote[0]:
			p.pos++
			return sb.String(), nil
		case !long && (c == '\n' || c == '\r'):
			return "", p.errorf("newline in string")
		case c == '\\':
			r, err := p.escape()
			if err != nil {
				return "", err
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

// escape decodes a string or numeric escape sequence at the cursor.
func (p *parser) escape() (rune, error) {
	if p.pos+1 >= len(p.src) {
		return 0, p.errorf("truncated escape")
	}
	c := p.src[p.pos+1]
	p.pos += 2
	switch c {
	case 't':
		return '\t', nil
	case 'b':
		return '\b', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 'f':
		return '\f', nil
	case '"', '\'', '\\':
		return rune(c), nil
	case 'u':
		return p.hex(4)
	case 'U':
		return p.hex(8)
	}
	return 0, p.errorf("invalid escape \\%c", c)
}

func (p *parser) hex(n int) (rune, error) {
	if p.pos+n > len(p.src) {
		return 0, p.errorf("truncated unicode escape")
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+n], 16, 32)
	if err != nil || !utf8.ValidRune(rune(v)) {
		return 0, p.errorf("invalid unicode escape %q", p.src[p.pos:p.pos+n])
	}
	p.pos += n
	return rune(v), nil
}

func (p *parser) numeric() (rdf.Term, error) {
	start := p.pos
	if c := p.peek(); c == '+' || c == '-' {
		p.pos++
	}
	digits := p.digits()
	datatype := rdf.XSDInteger

	if p.peek() == '.' && isDigit(p.at(p.pos+1)) {
		p.pos++
		digits += p.digits()
		datatype = rdf.XSDDecimal
	}
	if c := p.peek(); c == 'e' || c == 'E' {
		save := p.pos
		p.pos++
		if c := p.peek(); c == '+' || c == '-' {
			p.pos++
		}
		if p.digits() == 0 {
			p.pos = save
		} else {
			datatype = rdf.XSDDouble
		}
	}
	if digits == 0 {
		return rdf.Term{}, p.errorf("malformed number")
	}
	return rdf.TypedLiteral(p.src[start:p.pos], datatype), nil
}

func (p *parser) digits() int {
	n := 0
	for isDigit(p.peek()) {
		p.pos++
		n++
	}
	return n
}

func (p *parser) iriRef() (string, error) {
	p.pos++
	var sb strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated IRI")
		}
		c := p.peek()
		switch c {
		case '>':
			p.pos++
			return p.resolve(sb.String()), nil
		case '\\':
			if n := p.at(p.pos + 1); n != 'u' && n != 'U' {
				return "", p.errorf("invalid escape in IRI")
			}
			r, err := p.escape()
			if err != nil {
				return "", err
			}
			sb.WriteRune(r)
		case ' ', '\t', '\n', '\r', '<', '"', '{', '}', '|', '^', '`':
			return "", p.errorf("invalid character %q in IRI", c)
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) resolve(ref string) string {
	if p.base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(p.base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func (p *parser) prefixedName() (string, error) {
	start := p.pos
	for !p.eof() && (isNameChar(rune(p.peek())) || p.peek() == '.') {
		p.pos++
	}
	if p.peek() != ':' {
		p.pos = start
		if p.eof() {
			return "", p.errorf("unexpected end of input")
		}
		r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
		return "", p.errorf("unexpected %q", r)
	}
	prefix := p.src[start:p.pos]
	ns, ok := p.prefixes[prefix]
	if !ok {
		return "", p.errorf("undefined prefix %q", prefix)
	}
	p.pos++
	return ns + p.localName(), nil
}

// localName reads a local name, decoding backslash escapes. A trailing
// unescaped '.' ends the statement and is left unread.
func (p *parser) localName() string {
	var sb strings.Builder
	dots := 0
	for !p.eof() {
		c := p.peek()
		if c == '\\' && p.pos+1 < len(p.src) && strings.IndexByte("_~.-!$&'()*+,;=/?#@%", p.src[p.pos+1]) >= 0 {
			sb.WriteByte(p.src[p.pos+1])
			p.pos += 2
			dots = 0
			continue
		}
		if !(isNameChar(rune(c)) || c == '.' || c == ':' || c == '%' || c >= utf8.RuneSelf) {
			break
		}
		sb.WriteByte(c)
		p.pos++
		if c == '.' {
			dots++
		} else {
			dots = 0
		}
	}
	p.pos -= dots
	s := sb.String()
	return s[:len(s)-dots]
}

func (p *parser) blankNodeLabel() (rdf.Term, error) {
	p.pos += 2
	start := p.pos
	for !p.eof() && (isNameChar(rune(p.peek())) || p.peek() == '.') {
		p.pos++
	}
	for p.pos > start && p.src[p.pos-1] == '.' {
		p.pos--
	}
	if p.pos == start {
		return rdf.Term{}, p.errorf("empty blank node label")
	}
	return rdf.BlankNode(p.scope + p.src[start:p.pos]), nil
}

func (p *parser) blankNodePropertyList() (rdf.Term, error) {
	p.pos++
	node := rdf.NewBlankNode()
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return node, nil
	}
	if err := p.predicateObjectList(node); err != nil {
		return rdf.Term{}, err
	}
	p.skipSpace()
	if err := p.expect(']'); err != nil {
		return rdf.Term{}, err
	}
	return node, nil
}

func (p *parser) collection() (rdf.Term, error) {
	p.pos++
	var items []rdf.Term
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			break
		}
		if p.eof() {
			return rdf.Term{}, p.errorf("unterminated collection")
		}
		item, err := p.object()
		if err != nil {
			return rdf.Term{}, err
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return rdf.RDFNil, nil
	}
	head := rdf.NewBlankNode()
	node := head
	for i, item := range items {
		p.emit(node, rdf.RDFFirst, item)
		if i == len(items)-1 {
			p.emit(node, rdf.RDFRest, rdf.RDFNil)
			break
		}
		next := rdf.NewBlankNode()
		p.emit(node, rdf.RDFRest, next)
		node = next
	}
	return head, nil
}

func (p *parser) emit(s, pred, o rdf.Term) {
	p.out = append(p.out, rdf.NewQuad(s, pred, o, p.graph))
}

// keyword consumes a case-insensitive SPARQL-style keyword.
func (p *parser) keyword(kw string) bool {
	end := p.pos + len(kw)
	if end > len(p.src) || !strings.EqualFold(p.src[p.pos:end], kw) {
		return false
	}
	if c := p.at(end); c == ':' || isNameChar(rune(c)) {
		return false
	}
	p.pos = end
	return true
}

// word returns the run of name characters at the cursor without consuming it.
func (p *parser) word() string {
	end := p.pos
	for end < len(p.src) && isNameChar(rune(p.src[end])) {
		end++
	}
	return p.src[p.pos:end]
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r':
			p.pos++
		case '#':
			for !p.eof() && p.peek() != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		if p.eof() {
			return p.errorf("expected %q, got end of input", c)
		}
		return p.errorf("expected %q, got %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.at(p.pos) }

func (p *parser) at(i int) byte {
	if i >= len(p.src) {
		return 0
	}
	return p.src[i]
}

func (p *parser) errorf(format string, args ...any) error {
	line, col := 1, 1
	for _, r := range p.src[:min(p.pos, len(p.src))] {
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return &SyntaxError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// Package rdf defines the term and quad model stored by the graph package.
package rdf

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TermKind tags the variant held by a Term.
type TermKind uint8

const (
	// KindAny is the zero value. In a pattern it matches every term.
	KindAny TermKind = iota
	// KindIRI is an absolute IRI.
	KindIRI
	// KindLiteral is a lexical value with an optional datatype or language tag.
	KindLiteral
	// KindBlankNode is a locally scoped anonymous node.
	KindBlankNode
	// KindDefaultGraph marks the graph position of quads in the default graph.
	KindDefaultGraph
)

func (k TermKind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindIRI:
		return "iri"
	case KindLiteral:
		return "literal"
	case KindBlankNode:
		return "bnode"
	case KindDefaultGraph:
		return "default-graph"
	default:
		return fmt.Sprintf("TermKind(%d)", uint8(k))
	}
}

// Term is an immutable RDF term. Terms are comparable with ==, which is
// structural equality, so they can be used directly as map keys.
type Term struct {
	kind     TermKind
	value    string
	datatype string
	lang     string
}

// Any is the wildcard term used in Match patterns.
var Any = Term{}

// DefaultGraph denotes the default (unnamed) graph.
var DefaultGraph = Term{kind: KindDefaultGraph}

// IRI returns an IRI term. It does not validate; use ValidIRI for that.
func IRI(value string) Term {
	return Term{kind: KindIRI, value: value}
}

// Literal returns a plain literal.
func Literal(value string) Term {
	return Term{kind: KindLiteral, value: value}
}

// TypedLiteral returns a literal with a datatype IRI.
func TypedLiteral(value, datatype string) Term {
	return Term{kind: KindLiteral, value: value, datatype: datatype}
}

// LangLiteral returns a language-tagged literal. Tags are compared lower-cased.
func LangLiteral(value, lang string) Term {
	return Term{kind: KindLiteral, value: value, lang: strings.ToLower(lang)}
}

// BlankNode returns a blank node with the given label (without the "_:" prefix).
func BlankNode(label string) Term {
	return Term{kind: KindBlankNode, value: label}
}

// NewBlankNode returns a blank node with a fresh random label.
func NewBlankNode() Term {
	return BlankNode("b" + strings.ReplaceAll(uuid.New().String(), "-", ""))
}

// Kind returns the variant tag.
func (t Term) Kind() TermKind { return t.kind }

// Value returns the IRI string, literal lexical form or blank node label.
func (t Term) Value() string { return t.value }

// Datatype returns the literal datatype IRI, or "" for plain and language-tagged literals.
func (t Term) Datatype() string { return t.datatype }

// Lang returns the literal language tag, or "".
func (t Term) Lang() string { return t.lang }

// IsAny reports whether t is the wildcard.
func (t Term) IsAny() bool { return t.kind == KindAny }

// IsIRI reports whether t is an IRI.
func (t Term) IsIRI() bool { return t.kind == KindIRI }

// IsLiteral reports whether t is a literal.
func (t Term) IsLiteral() bool { return t.kind == KindLiteral }

// IsBlankNode reports whether t is a blank node.
func (t Term) IsBlankNode() bool { return t.kind == KindBlankNode }

// IsDefaultGraph reports whether t is the default graph marker.
func (t Term) IsDefaultGraph() bool { return t.kind == KindDefaultGraph }

// String renders t in N-Triples syntax.
func (t Term) String() string {
	switch t.kind {
	case KindIRI:
		return "<" + EscapeIRI(t.value) + ">"
	case KindBlankNode:
		return "_:" + t.value
	case KindLiteral:
		s := `"` + EscapeString(t.value) + `"`
		if t.lang != "" {
			return s + "@" + t.lang
		}
		if t.datatype != "" {
			return s + "^^<" + EscapeIRI(t.datatype) + ">"
		}
		return s
	case KindDefaultGraph:
		return ""
	default:
		return "*"
	}
}

// Validate checks that t can be written as Turtle and read back unchanged:
// text must be valid UTF-8, blank node labels must be name characters and
// language tags must have the shape en or en-GB.
func (t Term) Validate() error {
	switch t.kind {
	case KindIRI:
		if !utf8.ValidString(t.value) {
			return fmt.Errorf("iri %q is not valid UTF-8", t.value)
		}
	case KindBlankNode:
		if !ValidBlankLabel(t.value) {
			return fmt.Errorf("blank node label %q must be letters, digits, '_', '-' or inner '.'", t.value)
		}
	case KindLiteral:
		if !utf8.ValidString(t.value) {
			return fmt.Errorf("literal %q is not valid UTF-8", t.value)
		}
		if t.lang != "" && !ValidLangTag(t.lang) {
			return fmt.Errorf("language tag %q must look like en or en-gb", t.lang)
		}
		if !utf8.ValidString(t.datatype) {
			return fmt.Errorf("datatype %q is not valid UTF-8", t.datatype)
		}
	}
	return nil
}

// ValidBlankLabel reports whether label is a non-empty run of ASCII letters,
// digits, '_', '-' and '.', not ending in '.'.
func ValidBlankLabel(label string) bool {
	if label == "" || label[len(label)-1] == '.' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if !isAlnum(c) && c != '_' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

// ValidLangTag reports whether tag matches [A-Za-z]+(-[A-Za-z0-9]+)*.
func ValidLangTag(tag string) bool {
	for i, part := range strings.Split(tag, "-") {
		if part == "" {
			return false
		}
		for j := 0; j < len(part); j++ {
			c := part[j]
			if i == 0 && !isLetter(c) || !isAlnum(c) {
				return false
			}
		}
	}
	return true
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9')
}

// ValidIRI reports whether s is an absolute IRI (it has a scheme).
func ValidIRI(s string) bool {
	if s == "" || strings.ContainsAny(s, " <>\"{}|\\^`\n\r\t") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != ""
}

// EscapeString escapes a literal lexical form for Turtle and N-Triples output.
func EscapeString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&sb, `\u%04X`, r)
				continue
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// EscapeIRI escapes characters that may not appear between angle brackets.
func EscapeIRI(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r <= 0x20 || strings.ContainsRune(`<>"{}|^`+"`\\", r) {
			if r > 0xFFFF {
				fmt.Fprintf(&sb, `\U%08X`, r)
			} else {
				fmt.Fprintf(&sb, `\u%04X`, r)
			}
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

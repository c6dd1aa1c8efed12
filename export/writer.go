// Package export serializes quads to Turtle, TriG, N-Triples and N-Quads and
// parses Turtle and TriG back into quads.
//
// Output is deterministic: prefixes, subjects, predicates and objects are
// sorted, rdf:type is written first as "a", and only prefixes that are
// actually used are declared.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/c360studio/semsync/rdf"
)

// Writer serializes quads with a configurable prefix table.
type Writer struct {
	prefixes map[string]string
}

// NewWriter creates a writer with the default prefixes.
func NewWriter() *Writer {
	return &Writer{prefixes: rdf.DefaultPrefixes()}
}

// SetPrefix sets a namespace prefix.
func (w *Writer) SetPrefix(prefix, ns string) {
	w.prefixes[prefix] = ns
}

// Serialize writes quads in format with the default prefixes.
func Serialize(quads []rdf.Quad, format Format) (string, error) {
	var sb strings.Builder
	if err := NewWriter().Write(&sb, format, quads); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write serializes quads to out.
func (w *Writer) Write(out io.Writer, format Format, quads []rdf.Quad) error {
	var text string
	switch format {
	case FormatTurtle:
		text = w.turtle(flatten(quads))
	case FormatTriG:
		text = w.trig(quads)
	case FormatNTriples:
		text = lines(flatten(quads), func(q rdf.Quad) string {
			return fmt.Sprintf("%s %s %s .", q.Subject, q.Predicate, q.Object)
		})
	case FormatNQuads:
		text = lines(quads, rdf.Quad.String)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	_, err := io.WriteString(out, text)
	return err
}

// flatten moves every quad into the default graph, dropping duplicates.
func flatten(quads []rdf.Quad) []rdf.Quad {
	seen := make(map[rdf.Quad]struct{}, len(quads))
	out := make([]rdf.Quad, 0, len(quads))
	for _, q := range quads {
		q.Graph = rdf.DefaultGraph
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}

func lines(quads []rdf.Quad, render func(rdf.Quad) string) string {
	out := make([]string, 0, len(quads))
	seen := make(map[string]struct{}, len(quads))
	for _, q := range quads {
		l := render(q.Normalize())
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)

	var sb strings.Builder
	for _, l := range out {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (w *Writer) turtle(quads []rdf.Quad) string {
	used := make(map[string]bool)
	blocks := w.subjectBlocks(quads, "", used)
	return w.document(blocks, used)
}

func (w *Writer) trig(quads []rdf.Quad) string {
	byGraph := make(map[rdf.Term][]rdf.Quad)
	for _, q := range quads {
		q = q.Normalize()
		byGraph[q.Graph] = append(byGraph[q.Graph], q)
	}

	used := make(map[string]bool)
	blocks := w.subjectBlocks(byGraph[rdf.DefaultGraph], "", used)

	names := make([]rdf.Term, 0, len(byGraph))
	for g := range byGraph {
		if !g.IsDefaultGraph() {
			names = append(names, g)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i].String() < names[j].String() })

	for _, g := range names {
		inner := w.subjectBlocks(byGraph[g], "    ", used)
		blocks = append(blocks, w.term(g, used)+" {\n"+strings.Join(inner, "\n")+"}\n")
	}
	return w.document(blocks, used)
}

// document prepends the used prefix declarations to the body blocks.
func (w *Writer) document(blocks []string, used map[string]bool) string {
	if len(blocks) == 0 {
		return ""
	}

	names := make([]string, 0, len(used))
	for p := range used {
		names = append(names, p)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, p := range names {
		fmt.Fprintf(&sb, "@prefix %s: <%s> .\n", p, rdf.EscapeIRI(w.prefixes[p]))
	}
	if len(names) > 0 {
		sb.WriteByte('\n')
	}
	sb.WriteString(strings.Join(blocks, "\n"))
	return sb.String()
}

// subjectBlocks renders one Turtle statement per subject, each terminated by
// a newline, in sorted order.
func (w *Writer) subjectBlocks(quads []rdf.Quad, indent string, used map[string]bool) []string {
	if len(quads) == 0 {
		return nil
	}
	sorted := append([]rdf.Quad(nil), quads...)
	sort.Slice(sorted, func(i, j int) bool { return lessTriple(sorted[i], sorted[j]) })

	var blocks []string
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].Subject == sorted[start].Subject {
			end++
		}
		blocks = append(blocks, w.subjectBlock(sorted[start:end], indent, used))
		start = end
	}
	return blocks
}

func (w *Writer) subjectBlock(quads []rdf.Quad, indent string, used map[string]bool) string {
	var sb strings.Builder
	sb.WriteString(indent)
	sb.WriteString(w.term(quads[0].Subject, used))

	for start := 0; start < len(quads); {
		end := start
		for end < len(quads) && quads[end].Predicate == quads[start].Predicate {
			end++
		}
		if start > 0 {
			sb.WriteString(" ;\n")
			sb.WriteString(indent)
			sb.WriteString("    ")
		} else {
			sb.WriteByte(' ')
		}

		if quads[start].Predicate == rdf.RDFType {
			sb.WriteString("a")
		} else {
			sb.WriteString(w.term(quads[start].Predicate, used))
		}
		for i := start; i < end; i++ {
			if i == start {
				sb.WriteByte(' ')
			} else {
				sb.WriteString(", ")
			}
			sb.WriteString(w.term(quads[i].Object, used))
		}
		start = end
	}
	sb.WriteString(" .\n")
	return sb.String()
}

// term renders t in Turtle, compacting IRIs against the prefix table.
func (w *Writer) term(t rdf.Term, used map[string]bool) string {
	switch t.Kind() {
	case rdf.KindIRI:
		return w.compact(t.Value(), used)
	case rdf.KindLiteral:
		s := `"` + rdf.EscapeString(t.Value()) + `"`
		switch {
		case t.Lang() != "":
			return s + "@" + t.Lang()
		case t.Datatype() != "":
			return s + "^^" + w.compact(t.Datatype(), used)
		}
		return s
	default:
		return t.String()
	}
}

func (w *Writer) compact(iri string, used map[string]bool) string {
	best, bestNS := "", ""
	for p, ns := range w.prefixes {
		if ns == "" || !strings.HasPrefix(iri, ns) || !validLocal(iri[len(ns):]) {
			continue
		}
		if len(ns) > len(bestNS) || (len(ns) == len(bestNS) && p < best) {
			best, bestNS = p, ns
		}
	}
	if bestNS == "" {
		return "<" + rdf.EscapeIRI(iri) + ">"
	}
	used[best] = true
	return best + ":" + iri[len(bestNS):]
}

// validLocal accepts the conservative subset of local names that needs no escaping.
func validLocal(s string) bool {
	if s == "" || s[0] == '-' {
		return false
	}
	for _, r := range s {
		if !isNameChar(r) {
			return false
		}
	}
	return true
}

func isNameChar(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// lessTriple orders by subject, then predicate with rdf:type first, then object.
func lessTriple(a, b rdf.Quad) bool {
	if a.Subject != b.Subject {
		return a.Subject.String() < b.Subject.String()
	}
	if a.Predicate != b.Predicate {
		if a.Predicate == rdf.RDFType {
			return true
		}
		if b.Predicate == rdf.RDFType {
			return false
		}
		return a.Predicate.String() < b.Predicate.String()
	}
	return a.Object.String() < b.Object.String()
}

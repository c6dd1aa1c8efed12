package rdf

import "fmt"

// Quad is a subject-predicate-object statement in a graph.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

// NewQuad builds a quad in graph g. A zero g places it in the default graph.
func NewQuad(s, p, o, g Term) Quad {
	if g.IsAny() {
		g = DefaultGraph
	}
	return Quad{Subject: s, Predicate: p, Object: o, Graph: g}
}

// Triple builds a quad in the default graph.
func Triple(s, p, o Term) Quad {
	return NewQuad(s, p, o, DefaultGraph)
}

// Normalize returns q with a zero graph replaced by DefaultGraph.
func (q Quad) Normalize() Quad {
	if q.Graph.IsAny() {
		q.Graph = DefaultGraph
	}
	return q
}

// Validate checks the positional constraints (subject IRI or blank node,
// predicate IRI, object any concrete term, graph IRI or default) and that
// every term survives serialization.
func (q Quad) Validate() error {
	switch q.Subject.Kind() {
	case KindIRI, KindBlankNode:
	default:
		return fmt.Errorf("subject must be an IRI or blank node, got %s", q.Subject.Kind())
	}
	if !q.Predicate.IsIRI() {
		return fmt.Errorf("predicate must be an IRI, got %s", q.Predicate.Kind())
	}
	switch q.Object.Kind() {
	case KindIRI, KindBlankNode, KindLiteral:
	default:
		return fmt.Errorf("object must be a concrete term, got %s", q.Object.Kind())
	}
	switch q.Graph.Kind() {
	case KindIRI, KindDefaultGraph, KindAny:
	default:
		return fmt.Errorf("graph must be an IRI or the default graph, got %s", q.Graph.Kind())
	}
	for _, t := range []Term{q.Subject, q.Predicate, q.Object, q.Graph} {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// InDefaultGraph reports whether q belongs to the default graph.
func (q Quad) InDefaultGraph() bool {
	return q.Graph.IsDefaultGraph() || q.Graph.IsAny()
}

// String renders q as an N-Quads line without the trailing newline.
func (q Quad) String() string {
	if q.InDefaultGraph() {
		return fmt.Sprintf("%s %s %s .", q.Subject, q.Predicate, q.Object)
	}
	return fmt.Sprintf("%s %s %s %s .", q.Subject, q.Predicate, q.Object, q.Graph)
}

// Matches reports whether q satisfies the pattern; zero terms are wildcards.
func (q Quad) Matches(s, p, o, g Term) bool {
	if !s.IsAny() && q.Subject != s {
		return false
	}
	if !p.IsAny() && q.Predicate != p {
		return false
	}
	if !o.IsAny() && q.Object != o {
		return false
	}
	if !g.IsAny() && q.Normalize().Graph != g {
		return false
	}
	return true
}

package graphsync

import (
	"strings"

	"github.com/c360studio/semsync/rdf"
)

// ConstructQuery returns the query that fetches every triple of graphIRI, or
// of the endpoint's default graph when graphIRI is empty.
func ConstructQuery(graphIRI string) string {
	if graphIRI == "" {
		return "CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }"
	}
	return "CONSTRUCT { ?s ?p ?o } WHERE { GRAPH <" + rdf.EscapeIRI(graphIRI) + "> { ?s ?p ?o } }"
}

// ReplaceGraphUpdate returns the update that empties graphIRI and inserts the
// given N-Triples into it. The two operations travel in one request but are
// not guaranteed to be applied atomically by the endpoint.
func ReplaceGraphUpdate(graphIRI, ntriples string) string {
	g := "<" + rdf.EscapeIRI(graphIRI) + ">"

	var b strings.Builder
	b.WriteString("CLEAR SILENT GRAPH ")
	b.WriteString(g)
	b.WriteString(" ;\nINSERT DATA { GRAPH ")
	b.WriteString(g)
	b.WriteString(" {\n")
	b.WriteString(ntriples)
	b.WriteString("} }")
	return b.String()
}

package sparql

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/c360studio/semsync/rdf"
)

// Result is the outcome of a query.
type Result struct {
	Kind Kind

	// Boolean is the answer of an ASK query.
	Boolean bool

	// Vars and Bindings hold the solutions of a SELECT query.
	Vars     []string
	Bindings []map[string]rdf.Term

	// Graph is the RDF document returned by a CONSTRUCT query.
	Graph string

	ContentType string
}

// resultsDocument is the application/sparql-results+json shape.
type resultsDocument struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Boolean *bool `json:"boolean"`
	Results *struct {
		Bindings []map[string]binding `json:"bindings"`
	} `json:"results"`
}

type binding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype"`
	Lang     string `json:"xml:lang"`
}

func decodeResults(data []byte) (*Result, error) {
	var doc resultsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	if doc.Boolean == nil && doc.Results == nil {
		return nil, errors.New("decode results: neither boolean nor results present")
	}

	res := &Result{Vars: doc.Head.Vars}
	if doc.Boolean != nil {
		res.Boolean = *doc.Boolean
	}
	if doc.Results == nil {
		return res, nil
	}

	res.Bindings = make([]map[string]rdf.Term, 0, len(doc.Results.Bindings))
	for i, row := range doc.Results.Bindings {
		solution := make(map[string]rdf.Term, len(row))
		for name, b := range row {
			term, err := b.term()
			if err != nil {
				return nil, fmt.Errorf("solution %d, variable %s: %w", i, name, err)
			}
			solution[name] = term
		}
		res.Bindings = append(res.Bindings, solution)
	}
	return res, nil
}

func (b binding) term() (rdf.Term, error) {
	switch b.Type {
	case "uri":
		return rdf.IRI(b.Value), nil
	case "bnode":
		return rdf.BlankNode(b.Value), nil
	case "literal", "typed-literal":
		switch {
		case b.Lang != "":
			return rdf.LangLiteral(b.Value, b.Lang), nil
		case b.Datatype != "":
			return rdf.TypedLiteral(b.Value, b.Datatype), nil
		default:
			return rdf.Literal(b.Value), nil
		}
	default:
		return rdf.Term{}, fmt.Errorf("unknown term type %q", b.Type)
	}
}

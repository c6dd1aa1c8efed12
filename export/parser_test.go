package export_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semsync/export"
	"github.com/c360studio/semsync/graph"
	"github.com/c360studio/semsync/rdf"
)

func TestParse_RoundTrip(t *testing.T) {
	original := graph.NewStore()
	original.AddAll(sampleQuads())
	original.Add(rdf.Triple(
		rdf.IRI("http://example.org/post/3"),
		rdf.IRI(rdf.NSSIOC+"content"),
		rdf.Literal("line one\nline two\ttabbed \\ back é \u0001"),
	))
	original.Add(rdf.Triple(
		rdf.IRI("http://example.org/post/3"),
		rdf.IRI(rdf.NSDCTerms+"title"),
		rdf.TypedLiteral("plain", rdf.XSDString),
	))

	text, err := export.Serialize(original.Quads(), export.FormatTriG)
	require.NoError(t, err)

	quads, err := export.Parse(text)
	require.NoError(t, err)

	parsed := graph.NewStore()
	parsed.AddAll(quads)
	assert.ElementsMatch(t, original.Quads(), parsed.Quads())
}

func TestParse_TurtleFeatures(t *testing.T) {
	src := `
@base <http://example.org/> .
@prefix ex: <http://example.org/ns#> .
PREFIX dc: <http://purl.org/dc/terms/>

# comment
<doc> a ex:Doc ;
    dc:title "T"@EN-gb, 'single' ;
    ex:count 42 ;
    ex:ratio -1.5 ;
    ex:big 1e3 ;
    ex:flag true ;
    ex:long """multi
line""" ;
    ex:ref ex:other.
`
	quads, err := export.Parse(src)
	require.NoError(t, err)

	s := graph.NewStore()
	s.AddAll(quads)
	doc := rdf.IRI("http://example.org/doc")
	ns := "http://example.org/ns#"

	expected := []rdf.Quad{
		rdf.Triple(doc, rdf.RDFType, rdf.IRI(ns+"Doc")),
		rdf.Triple(doc, rdf.IRI(rdf.NSDCTerms+"title"), rdf.LangLiteral("T", "en-gb")),
		rdf.Triple(doc, rdf.IRI(rdf.NSDCTerms+"title"), rdf.Literal("single")),
		rdf.Triple(doc, rdf.IRI(ns+"count"), rdf.TypedLiteral("42", rdf.XSDInteger)),
		rdf.Triple(doc, rdf.IRI(ns+"ratio"), rdf.TypedLiteral("-1.5", rdf.XSDDecimal)),
		rdf.Triple(doc, rdf.IRI(ns+"big"), rdf.TypedLiteral("1e3", rdf.XSDDouble)),
		rdf.Triple(doc, rdf.IRI(ns+"flag"), rdf.TypedLiteral("true", rdf.XSDBoolean)),
		rdf.Triple(doc, rdf.IRI(ns+"long"), rdf.Literal("multi\nline")),
		rdf.Triple(doc, rdf.IRI(ns+"ref"), rdf.IRI(ns+"other")),
	}
	assert.ElementsMatch(t, expected, s.Quads())
}

func TestParse_BlankNodesAndCollections(t *testing.T) {
	src := `@prefix ex: <http://example.org/> .
ex:s ex:knows [ ex:name "anon" ] ;
     ex:list ( 1 2 ) ;
     ex:empty () .
_:x ex:name "labelled" .
`
	quads, err := export.Parse(src)
	require.NoError(t, err)

	s := graph.NewStore()
	s.AddAll(quads)

	knows, ok := s.First(rdf.IRI("http://example.org/s"), rdf.IRI("http://example.org/knows"), rdf.Any, rdf.Any)
	require.True(t, ok)
	assert.True(t, knows.Object.IsBlankNode())
	assert.Len(t, s.Match(knows.Object, rdf.IRI("http://example.org/name"), rdf.Literal("anon"), rdf.Any), 1)

	assert.Len(t, s.Match(rdf.Any, rdf.RDFFirst, rdf.Any, rdf.Any), 2)
	assert.Len(t, s.Match(rdf.Any, rdf.RDFRest, rdf.RDFNil, rdf.Any), 1)
	assert.Len(t, s.Match(rdf.Any, rdf.Any, rdf.RDFNil, rdf.Any), 2)

	assert.True(t, s.Has(rdf.Triple(rdf.BlankNode("x"), rdf.IRI("http://example.org/name"), rdf.Literal("labelled"))))
}

func TestParse_ScopedBlankNodes(t *testing.T) {
	src := `_:x <http://example.org/p> "v" .`

	a, err := export.Parse(src, export.WithScopedBlankNodes())
	require.NoError(t, err)
	b, err := export.Parse(src, export.WithScopedBlankNodes())
	require.NoError(t, err)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.NotEqual(t, rdf.BlankNode("x"), a[0].Subject)
	assert.NotEqual(t, a[0].Subject, b[0].Subject)
}

func TestParse_Graphs(t *testing.T) {
	src := `@prefix ex: <http://example.org/> .
ex:a ex:p "default" .
ex:g1 { ex:a ex:p "one" . ex:b ex:p "two" }
GRAPH <http://example.org/g2> { ex:a ex:p "three" . }
{ ex:c ex:p "braces" }
`
	quads, err := export.Parse(src)
	require.NoError(t, err)

	s := graph.NewStore()
	s.AddAll(quads)
	assert.Equal(t, 5, s.Size())
	assert.Len(t, s.Match(rdf.Any, rdf.Any, rdf.Any, rdf.IRI("http://example.org/g1")), 2)
	assert.Len(t, s.Match(rdf.Any, rdf.Any, rdf.Any, rdf.IRI("http://example.org/g2")), 1)
	assert.Len(t, s.Match(rdf.Any, rdf.Any, rdf.Any, rdf.DefaultGraph), 2)
}

func TestParse_WithGraph(t *testing.T) {
	g := rdf.IRI("http://example.org/target")
	quads, err := export.Parse(`<http://x/s> <http://x/p> <http://x/o> .`, export.WithGraph(g))
	require.NoError(t, err)
	require.Len(t, quads, 1)
	assert.Equal(t, g, quads[0].Graph)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing dot", `<http://x/s> <http://x/p> "o"`},
		{"undefined prefix", `ex:s ex:p "o" .`},
		{"unterminated string", `<http://x/s> <http://x/p> "o .`},
		{"unterminated iri", `<http://x/s> <http://x/p> <http://x/o .`},
		{"literal graph name", `"g" { <http://x/s> <http://x/p> "o" }`},
		{"unterminated graph", `<http://x/g> { <http://x/s> <http://x/p> "o" .`},
		{"bad escape", `<http://x/s> <http://x/p> "\q" .`},
		{"garbage", `this is not turtle`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := export.Parse(tt.src)
			require.Error(t, err)
			var syn *export.SyntaxError
			assert.True(t, errors.As(err, &syn), "expected a SyntaxError, got %T", err)
		})
	}
}

func TestParse_ErrorPosition(t *testing.T) {
	_, err := export.Parse("<http://x/s> <http://x/p> \"o\" .\n<http://x/s> <http://x/p> .")
	var syn *export.SyntaxError
	require.True(t, errors.As(err, &syn))
	assert.Equal(t, 2, syn.Line)
}

func TestParse_RoundTripEdgeTerms(t *testing.T) {
	s := rdf.IRI("http://example.org/s")
	p := rdf.IRI("http://example.org/p")
	g := rdf.IRI("http://example.org/g")

	accepted := []rdf.Quad{
		rdf.Triple(rdf.BlankNode("b1.x-y_z"), p, rdf.Literal("inner dot label")),
		rdf.Triple(rdf.BlankNode("9lives"), p, rdf.BlankNode("_under")),
		rdf.Triple(s, p, rdf.LangLiteral("hi", "en-GB")),
		rdf.Triple(s, p, rdf.LangLiteral("hola", "es-419")),
		rdf.Triple(s, p, rdf.Literal("ünïcödé 😀  ")),
		rdf.NewQuad(s, p, rdf.TypedLiteral("x", "http://example.org/dt#é"), g),
	}
	rejected := []rdf.Quad{
		rdf.Triple(rdf.BlankNode("nodeID://b1"), p, rdf.Literal("o")),
		rdf.Triple(rdf.BlankNode("b1."), p, rdf.Literal("o")),
		rdf.Triple(s, p, rdf.LangLiteral("x", "en_us")),
		rdf.Triple(s, p, rdf.Literal("a\xffb")),
	}

	store := graph.NewStore()
	assert.Equal(t, len(accepted), store.AddAll(accepted))
	for _, q := range rejected {
		assert.False(t, store.Add(q), "store accepted %v", q)
	}

	text, err := export.Serialize(store.Quads(), export.FormatTriG)
	require.NoError(t, err)

	quads, err := export.Parse(text)
	require.NoError(t, err)
	assert.ElementsMatch(t, store.Quads(), quads)
}

func TestParse_RejectsMalformedLanguageTag(t *testing.T) {
	_, err := export.Parse(`<http://x/s> <http://x/p> "x"@en--us .`)
	var syn *export.SyntaxError
	assert.True(t, errors.As(err, &syn))
}

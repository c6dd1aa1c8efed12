package rdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerm_StructuralEquality(t *testing.T) {
	assert.Equal(t, IRI("http://x/a"), IRI("http://x/a"))
	assert.NotEqual(t, IRI("http://x/a"), Literal("http://x/a"))
	assert.NotEqual(t, Literal("1"), TypedLiteral("1", XSDInteger))
	assert.Equal(t, LangLiteral("hi", "EN"), LangLiteral("hi", "en"))

	set := map[Term]bool{IRI("http://x/a"): true}
	assert.True(t, set[IRI("http://x/a")])
}

func TestTerm_String(t *testing.T) {
	tests := []struct {
		term Term
		want string
	}{
		{IRI("http://x/a"), "<http://x/a>"},
		{BlankNode("b1"), "_:b1"},
		{Literal("say \"hi\"\n"), `"say \"hi\"\n"`},
		{TypedLiteral("5", XSDInteger), `"5"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{LangLiteral("bonjour", "fr"), `"bonjour"@fr`},
		{Any, "*"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.term.String())
	}
}

func TestNewBlankNode_Unique(t *testing.T) {
	a, b := NewBlankNode(), NewBlankNode()
	assert.True(t, a.IsBlankNode())
	assert.NotEqual(t, a, b)
}

func TestValidIRI(t *testing.T) {
	assert.True(t, ValidIRI("https://example.org/x"))
	assert.True(t, ValidIRI("urn:semsync:post:abc"))
	assert.True(t, ValidIRI("mailto:me@example.org"))
	assert.False(t, ValidIRI("not-a-url"))
	assert.False(t, ValidIRI(""))
	assert.False(t, ValidIRI("http://exa mple.org"))
}

func TestQuad_Validate(t *testing.T) {
	ok := Triple(IRI("http://x/s"), IRI("http://x/p"), Literal("o"))
	assert.NoError(t, ok.Validate())

	badSubject := Triple(Literal("s"), IRI("http://x/p"), Literal("o"))
	assert.Error(t, badSubject.Validate())

	badPredicate := Triple(IRI("http://x/s"), BlankNode("p"), Literal("o"))
	assert.Error(t, badPredicate.Validate())

	badGraph := NewQuad(IRI("http://x/s"), IRI("http://x/p"), Literal("o"), Literal("g"))
	assert.Error(t, badGraph.Validate())
}

func TestTerm_Validate(t *testing.T) {
	tests := []struct {
		name    string
		term    Term
		wantErr bool
	}{
		{"plain literal", Literal("héllo"), false},
		{"lang with region", LangLiteral("hi", "en-GB"), false},
		{"lang with numeric subtag", LangLiteral("hi", "es-419"), false},
		{"lang with underscore", LangLiteral("hi", "en_US"), true},
		{"lang starting with digit", LangLiteral("hi", "1en"), true},
		{"lang with empty subtag", LangLiteral("hi", "en--us"), true},
		{"invalid utf8 literal", Literal("a\xffb"), true},
		{"invalid utf8 iri", IRI("http://x/\xff"), true},
		{"blank label with inner dot", BlankNode("b1.x-y_z"), false},
		{"blank label with colon", BlankNode("nodeID://b1"), true},
		{"blank label ending in dot", BlankNode("b1."), true},
		{"empty blank label", BlankNode(""), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.term.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	q := Triple(BlankNode("b1."), IRI("http://x/p"), Literal("o"))
	assert.Error(t, q.Validate())
}

func TestQuad_Matches(t *testing.T) {
	q := NewQuad(IRI("http://x/s"), IRI("http://x/p"), Literal("o"), IRI("http://x/g"))

	assert.True(t, q.Matches(Any, Any, Any, Any))
	assert.True(t, q.Matches(IRI("http://x/s"), Any, Literal("o"), IRI("http://x/g")))
	assert.False(t, q.Matches(Any, Any, Any, DefaultGraph))
	assert.False(t, q.Matches(IRI("http://x/other"), Any, Any, Any))

	d := Triple(IRI("http://x/s"), IRI("http://x/p"), Literal("o"))
	assert.True(t, d.Matches(Any, Any, Any, DefaultGraph))
}

func TestQuad_String(t *testing.T) {
	q := NewQuad(IRI("http://x/s"), IRI("http://x/p"), Literal("o"), IRI("http://x/g"))
	assert.Equal(t, `<http://x/s> <http://x/p> "o" <http://x/g> .`, q.String())
}

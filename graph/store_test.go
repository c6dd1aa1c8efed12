package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semsync/rdf"
)

var (
	alice = rdf.IRI("http://example.org/alice")
	bob   = rdf.IRI("http://example.org/bob")
	name  = rdf.IRI("http://xmlns.com/foaf/0.1/name")
	knows = rdf.IRI("http://xmlns.com/foaf/0.1/knows")
	g1    = rdf.IRI("http://example.org/g1")
)

func sampleStore() *Store {
	s := NewStore()
	s.Add(rdf.Triple(alice, name, rdf.Literal("Alice")))
	s.Add(rdf.Triple(bob, name, rdf.Literal("Bob")))
	s.Add(rdf.Triple(alice, knows, bob))
	s.Add(rdf.NewQuad(alice, name, rdf.Literal("Alice"), g1))
	return s
}

func TestStore_AddIsIdempotent(t *testing.T) {
	s := NewStore()
	q := rdf.Triple(alice, name, rdf.Literal("Alice"))

	assert.True(t, s.Add(q))
	assert.Equal(t, 1, s.Size())

	assert.False(t, s.Add(q))
	assert.Equal(t, 1, s.Size())

	// A zero graph is the default graph.
	assert.False(t, s.Add(rdf.Quad{Subject: alice, Predicate: name, Object: rdf.Literal("Alice")}))
	assert.Equal(t, 1, s.Size())
}

func TestStore_AddRejectsMalformed(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Add(rdf.Triple(rdf.Literal("x"), name, rdf.Literal("y"))))
	assert.Equal(t, 0, s.Size())
}

func TestStore_SameTripleInTwoGraphs(t *testing.T) {
	s := sampleStore()
	assert.Equal(t, 4, s.Size())

	inDefault := s.Match(alice, name, rdf.Any, rdf.DefaultGraph)
	require.Len(t, inDefault, 1)

	inG1 := s.Match(alice, name, rdf.Any, g1)
	require.Len(t, inG1, 1)
	assert.Equal(t, g1, inG1[0].Graph)

	assert.Len(t, s.Match(alice, name, rdf.Any, rdf.Any), 2)
}

func TestStore_Match(t *testing.T) {
	s := sampleStore()

	tests := []struct {
		name            string
		subj, pred, obj rdf.Term
		graph           rdf.Term
		want            int
	}{
		{"all wildcards", rdf.Any, rdf.Any, rdf.Any, rdf.Any, 4},
		{"by subject", alice, rdf.Any, rdf.Any, rdf.Any, 3},
		{"by predicate", rdf.Any, name, rdf.Any, rdf.Any, 3},
		{"by object", rdf.Any, rdf.Any, bob, rdf.Any, 1},
		{"by graph", rdf.Any, rdf.Any, rdf.Any, g1, 1},
		{"subject and predicate", bob, name, rdf.Any, rdf.Any, 1},
		{"unknown subject", rdf.IRI("http://example.org/carol"), rdf.Any, rdf.Any, rdf.Any, 0},
		{"unknown predicate", rdf.Any, rdf.IRI("http://example.org/p"), rdf.Any, rdf.Any, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Match(tt.subj, tt.pred, tt.obj, tt.graph)
			assert.Len(t, got, tt.want)
			for _, q := range got {
				assert.True(t, s.Has(q), "match returned a quad that is not stored")
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	s := sampleStore()

	assert.True(t, s.Delete(rdf.Triple(alice, knows, bob)))
	assert.False(t, s.Delete(rdf.Triple(alice, knows, bob)))
	assert.Equal(t, 3, s.Size())
	assert.Empty(t, s.Match(rdf.Any, knows, rdf.Any, rdf.Any))
	assert.Len(t, s.Match(alice, rdf.Any, rdf.Any, rdf.Any), 2)
}

func TestStore_DeleteMatching(t *testing.T) {
	s := sampleStore()

	n := s.DeleteMatching(alice, rdf.Any, rdf.Any, rdf.Any)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, s.Size())
	assert.Empty(t, s.Match(alice, rdf.Any, rdf.Any, rdf.Any))
	assert.Len(t, s.Match(bob, rdf.Any, rdf.Any, rdf.Any), 1)
}

func TestStore_SubjectsAndGraphs(t *testing.T) {
	s := sampleStore()
	assert.ElementsMatch(t, []rdf.Term{alice, bob}, s.Subjects())
	assert.ElementsMatch(t, []rdf.Term{g1}, s.Graphs())
}

func TestStore_First(t *testing.T) {
	s := sampleStore()

	q, ok := s.First(bob, name, rdf.Any, rdf.Any)
	require.True(t, ok)
	assert.Equal(t, rdf.Literal("Bob"), q.Object)

	_, ok = s.First(bob, knows, rdf.Any, rdf.Any)
	assert.False(t, ok)
}

func TestStore_CloneIsIndependent(t *testing.T) {
	s := sampleStore()
	c := s.Clone()
	c.Add(rdf.Triple(bob, knows, alice))

	assert.Equal(t, 4, s.Size())
	assert.Equal(t, 5, c.Size())
	assert.Equal(t, 1, s.Merge(c))
}

func TestStore_Subscribe(t *testing.T) {
	s := NewStore()
	var changes []Change
	cancel := s.Subscribe(func(c Change) { changes = append(changes, c) })

	s.Add(rdf.Triple(alice, name, rdf.Literal("Alice")))
	s.Add(rdf.Triple(alice, name, rdf.Literal("Alice"))) // no-op, no event
	s.Delete(rdf.Triple(alice, name, rdf.Literal("Alice")))

	require.Len(t, changes, 2)
	assert.Len(t, changes[0].Added, 1)
	assert.Len(t, changes[1].Removed, 1)

	cancel()
	cancel()
	s.Add(rdf.Triple(bob, name, rdf.Literal("Bob")))
	assert.Len(t, changes, 2)
}

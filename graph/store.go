// Package graph provides the in-memory quad store.
//
// The store is a set: adding a quad that is already present is a no-op.
// Quads are indexed by subject and by predicate so that lookups with either
// position bound do not scan the whole store. Each method is atomic with
// respect to the others, but sequences of calls are not; callers sequence
// logically dependent mutations themselves.
package graph

import (
	"sync"

	"github.com/c360studio/semsync/rdf"
)

type quadSet map[rdf.Quad]struct{}

// Change describes one mutation of the store.
type Change struct {
	Added   []rdf.Quad
	Removed []rdf.Quad
}

// Empty reports whether the change carries no quads.
func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// Store is a mutable set of quads with pattern lookup.
type Store struct {
	mu          sync.RWMutex
	quads       quadSet
	bySubject   map[rdf.Term]quadSet
	byPredicate map[rdf.Term]quadSet

	subMu   sync.Mutex
	subs    map[uint64]func(Change)
	nextSub uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		quads:       make(quadSet),
		bySubject:   make(map[rdf.Term]quadSet),
		byPredicate: make(map[rdf.Term]quadSet),
		subs:        make(map[uint64]func(Change)),
	}
}

// Add inserts q. It returns false if q was already present or is malformed.
func (s *Store) Add(q rdf.Quad) bool {
	return s.AddAll([]rdf.Quad{q}) == 1
}

// AddAll inserts every quad and returns how many were new.
// Malformed quads are skipped.
func (s *Store) AddAll(quads []rdf.Quad) int {
	added := make([]rdf.Quad, 0, len(quads))

	s.mu.Lock()
	for _, q := range quads {
		q = q.Normalize()
		if q.Validate() != nil {
			continue
		}
		if _, ok := s.quads[q]; ok {
			continue
		}
		s.insert(q)
		added = append(added, q)
	}
	s.mu.Unlock()

	s.publish(Change{Added: added})
	return len(added)
}

// Delete removes q and reports whether it was present.
func (s *Store) Delete(q rdf.Quad) bool {
	q = q.Normalize()

	s.mu.Lock()
	_, ok := s.quads[q]
	if ok {
		s.remove(q)
	}
	s.mu.Unlock()

	if ok {
		s.publish(Change{Removed: []rdf.Quad{q}})
	}
	return ok
}

// DeleteMatching removes every quad matching the pattern and returns the count.
func (s *Store) DeleteMatching(subj, pred, obj, g rdf.Term) int {
	s.mu.Lock()
	matched := s.match(subj, pred, obj, g)
	for _, q := range matched {
		s.remove(q)
	}
	s.mu.Unlock()

	s.publish(Change{Removed: matched})
	return len(matched)
}

// Match returns the quads matching the pattern. rdf.Any in any position is a
// wildcard; rdf.DefaultGraph restricts to the default graph. The result is a
// snapshot in no particular order.
func (s *Store) Match(subj, pred, obj, g rdf.Term) []rdf.Quad {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.match(subj, pred, obj, g)
}

// First returns the first quad matching the pattern, if any.
func (s *Store) First(subj, pred, obj, g rdf.Term) (rdf.Quad, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for q := range s.candidates(subj, pred) {
		if q.Matches(subj, pred, obj, g) {
			return q, true
		}
	}
	return rdf.Quad{}, false
}

// Has reports whether q is stored.
func (s *Store) Has(q rdf.Quad) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.quads[q.Normalize()]
	return ok
}

// Size returns the number of stored quads.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quads)
}

// Quads returns a snapshot of every stored quad.
func (s *Store) Quads() []rdf.Quad {
	return s.Match(rdf.Any, rdf.Any, rdf.Any, rdf.Any)
}

// Subjects returns the distinct subjects that have at least one quad.
func (s *Store) Subjects() []rdf.Term {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]rdf.Term, 0, len(s.bySubject))
	for subj := range s.bySubject {
		out = append(out, subj)
	}
	return out
}

// Graphs returns the distinct named graphs in use. The default graph is not included.
func (s *Store) Graphs() []rdf.Term {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[rdf.Term]struct{})
	out := []rdf.Term{}
	for q := range s.quads {
		if q.Graph.IsDefaultGraph() {
			continue
		}
		if _, ok := seen[q.Graph]; !ok {
			seen[q.Graph] = struct{}{}
			out = append(out, q.Graph)
		}
	}
	return out
}

// Clone returns an independent copy without subscriptions.
func (s *Store) Clone() *Store {
	c := NewStore()
	c.AddAll(s.Quads())
	return c
}

// Merge adds every quad of other and returns how many were new.
func (s *Store) Merge(other *Store) int {
	return s.AddAll(other.Quads())
}

// Subscribe registers fn to be called after every mutation that changed the
// store. Delivery happens on the mutating goroutine, in no guaranteed order
// across subscribers. The returned function cancels the subscription.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) publish(c Change) {
	if c.Empty() {
		return
	}

	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// candidates returns the smallest index set covering the bound positions.
// Caller holds the lock.
func (s *Store) candidates(subj, pred rdf.Term) quadSet {
	var bySubj, byPred quadSet
	if !subj.IsAny() {
		bySubj = s.bySubject[subj]
		if bySubj == nil {
			return nil
		}
	}
	if !pred.IsAny() {
		byPred = s.byPredicate[pred]
		if byPred == nil {
			return nil
		}
	}

	switch {
	case bySubj != nil && byPred != nil:
		if len(byPred) < len(bySubj) {
			return byPred
		}
		return bySubj
	case bySubj != nil:
		return bySubj
	case byPred != nil:
		return byPred
	default:
		return s.quads
	}
}

// match collects quads for a pattern. Caller holds the lock.
func (s *Store) match(subj, pred, obj, g rdf.Term) []rdf.Quad {
	set := s.candidates(subj, pred)
	out := make([]rdf.Quad, 0)
	for q := range set {
		if q.Matches(subj, pred, obj, g) {
			out = append(out, q)
		}
	}
	return out
}

// insert adds q to the set and indices. Caller holds the write lock.
func (s *Store) insert(q rdf.Quad) {
	s.quads[q] = struct{}{}

	if s.bySubject[q.Subject] == nil {
		s.bySubject[q.Subject] = make(quadSet)
	}
	s.bySubject[q.Subject][q] = struct{}{}

	if s.byPredicate[q.Predicate] == nil {
		s.byPredicate[q.Predicate] = make(quadSet)
	}
	s.byPredicate[q.Predicate][q] = struct{}{}
}

// remove drops q from the set and indices. Caller holds the write lock.
func (s *Store) remove(q rdf.Quad) {
	delete(s.quads, q)

	if set := s.bySubject[q.Subject]; set != nil {
		delete(set, q)
		if len(set) == 0 {
			delete(s.bySubject, q.Subject)
		}
	}
	if set := s.byPredicate[q.Predicate]; set != nil {
		delete(set, q)
		if len(set) == 0 {
			delete(s.byPredicate, q.Predicate)
		}
	}
}

package post

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-playground/validator/v10"

	"github.com/c360studio/semsync/errs"
	"github.com/c360studio/semsync/graph"
	"github.com/c360studio/semsync/rdf"
	vocab "github.com/c360studio/semsync/vocabulary/post"
)

// DefaultBaseIRI prefixes generated post identifiers.
const DefaultBaseIRI = "urn:semsync:post:"

// Service creates, reads and deletes posts in a graph store.
type Service struct {
	store    *graph.Store
	base     string
	now      func() time.Time
	logger   *slog.Logger
	validate *validator.Validate
}

// Option configures a Service.
type Option func(*Service)

// WithBaseIRI sets the prefix of generated identifiers.
func WithBaseIRI(base string) Option {
	return func(s *Service) {
		if base != "" {
			s.base = base
		}
	}
}

// WithClock sets the time source used for timestamps and identifiers.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a post service over store.
func NewService(store *graph.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		base:     DefaultBaseIRI,
		now:      time.Now,
		logger:   slog.Default(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateID derives the deterministic identifier for in at time now:
// the base IRI followed by the xxhash64 of the first non-empty of title,
// content, url and name, joined with the UTC date. Identical inputs on the
// same day produce the same identifier.
func GenerateID(base string, in Input, now time.Time) string {
	key := firstNonEmpty(in.Title, in.Content, in.URL, in.Name) + "|" + now.UTC().Format("2006-01-02")
	return fmt.Sprintf("%s%016x", base, xxhash.Sum64String(key))
}

// Create validates in, writes its quads and returns the post identifier and
// the number of quads added. Nothing is written when validation fails.
func (s *Service) Create(in Input) (string, int, error) {
	now := s.now()
	id, quads, err := s.build("create post", in, now, "")
	if err != nil {
		return "", 0, err
	}

	if _, exists := s.store.First(rdf.IRI(id), rdf.Any, rdf.Any, rdf.Any); exists {
		s.logger.Warn("Post identifier already in use, merging quads", "id", id)
	}

	added := s.store.AddAll(quads)
	s.logger.Debug("Created post", "id", id, "type", in.Type, "quads", added)
	return id, added, nil
}

// Update replaces the fields of an existing post with in and bumps its
// modification time. The post keeps its type, graph and creation time unless
// in supplies them.
func (s *Service) Update(id string, in Input) (int, error) {
	existing, ok := s.Get(id)
	if !ok {
		return 0, errs.Domain("update post", "post %s not found", id)
	}

	in.ID = existing.ID
	if in.Type == "" {
		in.Type = existing.Type
	}
	if in.Graph == "" {
		in.Graph = s.graphOf(rdf.IRI(existing.ID), existing.Type)
	}
	if in.Created.IsZero() {
		if t, ok := existing.CreatedTime(); ok {
			in.Created = t
		}
	}

	now := s.now()
	if in.Modified.IsZero() {
		in.Modified = now
	}
	_, quads, err := s.build("update post", in, now, existing.Created)
	if err != nil {
		return 0, err
	}

	s.Delete(existing.ID)
	added := s.store.AddAll(quads)
	s.logger.Debug("Updated post", "id", existing.ID, "quads", added)
	return added, nil
}

// Get projects every quad with subject id, across all graphs. It returns
// false when id has no recognized rdf:type.
func (s *Service) Get(id string) (*Post, bool) {
	subj := rdf.IRI(s.resolveID(id))
	t, ok := s.typeOf(subj, rdf.Any)
	if !ok {
		return nil, false
	}
	p := s.project(subj, t, rdf.Any)
	return &p, true
}

// List returns the posts matching filter, most recently modified first.
// Posts without a parsable modified or created time sort last; ties are
// broken by identifier.
func (s *Service) List(filter Filter) []Post {
	g := rdf.Any
	if filter.Graph != "" {
		g = rdf.IRI(filter.Graph)
	}

	candidates := make(map[rdf.Term]Type)
	for _, q := range s.store.Match(rdf.Any, rdf.RDFType, rdf.Any, g) {
		t, ok := vocab.TypeForClass(q.Object)
		if !ok || (filter.Type != "" && t != filter.Type) {
			continue
		}
		if prev, seen := candidates[q.Subject]; !seen || typeRank(t) < typeRank(prev) {
			candidates[q.Subject] = t
		}
	}

	posts := make([]Post, 0, len(candidates))
	for subj, t := range candidates {
		p := s.project(subj, t, g)
		if filter.Tag != "" && !hasTag(p.Tags, filter.Tag) {
			continue
		}
		posts = append(posts, p)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		ti, iok := posts[i].sortTime()
		tj, jok := posts[j].sortTime()
		switch {
		case iok && jok && !ti.Equal(tj):
			return ti.After(tj)
		case iok != jok:
			return iok
		}
		return posts[i].ID < posts[j].ID
	})

	if filter.Limit > 0 && len(posts) > filter.Limit {
		posts = posts[:filter.Limit]
	}
	return posts
}

// Delete removes every quad with subject id in any graph, together with the
// account blank nodes it owns. It returns false if nothing matched.
func (s *Service) Delete(id string) bool {
	subj := rdf.IRI(s.resolveID(id))

	for _, q := range s.store.Match(subj, rdf.IRI(vocab.Account), rdf.Any, rdf.Any) {
		if q.Object.IsBlankNode() {
			s.store.DeleteMatching(q.Object, rdf.Any, rdf.Any, rdf.Any)
		}
	}
	n := s.store.DeleteMatching(subj, rdf.Any, rdf.Any, rdf.Any)
	if n > 0 {
		s.logger.Debug("Deleted post", "id", subj.Value(), "quads", n)
	}
	return n > 0
}

// Tags returns every tag in use with its post count, most used first.
func (s *Service) Tags() []TagCount {
	counts := make(map[string]map[rdf.Term]struct{})
	for _, q := range s.store.Match(rdf.Any, rdf.IRI(vocab.Tag), rdf.Any, rdf.Any) {
		if !q.Object.IsLiteral() {
			continue
		}
		tag := q.Object.Value()
		if counts[tag] == nil {
			counts[tag] = make(map[rdf.Term]struct{})
		}
		counts[tag][q.Subject] = struct{}{}
	}

	out := make([]TagCount, 0, len(counts))
	for tag, subjects := range counts {
		out = append(out, TagCount{Tag: tag, Count: len(subjects)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// build validates in and returns its identifier and quads. keepCreated, when
// set, is reused verbatim if in carries no creation time.
func (s *Service) build(op string, in Input, now time.Time, keepCreated string) (string, []rdf.Quad, error) {
	if err := s.check(op, in); err != nil {
		return "", nil, err
	}

	id := s.resolveID(in.ID)
	if id == "" {
		id = GenerateID(s.base, in, now)
	}
	if !rdf.ValidIRI(id) {
		return "", nil, errs.Domain(op, "invalid post id %q", id)
	}

	g := rdf.DefaultGraph
	if in.Graph != "" {
		g = rdf.IRI(in.Graph)
	}
	subj := rdf.IRI(id)

	var quads []rdf.Quad
	add := func(s rdf.Term, p string, o rdf.Term) {
		quads = append(quads, rdf.NewQuad(s, rdf.IRI(p), o, g))
	}
	literal := func(p, v string) {
		if v != "" {
			add(subj, p, rdf.Literal(v))
		}
	}
	dateTime := func(t time.Time) rdf.Term {
		return rdf.TypedLiteral(formatTime(t), rdf.XSDDateTime)
	}

	quads = append(quads, rdf.NewQuad(subj, rdf.RDFType, in.Type.Class(), g))
	literal(vocab.Content, in.Content)
	literal(vocab.Title, in.Title)

	created := in.Created
	switch {
	case !created.IsZero():
		add(subj, vocab.Created, dateTime(created))
	case keepCreated != "":
		add(subj, vocab.Created, rdf.TypedLiteral(keepCreated, rdf.XSDDateTime))
	default:
		created = now
		add(subj, vocab.Created, dateTime(created))
	}

	for _, tag := range uniqueTags(in.Tags) {
		add(subj, vocab.Tag, rdf.Literal(tag))
	}

	if !in.Modified.IsZero() {
		add(subj, vocab.Modified, dateTime(in.Modified))
	}

	switch in.Type {
	case TypeLink:
		add(subj, vocab.Recalls, rdf.IRI(in.URL))
	case TypeWiki:
		if in.Modified.IsZero() {
			if created.IsZero() {
				created = now
			}
			add(subj, vocab.Modified, dateTime(created))
		}
	case TypeChat:
		if in.Created.IsZero() && keepCreated == "" {
			add(subj, vocab.Date, dateTime(now))
		}
	case TypeProfile:
		literal(vocab.Name, in.Name)
		literal(vocab.Nick, in.Nick)
		if in.Email != "" {
			add(subj, vocab.Mbox, rdf.IRI(mailto(in.Email)))
		}
		if in.Homepage != "" {
			add(subj, vocab.Homepage, rdf.IRI(in.Homepage))
		}
		if in.Image != "" {
			add(subj, vocab.Img, rdf.IRI(in.Image))
		}
		for _, acct := range in.Accounts {
			node := rdf.NewBlankNode()
			add(subj, vocab.Account, node)
			add(node, vocab.AccountServiceHomepage, rdf.IRI(acct.Service))
			add(node, vocab.AccountName, rdf.Literal(acct.Name))
		}
	}

	for _, q := range quads {
		if err := q.Validate(); err != nil {
			return "", nil, errs.DomainWrap(op, err, "invalid quad for %s", id)
		}
	}
	return id, quads, nil
}

// typeOf returns the recognized post type of subj in graph g.
func (s *Service) typeOf(subj, g rdf.Term) (Type, bool) {
	var (
		found Type
		ok    bool
	)
	for _, q := range s.store.Match(subj, rdf.RDFType, rdf.Any, g) {
		if t, known := vocab.TypeForClass(q.Object); known && (!ok || typeRank(t) < typeRank(found)) {
			found, ok = t, true
		}
	}
	return found, ok
}

// graphOf returns the named graph holding the rdf:type quad of subj for
// type t, or "" when one lives in the default graph. Several named graphs
// resolve to the lowest IRI.
func (s *Service) graphOf(subj rdf.Term, t Type) string {
	var named []string
	for _, q := range s.store.Match(subj, rdf.RDFType, t.Class(), rdf.Any) {
		if q.InDefaultGraph() {
			return ""
		}
		named = append(named, q.Graph.Value())
	}
	if len(named) == 0 {
		return ""
	}
	sort.Strings(named)
	return named[0]
}

// project reads one field at a time for subj, restricted to graph g.
func (s *Service) project(subj rdf.Term, t Type, g rdf.Term) Post {
	values := func(pred string) []rdf.Term {
		quads := s.store.Match(subj, rdf.IRI(pred), rdf.Any, g)
		out := make([]rdf.Term, 0, len(quads))
		for _, q := range quads {
			out = append(out, q.Object)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
		return out
	}
	first := func(pred string) string {
		if v := values(pred); len(v) > 0 {
			return v[0].Value()
		}
		return ""
	}

	p := Post{
		ID:       subj.Value(),
		Type:     t,
		Title:    first(vocab.Title),
		Content:  first(vocab.Content),
		Created:  first(vocab.Created),
		Modified: first(vocab.Modified),
		Date:     first(vocab.Date),
		URL:      first(vocab.Recalls),
	}
	for _, tag := range values(vocab.Tag) {
		p.Tags = append(p.Tags, tag.Value())
	}
	sort.Strings(p.Tags)

	if t == TypeProfile {
		p.Name = first(vocab.Name)
		p.Nick = first(vocab.Nick)
		p.Email = strings.TrimPrefix(first(vocab.Mbox), "mailto:")
		p.Homepage = first(vocab.Homepage)
		p.Image = first(vocab.Img)
		for _, node := range values(vocab.Account) {
			acct := Account{}
			if q, ok := s.store.First(node, rdf.IRI(vocab.AccountServiceHomepage), rdf.Any, rdf.Any); ok {
				acct.Service = q.Object.Value()
			}
			if q, ok := s.store.First(node, rdf.IRI(vocab.AccountName), rdf.Any, rdf.Any); ok {
				acct.Name = q.Object.Value()
			}
			p.Accounts = append(p.Accounts, acct)
		}
		sort.Slice(p.Accounts, func(i, j int) bool {
			if p.Accounts[i].Service != p.Accounts[j].Service {
				return p.Accounts[i].Service < p.Accounts[j].Service
			}
			return p.Accounts[i].Name < p.Accounts[j].Name
		})
	}
	return p
}

// resolveID turns a bare identifier into an IRI under the base.
func (s *Service) resolveID(id string) string {
	if id == "" || rdf.ValidIRI(id) {
		return id
	}
	return s.base + id
}

func typeRank(t Type) int {
	for i, known := range vocab.Types {
		if known == t {
			return i
		}
	}
	return len(vocab.Types)
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, want) {
			return true
		}
	}
	return false
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if _, ok := seen[tag]; ok || tag == "" {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func mailto(email string) string {
	if strings.HasPrefix(email, "mailto:") {
		return email
	}
	return "mailto:" + email
}

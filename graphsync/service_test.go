package graphsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semsync/cache"
	"github.com/c360studio/semsync/endpoint"
	"github.com/c360studio/semsync/errs"
	"github.com/c360studio/semsync/graph"
	"github.com/c360studio/semsync/notify"
	"github.com/c360studio/semsync/rdf"
	"github.com/c360studio/semsync/sparql"
	"github.com/c360studio/semsync/storage"
)

const remoteTurtle = `@prefix dcterms: <http://purl.org/dc/terms/> .
<urn:semsync:post:remote> dcterms:title "from remote" ;
    dcterms:creator [ dcterms:title "anon" ] .
`

type activeSet map[endpoint.Type]endpoint.Endpoint

func (a activeSet) Active(t endpoint.Type) (endpoint.Endpoint, bool) {
	ep, ok := a[t]
	return ep, ok
}

type fakeServer struct {
	*httptest.Server
	requests atomic.Int32
	status   int
	body     string
	query    atomic.Value
	update   atomic.Value
	user     atomic.Value
}

func newFakeServer(t *testing.T, status int, body string) *fakeServer {
	t.Helper()
	f := &fakeServer{status: status, body: body}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		assert.NoError(t, r.ParseForm())
		f.query.Store(r.PostForm.Get("query"))
		f.update.Store(r.PostForm.Get("update"))
		user, _, _ := r.BasicAuth()
		f.user.Store(user)
		w.Header().Set("Content-Type", "text/turtle")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
	}))
	t.Cleanup(f.Close)
	return f
}

func seededStore() *graph.Store {
	s := graph.NewStore()
	s.Add(rdf.Triple(rdf.IRI("urn:semsync:post:local"), rdf.IRI(rdf.NSDCTerms+"title"), rdf.Literal("local")))
	return s
}

func collect(bus *notify.Bus) *[]notify.Notification {
	var got []notify.Notification
	bus.Notifications.Subscribe(func(n notify.Notification) { got = append(got, n) })
	return &got
}

func TestLoad_NoActiveQueryEndpoint(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, remoteTurtle)
	bus := notify.NewBus()
	notes := collect(bus)
	store := seededStore()
	svc := NewService(store, activeSet{
		endpoint.TypeUpdate: {URL: srv.URL, Type: endpoint.TypeUpdate},
	}, sparql.NewClient(), WithBus(bus))

	_, err := svc.LoadFromEndpoint(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errs.IsDomain(err))
	assert.Contains(t, err.Error(), "no active query endpoint")
	assert.Equal(t, int32(0), srv.requests.Load())
	assert.Equal(t, 1, store.Size())

	require.Len(t, *notes, 1)
	assert.Equal(t, notify.KindError, (*notes)[0].Kind)
}

func TestLoad_MergesAndSaves(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer(t, http.StatusOK, remoteTurtle)
	kv := storage.NewMemory()
	bus := notify.NewBus()
	notes := collect(bus)
	store := seededStore()

	svc := NewService(store, activeSet{
		endpoint.TypeQuery: {URL: srv.URL, Type: endpoint.TypeQuery, Credentials: &sparql.Credentials{User: "ada"}},
	}, sparql.NewClient(), WithSaver(cache.New(kv)), WithBus(bus))

	added, err := svc.LoadFromEndpoint(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	assert.Equal(t, 4, store.Size())
	assert.Equal(t, ConstructQuery(""), srv.query.Load())
	assert.Equal(t, "ada", srv.user.Load())

	creator, ok := store.First(rdf.IRI("urn:semsync:post:remote"), rdf.IRI(rdf.NSDCTerms+"creator"), rdf.Any, rdf.Any)
	require.True(t, ok)
	assert.True(t, creator.Object.IsBlankNode())
	assert.NotEqual(t, "b0", creator.Object.Value())

	data, err := kv.Get(ctx, cache.DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, string(data), "from remote")

	require.Len(t, *notes, 1)
	assert.Equal(t, notify.KindSuccess, (*notes)[0].Kind)
	assert.Equal(t, "3", (*notes)[0].Context["added"])
}

func TestLoad_NamedGraph(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, remoteTurtle)
	store := graph.NewStore()
	svc := NewService(store, activeSet{endpoint.TypeQuery: {URL: srv.URL}}, sparql.NewClient())

	g := "http://example.org/g"
	_, err := svc.LoadFromEndpoint(context.Background(), g)
	require.NoError(t, err)

	assert.Contains(t, srv.query.Load(), "GRAPH <http://example.org/g>")
	assert.Len(t, store.Match(rdf.Any, rdf.Any, rdf.Any, rdf.IRI(g)), 3)
	assert.Empty(t, store.Match(rdf.Any, rdf.Any, rdf.Any, rdf.DefaultGraph))

	_, err = svc.LoadFromEndpoint(context.Background(), "not an iri")
	assert.True(t, errs.IsDomain(err))
}

func TestLoad_FailuresLeaveStoreUntouched(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"protocol", http.StatusInternalServerError, "boom", errs.IsProtocol},
		{"parse", http.StatusOK, remoteTurtle + "<urn:x> <urn:p> \"unterminated", errs.IsParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(t, tt.status, tt.body)
			bus := notify.NewBus()
			notes := collect(bus)
			store := seededStore()
			before := store.Quads()

			svc := NewService(store, activeSet{endpoint.TypeQuery: {URL: srv.URL}}, sparql.NewClient(), WithBus(bus))
			added, err := svc.LoadFromEndpoint(context.Background(), "")
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
			assert.Equal(t, 0, added)
			assert.ElementsMatch(t, before, store.Quads())

			require.Len(t, *notes, 1)
			assert.Equal(t, notify.KindError, (*notes)[0].Kind)
			assert.Equal(t, srv.URL, (*notes)[0].Context["url"])
		})
	}
}

func TestSync_EmptyGraphRejectedWithoutIO(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, "")
	svc := NewService(seededStore(), activeSet{endpoint.TypeUpdate: {URL: srv.URL}}, sparql.NewClient())

	err := svc.SyncWithEndpoint(context.Background(), "", nil)
	require.Error(t, err)
	assert.True(t, errs.IsDomain(err))
	assert.Equal(t, int32(0), srv.requests.Load())
}

func TestSync_NoActiveUpdateEndpoint(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, "")
	svc := NewService(seededStore(), activeSet{endpoint.TypeQuery: {URL: srv.URL}}, sparql.NewClient())

	err := svc.SyncWithEndpoint(context.Background(), "http://example.org/g", nil)
	assert.True(t, errs.IsDomain(err))
	assert.Contains(t, err.Error(), "no active update endpoint")
	assert.Equal(t, int32(0), srv.requests.Load())
}

func TestSync_SendsClearAndInsert(t *testing.T) {
	srv := newFakeServer(t, http.StatusNoContent, "")
	bus := notify.NewBus()
	notes := collect(bus)
	svc := NewService(seededStore(), activeSet{
		endpoint.TypeUpdate: {URL: srv.URL, Credentials: &sparql.Credentials{User: "writer", Password: "pw"}},
	}, sparql.NewClient(), WithBus(bus))

	g := "http://example.org/g"
	require.NoError(t, svc.SyncWithEndpoint(context.Background(), g, nil))
	assert.Equal(t, int32(1), srv.requests.Load())

	update := srv.update.Load().(string)
	assert.True(t, strings.HasPrefix(update, "CLEAR SILENT GRAPH <http://example.org/g> ;"))
	assert.Contains(t, update, "INSERT DATA { GRAPH <http://example.org/g> {")
	assert.Contains(t, update, `<urn:semsync:post:local> <http://purl.org/dc/terms/title> "local" .`)
	assert.Equal(t, "writer", srv.user.Load())

	require.Len(t, *notes, 1)
	assert.Equal(t, notify.KindSuccess, (*notes)[0].Kind)
	assert.Equal(t, "1", (*notes)[0].Context["sent"])
}

func TestSync_Subset(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, "")
	svc := NewService(seededStore(), activeSet{endpoint.TypeUpdate: {URL: srv.URL}}, sparql.NewClient())

	subset := graph.NewStore()
	subset.Add(rdf.Triple(rdf.IRI("urn:only"), rdf.IRI("urn:p"), rdf.Literal("this")))
	require.NoError(t, svc.SyncWithEndpoint(context.Background(), "http://example.org/g", subset))

	update := srv.update.Load().(string)
	assert.Contains(t, update, "<urn:only>")
	assert.NotContains(t, update, "urn:semsync:post:local")
}

func TestSync_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	bus := notify.NewBus()
	notes := collect(bus)
	svc := NewService(seededStore(), activeSet{endpoint.TypeUpdate: {URL: url}}, sparql.NewClient(), WithBus(bus))

	err := svc.SyncWithEndpoint(context.Background(), "http://example.org/g", nil)
	assert.True(t, errs.IsNetwork(err))
	require.Len(t, *notes, 1)
	assert.Equal(t, notify.KindError, (*notes)[0].Kind)
}

func TestBreaker_OpensAfterServerFailures(t *testing.T) {
	srv := newFakeServer(t, http.StatusServiceUnavailable, "down")
	bus := notify.NewBus()
	var checks []notify.CheckRequest
	bus.CheckRequested.Subscribe(func(r notify.CheckRequest) { checks = append(checks, r) })

	svc := NewService(seededStore(), activeSet{endpoint.TypeQuery: {URL: srv.URL}}, sparql.NewClient(),
		WithBus(bus), WithBreaker(2, time.Hour))

	for range 2 {
		_, err := svc.LoadFromEndpoint(context.Background(), "")
		assert.True(t, errs.IsProtocol(err))
	}

	_, err := svc.LoadFromEndpoint(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errs.IsNetwork(err))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), srv.requests.Load())

	require.Len(t, checks, 1)
	assert.Contains(t, checks[0].Reason, srv.URL)
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	srv := newFakeServer(t, http.StatusBadRequest, "bad query")
	svc := NewService(seededStore(), activeSet{endpoint.TypeQuery: {URL: srv.URL}}, sparql.NewClient(),
		WithBreaker(2, time.Hour))

	for range 3 {
		_, err := svc.LoadFromEndpoint(context.Background(), "")
		assert.True(t, errs.IsProtocol(err))
	}
	assert.Equal(t, int32(3), srv.requests.Load())
}

func TestMetrics(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, remoteTurtle)
	m := NewMetrics(prometheus.NewRegistry())
	svc := NewService(graph.NewStore(), activeSet{
		endpoint.TypeQuery:  {URL: srv.URL},
		endpoint.TypeUpdate: {URL: srv.URL},
	}, sparql.NewClient(), WithMetrics(m))

	_, err := svc.LoadFromEndpoint(context.Background(), "")
	require.NoError(t, err)
	_ = svc.SyncWithEndpoint(context.Background(), "", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues(OpLoad, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues(OpSync, "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Quads.WithLabelValues(OpLoad)))
}

func TestWithRegistry(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer(t, http.StatusOK, remoteTurtle)

	reg := endpoint.NewRegistry(endpoint.ProberFunc(
		func(context.Context, string, string, *sparql.Credentials) (bool, error) { return true, nil }))
	require.NoError(t, reg.Add(ctx, endpoint.Endpoint{URL: srv.URL, Type: endpoint.TypeQuery}))

	svc := NewService(graph.NewStore(), reg, sparql.NewClient())
	_, err := svc.LoadFromEndpoint(ctx, "")
	assert.True(t, errs.IsDomain(err), "unknown endpoints are not active")

	reg.CheckAll(ctx)
	added, err := svc.LoadFromEndpoint(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, added)
}

func TestQueries(t *testing.T) {
	assert.Equal(t, "CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }", ConstructQuery(""))
	assert.Equal(t, "CONSTRUCT { ?s ?p ?o } WHERE { GRAPH <urn:g> { ?s ?p ?o } }", ConstructQuery("urn:g"))
	assert.Equal(t,
		"CLEAR SILENT GRAPH <urn:g> ;\nINSERT DATA { GRAPH <urn:g> {\n<urn:s> <urn:p> \"o\" .\n} }",
		ReplaceGraphUpdate("urn:g", "<urn:s> <urn:p> \"o\" .\n"))
}

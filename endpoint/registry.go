package endpoint

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semsync/errs"
	"github.com/c360studio/semsync/notify"
	"github.com/c360studio/semsync/sparql"
	"github.com/c360studio/semsync/storage"
)

// ProbeQuery is the existence query sent by health checks.
const ProbeQuery = "ASK { ?s ?p ?o }"

// DefaultProbeTimeout bounds a single health probe.
const DefaultProbeTimeout = 10 * time.Second

// Prober runs an ASK query. *sparql.Client satisfies it.
type Prober interface {
	Ask(ctx context.Context, url, query string, creds *sparql.Credentials) (bool, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, url, query string, creds *sparql.Credentials) (bool, error)

// Ask calls f.
func (f ProberFunc) Ask(ctx context.Context, url, query string, creds *sparql.Credentials) (bool, error) {
	return f(ctx, url, query, creds)
}

// Registry holds the known endpoints in registration order.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	endpoints map[string]*Endpoint

	prober  Prober
	timeout time.Duration
	kv      storage.KV
	bus     *notify.Bus
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time

	persistMu sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithKV persists the registry and the last used endpoints through kv.
func WithKV(kv storage.KV) Option {
	return func(r *Registry) {
		r.kv = kv
	}
}

// WithBus publishes status transitions and check requests on bus.
func WithBus(bus *notify.Bus) Option {
	return func(r *Registry) {
		r.bus = bus
	}
}

// WithMetrics records probe metrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProbeTimeout bounds each health probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithClock sets the time source for lastChecked.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates an empty registry that probes through prober.
func NewRegistry(prober Prober, opts ...Option) *Registry {
	r := &Registry{
		endpoints: make(map[string]*Endpoint),
		prober:    prober,
		timeout:   DefaultProbeTimeout,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Seed inserts bootstrap endpoints with status unknown. Invalid entries and
// URLs already present are skipped and logged. Nothing is persisted.
func (r *Registry) Seed(eps []Endpoint) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, ep := range eps {
		if err := ep.Validate(); err != nil {
			r.logger.Warn("Skipping invalid endpoint", "url", ep.URL, "error", err)
			continue
		}
		if _, ok := r.endpoints[ep.URL]; ok {
			continue
		}
		r.insert(reset(ep))
		n++
	}
	return n
}

// Add registers a new endpoint with status unknown, persists the registry and
// publishes a CheckRequested event. The endpoint is only probed if a running
// Monitor consumes that event; one-shot callers without a Monitor must call
// CheckEndpoint themselves. A duplicate URL is a configuration error.
func (r *Registry) Add(ctx context.Context, ep Endpoint) error {
	if err := ep.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if _, ok := r.endpoints[ep.URL]; ok {
		r.mu.Unlock()
		return errs.Configuration("add endpoint", "endpoint %s already exists", ep.URL)
	}
	r.insert(reset(ep))
	r.mu.Unlock()

	r.logger.Info("Added endpoint", "url", ep.URL, "type", ep.Type)
	r.persist(ctx)
	r.bus.RequestCheck("endpoint added: " + ep.URL)
	return nil
}

// Remove deletes the endpoint with url.
func (r *Registry) Remove(ctx context.Context, url string) error {
	r.mu.Lock()
	ep, ok := r.endpoints[url]
	if !ok {
		r.mu.Unlock()
		return errs.Configuration("remove endpoint", "endpoint %s not found", url)
	}
	removed := *ep
	delete(r.endpoints, url)
	for i, u := range r.order {
		if u == url {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.metrics.forget(removed)
	r.logger.Info("Removed endpoint", "url", url)
	r.persist(ctx)
	r.forgetLastUsed(ctx, removed)
	return nil
}

// Update merges p into the endpoint with url. A status change must follow the
// state machine; a change to active records the endpoint as last used.
func (r *Registry) Update(ctx context.Context, url string, p Patch) error {
	r.mu.Lock()
	ep, ok := r.endpoints[url]
	if !ok {
		r.mu.Unlock()
		return errs.Configuration("update endpoint", "endpoint %s not found", url)
	}

	next := ep.clone()
	if p.Label != nil {
		next.Label = *p.Label
	}
	if p.Type != nil {
		next.Type = *p.Type
	}
	if p.LastChecked != nil {
		t := *p.LastChecked
		next.LastChecked = &t
	}
	if p.LastError != nil {
		next.LastError = *p.LastError
	}
	if p.ClearCredentials {
		next.Credentials = nil
	}
	if p.Credentials != nil {
		c := *p.Credentials
		next.Credentials = &c
	}
	if p.Status != nil && *p.Status != ep.Status {
		if !CanTransition(ep.Status, *p.Status) {
			r.mu.Unlock()
			return errs.Domain("update endpoint", "%s: cannot move from %s to %s", url, ep.Status, *p.Status)
		}
		next.Status = *p.Status
	}
	if err := next.Validate(); err != nil {
		r.mu.Unlock()
		return err
	}

	prev := *ep
	*ep = next
	r.mu.Unlock()

	r.afterUpdate(ctx, prev, next)
	return nil
}

func (r *Registry) afterUpdate(ctx context.Context, prev, next Endpoint) {
	if prev.Status != next.Status {
		r.bus.Status(notify.StatusEvent{
			URL:   next.URL,
			Type:  string(next.Type),
			From:  string(prev.Status),
			To:    string(next.Status),
			Error: next.LastError,
		})
		if next.Status == StatusActive {
			r.recordLastUsed(ctx, next)
		}
	}
	if next.Status != StatusChecking {
		r.persist(ctx)
	}
}

// CheckEndpoint probes url and records the outcome. Probe failures become
// status inactive with lastError set; only an unknown url returns an error.
func (r *Registry) CheckEndpoint(ctx context.Context, url string) (Status, error) {
	ep, ok := r.Get(url)
	if !ok {
		return StatusUnknown, errs.Configuration("check endpoint", "endpoint %s not found", url)
	}

	checking := StatusChecking
	if ep.Status != StatusChecking {
		if err := r.Update(ctx, url, Patch{Status: &checking}); err != nil {
			return StatusUnknown, err
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	start := time.Now()
	ok, err := r.prober.Ask(probeCtx, url, ProbeQuery, ep.Credentials)
	elapsed := time.Since(start)
	cancel()

	status := StatusActive
	lastError := ""
	switch {
	case err != nil:
		status = StatusInactive
		lastError = err.Error()
	case !ok:
		status = StatusInactive
		lastError = "existence probe returned false"
	}

	checked := r.now()
	patch := Patch{Status: &status, LastChecked: &checked, LastError: &lastError}
	if err := r.Update(ctx, url, patch); err != nil {
		// Removed, or settled by a concurrent probe, while this one was in flight.
		if errs.IsConfiguration(err) || errs.IsDomain(err) {
			r.logger.Debug("Discarding probe result", "url", url, "error", err)
			return status, nil
		}
		return status, err
	}

	r.metrics.observe(ep, status, elapsed.Seconds())
	if status == StatusActive {
		r.logger.Debug("Endpoint active", "url", url, "duration", elapsed)
	} else {
		r.logger.Info("Endpoint inactive", "url", url, "error", lastError)
	}
	return status, nil
}

// CheckAll probes every endpoint concurrently and returns once all probes have
// settled. One probe failing does not affect the others.
func (r *Registry) CheckAll(ctx context.Context) Summary {
	urls := r.urls()

	var g errgroup.Group
	for _, url := range urls {
		g.Go(func() error {
			if _, err := r.CheckEndpoint(ctx, url); err != nil {
				r.logger.Debug("Endpoint check skipped", "url", url, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{ActiveByType: make(map[Type]int), Checked: len(urls)}
	for _, ep := range r.List() {
		if ep.Status == StatusActive {
			summary.AnyActive = true
			summary.ActiveByType[ep.Type]++
		}
	}
	return summary
}

// Active returns the first endpoint of type t, in registration order, whose
// status is active.
func (r *Registry) Active(t Type) (Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, url := range r.order {
		ep := r.endpoints[url]
		if ep.Type == t && ep.Status == StatusActive {
			return ep.clone(), true
		}
	}
	return Endpoint{}, false
}

// Get returns the endpoint with url.
func (r *Registry) Get(url string) (Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.endpoints[url]
	if !ok {
		return Endpoint{}, false
	}
	return ep.clone(), true
}

// List returns every endpoint in registration order.
func (r *Registry) List() []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Endpoint, 0, len(r.order))
	for _, url := range r.order {
		out = append(out, r.endpoints[url].clone())
	}
	return out
}

// Len returns the number of endpoints.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) urls() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// insert adds ep. Caller holds the lock.
func (r *Registry) insert(ep Endpoint) {
	r.order = append(r.order, ep.URL)
	r.endpoints[ep.URL] = &ep
}

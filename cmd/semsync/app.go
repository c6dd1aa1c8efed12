package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/semsync/cache"
	"github.com/c360studio/semsync/config"
	"github.com/c360studio/semsync/endpoint"
	"github.com/c360studio/semsync/graph"
	"github.com/c360studio/semsync/graphsync"
	"github.com/c360studio/semsync/notify"
	"github.com/c360studio/semsync/post"
	"github.com/c360studio/semsync/sparql"
	"github.com/c360studio/semsync/storage"
)

// App is the main application that wires together all components.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// NATS
	natsConn *nats.Conn
	js       jetstream.JetStream

	// Persistence
	kv    storage.KV
	cache *cache.Cache

	// Core
	bus      *notify.Bus
	store    *graph.Store
	posts    *post.Service
	client   *sparql.Client
	registry *endpoint.Registry
	monitor  *endpoint.Monitor
	sync     *graphsync.Service
	metrics  *prometheus.Registry

	stops []func()
}

// NewApp creates a new application instance. No I/O happens until Start.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:     cfg,
		logger:  logger,
		bus:     notify.NewBus(),
		metrics: prometheus.NewRegistry(),
	}
}

// Start opens storage, loads the cached graph and bootstraps the endpoint
// registry.
func (a *App) Start(ctx context.Context) error {
	a.stops = append(a.stops, notify.AttachLogger(a.bus, a.logger))

	if a.cfg.NATS.URL != "" {
		if err := a.connectNATS(); err != nil {
			return fmt.Errorf("start NATS: %w", err)
		}
	}

	kv, err := a.openKV(ctx)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", a.cfg.Store.Backend, err)
	}
	a.kv = kv

	a.cache = cache.New(kv,
		cache.WithKey(a.cfg.Store.Key),
		cache.WithDebounce(a.cfg.Store.Debounce),
		cache.WithBus(a.bus),
		cache.WithLogger(a.logger))
	a.store = a.cache.Load(ctx)

	a.posts = post.NewService(a.store,
		post.WithBaseIRI(a.cfg.Posts.BaseIRI),
		post.WithLogger(a.logger))

	a.client = sparql.NewClient(
		sparql.WithTimeout(a.cfg.SPARQL.Timeout),
		sparql.WithLogger(a.logger))

	a.registry = endpoint.NewRegistry(a.client,
		endpoint.WithKV(kv),
		endpoint.WithBus(a.bus),
		endpoint.WithMetrics(endpoint.NewMetrics(a.metrics)),
		endpoint.WithProbeTimeout(a.cfg.Health.Timeout),
		endpoint.WithLogger(a.logger))
	a.bootstrapEndpoints(ctx)

	a.monitor = endpoint.NewMonitor(a.registry, a.bus, a.cfg.Health.Interval, a.logger)

	a.sync = graphsync.NewService(a.store, a.registry, a.client,
		graphsync.WithSaver(a.cache),
		graphsync.WithBus(a.bus),
		graphsync.WithMetrics(graphsync.NewMetrics(a.metrics)),
		graphsync.WithBreaker(a.cfg.SPARQL.FailureThreshold, a.cfg.SPARQL.Cooldown),
		graphsync.WithLogger(a.logger))

	a.logger.Debug("Components initialized",
		"backend", a.cfg.Store.Backend,
		"quads", a.store.Size(),
		"endpoints", a.registry.Len())
	return nil
}

// bootstrapEndpoints seeds the registry from last used, persisted and
// configured endpoints, falling back to the built-in defaults.
func (a *App) bootstrapEndpoints(ctx context.Context) {
	lastUsed, persisted := a.registry.LoadSources(ctx)
	resolved := endpoint.Resolve(endpoint.Sources{
		LastUsed:  lastUsed,
		Persisted: persisted,
		Static:    staticEndpoints(a.cfg),
		Defaults:  endpoint.DefaultEndpoints(),
	})
	n := a.registry.Seed(resolved)
	a.logger.Debug("Endpoints bootstrapped", "count", n)
}

// staticEndpoints converts configured endpoints to registry entries.
func staticEndpoints(cfg *config.Config) []endpoint.Endpoint {
	out := make([]endpoint.Endpoint, 0, len(cfg.Endpoints))
	for _, ec := range cfg.Endpoints {
		ep := endpoint.Endpoint{
			URL:   ec.URL,
			Label: ec.Label,
			Type:  endpoint.Type(ec.Type),
		}
		if ec.User != "" || ec.Password != "" {
			ep.Credentials = &sparql.Credentials{User: ec.User, Password: ec.Password}
		}
		out = append(out, ep)
	}
	return out
}

// applyConfig adds endpoints that appeared in a reloaded config and asks for
// a health check.
func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	added := 0
	for _, ep := range staticEndpoints(cfg) {
		if _, ok := a.registry.Get(ep.URL); ok {
			continue
		}
		if err := a.registry.Add(ctx, ep); err != nil {
			a.logger.Warn("Ignoring configured endpoint", "url", ep.URL, "error", err)
			continue
		}
		added++
	}
	a.logger.Info("Applied config change", "new_endpoints", added)
	a.bus.RequestCheck("config reloaded")
}

func (a *App) openKV(ctx context.Context) (storage.KV, error) {
	switch a.cfg.Store.Backend {
	case storage.BackendMemory:
		return storage.NewMemory(), nil
	case storage.BackendFile:
		return storage.NewFile(a.cfg.Store.Path)
	case storage.BackendBadger:
		return storage.OpenBadger(a.cfg.Store.Path)
	case storage.BackendSQLite:
		return storage.OpenSQLite(a.cfg.Store.Path)
	case storage.BackendNATS:
		if a.js == nil {
			return nil, errors.New("nats backend requires nats.url")
		}
		return storage.NewNATS(ctx, a.js, a.cfg.Store.Bucket)
	default:
		return nil, fmt.Errorf("unknown backend %q", a.cfg.Store.Backend)
	}
}

func (a *App) connectNATS() error {
	a.logger.Info("Connecting to NATS", "url", a.cfg.NATS.URL)
	conn, err := nats.Connect(a.cfg.NATS.URL,
		nats.Name("semsync"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second))
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	a.natsConn = conn

	js, err := jetstream.New(conn)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	a.js = js
	return nil
}

// Serve runs the long-lived parts: write-behind caching, the health monitor,
// NATS forwarding, the metrics endpoint and the config watcher. It blocks
// until ctx is done.
func (a *App) Serve(ctx context.Context, configPath string) error {
	a.cache.Watch(a.store)
	a.monitor.Start(ctx)
	a.stops = append(a.stops, a.monitor.Stop)

	if a.natsConn != nil {
		fwd := notify.NewForwarder(a.natsConn, a.cfg.NATS.SubjectPrefix, a.logger)
		a.stops = append(a.stops, fwd.Attach(a.bus))
		sub, err := fwd.ListenChecks(a.natsConn, a.bus)
		if err != nil {
			return fmt.Errorf("subscribe to check requests: %w", err)
		}
		a.stops = append(a.stops, func() { _ = sub.Unsubscribe() })
	}

	if a.cfg.Metrics.Addr != "" {
		srv := a.metricsServer()
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Metrics server failed", "error", err)
			}
		}()
		a.stops = append(a.stops, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		})
		a.logger.Info("Metrics available", "addr", a.cfg.Metrics.Addr)
	}

	if configPath != "" {
		w, err := config.NewWatcher(configPath, func(cfg *config.Config) { a.applyConfig(ctx, cfg) }, a.logger)
		if err != nil {
			return fmt.Errorf("create config watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start config watcher: %w", err)
		}
		a.stops = append(a.stops, func() { _ = w.Stop() })
	}

	a.logger.Info("semsync serving",
		"quads", a.store.Size(),
		"endpoints", a.registry.Len(),
		"interval", a.cfg.Health.Interval)

	<-ctx.Done()
	a.logger.Info("Received shutdown signal")
	return nil
}

func (a *App) metricsServer() *http.Server {
	a.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Save writes the store now. One-shot commands call it before exiting.
func (a *App) Save(ctx context.Context) error {
	return a.cache.Save(ctx, a.store)
}

// Shutdown stops background work, flushes pending writes and closes
// connections, in reverse order of creation.
func (a *App) Shutdown(ctx context.Context) error {
	for i := len(a.stops) - 1; i >= 0; i-- {
		a.stops[i]()
	}
	a.stops = nil

	var errs []error
	if a.cache != nil {
		if err := a.cache.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush cache: %w", err))
		}
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.natsConn.Close()
		}
	}
	return errors.Join(errs...)
}

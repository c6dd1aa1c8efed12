package endpoint

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/semsync/notify"
)

// DefaultInterval is the period between scheduled health checks.
const DefaultInterval = 60 * time.Second

// Monitor re-checks every endpoint on a fixed interval and whenever a check
// is requested on the bus.
type Monitor struct {
	registry *Registry
	bus      *notify.Bus
	interval time.Duration
	logger   *slog.Logger

	// OnSummary, when set, receives the result of every round.
	OnSummary func(Summary)

	mu     sync.Mutex
	cancel context.CancelFunc
	unsub  func()
	done   chan struct{}
}

// NewMonitor creates a stopped monitor. A zero interval uses DefaultInterval.
func NewMonitor(registry *Registry, bus *notify.Bus, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		registry: registry,
		bus:      bus,
		interval: interval,
		logger:   logger,
	}
}

// Start runs a check round immediately and then on every tick or request,
// until ctx is done or Stop is called. Starting a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	trigger := make(chan struct{}, 1)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.unsub = func() {}
	if m.bus != nil {
		m.unsub = m.bus.CheckRequested.Subscribe(func(req notify.CheckRequest) {
			m.logger.Debug("Health check requested", "reason", req.Reason)
			select {
			case trigger <- struct{}{}:
			default:
			}
		})
	}

	go m.loop(ctx, trigger, m.done)
	m.logger.Info("Endpoint monitor started", "interval", m.interval)
}

// Stop cancels the loop and waits for it to exit. Stopping a stopped monitor
// is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.cancel == nil {
		m.mu.Unlock()
		return
	}
	cancel, unsub, done := m.cancel, m.unsub, m.done
	m.cancel, m.unsub, m.done = nil, nil, nil
	m.mu.Unlock()

	unsub()
	cancel()
	<-done
	m.logger.Info("Endpoint monitor stopped")
}

// Running reports whether Start has been called without a matching Stop.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Monitor) loop(ctx context.Context, trigger <-chan struct{}, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.round(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.round(ctx)
		case <-trigger:
			m.round(ctx)
		}
	}
}

func (m *Monitor) round(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	summary := m.registry.CheckAll(ctx)
	m.logger.Debug("Health check round done",
		"checked", summary.Checked,
		"any_active", summary.AnyActive,
		"active_query", summary.ActiveByType[TypeQuery],
		"active_update", summary.ActiveByType[TypeUpdate])
	if m.OnSummary != nil {
		m.OnSummary(summary)
	}
}

package graphsync

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/c360studio/semsync/errs"
	"github.com/c360studio/semsync/notify"
)

// Breaker defaults.
const (
	DefaultFailureThreshold = 3
	DefaultCooldown         = 30 * time.Second
)

// breakers holds one circuit breaker per endpoint URL. A breaker opens after
// a run of consecutive transport failures and rejects requests until the
// cooldown has passed.
type breakers struct {
	mu        sync.Mutex
	byURL     map[string]*gobreaker.CircuitBreaker
	threshold uint32
	cooldown  time.Duration
	bus       *notify.Bus
	logger    *slog.Logger
}

func newBreakers(threshold int, cooldown time.Duration) *breakers {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &breakers{
		byURL:     make(map[string]*gobreaker.CircuitBreaker),
		threshold: uint32(threshold),
		cooldown:  cooldown,
		logger:    slog.Default(),
	}
}

func (b *breakers) get(url string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.byURL[url]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        url,
		MaxRequests: 1,
		Timeout:     b.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.threshold
		},
		IsSuccessful: func(err error) bool {
			return !tripsBreaker(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("Endpoint circuit changed state", "url", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				// The registry may still think the endpoint is active.
				b.bus.RequestCheck("circuit open for " + name)
			}
		},
	})
	b.byURL[url] = cb
	return cb
}

// do runs fn through the breaker of url. A rejected call returns a network
// error wrapping gobreaker.ErrOpenState or gobreaker.ErrTooManyRequests.
func (b *breakers) do(op, url string, fn func() error) error {
	_, err := b.get(url).Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errs.Network(op, err)
	}
	return err
}

// tripsBreaker reports whether err says the endpoint itself is failing.
// Client mistakes and unparsable payloads leave the breaker closed.
func tripsBreaker(err error) bool {
	if err == nil {
		return false
	}
	if errs.IsNetwork(err) {
		return true
	}
	var e *errs.Error
	if errors.As(err, &e) && e.Kind == errs.KindProtocol {
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

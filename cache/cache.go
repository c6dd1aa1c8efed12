// Package cache persists the graph store through a key-value backend.
//
// The whole store is written as one TriG document so named graphs and blank
// node labels survive a restart. Loading never fails: missing or unreadable
// data yields an empty store and a warning.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/semsync/errs"
	"github.com/c360studio/semsync/export"
	"github.com/c360studio/semsync/graph"
	"github.com/c360studio/semsync/notify"
	"github.com/c360studio/semsync/storage"
)

const (
	// DefaultKey is the key the serialized graph is stored under.
	DefaultKey = "graph.trig"

	// DefaultDebounce is how long Watch waits after the last change before saving.
	DefaultDebounce = 500 * time.Millisecond
)

// Cache loads and saves a graph store.
type Cache struct {
	kv       storage.KV
	key      string
	debounce time.Duration
	logger   *slog.Logger
	bus      *notify.Bus

	saveMu sync.Mutex

	mu     sync.Mutex
	store  *graph.Store
	detach func()
	timer  *time.Timer
	dirty  bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithKey sets the storage key.
func WithKey(key string) Option {
	return func(c *Cache) {
		if key != "" {
			c.key = key
		}
	}
}

// WithDebounce sets the write-behind delay used by Watch.
func WithDebounce(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBus sets the bus that receives warning and error notifications.
func WithBus(bus *notify.Bus) Option {
	return func(c *Cache) {
		c.bus = bus
	}
}

// New creates a cache over kv.
func New(kv storage.KV, opts ...Option) *Cache {
	c := &Cache{
		kv:       kv,
		key:      DefaultKey,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the cached graph. Missing data gives an empty store; unreadable
// or corrupt data gives an empty store plus a warning notification.
func (c *Cache) Load(ctx context.Context) *graph.Store {
	store := graph.NewStore()

	data, err := c.kv.Get(ctx, c.key)
	if err != nil {
		c.logger.Warn("Failed to read cached graph, starting empty", "key", c.key, "error", err)
		c.bus.Notify(notify.KindWarning, "Cached graph could not be read; starting with an empty graph",
			map[string]string{"key": c.key, "error": err.Error()})
		return store
	}
	if data == nil {
		c.logger.Info("No cached graph, starting empty", "key", c.key)
		return store
	}

	quads, err := export.Parse(string(data))
	if err != nil {
		c.logger.Warn("Cached graph is corrupt, starting empty", "key", c.key, "error", err)
		c.bus.Notify(notify.KindWarning, "Cached graph is corrupt; starting with an empty graph",
			map[string]string{"key": c.key, "error": err.Error()})
		return store
	}

	store.AddAll(quads)
	c.logger.Info("Loaded cached graph", "key", c.key, "quads", store.Size())
	return store
}

// Save writes the full store. On failure the in-memory store is left as is,
// an error notification is published, and a persistence error is returned.
func (c *Cache) Save(ctx context.Context, store *graph.Store) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	text, err := export.Serialize(store.Quads(), export.FormatTriG)
	if err != nil {
		return c.fail(fmt.Errorf("serialize graph: %w", err))
	}
	if err := c.kv.Set(ctx, c.key, []byte(text)); err != nil {
		return c.fail(err)
	}

	c.logger.Debug("Saved graph", "key", c.key, "bytes", len(text))
	return nil
}

func (c *Cache) fail(err error) error {
	c.logger.Error("Failed to save graph", "key", c.key, "error", err)
	c.bus.Error("Failed to save graph", err, map[string]string{"key": c.key})
	return errs.Persistence("cache save", err)
}

// Watch saves store after each burst of changes, once the debounce delay has
// passed without further changes. Watching a new store detaches the previous one.
func (c *Cache) Watch(store *graph.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.detach != nil {
		c.detach()
	}
	c.store = store
	c.detach = store.Subscribe(func(graph.Change) {
		c.markDirty()
	})
}

func (c *Cache) markDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dirty = true
	if c.timer == nil {
		c.timer = time.AfterFunc(c.debounce, func() {
			// Save already logged and notified.
			_ = c.Flush(context.Background())
		})
		return
	}
	c.timer.Reset(c.debounce)
}

// Dirty reports whether the watched store has unsaved changes.
func (c *Cache) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Flush saves the watched store now if it has unsaved changes.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	if !c.dirty || c.store == nil {
		c.mu.Unlock()
		return nil
	}
	c.dirty = false
	if c.timer != nil {
		c.timer.Stop()
	}
	store := c.store
	c.mu.Unlock()

	if err := c.Save(ctx, store); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		return err
	}
	return nil
}

// Close stops watching and flushes pending changes.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.detach != nil {
		c.detach()
		c.detach = nil
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()

	return c.Flush(ctx)
}

package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
)

// Storage keys.
const (
	ListKey           = "endpoints.json"
	lastUsedKeyPrefix = "endpoints.last_used."
)

// LastUsedKey returns the key recording the last active endpoint of type t.
func LastUsedKey(t Type) string {
	return lastUsedKeyPrefix + string(t)
}

// persist writes the endpoint list. Failures are logged and surfaced but do
// not affect the in-memory registry.
func (r *Registry) persist(ctx context.Context) {
	if r.kv == nil {
		return
	}
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	data, err := json.Marshal(r.List())
	if err == nil {
		err = r.kv.Set(ctx, ListKey, data)
	}
	if err != nil {
		r.logger.Warn("Failed to persist endpoints", "error", err)
		r.bus.Error("Failed to persist endpoints", err, nil)
	}
}

func (r *Registry) recordLastUsed(ctx context.Context, ep Endpoint) {
	if r.kv == nil {
		return
	}
	data, err := json.Marshal(ep)
	if err == nil {
		err = r.kv.Set(ctx, LastUsedKey(ep.Type), data)
	}
	if err != nil {
		r.logger.Warn("Failed to record last used endpoint", "url", ep.URL, "error", err)
	}
}

// forgetLastUsed drops the last used record of ep's type if it names ep.
func (r *Registry) forgetLastUsed(ctx context.Context, ep Endpoint) {
	if r.kv == nil {
		return
	}
	var last Endpoint
	ok, err := r.read(ctx, LastUsedKey(ep.Type), &last)
	if err != nil || !ok || last.URL != ep.URL {
		return
	}
	if err := r.kv.Remove(ctx, LastUsedKey(ep.Type)); err != nil {
		r.logger.Warn("Failed to forget last used endpoint", "url", ep.URL, "error", err)
	}
}

// LoadSources reads the last used and persisted endpoints from the registry's
// KV backend. Unreadable entries are logged and skipped.
func (r *Registry) LoadSources(ctx context.Context) (lastUsed, persisted []Endpoint) {
	if r.kv == nil {
		return nil, nil
	}

	for _, t := range []Type{TypeQuery, TypeUpdate} {
		var ep Endpoint
		ok, err := r.read(ctx, LastUsedKey(t), &ep)
		if err != nil {
			r.logger.Warn("Ignoring last used endpoint", "type", t, "error", err)
			continue
		}
		if ok {
			lastUsed = append(lastUsed, ep)
		}
	}

	if _, err := r.read(ctx, ListKey, &persisted); err != nil {
		r.logger.Warn("Ignoring persisted endpoints", "error", err)
		persisted = nil
	}
	return lastUsed, persisted
}

func (r *Registry) read(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

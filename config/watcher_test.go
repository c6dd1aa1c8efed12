package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectConfigFile)
	writeFile(t, path, "posts:\n  base_iri: \"http://v1/\"\n")

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { changes <- c }, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	// Unrelated files in the same directory are ignored
	writeFile(t, filepath.Join(dir, "other.yaml"), "x: 1\n")
	// Invalid edits are ignored
	writeFile(t, path, "store:\n  backend: tape\n")
	time.Sleep(400 * time.Millisecond)
	select {
	case c := <-changes:
		t.Fatalf("unexpected reload: %+v", c)
	default:
	}

	writeFile(t, path, `
posts:
  base_iri: "http://v2/"
endpoints:
  - url: http://localhost:3030/ds/query
    type: query
`)

	select {
	case c := <-changes:
		if c.Posts.BaseIRI != "http://v2/" {
			t.Errorf("expected reloaded base IRI, got %s", c.Posts.BaseIRI)
		}
		if len(c.Endpoints) != 1 {
			t.Errorf("expected 1 endpoint, got %d", len(c.Endpoints))
		}
	case <-time.After(3 * time.Second):
		t.Fatal("config change was not picked up")
	}
}

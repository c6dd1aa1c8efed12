package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseKV checks the contract every backend shares.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	got, err := kv.Get(ctx, "graph.trig")
	require.NoError(t, err)
	assert.Nil(t, got, "missing key returns nil")

	require.NoError(t, kv.Set(ctx, "graph.trig", []byte("v1")))
	got, err = kv.Get(ctx, "graph.trig")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, kv.Set(ctx, "graph.trig", []byte("v2")))
	got, err = kv.Get(ctx, "graph.trig")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, kv.Set(ctx, "endpoints.json", []byte(`[]`)))

	require.NoError(t, kv.Remove(ctx, "graph.trig"))
	got, err = kv.Get(ctx, "graph.trig")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, kv.Remove(ctx, "graph.trig"), "removing a missing key is not an error")

	got, err = kv.Get(ctx, "endpoints.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)

	assert.Error(t, kv.Set(ctx, "", []byte("x")))
}

func TestMemory(t *testing.T) {
	kv := NewMemory()
	exerciseKV(t, kv)

	require.NoError(t, kv.Close())
	_, err := kv.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemory_CopiesValues(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()
	value := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "store")
	kv, err := NewFile(dir)
	require.NoError(t, err)
	exerciseKV(t, kv)

	err = kv.Set(context.Background(), "../escape", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestFile_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, a.Set(ctx, "k", []byte("persisted")))

	b, err := NewFile(dir)
	require.NoError(t, err)
	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}

func TestBadger(t *testing.T) {
	kv, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	exerciseKV(t, kv)
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "semsync.db")
	kv, err := OpenSQLite(path)
	require.NoError(t, err)
	exerciseKV(t, kv)
	require.NoError(t, kv.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), "endpoints.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)
}

func TestNATS(t *testing.T) {
	kv := &NATS{kv: newFakeBucket()}
	exerciseKV(t, kv)
}

func TestNATS_PropagatesErrors(t *testing.T) {
	fb := newFakeBucket()
	fb.err = errors.New("no responders")
	kv := &NATS{kv: fb}

	_, err := kv.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, kv.Set(context.Background(), "k", []byte("v")))
}

// fakeBucket is an in-memory stand-in for a JetStream KV bucket.
type fakeBucket struct {
	data map[string][]byte
	rev  uint64
	err  error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{data: make(map[string][]byte)}
}

func (f *fakeBucket) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{key: key, value: v, rev: f.rev}, nil
}

func (f *fakeBucket) Put(_ context.Context, key string, value []byte) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if key == "" {
		return 0, jetstream.ErrInvalidKey
	}
	f.rev++
	f.data[key] = append([]byte(nil), value...)
	return f.rev, nil
}

func (f *fakeBucket) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	if f.err != nil {
		return f.err
	}
	delete(f.data, key)
	return nil
}

type fakeEntry struct {
	key   string
	value []byte
	rev   uint64
}

func (e fakeEntry) Bucket() string                  { return DefaultBucket }
func (e fakeEntry) Key() string                     { return e.key }
func (e fakeEntry) Value() []byte                   { return e.value }
func (e fakeEntry) Revision() uint64                { return e.rev }
func (e fakeEntry) Created() time.Time              { return time.Time{} }
func (e fakeEntry) Delta() uint64                   { return 0 }
func (e fakeEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }

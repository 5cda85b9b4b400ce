package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsfeed-engine/internal/cache"
	"newsfeed-engine/internal/domain/entity"
)

type fakeRemote struct {
	store map[string][]byte
	err   error
}

func newFakeRemote() *fakeRemote { return &fakeRemote{store: map[string][]byte{}} }

func (f *fakeRemote) Get(_ context.Context, key string) ([]byte, time.Duration, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	v, ok := f.store[key]
	if !ok {
		return nil, 0, nil
	}
	return v, time.Minute, nil
}

func (f *fakeRemote) Set(_ context.Context, key string, payload []byte, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.store[key] = payload
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, key string) error {
	delete(f.store, key)
	return nil
}

func (f *fakeRemote) Clear(context.Context, string) error {
	f.store = map[string][]byte{}
	return nil
}

func TestCache_SetGet_RoundTrips(t *testing.T) {
	c := cache.New(nil)
	items := []entity.NewsItem{{ID: "1", Title: "a"}}
	payload, err := cache.EncodeItems(items)
	require.NoError(t, err)

	c.Set(context.Background(), "source:bbc", payload, time.Minute)

	got, ok := c.Get(context.Background(), "source:bbc")
	require.True(t, ok)

	decoded, err := cache.DecodeItems(got)
	require.NoError(t, err)
	assert.Equal(t, items, decoded)
}

func TestCache_Get_ExpiredEntryIsMiss(t *testing.T) {
	c := cache.New(nil)
	c.Set(context.Background(), "k", []byte(`[]`), -time.Second)

	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestCache_RemoteFailureDegradesGracefully(t *testing.T) {
	remote := newFakeRemote()
	remote.err = errors.New("connection reset")
	c := cache.New(remote)

	c.Set(context.Background(), "k", []byte(`[]`), time.Minute)
	_, ok := c.Get(context.Background(), "missing-key")
	assert.False(t, ok)
}

func TestCache_RemoteHitRepopulatesMemory(t *testing.T) {
	remote := newFakeRemote()
	remote.store["k"] = []byte(`[{"ID":"1"}]`)
	c := cache.New(remote)

	payload, ok := c.Get(context.Background(), "k")
	require.True(t, ok)
	assert.JSONEq(t, `[{"ID":"1"}]`, string(payload))
	assert.True(t, c.Exists("k"))
}

func TestCache_Clear_RemovesMatchingPrefix(t *testing.T) {
	c := cache.New(nil)
	c.Set(context.Background(), "source:a", []byte(`[]`), time.Minute)
	c.Set(context.Background(), "source:b", []byte(`[]`), time.Minute)
	c.Set(context.Background(), "other:c", []byte(`[]`), time.Minute)

	c.Clear(context.Background(), "source:*")

	assert.False(t, c.Exists("source:a"))
	assert.False(t, c.Exists("source:b"))
	assert.True(t, c.Exists("other:c"))
}

func TestCache_TTL_ReflectsRemainingTime(t *testing.T) {
	c := cache.New(nil)
	c.Set(context.Background(), "k", []byte(`[]`), time.Minute)

	ttl, ok := c.TTL("k")
	require.True(t, ok)
	assert.LessOrEqual(t, ttl, time.Minute)
	assert.Greater(t, ttl, 50*time.Second)
}

func TestCache_Stats_ReportsEntryCount(t *testing.T) {
	c := cache.New(nil)
	c.Set(context.Background(), "a", []byte(`[]`), time.Minute)
	c.Set(context.Background(), "b", []byte(`[]`), time.Minute)

	stats := c.Stats()
	assert.Equal(t, 2, stats.EntryCount)
	assert.Len(t, stats.KeyTTLs, 2)
}

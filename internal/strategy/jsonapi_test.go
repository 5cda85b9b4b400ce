package strategy_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsfeed-engine/internal/domain/entity"
	"newsfeed-engine/internal/httpx"
	"newsfeed-engine/internal/strategy"
)

func fastNetwork() entity.NetworkConfig {
	return entity.NetworkConfig{
		MaxRetries:     1,
		RetryBaseDelay: time.Millisecond,
		TotalTimeout:   5 * time.Second,
	}
}

func jsonAPIDescriptor(t *testing.T, apiURLs ...string) *entity.SourceDescriptor {
	t.Helper()
	d := &entity.SourceDescriptor{
		SourceID: "json-source",
		Name:     "JSON Source",
		Kind:     entity.SourceKindJSONAPI,
		JSONAPI: entity.JSONAPIConfig{
			DataPath: "data.items",
		},
		Network: fastNetwork(),
	}
	if len(apiURLs) == 1 {
		d.JSONAPI.APIURL = apiURLs[0]
	} else {
		d.JSONAPI.APIURLs = apiURLs
	}
	require.NoError(t, d.Validate())
	return d
}

func TestJSONAPIStrategy_ExtractsByDataPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"items":[
			{"title":"First story","url":"https://example.com/1","published_at":"2026-01-15 09:00:00","summary":"s1"},
			{"title":"Second story","url":"https://example.com/2","date":"5 minutes ago"}
		]}}`))
	}))
	defer srv.Close()

	s := strategy.NewJSONAPIStrategy(jsonAPIDescriptor(t, srv.URL), httpx.NewClient(nil))
	items, err := s.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "First story", items[0].Title)
	assert.Equal(t, "https://example.com/1", items[0].URL)
	assert.Equal(t, "s1", items[0].Summary)
	assert.Equal(t, "json-source", items[0].SourceID)
	assert.Equal(t, "JSON Source", items[0].SourceName)
	assert.NotEmpty(t, items[0].ID, "normalization derives stable IDs")
	assert.WithinDuration(t, time.Now().Add(-5*time.Minute), items[1].PublishedAt, time.Minute)
}

func TestJSONAPIStrategy_MergesEndpointsAndDedups(t *testing.T) {
	payloadA := `{"data":{"items":[
		{"title":"Shared","url":"https://example.com/shared"},
		{"title":"Only A","url":"https://example.com/a"}
	]}}`
	payloadB := `{"data":{"items":[
		{"title":"Shared","url":"https://example.com/shared"},
		{"title":"Only B","url":"https://example.com/b"}
	]}}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/a" {
			_, _ = w.Write([]byte(payloadA))
			return
		}
		_, _ = w.Write([]byte(payloadB))
	}))
	defer srv.Close()

	d := jsonAPIDescriptor(t, srv.URL+"/a", srv.URL+"/b")
	s := strategy.NewJSONAPIStrategy(d, httpx.NewClient(nil))
	items, err := s.Fetch(context.Background())

	require.NoError(t, err)
	assert.Len(t, items, 3, "shared URL appears once")
}

func TestJSONAPIStrategy_AllEndpointsFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := strategy.NewJSONAPIStrategy(jsonAPIDescriptor(t, srv.URL), httpx.NewClient(nil))
	_, err := s.Fetch(context.Background())
	assert.Error(t, err)
}

func TestJSONAPIStrategy_EmptyDataPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"items":[]}}`))
	}))
	defer srv.Close()

	s := strategy.NewJSONAPIStrategy(jsonAPIDescriptor(t, srv.URL), httpx.NewClient(nil))
	_, err := s.Fetch(context.Background())
	assert.Error(t, err, "zero extracted items is an error, letting the wrapper protect its cache")
}

package registry_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsfeed-engine/internal/domain/entity"
	"newsfeed-engine/internal/registry"
)

func writeSourceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDescriptorsFromFile(t *testing.T) {
	path := writeSourceFile(t, `
sources:
  - source_id: bbc
    name: BBC News
    kind: RSS
    url: https://feeds.bbci.co.uk/news/rss.xml
    category: world
    language: en
    update_interval: 15m
    cache_ttl: 10m
    min_interval: 5m
    max_interval: 1h
    network:
      needs_proxy: true
      proxy_group: europe
      max_retries: 2
  - source_id: yicai
    kind: JSON_API
    json_api:
      api_url: https://example.com/api
      data_path: data.items
    enable_adaptive: false
`)

	descriptors, warnings, err := registry.LoadDescriptorsFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, descriptors, 2)

	bbc := descriptors[0]
	assert.Equal(t, "bbc", bbc.SourceID)
	assert.Equal(t, "BBC News", bbc.Name)
	assert.Equal(t, entity.SourceKindRSS, bbc.Kind)
	assert.Equal(t, 15*time.Minute, bbc.UpdateInterval)
	assert.Equal(t, 10*time.Minute, bbc.CacheTTL)
	assert.True(t, bbc.EnableAdaptive, "adaptive defaults on when unspecified")
	wantNetwork := entity.NetworkConfig{
		NeedsProxy: true,
		ProxyGroup: "europe",
		MaxRetries: 2,
	}
	if diff := cmp.Diff(wantNetwork, bbc.Network); diff != "" {
		t.Errorf("network config mismatch (-want +got):\n%s", diff)
	}

	yicai := descriptors[1]
	assert.Equal(t, entity.SourceKindJSONAPI, yicai.Kind)
	assert.Equal(t, "data.items", yicai.JSONAPI.DataPath)
	assert.False(t, yicai.EnableAdaptive)
}

func TestLoadDescriptorsFromFile_DuplicateSourceIDFailsLoudly(t *testing.T) {
	path := writeSourceFile(t, `
sources:
  - source_id: bbc
    kind: RSS
    url: https://example.com/a
  - source_id: bbc
    kind: RSS
    url: https://example.com/b
`)

	_, _, err := registry.LoadDescriptorsFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate source_id")
}

func TestLoadDescriptorsFromFile_InvalidEntriesAreWarnings(t *testing.T) {
	path := writeSourceFile(t, `
sources:
  - source_id: good
    kind: RSS
    url: https://example.com/feed
  - source_id: bad
    kind: TELEPATHY
    url: https://example.com/mind
`)

	descriptors, warnings, err := registry.LoadDescriptorsFromFile(path)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "good", descriptors[0].SourceID)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "bad")
}

func TestLoadDescriptorsFromFile_MissingFile(t *testing.T) {
	_, _, err := registry.LoadDescriptorsFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDescriptorsFromFile_MalformedYAML(t *testing.T) {
	path := writeSourceFile(t, "sources: [unclosed")
	_, _, err := registry.LoadDescriptorsFromFile(path)
	assert.Error(t, err)
}

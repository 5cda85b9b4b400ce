package strategy_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsfeed-engine/internal/domain/entity"
	"newsfeed-engine/internal/httpx"
	"newsfeed-engine/internal/strategy"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <link>https://example.com</link>
    <item>
      <title>Feed story one</title>
      <link>https://example.com/1</link>
      <description>Summary one</description>
      <category>world</category>
      <pubDate>Thu, 15 Jan 2026 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Feed story two</title>
      <link>https://example.com/2</link>
      <description>Summary two</description>
    </item>
  </channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <entry>
    <title>Atom entry</title>
    <link href="https://example.com/atom/1"/>
    <updated>2026-01-15T09:00:00Z</updated>
    <summary>Atom summary</summary>
  </entry>
</feed>`

func rssDescriptor(t *testing.T, backups ...string) *entity.SourceDescriptor {
	t.Helper()
	d := &entity.SourceDescriptor{
		SourceID: "rss-source",
		Name:     "RSS Source",
		Kind:     entity.SourceKindRSS,
		URL:      "https://placeholder.invalid/feed",
		RSS:      entity.RSSConfig{BackupURLs: backups},
		Network:  fastNetwork(),
	}
	require.NoError(t, d.Validate())
	return d
}

func TestRSSStrategy_ParsesRSS2(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(rssFeed))
	}))
	defer srv.Close()

	s := strategy.NewRSSStrategy(rssDescriptor(t), httpx.NewClient(nil), srv.URL)
	items, err := s.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Feed story one", items[0].Title)
	assert.Equal(t, "https://example.com/1", items[0].URL)
	assert.Equal(t, "Summary one", items[0].Summary)
	assert.Equal(t, []string{"world"}, items[0].Tags)
	assert.Equal(t, 2026, items[0].PublishedAt.Year())
	assert.Equal(t, "rss-source", items[0].SourceID)
}

func TestRSSStrategy_ParsesAtom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(atomFeed))
	}))
	defer srv.Close()

	s := strategy.NewRSSStrategy(rssDescriptor(t), httpx.NewClient(nil), srv.URL)
	items, err := s.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Atom entry", items[0].Title)
	assert.Equal(t, "https://example.com/atom/1", items[0].URL)
}

func TestRSSStrategy_FallsBackToBackupURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/primary" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(rssFeed))
	}))
	defer srv.Close()

	d := rssDescriptor(t, srv.URL+"/backup")
	s := strategy.NewRSSStrategy(d, httpx.NewClient(nil), srv.URL+"/primary")
	items, err := s.Fetch(context.Background())

	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestRSSStrategy_AllURLsFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := rssDescriptor(t, srv.URL+"/backup")
	s := strategy.NewRSSStrategy(d, httpx.NewClient(nil), srv.URL+"/primary")
	_, err := s.Fetch(context.Background())
	assert.Error(t, err)
}

func TestRSSStrategy_MalformedFeedTriesNext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			_, _ = w.Write([]byte("this is not xml"))
			return
		}
		_, _ = w.Write([]byte(rssFeed))
	}))
	defer srv.Close()

	d := rssDescriptor(t, srv.URL+"/good")
	s := strategy.NewRSSStrategy(d, httpx.NewClient(nil), srv.URL+"/broken")
	items, err := s.Fetch(context.Background())

	require.NoError(t, err)
	assert.Len(t, items, 2)
}

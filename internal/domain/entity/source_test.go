package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceDescriptor_Validate_DefaultsToRSS(t *testing.T) {
	d := &SourceDescriptor{SourceID: "bbc", URL: "https://feeds.bbci.co.uk/news/rss.xml"}
	require.NoError(t, d.Validate())
	assert.Equal(t, SourceKindRSS, d.Kind)
	assert.Equal(t, "bbc", d.Name)
	assert.Equal(t, 1.0, d.ValidityMultiplier)
	assert.Equal(t, d.UpdateInterval, d.CacheTTL)
}

func TestSourceDescriptor_Validate_RequiresSourceID(t *testing.T) {
	d := &SourceDescriptor{}
	assert.Error(t, d.Validate())
}

func TestSourceDescriptor_Validate_RejectsUnknownKind(t *testing.T) {
	d := &SourceDescriptor{SourceID: "x", Kind: "BOGUS"}
	assert.Error(t, d.Validate())
}

func TestSourceDescriptor_Validate_WebScrapeRequiresSelectors(t *testing.T) {
	d := &SourceDescriptor{SourceID: "x", Kind: SourceKindWebScrape, URL: "https://example.com/list"}
	assert.Error(t, d.Validate())

	d.Selectors = SelectorConfig{Item: ".item", Title: ".title", Link: "a"}
	assert.NoError(t, d.Validate())
}

func TestSourceDescriptor_Validate_JSONAPIRequiresEndpoint(t *testing.T) {
	d := &SourceDescriptor{SourceID: "x", Kind: SourceKindJSONAPI}
	assert.Error(t, d.Validate())

	d.JSONAPI.APIURL = "https://example.com/api"
	assert.NoError(t, d.Validate())
}

func TestSourceDescriptor_Validate_IntervalBounds(t *testing.T) {
	d := &SourceDescriptor{
		SourceID:    "x",
		URL:         "https://example.com/feed",
		MinInterval: time.Hour,
		MaxInterval: time.Minute,
	}
	assert.Error(t, d.Validate())
}

func TestSourceDescriptor_Validate_DoesNotRewriteSourceID(t *testing.T) {
	d := &SourceDescriptor{SourceID: "ifeng-tech", URL: "https://example.com/feed"}
	require.NoError(t, d.Validate())
	assert.Equal(t, "ifeng-tech", d.SourceID)
}

package entity

import (
	"errors"
	"fmt"
	"time"
)

// SourceKind discriminates the fetch strategy used to materialize a source.
type SourceKind string

const (
	SourceKindWebScrape        SourceKind = "WEB_SCRAPE"
	SourceKindJSONAPI          SourceKind = "JSON_API"
	SourceKindRSS              SourceKind = "RSS"
	SourceKindBrowserAutomated SourceKind = "BROWSER_AUTOMATED"
	SourceKindCustomSelectors  SourceKind = "CUSTOM_SELECTORS"
)

var validSourceKinds = map[SourceKind]bool{
	SourceKindWebScrape:        true,
	SourceKindJSONAPI:          true,
	SourceKindRSS:              true,
	SourceKindBrowserAutomated: true,
	SourceKindCustomSelectors:  true,
}

// SelectorConfig holds the CSS selector map used by WEB_SCRAPE and
// CUSTOM_SELECTORS strategies.
type SelectorConfig struct {
	Item    string `json:"item,omitempty"`
	Title   string `json:"title,omitempty"`
	Link    string `json:"link,omitempty"`
	Date    string `json:"date,omitempty"`
	Summary string `json:"summary,omitempty"`
	Content string `json:"content,omitempty"`

	DateFormat string `json:"date_format,omitempty"`
	URLPrefix  string `json:"url_prefix,omitempty"` // prepend to relative links
}

// JSONAPIConfig holds the endpoint and extraction path used by the JSON_API
// strategy.
type JSONAPIConfig struct {
	APIURL   string   `json:"api_url,omitempty"`
	APIURLs  []string `json:"api_urls,omitempty"`
	DataPath string   `json:"data_path,omitempty"` // gjson path, e.g. "data.items"
}

// RSSConfig holds the feed URL fallback chain used by the RSS strategy.
type RSSConfig struct {
	BackupURLs []string `json:"backup_urls,omitempty"`
}

// BrowserConfig holds the lifecycle knobs used by the BROWSER_AUTOMATED
// strategy.
type BrowserConfig struct {
	Headless            bool          `json:"headless,omitempty"`
	SessionTimeout      time.Duration `json:"session_timeout,omitempty"`
	WaitTime            time.Duration `json:"wait_time,omitempty"`
	HTTPFallbackAllowed bool          `json:"http_fallback_allowed,omitempty"`
}

// NetworkConfig holds the per-source network posture: proxying, UA pinning,
// and timeout/retry discipline consumed by the HTTP substrate.
type NetworkConfig struct {
	NeedsProxy           bool     `json:"needs_proxy,omitempty"`
	ProxyFallbackAllowed bool     `json:"proxy_fallback_allowed,omitempty"`
	ProxyGroup           string   `json:"proxy_group,omitempty"`
	UserAgents           []string `json:"user_agents,omitempty"`

	ConnectTimeout time.Duration `json:"connect_timeout,omitempty"`
	ReadTimeout    time.Duration `json:"read_timeout,omitempty"`
	TotalTimeout   time.Duration `json:"total_timeout,omitempty"`

	MaxRetries     int           `json:"max_retries,omitempty"`
	RetryBaseDelay time.Duration `json:"retry_delay,omitempty"`

	// InsecureSkipVerify disables TLS certificate verification. Default
	// false (verify): a source must opt in to skip verification, never the
	// other way around.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty"`
}

// SourceDescriptor is the immutable configuration for one news source. It is
// materialized once at load time and shared read-only by the registry,
// scheduler, and fetch core.
type SourceDescriptor struct {
	SourceID string
	Name     string
	Category string
	Country  string
	Language string

	UpdateInterval time.Duration
	CacheTTL       time.Duration
	MinInterval    time.Duration
	MaxInterval    time.Duration
	EnableAdaptive bool

	// ValidityMultiplier extends cache-validity beyond the default age<ttl
	// rule (age < multiplier*ttl). Default 1.0.
	ValidityMultiplier float64

	Kind SourceKind

	// URL is the primary fetch target for kinds other than JSON_API: the
	// listing page for WEB_SCRAPE/CUSTOM_SELECTORS/BROWSER_AUTOMATED, or the
	// primary feed URL for RSS (ahead of RSS.BackupURLs).
	URL string

	Selectors SelectorConfig
	JSONAPI   JSONAPIConfig
	RSS       RSSConfig
	Browser   BrowserConfig

	// EnableReadability allows the WEB_SCRAPE strategy to fall back to
	// full-article extraction when the selector map yields no content.
	EnableReadability bool

	Network NetworkConfig

	// Config preserves unknown configuration keys verbatim.
	Config map[string]string
}

// Validate checks structural invariants and applies documented defaults.
// It never renames a caller-supplied SourceID: a
// collision or malformed ID is a load-time error, not a silent rewrite.
func (d *SourceDescriptor) Validate() error {
	if d.SourceID == "" {
		return errors.New("source_id is required")
	}
	if d.Name == "" {
		d.Name = d.SourceID
	}

	if d.Kind == "" {
		d.Kind = SourceKindRSS
	}
	if !validSourceKinds[d.Kind] {
		return fmt.Errorf("invalid source kind: %s", d.Kind)
	}

	switch d.Kind {
	case SourceKindWebScrape, SourceKindCustomSelectors:
		if d.Selectors.Item == "" || d.Selectors.Title == "" || d.Selectors.Link == "" {
			return fmt.Errorf("source %s: item/title/link selectors are required for %s", d.SourceID, d.Kind)
		}
		if d.URL == "" {
			return fmt.Errorf("source %s: url is required for %s", d.SourceID, d.Kind)
		}
	case SourceKindBrowserAutomated:
		if d.URL == "" {
			return fmt.Errorf("source %s: url is required for BROWSER_AUTOMATED", d.SourceID)
		}
	case SourceKindJSONAPI:
		if d.JSONAPI.APIURL == "" && len(d.JSONAPI.APIURLs) == 0 {
			return fmt.Errorf("source %s: api_url or api_urls required for JSON_API", d.SourceID)
		}
	case SourceKindRSS:
		if d.URL == "" && len(d.RSS.BackupURLs) == 0 {
			return fmt.Errorf("source %s: url or rss.backup_urls required for RSS", d.SourceID)
		}
	}

	if d.UpdateInterval <= 0 {
		d.UpdateInterval = 30 * time.Minute
	}
	if d.MinInterval <= 0 {
		d.MinInterval = 2 * time.Minute
	}
	if d.MaxInterval <= 0 {
		d.MaxInterval = time.Hour
	}
	if d.MinInterval > d.MaxInterval {
		return fmt.Errorf("source %s: min_interval must not exceed max_interval", d.SourceID)
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = d.UpdateInterval
	}
	if d.ValidityMultiplier <= 0 {
		d.ValidityMultiplier = 1.0
	}

	return nil
}

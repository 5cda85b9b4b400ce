// Package registry materializes the configured source table into running
// sourcecore.Wrapper instances, wiring each descriptor to
// the strategy its Kind names through an explicit, non-reflective switch
// evaluated at startup: an unknown kind is a load-time warning, never a
// silent skip discovered later at fetch time.
package registry

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"newsfeed-engine/internal/domain/entity"
)

// sourceFile is the top-level YAML document shape.
type sourceFile struct {
	Sources []sourceYAML `yaml:"sources"`
}

// sourceYAML mirrors entity.SourceDescriptor in a YAML-friendly shape.
type sourceYAML struct {
	SourceID string `yaml:"source_id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Country  string `yaml:"country"`
	Language string `yaml:"language"`

	Kind string `yaml:"kind"`
	URL  string `yaml:"url"`

	UpdateInterval     string  `yaml:"update_interval"`
	CacheTTL           string  `yaml:"cache_ttl"`
	MinInterval        string  `yaml:"min_interval"`
	MaxInterval        string  `yaml:"max_interval"`
	EnableAdaptive     *bool   `yaml:"enable_adaptive"`
	ValidityMultiplier float64 `yaml:"validity_multiplier"`
	EnableReadability  bool    `yaml:"enable_readability"`

	Selectors *selectorsYAML `yaml:"selectors"`
	JSONAPI   *jsonAPIYAML   `yaml:"json_api"`
	RSS       *rssYAML       `yaml:"rss"`
	Browser   *browserYAML   `yaml:"browser"`
	Network   *networkYAML   `yaml:"network"`

	Config map[string]string `yaml:"config"`
}

type selectorsYAML struct {
	Item       string `yaml:"item"`
	Title      string `yaml:"title"`
	Link       string `yaml:"link"`
	Date       string `yaml:"date"`
	Summary    string `yaml:"summary"`
	Content    string `yaml:"content"`
	DateFormat string `yaml:"date_format"`
	URLPrefix  string `yaml:"url_prefix"`
}

type jsonAPIYAML struct {
	APIURL   string   `yaml:"api_url"`
	APIURLs  []string `yaml:"api_urls"`
	DataPath string   `yaml:"data_path"`
}

type rssYAML struct {
	BackupURLs []string `yaml:"backup_urls"`
}

type browserYAML struct {
	Headless            bool   `yaml:"headless"`
	SessionTimeout      string `yaml:"session_timeout"`
	WaitTime            string `yaml:"wait_time"`
	HTTPFallbackAllowed bool   `yaml:"http_fallback_allowed"`
}

type networkYAML struct {
	NeedsProxy           bool     `yaml:"needs_proxy"`
	ProxyFallbackAllowed bool     `yaml:"proxy_fallback_allowed"`
	ProxyGroup           string   `yaml:"proxy_group"`
	UserAgents           []string `yaml:"user_agents"`
	ConnectTimeout       string   `yaml:"connect_timeout"`
	ReadTimeout          string   `yaml:"read_timeout"`
	TotalTimeout         string   `yaml:"total_timeout"`
	MaxRetries           int      `yaml:"max_retries"`
	RetryBaseDelay       string   `yaml:"retry_delay"`
	InsecureSkipVerify   bool     `yaml:"insecure_skip_verify"`
}

// LoadDescriptorsFromFile parses a YAML source table into validated
// entity.SourceDescriptor values. Descriptors that fail validation are
// reported in the returned warning list and excluded from the result; the
// function itself only errors on an unreadable or malformed file.
func LoadDescriptorsFromFile(path string) ([]*entity.SourceDescriptor, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("registry: read source file %s: %w", path, err)
	}

	var doc sourceFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("registry: parse source file %s: %w", path, err)
	}

	var (
		descriptors []*entity.SourceDescriptor
		warnings    []string
		seen        = make(map[string]bool, len(doc.Sources))
	)

	for _, entry := range doc.Sources {
		if seen[entry.SourceID] {
			return nil, nil, fmt.Errorf("registry: duplicate source_id %q in %s", entry.SourceID, path)
		}
		seen[entry.SourceID] = true

		descriptor := entry.toDescriptor()
		if err := descriptor.Validate(); err != nil {
			warnings = append(warnings, fmt.Sprintf("source %s: %v (skipped)", entry.SourceID, err))
			continue
		}
		descriptors = append(descriptors, descriptor)
	}

	return descriptors, warnings, nil
}

func (s sourceYAML) toDescriptor() *entity.SourceDescriptor {
	d := &entity.SourceDescriptor{
		SourceID: s.SourceID,
		Name:     s.Name,
		Category: s.Category,
		Country:  s.Country,
		Language: s.Language,
		Kind:     entity.SourceKind(s.Kind),
		URL:      s.URL,

		UpdateInterval:     parseDuration(s.UpdateInterval),
		CacheTTL:           parseDuration(s.CacheTTL),
		MinInterval:        parseDuration(s.MinInterval),
		MaxInterval:        parseDuration(s.MaxInterval),
		ValidityMultiplier: s.ValidityMultiplier,
		EnableReadability:  s.EnableReadability,

		Config: s.Config,
	}

	if s.EnableAdaptive != nil {
		d.EnableAdaptive = *s.EnableAdaptive
	} else {
		d.EnableAdaptive = true
	}

	if s.Selectors != nil {
		d.Selectors = entity.SelectorConfig{
			Item: s.Selectors.Item, Title: s.Selectors.Title, Link: s.Selectors.Link,
			Date: s.Selectors.Date, Summary: s.Selectors.Summary, Content: s.Selectors.Content,
			DateFormat: s.Selectors.DateFormat, URLPrefix: s.Selectors.URLPrefix,
		}
	}
	if s.JSONAPI != nil {
		d.JSONAPI = entity.JSONAPIConfig{APIURL: s.JSONAPI.APIURL, APIURLs: s.JSONAPI.APIURLs, DataPath: s.JSONAPI.DataPath}
	}
	if s.RSS != nil {
		d.RSS = entity.RSSConfig{BackupURLs: s.RSS.BackupURLs}
	}
	if s.Browser != nil {
		d.Browser = entity.BrowserConfig{
			Headless: s.Browser.Headless, HTTPFallbackAllowed: s.Browser.HTTPFallbackAllowed,
			SessionTimeout: parseDuration(s.Browser.SessionTimeout), WaitTime: parseDuration(s.Browser.WaitTime),
		}
	}
	if s.Network != nil {
		d.Network = entity.NetworkConfig{
			NeedsProxy: s.Network.NeedsProxy, ProxyFallbackAllowed: s.Network.ProxyFallbackAllowed,
			ProxyGroup: s.Network.ProxyGroup, UserAgents: s.Network.UserAgents,
			ConnectTimeout: parseDuration(s.Network.ConnectTimeout), ReadTimeout: parseDuration(s.Network.ReadTimeout),
			TotalTimeout: parseDuration(s.Network.TotalTimeout), MaxRetries: s.Network.MaxRetries,
			RetryBaseDelay: parseDuration(s.Network.RetryBaseDelay), InsecureSkipVerify: s.Network.InsecureSkipVerify,
		}
	}

	return d
}

func parseDuration(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}

package proxy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileEntry mirrors Config in a YAML-friendly shape for the proxy pool's
// static seed file, matching the source table's own YAML-file-pointed-to-
// by-env-var convention.
type fileEntry struct {
	ID        string `yaml:"id"`
	URL       string `yaml:"url"`
	Group     string `yaml:"group"`
	Priority  int    `yaml:"priority"`
	HealthURL string `yaml:"health_url"`
}

type proxyFile struct {
	Proxies []fileEntry `yaml:"proxies"`
}

// LoadConfigsFromFile reads a proxy pool seed file. A missing or empty path
// is not an error: it simply yields zero configs, leaving the pool to run
// proxy-less (DoRequest then only honors explicit ProxyURLs).
func LoadConfigsFromFile(path string) ([]Config, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read proxy file %s: %w", path, err)
	}

	var doc proxyFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse proxy file %s: %w", path, err)
	}

	configs := make([]Config, 0, len(doc.Proxies))
	for _, e := range doc.Proxies {
		if e.ID == "" || e.URL == "" {
			continue
		}
		configs = append(configs, Config{
			ID:        e.ID,
			URL:       e.URL,
			Group:     e.Group,
			Priority:  e.Priority,
			HealthURL: e.HealthURL,
		})
	}
	return configs, nil
}

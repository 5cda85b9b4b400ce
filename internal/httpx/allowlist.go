package httpx

import "strings"

// geoRestrictedHosts implies NeedsProxy regardless of per-source config.
// Matching is by host suffix so subdomains are covered.
var geoRestrictedHosts = []string{
	"github.com",
	"bloomberg.com",
	"ft.com",
	"bbc.co.uk",
	"ycombinator.com",
	"reuters.com",
}

// ImpliesProxy reports whether host matches the geo-restriction allowlist.
func ImpliesProxy(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, allowed := range geoRestrictedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

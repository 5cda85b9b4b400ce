package entity

import (
	"net"
	"net/netip"
	"net/url"
	"strconv"
)

// maxFetchURLLength bounds URLs accepted into the fetch pipeline. Scraped
// markup occasionally yields kilobyte-long junk hrefs; nothing legitimate
// needs more than this.
const maxFetchURLLength = 2048

// ValidateURL checks that a URL is safe for the fetch pipeline to
// dereference: well-formed, http or https, bounded in length, and not
// resolving into restricted address space. It runs on operator-supplied
// endpoints at load time and on article links lifted from scraped pages
// before any full-content fetch.
func ValidateURL(raw string) error {
	if raw == "" {
		return &ValidationError{Field: "url", Message: "must not be empty"}
	}
	if len(raw) > maxFetchURLLength {
		return &ValidationError{Field: "url", Message: "longer than " + strconv.Itoa(maxFetchURLLength) + " characters"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "url", Message: "not parseable: " + err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "scheme must be http or https"}
	}
	if u.Hostname() == "" {
		return &ValidationError{Field: "url", Message: "missing host"}
	}

	// Resolution failures are tolerated here: the fetch itself will fail
	// with a clearer transport error. Only a successful resolution into
	// restricted space is rejected.
	addrs, err := net.LookupHost(u.Hostname())
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		addr, parseErr := netip.ParseAddr(a)
		if parseErr != nil {
			continue
		}
		if restrictedAddr(addr) {
			return &ValidationError{Field: "url", Message: "resolves into a restricted network"}
		}
	}
	return nil
}

// restrictedAddr reports whether addr sits in address space the fetch
// pipeline must never reach: loopback, RFC 1918 / ULA private ranges, and
// link-local (which covers cloud metadata endpoints at 169.254.169.254).
func restrictedAddr(addr netip.Addr) bool {
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}

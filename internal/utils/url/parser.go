package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL performs comprehensive URL validation
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against a base URL and returns a string
func ResolveURL(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(u).String()
}

// Normalize reduces a URL to a canonical form suitable for deduplication:
// protocol and www. stripped, domain lowercased, path case preserved,
// trailing slashes removed. Returns false for non-http(s) URLs.
func Normalize(urlStr string) (string, bool) {
	s := strings.TrimSpace(urlStr)

	if i := strings.Index(s, "://"); i >= 0 {
		protocol := strings.ToLower(s[:i])
		if protocol != "http" && protocol != "https" {
			return "", false
		}
		s = s[i+3:]
	}

	s = strings.TrimPrefix(s, "www.")

	domain, path, hasPath := strings.Cut(s, "/")
	domain = strings.ToLower(domain)

	full := domain
	if hasPath && path != "" {
		full = domain + "/" + path
	}
	return strings.TrimRight(full, "/"), true
}

package security

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrURLBlocked is returned when a URL is denied by the filter.
var ErrURLBlocked = errors.New("URL blocked by filter")

// URLFilterConfig lists the domains outbound deliveries may reach.
type URLFilterConfig struct {
	// AllowDomains admits a domain and its subdomains. An empty list admits
	// every host not denied.
	AllowDomains []string `yaml:"allow_domains"`
	// DenyDomains wins over AllowDomains.
	DenyDomains []string `yaml:"deny_domains"`
	// AllowHTTP admits plain http URLs. Only https is accepted otherwise.
	AllowHTTP bool `yaml:"allow_http"`
}

// URLFilter checks outbound URLs such as trigger webhooks.
type URLFilter struct {
	allow     []string
	deny      []string
	allowHTTP bool
}

// NewURLFilter builds a filter from cfg.
func NewURLFilter(cfg URLFilterConfig) *URLFilter {
	return &URLFilter{
		allow:     normalizeDomains(cfg.AllowDomains),
		deny:      normalizeDomains(cfg.DenyDomains),
		allowHTTP: cfg.AllowHTTP,
	}
}

func normalizeDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Check returns nil if rawURL may be called.
func (f *URLFilter) Check(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %w", ErrURLBlocked, err)
	}
	switch parsed.Scheme {
	case "https":
	case "http":
		if !f.allowHTTP {
			return fmt.Errorf("%w: plain http is not allowed", ErrURLBlocked)
		}
	default:
		return fmt.Errorf("%w: scheme %q", ErrURLBlocked, parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("%w: empty hostname", ErrURLBlocked)
	}
	for _, d := range f.deny {
		if matchDomain(host, d) {
			return fmt.Errorf("%w: %s (denied)", ErrURLBlocked, host)
		}
	}
	if len(f.allow) == 0 {
		return nil
	}
	for _, a := range f.allow {
		if matchDomain(host, a) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (not in allow list)", ErrURLBlocked, host)
}

// matchDomain reports whether host is domain or one of its subdomains.
func matchDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

package search

import (
	"net/url"
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"
)

// Exclusion matches article hosts against exclude_websites entries.
type Exclusion struct {
	exact []string
	globs []string
}

// NewExclusion compiles entries. An entry matches its own host and every
// subdomain; entries containing * or ? are glob patterns over the host.
func NewExclusion(entries []string) Exclusion {
	var ex Exclusion
	for _, entry := range entries {
		host := normalizeHost(entry)
		if host == "" {
			continue
		}
		if strings.ContainsAny(host, "*?") {
			ex.globs = append(ex.globs, host)
		} else {
			ex.exact = append(ex.exact, host)
		}
	}
	return ex
}

// Empty reports whether nothing is excluded.
func (ex Exclusion) Empty() bool {
	return len(ex.exact) == 0 && len(ex.globs) == 0
}

// Matches reports whether host is excluded.
func (ex Exclusion) Matches(host string) bool {
	host = normalizeHost(host)
	if host == "" {
		return false
	}
	for _, domain := range ex.exact {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	for _, pattern := range ex.globs {
		if wildcard.Match(pattern, host) {
			return true
		}
	}
	return false
}

// Filter returns the articles whose host is not excluded, preserving order.
func (ex Exclusion) Filter(articles []Article) (kept []Article, dropped int) {
	kept = make([]Article, 0, len(articles))
	for _, a := range articles {
		if !ex.Empty() && ex.Matches(ArticleHost(a)) {
			dropped++
			continue
		}
		kept = append(kept, a)
	}
	return kept, dropped
}

// ArticleHost is the publisher host, falling back to the article URL host.
func ArticleHost(a Article) string {
	if host := normalizeHost(a.Publisher.Href); host != "" {
		return host
	}
	return normalizeHost(a.URL)
}

// normalizeHost reduces a URL, host:port or bare domain to a lowercase host.
func normalizeHost(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil {
			raw = u.Host
		}
	}
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.LastIndex(raw, ":"); i >= 0 && !strings.Contains(raw[i:], "]") {
		raw = raw[:i]
	}
	return strings.TrimSuffix(raw, ".")
}

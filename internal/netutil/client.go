// Package netutil builds the outbound HTTP clients used by search providers.
package netutil

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ClientOptions configures NewHTTPClient.
type ClientOptions struct {
	Timeout time.Duration
	// Proxy is a proxy URL; a bare host:port is treated as http.
	Proxy string
	// DisableDNSCache dials with the system resolver instead.
	DisableDNSCache bool
}

// ParseProxy normalizes a profile proxy value into a URL.
func ParseProxy(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("invalid proxy %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid proxy %q: missing host", raw)
	}
	return u, nil
}

// NewHTTPClient returns a client honouring the timeout and proxy settings.
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil

	proxyURL, err := ParseProxy(opts.Proxy)
	if err != nil {
		return nil, err
	}
	if proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if !opts.DisableDNSCache && proxyURL == nil {
		transport.DialContext = DialContextWithCache
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

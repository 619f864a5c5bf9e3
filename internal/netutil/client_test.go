package netutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProxy(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"127.0.0.1:3128", "http://127.0.0.1:3128", false},
		{"https://proxy.example.com:8443", "https://proxy.example.com:8443", false},
		{"socks5://10.0.0.1:1080", "socks5://10.0.0.1:1080", false},
		{"ftp://proxy:21", "", true},
		{"http://", "", true},
		{"http://bad host:80", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, err := ParseProxy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, u)
				return
			}
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestNewHTTPClientAppliesOptions(t *testing.T) {
	client, err := NewHTTPClient(ClientOptions{Timeout: 3 * time.Second, Proxy: "proxy.local:8080"})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	req, _ := http.NewRequest(http.MethodGet, "http://news.example.com", nil)
	proxy, err := transport.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.local:8080", proxy.String())
}

func TestNewHTTPClientRejectsBadProxy(t *testing.T) {
	_, err := NewHTTPClient(ClientOptions{Proxy: "gopher://x:70"})
	require.Error(t, err)
}

func TestNewHTTPClientDefaultTimeout(t *testing.T) {
	client, err := NewHTTPClient(ClientOptions{})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, client.Timeout)
}

func TestDialContextWithCacheReachesServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	client, err := NewHTTPClient(ClientOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
}

func TestDialContextWithCacheBadAddress(t *testing.T) {
	_, err := DialContextWithCache(context.Background(), "tcp", "missing-port")
	require.Error(t, err)
}

func TestSetDNSCacheTTL(t *testing.T) {
	t.Cleanup(func() { SetDNSCacheTTL(DefaultDNSCacheTTL) })

	SetDNSCacheTTL(time.Minute)
	assert.Equal(t, time.Minute, dnsCacheTTL())
	SetDNSCacheTTL(0)
	assert.Equal(t, DefaultDNSCacheTTL, dnsCacheTTL())
}

func TestRefreshIfStale(t *testing.T) {
	r := DNSResolver()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	resolverNow = func() time.Time { return now }
	t.Cleanup(func() {
		resolverNow = time.Now
		SetDNSCacheTTL(DefaultDNSCacheTTL)
	})
	SetDNSCacheTTL(time.Minute)

	resolverMutex.Lock()
	resolverLastFlush = now
	resolverMutex.Unlock()

	refreshIfStale(r)
	resolverMutex.RLock()
	assert.Equal(t, now, resolverLastFlush)
	resolverMutex.RUnlock()

	now = now.Add(2 * time.Minute)
	refreshIfStale(r)
	resolverMutex.RLock()
	assert.Equal(t, now, resolverLastFlush)
	resolverMutex.RUnlock()
}

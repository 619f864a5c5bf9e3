package netutil

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/dnscache"
	"github.com/rs/zerolog/log"
)

// DefaultDNSCacheTTL is used when no positive TTL is configured.
const DefaultDNSCacheTTL = 5 * time.Minute

var (
	globalResolver     *dnscache.Resolver
	globalResolverOnce sync.Once
	resolverMutex      sync.RWMutex
	resolverRefreshTTL = DefaultDNSCacheTTL
	resolverLastFlush  time.Time
	resolverNow        = time.Now
)

// DNSResolver returns the process-wide caching resolver.
func DNSResolver() *dnscache.Resolver {
	globalResolverOnce.Do(func() {
		log.Debug().
			Dur("ttl", dnsCacheTTL()).
			Msg("Initializing DNS resolver cache")
		globalResolver = &dnscache.Resolver{}
		resolverMutex.Lock()
		resolverLastFlush = resolverNow()
		resolverMutex.Unlock()
	})
	return globalResolver
}

// SetDNSCacheTTL updates how long cached lookups are kept.
func SetDNSCacheTTL(ttl time.Duration) {
	resolverMutex.Lock()
	defer resolverMutex.Unlock()

	if ttl <= 0 {
		ttl = DefaultDNSCacheTTL
	}
	resolverRefreshTTL = ttl
}

func dnsCacheTTL() time.Duration {
	resolverMutex.RLock()
	defer resolverMutex.RUnlock()
	return resolverRefreshTTL
}

// refreshIfStale drops cached entries older than the TTL. A CLI run is short,
// so this replaces a background refresh ticker.
func refreshIfStale(r *dnscache.Resolver) {
	resolverMutex.Lock()
	stale := resolverNow().Sub(resolverLastFlush) >= resolverRefreshTTL
	if stale {
		resolverLastFlush = resolverNow()
	}
	resolverMutex.Unlock()

	if stale {
		r.Refresh(true)
		log.Debug().Msg("DNS cache refreshed")
	}
}

// DialContextWithCache dials address after resolving its host through the cache.
func DialContextWithCache(ctx context.Context, network, address string) (net.Conn, error) {
	resolver := DNSResolver()
	refreshIfStale(resolver)

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	ips, err := resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, &net.DNSError{
			Err:  "no IP addresses found",
			Name: host,
		}
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	var lastErr error
	for _, ip := range ips {
		conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

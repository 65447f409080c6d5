package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"fib-scannerv1/internal/model"
	redisstore "fib-scannerv1/internal/store/redis"
)

// DefaultCacheTTL keeps intraday fetches warm across a batch scan without
// serving stale closes the next day.
const DefaultCacheTTL = 15 * time.Minute

// CachedProvider wraps a Provider with a Redis TTL cache. Repeated calls
// with the same arguments inside the TTL window return the same bars, which
// is exactly the consistency the scanner requires of its data source.
type CachedProvider struct {
	inner Provider
	cache *redisstore.Cache
	ttl   time.Duration

	// Metric hooks, optional.
	OnHit  func()
	OnMiss func()
}

// NewCachedProvider decorates inner with cache. ttl <= 0 uses the default.
func NewCachedProvider(inner Provider, cache *redisstore.Cache, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProvider{inner: inner, cache: cache, ttl: ttl}
}

func (p *CachedProvider) GetData(ctx context.Context, symbol, exchange, interval string, nBars int) (model.Series, error) {
	key := fmt.Sprintf("bars:%s:%s:%s:%d", exchange, symbol, interval, nBars)

	if cached, err := p.cache.Get(ctx, key); err != nil {
		// Cache trouble is not a fetch failure; fall through to the source.
		log.Printf("[marketdata] cache read error for %s: %v", key, err)
	} else if cached != nil {
		var series model.Series
		if err := json.Unmarshal(cached, &series); err == nil {
			if p.OnHit != nil {
				p.OnHit()
			}
			return series, nil
		}
		log.Printf("[marketdata] dropping corrupt cache entry %s", key)
	}

	if p.OnMiss != nil {
		p.OnMiss()
	}
	series, err := p.inner.GetData(ctx, symbol, exchange, interval, nBars)
	if err != nil {
		return nil, err
	}
	if len(series) > 0 {
		if data, err := json.Marshal(series); err == nil {
			if err := p.cache.Set(ctx, key, data, p.ttl); err != nil {
				log.Printf("[marketdata] cache write error for %s: %v", key, err)
			}
		}
	}
	return series, nil
}

package capabilities

import (
	"context"
	"time"

	"github.com/biodoia/contentfactory/pkg/cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Cached memorizza i risultati di una capability; gli errori del cache
// non interrompono mai la chiamata
type Cached struct {
	inner Capability
	cache cache.Cache
	ttl   time.Duration
}

// WithCache avvolge c con un cache di risultati
func WithCache(c Capability, store cache.Cache, ttl time.Duration) *Cached {
	return &Cached{inner: c, cache: store, ttl: ttl}
}

// Name restituisce il nome della capability avvolta
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Invoke restituisce il risultato dal cache oppure chiama la capability
func (c *Cached) Invoke(ctx context.Context, query string) (string, error) {
	key := "capability:" + cache.HashKey(c.inner.Name(), query)

	if data, err := c.cache.Get(ctx, key); err == nil {
		return string(data), nil
	}

	result, err := c.inner.Invoke(ctx, query)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, key, []byte(result), c.ttl); err != nil {
		log.Warn().Err(err).Str("capability", c.inner.Name()).Msg("Failed to cache capability result")
	}

	return result, nil
}

// RateLimited limita la frequenza delle chiamate a una capability
type RateLimited struct {
	inner   Capability
	limiter *rate.Limiter
}

// WithRateLimit avvolge c con un token bucket di perSecond chiamate al secondo
func WithRateLimit(c Capability, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		inner:   c,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Name restituisce il nome della capability avvolta
func (r *RateLimited) Name() string {
	return r.inner.Name()
}

// Invoke attende un token e poi chiama la capability
func (r *RateLimited) Invoke(ctx context.Context, query string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", invocationErr(r.inner.Name(), query, err)
	}
	return r.inner.Invoke(ctx, query)
}

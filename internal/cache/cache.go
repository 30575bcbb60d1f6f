// Package cache wraps a credentials provider with expiration-aware caching and
// single-flight refresh coalescing. Reads of a still-fresh entry never touch
// the inner provider; when a refresh is needed, exactly one is in flight and
// every concurrent caller shares its result.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/systmms/awscfg/internal/logging"
	"github.com/systmms/awscfg/pkg/credentials"
	"github.com/systmms/awscfg/pkg/sources"
)

// DefaultRefreshBuffer is the margin before absolute expiration at which a
// cached credential is proactively refreshed.
const DefaultRefreshBuffer = 5 * time.Minute

// Config parameterizes a Cache. Zero fields take defaults.
type Config struct {
	// RefreshBuffer overrides DefaultRefreshBuffer.
	RefreshBuffer time.Duration

	// Clock supplies the current time; defaults to the system clock.
	Clock sources.Clock

	Logger *logging.Logger
}

// Cache is the lazy credential cache. It implements credentials.Provider so it
// can stand in front of any provider, typically the default chain.
type Cache struct {
	provider      credentials.Provider
	refreshBuffer time.Duration
	clock         sources.Clock
	logger        *logging.Logger

	// mu guards the cached entry. The entry is replaced wholesale on each
	// successful refresh, never patched.
	mu        sync.RWMutex
	creds     credentials.Credentials
	populated bool

	sf singleflight.Group
}

// New wraps the given provider.
func New(provider credentials.Provider, cfg Config) *Cache {
	c := &Cache{
		provider:      provider,
		refreshBuffer: cfg.RefreshBuffer,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
	}
	if c.refreshBuffer <= 0 {
		c.refreshBuffer = DefaultRefreshBuffer
	}
	if c.clock == nil {
		c.clock = sources.Default().Clock
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	return c
}

// Name implements credentials.Provider.
func (c *Cache) Name() string { return c.provider.Name() }

// Retrieve implements credentials.Provider.
//
// A caller that abandons its wait (context cancellation) does not cancel the
// shared refresh; the refresh completes and later callers use its result.
func (c *Cache) Retrieve(ctx context.Context) (credentials.Credentials, error) {
	if creds, ok := c.fresh(); ok {
		inc(cacheHitsTotal)
		return creds, nil
	}
	inc(cacheMissesTotal)

	// Detach the refresh from this caller's lifetime. The inner providers
	// bound their own remote calls.
	refreshCtx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan("credentials", func() (interface{}, error) {
		return c.refresh(refreshCtx)
	})

	select {
	case <-ctx.Done():
		return credentials.Credentials{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			inc(cacheSharesTotal)
		}
		if res.Err != nil {
			return credentials.Credentials{}, res.Err
		}
		return res.Val.(credentials.Credentials), nil
	}
}

// fresh returns the cached entry when it is populated and its expiration is
// farther than the refresh buffer from now. Credentials without an expiration
// are cached indefinitely.
func (c *Cache) fresh() (credentials.Credentials, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.populated {
		return credentials.Credentials{}, false
	}
	if c.creds.Expires == nil {
		return c.creds, true
	}
	if c.creds.Expires.After(c.clock.Now().Add(c.refreshBuffer)) {
		return c.creds, true
	}
	return credentials.Credentials{}, false
}

// refresh performs one inner-provider call and replaces the entry wholesale on
// success. On failure it serves the previous entry while it is still within
// its absolute expiration, so a transient identity-backend outage does not
// take down callers holding technically valid credentials.
func (c *Cache) refresh(ctx context.Context) (credentials.Credentials, error) {
	// A waiter may race in just after a completed flight repopulated the
	// entry; do not hit the provider again in that case.
	if creds, ok := c.fresh(); ok {
		return creds, nil
	}

	newCreds, err := c.provider.Retrieve(ctx)
	if err == nil {
		c.mu.Lock()
		c.creds = newCreds
		c.populated = true
		c.mu.Unlock()
		return newCreds, nil
	}

	c.mu.RLock()
	prev, populated := c.creds, c.populated
	c.mu.RUnlock()

	now := c.clock.Now()
	if populated && !prev.ExpiredAt(now) {
		inc(cacheStaleFallbackTotal)
		c.logger.Warn("credential refresh from %s failed, serving cached credentials until %s: %v",
			c.provider.Name(), prev.Expires.Format(time.RFC3339), err)
		return prev, nil
	}

	var expiredAt time.Time
	if populated && prev.Expires != nil {
		expiredAt = *prev.Expires
	}
	return credentials.Credentials{}, &credentials.ExpiredError{
		Source:    c.provider.Name(),
		ExpiredAt: expiredAt,
		Err:       err,
	}
}

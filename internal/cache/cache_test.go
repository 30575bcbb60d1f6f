package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/awscfg/internal/cache"
	"github.com/systmms/awscfg/pkg/credentials"
	"github.com/systmms/awscfg/pkg/sources"
)

var testNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

// scriptedProvider returns canned results in order and counts calls. When
// block is non-nil every Retrieve waits on it before answering.
type scriptedProvider struct {
	mu      sync.Mutex
	results []result
	calls   atomic.Int64
	block   chan struct{}
}

type result struct {
	creds credentials.Credentials
	err   error
}

func (p *scriptedProvider) Name() string { return "Scripted" }

func (p *scriptedProvider) Retrieve(ctx context.Context) (credentials.Credentials, error) {
	p.calls.Add(1)
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.results) == 0 {
		return credentials.Credentials{}, errors.New("scripted provider out of results")
	}
	r := p.results[0]
	if len(p.results) > 1 {
		p.results = p.results[1:]
	}
	return r.creds, r.err
}

func expiring(keyID string, expires time.Time) credentials.Credentials {
	return credentials.Credentials{
		AccessKeyID:     keyID,
		SecretAccessKey: "secret",
		Expires:         &expires,
		Source:          "Scripted",
	}
}

func newCache(p credentials.Provider, clock sources.Clock) *cache.Cache {
	return cache.New(p, cache.Config{Clock: clock})
}

func TestCacheServesFreshEntryWithoutProviderCall(t *testing.T) {
	t.Parallel()

	clock := sources.NewManualClock(testNow)
	p := &scriptedProvider{results: []result{
		{creds: expiring("ASIA_ONE", testNow.Add(time.Hour))},
	}}
	c := newCache(p, clock)
	ctx := context.Background()

	first, err := c.Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ASIA_ONE", first.AccessKeyID)

	second, err := c.Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, p.calls.Load(), "a fresh entry must not hit the provider")
}

func TestCacheCachesNonExpiringCredentialsForever(t *testing.T) {
	t.Parallel()

	clock := sources.NewManualClock(testNow)
	p := &scriptedProvider{results: []result{
		{creds: credentials.Credentials{AccessKeyID: "AKID", SecretAccessKey: "s", Source: "Scripted"}},
	}}
	c := newCache(p, clock)
	ctx := context.Background()

	_, err := c.Retrieve(ctx)
	require.NoError(t, err)

	clock.Advance(1000 * time.Hour)
	_, err = c.Retrieve(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestCacheRefreshesInsideBuffer(t *testing.T) {
	t.Parallel()

	clock := sources.NewManualClock(testNow)
	p := &scriptedProvider{results: []result{
		{creds: expiring("ASIA_ONE", testNow.Add(time.Hour))},
		{creds: expiring("ASIA_TWO", testNow.Add(2*time.Hour))},
	}}
	c := newCache(p, clock)
	ctx := context.Background()

	first, err := c.Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ASIA_ONE", first.AccessKeyID)

	// Move inside the refresh buffer: 3 minutes before expiry.
	clock.Advance(57 * time.Minute)

	second, err := c.Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ASIA_TWO", second.AccessKeyID, "entry within the buffer must be refreshed")
	assert.EqualValues(t, 2, p.calls.Load())
}

func TestCacheCoalescesConcurrentRefreshes(t *testing.T) {
	t.Parallel()

	clock := sources.NewManualClock(testNow)
	p := &scriptedProvider{
		results: []result{{creds: expiring("ASIA_SHARED", testNow.Add(time.Hour))}},
		block:   make(chan struct{}),
	}
	c := newCache(p, clock)

	const waiters = 8
	var wg sync.WaitGroup
	got := make([]credentials.Credentials, waiters)
	errs := make([]error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], errs[i] = c.Retrieve(context.Background())
		}(i)
	}

	// Let every goroutine reach the singleflight gate, then release.
	time.Sleep(50 * time.Millisecond)
	close(p.block)
	wg.Wait()

	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "ASIA_SHARED", got[i].AccessKeyID)
	}
	assert.EqualValues(t, 1, p.calls.Load(), "concurrent misses must share one refresh")
}

func TestCacheAbandonedWaiterDoesNotCancelRefresh(t *testing.T) {
	t.Parallel()

	clock := sources.NewManualClock(testNow)
	p := &scriptedProvider{
		results: []result{{creds: expiring("ASIA_LATE", testNow.Add(time.Hour))}},
		block:   make(chan struct{}),
	}
	c := newCache(p, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Retrieve(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	// The refresh keeps running; once it completes, the next caller is a
	// cache hit.
	close(p.block)
	require.Eventually(t, func() bool {
		creds, err := c.Retrieve(context.Background())
		return err == nil && creds.AccessKeyID == "ASIA_LATE"
	}, time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestCacheServesStaleEntryWhenRefreshFails(t *testing.T) {
	t.Parallel()

	clock := sources.NewManualClock(testNow)
	p := &scriptedProvider{results: []result{
		{creds: expiring("ASIA_STALE", testNow.Add(time.Hour))},
		{err: &credentials.UnreachableError{Source: "Scripted", Err: errors.New("refused")}},
	}}
	c := newCache(p, clock)
	ctx := context.Background()

	_, err := c.Retrieve(ctx)
	require.NoError(t, err)

	// Inside the buffer but before absolute expiry: refresh fails, the stale
	// entry is still valid and must be served.
	clock.Advance(58 * time.Minute)

	creds, err := c.Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ASIA_STALE", creds.AccessKeyID)
	assert.EqualValues(t, 2, p.calls.Load())
}

func TestCacheExpiredEntryWithFailedRefreshIsTerminal(t *testing.T) {
	t.Parallel()

	clock := sources.NewManualClock(testNow)
	refreshErr := &credentials.UnreachableError{Source: "Scripted", Err: errors.New("refused")}
	p := &scriptedProvider{results: []result{
		{creds: expiring("ASIA_DEAD", testNow.Add(time.Hour))},
		{err: refreshErr},
	}}
	c := newCache(p, clock)
	ctx := context.Background()

	_, err := c.Retrieve(ctx)
	require.NoError(t, err)

	// Past absolute expiry: stale fallback is not allowed.
	clock.Advance(2 * time.Hour)

	_, err = c.Retrieve(ctx)
	require.Error(t, err)

	var expired *credentials.ExpiredError
	require.True(t, errors.As(err, &expired))
	assert.Equal(t, "Scripted", expired.Source)
	assert.Equal(t, testNow.Add(time.Hour), expired.ExpiredAt)
	assert.ErrorIs(t, err, refreshErr)
}

func TestCacheFirstRetrieveFailureHasNoFallback(t *testing.T) {
	t.Parallel()

	clock := sources.NewManualClock(testNow)
	p := &scriptedProvider{results: []result{
		{err: &credentials.UnreachableError{Source: "Scripted", Err: errors.New("refused")}},
	}}
	c := newCache(p, clock)

	_, err := c.Retrieve(context.Background())
	require.Error(t, err)

	var expired *credentials.ExpiredError
	require.True(t, errors.As(err, &expired))
	assert.True(t, expired.ExpiredAt.IsZero())
}

func TestCacheName(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{}
	assert.Equal(t, "Scripted", cache.New(p, cache.Config{}).Name())
}

package currency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// tableFetcher serves fixed rate tables and counts calls per base
type tableFetcher struct {
	mu     sync.Mutex
	tables map[string]map[string]float64
	calls  map[string]int
	err    error
}

func newTableFetcher() *tableFetcher {
	return &tableFetcher{
		tables: map[string]map[string]float64{
			"EUR": {"USD": 1.08, "GBP": 0.86, "EUR": 1},
			"USD": {"EUR": 1 / 1.08, "GBP": 0.79, "USD": 1},
			"GBP": {"USD": 1.27, "EUR": 1.16, "GBP": 1},
		},
		calls: make(map[string]int),
	}
}

func (f *tableFetcher) Fetch(ctx context.Context, base string) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[base]++
	if f.err != nil {
		return nil, f.err
	}
	table, ok := f.tables[base]
	if !ok {
		return nil, errors.New("unknown base")
	}
	return table, nil
}

func (f *tableFetcher) Calls(base string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[base]
}

func newTestCache(f FetchFunc, clock *fakeClock, capacity int) *RateCache {
	return NewRateCache(f, RateCacheConfig{
		TTL:      time.Hour,
		Timeout:  time.Second,
		Capacity: capacity,
		Now:      clock.Now,
	}, zerolog.Nop())
}

func TestRateCache_SameCurrencyShortCircuits(t *testing.T) {
	fetcher := newTableFetcher()
	cache := newTestCache(fetcher.Fetch, newFakeClock(), 1)

	rate, err := cache.GetExchangeRate(context.Background(), "usd", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
	assert.Zero(t, cache.Fetches())
}

func TestRateCache_CachesWithinTTL(t *testing.T) {
	fetcher := newTableFetcher()
	clock := newFakeClock()
	cache := newTestCache(fetcher.Fetch, clock, 1)
	ctx := context.Background()

	rate, err := cache.GetExchangeRate(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.08, rate)

	clock.Advance(59 * time.Minute)
	rate, err = cache.GetExchangeRate(ctx, "EUR", "GBP")
	require.NoError(t, err)
	assert.Equal(t, 0.86, rate)
	assert.Equal(t, 1, fetcher.Calls("EUR"))

	clock.Advance(time.Minute)
	_, err = cache.GetExchangeRate(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.Calls("EUR"), "expired table is refetched")
}

func TestRateCache_SingleSlotReplacesWholesale(t *testing.T) {
	fetcher := newTableFetcher()
	cache := newTestCache(fetcher.Fetch, newFakeClock(), 1)
	ctx := context.Background()

	_, err := cache.GetExchangeRate(ctx, "EUR", "USD")
	require.NoError(t, err)
	_, err = cache.GetExchangeRate(ctx, "GBP", "USD")
	require.NoError(t, err)

	assert.Equal(t, []string{"GBP"}, cache.Bases())
	_, ok := cache.Snapshot("EUR")
	assert.False(t, ok)

	_, err = cache.GetExchangeRate(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.Calls("EUR"), "alternating bases thrash a single slot")
}

func TestRateCache_LRUKeepsRecentBases(t *testing.T) {
	fetcher := newTableFetcher()
	cache := newTestCache(fetcher.Fetch, newFakeClock(), 2)
	ctx := context.Background()

	lookups := []Pair{
		{From: "EUR", To: "USD"},
		{From: "GBP", To: "USD"},
		{From: "EUR", To: "GBP"},
		{From: "USD", To: "GBP"},
	}
	for _, p := range lookups {
		_, err := cache.GetExchangeRate(ctx, p.From, p.To)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"USD", "EUR"}, cache.Bases(), "GBP was least recently used")
	assert.Equal(t, 1, fetcher.Calls("EUR"))
}

func TestRateCache_SnapshotDoesNotRefreshRecency(t *testing.T) {
	fetcher := newTableFetcher()
	clock := newFakeClock()
	cache := newTestCache(fetcher.Fetch, clock, 2)
	ctx := context.Background()

	for _, base := range []string{"EUR", "GBP"} {
		_, err := cache.GetExchangeRate(ctx, base, "USD")
		require.NoError(t, err)
	}

	_, ok := cache.Snapshot("EUR")
	require.True(t, ok)

	_, err := cache.GetExchangeRate(ctx, "USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, []string{"USD", "GBP"}, cache.Bases(), "reading a snapshot is not a use")

	// An expired table is replaced in place, not duplicated
	clock.Advance(2 * time.Hour)
	_, err = cache.GetExchangeRate(ctx, "GBP", "USD")
	require.NoError(t, err)
	assert.Equal(t, []string{"GBP", "USD"}, cache.Bases())
	assert.Equal(t, 2, fetcher.Calls("GBP"))
}

func TestRateCache_UnsupportedCurrency(t *testing.T) {
	fetcher := newTableFetcher()
	cache := newTestCache(fetcher.Fetch, newFakeClock(), 1)

	_, err := cache.GetExchangeRate(context.Background(), "EUR", "JPY")
	require.Error(t, err)

	var unsupported *UnsupportedCurrencyError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "EUR", unsupported.Base)
	assert.Equal(t, "JPY", unsupported.Target)
	assert.False(t, IsRateProviderError(err))
}

func TestRateCache_ProviderError(t *testing.T) {
	fetcher := newTableFetcher()
	fetcher.err = errors.New("connection refused")
	cache := newTestCache(fetcher.Fetch, newFakeClock(), 1)

	_, err := cache.GetExchangeRate(context.Background(), "EUR", "USD")
	require.Error(t, err)
	assert.True(t, IsRateProviderError(err))
	assert.ErrorContains(t, err, "connection refused")

	var providerErr *RateProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "EUR", providerErr.Base)
}

func TestRateCache_InvalidCode(t *testing.T) {
	cache := newTestCache(newTableFetcher().Fetch, newFakeClock(), 1)

	_, err := cache.GetExchangeRate(context.Background(), "EURO", "USD")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, cache.Fetches())
}

func TestRateCache_FetchTimeout(t *testing.T) {
	slow := func(ctx context.Context, base string) (map[string]float64, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	cache := NewRateCache(slow, RateCacheConfig{Timeout: 20 * time.Millisecond}, zerolog.Nop())

	_, err := cache.GetExchangeRate(context.Background(), "EUR", "USD")
	require.Error(t, err)
	assert.True(t, IsRateProviderError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateCache_ConcurrentCallersShareOneFetch(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context, base string) (map[string]float64, error) {
		calls.Add(1)
		<-release
		return map[string]float64{"USD": 1.1}, nil
	}
	cache := newTestCache(fetch, newFakeClock(), 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate, err := cache.GetExchangeRate(context.Background(), "EUR", "USD")
			assert.NoError(t, err)
			assert.Equal(t, 1.1, rate)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestRateCache_SnapshotIsACopy(t *testing.T) {
	cache := newTestCache(newTableFetcher().Fetch, newFakeClock(), 1)
	_, err := cache.GetExchangeRate(context.Background(), "EUR", "USD")
	require.NoError(t, err)

	snap, ok := cache.Snapshot("EUR")
	require.True(t, ok)
	snap.Rates["USD"] = 99

	rate, err := cache.GetExchangeRate(context.Background(), "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.08, rate)

	cache.Invalidate()
	assert.Empty(t, cache.Bases())
}

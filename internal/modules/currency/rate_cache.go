package currency

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/utils"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// FetchFunc fetches the complete rate table for a base currency
type FetchFunc func(ctx context.Context, base string) (map[string]float64, error)

// RateSource provides the multiplier such that amount_in_to = amount_in_from * rate
type RateSource interface {
	GetExchangeRate(ctx context.Context, from, to string) (float64, error)
}

// Snapshot is one cached rate table
type Snapshot struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// RateCacheConfig configures a RateCache
type RateCacheConfig struct {
	TTL      time.Duration    // Freshness window, defaults to one hour
	Timeout  time.Duration    // Upper bound for one provider fetch, defaults to 8s
	Capacity int              // Number of per-base tables kept, defaults to 1
	Now      func() time.Time // Clock, defaults to time.Now
}

// RateCache holds process-wide exchange rate tables keyed by base currency.
//
// With Capacity 1 it keeps a single table: a request for a different base, or
// an expired table, triggers a full refresh that replaces the table wholesale.
// Larger capacities keep the most recently used bases.
type RateCache struct {
	fetch   FetchFunc
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	tables  *lru.Cache[string, *Snapshot]
	group   singleflight.Group
	fetches atomic.Int64

	log zerolog.Logger
}

// NewRateCache creates a new rate cache around fetch
func NewRateCache(fetch FetchFunc, cfg RateCacheConfig, log zerolog.Logger) *RateCache {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	// New only fails for a non-positive size, which was clamped above
	tables, _ := lru.New[string, *Snapshot](cfg.Capacity)

	return &RateCache{
		fetch:   fetch,
		ttl:     cfg.TTL,
		timeout: cfg.Timeout,
		now:     cfg.Now,
		tables:  tables,
		log:     log.With().Str("service", "rate_cache").Logger(),
	}
}

// GetExchangeRate returns the multiplier converting from into to.
// Equal codes return 1 without touching the provider.
//
// Errors:
// - ErrInvalidInput (wrapped) for malformed codes
// - *UnsupportedCurrencyError when to is absent from the table for from
// - *RateProviderError when the table could not be fetched
func (c *RateCache) GetExchangeRate(ctx context.Context, from, to string) (float64, error) {
	from, err := utils.NormalizeCurrencyCode(from)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	to, err = utils.NormalizeCurrencyCode(to)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if from == to {
		return 1.0, nil
	}

	snap, err := c.table(ctx, from)
	if err != nil {
		return 0, err
	}

	rate, ok := snap.Rates[to]
	if !ok {
		return 0, &UnsupportedCurrencyError{Base: from, Target: to}
	}

	return rate, nil
}

// Snapshot returns a copy of the cached table for base, if one is held.
// It does not count as a use for eviction purposes.
func (c *RateCache) Snapshot(base string) (Snapshot, bool) {
	snap, ok := c.tables.Peek(base)
	if !ok {
		return Snapshot{}, false
	}

	rates := make(map[string]float64, len(snap.Rates))
	for k, v := range snap.Rates {
		rates[k] = v
	}
	return Snapshot{Base: snap.Base, Rates: rates, FetchedAt: snap.FetchedAt}, true
}

// Bases returns the cached base currencies, most recently used first
func (c *RateCache) Bases() []string {
	keys := c.tables.Keys() // Oldest first
	bases := make([]string, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		bases = append(bases, keys[i])
	}
	return bases
}

// Invalidate drops every cached table
func (c *RateCache) Invalidate() {
	c.tables.Purge()
}

// Fetches returns how many provider fetches were attempted
func (c *RateCache) Fetches() int64 {
	return c.fetches.Load()
}

// table returns a fresh snapshot for base, refreshing it if needed
func (c *RateCache) table(ctx context.Context, base string) (*Snapshot, error) {
	if snap := c.fresh(base); snap != nil {
		return snap, nil
	}

	// One outstanding fetch per base; late callers share the result
	ch := c.group.DoChan(base, func() (interface{}, error) {
		if snap := c.fresh(base); snap != nil {
			return snap, nil
		}
		return c.refresh(context.WithoutCancel(ctx), base)
	})

	select {
	case <-ctx.Done():
		return nil, &RateProviderError{Base: base, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// fresh returns the cached snapshot for base when it is inside the freshness window.
// Only a fresh hit marks the base as recently used.
func (c *RateCache) fresh(base string) *Snapshot {
	snap, ok := c.tables.Peek(base)
	if !ok || c.now().Sub(snap.FetchedAt) >= c.ttl {
		return nil
	}
	c.tables.Get(base)
	return snap
}

// refresh fetches the table for base and stores it, evicting the least recently used table when full
func (c *RateCache) refresh(ctx context.Context, base string) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.fetches.Add(1)
	start := c.now()

	rates, err := c.fetch(ctx, base)
	if err != nil {
		c.log.Warn().Err(err).Str("base", base).Msg("Rate table fetch failed")
		return nil, &RateProviderError{Base: base, Err: err}
	}
	if len(rates) == 0 {
		return nil, &RateProviderError{Base: base, Err: fmt.Errorf("empty rate table")}
	}

	table := make(map[string]float64, len(rates))
	for code, rate := range rates {
		table[code] = rate
	}
	snap := &Snapshot{Base: base, Rates: table, FetchedAt: c.now()}

	if evicted := c.tables.Add(base, snap); evicted {
		c.log.Debug().Str("base", base).Msg("Evicted least recently used rate table")
	}

	c.log.Debug().
		Str("base", base).
		Int("currencies", len(table)).
		Dur("took", c.now().Sub(start)).
		Msg("Rate table refreshed")

	return snap, nil
}

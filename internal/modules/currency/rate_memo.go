package currency

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ahmed-aleryani/coinmind/internal/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Pair is a directed currency pair
type Pair struct {
	From string
	To   string
}

func (p Pair) key() string {
	return p.From + "->" + p.To
}

type memoEntry struct {
	rate float64
	err  error
}

// RateMemo memoizes rate lookups for the lifetime of one aggregation call.
// Each distinct pair reaches the underlying source at most once; failures are memoized too.
type RateMemo struct {
	src     RateSource
	group   singleflight.Group
	mu      sync.Mutex
	results map[string]memoEntry
	lookups int
}

// NewRateMemo creates an empty memo over src
func NewRateMemo(src RateSource) *RateMemo {
	return &RateMemo{
		src:     src,
		results: make(map[string]memoEntry),
	}
}

// GetExchangeRate implements RateSource
func (m *RateMemo) GetExchangeRate(ctx context.Context, from, to string) (float64, error) {
	from, err := utils.NormalizeCurrencyCode(from)
	if err != nil {
		return 0, fmt.Errorf("%w: from: %v", ErrInvalidInput, err)
	}
	to, err = utils.NormalizeCurrencyCode(to)
	if err != nil {
		return 0, fmt.Errorf("%w: to: %v", ErrInvalidInput, err)
	}
	if from == to {
		return 1.0, nil
	}

	key := Pair{From: from, To: to}.key()

	m.mu.Lock()
	if e, ok := m.results[key]; ok {
		m.mu.Unlock()
		return e.rate, e.err
	}
	m.mu.Unlock()

	v, _, _ := m.group.Do(key, func() (interface{}, error) {
		m.mu.Lock()
		if e, ok := m.results[key]; ok {
			m.mu.Unlock()
			return e, nil
		}
		m.lookups++
		m.mu.Unlock()

		rate, err := m.src.GetExchangeRate(ctx, from, to)
		e := memoEntry{rate: rate, err: err}

		m.mu.Lock()
		m.results[key] = e
		m.mu.Unlock()
		return e, nil
	})

	e := v.(memoEntry)
	return e.rate, e.err
}

// Prefetch resolves pairs concurrently, at most limit at a time.
// Lookup failures are memoized, not returned; only context cancellation is.
func (m *RateMemo) Prefetch(ctx context.Context, pairs []Pair, limit int) error {
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, p := range pairs {
		p := p
		g.Go(func() error {
			_, _ = m.GetExchangeRate(gctx, p.From, p.To)
			return gctx.Err()
		})
	}

	return g.Wait()
}

// Lookups returns how many distinct pairs reached the underlying source
func (m *RateMemo) Lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

package testing

import (
	"context"
	"sync"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/modules/currency"
	"github.com/stretchr/testify/mock"
)

// MockRateSource is a testify mock implementing currency.RateSource
type MockRateSource struct {
	mock.Mock
}

// GetExchangeRate implements currency.RateSource
func (m *MockRateSource) GetExchangeRate(ctx context.Context, from, to string) (float64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(float64), args.Error(1)
}

// MockRateFetcher is a testify mock whose Fetch method satisfies currency.FetchFunc
type MockRateFetcher struct {
	mock.Mock
}

// Fetch returns the rate table configured for base
func (m *MockRateFetcher) Fetch(ctx context.Context, base string) (map[string]float64, error) {
	args := m.Called(ctx, base)
	rates, _ := args.Get(0).(map[string]float64)
	return rates, args.Error(1)
}

// StaticRates is a RateSource backed by a fixed "FROM->TO" table.
// Missing pairs report *currency.UnsupportedCurrencyError; Err, when set, fails every lookup.
// It counts lookups and is safe for concurrent use.
type StaticRates struct {
	mu    sync.Mutex
	Rates map[string]float64
	Err   error
	calls int
}

// NewStaticRates creates a StaticRates from "FROM->TO" keyed rates
func NewStaticRates(rates map[string]float64) *StaticRates {
	return &StaticRates{Rates: rates}
}

// GetExchangeRate implements currency.RateSource
func (s *StaticRates) GetExchangeRate(ctx context.Context, from, to string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from == to {
		return 1, nil
	}
	s.calls++
	if s.Err != nil {
		return 0, s.Err
	}
	rate, ok := s.Rates[from+"->"+to]
	if !ok {
		return 0, &currency.UnsupportedCurrencyError{Base: from, Target: to}
	}
	return rate, nil
}

// SetErr sets or clears the failure returned by every lookup
func (s *StaticRates) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

// Calls returns how many cross-currency lookups were made
func (s *StaticRates) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Clock is a manually advanced clock for injecting into services
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at now
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

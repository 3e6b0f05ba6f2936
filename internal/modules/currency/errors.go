// Package currency provides exchange rate caching and amount normalization
// into a user's default currency.
package currency

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is wrapped by every error caused by a malformed amount or currency code
var ErrInvalidInput = errors.New("invalid conversion input")

// UnsupportedCurrencyError reports that the provider's table for Base has no rate for Target
type UnsupportedCurrencyError struct {
	Base   string
	Target string
}

func (e *UnsupportedCurrencyError) Error() string {
	return fmt.Sprintf("currency %s is not supported by the rate table for %s", e.Target, e.Base)
}

// RateProviderError reports a transient failure reaching the rate provider
type RateProviderError struct {
	Base string
	Err  error
}

func (e *RateProviderError) Error() string {
	return fmt.Sprintf("rate provider failed for base %s: %v", e.Base, e.Err)
}

func (e *RateProviderError) Unwrap() error {
	return e.Err
}

// IsUnsupportedCurrency reports whether err is or wraps an UnsupportedCurrencyError
func IsUnsupportedCurrency(err error) bool {
	var target *UnsupportedCurrencyError
	return errors.As(err, &target)
}

// IsRateProviderError reports whether err is or wraps a RateProviderError
func IsRateProviderError(err error) bool {
	var target *RateProviderError
	return errors.As(err, &target)
}

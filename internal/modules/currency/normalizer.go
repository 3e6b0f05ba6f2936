package currency

import (
	"context"
	"fmt"
	"math"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/Ahmed-aleryani/coinmind/internal/utils"
	"github.com/rs/zerolog"
)

type inputKind int

const (
	kindLegacy inputKind = iota + 1
	kindResolved
)

// Input is the amount handed to the Normalizer. Build it with FromLegacyAmount
// or FromResolvedQuadruple; the zero value is invalid.
type Input struct {
	kind     inputKind
	amount   float64
	currency string
	resolved domain.Conversion
}

// FromLegacyAmount wraps a single amount and currency label.
// The amount may be signed; an empty currency means the target currency.
func FromLegacyAmount(amount float64, currency string) Input {
	return Input{kind: kindLegacy, amount: amount, currency: currency}
}

// FromResolvedQuadruple wraps a conversion whose both sides were already resolved by the caller
func FromResolvedQuadruple(c domain.Conversion) Input {
	return Input{kind: kindResolved, resolved: c}
}

// Resolved reports whether the input carries both sides of the conversion
func (in Input) Resolved() bool {
	return in.kind == kindResolved
}

// Negative reports whether the stated original amount was signed negative
func (in Input) Negative() bool {
	if in.kind == kindResolved {
		return in.resolved.OriginalAmount < 0
	}
	return in.amount < 0
}

// Original returns the stated amount and currency before normalization
func (in Input) Original() (float64, string) {
	if in.kind == kindResolved {
		return in.resolved.OriginalAmount, in.resolved.OriginalCurrency
	}
	return in.amount, in.currency
}

// Result is a normalized conversion.
// Degraded is set when the rate lookup failed and the amount was kept unconverted;
// Warning then carries the cause.
type Result struct {
	domain.Conversion
	Degraded bool
	Warning  error
}

// Normalizer turns stated amounts into the canonical dual representation
type Normalizer struct {
	rates RateSource
	log   zerolog.Logger
}

// NewNormalizer creates a new normalizer reading rates from rates
func NewNormalizer(rates RateSource, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		rates: rates,
		log:   log.With().Str("service", "normalizer").Logger(),
	}
}

// WithRateSource returns a normalizer sharing the logger but reading rates from src
func (n *Normalizer) WithRateSource(src RateSource) *Normalizer {
	return &Normalizer{rates: src, log: n.log}
}

// Normalize converts in into target.
//
// Same-currency inputs never call the rate source. A failed rate lookup does not
// return an error: the amount is kept in its original currency with rate 1, a
// warning is logged and the Result is marked Degraded.
//
// Returns an error wrapping ErrInvalidInput only for non-finite amounts or malformed codes.
func (n *Normalizer) Normalize(ctx context.Context, in Input, target string) (Result, error) {
	target, err := utils.NormalizeCurrencyCode(target)
	if err != nil {
		return Result{}, fmt.Errorf("%w: target: %v", ErrInvalidInput, err)
	}

	switch in.kind {
	case kindResolved:
		return n.passThrough(ctx, in.resolved, target)
	case kindLegacy:
		return n.convert(ctx, in.amount, in.currency, target)
	default:
		return Result{}, fmt.Errorf("%w: empty input", ErrInvalidInput)
	}
}

// passThrough accepts a resolved quadruple when it already targets target.
// Quadruples resolved against another currency are re-derived from their original side.
func (n *Normalizer) passThrough(ctx context.Context, c domain.Conversion, target string) (Result, error) {
	if !finite(c.OriginalAmount) || !finite(c.ConvertedAmount) || !finite(c.ConversionRate) || !finite(c.ConversionFee) {
		return Result{}, fmt.Errorf("%w: amounts must be finite", ErrInvalidInput)
	}

	converted := c.ConvertedCurrency
	if converted == "" {
		converted = target
	}
	converted, err := utils.NormalizeCurrencyCode(converted)
	if err != nil {
		return Result{}, fmt.Errorf("%w: converted currency: %v", ErrInvalidInput, err)
	}
	if converted != target {
		return n.convert(ctx, c.OriginalAmount, c.OriginalCurrency, target)
	}

	original := c.OriginalCurrency
	if original == "" {
		original = target
	}
	original, err = utils.NormalizeCurrencyCode(original)
	if err != nil {
		return Result{}, fmt.Errorf("%w: original currency: %v", ErrInvalidInput, err)
	}

	out := domain.Conversion{
		OriginalAmount:    math.Abs(c.OriginalAmount),
		OriginalCurrency:  original,
		ConvertedAmount:   math.Abs(c.ConvertedAmount),
		ConvertedCurrency: target,
		ConversionRate:    c.ConversionRate,
		ConversionFee:     math.Abs(c.ConversionFee),
	}

	if original == target {
		out.ConvertedAmount = out.OriginalAmount
		out.ConversionRate = 1
		out.ConversionFee = 0
	} else if out.ConversionRate <= 0 {
		// Derive the implied rate when the caller only resolved amounts
		out.ConversionRate = 1
		if out.OriginalAmount > 0 {
			out.ConversionRate = out.ConvertedAmount / out.OriginalAmount
		}
	}

	return Result{Conversion: out}, nil
}

func (n *Normalizer) convert(ctx context.Context, amount float64, currency, target string) (Result, error) {
	if !finite(amount) {
		return Result{}, fmt.Errorf("%w: amount must be finite", ErrInvalidInput)
	}

	from := currency
	if from == "" {
		from = target
	}
	from, err := utils.NormalizeCurrencyCode(from)
	if err != nil {
		return Result{}, fmt.Errorf("%w: currency: %v", ErrInvalidInput, err)
	}

	magnitude := math.Abs(amount)

	if from == target {
		return Result{Conversion: sameCurrency(magnitude, from)}, nil
	}

	rate, err := n.rates.GetExchangeRate(ctx, from, target)
	if err != nil {
		n.log.Warn().
			Err(err).
			Str("from", from).
			Str("to", target).
			Float64("amount", magnitude).
			Msg("Rate lookup failed, keeping amount unconverted")
		return Result{
			Conversion: sameCurrency(magnitude, from),
			Degraded:   true,
			Warning:    err,
		}, nil
	}

	return Result{Conversion: domain.Conversion{
		OriginalAmount:    magnitude,
		OriginalCurrency:  from,
		ConvertedAmount:   magnitude * rate,
		ConvertedCurrency: target,
		ConversionRate:    rate,
		ConversionFee:     0,
	}}, nil
}

// Quote is an informational conversion
type Quote struct {
	From      string  `json:"from_currency"`
	To        string  `json:"to_currency"`
	Amount    float64 `json:"amount"`
	Rate      float64 `json:"rate"`
	Converted float64 `json:"converted_amount"`
}

// Convert converts amount for display. Unlike Normalize, rate errors are returned to the caller.
func (n *Normalizer) Convert(ctx context.Context, amount float64, from, to string) (Quote, error) {
	if !finite(amount) {
		return Quote{}, fmt.Errorf("%w: amount must be finite", ErrInvalidInput)
	}
	from, err := utils.NormalizeCurrencyCode(from)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: from: %v", ErrInvalidInput, err)
	}
	to, err = utils.NormalizeCurrencyCode(to)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: to: %v", ErrInvalidInput, err)
	}

	rate, err := n.rates.GetExchangeRate(ctx, from, to)
	if err != nil {
		return Quote{}, err
	}

	return Quote{From: from, To: to, Amount: amount, Rate: rate, Converted: amount * rate}, nil
}

func sameCurrency(amount float64, code string) domain.Conversion {
	return domain.Conversion{
		OriginalAmount:    amount,
		OriginalCurrency:  code,
		ConvertedAmount:   amount,
		ConvertedCurrency: code,
		ConversionRate:    1,
		ConversionFee:     0,
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

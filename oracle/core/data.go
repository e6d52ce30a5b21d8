package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

const RateBroadcastType = "rate_update"

type BreakerState int

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerSnapshot is a point in time view of a single circuit breaker.
type BreakerSnapshot struct {
	State        BreakerState `json:"state"`
	FailureCount int          `json:"failureCount"`
}

// CurrencyPair is an ordered (base, target) tuple. A pair and its inverse are
// distinct, there is no reciprocal derivation anywhere in the oracle.
type CurrencyPair struct {
	Base   string `json:"base"`
	Target string `json:"target"`
}

func NewCurrencyPair(base, target string) (CurrencyPair, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	target = strings.ToUpper(strings.TrimSpace(target))

	if !isValidCurrencyCode(base) {
		return CurrencyPair{}, fmt.Errorf("invalid base currency code: %q", base)
	}

	if !isValidCurrencyCode(target) {
		return CurrencyPair{}, fmt.Errorf("invalid target currency code: %q", target)
	}

	return CurrencyPair{Base: base, Target: target}, nil
}

// ParseCurrencyPair parses the BASE/TARGET textual form.
func ParseCurrencyPair(value string) (CurrencyPair, error) {
	parts := strings.Split(strings.TrimSpace(value), "/")
	if len(parts) != 2 {
		return CurrencyPair{}, fmt.Errorf("invalid currency pair: %q", value)
	}

	return NewCurrencyPair(parts[0], parts[1])
}

func (p CurrencyPair) String() string {
	return p.Base + "/" + p.Target
}

func (p CurrencyPair) CacheKey() string {
	return fmt.Sprintf("rates:%s:%s", p.Base, p.Target)
}

// LatestCacheKey is the no TTL key the ingestion worker overwrites on every
// tick, used for instant lookups that bypass the aggregator.
func (p CurrencyPair) LatestCacheKey() string {
	return fmt.Sprintf("rates:%s:%s:latest", p.Base, p.Target)
}

func isValidCurrencyCode(code string) bool {
	if len(code) < 3 {
		return false
	}

	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}

	return true
}

// ProviderQuote is a single successful fetch from one provider. Immutable
// once produced.
type ProviderQuote struct {
	Provider  string          `json:"provider"`
	Pair      CurrencyPair    `json:"pair"`
	Rate      decimal.Decimal `json:"rate"`
	Timestamp time.Time       `json:"timestamp"`
	Latency   time.Duration   `json:"latency"`
}

// AggregatedRate is the outcome of one aggregation cycle. Immutable once
// produced, the aggregator is its only writer.
type AggregatedRate struct {
	Pair            CurrencyPair    `json:"pair"`
	Rate            decimal.Decimal `json:"rate"`
	ConfidenceLevel string          `json:"confidenceLevel"`
	Providers       []string        `json:"providers"` // insertion order = response order
	PrimaryUsed     bool            `json:"primaryUsed"`
	Timestamp       time.Time       `json:"timestamp"`
	Cached          bool            `json:"cached"`
}

// RateBroadcast is the wire shape relayed to fan-out listeners.
type RateBroadcast struct {
	Type                  string          `json:"type"`
	Pair                  string          `json:"pair"`
	Base                  string          `json:"base"`
	Target                string          `json:"target"`
	Rate                  decimal.Decimal `json:"rate"`
	ConfidenceLevel       string          `json:"confidence_level"`
	ContributingProviders []string        `json:"contributing_providers"`
	PrimaryUsed           bool            `json:"primary_used"`
	Timestamp             time.Time       `json:"timestamp"`
	Cached                bool            `json:"cached"`
}

func NewRateBroadcast(rate AggregatedRate) RateBroadcast {
	return RateBroadcast{
		Type:                  RateBroadcastType,
		Pair:                  rate.Pair.String(),
		Base:                  rate.Pair.Base,
		Target:                rate.Pair.Target,
		Rate:                  rate.Rate,
		ConfidenceLevel:       rate.ConfidenceLevel,
		ContributingProviders: rate.Providers,
		PrimaryUsed:           rate.PrimaryUsed,
		Timestamp:             rate.Timestamp,
		Cached:                rate.Cached,
	}
}

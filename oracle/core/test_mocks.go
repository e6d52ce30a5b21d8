package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type RateFetcherMock struct {
	mock.Mock
	FetchRateFn func(ctx context.Context, pair CurrencyPair) (ProviderQuote, error)
	NameValue   string
}

var _ RateFetcher = (*RateFetcherMock)(nil)

func (m *RateFetcherMock) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}

	return "mock"
}

// FetchRate implements RateFetcher.
func (m *RateFetcherMock) FetchRate(ctx context.Context, pair CurrencyPair) (ProviderQuote, error) {
	if m.FetchRateFn != nil {
		return m.FetchRateFn(ctx, pair)
	}

	args := m.Called(ctx, pair)

	return args.Get(0).(ProviderQuote), args.Error(1)
}

// FetchSupportedCurrencies implements RateFetcher.
func (m *RateFetcherMock) FetchSupportedCurrencies(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

type CacheMock struct {
	mock.Mock
	Unavailable bool
}

var _ Cache = (*CacheMock)(nil)

// Get implements Cache.
func (m *CacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.Unavailable {
		return nil, false, nil
	}

	args := m.Called(ctx, key)

	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}

	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

// Set implements Cache.
func (m *CacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.Unavailable {
		return nil
	}

	args := m.Called(ctx, key, value, ttl)

	return args.Error(0)
}

// Publish implements Cache.
func (m *CacheMock) Publish(ctx context.Context, channel string, payload []byte) error {
	args := m.Called(ctx, channel, payload)

	return args.Error(0)
}

// Subscribe implements Cache.
func (m *CacheMock) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	args := m.Called(ctx, channel)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(<-chan []byte), args.Error(1)
}

// IsAvailable implements Cache.
func (m *CacheMock) IsAvailable() bool {
	return !m.Unavailable
}

// Close implements Cache.
func (m *CacheMock) Close() error {
	return nil
}

type RateSinkMock struct {
	mock.Mock
	SubmitRateFn func(ctx context.Context, rate AggregatedRate) error
}

var _ RateSink = (*RateSinkMock)(nil)

// SubmitRate implements RateSink.
func (m *RateSinkMock) SubmitRate(ctx context.Context, rate AggregatedRate) error {
	if m.SubmitRateFn != nil {
		return m.SubmitRateFn(ctx, rate)
	}

	args := m.Called(ctx, rate)

	return args.Error(0)
}

type RateAggregatorMock struct {
	mock.Mock
}

var _ RateAggregator = (*RateAggregatorMock)(nil)

// Resolve implements RateAggregator.
func (m *RateAggregatorMock) Resolve(ctx context.Context, pair CurrencyPair) (AggregatedRate, error) {
	args := m.Called(ctx, pair)

	return args.Get(0).(AggregatedRate), args.Error(1)
}

// Convert implements RateAggregator.
func (m *RateAggregatorMock) Convert(
	ctx context.Context, pair CurrencyPair, amount decimal.Decimal,
) (decimal.Decimal, AggregatedRate, error) {
	args := m.Called(ctx, pair, amount)

	return args.Get(0).(decimal.Decimal), args.Get(1).(AggregatedRate), args.Error(2)
}

// HealthSnapshot implements RateAggregator.
func (m *RateAggregatorMock) HealthSnapshot() map[string]BreakerSnapshot {
	args := m.Called()

	return args.Get(0).(map[string]BreakerSnapshot)
}

type CurrencyValidatorMock struct {
	mock.Mock
}

var _ CurrencyValidator = (*CurrencyValidatorMock)(nil)

// ValidatePair implements CurrencyValidator.
func (m *CurrencyValidatorMock) ValidatePair(ctx context.Context, pair CurrencyPair) error {
	args := m.Called(ctx, pair)

	return args.Error(0)
}

// SupportedCurrencies implements CurrencyValidator.
func (m *CurrencyValidatorMock) SupportedCurrencies(ctx context.Context) []string {
	args := m.Called(ctx)

	return args.Get(0).([]string)
}

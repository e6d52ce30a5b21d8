package core

import (
	"errors"
	"fmt"
)

// Fetch failures normalized at the adapter boundary. The aggregator never
// sees a provider specific error shape.
var (
	ErrFetchTimeout         = errors.New("provider timeout")
	ErrFetchRateLimited     = errors.New("provider rate limited")
	ErrFetchInvalidResponse = errors.New("provider invalid response")
	ErrFetchUnavailable     = errors.New("provider unavailable")
)

// ErrAllProvidersUnavailable is the only failure Resolve surfaces to its
// callers. It means every registered provider either failed or was skipped by
// its breaker.
var ErrAllProvidersUnavailable = errors.New("all providers unavailable")

// ErrUnsupportedCurrency is raised by the currency manager before the
// aggregator is ever invoked.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

func NewUnsupportedCurrencyError(code string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
}

// IsFetchError reports whether err belongs to the normalized fetch taxonomy.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrFetchTimeout) ||
		errors.Is(err, ErrFetchRateLimited) ||
		errors.Is(err, ErrFetchInvalidResponse) ||
		errors.Is(err, ErrFetchUnavailable)
}

package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/common"
	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/telemetry"
	"github.com/hashicorp/go-hclog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// NewRateFetcher builds the fetcher registered under config.Name.
func NewRateFetcher(config *core.FetcherConfig, logger hclog.Logger) (core.RateFetcher, error) {
	switch config.Name {
	case core.FetcherFixerIO:
		return NewFixerIOFetcher(config, logger), nil
	case core.FetcherOpenExchange:
		return NewOpenExchangeFetcher(config, logger), nil
	case core.FetcherCurrencyAPI:
		return NewCurrencyAPIFetcher(config, logger), nil
	case core.FetcherDummy:
		return NewDummyFetcher(config), nil
	default:
		return nil, fmt.Errorf("unknown rate provider: %s", config.Name)
	}
}

// httpFetcher carries the plumbing every HTTP backed fetcher shares:
// a local request budget, per attempt timeouts and retry on transient faults.
type httpFetcher struct {
	config  *core.FetcherConfig
	limiter *rate.Limiter
	logger  hclog.Logger
}

func newHTTPFetcher(config *core.FetcherConfig, logger hclog.Logger) httpFetcher {
	requestsPerMinute := config.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}

	return httpFetcher{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute),
		logger:  logger.Named(config.Name),
	}
}

// fetchJSON executes one rate limited GET against the provider API and decodes
// the JSON body into TResponse. Attempts are bounded by the configured timeout
// and transient failures are retried up to MaxRetries times. Every error comes
// back normalized into the provider failure taxonomy.
func fetchJSON[TResponse any](
	ctx context.Context, f *httpFetcher, requestURL string, headers map[string]string,
) (TResponse, error) {
	var response TResponse

	if !f.limiter.Allow() {
		return response, fmt.Errorf("%w: request budget for %s exhausted",
			core.ErrFetchRateLimited, f.config.Name)
	}

	opts := make([]common.HTTPGetOption, 0, len(headers))
	for key, value := range headers {
		opts = append(opts, common.WithHTTPHeader(key, value))
	}

	err := common.RetryWithBackoff(ctx, f.config.MaxRetries, f.config.RetryBackoff(),
		func(ctx context.Context) error {
			attemptCtx, cancel := context.WithTimeout(ctx, f.config.Timeout())
			defer cancel()

			result, err := common.HTTPGet[TResponse](attemptCtx, requestURL, opts...)
			if err != nil {
				if isTransientErr(err) {
					return retry.RetryableError(err)
				}

				return err
			}

			response = result

			return nil
		})
	if err != nil {
		f.logger.Debug("provider request failed", "url", requestURL, "err", err)

		return response, normalizeError(f.config.Name, err)
	}

	return response, nil
}

// isTransientErr reports whether another attempt against the provider could
// reasonably succeed. Client side errors and undecodable payloads are final.
func isTransientErr(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	statusErr := (*common.HTTPStatusError)(nil)
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusRequestTimeout
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return false
	}

	var typeErr *json.UnmarshalTypeError

	return !errors.As(err, &typeErr)
}

// normalizeError maps transport and status failures onto the fetch error
// taxonomy so the callers never have to inspect provider specifics.
func normalizeError(providerName string, err error) error {
	if err == nil || core.IsFetchError(err) || errors.Is(err, context.Canceled) {
		return err
	}

	statusErr := (*common.HTTPStatusError)(nil)
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout:
			return fmt.Errorf("%w: %s responded with status %d",
				core.ErrFetchTimeout, providerName, statusErr.StatusCode)
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s responded with status %d",
				core.ErrFetchRateLimited, providerName, statusErr.StatusCode)
		case statusErr.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %s responded with status %d",
				core.ErrFetchUnavailable, providerName, statusErr.StatusCode)
		default:
			return fmt.Errorf("%w: %s responded with status %d",
				core.ErrFetchInvalidResponse, providerName, statusErr.StatusCode)
		}
	}

	if isTimeoutErr(err) {
		return fmt.Errorf("%w: %s did not respond in time", core.ErrFetchTimeout, providerName)
	}

	var syntaxErr *json.SyntaxError

	var typeErr *json.UnmarshalTypeError

	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: undecodable payload from %s", core.ErrFetchInvalidResponse, providerName)
	}

	return fmt.Errorf("%w: %s unreachable: %v", core.ErrFetchUnavailable, providerName, err)
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// observeFetch records call metrics for a finished provider fetch.
func observeFetch(providerName string, start time.Time, err error) time.Duration {
	latency := time.Since(start)

	telemetry.UpdateFetcherLatency(providerName, latency)
	telemetry.UpdateFetcherCallCounter(providerName, err == nil)

	return latency
}

func sortedCodes(symbols map[string]string) []string {
	codes := make([]string, 0, len(symbols))
	for code := range symbols {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	return codes
}

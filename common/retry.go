package common

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryForever executes the handler until it succeeds or the context is done,
// waiting interval between attempts.
func RetryForever(ctx context.Context, interval time.Duration, handler func(ctx context.Context) error) error {
	err := retry.Do(ctx, retry.NewConstant(interval), func(ctx context.Context) error {
		if err := handler(ctx); err != nil {
			return retry.RetryableError(err)
		}

		return nil
	})
	if err != nil && IsContextDoneErr(err) {
		return err
	}

	return err
}

// RetryWithBackoff executes the handler at most maxRetries + 1 times with a
// constant backoff. The handler decides whether an error is worth another
// attempt by wrapping it with retry.RetryableError.
func RetryWithBackoff(
	ctx context.Context, maxRetries uint64, backoff time.Duration,
	handler func(ctx context.Context) error,
) error {
	return retry.Do(ctx, retry.WithMaxRetries(maxRetries, retry.NewConstant(backoff)), handler)
}

func IsContextDoneErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

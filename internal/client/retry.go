package client

import (
	"context"
	"math"
	"time"

	"github.com/sony/gobreaker"

	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
)

// RetryPolicy controls how idempotent reads are retried after transient
// failures. Writes are never retried.
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy retries twice with exponential backoff from 100ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// NoRetry disables retries.
func NoRetry() RetryPolicy {
	return RetryPolicy{}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 1
	}
	d := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

// retry runs fn until it succeeds, returns a non-transient error, or the
// policy runs out. Only UNAVAILABLE errors are retried, and an open
// breaker is reported as UNAVAILABLE without a retry.
func (p RetryPolicy) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.delay(attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return lastErr
}

func retryable(err error) bool {
	if domainerrors.Is(err, gobreaker.ErrOpenState) || domainerrors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	return domainerrors.CodeOf(err) == domainerrors.CodeUnavailable
}

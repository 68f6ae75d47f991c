package generation

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds the text-generation step. MaxAttempts counts the first
// call; NewBackOff supplies the delay between attempts.
type RetryPolicy struct {
	MaxAttempts int
	NewBackOff  func() backoff.BackOff
}

// DefaultRetryPolicy makes three attempts with no delay between them
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		NewBackOff:  func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}
}

// ExponentialRetryPolicy spaces attempts with jittered exponential delays
func ExponentialRetryPolicy(maxAttempts int, initial, max time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = initial
			bo.MaxInterval = max
			bo.MaxElapsedTime = 0 // bounded by attempts instead
			return bo
		},
	}
}

// retry calls op until it succeeds, returns a backoff.Permanent error, or
// the attempts are used up. It reports how many times op ran.
func (p RetryPolicy) retry(ctx context.Context, op func() error) (int, error) {
	attempts := 0
	maxRetries := p.MaxAttempts - 1
	if maxRetries < 0 {
		maxRetries = 0
	}

	newBackOff := p.NewBackOff
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(maxRetries)), ctx)
	err := backoff.Retry(func() error {
		attempts++
		return op()
	}, bo)

	return attempts, err
}

package stepper

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds the retry behavior of a retrying stepper.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

// DefaultRetryPolicy retries a handful of times with short exponential
// backoff, suitable for flaky local network calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxRetries:      4,
	}
}

type retryingStepper struct {
	next   Stepper
	policy RetryPolicy
}

// WithRetry wraps a Stepper so that TransientError results are retried
// with exponential backoff. Validation, not-found and conflict errors pass
// through immediately: repeating them cannot change the outcome.
func WithRetry(next Stepper, policy RetryPolicy) Stepper {
	return &retryingStepper{next: next, policy: policy}
}

func (r *retryingStepper) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval
	return backoff.WithContext(backoff.WithMaxRetries(b, r.policy.MaxRetries), ctx)
}

func (r *retryingStepper) retry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, r.backoff(ctx))
}

func (r *retryingStepper) Begin(ctx context.Context, platform string, answers []map[string]any) (string, error) {
	var handle string
	err := r.retry(ctx, func() error {
		var beginErr error
		handle, beginErr = r.next.Begin(ctx, platform, answers)
		return beginErr
	})
	return handle, err
}

func (r *retryingStepper) Delete(ctx context.Context, handle string) error {
	return r.retry(ctx, func() error {
		return r.next.Delete(ctx, handle)
	})
}

func (r *retryingStepper) UpdateOptions(ctx context.Context, handle string, options []map[string]any) error {
	return r.retry(ctx, func() error {
		return r.next.UpdateOptions(ctx, handle, options)
	})
}

func (r *retryingStepper) SupportsOptions(ctx context.Context, handle string) (bool, error) {
	var supported bool
	err := r.retry(ctx, func() error {
		var supportsErr error
		supported, supportsErr = r.next.SupportsOptions(ctx, handle)
		return supportsErr
	})
	return supported, err
}

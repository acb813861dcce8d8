package sync

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Default retry tunables for the CLI path.
const (
	DefaultMaxRetries = 3
	defaultRetryBase  = 2 * time.Second
	defaultRetryCap   = 60 * time.Second
)

// RetryPolicy is an explicit, testable retry wrapper around a sync pass.
// It retries only failures that Retryable classifies as transient —
// network errors and partial pushes, which the engine's idempotence
// guarantees make safe to re-run. The engine itself never retries.
type RetryPolicy struct {
	MaxRetries uint64        // retries after the first attempt; 0 disables retrying
	Base       time.Duration // first backoff step (fibonacci growth)
	Cap        time.Duration // upper bound on a single backoff step
}

// DefaultRetryPolicy returns the policy used by the CLI.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Base:       defaultRetryBase,
		Cap:        defaultRetryCap,
	}
}

// Run invokes fn under the policy, backing off between attempts until fn
// succeeds, fails permanently, or the context is canceled.
func (p RetryPolicy) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.NewFibonacci(p.Base)
	backoff = retry.WithCappedDuration(p.Cap, backoff)
	backoff = retry.WithMaxRetries(p.MaxRetries, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if Retryable(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

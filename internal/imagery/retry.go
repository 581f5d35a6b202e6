package imagery

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds the retries of transient remote failures.
type RetryPolicy struct {
	MaxRetries      uint64        `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      5,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// Do runs op until it succeeds, fails with a non-transient error, the retries are exhausted
// or ctx is done. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, log *slog.Logger, op func() error) error {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	exp.MaxElapsedTime = 0
	retryPolicy := backoff.WithContext(backoff.WithMaxRetries(exp, p.MaxRetries), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		if log != nil {
			log.Warn("transient failure, retrying", "attempt", attempt, "error", err)
		}
		return err
	}, retryPolicy)
}

package imagery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fast = RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestRetryTransientThenSuccess(t *testing.T) {
	calls := 0
	err := fast.Do(context.Background(), nil, func() error {
		calls++
		if calls < 3 {
			return &RemoteComputeError{Op: "reduce", Transient: true, Err: errors.New("429")}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	permanent := &RemoteComputeError{Op: "reduce", Err: errors.New("400")}
	err := fast.Do(context.Background(), nil, func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryIsBounded(t *testing.T) {
	calls := 0
	err := fast.Do(context.Background(), nil, func() error {
		calls++
		return &RemoteComputeError{Op: "reduce", Transient: true, Err: errors.New("503")}
	})
	assert.True(t, IsTransient(err))
	assert.Equal(t, 4, calls)
}

package util

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	calls := 0
	err := Retry(3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := Retry(2, time.Millisecond, func() error {
		calls++
		return errors.New("always")
	})
	assert.EqualError(t, err, "always")
	assert.Equal(t, 2, calls)
}

func TestRetryStop(t *testing.T) {
	calls := 0
	stopErr := errors.New("fatal")
	err := Retry(5, time.Millisecond, func() error {
		calls++
		return RetryStop{Err: stopErr}
	})
	assert.Equal(t, stopErr, err)
	assert.Equal(t, 1, calls)
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.Equal(t, context.Canceled, err)
	assert.True(t, time.Since(start) < time.Second)

	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}

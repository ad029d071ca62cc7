package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 1}, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsAfterConfiguredAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Retry(context.Background(), RetryPolicy{Attempts: 3}, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetrySucceedsBeforeExhaustingAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 5}, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryAppliesBackoffBetweenAttempts(t *testing.T) {
	calls := 0
	start := time.Now()
	Retry(context.Background(), RetryPolicy{Attempts: 2, InitialBackoff: 20 * time.Millisecond, Multiplier: 2}, func() error {
		calls++
		return errors.New("fail")
	})
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, 2, calls)
}

func TestRetryRespectsContextCancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, RetryPolicy{Attempts: 3, InitialBackoff: time.Hour}, func() error {
		calls++
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryTreatsNonPositiveAttemptsAsOne(t *testing.T) {
	calls := 0
	Retry(context.Background(), RetryPolicy{Attempts: 0}, func() error {
		calls++
		return errors.New("fail")
	})
	assert.Equal(t, 1, calls)
}

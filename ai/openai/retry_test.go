package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryLinearSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := retryLinear(context.Background(), func() error {
		calls++
		return nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryLinearRecovers(t *testing.T) {
	calls := 0
	err := retryLinear(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, 2, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryLinearExhaustsAttempts(t *testing.T) {
	boom := errors.New("persistent")
	calls := 0
	err := retryLinear(context.Background(), func() error {
		calls++
		return boom
	}, 2, time.Millisecond)

	require.ErrorIs(t, err, boom)
	// MaxRetries of 2 means 3 total attempts.
	assert.Equal(t, 3, calls)
}

func TestRetryLinearZeroRetries(t *testing.T) {
	calls := 0
	err := retryLinear(context.Background(), func() error {
		calls++
		return errors.New("nope")
	}, 0, time.Millisecond)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryLinearHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := retryLinear(ctx, func() error {
		calls++
		cancel()
		return errors.New("fail then cancel")
	}, 5, time.Minute)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

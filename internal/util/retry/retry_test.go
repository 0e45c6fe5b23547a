package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SingleAttemptByDefault(t *testing.T) {
	t.Parallel()
	attempts := 0
	errBoom := errors.New("boom")

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return errBoom
	})

	assert.Equal(t, 1, attempts)
	assert.Same(t, errBoom, err)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	var retried []int

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	},
		WithMaxRetries(5),
		WithInitialDelay(time.Millisecond),
		WithOnRetry(func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }),
	)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("persistent error")
	}, WithMaxRetries(2), WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "persistent error")
}

func TestDo_FatalStopsImmediately(t *testing.T) {
	t.Parallel()
	attempts := 0
	notFound := errors.New("404 not found")

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return Fatal(notFound)
	}, WithMaxRetries(5), WithInitialDelay(time.Millisecond))

	assert.Equal(t, 1, attempts)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, notFound)
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(ctx, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("temporary")
	}, WithMaxRetries(5), WithInitialDelay(time.Second))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDo_DelayCappedAtMax(t *testing.T) {
	t.Parallel()
	var delays []time.Duration

	_ = Do(context.Background(), func(context.Context) error {
		return errors.New("again")
	},
		WithMaxRetries(4),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(3*time.Millisecond),
		WithMultiplier(2),
		WithOnRetry(func(_ int, _ error, d time.Duration) { delays = append(delays, d) }),
	)

	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 3 * time.Millisecond}, delays)
}

func TestFatal_Nil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Fatal(nil))
	assert.False(t, IsFatal(errors.New("plain")))
}

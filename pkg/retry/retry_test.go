package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetgo/dispatch-api/pkg/logger"
)

func testConfig(maxAttempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     maxAttempts,
		BackoffStrategy: &ConstantBackoff{Interval: time.Millisecond},
		Logger:          logger.NewNopLogger(),
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return nil
	}, testConfig(3))

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, testConfig(5))

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")

	err := Retry(context.Background(), func() error {
		calls++
		return boom
	}, testConfig(3))

	assert.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	transient := errors.New("transient")
	fatal := errors.New("fatal")
	calls := 0

	cfg := testConfig(5)
	cfg.RetryableErrors = []error{transient}

	err := Retry(context.Background(), func() error {
		calls++
		return fatal
	}, cfg)

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, func() error {
		return errors.New("never reached after cancel")
	}, testConfig(3))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithDiscardSkipsDiscardOnSuccess(t *testing.T) {
	discarded := false

	err := RetryWithDiscard(context.Background(), func() error {
		return nil
	}, testConfig(3), func(error) error {
		discarded = true
		return nil
	})

	assert.NoError(t, err)
	assert.False(t, discarded)
}

func TestRetryWithDiscardAppliesDiscardOnExhaustion(t *testing.T) {
	var discardedErr error

	err := RetryWithDiscard(context.Background(), func() error {
		return errors.New("boom")
	}, testConfig(2), func(err error) error {
		discardedErr = err
		return nil
	})

	assert.NoError(t, err)
	assert.Error(t, discardedErr)
}

func TestExponentialBackoffGrowth(t *testing.T) {
	backoff := &ExponentialBackoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
	}

	assert.Equal(t, 100*time.Millisecond, backoff.NextBackoff(1))
	assert.Equal(t, 200*time.Millisecond, backoff.NextBackoff(2))
	assert.Equal(t, 400*time.Millisecond, backoff.NextBackoff(3))
}

func TestExponentialBackoffCapsAtMax(t *testing.T) {
	backoff := &ExponentialBackoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
	}

	assert.Equal(t, time.Second, backoff.NextBackoff(10))
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Minute,
		Multiplier:      2.0,
		JitterFactor:    0.5,
	}

	for i := 0; i < 50; i++ {
		d := backoff.NextBackoff(2)
		assert.GreaterOrEqual(t, d, 200*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Interval: 42 * time.Millisecond}

	assert.Equal(t, 42*time.Millisecond, backoff.NextBackoff(1))
	assert.Equal(t, 42*time.Millisecond, backoff.NextBackoff(7))
}

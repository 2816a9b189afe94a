package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_ReturnsOnFirstSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 5, Delay: time.Millisecond}

	calls := 0
	ok, err := p.Until(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return attempt == 2, nil
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, calls, "no polls after the condition is reached")
}

func TestPolicy_ExhaustsAttemptsWithFixedDelay(t *testing.T) {
	delay := 20 * time.Millisecond
	p := Policy{MaxAttempts: 3, Delay: delay}

	var stamps []time.Time
	ok, err := p.Until(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		stamps = append(stamps, time.Now())
		return false, nil
	})

	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), delay)
	}
}

func TestPolicy_ErrorsCountAsFailedAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 4, Delay: time.Millisecond}

	calls := 0
	ok, err := p.Until(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		if attempt < 3 {
			return false, errors.New("connection refused")
		}
		return true, nil
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestPolicy_AllErrorsDegradeToFalse(t *testing.T) {
	p := Policy{MaxAttempts: 2, Delay: time.Millisecond}

	calls := 0
	ok, err := p.Until(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, errors.New("503 service unavailable")
	})

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, calls)
}

func TestPolicy_ZeroAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 0, Delay: time.Millisecond}

	called := false
	ok, err := p.Until(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		called = true
		return true, nil
	})

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, called)
}

func TestPolicy_ZeroDelay(t *testing.T) {
	p := Policy{MaxAttempts: 3}

	calls := 0
	ok, err := p.Until(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, nil
	})

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, calls)
}

func TestPolicy_ExponentialDelay(t *testing.T) {
	base := 10 * time.Millisecond
	p := Policy{MaxAttempts: 3, Delay: base, Exponential: true}

	var stamps []time.Time
	_, err := p.Until(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		stamps = append(stamps, time.Now())
		return false, nil
	})

	require.NoError(t, err)
	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), base)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 2*base)
}

func TestPolicy_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 10, Delay: time.Millisecond}

	calls := 0
	ok, err := p.Until(ctx, func(ctx context.Context, attempt int) (bool, error) {
		calls++
		if attempt == 2 {
			cancel()
		}
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
	assert.Equal(t, 2, calls)
}

func TestPresets(t *testing.T) {
	assert.Equal(t, 10, UploadProcessing.MaxAttempts)
	assert.Equal(t, 2*time.Second, UploadProcessing.Delay)
	assert.Equal(t, 5, Recheck.MaxAttempts)
	assert.Equal(t, 3*time.Second, Recheck.Delay)
}

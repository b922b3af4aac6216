package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showlog/showlog/internal/testutil"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		MaxAttempts:  3,
		Multiplier:   2.0,
	}
}

func TestIsNetworkError(t *testing.T) {
	assert.False(t, IsNetworkError(nil))
	assert.False(t, IsNetworkError(errors.New("invalid api key")))
	assert.True(t, IsNetworkError(errors.New("dial tcp 10.0.0.1:443: connection refused")))
	assert.True(t, IsNetworkError(errors.New("lookup api4.thetvdb.com: no such host")))
	assert.True(t, IsNetworkError(errors.New("request failed: i/o timeout")))
}

func TestWithRetryEventuallySucceeds(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), "probe", fastRetryConfig(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, testutil.NopLogger())

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryDoesNotRetryNonNetworkErrors(t *testing.T) {
	attempts := 0
	wantErr := errors.New("401 unauthorized")
	err := WithRetry(context.Background(), "probe", fastRetryConfig(), func() error {
		attempts++
		return wantErr
	}, testutil.NopLogger())

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), "probe", fastRetryConfig(), func() error {
		attempts++
		return errors.New("connection refused")
	}, testutil.NopLogger())

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, "probe", fastRetryConfig(), func() error {
		return errors.New("connection refused")
	}, testutil.NopLogger())

	assert.ErrorIs(t, err, context.Canceled)
}

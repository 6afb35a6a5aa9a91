package sequence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetry_RetriesOnlyUnavailable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(5), func(context.Context, int) error {
		calls++
		if calls < 3 {
			return unavailable(errors.New("connection reset"))
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Retry(context.Background(), fastPolicy(5), func(context.Context, int) error {
		calls++
		return storageError(errors.New("constraint"))
	})
	assert.ErrorIs(t, err, ErrStorageError)
	assert.Equal(t, 1, calls)
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	var seen []int
	err := Retry(context.Background(), fastPolicy(3), func(_ context.Context, attempt int) error {
		seen = append(seen, attempt)
		return unavailable(errors.New("timeout"))
	})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestRetry_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, RetryPolicy{MaxAttempts: 10, InitialBackoff: time.Hour}, func(context.Context, int) error {
		calls++
		cancel()
		return unavailable(errors.New("down"))
	})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{InitialBackoff: 10 * time.Millisecond, MaxBackoff: 35 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, p.backoff(1))
	assert.Equal(t, 20*time.Millisecond, p.backoff(2))
	assert.Equal(t, 35*time.Millisecond, p.backoff(3))
	assert.Equal(t, 35*time.Millisecond, p.backoff(8))
}

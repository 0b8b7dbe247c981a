package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "ping", Options{Attempts: 5, Base: time.Millisecond, Cap: 2 * time.Millisecond},
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), "ping", Options{Attempts: 3, Base: time.Millisecond, Cap: 2 * time.Millisecond},
		func(context.Context) error {
			calls++
			return boom
		})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, "ping", Options{}, func(context.Context) error {
		t.Fatal("must not run after cancel")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

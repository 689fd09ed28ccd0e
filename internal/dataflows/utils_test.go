package dataflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() *RetryConfig {
	return &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestWithRetry(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = WithRetry(context.Background(), fastRetry(), func() error {
		calls++
		return errors.New("down")
	})
	assert.ErrorContains(t, err, "max retries exceeded")
	assert.Equal(t, 3, calls)
}

func TestWithRetry_Permanent(t *testing.T) {
	sentinel := errors.New("bad symbol")
	calls := 0
	err := WithRetry(context.Background(), fastRetry(), func() error {
		calls++
		return Permanent(sentinel)
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := &RetryConfig{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}
	err := WithRetry(ctx, cfg, func() error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCacheManager(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Hour, true)
	var out map[string]int
	assert.False(t, cm.Get("src", "m", "KO", &out))

	require.NoError(t, cm.Set("src", "m", "KO", map[string]int{"a": 1}))
	assert.True(t, cm.Get("src", "m", "KO", &out))
	assert.Equal(t, map[string]int{"a": 1}, out)
	assert.False(t, cm.Get("src", "m", "PEP", &out))

	disabled := NewCacheManager(t.TempDir(), time.Hour, false)
	require.NoError(t, disabled.Set("src", "m", "KO", 1))
	assert.False(t, disabled.Get("src", "m", "KO", &out))
}

func TestSymbols(t *testing.T) {
	assert.NoError(t, ValidateSymbol(" brk.b "))
	assert.Error(t, ValidateSymbol(""))
	assert.Error(t, ValidateSymbol("ABCDEFGHIJK"))
	assert.Equal(t, "BRK-B", yahooSymbol("brk.b"))
	assert.Equal(t, "BRK.B.US", longportSymbol("BRK-B"))
	assert.Equal(t, "700.HK", longportSymbol("700.hk"))
}

func TestPeriodStart(t *testing.T) {
	end := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	tests := map[string]time.Time{
		"":    time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
		"1mo": time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC),
		"ytd": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"5D":  time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	}
	for period, want := range tests {
		got, err := PeriodStart(end, period)
		require.NoError(t, err, period)
		assert.Equal(t, want, got, period)
	}
	_, err := PeriodStart(end, "3w")
	assert.Error(t, err)
}

package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponential(t *testing.T) {
	base := 100 * time.Millisecond

	assert.Equal(t, base, Exponential(base, 0))
	assert.Equal(t, 200*time.Millisecond, Exponential(base, 1))
	assert.Equal(t, 400*time.Millisecond, Exponential(base, 2))
	assert.Equal(t, base, Exponential(base, -3), "negative attempts behave as attempt 0")
	assert.Equal(t, time.Duration(0), Exponential(0, 5))
}

func TestExponential_OverflowClamped(t *testing.T) {
	d := Exponential(time.Hour, 100)
	assert.True(t, d > 0, "overflow must clamp, not wrap negative")
}

func TestFullJitter_WithinRange(t *testing.T) {
	delay := 50 * time.Millisecond

	for i := 0; i < 100; i++ {
		j := FullJitter(delay)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, delay)
	}

	assert.Equal(t, time.Duration(0), FullJitter(0))
}

func TestSleep_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSleep_ZeroReturnsImmediately(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 0))
}

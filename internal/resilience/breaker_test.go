package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b := NewBreaker(3, time.Minute)
	b.now = func() time.Time { return now }

	fail := errors.New("down")
	b.Record(fail)
	b.Record(fail)
	require.NoError(t, b.Allow())

	b.Record(fail)
	assert.True(t, b.Open())
	assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)
	assert.Equal(t, 3, b.Failures())

	now = now.Add(2 * time.Minute)
	require.NoError(t, b.Allow(), "probe after cooldown")

	b.Record(fail)
	assert.True(t, b.Open(), "failed probe reopens")

	now = now.Add(2 * time.Minute)
	b.Record(nil)
	assert.False(t, b.Open())
	assert.Equal(t, 0, b.Failures())
}

func TestNewBreaker_DefaultThreshold(t *testing.T) {
	assert.Equal(t, 5, NewBreaker(0, time.Second).Threshold)
}

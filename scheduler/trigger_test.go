package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalPeriodIsCumulative(t *testing.T) {
	trig := Interval(5, 1, 0)
	assert.Equal(t, 65*time.Second, trig.period())

	now := time.Now()
	first, ok := trig.first(now)
	require.True(t, ok)
	assert.Equal(t, now.Add(65*time.Second), first)

	next, ok := trig.next(first, now)
	require.True(t, ok)
	assert.Equal(t, first.Add(65*time.Second), next)
}

func TestZeroIntervalIsInvalid(t *testing.T) {
	assert.ErrorIs(t, Interval(0, 0, 0).validate(), ErrInvalidTrigger)
	assert.NoError(t, Interval(1, 0, 0).validate())
}

func TestImmediateFiresOnceRightAway(t *testing.T) {
	trig := Immediate()
	now := time.Now()

	first, ok := trig.first(now)
	require.True(t, ok)
	assert.Equal(t, now, first)

	_, ok = trig.next(first, now)
	assert.False(t, ok)
}

func TestAtFiresOnceEvenWhenOverdue(t *testing.T) {
	// No misfire grace period: a past fire time still fires.
	past := time.Now().Add(-time.Minute)
	trig := At(past)
	require.NoError(t, trig.validate())

	first, ok := trig.first(time.Now())
	require.True(t, ok)
	assert.Equal(t, past, first)

	_, ok = trig.next(first, time.Now())
	assert.False(t, ok)
}

func TestCronTrigger(t *testing.T) {
	trig, err := Cron("*/5 * * * *")
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 12, 1, 0, 0, time.UTC)
	first, ok := trig.first(now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 5, 0, 0, time.UTC), first)

	_, err = Cron("not a cron expression")
	assert.ErrorIs(t, err, ErrInvalidTrigger)
}

package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationalDate_BeforeRolloverBelongsToPreviousDay(t *testing.T) {
	at := time.Date(2026, 3, 10, 2, 59, 0, 0, time.UTC)
	got := OperationalDate(at, DefaultDayStartHour)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), got)
}

func TestOperationalDate_AtAndAfterRollover(t *testing.T) {
	at := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	got := OperationalDate(at, DefaultDayStartHour)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), got)

	at = time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	got = OperationalDate(at, DefaultDayStartHour)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestOperationalDate_MonthBoundary(t *testing.T) {
	at := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
	got := OperationalDate(at, DefaultDayStartHour)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), got)
}

func TestMidnight_DropsTimeOfDay(t *testing.T) {
	at := time.Date(2026, 7, 4, 15, 42, 9, 123, time.UTC)
	assert.Equal(t, time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC), Midnight(at))
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 7, 4, 1, 0, 0, 0, time.UTC)
	b := time.Date(2026, 7, 4, 23, 0, 0, 0, time.UTC)
	c := time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)
	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, c))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("31/01/2026")
	assert.Error(t, err)
}

package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dawn-archive/internal/archive"
)

var _ archive.Clock = Clock{}

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC().Add(-time.Second)
	got := New().Now()
	after := time.Now().UTC().Add(time.Second)

	require.Equal(t, time.UTC, got.Location())
	require.True(t, got.After(before) && got.Before(after), "got %v", got)
}

func TestClockFeedsCalendar(t *testing.T) {
	t.Parallel()

	cal := archive.DefaultCalendar()
	today := cal.Today(New().Now())
	_, err := archive.ParseDate(today)
	require.NoError(t, err)
	year := mustYear(t, today)
	require.True(t, year == time.Now().Year()-12 || year == time.Now().Year()-11, "anchored year %d", year)
}

func mustYear(t *testing.T, date string) int {
	t.Helper()
	parsed, err := time.Parse(archive.DateLayout, date)
	require.NoError(t, err)
	return parsed.Year()
}

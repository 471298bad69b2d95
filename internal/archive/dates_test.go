package archive

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"valid", "2020-01-01", true},
		{"leap day", "2024-02-29", true},
		{"non leap day", "2023-02-29", false},
		{"month out of range", "2020-13-01", false},
		{"short month", "2020-1-01", false},
		{"slashes", "2020/01/01", false},
		{"trailing junk", "2020-01-01x", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseDate(tt.input)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidDate))
		})
	}
}

func TestNextDay(t *testing.T) {
	t.Parallel()

	next, err := NextDay("2013-12-31")
	require.NoError(t, err)
	require.Equal(t, "2014-01-01", next)

	next, err = NextDay("2012-02-28")
	require.NoError(t, err)
	require.Equal(t, "2012-02-29", next)

	_, err = NextDay("bogus")
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestCalendarTodayShiftsYearInKarachi(t *testing.T) {
	t.Parallel()

	cal := DefaultCalendar()

	// 20:00 UTC on Oct 14 is already Oct 15 in PKT (UTC+5).
	now := time.Date(2026, time.October, 14, 20, 0, 0, 0, time.UTC)
	require.Equal(t, "2014-10-15", cal.Today(now))
	require.Equal(t, "2014-10-16", cal.Tomorrow(now))

	// 18:00 UTC is 23:00 PKT, still the same civil day.
	now = time.Date(2026, time.October, 14, 18, 0, 0, 0, time.UTC)
	require.Equal(t, "2014-10-14", cal.Today(now))
}

func TestCalendarTodayLeapDayNormalises(t *testing.T) {
	t.Parallel()

	cal := DefaultCalendar()
	now := time.Date(2028, time.February, 29, 12, 0, 0, 0, time.UTC)
	// 2016 is a leap year, so the date survives.
	require.Equal(t, "2016-02-29", cal.Today(now))

	cal, err := NewCalendar(DefaultTimeZone, 1)
	require.NoError(t, err)
	require.Equal(t, "2027-03-01", cal.Today(now))
}

func TestNewCalendarRejectsUnknownZone(t *testing.T) {
	t.Parallel()

	_, err := NewCalendar("Mars/Olympus_Mons", 12)
	require.Error(t, err)
}

package archive

import (
	"fmt"
	"time"
)

// DateLayout is the YYYY-MM-DD key format used for archives and file names.
const DateLayout = "2006-01-02"

// Defaults for the anchored calendar.
const (
	DefaultTimeZone   = "Asia/Karachi"
	DefaultYearOffset = 12
)

// ParseDate validates a YYYY-MM-DD string and returns the corresponding UTC midnight.
func ParseDate(date string) (time.Time, error) {
	if len(date) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t, nil
}

// NextDay returns the calendar day after date.
func NextDay(date string) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, 1).Format(DateLayout), nil
}

// Calendar computes the anchored "today": the current civil date in a fixed zone,
// shifted back by a whole number of years.
type Calendar struct {
	loc        *time.Location
	yearOffset int
}

// NewCalendar loads the named zone. An empty name uses Asia/Karachi.
func NewCalendar(zone string, yearOffset int) (*Calendar, error) {
	if zone == "" {
		zone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		// Pakistan Standard Time has no DST, so a fixed zone is exact when tzdata is missing.
		if zone != DefaultTimeZone {
			return nil, fmt.Errorf("load time zone %q: %w", zone, err)
		}
		loc = time.FixedZone("PKT", 5*60*60)
	}
	return &Calendar{loc: loc, yearOffset: yearOffset}, nil
}

// DefaultCalendar is PKT shifted back by twelve years.
func DefaultCalendar() *Calendar {
	cal, _ := NewCalendar(DefaultTimeZone, DefaultYearOffset)
	return cal
}

// Today returns the anchored date for the instant now.
func (c *Calendar) Today(now time.Time) string {
	local := now.In(c.loc)
	y, m, d := local.Date()
	// time.Date normalises Feb 29 into Mar 1 when the shifted year is not a leap year.
	return time.Date(y-c.yearOffset, m, d, 0, 0, 0, 0, time.UTC).Format(DateLayout)
}

// Tomorrow returns the day after the anchored today.
func (c *Calendar) Tomorrow(now time.Time) string {
	next, _ := NextDay(c.Today(now))
	return next
}

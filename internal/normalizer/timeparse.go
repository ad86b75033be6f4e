package normalizer

import (
	"strconv"
	"strings"
	"time"

	"quoteflow/internal/errors"
	"quoteflow/pkg/exception"
)

var clockLayouts = []string{"15:04:05.000", "15:04:05"}

// compactDateTime builds a local time from YYYYMMDD and HHMMSSmmm integers.
func compactDateTime(date int64, hhmmssmmm int64, loc *time.Location) (time.Time, error) {
	y, mo, d := int(date/10000), int(date/100%100), int(date%100)
	if hhmmssmmm < 0 || hhmmssmmm > 235959999 {
		return time.Time{}, errors.Wrapf(exception.ErrInvalidArgument, "time: %09d", hhmmssmmm)
	}
	h := int(hhmmssmmm / 10_000_000)
	mi := int(hhmmssmmm / 100_000 % 100)
	s := int(hhmmssmmm / 1000 % 100)
	ms := int(hhmmssmmm % 1000)
	if mo < 1 || mo > 12 || d < 1 || d > 31 || h > 23 || mi > 59 || s > 59 {
		return time.Time{}, errors.Wrapf(exception.ErrInvalidArgument, "datetime: %08d %09d", date, hhmmssmmm)
	}

	t := time.Date(y, time.Month(mo), d, h, mi, s, ms*int(time.Millisecond), loc)
	if t.Day() != d {
		return time.Time{}, errors.Wrapf(exception.ErrInvalidArgument, "date: %08d", date)
	}
	return t, nil
}

// clockOnDay parses a wall clock string and places it on day.
// Accepts 15:04:05.000, 15:04:05 and the compact HHMMSSmmm form.
func clockOnDay(day time.Time, clock string) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return time.Time{}, errors.Wrap(exception.ErrMissingField, "empty clock")
	}

	if !strings.Contains(clock, ":") {
		v, err := strconv.ParseInt(clock, 10, 64)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "clock: %s", clock)
		}
		return compactDateTime(dateInt(day), v, day.Location())
	}

	for _, layout := range clockLayouts {
		c, err := time.Parse(layout, clock)
		if err != nil {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), c.Second(), c.Nanosecond(), day.Location()), nil
	}
	return time.Time{}, errors.Wrapf(exception.ErrInvalidArgument, "clock: %s", clock)
}

// parseDay reads a YYYYMMDD date in loc.
func parseDay(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 8 {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("20060102", s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func dateInt(day time.Time) int64 {
	return int64(day.Year()*10000 + int(day.Month())*100 + day.Day())
}

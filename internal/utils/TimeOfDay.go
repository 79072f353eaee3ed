package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is an offset from local midnight with second precision. Values of 24h or more
// are allowed so that an interval ending on the next day never compares as "earlier".
type TimeOfDay int

const (
	Midnight TimeOfDay = 0
	EndOfDay TimeOfDay = 24 * 60 * 60
)

// NewTimeOfDay builds a TimeOfDay from hours, minutes and seconds.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// ParseTimeOfDay accepts "HH:MM:SS" and "HH:MM".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day: %q", value)
	}
	var fields [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time of day: %q", value)
		}
		fields[i] = n
	}
	if fields[0] > 24 || fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("time of day out of range: %q", value)
	}
	tod := NewTimeOfDay(fields[0], fields[1], fields[2])
	if tod > EndOfDay {
		return 0, fmt.Errorf("time of day out of range: %q", value)
	}
	return tod, nil
}

// TimeOfDayOf returns the offset of t from the start of its calendar day in loc.
func TimeOfDayOf(t time.Time, loc *time.Location) TimeOfDay {
	t = t.In(loc)
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
}

// Span returns the wall-clock bounds of [start,end) on the calendar day of start in loc.
// An end falling on a later day lies past EndOfDay by one EndOfDay per day.
func Span(start, end time.Time, loc *time.Location) (TimeOfDay, TimeOfDay) {
	days := int(DateOf(end, loc).Sub(DateOf(start, loc)) / (24 * time.Hour))
	return TimeOfDayOf(start, loc), TimeOfDayOf(end, loc) + EndOfDay*TimeOfDay(days)
}

// Duration returns the offset from midnight as a time.Duration.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Second
}

// Add shifts the time of day by d, truncated to whole seconds.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Second)
}

// On anchors the time of day to the calendar day of date in loc as a wall-clock reading,
// so 10:00 stays 10:00 on days when the zone changes its offset. Values past EndOfDay
// roll over into the following days.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.In(loc).Date()
	s := int(t)
	return time.Date(y, m, d, s/3600, (s%3600)/60, s%60, 0, loc)
}

// String returns the "HH:MM:SS" representation.
func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// StartOfDay returns local midnight of the calendar day t falls on in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DateOf returns the calendar date of t in loc as midnight UTC, the shape used for DATE columns.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same calendar day.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Overlaps is the half-open interval overlap test: [aStart,aEnd) and [bStart,bEnd).
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}

// Package timeutil converts between the 12-hour clock the appointment forms
// use and the 24-hour "HH:MM" strings the visitor API stores.
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Period values for a 12-hour clock.
const (
	AM = "AM"
	PM = "PM"
)

// ErrEndBeforeStart is returned when a time window ends at or before its start.
var ErrEndBeforeStart = errors.New("End time must be after start time.")

// ErrInvalidTime is returned for values outside the fixed selectable enumerations.
var ErrInvalidTime = errors.New("invalid time")

// Hours, Minutes and Periods are the only values the time pickers offer.
var (
	Hours   = enumerate(1, 12, 1)
	Minutes = enumerate(0, 55, 5)
	Periods = []string{AM, PM}
)

func enumerate(from, to, step int) []string {
	var out []string
	for v := from; v <= to; v += step {
		out = append(out, fmt.Sprintf("%02d", v))
	}
	return out
}

// Clock12 is a 12-hour clock reading as selected in a form.
type Clock12 struct {
	Hour   int    // 1..12
	Minute int    // 0..59
	Period string // AM or PM
}

// String renders the reading as "09:05 AM".
func (c Clock12) String() string {
	return fmt.Sprintf("%02d:%02d %s", c.Hour, c.Minute, c.Period)
}

// To24Hour converts a 12-hour reading to "HH:MM".
// 12 AM is midnight ("00:MM") and 12 PM is noon ("12:MM").
func To24Hour(hour, minute int, period string) (string, error) {
	if hour < 1 || hour > 12 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, hour, minute)
	}

	h := hour % 12
	switch strings.ToUpper(period) {
	case AM:
	case PM:
		h += 12
	default:
		return "", fmt.Errorf("%w: period %q", ErrInvalidTime, period)
	}
	return fmt.Sprintf("%02d:%02d", h, minute), nil
}

// ParseClock12 converts the raw form strings ("09", "05", "AM") to "HH:MM".
func ParseClock12(hour, minute, period string) (string, error) {
	h, err := strconv.Atoi(strings.TrimSpace(hour))
	if err != nil {
		return "", fmt.Errorf("%w: hour %q", ErrInvalidTime, hour)
	}
	m, err := strconv.Atoi(strings.TrimSpace(minute))
	if err != nil {
		return "", fmt.Errorf("%w: minute %q", ErrInvalidTime, minute)
	}
	return To24Hour(h, m, period)
}

// From24Hour converts "HH:MM" back to a 12-hour reading.
func From24Hour(value string) (Clock12, error) {
	h, m, err := split(value)
	if err != nil {
		return Clock12{}, err
	}

	period := AM
	if h >= 12 {
		period = PM
	}
	hour := h % 12
	if hour == 0 {
		hour = 12
	}
	return Clock12{Hour: hour, Minute: m, Period: period}, nil
}

// MinutesSinceMidnight returns the minute of the day for "HH:MM".
func MinutesSinceMidnight(value string) (int, error) {
	h, m, err := split(value)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// ValidateWindow returns ErrEndBeforeStart when end <= start.
func ValidateWindow(start, end string) error {
	s, err := MinutesSinceMidnight(start)
	if err != nil {
		return err
	}
	e, err := MinutesSinceMidnight(end)
	if err != nil {
		return err
	}
	if e <= s {
		return ErrEndBeforeStart
	}
	return nil
}

// Format12 renders a stored "HH:MM" value for display, returning the input
// unchanged when it does not parse.
func Format12(value string) string {
	c, err := From24Hour(value)
	if err != nil {
		return value
	}
	return c.String()
}

func split(value string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || len(hh) != 2 || len(mm) < 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	// The API occasionally returns "HH:MM:SS".
	mm = mm[:2]

	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	return h, m, nil
}

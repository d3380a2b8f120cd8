// Package derive holds the pure recomputation rules behind the quotation
// form's derived fields.
package derive

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate accepts a calendar date or a timestamp and returns the calendar
// day it names, at midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		// keep the calendar day as written, drop the clock
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// Midnight returns t truncated to the start of its day in t's location.
func Midnight(t time.Time) time.Time {
	return now.With(t).BeginningOfDay()
}

func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// NormalizeDate rewrites any accepted date spelling as YYYY-MM-DD; unparseable
// input comes back unchanged.
func NormalizeDate(s string) string {
	if t, ok := ParseDate(s); ok {
		return FormatDate(t)
	}
	return s
}

// DateKey is the YYYYMMDD integer used for sorting and filtering. Zero means
// the date is unset or unparseable.
func DateKey(s string) int {
	t, ok := ParseDate(s)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(strings.ReplaceAll(FormatDate(t), "-", ""))
	return n
}

// Nights counts whole days between the normalized check-in and check-out,
// floored at zero. Missing dates yield zero.
func Nights(checkIn, checkOut string) int {
	in, ok := ParseDate(checkIn)
	if !ok {
		return 0
	}
	out, ok := ParseDate(checkOut)
	if !ok {
		return 0
	}
	return NightsBetween(in, out)
}

func NightsBetween(checkIn, checkOut time.Time) int {
	in := Midnight(checkIn)
	out := Midnight(checkOut)
	n := int(math.Round(out.Sub(in).Hours() / 24))
	if n < 0 {
		return 0
	}
	return n
}

// TravelEndDate is the last calendar day of a trip of the given length.
func TravelEndDate(travelDate string, days int) string {
	start, ok := ParseDate(travelDate)
	if !ok || days <= 0 {
		return ""
	}
	return FormatDate(start.AddDate(0, 0, days-1))
}

package derive

import (
	"fmt"
	"regexp"
	"time"

	"tripquote/internal/domain"
)

var autoTitle = regexp.MustCompile(`^Day \d+ Itinerary$`)

func DayTitle(n int) string { return fmt.Sprintf("Day %d Itinerary", n) }

// IsAutoTitle reports whether a title was generated rather than typed.
func IsAutoTitle(s string) bool { return s == "" || autoTitle.MatchString(s) }

// NormalizeDays maps unset or invalid trip lengths to one day.
func NormalizeDays(days int) int {
	if days < 1 {
		return 1
	}
	return days
}

// SyncItinerary resizes days to exactly NormalizeDays(n) entries. New entries
// are dated from travelDate (or today when unset) and get a generated title;
// entries already present are returned untouched. The input slice is not
// modified.
func SyncItinerary(days []domain.ItineraryDay, n int, travelDate string, today time.Time) []domain.ItineraryDay {
	target := NormalizeDays(n)
	if len(days) == target {
		return days
	}
	if len(days) > target {
		out := make([]domain.ItineraryDay, target)
		copy(out, days[:target])
		return out
	}

	base, ok := ParseDate(travelDate)
	if !ok {
		y, m, d := today.Date()
		base = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	out := make([]domain.ItineraryDay, len(days), target)
	copy(out, days)
	for i := len(days); i < target; i++ {
		date := FormatDate(base.AddDate(0, 0, i))
		out = append(out, domain.ItineraryDay{
			Day:     i + 1,
			Date:    date,
			DateKey: DateKey(date),
			Title:   DayTitle(i + 1),
		})
	}
	return out
}

// RenumberItinerary fixes day indices after a removal and re-titles entries
// whose title was never edited.
func RenumberItinerary(days []domain.ItineraryDay) []domain.ItineraryDay {
	out := make([]domain.ItineraryDay, len(days))
	for i, d := range days {
		if IsAutoTitle(d.Title) {
			d.Title = DayTitle(i + 1)
		}
		d.Day = i + 1
		out[i] = d
	}
	return out
}

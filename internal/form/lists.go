package form

import (
	"strconv"
	"strings"

	"tripquote/internal/derive"
	"tripquote/internal/domain"
)

var (
	pathInclusions      = MustParse("Inclusions")
	pathExclusions      = MustParse("Exclusions")
	pathSelectedFlights = MustParse("SelectedFlights")
)

var userEdit = SetOptions{Dirty: true, Touched: true}

// AddHotel appends a blank hotel stay.
func (c *Controller) AddHotel() {
	_ = c.mutate(pathHotels, userEdit, func(_, next *values) (effects, error) {
		next.Hotels = append(next.Hotels, domain.HotelStay{})
		return effects{}, nil
	})
}

// RemoveHotel drops the hotel at i. The last remaining hotel is never
// removed; that call returns false.
func (c *Controller) RemoveHotel(i int) bool {
	return c.removeAt(pathHotels, i, 1, func(v *values) int { return len(v.Hotels) }, func(v *values) {
		v.Hotels = append(v.Hotels[:i:i], v.Hotels[i+1:]...)
	})
}

func (c *Controller) AddInclusion(text string) {
	_ = c.mutate(pathInclusions, userEdit, func(_, next *values) (effects, error) {
		next.Inclusions = append(next.Inclusions, text)
		return effects{}, nil
	})
}

func (c *Controller) RemoveInclusion(i int) bool {
	return c.removeAt(pathInclusions, i, 0, func(v *values) int { return len(v.Inclusions) }, func(v *values) {
		v.Inclusions = append(v.Inclusions[:i:i], v.Inclusions[i+1:]...)
	})
}

func (c *Controller) AddExclusion(text string) {
	_ = c.mutate(pathExclusions, userEdit, func(_, next *values) (effects, error) {
		next.Exclusions = append(next.Exclusions, text)
		return effects{}, nil
	})
}

func (c *Controller) RemoveExclusion(i int) bool {
	return c.removeAt(pathExclusions, i, 0, func(v *values) int { return len(v.Exclusions) }, func(v *values) {
		v.Exclusions = append(v.Exclusions[:i:i], v.Exclusions[i+1:]...)
	})
}

// ToggleFlight selects offer, or unselects it when an offer with the same
// booking token is already selected. It reports whether the offer is
// selected afterwards.
func (c *Controller) ToggleFlight(offer domain.FlightOffer) bool {
	var selected bool
	_ = c.mutate(pathSelectedFlights, userEdit, func(_, next *values) (effects, error) {
		selected = true
		for i, f := range next.SelectedFlights {
			if f.BookingToken == offer.BookingToken {
				next.SelectedFlights = append(next.SelectedFlights[:i:i], next.SelectedFlights[i+1:]...)
				selected = false
				break
			}
		}
		if selected {
			next.SelectedFlights = append(next.SelectedFlights, offer.Clone())
		}
		next.Costs.FlightCost = derive.FlightCost(next.SelectedFlights)
		return effects{derived: []Path{pathFlightCost}, costs: true}, nil
	})
	return selected
}

// RemoveItineraryDay drops day i, renumbers the rest and shortens Days to
// match. The only remaining day is kept.
func (c *Controller) RemoveItineraryDay(i int) bool {
	removed := false
	_ = c.mutate(pathItinerary, userEdit, func(_, next *values) (effects, error) {
		if i < 0 || i >= len(next.Itinerary) || len(next.Itinerary) <= 1 {
			return effects{}, errNoChange
		}
		days := append(next.Itinerary[:i:i], next.Itinerary[i+1:]...)
		next.Itinerary = derive.RenumberItinerary(days)
		next.Days = len(next.Itinerary)
		syncTravelEnd(next)
		removed = true
		return effects{
			derived: []Path{MustParse("Days"), pathTravelEndDate, pathTravelEndDateKey},
			removed: &removal{list: "Itinerary", index: i},
		}, nil
	})
	return removed
}

// removeAt deletes element i of a list when more than floor elements remain.
func (c *Controller) removeAt(list Path, i, floor int, length func(*values) int, drop func(*values)) bool {
	removed := false
	_ = c.mutate(list, userEdit, func(_, next *values) (effects, error) {
		n := length(next)
		if i < 0 || i >= n || n <= floor {
			return effects{}, errNoChange
		}
		drop(next)
		removed = true
		return effects{removed: &removal{list: list.String(), index: i}}, nil
	})
	return removed
}

// shiftIndexed rewrites keys like Hotels[3].Name after Hotels[removed] is
// dropped: the removed index disappears and later ones move down by one.
func shiftIndexed[V any](m map[string]V, list string, removed int) map[string]V {
	out := make(map[string]V, len(m))
	prefix := list + "["
	for k, v := range m {
		if !strings.HasPrefix(k, prefix) {
			out[k] = v
			continue
		}
		rest := k[len(prefix):]
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			out[k] = v
			continue
		}
		n, err := strconv.Atoi(rest[:end])
		switch {
		case err != nil:
		case n == removed:
			continue
		case n > removed:
			k = prefix + strconv.Itoa(n-1) + rest[end:]
		}
		out[k] = v
	}
	return out
}

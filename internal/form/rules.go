package form

import (
	"strings"
	"time"

	"tripquote/internal/derive"
	"tripquote/internal/domain"
)

var (
	pathTravelDateKey    = MustParse("TravelDateKey")
	pathTravelEndDate    = MustParse("TravelEndDate")
	pathTravelEndDateKey = MustParse("TravelEndDateKey")
	pathItinerary        = MustParse("Itinerary")
	pathDestinations     = MustParse("Destinations")
	pathHotels           = MustParse("Hotels")
	pathFlightCost       = MustParse("Costs.FlightCost")
	pathTotalCost        = MustParse("Costs.TotalCost")
)

// effects is what a write changed besides the written field.
type effects struct {
	derived []Path
	costs   bool // total cost needs a recompute
	removed *removal
}

type removal struct {
	list  string
	index int
}

func (e *effects) add(p ...Path) { e.derived = append(e.derived, p...) }

// applyRules brings next back in line with the derived-field rules after p
// was written. prev is the tree before the write.
func applyRules(prev, next *values, p Path, today time.Time) (effects, error) {
	var fx effects
	idx := p.indices()
	switch pat := p.Pattern(); {
	case pat == "TravelDate" || pat == "Days":
		next.TravelDateKey = derive.DateKey(next.TravelDate)
		fx.add(pathTravelDateKey)
		if syncTravelEnd(next) || clearTravelEnd(next) {
			fx.add(pathTravelEndDate, pathTravelEndDateKey)
		}
		if synced := derive.SyncItinerary(next.Itinerary, next.Days, next.TravelDate, today); len(synced) != len(next.Itinerary) {
			next.Itinerary = synced
			fx.add(pathItinerary)
		}

	case pat == "TravelEndDate":
		next.TravelEndDateKey = derive.DateKey(next.TravelEndDate)
		fx.add(pathTravelEndDateKey)

	case strings.HasPrefix(pat, "Costs"):
		fx.costs = true

	case strings.HasPrefix(pat, "SelectedFlights"):
		next.Costs.FlightCost = derive.FlightCost(next.SelectedFlights)
		fx.add(pathFlightCost)
		fx.costs = true

	case pat == "Hotels[].CheckInDate":
		h := &next.Hotels[idx[0]]
		h.CheckInDateKey = derive.DateKey(h.CheckInDate)
		fx.add(At("Hotels", idx[0], "CheckInDateKey"))
		if h.CheckInDate != prev.Hotels[idx[0]].CheckInDate && h.CheckOutDate != "" {
			h.CheckOutDate = ""
			h.CheckOutDateKey = 0
			h.Nights = 0
			fx.add(At("Hotels", idx[0], "CheckOutDate"), At("Hotels", idx[0], "CheckOutDateKey"), At("Hotels", idx[0], "Nights"))
		}

	case pat == "Hotels[].CheckOutDate":
		h := &next.Hotels[idx[0]]
		h.CheckOutDateKey = derive.DateKey(h.CheckOutDate)
		fx.add(At("Hotels", idx[0], "CheckOutDateKey"))
		in, okIn := derive.ParseDate(h.CheckInDate)
		out, okOut := derive.ParseDate(h.CheckOutDate)
		switch {
		case okIn && okOut:
			if out.Before(in) {
				return fx, ErrCheckOutBeforeCheckIn
			}
			h.Nights = derive.NightsBetween(in, out)
			fx.add(At("Hotels", idx[0], "Nights"))
		case !okOut && h.Nights != 0:
			h.Nights = 0
			fx.add(At("Hotels", idx[0], "Nights"))
		}

	case pat == "Hotels" || pat == "Hotels[]":
		ensureHotel(next)
		hotelDateKeys(next)
		if err := hotelNights(next); err != nil {
			return fx, err
		}
		fx.add(pathHotels)

	case pat == "IsMultiDestination" || pat == "DestinationName" || strings.HasPrefix(pat, "Destinations"):
		forceDestinations(next)
		fx.add(pathDestinations)

	case pat == "Itinerary" || pat == "Itinerary[]":
		// Days stays the source of truth for the list length.
		next.Itinerary = derive.SyncItinerary(next.Itinerary, next.Days, next.TravelDate, today)
		itineraryDateKeys(next)
		fx.add(pathItinerary)

	case pat == "Itinerary[].Date":
		d := &next.Itinerary[idx[0]]
		d.DateKey = derive.DateKey(d.Date)
		fx.add(At("Itinerary", idx[0], "DateKey"))
	}
	return fx, nil
}

// Normalize applies the structural rules to a whole tree: the hotel floor,
// hotel nights, the itinerary length, forced destinations and every date
// key. A check-out earlier than its check-in is dropped. It is
// idempotent and does not touch the cost total, which is recomputed on its
// own schedule.
func Normalize(v domain.QuotationFormValues, today time.Time) domain.QuotationFormValues {
	v = v.Clone()
	ensureHotel(&v)
	dropReversedCheckOuts(&v)
	hotelDateKeys(&v)
	_ = hotelNights(&v)
	v.Itinerary = derive.SyncItinerary(v.Itinerary, v.Days, v.TravelDate, today)
	itineraryDateKeys(&v)
	forceDestinations(&v)
	v.TravelDateKey = derive.DateKey(v.TravelDate)
	syncTravelEnd(&v)
	return v
}

func syncTravelEnd(v *values) bool {
	end := derive.TravelEndDate(v.TravelDate, v.Days)
	if end == "" {
		return false
	}
	v.TravelEndDate = end
	v.TravelEndDateKey = derive.DateKey(end)
	return true
}

// clearTravelEnd empties the end date once the start date or the length no
// longer yields one.
func clearTravelEnd(v *values) bool {
	if v.TravelEndDate == "" && v.TravelEndDateKey == 0 {
		return false
	}
	v.TravelEndDate = ""
	v.TravelEndDateKey = 0
	return true
}

// hotelNights recomputes Nights for every hotel whose dates both parse.
func hotelNights(v *values) error {
	for i := range v.Hotels {
		h := &v.Hotels[i]
		in, okIn := derive.ParseDate(h.CheckInDate)
		out, okOut := derive.ParseDate(h.CheckOutDate)
		if !okIn || !okOut {
			continue
		}
		if out.Before(in) {
			return ErrCheckOutBeforeCheckIn
		}
		h.Nights = derive.NightsBetween(in, out)
	}
	return nil
}

func dropReversedCheckOuts(v *values) {
	for i := range v.Hotels {
		h := &v.Hotels[i]
		in, okIn := derive.ParseDate(h.CheckInDate)
		out, okOut := derive.ParseDate(h.CheckOutDate)
		if okIn && okOut && out.Before(in) {
			h.CheckOutDate = ""
			h.Nights = 0
		}
	}
}

func ensureHotel(v *values) {
	if len(v.Hotels) == 0 {
		v.Hotels = []domain.HotelStay{{}}
	}
}

func hotelDateKeys(v *values) {
	for i := range v.Hotels {
		h := &v.Hotels[i]
		h.CheckInDateKey = derive.DateKey(h.CheckInDate)
		h.CheckOutDateKey = derive.DateKey(h.CheckOutDate)
	}
}

func itineraryDateKeys(v *values) {
	for i := range v.Itinerary {
		v.Itinerary[i].DateKey = derive.DateKey(v.Itinerary[i].Date)
	}
}

// forceDestinations keeps a single-destination trip's list equal to its
// destination name.
func forceDestinations(v *values) {
	if v.IsMultiDestination {
		if v.Destinations == nil {
			v.Destinations = []string{}
		}
		return
	}
	if v.DestinationName == "" {
		v.Destinations = []string{}
		return
	}
	v.Destinations = []string{v.DestinationName}
}

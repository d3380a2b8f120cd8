package form

import (
	"fmt"

	"tripquote/internal/domain"
)

type values = domain.QuotationFormValues

// lens reads and writes one addressable field. idx carries the list indices
// of the path in order.
type lens struct {
	get func(v *values, idx []int) (any, error)
	set func(v *values, idx []int, in any) error
}

func top[T any](f func(*values) *T) lens {
	return lens{
		get: func(v *values, _ []int) (any, error) { return *f(v), nil },
		set: func(v *values, _ []int, in any) error {
			x, err := coerce[T](in)
			if err != nil {
				return err
			}
			*f(v) = x
			return nil
		},
	}
}

// item addresses a whole list element: Hotels[i], Inclusions[i].
func item[E any](list func(*values) *[]E) lens {
	return lens{
		get: func(v *values, idx []int) (any, error) {
			l := *list(v)
			if idx[0] >= len(l) {
				return nil, ErrIndexOutOfRange
			}
			return l[idx[0]], nil
		},
		set: func(v *values, idx []int, in any) error {
			l := *list(v)
			if idx[0] >= len(l) {
				return ErrIndexOutOfRange
			}
			x, err := coerce[E](in)
			if err != nil {
				return err
			}
			l[idx[0]] = x
			return nil
		},
	}
}

// elem addresses a field of a list element: Hotels[i].Nights.
func elem[E, T any](list func(*values) *[]E, f func(*E) *T) lens {
	return lens{
		get: func(v *values, idx []int) (any, error) {
			l := *list(v)
			if idx[0] >= len(l) {
				return nil, ErrIndexOutOfRange
			}
			return *f(&l[idx[0]]), nil
		},
		set: func(v *values, idx []int, in any) error {
			l := *list(v)
			if idx[0] >= len(l) {
				return ErrIndexOutOfRange
			}
			x, err := coerce[T](in)
			if err != nil {
				return err
			}
			*f(&l[idx[0]]) = x
			return nil
		},
	}
}

func hotels(v *values) *[]domain.HotelStay { return &v.Hotels }
func itinerary(v *values) *[]domain.ItineraryDay { return &v.Itinerary }
func flights(v *values) *[]domain.FlightOffer { return &v.SelectedFlights }
func inclusions(v *values) *[]string { return &v.Inclusions }
func exclusions(v *values) *[]string { return &v.Exclusions }
func destinations(v *values) *[]string { return &v.Destinations }

var lenses = map[string]lens{
	"LeadID":             top(func(v *values) *string { return &v.LeadID }),
	"TripID":             top(func(v *values) *string { return &v.TripID }),
	"ClientName":         top(func(v *values) *string { return &v.ClientName }),
	"ClientContact":      top(func(v *values) *string { return &v.ClientContact }),
	"ClientEmail":        top(func(v *values) *string { return &v.ClientEmail }),
	"TravelDate":         top(func(v *values) *string { return &v.TravelDate }),
	"TravelDateKey":      top(func(v *values) *int { return &v.TravelDateKey }),
	"TravelEndDate":      top(func(v *values) *string { return &v.TravelEndDate }),
	"TravelEndDateKey":   top(func(v *values) *int { return &v.TravelEndDateKey }),
	"AssignDate":         top(func(v *values) *string { return &v.AssignDate }),
	"NoOfPax":            top(func(v *values) *int { return &v.NoOfPax }),
	"Child":              top(func(v *values) *int { return &v.Child }),
	"Infant":             top(func(v *values) *int { return &v.Infant }),
	"Budget":             top(func(v *values) *float64 { return &v.Budget }),
	"DepartureCity":      top(func(v *values) *string { return &v.DepartureCity }),
	"DestinationName":    top(func(v *values) *string { return &v.DestinationName }),
	"IsMultiDestination": top(func(v *values) *bool { return &v.IsMultiDestination }),
	"Destinations":       top(destinations),
	"Destinations[]":     item(destinations),
	"Days":               top(func(v *values) *int { return &v.Days }),
	"Nights":             top(func(v *values) *int { return &v.Nights }),
	"PriceType":          top(func(v *values) *string { return &v.PriceType }),
	"Currency":           top(func(v *values) *string { return &v.Currency }),
	"CreatedAt":          top(func(v *values) *string { return &v.CreatedAt }),

	"Costs":                 top(func(v *values) *domain.Costs { return &v.Costs }),
	"Costs.FlightCost":      top(func(v *values) *float64 { return &v.Costs.FlightCost }),
	"Costs.VisaCost":        top(func(v *values) *float64 { return &v.Costs.VisaCost }),
	"Costs.LandPackageCost": top(func(v *values) *float64 { return &v.Costs.LandPackageCost }),
	"Costs.TotalTax":        top(func(v *values) *float64 { return &v.Costs.TotalTax }),
	"Costs.GST":             top(func(v *values) *float64 { return &v.Costs.GST }),
	"Costs.TCS":             top(func(v *values) *float64 { return &v.Costs.TCS }),
	"Costs.GstWaivedOff":    top(func(v *values) *float64 { return &v.Costs.GstWaivedOff }),
	"Costs.TcsWaivedOff":    top(func(v *values) *float64 { return &v.Costs.TcsWaivedOff }),
	"Costs.PackageWithGST":  top(func(v *values) *bool { return &v.Costs.PackageWithGST }),
	"Costs.PackageWithTCS":  top(func(v *values) *bool { return &v.Costs.PackageWithTCS }),
	"Costs.TotalCost":       top(func(v *values) *float64 { return &v.Costs.TotalCost }),

	"Hotels":                   top(hotels),
	"Hotels[]":                 item(hotels),
	"Hotels[].Name":            elem(hotels, func(h *domain.HotelStay) *string { return &h.Name }),
	"Hotels[].City":            elem(hotels, func(h *domain.HotelStay) *string { return &h.City }),
	"Hotels[].RoomType":        elem(hotels, func(h *domain.HotelStay) *string { return &h.RoomType }),
	"Hotels[].Category":        elem(hotels, func(h *domain.HotelStay) *string { return &h.Category }),
	"Hotels[].Meals":           elem(hotels, func(h *domain.HotelStay) *[]string { return &h.Meals }),
	"Hotels[].CheckInDate":     elem(hotels, func(h *domain.HotelStay) *string { return &h.CheckInDate }),
	"Hotels[].CheckInDateKey":  elem(hotels, func(h *domain.HotelStay) *int { return &h.CheckInDateKey }),
	"Hotels[].CheckOutDate":    elem(hotels, func(h *domain.HotelStay) *string { return &h.CheckOutDate }),
	"Hotels[].CheckOutDateKey": elem(hotels, func(h *domain.HotelStay) *int { return &h.CheckOutDateKey }),
	"Hotels[].Nights":          elem(hotels, func(h *domain.HotelStay) *int { return &h.Nights }),
	"Hotels[].Comments":        elem(hotels, func(h *domain.HotelStay) *string { return &h.Comments }),

	"Inclusions":   top(inclusions),
	"Inclusions[]": item(inclusions),
	"Exclusions":   top(exclusions),
	"Exclusions[]": item(exclusions),

	"Itinerary":               top(itinerary),
	"Itinerary[]":             item(itinerary),
	"Itinerary[].Day":         elem(itinerary, func(d *domain.ItineraryDay) *int { return &d.Day }),
	"Itinerary[].Date":        elem(itinerary, func(d *domain.ItineraryDay) *string { return &d.Date }),
	"Itinerary[].DateKey":     elem(itinerary, func(d *domain.ItineraryDay) *int { return &d.DateKey }),
	"Itinerary[].Title":       elem(itinerary, func(d *domain.ItineraryDay) *string { return &d.Title }),
	"Itinerary[].Activity":    elem(itinerary, func(d *domain.ItineraryDay) *string { return &d.Activity }),
	"Itinerary[].Description": elem(itinerary, func(d *domain.ItineraryDay) *string { return &d.Description }),
	"Itinerary[].ImageURL":    elem(itinerary, func(d *domain.ItineraryDay) *string { return &d.ImageURL }),

	"OutboundFlight":               top(func(v *values) *domain.FlightQuery { return &v.OutboundFlight }),
	"OutboundFlight.From":          top(func(v *values) *string { return &v.OutboundFlight.From }),
	"OutboundFlight.To":            top(func(v *values) *string { return &v.OutboundFlight.To }),
	"OutboundFlight.DepartureDate": top(func(v *values) *string { return &v.OutboundFlight.DepartureDate }),

	"SelectedFlights":               top(flights),
	"SelectedFlights[]":             item(flights),
	"SelectedFlights[].Price":       elem(flights, func(f *domain.FlightOffer) *float64 { return &f.Price }),
	"SelectedFlights[].CustomPrice": elem(flights, func(f *domain.FlightOffer) **float64 { return &f.CustomPrice }),
}

func lookup(p Path) (lens, error) {
	l, ok := lenses[p.Pattern()]
	if !ok {
		return lens{}, fmt.Errorf("%w: %s", ErrUnknownPath, p)
	}
	return l, nil
}

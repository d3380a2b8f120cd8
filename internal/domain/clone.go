package domain

// Clone returns a copy sharing no slices or pointers with v.
func (v QuotationFormValues) Clone() QuotationFormValues {
	out := v
	out.Destinations = cloneStrings(v.Destinations)
	out.Inclusions = cloneStrings(v.Inclusions)
	out.Exclusions = cloneStrings(v.Exclusions)
	if v.Hotels != nil {
		out.Hotels = make([]HotelStay, len(v.Hotels))
		for i, h := range v.Hotels {
			out.Hotels[i] = h.Clone()
		}
	}
	if v.Itinerary != nil {
		out.Itinerary = make([]ItineraryDay, len(v.Itinerary))
		copy(out.Itinerary, v.Itinerary)
	}
	if v.SelectedFlights != nil {
		out.SelectedFlights = make([]FlightOffer, len(v.SelectedFlights))
		for i, f := range v.SelectedFlights {
			out.SelectedFlights[i] = f.Clone()
		}
	}
	return out
}

func (h HotelStay) Clone() HotelStay {
	h.Meals = cloneStrings(h.Meals)
	return h
}

func (f FlightOffer) Clone() FlightOffer {
	if f.CustomPrice != nil {
		p := *f.CustomPrice
		f.CustomPrice = &p
	}
	if f.Segments != nil {
		segs := make([]FlightSegment, len(f.Segments))
		copy(segs, f.Segments)
		f.Segments = segs
	}
	return f
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

package domain

// Source is a record a quotation can be started from: a *LeadRecord or a
// *FollowUpRecord.
type Source interface {
	sourceTripID() string
}

// LeadRecord is a fresh customer inquiry; client fields are nested.
type LeadRecord struct {
	LeadID            string         `json:"LeadId"`
	TripID            string         `json:"TripId"`
	AssignDate        string         `json:"AssignDate,omitempty"`
	Quotations        []string       `json:"Quotations,omitempty"`
	ClientLeadDetails *ClientDetails `json:"ClientLeadDetails,omitempty"`
}

type ClientDetails struct {
	FullName           string   `json:"FullName"`
	Contact            string   `json:"Contact"`
	Email              string   `json:"Email"`
	TravelDate         string   `json:"TravelDate"`
	Pax                int      `json:"Pax"`
	Child              int      `json:"Child"`
	Infant             int      `json:"Infant"`
	Budget             float64  `json:"Budget"`
	DepartureCity      string   `json:"DepartureCity"`
	DestinationName    string   `json:"DestinationName"`
	Destinations       []string `json:"Destinations"`
	Days               int      `json:"Days"`
	IsMultiDestination bool     `json:"IsMultiDestination"`
}

// FollowUpRecord is a quotation already in progress; client fields are flat
// and carry the sales API's hyphenated names.
type FollowUpRecord struct {
	LeadID             string         `json:"LeadId"`
	TripID             string         `json:"TripId"`
	QuoteID            string         `json:"QuoteId"`
	AssignDate         string         `json:"AssignDate,omitempty"`
	Quotations         []string       `json:"Quotations,omitempty"`
	ClientName         string         `json:"Client-Name"`
	ClientContact      string         `json:"Client-Contact"`
	ClientEmail        string         `json:"Client-Email"`
	TravelDate         string         `json:"TravelDate"`
	NoOfPax            int            `json:"NoOfPax"`
	Child              int            `json:"Child"`
	Infant             int            `json:"Infant"`
	Budget             float64        `json:"Budget"`
	DepartureCity      string         `json:"DepartureCity"`
	DestinationName    string         `json:"DestinationName"`
	Destinations       []string       `json:"Destinations"`
	Days               int            `json:"Days"`
	IsMultiDestination bool           `json:"IsMultiDestination"`
	PriceType          string         `json:"PriceType,omitempty"`
	Currency           string         `json:"Currency,omitempty"`
	Costs              *Costs         `json:"Costs,omitempty"`
	Hotels             []HotelStay    `json:"Hotels,omitempty"`
	Inclusions         []string       `json:"Inclusions,omitempty"`
	Exclusions         []string       `json:"Exclusions,omitempty"`
	Itinerary          []ItineraryDay `json:"Itinerary,omitempty"`
	SelectedFlights    []FlightOffer  `json:"selectedFlights,omitempty"`
}

func (l *LeadRecord) sourceTripID() string {
	if l == nil {
		return ""
	}
	return l.TripID
}

func (f *FollowUpRecord) sourceTripID() string {
	if f == nil {
		return ""
	}
	return f.TripID
}

// TripIDOf returns the trip a source belongs to, or "" for nil sources.
func TripIDOf(s Source) string {
	if s == nil {
		return ""
	}
	return s.sourceTripID()
}

// QuotationsOf returns the quotation ids already recorded on the source's lead.
func QuotationsOf(s Source) []string {
	switch r := s.(type) {
	case *LeadRecord:
		if r != nil {
			return r.Quotations
		}
	case *FollowUpRecord:
		if r != nil {
			return r.Quotations
		}
	}
	return nil
}

package app_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"tripquote/internal/app"
	"tripquote/internal/domain"
	"tripquote/internal/form"
)

var now = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return m
}

func TestSourceFromMap_Lead(t *testing.T) {
	m := decode(t, `{
		"LeadId": "L1", "TripId": "T1", "Quotations": ["Q-0"],
		"ClientLeadDetails": {
			"FullName": "Asha Rao", "Contact": 9876543210, "Pax": "3",
			"TravelDate": "2024-06-01T00:00:00.000Z", "DestinationName": "Bali",
			"Days": "5", "Budget": "1,20,000"
		}
	}`)
	lead, ok := app.SourceFromMap(m).(*domain.LeadRecord)
	if !ok {
		t.Fatalf("expected a lead")
	}
	if lead.TripID != "T1" || lead.LeadID != "L1" || !reflect.DeepEqual(lead.Quotations, []string{"Q-0"}) {
		t.Fatalf("record fields: %+v", lead)
	}
	c := lead.ClientLeadDetails
	if c == nil {
		t.Fatal("client details missing")
	}
	if c.FullName != "Asha Rao" || c.Contact != "9876543210" || c.Pax != 3 || c.Days != 5 || c.Budget != 120000 {
		t.Fatalf("client: %+v", c)
	}
}

func TestSourceFromMap_FollowUp(t *testing.T) {
	m := decode(t, `{
		"TripId": "T2", "QuoteId": "Q-7", "Client-Name": "Ravi",
		"Client-Contact": "9000000000", "NoOfPax": 2, "Days": 3,
		"DestinationName": "Goa", "Currency": "USD",
		"Costs": {"FlightCost": "4,000", "GSTAmount": 180},
		"GST": {"Enabled": true, "WaivedOffAmount": "30"},
		"Hotels": [{"Name": "Taj", "City": "Panaji", "Nights": 2}],
		"Itinearies": [{"Day": 1, "Date": "2024-06-01", "Title": "Arrive"}],
		"selectedFlights": [{"booking_token": "b1", "price": 5000}]
	}`)
	fu, ok := app.SourceFromMap(m).(*domain.FollowUpRecord)
	if !ok {
		t.Fatalf("expected a follow-up")
	}
	if fu.QuoteID != "Q-7" || fu.ClientName != "Ravi" || fu.NoOfPax != 2 || fu.Currency != "USD" {
		t.Fatalf("fields: %+v", fu)
	}
	if fu.Costs == nil {
		t.Fatal("costs missing")
	}
	if fu.Costs.FlightCost != 4000 || fu.Costs.GST != 180 || fu.Costs.GstWaivedOff != 30 || !fu.Costs.PackageWithGST {
		t.Fatalf("costs: %+v", *fu.Costs)
	}
	if len(fu.Hotels) != 1 || fu.Hotels[0].Name != "Taj" {
		t.Fatalf("hotels: %+v", fu.Hotels)
	}
	if len(fu.Itinerary) != 1 || fu.Itinerary[0].Title != "Arrive" || fu.Itinerary[0].DateKey != 20240601 {
		t.Fatalf("itinerary: %+v", fu.Itinerary)
	}
	if len(fu.SelectedFlights) != 1 || fu.SelectedFlights[0].BookingToken != "b1" {
		t.Fatalf("flights: %+v", fu.SelectedFlights)
	}
}

func TestSourceFromMap_FlatWithoutQuoteIsFollowUp(t *testing.T) {
	src := app.SourceFromMap(map[string]any{"TripId": "T3", "Client-Name": "X"})
	if _, ok := src.(*domain.FollowUpRecord); !ok {
		t.Fatalf("got %T", src)
	}
	if _, ok := app.SourceFromMap(map[string]any{"TripId": "T4"}).(*domain.LeadRecord); !ok {
		t.Fatal("bare record should be a lead")
	}
	if domain.TripIDOf(app.SourceFromMap(nil)) != "" {
		t.Fatal("nil map should yield an empty lead")
	}
}

func TestDefaults_NilSource(t *testing.T) {
	v := app.Defaults(nil, now)

	if v.Days != 2 || v.Nights != 1 {
		t.Fatalf("days/nights: %d/%d", v.Days, v.Nights)
	}
	if v.PriceType != "Total" || v.Currency != "INR" {
		t.Fatalf("price type/currency: %q %q", v.PriceType, v.Currency)
	}
	if len(v.Hotels) != 1 {
		t.Fatalf("expected one blank hotel, got %d", len(v.Hotels))
	}
	if len(v.Itinerary) != 2 || v.Itinerary[0].Date != "2024-05-01" || v.Itinerary[1].Date != "2024-05-02" {
		t.Fatalf("itinerary: %+v", v.Itinerary)
	}
	if v.Destinations == nil || len(v.Destinations) != 0 {
		t.Fatalf("destinations: %#v", v.Destinations)
	}
	if v.Inclusions == nil || v.Exclusions == nil {
		t.Fatal("inclusions/exclusions must be empty lists")
	}
	if v.AssignDate != "2024-05-01T09:30:00.000Z" || v.CreatedAt != v.AssignDate {
		t.Fatalf("stamps: %q %q", v.AssignDate, v.CreatedAt)
	}
}

func TestDefaults_Lead(t *testing.T) {
	lead := &domain.LeadRecord{
		LeadID: "L1", TripID: "T1", AssignDate: "2024-04-01T10:00:00.000Z",
		ClientLeadDetails: &domain.ClientDetails{
			FullName: "Asha", Contact: "9876543210", TravelDate: "2024-06-10T00:00:00Z",
			DepartureCity: "Delhi", DestinationName: "Bali", Days: 4, Pax: 2,
		},
	}
	v := app.Defaults(lead, now)

	if v.TripID != "T1" || v.LeadID != "L1" || v.AssignDate != "2024-04-01T10:00:00.000Z" {
		t.Fatalf("ids: %+v", v)
	}
	if v.TravelDate != "2024-06-10" || v.TravelDateKey != 20240610 {
		t.Fatalf("travel date: %q %d", v.TravelDate, v.TravelDateKey)
	}
	if v.TravelEndDate != "2024-06-13" {
		t.Fatalf("travel end: %q", v.TravelEndDate)
	}
	if v.Days != 4 || v.Nights != 3 || len(v.Itinerary) != 4 {
		t.Fatalf("days %d nights %d itinerary %d", v.Days, v.Nights, len(v.Itinerary))
	}
	if !reflect.DeepEqual(v.Destinations, []string{"Bali"}) {
		t.Fatalf("destinations: %v", v.Destinations)
	}
}

func TestDefaults_FollowUpKeepsItsContent(t *testing.T) {
	fu := &domain.FollowUpRecord{
		TripID: "T2", QuoteID: "Q-1", ClientName: "Ravi", Days: 3,
		DestinationName: "Goa", PriceType: "PerPerson",
		Costs:      &domain.Costs{FlightCost: 1000, VisaCost: 200, TotalCost: 1},
		Hotels:     []domain.HotelStay{{Name: "Taj", City: "Panaji", Nights: 2}},
		Inclusions: []string{"Breakfast"},
		Itinerary:  []domain.ItineraryDay{{Day: 1, Date: "2024-06-01", Title: "Arrive"}},
	}
	v := app.Defaults(fu, now)

	if v.PriceType != "PerPerson" || v.Currency != "INR" {
		t.Fatalf("price type/currency: %q %q", v.PriceType, v.Currency)
	}
	if v.Costs.TotalCost != 1200 {
		t.Fatalf("total should be recomputed, got %v", v.Costs.TotalCost)
	}
	if len(v.Hotels) != 1 || v.Hotels[0].Name != "Taj" {
		t.Fatalf("hotels: %+v", v.Hotels)
	}
	if len(v.Itinerary) != 3 || v.Itinerary[0].Title != "Arrive" || v.Itinerary[2].Title != "Day 3 Itinerary" {
		t.Fatalf("itinerary: %+v", v.Itinerary)
	}
	if !reflect.DeepEqual(v.Inclusions, []string{"Breakfast"}) || len(v.Exclusions) != 0 {
		t.Fatalf("lists: %v %v", v.Inclusions, v.Exclusions)
	}
}

func TestDefaults_AreAlreadyNormalized(t *testing.T) {
	for name, src := range map[string]domain.Source{
		"nil":      nil,
		"lead":     &domain.LeadRecord{TripID: "T", ClientLeadDetails: &domain.ClientDetails{Days: 3, DestinationName: "Bali"}},
		"followup": &domain.FollowUpRecord{TripID: "T", Days: 2, IsMultiDestination: true},
	} {
		v := app.Defaults(src, now)
		if got := form.Normalize(v, now); !reflect.DeepEqual(got, v) {
			t.Fatalf("%s: normalizing defaults changed them:\n got %+v\nwant %+v", name, got, v)
		}
	}
}

package domain

// QuotationFormValues is the canonical tree edited by the quotation wizard.
// JSON names follow the sales API payload.
type QuotationFormValues struct {
	LeadID string `json:"LeadId,omitempty"`
	TripID string `json:"TripId"`

	ClientName    string `json:"Client-Name" validate:"required"`
	ClientContact string `json:"Client-Contact" validate:"required,min=10"`
	ClientEmail   string `json:"Client-Email" validate:"omitempty,email"`

	TravelDate       string `json:"TravelDate" validate:"required"` // YYYY-MM-DD
	TravelDateKey    int    `json:"TravelDateKey,omitempty"`
	TravelEndDate    string `json:"TravelEndDate,omitempty"`
	TravelEndDateKey int    `json:"TravelEndDateKey,omitempty"`
	AssignDate       string `json:"AssignDate,omitempty"`

	NoOfPax int     `json:"NoOfPax"`
	Child   int     `json:"Child"`
	Infant  int     `json:"Infant"`
	Budget  float64 `json:"Budget"`

	DepartureCity      string   `json:"DepartureCity" validate:"required"`
	DestinationName    string   `json:"DestinationName" validate:"required"`
	IsMultiDestination bool     `json:"IsMultiDestination"`
	Destinations       []string `json:"Destinations" validate:"min=1"`

	Days   int `json:"Days"`
	Nights int `json:"Nights"`

	PriceType string `json:"PriceType,omitempty"`
	Currency  string `json:"Currency,omitempty"`

	Costs      Costs          `json:"Costs"`
	Hotels     []HotelStay    `json:"Hotels" validate:"dive"`
	Inclusions []string       `json:"Inclusions"`
	Exclusions []string       `json:"Exclusions"`
	Itinerary  []ItineraryDay `json:"Itinerary"`

	OutboundFlight  FlightQuery   `json:"OutboundFlight"`
	SelectedFlights []FlightOffer `json:"selectedFlights"`

	CreatedAt string `json:"CreatedAt,omitempty"`
}

// Costs holds the price breakdown. TotalCost is derived, never typed.
type Costs struct {
	FlightCost      float64 `json:"FlightCost"`
	VisaCost        float64 `json:"VisaCost"`
	LandPackageCost float64 `json:"LandPackageCost"`
	TotalTax        float64 `json:"TotalTax"`
	GST             float64 `json:"GST"`
	TCS             float64 `json:"TCS"`
	GstWaivedOff    float64 `json:"GstWaivedOffAmt"`
	TcsWaivedOff    float64 `json:"TcsWaivedOffAmt"`
	PackageWithGST  bool    `json:"PackageWithGST"`
	PackageWithTCS  bool    `json:"PackageWithTCS"`
	TotalCost       float64 `json:"TotalCost"`
}

type HotelStay struct {
	Name            string   `json:"Name" validate:"required"`
	City            string   `json:"City" validate:"required"`
	RoomType        string   `json:"RoomType"`
	Category        string   `json:"Category"`
	Meals           []string `json:"Meals"`
	CheckInDate     string   `json:"CheckInDate"`
	CheckInDateKey  int      `json:"CheckInDateKey,omitempty"`
	CheckOutDate    string   `json:"CheckOutDate"`
	CheckOutDateKey int      `json:"CheckOutDateKey,omitempty"`
	Nights          int      `json:"Nights" validate:"min=1"`
	Comments        string   `json:"Comments"`
}

type ItineraryDay struct {
	Day         int    `json:"day"`
	Date        string `json:"Date"`
	DateKey     int    `json:"DateKey,omitempty"`
	Title       string `json:"Title"`
	Activity    string `json:"Activity"`
	Description string `json:"Description"`
	ImageURL    string `json:"ImageUrl"`
}

type FlightQuery struct {
	From          string `json:"from"`
	To            string `json:"to"`
	DepartureDate string `json:"departureDate"`
}

// FlightOffer is a snapshot of a search result picked by the salesperson.
// CustomPrice overrides Price when set.
type FlightOffer struct {
	BookingToken string          `json:"booking_token"`
	Airline      string          `json:"airline,omitempty"`
	From         string          `json:"from,omitempty"`
	To           string          `json:"to,omitempty"`
	Departure    string          `json:"departure_time,omitempty"`
	Arrival      string          `json:"arrival_time,omitempty"`
	Price        float64         `json:"price"`
	CustomPrice  *float64        `json:"customPrice,omitempty"`
	Segments     []FlightSegment `json:"flights,omitempty"`
}

type FlightSegment struct {
	Airline          string `json:"airline"`
	FlightNumber     string `json:"flight_number,omitempty"`
	DepartureAirport string `json:"departure_airport"`
	ArrivalAirport   string `json:"arrival_airport"`
	Duration         int    `json:"duration,omitempty"`
}

// EffectivePrice returns the override when present.
func (f FlightOffer) EffectivePrice() float64 {
	if f.CustomPrice != nil {
		return *f.CustomPrice
	}
	return f.Price
}

// Submission is what the wizard hands to the sales API on its final step.
type Submission struct {
	QuotationFormValues
	CompanyID     string `json:"CompanyId"`
	CompanyEmail  string `json:"CompanyEmail,omitempty"`
	AssignDateKey int    `json:"AssignDateKey,omitempty"`
}

// QuotationReceipt is the create-quotation response.
type QuotationReceipt struct {
	TripID  string `json:"TripId"`
	QuoteID string `json:"QuoteId"`
}

// LeadUpdate is sent to the lead endpoint after a quotation is created or a
// status changes.
type LeadUpdate struct {
	TripID            string   `json:"TripId"`
	LeadID            string   `json:"LeadId,omitempty"`
	Quotations        []string `json:"Quotations,omitempty"`
	SalesStatus       string   `json:"SalesStatus,omitempty"`
	LatestStatus      string   `json:"LatestStatus,omitempty"`
	LatestQuotationID string   `json:"LatestQuotationId,omitempty"`
}

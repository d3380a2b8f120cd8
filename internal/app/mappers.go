package app

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tripquote/internal/derive"
	"tripquote/internal/domain"
	"tripquote/internal/form"
)

/********** alias registries (single source of truth) **********/

// clientAliases: where each client field lives in a lead (nested
// ClientLeadDetails) or a follow-up (flat, hyphenated keys).
var clientAliases = map[string][]string{
	"name":        {"ClientLeadDetails.FullName", "Client-Name", "ClientName", "FullName"},
	"contact":     {"ClientLeadDetails.Contact", "Client-Contact", "ClientContact", "Contact"},
	"email":       {"ClientLeadDetails.Email", "Client-Email", "ClientEmail", "Email"},
	"travel_date": {"ClientLeadDetails.TravelDate", "TravelDate"},
	"pax":         {"ClientLeadDetails.Pax", "NoOfPax", "Pax"},
	"child":       {"ClientLeadDetails.Child", "Child"},
	"infant":      {"ClientLeadDetails.Infant", "Infant"},
	"budget":      {"ClientLeadDetails.Budget", "Budget"},
	"departure":   {"ClientLeadDetails.DepartureCity", "DepartureCity"},
	"destination": {"ClientLeadDetails.DestinationName", "DestinationName"},
	"dests":       {"ClientLeadDetails.Destinations", "Destinations"},
	"days":        {"ClientLeadDetails.Days", "Days"},
	"multi":       {"ClientLeadDetails.IsMultiDestination", "IsMultiDestination"},
}

var recordAliases = map[string][]string{
	"lead_id":     {"LeadId", "LeadID", "leadId"},
	"trip_id":     {"TripId", "TripID", "tripId"},
	"quote_id":    {"QuoteId", "QuoteID", "quoteId"},
	"assign_date": {"AssignDate"},
	"quotations":  {"Quotations"},
	"price_type":  {"PriceType"},
	"currency":    {"Currency"},
	"inclusions":  {"Inclusions"},
	"exclusions":  {"Exclusions"},
	"itinerary":   {"Itinerary", "Itinearies", "Itineraries"},
	"flights":     {"selectedFlights", "SelectedFlights"},
}

// costAliases covers both the flat Costs block and the older layout with
// separate GST/TCS objects.
var costAliases = map[string][]string{
	"flight":      {"Costs.FlightCost"},
	"visa":        {"Costs.VisaCost"},
	"land":        {"Costs.LandPackageCost"},
	"tax":         {"Costs.TotalTax"},
	"gst":         {"Costs.GST", "Costs.GSTAmount"},
	"tcs":         {"Costs.TCS", "Costs.TCSAmount"},
	"gst_waived":  {"Costs.GstWaivedOffAmt", "Costs.GstWaivedOff", "GST.WaivedOffAmount"},
	"tcs_waived":  {"Costs.TcsWaivedOffAmt", "Costs.TcsWaivedOff", "TCS.WaivedOffAmount"},
	"gst_enabled": {"Costs.PackageWithGST", "GST.Enabled"},
	"tcs_enabled": {"Costs.PackageWithTCS", "TCS.Enabled"},
	"total":       {"Costs.TotalCost"},
}

var dayAliases = map[string][]string{
	"day":         {"day", "Day"},
	"date":        {"Date", "date"},
	"title":       {"Title", "title"},
	"activity":    {"Activity", "Activities", "activity"},
	"description": {"Description", "description"},
	"image":       {"ImageUrl", "ImageURL", "image"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "". Numbers are rendered, so a
// contact stored as 9876543210 still comes back as text.
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

func hasAny(m map[string]any, paths ...string) bool {
	for _, p := range paths {
		if lookupAny(m, p) != nil {
			return true
		}
	}
	return false
}

// getFloatFlexible: number from several paths (float64/int/string like
// "1,20,000").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return &f
			}
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return &n
			}
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

func firstIntFlexible(m map[string]any, paths ...string) int {
	if v := firstInt64Flexible(m, paths...); v != nil {
		return int(*v)
	}
	return 0
}

func firstFloat(m map[string]any, paths ...string) float64 {
	if v := getFloatFlexible(m, paths...); v != nil {
		return *v
	}
	return 0
}

// firstBool accepts true/false and their string spellings.
func firstBool(m map[string]any, paths ...string) (bool, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case bool:
			return v, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

// firstSliceStrings: accept []any with either strings or {name/title/text}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		raw, ok := lookupAny(m, k).([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					out = append(out, s)
				}
			case map[string]any:
				for _, f := range []string{"name", "title", "text"} {
					if s, ok := t[f].(string); ok && s != "" {
						out = append(out, s)
						break
					}
				}
			}
		}
		return out
	}
	return nil
}

// decodeInto re-encodes a loosely typed sub-tree into dst. Failures are
// logged and leave dst untouched.
func decodeInto(m map[string]any, dst any, paths ...string) bool {
	for _, p := range paths {
		v := lookupAny(m, p)
		if v == nil {
			continue
		}
		b, err := json.Marshal(v)
		if err == nil {
			err = json.Unmarshal(b, dst)
		}
		if err != nil {
			log.Warn().Err(err).Str("context", "decodeInto").Str("path", p).Msg("skipping malformed field")
			return false
		}
		return true
	}
	return false
}

/********** source mapper **********/

// SourceFromMap turns a decoded JSON record into a lead or a follow-up.
// A nested ClientLeadDetails object marks a lead; a quote id or flat
// client keys mark a follow-up. Anything else is treated as a bare lead.
func SourceFromMap(m map[string]any) domain.Source {
	if m == nil {
		return &domain.LeadRecord{}
	}
	if _, nested := lookupAny(m, "ClientLeadDetails").(map[string]any); nested {
		return mapLead(m)
	}
	if hasAny(m, recordAliases["quote_id"]...) || hasAny(m, "Client-Name", "Client-Contact", "Client-Email") {
		return mapFollowUp(m)
	}
	return mapLead(m)
}

func mapClient(m map[string]any) domain.ClientDetails {
	c := domain.ClientDetails{
		FullName:        firstNonEmptyAlias(m, clientAliases, "name"),
		Contact:         firstNonEmptyAlias(m, clientAliases, "contact"),
		Email:           firstNonEmptyAlias(m, clientAliases, "email"),
		TravelDate:      firstNonEmptyAlias(m, clientAliases, "travel_date"),
		Pax:             firstIntFlexible(m, clientAliases["pax"]...),
		Child:           firstIntFlexible(m, clientAliases["child"]...),
		Infant:          firstIntFlexible(m, clientAliases["infant"]...),
		Budget:          firstFloat(m, clientAliases["budget"]...),
		DepartureCity:   firstNonEmptyAlias(m, clientAliases, "departure"),
		DestinationName: firstNonEmptyAlias(m, clientAliases, "destination"),
		Destinations:    firstSliceStrings(m, clientAliases["dests"]...),
		Days:            firstIntFlexible(m, clientAliases["days"]...),
	}
	c.IsMultiDestination, _ = firstBool(m, clientAliases["multi"]...)
	return c
}

func mapLead(m map[string]any) *domain.LeadRecord {
	l := &domain.LeadRecord{
		LeadID:     firstNonEmptyAlias(m, recordAliases, "lead_id"),
		TripID:     firstNonEmptyAlias(m, recordAliases, "trip_id"),
		AssignDate: firstNonEmptyAlias(m, recordAliases, "assign_date"),
		Quotations: firstSliceStrings(m, recordAliases["quotations"]...),
	}
	if _, ok := lookupAny(m, "ClientLeadDetails").(map[string]any); ok {
		c := mapClient(m)
		l.ClientLeadDetails = &c
	}
	return l
}

func mapFollowUp(m map[string]any) *domain.FollowUpRecord {
	c := mapClient(m)
	f := &domain.FollowUpRecord{
		LeadID:             firstNonEmptyAlias(m, recordAliases, "lead_id"),
		TripID:             firstNonEmptyAlias(m, recordAliases, "trip_id"),
		QuoteID:            firstNonEmptyAlias(m, recordAliases, "quote_id"),
		AssignDate:         firstNonEmptyAlias(m, recordAliases, "assign_date"),
		Quotations:         firstSliceStrings(m, recordAliases["quotations"]...),
		ClientName:         c.FullName,
		ClientContact:      c.Contact,
		ClientEmail:        c.Email,
		TravelDate:         c.TravelDate,
		NoOfPax:            c.Pax,
		Child:              c.Child,
		Infant:             c.Infant,
		Budget:             c.Budget,
		DepartureCity:      c.DepartureCity,
		DestinationName:    c.DestinationName,
		Destinations:       c.Destinations,
		Days:               c.Days,
		IsMultiDestination: c.IsMultiDestination,
		PriceType:          firstNonEmptyAlias(m, recordAliases, "price_type"),
		Currency:           firstNonEmptyAlias(m, recordAliases, "currency"),
		Inclusions:         firstSliceStrings(m, recordAliases["inclusions"]...),
		Exclusions:         firstSliceStrings(m, recordAliases["exclusions"]...),
		Costs:              mapCosts(m),
		Itinerary:          mapItinerary(m),
	}
	var hotels []domain.HotelStay
	if decodeInto(m, &hotels, "Hotels") {
		f.Hotels = hotels
	}
	var flights []domain.FlightOffer
	if decodeInto(m, &flights, recordAliases["flights"]...) {
		f.SelectedFlights = flights
	}
	return f
}

func mapCosts(m map[string]any) *domain.Costs {
	if !hasAny(m, "Costs", "GST", "TCS") {
		return nil
	}
	c := &domain.Costs{
		FlightCost:      firstFloat(m, costAliases["flight"]...),
		VisaCost:        firstFloat(m, costAliases["visa"]...),
		LandPackageCost: firstFloat(m, costAliases["land"]...),
		TotalTax:        firstFloat(m, costAliases["tax"]...),
		GST:             firstFloat(m, costAliases["gst"]...),
		TCS:             firstFloat(m, costAliases["tcs"]...),
		GstWaivedOff:    firstFloat(m, costAliases["gst_waived"]...),
		TcsWaivedOff:    firstFloat(m, costAliases["tcs_waived"]...),
		TotalCost:       firstFloat(m, costAliases["total"]...),
	}
	c.PackageWithGST, _ = firstBool(m, costAliases["gst_enabled"]...)
	c.PackageWithTCS, _ = firstBool(m, costAliases["tcs_enabled"]...)
	return c
}

func mapItinerary(m map[string]any) []domain.ItineraryDay {
	var raw []any
	for _, p := range recordAliases["itinerary"] {
		if r, ok := lookupAny(m, p).([]any); ok {
			raw = r
			break
		}
	}
	if raw == nil {
		return nil
	}
	out := make([]domain.ItineraryDay, 0, len(raw))
	for i, it := range raw {
		d, ok := it.(map[string]any)
		if !ok {
			continue
		}
		day := firstIntFlexible(d, dayAliases["day"]...)
		if day == 0 {
			day = i + 1
		}
		date := derive.NormalizeDate(firstNonEmptyAlias(d, dayAliases, "date"))
		out = append(out, domain.ItineraryDay{
			Day:         day,
			Date:        date,
			DateKey:     derive.DateKey(date),
			Title:       firstNonEmptyAlias(d, dayAliases, "title"),
			Activity:    firstNonEmptyAlias(d, dayAliases, "activity"),
			Description: firstNonEmptyAlias(d, dayAliases, "description"),
			ImageURL:    firstNonEmptyAlias(d, dayAliases, "image"),
		})
	}
	return out
}

/********** defaults projection **********/

// isoMillis matches the timestamps the sales API writes.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

const (
	defaultDays      = 2
	defaultPriceType = "Total"
	defaultCurrency  = "INR"
)

// Defaults projects a lead or follow-up onto the form's starting values.
// It is total: a nil source or a record with every field missing still
// yields a consistent tree.
func Defaults(src domain.Source, now time.Time) domain.QuotationFormValues {
	stamp := now.UTC().Format(isoMillis)
	var (
		c    domain.ClientDetails
		v    domain.QuotationFormValues
		fu   *domain.FollowUpRecord
		lead *domain.LeadRecord
	)
	switch s := src.(type) {
	case *domain.LeadRecord:
		lead = s
	case *domain.FollowUpRecord:
		fu = s
	}

	switch {
	case fu != nil:
		v.LeadID, v.TripID, v.AssignDate = fu.LeadID, fu.TripID, fu.AssignDate
		c = domain.ClientDetails{
			FullName: fu.ClientName, Contact: fu.ClientContact, Email: fu.ClientEmail,
			TravelDate: fu.TravelDate, Pax: fu.NoOfPax, Child: fu.Child, Infant: fu.Infant,
			Budget: fu.Budget, DepartureCity: fu.DepartureCity, DestinationName: fu.DestinationName,
			Destinations: fu.Destinations, Days: fu.Days, IsMultiDestination: fu.IsMultiDestination,
		}
	case lead != nil:
		v.LeadID, v.TripID, v.AssignDate = lead.LeadID, lead.TripID, lead.AssignDate
		if lead.ClientLeadDetails != nil {
			c = *lead.ClientLeadDetails
		}
	}

	v.ClientName = c.FullName
	v.ClientContact = c.Contact
	v.ClientEmail = c.Email
	v.TravelDate = derive.NormalizeDate(c.TravelDate)
	if v.AssignDate == "" {
		v.AssignDate = stamp
	}
	v.NoOfPax, v.Child, v.Infant = c.Pax, c.Child, c.Infant
	v.Budget = c.Budget
	v.DepartureCity = c.DepartureCity
	v.DestinationName = c.DestinationName
	v.IsMultiDestination = c.IsMultiDestination
	switch {
	case len(c.Destinations) > 0:
		v.Destinations = append([]string(nil), c.Destinations...)
	case c.DestinationName != "":
		v.Destinations = []string{c.DestinationName}
	default:
		v.Destinations = []string{}
	}
	v.Days = defaultDays
	v.Nights = defaultDays - 1
	if c.Days > 0 {
		v.Days = c.Days
		v.Nights = c.Days - 1
	}
	v.PriceType = defaultPriceType
	v.Currency = defaultCurrency
	v.Inclusions = []string{}
	v.Exclusions = []string{}
	v.CreatedAt = stamp

	if fu != nil {
		if fu.PriceType != "" {
			v.PriceType = fu.PriceType
		}
		if fu.Currency != "" {
			v.Currency = fu.Currency
		}
		if fu.Costs != nil {
			v.Costs = *fu.Costs
		}
		if len(fu.Hotels) > 0 {
			v.Hotels = append([]domain.HotelStay(nil), fu.Hotels...)
		}
		if fu.Inclusions != nil {
			v.Inclusions = append([]string{}, fu.Inclusions...)
		}
		if fu.Exclusions != nil {
			v.Exclusions = append([]string{}, fu.Exclusions...)
		}
		if len(fu.Itinerary) > 0 {
			v.Itinerary = append([]domain.ItineraryDay(nil), fu.Itinerary...)
		}
		if fu.SelectedFlights != nil {
			v.SelectedFlights = append([]domain.FlightOffer(nil), fu.SelectedFlights...)
		}
	}

	v = form.Normalize(v, now)
	v.Costs.TotalCost = derive.TotalCost(v.Costs)
	return v
}

package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// messages maps "<pattern>|<tag>" to the text shown under the field.
var messages = map[string]string{
	"ClientName|required":      "Full name is required",
	"ClientContact|required":   "Contact is required",
	"ClientContact|min":        "Enter 10 digits",
	"ClientEmail|email":        "Enter a valid email",
	"TravelDate|required":      "Travel date is required",
	"DepartureCity|required":   "Departure city is required",
	"DestinationName|required": "Destination is required",
	"Destinations|min":         "Add at least one destination",
	"Hotels[].Name|required":   "Hotel name is required",
	"Hotels[].City|required":   "City is required",
	"Hotels[].Nights|min":      "Nights must be at least 1",
}

// validateTree runs every rule over v and returns the messages keyed by
// rendered path. A valid tree yields an empty map.
func validateTree(v *values) map[string]string {
	out := map[string]string{}
	err := validate.Struct(v)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out[""] = err.Error()
		return out
	}
	for _, fe := range verrs {
		key := strings.TrimPrefix(fe.Namespace(), "QuotationFormValues.")
		if _, seen := out[key]; seen {
			continue
		}
		out[key] = message(key, fe.Tag())
	}
	return out
}

func message(key, tag string) string {
	pattern := key
	if p, err := ParsePath(key); err == nil {
		pattern = p.Pattern()
	}
	if m, ok := messages[pattern+"|"+tag]; ok {
		return m
	}
	return fmt.Sprintf("%s is invalid (%s)", key, tag)
}

package dto

import (
	"strings"
	"time"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/services"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// MaxAvailabilityDays bounds one availability request
const MaxAvailabilityDays = 31

// AvailabilityRequest asks which pickup slots are open near an origin
type AvailabilityRequest struct {
	PostalCode string               `json:"postalCode"`
	Country    entities.CountryCode `json:"country"`
	From       string               `json:"from,omitempty"`
	Days       int                  `json:"days,omitempty"`
	Freight    bool                 `json:"freight"`
}

// Validate checks the request; zero Days and empty From take defaults
func (r AvailabilityRequest) Validate() validation.Result {
	var result validation.Result
	c := validation.NewChecker("", &result)

	if validation.OneOf(c, "country", r.Country, "Country", services.SupportedCountries) &&
		c.Required("postalCode", r.PostalCode, "Postal code") {
		c.Format("postalCode", services.ValidPostalCode(r.Country, r.PostalCode), "Postal code is not valid for "+string(r.Country))
	}
	if strings.TrimSpace(r.From) != "" {
		if _, err := services.ParseDate(r.From, time.UTC); err != nil {
			c.Errorf("from", validation.CodeInvalidFormat, "From must be a YYYY-MM-DD date")
		}
	}
	if r.Days != 0 {
		c.IntRange("days", r.Days, 1, MaxAvailabilityDays, "Days")
	}
	return result
}

// AvailabilityResponse lists open pickup slots per day
type AvailabilityResponse struct {
	Timezone    string               `json:"timezone"`
	WindowStart string               `json:"windowStart"`
	WindowEnd   string               `json:"windowEnd"`
	Days        []entities.PickupDay `json:"days"`
}

package dto

import (
	"strings"
	"time"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/services"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// QuoteRequest asks for pricing options. Only the location fields of the
// endpoints are needed; contacts are ignored.
type QuoteRequest struct {
	Origin      entities.Address     `json:"origin"`
	Destination entities.Address     `json:"destination"`
	Package     entities.PackageInfo `json:"package"`
	ShipDate    string               `json:"shipDate,omitempty"`
}

// QuoteRequestFor builds a request from a wizard shipment
func QuoteRequestFor(shipment entities.Shipment, shipDate string) QuoteRequest {
	return QuoteRequest{
		Origin:      shipment.Origin,
		Destination: shipment.Destination,
		Package:     shipment.Package,
		ShipDate:    shipDate,
	}
}

// Shipment returns the request as a shipment
func (r QuoteRequest) Shipment() entities.Shipment {
	return entities.Shipment{Origin: r.Origin, Destination: r.Destination, Package: r.Package}
}

// Validate checks the request; field paths are relative to the request
func (r QuoteRequest) Validate() validation.Result {
	var result validation.Result
	c := validation.NewChecker("", &result)

	validateEndpoint(c.Nested("origin"), r.Origin)
	validateEndpoint(c.Nested("destination"), r.Destination)
	services.ValidatePackage(c.Nested("package"), r.Package)

	if strings.TrimSpace(r.ShipDate) != "" {
		if _, err := services.ParseDate(r.ShipDate, time.UTC); err != nil {
			c.Errorf("shipDate", validation.CodeInvalidFormat, "Ship date must be YYYY-MM-DD")
		}
	}
	return result
}

func validateEndpoint(c *validation.Checker, a entities.Address) {
	if !validation.OneOf(c, "country", a.Country, "Country", services.SupportedCountries) {
		return
	}
	if c.Required("postalCode", a.PostalCode, "Postal code") {
		c.Format("postalCode", services.ValidPostalCode(a.Country, a.PostalCode), "Postal code is not valid for "+string(a.Country))
	}
	if strings.TrimSpace(a.State) != "" {
		c.Format("state", services.ValidState(a.Country, a.State), "State is not valid for "+string(a.Country))
	}
	if a.LocationType != "" {
		validation.OneOf(c, "locationType", a.LocationType, "Location type", entities.LocationTypes)
	}
}

// QuoteResponse is a priced quote
type QuoteResponse struct {
	Quote  entities.Quote `json:"quote"`
	Cached bool           `json:"cached"`
}

package entities

import "strings"

// CountryCode is an ISO 3166-1 alpha-2 country code
type CountryCode string

const (
	CountryUS CountryCode = "US"
	CountryCA CountryCode = "CA"
	CountryMX CountryCode = "MX"
)

// LocationType describes the kind of site at an address
type LocationType string

const (
	LocationCommercial       LocationType = "commercial"
	LocationResidential      LocationType = "residential"
	LocationIndustrial       LocationType = "industrial"
	LocationWarehouse        LocationType = "warehouse"
	LocationConstructionSite LocationType = "construction_site"
	LocationOther            LocationType = "other"
)

// LocationTypes lists every accepted location type
var LocationTypes = []LocationType{
	LocationCommercial,
	LocationResidential,
	LocationIndustrial,
	LocationWarehouse,
	LocationConstructionSite,
	LocationOther,
}

// ContactInfo identifies the person responsible at a location
type ContactInfo struct {
	Name      string `json:"name" yaml:"name"`
	Company   string `json:"company,omitempty" yaml:"company"`
	Phone     string `json:"phone" yaml:"phone"`
	Extension string `json:"extension,omitempty" yaml:"extension"`
	Email     string `json:"email,omitempty" yaml:"email"`
}

// Address represents a physical pickup, delivery or billing location
type Address struct {
	Street              string       `json:"street" yaml:"street"`
	Suite               string       `json:"suite,omitempty" yaml:"suite"`
	City                string       `json:"city" yaml:"city"`
	State               string       `json:"state" yaml:"state"`
	PostalCode          string       `json:"postalCode" yaml:"postal_code"`
	Country             CountryCode  `json:"country" yaml:"country"`
	LocationType        LocationType `json:"locationType" yaml:"location_type"`
	LocationDescription string       `json:"locationDescription,omitempty" yaml:"location_description"`
	Contact             ContactInfo  `json:"contact" yaml:"contact"`
}

// IsResidential reports whether deliveries to this address carry residential handling
func (a Address) IsResidential() bool {
	return a.LocationType == LocationResidential
}

// SameLocation compares the normalized street, city, state, postal code and country.
// Suite and contact are ignored.
func (a Address) SameLocation(other Address) bool {
	return normalize(a.Street) == normalize(other.Street) &&
		normalize(a.City) == normalize(other.City) &&
		normalize(a.State) == normalize(other.State) &&
		normalizePostal(a.PostalCode) == normalizePostal(other.PostalCode) &&
		normalize(string(a.Country)) == normalize(string(other.Country))
}

// IsZero reports whether no location fields have been filled in
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Street) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.State) == "" &&
		strings.TrimSpace(a.PostalCode) == ""
}

func normalize(value string) string {
	fields := strings.Fields(strings.ToUpper(value))
	for i, f := range fields {
		fields[i] = strings.TrimRight(f, ".,")
	}
	return strings.Join(fields, " ")
}

func normalizePostal(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, " ", "")
	// ZIP+4 and ZIP5 describe the same delivery area
	if len(value) == 10 && value[5] == '-' {
		value = value[:5]
	}
	return value
}

package services

import (
	"strings"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// ContactRules toggles the optional parts of a contact
type ContactRules struct {
	RequireCompany bool
	RequireEmail   bool
	// OptionalContact skips an address contact that was left entirely blank
	OptionalContact bool
}

// ValidateContact checks a contact under the checker's prefix
func ValidateContact(c *validation.Checker, contact entities.ContactInfo, rules ContactRules) {
	c.RequiredLength("name", contact.Name, "Contact name", 2, 100)

	if rules.RequireCompany {
		c.RequiredLength("company", contact.Company, "Company", 1, 100)
	} else {
		c.MaxLength("company", contact.Company, "Company", 100)
	}

	if c.Required("phone", contact.Phone, "Phone") {
		c.Format("phone", ValidPhone(contact.Phone), "Phone must be a valid 10-digit North American number")
	}
	if contact.Extension != "" {
		c.Format("extension", ValidExtension(contact.Extension), "Extension must be 1-6 digits")
	}

	switch {
	case strings.TrimSpace(contact.Email) != "":
		c.Format("email", ValidEmail(contact.Email), "Email must be a valid address")
	case rules.RequireEmail:
		c.Errorf("email", validation.CodeRequired, "Email is required")
	}
}

// ValidateAddress checks a location and its contact under the checker's prefix
func ValidateAddress(c *validation.Checker, address entities.Address, rules ContactRules) {
	c.RequiredLength("street", address.Street, "Street address", 3, 100)
	c.MaxLength("suite", address.Suite, "Suite", 50)

	if c.RequiredLength("city", address.City, "City", 2, 60) {
		c.Format("city", ValidCity(address.City), "City may only contain letters, spaces, periods, apostrophes and hyphens")
	}

	countryOK := validation.OneOf(c, "country", address.Country, "Country", SupportedCountries)

	if c.Required("state", address.State, "State") && countryOK {
		c.Format("state", ValidState(address.Country, address.State), "State is not valid for "+string(address.Country))
	}
	if c.Required("postalCode", address.PostalCode, "Postal code") && countryOK {
		c.Format("postalCode", ValidPostalCode(address.Country, address.PostalCode), postalMessage(address.Country))
	}

	if address.LocationType != "" {
		validation.OneOf(c, "locationType", address.LocationType, "Location type", entities.LocationTypes)
	}
	c.MaxLength("locationDescription", address.LocationDescription, "Location description", 200)

	if rules.OptionalContact && address.Contact == (entities.ContactInfo{}) {
		return
	}
	ValidateContact(c.Nested("contact"), address.Contact, rules)
}

func postalMessage(country entities.CountryCode) string {
	switch country {
	case entities.CountryCA:
		return "Postal code must look like A1A 1A1"
	case entities.CountryMX:
		return "Postal code must be 5 digits"
	default:
		return "ZIP code must be 5 digits or ZIP+4"
	}
}

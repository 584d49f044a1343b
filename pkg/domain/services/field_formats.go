package services

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
)

// DateLayout is the wire format of calendar dates (pickup date, PO expiration, BOL date)
const DateLayout = "2006-01-02"

var (
	phonePattern      = regexp.MustCompile(`^(\+?1[-.\s]?)?\(?([2-9]\d{2})\)?[-.\s]?([2-9]\d{2})[-.\s]?(\d{4})$`)
	extensionPattern  = regexp.MustCompile(`^\d{1,6}$`)
	usZipPattern      = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	caPostalPattern   = regexp.MustCompile(`^[ABCEGHJ-NPRSTVXY]\d[ABCEGHJ-NPRSTV-Z][ -]?\d[ABCEGHJ-NPRSTV-Z]\d$`)
	mxPostalPattern   = regexp.MustCompile(`^\d{5}$`)
	einPattern        = regexp.MustCompile(`^(\d{2})-?(\d{7})$`)
	ssnPattern        = regexp.MustCompile(`^(\d{3})-?(\d{2})-?(\d{4})$`)
	itinPattern       = regexp.MustCompile(`^9\d{2}-?(5[0-9]|6[0-5]|7[0-9]|8[0-8]|9[0-2]|9[4-9])-?\d{4}$`)
	poNumberPattern   = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{2,29}$`)
	bolNumberPattern  = regexp.MustCompile(`^BOL-?[A-Z0-9]{6,20}$`)
	accountPattern    = regexp.MustCompile(`^[A-Z0-9]{8,20}$`)
	corporatePattern  = regexp.MustCompile(`^[A-Z]{2,4}-?\d{6,10}$`)
	pinPattern        = regexp.MustCompile(`^\d{4,8}$`)
	clockPattern      = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
	cityPattern       = regexp.MustCompile(`^[\p{L} .'\-]+$`)
	foreignTaxPattern = regexp.MustCompile(`^[A-Z0-9-]{5,20}$`)
)

// Valid IRS campus prefixes for Employer Identification Numbers
var einPrefixes = map[string]bool{}

func init() {
	for _, group := range [][2]int{
		{1, 6}, {10, 16}, {20, 27}, {30, 39}, {40, 48}, {50, 68}, {71, 77}, {80, 88}, {90, 95}, {98, 99},
	} {
		for n := group[0]; n <= group[1]; n++ {
			einPrefixes[fmt.Sprintf("%02d", n)] = true
		}
	}
}

var usStates = toSet(
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "DC", "FL", "GA", "HI", "ID", "IL", "IN", "IA",
	"KS", "KY", "LA", "ME", "MD", "MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ", "NM",
	"NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC", "SD", "TN", "TX", "UT", "VT", "VA", "WA",
	"WV", "WI", "WY", "PR", "GU", "VI", "AS", "MP",
)

var caProvinces = toSet("AB", "BC", "MB", "NB", "NL", "NS", "NT", "NU", "ON", "PE", "QC", "SK", "YT")

var mxStates = toSet(
	"AGU", "BCN", "BCS", "CAM", "CHP", "CHH", "CMX", "COA", "COL", "DUR", "GUA", "GRO", "HID", "JAL",
	"MEX", "MIC", "MOR", "NAY", "NLE", "OAX", "PUE", "QUE", "ROO", "SLP", "SIN", "SON", "TAB", "TAM",
	"TLA", "VER", "YUC", "ZAC",
)

// SupportedCountries lists the countries the carriers serve
var SupportedCountries = []entities.CountryCode{entities.CountryUS, entities.CountryCA, entities.CountryMX}

func toSet(values ...string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// ValidPhone accepts North American numbers with optional +1 and common separators
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(strings.TrimSpace(phone))
}

// ValidExtension accepts up to six digits
func ValidExtension(ext string) bool {
	return extensionPattern.MatchString(ext)
}

// ValidEmail accepts a bare address with a dotted domain
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 {
		return false
	}
	parsed, err := mail.ParseAddress(email)
	if err != nil || parsed.Address != email || parsed.Name != "" {
		return false
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// ValidPostalCode checks the postal code format of the country
func ValidPostalCode(country entities.CountryCode, code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch country {
	case entities.CountryUS:
		return usZipPattern.MatchString(code)
	case entities.CountryCA:
		return caPostalPattern.MatchString(code)
	case entities.CountryMX:
		return mxPostalPattern.MatchString(code)
	default:
		return false
	}
}

// ValidState checks the state or province code of the country
func ValidState(country entities.CountryCode, state string) bool {
	state = strings.ToUpper(strings.TrimSpace(state))
	switch country {
	case entities.CountryUS:
		return usStates[state]
	case entities.CountryCA:
		return caProvinces[state]
	case entities.CountryMX:
		return mxStates[state]
	default:
		return false
	}
}

// ValidCity accepts letters, spaces, periods, apostrophes and hyphens
func ValidCity(city string) bool {
	return cityPattern.MatchString(strings.TrimSpace(city))
}

// ValidEIN checks the NN-NNNNNNN layout and the IRS campus prefix
func ValidEIN(ein string) bool {
	m := einPattern.FindStringSubmatch(strings.TrimSpace(ein))
	if m == nil {
		return false
	}
	return einPrefixes[m[1]]
}

// ValidSSN checks layout and the ranges the SSA never issues
func ValidSSN(ssn string) bool {
	m := ssnPattern.FindStringSubmatch(strings.TrimSpace(ssn))
	if m == nil {
		return false
	}
	area, group, serial := m[1], m[2], m[3]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	return group != "00" && serial != "0000"
}

// ValidITIN checks the 9XX-XX-XXXX layout with an IRS-assigned middle group
func ValidITIN(itin string) bool {
	return itinPattern.MatchString(strings.TrimSpace(itin))
}

// ValidTaxID dispatches on the tax id type
func ValidTaxID(kind entities.TaxIDType, value string) bool {
	switch kind {
	case entities.TaxIDEIN:
		return ValidEIN(value)
	case entities.TaxIDSSN:
		return ValidSSN(value)
	case entities.TaxIDITIN:
		return ValidITIN(value)
	case entities.TaxIDForeign:
		return foreignTaxPattern.MatchString(strings.ToUpper(strings.TrimSpace(value)))
	default:
		return false
	}
}

// ValidPONumber accepts 3-30 upper-case letters, digits and dashes starting with a letter or digit
func ValidPONumber(po string) bool {
	return poNumberPattern.MatchString(strings.TrimSpace(po))
}

// ValidBOLNumber accepts BOL, an optional dash, then 6-20 upper-case letters or digits
func ValidBOLNumber(bol string) bool {
	return bolNumberPattern.MatchString(strings.TrimSpace(bol))
}

// ValidAccountNumber accepts 8-20 upper-case letters or digits
func ValidAccountNumber(account string) bool {
	return accountPattern.MatchString(strings.TrimSpace(account))
}

// ValidCorporateAccount accepts 2-4 letters, an optional dash and 6-10 digits
func ValidCorporateAccount(account string) bool {
	return corporatePattern.MatchString(strings.TrimSpace(account))
}

// ValidPIN accepts 4-8 digits
func ValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

// ParseDate parses a YYYY-MM-DD date in loc
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return parsed, nil
}

// ParseClock parses HH:MM into minutes after midnight
func ParseClock(value string) (int, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", value)
	}
	hours := int(m[1][0]-'0')*10 + int(m[1][1]-'0')
	minutes := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	return hours*60 + minutes, nil
}

// ValidClock reports whether value is a 24h HH:MM time
func ValidClock(value string) bool {
	_, err := ParseClock(value)
	return err == nil
}

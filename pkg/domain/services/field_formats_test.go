package services

import (
	"testing"
	"time"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
)

func TestValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"312-555-0100", true},
		{"(312) 555-0100", true},
		{"+1 312.555.0100", true},
		{"3125550100", true},
		{"112-555-0100", false},
		{"312-155-0100", false},
		{"555-0100", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidPhone(tt.phone); got != tt.want {
			t.Errorf("ValidPhone(%q) = %v, want %v", tt.phone, got, tt.want)
		}
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"ap@acme.example", true},
		{"first.last+billing@sub.acme.example", true},
		{"ap@localhost", false},
		{"Pat <ap@acme.example>", false},
		{"not-an-email", false},
		{"ap@acme.", false},
	}

	for _, tt := range tests {
		if got := ValidEmail(tt.email); got != tt.want {
			t.Errorf("ValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestValidPostalCode(t *testing.T) {
	tests := []struct {
		name    string
		country entities.CountryCode
		code    string
		want    bool
	}{
		{"us_zip5", entities.CountryUS, "60601", true},
		{"us_zip4", entities.CountryUS, "60601-1234", true},
		{"us_short", entities.CountryUS, "6060", false},
		{"ca_spaced", entities.CountryCA, "M5V 3L9", true},
		{"ca_lower", entities.CountryCA, "m5v3l9", true},
		{"ca_bad_letter", entities.CountryCA, "D5V 3L9", false},
		{"mx", entities.CountryMX, "06600", true},
		{"mx_zip4", entities.CountryMX, "06600-1234", false},
		{"unknown_country", entities.CountryCode("FR"), "75001", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidPostalCode(tt.country, tt.code); got != tt.want {
				t.Errorf("ValidPostalCode(%s, %q) = %v, want %v", tt.country, tt.code, got, tt.want)
			}
		})
	}
}

func TestValidState(t *testing.T) {
	if !ValidState(entities.CountryUS, "il") {
		t.Error("Expected lower-case IL to be accepted")
	}
	if !ValidState(entities.CountryCA, "ON") {
		t.Error("Expected ON to be a valid province")
	}
	if ValidState(entities.CountryCA, "IL") {
		t.Error("Expected IL to be rejected for Canada")
	}
	if !ValidState(entities.CountryMX, "CMX") {
		t.Error("Expected CMX to be a valid Mexican state")
	}
}

func TestValidTaxID(t *testing.T) {
	tests := []struct {
		name  string
		kind  entities.TaxIDType
		value string
		want  bool
	}{
		{"ein", entities.TaxIDEIN, "12-3456789", true},
		{"ein_no_dash", entities.TaxIDEIN, "123456789", true},
		{"ein_unassigned_prefix", entities.TaxIDEIN, "07-3456789", false},
		{"ssn", entities.TaxIDSSN, "123-45-6789", true},
		{"ssn_area_000", entities.TaxIDSSN, "000-45-6789", false},
		{"ssn_area_666", entities.TaxIDSSN, "666-45-6789", false},
		{"ssn_area_9xx", entities.TaxIDSSN, "912-45-6789", false},
		{"ssn_group_00", entities.TaxIDSSN, "123-00-6789", false},
		{"ssn_serial_0000", entities.TaxIDSSN, "123-45-0000", false},
		{"itin", entities.TaxIDITIN, "912-70-1234", true},
		{"itin_bad_group", entities.TaxIDITIN, "912-93-1234", false},
		{"foreign", entities.TaxIDForeign, "gb123456789", true},
		{"unknown_type", entities.TaxIDType("vat"), "12-3456789", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidTaxID(tt.kind, tt.value); got != tt.want {
				t.Errorf("ValidTaxID(%s, %q) = %v, want %v", tt.kind, tt.value, got, tt.want)
			}
		})
	}
}

func TestPaymentIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) bool
		in   string
		want bool
	}{
		{"po", ValidPONumber, "PO-2026-0042", true},
		{"po_leading_dash", ValidPONumber, "-PO123", false},
		{"po_lowercase", ValidPONumber, "po-123", false},
		{"bol_dash", ValidBOLNumber, "BOL-123456", true},
		{"bol_plain", ValidBOLNumber, "BOLA1B2C3", true},
		{"bol_short", ValidBOLNumber, "BOL-12345", false},
		{"account", ValidAccountNumber, "ACCT1234", true},
		{"account_short", ValidAccountNumber, "ACC123", false},
		{"corporate", ValidCorporateAccount, "ACME-123456", true},
		{"corporate_no_dash", ValidCorporateAccount, "AC1234567890", true},
		{"corporate_letters_only", ValidCorporateAccount, "ACME-ABCDEF", false},
		{"pin", ValidPIN, "1234", true},
		{"pin_long", ValidPIN, "123456789", false},
		{"pin_letters", ValidPIN, "12ab", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("%s(%q) = %v, want %v", tt.name, tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDateAndClock(t *testing.T) {
	day, err := ParseDate("2026-10-20", time.UTC)
	if err != nil {
		t.Fatalf("Expected valid date, got %v", err)
	}
	if day.Weekday() != time.Tuesday {
		t.Errorf("Expected Tuesday, got %s", day.Weekday())
	}
	if _, err := ParseDate("10/20/2026", time.UTC); err == nil {
		t.Error("Expected error for non ISO date")
	}

	minutes, err := ParseClock("16:30")
	if err != nil {
		t.Fatalf("Expected valid clock, got %v", err)
	}
	if minutes != 990 {
		t.Errorf("Expected 990 minutes, got %d", minutes)
	}
	if ValidClock("24:00") {
		t.Error("Expected 24:00 to be rejected")
	}
}

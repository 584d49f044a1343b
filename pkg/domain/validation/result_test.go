package validation

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
)

func TestResult_WarningsDoNotBlock(t *testing.T) {
	var r Result
	r.Warnf("billing.company.taxIdType", CodeRule, "sole proprietors usually bill under an SSN")

	if !r.Valid() {
		t.Fatal("Warnings alone must not make a result invalid")
	}
	if len(r.Warnings()) != 1 {
		t.Errorf("Expected 1 warning, got %d", len(r.Warnings()))
	}

	r.Errorf("billing.company.taxId", CodeRequired, "Tax ID is required")
	if r.Valid() {
		t.Fatal("Expected result with an error to be invalid")
	}
	if len(r.Errors()) != 1 {
		t.Errorf("Expected 1 error, got %d", len(r.Errors()))
	}
}

func TestResult_ForFieldAndPrefixed(t *testing.T) {
	var r Result
	r.Errorf("origin.contact.phone", CodeInvalidFormat, "bad phone")
	r.Errorf("origin.city", CodeRequired, "City is required")
	r.Errorf("originator", CodeRequired, "unrelated")
	r.Errorf("package.specialHandling[0]", CodeInvalidChoice, "bad flag")

	if got := len(r.ForField("origin")); got != 2 {
		t.Errorf("Expected 2 origin issues, got %d", got)
	}
	if got := len(r.ForField("package.specialHandling")); got != 1 {
		t.Errorf("Expected 1 handling issue, got %d", got)
	}

	prefixed := r.Prefixed("shipment")
	if prefixed.Issues[0].Field != "shipment.origin.contact.phone" {
		t.Errorf("Unexpected prefixed field %q", prefixed.Issues[0].Field)
	}
	if r.Issues[0].Field != "origin.contact.phone" {
		t.Error("Prefixed must not modify the original result")
	}
}

func TestChecker_Helpers(t *testing.T) {
	var r Result
	c := NewChecker("pickup", &r)

	c.Required("instructions", "   ", "Instructions")
	c.Length("contact.name", "A", "Name", 2, 100)
	c.Matches("gateCode", "12", regexp.MustCompile(`^\d{4,8}$`), "Gate code must be 4-8 digits")
	c.Positive("amount", decimal.Zero, "Amount")
	c.Range("weight", decimal.NewFromInt(500), decimal.NewFromInt(1), decimal.NewFromInt(150), "Weight")
	OneOf(c.Nested("location"), "type", "roof", "Location type", []string{"loading_dock", "front_desk"})

	expected := map[string]string{
		"pickup.instructions":  CodeRequired,
		"pickup.contact.name":  CodeTooShort,
		"pickup.gateCode":      CodeInvalidFormat,
		"pickup.amount":        CodeOutOfRange,
		"pickup.weight":        CodeOutOfRange,
		"pickup.location.type": CodeInvalidChoice,
	}
	if len(r.Issues) != len(expected) {
		t.Fatalf("Expected %d issues, got %d: %v", len(expected), len(r.Issues), r.Issues)
	}
	for _, issue := range r.Issues {
		code, ok := expected[issue.Field]
		if !ok {
			t.Errorf("Unexpected issue on %s", issue.Field)
			continue
		}
		if issue.Code != code {
			t.Errorf("Field %s: expected code %s, got %s", issue.Field, code, issue.Code)
		}
	}
}

func TestEachOneOf_IndexesFields(t *testing.T) {
	var r Result
	c := NewChecker("package", &r)

	ok := EachOneOf(c, "specialHandling", []string{"fragile", "explosive"}, "Special handling", []string{"fragile", "hazmat"})
	if ok {
		t.Fatal("Expected invalid handling flag to fail")
	}
	if r.Issues[0].Field != "package.specialHandling[1]" {
		t.Errorf("Expected indexed field path, got %s", r.Issues[0].Field)
	}
}

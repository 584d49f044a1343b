package services

import (
	"strings"
	"testing"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

func TestValidateShipment_Valid(t *testing.T) {
	result := ValidateShipment(testShipment())

	if !result.Valid() {
		t.Fatalf("Expected valid shipment, got %s", result.Summary())
	}
}

func TestValidateShipment_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *entities.Shipment)
		field  string
		code   string
	}{
		{
			name:   "missing_origin_email",
			modify: func(s *entities.Shipment) { s.Origin.Contact.Email = "" },
			field:  "origin.contact.email",
			code:   validation.CodeRequired,
		},
		{
			name:   "state_not_in_country",
			modify: func(s *entities.Shipment) { s.Destination.State = "ON" },
			field:  "destination.state",
			code:   validation.CodeInvalidFormat,
		},
		{
			name:   "canadian_postal_in_us",
			modify: func(s *entities.Shipment) { s.Destination.PostalCode = "M5V 3L9" },
			field:  "destination.postalCode",
			code:   validation.CodeInvalidFormat,
		},
		{
			name:   "zero_weight",
			modify: func(s *entities.Shipment) { s.Package.Weight.Value = d("0") },
			field:  "package.weight.value",
			code:   validation.CodeOutOfRange,
		},
		{
			name: "heavy_envelope",
			modify: func(s *entities.Shipment) {
				s.Package.Type = entities.PackageEnvelope
				s.Package.Weight.Value = d("2")
			},
			field: "package.weight.value",
			code:  validation.CodeOutOfRange,
		},
		{
			name: "heavy_parcel",
			modify: func(s *entities.Shipment) {
				s.Package.Type = entities.PackageLarge
				s.Package.Dimensions = entities.Dimensions{Length: d("40"), Width: d("30"), Height: d("30"), Unit: entities.Inches}
			},
			field: "package.weight.value",
			code:  validation.CodeOutOfRange,
		},
		{
			name: "parcel_too_long",
			modify: func(s *entities.Shipment) {
				s.Package = testBox()
				s.Package.Dimensions.Length = d("121")
			},
			field: "package.dimensions.length",
			code:  validation.CodeOutOfRange,
		},
		{
			name:   "pallet_too_long",
			modify: func(s *entities.Shipment) { s.Package.Dimensions.Length = d("121") },
			field:  "package.dimensions.length",
			code:   validation.CodeOutOfRange,
		},
		{
			name: "crate_too_tall_in_cm",
			modify: func(s *entities.Shipment) {
				s.Package.Type = entities.PackageCrate
				s.Package.Dimensions = entities.Dimensions{Length: d("100"), Width: d("100"), Height: d("310"), Unit: entities.Centimeters}
			},
			field: "package.dimensions.height",
			code:  validation.CodeOutOfRange,
		},
		{
			name: "total_weight_over_limit",
			modify: func(s *entities.Shipment) {
				s.Package.Type = entities.PackageMultiple
				s.Package.Weight.Value = d("19000")
				s.Package.Quantity = 99
			},
			field: "package.weight.value",
			code:  validation.CodeOutOfRange,
		},
		{
			name:   "declared_value_too_high",
			modify: func(s *entities.Shipment) { s.Package.DeclaredValue = d("250000.01") },
			field:  "package.declaredValue",
			code:   validation.CodeOutOfRange,
		},
		{
			name:   "unsupported_currency",
			modify: func(s *entities.Shipment) { s.Package.Currency = "EUR" },
			field:  "package.currency",
			code:   validation.CodeInvalidChoice,
		},
		{
			name:   "contents_too_short",
			modify: func(s *entities.Shipment) { s.Package.Contents = "ab" },
			field:  "package.contents",
			code:   validation.CodeTooShort,
		},
		{
			name:   "quantity_zero",
			modify: func(s *entities.Shipment) { s.Package.Quantity = 0 },
			field:  "package.quantity",
			code:   validation.CodeOutOfRange,
		},
		{
			name: "hazmat_envelope",
			modify: func(s *entities.Shipment) {
				s.Package.Type = entities.PackageEnvelope
				s.Package.Weight.Value = d("0.5")
				s.Package.SpecialHandling = []entities.SpecialHandling{entities.HandlingHazmat}
			},
			field: "package.specialHandling",
			code:  validation.CodeRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shipment := testShipment()
			tt.modify(&shipment)

			result := ValidateShipment(shipment)
			if result.Valid() {
				t.Fatal("Expected validation to fail")
			}
			if !hasIssue(result, tt.field, tt.code) {
				t.Errorf("Expected %s on %s, got %v", tt.code, tt.field, result.Issues)
			}
		})
	}
}

func TestValidateShipment_WeightAndSizeAtLimits(t *testing.T) {
	shipment := testShipment()
	shipment.Package.Dimensions = entities.Dimensions{Length: d("120"), Width: d("120"), Height: d("120"), Unit: entities.Inches}
	shipment.Package.Type = entities.PackageMultiple
	shipment.Package.Weight.Value = d("5000")
	shipment.Package.Quantity = 4

	result := ValidateShipment(shipment)
	if len(result.ForField("package.weight.value")) != 0 || len(result.ForField("package.dimensions.length")) != 0 {
		t.Errorf("Expected 4 x 5000 lbs at 120 in to pass, got %v", result.Issues)
	}

	shipment.Package.Quantity = 5
	result = ValidateShipment(shipment)
	if !hasIssue(result, "package.weight.value", validation.CodeOutOfRange) {
		t.Errorf("Expected total weight error for 5 x 5000 lbs, got %v", result.Issues)
	}
}

func TestValidateShipment_SameLocation(t *testing.T) {
	shipment := testShipment()
	shipment.Destination = shipment.Origin
	shipment.Destination.Street = "123 industrial way."
	shipment.Destination.PostalCode = "60601-0001"

	result := ValidateShipment(shipment)

	if !result.HasRule("distinct-endpoints") {
		t.Errorf("Expected distinct-endpoints rule, got %v", result.Issues)
	}
}

func TestValidateShipment_MultiplePiecesWarning(t *testing.T) {
	shipment := testShipment()
	shipment.Package = testBox()
	shipment.Package.Quantity = 3

	result := ValidateShipment(shipment)

	if !result.Valid() {
		t.Fatalf("Expected warnings only, got %s", result.Summary())
	}
	if len(result.Warnings()) != 1 {
		t.Errorf("Expected 1 warning, got %d", len(result.Warnings()))
	}
}

func TestValidatePayment_PurchaseOrder(t *testing.T) {
	tests := []struct {
		name       string
		expiration string
		wantValid  bool
	}{
		{"future", "2026-12-31", true},
		{"today", "2026-10-19", true},
		{"yesterday", "2026-10-18", false},
		{"bad_format", "12/31/2026", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment := testPurchaseOrder()
			payment.PurchaseOrder.ExpirationDate = tt.expiration

			result := ValidatePayment(payment, testNow)
			if result.Valid() != tt.wantValid {
				t.Errorf("Expected valid=%v, got issues %v", tt.wantValid, result.Issues)
			}
		})
	}
}

func TestValidatePayment_PurchaseOrderFields(t *testing.T) {
	payment := testPurchaseOrder()
	payment.PurchaseOrder.PONumber = "po 1"
	payment.PurchaseOrder.Amount = d("0")
	payment.PurchaseOrder.ApprovalContact = entities.ContactInfo{}

	result := ValidatePayment(payment, testNow)

	for _, field := range []string{
		"purchaseOrder.poNumber",
		"purchaseOrder.amount",
		"purchaseOrder.approvalContact.name",
		"purchaseOrder.approvalContact.email",
	} {
		if !hasIssue(result, field, "") {
			t.Errorf("Expected issue on %s, got %v", field, result.Issues)
		}
	}
}

func TestValidatePayment_OnlySelectedMethodChecked(t *testing.T) {
	payment := testPurchaseOrder()
	payment.BillOfLading = &entities.BillOfLadingDetails{BOLNumber: "nope"}
	payment.NetTerms = &entities.NetTermsDetails{PeriodDays: 7}

	result := ValidatePayment(payment, testNow)

	if !result.Valid() {
		t.Errorf("Expected details of other methods to be ignored, got %s", result.Summary())
	}
}

func TestValidatePayment_MissingDetails(t *testing.T) {
	for _, method := range entities.PaymentMethods {
		t.Run(string(method), func(t *testing.T) {
			result := ValidatePayment(entities.PaymentInfo{Method: method}, testNow)
			if result.Valid() {
				t.Fatal("Expected missing details to fail")
			}
			if result.Issues[0].Code != validation.CodeRequired {
				t.Errorf("Expected required, got %s", result.Issues[0].Code)
			}
		})
	}
}

func TestValidatePayment_UnknownMethod(t *testing.T) {
	result := ValidatePayment(entities.PaymentInfo{Method: "cash"}, testNow)

	if !hasIssue(result, "method", validation.CodeInvalidChoice) {
		t.Errorf("Expected invalid method, got %v", result.Issues)
	}
}

func TestValidatePayment_BillOfLadingDate(t *testing.T) {
	tests := []struct {
		name      string
		date      string
		wantValid bool
	}{
		{"today", "2026-10-19", true},
		{"thirty_days_old", "2026-09-19", true},
		{"thirty_one_days_old", "2026-09-18", false},
		{"future", "2026-10-20", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment := entities.PaymentInfo{
				Method: entities.PaymentBillOfLading,
				BillOfLading: &entities.BillOfLadingDetails{
					BOLNumber:    "BOL-778899",
					BOLDate:      tt.date,
					FreightTerms: entities.FreightPrepaid,
				},
			}

			result := ValidatePayment(payment, testNow)
			if result.Valid() != tt.wantValid {
				t.Errorf("Expected valid=%v, got issues %v", tt.wantValid, result.Issues)
			}
		})
	}
}

func TestValidatePayment_NetTermsReferences(t *testing.T) {
	payment := entities.PaymentInfo{
		Method: entities.PaymentNetTerms,
		NetTerms: &entities.NetTermsDetails{
			PeriodDays: 45,
			TradeReferences: []entities.TradeReference{
				{CompanyName: "Great Lakes Steel"},
			},
		},
	}

	result := ValidatePayment(payment, testNow)

	if !result.HasRule("extended-terms-references") {
		t.Errorf("Expected extended terms rule, got %v", result.Issues)
	}
	if !hasIssue(result, "netTerms.tradeReferences[0].phone", validation.CodeRequired) {
		t.Errorf("Expected reference contact requirement, got %v", result.Issues)
	}

	payment.NetTerms.TradeReferences = []entities.TradeReference{
		{CompanyName: "Great Lakes Steel", Phone: "216-555-0110"},
		{CompanyName: "Midwest Fasteners", Email: "credit@fasteners.example"},
	}
	result = ValidatePayment(payment, testNow)
	if !result.Valid() {
		t.Errorf("Expected two references to satisfy 45 day terms, got %s", result.Summary())
	}
}

func TestValidatePayment_NetTermsPeriod(t *testing.T) {
	payment := entities.PaymentInfo{
		Method:   entities.PaymentNetTerms,
		NetTerms: &entities.NetTermsDetails{PeriodDays: 20},
	}

	result := ValidatePayment(payment, testNow)

	if !hasIssue(result, "netTerms.periodDays", validation.CodeInvalidChoice) {
		t.Errorf("Expected invalid period, got %v", result.Issues)
	}
}

func TestValidatePayment_CorporateAccountPIN(t *testing.T) {
	base := entities.CorporateAccountDetails{
		AccountNumber: "ACME-123456",
		BillingContact: entities.ContactInfo{
			Name:  "Dana Ortiz",
			Phone: "312-555-0150",
			Email: "dana@acme.example",
		},
	}

	tests := []struct {
		name      string
		pin       string
		hash      string
		wantValid bool
	}{
		{"plain_pin", "1234", "", true},
		{"stored_hash", "", "argon2id$c2FsdA$aGFzaA", true},
		{"missing", "", "", false},
		{"letters", "12ab", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := base
			account.AccountPIN = tt.pin
			account.PINHash = tt.hash

			result := ValidatePayment(entities.PaymentInfo{
				Method:           entities.PaymentCorporateAccount,
				CorporateAccount: &account,
			}, testNow)
			if result.Valid() != tt.wantValid {
				t.Errorf("Expected valid=%v, got issues %v", tt.wantValid, result.Issues)
			}
		})
	}
}

func TestValidateBilling_Valid(t *testing.T) {
	origin := testOrigin()
	result := ValidateBilling(testBilling(), &origin)

	if len(result.Issues) != 0 {
		t.Errorf("Expected no issues, got %v", result.Issues)
	}
}

func TestValidateBilling_Rules(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(b *entities.BillingInfo)
		rule      string
		wantValid bool
	}{
		{
			name: "edi_delivery_with_pdf",
			modify: func(b *entities.BillingInfo) {
				b.Invoice.DeliveryMethod = entities.DeliveryEDI
				b.Invoice.Format = entities.InvoicePDF
			},
			rule: RuleEDIDeliveryRequiresEDIFormat,
		},
		{
			name: "email_delivery_without_address",
			modify: func(b *entities.BillingInfo) {
				b.AccountsPayableContact.Email = ""
			},
			rule: RuleEmailDeliveryRequiresAddress,
		},
		{
			name: "sole_proprietor_with_ein",
			modify: func(b *entities.BillingInfo) {
				b.Company.BusinessType = entities.BusinessSoleProprietorship
			},
			rule:      RuleSoleProprietorEIN,
			wantValid: true,
		},
		{
			name: "corporation_with_ssn",
			modify: func(b *entities.BillingInfo) {
				b.Company.BusinessType = entities.BusinessCorporation
				b.Company.TaxIDType = entities.TaxIDSSN
				b.Company.TaxID = "123-45-6789"
			},
			rule: RuleEntityRequiresEIN,
		},
		{
			name: "mailing_elsewhere",
			modify: func(b *entities.BillingInfo) {
				mailing := testDestination()
				b.MailingAddress = &mailing
			},
			rule:      RuleMailingMatchesBilling,
			wantValid: true,
		},
		{
			name: "tax_exempt_without_certificate",
			modify: func(b *entities.BillingInfo) {
				b.TaxExempt = true
				b.Company.BusinessType = entities.BusinessNonProfit
			},
			rule: RuleTaxExemptCertificate,
		},
		{
			name: "tax_exempt_llc",
			modify: func(b *entities.BillingInfo) {
				b.TaxExempt = true
				b.TaxExemptCertificate = "EX-4411"
			},
			rule:      RuleTaxExemptEntity,
			wantValid: true,
		},
		{
			name: "same_as_origin_but_different",
			modify: func(b *entities.BillingInfo) {
				b.BillingAddress = testDestination()
			},
			rule: RuleSameAsOriginConsistency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			billing := testBilling()
			tt.modify(&billing)
			origin := testOrigin()

			result := ValidateBilling(billing, &origin)
			if !result.HasRule(tt.rule) {
				t.Fatalf("Expected rule %s, got %v", tt.rule, result.Issues)
			}
			if result.Valid() != tt.wantValid {
				t.Errorf("Expected valid=%v, got %s", tt.wantValid, result.Summary())
			}
		})
	}
}

func TestValidateBilling_ExplicitAddress(t *testing.T) {
	billing := testBilling()
	billing.SameAsOrigin = false

	result := ValidateBilling(billing, nil)
	if !hasIssue(result, "billingAddress.street", validation.CodeRequired) {
		t.Errorf("Expected billing address to be required, got %v", result.Issues)
	}

	billing.BillingAddress = testOrigin()
	billing.BillingAddress.Contact = entities.ContactInfo{}
	result = ValidateBilling(billing, nil)
	if !result.Valid() {
		t.Errorf("Expected billing address without contact to pass, got %s", result.Summary())
	}
}

func TestValidatePickup_Valid(t *testing.T) {
	result := ValidatePickup(testPickup(), testCalendar(), testNow)

	if len(result.Issues) != 0 {
		t.Errorf("Expected no issues, got %v", result.Issues)
	}
}

func TestValidatePickup_Date(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		message string
	}{
		{"saturday", "2026-10-24", "Monday through Friday"},
		{"thanksgiving", "2026-11-26", "Thanksgiving Day"},
		{"beyond_horizon", "2026-11-03", "between 2026-10-19 and 2026-11-02"},
		{"yesterday", "2026-10-16", "between"},
		{"garbage", "tomorrow", "YYYY-MM-DD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pickup := testPickup()
			pickup.Date = tt.date

			result := ValidatePickup(pickup, testCalendar(), testNow)
			issues := result.ForField("date")
			if len(issues) != 1 {
				t.Fatalf("Expected 1 date issue, got %v", result.Issues)
			}
			if !strings.Contains(issues[0].Message, tt.message) {
				t.Errorf("Expected message containing %q, got %q", tt.message, issues[0].Message)
			}
		})
	}
}

func TestValidatePickup_Slot(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		slot  entities.TimeSlot
		field string
	}{
		{"window_too_short", "2026-10-20", entities.TimeSlot{Start: "08:00", End: "09:30"}, "slot.end"},
		{"bad_clock", "2026-10-20", entities.TimeSlot{Start: "8am", End: "12:00"}, "slot.start"},
		{"same_day_too_soon", "2026-10-19", entities.TimeSlot{Start: "10:00", End: "12:00"}, "slot.start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pickup := testPickup()
			pickup.Date = tt.date
			pickup.Slot = tt.slot

			result := ValidatePickup(pickup, testCalendar(), testNow)
			if !hasIssue(result, tt.field, "") {
				t.Errorf("Expected issue on %s, got %v", tt.field, result.Issues)
			}
		})
	}

	pickup := testPickup()
	pickup.Date = "2026-10-19"
	pickup.Slot = entities.TimeSlot{ID: SlotAfternoon, Start: "12:00", End: "16:00"}
	if result := ValidatePickup(pickup, testCalendar(), testNow); !result.Valid() {
		t.Errorf("Expected same-day afternoon pickup to pass, got %s", result.Summary())
	}
}

func TestValidatePickup_SiteRules(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *entities.PickupDetails)
		field  string
	}{
		{
			name: "backup_same_phone",
			modify: func(p *entities.PickupDetails) {
				p.BackupContact = &entities.ContactInfo{Name: "Alex Kim", Phone: "(312) 555-0177"}
			},
			field: "backupContact.phone",
		},
		{
			name:   "gate_code_missing",
			modify: func(p *entities.PickupDetails) { p.AccessRequirements = []string{entities.AccessGateCode} },
			field:  "gateCode",
		},
		{
			name: "forklift_at_front_desk",
			modify: func(p *entities.PickupDetails) {
				p.Location.Type = entities.PickupFrontDesk
				p.EquipmentNeeds = []string{entities.EquipmentForklift}
			},
			field: "equipmentNeeds",
		},
		{
			name:   "unknown_access",
			modify: func(p *entities.PickupDetails) { p.AccessRequirements = []string{"drone"} },
			field:  "accessRequirements[0]",
		},
		{
			name:   "instructions_too_long",
			modify: func(p *entities.PickupDetails) { p.Instructions = strings.Repeat("x", MaxPickupInstructions+1) },
			field:  "instructions",
		},
		{
			name:   "other_location_needs_description",
			modify: func(p *entities.PickupDetails) { p.Location.Type = entities.PickupOther },
			field:  "location.description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pickup := testPickup()
			tt.modify(&pickup)

			result := ValidatePickup(pickup, testCalendar(), testNow)
			if !hasIssue(result, tt.field, "") {
				t.Errorf("Expected issue on %s, got %v", tt.field, result.Issues)
			}
		})
	}
}

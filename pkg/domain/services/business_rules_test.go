package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

func testOption(id string, category entities.ServiceCategory, total string) entities.PricingOption {
	return entities.PricingOption{
		ID:          id,
		Category:    category,
		ServiceCode: id,
		Charges:     entities.Charges{Total: d(total)},
		Currency:    QuoteCurrency,
		TransitDays: 3,
	}
}

func quotedTransaction(option entities.PricingOption) *entities.ShippingTransaction {
	return &entities.ShippingTransaction{
		ID:       "tx-1",
		Status:   entities.StatusDraft,
		Step:     entities.StepPayment,
		Shipment: testShipment(),
		Quote: &entities.Quote{
			ID:        "q-1",
			Options:   []entities.PricingOption{option},
			ShipDate:  testNow,
			QuotedAt:  testNow,
			ExpiresAt: testNow.Add(15 * time.Minute),
		},
		SelectedOptionID: option.ID,
	}
}

func testRuleContext() RuleContext {
	return RuleContext{Now: testNow, Calendar: testCalendar()}
}

func TestRuleSet_TransactionRules(t *testing.T) {
	tests := []struct {
		name     string
		build    func() *entities.ShippingTransaction
		rule     string
		severity validation.Severity
		field    string
	}{
		{
			name: "po_does_not_cover_total",
			build: func() *entities.ShippingTransaction {
				tx := quotedTransaction(testOption("freight_ltl", entities.CategoryFreight, "3000.00"))
				payment := testPurchaseOrder()
				tx.Payment = &payment
				return tx
			},
			rule:     RulePOCoversTotal,
			severity: validation.SeverityError,
			field:    "payment.purchaseOrder.amount",
		},
		{
			name: "po_expires_before_pickup",
			build: func() *entities.ShippingTransaction {
				tx := quotedTransaction(testOption("freight_ltl", entities.CategoryFreight, "471.79"))
				payment := testPurchaseOrder()
				payment.PurchaseOrder.ExpirationDate = "2026-10-20"
				tx.Payment = &payment
				pickup := testPickup()
				pickup.Date = "2026-10-21"
				tx.Pickup = &pickup
				return tx
			},
			rule:     RulePOValidThroughPickup,
			severity: validation.SeverityError,
			field:    "payment.purchaseOrder.expirationDate",
		},
		{
			name: "bol_on_parcel",
			build: func() *entities.ShippingTransaction {
				tx := quotedTransaction(testOption("ground_standard", entities.CategoryGround, "40.00"))
				tx.Payment = &entities.PaymentInfo{
					Method:       entities.PaymentBillOfLading,
					BillOfLading: &entities.BillOfLadingDetails{FreightTerms: entities.FreightPrepaid},
				}
				return tx
			},
			rule:     RuleBOLFreightOnly,
			severity: validation.SeverityWarning,
			field:    "payment.method",
		},
		{
			name: "bol_collect_to_canada",
			build: func() *entities.ShippingTransaction {
				tx := quotedTransaction(testOption("freight_ltl", entities.CategoryFreight, "900.00"))
				tx.Shipment.Destination.Country = entities.CountryCA
				tx.Payment = &entities.PaymentInfo{
					Method:       entities.PaymentBillOfLading,
					BillOfLading: &entities.BillOfLadingDetails{FreightTerms: entities.FreightCollect},
				}
				return tx
			},
			rule:     RuleBOLCollectCrossBorder,
			severity: validation.SeverityError,
			field:    "payment.billOfLading.freightTerms",
		},
		{
			name: "long_terms_large_balance",
			build: func() *entities.ShippingTransaction {
				tx := quotedTransaction(testOption("freight_ltl", entities.CategoryFreight, "12000.00"))
				tx.Payment = &entities.PaymentInfo{
					Method:   entities.PaymentNetTerms,
					NetTerms: &entities.NetTermsDetails{PeriodDays: 60},
				}
				return tx
			},
			rule:     RuleNetTermsLargeBalance,
			severity: validation.SeverityWarning,
			field:    "payment.netTerms.creditReference",
		},
		{
			name: "hazmat_by_air",
			build: func() *entities.ShippingTransaction {
				tx := quotedTransaction(testOption("air_two_day", entities.CategoryAir, "80.00"))
				tx.Shipment.Package.SpecialHandling = []entities.SpecialHandling{entities.HandlingHazmat}
				return tx
			},
			rule:     RuleHazmatNoAir,
			severity: validation.SeverityError,
			field:    "selectedOptionId",
		},
		{
			name: "residential_freight_without_liftgate",
			build: func() *entities.ShippingTransaction {
				tx := quotedTransaction(testOption("freight_ltl", entities.CategoryFreight, "500.00"))
				tx.Shipment.Destination.LocationType = entities.LocationResidential
				pickup := testPickup()
				tx.Pickup = &pickup
				return tx
			},
			rule:     RuleFreightResidentialLiftgate,
			severity: validation.SeverityWarning,
			field:    "pickup.equipmentNeeds",
		},
		{
			name: "liftgate_on_parcel",
			build: func() *entities.ShippingTransaction {
				tx := quotedTransaction(testOption("ground_standard", entities.CategoryGround, "40.00"))
				pickup := testPickup()
				pickup.EquipmentNeeds = []string{entities.EquipmentLiftgate}
				tx.Pickup = &pickup
				return tx
			},
			rule:     RuleLiftgateRequiresFreight,
			severity: validation.SeverityWarning,
			field:    "pickup.equipmentNeeds",
		},
		{
			name: "pickup_before_ship_date",
			build: func() *entities.ShippingTransaction {
				tx := quotedTransaction(testOption("freight_ltl", entities.CategoryFreight, "500.00"))
				tx.Quote.ShipDate = time.Date(2026, time.October, 21, 0, 0, 0, 0, time.UTC)
				pickup := testPickup()
				tx.Pickup = &pickup
				return tx
			},
			rule:     RulePickupBeforeQuoteShipDate,
			severity: validation.SeverityError,
			field:    "pickup.date",
		},
		{
			name: "declared_in_cad",
			build: func() *entities.ShippingTransaction {
				tx := quotedTransaction(testOption("freight_ltl", entities.CategoryFreight, "500.00"))
				tx.Shipment.Package.Currency = "CAD"
				return tx
			},
			rule:     RuleDeclaredValueCurrency,
			severity: validation.SeverityWarning,
			field:    "shipment.package.currency",
		},
	}

	rules := DefaultRuleSet()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := rules.Evaluate(tt.build(), testRuleContext())

			var found *validation.Issue
			for i := range result.Issues {
				if result.Issues[i].Rule == tt.rule {
					found = &result.Issues[i]
				}
			}
			if found == nil {
				t.Fatalf("Expected rule %s to fire, got %v", tt.rule, result.Issues)
			}
			if found.Severity != tt.severity {
				t.Errorf("Expected severity %s, got %s", tt.severity, found.Severity)
			}
			if found.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, found.Field)
			}
			if found.Code != validation.CodeRule {
				t.Errorf("Expected code %s, got %s", validation.CodeRule, found.Code)
			}
		})
	}
}

func TestRuleSet_QuietOnConsistentTransaction(t *testing.T) {
	tx := quotedTransaction(testOption("freight_ltl", entities.CategoryFreight, "471.79"))
	payment := testPurchaseOrder()
	tx.Payment = &payment
	billing := testBilling()
	tx.Billing = &billing
	pickup := testPickup()
	tx.Pickup = &pickup

	result := DefaultRuleSet().Evaluate(tx, testRuleContext())

	if len(result.Issues) != 0 {
		t.Errorf("Expected no rule findings, got %v", result.Issues)
	}
}

func TestRuleSet_SkipsMissingSections(t *testing.T) {
	tx := &entities.ShippingTransaction{ID: "tx-2", Shipment: testShipment()}

	result := DefaultRuleSet().Evaluate(tx, testRuleContext())

	if len(result.Issues) != 0 {
		t.Errorf("Expected no findings without later sections, got %v", result.Issues)
	}
}

func TestRuleSet_BillingRulesArePrefixed(t *testing.T) {
	tx := quotedTransaction(testOption("freight_ltl", entities.CategoryFreight, "471.79"))
	billing := testBilling()
	billing.Invoice.DeliveryMethod = entities.DeliveryEDI
	tx.Billing = &billing

	result := DefaultRuleSet().Evaluate(tx, testRuleContext())

	if !hasIssue(result, "billing.invoice.format", validation.CodeRule) {
		t.Errorf("Expected billing.invoice.format finding, got %v", result.Issues)
	}
}

func TestRuleSet_OnlyAndWithout(t *testing.T) {
	rules := DefaultRuleSet()

	only := rules.Only(RuleHazmatNoAir, RulePOCoversTotal)
	if len(only.Rules()) != 2 {
		t.Errorf("Expected 2 rules, got %d", len(only.Rules()))
	}

	withoutBilling := rules.Without(SectionBilling)
	for _, r := range withoutBilling.Rules() {
		if r.Section == SectionBilling {
			t.Errorf("Expected billing rule %s to be removed", r.Name)
		}
	}
	if len(withoutBilling.Rules()) != len(rules.Rules())-len(billingRules) {
		t.Errorf("Expected %d rules, got %d", len(rules.Rules())-len(billingRules), len(withoutBilling.Rules()))
	}

	if _, ok := rules.Rule(RuleDeclaredValueCurrency); !ok {
		t.Error("Expected declared value currency rule to be registered")
	}
}

func TestValidateTransaction(t *testing.T) {
	tx := quotedTransaction(testOption("freight_ltl", entities.CategoryFreight, "471.79"))
	payment := testPurchaseOrder()
	tx.Payment = &payment
	billing := testBilling()
	tx.Billing = &billing

	result := ValidateTransaction(tx, DefaultRuleSet(), testRuleContext())
	if !hasIssue(result, "pickup", validation.CodeRequired) {
		t.Errorf("Expected pickup to be required, got %v", result.Issues)
	}

	pickup := testPickup()
	tx.Pickup = &pickup
	result = ValidateTransaction(tx, DefaultRuleSet(), testRuleContext())
	if !result.Valid() {
		t.Errorf("Expected complete transaction to be valid, got %s", result.Summary())
	}

	tx.Shipment.Package.Currency = "CAD"
	tx.Payment.PurchaseOrder.Amount = decimal.NewFromInt(100)
	result = ValidateTransaction(tx, DefaultRuleSet(), testRuleContext())
	if !result.HasRule(RulePOCoversTotal) || !result.HasRule(RuleDeclaredValueCurrency) {
		t.Errorf("Expected cross-section findings, got %v", result.Issues)
	}
}

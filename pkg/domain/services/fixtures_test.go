package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// Monday 2026-10-19 09:00 UTC, before the pickup cutoff
var testNow = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func testCalendar() *PickupCalendar {
	return NewPickupCalendar(time.UTC)
}

func testOrigin() entities.Address {
	return entities.Address{
		Street:       "123 Industrial Way",
		City:         "Chicago",
		State:        "IL",
		PostalCode:   "60601",
		Country:      entities.CountryUS,
		LocationType: entities.LocationIndustrial,
		Contact: entities.ContactInfo{
			Name:    "John Smith",
			Company: "Acme Manufacturing",
			Phone:   "312-555-0100",
			Email:   "john.smith@acme.example",
		},
	}
}

func testDestination() entities.Address {
	return entities.Address{
		Street:       "456 Commerce Blvd",
		City:         "Detroit",
		State:        "MI",
		PostalCode:   "48201",
		Country:      entities.CountryUS,
		LocationType: entities.LocationCommercial,
		Contact: entities.ContactInfo{
			Name:    "Jane Doe",
			Company: "Motor Parts Inc",
			Phone:   "313-555-0199",
		},
	}
}

func testPallet() entities.PackageInfo {
	return entities.PackageInfo{
		Type:             entities.PackagePallet,
		Dimensions:       entities.Dimensions{Length: d("48"), Width: d("40"), Height: d("48"), Unit: entities.Inches},
		Weight:           entities.Weight{Value: d("800"), Unit: entities.Pounds},
		DeclaredValue:    d("5000"),
		Currency:         "USD",
		Contents:         "Machine parts",
		ContentsCategory: entities.ContentsIndustrial,
		Quantity:         1,
	}
}

func testBox() entities.PackageInfo {
	return entities.PackageInfo{
		Type:          entities.PackageMedium,
		Dimensions:    entities.Dimensions{Length: d("12"), Width: d("12"), Height: d("12"), Unit: entities.Inches},
		Weight:        entities.Weight{Value: d("10"), Unit: entities.Pounds},
		DeclaredValue: d("100"),
		Currency:      "USD",
		Contents:      "Replacement gears",
		Quantity:      1,
	}
}

func testShipment() entities.Shipment {
	return entities.Shipment{Origin: testOrigin(), Destination: testDestination(), Package: testPallet()}
}

func testBilling() entities.BillingInfo {
	return entities.BillingInfo{
		SameAsOrigin: true,
		AccountsPayableContact: entities.ContactInfo{
			Name:  "Pat Lee",
			Phone: "312-555-0142",
			Email: "ap@acme.example",
		},
		Company: entities.CompanyInfo{
			LegalName:    "Acme Manufacturing LLC",
			BusinessType: entities.BusinessLLC,
			TaxID:        "12-3456789",
			TaxIDType:    entities.TaxIDEIN,
		},
		Invoice: entities.InvoicePreferences{
			Format:         entities.InvoiceStandard,
			DeliveryMethod: entities.DeliveryEmail,
			Frequency:      entities.FrequencyPerShipment,
		},
	}
}

func testPurchaseOrder() entities.PaymentInfo {
	return entities.PaymentInfo{
		Method: entities.PaymentPurchaseOrder,
		PurchaseOrder: &entities.PurchaseOrderDetails{
			PONumber:       "PO-2026-0042",
			Amount:         d("2500"),
			ExpirationDate: "2026-12-31",
			ApprovalContact: entities.ContactInfo{
				Name:  "Morgan Chen",
				Email: "purchasing@acme.example",
			},
		},
	}
}

func testPickup() entities.PickupDetails {
	return entities.PickupDetails{
		Date:     "2026-10-20",
		Slot:     entities.TimeSlot{ID: SlotMorning, Start: "08:00", End: "12:00"},
		Location: entities.PickupLocation{Type: entities.PickupLoadingDock},
		PrimaryContact: entities.ContactInfo{
			Name:  "Sam Rivera",
			Phone: "312-555-0177",
		},
	}
}

func testRateTable() []entities.RateEntry {
	return []entities.RateEntry{
		{ServiceCode: "ground_economy", Category: entities.CategoryGround, Carrier: "ParcelPro", ServiceName: "Ground Economy",
			TransitDays: 6, MinCharge: d("9.50"), RatePerLb: d("0.85"), ZoneFactor: d("0.12"), FuelPct: d("0.08"), MaxWeightLbs: d("150"), DimDivisor: 139},
		{ServiceCode: "air_overnight", Category: entities.CategoryAir, Carrier: "SwiftAir", ServiceName: "Overnight Air",
			TransitDays: 1, MinCharge: d("45.00"), RatePerLb: d("4.10"), ZoneFactor: d("0.15"), FuelPct: d("0.15"), MaxWeightLbs: d("150"), DimDivisor: 139},
		{ServiceCode: "freight_ltl", Category: entities.CategoryFreight, Carrier: "Heartland Freight", ServiceName: "LTL Freight",
			TransitDays: 5, MinCharge: d("185.00"), RatePerLb: d("0.32"), ZoneFactor: d("0.18"), FuelPct: d("0.06"), MaxWeightLbs: d("20000")},
		{ServiceCode: "freight_expedited", Category: entities.CategoryFreight, Carrier: "Heartland Freight", ServiceName: "Expedited Freight",
			TransitDays: 3, MinCharge: d("295.00"), RatePerLb: d("0.48"), ZoneFactor: d("0.18"), FuelPct: d("0.07"), MaxWeightLbs: d("20000")},
	}
}

func hasIssue(result validation.Result, field, code string) bool {
	for _, issue := range result.Issues {
		if issue.Field == field && (code == "" || issue.Code == code) {
			return true
		}
	}
	return false
}

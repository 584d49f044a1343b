package services

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	domainservices "github.com/vsinha/shipcheckout/pkg/domain/services"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/events"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/presets"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/receipt"
	csvrepo "github.com/vsinha/shipcheckout/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/repositories/memory"
)

// Monday 2026-10-19 09:00 UTC, before the pickup cutoff
var testNow = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingRates records how often the rate table is read
type countingRates struct {
	mu    sync.Mutex
	calls int
	table *csvrepo.RateTable
}

func (r *countingRates) Rates(ctx context.Context) ([]entities.RateEntry, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.table.Rates(ctx)
}

func (r *countingRates) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeHasher struct{}

func (fakeHasher) Hash(pin string) (string, error) {
	return "hashed:" + pin, nil
}

func (fakeHasher) Verify(pin, encoded string) (bool, error) {
	return encoded == "hashed:"+pin, nil
}

type harness struct {
	clock    *fakeClock
	repo     *memory.TransactionRepository
	rates    *countingRates
	events   *events.InMemoryEventStore
	quotes   *QuoteService
	signer   *receipt.Signer
	checkout *CheckoutService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := newFakeClock(testNow)
	calendar := domainservices.NewPickupCalendar(time.UTC)
	rates := &countingRates{table: csvrepo.NewRateTable("")}
	store := events.NewInMemoryEventStore(zap.NewNop())

	quotes, err := NewQuoteService(QuoteConfig{
		Rates:    rates,
		Calendar: calendar,
		Events:   store,
		Clock:    clock.Now,
	})
	require.NoError(t, err)

	catalog, err := presets.Builtin()
	require.NoError(t, err)

	_, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer, err := receipt.NewSigner(receipt.Config{
		Issuer:   "shipcheckout",
		Audience: "shipcheckout-receipts",
		Key:      key,
		TTL:      24 * time.Hour,
		Now:      clock.Now,
	})
	require.NoError(t, err)

	repo := memory.NewTransactionRepository(8)
	checkout, err := NewCheckoutService(CheckoutDeps{
		Transactions: repo,
		Quotes:       quotes,
		Presets:      NewPresetService(catalog, nil),
		Calendar:     calendar,
		Receipts:     signer,
		PINs:         fakeHasher{},
		Events:       store,
		Clock:        clock.Now,
	})
	require.NoError(t, err)

	return &harness{
		clock:    clock,
		repo:     repo,
		rates:    rates,
		events:   store,
		quotes:   quotes,
		signer:   signer,
		checkout: checkout,
	}
}

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func testShipment() entities.Shipment {
	return entities.Shipment{
		Origin: entities.Address{
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
		},
		Destination: entities.Address{
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
		},
		Package: entities.PackageInfo{
			Type:             entities.PackagePallet,
			Dimensions:       entities.Dimensions{Length: d("48"), Width: d("40"), Height: d("48"), Unit: entities.Inches},
			Weight:           entities.Weight{Value: d("800"), Unit: entities.Pounds},
			DeclaredValue:    d("5000"),
			Currency:         "USD",
			Contents:         "Machine parts",
			ContentsCategory: entities.ContentsIndustrial,
			Quantity:         1,
		},
	}
}

func testBoxShipment() entities.Shipment {
	shipment := testShipment()
	shipment.Package = entities.PackageInfo{
		Type:          entities.PackageMedium,
		Dimensions:    entities.Dimensions{Length: d("12"), Width: d("12"), Height: d("12"), Unit: entities.Inches},
		Weight:        entities.Weight{Value: d("10"), Unit: entities.Pounds},
		DeclaredValue: d("100"),
		Currency:      "USD",
		Contents:      "Replacement gears",
		Quantity:      1,
	}
	return shipment
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

func testCorporateAccount(pin string) entities.PaymentInfo {
	return entities.PaymentInfo{
		Method: entities.PaymentCorporateAccount,
		CorporateAccount: &entities.CorporateAccountDetails{
			AccountNumber: "ACME-123456",
			AccountPIN:    pin,
			BillingContact: entities.ContactInfo{
				Name:  "Pat Lee",
				Phone: "312-555-0142",
				Email: "ap@acme.example",
			},
		},
	}
}

func testPickup() entities.PickupDetails {
	return entities.PickupDetails{
		Date:     "2026-10-20",
		Slot:     entities.TimeSlot{ID: domainservices.SlotMorning},
		Location: entities.PickupLocation{Type: entities.PickupLoadingDock},
		PrimaryContact: entities.ContactInfo{
			Name:  "Sam Rivera",
			Phone: "312-555-0177",
		},
	}
}

func receiptFor(transactionID, confirmation string) receipt.Receipt {
	return receipt.Receipt{
		TransactionID:      transactionID,
		ConfirmationNumber: confirmation,
		ServiceCode:        "freight_ltl",
		Carrier:            "Heartland Freight",
		Total:              "480.00",
		Currency:           "USD",
		PickupDate:         "2026-10-20",
		PaymentMethod:      "purchase_order",
	}
}

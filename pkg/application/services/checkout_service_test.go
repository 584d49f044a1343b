package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/shipcheckout/pkg/application/dto"
	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	apperrors "github.com/vsinha/shipcheckout/pkg/domain/errors"
	"github.com/vsinha/shipcheckout/pkg/domain/repositories"
	domainservices "github.com/vsinha/shipcheckout/pkg/domain/services"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/events"
)

func requireCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperrors.CodeOf(err), "unexpected error: %v", err)
}

// advanceToPickup walks a fresh transaction through shipment, pricing and payment
func advanceToPickup(t *testing.T, h *harness) *entities.ShippingTransaction {
	t.Helper()
	ctx := context.Background()

	tx, err := h.checkout.Create(ctx)
	require.NoError(t, err)
	_, err = h.checkout.SaveShipment(ctx, tx.ID, testShipment())
	require.NoError(t, err)
	_, err = h.checkout.Quote(ctx, tx.ID, dto.QuoteTransactionRequest{})
	require.NoError(t, err)
	_, err = h.checkout.SelectOption(ctx, tx.ID, dto.SelectOptionRequest{OptionID: "freight_ltl"})
	require.NoError(t, err)
	res, err := h.checkout.SubmitPayment(ctx, tx.ID, dto.PaymentRequest{Payment: testPurchaseOrder(), Billing: testBilling()})
	require.NoError(t, err)
	return res.Transaction
}

func TestCheckout_FullFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tx := advanceToPickup(t, h)
	assert.Equal(t, entities.StepPickup, tx.Step)

	res, err := h.checkout.SchedulePickup(ctx, tx.ID, testPickup())
	require.NoError(t, err)
	assert.Equal(t, entities.StepReview, res.Transaction.Step)
	assert.Equal(t, "08:00", res.Transaction.Pickup.Slot.Start, "slot times come from the calendar")

	summary, err := h.checkout.Review(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, summary.CanConfirm, "review issues: %s", summary.Validation.Summary())
	require.NotNil(t, summary.Option)
	assert.Equal(t, "freight_ltl", summary.Option.ServiceCode)
	assert.True(t, summary.Total.Equal(summary.Option.Charges.Total))
	assert.Equal(t, "PO PO-2026-0042", summary.PaymentReference)
	assert.Equal(t, "Acme Manufacturing LLC", summary.BillingCompany)
	require.NotNil(t, summary.BillingAddress)
	assert.Equal(t, "Chicago", summary.BillingAddress.City)

	conf, err := h.checkout.Confirm(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(conf.ConfirmationNumber, "SC-20261019-"), conf.ConfirmationNumber)
	assert.Len(t, conf.ConfirmationNumber, len("SC-20261019-")+8)
	assert.Equal(t, entities.StatusConfirmed, conf.Transaction.Status)
	assert.Equal(t, entities.StepConfirmation, conf.Transaction.Step)
	require.NotNil(t, conf.Transaction.ConfirmedAt)
	require.NotEmpty(t, conf.ReceiptToken)

	claims, err := h.checkout.VerifyReceipt(ctx, conf.ReceiptToken)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, claims.TransactionID)
	assert.Equal(t, conf.ConfirmationNumber, claims.ConfirmationNumber)
	assert.Equal(t, "purchase_order", claims.PaymentMethod)

	stream, err := h.events.ReadEvents(tx.ID, 0)
	require.NoError(t, err)
	var types []string
	for _, e := range stream {
		types = append(types, e.Type())
	}
	assert.Equal(t, []string{
		events.TransactionCreatedEvent,
		events.ShipmentSavedEvent,
		events.QuoteIssuedEvent,
		events.OptionSelectedEvent,
		events.PaymentSubmittedEvent,
		events.PickupScheduledEvent,
		events.TransactionReviewedEvent,
		events.TransactionConfirmedEvent,
	}, types)

	// Confirmed bookings are frozen
	_, err = h.checkout.SaveDraft(ctx, tx.ID, testShipment())
	requireCode(t, err, apperrors.CodeTransactionConfirmed)
	_, err = h.checkout.Cancel(ctx, tx.ID)
	requireCode(t, err, apperrors.CodeTransactionConfirmed)
	_, err = h.checkout.Confirm(ctx, tx.ID)
	requireCode(t, err, apperrors.CodeTransactionConfirmed)
}

func TestCheckout_SaveDraftDoesNotGate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tx, err := h.checkout.Create(ctx)
	require.NoError(t, err)

	partial := testShipment()
	partial.Origin.PostalCode = "606"
	partial.Destination = entities.Address{}

	res, err := h.checkout.SaveDraft(ctx, tx.ID, partial)
	require.NoError(t, err)
	assert.False(t, res.Validation.Valid())
	assert.NotEmpty(t, res.Validation.ForField("shipment.origin.postalCode"))
	assert.Equal(t, entities.StepShipment, res.Transaction.Step)

	stored, err := h.checkout.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "606", stored.Shipment.Origin.PostalCode)
	assert.True(t, stored.UpdatedAt.Equal(testNow))
}

func TestCheckout_SaveShipmentRejectsInvalid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tx, err := h.checkout.Create(ctx)
	require.NoError(t, err)

	shipment := testShipment()
	shipment.Package.Weight.Value = d("0")
	_, err = h.checkout.SaveShipment(ctx, tx.ID, shipment)
	requireCode(t, err, apperrors.CodeValidationFailed)

	domainErr, ok := apperrors.As(err)
	require.True(t, ok)
	require.NotEmpty(t, domainErr.Issues)
	assert.True(t, strings.HasPrefix(domainErr.Issues[0].Field, "shipment."), domainErr.Issues[0].Field)

	stored, err := h.checkout.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StepShipment, stored.Step)
}

func TestCheckout_ShipmentChangeClearsPricing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tx := advanceToPickup(t, h)

	// A new contact name does not change the price
	renamed := testShipment()
	renamed.Origin.Contact.Name = "Johnny Smith"
	res, err := h.checkout.SaveShipment(ctx, tx.ID, renamed)
	require.NoError(t, err)
	assert.NotNil(t, res.Transaction.Quote)
	assert.Equal(t, entities.StepPickup, res.Transaction.Step)

	heavier := testShipment()
	heavier.Package.Weight.Value = d("900")
	res, err = h.checkout.SaveShipment(ctx, tx.ID, heavier)
	require.NoError(t, err)
	assert.Nil(t, res.Transaction.Quote)
	assert.Empty(t, res.Transaction.SelectedOptionID)
	assert.Equal(t, entities.StepPricing, res.Transaction.Step)

	_, err = h.checkout.SchedulePickup(ctx, tx.ID, testPickup())
	requireCode(t, err, apperrors.CodeStepOutOfOrder)
}

func TestCheckout_ApplyPreset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tx, err := h.checkout.Create(ctx)
	require.NoError(t, err)

	res, err := h.checkout.ApplyPreset(ctx, tx.ID, "medical-supplies")
	require.NoError(t, err)
	assert.True(t, res.Validation.Valid(), res.Validation.Summary())
	assert.Equal(t, "medical-supplies", res.Transaction.PresetID)
	assert.True(t, res.Transaction.Shipment.Package.HasHandling(entities.HandlingTemperatureControlled))
	assert.Equal(t, entities.StepShipment, res.Transaction.Step)

	_, err = h.checkout.ApplyPreset(ctx, tx.ID, "does-not-exist")
	requireCode(t, err, apperrors.CodePresetNotFound)
}

func TestCheckout_QuoteGating(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tx, err := h.checkout.Create(ctx)
	require.NoError(t, err)

	_, err = h.checkout.Quote(ctx, tx.ID, dto.QuoteTransactionRequest{})
	requireCode(t, err, apperrors.CodeValidationFailed)

	_, err = h.checkout.SelectOption(ctx, tx.ID, dto.SelectOptionRequest{OptionID: "ground_economy"})
	requireCode(t, err, apperrors.CodeStepOutOfOrder)

	_, err = h.checkout.SaveShipment(ctx, tx.ID, testBoxShipment())
	require.NoError(t, err)
	quoted, err := h.checkout.Quote(ctx, tx.ID, dto.QuoteTransactionRequest{})
	require.NoError(t, err)
	require.NotNil(t, quoted.Quote)
	assert.Equal(t, entities.StepPricing, quoted.Step)
	for _, option := range quoted.Quote.Options {
		assert.NotEqual(t, entities.CategoryFreight, option.Category, "a 10 lb box is not freight")
	}

	_, err = h.checkout.SelectOption(ctx, tx.ID, dto.SelectOptionRequest{OptionID: "freight_ltl"})
	requireCode(t, err, apperrors.CodeOptionNotFound)

	h.clock.Advance(16 * time.Minute)
	_, err = h.checkout.SelectOption(ctx, tx.ID, dto.SelectOptionRequest{OptionID: "ground_economy"})
	requireCode(t, err, apperrors.CodeQuoteExpired)
}

func TestCheckout_SelectOptionEnforcesHazmatRule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	shipment := testBoxShipment()
	shipment.Package.SpecialHandling = []entities.SpecialHandling{entities.HandlingHazmat}
	tx, err := entities.NewShippingTransaction("tx-hazmat", testNow)
	require.NoError(t, err)
	tx.Shipment = shipment
	tx.Step = entities.StepPricing
	tx.Quote = &entities.Quote{
		ID: "q-1",
		Options: []entities.PricingOption{
			{ID: "air_overnight", Category: entities.CategoryAir, ServiceCode: "air_overnight", Charges: entities.Charges{Total: d("80")}, Currency: "USD"},
		},
		ShipDate:  testNow,
		QuotedAt:  testNow,
		ExpiresAt: testNow.Add(time.Hour),
	}
	require.NoError(t, h.repo.Save(ctx, tx))

	_, err = h.checkout.SelectOption(ctx, tx.ID, dto.SelectOptionRequest{OptionID: "air_overnight"})
	requireCode(t, err, apperrors.CodeOptionNotEligible)
	domainErr, _ := apperrors.As(err)
	require.Len(t, domainErr.Issues, 1)
	assert.Equal(t, domainservices.RuleHazmatNoAir, domainErr.Issues[0].Rule)

	stored, err := h.checkout.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.SelectedOptionID)
}

func TestCheckout_SubmitPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tx, err := h.checkout.Create(ctx)
	require.NoError(t, err)
	_, err = h.checkout.SubmitPayment(ctx, tx.ID, dto.PaymentRequest{Payment: testPurchaseOrder(), Billing: testBilling()})
	requireCode(t, err, apperrors.CodeStepOutOfOrder)

	tx = advanceToPickup(t, h)

	t.Run("purchase order must cover the total", func(t *testing.T) {
		payment := testPurchaseOrder()
		payment.PurchaseOrder.Amount = d("10")
		_, err := h.checkout.SubmitPayment(ctx, tx.ID, dto.PaymentRequest{Payment: payment, Billing: testBilling()})
		requireCode(t, err, apperrors.CodeValidationFailed)
		domainErr, _ := apperrors.As(err)
		found := false
		for _, issue := range domainErr.Issues {
			found = found || issue.Rule == domainservices.RulePOCoversTotal
		}
		assert.True(t, found, "expected %s in %v", domainservices.RulePOCoversTotal, domainErr.Issues)
	})

	t.Run("billing rules are reported under billing", func(t *testing.T) {
		billing := testBilling()
		billing.Invoice.DeliveryMethod = entities.DeliveryEDI
		_, err := h.checkout.SubmitPayment(ctx, tx.ID, dto.PaymentRequest{Payment: testPurchaseOrder(), Billing: billing})
		requireCode(t, err, apperrors.CodeValidationFailed)
		domainErr, _ := apperrors.As(err)
		var ruleFields []string
		for _, issue := range domainErr.Issues {
			if issue.Rule == domainservices.RuleEDIDeliveryRequiresEDIFormat {
				ruleFields = append(ruleFields, issue.Field)
			}
		}
		assert.Equal(t, []string{"billing.invoice.format"}, ruleFields)
	})

	t.Run("warnings do not block", func(t *testing.T) {
		billing := testBilling()
		billing.Company.BusinessType = entities.BusinessSoleProprietorship
		res, err := h.checkout.SubmitPayment(ctx, tx.ID, dto.PaymentRequest{Payment: testPurchaseOrder(), Billing: billing})
		require.NoError(t, err)
		assert.True(t, res.Validation.HasRule(domainservices.RuleSoleProprietorEIN))
		assert.NotEmpty(t, res.Validation.Warnings())
	})

	t.Run("corporate account PIN is hashed", func(t *testing.T) {
		res, err := h.checkout.SubmitPayment(ctx, tx.ID, dto.PaymentRequest{Payment: testCorporateAccount("4321"), Billing: testBilling()})
		require.NoError(t, err)
		account := res.Transaction.Payment.CorporateAccount
		require.NotNil(t, account)
		assert.Empty(t, account.AccountPIN)
		assert.Equal(t, "hashed:4321", account.PINHash)
		assert.Nil(t, res.Transaction.Payment.PurchaseOrder)

		// Resubmitting the same account keeps the stored hash
		res, err = h.checkout.SubmitPayment(ctx, tx.ID, dto.PaymentRequest{Payment: testCorporateAccount(""), Billing: testBilling()})
		require.NoError(t, err)
		assert.Equal(t, "hashed:4321", res.Transaction.Payment.CorporateAccount.PINHash)

		// A client cannot supply its own hash for a different account
		other := testCorporateAccount("")
		other.CorporateAccount.AccountNumber = "BETA-654321"
		other.CorporateAccount.PINHash = "hashed:0000"
		_, err = h.checkout.SubmitPayment(ctx, tx.ID, dto.PaymentRequest{Payment: other, Billing: testBilling()})
		requireCode(t, err, apperrors.CodeValidationFailed)
	})

	t.Run("resubmitted PIN must match the one on file", func(t *testing.T) {
		_, err := h.checkout.SubmitPayment(ctx, tx.ID, dto.PaymentRequest{Payment: testCorporateAccount("9999"), Billing: testBilling()})
		requireCode(t, err, apperrors.CodeValidationFailed)
		domainErr, _ := apperrors.As(err)
		require.Len(t, domainErr.Issues, 1)
		assert.Equal(t, "payment.corporateAccount.accountPin", domainErr.Issues[0].Field)

		stored, err := h.checkout.Get(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, "hashed:4321", stored.AccountPINHash())

		res, err := h.checkout.SubmitPayment(ctx, tx.ID, dto.PaymentRequest{Payment: testCorporateAccount("4321"), Billing: testBilling()})
		require.NoError(t, err)
		assert.Equal(t, "hashed:4321", res.Transaction.AccountPINHash())
	})
}

func TestCheckout_PickupAvailability(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tx, err := h.checkout.Create(ctx)
	require.NoError(t, err)
	_, err = h.checkout.PickupAvailability(ctx, tx.ID, "", 0)
	requireCode(t, err, apperrors.CodeStepOutOfOrder)

	_, err = h.checkout.SaveShipment(ctx, tx.ID, testShipment())
	require.NoError(t, err)

	resp, err := h.checkout.PickupAvailability(ctx, tx.ID, "2026-10-20", 3)
	require.NoError(t, err)
	assert.Equal(t, "UTC", resp.Timezone)
	assert.Equal(t, "2026-10-19", resp.WindowStart)
	require.Len(t, resp.Days, 3)
	assert.Equal(t, "2026-10-20", resp.Days[0].Date)
	for _, slot := range resp.Days[0].Slots {
		assert.NotEqual(t, domainservices.SlotEvening, slot.Slot.ID, "pallets cannot use the evening window")
	}

	_, err = h.checkout.Availability(ctx, dto.AvailabilityRequest{PostalCode: "bad", Country: entities.CountryUS})
	requireCode(t, err, apperrors.CodeValidationFailed)
}

func TestCheckout_SchedulePickupCapacity(t *testing.T) {
	h := newHarness(t)
	h.checkout.Calendar().SlotCapacity = 1
	ctx := context.Background()

	first := advanceToPickup(t, h)
	second := advanceToPickup(t, h)

	_, err := h.checkout.SchedulePickup(ctx, first.ID, testPickup())
	require.NoError(t, err)

	// Rebooking the same slot for the same transaction is not double counted
	_, err = h.checkout.SchedulePickup(ctx, first.ID, testPickup())
	require.NoError(t, err)

	_, err = h.checkout.SchedulePickup(ctx, second.ID, testPickup())
	requireCode(t, err, apperrors.CodePickupSlotUnavailable)

	afternoon := testPickup()
	afternoon.Slot = entities.TimeSlot{Start: "12:00", End: "16:00"}
	res, err := h.checkout.SchedulePickup(ctx, second.ID, afternoon)
	require.NoError(t, err)
	assert.Equal(t, domainservices.SlotAfternoon, res.Transaction.Pickup.Slot.ID)

	custom := testPickup()
	custom.Slot = entities.TimeSlot{Start: "09:00", End: "13:00"}
	_, err = h.checkout.SchedulePickup(ctx, second.ID, custom)
	requireCode(t, err, apperrors.CodePickupSlotUnavailable)

	count, err := h.repo.CountPickups(ctx, "2026-10-20", domainservices.SlotMorning)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCheckout_SchedulePickupValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tx := advanceToPickup(t, h)

	saturday := testPickup()
	saturday.Date = "2026-10-24"
	_, err := h.checkout.SchedulePickup(ctx, tx.ID, saturday)
	requireCode(t, err, apperrors.CodeValidationFailed)
	domainErr, _ := apperrors.As(err)
	assert.Equal(t, "pickup.date", domainErr.Issues[0].Field)

	// Purchase order expiring before the pickup date fails the payment rule
	late := testPickup()
	late.Date = "2026-10-30"
	payment := testPurchaseOrder()
	payment.PurchaseOrder.ExpirationDate = "2026-10-27"
	_, err = h.checkout.SubmitPayment(ctx, tx.ID, dto.PaymentRequest{Payment: payment, Billing: testBilling()})
	require.NoError(t, err)
	_, err = h.checkout.SchedulePickup(ctx, tx.ID, late)
	requireCode(t, err, apperrors.CodeValidationFailed)
}

func TestCheckout_ReviewAndConfirmGating(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tx := advanceToPickup(t, h)

	_, err := h.checkout.Review(ctx, tx.ID)
	requireCode(t, err, apperrors.CodeStepOutOfOrder)
	_, err = h.checkout.Confirm(ctx, tx.ID)
	requireCode(t, err, apperrors.CodeStepOutOfOrder)

	_, err = h.checkout.SchedulePickup(ctx, tx.ID, testPickup())
	require.NoError(t, err)

	h.clock.Advance(20 * time.Minute)
	summary, err := h.checkout.Review(ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, summary.CanConfirm)
	assert.NotEmpty(t, summary.Validation.ForField("quote.expiresAt"))

	_, err = h.checkout.Confirm(ctx, tx.ID)
	requireCode(t, err, apperrors.CodeQuoteExpired)
}

func TestCheckout_CancelAndDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tx, err := h.checkout.Create(ctx)
	require.NoError(t, err)

	cancelled, err := h.checkout.Cancel(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCancelled, cancelled.Status)

	_, err = h.checkout.Cancel(ctx, tx.ID)
	require.NoError(t, err)

	_, err = h.checkout.SaveShipment(ctx, tx.ID, testShipment())
	requireCode(t, err, apperrors.CodeTransactionCancelled)

	list, err := h.checkout.List(ctx, repositories.TransactionFilter{Status: entities.StatusCancelled})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, h.checkout.Delete(ctx, tx.ID))
	_, err = h.checkout.Get(ctx, tx.ID)
	requireCode(t, err, apperrors.CodeNotFound)
	requireCode(t, h.checkout.Delete(ctx, tx.ID), apperrors.CodeNotFound)
}

func TestCheckout_VerifyReceiptRejectsForeignTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.checkout.VerifyReceipt(ctx, "not-a-token")
	requireCode(t, err, apperrors.CodeReceiptInvalid)

	// A correctly signed receipt for a booking that does not exist
	token, err := h.signer.Sign(receiptFor("missing", "SC-20261019-AAAAAAAA"))
	require.NoError(t, err)
	_, err = h.checkout.VerifyReceipt(ctx, token)
	requireCode(t, err, apperrors.CodeReceiptInvalid)
}

func TestCheckout_EventHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tx, err := h.checkout.Create(ctx)
	require.NoError(t, err)
	_, err = h.checkout.SaveShipment(ctx, tx.ID, testShipment())
	require.NoError(t, err)

	history, err := h.checkout.Events(ctx, tx.ID, 0)
	require.NoError(t, err)
	var types []string
	for _, e := range history {
		types = append(types, e.Type())
	}
	assert.Equal(t, []string{events.TransactionCreatedEvent, events.ShipmentSavedEvent}, types)

	tail, err := h.checkout.Events(ctx, tx.ID, 2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, 2, tail[0].Version())

	_, err = h.checkout.Events(ctx, "missing", 0)
	requireCode(t, err, apperrors.CodeNotFound)

	require.NoError(t, h.checkout.Delete(ctx, tx.ID))
	h.events.Wait()
	stream, err := h.events.ReadEvents(tx.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, stream)
	_, err = h.checkout.Events(ctx, tx.ID, 0)
	requireCode(t, err, apperrors.CodeNotFound)
}

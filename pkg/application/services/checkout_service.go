// Package services implements the checkout wizard on top of the domain validators and rules.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vsinha/shipcheckout/pkg/application/dto"
	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	apperrors "github.com/vsinha/shipcheckout/pkg/domain/errors"
	"github.com/vsinha/shipcheckout/pkg/domain/repositories"
	domainservices "github.com/vsinha/shipcheckout/pkg/domain/services"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/events"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/receipt"
)

// DefaultAvailabilityDays is how many days an availability request covers when none is given
const DefaultAvailabilityDays = 7

const confirmationAttempts = 3

// PINHasher turns a corporate account PIN into a storable hash and checks PINs against it
type PINHasher interface {
	Hash(pin string) (string, error)
	Verify(pin, encoded string) (bool, error)
}

// CheckoutDeps holds everything the checkout service needs. Transactions and
// Quotes are required; the rest fall back to defaults.
type CheckoutDeps struct {
	Transactions repositories.TransactionRepository
	Quotes       *QuoteService
	Presets      *PresetService
	Rules        *domainservices.RuleSet
	Calendar     *domainservices.PickupCalendar
	Receipts     *receipt.Signer
	PINs         PINHasher
	Events       events.EventStore
	Logger       *zap.Logger
	Tracer       trace.Tracer
	Clock        func() time.Time
}

// CheckoutService moves shipping transactions through the wizard steps.
// Every mutation loads the stored record, applies the step and saves it back.
type CheckoutService struct {
	repo     repositories.TransactionRepository
	quotes   *QuoteService
	presets  *PresetService
	rules    *domainservices.RuleSet
	calendar *domainservices.PickupCalendar
	receipts *receipt.Signer
	pins     PINHasher
	events   events.EventStore
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time

	locks *keyedMutex
	// serializes slot capacity checks across transactions
	bookingMu sync.Mutex
}

// NewCheckoutService creates the wizard service
func NewCheckoutService(deps CheckoutDeps) (*CheckoutService, error) {
	if deps.Transactions == nil {
		return nil, fmt.Errorf("checkout service requires a transaction repository")
	}
	if deps.Quotes == nil {
		return nil, fmt.Errorf("checkout service requires a quote service")
	}
	if deps.Rules == nil {
		deps.Rules = domainservices.DefaultRuleSet()
	}
	if deps.Calendar == nil {
		deps.Calendar = deps.Quotes.Calendar()
	}
	return &CheckoutService{
		repo:     deps.Transactions,
		quotes:   deps.Quotes,
		presets:  deps.Presets,
		rules:    deps.Rules,
		calendar: deps.Calendar,
		receipts: deps.Receipts,
		pins:     deps.PINs,
		events:   deps.Events,
		logger:   loggerOrNop(deps.Logger),
		tracer:   tracerOrGlobal(deps.Tracer),
		now:      clockOrNow(deps.Clock),
		locks:    newKeyedMutex(),
	}, nil
}

// Calendar returns the pickup calendar
func (s *CheckoutService) Calendar() *domainservices.PickupCalendar {
	return s.calendar
}

// Rules returns the business rules the service enforces
func (s *CheckoutService) Rules() *domainservices.RuleSet {
	return s.rules
}

// Create starts a new draft transaction
func (s *CheckoutService) Create(ctx context.Context) (tx *entities.ShippingTransaction, err error) {
	ctx, span := s.tracer.Start(ctx, "Checkout.Create")
	defer func() { finishSpan(span, err) }()

	tx, err = entities.NewShippingTransaction(uuid.NewString(), s.now())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to create transaction", err)
	}
	if err := s.repo.Save(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction %s: %w", tx.ID, err)
	}

	span.SetAttributes(attribute.String("transaction.id", tx.ID))
	s.logger.Info("transaction created", zap.String("transaction_id", tx.ID))
	s.publish(events.TransactionCreatedEvent, tx.ID, events.TransactionCreated{TransactionID: tx.ID})
	return tx, nil
}

// Get returns a transaction
func (s *CheckoutService) Get(ctx context.Context, id string) (*entities.ShippingTransaction, error) {
	return s.repo.Get(ctx, id)
}

// List returns transactions, most recently updated first
func (s *CheckoutService) List(ctx context.Context, filter repositories.TransactionFilter) ([]*entities.ShippingTransaction, error) {
	return s.repo.List(ctx, filter)
}

// Delete removes a transaction; this is the wizard's reset
func (s *CheckoutService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := s.start(ctx, "Checkout.Delete", id)
	defer func() { finishSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}

	s.logger.Info("transaction deleted", zap.String("transaction_id", id), zap.String("status", string(tx.Status)))
	s.publish(events.TransactionDeletedEvent, id, events.TransactionDeleted{TransactionID: id, Status: string(tx.Status)})
	if s.events != nil {
		if err := s.events.DeleteStream(id); err != nil {
			s.logger.Warn("failed to drop event history", zap.String("transaction_id", id), zap.Error(err))
		}
	}
	return nil
}

// Events returns the recorded history of a transaction from fromVersion on
func (s *CheckoutService) Events(ctx context.Context, id string, fromVersion int) (history []events.Event, err error) {
	ctx, span := s.start(ctx, "Checkout.Events", id)
	defer func() { finishSpan(span, err) }()

	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.events == nil {
		return []events.Event{}, nil
	}
	history, err = s.events.ReadEvents(id, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to read events for %s: %w", id, err)
	}
	span.SetAttributes(attribute.Int("events.count", len(history)))
	return history, nil
}

// SaveDraft stores the shipment as entered without gating on validity. The
// findings are returned so the form can show them.
func (s *CheckoutService) SaveDraft(ctx context.Context, id string, shipment entities.Shipment) (res *dto.StepResult, err error) {
	ctx, span := s.start(ctx, "Checkout.SaveDraft", id)
	defer func() { finishSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.loadOpen(ctx, id)
	if err != nil {
		return nil, err
	}

	result := domainservices.ValidateShipment(shipment).Prefixed("shipment")
	s.replaceShipment(tx, shipment)
	if err := s.save(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Debug("draft saved", zap.String("transaction_id", id), zap.Int("issues", len(result.Issues)))
	s.publish(events.DraftSavedEvent, id, events.DraftSaved{TransactionID: id, Issues: len(result.Issues)})
	return &dto.StepResult{Transaction: tx, Validation: result}, nil
}

// AutosaveDraft adapts SaveDraft to the autosaver
func (s *CheckoutService) AutosaveDraft(ctx context.Context, id string, shipment entities.Shipment) error {
	_, err := s.SaveDraft(ctx, id, shipment)
	return err
}

// SaveShipment completes the shipment step
func (s *CheckoutService) SaveShipment(ctx context.Context, id string, shipment entities.Shipment) (res *dto.StepResult, err error) {
	ctx, span := s.start(ctx, "Checkout.SaveShipment", id)
	defer func() { finishSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.loadOpen(ctx, id)
	if err != nil {
		return nil, err
	}

	result := domainservices.ValidateShipment(shipment).Prefixed("shipment")
	if !result.Valid() {
		return nil, apperrors.Validation("shipment is invalid", result)
	}

	reset := s.replaceShipment(tx, shipment)
	tx.AdvanceTo(entities.StepPricing)
	if err := s.save(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("shipment saved", zap.String("transaction_id", id), zap.Bool("pricing_reset", reset))
	s.publish(events.ShipmentSavedEvent, id, events.ShipmentSaved{TransactionID: id, PricingReset: reset})
	return &dto.StepResult{Transaction: tx, Validation: result}, nil
}

// ApplyPreset fills the shipment from a demo preset
func (s *CheckoutService) ApplyPreset(ctx context.Context, id, presetID string) (res *dto.StepResult, err error) {
	ctx, span := s.start(ctx, "Checkout.ApplyPreset", id)
	defer func() { finishSpan(span, err) }()
	span.SetAttributes(attribute.String("preset.id", presetID))

	if s.presets == nil {
		return nil, apperrors.New(apperrors.CodePresetNotFound, "presets are not available")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.loadOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	shipment, err := s.presets.Shipment(ctx, presetID)
	if err != nil {
		return nil, err
	}

	s.replaceShipment(tx, shipment)
	tx.PresetID = presetID
	if err := s.save(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("preset applied", zap.String("transaction_id", id), zap.String("preset_id", presetID))
	s.publish(events.PresetAppliedEvent, id, events.PresetApplied{TransactionID: id, PresetID: presetID})
	return &dto.StepResult{
		Transaction: tx,
		Validation:  domainservices.ValidateShipment(shipment).Prefixed("shipment"),
	}, nil
}

// Quote prices the transaction's shipment. A new quote replaces the old one
// and clears the selected option.
func (s *CheckoutService) Quote(ctx context.Context, id string, req dto.QuoteTransactionRequest) (tx *entities.ShippingTransaction, err error) {
	ctx, span := s.start(ctx, "Checkout.Quote", id)
	defer func() { finishSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err = s.loadOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	if result := domainservices.ValidateShipment(tx.Shipment).Prefixed("shipment"); !result.Valid() {
		return nil, apperrors.Validation("shipment must be complete before pricing", result)
	}

	resp, err := s.quotes.QuoteFor(ctx, id, dto.QuoteRequestFor(tx.Shipment, req.ShipDate))
	if err != nil {
		return nil, err
	}

	tx.ClearPricing()
	quote := resp.Quote
	tx.Quote = &quote
	tx.AdvanceTo(entities.StepPricing)
	if err := s.save(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("transaction quoted",
		zap.String("transaction_id", id),
		zap.String("quote_id", quote.ID),
		zap.Bool("cached", resp.Cached))
	return tx, nil
}

// SelectOption chooses one of the quoted options
func (s *CheckoutService) SelectOption(ctx context.Context, id string, req dto.SelectOptionRequest) (tx *entities.ShippingTransaction, err error) {
	ctx, span := s.start(ctx, "Checkout.SelectOption", id)
	defer func() { finishSpan(span, err) }()
	span.SetAttributes(attribute.String("option.id", req.OptionID))

	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err = s.loadOpen(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if tx.Quote == nil {
		return nil, apperrors.New(apperrors.CodeStepOutOfOrder, "request a quote before selecting an option")
	}
	if tx.Quote.Expired(now) {
		return nil, apperrors.New(apperrors.CodeQuoteExpired, "quote has expired, request a new one")
	}
	option, ok := tx.Quote.Option(req.OptionID)
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeOptionNotFound, "option is not part of the quote",
			map[string]string{"option_id": req.OptionID})
	}

	tx.SelectedOptionID = option.ID
	eligibility := s.rules.Only(domainservices.RuleHazmatNoAir).Evaluate(tx, s.ruleContext(now))
	if !eligibility.Valid() {
		return nil, &apperrors.Error{
			Code:    apperrors.CodeOptionNotEligible,
			Message: "option cannot carry this shipment",
			Issues:  eligibility.Issues,
		}
	}

	tx.AdvanceTo(entities.StepPayment)
	if err := s.save(ctx, tx); err != nil {
		return nil, err
	}

	total := option.Charges.Total.StringFixed(2)
	s.logger.Info("option selected", zap.String("transaction_id", id), zap.String("option_id", option.ID), zap.String("total", total))
	s.publish(events.OptionSelectedEvent, id, events.OptionSelected{TransactionID: id, OptionID: option.ID, Total: total})
	return tx, nil
}

// applyAccountPIN replaces the clear-text PIN with its hash. A PIN resubmitted
// for the account already on file must match the stored hash.
func (s *CheckoutService) applyAccountPIN(tx *entities.ShippingTransaction, account *entities.CorporateAccountDetails) error {
	pin := account.AccountPIN
	account.AccountPIN = ""

	stored := tx.AccountPINHash()
	if stored != "" && strings.EqualFold(tx.Payment.CorporateAccount.AccountNumber, account.AccountNumber) {
		ok, err := s.pins.Verify(pin, stored)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, "failed to verify account PIN", err)
		}
		if !ok {
			var result validation.Result
			result.Errorf("payment.corporateAccount.accountPin", validation.CodeRule,
				"Account PIN does not match the PIN on file for %s", account.AccountNumber)
			return apperrors.Validation("payment is invalid", result)
		}
		account.PINHash = stored
		return nil
	}

	hash, err := s.pins.Hash(pin)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "failed to hash account PIN", err)
	}
	account.PINHash = hash
	return nil
}

// SubmitPayment stores payment and billing once both sections and the payment
// rules pass. Corporate account PINs are hashed before storage.
func (s *CheckoutService) SubmitPayment(ctx context.Context, id string, req dto.PaymentRequest) (res *dto.StepResult, err error) {
	ctx, span := s.start(ctx, "Checkout.SubmitPayment", id)
	defer func() { finishSpan(span, err) }()
	span.SetAttributes(attribute.String("payment.method", string(req.Payment.Method)))

	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.loadOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := tx.SelectedOption(); !ok {
		return nil, apperrors.New(apperrors.CodeStepOutOfOrder, "select a shipping option before payment")
	}

	payment := req.Payment
	billing := req.Billing
	payment.StripOtherMethods()
	if account := payment.CorporateAccount; account != nil {
		detached := *account
		detached.PINHash = ""
		if detached.AccountPIN == "" && tx.Payment != nil && tx.Payment.CorporateAccount != nil &&
			strings.EqualFold(tx.Payment.CorporateAccount.AccountNumber, detached.AccountNumber) {
			detached.PINHash = tx.Payment.CorporateAccount.PINHash
		}
		payment.CorporateAccount = &detached
	}

	now := s.now()
	var result validation.Result
	result.Merge(domainservices.ValidatePayment(payment, now.In(s.calendar.Location)).Prefixed("payment"))
	result.Merge(domainservices.ValidateBilling(billing, &tx.Shipment.Origin).Prefixed("billing"))

	candidate := *tx
	candidate.Payment = &payment
	candidate.Billing = &billing
	result.Merge(s.rules.Without(domainservices.SectionBilling).Evaluate(&candidate, s.ruleContext(now)))
	if !result.Valid() {
		return nil, apperrors.Validation("payment is invalid", result)
	}

	if account := payment.CorporateAccount; account != nil && account.AccountPIN != "" {
		if s.pins == nil {
			return nil, apperrors.New(apperrors.CodeInternal, "PIN hashing is not configured")
		}
		if err := s.applyAccountPIN(tx, account); err != nil {
			return nil, err
		}
	}

	tx.Payment = &payment
	tx.Billing = &billing
	tx.AdvanceTo(entities.StepPickup)
	if err := s.save(ctx, tx); err != nil {
		return nil, err
	}

	warnings := len(result.Warnings())
	s.logger.Info("payment submitted",
		zap.String("transaction_id", id),
		zap.String("method", string(payment.Method)),
		zap.Int("warnings", warnings))
	s.publish(events.PaymentSubmittedEvent, id, events.PaymentSubmitted{
		TransactionID: id,
		Method:        string(payment.Method),
		Warnings:      warnings,
	})
	return &dto.StepResult{Transaction: tx, Validation: result}, nil
}

// Availability lists open pickup slots for a standalone request
func (s *CheckoutService) Availability(ctx context.Context, req dto.AvailabilityRequest) (resp *dto.AvailabilityResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "Checkout.Availability")
	defer func() { finishSpan(span, err) }()

	if result := req.Validate(); !result.Valid() {
		return nil, apperrors.Validation("availability request is invalid", result)
	}
	return s.availability(ctx, req.From, req.Days, req.Freight)
}

// PickupAvailability lists open pickup slots for the transaction's origin
func (s *CheckoutService) PickupAvailability(ctx context.Context, id, from string, days int) (resp *dto.AvailabilityResponse, err error) {
	ctx, span := s.start(ctx, "Checkout.PickupAvailability", id)
	defer func() { finishSpan(span, err) }()

	tx, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(tx.Shipment.Origin.PostalCode) == "" {
		return nil, apperrors.New(apperrors.CodeStepOutOfOrder, "enter the shipment origin before checking pickup availability")
	}

	req := dto.AvailabilityRequest{
		PostalCode: tx.Shipment.Origin.PostalCode,
		Country:    tx.Shipment.Origin.Country,
		From:       from,
		Days:       days,
		Freight:    needsFreightPickup(tx),
	}
	if result := req.Validate(); !result.Valid() {
		return nil, apperrors.Validation("availability request is invalid", result)
	}
	return s.availability(ctx, req.From, req.Days, req.Freight)
}

func (s *CheckoutService) availability(ctx context.Context, from string, days int, freight bool) (*dto.AvailabilityResponse, error) {
	now := s.now()
	first, last := s.calendar.Window(now)

	start := first
	if from != "" {
		day, err := s.calendar.ParseDay(from)
		if err != nil {
			return nil, apperrors.New(apperrors.CodeInvalidArgument, "from must be YYYY-MM-DD")
		}
		start = day
	}
	if days <= 0 {
		days = DefaultAvailabilityDays
	}

	booked := func(date, slotID string) (int, error) {
		return s.repo.CountPickups(ctx, date, slotID)
	}
	schedule, err := s.calendar.Availability(now, start, days, freight, booked)
	if err != nil {
		return nil, fmt.Errorf("failed to compute pickup availability: %w", err)
	}

	return &dto.AvailabilityResponse{
		Timezone:    s.calendar.Location.String(),
		WindowStart: first.Format(domainservices.DateLayout),
		WindowEnd:   last.Format(domainservices.DateLayout),
		Days:        schedule,
	}, nil
}

// SchedulePickup books the pickup appointment into a calendar slot with capacity left
func (s *CheckoutService) SchedulePickup(ctx context.Context, id string, pickup entities.PickupDetails) (res *dto.StepResult, err error) {
	ctx, span := s.start(ctx, "Checkout.SchedulePickup", id)
	defer func() { finishSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.loadOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Payment == nil || !tx.Reached(entities.StepPickup) {
		return nil, apperrors.New(apperrors.CodeStepOutOfOrder, "submit payment before scheduling a pickup")
	}

	now := s.now()
	slot, known := s.resolveSlot(pickup.Slot)
	if known {
		pickup.Slot = slot
	}

	result := domainservices.ValidatePickup(pickup, s.calendar, now).Prefixed("pickup")
	candidate := *tx
	candidate.Pickup = &pickup
	result.Merge(s.rules.Without(domainservices.SectionBilling).Evaluate(&candidate, s.ruleContext(now)))
	if !result.Valid() {
		return nil, apperrors.Validation("pickup is invalid", result)
	}

	if !known {
		return nil, apperrors.WithMetadata(apperrors.CodePickupSlotUnavailable, "pickup window is not offered",
			map[string]string{"slot": pickup.Slot.Start + "-" + pickup.Slot.End})
	}
	day, _ := s.calendar.ParseDay(pickup.Date)
	if !slotOffered(s.calendar.SlotsFor(day, now, needsFreightPickup(tx)), slot.ID) {
		return nil, apperrors.WithMetadata(apperrors.CodePickupSlotUnavailable, "pickup window is not available on this date",
			map[string]string{"date": pickup.Date, "slot": slot.ID})
	}

	s.bookingMu.Lock()
	defer s.bookingMu.Unlock()

	booked, err := s.repo.CountPickups(ctx, pickup.Date, slot.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count pickups: %w", err)
	}
	if tx.Pickup != nil && tx.Pickup.Date == pickup.Date && tx.Pickup.Slot.ID == slot.ID {
		booked--
	}
	if booked >= s.calendar.SlotCapacity {
		return nil, apperrors.WithMetadata(apperrors.CodePickupSlotUnavailable, "pickup window is fully booked",
			map[string]string{"date": pickup.Date, "slot": slot.ID})
	}

	tx.Pickup = &pickup
	tx.AdvanceTo(entities.StepReview)
	if err := s.save(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("pickup scheduled",
		zap.String("transaction_id", id),
		zap.String("date", pickup.Date),
		zap.String("slot", slot.ID))
	s.publish(events.PickupScheduledEvent, id, events.PickupScheduled{TransactionID: id, Date: pickup.Date, SlotID: slot.ID})
	return &dto.StepResult{Transaction: tx, Validation: result}, nil
}

// resolveSlot matches the requested window to a calendar slot, by id or by times
func (s *CheckoutService) resolveSlot(requested entities.TimeSlot) (entities.TimeSlot, bool) {
	if requested.ID != "" {
		return s.calendar.Slot(requested.ID)
	}
	for _, slot := range s.calendar.Slots {
		if slot.Start == requested.Start && slot.End == requested.End {
			return slot, true
		}
	}
	return entities.TimeSlot{}, false
}

// Review validates every section and every rule and summarizes the booking
func (s *CheckoutService) Review(ctx context.Context, id string) (summary *dto.ReviewSummary, err error) {
	ctx, span := s.start(ctx, "Checkout.Review", id)
	defer func() { finishSpan(span, err) }()

	tx, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Pickup == nil || !tx.Reached(entities.StepReview) {
		return nil, apperrors.New(apperrors.CodeStepOutOfOrder, "schedule a pickup before reviewing")
	}

	result := s.validateAll(tx, s.now())
	summary = summarize(tx, result)

	span.SetAttributes(attribute.Int("review.errors", len(result.Errors())))
	s.logger.Info("transaction reviewed",
		zap.String("transaction_id", id),
		zap.Int("errors", len(result.Errors())),
		zap.Int("warnings", len(result.Warnings())))
	s.publish(events.TransactionReviewedEvent, id, events.TransactionReviewed{
		TransactionID: id,
		Errors:        len(result.Errors()),
		Warnings:      len(result.Warnings()),
	})
	return summary, nil
}

func (s *CheckoutService) validateAll(tx *entities.ShippingTransaction, now time.Time) validation.Result {
	result := domainservices.ValidateTransaction(tx, s.rules, s.ruleContext(now))
	if tx.Quote != nil && tx.Quote.Expired(now) && tx.IsOpen() {
		result.Errorf("quote.expiresAt", validation.CodeOutOfRange,
			"Quote expired at %s, request a new quote", tx.Quote.ExpiresAt.In(s.calendar.Location).Format(time.Kitchen))
	}
	return result
}

func summarize(tx *entities.ShippingTransaction, result validation.Result) *dto.ReviewSummary {
	summary := &dto.ReviewSummary{
		TransactionID: tx.ID,
		Status:        string(tx.Status),
		Step:          tx.Step.String(),
		Shipment:      tx.Shipment,
		Pickup:        tx.Pickup,
		Total:         decimal.Zero,
		Validation:    result,
		CanConfirm:    result.Valid() && tx.IsOpen(),
	}
	if option, ok := tx.SelectedOption(); ok {
		summary.Option = option
		summary.Total = option.Charges.Total
		summary.Currency = option.Currency
	}
	if tx.Quote != nil {
		expires := tx.Quote.ExpiresAt
		summary.QuoteExpiresAt = &expires
	}
	if tx.Payment != nil {
		summary.PaymentMethod = tx.Payment.Method
		summary.PaymentReference = dto.PaymentReference(tx.Payment)
	}
	if tx.Billing != nil {
		summary.BillingCompany = tx.Billing.Company.LegalName
		address := domainservices.EffectiveBillingAddress(*tx.Billing, &tx.Shipment.Origin)
		summary.BillingAddress = &address
	}
	return summary
}

// Confirm books the shipment. The transaction must pass review without errors.
func (s *CheckoutService) Confirm(ctx context.Context, id string) (conf *dto.Confirmation, err error) {
	ctx, span := s.start(ctx, "Checkout.Confirm", id)
	defer func() { finishSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.loadOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Pickup == nil || !tx.Reached(entities.StepReview) {
		return nil, apperrors.New(apperrors.CodeStepOutOfOrder, "review the booking before confirming")
	}

	now := s.now()
	if tx.Quote.Expired(now) {
		return nil, apperrors.New(apperrors.CodeQuoteExpired, "quote has expired, request a new one")
	}
	if result := s.validateAll(tx, now); !result.Valid() {
		return nil, apperrors.Validation("booking cannot be confirmed", result)
	}

	option, _ := tx.SelectedOption()
	confirmedAt := now.UTC()
	tx.Status = entities.StatusConfirmed
	tx.ConfirmedAt = &confirmedAt
	tx.AdvanceTo(entities.StepConfirmation)

	for attempt := 1; ; attempt++ {
		tx.ConfirmationNumber = confirmationNumber(now.In(s.calendar.Location))
		tx.ReceiptToken, err = s.signReceipt(tx, option)
		if err != nil {
			return nil, err
		}
		err = s.save(ctx, tx)
		if err == nil {
			break
		}
		if !apperrors.IsCode(err, apperrors.CodeAlreadyExists) || attempt == confirmationAttempts {
			return nil, err
		}
		s.logger.Warn("confirmation number collision, retrying", zap.String("transaction_id", id), zap.Int("attempt", attempt))
	}

	total := option.Charges.Total.StringFixed(2)
	span.SetAttributes(attribute.String("confirmation.number", tx.ConfirmationNumber))
	s.logger.Info("transaction confirmed",
		zap.String("transaction_id", id),
		zap.String("confirmation_number", tx.ConfirmationNumber),
		zap.String("total", total))
	s.publish(events.TransactionConfirmedEvent, id, events.TransactionConfirmed{
		TransactionID:      id,
		ConfirmationNumber: tx.ConfirmationNumber,
		Total:              total,
		Currency:           option.Currency,
	})
	return &dto.Confirmation{
		Transaction:        tx,
		ConfirmationNumber: tx.ConfirmationNumber,
		ReceiptToken:       tx.ReceiptToken,
	}, nil
}

func (s *CheckoutService) signReceipt(tx *entities.ShippingTransaction, option *entities.PricingOption) (string, error) {
	if s.receipts == nil {
		return "", nil
	}
	token, err := s.receipts.Sign(receipt.Receipt{
		TransactionID:      tx.ID,
		ConfirmationNumber: tx.ConfirmationNumber,
		ServiceCode:        option.ServiceCode,
		Carrier:            option.Carrier,
		Total:              option.Charges.Total.StringFixed(2),
		Currency:           option.Currency,
		PickupDate:         tx.Pickup.Date,
		PaymentMethod:      string(tx.Payment.Method),
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, "failed to sign receipt", err)
	}
	return token, nil
}

// confirmationNumber formats SC-YYYYMMDD-XXXXXXXX
func confirmationNumber(day time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "SC-" + day.Format("20060102") + "-" + suffix
}

// Cancel abandons an unconfirmed transaction. Cancelling twice is a no-op.
func (s *CheckoutService) Cancel(ctx context.Context, id string) (tx *entities.ShippingTransaction, err error) {
	ctx, span := s.start(ctx, "Checkout.Cancel", id)
	defer func() { finishSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err = s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch tx.Status {
	case entities.StatusConfirmed:
		return nil, apperrors.New(apperrors.CodeTransactionConfirmed, "confirmed bookings cannot be cancelled")
	case entities.StatusCancelled:
		return tx, nil
	}

	tx.Status = entities.StatusCancelled
	if err := s.save(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("transaction cancelled", zap.String("transaction_id", id), zap.String("step", tx.Step.String()))
	s.publish(events.TransactionCancelledEvent, id, events.TransactionCancelled{TransactionID: id, Step: tx.Step.String()})
	return tx, nil
}

// VerifyReceipt checks the token and that it still matches a confirmed booking
func (s *CheckoutService) VerifyReceipt(ctx context.Context, token string) (claims *receipt.Claims, err error) {
	ctx, span := s.tracer.Start(ctx, "Checkout.VerifyReceipt")
	defer func() { finishSpan(span, err) }()

	if s.receipts == nil {
		return nil, apperrors.New(apperrors.CodeReceiptInvalid, "receipts are not enabled")
	}
	verified, err := s.receipts.Verify(token)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.Get(ctx, verified.TransactionID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return nil, apperrors.New(apperrors.CodeReceiptInvalid, "receipt refers to an unknown booking")
		}
		return nil, err
	}
	if !tx.IsConfirmed() || tx.ConfirmationNumber != verified.ConfirmationNumber {
		return nil, apperrors.New(apperrors.CodeReceiptInvalid, "receipt does not match the booking")
	}
	return &verified, nil
}

func (s *CheckoutService) start(ctx context.Context, name, id string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("transaction.id", id)))
}

// loadOpen returns the transaction if it may still be edited
func (s *CheckoutService) loadOpen(ctx context.Context, id string) (*entities.ShippingTransaction, error) {
	tx, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch tx.Status {
	case entities.StatusConfirmed:
		return nil, apperrors.WithMetadata(apperrors.CodeTransactionConfirmed, "transaction is already confirmed",
			map[string]string{"confirmation_number": tx.ConfirmationNumber})
	case entities.StatusCancelled:
		return nil, apperrors.New(apperrors.CodeTransactionCancelled, "transaction was cancelled")
	}
	return tx, nil
}

func (s *CheckoutService) save(ctx context.Context, tx *entities.ShippingTransaction) error {
	tx.Touch(s.now())
	if err := s.repo.Save(ctx, tx); err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", tx.ID, err)
	}
	return nil
}

// replaceShipment stores shipment and drops pricing when it changes the price
func (s *CheckoutService) replaceShipment(tx *entities.ShippingTransaction, shipment entities.Shipment) bool {
	reset := tx.Quote != nil && pricingChanged(tx.Shipment, shipment)
	tx.Shipment = shipment
	if reset {
		tx.ClearPricing()
	}
	return reset
}

func (s *CheckoutService) ruleContext(now time.Time) domainservices.RuleContext {
	return domainservices.RuleContext{Now: now, Calendar: s.calendar}
}

func (s *CheckoutService) publish(eventType, id string, data interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.AppendEvent(id, events.NewEvent(eventType, id, data, s.now())); err != nil {
		s.logger.Warn("failed to record event",
			zap.String("transaction_id", id),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

var decimalComparer = cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) })

// pricingChanged reports whether anything the rate calculator reads differs
func pricingChanged(before, after entities.Shipment) bool {
	a := entities.Shipment{Origin: locationOnly(before.Origin), Destination: locationOnly(before.Destination), Package: before.Package}
	b := entities.Shipment{Origin: locationOnly(after.Origin), Destination: locationOnly(after.Destination), Package: after.Package}
	return !cmp.Equal(a, b, decimalComparer, cmpopts.EquateEmpty())
}

func needsFreightPickup(tx *entities.ShippingTransaction) bool {
	if option, ok := tx.SelectedOption(); ok {
		return option.IsFreight()
	}
	return tx.Shipment.Package.IsFreightType()
}

func slotOffered(slots []entities.TimeSlot, id string) bool {
	for _, slot := range slots {
		if slot.ID == id {
			return true
		}
	}
	return false
}

// keyedMutex serializes work per transaction id
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the lock for key and returns its release
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

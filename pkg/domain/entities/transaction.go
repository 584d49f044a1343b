package entities

import (
	"encoding/json"
	"fmt"
	"time"
)

// Step represents a page of the checkout wizard
type Step int

const (
	StepShipment Step = iota
	StepPricing
	StepPayment
	StepPickup
	StepReview
	StepConfirmation
)

// String method for Step enum
func (s Step) String() string {
	switch s {
	case StepShipment:
		return "shipment"
	case StepPricing:
		return "pricing"
	case StepPayment:
		return "payment"
	case StepPickup:
		return "pickup"
	case StepReview:
		return "review"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// ParseStep converts a step name back into a Step
func ParseStep(value string) (Step, error) {
	for s := StepShipment; s <= StepConfirmation; s++ {
		if s.String() == value {
			return s, nil
		}
	}
	return StepShipment, fmt.Errorf("unknown step: %q", value)
}

// MarshalText encodes the step by name
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a step name
func (s *Step) UnmarshalText(text []byte) error {
	parsed, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TransactionStatus represents the lifecycle state of a transaction
type TransactionStatus string

const (
	StatusDraft     TransactionStatus = "draft"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusCancelled TransactionStatus = "cancelled"
)

// ShippingTransaction tracks a single shipment booking through the wizard
type ShippingTransaction struct {
	ID                 string            `json:"id"`
	Status             TransactionStatus `json:"status"`
	Step               Step              `json:"step"`
	Shipment           Shipment          `json:"shipment"`
	Quote              *Quote            `json:"quote,omitempty"`
	SelectedOptionID   string            `json:"selectedOptionId,omitempty"`
	Payment            *PaymentInfo      `json:"payment,omitempty"`
	Billing            *BillingInfo      `json:"billing,omitempty"`
	Pickup             *PickupDetails    `json:"pickup,omitempty"`
	ConfirmationNumber string            `json:"confirmationNumber,omitempty"`
	ReceiptToken       string            `json:"receiptToken,omitempty"`
	PresetID           string            `json:"presetId,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
	ConfirmedAt        *time.Time        `json:"confirmedAt,omitempty"`
}

// NewShippingTransaction creates a draft transaction at the first step
func NewShippingTransaction(id string, now time.Time) (*ShippingTransaction, error) {
	if id == "" {
		return nil, fmt.Errorf("transaction id cannot be empty")
	}
	if now.IsZero() {
		return nil, fmt.Errorf("creation time cannot be zero")
	}
	return &ShippingTransaction{
		ID:        id,
		Status:    StatusDraft,
		Step:      StepShipment,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// SelectedOption returns the chosen pricing option, if any
func (t *ShippingTransaction) SelectedOption() (*PricingOption, bool) {
	if t.SelectedOptionID == "" {
		return nil, false
	}
	return t.Quote.Option(t.SelectedOptionID)
}

// IsConfirmed reports whether the booking has been confirmed
func (t *ShippingTransaction) IsConfirmed() bool {
	return t.Status == StatusConfirmed
}

// IsOpen reports whether the transaction may still be edited
func (t *ShippingTransaction) IsOpen() bool {
	return t.Status == StatusDraft
}

// Reached reports whether the wizard has progressed to at least step
func (t *ShippingTransaction) Reached(step Step) bool {
	return t.Step >= step
}

// AdvanceTo moves the wizard forward; it never moves backwards
func (t *ShippingTransaction) AdvanceTo(step Step) {
	if step > t.Step {
		t.Step = step
	}
}

// ClearPricing drops the quote and everything that depends on the quoted price
func (t *ShippingTransaction) ClearPricing() {
	t.Quote = nil
	t.SelectedOptionID = ""
	if t.Step > StepPricing {
		t.Step = StepPricing
	}
}

// Touch records a modification
func (t *ShippingTransaction) Touch(now time.Time) {
	t.UpdatedAt = now.UTC()
}

// Clone returns a deep copy of the transaction
func (t *ShippingTransaction) Clone() (*ShippingTransaction, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction %s: %w", t.ID, err)
	}
	var clone ShippingTransaction
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("failed to decode transaction %s: %w", t.ID, err)
	}
	clone.SetAccountPINHash(t.AccountPINHash())
	return &clone, nil
}

// AccountPINHash returns the stored corporate account PIN hash, if any
func (t *ShippingTransaction) AccountPINHash() string {
	if t.Payment == nil || t.Payment.CorporateAccount == nil {
		return ""
	}
	return t.Payment.CorporateAccount.PINHash
}

// SetAccountPINHash restores a PIN hash kept outside the JSON record.
// It is a no-op when the transaction has no corporate account payment.
func (t *ShippingTransaction) SetAccountPINHash(hash string) {
	if t.Payment == nil || t.Payment.CorporateAccount == nil {
		return
	}
	t.Payment.CorporateAccount.PINHash = hash
}

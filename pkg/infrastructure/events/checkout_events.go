package events

const (
	TransactionCreatedEvent   = "transaction.created"
	TransactionDeletedEvent   = "transaction.deleted"
	TransactionCancelledEvent = "transaction.cancelled"
	TransactionConfirmedEvent = "transaction.confirmed"
	TransactionReviewedEvent  = "transaction.reviewed"

	DraftSavedEvent    = "draft.saved"
	ShipmentSavedEvent = "shipment.saved"
	PresetAppliedEvent = "preset.applied"

	QuoteIssuedEvent    = "quote.issued"
	OptionSelectedEvent = "option.selected"

	PaymentSubmittedEvent = "payment.submitted"
	PickupScheduledEvent  = "pickup.scheduled"
)

type TransactionCreated struct {
	TransactionID string `json:"transaction_id"`
}

type TransactionDeleted struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

type TransactionCancelled struct {
	TransactionID string `json:"transaction_id"`
	Step          string `json:"step"`
}

type TransactionConfirmed struct {
	TransactionID      string `json:"transaction_id"`
	ConfirmationNumber string `json:"confirmation_number"`
	Total              string `json:"total"`
	Currency           string `json:"currency"`
}

type TransactionReviewed struct {
	TransactionID string `json:"transaction_id"`
	Errors        int    `json:"errors"`
	Warnings      int    `json:"warnings"`
}

type DraftSaved struct {
	TransactionID string `json:"transaction_id"`
	Issues        int    `json:"issues"`
}

type ShipmentSaved struct {
	TransactionID string `json:"transaction_id"`
	PricingReset  bool   `json:"pricing_reset"`
}

type PresetApplied struct {
	TransactionID string `json:"transaction_id"`
	PresetID      string `json:"preset_id"`
}

type QuoteIssued struct {
	TransactionID string `json:"transaction_id,omitempty"`
	QuoteID       string `json:"quote_id"`
	Options       int    `json:"options"`
	Cached        bool   `json:"cached"`
}

type OptionSelected struct {
	TransactionID string `json:"transaction_id"`
	OptionID      string `json:"option_id"`
	Total         string `json:"total"`
}

type PaymentSubmitted struct {
	TransactionID string `json:"transaction_id"`
	Method        string `json:"method"`
	Warnings      int    `json:"warnings"`
}

type PickupScheduled struct {
	TransactionID string `json:"transaction_id"`
	Date          string `json:"date"`
	SlotID        string `json:"slot_id"`
}

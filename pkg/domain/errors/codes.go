// Package errors provides coded domain errors for the checkout service.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeValidationFailed Code = "VALIDATION_FAILED"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// Wizard errors
	CodeStepOutOfOrder       Code = "STEP_OUT_OF_ORDER"
	CodeTransactionConfirmed Code = "TRANSACTION_CONFIRMED"
	CodeTransactionCancelled Code = "TRANSACTION_CANCELLED"

	// Pricing errors
	CodeQuoteExpired      Code = "QUOTE_EXPIRED"
	CodeOptionNotFound    Code = "OPTION_NOT_FOUND"
	CodeOptionNotEligible Code = "OPTION_NOT_ELIGIBLE"
	CodeNoServiceOptions  Code = "NO_SERVICE_OPTIONS"

	// Pickup errors
	CodePickupSlotUnavailable Code = "PICKUP_SLOT_UNAVAILABLE"

	// Preset errors
	CodePresetNotFound Code = "PRESET_NOT_FOUND"

	// Receipt errors
	CodeReceiptInvalid Code = "RECEIPT_INVALID"
	CodeReceiptExpired Code = "RECEIPT_EXPIRED"

	// CodeInternal hides unexpected failures from callers.
	CodeInternal Code = "INTERNAL"
)

// HTTPStatus maps the code to the HTTP status returned by the API.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeValidationFailed, CodeOptionNotEligible, CodeNoServiceOptions:
		return http.StatusUnprocessableEntity
	case CodeNotFound, CodeOptionNotFound, CodePresetNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeStepOutOfOrder, CodeTransactionConfirmed,
		CodeTransactionCancelled, CodePickupSlotUnavailable:
		return http.StatusConflict
	case CodeQuoteExpired:
		return http.StatusGone
	case CodeReceiptInvalid, CodeReceiptExpired:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Package dto holds the request and response shapes of the checkout application services.
package dto

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// StepResult is a saved transaction together with the non-blocking findings of the step
type StepResult struct {
	Transaction *entities.ShippingTransaction `json:"transaction"`
	Validation  validation.Result             `json:"validation"`
}

// PaymentRequest submits the payment step
type PaymentRequest struct {
	Payment entities.PaymentInfo `json:"payment"`
	Billing entities.BillingInfo `json:"billing"`
}

// SelectOptionRequest chooses a quoted option
type SelectOptionRequest struct {
	OptionID string `json:"optionId"`
}

// QuoteTransactionRequest prices the transaction's shipment
type QuoteTransactionRequest struct {
	ShipDate string `json:"shipDate,omitempty"`
}

// ReviewSummary is everything the customer confirms on the review step
type ReviewSummary struct {
	TransactionID    string                  `json:"transactionId"`
	Status           string                  `json:"status"`
	Step             string                  `json:"step"`
	Shipment         entities.Shipment       `json:"shipment"`
	Option           *entities.PricingOption `json:"option,omitempty"`
	QuoteExpiresAt   *time.Time              `json:"quoteExpiresAt,omitempty"`
	PaymentMethod    entities.PaymentMethod  `json:"paymentMethod,omitempty"`
	PaymentReference string                  `json:"paymentReference,omitempty"`
	BillingCompany   string                  `json:"billingCompany,omitempty"`
	BillingAddress   *entities.Address       `json:"billingAddress,omitempty"`
	Pickup           *entities.PickupDetails `json:"pickup,omitempty"`
	Total            decimal.Decimal         `json:"total"`
	Currency         string                  `json:"currency,omitempty"`
	Validation       validation.Result       `json:"validation"`
	CanConfirm       bool                    `json:"canConfirm"`
}

// Confirmation is the outcome of a confirmed booking
type Confirmation struct {
	Transaction        *entities.ShippingTransaction `json:"transaction"`
	ConfirmationNumber string                        `json:"confirmationNumber"`
	ReceiptToken       string                        `json:"receiptToken,omitempty"`
}

// PaymentReference describes the payment without exposing account numbers in full
func PaymentReference(p *entities.PaymentInfo) string {
	if p == nil {
		return ""
	}
	switch p.Method {
	case entities.PaymentPurchaseOrder:
		if p.PurchaseOrder != nil {
			return "PO " + p.PurchaseOrder.PONumber
		}
	case entities.PaymentBillOfLading:
		if p.BillOfLading != nil {
			return p.BillOfLading.BOLNumber
		}
	case entities.PaymentThirdParty:
		if p.ThirdParty != nil {
			return p.ThirdParty.CompanyName + " " + MaskAccount(p.ThirdParty.AccountNumber)
		}
	case entities.PaymentNetTerms:
		if p.NetTerms != nil {
			return "Net " + strconv.Itoa(p.NetTerms.PeriodDays)
		}
	case entities.PaymentCorporateAccount:
		if p.CorporateAccount != nil {
			return "Account " + MaskAccount(p.CorporateAccount.AccountNumber)
		}
	}
	return p.Reference
}

// MaskAccount keeps the last four characters
func MaskAccount(account string) string {
	account = strings.TrimSpace(account)
	if len(account) <= 4 {
		return account
	}
	return strings.Repeat("*", len(account)-4) + account[len(account)-4:]
}

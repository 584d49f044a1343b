package services

import (
	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// ValidateTransaction runs every section validator that has data plus the
// cross-section rules. Missing sections are reported as required.
func ValidateTransaction(tx *entities.ShippingTransaction, rules *RuleSet, ctx RuleContext) validation.Result {
	var result validation.Result
	if tx == nil {
		return result
	}

	result.Merge(ValidateShipment(tx.Shipment).Prefixed("shipment"))

	switch {
	case tx.Quote == nil:
		result.Errorf("quote", validation.CodeRequired, "A pricing quote is required")
	case tx.SelectedOptionID == "":
		result.Errorf("selectedOptionId", validation.CodeRequired, "A shipping option must be selected")
	default:
		if _, ok := tx.SelectedOption(); !ok {
			result.Errorf("selectedOptionId", validation.CodeInvalidChoice, "Selected option is not part of the quote")
		}
	}

	if tx.Payment == nil {
		result.Errorf("payment", validation.CodeRequired, "Payment information is required")
	} else {
		result.Merge(ValidatePayment(*tx.Payment, ctx.Now.In(ctx.location())).Prefixed("payment"))
	}

	if tx.Billing == nil {
		result.Errorf("billing", validation.CodeRequired, "Billing information is required")
	} else {
		result.Merge(ValidateBilling(*tx.Billing, &tx.Shipment.Origin).Prefixed("billing"))
	}

	if tx.Pickup == nil {
		result.Errorf("pickup", validation.CodeRequired, "A pickup must be scheduled")
	} else if ctx.Calendar != nil {
		result.Merge(ValidatePickup(*tx.Pickup, ctx.Calendar, ctx.Now).Prefixed("pickup"))
	}

	if rules != nil {
		result.Merge(rules.Without(SectionBilling).Evaluate(tx, ctx))
	}
	return result
}

package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	apperrors "github.com/vsinha/shipcheckout/pkg/domain/errors"
	domainservices "github.com/vsinha/shipcheckout/pkg/domain/services"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// Sections that can be validated on their own
const (
	ValidateShipmentSection = "shipment"
	ValidateBillingSection  = "billing"
	ValidatePaymentSection  = "payment"
	ValidatePickupSection   = "pickup"
)

// ValidatableSections lists the accepted section names
var ValidatableSections = []string{
	ValidateShipmentSection, ValidateBillingSection, ValidatePaymentSection, ValidatePickupSection,
}

// BillingSection is the billing payload, optionally with the origin it may copy
type BillingSection struct {
	Billing entities.BillingInfo `json:"billing"`
	Origin  *entities.Address    `json:"origin,omitempty"`
}

// SectionValidator runs one section's validators and rules against a JSON payload
type SectionValidator struct {
	Calendar *domainservices.PickupCalendar
	Now      func() time.Time
}

// Validate decodes payload as the named section and validates it. Field paths
// are prefixed with the section name.
func (v SectionValidator) Validate(section string, payload []byte) (validation.Result, error) {
	calendar := v.Calendar
	if calendar == nil {
		calendar = domainservices.NewPickupCalendar(time.UTC)
	}
	now := clockOrNow(v.Now)()

	section = strings.ToLower(strings.TrimSpace(section))
	var result validation.Result
	switch section {
	case ValidateShipmentSection:
		var shipment entities.Shipment
		if err := decodeSection(payload, &shipment); err != nil {
			return result, err
		}
		result = domainservices.ValidateShipment(shipment)
	case ValidateBillingSection:
		var body BillingSection
		if err := decodeSection(payload, &body); err != nil {
			return result, err
		}
		result = domainservices.ValidateBilling(body.Billing, body.Origin)
	case ValidatePaymentSection:
		var payment entities.PaymentInfo
		if err := decodeSection(payload, &payment); err != nil {
			return result, err
		}
		result = domainservices.ValidatePayment(payment, now.In(calendar.Location))
	case ValidatePickupSection:
		var pickup entities.PickupDetails
		if err := decodeSection(payload, &pickup); err != nil {
			return result, err
		}
		result = domainservices.ValidatePickup(pickup, calendar, now)
	default:
		return result, apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("unknown section %q", section),
			map[string]string{"sections": strings.Join(ValidatableSections, ",")})
	}
	return result.Prefixed(section), nil
}

func decodeSection(payload []byte, target any) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return apperrors.New(apperrors.CodeInvalidArgument, "request body is empty")
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "request body is not valid JSON for this section", err)
	}
	return nil
}

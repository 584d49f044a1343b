package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceCategory groups carrier services by transport mode
type ServiceCategory string

const (
	CategoryGround  ServiceCategory = "ground"
	CategoryAir     ServiceCategory = "air"
	CategoryFreight ServiceCategory = "freight"
)

// ServiceCategories lists every service category
var ServiceCategories = []ServiceCategory{CategoryGround, CategoryAir, CategoryFreight}

// Option tags
const (
	TagCheapest = "cheapest"
	TagFastest  = "fastest"
)

// Fee is a named accessorial charge
type Fee struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Charges is the price breakdown of a pricing option
type Charges struct {
	BaseRate      decimal.Decimal `json:"baseRate"`
	FuelSurcharge decimal.Decimal `json:"fuelSurcharge"`
	Insurance     decimal.Decimal `json:"insurance"`
	Accessorials  []Fee           `json:"accessorials,omitempty"`
	Total         decimal.Decimal `json:"total"`
}

// AccessorialTotal sums the accessorial fees
func (c Charges) AccessorialTotal() decimal.Decimal {
	total := decimal.Zero
	for _, fee := range c.Accessorials {
		total = total.Add(fee.Amount)
	}
	return total
}

// PricingOption is one carrier service offered for a shipment
type PricingOption struct {
	ID                string          `json:"id"`
	Category          ServiceCategory `json:"category"`
	ServiceCode       string          `json:"serviceCode"`
	ServiceName       string          `json:"serviceName"`
	Carrier           string          `json:"carrier"`
	Charges           Charges         `json:"charges"`
	Currency          string          `json:"currency"`
	BillableWeightLbs decimal.Decimal `json:"billableWeightLbs"`
	Zone              int             `json:"zone"`
	TransitDays       int             `json:"transitDays"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
	Features          []string        `json:"features,omitempty"`
	Tags              []string        `json:"tags,omitempty"`
}

// IsFreight reports whether the option moves as freight
func (o PricingOption) IsFreight() bool {
	return o.Category == CategoryFreight
}

// HasTag reports whether the option carries the tag
func (o PricingOption) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Quote is a priced set of options for a shipment, valid until ExpiresAt
type Quote struct {
	ID        string          `json:"id"`
	Options   []PricingOption `json:"options"`
	ShipDate  time.Time       `json:"shipDate"`
	QuotedAt  time.Time       `json:"quotedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Option returns the option with the given id
func (q *Quote) Option(id string) (*PricingOption, bool) {
	if q == nil {
		return nil, false
	}
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// Expired reports whether the quote can no longer be booked at now
func (q *Quote) Expired(now time.Time) bool {
	return q == nil || !now.Before(q.ExpiresAt)
}

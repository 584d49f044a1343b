package entities

import "github.com/shopspring/decimal"

// RateEntry is one row of the carrier rate table
type RateEntry struct {
	ServiceCode  string
	Category     ServiceCategory
	Carrier      string
	ServiceName  string
	TransitDays  int
	MinCharge    decimal.Decimal
	RatePerLb    decimal.Decimal
	ZoneFactor   decimal.Decimal
	FuelPct      decimal.Decimal
	MaxWeightLbs decimal.Decimal
	DimDivisor   int
	Features     []string
}

// IsParcel reports whether the service moves individual boxes
func (r RateEntry) IsParcel() bool {
	return r.Category == CategoryGround || r.Category == CategoryAir
}

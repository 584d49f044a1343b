package entities

import (
	"github.com/shopspring/decimal"
)

// PackageType represents the physical packaging of a shipment
type PackageType string

const (
	PackageEnvelope PackageType = "envelope"
	PackageSmall    PackageType = "small"
	PackageMedium   PackageType = "medium"
	PackageLarge    PackageType = "large"
	PackagePallet   PackageType = "pallet"
	PackageCrate    PackageType = "crate"
	PackageMultiple PackageType = "multiple"
)

// PackageTypes lists every accepted package type
var PackageTypes = []PackageType{
	PackageEnvelope, PackageSmall, PackageMedium, PackageLarge,
	PackagePallet, PackageCrate, PackageMultiple,
}

// WeightUnit is the unit a weight was entered in
type WeightUnit string

const (
	Pounds    WeightUnit = "lbs"
	Kilograms WeightUnit = "kg"
)

// DimensionUnit is the unit dimensions were entered in
type DimensionUnit string

const (
	Inches      DimensionUnit = "in"
	Centimeters DimensionUnit = "cm"
)

// SpecialHandling flags a handling requirement that affects pricing or pickup
type SpecialHandling string

const (
	HandlingFragile               SpecialHandling = "fragile"
	HandlingThisSideUp            SpecialHandling = "this_side_up"
	HandlingTemperatureControlled SpecialHandling = "temperature_controlled"
	HandlingHazmat                SpecialHandling = "hazmat"
	HandlingWhiteGlove            SpecialHandling = "white_glove"
	HandlingLiftgate              SpecialHandling = "liftgate"
	HandlingInsideDelivery        SpecialHandling = "inside_delivery"
)

// SpecialHandlings lists every accepted handling flag
var SpecialHandlings = []SpecialHandling{
	HandlingFragile, HandlingThisSideUp, HandlingTemperatureControlled, HandlingHazmat,
	HandlingWhiteGlove, HandlingLiftgate, HandlingInsideDelivery,
}

// ContentsCategory classifies what is being shipped
type ContentsCategory string

const (
	ContentsElectronics ContentsCategory = "electronics"
	ContentsAutomotive  ContentsCategory = "automotive"
	ContentsIndustrial  ContentsCategory = "industrial"
	ContentsDocuments   ContentsCategory = "documents"
	ContentsFood        ContentsCategory = "food"
	ContentsMedical     ContentsCategory = "medical"
	ContentsOther       ContentsCategory = "other"
)

// ContentsCategories lists every accepted contents category
var ContentsCategories = []ContentsCategory{
	ContentsElectronics, ContentsAutomotive, ContentsIndustrial, ContentsDocuments,
	ContentsFood, ContentsMedical, ContentsOther,
}

var (
	poundsPerKilogram = decimal.RequireFromString("2.20462")
	inchesPerCm       = decimal.RequireFromString("0.393701")
)

// Weight is a value with its unit
type Weight struct {
	Value decimal.Decimal `json:"value"`
	Unit  WeightUnit      `json:"unit"`
}

// Dimensions are the outer measurements of a single piece
type Dimensions struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
	Unit   DimensionUnit   `json:"unit"`
}

// PackageInfo describes what is being shipped
type PackageInfo struct {
	Type             PackageType       `json:"type"`
	Dimensions       Dimensions        `json:"dimensions"`
	Weight           Weight            `json:"weight"`
	DeclaredValue    decimal.Decimal   `json:"declaredValue"`
	Currency         string            `json:"currency"`
	Contents         string            `json:"contents"`
	ContentsCategory ContentsCategory  `json:"contentsCategory,omitempty"`
	SpecialHandling  []SpecialHandling `json:"specialHandling,omitempty"`
	Quantity         int               `json:"quantity"`
}

// WeightLbs returns the entered weight of one piece in pounds
func (p PackageInfo) WeightLbs() decimal.Decimal {
	if p.Weight.Unit == Kilograms {
		return p.Weight.Value.Mul(poundsPerKilogram)
	}
	return p.Weight.Value
}

// TotalWeightLbs returns the weight of all pieces in pounds
func (p PackageInfo) TotalWeightLbs() decimal.Decimal {
	return p.WeightLbs().Mul(decimal.NewFromInt(int64(p.Pieces())))
}

// DimensionsIn returns length, width and height in inches
func (p PackageInfo) DimensionsIn() (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	d := p.Dimensions
	if d.Unit == Centimeters {
		return d.Length.Mul(inchesPerCm), d.Width.Mul(inchesPerCm), d.Height.Mul(inchesPerCm)
	}
	return d.Length, d.Width, d.Height
}

// DimensionalWeightLbs returns the dimensional weight of all pieces for the given divisor.
// A divisor of zero or less disables dimensional weight.
func (p PackageInfo) DimensionalWeightLbs(divisor int) decimal.Decimal {
	if divisor <= 0 {
		return decimal.Zero
	}
	l, w, h := p.DimensionsIn()
	perPiece := l.Mul(w).Mul(h).Div(decimal.NewFromInt(int64(divisor)))
	return perPiece.Mul(decimal.NewFromInt(int64(p.Pieces())))
}

// HasHandling reports whether the package carries the handling flag
func (p PackageInfo) HasHandling(h SpecialHandling) bool {
	for _, existing := range p.SpecialHandling {
		if existing == h {
			return true
		}
	}
	return false
}

// IsFreightType reports whether the packaging can only move as freight
func (p PackageInfo) IsFreightType() bool {
	return p.Type == PackagePallet || p.Type == PackageCrate
}

// Pieces returns the number of identical pieces, at least one
func (p PackageInfo) Pieces() int {
	if p.Quantity < 1 {
		return 1
	}
	return p.Quantity
}

// Shipment is the origin, destination and package for one booking
type Shipment struct {
	Origin      Address     `json:"origin"`
	Destination Address     `json:"destination"`
	Package     PackageInfo `json:"package"`
}

// IsCrossBorder reports whether origin and destination are in different countries
func (s Shipment) IsCrossBorder() bool {
	return s.Origin.Country != "" && s.Destination.Country != "" && s.Origin.Country != s.Destination.Country
}

// HasResidentialStop reports whether either end is a residence
func (s Shipment) HasResidentialStop() bool {
	return s.Origin.IsResidential() || s.Destination.IsResidential()
}

package services

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// Shipment limits
var (
	MaxEnvelopeWeightLbs = decimal.NewFromInt(1)
	MaxParcelWeightLbs   = decimal.NewFromInt(150)
	MaxShipmentWeightLbs = decimal.NewFromInt(20000)
	MaxDimensionIn       = decimal.NewFromInt(120)
	MaxDeclaredValue     = decimal.NewFromInt(250000)
)

// SupportedCurrencies lists the currencies declared values may use
var SupportedCurrencies = []string{"USD", "CAD", "MXN"}

// ValidateShipment checks origin, destination and package; field paths are
// relative to the shipment ("origin.city", "package.weight.value")
func ValidateShipment(shipment entities.Shipment) validation.Result {
	var result validation.Result
	c := validation.NewChecker("", &result)

	shipperRules := ContactRules{RequireCompany: true, RequireEmail: true}
	ValidateAddress(c.Nested("origin"), shipment.Origin, shipperRules)
	// Residential consignees have no company to name
	consigneeRules := ContactRules{RequireCompany: !shipment.Destination.IsResidential()}
	ValidateAddress(c.Nested("destination"), shipment.Destination, consigneeRules)
	ValidatePackage(c.Nested("package"), shipment.Package)

	if !shipment.Origin.IsZero() && shipment.Origin.SameLocation(shipment.Destination) {
		result.Add(validation.Issue{
			Field:    "destination",
			Code:     validation.CodeRule,
			Message:  "Destination must be different from the origin",
			Severity: validation.SeverityError,
			Rule:     "distinct-endpoints",
		})
	}

	return result
}

// ValidatePackage checks the package description under the checker's prefix
func ValidatePackage(c *validation.Checker, pkg entities.PackageInfo) {
	typeOK := validation.OneOf(c, "type", pkg.Type, "Package type", entities.PackageTypes)

	if validation.OneOf(c.Nested("weight"), "unit", pkg.Weight.Unit, "Weight unit", []entities.WeightUnit{entities.Pounds, entities.Kilograms}) &&
		c.Positive("weight.value", pkg.Weight.Value, "Weight") {
		lbs := pkg.WeightLbs()
		switch {
		case lbs.GreaterThan(MaxShipmentWeightLbs):
			c.Errorf("weight.value", validation.CodeOutOfRange, "Weight cannot exceed %s lbs", MaxShipmentWeightLbs)
		case pkg.TotalWeightLbs().GreaterThan(MaxShipmentWeightLbs):
			c.Errorf("weight.value", validation.CodeOutOfRange, "Total weight of %d pieces (%s lbs) cannot exceed %s lbs",
				pkg.Pieces(), pkg.TotalWeightLbs().Round(1), MaxShipmentWeightLbs)
		case typeOK && pkg.Type == entities.PackageEnvelope && lbs.GreaterThan(MaxEnvelopeWeightLbs):
			c.Errorf("weight.value", validation.CodeOutOfRange, "Envelopes cannot exceed %s lb", MaxEnvelopeWeightLbs)
		case typeOK && isParcelBox(pkg.Type) && lbs.GreaterThan(MaxParcelWeightLbs):
			c.Errorf("weight.value", validation.CodeOutOfRange,
				"%s packages cannot exceed %s lbs; ship heavier loads as pallet or crate", pkg.Type, MaxParcelWeightLbs)
		}
	}

	if typeOK && pkg.Type != entities.PackageEnvelope {
		validatePackageDimensions(c.Nested("dimensions"), pkg)
	}

	c.Range("declaredValue", pkg.DeclaredValue, decimal.Zero, MaxDeclaredValue, "Declared value")
	validation.OneOf(c, "currency", pkg.Currency, "Currency", SupportedCurrencies)
	c.RequiredLength("contents", pkg.Contents, "Contents description", 3, 200)
	if pkg.ContentsCategory != "" {
		validation.OneOf(c, "contentsCategory", pkg.ContentsCategory, "Contents category", entities.ContentsCategories)
	}
	c.IntRange("quantity", pkg.Quantity, 1, 99, "Quantity")
	if typeOK && pkg.Type != entities.PackageMultiple && pkg.Quantity > 1 && !pkg.IsFreightType() {
		c.Warnf("quantity", validation.CodeRule, "Use package type \"multiple\" when shipping more than one %s package", pkg.Type)
	}

	validation.EachOneOf(c, "specialHandling", pkg.SpecialHandling, "Special handling", entities.SpecialHandlings)
	if pkg.Type == entities.PackageEnvelope && pkg.HasHandling(entities.HandlingHazmat) {
		c.Errorf("specialHandling", validation.CodeRule, "Hazardous materials cannot ship in an envelope")
	}
	if pkg.HasHandling(entities.HandlingHazmat) && pkg.ContentsCategory == entities.ContentsDocuments {
		c.Warnf("contentsCategory", validation.CodeRule, "Documents are rarely hazardous; check the hazmat flag")
	}
}

func validatePackageDimensions(c *validation.Checker, pkg entities.PackageInfo) {
	if !validation.OneOf(c, "unit", pkg.Dimensions.Unit, "Dimension unit", []entities.DimensionUnit{entities.Inches, entities.Centimeters}) {
		return
	}
	l, w, h := pkg.DimensionsIn()
	for _, dim := range []struct {
		field string
		label string
		value decimal.Decimal
		raw   decimal.Decimal
	}{
		{"length", "Length", l, pkg.Dimensions.Length},
		{"width", "Width", w, pkg.Dimensions.Width},
		{"height", "Height", h, pkg.Dimensions.Height},
	} {
		if !c.Positive(dim.field, dim.raw, dim.label) {
			continue
		}
		if dim.value.GreaterThan(MaxDimensionIn) {
			c.Errorf(dim.field, validation.CodeOutOfRange, "%s cannot exceed %s in", dim.label, MaxDimensionIn)
		}
	}
}

func isParcelBox(t entities.PackageType) bool {
	return t == entities.PackageSmall || t == entities.PackageMedium || t == entities.PackageLarge
}

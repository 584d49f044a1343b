package services

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
)

// QuoteCurrency is the currency every rate table amount is expressed in
const QuoteCurrency = "USD"

// FreightWeightThresholdLbs makes any shipment at least this heavy eligible for freight
var FreightWeightThresholdLbs = decimal.NewFromInt(100)

// Accessorial fee codes
const (
	FeeResidential    = "residential"
	FeeLiftgate       = "liftgate"
	FeeHazmat         = "hazmat"
	FeeTemperature    = "temperature_controlled"
	FeeInsideDelivery = "inside_delivery"
	FeeWhiteGlove     = "white_glove"
	FeeFragile        = "fragile"
)

var (
	residentialParcelFee  = decimal.RequireFromString("4.95")
	residentialFreightFee = decimal.RequireFromString("95.00")
	liftgateFee           = decimal.RequireFromString("85.00")
	hazmatParcelFee       = decimal.RequireFromString("45.00")
	hazmatFreightFee      = decimal.RequireFromString("75.00")
	temperatureFee        = decimal.RequireFromString("60.00")
	insideDeliveryFee     = decimal.RequireFromString("110.00")
	whiteGloveFee         = decimal.RequireFromString("150.00")
	fragileFee            = decimal.RequireFromString("8.50")

	insuranceDeductible = decimal.NewFromInt(100)
	insuranceIncrement  = decimal.NewFromInt(100)
	insuranceRate       = decimal.RequireFromString("1.10")
)

// RateCalculator prices a shipment against a rate table
type RateCalculator struct {
	Table    []entities.RateEntry
	Calendar *PickupCalendar
}

// NewRateCalculator creates a calculator over table
func NewRateCalculator(table []entities.RateEntry, calendar *PickupCalendar) *RateCalculator {
	if calendar == nil {
		calendar = NewPickupCalendar(time.UTC)
	}
	return &RateCalculator{Table: table, Calendar: calendar}
}

// BillableWeight is the greater of actual and dimensional weight per piece,
// rounded up to the next pound, times the number of pieces
func BillableWeight(pkg entities.PackageInfo, divisor int) decimal.Decimal {
	pieces := decimal.NewFromInt(int64(pkg.Pieces()))
	perPiece := pkg.WeightLbs()
	if dim := pkg.DimensionalWeightLbs(divisor).Div(pieces); dim.GreaterThan(perPiece) {
		perPiece = dim
	}
	return perPiece.Ceil().Mul(pieces)
}

// Zone estimates the distance band between origin and destination, 1 (local) to 8
func Zone(origin, destination entities.Address) int {
	if origin.Country != destination.Country {
		return 8
	}
	if origin.Country != entities.CountryUS {
		return 4
	}
	from, to := strings.TrimSpace(origin.PostalCode), strings.TrimSpace(destination.PostalCode)
	if len(from) < 3 || len(to) < 3 {
		return 4
	}
	if from[:3] == to[:3] {
		return 1
	}
	diff := int(from[0]) - int(to[0])
	if diff < 0 {
		diff = -diff
	}
	zone := 2 + diff
	if zone > 8 {
		zone = 8
	}
	return zone
}

// Eligible reports whether the service can carry the shipment
func (rc *RateCalculator) Eligible(entry entities.RateEntry, shipment entities.Shipment) bool {
	pkg := shipment.Package
	switch entry.Category {
	case entities.CategoryFreight:
		return pkg.IsFreightType() || pkg.TotalWeightLbs().GreaterThanOrEqual(FreightWeightThresholdLbs)
	case entities.CategoryAir:
		if pkg.HasHandling(entities.HandlingHazmat) {
			return false
		}
		fallthrough
	default:
		if pkg.IsFreightType() {
			return false
		}
		perPiece := BillableWeight(pkg, entry.DimDivisor).Div(decimal.NewFromInt(int64(pkg.Pieces())))
		return entry.MaxWeightLbs.IsZero() || perPiece.LessThanOrEqual(entry.MaxWeightLbs)
	}
}

// Price computes the option for one rate entry; ok is false when the service is not eligible
func (rc *RateCalculator) Price(entry entities.RateEntry, shipment entities.Shipment, shipDate time.Time) (entities.PricingOption, bool) {
	if !rc.Eligible(entry, shipment) {
		return entities.PricingOption{}, false
	}

	billable := BillableWeight(shipment.Package, entry.DimDivisor)
	zone := Zone(shipment.Origin, shipment.Destination)

	zoneMultiplier := decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(zone - 1)).Mul(entry.ZoneFactor))
	base := billable.Mul(entry.RatePerLb).Mul(zoneMultiplier)
	if base.LessThan(entry.MinCharge) {
		base = entry.MinCharge
	}
	base = base.Round(2)
	fuel := base.Mul(entry.FuelPct).Round(2)
	insurance := InsuranceCharge(shipment.Package.DeclaredValue)
	accessorials := Accessorials(entry.Category, shipment)

	charges := entities.Charges{
		BaseRate:      base,
		FuelSurcharge: fuel,
		Insurance:     insurance,
		Accessorials:  accessorials,
	}
	charges.Total = base.Add(fuel).Add(insurance).Add(charges.AccessorialTotal()).Round(2)

	features := make([]string, len(entry.Features))
	copy(features, entry.Features)

	return entities.PricingOption{
		ID:                entry.ServiceCode,
		Category:          entry.Category,
		ServiceCode:       entry.ServiceCode,
		ServiceName:       entry.ServiceName,
		Carrier:           entry.Carrier,
		Charges:           charges,
		Currency:          QuoteCurrency,
		BillableWeightLbs: billable,
		Zone:              zone,
		TransitDays:       entry.TransitDays,
		EstimatedDelivery: rc.Calendar.AddBusinessDays(shipDate, entry.TransitDays),
		Features:          features,
	}, true
}

// Options prices every eligible entry and ranks the result
func (rc *RateCalculator) Options(shipment entities.Shipment, shipDate time.Time) []entities.PricingOption {
	var options []entities.PricingOption
	for _, entry := range rc.Table {
		if option, ok := rc.Price(entry, shipment, shipDate); ok {
			options = append(options, option)
		}
	}
	RankOptions(options)
	return options
}

// RankOptions sorts by total then transit time and tags the cheapest and fastest options
func RankOptions(options []entities.PricingOption) {
	if len(options) == 0 {
		return
	}
	sort.SliceStable(options, func(i, j int) bool {
		if cmp := options[i].Charges.Total.Cmp(options[j].Charges.Total); cmp != 0 {
			return cmp < 0
		}
		if options[i].TransitDays != options[j].TransitDays {
			return options[i].TransitDays < options[j].TransitDays
		}
		return options[i].ServiceCode < options[j].ServiceCode
	})

	fastest := 0
	for i := range options {
		options[i].Tags = nil
		if options[i].TransitDays < options[fastest].TransitDays {
			fastest = i
		}
	}
	options[0].Tags = append(options[0].Tags, entities.TagCheapest)
	options[fastest].Tags = append(options[fastest].Tags, entities.TagFastest)
}

// InsuranceCharge prices declared value coverage above the included $100
func InsuranceCharge(declared decimal.Decimal) decimal.Decimal {
	if !declared.GreaterThan(insuranceDeductible) {
		return decimal.Zero
	}
	units := declared.Sub(insuranceDeductible).Div(insuranceIncrement).Ceil()
	return units.Mul(insuranceRate).Round(2)
}

// Accessorials lists the handling fees that apply to a service category
func Accessorials(category entities.ServiceCategory, shipment entities.Shipment) []entities.Fee {
	freight := category == entities.CategoryFreight
	pkg := shipment.Package
	var fees []entities.Fee

	if shipment.HasResidentialStop() {
		amount := residentialParcelFee
		if freight {
			amount = residentialFreightFee
		}
		fees = append(fees, entities.Fee{Code: FeeResidential, Description: "Residential delivery", Amount: amount})
	}
	if freight && pkg.HasHandling(entities.HandlingLiftgate) {
		fees = append(fees, entities.Fee{Code: FeeLiftgate, Description: "Liftgate service", Amount: liftgateFee})
	}
	if pkg.HasHandling(entities.HandlingHazmat) {
		amount := hazmatParcelFee
		if freight {
			amount = hazmatFreightFee
		}
		fees = append(fees, entities.Fee{Code: FeeHazmat, Description: "Hazardous materials", Amount: amount})
	}
	if pkg.HasHandling(entities.HandlingTemperatureControlled) {
		fees = append(fees, entities.Fee{Code: FeeTemperature, Description: "Temperature control", Amount: temperatureFee})
	}
	if freight && pkg.HasHandling(entities.HandlingInsideDelivery) {
		fees = append(fees, entities.Fee{Code: FeeInsideDelivery, Description: "Inside delivery", Amount: insideDeliveryFee})
	}
	if pkg.HasHandling(entities.HandlingWhiteGlove) {
		fees = append(fees, entities.Fee{Code: FeeWhiteGlove, Description: "White glove service", Amount: whiteGloveFee})
	}
	if pkg.HasHandling(entities.HandlingFragile) {
		fees = append(fees, entities.Fee{Code: FeeFragile, Description: "Fragile handling", Amount: fragileFee})
	}
	return fees
}

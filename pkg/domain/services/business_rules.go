package services

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// Section names a part of the transaction a rule is attached to
type Section string

const (
	SectionShipment Section = "shipment"
	SectionPricing  Section = "pricing"
	SectionPayment  Section = "payment"
	SectionBilling  Section = "billing"
	SectionPickup   Section = "pickup"
)

// Sections lists every section in wizard order
var Sections = []Section{SectionShipment, SectionPricing, SectionPayment, SectionBilling, SectionPickup}

// Rule names
const (
	RuleEDIDeliveryRequiresEDIFormat = "edi-delivery-requires-edi-format"
	RuleEmailDeliveryRequiresAddress = "email-delivery-requires-address"
	RuleSoleProprietorEIN            = "sole-proprietor-ein"
	RuleEntityRequiresEIN            = "entity-requires-ein"
	RuleMailingMatchesBilling        = "mailing-matches-billing"
	RuleTaxExemptCertificate         = "tax-exempt-certificate"
	RuleTaxExemptEntity              = "tax-exempt-entity"
	RuleSameAsOriginConsistency      = "same-as-origin-consistency"
	RulePOCoversTotal                = "po-covers-total"
	RulePOValidThroughPickup         = "po-valid-through-pickup"
	RuleBOLFreightOnly               = "bol-freight-only"
	RuleBOLCollectCrossBorder        = "bol-collect-cross-border"
	RuleNetTermsLargeBalance         = "net-terms-large-balance"
	RuleHazmatNoAir                  = "hazmat-no-air"
	RuleFreightResidentialLiftgate   = "freight-residential-liftgate"
	RuleLiftgateRequiresFreight      = "liftgate-requires-freight"
	RulePickupBeforeQuoteShipDate    = "pickup-before-quote-ship-date"
	RuleDeclaredValueCurrency        = "declared-value-currency"
)

// LargeBalanceThreshold is the order total above which long net terms need a credit reference
var LargeBalanceThreshold = decimal.NewFromInt(10000)

// RuleContext carries what rules need beyond the transaction itself
type RuleContext struct {
	Now      time.Time
	Calendar *PickupCalendar
}

func (rc RuleContext) location() *time.Location {
	if rc.Calendar != nil && rc.Calendar.Location != nil {
		return rc.Calendar.Location
	}
	if rc.Now.Location() != nil {
		return rc.Now.Location()
	}
	return time.UTC
}

// Rule is a cross-field business rule. Check returns findings with Field and
// Message set; the rule set stamps name, code and severity.
type Rule struct {
	Name     string
	Section  Section
	Severity validation.Severity
	Check    func(tx *entities.ShippingTransaction, ctx RuleContext) []validation.Issue
}

func (r Rule) stamp(issue validation.Issue) validation.Issue {
	issue.Rule = r.Name
	issue.Severity = r.Severity
	if issue.Code == "" {
		issue.Code = validation.CodeRule
	}
	return issue
}

// RuleSet evaluates a fixed list of rules in registration order
type RuleSet struct {
	rules []Rule
}

// NewRuleSet creates a rule set
func NewRuleSet(rules ...Rule) *RuleSet {
	return &RuleSet{rules: rules}
}

// DefaultRuleSet returns every checkout rule
func DefaultRuleSet() *RuleSet {
	rules := make([]Rule, 0, len(billingRules)+len(transactionRules))
	for _, br := range billingRules {
		rules = append(rules, br.asRule())
	}
	rules = append(rules, transactionRules...)
	return NewRuleSet(rules...)
}

// Rules returns the registered rules
func (s *RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Rule looks up a rule by name
func (s *RuleSet) Rule(name string) (Rule, bool) {
	for _, r := range s.rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Only returns a rule set restricted to the named rules
func (s *RuleSet) Only(names ...string) *RuleSet {
	var rules []Rule
	for _, r := range s.rules {
		for _, name := range names {
			if r.Name == name {
				rules = append(rules, r)
				break
			}
		}
	}
	return NewRuleSet(rules...)
}

// Without returns a rule set without the rules of the given sections
func (s *RuleSet) Without(sections ...Section) *RuleSet {
	var rules []Rule
	for _, r := range s.rules {
		skip := false
		for _, section := range sections {
			if r.Section == section {
				skip = true
				break
			}
		}
		if !skip {
			rules = append(rules, r)
		}
	}
	return NewRuleSet(rules...)
}

// Evaluate runs every rule whose section has data on the transaction
func (s *RuleSet) Evaluate(tx *entities.ShippingTransaction, ctx RuleContext) validation.Result {
	var result validation.Result
	if tx == nil {
		return result
	}
	for _, r := range s.rules {
		if !sectionPresent(tx, r.Section) {
			continue
		}
		for _, issue := range r.Check(tx, ctx) {
			result.Add(r.stamp(issue))
		}
	}
	return result
}

func sectionPresent(tx *entities.ShippingTransaction, section Section) bool {
	switch section {
	case SectionPricing:
		return tx.Quote != nil
	case SectionPayment:
		return tx.Payment != nil
	case SectionBilling:
		return tx.Billing != nil
	case SectionPickup:
		return tx.Pickup != nil
	default:
		return true
	}
}

func finding(field, format string, args ...any) []validation.Issue {
	var r validation.Result
	r.Errorf(field, "", format, args...)
	return r.Issues
}

// billingRule only needs the billing section and the shipment origin, so the
// standalone billing validator can run it too. Fields are relative to billing.
type billingRule struct {
	name     string
	severity validation.Severity
	check    func(b entities.BillingInfo, origin *entities.Address) []validation.Issue
}

func (br billingRule) stamp(issue validation.Issue) validation.Issue {
	return Rule{Name: br.name, Severity: br.severity}.stamp(issue)
}

func (br billingRule) asRule() Rule {
	return Rule{
		Name:     br.name,
		Section:  SectionBilling,
		Severity: br.severity,
		Check: func(tx *entities.ShippingTransaction, _ RuleContext) []validation.Issue {
			issues := br.check(*tx.Billing, &tx.Shipment.Origin)
			return validation.Result{Issues: issues}.Prefixed("billing").Issues
		},
	}
}

var billingRules = []billingRule{
	{
		name:     RuleEDIDeliveryRequiresEDIFormat,
		severity: validation.SeverityError,
		check: func(b entities.BillingInfo, _ *entities.Address) []validation.Issue {
			if b.Invoice.DeliveryMethod == entities.DeliveryEDI &&
				b.Invoice.Format != entities.InvoiceEDI && b.Invoice.Format != entities.InvoiceXML {
				return finding("invoice.format", "EDI delivery requires EDI or XML invoice format")
			}
			return nil
		},
	},
	{
		name:     RuleEmailDeliveryRequiresAddress,
		severity: validation.SeverityError,
		check: func(b entities.BillingInfo, _ *entities.Address) []validation.Issue {
			if b.Invoice.DeliveryMethod == entities.DeliveryEmail &&
				strings.TrimSpace(b.Invoice.InvoiceEmail) == "" &&
				strings.TrimSpace(b.AccountsPayableContact.Email) == "" {
				return finding("invoice.invoiceEmail", "Email delivery requires an invoice email or an accounts payable email")
			}
			return nil
		},
	},
	{
		name:     RuleSoleProprietorEIN,
		severity: validation.SeverityWarning,
		check: func(b entities.BillingInfo, _ *entities.Address) []validation.Issue {
			if b.Company.BusinessType == entities.BusinessSoleProprietorship && b.Company.TaxIDType == entities.TaxIDEIN {
				return finding("company.taxIdType", "Sole proprietorships usually file under an SSN rather than an EIN")
			}
			return nil
		},
	},
	{
		name:     RuleEntityRequiresEIN,
		severity: validation.SeverityError,
		check: func(b entities.BillingInfo, _ *entities.Address) []validation.Issue {
			switch b.Company.BusinessType {
			case entities.BusinessCorporation, entities.BusinessLLC, entities.BusinessPartnership:
				if b.Company.TaxIDType == entities.TaxIDSSN || b.Company.TaxIDType == entities.TaxIDITIN {
					return finding("company.taxIdType", "A %s must provide an EIN", strings.ReplaceAll(string(b.Company.BusinessType), "_", " "))
				}
			}
			return nil
		},
	},
	{
		name:     RuleMailingMatchesBilling,
		severity: validation.SeverityWarning,
		check: func(b entities.BillingInfo, origin *entities.Address) []validation.Issue {
			if b.MailingAddress == nil || b.MailingAddress.IsZero() {
				return nil
			}
			if !b.MailingAddress.SameLocation(EffectiveBillingAddress(b, origin)) {
				return finding("mailingAddress", "Mailing address differs from the billing address; invoices go to the billing address")
			}
			return nil
		},
	},
	{
		name:     RuleTaxExemptCertificate,
		severity: validation.SeverityError,
		check: func(b entities.BillingInfo, _ *entities.Address) []validation.Issue {
			if b.TaxExempt && strings.TrimSpace(b.TaxExemptCertificate) == "" {
				return finding("taxExemptCertificate", "Tax exempt accounts must provide an exemption certificate number")
			}
			return nil
		},
	},
	{
		name:     RuleTaxExemptEntity,
		severity: validation.SeverityWarning,
		check: func(b entities.BillingInfo, _ *entities.Address) []validation.Issue {
			if b.TaxExempt && b.Company.BusinessType != entities.BusinessNonProfit && b.Company.BusinessType != entities.BusinessGovernment {
				return finding("taxExempt", "Tax exemption is unusual for this business type and will be reviewed")
			}
			return nil
		},
	},
	{
		name:     RuleSameAsOriginConsistency,
		severity: validation.SeverityError,
		check: func(b entities.BillingInfo, origin *entities.Address) []validation.Issue {
			if !b.SameAsOrigin {
				return nil
			}
			if origin == nil || origin.IsZero() {
				return finding("sameAsOrigin", "Billing address cannot match the origin before the origin is entered")
			}
			if !b.BillingAddress.IsZero() && !b.BillingAddress.SameLocation(*origin) {
				return finding("billingAddress", "Billing address is marked same as origin but differs from it")
			}
			return nil
		},
	},
}

var transactionRules = []Rule{
	{
		Name:     RulePOCoversTotal,
		Section:  SectionPayment,
		Severity: validation.SeverityError,
		Check: func(tx *entities.ShippingTransaction, _ RuleContext) []validation.Issue {
			po := tx.Payment.PurchaseOrder
			option, ok := tx.SelectedOption()
			if tx.Payment.Method != entities.PaymentPurchaseOrder || po == nil || !ok {
				return nil
			}
			if po.Amount.LessThan(option.Charges.Total) {
				return finding("payment.purchaseOrder.amount", "PO amount %s does not cover the shipment total %s",
					po.Amount.StringFixed(2), option.Charges.Total.StringFixed(2))
			}
			return nil
		},
	},
	{
		Name:     RulePOValidThroughPickup,
		Section:  SectionPayment,
		Severity: validation.SeverityError,
		Check: func(tx *entities.ShippingTransaction, ctx RuleContext) []validation.Issue {
			po := tx.Payment.PurchaseOrder
			if tx.Payment.Method != entities.PaymentPurchaseOrder || po == nil || tx.Pickup == nil {
				return nil
			}
			expires, err := ParseDate(po.ExpirationDate, ctx.location())
			if err != nil {
				return nil
			}
			pickup, err := ParseDate(tx.Pickup.Date, ctx.location())
			if err != nil {
				return nil
			}
			if expires.Before(pickup) {
				return finding("payment.purchaseOrder.expirationDate", "Purchase order expires before the pickup date %s", tx.Pickup.Date)
			}
			return nil
		},
	},
	{
		Name:     RuleBOLFreightOnly,
		Section:  SectionPayment,
		Severity: validation.SeverityWarning,
		Check: func(tx *entities.ShippingTransaction, _ RuleContext) []validation.Issue {
			option, ok := tx.SelectedOption()
			if tx.Payment.Method == entities.PaymentBillOfLading && ok && !option.IsFreight() {
				return finding("payment.method", "Bill of lading payment is intended for freight services")
			}
			return nil
		},
	},
	{
		Name:     RuleBOLCollectCrossBorder,
		Section:  SectionPayment,
		Severity: validation.SeverityError,
		Check: func(tx *entities.ShippingTransaction, _ RuleContext) []validation.Issue {
			bol := tx.Payment.BillOfLading
			if tx.Payment.Method == entities.PaymentBillOfLading && bol != nil &&
				bol.FreightTerms == entities.FreightCollect && tx.Shipment.IsCrossBorder() {
				return finding("payment.billOfLading.freightTerms", "Collect freight terms are not available for cross-border shipments")
			}
			return nil
		},
	},
	{
		Name:     RuleNetTermsLargeBalance,
		Section:  SectionPayment,
		Severity: validation.SeverityWarning,
		Check: func(tx *entities.ShippingTransaction, _ RuleContext) []validation.Issue {
			terms := tx.Payment.NetTerms
			option, ok := tx.SelectedOption()
			if tx.Payment.Method != entities.PaymentNetTerms || terms == nil || !ok {
				return nil
			}
			if terms.PeriodDays >= 60 && option.Charges.Total.GreaterThan(LargeBalanceThreshold) &&
				strings.TrimSpace(terms.CreditReference) == "" {
				return finding("payment.netTerms.creditReference",
					"Net %d terms on balances over %s need a credit reference", terms.PeriodDays, LargeBalanceThreshold.String())
			}
			return nil
		},
	},
	{
		Name:     RuleHazmatNoAir,
		Section:  SectionPricing,
		Severity: validation.SeverityError,
		Check: func(tx *entities.ShippingTransaction, _ RuleContext) []validation.Issue {
			option, ok := tx.SelectedOption()
			if ok && option.Category == entities.CategoryAir && tx.Shipment.Package.HasHandling(entities.HandlingHazmat) {
				return finding("selectedOptionId", "Hazardous materials cannot ship by air")
			}
			return nil
		},
	},
	{
		Name:     RuleFreightResidentialLiftgate,
		Section:  SectionPickup,
		Severity: validation.SeverityWarning,
		Check: func(tx *entities.ShippingTransaction, _ RuleContext) []validation.Issue {
			option, ok := tx.SelectedOption()
			if !ok || !option.IsFreight() || !tx.Shipment.HasResidentialStop() {
				return nil
			}
			if tx.Shipment.Package.HasHandling(entities.HandlingLiftgate) || tx.Pickup.NeedsEquipment(entities.EquipmentLiftgate) {
				return nil
			}
			return finding("pickup.equipmentNeeds", "Freight to or from a residential address usually needs a liftgate")
		},
	},
	{
		Name:     RuleLiftgateRequiresFreight,
		Section:  SectionPickup,
		Severity: validation.SeverityWarning,
		Check: func(tx *entities.ShippingTransaction, _ RuleContext) []validation.Issue {
			option, ok := tx.SelectedOption()
			if ok && !option.IsFreight() && tx.Pickup.NeedsEquipment(entities.EquipmentLiftgate) {
				return finding("pickup.equipmentNeeds", "Liftgate service is only available with freight options")
			}
			return nil
		},
	},
	{
		Name:     RulePickupBeforeQuoteShipDate,
		Section:  SectionPickup,
		Severity: validation.SeverityError,
		Check: func(tx *entities.ShippingTransaction, ctx RuleContext) []validation.Issue {
			if tx.Quote == nil || tx.Quote.ShipDate.IsZero() {
				return nil
			}
			pickup, err := ParseDate(tx.Pickup.Date, ctx.location())
			if err != nil {
				return nil
			}
			shipDate := startOfDay(tx.Quote.ShipDate.In(ctx.location()))
			if pickup.Before(shipDate) {
				return finding("pickup.date", "Pickup date cannot be earlier than the quoted ship date %s", shipDate.Format(DateLayout))
			}
			return nil
		},
	},
	{
		Name:     RuleDeclaredValueCurrency,
		Section:  SectionShipment,
		Severity: validation.SeverityWarning,
		Check: func(tx *entities.ShippingTransaction, _ RuleContext) []validation.Issue {
			if tx.Quote == nil || len(tx.Quote.Options) == 0 || tx.Shipment.Package.Currency == "" {
				return nil
			}
			quoted := tx.Quote.Options[0].Currency
			if quoted != "" && tx.Shipment.Package.Currency != quoted {
				return finding("shipment.package.currency", "Declared value is in %s but the quote is in %s",
					tx.Shipment.Package.Currency, quoted)
			}
			return nil
		},
	},
}

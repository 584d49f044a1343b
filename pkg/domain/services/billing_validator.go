package services

import (
	"strings"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// ValidateBilling checks the billing section and its cross-field rules. When
// SameAsOrigin is set and no billing address was entered, the origin is
// validated in its place. Field paths are relative to the billing section.
func ValidateBilling(billing entities.BillingInfo, origin *entities.Address) validation.Result {
	var result validation.Result
	c := validation.NewChecker("", &result)

	address := EffectiveBillingAddress(billing, origin)
	ValidateAddress(c.Nested("billingAddress"), address, ContactRules{OptionalContact: true})

	if billing.MailingAddress != nil {
		ValidateAddress(c.Nested("mailingAddress"), *billing.MailingAddress, ContactRules{OptionalContact: true})
	}

	ValidateContact(c.Nested("accountsPayableContact"), billing.AccountsPayableContact, ContactRules{RequireEmail: true})
	if billing.BillingContact != (entities.ContactInfo{}) {
		ValidateContact(c.Nested("billingContact"), billing.BillingContact, ContactRules{})
	}

	validateCompany(c.Nested("company"), billing.Company)
	validateInvoicePreferences(c.Nested("invoice"), billing.Invoice)

	if billing.TaxExempt {
		c.MaxLength("taxExemptCertificate", billing.TaxExemptCertificate, "Tax exemption certificate", 50)
	}

	for _, rule := range billingRules {
		for _, issue := range rule.check(billing, origin) {
			result.Add(rule.stamp(issue))
		}
	}

	return result
}

// EffectiveBillingAddress is the address invoices are sent to
func EffectiveBillingAddress(billing entities.BillingInfo, origin *entities.Address) entities.Address {
	if billing.SameAsOrigin && billing.BillingAddress.IsZero() && origin != nil {
		return *origin
	}
	return billing.BillingAddress
}

func validateCompany(c *validation.Checker, company entities.CompanyInfo) {
	c.RequiredLength("legalName", company.LegalName, "Legal business name", 2, 150)
	c.MaxLength("dba", company.DBA, "DBA", 150)
	validation.OneOf(c, "businessType", company.BusinessType, "Business type", entities.BusinessTypes)
	c.MaxLength("industry", company.Industry, "Industry", 100)
	if company.YearsInBusiness != 0 {
		c.IntRange("yearsInBusiness", company.YearsInBusiness, 0, 500, "Years in business")
	}

	typeOK := validation.OneOf(c, "taxIdType", company.TaxIDType, "Tax ID type", entities.TaxIDTypes)
	if c.Required("taxId", company.TaxID, "Tax ID") && typeOK {
		c.Format("taxId", ValidTaxID(company.TaxIDType, strings.TrimSpace(company.TaxID)), taxIDMessage(company.TaxIDType))
	}
}

func validateInvoicePreferences(c *validation.Checker, invoice entities.InvoicePreferences) {
	validation.OneOf(c, "format", invoice.Format, "Invoice format", entities.InvoiceFormats)
	validation.OneOf(c, "deliveryMethod", invoice.DeliveryMethod, "Invoice delivery method", entities.InvoiceDeliveries)
	validation.OneOf(c, "frequency", invoice.Frequency, "Invoice frequency", entities.InvoiceFrequencies)
	if strings.TrimSpace(invoice.InvoiceEmail) != "" {
		c.Format("invoiceEmail", ValidEmail(invoice.InvoiceEmail), "Invoice email must be a valid address")
	}
}

func taxIDMessage(kind entities.TaxIDType) string {
	switch kind {
	case entities.TaxIDSSN:
		return "SSN must look like 123-45-6789"
	case entities.TaxIDITIN:
		return "ITIN must look like 9XX-7X-XXXX"
	case entities.TaxIDForeign:
		return "Foreign tax ID must be 5-20 letters, digits or dashes"
	default:
		return "EIN must look like 12-3456789 with a valid IRS prefix"
	}
}

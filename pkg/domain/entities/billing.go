package entities

// BusinessType is the legal structure of the billed company
type BusinessType string

const (
	BusinessCorporation        BusinessType = "corporation"
	BusinessLLC                BusinessType = "llc"
	BusinessPartnership        BusinessType = "partnership"
	BusinessSoleProprietorship BusinessType = "sole_proprietorship"
	BusinessNonProfit          BusinessType = "non_profit"
	BusinessGovernment         BusinessType = "government"
)

// BusinessTypes lists every accepted business type
var BusinessTypes = []BusinessType{
	BusinessCorporation, BusinessLLC, BusinessPartnership,
	BusinessSoleProprietorship, BusinessNonProfit, BusinessGovernment,
}

// TaxIDType identifies which kind of number TaxID holds
type TaxIDType string

const (
	TaxIDEIN     TaxIDType = "ein"
	TaxIDSSN     TaxIDType = "ssn"
	TaxIDITIN    TaxIDType = "itin"
	TaxIDForeign TaxIDType = "foreign"
)

// TaxIDTypes lists every accepted tax id type
var TaxIDTypes = []TaxIDType{TaxIDEIN, TaxIDSSN, TaxIDITIN, TaxIDForeign}

// InvoiceFormat is the document format invoices are produced in
type InvoiceFormat string

const (
	InvoiceStandard InvoiceFormat = "standard"
	InvoiceItemized InvoiceFormat = "itemized"
	InvoiceSummary  InvoiceFormat = "summary"
	InvoicePDF      InvoiceFormat = "pdf"
	InvoiceEDI      InvoiceFormat = "edi"
	InvoiceXML      InvoiceFormat = "xml"
)

// InvoiceFormats lists every accepted invoice format
var InvoiceFormats = []InvoiceFormat{
	InvoiceStandard, InvoiceItemized, InvoiceSummary, InvoicePDF, InvoiceEDI, InvoiceXML,
}

// InvoiceDelivery is how invoices reach the customer
type InvoiceDelivery string

const (
	DeliveryEmail  InvoiceDelivery = "email"
	DeliveryMail   InvoiceDelivery = "mail"
	DeliveryPortal InvoiceDelivery = "portal"
	DeliveryEDI    InvoiceDelivery = "edi"
)

// InvoiceDeliveries lists every accepted invoice delivery method
var InvoiceDeliveries = []InvoiceDelivery{DeliveryEmail, DeliveryMail, DeliveryPortal, DeliveryEDI}

// InvoiceFrequency is how often invoices are issued
type InvoiceFrequency string

const (
	FrequencyPerShipment InvoiceFrequency = "per_shipment"
	FrequencyWeekly      InvoiceFrequency = "weekly"
	FrequencyMonthly     InvoiceFrequency = "monthly"
)

// InvoiceFrequencies lists every accepted invoice frequency
var InvoiceFrequencies = []InvoiceFrequency{FrequencyPerShipment, FrequencyWeekly, FrequencyMonthly}

// CompanyInfo identifies the billed legal entity
type CompanyInfo struct {
	LegalName       string       `json:"legalName"`
	DBA             string       `json:"dba,omitempty"`
	BusinessType    BusinessType `json:"businessType"`
	Industry        string       `json:"industry,omitempty"`
	YearsInBusiness int          `json:"yearsInBusiness,omitempty"`
	TaxID           string       `json:"taxId"`
	TaxIDType       TaxIDType    `json:"taxIdType"`
}

// InvoicePreferences controls invoice format and delivery
type InvoicePreferences struct {
	Format              InvoiceFormat    `json:"format"`
	DeliveryMethod      InvoiceDelivery  `json:"deliveryMethod"`
	Frequency           InvoiceFrequency `json:"frequency"`
	InvoiceEmail        string           `json:"invoiceEmail,omitempty"`
	PORequiredOnInvoice bool             `json:"poRequiredOnInvoice,omitempty"`
}

// BillingInfo captures invoicing data for the transaction
type BillingInfo struct {
	BillingAddress         Address            `json:"billingAddress"`
	SameAsOrigin           bool               `json:"sameAsOrigin,omitempty"`
	MailingAddress         *Address           `json:"mailingAddress,omitempty"`
	AccountsPayableContact ContactInfo        `json:"accountsPayableContact"`
	BillingContact         ContactInfo        `json:"billingContact"`
	Company                CompanyInfo        `json:"company"`
	Invoice                InvoicePreferences `json:"invoice"`
	TaxExempt              bool               `json:"taxExempt,omitempty"`
	TaxExemptCertificate   string             `json:"taxExemptCertificate,omitempty"`
}

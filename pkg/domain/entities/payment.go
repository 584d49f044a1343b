package entities

import "github.com/shopspring/decimal"

// PaymentMethod represents how a B2B shipment is paid for
type PaymentMethod string

const (
	PaymentPurchaseOrder    PaymentMethod = "purchase_order"
	PaymentBillOfLading     PaymentMethod = "bill_of_lading"
	PaymentThirdParty       PaymentMethod = "third_party"
	PaymentNetTerms         PaymentMethod = "net_terms"
	PaymentCorporateAccount PaymentMethod = "corporate_account"
)

// PaymentMethods lists every accepted payment method
var PaymentMethods = []PaymentMethod{
	PaymentPurchaseOrder, PaymentBillOfLading, PaymentThirdParty, PaymentNetTerms, PaymentCorporateAccount,
}

// String returns a display label for the method
func (m PaymentMethod) String() string {
	switch m {
	case PaymentPurchaseOrder:
		return "Purchase Order"
	case PaymentBillOfLading:
		return "Bill of Lading"
	case PaymentThirdParty:
		return "Third-Party Billing"
	case PaymentNetTerms:
		return "Net Terms"
	case PaymentCorporateAccount:
		return "Corporate Account"
	default:
		return "Unknown"
	}
}

// FreightTerms states who pays the carrier under a bill of lading
type FreightTerms string

const (
	FreightPrepaid    FreightTerms = "prepaid"
	FreightCollect    FreightTerms = "collect"
	FreightThirdParty FreightTerms = "third_party"
)

// NetTermsPeriods lists the accepted net terms in days
var NetTermsPeriods = []int{15, 30, 45, 60, 90}

// PurchaseOrderDetails is payment against a customer purchase order
type PurchaseOrderDetails struct {
	PONumber        string          `json:"poNumber"`
	Amount          decimal.Decimal `json:"amount"`
	ExpirationDate  string          `json:"expirationDate"`
	ApprovalContact ContactInfo     `json:"approvalContact"`
	Department      string          `json:"department,omitempty"`
}

// BillOfLadingDetails is payment settled through the bill of lading
type BillOfLadingDetails struct {
	BOLNumber        string       `json:"bolNumber"`
	BOLDate          string       `json:"bolDate"`
	ShipperReference string       `json:"shipperReference,omitempty"`
	FreightTerms     FreightTerms `json:"freightTerms"`
}

// ThirdPartyDetails bills another company's carrier account
type ThirdPartyDetails struct {
	AccountNumber     string  `json:"accountNumber"`
	CompanyName       string  `json:"companyName"`
	Address           Address `json:"address"`
	AuthorizationCode string  `json:"authorizationCode,omitempty"`
}

// TradeReference is a supplier vouching for the customer's credit
type TradeReference struct {
	CompanyName string `json:"companyName"`
	ContactName string `json:"contactName,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// NetTermsDetails is invoiced payment due within PeriodDays
type NetTermsDetails struct {
	PeriodDays      int              `json:"periodDays"`
	CreditReference string           `json:"creditReference,omitempty"`
	TradeReferences []TradeReference `json:"tradeReferences,omitempty"`
	AnnualRevenue   decimal.Decimal  `json:"annualRevenue"`
}

// CorporateAccountDetails charges a pre-established shipper account.
// AccountPIN is only accepted on input; stored transactions keep PINHash,
// which never appears in JSON. Repositories carry it with
// ShippingTransaction.AccountPINHash and SetAccountPINHash.
type CorporateAccountDetails struct {
	AccountNumber  string      `json:"accountNumber"`
	AccountPIN     string      `json:"accountPin,omitempty"`
	PINHash        string      `json:"-"`
	BillingContact ContactInfo `json:"billingContact"`
}

// PaymentInfo holds the selected method and that method's details
type PaymentInfo struct {
	Method           PaymentMethod            `json:"method"`
	Reference        string                   `json:"reference,omitempty"`
	PurchaseOrder    *PurchaseOrderDetails    `json:"purchaseOrder,omitempty"`
	BillOfLading     *BillOfLadingDetails     `json:"billOfLading,omitempty"`
	ThirdParty       *ThirdPartyDetails       `json:"thirdParty,omitempty"`
	NetTerms         *NetTermsDetails         `json:"netTerms,omitempty"`
	CorporateAccount *CorporateAccountDetails `json:"corporateAccount,omitempty"`
}

// StripOtherMethods drops details that belong to methods other than the selected one
func (p *PaymentInfo) StripOtherMethods() {
	if p.Method != PaymentPurchaseOrder {
		p.PurchaseOrder = nil
	}
	if p.Method != PaymentBillOfLading {
		p.BillOfLading = nil
	}
	if p.Method != PaymentThirdParty {
		p.ThirdParty = nil
	}
	if p.Method != PaymentNetTerms {
		p.NetTerms = nil
	}
	if p.Method != PaymentCorporateAccount {
		p.CorporateAccount = nil
	}
}

package services

import (
	"strings"
	"time"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// MaxBOLAgeDays bounds how old a bill of lading may be when it is used for payment
const MaxBOLAgeDays = 30

// MinTradeReferencesExtendedTerms is the number of trade references required for terms over 30 days
const MinTradeReferencesExtendedTerms = 2

// ValidatePayment checks the selected method and only that method's details.
// Dates are evaluated in now's location.
func ValidatePayment(payment entities.PaymentInfo, now time.Time) validation.Result {
	var result validation.Result
	c := validation.NewChecker("", &result)

	if !validation.OneOf(c, "method", payment.Method, "Payment method", entities.PaymentMethods) {
		return result
	}
	c.MaxLength("reference", payment.Reference, "Payment reference", 50)

	switch payment.Method {
	case entities.PaymentPurchaseOrder:
		if payment.PurchaseOrder == nil {
			c.Errorf("purchaseOrder", validation.CodeRequired, "Purchase order details are required")
			break
		}
		validatePurchaseOrder(c.Nested("purchaseOrder"), *payment.PurchaseOrder, now)
	case entities.PaymentBillOfLading:
		if payment.BillOfLading == nil {
			c.Errorf("billOfLading", validation.CodeRequired, "Bill of lading details are required")
			break
		}
		validateBillOfLading(c.Nested("billOfLading"), *payment.BillOfLading, now)
	case entities.PaymentThirdParty:
		if payment.ThirdParty == nil {
			c.Errorf("thirdParty", validation.CodeRequired, "Third-party billing details are required")
			break
		}
		validateThirdParty(c.Nested("thirdParty"), *payment.ThirdParty)
	case entities.PaymentNetTerms:
		if payment.NetTerms == nil {
			c.Errorf("netTerms", validation.CodeRequired, "Net terms details are required")
			break
		}
		validateNetTerms(c.Nested("netTerms"), *payment.NetTerms)
	case entities.PaymentCorporateAccount:
		if payment.CorporateAccount == nil {
			c.Errorf("corporateAccount", validation.CodeRequired, "Corporate account details are required")
			break
		}
		validateCorporateAccount(c.Nested("corporateAccount"), *payment.CorporateAccount)
	}

	return result
}

func validatePurchaseOrder(c *validation.Checker, po entities.PurchaseOrderDetails, now time.Time) {
	if c.Required("poNumber", po.PONumber, "PO number") {
		c.Format("poNumber", ValidPONumber(po.PONumber),
			"PO number must be 3-30 upper-case letters, digits or dashes")
	}
	c.Positive("amount", po.Amount, "PO amount")

	if c.Required("expirationDate", po.ExpirationDate, "PO expiration date") {
		expires, err := ParseDate(po.ExpirationDate, now.Location())
		if err != nil {
			c.Errorf("expirationDate", validation.CodeInvalidFormat, "PO expiration date must be YYYY-MM-DD")
		} else if expires.Before(startOfDay(now)) {
			c.Errorf("expirationDate", validation.CodeOutOfRange, "Purchase order expired on %s", po.ExpirationDate)
		}
	}

	approval := c.Nested("approvalContact")
	approval.RequiredLength("name", po.ApprovalContact.Name, "Approver name", 2, 100)
	if approval.Required("email", po.ApprovalContact.Email, "Approver email") {
		approval.Format("email", ValidEmail(po.ApprovalContact.Email), "Approver email must be a valid address")
	}
	if po.ApprovalContact.Phone != "" {
		approval.Format("phone", ValidPhone(po.ApprovalContact.Phone), "Approver phone must be a valid 10-digit North American number")
	}
	c.MaxLength("department", po.Department, "Department", 60)
}

func validateBillOfLading(c *validation.Checker, bol entities.BillOfLadingDetails, now time.Time) {
	if c.Required("bolNumber", bol.BOLNumber, "BOL number") {
		c.Format("bolNumber", ValidBOLNumber(bol.BOLNumber), "BOL number must look like BOL-123456")
	}
	if c.Required("bolDate", bol.BOLDate, "BOL date") {
		issued, err := ParseDate(bol.BOLDate, now.Location())
		switch {
		case err != nil:
			c.Errorf("bolDate", validation.CodeInvalidFormat, "BOL date must be YYYY-MM-DD")
		case issued.After(startOfDay(now)):
			c.Errorf("bolDate", validation.CodeOutOfRange, "BOL date cannot be in the future")
		case issued.Before(startOfDay(now).AddDate(0, 0, -MaxBOLAgeDays)):
			c.Errorf("bolDate", validation.CodeOutOfRange, "BOL date cannot be more than %d days old", MaxBOLAgeDays)
		}
	}
	c.MaxLength("shipperReference", bol.ShipperReference, "Shipper reference", 50)
	validation.OneOf(c, "freightTerms", bol.FreightTerms, "Freight terms",
		[]entities.FreightTerms{entities.FreightPrepaid, entities.FreightCollect, entities.FreightThirdParty})
}

func validateThirdParty(c *validation.Checker, tp entities.ThirdPartyDetails) {
	if c.Required("accountNumber", tp.AccountNumber, "Account number") {
		c.Format("accountNumber", ValidAccountNumber(tp.AccountNumber), "Account number must be 8-20 upper-case letters or digits")
	}
	c.RequiredLength("companyName", tp.CompanyName, "Company name", 2, 100)
	ValidateAddress(c.Nested("address"), tp.Address, ContactRules{RequireEmail: true})
	c.MaxLength("authorizationCode", tp.AuthorizationCode, "Authorization code", 30)
}

func validateNetTerms(c *validation.Checker, terms entities.NetTermsDetails) {
	validPeriod := false
	for _, p := range entities.NetTermsPeriods {
		if terms.PeriodDays == p {
			validPeriod = true
			break
		}
	}
	if !validPeriod {
		c.Errorf("periodDays", validation.CodeInvalidChoice, "Net terms must be 15, 30, 45, 60 or 90 days")
	}

	if terms.AnnualRevenue.IsNegative() {
		c.Errorf("annualRevenue", validation.CodeOutOfRange, "Annual revenue cannot be negative")
	}
	c.MaxLength("creditReference", terms.CreditReference, "Credit reference", 50)

	if validPeriod && terms.PeriodDays > 30 && len(terms.TradeReferences) < MinTradeReferencesExtendedTerms {
		result := c.Result()
		result.Add(validation.Issue{
			Field:    c.Path("tradeReferences"),
			Code:     validation.CodeRule,
			Message:  "Net terms over 30 days require at least two trade references",
			Severity: validation.SeverityError,
			Rule:     "extended-terms-references",
		})
	}

	for i, ref := range terms.TradeReferences {
		rc := c.Nested(indexed("tradeReferences", i))
		rc.RequiredLength("companyName", ref.CompanyName, "Reference company", 2, 100)
		phone := strings.TrimSpace(ref.Phone)
		email := strings.TrimSpace(ref.Email)
		if phone == "" && email == "" {
			rc.Errorf("phone", validation.CodeRequired, "Reference needs a phone number or email")
		}
		if phone != "" {
			rc.Format("phone", ValidPhone(phone), "Reference phone must be a valid 10-digit North American number")
		}
		if email != "" {
			rc.Format("email", ValidEmail(email), "Reference email must be a valid address")
		}
	}
}

func validateCorporateAccount(c *validation.Checker, account entities.CorporateAccountDetails) {
	if c.Required("accountNumber", account.AccountNumber, "Corporate account number") {
		c.Format("accountNumber", ValidCorporateAccount(account.AccountNumber),
			"Corporate account number must look like ACME-123456")
	}
	switch {
	case account.AccountPIN != "":
		c.Format("accountPin", ValidPIN(account.AccountPIN), "Account PIN must be 4-8 digits")
	case account.PINHash == "":
		c.Errorf("accountPin", validation.CodeRequired, "Account PIN is required")
	}
	ValidateContact(c.Nested("billingContact"), account.BillingContact, ContactRules{RequireEmail: true})
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

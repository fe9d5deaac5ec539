package arm

import "github.com/shopspring/decimal"

// Subscription is one entry from the subscription listing.
type Subscription struct {
	ID   string
	Name string
}

// SubscriptionDetail carries the billing-relevant policies of a single
// subscription. Fields the API did not return stay empty.
type SubscriptionDetail struct {
	BillingScopeID string
	QuotaID        string
}

// BillingAccount carries the agreement type of a billing account.
// Known values are AgreementEnterprise and AgreementCustomer; anything
// else the API returns is passed through untouched.
type BillingAccount struct {
	AgreementType string
}

// Agreement types returned by the billing API.
const (
	AgreementEnterprise = "EnterpriseAgreement"
	AgreementCustomer   = "MicrosoftCustomerAgreement"
)

// CustomerPage summarizes the customer listing of a billing account.
// A non-zero Count is the CSP signal; entry contents are irrelevant.
type CustomerPage struct {
	Count int
}

// LotPage summarizes the consumption commitment lots of a billing account.
// Remaining is the summed closed balance across lots.
type LotPage struct {
	Count     int
	Remaining decimal.Decimal
}

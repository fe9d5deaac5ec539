package classify_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-classify/internal/arm"
	"billing-classify/internal/classify"
)

// fakeAPI serves canned responses keyed by id and counts every call so
// tests can assert the at-most-once cache property.
type fakeAPI struct {
	details  map[string]arm.SubscriptionDetail
	accounts map[string]arm.BillingAccount
	custs    map[string]arm.CustomerPage
	lots     map[string]arm.LotPage

	detailCalls  map[string]int
	accountCalls map[string]int
	custCalls    map[string]int
	lotCalls     map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		details:      map[string]arm.SubscriptionDetail{},
		accounts:     map[string]arm.BillingAccount{},
		custs:        map[string]arm.CustomerPage{},
		lots:         map[string]arm.LotPage{},
		detailCalls:  map[string]int{},
		accountCalls: map[string]int{},
		custCalls:    map[string]int{},
		lotCalls:     map[string]int{},
	}
}

func (f *fakeAPI) SubscriptionDetail(_ context.Context, id string) (arm.SubscriptionDetail, bool) {
	f.detailCalls[id]++
	d, ok := f.details[id]
	return d, ok
}

func (f *fakeAPI) BillingAccount(_ context.Context, id string) (arm.BillingAccount, bool) {
	f.accountCalls[id]++
	a, ok := f.accounts[id]
	return a, ok
}

func (f *fakeAPI) Customers(_ context.Context, id string) (arm.CustomerPage, bool) {
	f.custCalls[id]++
	c, ok := f.custs[id]
	return c, ok
}

func (f *fakeAPI) ConsumptionLots(_ context.Context, id string) (arm.LotPage, bool) {
	f.lotCalls[id]++
	l, ok := f.lots[id]
	return l, ok
}

func newEngine(api classify.BillingAPI) *classify.Engine {
	return classify.NewEngine(api, zerolog.Nop())
}

func TestClassifyEnterpriseDirect(t *testing.T) {
	api := newFakeAPI()
	api.details["sub-1"] = arm.SubscriptionDetail{
		BillingScopeID: "/providers/Microsoft.Billing/billingAccounts/12345/enrollmentAccounts/99",
		QuotaID:        "EnterpriseAgreement_2014-09-01",
	}
	api.accounts["12345"] = arm.BillingAccount{AgreementType: arm.AgreementEnterprise}
	api.custs["12345"] = arm.CustomerPage{Count: 0}
	api.lots["12345"] = arm.LotPage{Count: 0}

	records := newEngine(api).Classify(context.Background(), []arm.Subscription{{ID: "sub-1", Name: "prod"}})
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "12345", rec.BillingAccountID)
	assert.Equal(t, arm.AgreementEnterprise, rec.AgreementType)
	assert.False(t, rec.IsCSP)
	assert.Empty(t, rec.CSPEvidence)
	assert.Equal(t, classify.TriFalse, rec.HasMACC)
}

func TestClassifyCSPCustomerScope(t *testing.T) {
	api := newFakeAPI()
	api.details["sub-2"] = arm.SubscriptionDetail{
		BillingScopeID: "/providers/Microsoft.Billing/billingAccounts/abc/customers/cust1",
		QuotaID:        "CSP_2015-05-01",
	}
	api.accounts["abc"] = arm.BillingAccount{AgreementType: arm.AgreementCustomer}
	api.custs["abc"] = arm.CustomerPage{Count: 2}
	api.lots["abc"] = arm.LotPage{Count: 0}

	records := newEngine(api).Classify(context.Background(), []arm.Subscription{{ID: "sub-2", Name: "resold"}})
	require.Len(t, records, 1)

	rec := records[0]
	assert.True(t, rec.IsCSP)
	assert.Equal(t, []string{
		classify.EvidenceScopePath,
		classify.EvidenceCustomerList,
	}, rec.CSPEvidence)
}

func TestClassifyDetailUnavailable(t *testing.T) {
	api := newFakeAPI()

	records := newEngine(api).Classify(context.Background(), []arm.Subscription{{ID: "sub-3", Name: "orphan"}})
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "orphan", rec.SubscriptionName)
	assert.Empty(t, rec.OfferType)
	assert.Empty(t, rec.BillingScopeID)
	assert.Empty(t, rec.BillingAccountID)
	assert.Empty(t, rec.AgreementType)
	assert.Equal(t, classify.TriUnknown, rec.HasMACC)
	assert.False(t, rec.IsCSP)
	assert.Empty(t, rec.CSPEvidence)

	// No billing account to interrogate, so none of the dependent
	// endpoints fire.
	assert.Empty(t, api.accountCalls)
	assert.Empty(t, api.custCalls)
	assert.Empty(t, api.lotCalls)
}

func TestClassifySharedAccountUsesCache(t *testing.T) {
	api := newFakeAPI()
	scope := "/providers/Microsoft.Billing/billingAccounts/X/billingProfiles/p1"
	api.details["sub-a"] = arm.SubscriptionDetail{BillingScopeID: scope, QuotaID: "PayAsYouGo_2014-09-01"}
	api.details["sub-b"] = arm.SubscriptionDetail{BillingScopeID: scope, QuotaID: "PayAsYouGo_2014-09-01"}
	api.accounts["X"] = arm.BillingAccount{AgreementType: arm.AgreementCustomer}
	api.custs["X"] = arm.CustomerPage{Count: 0}
	api.lots["X"] = arm.LotPage{Count: 3, Remaining: decimal.NewFromInt(150000)}

	engine := newEngine(api)
	records := engine.Classify(context.Background(), []arm.Subscription{
		{ID: "sub-a", Name: "first"},
		{ID: "sub-b", Name: "second"},
	})
	require.Len(t, records, 2)

	for _, rec := range records {
		assert.Equal(t, arm.AgreementCustomer, rec.AgreementType)
		assert.Equal(t, classify.TriTrue, rec.HasMACC)
	}

	assert.Equal(t, 1, api.accountCalls["X"])
	assert.Equal(t, 1, api.custCalls["X"])
	assert.Equal(t, 1, api.lotCalls["X"])

	balances := engine.CommitmentBalances()
	require.Contains(t, balances, "X")
	assert.True(t, balances["X"].Equal(decimal.NewFromInt(150000)))
}

func TestClassifyNegativeLookupsAreCached(t *testing.T) {
	api := newFakeAPI()
	scope := "/providers/Microsoft.Billing/billingAccounts/gone/enrollmentAccounts/1"
	api.details["sub-a"] = arm.SubscriptionDetail{BillingScopeID: scope}
	api.details["sub-b"] = arm.SubscriptionDetail{BillingScopeID: scope}
	// No account/customer/lot data: every dependent lookup fails.

	records := newEngine(api).Classify(context.Background(), []arm.Subscription{
		{ID: "sub-a", Name: "a"},
		{ID: "sub-b", Name: "b"},
	})
	require.Len(t, records, 2)

	for _, rec := range records {
		assert.Equal(t, "gone", rec.BillingAccountID)
		assert.Empty(t, rec.AgreementType)
		assert.Equal(t, classify.TriUnknown, rec.HasMACC)
	}

	// Failed lookups are memoized too.
	assert.Equal(t, 1, api.accountCalls["gone"])
	assert.Equal(t, 1, api.custCalls["gone"])
	assert.Equal(t, 1, api.lotCalls["gone"])
}

func TestClassifyScopeSignalSurvivesEmptyCustomerList(t *testing.T) {
	api := newFakeAPI()
	api.details["sub-1"] = arm.SubscriptionDetail{
		BillingScopeID: "/providers/Microsoft.Billing/billingAccounts/acct/customers/c9",
	}
	api.accounts["acct"] = arm.BillingAccount{AgreementType: arm.AgreementCustomer}
	api.custs["acct"] = arm.CustomerPage{Count: 0}
	api.lots["acct"] = arm.LotPage{Count: 0}

	records := newEngine(api).Classify(context.Background(), []arm.Subscription{{ID: "sub-1", Name: "s"}})
	require.Len(t, records, 1)

	rec := records[0]
	assert.True(t, rec.IsCSP, "empty customer list must not reset the scope-path signal")
	assert.Equal(t, []string{classify.EvidenceScopePath}, rec.CSPEvidence)
}

func TestClassifyUnknownDistinctFromFalse(t *testing.T) {
	api := newFakeAPI()
	api.details["no-parent"] = arm.SubscriptionDetail{BillingScopeID: "/subscriptions/0000"}
	api.details["empty-lots"] = arm.SubscriptionDetail{
		BillingScopeID: "/providers/Microsoft.Billing/billingAccounts/acct/enrollmentAccounts/1",
	}
	api.accounts["acct"] = arm.BillingAccount{AgreementType: arm.AgreementEnterprise}
	api.custs["acct"] = arm.CustomerPage{Count: 0}
	api.lots["acct"] = arm.LotPage{Count: 0}

	records := newEngine(api).Classify(context.Background(), []arm.Subscription{
		{ID: "no-parent", Name: "a"},
		{ID: "empty-lots", Name: "b"},
	})
	require.Len(t, records, 2)

	assert.Equal(t, classify.TriUnknown, records[0].HasMACC)
	assert.Equal(t, classify.TriFalse, records[1].HasMACC)
}

func TestClassifyIdempotent(t *testing.T) {
	buildAPI := func() *fakeAPI {
		api := newFakeAPI()
		api.details["sub-1"] = arm.SubscriptionDetail{
			BillingScopeID: "/providers/Microsoft.Billing/billingAccounts/12345/enrollmentAccounts/99",
			QuotaID:        "EnterpriseAgreement_2014-09-01",
		}
		api.accounts["12345"] = arm.BillingAccount{AgreementType: arm.AgreementEnterprise}
		api.custs["12345"] = arm.CustomerPage{Count: 1}
		api.lots["12345"] = arm.LotPage{Count: 2, Remaining: decimal.NewFromInt(500)}
		return api
	}
	subs := []arm.Subscription{{ID: "sub-1", Name: "prod"}}

	first := newEngine(buildAPI()).Classify(context.Background(), subs)
	second := newEngine(buildAPI()).Classify(context.Background(), subs)
	assert.Equal(t, first, second)
}

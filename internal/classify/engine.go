// Package classify decides the billing structure of each subscription:
// agreement type, channel-partner relationship, and consumption commitment.
package classify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billing-classify/internal/arm"
	"billing-classify/internal/scope"
)

// BillingAPI is the read surface the engine consumes. All lookups report
// absence with ok=false rather than an error; an absent result is cached
// like any other.
type BillingAPI interface {
	SubscriptionDetail(ctx context.Context, subscriptionID string) (arm.SubscriptionDetail, bool)
	BillingAccount(ctx context.Context, accountID string) (arm.BillingAccount, bool)
	Customers(ctx context.Context, accountID string) (arm.CustomerPage, bool)
	ConsumptionLots(ctx context.Context, accountID string) (arm.LotPage, bool)
}

// Engine classifies subscriptions sequentially, memoizing the three
// per-billing-account lookups so each account is fetched at most once
// per run.
type Engine struct {
	api BillingAPI
	log zerolog.Logger

	accounts  *lookupCache[arm.BillingAccount]
	customers *lookupCache[arm.CustomerPage]
	lots      *lookupCache[arm.LotPage]
}

// NewEngine builds an Engine over api.
func NewEngine(api BillingAPI, log zerolog.Logger) *Engine {
	return &Engine{
		api:       api,
		log:       log,
		accounts:  newLookupCache[arm.BillingAccount](),
		customers: newLookupCache[arm.CustomerPage](),
		lots:      newLookupCache[arm.LotPage](),
	}
}

// Classify produces one Record per subscription, in input order.
func (e *Engine) Classify(ctx context.Context, subs []arm.Subscription) []Record {
	records := make([]Record, 0, len(subs))
	for _, sub := range subs {
		records = append(records, e.classifyOne(ctx, sub))
	}
	return records
}

func (e *Engine) classifyOne(ctx context.Context, sub arm.Subscription) Record {
	rec := Record{
		SubscriptionName: sub.Name,
		SubscriptionID:   sub.ID,
		HasMACC:          TriUnknown,
	}

	detail, ok := e.api.SubscriptionDetail(ctx, sub.ID)
	if !ok {
		e.log.Debug().Str("subscription", sub.ID).Msg("subscription detail unavailable")
		return rec
	}
	rec.BillingScopeID = detail.BillingScopeID
	rec.OfferType = detail.QuotaID

	if scope.IsCustomerScope(rec.BillingScopeID) {
		rec.IsCSP = true
		rec.CSPEvidence = append(rec.CSPEvidence, EvidenceScopePath)
	}

	accountID, found := scope.BillingAccountID(rec.BillingScopeID)
	if !found {
		// No parent account to interrogate: agreement stays absent and
		// the commitment flag stays unknown, not false.
		return rec
	}
	rec.BillingAccountID = accountID

	if account, ok := e.accounts.resolve(accountID, func() (arm.BillingAccount, bool) {
		return e.api.BillingAccount(ctx, accountID)
	}); ok {
		rec.AgreementType = account.AgreementType
	}

	if customers, ok := e.customers.resolve(accountID, func() (arm.CustomerPage, bool) {
		return e.api.Customers(ctx, accountID)
	}); ok && customers.Count > 0 {
		// OR with the scope-path signal; never downgrades to false.
		rec.IsCSP = true
		rec.CSPEvidence = append(rec.CSPEvidence, EvidenceCustomerList)
	}

	if lots, ok := e.lots.resolve(accountID, func() (arm.LotPage, bool) {
		return e.api.ConsumptionLots(ctx, accountID)
	}); ok {
		if lots.Count > 0 {
			rec.HasMACC = TriTrue
		} else {
			rec.HasMACC = TriFalse
		}
	}

	return rec
}

// CommitmentBalances returns the remaining commitment balance per billing
// account, for accounts whose lot lookup succeeded with at least one lot.
func (e *Engine) CommitmentBalances() map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	for id, entry := range e.lots.entries {
		if entry.ok && entry.value.Count > 0 {
			balances[id] = entry.value.Remaining
		}
	}
	return balances
}

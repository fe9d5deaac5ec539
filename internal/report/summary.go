// Package report aggregates classification records into summaries and
// renders the CSV and console outputs.
package report

import (
	"sort"

	"billing-classify/internal/classify"
)

// Summary holds the run-level counts.
type Summary struct {
	Total                 int
	ByAgreementType       map[string]int
	CSPCount              int
	MACCCount             int
	UnknownAgreementCount int
}

// Summarize computes counts over records. Records without an agreement
// type are counted in UnknownAgreementCount and excluded from the
// per-agreement-type breakdown.
func Summarize(records []classify.Record) Summary {
	s := Summary{
		Total:           len(records),
		ByAgreementType: make(map[string]int),
	}
	for _, rec := range records {
		if rec.AgreementType == "" {
			s.UnknownAgreementCount++
		} else {
			s.ByAgreementType[rec.AgreementType]++
		}
		if rec.IsCSP {
			s.CSPCount++
		}
		if rec.HasMACC == classify.TriTrue {
			s.MACCCount++
		}
	}
	return s
}

// AccountGroup summarizes the subscriptions under one billing account.
// AgreementType and HasMACC are first-seen: the values carried by the
// first record for that account, in input order; later conflicting
// values are ignored.
type AccountGroup struct {
	BillingAccountID  string
	SubscriptionCount int
	AgreementType     string
	HasMACC           classify.TriState
}

// GroupByBillingAccount groups records by billing account, in first-seen
// order. Records without a billing account id are excluded.
func GroupByBillingAccount(records []classify.Record) []AccountGroup {
	index := make(map[string]int)
	groups := make([]AccountGroup, 0)
	for _, rec := range records {
		if rec.BillingAccountID == "" {
			continue
		}
		i, seen := index[rec.BillingAccountID]
		if !seen {
			i = len(groups)
			index[rec.BillingAccountID] = i
			groups = append(groups, AccountGroup{
				BillingAccountID: rec.BillingAccountID,
				AgreementType:    rec.AgreementType,
				HasMACC:          rec.HasMACC,
			})
		}
		groups[i].SubscriptionCount++
	}
	return groups
}

// SortRecords orders records for display by (AgreementType, IsCSP,
// SubscriptionName), ascending, with absent values before concrete ones.
// The sort is stable and in place.
func SortRecords(records []classify.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.AgreementType != b.AgreementType {
			return a.AgreementType < b.AgreementType
		}
		if a.IsCSP != b.IsCSP {
			return !a.IsCSP
		}
		return a.SubscriptionName < b.SubscriptionName
	})
}

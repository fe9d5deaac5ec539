// Package scope parses Azure billing scope paths.
// A billing scope is a slash-delimited hierarchy whose segments alternate
// between a type label and an identifier, e.g.
// /providers/Microsoft.Billing/billingAccounts/{id}/billingProfiles/{id}/...
package scope

import "strings"

const (
	// billingAccountsSegment is the type label preceding the top-level
	// billing account identifier.
	billingAccountsSegment = "billingAccounts"

	// customerMarker appears in scopes of subscriptions billed through a
	// CSP reseller.
	customerMarker = "/customers/"
)

// BillingAccountID extracts the billing account identifier from a scope
// path. It returns false when the path is empty, has no billingAccounts
// segment, or the segment is the last one on the path.
func BillingAccountID(scopePath string) (string, bool) {
	if scopePath == "" {
		return "", false
	}
	segments := strings.Split(scopePath, "/")
	for i, seg := range segments {
		if seg == billingAccountsSegment && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1], true
		}
	}
	return "", false
}

// IsCustomerScope reports whether the scope path indicates a channel-partner
// (CSP) customer, i.e. it contains a /customers/ segment anywhere.
func IsCustomerScope(scopePath string) bool {
	return strings.Contains(scopePath, customerMarker)
}

package classify

// TriState distinguishes "checked and false" from "never checked".
// A subscription with no extractable billing account keeps TriUnknown
// for its commitment flag; an account whose lot list came back empty
// gets TriFalse.
type TriState int

const (
	TriUnknown TriState = iota
	TriFalse
	TriTrue
)

func (t TriState) String() string {
	switch t {
	case TriFalse:
		return "false"
	case TriTrue:
		return "true"
	default:
		return "unknown"
	}
}

// Evidence strings recorded when a CSP signal fires. Order in a record is
// always scope-path first, then customer-list.
const (
	EvidenceScopePath    = "scope path indicates channel-partner customer"
	EvidenceCustomerList = "parent account has registered customer entities"
)

// Record is the classification of a single subscription. Every input
// subscription yields exactly one Record no matter how many lookups
// failed; absent fields stay empty.
type Record struct {
	SubscriptionName string
	SubscriptionID   string
	OfferType        string
	AgreementType    string
	IsCSP            bool
	CSPEvidence      []string
	HasMACC          TriState
	BillingAccountID string
	BillingScopeID   string
}

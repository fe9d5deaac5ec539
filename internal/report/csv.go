package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"billing-classify/internal/classify"
)

// CSVHeader is the fixed column set of the export artifact.
var CSVHeader = []string{
	"SubscriptionName",
	"SubscriptionId",
	"OfferType",
	"AgreementType",
	"IsCSP",
	"CSPEvidence",
	"HasMACC",
	"BillingAccountId",
	"BillingScopeId",
}

// WriteCSV writes the header and one row per record to w. Booleans render
// as True/False; an unknown commitment flag and any absent field render
// as the empty string; evidence strings are joined with "; ".
func WriteCSV(w io.Writer, records []classify.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.SubscriptionName,
			rec.SubscriptionID,
			rec.OfferType,
			rec.AgreementType,
			formatBool(rec.IsCSP),
			strings.Join(rec.CSPEvidence, "; "),
			formatTriState(rec.HasMACC),
			rec.BillingAccountID,
			rec.BillingScopeID,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", rec.SubscriptionID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func formatTriState(t classify.TriState) string {
	switch t {
	case classify.TriTrue:
		return "True"
	case classify.TriFalse:
		return "False"
	default:
		return ""
	}
}

package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"billing-classify/internal/classify"
)

// RenderConsole writes the summary block, the sorted detail table when
// showDetails is set, and one block per billing account. Records must be
// in input order so first-seen grouping stays deterministic; the detail
// table sorts a copy.
func RenderConsole(w io.Writer, records []classify.Record, balances map[string]decimal.Decimal, showDetails bool) {
	summary := Summarize(records)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Subscription Billing Classification")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Subscriptions classified: %d\n", summary.Total)

	agreements := make([]string, 0, len(summary.ByAgreementType))
	for agreement := range summary.ByAgreementType {
		agreements = append(agreements, agreement)
	}
	sort.Strings(agreements)
	for _, agreement := range agreements {
		fmt.Fprintf(w, "  %-28s %d\n", agreement, summary.ByAgreementType[agreement])
	}
	if summary.UnknownAgreementCount > 0 {
		fmt.Fprintf(w, "  %-28s %d\n", "(unknown agreement)", summary.UnknownAgreementCount)
	}
	fmt.Fprintf(w, "Channel partner (CSP):    %d\n", summary.CSPCount)
	fmt.Fprintf(w, "With MACC commitment:     %d\n", summary.MACCCount)

	if showDetails {
		sorted := make([]classify.Record, len(records))
		copy(sorted, records)
		SortRecords(sorted)

		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tAGREEMENT\tCSP\tMACC\tBILLING ACCOUNT")
		for _, rec := range sorted {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				rec.SubscriptionName,
				rec.AgreementType,
				formatBool(rec.IsCSP),
				formatTriState(rec.HasMACC),
				rec.BillingAccountID,
			)
		}
		tw.Flush()
	}

	for _, group := range GroupByBillingAccount(records) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Billing account %s\n", group.BillingAccountID)
		fmt.Fprintf(w, "  subscriptions: %d\n", group.SubscriptionCount)
		fmt.Fprintf(w, "  agreement:     %s\n", orDash(group.AgreementType))
		fmt.Fprintf(w, "  commitment:    %s\n", group.HasMACC)
		if balance, ok := balances[group.BillingAccountID]; ok {
			fmt.Fprintf(w, "  remaining:     %s\n", balance.StringFixed(2))
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// azclassify - Azure subscription billing classifier
//
// Usage:
//   azclassify classify [options]
//
// Classifies every subscription visible to the caller by agreement type,
// channel-partner (CSP) relationship, and consumption commitment (MACC),
// then writes a CSV report and prints a summary.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"billing-classify/internal/arm"
	"billing-classify/internal/classify"
	"billing-classify/internal/report"
	"billing-classify/internal/store"
	"billing-classify/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes for scheduler/CI integration.
const (
	ExitSuccess         = 0
	ExitNoSubscriptions = 1
	ExitUsage           = 10
)

func main() {
	app := &cli.App{
		Name:    "azclassify",
		Usage:   "Classify Azure subscriptions by billing structure (agreement type, CSP, MACC)",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"AZCLASSIFY_LOG_LEVEL"},
			},
		},

		Commands: []*cli.Command{
			classifyCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitNoSubscriptions)
	}
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "Classify all visible subscriptions and export the report",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "subscription_classification.csv",
				Usage:   "Path of the CSV report",
				EnvVars: []string{"AZCLASSIFY_OUTPUT"},
			},
			&cli.StringFlag{
				Name:    "subscriptions-api-version",
				Value:   arm.DefaultSubscriptionsAPIVersion,
				Usage:   "api-version for the subscriptions endpoints",
				EnvVars: []string{"AZCLASSIFY_SUBSCRIPTIONS_API_VERSION"},
			},
			&cli.StringFlag{
				Name:    "billing-api-version",
				Value:   arm.DefaultBillingAPIVersion,
				Usage:   "api-version for the billing account and customer endpoints",
				EnvVars: []string{"AZCLASSIFY_BILLING_API_VERSION"},
			},
			&cli.StringFlag{
				Name:    "lots-api-version",
				Value:   arm.DefaultLotsAPIVersion,
				Usage:   "api-version for the consumption lots endpoint",
				EnvVars: []string{"AZCLASSIFY_LOTS_API_VERSION"},
			},
			&cli.BoolFlag{
				Name:    "details",
				Value:   true,
				Usage:   "Print the per-subscription table in the console summary",
				EnvVars: []string{"AZCLASSIFY_DETAILS"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Console output format (table, json)",
			},
			&cli.StringFlag{
				Name:    "export",
				Value:   "none",
				Usage:   "Additional export sink (none, clickhouse, postgres)",
				EnvVars: []string{"AZCLASSIFY_EXPORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Value:   "localhost",
				Usage:   "ClickHouse host",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Value:   9000,
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Value:   "billing",
				Usage:   "ClickHouse database",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Value:   "default",
				Usage:   "ClickHouse user",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Value:   "",
				Usage:   "ClickHouse password",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "postgres-dsn",
				Usage:   "Postgres DSN for the postgres export sink",
				EnvVars: []string{"AZCLASSIFY_POSTGRES_DSN"},
			},
		},
		Action: runClassify,
	}
}

func runClassify(c *cli.Context) error {
	log := platform.InitLogger(c.String("log-level"))
	ctx := context.Background()
	runID := uuid.New()

	token := platform.GetEnv("AZURE_ACCESS_TOKEN", "")
	if token == "" {
		log.Warn().Msg("AZURE_ACCESS_TOKEN is not set; API calls will be unauthenticated")
	}

	client := arm.NewClient(arm.Config{
		Token:                   token,
		SubscriptionsAPIVersion: c.String("subscriptions-api-version"),
		BillingAPIVersion:       c.String("billing-api-version"),
		LotsAPIVersion:          c.String("lots-api-version"),
		Logger:                  log,
	})

	subs, err := client.ListSubscriptions(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: cannot list subscriptions: %v", err), ExitNoSubscriptions)
	}
	if len(subs) == 0 {
		return cli.Exit("Error: no subscriptions visible to the current identity", ExitNoSubscriptions)
	}
	log.Info().Int("subscriptions", len(subs)).Str("run_id", runID.String()).Msg("classifying subscriptions")

	engine := classify.NewEngine(client, log)
	records := engine.Classify(ctx, subs)
	balances := engine.CommitmentBalances()

	outputPath := c.String("output")
	if err := writeCSVFile(outputPath, records); err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), ExitUsage)
	}
	log.Info().Str("path", outputPath).Msg("CSV report written")

	switch c.String("format") {
	case "json":
		if err := outputJSON(records, balances); err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), ExitUsage)
		}
	case "table":
		report.RenderConsole(os.Stdout, records, balances, c.Bool("details"))
	default:
		return cli.Exit(fmt.Sprintf("Error: unknown format %q", c.String("format")), ExitUsage)
	}

	if err := exportRecords(ctx, c, log, runID, records); err != nil {
		return cli.Exit(fmt.Sprintf("Error: export failed: %v", err), ExitUsage)
	}

	return nil
}

func writeCSVFile(path string, records []classify.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := report.WriteCSV(f, records); err != nil {
		return err
	}
	return f.Close()
}

func exportRecords(ctx context.Context, c *cli.Context, log zerolog.Logger, runID uuid.UUID, records []classify.Record) error {
	var (
		sink store.Sink
		err  error
	)
	switch c.String("export") {
	case "", "none":
		return nil
	case "clickhouse":
		sink, err = store.NewClickHouseSink(ctx, store.ClickHouseConfig{
			Host:     c.String("clickhouse-host"),
			Port:     c.Int("clickhouse-port"),
			Database: c.String("clickhouse-database"),
			Username: c.String("clickhouse-user"),
			Password: c.String("clickhouse-password"),
		})
	case "postgres":
		sink, err = store.NewPostgresSink(ctx, c.String("postgres-dsn"))
	default:
		return fmt.Errorf("unknown export sink %q", c.String("export"))
	}
	if err != nil {
		return err
	}
	defer sink.Close()

	if err := sink.WriteRecords(ctx, runID, records); err != nil {
		return err
	}
	log.Info().Str("sink", c.String("export")).Int("rows", len(records)).Msg("classification rows exported")
	return nil
}

// JSONOutput is the --format json console payload.
type JSONOutput struct {
	Total                 int               `json:"total"`
	ByAgreementType       map[string]int    `json:"by_agreement_type"`
	CSPCount              int               `json:"csp_count"`
	MACCCount             int               `json:"macc_count"`
	UnknownAgreementCount int               `json:"unknown_agreement_count"`
	RemainingCommitments  map[string]string `json:"remaining_commitments,omitempty"`
	Records               []JSONRecord      `json:"records"`
}

// JSONRecord mirrors one CSV row.
type JSONRecord struct {
	SubscriptionName string   `json:"subscription_name"`
	SubscriptionID   string   `json:"subscription_id"`
	OfferType        string   `json:"offer_type,omitempty"`
	AgreementType    string   `json:"agreement_type,omitempty"`
	IsCSP            bool     `json:"is_csp"`
	CSPEvidence      []string `json:"csp_evidence,omitempty"`
	HasMACC          string   `json:"has_macc"`
	BillingAccountID string   `json:"billing_account_id,omitempty"`
	BillingScopeID   string   `json:"billing_scope_id,omitempty"`
}

func outputJSON(records []classify.Record, balances map[string]decimal.Decimal) error {
	summary := report.Summarize(records)
	output := JSONOutput{
		Total:                 summary.Total,
		ByAgreementType:       summary.ByAgreementType,
		CSPCount:              summary.CSPCount,
		MACCCount:             summary.MACCCount,
		UnknownAgreementCount: summary.UnknownAgreementCount,
		Records:               make([]JSONRecord, 0, len(records)),
	}
	if len(balances) > 0 {
		output.RemainingCommitments = make(map[string]string, len(balances))
		for account, balance := range balances {
			output.RemainingCommitments[account] = balance.StringFixed(2)
		}
	}

	sorted := make([]classify.Record, len(records))
	copy(sorted, records)
	report.SortRecords(sorted)
	for _, rec := range sorted {
		output.Records = append(output.Records, JSONRecord{
			SubscriptionName: rec.SubscriptionName,
			SubscriptionID:   rec.SubscriptionID,
			OfferType:        rec.OfferType,
			AgreementType:    rec.AgreementType,
			IsCSP:            rec.IsCSP,
			CSPEvidence:      rec.CSPEvidence,
			HasMACC:          rec.HasMACC.String(),
			BillingAccountID: rec.BillingAccountID,
			BillingScopeID:   rec.BillingScopeID,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

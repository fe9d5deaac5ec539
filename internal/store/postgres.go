package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"billing-classify/internal/classify"
)

// PostgresSink writes classification rows through database/sql with the
// pq driver.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink opens a connection from a postgres:// DSN and verifies
// connectivity.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

// WriteRecords inserts all rows in one transaction.
func (s *PostgresSink) WriteRecords(ctx context.Context, runID uuid.UUID, records []classify.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO subscription_classifications (
			run_id, subscription_name, subscription_id, offer_type,
			agreement_type, is_csp, csp_evidence, has_macc,
			billing_account_id, billing_scope_id, classified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			runID.String(),
			rec.SubscriptionName,
			rec.SubscriptionID,
			rec.OfferType,
			rec.AgreementType,
			rec.IsCSP,
			strings.Join(rec.CSPEvidence, "; "),
			rec.HasMACC.String(),
			rec.BillingAccountID,
			rec.BillingScopeID,
		)
		if err != nil {
			return fmt.Errorf("inserting classification for %s: %w", rec.SubscriptionID, err)
		}
	}
	return tx.Commit()
}

// Close closes the pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

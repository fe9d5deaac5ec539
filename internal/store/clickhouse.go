package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"billing-classify/internal/classify"
)

// ClickHouseConfig holds ClickHouse connection configuration.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// ClickHouseSink writes classification rows into the
// subscription_classifications table.
type ClickHouseSink struct {
	conn clickhouse.Conn
}

// NewClickHouseSink connects to ClickHouse and verifies connectivity.
func NewClickHouseSink(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	sink := &ClickHouseSink{conn: conn}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ClickHouse ping failed: %w", err)
	}
	return sink, nil
}

// WriteRecords inserts one row per record.
func (s *ClickHouseSink) WriteRecords(ctx context.Context, runID uuid.UUID, records []classify.Record) error {
	query := `
		INSERT INTO subscription_classifications (
			run_id, subscription_name, subscription_id, offer_type,
			agreement_type, is_csp, csp_evidence, has_macc,
			billing_account_id, billing_scope_id, classified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	for _, rec := range records {
		err := s.conn.Exec(ctx, query,
			runID,
			rec.SubscriptionName,
			rec.SubscriptionID,
			rec.OfferType,
			rec.AgreementType,
			boolToUInt8(rec.IsCSP),
			strings.Join(rec.CSPEvidence, "; "),
			rec.HasMACC.String(),
			rec.BillingAccountID,
			rec.BillingScopeID,
			now,
		)
		if err != nil {
			return fmt.Errorf("inserting classification for %s: %w", rec.SubscriptionID, err)
		}
	}
	return nil
}

// Close closes the connection.
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

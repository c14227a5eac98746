package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/tender-guardian/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// Check if we can query
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Sealed bids: append-only, no UPDATE or DELETE path exists in the code
		CREATE TABLE IF NOT EXISTS sealed_bids (
			tender_id VARCHAR(255) NOT NULL,
			bidder_id VARCHAR(64) NOT NULL,
			bid_hash VARCHAR(128) NOT NULL,
			iv BYTEA NOT NULL,
			encrypted_payload BYTEA NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			status VARCHAR(50) NOT NULL,
			PRIMARY KEY (tender_id, bidder_id)
		);

		-- Tenders: tender_id is intentionally not unique; duplicate creations
		-- coexist and sweeps key idempotency on the id value instead
		CREATE TABLE IF NOT EXISTS tenders (
			id BIGSERIAL PRIMARY KEY,
			tender_id VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			requirements TEXT NOT NULL,
			budget DECIMAL(16, 2),
			deadline TIMESTAMPTZ,
			update_content TEXT NOT NULL,
			updated_by VARCHAR(100) NOT NULL,
			update_hash VARCHAR(64) NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			status VARCHAR(50) NOT NULL
		);

		-- Automation events: the partial unique index is the storage-level
		-- idempotency guard for gated event types
		CREATE TABLE IF NOT EXISTS automation_events (
			id UUID PRIMARY KEY,
			subject_id VARCHAR(255) NOT NULL,
			event_type VARCHAR(100) NOT NULL,
			payload JSONB,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS uq_automation_events_gated
			ON automation_events(subject_id, event_type)
			WHERE event_type IN ('AUTO_COMPLIANCE_CHECK');

		-- Indexes for performance
		CREATE INDEX IF NOT EXISTS idx_sealed_bids_timestamp ON sealed_bids(timestamp);
		CREATE INDEX IF NOT EXISTS idx_sealed_bids_tender_id ON sealed_bids(tender_id);
		CREATE INDEX IF NOT EXISTS idx_tenders_tender_id ON tenders(tender_id);
		CREATE INDEX IF NOT EXISTS idx_tenders_deadline ON tenders(deadline);
		CREATE INDEX IF NOT EXISTS idx_tenders_timestamp ON tenders(timestamp);
		CREATE INDEX IF NOT EXISTS idx_automation_events_subject ON automation_events(subject_id, event_type);
		CREATE INDEX IF NOT EXISTS idx_automation_events_timestamp ON automation_events(timestamp);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}

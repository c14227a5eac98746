package postgres

import (
	"context"
	"time"

	"github.com/upb/tender-guardian/models"
	"github.com/upb/tender-guardian/repositories"
	"github.com/upb/tender-guardian/services"
	"go.uber.org/zap"
)

// SealedBidRepository implements the repositories.SealedBidRepository interface
type SealedBidRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSealedBidRepository creates a new sealed bid repository
func NewSealedBidRepository(db *DB, logger *zap.Logger) repositories.SealedBidRepository {
	return &SealedBidRepository{
		db:     db,
		logger: logger,
	}
}

// Insert persists a sealed bid record. This is the durability boundary for
// the sealing operation.
func (r *SealedBidRepository) Insert(ctx context.Context, bid *models.SealedBid) error {
	query := `
		INSERT INTO sealed_bids (
			tender_id, bidder_id, bid_hash, iv, encrypted_payload, timestamp, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		bid.TenderID,
		bid.BidderID,
		bid.BidHash,
		bid.IV,
		bid.EncryptedPayload,
		bid.Timestamp,
		bid.Status,
	)
	if err != nil {
		return services.WrapStore("failed to insert sealed bid", err)
	}

	r.logger.Debug("sealed bid inserted",
		zap.String("tender_id", bid.TenderID),
		zap.String("bidder_id", bid.BidderID))
	return nil
}

// ListProjection retrieves the payload-free audit projection. The query never
// selects iv or encrypted_payload.
func (r *SealedBidRepository) ListProjection(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	query := `
		SELECT tender_id, bid_hash, timestamp, bidder_id, status
		FROM sealed_bids
		ORDER BY timestamp DESC
		LIMIT $1
	`

	return r.queryProjection(ctx, query, limit)
}

// ListByTender retrieves the projection of all bids for a tender
func (r *SealedBidRepository) ListByTender(ctx context.Context, tenderID string) ([]models.AuditEntry, error) {
	query := `
		SELECT tender_id, bid_hash, timestamp, bidder_id, status
		FROM sealed_bids
		WHERE tender_id = $1
		ORDER BY timestamp DESC
	`

	return r.queryProjection(ctx, query, tenderID)
}

// CountTotal returns the number of sealed bids
func (r *SealedBidRepository) CountTotal(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM sealed_bids`)
}

// CountSince returns the number of bids sealed at or after the given instant
func (r *SealedBidRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM sealed_bids WHERE timestamp >= $1`, since)
}

// queryProjection is a helper method to query audit entries
func (r *SealedBidRepository) queryProjection(ctx context.Context, query string, args ...interface{}) ([]models.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.WrapStore("failed to query sealed bids", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		err := rows.Scan(
			&entry.TenderID,
			&entry.BidHash,
			&entry.Timestamp,
			&entry.BidderID,
			&entry.Status,
		)
		if err != nil {
			return nil, services.WrapStore("failed to scan sealed bid", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, services.WrapStore("error iterating sealed bid rows", err)
	}

	return entries, nil
}

func (r *SealedBidRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, services.WrapStore("failed to count sealed bids", err)
	}
	return count, nil
}

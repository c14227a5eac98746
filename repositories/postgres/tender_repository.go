package postgres

import (
	"context"
	"time"

	"github.com/upb/tender-guardian/models"
	"github.com/upb/tender-guardian/repositories"
	"github.com/upb/tender-guardian/services"
	"go.uber.org/zap"
)

// TenderRepository implements the repositories.TenderRepository interface
type TenderRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTenderRepository creates a new tender repository
func NewTenderRepository(db *DB, logger *zap.Logger) repositories.TenderRepository {
	return &TenderRepository{
		db:     db,
		logger: logger,
	}
}

// Insert persists a tender record
func (r *TenderRepository) Insert(ctx context.Context, tender *models.Tender) error {
	query := `
		INSERT INTO tenders (
			tender_id, description, requirements, budget, deadline,
			update_content, updated_by, update_hash, timestamp, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		tender.TenderID,
		tender.Description,
		tender.Requirements,
		tender.Budget,
		tender.Deadline,
		tender.UpdateContent,
		tender.UpdatedBy,
		tender.UpdateHash,
		tender.Timestamp,
		tender.Status,
	)
	if err != nil {
		return services.WrapStore("failed to insert tender", err)
	}

	r.logger.Debug("tender inserted",
		zap.String("tender_id", tender.TenderID),
		zap.String("update_hash", tender.UpdateHash))
	return nil
}

// ListWithDeadlineBefore retrieves open tenders whose deadline has passed.
// Tenders without a deadline never expire and are excluded.
func (r *TenderRepository) ListWithDeadlineBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.Tender, error) {
	query := `
		SELECT tender_id, description, requirements, budget, deadline,
		       update_content, updated_by, update_hash, timestamp, status
		FROM tenders
		WHERE deadline IS NOT NULL AND deadline < $1
		ORDER BY deadline ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, services.WrapStore("failed to query expired tenders", err)
	}
	defer rows.Close()

	var tenders []*models.Tender
	for rows.Next() {
		tender := &models.Tender{}
		err := rows.Scan(
			&tender.TenderID,
			&tender.Description,
			&tender.Requirements,
			&tender.Budget,
			&tender.Deadline,
			&tender.UpdateContent,
			&tender.UpdatedBy,
			&tender.UpdateHash,
			&tender.Timestamp,
			&tender.Status,
		)
		if err != nil {
			return nil, services.WrapStore("failed to scan tender", err)
		}
		tenders = append(tenders, tender)
	}

	if err := rows.Err(); err != nil {
		return nil, services.WrapStore("error iterating tender rows", err)
	}

	return tenders, nil
}

// CountTotal returns the number of tender records
func (r *TenderRepository) CountTotal(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM tenders`)
}

// CountSince returns the number of tenders created at or after the given instant
func (r *TenderRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM tenders WHERE timestamp >= $1`, since)
}

func (r *TenderRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, services.WrapStore("failed to count tenders", err)
	}
	return count, nil
}

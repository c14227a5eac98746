package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/upb/tender-guardian/models"
)

// SealedBidRepository handles append-only sealed-bid persistence.
// Records are never updated or deleted after insert.
type SealedBidRepository interface {
	// Insert persists a sealed bid. The caller must not report success to the
	// submitter until this returns.
	Insert(ctx context.Context, bid *models.SealedBid) error

	// ListProjection retrieves the payload-free audit projection, ordered by
	// timestamp descending, capped at limit.
	ListProjection(ctx context.Context, limit int) ([]models.AuditEntry, error)

	// ListByTender retrieves all bids for a tender (projection only)
	ListByTender(ctx context.Context, tenderID string) ([]models.AuditEntry, error)

	// CountTotal returns the number of sealed bids
	CountTotal(ctx context.Context) (int, error)

	// CountSince returns the number of bids sealed at or after the given instant
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// TenderRepository handles append-only tender persistence
type TenderRepository interface {
	// Insert persists a tender record. TenderID uniqueness is deliberately not
	// enforced; duplicate creations coexist.
	Insert(ctx context.Context, tender *models.Tender) error

	// ListWithDeadlineBefore retrieves tenders whose deadline has passed,
	// capped at limit. Tenders without a deadline are never returned.
	ListWithDeadlineBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.Tender, error)

	// CountTotal returns the number of tender records
	CountTotal(ctx context.Context) (int, error)

	// CountSince returns the number of tenders created at or after the given instant
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// EventRepository handles the automation event ledger
type EventRepository interface {
	// Insert appends an event unconditionally (log-style event types)
	Insert(ctx context.Context, event *models.AutomationEvent) error

	// InsertIfAbsent appends an event only when no event with the same
	// (subjectId, eventType) exists. Returns true when this call claimed the
	// key. Atomic at the storage layer, so concurrent claimants cannot both
	// succeed.
	InsertIfAbsent(ctx context.Context, event *models.AutomationEvent) (bool, error)

	// Find retrieves the event for (subjectId, eventType), or nil when absent.
	// Observes a causal-consistent view of prior inserts by this process.
	Find(ctx context.Context, subjectID string, eventType models.EventType) (*models.AutomationEvent, error)

	// UpdatePayload fills in the attempt detail of a previously claimed event.
	// Only the payload column changes; identity and timestamp are immutable.
	UpdatePayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error

	// CountTotal returns the number of automation events
	CountTotal(ctx context.Context) (int, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	SealedBids SealedBidRepository
	Tenders    TenderRepository
	Events     EventRepository
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/upb/tender-guardian/models"
	"github.com/upb/tender-guardian/repositories"
	"github.com/upb/tender-guardian/services"
	"go.uber.org/zap"
)

// EventRepository implements the repositories.EventRepository interface
type EventRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewEventRepository creates a new automation event repository
func NewEventRepository(db *DB, logger *zap.Logger) repositories.EventRepository {
	return &EventRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends an event unconditionally
func (r *EventRepository) Insert(ctx context.Context, event *models.AutomationEvent) error {
	query := `
		INSERT INTO automation_events (id, subject_id, event_type, payload, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.SubjectID,
		event.EventType,
		event.Payload,
		event.Timestamp,
	)
	if err != nil {
		return services.WrapStore("failed to insert automation event", err)
	}

	r.logger.Debug("automation event inserted",
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.EventType)))
	return nil
}

// InsertIfAbsent appends an event only when no event with the same
// (subject_id, event_type) exists. The partial unique index makes the claim
// atomic: of two concurrent claimants exactly one sees claimed=true.
func (r *EventRepository) InsertIfAbsent(ctx context.Context, event *models.AutomationEvent) (bool, error) {
	query := `
		INSERT INTO automation_events (id, subject_id, event_type, payload, timestamp)
		SELECT $1, $2, $3, $4, $5
		WHERE NOT EXISTS (
			SELECT 1 FROM automation_events WHERE subject_id = $2 AND event_type = $3
		)
		ON CONFLICT DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.SubjectID,
		event.EventType,
		event.Payload,
		event.Timestamp,
	)
	if err != nil {
		return false, services.WrapStore("failed to claim automation event", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, services.WrapStore("failed to read claim result", err)
	}

	claimed := rows > 0
	r.logger.Debug("automation event claim",
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.EventType)),
		zap.Bool("claimed", claimed))
	return claimed, nil
}

// Find retrieves the event for (subject_id, event_type), or nil when absent
func (r *EventRepository) Find(ctx context.Context, subjectID string, eventType models.EventType) (*models.AutomationEvent, error) {
	query := `
		SELECT id, subject_id, event_type, payload, timestamp
		FROM automation_events
		WHERE subject_id = $1 AND event_type = $2
		ORDER BY timestamp ASC
		LIMIT 1
	`

	event := &models.AutomationEvent{}
	err := r.db.QueryRowContext(ctx, query, subjectID, eventType).Scan(
		&event.ID,
		&event.SubjectID,
		&event.EventType,
		&event.Payload,
		&event.Timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, services.WrapStore("failed to find automation event", err)
	}

	return event, nil
}

// UpdatePayload fills in the attempt detail of a previously claimed event
func (r *EventRepository) UpdatePayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	query := `UPDATE automation_events SET payload = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, payload)
	if err != nil {
		return services.WrapStore("failed to update automation event payload", err)
	}
	return nil
}

// CountTotal returns the number of automation events
func (r *EventRepository) CountTotal(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM automation_events`).Scan(&count); err != nil {
		return 0, services.WrapStore("failed to count automation events", err)
	}
	return count, nil
}

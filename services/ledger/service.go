package ledger

import (
	"context"
	"encoding/json"

	"github.com/upb/tender-guardian/models"
	"github.com/upb/tender-guardian/repositories"
	"github.com/upb/tender-guardian/services"
	"go.uber.org/zap"
)

// Action produces the payload recorded against a claimed ledger entry.
type Action func(ctx context.Context) (interface{}, error)

// Service is the append-only event ledger. Every automated action leaves an
// entry; gated event types additionally run at most once per subject.
type Service struct {
	events repositories.EventRepository
	logger *zap.Logger
}

// NewService creates a new ledger service
func NewService(events repositories.EventRepository, logger *zap.Logger) *Service {
	return &Service{
		events: events,
		logger: logger,
	}
}

// Record appends an event unconditionally. The entry means the action was
// attempted, not that it succeeded.
func (s *Service) Record(ctx context.Context, subjectID string, eventType models.EventType, payload interface{}) error {
	event := models.NewAutomationEvent(subjectID, eventType)

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return services.WrapError(services.ErrorTypeInternal, "failed to encode event payload", err)
		}
		event.Payload = raw
	}

	if err := s.events.Insert(ctx, event); err != nil {
		return err
	}

	s.logger.Info("ledger event recorded",
		zap.String("subject_id", subjectID),
		zap.String("event_type", string(eventType)))
	return nil
}

// RunOnce executes action at most once per (subjectId, eventType) pair.
// The ledger entry is claimed before the action runs, so two concurrent
// callers never both execute it. The claim stands even when the action
// fails: an entry means attempted, and failed attempts are not retried.
//
// Returns whether this caller won the claim, and the action's error if it ran.
func (s *Service) RunOnce(ctx context.Context, subjectID string, eventType models.EventType, action Action) (bool, error) {
	event := models.NewAutomationEvent(subjectID, eventType)

	claimed, err := s.events.InsertIfAbsent(ctx, event)
	if err != nil {
		return false, err
	}
	if !claimed {
		s.logger.Debug("ledger entry already present, skipping",
			zap.String("subject_id", subjectID),
			zap.String("event_type", string(eventType)))
		return false, nil
	}

	result, actionErr := action(ctx)
	if actionErr != nil {
		s.logger.Warn("ledger action failed, entry stands",
			zap.String("subject_id", subjectID),
			zap.String("event_type", string(eventType)),
			zap.Error(actionErr))
	}

	payload := s.encodeOutcome(subjectID, eventType, result, actionErr)
	if payload != nil {
		if err := s.events.UpdatePayload(ctx, event.ID, payload); err != nil {
			s.logger.Error("failed to record ledger action outcome",
				zap.String("subject_id", subjectID),
				zap.String("event_type", string(eventType)),
				zap.Error(err))
		}
	}

	return true, actionErr
}

// Ran reports whether a gated action already holds a claim for the subject.
func (s *Service) Ran(ctx context.Context, subjectID string, eventType models.EventType) (bool, error) {
	event, err := s.events.Find(ctx, subjectID, eventType)
	if err != nil {
		return false, err
	}
	return event != nil, nil
}

func (s *Service) encodeOutcome(subjectID string, eventType models.EventType, result interface{}, actionErr error) json.RawMessage {
	var payload interface{}
	switch {
	case actionErr != nil:
		payload = map[string]string{"error": actionErr.Error()}
	case result != nil:
		payload = result
	default:
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode ledger action outcome",
			zap.String("subject_id", subjectID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
		return nil
	}
	return raw
}

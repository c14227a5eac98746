package tender

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/tender-guardian/models"
	"github.com/upb/tender-guardian/repositories"
	"github.com/upb/tender-guardian/seal"
	"github.com/upb/tender-guardian/services"
	"github.com/upb/tender-guardian/services/automation"
	"github.com/upb/tender-guardian/services/ledger"
	"go.uber.org/zap"
)

// TaskQueue accepts deferred work
type TaskQueue interface {
	Enqueue(task *automation.Task) error
}

// CreateRequest describes a tender to publish
type CreateRequest struct {
	TenderID     string     `json:"tenderId" validate:"required"`
	Description  string     `json:"description" validate:"required"`
	Requirements string     `json:"requirements" validate:"required"`
	Budget       *float64   `json:"budget,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

// CreateResult is the public acknowledgement of a tender creation
type CreateResult struct {
	Success    bool      `json:"success"`
	UpdateHash string    `json:"updateHash"`
	Timestamp  time.Time `json:"timestamp"`
}

// Service publishes tender records. Records are append-only: a repeated
// tender id creates another record rather than updating the first.
type Service struct {
	tenders repositories.TenderRepository
	queue   TaskQueue
	ledger  *ledger.Service
	logger  *zap.Logger
}

// NewService creates a new tender service
func NewService(tenders repositories.TenderRepository, queue TaskQueue, ledgerSvc *ledger.Service, logger *zap.Logger) *Service {
	return &Service{
		tenders: tenders,
		queue:   queue,
		ledger:  ledgerSvc,
		logger:  logger,
	}
}

// Create persists a tender record and defers the creation event.
// The update hash fingerprints the identifying metadata, so any later
// variation of description or requirements is detectable.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.TenderID == "" {
		return nil, services.ErrEmptyTenderID
	}
	if req.Description == "" || req.Requirements == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			"description and requirements are required", nil)
	}

	hash := seal.Fingerprint(models.HashInput(req.TenderID, req.Description, req.Requirements))

	tender := models.NewTender(req.TenderID, req.Description, req.Requirements, hash)
	if req.Budget != nil {
		tender.WithBudget(*req.Budget)
	}
	if req.Deadline != nil {
		tender.WithDeadline(*req.Deadline)
	}

	if err := s.tenders.Insert(ctx, tender); err != nil {
		return nil, err
	}

	s.logger.Info("tender created",
		zap.String("tender_id", tender.TenderID),
		zap.String("update_hash", hash))

	s.enqueueCreatedEvent(tender.TenderID, tender.Description, hash)

	return &CreateResult{
		Success:    true,
		UpdateHash: hash,
		Timestamp:  tender.Timestamp,
	}, nil
}

// enqueueCreatedEvent defers the TENDER_CREATED ledger entry. A full queue
// drops the entry; the tender record itself is already durable.
func (s *Service) enqueueCreatedEvent(tenderID, description, hash string) {
	task := &automation.Task{
		Name: fmt.Sprintf("tender-created/%s", tenderID),
		Run: func(ctx context.Context) error {
			return s.ledger.Record(ctx, tenderID, models.EventTypeTenderCreated, map[string]string{
				"description": description,
				"hash":        hash,
			})
		},
	}

	if err := s.queue.Enqueue(task); err != nil {
		s.logger.Warn("tender created event dropped",
			zap.String("tender_id", tenderID),
			zap.Error(err))
	}
}

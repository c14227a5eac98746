package sealing

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
	"github.com/upb/tender-guardian/services/mailer"
	"go.uber.org/zap"
)

// TaskQueue accepts deferred work. The sealing path enqueues the bidder
// notification here so the HTTP response never waits on mail delivery.
type TaskQueue interface {
	Enqueue(task *automation.Task) error
}

// SealResult is what the submitter gets back: proof of submission without
// any of the plaintext or ciphertext.
type SealResult struct {
	TenderID  string    `json:"tenderId"`
	BidderID  string    `json:"bidderId"`
	BidHash   string    `json:"bidHash"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

// Service seals bid documents: encrypts the payload, persists the record,
// and defers the bidder notification.
type Service struct {
	sealer     *seal.Sealer
	bids       repositories.SealedBidRepository
	queue      TaskQueue
	mail       mailer.Mailer
	ledger     *ledger.Service
	notifyTo   string
	maxPayload int64
	logger     *zap.Logger
}

// NewService creates a new sealing service. sealer may be nil when no seal
// key is configured; Seal then fails with a configuration error.
func NewService(sealer *seal.Sealer, bids repositories.SealedBidRepository, queue TaskQueue, mail mailer.Mailer, ledgerSvc *ledger.Service, notifyTo string, maxPayload int64, logger *zap.Logger) *Service {
	return &Service{
		sealer:     sealer,
		bids:       bids,
		queue:      queue,
		mail:       mail,
		ledger:     ledgerSvc,
		notifyTo:   notifyTo,
		maxPayload: maxPayload,
		logger:     logger,
	}
}

// Seal encrypts and persists a bid document. The record is durable before
// this returns; the bidder notification happens afterwards in the
// background and its outcome never reaches the submitter.
func (s *Service) Seal(ctx context.Context, tenderID string, document []byte) (*SealResult, error) {
	if tenderID == "" {
		return nil, services.ErrEmptyTenderID
	}
	if len(document) == 0 {
		return nil, services.ErrEmptyDocument
	}
	if s.maxPayload > 0 && int64(len(document)) > s.maxPayload {
		return nil, services.NewDomainError(services.ErrorTypePayloadTooLarge,
			"bid document exceeds maximum size", nil).
			WithDetail("max_bytes", s.maxPayload)
	}
	if s.sealer == nil {
		return nil, services.ErrSealingKeyMissing
	}

	ciphertext, iv, digest, err := s.sealer.Seal(document)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeInternal, "failed to seal document", err)
	}

	bid := models.NewSealedBid(tenderID, digest, iv, ciphertext)

	if err := s.bids.Insert(ctx, bid); err != nil {
		return nil, err
	}

	s.logger.Info("bid sealed",
		zap.String("tender_id", bid.TenderID),
		zap.String("bidder_id", bid.BidderID),
		zap.Int("payload_bytes", len(document)))

	s.enqueueNotification(bid)

	return &SealResult{
		TenderID:  bid.TenderID,
		BidderID:  bid.BidderID,
		BidHash:   bid.BidHash,
		Timestamp: bid.Timestamp,
		Status:    string(bid.Status),
	}, nil
}

// enqueueNotification defers the bid-sealed confirmation. A full queue
// drops the notification; the sealed record is already durable.
func (s *Service) enqueueNotification(bid *models.SealedBid) {
	tenderID := bid.TenderID
	bidderID := bid.BidderID
	bidHash := bid.BidHash
	timestamp := bid.Timestamp

	task := &automation.Task{
		Name: fmt.Sprintf("bid-sealed-notification/%s", tenderID),
		Run: func(ctx context.Context) error {
			s.notifyBidSealed(ctx, tenderID, bidderID, bidHash, timestamp)
			return nil
		},
	}

	if err := s.queue.Enqueue(task); err != nil {
		s.logger.Warn("bid notification dropped",
			zap.String("tender_id", tenderID),
			zap.String("bidder_id", bidderID),
			zap.Error(err))
	}
}

// notifyBidSealed sends the confirmation and records the attempt in the
// ledger. The ledger entry means attempted whether or not delivery worked.
func (s *Service) notifyBidSealed(ctx context.Context, tenderID, bidderID, bidHash string, timestamp time.Time) {
	if s.notifyTo != "" {
		subject, body, htmlBody := mailer.BidSealedMessage(tenderID, bidderID, bidHash, timestamp)
		delivered := s.mail.Send(ctx, s.notifyTo, subject, body, htmlBody)
		if !delivered {
			s.logger.Warn("bid sealed notification delivery failed",
				zap.String("tender_id", tenderID),
				zap.String("bidder_id", bidderID))
		}
	}

	err := s.ledger.Record(ctx, tenderID, models.EventTypeBidSealedNotification, map[string]string{
		"bidder_id": bidderID,
	})
	if err != nil {
		s.logger.Error("failed to record bid sealed notification",
			zap.String("tender_id", tenderID),
			zap.Error(err))
	}
}

package audit

import (
	"context"
	"time"

	"github.com/upb/tender-guardian/models"
	"github.com/upb/tender-guardian/repositories"
	"go.uber.org/zap"
)

// AuditLogLimit caps the number of entries returned by the audit log
const AuditLogLimit = 1000

// Stats summarizes system activity. Last24hBids counts bids sealed since
// UTC midnight of the current day.
type Stats struct {
	TotalBids        int `json:"total_bids"`
	TotalTenders     int `json:"total_tenders"`
	AutomationEvents int `json:"automation_events"`
	Last24hBids      int `json:"last_24h_bids"`
}

// Service exposes read-only views over the sealed-bid store: the audit log
// and activity statistics. It never reads ciphertext or ivs.
type Service struct {
	bids    repositories.SealedBidRepository
	tenders repositories.TenderRepository
	events  repositories.EventRepository
	logger  *zap.Logger
}

// NewService creates a new audit view service
func NewService(bids repositories.SealedBidRepository, tenders repositories.TenderRepository, events repositories.EventRepository, logger *zap.Logger) *Service {
	return &Service{
		bids:    bids,
		tenders: tenders,
		events:  events,
		logger:  logger,
	}
}

// GetAuditLog returns the payload-free projection of all sealed bids,
// newest first, capped at AuditLogLimit entries.
func (s *Service) GetAuditLog(ctx context.Context) ([]models.AuditEntry, error) {
	entries, err := s.bids.ListProjection(ctx, AuditLogLimit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	return entries, nil
}

// GetStats returns activity counters across all three stores
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	totalBids, err := s.bids.CountTotal(ctx)
	if err != nil {
		return nil, err
	}
	totalTenders, err := s.tenders.CountTotal(ctx)
	if err != nil {
		return nil, err
	}
	totalEvents, err := s.events.CountTotal(ctx)
	if err != nil {
		return nil, err
	}

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	recentBids, err := s.bids.CountSince(ctx, midnight)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalBids:        totalBids,
		TotalTenders:     totalTenders,
		AutomationEvents: totalEvents,
		Last24hBids:      recentBids,
	}, nil
}

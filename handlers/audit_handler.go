package handlers

import (
	"net/http"

	"github.com/upb/tender-guardian/services/audit"
	"github.com/upb/tender-guardian/utils"
	"go.uber.org/zap"
)

// AuditHandler serves the audit log and activity statistics
type AuditHandler struct {
	service *audit.Service
	logger  *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service *audit.Service, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  logger,
	}
}

// HandleAuditLog handles GET /api/v1/audit
func (h *AuditHandler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetAuditLog(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, entries)
}

// HandleStats handles GET /api/v1/stats
func (h *AuditHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, stats)
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/upb/tender-guardian/services/compliance"
	"github.com/upb/tender-guardian/utils"
	"go.uber.org/zap"
)

// ComplianceHandler handles on-demand compliance checks
type ComplianceHandler struct {
	service *compliance.Service
	logger  *zap.Logger
}

// NewComplianceHandler creates a new ComplianceHandler
func NewComplianceHandler(service *compliance.Service, logger *zap.Logger) *ComplianceHandler {
	return &ComplianceHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCheck handles POST /api/v1/compliance
func (h *ComplianceHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	var req compliance.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "invalid JSON body", nil)
		return
	}

	result, err := h.service.Check(r.Context(), req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, result)
}

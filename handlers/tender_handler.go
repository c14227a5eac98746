package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/upb/tender-guardian/services/tender"
	"github.com/upb/tender-guardian/utils"
	"go.uber.org/zap"
)

// TenderHandler handles tender publication requests
type TenderHandler struct {
	service *tender.Service
	logger  *zap.Logger
}

// NewTenderHandler creates a new TenderHandler
func NewTenderHandler(service *tender.Service, logger *zap.Logger) *TenderHandler {
	return &TenderHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCreate handles POST /api/v1/tender
func (h *TenderHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req tender.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "invalid JSON body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		details := make(map[string]interface{})
		for field, msg := range utils.GetValidationFields(err) {
			details[field] = msg
		}
		_ = utils.WriteBadRequest(w, "Validation failed", details)
		return
	}

	result, err := h.service.Create(r.Context(), req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, result)
}

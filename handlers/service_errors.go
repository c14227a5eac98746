package handlers

import (
	"net/http"

	"github.com/upb/tender-guardian/services"
	"github.com/upb/tender-guardian/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses.
// Handlers stay thin: decode, call the service, hand errors here.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	switch {
	case services.IsValidationError(err), services.IsPayloadTooLargeError(err):
		logger.Debug("request rejected", zap.Error(err))
	case services.IsStoreUnavailableError(err), services.IsExternalError(err):
		logger.Warn("dependency failure", zap.Error(err))
	default:
		logger.Error("request failed", zap.Error(err))
	}

	if writeErr := utils.WriteDomainError(w, err); writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

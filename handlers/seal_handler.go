package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/upb/tender-guardian/services"
	"github.com/upb/tender-guardian/services/sealing"
	"github.com/upb/tender-guardian/utils"
	"go.uber.org/zap"
)

// multipartOverhead is slack on top of the document bound for the
// multipart framing and the tender_id field
const multipartOverhead = 1 << 20

// SealBidResponse is the acknowledgement returned to the submitter
type SealBidResponse struct {
	Success   bool      `json:"success"`
	BidHash   string    `json:"bidHash"`
	Message   string    `json:"message"`
	BidderID  string    `json:"bidderId"`
	Timestamp time.Time `json:"timestamp"`
	Automated bool      `json:"automated"`
}

// SealHandler handles bid sealing requests
type SealHandler struct {
	service    *sealing.Service
	maxPayload int64
	logger     *zap.Logger
}

// NewSealHandler creates a new SealHandler
func NewSealHandler(service *sealing.Service, maxPayload int64, logger *zap.Logger) *SealHandler {
	return &SealHandler{
		service:    service,
		maxPayload: maxPayload,
		logger:     logger,
	}
}

// HandleSeal handles POST /api/v1/seal
// Expects a multipart form with a "file" part and a "tender_id" field.
func (h *SealHandler) HandleSeal(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPayload+multipartOverhead)

	if err := r.ParseMultipartForm(h.maxPayload + multipartOverhead); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			_ = utils.WritePayloadTooLarge(w, "bid document exceeds maximum size",
				map[string]interface{}{"max_bytes": h.maxPayload})
			return
		}
		_ = utils.WriteBadRequest(w, "expected multipart form data", nil)
		return
	}

	tenderID := r.FormValue("tender_id")

	file, _, err := r.FormFile("file")
	if err != nil {
		_ = utils.WriteBadRequest(w, "bid document file is required", nil)
		return
	}
	defer file.Close()

	document, err := io.ReadAll(file)
	if err != nil {
		HandleServiceError(w, services.WrapError(services.ErrorTypeInternal, "failed to read bid document", err), h.logger)
		return
	}

	result, err := h.service.Seal(r.Context(), tenderID, document)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, SealBidResponse{
		Success:   true,
		BidHash:   result.BidHash,
		Message:   "Bid sealed with AES-256 encryption. Notification queued.",
		BidderID:  result.BidderID,
		Timestamp: result.Timestamp,
		Automated: true,
	})
}

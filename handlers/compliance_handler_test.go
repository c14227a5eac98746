package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/tender-guardian/services"
	"github.com/upb/tender-guardian/services/compliance"
	"go.uber.org/zap"
)

type stubOracle struct {
	analysis string
	err      error
}

func (o *stubOracle) Name() string { return "stub" }

func (o *stubOracle) Analyze(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return o.analysis, o.err
}

func newComplianceHandler(t *testing.T, oracle compliance.Oracle) *ComplianceHandler {
	t.Helper()
	service := compliance.NewService(oracle, new(MockSealedBidRepository), zap.NewNop())
	return NewComplianceHandler(service, zap.NewNop())
}

func TestComplianceHandler_HandleCheck(t *testing.T) {
	handler := newComplianceHandler(t, &stubOracle{
		analysis: "- Missing ISO 9001 certification\n- Budget exceeds limit",
	})

	body := `{"tenderRequirements": "ISO 9001 certified", "bidSummary": "no certification, 2M budget"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.HandleCheck(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp compliance.CheckResult
	decodeBody(t, w.Body.Bytes(), &resp)
	assert.True(t, resp.Success)
	assert.Len(t, resp.Violations, 2)
	assert.Contains(t, resp.Violations[0], "ISO 9001")
}

func TestComplianceHandler_Compliant(t *testing.T) {
	handler := newComplianceHandler(t, &stubOracle{analysis: "The bid meets all requirements."})

	body := `{"tenderRequirements": "ISO 9001", "bidSummary": "fully certified"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.HandleCheck(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp compliance.CheckResult
	decodeBody(t, w.Body.Bytes(), &resp)
	assert.Equal(t, []string{compliance.NoViolations}, resp.Violations)
}

func TestComplianceHandler_InvalidJSON(t *testing.T) {
	handler := newComplianceHandler(t, &stubOracle{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()

	handler.HandleCheck(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComplianceHandler_MissingFields(t *testing.T) {
	handler := newComplianceHandler(t, &stubOracle{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance",
		bytes.NewBufferString(`{"tenderRequirements": "ISO 9001"}`))
	w := httptest.NewRecorder()

	handler.HandleCheck(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComplianceHandler_OracleDown(t *testing.T) {
	handler := newComplianceHandler(t, &stubOracle{
		err: services.WrapExternal("oracle request failed", errors.New("connection reset")),
	})

	body := `{"tenderRequirements": "ISO 9001", "bidSummary": "certified"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.HandleCheck(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

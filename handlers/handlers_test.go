package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/tender-guardian/models"
	"github.com/upb/tender-guardian/services/automation"
	"github.com/upb/tender-guardian/services/ledger"
	"go.uber.org/zap"
)

// MockSealedBidRepository is a mock implementation of SealedBidRepository
type MockSealedBidRepository struct {
	mock.Mock
}

func (m *MockSealedBidRepository) Insert(ctx context.Context, bid *models.SealedBid) error {
	args := m.Called(ctx, bid)
	return args.Error(0)
}

func (m *MockSealedBidRepository) ListProjection(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	args := m.Called(ctx, limit)
	if entries := args.Get(0); entries != nil {
		return entries.([]models.AuditEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSealedBidRepository) ListByTender(ctx context.Context, tenderID string) ([]models.AuditEntry, error) {
	args := m.Called(ctx, tenderID)
	if entries := args.Get(0); entries != nil {
		return entries.([]models.AuditEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSealedBidRepository) CountTotal(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockSealedBidRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(ctx, since)
	return args.Int(0), args.Error(1)
}

// MockTenderRepository is a mock implementation of TenderRepository
type MockTenderRepository struct {
	mock.Mock
}

func (m *MockTenderRepository) Insert(ctx context.Context, tender *models.Tender) error {
	args := m.Called(ctx, tender)
	return args.Error(0)
}

func (m *MockTenderRepository) ListWithDeadlineBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.Tender, error) {
	args := m.Called(ctx, cutoff, limit)
	if tenders := args.Get(0); tenders != nil {
		return tenders.([]*models.Tender), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTenderRepository) CountTotal(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockTenderRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(ctx, since)
	return args.Int(0), args.Error(1)
}

// MockEventRepository is a mock implementation of EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Insert(ctx context.Context, event *models.AutomationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) InsertIfAbsent(ctx context.Context, event *models.AutomationEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventRepository) Find(ctx context.Context, subjectID string, eventType models.EventType) (*models.AutomationEvent, error) {
	args := m.Called(ctx, subjectID, eventType)
	if event := args.Get(0); event != nil {
		return event.(*models.AutomationEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEventRepository) UpdatePayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	args := m.Called(ctx, id, payload)
	return args.Error(0)
}

func (m *MockEventRepository) CountTotal(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// syncQueue runs enqueued tasks immediately on the caller's goroutine
type syncQueue struct{}

func (q *syncQueue) Enqueue(task *automation.Task) error {
	return task.Run(context.Background())
}

// stubMailer records sends and always reports success
type stubMailer struct {
	sent int
}

func (m *stubMailer) Send(ctx context.Context, to, subject, body, htmlBody string) bool {
	m.sent++
	return true
}

func newTestLedger(t *testing.T, events *MockEventRepository) *ledger.Service {
	t.Helper()
	return ledger.NewService(events, zap.NewNop())
}

func decodeBody(t *testing.T, data []byte, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, out))
}

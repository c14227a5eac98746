package tender

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/tender-guardian/models"
	"github.com/upb/tender-guardian/services"
	"github.com/upb/tender-guardian/services/automation"
	"github.com/upb/tender-guardian/services/ledger"
	"go.uber.org/zap"
)

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

func newTestService(t *testing.T) (*Service, *MockTenderRepository, *MockEventRepository) {
	t.Helper()
	tenders := new(MockTenderRepository)
	events := new(MockEventRepository)
	ledgerSvc := ledger.NewService(events, zap.NewNop())
	return NewService(tenders, &syncQueue{}, ledgerSvc, zap.NewNop()), tenders, events
}

func TestTender_Create(t *testing.T) {
	service, tenders, events := newTestService(t)

	var inserted *models.Tender
	tenders.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(*models.Tender)
	})

	var recorded *models.AutomationEvent
	events.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		recorded = args.Get(1).(*models.AutomationEvent)
	})

	budget := 500000.0
	deadline := time.Now().UTC().Add(72 * time.Hour)
	result, err := service.Create(context.Background(), CreateRequest{
		TenderID:     "T-100",
		Description:  "bridge repair",
		Requirements: "ISO 9001",
		Budget:       &budget,
		Deadline:     &deadline,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Len(t, result.UpdateHash, 64)

	require.NotNil(t, inserted)
	assert.Equal(t, "T-100", inserted.TenderID)
	assert.Equal(t, models.TenderStatusOpen, inserted.Status)
	assert.Equal(t, "system", inserted.UpdatedBy)
	assert.Contains(t, inserted.UpdateContent, "Tender created: bridge repair")
	require.NotNil(t, inserted.Budget)
	assert.Equal(t, budget, *inserted.Budget)

	require.NotNil(t, recorded)
	assert.Equal(t, "T-100", recorded.SubjectID)
	assert.Equal(t, models.EventTypeTenderCreated, recorded.EventType)
	assert.JSONEq(t,
		`{"description":"bridge repair","hash":"`+result.UpdateHash+`"}`,
		string(recorded.Payload))
}

func TestTender_Create_DeterministicHash(t *testing.T) {
	service, tenders, events := newTestService(t)
	tenders.On("Insert", mock.Anything, mock.Anything).Return(nil)
	events.On("Insert", mock.Anything, mock.Anything).Return(nil)

	req := CreateRequest{TenderID: "T-100", Description: "bridge repair", Requirements: "ISO 9001"}

	first, err := service.Create(context.Background(), req)
	require.NoError(t, err)
	second, err := service.Create(context.Background(), req)
	require.NoError(t, err)

	// Same identifying metadata always yields the same fingerprint
	assert.Equal(t, first.UpdateHash, second.UpdateHash)

	req.Requirements = "ISO 14001"
	third, err := service.Create(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, first.UpdateHash, third.UpdateHash)
}

func TestTender_Create_DuplicateIDAllowed(t *testing.T) {
	service, tenders, events := newTestService(t)
	tenders.On("Insert", mock.Anything, mock.Anything).Return(nil)
	events.On("Insert", mock.Anything, mock.Anything).Return(nil)

	req := CreateRequest{TenderID: "T-100", Description: "first", Requirements: "none"}
	_, err := service.Create(context.Background(), req)
	require.NoError(t, err)

	req.Description = "second"
	_, err = service.Create(context.Background(), req)
	require.NoError(t, err)

	tenders.AssertNumberOfCalls(t, "Insert", 2)
}

func TestTender_Create_Validation(t *testing.T) {
	service, tenders, _ := newTestService(t)

	_, err := service.Create(context.Background(), CreateRequest{Description: "x", Requirements: "y"})
	assert.True(t, services.IsValidationError(err))

	_, err = service.Create(context.Background(), CreateRequest{TenderID: "T-1", Requirements: "y"})
	assert.True(t, services.IsValidationError(err))

	_, err = service.Create(context.Background(), CreateRequest{TenderID: "T-1", Description: "x"})
	assert.True(t, services.IsValidationError(err))

	tenders.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestTender_Create_StoreError(t *testing.T) {
	service, tenders, events := newTestService(t)

	tenders.On("Insert", mock.Anything, mock.Anything).Return(services.WrapStore("insert failed", errors.New("connection refused")))

	_, err := service.Create(context.Background(), CreateRequest{
		TenderID: "T-100", Description: "x", Requirements: "y",
	})
	assert.True(t, services.IsStoreUnavailableError(err))

	// No creation event when the record was not persisted
	events.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

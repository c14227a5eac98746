package automation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/tender-guardian/models"
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

// MockChecker is a mock implementation of ComplianceChecker
type MockChecker struct {
	mock.Mock
}

func (m *MockChecker) AutoCheck(ctx context.Context, tenderID string) (interface{}, error) {
	args := m.Called(ctx, tenderID)
	return args.Get(0), args.Error(1)
}

func newTestEngine(t *testing.T, config Config) (*Engine, *MockTenderRepository, *MockSealedBidRepository, *MockEventRepository, *MockChecker) {
	t.Helper()
	tenders := new(MockTenderRepository)
	bids := new(MockSealedBidRepository)
	events := new(MockEventRepository)
	checker := new(MockChecker)
	ledgerSvc := ledger.NewService(events, zap.NewNop())
	engine := NewEngine(tenders, bids, ledgerSvc, checker, zap.NewNop(), config)
	return engine, tenders, bids, events, checker
}

func manualConfig() Config {
	// Schedulers disabled: sweeps and reports run synchronously from tests
	return Config{
		QueueSize:   10,
		WorkerCount: 2,
		TaskTimeout: 5 * time.Second,
	}
}

func TestEngine_StartStop(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t, manualConfig())

	require.NoError(t, engine.Start())

	stats := engine.GetStats()
	assert.True(t, stats.Started)
	assert.Equal(t, 2, stats.WorkerCount)
	assert.Equal(t, 10, stats.QueueSize)

	assert.Error(t, engine.Start())

	require.NoError(t, engine.Stop(5*time.Second))
}

func TestEngine_EnqueueExecutesTask(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t, manualConfig())
	require.NoError(t, engine.Start())
	defer engine.Stop(5 * time.Second)

	var mu sync.Mutex
	executed := false
	err := engine.Enqueue(&Task{
		Name: "test-task",
		Run: func(ctx context.Context) error {
			mu.Lock()
			executed = true
			mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return executed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_EnqueueBeforeStart(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t, manualConfig())

	err := engine.Enqueue(&Task{Name: "early", Run: func(ctx context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestEngine_TaskPanicDoesNotKillWorker(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t, manualConfig())
	require.NoError(t, engine.Start())
	defer engine.Stop(5 * time.Second)

	require.NoError(t, engine.Enqueue(&Task{
		Name: "panics",
		Run:  func(ctx context.Context) error { panic("boom") },
	}))

	var mu sync.Mutex
	executed := false
	require.NoError(t, engine.Enqueue(&Task{
		Name: "survives",
		Run: func(ctx context.Context) error {
			mu.Lock()
			executed = true
			mu.Unlock()
			return nil
		},
	}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return executed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_EnqueueDuringStopDoesNotPanic(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t, manualConfig())
	require.NoError(t, engine.Start())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			err := engine.Enqueue(&Task{
				Name: "racer",
				Run:  func(ctx context.Context) error { return nil },
			})
			if err != nil {
				return
			}
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, engine.Stop(5*time.Second))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue loop did not observe stop")
	}
}

func TestEngine_ReportRunsAtStartup(t *testing.T) {
	config := manualConfig()
	config.ReportInterval = time.Hour
	engine, tenders, bids, events, _ := newTestEngine(t, config)

	bids.On("CountSince", mock.Anything, mock.Anything).Return(3, nil)
	tenders.On("CountSince", mock.Anything, mock.Anything).Return(1, nil)

	var mu sync.Mutex
	reported := false
	events.On("Insert", mock.Anything, mock.MatchedBy(func(e *models.AutomationEvent) bool {
		return e.EventType == models.EventTypeDailyReport
	})).Return(nil).Run(func(args mock.Arguments) {
		mu.Lock()
		reported = true
		mu.Unlock()
	})

	require.NoError(t, engine.Start())
	defer engine.Stop(5 * time.Second)

	// The first report fires on loop entry, not after the interval
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reported
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_RunExpirySweep_TriggersCheckOncePerTender(t *testing.T) {
	engine, tenders, _, events, checker := newTestEngine(t, manualConfig())

	expired := []*models.Tender{
		models.NewTender("T-1", "bridge repair", "ISO 9001", "hash1"),
		models.NewTender("T-2", "road works", "none", "hash2"),
	}
	tenders.On("ListWithDeadlineBefore", mock.Anything, mock.Anything, mock.Anything).Return(expired, nil)

	// First tender is claimed here, second was claimed by an earlier sweep
	events.On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(e *models.AutomationEvent) bool {
		return e.SubjectID == "T-1"
	})).Return(true, nil)
	events.On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(e *models.AutomationEvent) bool {
		return e.SubjectID == "T-2"
	})).Return(false, nil)
	events.On("UpdatePayload", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	checker.On("AutoCheck", mock.Anything, "T-1").Return(map[string]int{"total_bids": 2}, nil)

	err := engine.RunExpirySweep(context.Background())
	require.NoError(t, err)

	checker.AssertCalled(t, "AutoCheck", mock.Anything, "T-1")
	checker.AssertNotCalled(t, "AutoCheck", mock.Anything, "T-2")
}

func TestEngine_RunExpirySweep_NoExpiredTenders(t *testing.T) {
	engine, tenders, _, _, checker := newTestEngine(t, manualConfig())

	tenders.On("ListWithDeadlineBefore", mock.Anything, mock.Anything, mock.Anything).Return([]*models.Tender{}, nil)

	err := engine.RunExpirySweep(context.Background())
	require.NoError(t, err)
	checker.AssertNotCalled(t, "AutoCheck", mock.Anything, mock.Anything)
}

func TestEngine_RunExpirySweep_CheckFailureStillClaims(t *testing.T) {
	engine, tenders, _, events, checker := newTestEngine(t, manualConfig())

	expired := []*models.Tender{models.NewTender("T-9", "it services", "SOC 2", "hash9")}
	tenders.On("ListWithDeadlineBefore", mock.Anything, mock.Anything, mock.Anything).Return(expired, nil)
	events.On("InsertIfAbsent", mock.Anything, mock.Anything).Return(true, nil)

	var recorded json.RawMessage
	events.On("UpdatePayload", mock.Anything, mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		recorded = args.Get(2).(json.RawMessage)
	})

	checker.On("AutoCheck", mock.Anything, "T-9").Return(nil, errors.New("oracle timeout"))

	// The sweep continues: the failed attempt is recorded, not retried
	err := engine.RunExpirySweep(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"oracle timeout"}`, string(recorded))
}

func TestEngine_RunDailyReport(t *testing.T) {
	engine, tenders, bids, events, _ := newTestEngine(t, manualConfig())

	bids.On("CountSince", mock.Anything, mock.Anything).Return(7, nil)
	tenders.On("CountSince", mock.Anything, mock.Anything).Return(2, nil)

	var inserted *models.AutomationEvent
	events.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(*models.AutomationEvent)
	})

	err := engine.RunDailyReport(context.Background())
	require.NoError(t, err)

	require.NotNil(t, inserted)
	assert.Equal(t, models.SystemSubjectID, inserted.SubjectID)
	assert.Equal(t, models.EventTypeDailyReport, inserted.EventType)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(inserted.Payload, &payload))
	assert.Equal(t, float64(7), payload["bids_today"])
	assert.Equal(t, float64(2), payload["tenders_today"])
}

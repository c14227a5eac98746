package automation

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/upb/tender-guardian/models"
	"github.com/upb/tender-guardian/repositories"
	"github.com/upb/tender-guardian/services"
	"github.com/upb/tender-guardian/services/ledger"
	"go.uber.org/zap"
)

// Task is a unit of background work executed by the engine's worker pool.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// ComplianceChecker runs the automated compliance review for a tender and
// returns the payload recorded in the ledger.
type ComplianceChecker interface {
	AutoCheck(ctx context.Context, tenderID string) (interface{}, error)
}

// Config holds configuration for the automation engine
type Config struct {
	QueueSize      int           // Size of the task buffer channel
	WorkerCount    int           // Number of concurrent workers
	ExpiryInterval time.Duration // Base interval between expiry sweeps
	ExpiryJitter   time.Duration // Random offset added to each sweep interval
	ReportInterval time.Duration // Interval between daily report checks
	TaskTimeout    time.Duration // Per-task execution deadline
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		QueueSize:      1000,
		WorkerCount:    4,
		ExpiryInterval: time.Minute,
		ExpiryJitter:   15 * time.Second,
		ReportInterval: time.Hour,
		TaskTimeout:    30 * time.Second,
	}
}

// Engine runs deferred work: bid notifications enqueued by the API path,
// periodic expiry sweeps that trigger compliance checks, and the daily
// activity report.
type Engine struct {
	tenders     repositories.TenderRepository
	bids        repositories.SealedBidRepository
	ledger      *ledger.Service
	checker     ComplianceChecker
	logger      *zap.Logger
	taskChan    chan *Task
	workerCount int
	queueSize   int
	taskTimeout time.Duration

	expiryInterval time.Duration
	expiryJitter   time.Duration
	reportInterval time.Duration

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex

	dropped   int64
	processed int64
}

// NewEngine creates a new automation engine
func NewEngine(tenders repositories.TenderRepository, bids repositories.SealedBidRepository, ledgerSvc *ledger.Service, checker ComplianceChecker, logger *zap.Logger, config Config) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		tenders:        tenders,
		bids:           bids,
		ledger:         ledgerSvc,
		checker:        checker,
		logger:         logger,
		taskChan:       make(chan *Task, config.QueueSize),
		workerCount:    config.WorkerCount,
		queueSize:      config.QueueSize,
		taskTimeout:    config.TaskTimeout,
		expiryInterval: config.ExpiryInterval,
		expiryJitter:   config.ExpiryJitter,
		reportInterval: config.ReportInterval,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start launches the worker pool and the periodic schedulers
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return fmt.Errorf("automation engine already started")
	}

	for i := 0; i < e.workerCount; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}

	if e.expiryInterval > 0 {
		e.wg.Add(1)
		go e.expiryLoop()
	}
	if e.reportInterval > 0 {
		e.wg.Add(1)
		go e.reportLoop()
	}

	e.started = true
	e.logger.Info("started automation engine",
		zap.Int("worker_count", e.workerCount),
		zap.Int("queue_size", e.queueSize),
		zap.Duration("expiry_interval", e.expiryInterval),
		zap.Duration("report_interval", e.reportInterval))

	return nil
}

// Stop drains pending tasks and waits for workers to finish.
// Tasks enqueued after Stop is called are rejected.
func (e *Engine) Stop(timeout time.Duration) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return fmt.Errorf("automation engine not started")
	}
	e.started = false
	e.mu.Unlock()

	e.logger.Info("stopping automation engine", zap.Int("pending_tasks", len(e.taskChan)))

	e.cancel()
	close(e.taskChan)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("automation engine stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("automation engine stop timeout after %v", timeout)
	}
}

// Enqueue submits a task without blocking. When the queue is full the task is
// dropped: deferred work is best-effort and the API path never waits on it.
// The lock is held across the send so Stop cannot close the channel between
// the started-check and the send.
func (e *Engine) Enqueue(task *Task) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return fmt.Errorf("automation engine not started")
	}

	select {
	case e.taskChan <- task:
		return nil
	default:
		e.dropped++
		e.logger.Warn("automation queue full, dropping task", zap.String("task", task.Name))
		return fmt.Errorf("automation queue full")
	}
}

// worker processes tasks from the channel
func (e *Engine) worker(id int) {
	defer e.wg.Done()

	e.logger.Debug("automation worker started", zap.Int("worker_id", id))

	for task := range e.taskChan {
		e.runTask(id, task)
	}

	e.logger.Debug("automation worker stopped", zap.Int("worker_id", id))
}

// runTask executes one task with a deadline, recovering panics so a single
// bad task cannot take down the pool.
func (e *Engine) runTask(workerID int, task *Task) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("automation task panicked",
				zap.Int("worker_id", workerID),
				zap.String("task", task.Name),
				zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), e.taskTimeout)
	defer cancel()

	if err := task.Run(ctx); err != nil {
		e.logger.Error("automation task failed",
			zap.Int("worker_id", workerID),
			zap.String("task", task.Name),
			zap.Error(err))
	}

	e.mu.Lock()
	e.processed++
	e.mu.Unlock()
}

// expiryLoop periodically sweeps for expired tenders. Each cycle waits the
// base interval plus a random jitter so replicas do not sweep in lockstep.
func (e *Engine) expiryLoop() {
	defer e.wg.Done()

	for {
		interval := e.expiryInterval
		if e.expiryJitter > 0 {
			interval += time.Duration(rand.Int63n(int64(e.expiryJitter)))
		}

		select {
		case <-e.ctx.Done():
			return
		case <-time.After(interval):
		}

		ctx, cancel := context.WithTimeout(e.ctx, e.taskTimeout)
		if err := e.RunExpirySweep(ctx); err != nil {
			e.logger.Error("expiry sweep failed", zap.Error(err))
		}
		cancel()
	}
}

// reportLoop records the daily activity report once per UTC day. The first
// report runs at startup so a freshly booted instance does not wait a full
// interval before logging anything.
func (e *Engine) reportLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.reportInterval)
	defer ticker.Stop()

	var lastReportDay string
	e.reportCycle(&lastReportDay)

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
		}
		e.reportCycle(&lastReportDay)
	}
}

// reportCycle runs one report unless one was already recorded for the
// current UTC day
func (e *Engine) reportCycle(lastReportDay *string) {
	day := time.Now().UTC().Format("2006-01-02")
	if day == *lastReportDay {
		return
	}

	ctx, cancel := context.WithTimeout(e.ctx, e.taskTimeout)
	defer cancel()

	if err := e.RunDailyReport(ctx); err != nil {
		e.logger.Error("daily report failed", zap.Error(err))
		return
	}
	*lastReportDay = day
}

// RunExpirySweep finds tenders whose deadline has passed and triggers the
// automated compliance check for each. The check runs at most once per
// tender: the ledger claim decides which sweep (or replica) executes it.
func (e *Engine) RunExpirySweep(ctx context.Context) error {
	const sweepLimit = 100

	expired, err := e.tenders.ListWithDeadlineBefore(ctx, time.Now().UTC(), sweepLimit)
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return nil
	}

	e.logger.Info("expiry sweep found expired tenders", zap.Int("count", len(expired)))

	for _, tender := range expired {
		tenderID := tender.TenderID
		ran, err := e.ledger.RunOnce(ctx, tenderID, models.EventTypeAutoComplianceCheck,
			func(ctx context.Context) (interface{}, error) {
				return e.checker.AutoCheck(ctx, tenderID)
			})
		if err != nil && services.IsStoreUnavailableError(err) {
			// Store trouble aborts the cycle; the next sweep retries the claim.
			return err
		}
		if ran {
			e.logger.Info("automated compliance check triggered",
				zap.String("tender_id", tenderID))
		}
	}

	return nil
}

// RunDailyReport records activity counts since UTC midnight under the
// system subject. The report is a log entry, not a gated action.
func (e *Engine) RunDailyReport(ctx context.Context) error {
	midnight := time.Now().UTC().Truncate(24 * time.Hour)

	bidCount, err := e.bids.CountSince(ctx, midnight)
	if err != nil {
		return err
	}
	tenderCount, err := e.tenders.CountSince(ctx, midnight)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"bids_today":    bidCount,
		"tenders_today": tenderCount,
		"generated_at":  time.Now().UTC(),
	}
	return e.ledger.Record(ctx, models.SystemSubjectID, models.EventTypeDailyReport, payload)
}

// GetStats returns statistics about the automation engine
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Stats{
		QueueSize:    e.queueSize,
		PendingTasks: len(e.taskChan),
		WorkerCount:  e.workerCount,
		Started:      e.started,
		Processed:    e.processed,
		Dropped:      e.dropped,
	}
}

// Stats represents automation engine statistics
type Stats struct {
	QueueSize    int
	PendingTasks int
	WorkerCount  int
	Started      bool
	Processed    int64
	Dropped      int64
}

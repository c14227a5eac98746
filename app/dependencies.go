package app

import (
	"context"
	"fmt"

	"github.com/upb/tender-guardian/config"
	"github.com/upb/tender-guardian/handlers"
	"github.com/upb/tender-guardian/middleware"
	"github.com/upb/tender-guardian/repositories"
	"github.com/upb/tender-guardian/repositories/postgres"
	"github.com/upb/tender-guardian/seal"
	"github.com/upb/tender-guardian/services/audit"
	"github.com/upb/tender-guardian/services/automation"
	"github.com/upb/tender-guardian/services/compliance"
	"github.com/upb/tender-guardian/services/ledger"
	"github.com/upb/tender-guardian/services/mailer"
	"github.com/upb/tender-guardian/services/sealing"
	"github.com/upb/tender-guardian/services/tender"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	SealedBids repositories.SealedBidRepository
	Tenders    repositories.TenderRepository
	Events     repositories.EventRepository

	// Services
	Ledger            *ledger.Service
	SealingService    *sealing.Service
	TenderService     *tender.Service
	ComplianceService *compliance.Service
	AuditService      *audit.Service
	Engine            *automation.Engine

	// Handlers
	SealHandler       *handlers.SealHandler
	TenderHandler     *handlers.TenderHandler
	ComplianceHandler *handlers.ComplianceHandler
	AuditHandler      *handlers.AuditHandler
	HealthHandler     *handlers.HealthHandler

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initServices(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initHandlers(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection, schema, and repositories
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := factory.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	repos := factory.NewRepositories()
	d.SealedBids = repos.SealedBids
	d.Tenders = repos.Tenders
	d.Events = repos.Events

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices wires the domain services and the automation engine
func (d *Dependencies) initServices(cfg *config.Config) error {
	d.Ledger = ledger.NewService(d.Events, d.Logger)

	// The sealer is optional: read-only deployments can serve the audit
	// surface without a sealing key. Seal requests then fail with a
	// configuration error.
	var sealer *seal.Sealer
	if len(cfg.Sealing.Key) > 0 {
		s, err := seal.NewSealer(cfg.Sealing.Key)
		if err != nil {
			return fmt.Errorf("invalid sealing key: %w", err)
		}
		sealer = s
	} else {
		d.Logger.Warn("no sealing key configured, bid sealing disabled")
	}

	mail := mailer.NewSMTPMailer(cfg.SMTP, d.Logger)
	if mail.Simulating() {
		d.Logger.Info("mailer running in simulation mode")
	}

	oracle := compliance.NewGeminiOracle(cfg.Oracle)
	d.ComplianceService = compliance.NewService(oracle, d.SealedBids, d.Logger)

	engineCfg := automation.Config{
		QueueSize:      cfg.Automation.QueueSize,
		WorkerCount:    cfg.Automation.WorkerCount,
		ExpiryInterval: cfg.Automation.ExpiryInterval,
		ExpiryJitter:   cfg.Automation.ExpiryJitter,
		ReportInterval: cfg.Automation.ReportInterval,
		TaskTimeout:    automation.DefaultConfig().TaskTimeout,
	}
	d.Engine = automation.NewEngine(d.Tenders, d.SealedBids, d.Ledger, d.ComplianceService, d.Logger, engineCfg)

	d.SealingService = sealing.NewService(
		sealer, d.SealedBids, d.Engine, mail, d.Ledger,
		cfg.SMTP.NotifyTo, cfg.Sealing.MaxPayloadBytes, d.Logger)
	d.TenderService = tender.NewService(d.Tenders, d.Engine, d.Ledger, d.Logger)
	d.AuditService = audit.NewService(d.SealedBids, d.Tenders, d.Events, d.Logger)

	return nil
}

// initHandlers builds the HTTP handlers and auth middleware
func (d *Dependencies) initHandlers(cfg *config.Config) {
	d.SealHandler = handlers.NewSealHandler(d.SealingService, cfg.Sealing.MaxPayloadBytes, d.Logger)
	d.TenderHandler = handlers.NewTenderHandler(d.TenderService, d.Logger)
	d.ComplianceHandler = handlers.NewComplianceHandler(d.ComplianceService, d.Logger)
	d.AuditHandler = handlers.NewAuditHandler(d.AuditService, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.Logger)

	validator := middleware.NewHMACValidator(cfg.Auth.JWTSecret)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close() error {
	if d.Engine != nil {
		if err := d.Engine.Stop(d.Config.Automation.StopTimeout); err != nil {
			d.Logger.Warn("automation engine did not stop cleanly", zap.Error(err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			d.Logger.Error("failed to close database", zap.Error(err))
			return err
		}
	}

	d.Logger.Info("all dependencies closed")
	return nil
}

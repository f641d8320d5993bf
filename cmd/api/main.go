package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/ai"
	httptransport "github.com/spec-kit/case-service/internal/api/http"
	"github.com/spec-kit/case-service/internal/api/http/handlers"
	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/observability"
	"github.com/spec-kit/case-service/internal/persistence"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/service"
	"github.com/spec-kit/case-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var redis *persistence.Redis
	if cfg.Redis.Enabled {
		redis = persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
	}

	var (
		caseRepo  repository.CaseRepository
		noteRepo  repository.NoteRepository
		eventRepo repository.EventRepository
		draftRepo repository.DraftRepository
		uow       repository.UnitOfWork
	)
	if pool := pg.PoolHandle(); pool != nil {
		caseRepo = repository.NewCaseRepository(pool)
		noteRepo = repository.NewNoteRepository(pool)
		eventRepo = repository.NewEventRepository(pool)
		draftRepo = repository.NewDraftRepository(pool)
		uow = repository.NewPgxUnitOfWork(pool)
	} else {
		logger.Warn("running on in-memory store; data will not survive restarts")
		store := repository.NewMemoryStore()
		caseRepo = store.Cases()
		noteRepo = store.Notes()
		eventRepo = store.Events()
		draftRepo = store.Drafts()
		uow = repository.NewMemoryUnitOfWork()
	}

	dispatcher := events.NewInMemoryDispatcher()
	auditService := service.NewAuditService(eventRepo, nil)

	generator := buildGenerator(cfg.AI, logger)
	generator = ai.Instrument(generator, metrics.RecordGeneration)

	caseService := service.NewCaseService(service.CaseDependencies{
		CaseRepo:   caseRepo,
		NoteRepo:   noteRepo,
		EventRepo:  eventRepo,
		Audit:      auditService,
		UnitOfWork: uow,
		Dispatcher: dispatcher,
	})
	draftService := service.NewSummaryDraftService(service.SummaryDraftDependencies{
		CaseRepo:   caseRepo,
		NoteRepo:   noteRepo,
		EventRepo:  eventRepo,
		DraftRepo:  draftRepo,
		Audit:      auditService,
		UnitOfWork: uow,
		Generator:  generator,
		Dispatcher: dispatcher,
		TTL:        cfg.Drafts.TTL(),
	})

	notificationService := service.NewNotificationService(dispatcher, redis, logger, cfg.Notify)
	worker.StartNotificationWorker(notificationService)

	if err := service.SeedCases(ctx, caseRepo, caseService, logger); err != nil {
		logger.Error("seeding sample cases failed", zap.Error(err))
	}

	expiryWorker := worker.NewExpiryWorker(draftService, logger, metrics, cfg.Drafts.SweepInterval())
	expiryWorker.Start(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	casesHandler := handlers.NewCasesHandler(caseService)
	draftsHandler := handlers.NewSummaryDraftsHandler(draftService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        healthHandler,
		Cases:         casesHandler,
		SummaryDrafts: draftsHandler,
		Actors:        auth.NewActorResolver(cfg.Auth.JWTSecret),
		Metrics:       metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func buildGenerator(cfg config.AIConfig, logger *zap.Logger) ai.Generator {
	switch strings.ToLower(cfg.Profile) {
	case "openai":
		if cfg.APIKey == "" {
			logger.Warn("AI_API_KEY not set; falling back to local fake generator")
			return ai.NewFakeGenerator()
		}
		opts := []ai.OpenAIOption{
			ai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ai.WithBaseURL(cfg.BaseURL))
		}
		return ai.NewOpenAIGenerator(cfg.APIKey, cfg.Model, opts...)
	default:
		return ai.NewFakeGenerator()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-ops/meridian/internal/app"
	"github.com/meridian-ops/meridian/internal/catalog"
	"github.com/meridian-ops/meridian/internal/crm"
	"github.com/meridian-ops/meridian/internal/documents"
	"github.com/meridian-ops/meridian/internal/mailer"
	"github.com/meridian-ops/meridian/internal/observability"
	"github.com/meridian-ops/meridian/internal/projects"
	"github.com/meridian-ops/meridian/internal/proposals"
	"github.com/meridian-ops/meridian/internal/shared"
	"github.com/meridian-ops/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	crmRepo := crm.NewRepository(pool)
	crmService := crm.NewService(crmRepo)
	crmHandler := crm.NewHandler(logger, crmService)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewCatalog(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	proposalRepo := proposals.NewRepository(pool)
	proposalService := proposals.NewService(proposalRepo, crmRepo, auditLogger)
	proposalHandler := proposals.NewHandler(logger, proposalService)

	projectRepo := projects.NewRepository(pool)
	projectService := projects.NewService(projectRepo, crmRepo, auditLogger)
	projectHandler := projects.NewHandler(logger, projectService, idempotencyStore)

	gotenberg := documents.NewGotenbergClient(cfg.GotenbergURL)
	if err := gotenberg.Ping(ctx); err != nil {
		logger.Warn("gotenberg unreachable, pdf rendering will use fallback", slog.Any("error", err))
	}
	renderer := documents.NewRenderer(logger, gotenberg, redisClient)
	documentService := documents.NewService(renderer, proposalService, projectService)
	documentHandler := documents.NewHandler(logger, documentService)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	mailerRepo := mailer.NewRepository(pool)
	mailerService := mailer.NewService(logger, mailerRepo, proposalService, crmRepo, documentService, sender, jobClient)
	mailerHandler := mailer.NewHandler(logger, mailerService)

	jobHandler := jobs.NewHandler(asynq.NewInspector(redisOpts), logger)
	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Pool:            pool,
		CRMHandler:      crmHandler,
		CatalogHandler:  catalogHandler,
		ProposalHandler: proposalHandler,
		ProjectHandler:  projectHandler,
		DocumentHandler: documentHandler,
		MailerHandler:   mailerHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

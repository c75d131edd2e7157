package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightlane/paymentflow/internal/adapters/events"
	"github.com/brightlane/paymentflow/internal/adapters/gateway"
	"github.com/brightlane/paymentflow/internal/adapters/pollcoordinator"
	"github.com/brightlane/paymentflow/internal/adapters/postgres"
	"github.com/brightlane/paymentflow/internal/application"
	"github.com/brightlane/paymentflow/internal/config"
	"github.com/brightlane/paymentflow/internal/handler"
	"github.com/brightlane/paymentflow/internal/metrics"
	"github.com/brightlane/paymentflow/internal/ports"
	"github.com/brightlane/paymentflow/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = logger.With("component", "engine")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db.Pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	store := postgres.NewStore(db)
	reg := metrics.New()

	feeRate := decimal.NewFromFloat(cfg.FeeRate())
	intake := application.NewPaymentIntake(store, reg, feeRate, logger)

	gw := buildGateway(cfg, logger)
	publisher := buildPublisher(cfg, logger)
	defer publisher.Close()
	coord := buildPollCoordinator(cfg, logger)

	backoff := worker.BackoffConfig{
		Base:        cfg.BackoffBase(),
		Max:         cfg.BackoffMax(),
		Jitter:      cfg.BackoffJitter(),
		MaxAttempts: cfg.GatewayMaxAttempts,
	}
	applier := worker.NewOutcomeApplier(store, backoff, reg, logger)

	workerCfg := worker.Config{
		PollInterval:      cfg.PollInterval(),
		ProcessingTimeout: cfg.ProcessingTimeout(),
		Backoff:           backoff,
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		w := worker.New(strconv.Itoa(i), store, gw, applier, coord, publisher, workerCfg, reg, logger)
		go w.Start(ctx)
	}

	h := handler.NewPaymentHandler(intake, store, reg)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: mux,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", "error", err)
	}

	logger.Info("exit")
}


func buildGateway(cfg *config.Config, logger *slog.Logger) ports.GatewayPort {
	if cfg.PaymentGatewayURL == "" || cfg.PaymentGatewayURL == "mock" {
		logger.Warn("payment gateway url set to mock, using in-process mock gateway")
		return gateway.NewMockGateway(0.1)
	}
	return gateway.NewHTTPGatewayClient(cfg.PaymentGatewayURL, cfg.GatewayTimeout())
}

func buildPublisher(cfg *config.Config, logger *slog.Logger) ports.EventPublisher {
	if cfg.KafkaURL == "" {
		return events.NoopPublisher{}
	}
	logger.Info("publishing payment outcome events to kafka", "broker", cfg.KafkaURL)
	return events.NewKafkaPublisher(cfg.KafkaURL)
}

func buildPollCoordinator(cfg *config.Config, logger *slog.Logger) ports.PollCoordinator {
	if cfg.RedisURL == "" {
		return pollcoordinator.Noop{}
	}
	coord, err := pollcoordinator.NewRedis(cfg.RedisURL, cfg.PollInterval())
	if err != nil {
		logger.Warn("failed to initialize redis poll coordinator, falling back to no-op", "error", err)
		return pollcoordinator.Noop{}
	}
	return coord
}

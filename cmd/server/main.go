// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dgraph-io/badger/v4"

	_ "github.com/tomtom215/stox-gateway/docs" // Import generated swagger docs
	"github.com/tomtom215/stox-gateway/internal/api"
	"github.com/tomtom215/stox-gateway/internal/authz"
	"github.com/tomtom215/stox-gateway/internal/backend"
	"github.com/tomtom215/stox-gateway/internal/cdn"
	"github.com/tomtom215/stox-gateway/internal/clients"
	"github.com/tomtom215/stox-gateway/internal/commerce"
	"github.com/tomtom215/stox-gateway/internal/config"
	"github.com/tomtom215/stox-gateway/internal/events"
	"github.com/tomtom215/stox-gateway/internal/idempotency"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/storage"
	"github.com/tomtom215/stox-gateway/internal/supervisor"
	"github.com/tomtom215/stox-gateway/internal/supervisor/services"
	"github.com/tomtom215/stox-gateway/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("identity", cfg.Backends.Identity.URL).
		Str("images", cfg.Backends.Images.URL).
		Str("commerce", cfg.Backends.Commerce.URL).
		Msg("Starting Stox Gateway")

	db, err := storage.OpenBadger(cfg.Storage.Path, cfg.Storage.InMemory)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("Failed to open object store")
	}

	breaker := backend.BreakerSettings{
		MaxRequests:         cfg.Breaker.MaxRequests,
		Interval:            cfg.Breaker.Interval,
		Timeout:             cfg.Breaker.Timeout,
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
	}
	manager, err := backend.NewManager(backend.Options{
		Policy: backend.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
		},
		Breaker: breaker,
	},
		endpoint(clients.ServiceIdentity, cfg.Backends.Identity),
		endpoint(clients.ServiceImages, cfg.Backends.Images),
		endpoint(clients.ServiceCommerce, cfg.Backends.Commerce),
	)
	if err != nil {
		closeDB(db)
		logging.Fatal().Err(err).Msg("Failed to register backends")
	}

	// Unreachable backends are reported and retried by the probe loop; the
	// gateway starts regardless.
	warmCtx, warmCancel := context.WithTimeout(context.Background(), cfg.Backends.Identity.Timeout+5*time.Second)
	manager.Warm(warmCtx)
	warmCancel()

	identity := clients.NewIdentity(manager)
	images := clients.NewImages(manager)
	products := clients.NewCommerce(manager)

	presigner, err := storage.NewPresigner(cfg.Storage.PresignSecret, cfg.Storage.PublicBaseURL)
	if err != nil {
		closeDB(db)
		logging.Fatal().Err(err).Msg("Failed to create presigner")
	}
	objects := storage.NewBadgerStore(db, presigner)

	bus, err := events.New(cfg.Events, watermill.NewSlogLogger(logging.NewSlogLogger()))
	if err != nil {
		closeDB(db)
		logging.Fatal().Err(err).Str("nats_url", cfg.Events.NATSURL).Msg("Failed to connect event bus")
	}

	invalidator := cdn.New(cfg.CDN, breaker)
	retrier := cdn.NewRetrier(invalidator, cdn.NewPendingStore(db), bus, cfg.CDN.RetryInterval, cfg.CDN.RetryBatch)

	ledger := upload.NewLedger(db)
	records := idempotency.NewStore(db, cfg.Upload.IdempotencyRetention, cfg.Upload.InProgressTTL)
	orchestrator := upload.NewOrchestrator(upload.Deps{
		Store:     objects,
		Registry:  images,
		CDN:       invalidator,
		Records:   records,
		Deferrer:  retrier,
		Ledger:    ledger,
		Publisher: bus,
	}, upload.OptionsFromConfig(cfg.Upload, cfg.Retry))

	enforcer, err := authz.NewEnforcer(cfg.Authz)
	if err != nil {
		closeDB(db)
		logging.Fatal().Err(err).Msg("Failed to load authorization policy")
	}

	router := api.NewRouter(cfg, api.Deps{
		Tokens:     identity,
		Enforcer:   enforcer,
		Uploads:    orchestrator,
		Images:     images,
		Commerce:   products,
		Aggregator: commerce.NewAggregator(products, images, invalidator),
		Accounts:   identity,
		Processor:  images,
		Enhancer:   commerce.NewEnhancer(images, orchestrator, products),
		Objects:    objects,
		Presigner:  presigner,
		Backends:   manager,
		URLs:       invalidator,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	treeConfig := supervisor.DefaultTreeConfig()
	if cfg.Server.ShutdownTimeout > 0 {
		treeConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}
	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeConfig)
	tree.AddBackendService(manager)
	tree.AddWorkerService(retrier)
	tree.AddWorkerService(upload.NewSweeper(objects, ledger, records, cfg.Upload.OrphanSweepInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), treeConfig.ShutdownTimeout)
	defer closeCancel()
	if err := manager.Close(closeCtx); err != nil {
		logging.Warn().Err(err).Msg("Backend connections did not drain")
	}
	if err := bus.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close event bus")
	}
	closeDB(db)

	logging.Info().Msg("Application stopped gracefully")
}

func endpoint(name string, b config.BackendConfig) backend.Endpoint {
	return backend.Endpoint{
		Name:          name,
		BaseURL:       b.URL,
		HealthPath:    b.HealthPath,
		APIKey:        b.APIKey,
		Timeout:       b.Timeout,
		ProbeInterval: b.ProbeInterval,
		MaxConns:      b.MaxConns,
		Required:      b.Required,
	}
}

func closeDB(db *badger.DB) {
	if err := db.Close(); err != nil {
		logging.Error().Err(err).Msg("Failed to close object store")
	}
}

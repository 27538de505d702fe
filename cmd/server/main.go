// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "disasterfeed/docs"
	"disasterfeed/internal/adapters"
	"disasterfeed/internal/api"
	"disasterfeed/internal/checkpoint"
	"disasterfeed/internal/config"
	"disasterfeed/internal/eventbus"
	"disasterfeed/internal/eventlog"
	"disasterfeed/internal/ingest"
	"disasterfeed/internal/jobqueue"
	"disasterfeed/internal/logging"
	"disasterfeed/internal/sse"
	"disasterfeed/internal/supervisor"
	"disasterfeed/internal/supervisor/services"
)

// watchdogGrace is added on top of the configured shutdown wait before the
// process force-exits if shutdown hasn't completed by then.
const watchdogGrace = 2 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: logFormat(cfg),
	})

	logging.Info().Str("env", cfg.Env).Bool("ingest_enabled", cfg.Ingest.Enabled).
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("starting disasterfeed")

	db, err := eventlog.Open(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open event log database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database")
		}
	}()

	cpStore := checkpoint.New(db.Conn())

	bus, err := eventbus.Connect(cfg.NATS.URL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to event bus")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing event bus")
		}
	}()

	slogLogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownWait,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	var queue *jobqueue.Queue
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Ingest.Enabled {
		queue, err = jobqueue.Connect(ctx, cfg.NATS.URL, cfg.NATS.StreamName, cfg.Ingest.MaxAttempts, cfg.Ingest.BaseBackoff)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to connect to job queue")
		}
		defer queue.Close()

		registry := adapters.Default(adapters.Config{
			HTTPTimeout:    cfg.Ingest.HTTPTimeout,
			KMAAPIKey:      cfg.KMA.APIKey,
			PEWSSimEqkID:   cfg.KMA.PEWSSimEqkID,
			PEWSSimStartAt: cfg.KMA.PEWSSimStartAt,
		})

		writer := ingest.NewWriter(db, bus)
		scheduler := ingest.NewScheduler(registry, queue)
		worker := ingest.NewWorker(registry, cpStore, writer, queue)

		tree.AddDataService(scheduler)
		tree.AddDataService(worker)
		logging.Info().Int("adapters", len(registry.List())).Msg("ingest scheduler and worker added to supervisor tree")
	} else {
		logging.Info().Msg("ingest disabled (INGEST_ENABLED=0): running as a read-only replica")
	}

	hub := sse.NewHub(db, bus)
	tree.AddMessagingService(services.NewHubService(hub))

	router := api.NewRouter(cfg, db, hub)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownWait))

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("supervisor tree starting")
	errCh := tree.ServeBackground(sigCtx)

	<-sigCtx.Done()
	logging.Info().Msg("shutdown signal received, waiting for supervisor tree to stop")

	watchdog := time.AfterFunc(cfg.Server.ShutdownWait+watchdogGrace, func() {
		logging.Error().Msg("shutdown watchdog expired, forcing exit")
		os.Exit(1)
	})

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree reported an error during shutdown")
		}
	}
	watchdog.Stop()

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop within the shutdown timeout")
		}
	}

	logging.Info().Msg("disasterfeed stopped gracefully")
}

func logFormat(cfg *config.Config) string {
	if cfg.Env == "development" {
		return "console"
	}
	return "json"
}

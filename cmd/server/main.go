// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/heimdall/internal/api"
	"github.com/tomtom215/heimdall/internal/broadcast"
	"github.com/tomtom215/heimdall/internal/config"
	"github.com/tomtom215/heimdall/internal/database"
	"github.com/tomtom215/heimdall/internal/journal"
	"github.com/tomtom215/heimdall/internal/logging"
	"github.com/tomtom215/heimdall/internal/metrics"
	"github.com/tomtom215/heimdall/internal/models"
	"github.com/tomtom215/heimdall/internal/playtime"
	"github.com/tomtom215/heimdall/internal/presence"
	"github.com/tomtom215/heimdall/internal/relay"
	"github.com/tomtom215/heimdall/internal/supervisor"
	"github.com/tomtom215/heimdall/internal/supervisor/services"
	"github.com/tomtom215/heimdall/internal/upstream"
	ws "github.com/tomtom215/heimdall/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // sequential wiring
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("upstream", cfg.Upstream.Address).
		Str("db_driver", cfg.Database.Driver).
		Bool("journal", cfg.Journal.Enabled).
		Bool("nats", cfg.NATS.Enabled).
		Msg("Starting Heimdall")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	var dlq *journal.Journal
	if cfg.Journal.Enabled {
		dlq, err = journal.Open(&cfg.Journal)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open dead-letter journal")
		}
		defer func() {
			if err := dlq.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing dead-letter journal")
			}
		}()
	} else {
		logging.Warn().Msg("Dead-letter journal disabled, unstorable events will be dropped")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tracker := presence.NewTracker()
	fanout := broadcast.New[models.Envelope](cfg.Relay.BroadcastCapacity)
	defer fanout.Close()

	// Passing a nil *Journal as the interface would defeat the writer's nil check.
	var sink relay.DeadLetterSink
	if dlq != nil {
		sink = dlq
		tree.AddRelayService(dlq)
	}

	writer := relay.NewWriter(relay.WriterConfig{
		RetryAttempts: cfg.Relay.RetryAttempts,
		RetryDelay:    cfg.Relay.RetryDelay,
		OpTimeout:     cfg.Relay.StoreTimeout,
		DrainTimeout:  cfg.Relay.DrainTimeout,
	}, db, tracker, fanout, sink)

	dialer := upstream.NewGatewayDialer(version)
	if cfg.Upstream.HandshakeTimeout > 0 {
		dialer.HandshakeTimeout = cfg.Upstream.HandshakeTimeout
	}
	pipeline := relay.NewPipeline(upstream.Config{
		Address: cfg.Upstream.Address,
		Credentials: upstream.Credentials{
			Username: cfg.Upstream.Username,
			Password: cfg.Upstream.Password,
		},
		Trust:              upstream.TrustHost(cfg.Upstream.TrustedAuthServer),
		TickRate:           cfg.Upstream.TickRate,
		ConnectBaseDelay:   cfg.Upstream.ConnectBaseDelay,
		ReconnectBaseDelay: cfg.Upstream.ReconnectBaseDelay,
		MaxBackoff:         cfg.Upstream.MaxBackoff,
		DrainTimeout:       cfg.Upstream.DrainTimeout,
	}, dialer, writer, cfg.Relay.IngressCapacity)
	tree.AddRelayService(pipeline)

	if m := initMirror(&cfg.NATS, fanout); m != nil {
		defer func() {
			if err := m.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing NATS mirror")
			}
		}()
		tree.AddRelayService(m)
	}

	hub := ws.NewHub(fanout)
	handler := api.NewHandler(db, tracker, playtime.NewService(db), cfg)
	handler.SetVersion(version)
	handler.SetStream(fanout, hub)
	handler.SetUpstreamStatus(pipeline.UpstreamStatus)
	if dlq != nil {
		handler.SetJournal(dlq)
	}

	router := api.NewRouter(handler, api.NewChiMiddlewareFromConfig(&cfg.Security))
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: it would cut SSE and websocket streams.
	}

	tree.AddAPIService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Heimdall stopped")
}

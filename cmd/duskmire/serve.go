// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/duskmire/duskmire/internal/combat"
	"github.com/duskmire/duskmire/internal/config"
	"github.com/duskmire/duskmire/internal/journal"
	"github.com/duskmire/duskmire/internal/logging"
	"github.com/duskmire/duskmire/internal/observability"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the combat engine",
		Long: `Start the combat engine scheduler with its metrics endpoint and,
when a database is configured, the combat event journal.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address (empty = config default)")
	cmd.Flags().String("database-url", "", "journal database URL (empty = journal disabled)")
	cmd.Flags().String("root-seed", "", "root seed for deterministic combat streams")

	return cmd
}

// loadConfig resolves the config file path and layers flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := configFile
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
	}
	return config.Load(path, explicit, cmd.Flags())
}

// runServe runs the engine until the context is cancelled or a signal arrives.
func runServe(ctx context.Context, cfg config.Config, cmd *cobra.Command) error {
	logging.SetDefault("duskmire", version, cfg.Logging.Format, cfg.Logging.Level)

	slog.Info("starting combat engine",
		"root_seed", cfg.Combat.RootSeed,
		"tick_interval", cfg.Combat.TickInterval.String(),
		"log_format", cfg.Logging.Format,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Combat event journal, disabled without a database.
	var sink combat.EventSink
	if cfg.Journal.DatabaseURL != "" {
		pg, err := journal.NewPostgres(ctx, cfg.Journal.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect journal: %w", err)
		}
		defer pg.Close()
		sink = journal.NewRecorder(pg)
		slog.Info("combat journal connected")
	}

	registry := prometheus.NewRegistry()
	world := combat.NewWorld(cfg.CombatConfig(), combat.Deps{
		Sink:       sink,
		Registerer: registry,
	})
	scheduler := combat.NewScheduler(world)

	// Observability server, disabled without an address.
	var obsServer *observability.Server
	if cfg.Observability.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.Observability.MetricsAddr, registry, func() bool { return true })
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	schedCtx, schedCancel := context.WithCancel(ctx)
	defer schedCancel()
	schedDone := make(chan error, 1)
	go func() {
		schedDone <- scheduler.Run(schedCtx)
	}()

	cmd.Println("Combat engine started")
	slog.Info("combat engine ready")

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")
	schedCancel()
	<-schedDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors watches a server's error channel and cancels the context
// on error so a failed server triggers graceful shutdown of the process.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}

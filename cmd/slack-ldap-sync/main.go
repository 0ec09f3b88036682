// Package main is the entry point for the slack-ldap-sync daemon. It
// reconciles workspace membership against the corporate LDAP directory and
// revokes access for accounts the directory no longer knows.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/boompig/slack-ldap-sync/internal/api"
	"github.com/boompig/slack-ldap-sync/internal/config"
	"github.com/boompig/slack-ldap-sync/internal/directory"
	"github.com/boompig/slack-ldap-sync/internal/service"
	"github.com/boompig/slack-ldap-sync/internal/slack"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "slack-ldap-sync",
		Short:         "Revoke workspace access for accounts missing from the corporate directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "optional YAML config file (environment variables override it)")

	root.AddCommand(newRunCmd(&configPath), newSyncCmd(&configPath))
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the reconciliation daemon until terminated",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDaemon(*configPath)
		},
	}
}

func newSyncCmd(configPath *string) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a single reconciliation cycle and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runOnce(*configPath, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log candidates without revoking or messaging anyone")
	return cmd
}

// build wires the full component graph from configuration. Config errors
// here are the only process-fatal failures; everything after this point is
// absorbed by the supervisor loop.
func build(configPath string, dryRun bool) (*config.Config, *service.Supervisor, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	client := slack.New(cfg.Slack, logger)
	enumerator := directory.NewEnumerator(cfg.LDAP, logger)
	inventory := service.NewInventory(client, cfg.Slack.UseSCIM, logger)
	reconciler := service.NewReconciler(cfg.Slack.Failsafe, cfg.Slack.BotEmailSuffix, logger)
	revoker := service.NewRevoker(client, client, cfg.Slack.UseSCIM, dryRun, logger)
	supervisor := service.NewSupervisor(enumerator, inventory, reconciler, revoker, cfg.Interval, cfg.Schedule, logger)

	return cfg, supervisor, logger, nil
}

func runDaemon(configPath string) error {
	cfg, supervisor, logger, err := build(configPath, false)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if cfg.ListenAddr != "" {
		srv := &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      api.NewRouter(supervisor, logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
		go func() {
			logger.Info("health endpoint listening", "addr", cfg.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health endpoint failed", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("starting reconciliation supervisor",
		"interval", cfg.Interval,
		"schedule", cfg.Schedule,
		"scim", cfg.Slack.UseSCIM,
		"failsafe", cfg.Slack.Failsafe,
	)
	if err := supervisor.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("supervisor stopped")
	return nil
}

func runOnce(configPath string, dryRun bool) error {
	_, supervisor, logger, err := build(configPath, dryRun)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger.Info("running single reconciliation cycle", "dry_run", dryRun)
	return supervisor.RunCycle(ctx)
}

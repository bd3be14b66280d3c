package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/edgeshadow/syncagent/internal/config"
	"github.com/edgeshadow/syncagent/internal/shadow"
)

var (
	flagCloudEndpoint string
	flagTokenFile     string
	flagThingName     string
	flagPIDFile       string
)

// newRunCmd builds the daemon entry point: it loads configuration, opens
// the shadow store, wires the cloud client, rate limiter, and sync handler
// facade together, and blocks until a shutdown signal arrives (spec.md
// §1's "long-running component").
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the shadow sync daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd)
		},
	}

	cmd.Flags().StringVar(&flagCloudEndpoint, "cloud-endpoint", "", "base URL of the cloud shadow service (required)")
	cmd.Flags().StringVar(&flagTokenFile, "token-file", "/var/lib/edgeshadow/token.json", "path to the cached cloud bearer token")
	cmd.Flags().StringVar(&flagThingName, "thing-name", "", "this device's thing name (required)")
	cmd.Flags().StringVar(&flagPIDFile, "pid-file", defaultPIDPath, "PID file path, used by the reload subcommand")

	return cmd
}

func runDaemon(cmd *cobra.Command) error {
	cc := mustCLIContext(cmd.Context())
	logger := cc.Logger

	if flagCloudEndpoint == "" || flagThingName == "" {
		return fmt.Errorf("--cloud-endpoint and --thing-name are required")
	}

	cleanup, err := writePIDFile(flagPIDFile)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := shutdownContext(cmd.Context(), logger)

	comps, shutdown, err := buildComponents(ctx, cc, flagCloudEndpoint, flagTokenFile, flagThingName)
	if err != nil {
		return err
	}
	defer shutdown()

	if err := comps.handler.FullSyncOnStartup(ctx); err != nil {
		logger.Warn("initial full sync failed", "error", err)
	}

	go watchReload(ctx, cc, comps.handler, logger)

	logger.Info("syncagentd started", "thing", flagThingName, "db", cc.DBPath)

	<-ctx.Done()

	logger.Info("shutting down")

	return nil
}

// watchReload listens for SIGHUP and hot-reloads the config recipe,
// swapping in the new snapshot via cc.ConfigHolder.Update and propagating
// the synchronize set and direction to the running Sync Handler facade
// (spec.md §9 "global mutable config + listeners"). The strategy type
// itself is not swapped on reload — changing it requires a daemon restart.
func watchReload(ctx context.Context, cc *CLIContext, h *shadow.Handler, logger *slog.Logger) {
	sigCh := sighupChannel()
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			reloadConfig(ctx, cc, h, logger)
		}
	}
}

// sighupChannel returns a buffered channel registered for SIGHUP. Callers
// release it with signal.Stop.
func sighupChannel() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)

	return ch
}

func reloadConfig(ctx context.Context, cc *CLIContext, h *shadow.Handler, logger *slog.Logger) {
	cfg, err := config.Load(cc.ConfigHolder.Path(), logger)
	if err != nil {
		logger.Warn("config reload failed", "error", err)
		return
	}

	snap := config.Resolve(cfg)
	if flagThingName != "" {
		snap = config.WithCoreThingName(snap, flagThingName)
	}

	cc.ConfigHolder.Update(snap)
	h.SetSyncSet(toShadowKeys(snap.Synchronize))

	if err := h.SetDirection(ctx, toShadowDirection(snap.Direction)); err != nil {
		logger.Warn("applying reloaded direction failed", "error", err)
	}

	logger.Info("config reloaded", "synchronized_shadows", len(snap.Synchronize))
}

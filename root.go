package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgeshadow/syncagent/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in setupRootCmd().
var (
	flagConfigPath string
	flagDBPath     string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

const (
	defaultConfigPath = "/etc/edgeshadow/syncagent.json"
	defaultDBPath     = "/var/lib/edgeshadow/syncagent.db"
	defaultPIDPath    = "/var/run/edgeshadow-syncagentd.pid"
)

// CLIContext bundles resolved configuration and a logger, built once in
// PersistentPreRunE and threaded through RunE handlers via the command
// context.
type CLIContext struct {
	ConfigHolder *config.Holder
	Logger       *slog.Logger
	DBPath       string
	Flags        struct {
		JSON  bool
		Quiet bool
	}
}

type cliContextKey struct{}

func cliContextFrom(ctx context.Context) *CLIContext {
	cc, _ := ctx.Value(cliContextKey{}).(*CLIContext)
	return cc
}

func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context — every command must load config in PersistentPreRunE")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "syncagentd",
		Short:   "Edge shadow sync agent",
		Long:    "Bidirectional shadow document synchronization between an edge device and the cloud.",
		Version: version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadCLIContext(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", defaultConfigPath, "sync configuration recipe path")
	cmd.PersistentFlags().StringVar(&flagDBPath, "db", defaultDBPath, "shadow state database path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newReloadCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadCLIContext resolves configuration and builds the logger, stashing
// both in the command's context for RunE handlers to read via
// mustCLIContext.
func loadCLIContext(cmd *cobra.Command) error {
	logger := buildLogger()

	cfg, err := config.Load(flagConfigPath, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	snap := config.Resolve(cfg)

	cc := &CLIContext{
		ConfigHolder: config.NewHolder(snap, flagConfigPath),
		Logger:       logger,
		DBPath:       flagDBPath,
	}
	cc.Flags.JSON = flagJSON
	cc.Flags.Quiet = flagQuiet

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates an slog.Logger configured from CLI flags. --verbose,
// --debug, and --quiet are mutually exclusive (enforced by Cobra).
func buildLogger() *slog.Logger {
	level := slog.LevelWarn

	switch {
	case flagDebug:
		level = slog.LevelDebug
	case flagVerbose:
		level = slog.LevelInfo
	case flagQuiet:
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

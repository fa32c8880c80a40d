// Package cmd provides the CLI commands for orderindex.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orderindex/internal/config"
	"github.com/Aman-CERP/orderindex/internal/logging"
	"github.com/Aman-CERP/orderindex/internal/metrics"
	"github.com/Aman-CERP/orderindex/internal/profiling"
	"github.com/Aman-CERP/orderindex/pkg/version"
)

// annotationNoConfig marks commands that fall back to defaults when the
// project configuration does not load.
const annotationNoConfig = "no-config"

// Global flags
var (
	projectDir  string
	dbPath      string
	debugMode   bool
	noColor     bool
	metricsAddr string
	profileOpts profiling.Options
)

// Per-invocation state set up by startProfilingAndLogging.
var (
	activeConfig   *config.Config
	projectRoot    string
	profSession    *profiling.Session
	loggingCleanup func()
	metricsServer  *http.Server
)

// NewRootCmd creates the root command for the orderindex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orderindex",
		Short: "Customer order index for order and subscription records",
		Long: `orderindex maintains a denormalized index of the customer-facing fields
of orders and subscriptions (customer, email, name, postcode, city, dates),
so customer lookups and admin searches read one indexed row instead of
scanning record attributes.

The index lives in a SQLite database next to a reference record store.
Writes through 'orderindex record' and 'orderindex user' keep it current;
'orderindex reindex' rebuilds it in batches.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("orderindex version {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&projectDir, "dir", ".", "Project directory (config lookup and relative paths)")
	pf.StringVar(&dbPath, "db", "", "Database file (overrides storage.path)")
	pf.BoolVar(&debugMode, "debug", false, "Enable debug logging, also written to stderr")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")

	pf.StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	pf.StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	pf.StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newLookupCmd())
	cmd.AddCommand(newRecordCmd())
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = stopProfilingAndLogging(nil, nil) }()
	return NewRootCmd().ExecuteContext(context.Background())
}

// startProfilingAndLogging loads the configuration, then starts logging,
// metrics and profiling as requested by the flags.
func startProfilingAndLogging(cmd *cobra.Command, _ []string) error {
	root, err := config.FindProjectRoot(projectDir)
	if err != nil {
		return err
	}
	projectRoot = root

	cfg, err := config.Load(root)
	if err != nil {
		if !allowsDefaultConfig(cmd) {
			return err
		}
		cfg = config.NewConfig()
	}
	activeConfig = cfg

	logCfg := logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      config.ResolvePath(root, cfg.Logging.File),
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		MaxFiles:      cfg.Logging.MaxFiles,
		WriteToStderr: debugMode,
	}
	if debugMode {
		logCfg.Level = "debug"
	}
	logger, cleanup, err := logging.Setup(logCfg)
	switch {
	case err == nil:
		loggingCleanup = cleanup
	case allowsDefaultConfig(cmd):
		logger = logging.Discard()
	default:
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.SetDefault(logger)
	slog.Debug("cli_started",
		slog.String("command", cmd.CommandPath()),
		slog.String("version", version.Short()),
		slog.String("project_root", root))

	metrics.Register()
	if metricsAddr != "" {
		srv, err := metrics.Serve(metricsAddr, logger)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		metricsServer = srv
	}

	if profileOpts.Enabled() {
		s, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profSession = s
	}

	return nil
}

// allowsDefaultConfig reports whether cmd or one of its parents carries
// annotationNoConfig.
func allowsDefaultConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNoConfig] != "" {
			return true
		}
	}
	return false
}

// stopProfilingAndLogging flushes profiles, stops the metrics server and
// closes the log file. It runs after every command and again on exit.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var profErr error
	if profSession != nil {
		profErr = profSession.Stop()
		profSession = nil
	}

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = metricsServer.Shutdown(ctx)
		cancel()
		metricsServer = nil
	}

	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}

	if profErr != nil {
		return fmt.Errorf("failed to write profiles: %w", profErr)
	}
	return nil
}

// databasePath returns the --db flag or storage.path relative to the
// project root.
func databasePath() string {
	if dbPath != "" {
		return dbPath
	}
	return config.ResolvePath(projectRoot, activeConfig.Storage.Path)
}

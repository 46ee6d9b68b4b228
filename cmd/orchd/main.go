// Package main implements orchd, the orchestration daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/orchd/internal/changeset"
	"github.com/c360studio/orchd/internal/config"
	"github.com/c360studio/orchd/internal/daemon"
	"github.com/c360studio/orchd/internal/llmprovider"
)

// Version and BuildTime are set via -ldflags at release build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		root       string
		configPath string
		logLevel   string
	)

	rootCmd := &cobra.Command{
		Use:     "orchd",
		Short:   "Filesystem-native multi-agent orchestration daemon",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), root, configPath, logLevel)
		},
	}

	rootCmd.Flags().StringVar(&root, "root", "", "Workspace root directory (overrides config and ORCHD_ROOT)")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to orchd.yaml config file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func runDaemon(ctx context.Context, root, configPath, logLevel string) error {
	bootstrapLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// Export --root before Load so a root given only by the flag passes
	// Load's system.root validation.
	if root != "" {
		if err := os.Setenv(config.RootEnvVar, root); err != nil {
			return fmt.Errorf("set %s: %w", config.RootEnvVar, err)
		}
	}

	cfg, err := config.NewLoader(bootstrapLogger).Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if root != "" {
		cfg.System.Root = root
	}
	if logLevel != "" {
		cfg.System.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.System.LogLevel)}))

	// Concrete LLM provider wire formats are an external-collaborator
	// concern; the in-memory mock stands in until a real adapter is
	// registered here.
	providers := llmprovider.NewRegistry()
	providers.Register(llmprovider.NewMockProvider("anthropic", defaultPlanResponse(cfg.Agents.DefaultModel)))

	registrar := changeset.NewFilesystemRegistrar(cfg.System.Root)

	d, err := daemon.New(cfg, providers, registrar, logger)
	if err != nil {
		return fmt.Errorf("initialize daemon: %w", err)
	}

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	logger.Info("orchd started", "root", cfg.System.Root)

	<-ctx.Done()
	logger.Info("shutting down")

	return d.Shutdown()
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultPlanResponse(model string) string {
	return "agent: " + model + "\nmodel: " + model + "\nflow: \"\"\nsteps:\n  - title: Investigate\n    content: Review the request and outline an approach.\n"
}

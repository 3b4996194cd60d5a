package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/MrSnowNB/project-alice/internal/config"
)

const version = "0.1.0"

var (
	// Global flags
	verbose   bool
	workspace string
	timeout   time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "alice",
	Short: "alice - autonomous task execution agent",
	Long: `alice is an autonomous agent that plans, executes, and recovers.

Given a natural-language goal it drafts a step-by-step plan, executes it
with a registry of capabilities (web search, long-term memory, file and
script execution, synthesized tools), classifies failures, replans around
them, and finishes with a structured report.

Dangerous capabilities ask for permission first, the agent can request
human assistance mid-session, and a circuit breaker stops runaway
replanning unless you steer it past the blockage.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := godotenv.Load(); err != nil {
			logger.Debug("No .env file found, using environment variables")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the alice version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("alice %s\n", version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: nearest .alice or go.mod root)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Operation timeout (0 means no limit)")

	// Add commands to root
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveWorkspace returns the workspace root from the --workspace flag
// or by walking up from the current directory.
func resolveWorkspace() (string, error) {
	if workspace != "" {
		abs, err := filepath.Abs(workspace)
		if err != nil {
			return "", fmt.Errorf("invalid workspace path: %w", err)
		}
		return abs, nil
	}
	return config.FindWorkspaceRoot()
}

// signalContext derives a context cancelled by SIGINT/SIGTERM and by the
// global --timeout when one is set.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	var cancel context.CancelFunc
	ctx := parent
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func joinArgs(args []string) string {
	result := ""
	for i, arg := range args {
		if i > 0 {
			result += " "
		}
		result += arg
	}
	return result
}

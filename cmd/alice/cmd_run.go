package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrSnowNB/project-alice/internal/agent"
	"github.com/MrSnowNB/project-alice/internal/capability"
	"github.com/MrSnowNB/project-alice/internal/capability/builtin"
	"github.com/MrSnowNB/project-alice/internal/config"
	"github.com/MrSnowNB/project-alice/internal/logging"
	"github.com/MrSnowNB/project-alice/internal/memory"
	"github.com/MrSnowNB/project-alice/internal/perception"
	"github.com/MrSnowNB/project-alice/internal/sandbox"
)

var headless bool

// runCmd executes one goal to completion
var runCmd = &cobra.Command{
	Use:   "run [goal]",
	Short: "Run the agent against a natural-language goal",
	Long: `Runs one agent session: plan, execute capabilities, recover from
failures, and print the final report.

The session is interactive unless --headless is set: dangerous
capabilities ask for permission, assistance requests are relayed to you,
and the circuit breaker offers a chance to steer before giving up.

Example:
  alice run "Find the current CEO of OpenAI and store it in memory"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGoal,
}

func init() {
	runCmd.Flags().BoolVar(&headless, "headless", false, "Run unattended: approve nothing, conclude on assistance requests")
}

func runGoal(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	cfg, err := config.EnsureDefault(ws)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logging.Initialize(ws); err != nil {
		logger.Warn("File logging unavailable", zap.Error(err))
	}
	defer logging.CloseAll()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	goal := joinArgs(args)
	logger.Info("Starting session", zap.String("goal", goal), zap.String("workspace", ws))

	// Reasoning and execution backends.
	llm := perception.NewFromConfig(cfg)
	runner, err := sandbox.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("sandbox unavailable: %w", err)
	}

	deps := builtin.Deps{Runner: runner, Workspace: ws}
	mem, err := memory.NewFromConfig(cfg)
	if err != nil {
		logger.Warn("Long-term memory unavailable, memory capabilities will report errors", zap.Error(err))
	} else {
		deps.Memory = mem
		defer mem.Close()
	}

	// Capability registry: built-ins plus synthesized tools from the
	// workspace tool directory, hot-reloaded while the session runs.
	registry := capability.NewRegistry()
	if err := builtin.Register(registry, deps); err != nil {
		return fmt.Errorf("failed to register capabilities: %w", err)
	}

	catalog, err := capability.NewCatalog(cfg.CatalogPath())
	if err != nil {
		return fmt.Errorf("failed to open tool catalog: %w", err)
	}
	defer catalog.Close()

	manager := capability.NewManager(registry, catalog, cfg.ToolsDir(), cfg.Sandbox.Timeout())
	if err := manager.Sync(); err != nil {
		logger.Warn("Tool directory sync failed", zap.Error(err))
	}

	if cfg.Tools.WatchEnabled() {
		watcher, werr := capability.NewWatcher(manager)
		if werr != nil {
			logger.Warn("Tool watcher unavailable", zap.Error(werr))
		} else if werr = watcher.Start(ctx); werr != nil {
			logger.Warn("Tool watcher failed to start", zap.Error(werr))
		} else {
			defer watcher.Stop()
		}
	}

	var operator agent.Operator
	if headless {
		operator = agent.AutoOperator{}
	} else {
		operator = newConsoleOperator(os.Stdin, os.Stdout)
	}

	session, err := agent.New(llm, registry, operator, agent.FromConfig(cfg)).Run(ctx, goal)
	if err != nil {
		if session != nil && len(session.CompletedSteps) > 0 {
			logger.Info("Session aborted after partial progress", zap.Int("steps", len(session.CompletedSteps)))
		}
		return fmt.Errorf("session failed: %w", err)
	}

	fmt.Print(renderMarkdown(session.FinalReport))
	return nil
}

// renderMarkdown renders the report for the terminal, falling back to
// the raw markdown when glamour cannot.
func renderMarkdown(md string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = md
		}
	}()

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return rendered
}

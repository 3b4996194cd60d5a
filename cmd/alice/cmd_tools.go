package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrSnowNB/project-alice/internal/capability"
	"github.com/MrSnowNB/project-alice/internal/config"
	"github.com/MrSnowNB/project-alice/internal/logging"
)

var (
	pruneOlderThan int
	pruneDryRun    bool
)

// toolsCmd groups synthesized-tool maintenance commands
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and prune synthesized tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List synthesized tools in the catalog",
	RunE:  toolsList,
}

var toolsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove synthesized tools idle past the staleness threshold",
	Long: `Removes synthesized tools that have not been used for longer than the
threshold (tools.prune_days in config, or --older-than). The tool source
file, its catalog row, and its registration are all removed. Built-in
capabilities are never pruned.`,
	RunE: toolsPrune,
}

func init() {
	toolsPruneCmd.Flags().IntVar(&pruneOlderThan, "older-than", 0, "Staleness threshold in days (default from config)")
	toolsPruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Show what would be pruned without removing anything")

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsPruneCmd)
}

// openCatalog loads configuration and opens the tool catalog.
func openCatalog() (*config.Config, *capability.Catalog, error) {
	ws, err := resolveWorkspace()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.EnsureDefault(ws)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logging.Initialize(ws); err != nil {
		logger.Warn("File logging unavailable", zap.Error(err))
	}

	catalog, err := capability.NewCatalog(cfg.CatalogPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open tool catalog: %w", err)
	}
	return cfg, catalog, nil
}

func toolsList(cmd *cobra.Command, args []string) error {
	_, catalog, err := openCatalog()
	if err != nil {
		return err
	}
	defer catalog.Close()
	defer logging.CloseAll()

	entries, err := catalog.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No synthesized tools in the catalog.")
		return nil
	}

	fmt.Printf("%-28s %5s  %-16s %s\n", "NAME", "USES", "LAST USED", "DESCRIPTION")
	for _, e := range entries {
		lastUsed := "never"
		if e.LastUsed != nil {
			lastUsed = e.LastUsed.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-28s %5d  %-16s %s\n", e.Name, e.UseCount, lastUsed, e.Description)
	}
	return nil
}

func toolsPrune(cmd *cobra.Command, args []string) error {
	cfg, catalog, err := openCatalog()
	if err != nil {
		return err
	}
	defer catalog.Close()
	defer logging.CloseAll()

	days := pruneOlderThan
	if days <= 0 {
		days = cfg.Tools.PruneDays
	}
	if days <= 0 {
		fmt.Println("Pruning is disabled. Set tools.prune_days in config or pass --older-than.")
		return nil
	}
	age := time.Duration(days) * 24 * time.Hour

	if pruneDryRun {
		entries, err := catalog.List()
		if err != nil {
			return err
		}
		cutoff := time.Now().Add(-age)
		stale := 0
		for _, e := range entries {
			if e.IdleSince().Before(cutoff) {
				fmt.Printf("would prune %s (idle since %s)\n", e.Name, e.IdleSince().Format("2006-01-02"))
				stale++
			}
		}
		if stale == 0 {
			fmt.Printf("Nothing idle for more than %d days.\n", days)
		}
		return nil
	}

	registry := capability.NewRegistry()
	manager := capability.NewManager(registry, catalog, cfg.ToolsDir(), cfg.Sandbox.Timeout())
	if err := manager.Sync(); err != nil {
		logger.Warn("Tool directory sync failed", zap.Error(err))
	}

	pruned, err := manager.Prune(age)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}
	if len(pruned) == 0 {
		fmt.Printf("Nothing idle for more than %d days.\n", days)
		return nil
	}
	for _, name := range pruned {
		fmt.Printf("pruned %s\n", name)
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrSnowNB/project-alice/internal/config"
	"github.com/MrSnowNB/project-alice/internal/logging"
	"github.com/MrSnowNB/project-alice/internal/memory"
	"github.com/MrSnowNB/project-alice/internal/memsvc"
)

var serveAddr string

// memoryCmd groups the long-term memory commands
var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Long-term memory commands (serve, add, query)",
}

var memoryServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the memory layer as an HTTP daemon",
	Long: `Serves two-stage retrieval over HTTP:

  POST /query    {"query": "..."}            -> reranked passages
  POST /add      {"content": "...", ...}     -> store a document
  GET  /healthz                              -> document count
  GET  /metrics                              -> Prometheus metrics`,
	RunE: memoryServe,
}

var memoryAddCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Store one memory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  memoryAdd,
}

var memoryQueryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Retrieve memories relevant to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  memoryQuery,
}

func init() {
	memoryServeCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")

	memoryCmd.AddCommand(memoryServeCmd)
	memoryCmd.AddCommand(memoryAddCmd)
	memoryCmd.AddCommand(memoryQueryCmd)
}

// openMemory loads configuration and builds the memory service.
func openMemory() (*config.Config, *memory.Service, error) {
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

	svc, err := memory.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open memory: %w", err)
	}
	return cfg, svc, nil
}

func memoryServe(cmd *cobra.Command, args []string) error {
	cfg, svc, err := openMemory()
	if err != nil {
		return err
	}
	defer svc.Close()
	defer logging.CloseAll()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Service.Addr
	}

	server, err := memsvc.NewServer(svc, logger, addr)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	logger.Info("Memory service listening", zap.String("addr", addr), zap.Int("documents", svc.Count()))
	return server.Run(ctx)
}

func memoryAdd(cmd *cobra.Command, args []string) error {
	_, svc, err := openMemory()
	if err != nil {
		return err
	}
	defer svc.Close()
	defer logging.CloseAll()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	text := joinArgs(args)
	if err := svc.Remember(ctx, text, map[string]string{"source": "cli"}); err != nil {
		return fmt.Errorf("failed to store memory: %w", err)
	}

	fmt.Printf("Stored. Memory now holds %d documents.\n", svc.Count())
	return nil
}

func memoryQuery(cmd *cobra.Command, args []string) error {
	_, svc, err := openMemory()
	if err != nil {
		return err
	}
	defer svc.Close()
	defer logging.CloseAll()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	result, err := svc.Retrieve(ctx, joinArgs(args))
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}
	if !result.Found {
		fmt.Println("No relevant memories found.")
		return nil
	}

	for i, p := range result.Passages {
		fmt.Printf("%d. (score %.3f) %s\n", i+1, p.Score, p.Content)
		if src, ok := p.Metadata["source"]; ok {
			fmt.Println(mutedStyle.Render("   source: " + src))
		}
	}
	return nil
}

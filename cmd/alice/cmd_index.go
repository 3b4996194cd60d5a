package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrSnowNB/project-alice/internal/indexer"
	"github.com/MrSnowNB/project-alice/internal/logging"
)

var (
	indexChunkSize    int
	indexChunkOverlap int
	indexWorkers      int
)

// indexCmd bulk-loads documents into long-term memory
var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index .txt and .md files into long-term memory",
	Long: `Walks a directory (or takes a single file), splits documents into
overlapping chunks, and stores them in the vector memory with source
and chunk-number metadata. Hidden directories are skipped.

Example:
  alice index ./docs`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().IntVar(&indexChunkSize, "chunk-size", indexer.DefaultChunkSize, "Chunk size in characters")
	indexCmd.Flags().IntVar(&indexChunkOverlap, "chunk-overlap", indexer.DefaultChunkOverlap, "Overlap between adjacent chunks")
	indexCmd.Flags().IntVar(&indexWorkers, "workers", indexer.DefaultConcurrency, "Concurrent file readers")
}

func runIndex(cmd *cobra.Command, args []string) error {
	_, svc, err := openMemory()
	if err != nil {
		return err
	}
	defer svc.Close()
	defer logging.CloseAll()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	logger.Info("Indexing", zap.String("path", args[0]))
	stats, err := indexer.New(svc, indexChunkSize, indexChunkOverlap, indexWorkers).Index(ctx, args[0])
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("Indexed %s. Memory now holds %d documents.\n", stats, svc.Count())
	return nil
}

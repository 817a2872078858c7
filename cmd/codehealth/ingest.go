package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opensrc/codehealth/internal/extractor"
	"github.com/opensrc/codehealth/internal/ingestion"
)

var (
	ingestPatterns []string
	ingestMaxMB    int
	ingestBatch    int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <repo-path>",
	Short: "Walk a repository and load its source graph into the store.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, cfg, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		patterns := ingestPatterns
		if len(patterns) == 0 {
			patterns = cfg.Ingestion.Patterns
		}

		stats, err := ingestion.Ingest(ctx, store, args[0], ingestion.Options{
			Patterns:       patterns,
			FollowSymlinks: cfg.Ingestion.FollowSymlinks,
			MaxFileSizeMB:  orDefault(ingestMaxMB, cfg.Ingestion.MaxFileSizeMB),
			BatchSize:      orDefault(ingestBatch, cfg.Ingestion.BatchSize),
			SecretsPolicy:  extractor.SecretsPolicy(cfg.Ingestion.SecretsPolicy),
			Progress: func(current, total int, filename string) {
				if cmd.Flags().Changed("verbose") {
					fmt.Fprintf(cmd.OutOrStdout(), "[%d/%d] %s\n", current, total, filename)
				}
			},
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ingested %d files (%d skipped): %d classes, %d functions, %d relationships\n",
			stats.FilesParsed, stats.FilesSkipped, stats.Classes, stats.Functions, stats.Relationships)
		return nil
	},
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func init() {
	addGraphFlags(ingestCmd)
	ingestCmd.Flags().StringSliceVar(&ingestPatterns, "pattern", nil, "glob patterns to match source files (repeatable)")
	ingestCmd.Flags().IntVar(&ingestMaxMB, "max-file-size-mb", 0, "skip files larger than this (0 = use config default)")
	ingestCmd.Flags().IntVar(&ingestBatch, "batch-size", 0, "graph write batch size (0 = use config default)")
}

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opensrc/codehealth/internal/engine"
)

var (
	analyzeKeepMetadata bool
	analyzeJSON         bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repo-path>",
	Short: "Run the detector suite against a previously ingested repository and print a health report.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, cfg, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		report, err := engine.Analyze(ctx, store, store, engine.Options{
			DetectorConfig: cfg.Detectors,
			RepositoryPath: args[0],
			KeepMetadata:   analyzeKeepMetadata,
		})
		if err != nil {
			return err
		}

		if analyzeJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "grade: %s  overall: %.1f  (structure %.1f, quality %.1f, architecture %.1f)\n",
			report.Grade, report.OverallScore, report.StructureScore, report.QualityScore, report.ArchitectureScore)
		fmt.Fprintf(cmd.OutOrStdout(), "findings: %d (critical %d, high %d, medium %d, low %d, info %d)\n",
			report.FindingsSummary.Total, report.FindingsSummary.Critical, report.FindingsSummary.High,
			report.FindingsSummary.Medium, report.FindingsSummary.Low, report.FindingsSummary.Info)
		for _, f := range report.Findings {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", f.Severity, f.Detector, f.Title)
		}
		return nil
	},
}

func init() {
	addGraphFlags(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeKeepMetadata, "keep-metadata", false, "retain DetectorMetadata nodes after analysis")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit the full HealthReport as JSON")
}

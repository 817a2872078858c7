package collab

import (
	"testing"

	"github.com/opensrc/codehealth/internal/model"
)

func TestDedupMergesOverlappingNodeFindings(t *testing.T) {
	// P12: same file, overlapping AffectedNodes -> merged into one
	// survivor, evidence conserved via Collaboration.
	findings := []model.Finding{
		{
			ID: "AAA", Detector: "GodClassDetector", Severity: model.SeverityHigh,
			AffectedFiles: []string{"a.py"}, AffectedNodes: []string{"a.py::Foo:1"},
			Title: "God class",
		},
		{
			ID: "BBB", Detector: "FeatureEnvyDetector", Severity: model.SeverityMedium,
			AffectedFiles: []string{"a.py"}, AffectedNodes: []string{"a.py::Foo:1"},
			Title: "Feature envy",
		},
	}

	merged, stats := Dedup(findings)
	if stats.OriginalCount != 2 {
		t.Errorf("OriginalCount = %d, want 2", stats.OriginalCount)
	}
	if len(merged) != 1 {
		t.Fatalf("expected one merged survivor, got %d: %+v", len(merged), merged)
	}
	if stats.DuplicatesRemoved != 1 {
		t.Errorf("DuplicatesRemoved = %d, want 1", stats.DuplicatesRemoved)
	}
	if merged[0].Severity != model.SeverityHigh {
		t.Errorf("survivor severity = %v, want HIGH (most severe wins)", merged[0].Severity)
	}
	if len(merged[0].Collaboration) != 1 || merged[0].Collaboration[0].Detector != "FeatureEnvyDetector" {
		t.Errorf("survivor collaboration = %+v, want one entry from FeatureEnvyDetector", merged[0].Collaboration)
	}
}

func TestDedupMergesFindingsNearInLines(t *testing.T) {
	findings := []model.Finding{
		{
			ID: "AAA", Detector: "LongParameterListDetector", Severity: model.SeverityMedium,
			AffectedFiles: []string{"a.py"}, GraphContext: map[string]any{"line": 10},
		},
		{
			ID: "BBB", Detector: "DataClumpsDetector", Severity: model.SeverityLow,
			AffectedFiles: []string{"a.py"}, GraphContext: map[string]any{"line": 15},
		},
	}
	merged, _ := Dedup(findings)
	if len(merged) != 1 {
		t.Fatalf("expected findings within proximityLines to merge, got %d: %+v", len(merged), merged)
	}
}

func TestDedupDoesNotMergeAcrossFiles(t *testing.T) {
	findings := []model.Finding{
		{ID: "AAA", Detector: "DeadCodeDetector", Severity: model.SeverityLow, AffectedFiles: []string{"a.py"}},
		{ID: "BBB", Detector: "DeadCodeDetector", Severity: model.SeverityLow, AffectedFiles: []string{"b.py"}},
	}
	merged, stats := Dedup(findings)
	if len(merged) != 2 {
		t.Fatalf("findings on different files must not merge, got %d: %+v", len(merged), merged)
	}
	if stats.DuplicatesRemoved != 0 {
		t.Errorf("DuplicatesRemoved = %d, want 0", stats.DuplicatesRemoved)
	}
}

func TestDedupDoesNotMergeFarApartLines(t *testing.T) {
	findings := []model.Finding{
		{ID: "AAA", Detector: "DeadCodeDetector", Severity: model.SeverityLow,
			AffectedFiles: []string{"a.py"}, GraphContext: map[string]any{"line": 10}},
		{ID: "BBB", Detector: "DeadCodeDetector", Severity: model.SeverityLow,
			AffectedFiles: []string{"a.py"}, GraphContext: map[string]any{"line": 500}},
	}
	merged, _ := Dedup(findings)
	if len(merged) != 2 {
		t.Fatalf("findings far apart in the same file must not merge, got %d: %+v", len(merged), merged)
	}
}

func TestDedupEmptyInput(t *testing.T) {
	merged, stats := Dedup(nil)
	if len(merged) != 0 || stats.OriginalCount != 0 || stats.MergedCount != 0 {
		t.Errorf("Dedup(nil) = %+v, %+v, want all zero", merged, stats)
	}
}

func TestDedupConservesTotalCountAcrossClusters(t *testing.T) {
	// P12: MergedCount + DuplicatesRemoved == OriginalCount always.
	findings := []model.Finding{
		{ID: "A", Detector: "X", Severity: model.SeverityLow, AffectedFiles: []string{"a.py"}, AffectedNodes: []string{"n1"}},
		{ID: "B", Detector: "Y", Severity: model.SeverityLow, AffectedFiles: []string{"a.py"}, AffectedNodes: []string{"n1"}},
		{ID: "C", Detector: "Z", Severity: model.SeverityLow, AffectedFiles: []string{"b.py"}, AffectedNodes: []string{"n2"}},
	}
	_, stats := Dedup(findings)
	if stats.MergedCount+stats.DuplicatesRemoved != stats.OriginalCount {
		t.Errorf("conservation violated: merged=%d removed=%d original=%d",
			stats.MergedCount, stats.DuplicatesRemoved, stats.OriginalCount)
	}
}

package detectors

import (
	"context"
	"fmt"
	"sort"

	"github.com/opensrc/codehealth/internal/algorithms"
	"github.com/opensrc/codehealth/internal/model"
)

// CircularDependency runs SCC over File/IMPORTS (§4.4) and emits one
// finding per cycle, severity by cycle length (§4.5, scenario 1).
// Cycles are normalized (P2) before dedup so "A->B->C" and a rotation of
// it collapse to the same finding.
func CircularDependency(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	sccs, err := algorithms.StronglyConnectedComponents(ctx, env.Reader)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var findings []model.Finding
	for _, cycle := range sccs {
		if len(cycle) < 2 {
			continue
		}
		key := algorithms.CycleKey(cycle)
		if seen[key] {
			continue
		}
		seen[key] = true

		norm := algorithms.Normalize(cycle)
		sev := cycleLengthToSeverity(len(norm))
		findings = append(findings, model.Finding{
			ID:            findingID("CircularDependencyDetector", norm[0]),
			Detector:      "CircularDependencyDetector",
			Severity:      sev,
			Title:         fmt.Sprintf("Circular dependency involving %d files", len(norm)),
			Description:   fmt.Sprintf("Files form an import cycle: %v", norm),
			AffectedNodes: norm,
			AffectedFiles: norm,
			GraphContext: map[string]any{
				"type":        "circular_dependency",
				"cycleLength": len(norm),
				"cycle":       norm,
			},
			SuggestedFix: &model.SuggestedFix{
				Description: "Extract the shared interface into a separate module to break the cycle.",
				EffortHours: float64(len(norm)),
			},
		})
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].ID < findings[j].ID })
	return findings, nil
}

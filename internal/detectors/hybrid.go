package detectors

import (
	"context"
	"fmt"

	"github.com/opensrc/codehealth/internal/linter"
	"github.com/opensrc/codehealth/internal/model"
)

// HybridDetector wraps an external linter.Runner behind the Detector
// interface, following the invoke -> parse -> correlate -> emit template
// (§4.5). Correlation matches a diagnostic to the nearest graph node
// sharing its filePath whose [lineStart, lineEnd] span contains the
// diagnostic's line; ties favor the innermost (smallest) span.
type HybridDetector struct {
	DetectorName string
	Runner       *linter.Runner
	RepoPath     string
	Severity     func(linter.Diagnostic) model.Severity
}

func (h *HybridDetector) Name() string { return h.DetectorName }

func (h *HybridDetector) Detect(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	diagnostics, err := h.Runner.Run(ctx, h.RepoPath)
	if err != nil {
		return nil, err
	}
	if len(diagnostics) == 0 {
		return nil, nil
	}

	index, err := buildLocationIndex(ctx, env)
	if err != nil {
		return nil, err
	}

	var findings []model.Finding
	for _, d := range diagnostics {
		node := index.nearest(d.FilePath, d.Line)
		sev := model.SeverityMedium
		if h.Severity != nil {
			sev = h.Severity(d)
		}
		finding := model.Finding{
			ID:          findingID(h.DetectorName, fmt.Sprintf("%s:%d:%s", d.FilePath, d.Line, d.Rule)),
			Detector:    h.DetectorName,
			Severity:    sev,
			Title:       fmt.Sprintf("%s: %s", d.Rule, d.Message),
			Description: d.Message,
			AffectedFiles: []string{d.FilePath},
			GraphContext: map[string]any{
				"type": "hybrid_lint", "rule": d.Rule, "line": d.Line,
			},
		}
		if node != nil {
			finding.AffectedNodes = []string{node.QualifiedName}
		}
		findings = append(findings, finding)
	}
	return findings, nil
}

// locationIndex resolves (filePath, line) to the innermost enclosing
// graph node, built once per hybrid-detector run from Class and
// Function nodes (the only labels with a meaningful line span for
// correlation).
type locationIndex struct {
	byFile map[string][]model.NodeRecord
}

func buildLocationIndex(ctx context.Context, env Context) (*locationIndex, error) {
	idx := &locationIndex{byFile: map[string][]model.NodeRecord{}}
	for _, label := range []model.NodeLabel{model.LabelClass, model.LabelFunction} {
		nodes, err := env.Reader.Nodes(ctx, label)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			idx.byFile[n.FilePath] = append(idx.byFile[n.FilePath], n)
		}
	}
	return idx, nil
}

func (idx *locationIndex) nearest(filePath string, line int) *model.NodeRecord {
	var best *model.NodeRecord
	bestSpan := -1
	for i, n := range idx.byFile[filePath] {
		if line < n.LineStart || line > n.LineEnd {
			continue
		}
		span := n.LineEnd - n.LineStart
		if bestSpan == -1 || span < bestSpan {
			bestSpan = span
			best = &idx.byFile[filePath][i]
		}
	}
	return best
}

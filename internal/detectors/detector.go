// Package detectors implements the code-smell and structural-risk
// detector library (§4.5): one function per detector, each returning
// model.Finding values it can defend from graphContext alone. Detectors
// never mutate the graph; the Engine (internal/engine) owns ordering,
// accumulation, and the previousFindings hand-off.
//
// Reference: rohankatakam-coderisk's internal/analysis/phase0 orchestrates
// a fixed set of independent detectors into one result - the same shape
// generalized here to graph-backed structural detectors.
package detectors

import (
	"context"

	"github.com/opensrc/codehealth/internal/config"
	"github.com/opensrc/codehealth/internal/graph"
	"github.com/opensrc/codehealth/internal/model"
)

// Context is the read-only environment every detector runs in: a typed
// graph view and the operator's threshold overrides. Detectors read the
// graph through GraphReader; the raw graph.Store is only handed on by
// the centrality/cohesion wrappers to internal/algorithms, and no
// detector builds Cypher strings itself.
type Context struct {
	Reader graph.GraphReader
	Store  graph.Store // only used by the few detectors that drive C4 algorithms
	Config config.DetectorConfig
}

// Detector is the capability set every family implements (§9 "Detector
// polymorphism"): detect, optionally informed by prior findings.
type Detector interface {
	Name() string
	Detect(ctx context.Context, env Context, previousFindings []model.Finding) ([]model.Finding, error)
}

// DetectorFunc adapts a plain function to Detector, the way §9 suggests
// ("a sum type or a trait object suffices" - no inheritance hierarchy).
type DetectorFunc struct {
	DetectorName string
	Fn           func(ctx context.Context, env Context, previousFindings []model.Finding) ([]model.Finding, error)
}

func (f DetectorFunc) Name() string { return f.DetectorName }

func (f DetectorFunc) Detect(ctx context.Context, env Context, previousFindings []model.Finding) ([]model.Finding, error) {
	return f.Fn(ctx, env, previousFindings)
}

// findingID derives a stable id from the detector name and the primary
// affected entity, so re-running detection over an unchanged graph
// reproduces identical ids (needed for P1-style identity downstream in
// dedup/root-cause linkage).
func findingID(detector, primaryEntity string) string {
	return detector + "::" + primaryEntity
}

// flaggedBy returns the earlier findings whose AffectedNodes include
// qualifiedName - the in-process half of the two collaboration channels
// described in §9.
func flaggedBy(previousFindings []model.Finding, qualifiedName string) []model.Finding {
	var out []model.Finding
	for _, f := range previousFindings {
		for _, n := range f.AffectedNodes {
			if n == qualifiedName {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

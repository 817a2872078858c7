package detectors

import (
	"context"
	"fmt"

	"github.com/opensrc/codehealth/internal/algorithms"
	"github.com/opensrc/codehealth/internal/model"
)

// topN caps how many scores a centrality wrapper surfaces as findings;
// the algorithm itself ranks the whole graph, but only the extremes are
// actionable findings.
const topN = 10

// minGraphSizeForCentrality is the smallest function-node count at
// which a centrality ranking is meaningful. PageRank/betweenness/
// harmonic scores are positive for nearly any node with a single
// incoming or outgoing call, so on a handful of functions "top by
// score" is statistical noise, not a structural signal - a one- or
// two-function call graph should never produce an Influential-Code,
// Core-Utility, or Architectural-Bottleneck finding.
const minGraphSizeForCentrality = 15

// InfluentialCode wraps PageRank over CALLS (§4.4): the most-called
// functions are flagged as influential, worth extra test coverage.
func InfluentialCode(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	scores, err := algorithms.PageRank(ctx, env.Store, env.Reader)
	if err != nil {
		return nil, err
	}
	return topScoresToFindings(ctx, env, scores, "InfluentialCodeDetector", "influential_code",
		"Influential function: %s", "Function '%s' ranks highly by PageRank over incoming calls; changes here have broad blast radius.")
}

// CoreUtility wraps harmonic centrality (§4.4): high = central
// coordinator the rest of the codebase depends on.
func CoreUtility(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	scores, err := algorithms.HarmonicCentrality(ctx, env.Store, env.Reader)
	if err != nil {
		return nil, err
	}
	return topScoresToFindings(ctx, env, scores, "CoreUtilityDetector", "core_utility",
		"Core utility function: %s", "Function '%s' has high harmonic centrality; it coordinates a large share of the call graph.")
}

// ArchitecturalBottleneck wraps betweenness centrality (§4.4): functions
// on many shortest call paths are chokepoints.
func ArchitecturalBottleneck(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	scores, err := algorithms.BetweennessCentrality(ctx, env.Store, env.Reader)
	if err != nil {
		return nil, err
	}
	return topScoresToFindings(ctx, env, scores, "ArchitecturalBottleneckDetector", "architectural_bottleneck",
		"Architectural bottleneck: %s", "Function '%s' sits on an unusually large number of shortest call paths.")
}

func topScoresToFindings(ctx context.Context, env Context, scores []algorithms.Score, detector, kind, titleFmt, descFmt string) ([]model.Finding, error) {
	if len(scores) < minGraphSizeForCentrality {
		return nil, nil
	}
	var findings []model.Finding
	n := len(scores)
	if n > topN {
		n = topN
	}
	for _, s := range scores[:n] {
		if s.Value <= 0 {
			continue
		}
		node, ok, err := env.Reader.Node(ctx, s.QualifiedName)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID(detector, s.QualifiedName),
			Detector:      detector,
			Severity:      model.SeverityInfo,
			Title:         fmt.Sprintf(titleFmt, node.Name),
			Description:   fmt.Sprintf(descFmt, node.Name),
			AffectedNodes: []string{s.QualifiedName},
			AffectedFiles: []string{node.FilePath},
			GraphContext:  map[string]any{"type": kind, "score": s.Value},
		})
	}
	return findings, nil
}

// DegreeCentrality wraps raw in/out degree over CALLS (§4.4): feeds
// god-class/feature-envy/hotspot heuristics directly as a finding family
// of its own (high in+out degree functions and classes).
func DegreeCentrality(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	funcScores, err := algorithms.DegreeCentrality(ctx, env.Reader, model.LabelFunction, model.RelCalls)
	if err != nil {
		return nil, err
	}
	classScores, err := algorithms.DegreeCentrality(ctx, env.Reader, model.LabelClass, model.RelUses)
	if err != nil {
		return nil, err
	}
	threshold := env.Config.Thresholds["degree_centrality_hotspot"]
	if threshold == 0 {
		threshold = 20
	}

	var findings []model.Finding
	for _, s := range append(funcScores, classScores...) {
		if s.Value < threshold {
			continue
		}
		node, ok, err := env.Reader.Node(ctx, s.QualifiedName)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID("DegreeCentralityDetector", s.QualifiedName),
			Detector:      "DegreeCentralityDetector",
			Severity:      severityForFanIn(int(s.Value)),
			Title:         fmt.Sprintf("Hotspot: %s", node.Name),
			Description:   fmt.Sprintf("'%s' has a combined in/out degree of %.0f, well above the hotspot threshold.", node.Name, s.Value),
			AffectedNodes: []string{s.QualifiedName},
			AffectedFiles: []string{node.FilePath},
			GraphContext:  map[string]any{"type": "degree_centrality", "degree": s.Value},
		})
	}
	return findings, nil
}

// ModuleCohesion wraps Louvain community detection over File/IMPORTS
// (§4.4): a low modularity score means files don't cleanly partition
// into cohesive modules.
func ModuleCohesion(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	_, modularity, err := algorithms.LouvainCommunities(ctx, env.Store, env.Reader)
	if err != nil {
		return nil, err
	}
	threshold := env.Config.Thresholds["module_cohesion_modularity"]
	if threshold == 0 {
		threshold = 0.3
	}
	if modularity >= threshold {
		return nil, nil
	}
	files, err := env.Reader.Nodes(ctx, model.LabelFile)
	if err != nil {
		return nil, err
	}
	allFiles := make([]string, 0, len(files))
	for _, f := range files {
		allFiles = append(allFiles, f.QualifiedName)
	}
	return []model.Finding{{
		ID:            findingID("ModuleCohesionDetector", "repository"),
		Detector:      "ModuleCohesionDetector",
		Severity:      model.SeverityMedium,
		Title:         "Low module cohesion",
		Description:   fmt.Sprintf("Import-based community modularity is %.2f, below the %.2f threshold; the codebase doesn't partition cleanly into cohesive modules.", modularity, threshold),
		AffectedNodes: nil,
		AffectedFiles: allFiles,
		GraphContext:  map[string]any{"type": "module_cohesion", "modularity": modularity},
	}}, nil
}

// Package engine implements the Analysis Engine (C8): runs every
// detector in fixed order, threads the in-process previousFindings
// channel between them, deduplicates and root-cause-links the result
// (C7), computes the metrics breakdown, category scores, overall score
// and grade, and assembles the final HealthReport (§4.8, §6.1).
//
// Reference: _examples/rohankatakam-coderisk/internal/analysis/phase0/detector.go -
// the fixed-order-collect-then-synthesize shape this orchestrator
// generalizes; panic recovery per detector is grounded on the same
// file's per-check isolation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"time"

	"github.com/opensrc/codehealth/internal/algorithms"
	"github.com/opensrc/codehealth/internal/collab"
	"github.com/opensrc/codehealth/internal/config"
	"github.com/opensrc/codehealth/internal/detectors"
	"github.com/opensrc/codehealth/internal/enrich"
	"github.com/opensrc/codehealth/internal/errors"
	"github.com/opensrc/codehealth/internal/graph"
	"github.com/opensrc/codehealth/internal/metrics"
	"github.com/opensrc/codehealth/internal/model"
)

// Options configures one analyze() call (§6.1).
type Options struct {
	DetectorConfig config.DetectorConfig
	RepositoryPath string
	KeepMetadata   bool
	Detectors      []detectors.Detector // nil uses detectors.All()
}

// Analyze runs the full detection-through-scoring pipeline against
// store/reader and returns the assembled HealthReport. A detector panic
// or error is logged, drops only that detector's findings, and makes the
// run log a degraded-mode warning once it completes (§7); it is never
// fatal to the overall run. The report itself carries no degraded flag.
func Analyze(ctx context.Context, store graph.Store, reader graph.GraphReader, opts Options) (model.HealthReport, error) {
	logger := slog.Default().With("component", "engine")
	started := time.Now()
	defer func() { metrics.ObserveAnalysisSeconds(time.Since(started).Seconds()) }()

	detectorList := opts.Detectors
	if detectorList == nil {
		detectorList = detectors.All()
	}

	env := detectors.Context{Reader: reader, Store: store, Config: opts.DetectorConfig}
	enricher := enrich.New(store)
	defer enricher.Cleanup(ctx, opts.KeepMetadata)

	var findings []model.Finding
	degraded := false

	for _, d := range detectorList {
		detStart := time.Now()
		result, err := runDetector(ctx, d, env, findings)
		metrics.ObserveDetectorSeconds(d.Name(), time.Since(detStart).Seconds())
		if err != nil {
			logger.Error("detector failed", "detector", d.Name(), "error", err)
			degraded = true
			continue
		}
		for _, f := range result {
			enricher.FlagEntity(ctx, primaryNode(f), f.Detector, 1.0, []string{f.Title}, f.Severity)
		}
		findings = append(findings, result...)
	}
	metrics.RecordFindingsEmitted(len(findings))

	deduped, dedupStats := collab.Dedup(findings)
	metrics.RecordFindingsDeduped(dedupStats.DuplicatesRemoved)
	linked := collab.LinkRootCauses(deduped)

	sortFindings(linked)

	graphStats, err := store.GetStats(ctx)
	if err != nil {
		return model.HealthReport{}, err
	}
	mb, err := computeMetrics(ctx, store, reader, graphStats, linked)
	if err != nil {
		return model.HealthReport{}, err
	}

	structureScore := structureScore(mb)
	qualityScore := qualityScore(mb)
	architectureScore := architectureScore(mb)
	overall := model.Overall(structureScore, qualityScore, architectureScore)

	report := model.HealthReport{
		Grade:             model.ScoreToGrade(overall),
		OverallScore:      overall,
		StructureScore:    structureScore,
		QualityScore:      qualityScore,
		ArchitectureScore: architectureScore,
		Metrics:           mb,
		FindingsSummary:   summarize(linked),
		Findings:          linked,
		AnalyzedAt:        time.Now().UTC(),
		DedupStats:        &dedupStats,
	}
	if degraded {
		logger.Warn("analysis completed in degraded mode: one or more detectors failed")
	}
	return report, nil
}

// runDetector isolates one detector's panic so it cannot take down the
// whole run (§7 DetectorError: "one detector raising -> logged with a
// stack trace; its findings are dropped; other detectors continue").
func runDetector(ctx context.Context, d detectors.Detector, env detectors.Context, previous []model.Finding) (result []model.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.DetectorError(fmt.Errorf("panic: %v\n%s", r, debug.Stack()), d.Name())
		}
	}()
	return d.Detect(ctx, env, previous)
}

func primaryNode(f model.Finding) string {
	if len(f.AffectedNodes) > 0 {
		return f.AffectedNodes[0]
	}
	return ""
}

// sortFindings applies the engine-level ordering from §5: severity
// descending, detector name ascending, id ascending.
func sortFindings(findings []model.Finding) {
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity > findings[j].Severity
		}
		if findings[i].Detector != findings[j].Detector {
			return findings[i].Detector < findings[j].Detector
		}
		return findings[i].ID < findings[j].ID
	})
}

func summarize(findings []model.Finding) model.FindingsSummary {
	var s model.FindingsSummary
	for _, f := range findings {
		s.Total++
		switch f.Severity {
		case model.SeverityCritical:
			s.Critical++
		case model.SeverityHigh:
			s.High++
		case model.SeverityMedium:
			s.Medium++
		case model.SeverityLow:
			s.Low++
		default:
			s.Info++
		}
	}
	return s
}

// computeMetrics derives the MetricsBreakdown from graph statistics and
// the finding set (§4.8): everything here is read-only, post-detection
// aggregation, no further graph algorithm is re-run beyond Louvain
// (needed for modularity, which detectors don't all compute).
func computeMetrics(ctx context.Context, store graph.Store, reader graph.GraphReader, stats graph.Stats, findings []model.Finding) (model.MetricsBreakdown, error) {
	mb := model.MetricsBreakdown{
		TotalFiles:     stats.Files,
		TotalClasses:   stats.Classes,
		TotalFunctions: stats.Functions,
	}

	functions, err := reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return mb, err
	}
	totalLoc := 0
	for _, fn := range functions {
		if fn.LineEnd >= fn.LineStart {
			totalLoc += fn.LineEnd - fn.LineStart + 1
		}
	}
	mb.TotalLoc = totalLoc

	classes, err := reader.Nodes(ctx, model.LabelClass)
	if err != nil {
		return mb, err
	}
	abstractCount := 0
	for _, c := range classes {
		if model.Prop(c.Properties, "isAbstract", false) {
			abstractCount++
		}
	}
	// Below minClassesForAbstractionRatio, the ratio is statistical
	// noise (a single concrete class reads as "ratio 0", the worst
	// possible band score, even though a handful of classes says
	// nothing about the codebase's abstraction layering). Treat it as
	// neutral - full band credit - until there's a big enough sample.
	if len(classes) >= minClassesForAbstractionRatio {
		mb.AbstractionRatio = float64(abstractCount) / float64(len(classes))
	} else {
		mb.AbstractionRatio = neutralAbstractionRatio
	}

	callEdges, err := reader.AllEdges(ctx, model.RelCalls)
	if err != nil {
		return mb, err
	}
	useEdges, err := reader.AllEdges(ctx, model.RelUses)
	if err != nil {
		return mb, err
	}
	totalEntities := len(functions) + len(classes)
	if totalEntities > 0 {
		mb.AvgCoupling = float64(len(callEdges)+len(useEdges)) / float64(totalEntities)
	}

	_, modularity, err := algorithms.LouvainCommunities(ctx, store, reader)
	if err != nil {
		mb.Modularity = 0
	} else {
		mb.Modularity = modularity
	}

	countByDetector := map[string]int{}
	for _, f := range findings {
		countByDetector[f.Detector]++
	}
	mb.GodClassCount = countByDetector["GodClassDetector"]
	mb.CircularDependencies = countByDetector["CircularDependencyDetector"]
	mb.BottleneckCount = countByDetector["ArchitecturalBottleneckDetector"]

	deadCodeFindings := countByDetector["DeadCodeDetector"]
	if totalEntities > 0 {
		mb.DeadCodePercentage = float64(deadCodeFindings) / float64(totalEntities)
	}

	return mb, nil
}

func structureScore(mb model.MetricsBreakdown) float64 {
	return mean(
		mb.Modularity*100,
		maxFloat(0, 100-mb.AvgCoupling*10),
		100-minFloat(50, float64(mb.CircularDependencies)*10),
		100-minFloat(30, float64(mb.BottleneckCount)*5),
	)
}

func qualityScore(mb model.MetricsBreakdown) float64 {
	return mean(
		100-mb.DeadCodePercentage*100,
		100-mb.DuplicationPercentage*100,
		100-minFloat(40, float64(mb.GodClassCount)*15),
	)
}

// minClassesForAbstractionRatio and neutralAbstractionRatio: see
// computeMetrics - below this sample size the abstraction ratio isn't
// penalized or rewarded, it's simply not read as a signal yet.
const (
	minClassesForAbstractionRatio = 5
	neutralAbstractionRatio       = 0.5
)

func architectureScore(mb model.MetricsBreakdown) float64 {
	return mean(
		100-minFloat(50, float64(mb.LayerViolations)*5),
		100-minFloat(40, float64(mb.BoundaryViolations)*3),
		model.AbstractionBand(mb.AbstractionRatio),
	)
}

func mean(values ...float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

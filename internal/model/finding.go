package model

import (
	"encoding/json"
	"time"
)

// Severity is the ordered scale used throughout detection and scoring.
// Order matters: comparisons (P9, P14) rely on the integer ranking below.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Escalate raises severity by one level, saturating at CRITICAL. Used by
// the risk-escalation law (P14).
func (s Severity) Escalate() Severity {
	if s >= SeverityCritical {
		return SeverityCritical
	}
	return s + 1
}

// MarshalJSON renders Severity as its name, not its ordinal, so the
// HealthReport wire shape never leaks the internal ranking.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CollaborationMetadata is evidence one detector leaves for another via the
// in-process previousFindings channel (as opposed to the in-graph
// FLAGGED_BY channel owned by the enricher).
type CollaborationMetadata struct {
	Detector     string   `json:"detector"`
	Confidence   float64  `json:"confidence"`
	EvidenceTags []string `json:"evidenceTags"`
}

// SuggestedFix is an optional remediation hint attached to a Finding.
type SuggestedFix struct {
	Description string  `json:"description"`
	EffortHours float64 `json:"effortHours"`
}

// Finding is the unit of output from every detector.
type Finding struct {
	ID                string                  `json:"id"`
	Detector          string                  `json:"detector"`
	Severity          Severity                `json:"severity"`
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	AffectedNodes     []string                `json:"affectedNodes"` // qualified names
	AffectedFiles     []string                `json:"affectedFiles"`
	GraphContext      map[string]any          `json:"graphContext,omitempty"`
	SuggestedFix      *SuggestedFix           `json:"suggestedFix,omitempty"`
	Collaboration     []CollaborationMetadata `json:"collaboration,omitempty"`
	IsRootCause       bool                    `json:"isRootCause"`
	CascadingCount    int                     `json:"cascadingCount"`
	CausedByRootCause bool                    `json:"causedByRootCause"`
	RootCauseDetector string                  `json:"rootCauseDetector,omitempty"`
}

// MetricsBreakdown is the set of graph-derived statistics computed after
// detection completes (§4.8).
type MetricsBreakdown struct {
	TotalFiles            int     `json:"totalFiles"`
	TotalClasses          int     `json:"totalClasses"`
	TotalFunctions        int     `json:"totalFunctions"`
	TotalLoc              int     `json:"totalLoc"`
	Modularity            float64 `json:"modularity"`
	AvgCoupling           float64 `json:"avgCoupling"`
	CircularDependencies  int     `json:"circularDependencies"`
	BottleneckCount       int     `json:"bottleneckCount"`
	DeadCodePercentage    float64 `json:"deadCodePercentage"`
	DuplicationPercentage float64 `json:"duplicationPercentage"`
	GodClassCount         int     `json:"godClassCount"`
	LayerViolations       int     `json:"layerViolations"`
	BoundaryViolations    int     `json:"boundaryViolations"`
	AbstractionRatio      float64 `json:"abstractionRatio"`
}

// FindingsSummary tallies findings by severity.
type FindingsSummary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// DedupStats reports how many findings the deduplicator merged.
type DedupStats struct {
	OriginalCount     int `json:"originalCount"`
	MergedCount       int `json:"mergedCount"`
	DuplicatesRemoved int `json:"duplicatesRemoved"`
}

// Grade is the letter grade assigned by scoreToGrade (P3).
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Rank orders grades for monotonicity checks (P4): F < D < C < B < A.
func (g Grade) Rank() int {
	switch g {
	case GradeF:
		return 0
	case GradeD:
		return 1
	case GradeC:
		return 2
	case GradeB:
		return 3
	case GradeA:
		return 4
	default:
		return -1
	}
}

// HealthReport is the stable wire shape returned by analyze(). Every field
// is a plain value (string, number, bool, slice, map) - no cycles, so a
// ReportWriter collaborator can serialize it directly.
type HealthReport struct {
	Grade             Grade            `json:"grade"`
	OverallScore      float64          `json:"overallScore"`
	StructureScore    float64          `json:"structureScore"`
	QualityScore      float64          `json:"qualityScore"`
	ArchitectureScore float64          `json:"architectureScore"`
	Metrics           MetricsBreakdown `json:"metrics"`
	FindingsSummary   FindingsSummary  `json:"findingsSummary"`
	Findings          []Finding        `json:"findings"`
	AnalyzedAt        time.Time        `json:"analyzedAt"`
	DedupStats        *DedupStats      `json:"dedupStats,omitempty"`
}

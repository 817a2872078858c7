// Package enrich implements the Graph Enricher (C6): transient
// FLAGGED_BY annotations one detector leaves on a graph entity so a
// later detector's Cypher query can see earlier detectors' results -
// the in-graph half of the two collaboration channels described in §9
// ("previousFindings" is the in-process half, owned by internal/engine).
//
// Reference: _examples/rohankatakam-coderisk/internal/graph/batch_operations.go -
// the UNWIND+MERGE batch-write idiom, repurposed here for a single-node
// annotation API since enrichment happens interleaved with detection,
// one flag at a time, not in bulk.
package enrich

import (
	"context"
	"log/slog"
	"strings"

	"github.com/surgebase/porter2"

	"github.com/opensrc/codehealth/internal/graph"
	"github.com/opensrc/codehealth/internal/model"
)

// Enricher owns the DetectorMetadata nodes created during one analysis
// run and their guaranteed cleanup.
type Enricher struct {
	store  graph.Store
	logger *slog.Logger
	flags  []flagRecord // in-process record of every FlagEntity call, independent of what made it into the graph; Cleanup resets it
}

type flagRecord struct {
	qualifiedName string
	detector      string
}

func New(store graph.Store) *Enricher {
	return &Enricher{store: store, logger: slog.Default().With("component", "enrich")}
}

// FlagEntity attaches a transient DetectorMetadata node to the entity
// named qualifiedName via FLAGGED_BY (§4.6). Evidence tags are split
// into words and stemmed with porter2 before storage, so FlaggedBy
// returns word stems rather than the original tokens. None of the
// built-in detectors reads these tags back.
// Enricher failures never abort detection: they are logged and
// swallowed, per §4.6/§7.
func (e *Enricher) FlagEntity(ctx context.Context, qualifiedName, detector string, confidence float64, evidenceTags []string, severity model.Severity) {
	stemmed := make([]string, 0, len(evidenceTags))
	for _, tag := range evidenceTags {
		for _, word := range strings.Fields(tag) {
			stemmed = append(stemmed, porter2.Stem(strings.ToLower(word)))
		}
	}

	_, err := e.store.ExecuteQuery(ctx, `
		MATCH (entity {qualifiedName: $qname})
		CREATE (meta:DetectorMetadata {
			detector: $detector, confidence: $confidence,
			evidenceTags: $tags, severity: $severity
		})
		CREATE (entity)-[:FLAGGED_BY]->(meta)
	`, map[string]any{
		"qname": qualifiedName, "detector": detector, "confidence": confidence,
		"tags": stemmed, "severity": severity.String(),
	})
	if err != nil {
		e.logger.Warn("flag entity failed", "entity", qualifiedName, "detector", detector, "error", err)
	}
	e.flags = append(e.flags, flagRecord{qualifiedName: qualifiedName, detector: detector})
}

// FlaggedBy reads back every DetectorMetadata attached to qualifiedName,
// for a detector that wants to incorporate prior in-graph flags into
// its own ranking.
func (e *Enricher) FlaggedBy(ctx context.Context, qualifiedName string) ([]map[string]any, error) {
	return e.store.ExecuteQuery(ctx, `
		MATCH (entity {qualifiedName: $qname})-[:FLAGGED_BY]->(meta:DetectorMetadata)
		RETURN meta.detector AS detector, meta.confidence AS confidence,
		       meta.evidenceTags AS evidenceTags, meta.severity AS severity
	`, map[string]any{"qname": qualifiedName})
}

// Cleanup deletes every DetectorMetadata node and its FLAGGED_BY edges,
// unless the operator requested retention (keepMetadata, e.g. for
// hotspot queries after the run). Runs in a finally after detection
// completes (§4.6, §5).
func (e *Enricher) Cleanup(ctx context.Context, keep bool) {
	if keep {
		return
	}
	_, err := e.store.ExecuteQuery(ctx, `
		MATCH (meta:DetectorMetadata)
		DETACH DELETE meta
	`, nil)
	if err != nil {
		e.logger.Warn("enricher cleanup failed", "error", err)
	}
	e.flags = nil
}

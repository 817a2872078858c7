// Package graph implements the labeled property graph store (C1): batched
// node/relationship upsert, schema initialization, parameterized query
// execution with retry-on-transient-failure, and the identifier allowlist
// that keeps dynamic Cypher construction injection-safe.
//
// Reference: _examples/rohankatakam-coderisk/internal/graph - connection
// pooling, ExecuteQuery/UNWIND batching, and transaction-config idioms are
// adapted here from commit/file graph construction to the source-code
// property graph described by the health-report pipeline.
package graph

import (
	"context"
	"time"

	"github.com/opensrc/codehealth/internal/model"
)

// Stats is the snapshot returned by getStats().
type Stats struct {
	Files         int
	Classes       int
	Functions     int
	Relationships int
}

// Store is the interface the rest of the pipeline (ingestion, detectors,
// algorithms) programs against. Neo4jStore is the only production
// implementation; a MemoryStore exists for tests and for environments
// without a Neo4j deployment.
type Store interface {
	// ExecuteQuery runs a parameterized Cypher query and returns rows as
	// plain maps. User-supplied values must always arrive via params,
	// never spliced into cypher.
	ExecuteQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)

	// BatchCreateNodes groups entities by label, upserts them (MERGE for
	// Module, CREATE for everything else), and returns a map from
	// qualifiedName to node id. BatchCreateRelationships does not use this
	// map: it matches relationship endpoints by qualifiedName.
	BatchCreateNodes(ctx context.Context, entities []model.Entity) (map[string]string, error)

	// BatchCreateRelationships groups relationships by type and executes
	// one UNWIND per group. Missing targets are materialized as
	// external placeholder nodes.
	BatchCreateRelationships(ctx context.Context, rels []model.Relationship) (int, error)

	GetStats(ctx context.Context) (Stats, error)

	// InitializeSchema creates uniqueness constraints, B-tree indexes, and
	// full-text indexes. Idempotent: failures (e.g. already exists) are
	// logged, not fatal.
	InitializeSchema(ctx context.Context) error

	// Clear issues DETACH DELETE for every node the store owns, in
	// preparation for a full re-ingestion.
	Clear(ctx context.Context) error

	Close(ctx context.Context) error
}

// RetryPolicy governs the exponential backoff applied to transient
// failures (connection lost, session expired). Non-transient errors
// surface immediately without retrying.
type RetryPolicy struct {
	MaxRetries   int
	BaseDelay    time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy mirrors the teacher's connection-pool defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    5,
		BaseDelay:     200 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

// Delay returns the backoff delay before attempt N (1-indexed):
// baseDelay * factor^(attempt-1).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.BackoffFactor
	}
	return time.Duration(d)
}

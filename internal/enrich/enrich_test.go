package enrich

import (
	"context"
	"testing"

	"github.com/opensrc/codehealth/internal/graph"
	"github.com/opensrc/codehealth/internal/model"
)

// FlagEntity/Cleanup must never panic or propagate a store error (§4.6,
// §7): MemoryStore.ExecuteQuery always fails (it never interprets raw
// Cypher), so this also exercises the "enricher failures are logged and
// swallowed" contract end to end.
func TestFlagEntityAndCleanupSwallowStoreErrors(t *testing.T) {
	store := graph.NewMemoryStore()
	e := New(store)
	ctx := context.Background()

	e.FlagEntity(ctx, "a.py::Foo:1", "GodClassDetector", 1.0, []string{"too many responsibilities"}, model.SeverityHigh)
	e.FlagEntity(ctx, "a.py::bar:1", "DeadCodeDetector", 1.0, nil, model.SeverityLow)

	e.Cleanup(ctx, false)
	// Safe to call again / with keep=true after the in-process flags have
	// already been cleared.
	e.Cleanup(ctx, true)
}

func TestFlaggedByPropagatesStoreError(t *testing.T) {
	store := graph.NewMemoryStore()
	e := New(store)
	if _, err := e.FlaggedBy(context.Background(), "a.py::Foo:1"); err == nil {
		t.Error("expected FlaggedBy to surface the MemoryStore's AlgorithmUnavailable error, not swallow it")
	}
}

package graph

import (
	"context"
	"testing"

	"github.com/opensrc/codehealth/internal/model"
)

func TestMemoryStoreBatchCreateNodesAndStats(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	entities := []model.Entity{
		{Label: model.LabelFile, Name: "a.py", QualifiedName: "a.py"},
		{Label: model.LabelClass, Name: "Foo", QualifiedName: "a.py::Foo:1"},
		{Label: model.LabelFunction, Name: "bar", QualifiedName: "a.py::bar:5"},
	}
	if _, err := s.BatchCreateNodes(ctx, entities); err != nil {
		t.Fatalf("BatchCreateNodes: %v", err)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Files != 1 || stats.Classes != 1 || stats.Functions != 1 {
		t.Errorf("stats = %+v, want 1 file, 1 class, 1 function", stats)
	}
}

func TestMemoryStoreModuleNodesMergeByQualifiedName(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := model.Entity{Label: model.LabelModule, Name: "os", QualifiedName: "os", Properties: map[string]any{"external": true}}
	second := model.Entity{Label: model.LabelModule, Name: "os", QualifiedName: "os", Properties: map[string]any{"resolved": true}}
	if _, err := s.BatchCreateNodes(ctx, []model.Entity{first}); err != nil {
		t.Fatalf("BatchCreateNodes first: %v", err)
	}
	if _, err := s.BatchCreateNodes(ctx, []model.Entity{second}); err != nil {
		t.Fatalf("BatchCreateNodes second: %v", err)
	}

	nodes, err := s.Nodes(ctx, model.LabelModule)
	if err != nil {
		t.Fatalf("Nodes: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected module nodes to merge into one, got %d", len(nodes))
	}
	if nodes[0].Properties["external"] != true || nodes[0].Properties["resolved"] != true {
		t.Errorf("merged module properties = %+v, want both external and resolved set", nodes[0].Properties)
	}
}

func TestMemoryStoreRelationshipsCreateExternalPlaceholder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := model.Entity{Label: model.LabelFunction, Name: "caller", QualifiedName: "a.py::caller:1"}
	if _, err := s.BatchCreateNodes(ctx, []model.Entity{a}); err != nil {
		t.Fatalf("BatchCreateNodes: %v", err)
	}

	rel := model.Relationship{Type: model.RelCalls, Source: a.QualifiedName, Target: "stdlib::sorted"}
	if _, err := s.BatchCreateRelationships(ctx, []model.Relationship{rel}); err != nil {
		t.Fatalf("BatchCreateRelationships: %v", err)
	}

	target, ok, err := s.Node(ctx, "stdlib::sorted")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if !ok {
		t.Fatal("expected an external placeholder node for the unresolved CALLS target")
	}
	if !target.External {
		t.Error("placeholder node should be marked External")
	}

	outEdges, err := s.Out(ctx, a.QualifiedName, model.RelCalls)
	if err != nil {
		t.Fatalf("Out: %v", err)
	}
	if len(outEdges) != 1 || outEdges[0].Target != "stdlib::sorted" {
		t.Errorf("Out(caller, CALLS) = %+v, want one edge to stdlib::sorted", outEdges)
	}

	inEdges, err := s.In(ctx, "stdlib::sorted", model.RelCalls)
	if err != nil {
		t.Fatalf("In: %v", err)
	}
	if len(inEdges) != 1 || inEdges[0].Source != a.QualifiedName {
		t.Errorf("In(stdlib::sorted, CALLS) = %+v, want one edge from caller", inEdges)
	}
}

func TestMemoryStoreGetStatsExcludesFlaggedBy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	entities := []model.Entity{
		{Label: model.LabelFunction, Name: "f", QualifiedName: "a.py::f:1"},
		{Label: model.LabelDetectorMetadata, Name: "meta", QualifiedName: "meta::1"},
	}
	if _, err := s.BatchCreateNodes(ctx, entities); err != nil {
		t.Fatalf("BatchCreateNodes: %v", err)
	}
	rels := []model.Relationship{
		{Type: model.RelFlaggedBy, Source: "a.py::f:1", Target: "meta::1"},
	}
	if _, err := s.BatchCreateRelationships(ctx, rels); err != nil {
		t.Fatalf("BatchCreateRelationships: %v", err)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Relationships != 0 {
		t.Errorf("relationships = %d, want 0 (FLAGGED_BY is bookkeeping, not a graph-health edge)", stats.Relationships)
	}
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.BatchCreateNodes(ctx, []model.Entity{{Label: model.LabelFile, Name: "a.py", QualifiedName: "a.py"}}); err != nil {
		t.Fatalf("BatchCreateNodes: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Files != 0 {
		t.Errorf("stats after Clear = %+v, want all zero", stats)
	}
}

func TestMemoryStoreExecuteQueryReturnsAlgorithmUnavailable(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.ExecuteQuery(context.Background(), "RETURN 1", nil)
	if err == nil {
		t.Fatal("expected ExecuteQuery on MemoryStore to fail, so algorithm callers fall back to pure Go")
	}
}

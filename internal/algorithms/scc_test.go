package algorithms

import (
	"context"
	"testing"

	"github.com/opensrc/codehealth/internal/graph"
	"github.com/opensrc/codehealth/internal/model"
)

func newFile(path string) model.Entity {
	return model.Entity{
		Label: model.LabelFile, Name: path, QualifiedName: model.FileQualifiedName(path), FilePath: path,
	}
}

func TestStronglyConnectedComponentsFindsMutualImport(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	_, err := store.BatchCreateNodes(ctx, []model.Entity{newFile("a.py"), newFile("b.py"), newFile("c.py")})
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.BatchCreateRelationships(ctx, []model.Relationship{
		{Type: model.RelImports, Source: "a.py", Target: "b.py"},
		{Type: model.RelImports, Source: "b.py", Target: "a.py"},
	})
	if err != nil {
		t.Fatal(err)
	}

	sccs, err := StronglyConnectedComponents(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(sccs) != 1 {
		t.Fatalf("expected 1 cycle, got %d: %v", len(sccs), sccs)
	}
	if len(sccs[0]) != 2 {
		t.Errorf("expected cycle length 2, got %d", len(sccs[0]))
	}
}

func TestStronglyConnectedComponentsNoCycle(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	_, err := store.BatchCreateNodes(ctx, []model.Entity{newFile("a.py"), newFile("b.py")})
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.BatchCreateRelationships(ctx, []model.Relationship{
		{Type: model.RelImports, Source: "a.py", Target: "b.py"},
	})
	if err != nil {
		t.Fatal(err)
	}

	sccs, err := StronglyConnectedComponents(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(sccs) != 0 {
		t.Errorf("expected no cycles, got %v", sccs)
	}
}

package detectors

import (
	"context"
	"fmt"
	"testing"

	"github.com/opensrc/codehealth/internal/config"
	"github.com/opensrc/codehealth/internal/graph"
	"github.com/opensrc/codehealth/internal/model"
)

func buildGodClassFixture(t *testing.T, methodCount int) Context {
	t.Helper()
	ctx := context.Background()
	store := graph.NewMemoryStore()

	filePath := "big.py"
	classQN := model.ClassQualifiedName(filePath, "Big", 1)
	entities := []model.Entity{
		{Label: model.LabelFile, Name: filePath, QualifiedName: model.FileQualifiedName(filePath), FilePath: filePath},
		{Label: model.LabelClass, Name: "Big", QualifiedName: classQN, FilePath: filePath, LineStart: 1, LineEnd: 100},
	}
	var rels []model.Relationship
	for i := 0; i < methodCount; i++ {
		name := fmt.Sprintf("method%d", i)
		fnQN := model.FunctionQualifiedName(filePath, "Big:1", name, "", 2+i)
		entities = append(entities, model.Entity{
			Label: model.LabelFunction, Name: name, QualifiedName: fnQN, FilePath: filePath,
			LineStart: 2 + i, LineEnd: 2 + i, Properties: map[string]any{"complexity": 1, "isMethod": true},
		})
		rels = append(rels, model.Relationship{Type: model.RelContains, Source: classQN, Target: fnQN})
	}

	if _, err := store.BatchCreateNodes(ctx, entities); err != nil {
		t.Fatal(err)
	}
	if _, err := store.BatchCreateRelationships(ctx, rels); err != nil {
		t.Fatal(err)
	}
	return Context{Reader: store, Store: store, Config: config.Default().Detectors}
}

func TestGodClassFifteenMethodsYieldsOneFinding(t *testing.T) {
	// Spec scenario 3: one class definition with 15 no-op methods yields
	// exactly one god-class finding.
	env := buildGodClassFixture(t, 15)
	findings, err := GodClass(context.Background(), env, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected exactly 1 finding, got %d: %+v", len(findings), findings)
	}
	if findings[0].Detector != "GodClassDetector" {
		t.Errorf("unexpected detector: %s", findings[0].Detector)
	}
}

func TestGodClassSmallClassNoFinding(t *testing.T) {
	env := buildGodClassFixture(t, 3)
	findings, err := GodClass(context.Background(), env, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings for a small class, got %d", len(findings))
	}
}

func TestLCOMBounds(t *testing.T) {
	// P11: LCOM is always in [0, 1], and 0 for <= 1 method.
	if got := LCOM(nil); got != 0 {
		t.Errorf("LCOM(nil) = %v, want 0", got)
	}
	if got := LCOM([][]string{{"a"}}); got != 0 {
		t.Errorf("LCOM(single method) = %v, want 0", got)
	}
	fullyShared := [][]string{{"a", "b"}, {"a", "b"}, {"a", "b"}}
	if got := LCOM(fullyShared); got != 0 {
		t.Errorf("LCOM(fully shared) = %v, want 0", got)
	}
	fullyDisjoint := [][]string{{"a"}, {"b"}, {"c"}}
	if got := LCOM(fullyDisjoint); got != 1 {
		t.Errorf("LCOM(fully disjoint) = %v, want 1", got)
	}
}

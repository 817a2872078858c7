package engine

import (
	"context"
	"testing"

	"github.com/opensrc/codehealth/internal/detectors"
	"github.com/opensrc/codehealth/internal/graph"
	"github.com/opensrc/codehealth/internal/model"
)

// buildGraph writes entities and relationships directly into a
// MemoryStore, bypassing the extractor - these tests exercise the
// Engine/Detectors/Collab pipeline against hand-built graphs shaped
// exactly like the scenarios in spec §8, rather than re-testing the
// tree-sitter extractor.
func buildGraph(t *testing.T, entities []model.Entity, rels []model.Relationship) *graph.MemoryStore {
	t.Helper()
	store := graph.NewMemoryStore()
	ctx := context.Background()
	if _, err := store.BatchCreateNodes(ctx, entities); err != nil {
		t.Fatalf("BatchCreateNodes: %v", err)
	}
	if _, err := store.BatchCreateRelationships(ctx, rels); err != nil {
		t.Fatalf("BatchCreateRelationships: %v", err)
	}
	return store
}

func fileEntity(path string) model.Entity {
	return model.Entity{
		Label: model.LabelFile, Name: path, QualifiedName: model.FileQualifiedName(path),
		FilePath: path, Properties: map[string]any{"language": "python", "loc": 10},
	}
}

func funcEntity(path, name string, line int, complexity int) model.Entity {
	qn := model.FunctionQualifiedName(path, "", name, "", line)
	return model.Entity{
		Label: model.LabelFunction, Name: name, QualifiedName: qn,
		FilePath: path, LineStart: line, LineEnd: line + 2,
		Properties: map[string]any{"complexity": complexity, "parameters": []string{}},
	}
}

// Scenario 1 (§8.1): two-file mutual import yields exactly one
// circular-dependency finding, cycleLength=2, severity LOW.
func TestScenarioMutualImportCycle(t *testing.T) {
	a, b := "a.py", "b.py"
	entities := []model.Entity{fileEntity(a), fileEntity(b)}
	rels := []model.Relationship{
		{Type: model.RelImports, Source: model.FileQualifiedName(a), Target: model.FileQualifiedName(b)},
		{Type: model.RelImports, Source: model.FileQualifiedName(b), Target: model.FileQualifiedName(a)},
	}
	store := buildGraph(t, entities, rels)

	report, err := Analyze(context.Background(), store, store, Options{RepositoryPath: "."})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var cycles []model.Finding
	for _, f := range report.Findings {
		if f.Detector == "CircularDependencyDetector" {
			cycles = append(cycles, f)
		}
	}
	if len(cycles) != 1 {
		t.Fatalf("expected exactly one circular-dependency finding, got %d: %+v", len(cycles), cycles)
	}
	if got := cycles[0].GraphContext["cycleLength"]; got != 2 {
		t.Errorf("cycleLength = %v, want 2", got)
	}
	if cycles[0].Severity != model.SeverityLow {
		t.Errorf("severity = %v, want LOW", cycles[0].Severity)
	}
	if report.Metrics.CircularDependencies != 1 {
		t.Errorf("metrics.circularDependencies = %d, want 1", report.Metrics.CircularDependencies)
	}
}

// Scenario 2 (§8.2): one file with used() and unused(), and a call to
// used() (modeled as an entry-point function calling it, since the
// Function->Function CALLS edge needs an enclosing function): exactly
// one dead-code finding for unused, severity LOW.
func TestScenarioUnusedFunction(t *testing.T) {
	path := "mod.py"
	used := funcEntity(path, "used", 1, 1)
	unused := funcEntity(path, "unused", 5, 1)
	entry := funcEntity(path, "__main__", 10, 1) // module top level call site

	entities := []model.Entity{fileEntity(path), used, unused, entry}
	rels := []model.Relationship{
		{Type: model.RelContains, Source: model.FileQualifiedName(path), Target: used.QualifiedName},
		{Type: model.RelContains, Source: model.FileQualifiedName(path), Target: unused.QualifiedName},
		{Type: model.RelContains, Source: model.FileQualifiedName(path), Target: entry.QualifiedName},
		{Type: model.RelCalls, Source: entry.QualifiedName, Target: used.QualifiedName, Line: 10},
	}
	store := buildGraph(t, entities, rels)

	report, err := Analyze(context.Background(), store, store, Options{RepositoryPath: "."})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var dead []model.Finding
	for _, f := range report.Findings {
		if f.Detector == "DeadCodeDetector" {
			dead = append(dead, f)
		}
	}
	if len(dead) != 1 {
		t.Fatalf("expected exactly one dead-code finding, got %d: %+v", len(dead), dead)
	}
	if dead[0].AffectedNodes[0] != unused.QualifiedName {
		t.Errorf("dead-code finding targets %v, want %v", dead[0].AffectedNodes[0], unused.QualifiedName)
	}
	if dead[0].Severity != model.SeverityLow {
		t.Errorf("severity = %v, want LOW", dead[0].Severity)
	}
	// 3 functions total (used, unused, __main__ synthetic entry), 1 dead.
	wantPct := 1.0 / 3.0
	if report.Metrics.DeadCodePercentage != wantPct {
		t.Errorf("deadCodePercentage = %v, want %v", report.Metrics.DeadCodePercentage, wantPct)
	}
}

// Scenario 3 (§8.3): one class with 15 no-op methods yields exactly one
// god-class finding; godClassCount=1.
func TestScenarioGodClass(t *testing.T) {
	path := "big.py"
	classQN := model.ClassQualifiedName(path, "Big", 1)
	cls := model.Entity{
		Label: model.LabelClass, Name: "Big", QualifiedName: classQN,
		FilePath: path, LineStart: 1, LineEnd: 200,
		Properties: map[string]any{"isAbstract": false, "complexity": 1},
	}
	entities := []model.Entity{fileEntity(path), cls}
	var rels []model.Relationship
	rels = append(rels, model.Relationship{Type: model.RelContains, Source: model.FileQualifiedName(path), Target: classQN})

	for i := 0; i < 15; i++ {
		line := 10 + i*5
		m := model.Entity{
			Label: model.LabelFunction, Name: methodName(i), FilePath: path,
			LineStart: line, LineEnd: line + 2,
			QualifiedName: model.FunctionQualifiedName(path, "Big:1", methodName(i), "", line),
			Properties:    map[string]any{"complexity": 1, "isMethod": true},
		}
		entities = append(entities, m)
		rels = append(rels, model.Relationship{Type: model.RelContains, Source: classQN, Target: m.QualifiedName})
	}
	store := buildGraph(t, entities, rels)

	report, err := Analyze(context.Background(), store, store, Options{RepositoryPath: "."})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var godClasses []model.Finding
	for _, f := range report.Findings {
		if f.Detector == "GodClassDetector" {
			godClasses = append(godClasses, f)
		}
	}
	if len(godClasses) != 1 {
		t.Fatalf("expected exactly one god-class finding, got %d: %+v", len(godClasses), godClasses)
	}
	if report.Metrics.GodClassCount != 1 {
		t.Errorf("metrics.godClassCount = %d, want 1", report.Metrics.GodClassCount)
	}
}

func methodName(i int) string {
	return "method_" + string(rune('a'+i))
}

// Scenario 4 (§8.4): one file, one class, one documented method called
// from main: zero findings from every detector, overall score >= 90,
// grade A.
func TestScenarioCleanCodebase(t *testing.T) {
	path := "clean.py"
	classQN := model.ClassQualifiedName(path, "Service", 1)
	cls := model.Entity{
		Label: model.LabelClass, Name: "Service", QualifiedName: classQN,
		FilePath: path, LineStart: 1, LineEnd: 10,
		Docstring:  "A small, well documented service.",
		Properties: map[string]any{"isAbstract": false, "complexity": 1},
	}
	method := model.Entity{
		Label: model.LabelFunction, Name: "run", FilePath: path,
		LineStart: 3, LineEnd: 6,
		QualifiedName: model.FunctionQualifiedName(path, "Service:1", "run", "", 3),
		Docstring:     "Runs the service.",
		Properties:    map[string]any{"complexity": 2, "isMethod": true, "returnType": "None"},
	}
	main := funcEntity(path, "main", 20, 1)
	main.Properties["returnType"] = "None"

	entities := []model.Entity{fileEntity(path), cls, method, main}
	rels := []model.Relationship{
		{Type: model.RelContains, Source: model.FileQualifiedName(path), Target: classQN},
		{Type: model.RelContains, Source: classQN, Target: method.QualifiedName},
		{Type: model.RelContains, Source: model.FileQualifiedName(path), Target: main.QualifiedName},
		{Type: model.RelCalls, Source: main.QualifiedName, Target: method.QualifiedName, Line: 20},
	}
	store := buildGraph(t, entities, rels)

	report, err := Analyze(context.Background(), store, store, Options{RepositoryPath: "."})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(report.Findings) != 0 {
		t.Errorf("expected zero findings on a clean codebase, got %d: %+v", len(report.Findings), report.Findings)
	}
	if report.OverallScore < 90 {
		t.Errorf("overallScore = %v, want >= 90", report.OverallScore)
	}
	if report.Grade != model.GradeA {
		t.Errorf("grade = %v, want A", report.Grade)
	}
}

// Scenario 5 (§8.5): a mutual import pair, one 15-method class, and five
// unused functions in a fourth file. The deduplicator must not
// over-report, the root-cause analyzer must mark the god class as the
// root cause for at least one overlapping cascading finding, and the
// overall score must drop below 80 while staying above 0.
func TestScenarioMultiIssueRepo(t *testing.T) {
	a, b, big, leaf := "a.py", "b.py", "big.py", "leaf.py"

	classQN := model.ClassQualifiedName(big, "Big", 1)
	cls := model.Entity{
		Label: model.LabelClass, Name: "Big", QualifiedName: classQN,
		FilePath: big, LineStart: 1, LineEnd: 200,
		Properties: map[string]any{"isAbstract": false, "complexity": 1},
	}

	entities := []model.Entity{fileEntity(a), fileEntity(b), fileEntity(big), fileEntity(leaf), cls}
	var rels []model.Relationship
	rels = append(rels,
		// a.py <-> b.py is its own, separate 2-file import cycle - it
		// does not touch big.py, so the only findings overlapping the
		// god class's file (big.py) are the dead, never-called methods
		// inside it, giving the root-cause analyzer an unambiguous link
		// from the god class specifically.
		model.Relationship{Type: model.RelImports, Source: model.FileQualifiedName(a), Target: model.FileQualifiedName(b)},
		model.Relationship{Type: model.RelImports, Source: model.FileQualifiedName(b), Target: model.FileQualifiedName(a)},
		model.Relationship{Type: model.RelContains, Source: model.FileQualifiedName(big), Target: classQN},
	)

	for i := 0; i < 15; i++ {
		line := 10 + i*5
		m := model.Entity{
			Label: model.LabelFunction, Name: methodName(i), FilePath: big,
			LineStart: line, LineEnd: line + 2,
			QualifiedName: model.FunctionQualifiedName(big, "Big:1", methodName(i), "", line),
			Properties:    map[string]any{"complexity": 1, "isMethod": true},
		}
		entities = append(entities, m)
		rels = append(rels, model.Relationship{Type: model.RelContains, Source: classQN, Target: m.QualifiedName})
	}

	for i := 0; i < 5; i++ {
		u := funcEntity(leaf, "unused_"+string(rune('a'+i)), 5+i*10, 1)
		entities = append(entities, u)
		rels = append(rels, model.Relationship{Type: model.RelContains, Source: model.FileQualifiedName(leaf), Target: u.QualifiedName})
	}
	store := buildGraph(t, entities, rels)

	report, err := Analyze(context.Background(), store, store, Options{RepositoryPath: "."})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	seen := map[string]bool{}
	for _, f := range report.Findings {
		key := f.Detector + "|" + f.ID
		if len(f.AffectedNodes) > 0 {
			key = f.Detector + "|" + f.AffectedNodes[0]
		}
		if seen[key] {
			t.Errorf("deduplicator over-reported: duplicate (detector, entity) pair %s", key)
		}
		seen[key] = true
	}

	var godClassFinding *model.Finding
	for i := range report.Findings {
		if report.Findings[i].Detector == "GodClassDetector" {
			godClassFinding = &report.Findings[i]
		}
	}
	if godClassFinding == nil {
		t.Fatalf("expected a god-class finding, got none among %d findings", len(report.Findings))
	}
	if !godClassFinding.IsRootCause {
		t.Errorf("expected the god-class finding to be marked IsRootCause")
	}
	if godClassFinding.CascadingCount < 1 {
		t.Errorf("expected CascadingCount >= 1, got %d", godClassFinding.CascadingCount)
	}

	var anyCascading bool
	for _, f := range report.Findings {
		if f.CausedByRootCause && f.RootCauseDetector == "GodClassDetector" {
			anyCascading = true
		}
	}
	if !anyCascading {
		t.Errorf("expected at least one finding marked CausedByRootCause with RootCauseDetector=GodClassDetector")
	}

	if report.OverallScore >= 80 {
		t.Errorf("overallScore = %v, want < 80 for a multi-issue repo", report.OverallScore)
	}
	if report.OverallScore <= 0 {
		t.Errorf("overallScore = %v, want > 0", report.OverallScore)
	}
}

// A panicking detector does not abort the run (§7 DetectorError): its
// findings are dropped, and a well-behaved detector later in the list
// still contributes to the report.
func TestAnalyzeIsolatesDetectorPanic(t *testing.T) {
	store := buildGraph(t, []model.Entity{fileEntity("x.py")}, nil)

	panicker := detectors.DetectorFunc{
		DetectorName: "PanickingDetector",
		Fn: func(ctx context.Context, env detectors.Context, previous []model.Finding) ([]model.Finding, error) {
			panic("boom")
		},
	}
	wellBehaved := detectors.DetectorFunc{
		DetectorName: "WellBehavedDetector",
		Fn: func(ctx context.Context, env detectors.Context, previous []model.Finding) ([]model.Finding, error) {
			return []model.Finding{{
				ID: "WellBehavedDetector::x.py", Detector: "WellBehavedDetector",
				Severity: model.SeverityLow, AffectedFiles: []string{"x.py"},
			}}, nil
		},
	}

	report, err := Analyze(context.Background(), store, store, Options{
		RepositoryPath: ".",
		Detectors:      []detectors.Detector{panicker, wellBehaved},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("expected the panicking detector's findings dropped and the other kept, got %d: %+v",
			len(report.Findings), report.Findings)
	}
	if report.Findings[0].Detector != "WellBehavedDetector" {
		t.Errorf("surviving finding detector = %v, want WellBehavedDetector", report.Findings[0].Detector)
	}
}

package detectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/opensrc/codehealth/internal/model"
)

// AsyncAntipattern flags async functions that make calls but never await
// any of them (a coroutine that blocks synchronously defeats the point of
// being async) - correlated purely from the isAsync property captured at
// extraction time and the function's outgoing CALLS edges. Synchronous
// functions called from async context are not checked.
func AsyncAntipattern(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	funcs, err := env.Reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return nil, err
	}
	var findings []model.Finding
	for _, fn := range funcs {
		if !boolProp(fn.Properties, "isAsync") {
			continue
		}
		calls, err := env.Reader.Out(ctx, fn.QualifiedName, model.RelCalls)
		if err != nil {
			return nil, err
		}
		awaitsAnything := false
		for _, c := range calls {
			if strings.Contains(c.Target, "await") || model.Prop(c.Properties, "awaited", false) {
				awaitsAnything = true
				break
			}
		}
		if awaitsAnything || len(calls) == 0 {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID("AsyncAntipatternDetector", fn.QualifiedName),
			Detector:      "AsyncAntipatternDetector",
			Severity:      model.SeverityLow,
			Title:         fmt.Sprintf("Async function never awaits: %s", fn.Name),
			Description:   fmt.Sprintf("'%s' is declared async but its calls never await; consider making it synchronous.", fn.Name),
			AffectedNodes: []string{fn.QualifiedName},
			AffectedFiles: []string{fn.FilePath},
			GraphContext:  map[string]any{"type": "async_antipattern"},
		})
	}
	return findings, nil
}

// GeneratorMisuse flags generator functions (yieldCount > 0) whose
// caller immediately materializes the result into a list, discarding
// the laziness the generator was meant to provide - detected here as
// generators with a very low yield count relative to complexity
// (suggesting the generator protocol was used for a single value that
// didn't need it).
func GeneratorMisuse(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	funcs, err := env.Reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return nil, err
	}
	var findings []model.Finding
	for _, fn := range funcs {
		yieldCount := intProp(fn.Properties, "yieldCount")
		if yieldCount != 1 {
			continue
		}
		complexity := intProp(fn.Properties, "complexity")
		if complexity > 3 {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID("GeneratorMisuseDetector", fn.QualifiedName),
			Detector:      "GeneratorMisuseDetector",
			Severity:      model.SeverityLow,
			Title:         fmt.Sprintf("Generator misuse: %s", fn.Name),
			Description:   fmt.Sprintf("'%s' is a generator that yields exactly once with little surrounding logic; a plain return may be clearer.", fn.Name),
			AffectedNodes: []string{fn.QualifiedName},
			AffectedFiles: []string{fn.FilePath},
			GraphContext:  map[string]any{"type": "generator_misuse", "yieldCount": yieldCount},
		})
	}
	return findings, nil
}

// TestSmell flags test functions (path under a test directory, or name
// matching a test-naming convention) with unusually high complexity or
// a very long parameter list - signs the test itself needs refactoring.
func TestSmell(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	funcs, err := env.Reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return nil, err
	}
	var findings []model.Finding
	for _, fn := range funcs {
		isTest := strings.HasPrefix(fn.Name, "test_") || strings.HasPrefix(fn.Name, "Test") || isTestOrExamplePath(fn.FilePath)
		if !isTest {
			continue
		}
		complexity := intProp(fn.Properties, "complexity")
		params := stringSlice(fn.Properties, "parameters")
		if complexity < 10 && len(params) < 6 {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID("TestSmellDetector", fn.QualifiedName),
			Detector:      "TestSmellDetector",
			Severity:      model.SeverityLow,
			Title:         fmt.Sprintf("Test smell: %s", fn.Name),
			Description:   fmt.Sprintf("Test '%s' has complexity %d and %d parameters; consider splitting it into focused cases.", fn.Name, complexity, len(params)),
			AffectedNodes: []string{fn.QualifiedName},
			AffectedFiles: []string{fn.FilePath},
			GraphContext:  map[string]any{"type": "test_smell", "complexity": complexity, "parameterCount": len(params)},
		})
	}
	return findings, nil
}

// TypeHintCoverage flags non-test, non-dunder functions missing a
// returnType or whose parameterTypes map doesn't cover every declared
// parameter (§3.1 Function.parameterTypes). Whether the function is
// exported is not checked.
func TypeHintCoverage(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	funcs, err := env.Reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return nil, err
	}
	var findings []model.Finding
	for _, fn := range funcs {
		if dunderNames[fn.Name] || isTestOrExamplePath(fn.FilePath) {
			continue
		}
		params := stringSlice(fn.Properties, "parameters")
		paramTypes, _ := fn.Properties["parameterTypes"].(map[string]any)
		returnType := model.Prop(fn.Properties, "returnType", "")

		missing := 0
		for _, p := range params {
			if p == "self" || p == "cls" {
				continue
			}
			if t, ok := paramTypes[p].(string); !ok || t == "" {
				missing++
			}
		}
		if returnType == "" {
			missing++
		}
		if missing == 0 {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID("TypeHintCoverageDetector", fn.QualifiedName),
			Detector:      "TypeHintCoverageDetector",
			Severity:      model.SeverityInfo,
			Title:         fmt.Sprintf("Missing type hints: %s", fn.Name),
			Description:   fmt.Sprintf("'%s' is missing type annotations on %d parameter(s)/return value.", fn.Name, missing),
			AffectedNodes: []string{fn.QualifiedName},
			AffectedFiles: []string{fn.FilePath},
			GraphContext:  map[string]any{"type": "type_hint_coverage", "missingCount": missing},
		})
	}
	return findings, nil
}

package detectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/opensrc/codehealth/internal/model"
)

// dunderNames are descriptor/protocol methods Python (or an equivalent
// language) invokes implicitly; never flagged as dead.
var dunderNames = map[string]bool{
	"__init__": true, "__str__": true, "__repr__": true, "__enter__": true,
	"__exit__": true, "__call__": true, "__len__": true, "__iter__": true,
	"__next__": true, "__getitem__": true, "__setitem__": true, "__delitem__": true,
	"__eq__": true, "__ne__": true, "__lt__": true, "__le__": true, "__gt__": true,
	"__ge__": true, "__hash__": true, "__bool__": true, "__new__": true,
}

var alwaysUsedNames = map[string]bool{
	"main": true, "__main__": true, "setUp": true, "tearDown": true,
}

func isTestOrExamplePath(filePath string) bool {
	lower := strings.ToLower(filePath)
	for _, marker := range []string{"test_", "_test.", "/tests/", "/test/", "/fixtures/", "/examples/", "/example/"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// DeadCode flags functions/classes with no incoming CALLS/USES/INHERITS,
// not referenced by an IMPORTS.importedName, not in File.exports, not
// dunder, not matching a usage-implied decorator/name pattern, and not
// overriding a parent method (§4.5).
func DeadCode(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	files, err := env.Reader.Nodes(ctx, model.LabelFile)
	if err != nil {
		return nil, err
	}
	exportedNames := map[string]bool{}
	for _, f := range files {
		for _, name := range stringSlice(f.Properties, "exports") {
			exportedNames[name] = true
		}
	}

	importedNames := map[string]bool{}
	imports, err := env.Reader.AllEdges(ctx, model.RelImports)
	if err != nil {
		return nil, err
	}
	for _, e := range imports {
		if n := model.Prop(e.Properties, "importedName", ""); n != "" {
			importedNames[n] = true
		}
	}

	patterns := env.Config.DeadCodeUsagePatterns

	funcs, err := env.Reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return nil, err
	}

	var findings []model.Finding
	for _, fn := range funcs {
		if dunderNames[fn.Name] || alwaysUsedNames[fn.Name] {
			continue
		}
		if isTestOrExamplePath(fn.FilePath) || strings.HasPrefix(fn.Name, "test_") || strings.HasPrefix(fn.Name, "Test") {
			continue
		}
		if exportedNames[fn.Name] || importedNames[fn.Name] {
			continue
		}
		if containsFold(patterns, fn.Name) {
			continue
		}
		decorators := stringSlice(fn.Properties, "decorators")
		if containsFold(patterns, strings.Join(decorators, " ")) {
			continue
		}

		calls, err := env.Reader.In(ctx, fn.QualifiedName, model.RelCalls)
		if err != nil {
			return nil, err
		}
		uses, err := env.Reader.In(ctx, fn.QualifiedName, model.RelUses)
		if err != nil {
			return nil, err
		}
		overrides, err := env.Reader.Out(ctx, fn.QualifiedName, model.RelOverrides)
		if err != nil {
			return nil, err
		}
		if len(calls) > 0 || len(uses) > 0 || len(overrides) > 0 {
			continue
		}

		complexity := intProp(fn.Properties, "complexity")
		methodCount := 1
		sev := complexityToSeverity(complexity)
		if sev == model.SeverityInfo {
			sev = model.SeverityLow
		}
		_ = methodCount

		findings = append(findings, model.Finding{
			ID:            findingID("DeadCodeDetector", fn.QualifiedName),
			Detector:      "DeadCodeDetector",
			Severity:      sev,
			Title:         fmt.Sprintf("Unused function: %s", fn.Name),
			Description:   fmt.Sprintf("Function '%s' has no incoming calls, attribute uses, or overrides, is not exported, and is not referenced by any import.", fn.Name),
			AffectedNodes: []string{fn.QualifiedName},
			AffectedFiles: []string{fn.FilePath},
			GraphContext: map[string]any{
				"type":       "dead_code",
				"name":       fn.Name,
				"complexity": complexity,
			},
			SuggestedFix: &model.SuggestedFix{Description: "Remove the unused function, or wire it up if it's reachable through a mechanism the graph can't see.", EffortHours: 0.25},
		})
	}

	classes, err := env.Reader.Nodes(ctx, model.LabelClass)
	if err != nil {
		return nil, err
	}
	for _, cls := range classes {
		if isTestOrExamplePath(cls.FilePath) {
			continue
		}
		if exportedNames[cls.Name] || importedNames[cls.Name] {
			continue
		}
		inherits, err := env.Reader.In(ctx, cls.QualifiedName, model.RelInherits)
		if err != nil {
			return nil, err
		}
		uses, err := env.Reader.In(ctx, cls.QualifiedName, model.RelUses)
		if err != nil {
			return nil, err
		}
		methods, err := env.Reader.Out(ctx, cls.QualifiedName, model.RelContains)
		if err != nil {
			return nil, err
		}
		if len(inherits) > 0 || len(uses) > 0 || anyMethodCalled(ctx, env, methods) {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID("DeadCodeDetector", cls.QualifiedName),
			Detector:      "DeadCodeDetector",
			Severity:      methodCountToSeverityOrLow(len(methods)),
			Title:         fmt.Sprintf("Unused class: %s", cls.Name),
			Description:   fmt.Sprintf("Class '%s' is never instantiated, subclassed, or referenced.", cls.Name),
			AffectedNodes: []string{cls.QualifiedName},
			AffectedFiles: []string{cls.FilePath},
			GraphContext: map[string]any{
				"type":        "dead_code",
				"name":        cls.Name,
				"methodCount": len(methods),
			},
		})
	}

	return findings, nil
}

// anyMethodCalled reports whether at least one of a class's CONTAINS
// children (its methods) has an incoming CALLS edge from outside - the
// signal that the class itself is exercised even though nothing
// inherits from it or reads its instances via USES (e.g. a leaf service
// class instantiated and invoked, never subclassed).
func anyMethodCalled(ctx context.Context, env Context, methods []model.EdgeRecord) bool {
	for _, m := range methods {
		calls, err := env.Reader.In(ctx, m.Target, model.RelCalls)
		if err == nil && len(calls) > 0 {
			return true
		}
	}
	return false
}

func methodCountToSeverityOrLow(n int) model.Severity {
	sev := methodCountToSeverity(n)
	if sev == model.SeverityInfo {
		return model.SeverityLow
	}
	return sev
}

package detectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/opensrc/codehealth/internal/model"
)

// godClassThresholds mirrors the reference implementation's ladder
// (falkor/detectors/god_class.py): multiple moderate signals or one
// severe signal flags the class.
const (
	highMethodCount  = 20
	mediumMethodCount = 15
	highComplexity   = 100
	mediumComplexity = 50
	highLOC          = 500
	mediumLOC        = 300
	highLCOM         = 0.8
	mediumLCOM       = 0.6
	highCoupling     = 50
	mediumCoupling   = 30
)

// LCOM computes the lack-of-cohesion-of-methods metric (P11): the
// fraction of method pairs that share no attribute access. 0 when a
// class has <= 1 method.
func LCOM(methodFields [][]string) float64 {
	if len(methodFields) <= 1 {
		return 0.0
	}
	nonSharing, total := 0, 0
	for i := 0; i < len(methodFields); i++ {
		set1 := toSet(methodFields[i])
		for j := i + 1; j < len(methodFields); j++ {
			total++
			if !intersects(set1, methodFields[j]) {
				nonSharing++
			}
		}
	}
	if total == 0 {
		return 0.0
	}
	return float64(nonSharing) / float64(total)
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, i := range items {
		m[i] = true
	}
	return m
}

func intersects(set map[string]bool, items []string) bool {
	for _, i := range items {
		if set[i] {
			return true
		}
	}
	return false
}

// GodClass computes method count, complexity, coupling, LOC span, and
// LCOM per class; flags a class if multiple moderate thresholds fire or
// one severe threshold does (§4.5). Abstract classes of moderate size
// are exempt.
func GodClass(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	classes, err := env.Reader.Nodes(ctx, model.LabelClass)
	if err != nil {
		return nil, err
	}

	var findings []model.Finding
	for _, cls := range classes {
		methods, err := env.Reader.Out(ctx, cls.QualifiedName, model.RelContains)
		if err != nil {
			return nil, err
		}
		var methodNames []string
		var methodFields [][]string
		coupling := 0
		totalComplexity := 0
		for _, m := range methods {
			target, ok, err := env.Reader.Node(ctx, m.Target)
			if err != nil {
				return nil, err
			}
			if !ok || target.Label != model.LabelFunction {
				continue
			}
			methodNames = append(methodNames, target.Name)
			totalComplexity += intProp(target.Properties, "complexity")

			calls, err := env.Reader.Out(ctx, target.QualifiedName, model.RelCalls)
			if err != nil {
				return nil, err
			}
			coupling += len(calls)

			uses, err := env.Reader.Out(ctx, target.QualifiedName, model.RelUses)
			if err != nil {
				return nil, err
			}
			var fields []string
			for _, u := range uses {
				fields = append(fields, u.Target)
			}
			methodFields = append(methodFields, fields)
		}
		imports, err := env.Reader.Out(ctx, cls.QualifiedName, model.RelImports)
		if err != nil {
			return nil, err
		}
		coupling += len(imports)

		methodCount := len(methodNames)
		loc := cls.LineEnd - cls.LineStart
		lcom := LCOM(methodFields)
		isAbstract := boolProp(cls.Properties, "isAbstract")

		if isAbstract && methodCount < 25 {
			continue
		}
		if methodCount < 10 && totalComplexity < 30 && loc < 200 {
			continue
		}

		isGod, reasons := evaluateGodClass(methodCount, totalComplexity, coupling, loc, lcom)
		if !isGod {
			continue
		}

		findings = append(findings, model.Finding{
			ID:            findingID("GodClassDetector", cls.QualifiedName),
			Detector:      "GodClassDetector",
			Severity:      godClassSeverity(methodCount, totalComplexity, coupling, loc, lcom),
			Title:         fmt.Sprintf("God class detected: %s", cls.Name),
			Description:   fmt.Sprintf("Class '%s' shows signs of being a god class: %s.", cls.Name, strings.Join(reasons, ", ")),
			AffectedNodes: []string{cls.QualifiedName},
			AffectedFiles: []string{cls.FilePath},
			GraphContext: map[string]any{
				"type":            "god_class",
				"name":            cls.Name,
				"methodCount":     methodCount,
				"totalComplexity": totalComplexity,
				"couplingCount":   coupling,
				"loc":             loc,
				"lcom":            lcom,
			},
			SuggestedFix: &model.SuggestedFix{
				Description: "Split responsibilities into smaller, cohesive classes along the lines of the least-shared attribute groups.",
				EffortHours: float64(methodCount) * 0.5,
			},
		})
	}
	return findings, nil
}

func evaluateGodClass(methodCount, totalComplexity, coupling, loc int, lcom float64) (bool, []string) {
	var reasons []string
	if methodCount >= highMethodCount {
		reasons = append(reasons, fmt.Sprintf("very high method count (%d)", methodCount))
	} else if methodCount >= mediumMethodCount {
		reasons = append(reasons, fmt.Sprintf("high method count (%d)", methodCount))
	}
	if totalComplexity >= highComplexity {
		reasons = append(reasons, fmt.Sprintf("very high complexity (%d)", totalComplexity))
	} else if totalComplexity >= mediumComplexity {
		reasons = append(reasons, fmt.Sprintf("high complexity (%d)", totalComplexity))
	}
	if coupling >= highCoupling {
		reasons = append(reasons, fmt.Sprintf("very high coupling (%d)", coupling))
	} else if coupling >= mediumCoupling {
		reasons = append(reasons, fmt.Sprintf("high coupling (%d)", coupling))
	}
	if loc >= highLOC {
		reasons = append(reasons, fmt.Sprintf("very large class (%d LOC)", loc))
	} else if loc >= mediumLOC {
		reasons = append(reasons, fmt.Sprintf("large class (%d LOC)", loc))
	}
	if lcom >= highLCOM {
		reasons = append(reasons, fmt.Sprintf("very low cohesion (LCOM: %.2f)", lcom))
	} else if lcom >= mediumLCOM {
		reasons = append(reasons, fmt.Sprintf("low cohesion (LCOM: %.2f)", lcom))
	}

	if len(reasons) >= 2 {
		return true, reasons
	}
	// Method count alone is dispositive once it reaches the medium
	// threshold (P10's ladder maps methodCount directly to a severity,
	// with no corroborating-metric requirement).
	if methodCount >= mediumMethodCount || totalComplexity >= highComplexity || loc >= highLOC {
		return true, reasons
	}
	return false, nil
}

func godClassSeverity(methodCount, totalComplexity, coupling, loc int, lcom float64) model.Severity {
	criticalCount := 0
	for _, hit := range []bool{methodCount >= 30, totalComplexity >= 150, coupling >= 70, loc >= 1000, lcom >= highLCOM} {
		if hit {
			criticalCount++
		}
	}
	if criticalCount >= 2 {
		return model.SeverityCritical
	}
	highCount := 0
	for _, hit := range []bool{methodCount >= highMethodCount, totalComplexity >= highComplexity, coupling >= highCoupling, loc >= highLOC, lcom >= mediumLCOM} {
		if hit {
			highCount++
		}
	}
	if highCount >= 2 {
		return model.SeverityHigh
	}
	if methodCount >= mediumMethodCount {
		return methodCountToSeverityOrLow(methodCount)
	}
	return model.SeverityMedium
}

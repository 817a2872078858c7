package detectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/opensrc/codehealth/internal/model"
)

// featureEnvyRatio is the configured (or default) ratio of external to
// internal accesses above which a method is considered envious of
// another class's data.
const featureEnvyRatio = 2.0

// FeatureEnvy flags methods whose external attribute/method accesses
// (USES/CALLS targeting another class) outnumber internal accesses by
// featureEnvyRatio (§4.5, GLOSSARY).
func FeatureEnvy(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	funcs, err := env.Reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return nil, err
	}
	ratio := env.Config.Thresholds["feature_envy_ratio"]
	if ratio == 0 {
		ratio = featureEnvyRatio
	}

	var findings []model.Finding
	for _, fn := range funcs {
		if !boolProp(fn.Properties, "isMethod") {
			continue
		}
		ownerClass := ownerClassOf(ctx, env, fn.QualifiedName)
		if ownerClass == "" {
			continue
		}
		uses, err := env.Reader.Out(ctx, fn.QualifiedName, model.RelUses)
		if err != nil {
			return nil, err
		}
		internal, external := 0, 0
		for _, u := range uses {
			if classOfAttribute(u.Target) == ownerClass {
				internal++
			} else {
				external++
			}
		}
		if internal == 0 && external == 0 {
			continue
		}
		if float64(external) < ratio*float64(internal+1) {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID("FeatureEnvyDetector", fn.QualifiedName),
			Detector:      "FeatureEnvyDetector",
			Severity:      model.SeverityMedium,
			Title:         fmt.Sprintf("Feature envy: %s", fn.Name),
			Description:   fmt.Sprintf("Method '%s' accesses external state (%d accesses) far more than its own class's state (%d accesses).", fn.Name, external, internal),
			AffectedNodes: []string{fn.QualifiedName},
			AffectedFiles: []string{fn.FilePath},
			GraphContext: map[string]any{"type": "feature_envy", "internal": internal, "external": external},
		})
	}
	return findings, nil
}

// ownerClassOf resolves the class qualified name that CONTAINS fn, or
// "" for a module-level function.
func ownerClassOf(ctx context.Context, env Context, funcQName string) string {
	in, err := env.Reader.In(ctx, funcQName, model.RelContains)
	if err != nil {
		return ""
	}
	for _, e := range in {
		if node, ok, err := env.Reader.Node(ctx, e.Source); err == nil && ok && node.Label == model.LabelClass {
			return node.QualifiedName
		}
	}
	return ""
}

// classOfAttribute extracts the owning class fragment from an
// Attribute's qualified name ("<file>::<class>:<line>.<attr>").
func classOfAttribute(qualifiedName string) string {
	idx := strings.LastIndexByte(qualifiedName, '.')
	if idx < 0 {
		return ""
	}
	return qualifiedName[:idx]
}

// ShotgunSurgery flags classes referenced (incoming USES) from an
// unusually large number of distinct files - changes to the class ripple
// everywhere (GLOSSARY).
func ShotgunSurgery(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	classes, err := env.Reader.Nodes(ctx, model.LabelClass)
	if err != nil {
		return nil, err
	}
	threshold := env.Config.Thresholds["shotgun_surgery_files"]
	if threshold == 0 {
		threshold = 8
	}

	var findings []model.Finding
	for _, cls := range classes {
		uses, err := env.Reader.In(ctx, cls.QualifiedName, model.RelUses)
		if err != nil {
			return nil, err
		}
		referencingFiles := map[string]bool{}
		for _, e := range uses {
			if node, ok, _ := env.Reader.Node(ctx, e.Source); ok {
				referencingFiles[node.FilePath] = true
			}
		}
		if len(referencingFiles) < int(threshold) {
			continue
		}
		files := make([]string, 0, len(referencingFiles))
		for f := range referencingFiles {
			files = append(files, f)
		}
		findings = append(findings, model.Finding{
			ID:            findingID("ShotgunSurgeryDetector", cls.QualifiedName),
			Detector:      "ShotgunSurgeryDetector",
			Severity:      severityForFanIn(len(referencingFiles)),
			Title:         fmt.Sprintf("Shotgun surgery risk: %s", cls.Name),
			Description:   fmt.Sprintf("Class '%s' is referenced from %d distinct files; a change here ripples widely.", cls.Name, len(referencingFiles)),
			AffectedNodes: []string{cls.QualifiedName},
			AffectedFiles: files,
			GraphContext:  map[string]any{"type": "shotgun_surgery", "referencingFileCount": len(referencingFiles)},
		})
	}
	return findings, nil
}

func severityForFanIn(n int) model.Severity {
	switch {
	case n >= 30:
		return model.SeverityCritical
	case n >= 16:
		return model.SeverityHigh
	case n >= 8:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// MiddleMan flags classes whose methods mostly just forward calls to one
// other class (GLOSSARY): for each class, if most of its outgoing CALLS
// target methods of a single other class, it's a delegate.
func MiddleMan(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
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
		targetClassCounts := map[string]int{}
		totalCalls := 0
		for _, m := range methods {
			target, ok, _ := env.Reader.Node(ctx, m.Target)
			if !ok || target.Label != model.LabelFunction {
				continue
			}
			calls, err := env.Reader.Out(ctx, target.QualifiedName, model.RelCalls)
			if err != nil {
				return nil, err
			}
			for _, c := range calls {
				totalCalls++
				if owner := ownerClassOf(ctx, env, c.Target); owner != "" && owner != cls.QualifiedName {
					targetClassCounts[owner]++
				}
			}
		}
		if totalCalls < 5 {
			continue
		}
		delegate, delegateCount := "", 0
		for target, count := range targetClassCounts {
			if count > delegateCount {
				delegate, delegateCount = target, count
			}
		}
		if delegate == "" || float64(delegateCount) < 0.8*float64(totalCalls) {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID("MiddleManDetector", cls.QualifiedName),
			Detector:      "MiddleManDetector",
			Severity:      model.SeverityLow,
			Title:         fmt.Sprintf("Middle man: %s", cls.Name),
			Description:   fmt.Sprintf("%.0f%% of class '%s''s calls simply delegate to another class; consider calling that class directly.", 100*float64(delegateCount)/float64(totalCalls), cls.Name),
			AffectedNodes: []string{cls.QualifiedName, delegate},
			AffectedFiles: []string{cls.FilePath},
			GraphContext:  map[string]any{"type": "middle_man", "delegateTarget": delegate, "delegateRatio": float64(delegateCount) / float64(totalCalls)},
		})
	}
	return findings, nil
}

// InappropriateIntimacy flags pairs of classes that reference each
// other's internals excessively (GLOSSARY): bidirectional USES above a
// threshold.
func InappropriateIntimacy(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	classes, err := env.Reader.Nodes(ctx, model.LabelClass)
	if err != nil {
		return nil, err
	}
	pairCounts := map[[2]string]int{}
	for _, cls := range classes {
		methods, err := env.Reader.Out(ctx, cls.QualifiedName, model.RelContains)
		if err != nil {
			return nil, err
		}
		for _, m := range methods {
			target, ok, _ := env.Reader.Node(ctx, m.Target)
			if !ok || target.Label != model.LabelFunction {
				continue
			}
			uses, err := env.Reader.Out(ctx, target.QualifiedName, model.RelUses)
			if err != nil {
				return nil, err
			}
			for _, u := range uses {
				other := classOfAttribute(u.Target)
				if other == "" || other == cls.QualifiedName {
					continue
				}
				key := [2]string{cls.QualifiedName, other}
				pairCounts[key]++
			}
		}
	}

	seen := map[[2]string]bool{}
	var findings []model.Finding
	for pair, count := range pairCounts {
		if seen[pair] {
			continue
		}
		reverse := [2]string{pair[1], pair[0]}
		total := count + pairCounts[reverse]
		seen[pair] = true
		seen[reverse] = true
		if pairCounts[reverse] == 0 || total < 10 {
			continue
		}
		pair = pairKey(pair[0], pair[1])
		a, okA, _ := env.Reader.Node(ctx, pair[0])
		b, okB, _ := env.Reader.Node(ctx, pair[1])
		if !okA || !okB {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID("InappropriateIntimacyDetector", pair[0]+"|"+pair[1]),
			Detector:      "InappropriateIntimacyDetector",
			Severity:      severityForFanIn(total),
			Title:         fmt.Sprintf("Inappropriate intimacy: %s <-> %s", a.Name, b.Name),
			Description:   fmt.Sprintf("Classes '%s' and '%s' reach into each other's internals %d times combined.", a.Name, b.Name, total),
			AffectedNodes: []string{pair[0], pair[1]},
			AffectedFiles: []string{a.FilePath, b.FilePath},
			GraphContext:  map[string]any{"type": "inappropriate_intimacy", "combinedAccesses": total},
		})
	}
	return findings, nil
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

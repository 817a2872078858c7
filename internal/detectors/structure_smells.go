package detectors

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/opensrc/codehealth/internal/model"
)

// MessageChain flags expressions whose `.`/`()` chain depth is >= 4,
// captured at extraction time as Function.maxChainDepth (§4.2, §4.5).
func MessageChain(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	funcs, err := env.Reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return nil, err
	}
	var findings []model.Finding
	for _, fn := range funcs {
		depth := intProp(fn.Properties, "maxChainDepth")
		if depth < 4 {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID("MessageChainDetector", fn.QualifiedName),
			Detector:      "MessageChainDetector",
			Severity:      chainDepthSeverity(depth),
			Title:         fmt.Sprintf("Message chain (Law of Demeter violation): %s", fn.Name),
			Description:   fmt.Sprintf("Function '%s' contains a call chain %d levels deep.", fn.Name, depth),
			AffectedNodes: []string{fn.QualifiedName},
			AffectedFiles: []string{fn.FilePath},
			GraphContext:  map[string]any{"type": "message_chain", "chainDepth": depth},
		})
	}
	return findings, nil
}

func chainDepthSeverity(depth int) model.Severity {
	switch {
	case depth >= 8:
		return model.SeverityHigh
	case depth >= 6:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// LongParameterList flags functions with more parameters than the
// threshold (default 5) - a straightforward graph heuristic over
// Function.parameters (§4.5).
func LongParameterList(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	threshold := env.Config.Thresholds["long_parameter_list"]
	if threshold == 0 {
		threshold = 5
	}
	funcs, err := env.Reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return nil, err
	}
	var findings []model.Finding
	for _, fn := range funcs {
		params := stringSlice(fn.Properties, "parameters")
		n := len(params)
		if boolProp(fn.Properties, "isMethod") && n > 0 && (params[0] == "self" || params[0] == "cls") {
			n--
		}
		if float64(n) <= threshold {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID("LongParameterListDetector", fn.QualifiedName),
			Detector:      "LongParameterListDetector",
			Severity:      longParamSeverity(n),
			Title:         fmt.Sprintf("Long parameter list: %s", fn.Name),
			Description:   fmt.Sprintf("Function '%s' takes %d parameters; consider grouping related ones into a parameter object.", fn.Name, n),
			AffectedNodes: []string{fn.QualifiedName},
			AffectedFiles: []string{fn.FilePath},
			GraphContext:  map[string]any{"type": "long_parameter_list", "parameterCount": n},
		})
	}
	return findings, nil
}

func longParamSeverity(n int) model.Severity {
	switch {
	case n >= 10:
		return model.SeverityHigh
	case n >= 8:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// DataClumps flags groups of >= 3 parameters that recur together,
// unchanged, across >= 3 functions - a sign they should be a single
// parameter object (§4.5, GLOSSARY).
func DataClumps(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	funcs, err := env.Reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return nil, err
	}
	canon := newParamCanonicalizer()
	clumpOccurrences := map[string][]string{}
	clumpParams := map[string][]string{}
	for _, fn := range funcs {
		params := canon.normalize(stringSlice(fn.Properties, "parameters"))
		if len(params) < 3 {
			continue
		}
		combos := combinations(params, 3)
		for _, combo := range combos {
			key := clumpKey(combo)
			clumpOccurrences[key] = append(clumpOccurrences[key], fn.QualifiedName)
			clumpParams[key] = combo
		}
	}

	var findings []model.Finding
	for key, occurrences := range clumpOccurrences {
		if len(occurrences) < 3 {
			continue
		}
		files := map[string]bool{}
		for _, q := range occurrences {
			files[filePathOf(q)] = true
		}
		fileList := make([]string, 0, len(files))
		for f := range files {
			fileList = append(fileList, f)
		}
		findings = append(findings, model.Finding{
			ID:            findingID("DataClumpsDetector", key),
			Detector:      "DataClumpsDetector",
			Severity:      model.SeverityLow,
			Title:         fmt.Sprintf("Data clump: %v", clumpParams[key]),
			Description:   fmt.Sprintf("Parameters %v recur together across %d functions; consider a parameter object.", clumpParams[key], len(occurrences)),
			AffectedNodes: occurrences,
			AffectedFiles: fileList,
			GraphContext:  map[string]any{"type": "data_clumps", "parameters": clumpParams[key], "occurrenceCount": len(occurrences)},
		})
	}
	return findings, nil
}

// paramCanonicalizer folds parameter names that differ only by naming
// convention (userId vs user_id) onto one canonical spelling, using
// Jaro-Winkler similarity on the underscore-stripped, lowercased form -
// so Data Clumps counts "userId, userId, user_id" as one recurring
// parameter instead of two near-misses that never reach the threshold.
type paramCanonicalizer struct {
	bareToCanonical map[string]string
}

func newParamCanonicalizer() *paramCanonicalizer {
	return &paramCanonicalizer{bareToCanonical: map[string]string{}}
}

const paramSimilarityThreshold = 0.92

func (c *paramCanonicalizer) normalize(params []string) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = c.canonicalize(p)
	}
	return out
}

func (c *paramCanonicalizer) canonicalize(name string) string {
	bare := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	if canonical, ok := c.bareToCanonical[bare]; ok {
		return canonical
	}
	for existingBare, canonical := range c.bareToCanonical {
		score, err := edlib.StringsSimilarity(bare, existingBare, edlib.JaroWinkler)
		if err == nil && score >= paramSimilarityThreshold {
			c.bareToCanonical[bare] = canonical
			return canonical
		}
	}
	c.bareToCanonical[bare] = name
	return name
}

func filePathOf(qualifiedName string) string {
	idx := strings.Index(qualifiedName, "::")
	if idx < 0 {
		return qualifiedName
	}
	return qualifiedName[:idx]
}

func clumpKey(combo []string) string {
	key := ""
	for i, c := range combo {
		if i > 0 {
			key += ","
		}
		key += c
	}
	return key
}

// combinations returns every sorted k-subset of items, deterministically
// ordered so the same parameter set always produces the same key
// regardless of declaration order.
func combinations(items []string, k int) [][]string {
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	var out [][]string
	var pick func(start int, chosen []string)
	pick = func(start int, chosen []string) {
		if len(chosen) == k {
			combo := append([]string(nil), chosen...)
			out = append(out, combo)
			return
		}
		for i := start; i < len(sorted); i++ {
			pick(i+1, append(chosen, sorted[i]))
		}
	}
	pick(0, nil)
	return out
}

// LazyClass flags classes that do almost nothing: one or two methods,
// total complexity of at most 3, at most one attribute, and at least one
// incoming USES - candidates for inlining (§4.5, GLOSSARY).
func LazyClass(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	classes, err := env.Reader.Nodes(ctx, model.LabelClass)
	if err != nil {
		return nil, err
	}
	var findings []model.Finding
	for _, cls := range classes {
		if boolProp(cls.Properties, "isAbstract") {
			continue
		}
		contains, err := env.Reader.Out(ctx, cls.QualifiedName, model.RelContains)
		if err != nil {
			return nil, err
		}
		methodCount, attrCount, totalComplexity := 0, 0, 0
		for _, c := range contains {
			target, ok, _ := env.Reader.Node(ctx, c.Target)
			if !ok {
				continue
			}
			switch target.Label {
			case model.LabelFunction:
				methodCount++
				totalComplexity += intProp(target.Properties, "complexity")
			case model.LabelAttribute:
				attrCount++
			}
		}
		if methodCount == 0 || methodCount > 2 || attrCount > 1 || totalComplexity > 3 {
			continue
		}
		inbound, err := env.Reader.In(ctx, cls.QualifiedName, model.RelUses)
		if err != nil {
			return nil, err
		}
		if len(inbound) == 0 {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID("LazyClassDetector", cls.QualifiedName),
			Detector:      "LazyClassDetector",
			Severity:      model.SeverityLow,
			Title:         fmt.Sprintf("Lazy class: %s", cls.Name),
			Description:   fmt.Sprintf("Class '%s' has only %d method(s), %d attribute(s), and minimal logic; consider inlining it.", cls.Name, methodCount, attrCount),
			AffectedNodes: []string{cls.QualifiedName},
			AffectedFiles: []string{cls.FilePath},
			GraphContext:  map[string]any{"type": "lazy_class", "methodCount": methodCount, "attributeCount": attrCount},
		})
	}
	return findings, nil
}

// RefusedBequest flags child methods that OVERRIDE a parent method without
// calling it - strong signal the base-class contract was rejected
// rather than honored (§4.5, GLOSSARY).
func RefusedBequest(ctx context.Context, env Context, _ []model.Finding) ([]model.Finding, error) {
	funcs, err := env.Reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return nil, err
	}
	var findings []model.Finding
	for _, fn := range funcs {
		overrides, err := env.Reader.Out(ctx, fn.QualifiedName, model.RelOverrides)
		if err != nil {
			return nil, err
		}
		if len(overrides) == 0 {
			continue
		}
		parent := overrides[0].Target
		calls, err := env.Reader.Out(ctx, fn.QualifiedName, model.RelCalls)
		if err != nil {
			return nil, err
		}
		callsParent := false
		for _, c := range calls {
			if c.Target == parent {
				callsParent = true
				break
			}
		}
		if callsParent {
			continue
		}
		findings = append(findings, model.Finding{
			ID:            findingID("RefusedBequestDetector", fn.QualifiedName),
			Detector:      "RefusedBequestDetector",
			Severity:      model.SeverityLow,
			Title:         fmt.Sprintf("Refused bequest: %s", fn.Name),
			Description:   fmt.Sprintf("'%s' overrides its parent method without ever calling it.", fn.Name),
			AffectedNodes: []string{fn.QualifiedName, parent},
			AffectedFiles: []string{fn.FilePath},
			GraphContext:  map[string]any{"type": "refused_bequest", "parent": parent},
		})
	}
	return findings, nil
}

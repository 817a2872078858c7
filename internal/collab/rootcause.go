package collab

import "github.com/opensrc/codehealth/internal/model"

// rootCauseDetectors names the detector families treated as structural
// root causes rather than symptoms (§4.7 P13): a circular dependency or
// a god class is the kind of problem that produces other findings, not
// the other way around.
var rootCauseDetectors = map[string]bool{
	"CircularDependencyDetector": true,
	"GodClassDetector":           true,
}

// LinkRootCauses walks the deduplicated finding set, marks every finding
// from a root-cause detector family that touches at least one other
// finding's file as IsRootCause with its CascadingCount, and marks each
// of those other findings CausedByRootCause/RootCauseDetector. A finding
// caused by a root cause also has its severity escalated one level
// (P14): a symptom of a god class is riskier than the same symptom in
// isolation.
//
// Reference: _examples/original_source/repotoire/detectors/engine.py -
// the root-cause-then-escalate-dependents pass this mirrors.
func LinkRootCauses(findings []model.Finding) []model.Finding {
	out := make([]model.Finding, len(findings))
	copy(out, findings)

	for i := range out {
		if !rootCauseDetectors[out[i].Detector] {
			continue
		}
		rootFiles := toSet(out[i].AffectedFiles)
		if len(rootFiles) == 0 {
			continue
		}

		cascading := 0
		for j := range out {
			if j == i || rootCauseDetectors[out[j].Detector] {
				continue
			}
			if !sharesAny(rootFiles, out[j].AffectedFiles) {
				continue
			}
			if !out[j].CausedByRootCause {
				out[j].CausedByRootCause = true
				out[j].RootCauseDetector = out[i].Detector
				out[j].Severity = out[j].Severity.Escalate()
			}
			cascading++
		}
		if cascading > 0 {
			out[i].IsRootCause = true
			out[i].CascadingCount = cascading
		}
	}
	return out
}

func sharesAny(set map[string]bool, items []string) bool {
	for _, i := range items {
		if set[i] {
			return true
		}
	}
	return false
}

// Package collab implements the Deduplicator & Root-Cause Analyzer (C7):
// the post-processing pass the Engine runs over the accumulated finding
// set once every detector has run (§4.7).
//
// Reference: _examples/original_source/repotoire/detectors/engine.py -
// the merge-by-proximity-then-link-causes pipeline is the grounding
// source; adapted here to operate over model.Finding slices instead of
// the original's dict-of-dicts finding shape.
package collab

import (
	"sort"

	"github.com/opensrc/codehealth/internal/model"
)

// proximityLines is the line-distance window two findings on the same
// file must fall within to be considered for merge (§4.7 P12).
const proximityLines = 10

// Dedup merges findings that point at the same underlying problem: same
// affected file, and either at least one shared affected node or line
// positions (read from GraphContext["line"] when present) within
// proximityLines of each other. Detector names are not consulted: two
// findings that meet these conditions merge whichever detectors produced
// them. Exactly one survivor per cluster is kept - the most severe, tie
// broken by earliest-sorted id - and every merged finding's
// Collaboration list is folded into the survivor so no evidence is lost
// (P12: the merge is conservative, total evidence is conserved even
// though finding count shrinks).
func Dedup(findings []model.Finding) ([]model.Finding, model.DedupStats) {
	stats := model.DedupStats{OriginalCount: len(findings)}
	if len(findings) == 0 {
		return findings, stats
	}

	sorted := make([]model.Finding, len(findings))
	copy(sorted, findings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	used := make([]bool, len(sorted))
	var merged []model.Finding

	for i := range sorted {
		if used[i] {
			continue
		}
		cluster := []int{i}
		used[i] = true
		for j := i + 1; j < len(sorted); j++ {
			if used[j] {
				continue
			}
			if shouldMerge(sorted[i], sorted[j]) {
				cluster = append(cluster, j)
				used[j] = true
			}
		}
		merged = append(merged, mergeCluster(sorted, cluster))
	}

	stats.MergedCount = len(merged)
	stats.DuplicatesRemoved = stats.OriginalCount - stats.MergedCount
	return merged, stats
}

func shouldMerge(a, b model.Finding) bool {
	if !shareFile(a, b) {
		return false
	}
	if !overlapsNodes(a, b) && !nearInLines(a, b) {
		return false
	}
	return true
}

func shareFile(a, b model.Finding) bool {
	for _, fa := range a.AffectedFiles {
		for _, fb := range b.AffectedFiles {
			if fa == fb {
				return true
			}
		}
	}
	return false
}

func overlapsNodes(a, b model.Finding) bool {
	seen := make(map[string]bool, len(a.AffectedNodes))
	for _, n := range a.AffectedNodes {
		seen[n] = true
	}
	for _, n := range b.AffectedNodes {
		if seen[n] {
			return true
		}
	}
	return false
}

func nearInLines(a, b model.Finding) bool {
	la, ok1 := lineOf(a)
	lb, ok2 := lineOf(b)
	if !ok1 || !ok2 {
		return false
	}
	d := la - lb
	if d < 0 {
		d = -d
	}
	return d <= proximityLines
}

func lineOf(f model.Finding) (int, bool) {
	if f.GraphContext == nil {
		return 0, false
	}
	v, ok := f.GraphContext["line"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// mergeCluster picks the most-severe, lowest-id finding in the cluster as
// the survivor and folds every other member's detector name and affected
// nodes/files into it as collaboration evidence.
func mergeCluster(sorted []model.Finding, idxs []int) model.Finding {
	best := idxs[0]
	for _, i := range idxs[1:] {
		if sorted[i].Severity > sorted[best].Severity {
			best = i
		} else if sorted[i].Severity == sorted[best].Severity && sorted[i].ID < sorted[best].ID {
			best = i
		}
	}
	survivor := sorted[best]
	if len(idxs) == 1 {
		return survivor
	}

	nodeSet := toSet(survivor.AffectedNodes)
	fileSet := toSet(survivor.AffectedFiles)
	for _, i := range idxs {
		if i == best {
			continue
		}
		f := sorted[i]
		survivor.Collaboration = append(survivor.Collaboration, model.CollaborationMetadata{
			Detector:     f.Detector,
			Confidence:   1.0,
			EvidenceTags: []string{f.Title},
		})
		survivor.Collaboration = append(survivor.Collaboration, f.Collaboration...)
		for _, n := range f.AffectedNodes {
			if !nodeSet[n] {
				nodeSet[n] = true
				survivor.AffectedNodes = append(survivor.AffectedNodes, n)
			}
		}
		for _, p := range f.AffectedFiles {
			if !fileSet[p] {
				fileSet[p] = true
				survivor.AffectedFiles = append(survivor.AffectedFiles, p)
			}
		}
	}
	return survivor
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, i := range items {
		s[i] = true
	}
	return s
}

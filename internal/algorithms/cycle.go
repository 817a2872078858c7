// Package algorithms implements the Graph Algorithms component (C4):
// strongly connected components, PageRank, betweenness/harmonic/degree
// centrality, and Louvain community detection. PageRank, betweenness,
// harmonic centrality and Louvain follow the create-projection -> run ->
// read -> drop lifecycle where a GDS projection is available, and fall
// back to a pure-Go whole-graph computation otherwise; SCC and degree
// centrality are always computed in Go over GraphReader, with no
// projection.
//
// Reference: _examples/other_examples/e0a5470a_jinterlante1206-AleutianLocal__services-trace-graph-analytics.go.go -
// the iterative, explicit-call-stack Tarjan's SCC is the grounding
// source for the pure-Go fallback; its degree-based HotSpots scoring
// grounds the degree-centrality fallback.
package algorithms

// Normalize implements the directional-preserving cycle-normalization
// variant (P2): rotate the cycle to start at its lexicographically
// minimum element, keeping traversal order intact. Two rotations of the
// same cycle normalize to the same key; a reversed cycle normalizes to
// a different key unless the cycle has length <= 2.
func Normalize(cycle []string) []string {
	if len(cycle) <= 1 {
		out := make([]string, len(cycle))
		copy(out, cycle)
		return out
	}
	minIdx := 0
	for i, v := range cycle {
		if v < cycle[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, len(cycle))
	for i := range cycle {
		out[i] = cycle[(minIdx+i)%len(cycle)]
	}
	return out
}

// CycleKey renders a normalized cycle as a single string for
// deduplication in a map.
func CycleKey(cycle []string) string {
	norm := Normalize(cycle)
	key := ""
	for i, n := range norm {
		if i > 0 {
			key += "->"
		}
		key += n
	}
	return key
}

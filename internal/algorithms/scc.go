package algorithms

import (
	"context"
	"sort"

	"github.com/opensrc/codehealth/internal/graph"
	"github.com/opensrc/codehealth/internal/model"
)

// StronglyConnectedComponents partitions File nodes over IMPORTS edges.
// Components of size >= 2 are cycles (§4.4). Implemented with an
// explicit call stack (no native recursion) so it doesn't overflow on
// deep import graphs - ported from the iterative Tarjan's in
// e0a5470a_jinterlante1206-AleutianLocal's graph analytics, generalized
// from a generic dependency graph to File/IMPORTS.
func StronglyConnectedComponents(ctx context.Context, reader graph.GraphReader) ([][]string, error) {
	files, err := reader.Nodes(ctx, model.LabelFile)
	if err != nil {
		return nil, err
	}
	adjacency := make(map[string][]string)
	for _, f := range files {
		edges, err := reader.Out(ctx, f.QualifiedName, model.RelImports)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			adjacency[f.QualifiedName] = append(adjacency[f.QualifiedName], e.Target)
		}
	}

	index := 0
	nodeIndex := make(map[string]int)
	nodeLowLink := make(map[string]int)
	onStack := make(map[string]bool)
	var sccStack []string
	var sccs [][]string

	type callFrame struct {
		nodeID    string
		edgeIndex int
		phase     int // 0=init, 1=process edges, 2=post-child, 3=finalize
		childID   string
	}

	strongConnect := func(start string) {
		callStack := []callFrame{{nodeID: start, phase: 0}}
		for len(callStack) > 0 {
			frame := &callStack[len(callStack)-1]
			switch frame.phase {
			case 0:
				nodeIndex[frame.nodeID] = index
				nodeLowLink[frame.nodeID] = index
				index++
				sccStack = append(sccStack, frame.nodeID)
				onStack[frame.nodeID] = true
				frame.phase = 1

			case 1:
				neighbors := adjacency[frame.nodeID]
				advanced := false
				for frame.edgeIndex < len(neighbors) {
					target := neighbors[frame.edgeIndex]
					frame.edgeIndex++
					if _, visited := nodeIndex[target]; !visited {
						frame.phase = 2
						frame.childID = target
						callStack = append(callStack, callFrame{nodeID: target, phase: 0})
						advanced = true
						break
					} else if onStack[target] {
						if nodeIndex[target] < nodeLowLink[frame.nodeID] {
							nodeLowLink[frame.nodeID] = nodeIndex[target]
						}
					}
				}
				if advanced {
					continue
				}
				frame.phase = 3

			case 2:
				if nodeLowLink[frame.childID] < nodeLowLink[frame.nodeID] {
					nodeLowLink[frame.nodeID] = nodeLowLink[frame.childID]
				}
				frame.phase = 1

			case 3:
				if nodeLowLink[frame.nodeID] == nodeIndex[frame.nodeID] {
					var scc []string
					for {
						w := sccStack[len(sccStack)-1]
						sccStack = sccStack[:len(sccStack)-1]
						onStack[w] = false
						scc = append(scc, w)
						if w == frame.nodeID {
							break
						}
					}
					if len(scc) > 1 {
						// Pop order is the reverse of DFS discovery order;
						// reversing it lists the members in discovery order,
						// which for a simple cycle follows the import
						// direction. Normalize (P2) canonicalizes it
						// downstream. Do not sort here - that would discard
						// direction.
						for a, b := 0, len(scc)-1; a < b; a, b = a+1, b-1 {
							scc[a], scc[b] = scc[b], scc[a]
						}
						sccs = append(sccs, scc)
					}
				}
				callStack = callStack[:len(callStack)-1]
			}
		}
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.QualifiedName)
	}
	sort.Strings(names)
	for _, n := range names {
		if _, visited := nodeIndex[n]; !visited {
			strongConnect(n)
		}
	}

	return sccs, nil
}

package algorithms

import (
	"context"

	"github.com/opensrc/codehealth/internal/graph"
	"github.com/opensrc/codehealth/internal/model"
)

// Community is one detected group of files plus the modularity
// contribution used by Module-Cohesion.
type Community struct {
	ID        int
	Members   []string
	Modularity float64
}

// LouvainCommunities groups files by import co-occurrence, yielding a
// modularity score (§4.4, Module-Cohesion). GDS path, then a
// connected-components approximation (treating IMPORTS as undirected)
// when the Louvain plugin is unavailable - a coarser substitute that
// still partitions the file set into cohesive groups, documented as a
// simplification in DESIGN.md.
func LouvainCommunities(ctx context.Context, store graph.Store, reader graph.GraphReader) ([]Community, float64, error) {
	rows, err := withProjection(ctx, store, "louvain", string(model.LabelFile), string(model.RelImports),
		func(name string) ([]map[string]any, error) {
			return store.ExecuteQuery(ctx, `
				CALL gds.louvain.stream($name) YIELD nodeId, communityId
				RETURN gds.util.asNode(nodeId).qualifiedName AS qname, communityId AS community
			`, map[string]any{"name": name})
		})
	if err == nil {
		groups := map[int64][]string{}
		for _, row := range rows {
			cid := model.Prop(row, "community", int64(0))
			groups[cid] = append(groups[cid], model.Prop(row, "qname", ""))
		}
		communities := make([]Community, 0, len(groups))
		for cid, members := range groups {
			communities = append(communities, Community{ID: int(cid), Members: members})
		}
		modRows, modErr := store.ExecuteQuery(ctx, `
			CALL gds.louvain.stats($name) YIELD modularity
			RETURN modularity
		`, map[string]any{"name": name})
		modularity := 0.0
		if modErr == nil && len(modRows) > 0 {
			modularity = model.Prop(modRows[0], "modularity", 0.0)
		}
		return communities, modularity, nil
	}

	return connectedComponentsFallback(ctx, reader)
}

// connectedComponentsFallback partitions files into undirected
// connected components over IMPORTS and estimates modularity as
// 1 - (cross-community edges / total edges), a standard coarse proxy
// when true community detection isn't available.
func connectedComponentsFallback(ctx context.Context, reader graph.GraphReader) ([]Community, float64, error) {
	files, err := reader.Nodes(ctx, model.LabelFile)
	if err != nil {
		return nil, 0, err
	}
	adjacency := make(map[string][]string, len(files))
	totalEdges := 0
	for _, f := range files {
		out, err := reader.Out(ctx, f.QualifiedName, model.RelImports)
		if err != nil {
			return nil, 0, err
		}
		for _, e := range out {
			adjacency[f.QualifiedName] = append(adjacency[f.QualifiedName], e.Target)
			adjacency[e.Target] = append(adjacency[e.Target], f.QualifiedName)
			totalEdges++
		}
	}

	visited := map[string]bool{}
	var communities []Community
	cid := 0
	for _, f := range files {
		if visited[f.QualifiedName] {
			continue
		}
		var members []string
		queue := []string{f.QualifiedName}
		visited[f.QualifiedName] = true
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			members = append(members, v)
			for _, w := range adjacency[v] {
				if !visited[w] {
					visited[w] = true
					queue = append(queue, w)
				}
			}
		}
		communities = append(communities, Community{ID: cid, Members: members})
		cid++
	}

	crossEdges := 0
	memberCommunity := map[string]int{}
	for _, c := range communities {
		for _, m := range c.Members {
			memberCommunity[m] = c.ID
		}
	}
	for _, f := range files {
		for _, target := range adjacency[f.QualifiedName] {
			if memberCommunity[f.QualifiedName] != memberCommunity[target] {
				crossEdges++
			}
		}
	}
	modularity := 1.0
	if totalEdges > 0 {
		modularity = 1.0 - float64(crossEdges)/float64(totalEdges*2)
	}
	if modularity < 0 {
		modularity = 0
	}
	return communities, modularity, nil
}

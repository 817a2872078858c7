package algorithms

import (
	"context"
	"sort"

	"github.com/opensrc/codehealth/internal/graph"
	"github.com/opensrc/codehealth/internal/model"
)

// Score pairs an entity with a computed metric value.
type Score struct {
	QualifiedName string
	Value         float64
}

func sortScoresDesc(scores []Score) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Value == scores[j].Value {
			return scores[i].QualifiedName < scores[j].QualifiedName
		}
		return scores[i].Value > scores[j].Value
	})
}

// PageRank ranks functions by incoming CALLS, used by Influential-Code.
// Tries the GDS projection first; falls back to a pure-Go power
// iteration over the same edge set if GDS is unavailable.
func PageRank(ctx context.Context, store graph.Store, reader graph.GraphReader) ([]Score, error) {
	rows, err := withProjection(ctx, store, "pagerank", string(model.LabelFunction), string(model.RelCalls),
		func(name string) ([]map[string]any, error) {
			return store.ExecuteQuery(ctx, `
				CALL gds.pageRank.stream($name) YIELD nodeId, score
				RETURN gds.util.asNode(nodeId).qualifiedName AS qname, score
				ORDER BY score DESC
			`, map[string]any{"name": name})
		})
	if err == nil {
		scores := make([]Score, 0, len(rows))
		for _, row := range rows {
			scores = append(scores, Score{QualifiedName: model.Prop(row, "qname", ""), Value: model.Prop(row, "score", 0.0)})
		}
		return scores, nil
	}

	return pageRankFallback(ctx, reader)
}

func pageRankFallback(ctx context.Context, reader graph.GraphReader) ([]Score, error) {
	funcs, err := reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return nil, err
	}
	n := len(funcs)
	if n == 0 {
		return nil, nil
	}
	idx := make(map[string]int, n)
	for i, f := range funcs {
		idx[f.QualifiedName] = i
	}
	out := make([][]int, n)
	outDeg := make([]int, n)
	for i, f := range funcs {
		edges, err := reader.Out(ctx, f.QualifiedName, model.RelCalls)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if j, ok := idx[e.Target]; ok {
				out[i] = append(out[i], j)
				outDeg[i]++
			}
		}
	}

	const damping = 0.85
	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}
	for iter := 0; iter < 40; iter++ {
		next := make([]float64, n)
		base := (1 - damping) / float64(n)
		for i := range next {
			next[i] = base
		}
		for i := 0; i < n; i++ {
			if outDeg[i] == 0 {
				continue
			}
			share := damping * rank[i] / float64(outDeg[i])
			for _, j := range out[i] {
				next[j] += share
			}
		}
		rank = next
	}

	scores := make([]Score, n)
	for i, f := range funcs {
		scores[i] = Score{QualifiedName: f.QualifiedName, Value: rank[i]}
	}
	sortScoresDesc(scores)
	return scores, nil
}

// BetweennessCentrality identifies functions on many shortest call paths
// (Architectural-bottleneck). GDS path, then an unweighted BFS-based
// fallback (Brandes' algorithm, O(V*E)).
func BetweennessCentrality(ctx context.Context, store graph.Store, reader graph.GraphReader) ([]Score, error) {
	rows, err := withProjection(ctx, store, "betweenness", string(model.LabelFunction), string(model.RelCalls),
		func(name string) ([]map[string]any, error) {
			return store.ExecuteQuery(ctx, `
				CALL gds.betweenness.stream($name) YIELD nodeId, score
				RETURN gds.util.asNode(nodeId).qualifiedName AS qname, score
				ORDER BY score DESC
			`, map[string]any{"name": name})
		})
	if err == nil {
		scores := make([]Score, 0, len(rows))
		for _, row := range rows {
			scores = append(scores, Score{QualifiedName: model.Prop(row, "qname", ""), Value: model.Prop(row, "score", 0.0)})
		}
		return scores, nil
	}
	return betweennessFallback(ctx, reader)
}

func betweennessFallback(ctx context.Context, reader graph.GraphReader) ([]Score, error) {
	funcs, err := reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return nil, err
	}
	adjacency := make(map[string][]string, len(funcs))
	for _, f := range funcs {
		edges, err := reader.Out(ctx, f.QualifiedName, model.RelCalls)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			adjacency[f.QualifiedName] = append(adjacency[f.QualifiedName], e.Target)
		}
	}

	betweenness := make(map[string]float64, len(funcs))
	for _, s := range funcs {
		stack := []string{}
		pred := map[string][]string{}
		sigma := map[string]float64{s.QualifiedName: 1}
		dist := map[string]int{s.QualifiedName: 0}
		queue := []string{s.QualifiedName}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range adjacency[v] {
				if _, ok := dist[w]; !ok {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}
		delta := map[string]float64{}
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
			}
			if w != s.QualifiedName {
				betweenness[w] += delta[w]
			}
		}
	}

	scores := make([]Score, 0, len(funcs))
	for _, f := range funcs {
		scores = append(scores, Score{QualifiedName: f.QualifiedName, Value: betweenness[f.QualifiedName]})
	}
	sortScoresDesc(scores)
	return scores, nil
}

// HarmonicCentrality: high = central coordinator, low = isolated
// (Core-utility). GDS path, then a BFS-distance-sum fallback.
func HarmonicCentrality(ctx context.Context, store graph.Store, reader graph.GraphReader) ([]Score, error) {
	rows, err := withProjection(ctx, store, "harmonic", string(model.LabelFunction), string(model.RelCalls),
		func(name string) ([]map[string]any, error) {
			return store.ExecuteQuery(ctx, `
				CALL gds.closeness.harmonic.stream($name) YIELD nodeId, centrality
				RETURN gds.util.asNode(nodeId).qualifiedName AS qname, centrality AS score
				ORDER BY score DESC
			`, map[string]any{"name": name})
		})
	if err == nil {
		scores := make([]Score, 0, len(rows))
		for _, row := range rows {
			scores = append(scores, Score{QualifiedName: model.Prop(row, "qname", ""), Value: model.Prop(row, "score", 0.0)})
		}
		return scores, nil
	}
	return harmonicFallback(ctx, reader)
}

func harmonicFallback(ctx context.Context, reader graph.GraphReader) ([]Score, error) {
	funcs, err := reader.Nodes(ctx, model.LabelFunction)
	if err != nil {
		return nil, err
	}
	adjacency := make(map[string][]string, len(funcs))
	for _, f := range funcs {
		edges, err := reader.Out(ctx, f.QualifiedName, model.RelCalls)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			adjacency[f.QualifiedName] = append(adjacency[f.QualifiedName], e.Target)
		}
	}

	scores := make([]Score, 0, len(funcs))
	for _, f := range funcs {
		dist := map[string]int{f.QualifiedName: 0}
		queue := []string{f.QualifiedName}
		sum := 0.0
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, w := range adjacency[v] {
				if _, ok := dist[w]; !ok {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
					sum += 1.0 / float64(dist[w])
				}
			}
		}
		scores = append(scores, Score{QualifiedName: f.QualifiedName, Value: sum})
	}
	sortScoresDesc(scores)
	return scores, nil
}

// DegreeCentrality computes in/out degree directly: god-class / feature-
// envy / hotspot heuristics only need raw counts, not a projection.
func DegreeCentrality(ctx context.Context, reader graph.GraphReader, label model.NodeLabel, relType model.RelType) ([]Score, error) {
	nodes, err := reader.Nodes(ctx, label)
	if err != nil {
		return nil, err
	}
	scores := make([]Score, 0, len(nodes))
	for _, n := range nodes {
		out, err := reader.Out(ctx, n.QualifiedName, relType)
		if err != nil {
			return nil, err
		}
		in, err := reader.In(ctx, n.QualifiedName, relType)
		if err != nil {
			return nil, err
		}
		scores = append(scores, Score{QualifiedName: n.QualifiedName, Value: float64(len(out) + len(in))})
	}
	sortScoresDesc(scores)
	return scores, nil
}

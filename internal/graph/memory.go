package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/opensrc/codehealth/internal/errors"
	"github.com/opensrc/codehealth/internal/model"
)

// MemoryStore is an in-memory Store + GraphReader. It backs every test
// in this repo that needs a graph without a live Neo4j deployment, and
// it is a legitimate standalone mode: everything it does is expressible
// as plain Go data structures, since the wire format (qualifiedName
// keyed nodes, typed edges) never actually required Cypher.
type MemoryStore struct {
	mu    sync.Mutex
	nodes map[string]model.NodeRecord // keyed by qualifiedName
	edges []model.EdgeRecord
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nodes: make(map[string]model.NodeRecord)}
}

func (s *MemoryStore) ExecuteQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	// MemoryStore never interprets raw Cypher. Algorithm callers that
	// try a GDS projection against it get AlgorithmUnavailable and take
	// the pure-Go fallback path, exactly as a missing GDS plugin would
	// look to a real Neo4j-backed store.
	return nil, errors.AlgorithmUnavailable("cypher", fmt.Errorf("MemoryStore does not execute Cypher"))
}

func (s *MemoryStore) BatchCreateNodes(ctx context.Context, entities []model.Entity) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]string, len(entities))
	for _, e := range entities {
		rec := model.NodeRecord{
			Label:         e.Label,
			Name:          e.Name,
			QualifiedName: e.QualifiedName,
			FilePath:      e.FilePath,
			LineStart:     e.LineStart,
			LineEnd:       e.LineEnd,
			Docstring:     e.Docstring,
			Properties:    entityProps(e),
		}
		if existing, ok := s.nodes[e.QualifiedName]; ok && e.Label == model.LabelModule {
			for k, v := range rec.Properties {
				existing.Properties[k] = v
			}
			s.nodes[e.QualifiedName] = existing
		} else {
			s.nodes[e.QualifiedName] = rec
		}
		ids[e.QualifiedName] = e.QualifiedName
	}
	return ids, nil
}

func (s *MemoryStore) BatchCreateRelationships(ctx context.Context, rels []model.Relationship) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rels {
		if _, ok := s.nodes[r.Target]; !ok {
			s.nodes[r.Target] = model.NodeRecord{
				Name:          r.Target,
				QualifiedName: r.Target,
				External:      true,
				Properties:    map[string]any{"external": true, "name": r.Target, "qualifiedName": r.Target},
			}
		}
		props := map[string]any{}
		for k, v := range r.Properties {
			props[k] = v
		}
		if r.Line > 0 {
			props["line"] = r.Line
		}
		s.edges = append(s.edges, model.EdgeRecord{
			Type:       r.Type,
			Source:     r.Source,
			Target:     r.Target,
			Line:       r.Line,
			Properties: props,
		})
	}
	return len(rels), nil
}

func (s *MemoryStore) GetStats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats Stats
	for _, n := range s.nodes {
		switch n.Label {
		case model.LabelFile:
			stats.Files++
		case model.LabelClass:
			stats.Classes++
		case model.LabelFunction:
			stats.Functions++
		}
	}
	for _, e := range s.edges {
		if e.Type != model.RelFlaggedBy {
			stats.Relationships++
		}
	}
	return stats, nil
}

func (s *MemoryStore) InitializeSchema(ctx context.Context) error { return nil }

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = make(map[string]model.NodeRecord)
	s.edges = nil
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func (s *MemoryStore) Nodes(ctx context.Context, label model.NodeLabel) ([]model.NodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.NodeRecord
	for _, n := range s.nodes {
		if n.Label == label {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out, nil
}

func (s *MemoryStore) Node(ctx context.Context, qualifiedName string) (model.NodeRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[qualifiedName]
	return n, ok, nil
}

func (s *MemoryStore) Out(ctx context.Context, qualifiedName string, relType model.RelType) ([]model.EdgeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.EdgeRecord
	for _, e := range s.edges {
		if e.Source == qualifiedName && e.Type == relType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) In(ctx context.Context, qualifiedName string, relType model.RelType) ([]model.EdgeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.EdgeRecord
	for _, e := range s.edges {
		if e.Target == qualifiedName && e.Type == relType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) AllEdges(ctx context.Context, relType model.RelType) ([]model.EdgeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.EdgeRecord
	for _, e := range s.edges {
		if e.Type == relType {
			out = append(out, e)
		}
	}
	return out, nil
}

// Snapshot returns every node and edge, for algorithms that need a whole-graph
// pure-Go fallback when no projection library is available.
func (s *MemoryStore) Snapshot() ([]model.NodeRecord, []model.EdgeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes := make([]model.NodeRecord, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n)
	}
	edges := make([]model.EdgeRecord, len(s.edges))
	copy(edges, s.edges)
	return nodes, edges
}

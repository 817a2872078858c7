package graph

import (
	"context"
	"fmt"

	"github.com/opensrc/codehealth/internal/errors"
	"github.com/opensrc/codehealth/internal/model"
)

// GraphReader is the typed read API detectors and algorithms program
// against, instead of building Cypher strings themselves. Neo4jStore
// implements it with parameterized Cypher; MemoryStore implements it
// directly over in-memory indices. Both enforce the same contract.
type GraphReader interface {
	Nodes(ctx context.Context, label model.NodeLabel) ([]model.NodeRecord, error)
	Node(ctx context.Context, qualifiedName string) (model.NodeRecord, bool, error)
	Out(ctx context.Context, qualifiedName string, relType model.RelType) ([]model.EdgeRecord, error)
	In(ctx context.Context, qualifiedName string, relType model.RelType) ([]model.EdgeRecord, error)
	AllEdges(ctx context.Context, relType model.RelType) ([]model.EdgeRecord, error)
}

func recordFromRow(row map[string]any) model.NodeRecord {
	props, _ := row["props"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	return model.NodeRecord{
		Label:         model.NodeLabel(model.Prop(row, "label", "")),
		Name:          model.Prop(props, "name", ""),
		QualifiedName: model.Prop(props, "qualifiedName", ""),
		FilePath:      model.Prop(props, "filePath", ""),
		LineStart:     int(model.Prop(props, "lineStart", int64(0))),
		LineEnd:       int(model.Prop(props, "lineEnd", int64(0))),
		Docstring:     model.Prop(props, "docstring", ""),
		External:      model.Prop(props, "external", false),
		Properties:    props,
	}
}

func (s *Neo4jStore) Nodes(ctx context.Context, label model.NodeLabel) ([]model.NodeRecord, error) {
	if !ValidateIdentifier(string(label)) {
		return nil, errors.SecurityErrorf("unsafe node label: %q", label)
	}
	cypher := fmt.Sprintf(`MATCH (n:%s) RETURN labels(n)[0] AS label, properties(n) AS props`, label)
	rows, err := s.ExecuteQuery(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.NodeRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, recordFromRow(row))
	}
	return out, nil
}

func (s *Neo4jStore) Node(ctx context.Context, qualifiedName string) (model.NodeRecord, bool, error) {
	rows, err := s.ExecuteQuery(ctx, `
		MATCH (n {qualifiedName: $qname})
		RETURN labels(n)[0] AS label, properties(n) AS props
	`, map[string]any{"qname": qualifiedName})
	if err != nil {
		return model.NodeRecord{}, false, err
	}
	if len(rows) == 0 {
		return model.NodeRecord{}, false, nil
	}
	return recordFromRow(rows[0]), true, nil
}

func edgeFromRow(row map[string]any) model.EdgeRecord {
	props, _ := row["props"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	return model.EdgeRecord{
		Type:       model.RelType(model.Prop(row, "type", "")),
		Source:     model.Prop(row, "source", ""),
		Target:     model.Prop(row, "target", ""),
		Line:       int(model.Prop(props, "line", int64(0))),
		Properties: props,
	}
}

func (s *Neo4jStore) Out(ctx context.Context, qualifiedName string, relType model.RelType) ([]model.EdgeRecord, error) {
	if !ValidateIdentifier(string(relType)) {
		return nil, errors.SecurityErrorf("unsafe relationship type: %q", relType)
	}
	cypher := fmt.Sprintf(`
		MATCH (a {qualifiedName: $qname})-[r:%s]->(b)
		RETURN type(r) AS type, a.qualifiedName AS source, b.qualifiedName AS target, properties(r) AS props
	`, relType)
	rows, err := s.ExecuteQuery(ctx, cypher, map[string]any{"qname": qualifiedName})
	if err != nil {
		return nil, err
	}
	out := make([]model.EdgeRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, edgeFromRow(row))
	}
	return out, nil
}

func (s *Neo4jStore) In(ctx context.Context, qualifiedName string, relType model.RelType) ([]model.EdgeRecord, error) {
	if !ValidateIdentifier(string(relType)) {
		return nil, errors.SecurityErrorf("unsafe relationship type: %q", relType)
	}
	cypher := fmt.Sprintf(`
		MATCH (a)-[r:%s]->(b {qualifiedName: $qname})
		RETURN type(r) AS type, a.qualifiedName AS source, b.qualifiedName AS target, properties(r) AS props
	`, relType)
	rows, err := s.ExecuteQuery(ctx, cypher, map[string]any{"qname": qualifiedName})
	if err != nil {
		return nil, err
	}
	out := make([]model.EdgeRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, edgeFromRow(row))
	}
	return out, nil
}

func (s *Neo4jStore) AllEdges(ctx context.Context, relType model.RelType) ([]model.EdgeRecord, error) {
	if !ValidateIdentifier(string(relType)) {
		return nil, errors.SecurityErrorf("unsafe relationship type: %q", relType)
	}
	cypher := fmt.Sprintf(`
		MATCH (a)-[r:%s]->(b)
		RETURN type(r) AS type, a.qualifiedName AS source, b.qualifiedName AS target, properties(r) AS props
	`, relType)
	rows, err := s.ExecuteQuery(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.EdgeRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, edgeFromRow(row))
	}
	return out, nil
}

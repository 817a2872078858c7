package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/opensrc/codehealth/internal/errors"
	"github.com/opensrc/codehealth/internal/model"
)

// entityProps flattens an Entity into the property map written to Neo4j,
// folding in the common fields alongside the label-specific ones.
func entityProps(e model.Entity) map[string]any {
	props := map[string]any{
		"name":          e.Name,
		"qualifiedName": e.QualifiedName,
		"filePath":      e.FilePath,
		"lineStart":     e.LineStart,
		"lineEnd":       e.LineEnd,
	}
	if e.Docstring != "" {
		props["docstring"] = e.Docstring
	}
	for k, v := range e.Properties {
		props[k] = v
	}
	return props
}

// BatchCreateNodes groups entities by label and upserts each group with one
// UNWIND statement. Module nodes are MERGEd by qualifiedName (many files
// import the same module); every other label is CREATEd, since the
// qualifiedName scheme guarantees uniqueness by construction.
func (s *Neo4jStore) BatchCreateNodes(ctx context.Context, entities []model.Entity) (map[string]string, error) {
	ids := make(map[string]string, len(entities))
	byLabel := make(map[model.NodeLabel][]model.Entity)
	for _, e := range entities {
		byLabel[e.Label] = append(byLabel[e.Label], e)
	}

	for label, group := range byLabel {
		if !ValidateIdentifier(string(label)) {
			return nil, errors.SecurityErrorf("unsafe node label: %q", label)
		}

		rows := make([]map[string]any, len(group))
		for i, e := range group {
			rows[i] = entityProps(e)
		}

		var cypher string
		if label == model.LabelModule {
			cypher = fmt.Sprintf(`
				UNWIND $nodes AS node
				MERGE (n:%s {qualifiedName: node.qualifiedName})
				ON CREATE SET n = node
				ON MATCH SET n += node
				RETURN node.qualifiedName AS qname, elementId(n) AS id
			`, label)
		} else {
			cypher = fmt.Sprintf(`
				UNWIND $nodes AS node
				CREATE (n:%s)
				SET n = node
				RETURN node.qualifiedName AS qname, elementId(n) AS id
			`, label)
		}

		result, err := s.ExecuteQuery(ctx, cypher, map[string]any{"nodes": rows})
		if err != nil {
			return nil, errors.DatabaseErrorf(err, "batch create failed for label %s", label)
		}
		for _, row := range result {
			qname := model.Prop(row, "qname", "")
			id := model.Prop(row, "id", "")
			if qname != "" {
				ids[qname] = id
			}
		}
	}
	return ids, nil
}

// BatchCreateRelationships groups relationships by type and executes one
// UNWIND per group, matching the source by qualified name and MERGEing the
// target - creating an external=true placeholder if it doesn't exist yet.
// The relationship-type identifier spliced into the Cypher string is
// always drawn from the closed RelType enumeration, never from user input.
func (s *Neo4jStore) BatchCreateRelationships(ctx context.Context, rels []model.Relationship) (int, error) {
	byType := make(map[model.RelType][]model.Relationship)
	for _, r := range rels {
		byType[r.Type] = append(byType[r.Type], r)
	}

	total := 0
	for relType, group := range byType {
		if !ValidateIdentifier(string(relType)) {
			return total, errors.SecurityErrorf("unsafe relationship type: %q", relType)
		}

		rows := make([]map[string]any, len(group))
		for i, r := range group {
			props := map[string]any{}
			for k, v := range r.Properties {
				props[k] = v
			}
			if r.Line > 0 {
				props["line"] = r.Line
			}
			rows[i] = map[string]any{
				"source": r.Source,
				"target": r.Target,
				"props":  props,
			}
		}

		cypher := fmt.Sprintf(`
			UNWIND $rels AS rel
			MATCH (a {qualifiedName: rel.source})
			MERGE (b {qualifiedName: rel.target})
			ON CREATE SET b.external = true, b.name = rel.target, b.qualifiedName = rel.target
			MERGE (a)-[r:%s]->(b)
			SET r += rel.props
			RETURN count(r) AS created
		`, relType)

		result, err := s.ExecuteQuery(ctx, cypher, map[string]any{"rels": rows})
		if err != nil {
			return total, errors.DatabaseErrorf(err, "batch relationship create failed for type %s", relType)
		}
		if len(result) > 0 {
			total += int(model.Prop(result[0], "created", int64(0)))
		}
	}
	return total, nil
}

// NewRunID generates a unique suffix for deriving projection names, so
// concurrent analyses never collide on a process-wide named resource.
func NewRunID() string {
	return uuid.NewString()
}

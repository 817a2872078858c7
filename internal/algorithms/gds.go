package algorithms

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	goerrors "github.com/opensrc/codehealth/internal/errors"
	"github.com/opensrc/codehealth/internal/graph"
)

// projectionName derives a process-wide-unique name from the operation
// and a run id, per §5's "process-wide named resources" requirement.
func projectionName(operation string) string {
	return fmt.Sprintf("%s_%s", operation, uuid.NewString())
}

// withProjection runs body against a named GDS projection over
// (nodeLabel, relType), guaranteeing the projection is dropped
// afterward regardless of how body returns. If graph projection isn't
// available (MemoryStore, or GDS plugin absent), it returns
// AlgorithmUnavailable and the caller takes its pure-Go fallback path.
func withProjection(ctx context.Context, store graph.Store, operation, nodeLabel, relType string, body func(name string) ([]map[string]any, error)) ([]map[string]any, error) {
	if !graph.ValidateIdentifier(nodeLabel) || !graph.ValidateIdentifier(relType) {
		return nil, goerrors.SecurityErrorf("unsafe projection labels: %s/%s", nodeLabel, relType)
	}
	name := projectionName(operation)
	if !graph.ValidateIdentifier(name) {
		return nil, goerrors.SecurityErrorf("unsafe projection name: %s", name)
	}

	_, err := store.ExecuteQuery(ctx, fmt.Sprintf(
		`CALL gds.graph.project($name, '%s', '%s')`, nodeLabel, relType),
		map[string]any{"name": name})
	if err != nil {
		return nil, goerrors.AlgorithmUnavailable(operation, err)
	}
	defer func() {
		_, _ = store.ExecuteQuery(ctx, `CALL gds.graph.drop($name, false)`, map[string]any{"name": name})
	}()

	return body(name)
}

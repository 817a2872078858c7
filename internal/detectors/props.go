package detectors

import (
	"strings"

	"github.com/opensrc/codehealth/internal/model"
)

// stringSlice reads a string-list property regardless of whether it
// arrived as []string (MemoryStore, tests) or []any (values decoded off
// a Neo4j driver row).
func stringSlice(props map[string]any, key string) []string {
	if props == nil {
		return nil
	}
	switch v := props[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func intProp(props map[string]any, key string) int {
	if props == nil {
		return 0
	}
	switch v := props[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func boolProp(props map[string]any, key string) bool {
	return model.Prop(props, key, false)
}

func containsFold(patterns []string, name string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

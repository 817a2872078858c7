// Package model defines the labeled property graph schema shared by the
// extractor, the graph store, and the detector library: node labels,
// relationship types, and the Finding/HealthReport payloads produced by
// analysis.
//
// Reference: graph schema - File/Module/Class/Function/Attribute nodes,
// CONTAINS/IMPORTS/CALLS/INHERITS/OVERRIDES/USES/FLAGGED_BY relationships.
package model

import "fmt"

// NodeLabel identifies one of the closed set of graph node labels.
type NodeLabel string

const (
	LabelFile             NodeLabel = "File"
	LabelModule           NodeLabel = "Module"
	LabelClass            NodeLabel = "Class"
	LabelFunction         NodeLabel = "Function"
	LabelAttribute        NodeLabel = "Attribute"
	LabelDetectorMetadata NodeLabel = "DetectorMetadata"
)

// RelType identifies one of the closed set of graph relationship types.
// Kept as a closed enumeration: the Cypher identifier spliced into batch
// queries is always one of these constants, never untrusted input.
type RelType string

const (
	RelContains  RelType = "CONTAINS"
	RelImports   RelType = "IMPORTS"
	RelCalls     RelType = "CALLS"
	RelInherits  RelType = "INHERITS"
	RelOverrides RelType = "OVERRIDES"
	RelUses      RelType = "USES"
	RelFlaggedBy RelType = "FLAGGED_BY"
)

// Entity is a node to be written to the graph store. Properties carries the
// label-specific fields (parameters, complexity, isAbstract, ...); the
// common fields are promoted so qualified-name resolution doesn't need a
// map lookup on the hot path.
type Entity struct {
	Label         NodeLabel
	Name          string
	QualifiedName string
	FilePath      string
	LineStart     int
	LineEnd       int
	Docstring     string
	Properties    map[string]any
}

// Relationship is an edge to be written to the graph store. Source/Target
// are qualified names, resolved to element IDs by the batch loader; a
// missing target is materialized as an external placeholder node.
type Relationship struct {
	Type       RelType
	Source     string
	Target     string
	Line       int
	Properties map[string]any
}

// Prop reads a property with a typed default, used pervasively by
// detectors reading graphContext-shaped maps back out of query rows.
func Prop[T any](m map[string]any, key string, def T) T {
	if m == nil {
		return def
	}
	if v, ok := m[key]; ok {
		if t, ok := v.(T); ok {
			return t
		}
	}
	return def
}

// FileQualifiedName implements the invariant File.qualifiedName = filePath.
func FileQualifiedName(filePath string) string {
	return filePath
}

// ClassQualifiedName implements: "<filePath>::<className>:<lineStart>".
// The line number disambiguates nested and redefined classes in one file.
func ClassQualifiedName(filePath, className string, lineStart int) string {
	return fmt.Sprintf("%s::%s:%d", filePath, className, lineStart)
}

// FunctionQualifiedName implements:
// "<filePath>::[<className>:<classLine>.]<funcName>[@decoratorSuffix]:<funcLine>".
// classQualified is the owning class's qualified name fragment ("Name:Line")
// or "" for a module-level function. decoratorSuffix is "" when the
// function carries no descriptor-role decorator.
func FunctionQualifiedName(filePath, classQualified, funcName, decoratorSuffix string, funcLine int) string {
	if classQualified != "" {
		if decoratorSuffix != "" {
			return fmt.Sprintf("%s::%s.%s@%s:%d", filePath, classQualified, funcName, decoratorSuffix, funcLine)
		}
		return fmt.Sprintf("%s::%s.%s:%d", filePath, classQualified, funcName, funcLine)
	}
	if decoratorSuffix != "" {
		return fmt.Sprintf("%s::%s@%s:%d", filePath, funcName, decoratorSuffix, funcLine)
	}
	return fmt.Sprintf("%s::%s:%d", filePath, funcName, funcLine)
}

// AttributeQualifiedName implements: "<filePath>::<className>:<classLine>.<attrName>".
func AttributeQualifiedName(filePath, className string, classLine int, attrName string) string {
	return fmt.Sprintf("%s::%s:%d.%s", filePath, className, classLine, attrName)
}

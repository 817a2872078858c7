package extractor

import sitter "github.com/tree-sitter/go-tree-sitter"

// pythonDecisionKinds is shared across call sites that need to count
// cyclomatic complexity: 1 + count of branches, loops, boolean
// operators, exception handlers, context managers, and assertions
// (§4.2 "Complexity").
var pythonDecisionKinds = map[string]bool{
	"if_statement":          true,
	"elif_clause":           true,
	"for_statement":         true,
	"while_statement":       true,
	"except_clause":         true,
	"with_statement":        true,
	"assert_statement":      true,
	"boolean_operator":      true,
	"conditional_expression": true,
}

var jsDecisionKinds = map[string]bool{
	"if_statement":        true,
	"for_statement":       true,
	"for_in_statement":    true,
	"while_statement":     true,
	"do_statement":        true,
	"catch_clause":        true,
	"switch_case":         true,
	"ternary_expression":  true,
	"binary_expression":   true, // narrowed to && / || by countBooleanBinary
}

// countNodeKinds walks the subtree rooted at node and counts how many
// nodes have a kind present (and true) in kinds.
func countNodeKinds(node *sitter.Node, kinds map[string]bool) int {
	if node == nil {
		return 0
	}
	count := 0
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if kinds[n.Kind()] {
			count++
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return count
}

// countBooleanBinary counts JS/TS binary_expression nodes whose operator
// is && or ||, since binary_expression also covers arithmetic/comparison.
func countBooleanBinary(node *sitter.Node, code []byte) int {
	if node == nil {
		return 0
	}
	count := 0
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "binary_expression" {
			op := n.ChildByFieldName("operator")
			if op != nil {
				text := nodeText(op, code)
				if text == "&&" || text == "||" {
					count++
				}
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return count
}

func pythonComplexity(body *sitter.Node) int {
	return 1 + countNodeKinds(body, pythonDecisionKinds)
}

func jsComplexity(body *sitter.Node, code []byte) int {
	kinds := map[string]bool{}
	for k, v := range jsDecisionKinds {
		if k != "binary_expression" {
			kinds[k] = v
		}
	}
	return 1 + countNodeKinds(body, kinds) + countBooleanBinary(body, code)
}

// chainDepth measures how many `.attr` / `(...)` links compose one
// expression, walking through call and attribute/member nodes. Used to
// stamp Function.maxChainDepth and for the Message-Chain detector.
func chainDepth(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	switch node.Kind() {
	case "call", "call_expression":
		return 1 + chainDepth(node.ChildByFieldName("function"))
	case "attribute", "member_expression":
		obj := node.ChildByFieldName("object")
		if obj == nil {
			obj = node.ChildByFieldName("value")
		}
		return 1 + chainDepth(obj)
	default:
		return 0
	}
}

// maxChainDepth scans every call expression in body and returns the
// deepest chain found.
func maxChainDepth(body *sitter.Node, callKind string) int {
	if body == nil {
		return 0
	}
	best := 0
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == callKind {
			if d := chainDepth(n); d > best {
				best = d
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
	return best
}

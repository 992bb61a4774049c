// Package lowering implements the AST lowering visitor:
// it consumes a parser-specific concrete tree (the external SRC parser's
// output, named by class per node) and emits the normalized ast.Node tree.
package lowering

import "github.com/oxhq/srcjs/ast"

// ParserNode is the contract an external SRC parser's concrete tree must
// satisfy. The parser itself is out of
// scope for this repository; ParserNode is the seam a real parser binding
// implements.
type ParserNode interface {
	// Class is the parser's node class name (e.g. "IntegerNode",
	// "CallNode"); the visitor dispatches on it.
	Class() string

	// Field looks up a named child by the parser's own field name (e.g.
	// CallNode's "receiver", "name", "arguments", "block"). Returns nil if
	// absent — the visitor treats that as an optional child.
	Field(name string) any

	// StartOffset/EndOffset are byte offsets into the SRC buffer.
	StartOffset() int
	EndOffset() int

	// StartLine/StartColumn locate StartOffset for diagnostics.
	StartLine() int
	StartColumn() int
}

// asNode asserts v (as returned by ParserNode.Field) is a single
// ParserNode, or nil.
func asNode(v any) ParserNode {
	if v == nil {
		return nil
	}
	n, _ := v.(ParserNode)
	return n
}

// asNodes asserts v is a []ParserNode, or nil.
func asNodes(v any) []ParserNode {
	if v == nil {
		return nil
	}
	ns, _ := v.([]ParserNode)
	return ns
}

// asString asserts v is a string.
func asString(v any) string {
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// asBool asserts v is a bool.
func asBool(v any) bool {
	if v == nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

// asInt asserts v is an int.
func asInt(v any) int {
	if v == nil {
		return 0
	}
	i, _ := v.(int)
	return i
}

// LoweringError reports an unknown parser node class encountered during
// lowering, raised here rather than in the converter when the problem
// is a missing visitor.
type LoweringError struct {
	Class  string
	Offset int
}

func (e *LoweringError) Error() string {
	return "lowering: no visitor for node class " + e.Class
}

// locationOf builds the common ast.Location fields every node gets.
func locationOf(n ParserNode) *ast.Location {
	if n == nil {
		return nil
	}
	return &ast.Location{
		StartOffset: n.StartOffset(),
		EndOffset:   n.EndOffset(),
		Line:        n.StartLine(),
		Column:      n.StartColumn(),
	}
}

package lowering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/srcjs/ast"
)

// stubNode implements ParserNode for tests: a class name, named fields,
// and byte offsets.
type stubNode struct {
	class  string
	fields map[string]any
	start  int
	end    int
}

func (s *stubNode) Class() string   { return s.class }
func (s *stubNode) StartOffset() int { return s.start }
func (s *stubNode) EndOffset() int   { return s.end }
func (s *stubNode) StartLine() int   { return 1 }
func (s *stubNode) StartColumn() int { return s.start }

func (s *stubNode) Field(name string) any {
	if s.fields == nil {
		return nil
	}
	return s.fields[name]
}

func node(class string, fields map[string]any) ParserNode {
	return &stubNode{class: class, fields: fields}
}

func nodes(ns ...ParserNode) []ParserNode { return ns }

func lower(t *testing.T, n ParserNode) *ast.Node {
	t.Helper()
	out, err := Visitor{}.Lower(n)
	require.NoError(t, err)
	return out
}

func TestLeafNodes(t *testing.T) {
	assert.Equal(t, ast.KindNil, lower(t, node("NilNode", nil)).Kind)
	assert.Equal(t, ast.KindTrue, lower(t, node("TrueNode", nil)).Kind)
	assert.Equal(t, ast.KindSelf, lower(t, node("SelfNode", nil)).Kind)

	intNode := lower(t, node("IntegerNode", map[string]any{"value": "42"}))
	assert.Equal(t, ast.KindInt, intNode.Kind)
	assert.Equal(t, "42", intNode.ChildString(0))
}

func TestUnknownClassIsError(t *testing.T) {
	_, err := Visitor{}.Lower(node("MysteryNode", nil))
	require.Error(t, err)
	var le *LoweringError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "MysteryNode", le.Class)
}

func TestLocalVariableWrite(t *testing.T) {
	n := node("LocalVariableWriteNode", map[string]any{
		"name":  "x",
		"value": node("IntegerNode", map[string]any{"value": "1"}),
	})
	out := lower(t, n)
	assert.Equal(t, ast.KindLVAsgn, out.Kind)
	assert.Equal(t, "x", out.ChildString(0))
	assert.Equal(t, ast.KindInt, out.ChildNode(1).Kind)
}

func TestCallNodeProducesSend(t *testing.T) {
	n := node("CallNode", map[string]any{
		"receiver":  node("LocalVariableReadNode", map[string]any{"name": "obj"}),
		"name":      "frob",
		"arguments": nodes(node("IntegerNode", map[string]any{"value": "1"})),
	})
	out := lower(t, n)
	assert.Equal(t, ast.KindSend, out.Kind)
	assert.Equal(t, "frob", out.Method())
	require.NotNil(t, out.Recv())
	assert.Len(t, out.Args(), 1)
}

func TestSafeNavigationProducesCSend(t *testing.T) {
	n := node("CallNode", map[string]any{
		"receiver":        node("LocalVariableReadNode", map[string]any{"name": "obj"}),
		"name":            "frob",
		"safe_navigation": true,
	})
	assert.Equal(t, ast.KindCSend, lower(t, n).Kind)
}

func TestReceiverlessCallHasNilReceiver(t *testing.T) {
	out := lower(t, node("CallNode", map[string]any{"name": "puts"}))
	assert.Nil(t, out.Recv())
}

func TestBlockNodeWrapsCall(t *testing.T) {
	n := node("BlockNode", map[string]any{
		"call": node("CallNode", map[string]any{
			"receiver": node("LocalVariableReadNode", map[string]any{"name": "xs"}),
			"name":     "map",
		}),
		"parameters": nodes(node("RequiredParameterNode", map[string]any{"name": "x"})),
		"body":       node("LocalVariableReadNode", map[string]any{"name": "x"}),
	})
	out := lower(t, n)
	assert.Equal(t, ast.KindBlock, out.Kind)
	assert.Equal(t, ast.KindSend, out.ChildNode(0).Kind)
	require.Len(t, out.ChildNodes(1), 1)
}

func TestNumberedParametersProduceNumblock(t *testing.T) {
	n := node("BlockNode", map[string]any{
		"call": node("CallNode", map[string]any{"name": "map"}),
		"numbered_parameters": node("NumberedParametersNode", map[string]any{"maximum": 2}),
		"body":                node("LocalVariableReadNode", map[string]any{"name": "_1"}),
	})
	out := lower(t, n)
	assert.Equal(t, ast.KindNumBlock, out.Kind)
	count, ok := out.Child(1).(int)
	require.True(t, ok)
	assert.Equal(t, 2, count)
}

func TestRangeNodes(t *testing.T) {
	incl := node("RangeNode", map[string]any{
		"left":  node("IntegerNode", map[string]any{"value": "0"}),
		"right": node("IntegerNode", map[string]any{"value": "3"}),
	})
	assert.Equal(t, ast.KindIRange, lower(t, incl).Kind)

	excl := node("RangeNode", map[string]any{
		"left":        node("IntegerNode", map[string]any{"value": "0"}),
		"right":       node("IntegerNode", map[string]any{"value": "3"}),
		"exclude_end": true,
	})
	assert.Equal(t, ast.KindERange, lower(t, excl).Kind)
}

func TestEndlessDefWrapsBodyInAutoreturn(t *testing.T) {
	n := node("DefNode", map[string]any{
		"name":       "sq",
		"parameters": nodes(node("RequiredParameterNode", map[string]any{"name": "x"})),
		"body":       node("LocalVariableReadNode", map[string]any{"name": "x"}),
		"endless":    true,
		"has_parens": true,
	})
	out := lower(t, n)
	assert.Equal(t, ast.KindDef, out.Kind)
	body := out.ChildNode(2)
	require.NotNil(t, body)
	assert.Equal(t, ast.KindAutoReturn, body.Kind)
	require.NotNil(t, out.Loc.Def)
	assert.True(t, out.Loc.Def.Endless)
}

func TestDefWithReceiverIsDefS(t *testing.T) {
	n := node("DefNode", map[string]any{
		"receiver": node("SelfNode", nil),
		"name":     "build",
		"body":     node("NilNode", nil),
	})
	out := lower(t, n)
	assert.Equal(t, ast.KindDefS, out.Kind)
	assert.Equal(t, "build", out.ChildString(1))
}

func TestBeginWithRescueAndEnsure(t *testing.T) {
	n := node("BeginNode", map[string]any{
		"statements": node("CallNode", map[string]any{"name": "risky"}),
		"rescue_clauses": nodes(node("RescueNode", map[string]any{
			"exceptions": nodes(node("ConstantReadNode", map[string]any{"name": "IOError"})),
			"statements": node("CallNode", map[string]any{"name": "recover"}),
		})),
		"ensure_clause": node("CallNode", map[string]any{"name": "cleanup"}),
	})
	out := lower(t, n)
	require.Equal(t, ast.KindKwBegin, out.Kind)
	ensure := out.ChildNode(0)
	require.Equal(t, ast.KindEnsure, ensure.Kind)
	rescue := ensure.ChildNode(0)
	require.Equal(t, ast.KindRescue, rescue.Kind)
	resbody := rescue.ChildNode(1)
	require.Equal(t, ast.KindResbody, resbody.Kind)
	assert.Len(t, resbody.ChildNodes(0), 1)
}

func TestInterpolatedStringAlternatesParts(t *testing.T) {
	n := node("InterpolatedStringNode", map[string]any{
		"parts": nodes(
			node("StringNode", map[string]any{"unescaped": "a"}),
			node("LocalVariableReadNode", map[string]any{"name": "x"}),
			node("StringNode", map[string]any{"unescaped": "b"}),
		),
	})
	out := lower(t, n)
	require.Equal(t, ast.KindDstr, out.Kind)
	require.Len(t, out.Children, 3)
	assert.Equal(t, ast.KindStr, out.ChildNode(0).Kind)
	assert.Equal(t, ast.KindLVar, out.ChildNode(1).Kind)
}

func TestHeredocSplitsOnNewlines(t *testing.T) {
	n := node("InterpolatedStringNode", map[string]any{
		"heredoc": true,
		"parts": nodes(
			node("StringNode", map[string]any{"unescaped": "one\ntwo\n"}),
		),
	})
	out := lower(t, n)
	require.Len(t, out.Children, 2)
	assert.Equal(t, "one\n", out.ChildNode(0).ChildString(0))
	assert.Equal(t, "two\n", out.ChildNode(1).ChildString(0))
}

func TestInterpolatedSymbolCollapsesSingleString(t *testing.T) {
	n := node("InterpolatedSymbolNode", map[string]any{
		"parts": nodes(node("StringNode", map[string]any{"unescaped": "key"})),
	})
	out := lower(t, n)
	assert.Equal(t, ast.KindSym, out.Kind)
	assert.Equal(t, "key", out.ChildString(0))
}

func TestUnlessLowersToNegatedIf(t *testing.T) {
	n := node("UnlessNode", map[string]any{
		"predicate":  node("LocalVariableReadNode", map[string]any{"name": "done"}),
		"statements": node("CallNode", map[string]any{"name": "work"}),
	})
	out := lower(t, n)
	require.Equal(t, ast.KindIf, out.Kind)
	assert.Equal(t, ast.KindNot, out.ChildNode(0).Kind)
}

func TestBeginModifierLoopIsPostTest(t *testing.T) {
	n := node("WhileNode", map[string]any{
		"predicate":      node("LocalVariableReadNode", map[string]any{"name": "more"}),
		"statements":     node("CallNode", map[string]any{"name": "step"}),
		"begin_modifier": true,
	})
	assert.Equal(t, ast.KindWhilePost, lower(t, n).Kind)
}

func TestConstantPath(t *testing.T) {
	n := node("ConstantPathNode", map[string]any{
		"parent": node("ConstantReadNode", map[string]any{"name": "Outer"}),
		"name":   "Inner",
	})
	out := lower(t, n)
	assert.Equal(t, "Outer::Inner", ast.ConstName(out))
}

func TestMultiWrite(t *testing.T) {
	n := node("MultiWriteNode", map[string]any{
		"lefts": nodes(
			node("LocalVariableWriteNode", map[string]any{"name": "a"}),
			node("LocalVariableWriteNode", map[string]any{"name": "b"}),
		),
		"value": node("ArrayNode", map[string]any{
			"elements": nodes(
				node("IntegerNode", map[string]any{"value": "1"}),
				node("IntegerNode", map[string]any{"value": "2"}),
			),
		}),
	})
	out := lower(t, n)
	require.Equal(t, ast.KindMAsgn, out.Kind)
	assert.Equal(t, ast.KindMLHS, out.ChildNode(0).Kind)
}

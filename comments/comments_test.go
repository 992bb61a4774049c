package comments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/srcjs/ast"
)

func at(kind ast.Kind, start, end int, children ...any) *ast.Node {
	loc := &ast.Location{StartOffset: start, EndOffset: end, Line: 1}
	return ast.New(kind, loc, children...)
}

func TestAssociateAttachesToFollowingNode(t *testing.T) {
	first := at(ast.KindLVAsgn, 10, 20, "a")
	second := at(ast.KindLVAsgn, 30, 40, "b")
	root := ast.Begin(nil, first, second)

	m := Associate(root, []Comment{
		{Text: "about a", StartOffset: 0, EndOffset: 9},
		{Text: "about b", StartOffset: 21, EndOffset: 29},
	})

	require.Len(t, m.For(first), 1)
	assert.Equal(t, "about a", m.For(first)[0].Text)
	require.Len(t, m.For(second), 1)
	assert.Equal(t, "about b", m.For(second)[0].Text)
}

func TestAssociateManyCommentsOneNode(t *testing.T) {
	node := at(ast.KindLVAsgn, 40, 50, "x")
	root := ast.Begin(nil, node)

	m := Associate(root, []Comment{
		{Text: "one", StartOffset: 0, EndOffset: 10},
		{Text: "two", StartOffset: 11, EndOffset: 20},
	})

	got := m.For(node)
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Text)
	assert.Equal(t, "two", got[1].Text)
}

func TestAssociateSkipsBeginWrappers(t *testing.T) {
	inner := at(ast.KindInt, 5, 6, "1")
	wrapped := ast.Begin(&ast.Location{StartOffset: 5, EndOffset: 6}, inner)
	root := ast.Begin(nil, wrapped)

	m := Associate(root, []Comment{{Text: "c", StartOffset: 0, EndOffset: 4}})
	assert.Len(t, m.For(inner), 1)
	assert.Empty(t, m.For(wrapped))
}

func TestAssociateOffsetZeroNodeIncluded(t *testing.T) {
	// Per the resolved open question, nodes at offset 0 participate.
	node := at(ast.KindLVAsgn, 0, 5, "x")
	root := ast.Begin(nil, node)

	m := Associate(root, []Comment{{Text: "c", StartOffset: 0, EndOffset: 0}})
	assert.Len(t, m.For(node), 1)
}

func TestTrailingCommentUnattached(t *testing.T) {
	node := at(ast.KindInt, 0, 2, "1")
	root := ast.Begin(nil, node)

	m := Associate(root, []Comment{{Text: "after everything", StartOffset: 10, EndOffset: 20}})
	assert.Empty(t, m.For(node))
}

func TestTakeConsumesOnce(t *testing.T) {
	node := at(ast.KindInt, 10, 12, "1")
	root := ast.Begin(nil, node)
	m := Associate(root, []Comment{{Text: "c", StartOffset: 0, EndOffset: 5}})

	require.Len(t, m.Take(node), 1)
	assert.Empty(t, m.Take(node))
}

func TestAssociateIdempotentForSameTree(t *testing.T) {
	node := at(ast.KindInt, 10, 12, "1")
	root := ast.Begin(nil, node)
	cs := []Comment{{Text: "c", StartOffset: 0, EndOffset: 5}}

	first := Associate(root, cs)
	second := Associate(root, cs)
	assert.Equal(t, first.For(node), second.For(node))
}

func TestDepthBreaksTiesOutermostFirst(t *testing.T) {
	inner := at(ast.KindInt, 10, 12, "1")
	outer := at(ast.KindLVAsgn, 10, 12, "x", inner)
	root := ast.Begin(nil, outer)

	m := Associate(root, []Comment{{Text: "c", StartOffset: 0, EndOffset: 5}})
	assert.Len(t, m.For(outer), 1)
	assert.Empty(t, m.For(inner))
}

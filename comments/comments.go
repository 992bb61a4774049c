// Package comments implements the association pass: it
// attaches each SRC comment to the first node whose span begins after the
// comment ends.
package comments

import (
	"sort"

	"github.com/oxhq/srcjs/ast"
)

// Comment is a single SRC comment: its text and source byte range.
type Comment struct {
	Text        string
	StartOffset int
	EndOffset   int
}

// Map associates a node identity (ast.Node.ID) with its pending comments, in
// source order. A node may carry many comments (a preceding block of
// line comments); each comment is attached to at most one node.
type Map struct {
	byNode map[uint64][]Comment
}

// NewMap returns an empty comment map.
func NewMap() *Map {
	return &Map{byNode: make(map[uint64][]Comment)}
}

// For returns the comments attached to n, or nil.
func (m *Map) For(n *ast.Node) []Comment {
	if m == nil || n == nil {
		return nil
	}
	return m.byNode[n.ID()]
}

// Take returns and removes n's comments, so a single emission consumes them
// once: a comment is attached exactly once.
func (m *Map) Take(n *ast.Node) []Comment {
	if m == nil || n == nil {
		return nil
	}
	cs := m.byNode[n.ID()]
	delete(m.byNode, n.ID())
	return cs
}

type posNode struct {
	node  *ast.Node
	start int
	depth int
}

// Associate walks root collecting every descendant's start offset (skipping
// begin nodes, which are transparent), sorts them by
// (startOffset, depth) ascending, and attaches each comment to the first
// node whose start offset is >= comment.EndOffset.
//
// Nodes at offset 0 participate like any other; a comment before the
// first byte attaches to the first node.
func Associate(root *ast.Node, cs []Comment) *Map {
	m := NewMap()
	if root == nil || len(cs) == 0 {
		return m
	}

	var nodes []posNode
	var walk func(n *ast.Node, depth int)
	walk = func(n *ast.Node, depth int) {
		if n == nil {
			return
		}
		if n.Kind != ast.KindBegin {
			if n.Loc != nil {
				nodes = append(nodes, posNode{node: n, start: n.Loc.StartOffset, depth: depth})
			}
		}
		for _, c := range n.Children {
			if child, ok := c.(*ast.Node); ok {
				walk(child, depth+1)
			} else if list, ok := c.([]*ast.Node); ok {
				for _, child := range list {
					walk(child, depth+1)
				}
			}
		}
	}
	walk(root, 0)

	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].start != nodes[j].start {
			return nodes[i].start < nodes[j].start
		}
		return nodes[i].depth < nodes[j].depth
	})

	sortedComments := make([]Comment, len(cs))
	copy(sortedComments, cs)
	sort.SliceStable(sortedComments, func(i, j int) bool {
		return sortedComments[i].StartOffset < sortedComments[j].StartOffset
	})

	for _, c := range sortedComments {
		idx := sort.Search(len(nodes), func(i int) bool {
			return nodes[i].start >= c.EndOffset
		})
		if idx >= len(nodes) {
			continue
		}
		target := nodes[idx].node
		m.byNode[target.ID()] = append(m.byNode[target.ID()], c)
	}
	return m
}

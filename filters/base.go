package filters

import "github.com/oxhq/srcjs/ast"

// Base gives a concrete Filter its default "recurse into every child,
// change nothing" behavior. A concrete filter embeds Base, implements
// Process to switch on the kinds it cares about, and calls
// Base.Recurse(node, pc, self) for everything else — self must be the
// concrete filter so recursion re-enters its Process, not Base's.
type Base struct{}

// Reorder is the default no-op hook; most filters don't need reordering.
func (Base) Reorder(fs []Filter) []Filter { return fs }

// Recurse rebuilds node with every *ast.Node / []*ast.Node child replaced
// by self.Process(child). If no child actually changed, the original node
// is returned unchanged (by reference) so unaffected subtrees are shared
// across the pipeline.
func (Base) Recurse(node *ast.Node, pc *ProcessContext, self Filter) *ast.Node {
	if node == nil {
		return nil
	}
	changed := false
	newChildren := make([]any, len(node.Children))
	for i, c := range node.Children {
		switch v := c.(type) {
		case *ast.Node:
			rewritten := self.Process(v, pc)
			newChildren[i] = anyNode(rewritten)
			if rewritten != v {
				changed = true
			}
		case []*ast.Node:
			newList := make([]*ast.Node, len(v))
			listChanged := false
			for j, item := range v {
				rewritten := self.Process(item, pc)
				newList[j] = rewritten
				if rewritten != item {
					listChanged = true
				}
			}
			newChildren[i] = newList
			if listChanged {
				changed = true
			}
		default:
			newChildren[i] = c
		}
	}
	if !changed {
		return node
	}
	return node.Updated(nil, newChildren)
}

func anyNode(n *ast.Node) any {
	if n == nil {
		return nil
	}
	return n
}

// Identity is a trivial Filter used in tests and as a pipeline placeholder:
// it recurses without rewriting anything.
type Identity struct{ Base }

func (Identity) Name() string { return "identity" }
func (f Identity) Process(node *ast.Node, pc *ProcessContext) *ast.Node {
	return f.Base.Recurse(node, pc, f)
}

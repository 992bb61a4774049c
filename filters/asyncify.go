package filters

import "github.com/oxhq/srcjs/ast"

// Asyncify implements the "async...lowering" filter category: a `def`/`defs` whose name ends in `_async`, or
// whose body contains an `await` send, is rewritten to the `async` kind so
// the converter emits `async function`/`async method`. It is grounded on
// the same collect-then-rewrite shape as Component, scaled down to a
// single-pass predicate since no cross-method metadata is needed.
type Asyncify struct{ Base }

func (Asyncify) Name() string { return "asyncify" }

func (f Asyncify) Process(node *ast.Node, pc *ProcessContext) *ast.Node {
	if node == nil {
		return nil
	}
	recursed := f.Base.Recurse(node, pc, f)
	if recursed.Kind != ast.KindDef && recursed.Kind != ast.KindDefS {
		return recursed
	}
	// defs carries a leading receiver child: (recv, name, params, body)
	// versus def's (name, params, body).
	name := recursed.ChildString(0)
	body := recursed.ChildNode(2)
	if recursed.Kind == ast.KindDefS {
		name = recursed.ChildString(1)
		body = recursed.ChildNode(3)
	}
	if !hasSuffix(name, "_async") && !containsAwait(body) {
		return recursed
	}
	kind := ast.KindAsync
	if recursed.Kind == ast.KindDefS {
		kind = ast.KindAsyncS
	}
	return recursed.Updated(&kind, recursed.Children)
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func containsAwait(n *ast.Node) bool {
	if n == nil {
		return false
	}
	if n.Kind == ast.KindAwait {
		return true
	}
	// Don't cross into a nested def/class's own body: await there belongs
	// to that inner scope, not this one.
	if n.Kind == ast.KindDef || n.Kind == ast.KindDefS || n.Kind == ast.KindClass || n.Kind == ast.KindModule {
		return false
	}
	for _, c := range n.Children {
		if child, ok := c.(*ast.Node); ok && containsAwait(child) {
			return true
		}
		if list, ok := c.([]*ast.Node); ok {
			for _, item := range list {
				if containsAwait(item) {
					return true
				}
			}
		}
	}
	return false
}

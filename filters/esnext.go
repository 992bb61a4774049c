package filters

import "github.com/oxhq/srcjs/ast"

// ESNext implements ES-level lowering per the `eslevel` option: when
// the target level predates the feature, a nullish-handling node is
// downgraded to the `||`-based form a converter targeting that level
// would otherwise have to special-case everywhere. Keeping the downgrade
// in a filter instead of scattered through `convert` keeps the
// converter's nullish handler single-purpose.
type ESNext struct{ Base }

func (ESNext) Name() string { return "esnext" }

// nullishLevel is the ES version nullish coalescing (`??`) shipped in.
const nullishLevel = 2020

func (f ESNext) Process(node *ast.Node, pc *ProcessContext) *ast.Node {
	if node == nil {
		return nil
	}
	recursed := f.Base.Recurse(node, pc, f)
	if pc.Options.ESLevel >= nullishLevel {
		return recursed
	}
	switch recursed.Kind {
	case ast.KindNullish, ast.KindNullishOr:
		lhs := recursed.ChildNode(0)
		rhs := recursed.ChildNode(1)
		return ast.New(ast.KindOr, recursed.Loc, lhs, rhs)
	case ast.KindNullAsgn:
		target := recursed.ChildNode(0)
		value := recursed.ChildNode(1)
		return ast.New(ast.KindOrAsgn, recursed.Loc, target, value)
	}
	return recursed
}

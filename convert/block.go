package convert

import (
	"strconv"

	"github.com/oxhq/srcjs/ast"
)

// emitBlock compiles block(call, args, body) "Blocks":
// a `function` pseudo-call becomes a named function declaration, a
// range.step call with one block arg becomes a counted for, `lambda` /
// `proc` / `Proc.new` become the callable itself, and everything else
// attaches the block as a trailing arrow-callback argument to the call.
func (c *Converter) emitBlock(n *ast.Node) error {
	call := n.ChildNode(0)
	var params []*ast.Node
	var body *ast.Node

	if n.Kind == ast.KindNumBlock {
		count, _ := n.Child(1).(int)
		body = n.ChildNode(2)
		for i := 1; i <= count; i++ {
			params = append(params, ast.New(ast.KindArg, n.Loc, "_"+strconv.Itoa(i)))
		}
	} else {
		params = n.ChildNodes(1)
		body = n.ChildNode(2)
	}

	if call == nil {
		return c.unsupported(n, "block without a call subject")
	}

	recv := call.Recv()
	method := call.Method()

	// function f do |a| ... end  =>  function f(a) { ... }
	if recv == nil && method == "function" && len(call.Args()) >= 1 {
		nameArg := call.Args()[0]
		name := nameArg.ChildString(0)
		if nameArg.Kind == ast.KindSym || nameArg.Kind == ast.KindStr {
			c.buf.Emit("function " + name)
			return c.emitArrowBody(params, body, false)
		}
	}

	// lambda/proc/Proc.new with a block: the block IS the value.
	if (recv == nil && (method == "lambda" || method == "proc")) ||
		(method == "new" && recv != nil && recv.Kind == ast.KindConst && ast.ConstName(recv) == "Proc") {
		return c.emitArrow(params, body)
	}

	// (a..b).step(n) { |i| ... }  =>  counted for loop.
	if method == "step" && recv != nil &&
		(recv.Kind == ast.KindIRange || recv.Kind == ast.KindERange) && len(params) == 1 {
		return c.emitSteppedFor(recv, call.Args(), params[0], body)
	}

	// Default: trailing callback argument.
	if recv == nil {
		if prefix, ok := c.ns.IsSelfPrivate(method); ok {
			c.buf.Emit("this." + prefix)
		} else if c.ns.IsSelfMethod(method) {
			c.buf.Emit("this.")
		}
	} else {
		if err := c.emitReceiver(recv); err != nil {
			return err
		}
		if call.Kind == ast.KindCSend {
			c.buf.Emit("?.")
		} else {
			c.buf.Emit(".")
		}
	}
	c.buf.EmitLoc(jsMethodName(method), call.Loc, "")
	c.buf.Emit("(")
	for i, a := range call.Args() {
		if i > 0 {
			c.buf.Emit(", ")
		}
		if err := c.emitExpr(a, ctxExpr); err != nil {
			return err
		}
	}
	if len(call.Args()) > 0 {
		c.buf.Emit(", ")
	}
	if err := c.emitArrow(params, body); err != nil {
		return err
	}
	c.buf.Emit(")")
	return nil
}

// emitArrow renders `(params) => expr-or-block`. A body that is a single
// expression (not a statement-shaped node) stays in the concise form.
func (c *Converter) emitArrow(params []*ast.Node, body *ast.Node) error {
	if err := c.emitParamList(params); err != nil {
		return err
	}
	c.buf.Emit(" => ")
	body = ast.Unwrap(body)
	if body != nil && isExpressionShaped(body) {
		if body.Kind == ast.KindHash {
			// An object literal in concise position needs grouping.
			c.buf.Emit("(")
			if err := c.emitExpr(body, ctxExpr); err != nil {
				return err
			}
			c.buf.Emit(")")
			return nil
		}
		return c.emitExpr(body, ctxExpr)
	}
	c.buf.Emit("{")
	c.buf.NewLine()
	c.buf.Indent()
	c.pushScope(true)
	if err := c.emitStatementList(ast.Statements(body)); err != nil {
		return err
	}
	c.popScope()
	c.buf.Dedent()
	c.buf.Emit("}")
	return nil
}

// emitArrowBody is emitArrow's statement-bodied variant used by the named
// `function` form.
func (c *Converter) emitArrowBody(params []*ast.Node, body *ast.Node, arrow bool) error {
	if err := c.emitParamList(params); err != nil {
		return err
	}
	if arrow {
		c.buf.Emit(" => ")
	} else {
		c.buf.Emit(" ")
	}
	c.buf.Emit("{")
	c.buf.NewLine()
	c.buf.Indent()
	c.pushScope(true)
	if err := c.emitStatementList(ast.Statements(body)); err != nil {
		return err
	}
	c.popScope()
	c.buf.Dedent()
	c.buf.Emit("}")
	return nil
}

// isExpressionShaped reports whether a node renders as a single expression
// in expression context, so an arrow body can use the concise form.
func isExpressionShaped(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindBegin, ast.KindKwBegin, ast.KindWhile, ast.KindUntil,
		ast.KindWhilePost, ast.KindUntilPost, ast.KindFor, ast.KindForOf,
		ast.KindCase, ast.KindClass, ast.KindModule, ast.KindDef, ast.KindDefS,
		ast.KindReturn, ast.KindBreak, ast.KindNext, ast.KindIf,
		ast.KindLVAsgn, ast.KindIVAsgn, ast.KindCVAsgn, ast.KindGVAsgn,
		ast.KindMAsgn:
		return false
	}
	return true
}

// emitSteppedFor lowers `(a..b).step(n) { |i| ... }` into a counted for.
// When the step is a statically known integer its sign picks the
// direction and a `+=`/`-=` literal; otherwise the step is emitted as
// `+= expr`.
func (c *Converter) emitSteppedFor(rng *ast.Node, stepArgs []*ast.Node, v *ast.Node, body *ast.Node) error {
	lo := rng.ChildNode(0)
	hi := rng.ChildNode(1)
	name := v.ChildString(0)

	cmp := "<="
	if rng.Kind == ast.KindERange {
		cmp = "<"
	}

	var step *ast.Node
	if len(stepArgs) > 0 {
		step = stepArgs[0]
	}
	descending := false
	stepLit := ""
	if step != nil && step.Kind == ast.KindInt {
		stepLit = step.ChildString(0)
		if len(stepLit) > 0 && stepLit[0] == '-' {
			descending = true
			stepLit = stepLit[1:]
			if rng.Kind == ast.KindERange {
				cmp = ">"
			} else {
				cmp = ">="
			}
		}
	}

	c.buf.Emit("for (let " + name + " = ")
	if err := c.emitExpr(lo, ctxExpr); err != nil {
		return err
	}
	c.buf.Emit("; " + name + " " + cmp + " ")
	if err := c.emitExpr(hi, ctxExpr); err != nil {
		return err
	}
	c.buf.Emit("; " + name)
	switch {
	case step == nil:
		c.buf.Emit("++")
	case stepLit == "1" && !descending:
		c.buf.Emit("++")
	case stepLit == "1" && descending:
		c.buf.Emit("--")
	case stepLit != "":
		if descending {
			c.buf.Emit(" -= " + stepLit)
		} else {
			c.buf.Emit(" += " + stepLit)
		}
	default:
		c.buf.Emit(" += ")
		if err := c.emitExpr(step, ctxExpr); err != nil {
			return err
		}
	}
	c.buf.Emit(") {")
	c.buf.NewLine()
	c.buf.Indent()
	c.pushScope(false)
	if err := c.emitStatementList(ast.Statements(body)); err != nil {
		return err
	}
	c.popScope()
	c.buf.Dedent()
	c.buf.Emit("}")
	return nil
}

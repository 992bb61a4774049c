package convert

import (
	"github.com/oxhq/srcjs/ast"
)

// emitDef renders def/defs: a bare def
// outside a class in expression position becomes an arrow function; a
// statement-position def becomes a function declaration; inside a class
// frame it is a method. Async defs carry the `async ` prefix.
func (c *Converter) emitDef(n *ast.Node, static, async bool, ctx exprContext) error {
	var name string
	var params []*ast.Node
	var body *ast.Node

	if static {
		name = n.ChildString(1)
		params = n.ChildNodes(2)
		body = n.ChildNode(3)
	} else {
		name = n.ChildString(0)
		params = n.ChildNodes(1)
		body = n.ChildNode(2)
	}

	params, body = implicitBlockParam(params, body, n.GetLoc())

	inClass := len(c.classes) > 0
	switch {
	case !inClass && ctx == ctxExpr:
		if async {
			c.buf.Emit("async ")
		}
		return c.emitFunctionTail(params, body, true)
	case inClass:
		if static {
			c.buf.Emit("static ")
		}
		if async {
			c.buf.Emit("async ")
		}
		c.buf.EmitLoc(jsMethodName(name), n.Loc, name)
	default:
		if async {
			c.buf.Emit("async ")
		}
		c.buf.EmitLoc("function "+jsMethodName(name), n.Loc, name)
	}
	return c.emitFunctionTail(params, body, false)
}

// emitFunctionTail emits the parameter list, keyword-argument prolog, and
// body shared by every def form. arrow selects `(...) => {...}`.
func (c *Converter) emitFunctionTail(params []*ast.Node, body *ast.Node, arrow bool) error {
	if err := c.emitParamList(params); err != nil {
		return err
	}
	if arrow {
		c.buf.Emit(" =>")
	}
	c.buf.Emit(" {")
	c.buf.NewLine()
	c.buf.Indent()
	c.pushScope(true)
	if err := c.emitKeywordPrologue(params); err != nil {
		return err
	}
	if err := c.emitStatementList(ast.Statements(body)); err != nil {
		return err
	}
	c.popScope()
	c.buf.Dedent()
	c.buf.Emit("}")
	return nil
}

// implicitBlockParam appends the trailing optarg("_implicitBlockYield")
// when the body yields.
func implicitBlockParam(params []*ast.Node, body *ast.Node, loc *ast.Location) ([]*ast.Node, *ast.Node) {
	if !subtreeContains(body, ast.KindYield) {
		return params, body
	}
	for _, p := range params {
		if p.ChildString(0) == "_implicitBlockYield" {
			return params, body
		}
	}
	extra := ast.New(ast.KindOptArg, loc, "_implicitBlockYield", ast.New(ast.KindNil, loc))
	return append(append([]*ast.Node{}, params...), extra), body
}

// emitAutoReturn threads `return` through the tail position of the
// wrapped body: begin returns its last statement, if returns per branch,
// case defers to the IIFE lift; a plain expression returns directly.
func (c *Converter) emitAutoReturn(n *ast.Node) error {
	return c.emitTailReturn(n.ChildNode(0))
}

func (c *Converter) emitTailReturn(body *ast.Node) error {
	body = ast.Unwrap(body)
	if body == nil || body.IsEmptyBegin() {
		c.buf.Emit("return")
		return nil
	}
	switch body.Kind {
	case ast.KindBegin:
		stmts := ast.Statements(body)
		if err := c.emitStatementList(stmts[:len(stmts)-1]); err != nil {
			return err
		}
		return c.emitTailReturn(stmts[len(stmts)-1])
	case ast.KindIf:
		cond := body.ChildNode(0)
		c.buf.Emit("if (")
		if err := c.emitCondition(cond); err != nil {
			return err
		}
		c.buf.Emit(") {")
		c.buf.NewLine()
		c.buf.Indent()
		if err := c.emitTailReturn(body.ChildNode(1)); err != nil {
			return err
		}
		c.buf.Emit(";")
		c.buf.NewLine()
		c.buf.Dedent()
		c.buf.Emit("} else {")
		c.buf.NewLine()
		c.buf.Indent()
		if err := c.emitTailReturn(body.ChildNode(2)); err != nil {
			return err
		}
		c.buf.Emit(";")
		c.buf.NewLine()
		c.buf.Dedent()
		c.buf.Emit("}")
		return nil
	case ast.KindReturn:
		return c.emitExpr(body, ctxStatement)
	case ast.KindWhile, ast.KindUntil, ast.KindFor, ast.KindForOf, ast.KindClass, ast.KindModule:
		// Statement-shaped tails have no value to return.
		return c.emitExpr(body, ctxStatement)
	case ast.KindCase:
		c.buf.Emit("return ")
		return c.emitCase(body, ctxExpr)
	}
	c.buf.Emit("return ")
	return c.emitExpr(body, ctxExpr)
}

// emitParamList renders the parameter list. Keyword parameters are
// collected into a trailing destructured object; a restarg followed by
// keyword params drops the keywords from the list entirely because the
// prolog pops them off the rest array at run time.
func (c *Converter) emitParamList(params []*ast.Node) error {
	c.buf.Emit("(")
	positional, keyword, hasRest := splitParams(params)
	emitted := 0
	for _, p := range positional {
		if p.Kind == ast.KindBlockArg && hasRest {
			continue // bound via args.pop() in the prolog
		}
		if p.Kind == ast.KindShadowArg {
			continue // declared with let at the top of the body
		}
		if emitted > 0 {
			c.buf.Emit(", ")
		}
		emitted++
		if err := c.emitParam(p); err != nil {
			return err
		}
	}
	if len(keyword) > 0 && !hasRest {
		if emitted > 0 {
			c.buf.Emit(", ")
		}
		c.buf.Emit("{ ")
		for i, p := range keyword {
			if i > 0 {
				c.buf.Emit(", ")
			}
			if p.Kind == ast.KindKwRestArg {
				c.buf.Emit("..." + p.ChildString(0))
				continue
			}
			c.buf.Emit(p.ChildString(0))
			if p.Kind == ast.KindKwOptArg {
				c.buf.Emit(" = ")
				if err := c.emitExpr(p.ChildNode(1), ctxExpr); err != nil {
					return err
				}
			}
		}
		c.buf.Emit(" } = {}")
	}
	c.buf.Emit(")")
	return nil
}

func splitParams(params []*ast.Node) (positional, keyword []*ast.Node, hasRest bool) {
	for _, p := range params {
		switch p.Kind {
		case ast.KindKwArg, ast.KindKwOptArg, ast.KindKwRestArg:
			keyword = append(keyword, p)
		case ast.KindRestArg:
			hasRest = true
			positional = append(positional, p)
		default:
			positional = append(positional, p)
		}
	}
	return positional, keyword, hasRest
}

func (c *Converter) emitParam(p *ast.Node) error {
	switch p.Kind {
	case ast.KindOptArg:
		c.buf.Emit(p.ChildString(0))
		c.buf.Emit(" = ")
		return c.emitExpr(p.ChildNode(1), ctxExpr)
	case ast.KindRestArg:
		c.buf.Emit("..." + p.ChildString(0))
	case ast.KindForwardArgs:
		c.buf.Emit("...args$")
	default:
		c.buf.Emit(p.ChildString(0))
	}
	return nil
}

// emitKeywordPrologue synthesizes the run-time prolog for the parameter
// shapes JS cannot express directly:
//   - restarg + keywords: pop the trailing options object off the rest
//     array (when it is a plain object), then bind each keyword from it,
//     optional ones through `??`.
//   - blockarg after restarg: bind it with args.pop().
//   - shadowargs: plain `let` declarations.
func (c *Converter) emitKeywordPrologue(params []*ast.Node) error {
	positional, keyword, hasRest := splitParams(params)

	restName := ""
	blockName := ""
	for _, p := range positional {
		switch p.Kind {
		case ast.KindRestArg:
			restName = p.ChildString(0)
		case ast.KindBlockArg:
			if hasRest {
				blockName = p.ChildString(0)
			}
		case ast.KindShadowArg:
			c.buf.Emit("let " + p.ChildString(0) + ";")
			c.buf.NewLine()
		}
	}

	if blockName != "" {
		c.buf.Emit("let " + blockName + " = " + restName + ".pop();")
		c.buf.NewLine()
		c.declareVar(blockName)
	}

	if hasRest && len(keyword) > 0 {
		kwObj := c.tmpVar("kw")
		c.buf.Emit("let " + kwObj + " = " + restName + ".length > 0 && " +
			restName + "[" + restName + ".length - 1].constructor === Object ? " +
			restName + ".pop() : {};")
		c.buf.NewLine()
		c.declareVar(kwObj)
		for _, p := range keyword {
			name := p.ChildString(0)
			switch p.Kind {
			case ast.KindKwRestArg:
				c.buf.Emit("let " + name + " = " + kwObj + ";")
			case ast.KindKwOptArg:
				c.buf.Emit("let " + name + " = " + kwObj + "." + name + " ?? ")
				if err := c.emitExpr(p.ChildNode(1), ctxExpr); err != nil {
					return err
				}
				c.buf.Emit(";")
			default:
				c.buf.Emit("let " + name + " = " + kwObj + "." + name + ";")
			}
			c.buf.NewLine()
			c.declareVar(name)
		}
	}
	return nil
}

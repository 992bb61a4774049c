package lowering

import (
	"strings"

	"github.com/oxhq/srcjs/ast"
)

// Visitor lowers a Prism-shaped concrete tree (names Prism's
// `initPrism` as the one-time parser initialization) into the normalized
// ast.Node tree. One Visitor is stateless and safe to reuse across
// conversions; Lower is the entry point.
type Visitor struct{}

// Lower dispatches on root's Class() and returns the normalized root, or a
// *LoweringError if no visitor handles that class (an unknown node class is a hard error).
func (v Visitor) Lower(root ParserNode) (*ast.Node, error) {
	return v.lower(root)
}

func (v Visitor) lower(n ParserNode) (*ast.Node, error) {
	if n == nil {
		return nil, nil
	}
	handler, ok := handlers[n.Class()]
	if !ok {
		return nil, &LoweringError{Class: n.Class(), Offset: n.StartOffset()}
	}
	return handler(v, n)
}

// lowerMany lowers a []ParserNode into a []*ast.Node, stopping at the first
// error.
func (v Visitor) lowerMany(ns []ParserNode) ([]*ast.Node, error) {
	out := make([]*ast.Node, 0, len(ns))
	for _, n := range ns {
		node, err := v.lower(n)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

type handlerFunc func(Visitor, ParserNode) (*ast.Node, error)

var handlers map[string]handlerFunc

func init() {
	handlers = map[string]handlerFunc{
		// Leaves
		"IntegerNode":    literal(ast.KindInt),
		"FloatNode":      literal(ast.KindFloat),
		"NilNode":        leaf(ast.KindNil),
		"TrueNode":       leaf(ast.KindTrue),
		"FalseNode":      leaf(ast.KindFalse),
		"SelfNode":       leaf(ast.KindSelf),
		"SourceFileNode": leaf(ast.KindFile),

		"StringNode": visitString,
		"SymbolNode": visitSymbol,

		"InterpolatedStringNode": visitInterpolatedString,
		"InterpolatedSymbolNode": visitInterpolatedSymbol,
		"InterpolatedXStringNode": visitInterpolatedXString,
		"XStringNode":             visitXString,

		"RegularExpressionNode":            visitRegexp,
		"InterpolatedRegularExpressionNode": visitInterpolatedRegexp,

		"ArrayNode": visitArray,
		"HashNode":  visitHash,
		"AssocNode": visitAssoc,

		"LocalVariableReadNode":      readWrite(ast.KindLVar, "name"),
		"LocalVariableWriteNode":     assign(ast.KindLVAsgn, "name", "value"),
		"LocalVariableOperatorWriteNode": visitOpAsgn,
		"InstanceVariableReadNode":   readWrite(ast.KindIVar, "name"),
		"InstanceVariableWriteNode":  assign(ast.KindIVAsgn, "name", "value"),
		"ClassVariableReadNode":      readWrite(ast.KindCVar, "name"),
		"ClassVariableWriteNode":     assign(ast.KindCVAsgn, "name", "value"),
		"GlobalVariableReadNode":     readWrite(ast.KindGVar, "name"),
		"GlobalVariableWriteNode":    assign(ast.KindGVAsgn, "name", "value"),

		"ConstantReadNode":     visitConstantRead,
		"ConstantPathNode":     visitConstantPath,
		"ConstantWriteNode":    visitConstantWrite,

		"CallNode":  visitCall,
		"BlockNode": visitBlockHost,

		"RequiredParameterNode":      param(ast.KindArg),
		"OptionalParameterNode":      paramDefault(ast.KindOptArg),
		"RestParameterNode":         param(ast.KindRestArg),
		"KeywordParameterNode":      param(ast.KindKwArg),
		"KeywordOptionalParameterNode": paramDefault(ast.KindKwOptArg),
		"KeywordRestParameterNode":  param(ast.KindKwRestArg),
		"BlockParameterNode":        param(ast.KindBlockArg),
		"BlockLocalVariableNode":    param(ast.KindShadowArg),
		"ForwardingParameterNode":   func(v Visitor, n ParserNode) (*ast.Node, error) {
			return ast.New(ast.KindForwardArgs, locationOf(n)), nil
		},

		"MultiWriteNode":  visitMultiWrite,
		"MultiTargetNode": visitMultiTarget,

		"BeginNode": visitBegin,
		"RescueNode": visitResbody,

		"RangeNode": visitRange,

		"DefNode": visitDef,

		"IfNode":     visitIf,
		"UnlessNode": visitUnless,

		"CaseNode":      visitCase,
		"WhenNode":      visitWhen,
		"CaseMatchNode": visitCaseMatch,
		"InNode":        visitInPattern,

		"WhileNode": loopNode(ast.KindWhile),
		"UntilNode": loopNode(ast.KindUntil),
		"ForNode":   visitFor,

		"BreakNode":  controlFlow(ast.KindBreak),
		"NextNode":   controlFlow(ast.KindNext),
		"ReturnNode": controlFlow(ast.KindReturn),
		"RedoNode": func(v Visitor, n ParserNode) (*ast.Node, error) {
			return ast.New(ast.KindRedo, locationOf(n)), nil
		},
		"RetryNode": func(v Visitor, n ParserNode) (*ast.Node, error) {
			return ast.New(ast.KindRetry, locationOf(n)), nil
		},

		"AndNode": binaryLogic(ast.KindAnd),
		"OrNode":  binaryLogic(ast.KindOr),

		"ClassNode":  visitClass,
		"ModuleNode": visitModule,

		"SuperNode": visitSuper,
		"ForwardingSuperNode": func(v Visitor, n ParserNode) (*ast.Node, error) {
			return ast.New(ast.KindZSuper, locationOf(n)), nil
		},
		"YieldNode": visitYield,

		"SplatNode":         unary(ast.KindSplat, "expression"),
		"AssocSplatNode":    unary(ast.KindKwSplat, "value"),
		"BlockArgumentNode": unary(ast.KindBlockPass, "expression"),

		"ArrayPatternNode": visitArrayPattern,
		"HashPatternNode":  visitHashPattern,
	}
}

func leaf(kind ast.Kind) handlerFunc {
	return func(v Visitor, n ParserNode) (*ast.Node, error) {
		return ast.New(kind, locationOf(n)), nil
	}
}

// literal is leaf plus the node's source spelling, carried as the single
// child so the converter re-emits numeric literals verbatim.
func literal(kind ast.Kind) handlerFunc {
	return func(v Visitor, n ParserNode) (*ast.Node, error) {
		return ast.New(kind, locationOf(n), asString(n.Field("value"))), nil
	}
}

func readWrite(kind ast.Kind, nameField string) handlerFunc {
	return func(v Visitor, n ParserNode) (*ast.Node, error) {
		return ast.New(kind, locationOf(n), asString(n.Field(nameField))), nil
	}
}

func assign(kind ast.Kind, nameField, valueField string) handlerFunc {
	return func(v Visitor, n ParserNode) (*ast.Node, error) {
		value, err := v.lower(asNode(n.Field(valueField)))
		if err != nil {
			return nil, err
		}
		return ast.New(kind, locationOf(n), asString(n.Field(nameField)), asNodeOrNil(value)), nil
	}
}

func unary(kind ast.Kind, field string) handlerFunc {
	return func(v Visitor, n ParserNode) (*ast.Node, error) {
		inner, err := v.lower(asNode(n.Field(field)))
		if err != nil {
			return nil, err
		}
		return ast.New(kind, locationOf(n), asNodeOrNil(inner)), nil
	}
}

func param(kind ast.Kind) handlerFunc {
	return func(v Visitor, n ParserNode) (*ast.Node, error) {
		return ast.New(kind, locationOf(n), asString(n.Field("name"))), nil
	}
}

func paramDefault(kind ast.Kind) handlerFunc {
	return func(v Visitor, n ParserNode) (*ast.Node, error) {
		def, err := v.lower(asNode(n.Field("value")))
		if err != nil {
			return nil, err
		}
		return ast.New(kind, locationOf(n), asString(n.Field("name")), asNodeOrNil(def)), nil
	}
}

func controlFlow(kind ast.Kind) handlerFunc {
	return func(v Visitor, n ParserNode) (*ast.Node, error) {
		arg, err := v.lower(asNode(n.Field("arguments")))
		if err != nil {
			return nil, err
		}
		if arg == nil {
			return ast.New(kind, locationOf(n)), nil
		}
		return ast.New(kind, locationOf(n), arg), nil
	}
}

func binaryLogic(kind ast.Kind) handlerFunc {
	return func(v Visitor, n ParserNode) (*ast.Node, error) {
		l, err := v.lower(asNode(n.Field("left")))
		if err != nil {
			return nil, err
		}
		r, err := v.lower(asNode(n.Field("right")))
		if err != nil {
			return nil, err
		}
		return ast.New(kind, locationOf(n), l, r), nil
	}
}

func loopNode(kind ast.Kind) handlerFunc {
	return func(v Visitor, n ParserNode) (*ast.Node, error) {
		cond, err := v.lower(asNode(n.Field("predicate")))
		if err != nil {
			return nil, err
		}
		body, err := v.lower(asNode(n.Field("statements")))
		if err != nil {
			return nil, err
		}
		resultKind := kind
		// begin...end while/until is a post-test loop.
		if asBool(n.Field("begin_modifier")) {
			if kind == ast.KindWhile {
				resultKind = ast.KindWhilePost
			} else {
				resultKind = ast.KindUntilPost
			}
		}
		return ast.New(resultKind, locationOf(n), cond, asNodeOrNil(body)), nil
	}
}

func asNodeOrNil(n *ast.Node) any {
	if n == nil {
		return nil
	}
	return n
}

func visitString(v Visitor, n ParserNode) (*ast.Node, error) {
	return ast.New(ast.KindStr, locationOf(n), asString(n.Field("unescaped"))), nil
}

func visitSymbol(v Visitor, n ParserNode) (*ast.Node, error) {
	return ast.New(ast.KindSym, locationOf(n), asString(n.Field("unescaped"))), nil
}

// visitInterpolatedString produces dstr(part, ...) where parts alternate
// str and embedded expressions. A heredoc-with-multiline part (one whose
// field is marked "heredoc") is split on '\n', keeping the newline suffix
// on the preceding part "preserves textual layout".
func visitInterpolatedString(v Visitor, n ParserNode) (*ast.Node, error) {
	parts := asNodes(n.Field("parts"))
	lowered, err := v.lowerMany(parts)
	if err != nil {
		return nil, err
	}
	if asBool(n.Field("heredoc")) {
		lowered = splitHeredocParts(lowered)
	}
	children := make([]any, len(lowered))
	for i, p := range lowered {
		children[i] = p
	}
	return ast.New(ast.KindDstr, locationOf(n), children...), nil
}

func splitHeredocParts(parts []*ast.Node) []*ast.Node {
	out := make([]*ast.Node, 0, len(parts))
	for _, p := range parts {
		if p.Kind != ast.KindStr {
			out = append(out, p)
			continue
		}
		text := p.ChildString(0)
		lines := strings.SplitAfter(text, "\n")
		for _, line := range lines {
			if line == "" {
				continue
			}
			out = append(out, ast.New(ast.KindStr, p.Loc, line))
		}
	}
	return out
}

// visitInterpolatedSymbol collapses to sym when it wraps a single string
// part.
func visitInterpolatedSymbol(v Visitor, n ParserNode) (*ast.Node, error) {
	parts := asNodes(n.Field("parts"))
	if len(parts) == 1 && parts[0].Class() == "StringNode" {
		return ast.New(ast.KindSym, locationOf(n), asString(parts[0].Field("unescaped"))), nil
	}
	lowered, err := v.lowerMany(parts)
	if err != nil {
		return nil, err
	}
	children := make([]any, len(lowered))
	for i, p := range lowered {
		children[i] = p
	}
	return ast.New(ast.KindDstr, locationOf(n), children...), nil
}

func visitXString(v Visitor, n ParserNode) (*ast.Node, error) {
	loc := locationOf(n)
	loc.XStr = &ast.XStrExtra{}
	return ast.New(ast.KindXStr, loc, ast.New(ast.KindStr, loc, asString(n.Field("unescaped")))), nil
}

func visitInterpolatedXString(v Visitor, n ParserNode) (*ast.Node, error) {
	parts := asNodes(n.Field("parts"))
	lowered, err := v.lowerMany(parts)
	if err != nil {
		return nil, err
	}
	children := make([]any, len(lowered))
	for i, p := range lowered {
		children[i] = p
	}
	loc := locationOf(n)
	loc.XStr = &ast.XStrExtra{}
	return ast.New(ast.KindXStr, loc, children...), nil
}

func visitRegexp(v Visitor, n ParserNode) (*ast.Node, error) {
	loc := locationOf(n)
	flags := ast.New(ast.KindRegOpt, loc, asString(n.Field("flags")))
	return ast.New(ast.KindRegexp, loc, ast.New(ast.KindStr, loc, asString(n.Field("unescaped"))), flags), nil
}

func visitInterpolatedRegexp(v Visitor, n ParserNode) (*ast.Node, error) {
	parts := asNodes(n.Field("parts"))
	lowered, err := v.lowerMany(parts)
	if err != nil {
		return nil, err
	}
	loc := locationOf(n)
	children := make([]any, 0, len(lowered)+1)
	for _, p := range lowered {
		children = append(children, p)
	}
	children = append(children, ast.New(ast.KindRegOpt, loc, asString(n.Field("flags"))))
	return ast.New(ast.KindRegexp, loc, children...), nil
}

func visitArray(v Visitor, n ParserNode) (*ast.Node, error) {
	elems, err := v.lowerMany(asNodes(n.Field("elements")))
	if err != nil {
		return nil, err
	}
	return ast.New(ast.KindArray, locationOf(n), elems), nil
}

func visitHash(v Visitor, n ParserNode) (*ast.Node, error) {
	elems, err := v.lowerMany(asNodes(n.Field("elements")))
	if err != nil {
		return nil, err
	}
	children := make([]any, len(elems))
	for i, p := range elems {
		children[i] = p
	}
	return ast.New(ast.KindHash, locationOf(n), children...), nil
}

func visitAssoc(v Visitor, n ParserNode) (*ast.Node, error) {
	key, err := v.lower(asNode(n.Field("key")))
	if err != nil {
		return nil, err
	}
	val, err := v.lower(asNode(n.Field("value")))
	if err != nil {
		return nil, err
	}
	return ast.New(ast.KindPair, locationOf(n), key, val), nil
}

func visitConstantRead(v Visitor, n ParserNode) (*ast.Node, error) {
	return ast.ConstPath(locationOf(n), nil, asString(n.Field("name"))), nil
}

func visitConstantPath(v Visitor, n ParserNode) (*ast.Node, error) {
	parent, err := v.lower(asNode(n.Field("parent")))
	if err != nil {
		return nil, err
	}
	if parent == nil {
		parent = ast.Cbase(locationOf(n))
	}
	return ast.ConstPath(locationOf(n), parent, asString(n.Field("name"))), nil
}

func visitConstantWrite(v Visitor, n ParserNode) (*ast.Node, error) {
	value, err := v.lower(asNode(n.Field("value")))
	if err != nil {
		return nil, err
	}
	target := ast.ConstPath(locationOf(n), nil, asString(n.Field("name")))
	return ast.New(ast.KindCAsgn, locationOf(n), target, value), nil
}

func visitOpAsgn(v Visitor, n ParserNode) (*ast.Node, error) {
	target := ast.New(ast.KindLVar, locationOf(n), asString(n.Field("name")))
	value, err := v.lower(asNode(n.Field("value")))
	if err != nil {
		return nil, err
	}
	return ast.New(ast.KindOpAsgn, locationOf(n), target, asString(n.Field("operator")), value), nil
}

// visitCall produces send (or csend for safe navigation). A block argument
// passed positionally becomes block_pass; an attached BlockNode wraps the
// call in block/numblock (handled in the BlockNode visitor, which
// receives this call as its subject).
func visitCall(v Visitor, n ParserNode) (*ast.Node, error) {
	recv, err := v.lower(asNode(n.Field("receiver")))
	if err != nil {
		return nil, err
	}
	args, err := v.lowerMany(asNodes(n.Field("arguments")))
	if err != nil {
		return nil, err
	}
	kind := ast.KindSend
	if asBool(n.Field("safe_navigation")) {
		kind = ast.KindCSend
	}
	children := make([]any, 0, 2+len(args))
	children = append(children, asNodeOrNil(recv), asString(n.Field("name")))
	for _, a := range args {
		children = append(children, a)
	}
	call := ast.New(kind, sendLoc(n), children...)

	if blockArg := asNode(n.Field("block")); blockArg != nil {
		if blockArg.Class() == "BlockArgumentNode" {
			pass, err := v.lower(blockArg)
			if err != nil {
				return nil, err
			}
			call = appendChild(call, pass)
		}
	}
	return call, nil
}

func appendChild(n *ast.Node, extra any) *ast.Node {
	children := append(append([]any{}, n.Children...), extra)
	return n.Updated(nil, children)
}

func sendLoc(n ParserNode) *ast.Location {
	loc := locationOf(n)
	if loc == nil {
		return nil
	}
	loc.Send = &ast.SendExtra{SelectorStart: n.StartOffset(), SelectorEnd: n.EndOffset()}
	return loc
}

// visitBlockHost lowers a BlockNode. The node is treated as decorating
// the preceding CallNode (its call subject); the parser contract surfaces
// that relationship via the block's own "call" field rather than
// requiring the visitor to search siblings.
func visitBlockHost(v Visitor, n ParserNode) (*ast.Node, error) {
	call, err := v.lower(asNode(n.Field("call")))
	if err != nil {
		return nil, err
	}
	body, err := v.lower(asNode(n.Field("body")))
	if err != nil {
		return nil, err
	}

	if numbered := asNode(n.Field("numbered_parameters")); numbered != nil {
		count := asInt(numbered.Field("maximum"))
		return ast.New(ast.KindNumBlock, locationOf(n), call, count, asNodeOrNil(body)), nil
	}

	params, err := v.lowerMany(asNodes(n.Field("parameters")))
	if err != nil {
		return nil, err
	}
	return ast.New(ast.KindBlock, locationOf(n), call, params, asNodeOrNil(body)), nil
}

func visitMultiWrite(v Visitor, n ParserNode) (*ast.Node, error) {
	targets, err := v.lowerMany(asNodes(n.Field("lefts")))
	if err != nil {
		return nil, err
	}
	rhs, err := v.lower(asNode(n.Field("value")))
	if err != nil {
		return nil, err
	}
	mlhs := ast.New(ast.KindMLHS, locationOf(n), targets)
	return ast.New(ast.KindMAsgn, locationOf(n), mlhs, rhs), nil
}

func visitMultiTarget(v Visitor, n ParserNode) (*ast.Node, error) {
	targets, err := v.lowerMany(asNodes(n.Field("lefts")))
	if err != nil {
		return nil, err
	}
	return ast.New(ast.KindMLHS, locationOf(n), targets), nil
}

// visitBegin produces kwbegin(rescue(body, resbody…, else) / ensure(...))
//
func visitBegin(v Visitor, n ParserNode) (*ast.Node, error) {
	body, err := v.lower(asNode(n.Field("statements")))
	if err != nil {
		return nil, err
	}
	rescues, err := v.lowerMany(asNodes(n.Field("rescue_clauses")))
	if err != nil {
		return nil, err
	}
	elseClause, err := v.lower(asNode(n.Field("else_clause")))
	if err != nil {
		return nil, err
	}
	ensureClause, err := v.lower(asNode(n.Field("ensure_clause")))
	if err != nil {
		return nil, err
	}

	inner := body
	if len(rescues) > 0 || elseClause != nil {
		children := make([]any, 0, len(rescues)+2)
		children = append(children, asNodeOrNil(body))
		for _, r := range rescues {
			children = append(children, r)
		}
		children = append(children, asNodeOrNil(elseClause))
		inner = ast.New(ast.KindRescue, locationOf(n), children...)
	}
	if ensureClause != nil {
		inner = ast.New(ast.KindEnsure, locationOf(n), asNodeOrNil(inner), ensureClause)
	}
	return ast.New(ast.KindKwBegin, locationOf(n), asNodeOrNil(inner)), nil
}

func visitResbody(v Visitor, n ParserNode) (*ast.Node, error) {
	exceptions, err := v.lowerMany(asNodes(n.Field("exceptions")))
	if err != nil {
		return nil, err
	}
	ref, err := v.lower(asNode(n.Field("reference")))
	if err != nil {
		return nil, err
	}
	body, err := v.lower(asNode(n.Field("statements")))
	if err != nil {
		return nil, err
	}
	return ast.New(ast.KindResbody, locationOf(n), exceptions, asNodeOrNil(ref), asNodeOrNil(body)), nil
}

func visitRange(v Visitor, n ParserNode) (*ast.Node, error) {
	lo, err := v.lower(asNode(n.Field("left")))
	if err != nil {
		return nil, err
	}
	hi, err := v.lower(asNode(n.Field("right")))
	if err != nil {
		return nil, err
	}
	kind := ast.KindIRange
	if asBool(n.Field("exclude_end")) {
		kind = ast.KindERange
	}
	return ast.New(kind, locationOf(n), asNodeOrNil(lo), asNodeOrNil(hi)), nil
}

// visitDef lowers DefNode, carrying the endless flag into DefLocation and
// wrapping an endless body in autoreturn for the converter.
func visitDef(v Visitor, n ParserNode) (*ast.Node, error) {
	params, err := v.lowerMany(asNodes(n.Field("parameters")))
	if err != nil {
		return nil, err
	}
	body, err := v.lower(asNode(n.Field("body")))
	if err != nil {
		return nil, err
	}
	recv, err := v.lower(asNode(n.Field("receiver")))
	if err != nil {
		return nil, err
	}

	endless := asBool(n.Field("endless"))
	if endless && body != nil {
		body = ast.New(ast.KindAutoReturn, body.Loc, body)
	}

	loc := locationOf(n)
	loc.Def = &ast.DefExtra{
		NameEnd:   n.EndOffset(),
		Endless:   endless,
		HasParens: asBool(n.Field("has_parens")),
	}

	kind := ast.KindDef
	if recv != nil {
		kind = ast.KindDefS
	}
	if recv != nil {
		return ast.New(kind, loc, recv, asString(n.Field("name")), params, asNodeOrNil(body)), nil
	}
	return ast.New(kind, loc, asString(n.Field("name")), params, asNodeOrNil(body)), nil
}

func visitIf(v Visitor, n ParserNode) (*ast.Node, error) {
	cond, err := v.lower(asNode(n.Field("predicate")))
	if err != nil {
		return nil, err
	}
	then, err := v.lower(asNode(n.Field("statements")))
	if err != nil {
		return nil, err
	}
	els, err := v.lower(asNode(n.Field("subsequent")))
	if err != nil {
		return nil, err
	}
	return ast.New(ast.KindIf, locationOf(n), cond, asNodeOrNil(then), asNodeOrNil(els)), nil
}

// visitUnless lowers to `if` with the condition wrapped in `not`, since the
// normalized tree has no separate "unless" tag (closed kind
// set has none).
func visitUnless(v Visitor, n ParserNode) (*ast.Node, error) {
	cond, err := v.lower(asNode(n.Field("predicate")))
	if err != nil {
		return nil, err
	}
	then, err := v.lower(asNode(n.Field("statements")))
	if err != nil {
		return nil, err
	}
	els, err := v.lower(asNode(n.Field("else_clause")))
	if err != nil {
		return nil, err
	}
	negated := ast.New(ast.KindNot, cond.GetLoc(), cond)
	return ast.New(ast.KindIf, locationOf(n), negated, asNodeOrNil(then), asNodeOrNil(els)), nil
}

func visitCase(v Visitor, n ParserNode) (*ast.Node, error) {
	subject, err := v.lower(asNode(n.Field("predicate")))
	if err != nil {
		return nil, err
	}
	whens, err := v.lowerMany(asNodes(n.Field("conditions")))
	if err != nil {
		return nil, err
	}
	elseClause, err := v.lower(asNode(n.Field("else_clause")))
	if err != nil {
		return nil, err
	}
	children := make([]any, 0, len(whens)+2)
	children = append(children, asNodeOrNil(subject))
	for _, w := range whens {
		children = append(children, w)
	}
	children = append(children, asNodeOrNil(elseClause))
	return ast.New(ast.KindCase, locationOf(n), children...), nil
}

func visitWhen(v Visitor, n ParserNode) (*ast.Node, error) {
	conds, err := v.lowerMany(asNodes(n.Field("conditions")))
	if err != nil {
		return nil, err
	}
	body, err := v.lower(asNode(n.Field("statements")))
	if err != nil {
		return nil, err
	}
	return ast.New(ast.KindWhen, locationOf(n), conds, asNodeOrNil(body)), nil
}

func visitCaseMatch(v Visitor, n ParserNode) (*ast.Node, error) {
	subject, err := v.lower(asNode(n.Field("predicate")))
	if err != nil {
		return nil, err
	}
	ins, err := v.lowerMany(asNodes(n.Field("conditions")))
	if err != nil {
		return nil, err
	}
	elseClause, err := v.lower(asNode(n.Field("else_clause")))
	if err != nil {
		return nil, err
	}
	children := make([]any, 0, len(ins)+2)
	children = append(children, asNodeOrNil(subject))
	for _, i := range ins {
		children = append(children, i)
	}
	children = append(children, asNodeOrNil(elseClause))
	return ast.New(ast.KindCaseMatch, locationOf(n), children...), nil
}

func visitInPattern(v Visitor, n ParserNode) (*ast.Node, error) {
	pattern, err := v.lower(asNode(n.Field("pattern")))
	if err != nil {
		return nil, err
	}
	guard, err := v.lower(asNode(n.Field("guard")))
	if err != nil {
		return nil, err
	}
	body, err := v.lower(asNode(n.Field("statements")))
	if err != nil {
		return nil, err
	}
	return ast.New(ast.KindInPattern, locationOf(n), pattern, asNodeOrNil(guard), asNodeOrNil(body)), nil
}

func visitFor(v Visitor, n ParserNode) (*ast.Node, error) {
	target, err := v.lower(asNode(n.Field("index")))
	if err != nil {
		return nil, err
	}
	collection, err := v.lower(asNode(n.Field("collection")))
	if err != nil {
		return nil, err
	}
	body, err := v.lower(asNode(n.Field("statements")))
	if err != nil {
		return nil, err
	}
	return ast.New(ast.KindFor, locationOf(n), target, collection, asNodeOrNil(body)), nil
}

func visitClass(v Visitor, n ParserNode) (*ast.Node, error) {
	name, err := v.lower(asNode(n.Field("constant_path")))
	if err != nil {
		return nil, err
	}
	super, err := v.lower(asNode(n.Field("superclass")))
	if err != nil {
		return nil, err
	}
	body, err := v.lower(asNode(n.Field("body")))
	if err != nil {
		return nil, err
	}
	return ast.New(ast.KindClass, locationOf(n), name, asNodeOrNil(super), asNodeOrNil(body)), nil
}

func visitModule(v Visitor, n ParserNode) (*ast.Node, error) {
	name, err := v.lower(asNode(n.Field("constant_path")))
	if err != nil {
		return nil, err
	}
	body, err := v.lower(asNode(n.Field("body")))
	if err != nil {
		return nil, err
	}
	return ast.New(ast.KindModule, locationOf(n), name, asNodeOrNil(body)), nil
}

func visitSuper(v Visitor, n ParserNode) (*ast.Node, error) {
	args, err := v.lowerMany(asNodes(n.Field("arguments")))
	if err != nil {
		return nil, err
	}
	children := make([]any, len(args))
	for i, a := range args {
		children[i] = a
	}
	return ast.New(ast.KindSuper, locationOf(n), children...), nil
}

func visitYield(v Visitor, n ParserNode) (*ast.Node, error) {
	args, err := v.lowerMany(asNodes(n.Field("arguments")))
	if err != nil {
		return nil, err
	}
	children := make([]any, len(args))
	for i, a := range args {
		children[i] = a
	}
	return ast.New(ast.KindYield, locationOf(n), children...), nil
}

func visitArrayPattern(v Visitor, n ParserNode) (*ast.Node, error) {
	elems, err := v.lowerMany(asNodes(n.Field("requireds")))
	if err != nil {
		return nil, err
	}
	return ast.New(ast.KindArrayPattern, locationOf(n), elems), nil
}

func visitHashPattern(v Visitor, n ParserNode) (*ast.Node, error) {
	elems, err := v.lowerMany(asNodes(n.Field("elements")))
	if err != nil {
		return nil, err
	}
	children := make([]any, len(elems))
	for i, e := range elems {
		children[i] = e
	}
	return ast.New(ast.KindHashPattern, locationOf(n), children...), nil
}

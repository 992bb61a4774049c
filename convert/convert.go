// Package convert implements the converter: the
// statement/expression-aware code generator that walks the filtered,
// comment-associated normalized tree and emits TGT text plus a source map.
// It is simultaneously a token/line serializer client, a scope/namespace
// consumer, an operator-precedence-aware printer, and the place truthy,
// strict, and operator-level options take effect.
package convert

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/oxhq/srcjs/ast"
	"github.com/oxhq/srcjs/comments"
	"github.com/oxhq/srcjs/filters"
	"github.com/oxhq/srcjs/namespace"
	"github.com/oxhq/srcjs/serializer"
	"github.com/oxhq/srcjs/sourcemap"
)

// Converter holds the mutable state of one conversion run: the output
// buffer, the namespace tracker shared with the filter pipeline, the
// pending comment map, the vars scope stack, and a counter for synthesized
// temporaries. One Converter is used for exactly one tree.
type Converter struct {
	buf     *serializer.Buffer
	opts    filters.Options
	ns      *namespace.Tracker
	cm      *comments.Map
	tmpSeq  int
	classes []classFrame
	scopes  []*scope
	jsx     bool
}

// classFrame tracks the enclosing class/module shape so method emission
// knows whether `this` is implicit (class2) or whether members become
// object-literal keys (class_hash/class_module)
type classFrame struct {
	shape string // "class2" | "class_hash" | "class_module" | "class_extend"
	name  string
}

// New constructs a Converter. ns/cm are normally the same instances the
// filter pipeline populated during its pass.
func New(opts filters.Options, ns *namespace.Tracker, cm *comments.Map) *Converter {
	if ns == nil {
		ns = namespace.New()
	}
	if cm == nil {
		cm = comments.NewMap()
	}
	return &Converter{opts: opts, ns: ns, cm: cm}
}

// Convert renders root to TGT text and its accompanying source map.
func (c *Converter) Convert(root *ast.Node) (string, *sourcemap.Map, error) {
	c.buf = serializer.New(targetFileName(c.opts.File), c.opts.File)
	c.buf.Width = c.opts.Width
	if c.buf.Width == 0 {
		c.buf.Width = 80
	}
	if c.opts.Source == "compact" {
		c.buf.Separator = serializer.SeparatorCompact
	}

	if c.opts.Strict {
		c.buf.Emit(`"use strict";`)
		c.buf.NewLine()
	}
	if c.opts.Truthy == "ruby" {
		c.emitTruthyHelpers()
	}

	c.pushScope(true)
	stmts := ast.Statements(root)
	if err := c.emitStatements(stmts); err != nil {
		return "", nil, err
	}
	c.popScope()

	text := c.buf.String()
	smap := c.buf.SourceMap()
	return text, smap, nil
}

// emitTruthyHelpers prepends the non-JS-truthiness helpers:
// $T (neither false nor nullish), $ror (ruby or), $rand (ruby and).
func (c *Converter) emitTruthyHelpers() {
	c.buf.Emit("const $T = (v) => v !== false && v !== null && v !== undefined;")
	c.buf.NewLine()
	c.buf.Emit("const $ror = (a, b) => $T(a) ? a : b();")
	c.buf.NewLine()
	c.buf.Emit("const $rand = (a, b) => $T(a) ? b() : a;")
	c.buf.NewLine()
}

func (c *Converter) emitStatements(stmts []*ast.Node) error {
	for _, s := range stmts {
		if err := c.emitStatement(s); err != nil {
			return err
		}
	}
	return nil
}

// emitStatement emits one top-level/block statement: its leading comments
// (consumed from the map so each attaches once), then the expression, then
// the statement terminator for non-block forms.
func (c *Converter) emitStatement(n *ast.Node) error {
	if n == nil {
		return nil
	}
	for _, cm := range c.cm.Take(n) {
		for _, line := range strings.Split(cm.Text, "\n") {
			c.buf.Emit("// " + strings.TrimPrefix(strings.TrimSpace(line), "# "))
			c.buf.NewLine()
		}
	}
	n = ast.Unwrap(n)
	if n == nil || n.IsEmptyBegin() {
		return nil
	}
	if err := c.emitExpr(n, ctxStatement); err != nil {
		return err
	}
	if !rendersAsBlock(n) {
		c.buf.Emit(";")
	}
	c.buf.NewLine()
	return nil
}

// rendersAsBlock reports whether n's statement form ends in `}` and takes
// no semicolon.
func rendersAsBlock(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindIf, ast.KindCase, ast.KindWhile, ast.KindUntil,
		ast.KindFor, ast.KindForOf, ast.KindKwBegin,
		ast.KindClass, ast.KindModule, ast.KindDef, ast.KindDefS,
		ast.KindAsync, ast.KindAsyncS:
		return true
	}
	return false
}

// exprContext colors every parse/emit call statement or expression:
// handlers emit a statement form only in
// statement state; otherwise they must produce a single expression.
type exprContext int

const (
	ctxStatement exprContext = iota
	ctxExpr
)

func (c *Converter) emitExpr(n *ast.Node, ctx exprContext) error {
	if n == nil {
		c.buf.Emit(c.nullLiteral())
		return nil
	}
	switch n.Kind {
	case ast.KindInt:
		c.buf.EmitLoc(n.ChildString(0), n.Loc, "")
	case ast.KindFloat:
		c.buf.EmitLoc(n.ChildString(0), n.Loc, "")
	case ast.KindStr:
		c.buf.EmitLoc(strconv.Quote(n.ChildString(0)), n.Loc, "")
	case ast.KindSym:
		c.buf.EmitLoc(strconv.Quote(n.ChildString(0)), n.Loc, "")
	case ast.KindDstr:
		return c.emitTemplateLiteral(n)
	case ast.KindNil:
		c.buf.Emit(c.nullLiteral())
	case ast.KindTrue:
		c.buf.Emit("true")
	case ast.KindFalse:
		c.buf.Emit("false")
	case ast.KindSelf:
		c.buf.Emit("this")
	case ast.KindFile:
		c.buf.Emit("import.meta.url")

	case ast.KindArray:
		return c.emitArrayLiteral(n)
	case ast.KindHash:
		return c.emitHash(n)

	case ast.KindIVar:
		// Outside any class, a host-provided ivar value (the `ivars`
		// option) substitutes directly for the read.
		if len(c.classes) == 0 {
			if v, ok := c.opts.IVars[n.ChildString(0)]; ok {
				encoded, err := json.Marshal(v)
				if err != nil {
					return c.unsupported(n, "ivar value is not serializable: "+n.ChildString(0))
				}
				c.buf.EmitLoc(string(encoded), n.Loc, "")
				return nil
			}
		}
		c.buf.EmitLoc(c.varName(n), n.Loc, n.ChildString(0))
	case ast.KindLVar, ast.KindCVar, ast.KindGVar:
		c.buf.EmitLoc(c.varName(n), n.Loc, n.ChildString(0))
	case ast.KindConst:
		c.buf.EmitLoc(ast.ConstName(n), n.Loc, ast.ConstName(n))

	case ast.KindLVAsgn, ast.KindIVAsgn, ast.KindCVAsgn, ast.KindGVAsgn:
		return c.emitSimpleAssign(n, ctx)
	case ast.KindCAsgn:
		return c.emitConstAssign(n, ctx)
	case ast.KindOpAsgn:
		return c.emitOpAssign(n)
	case ast.KindOrAsgn:
		return c.emitLogicalAssign(n, c.orAssignOp())
	case ast.KindAndAsgn:
		return c.emitLogicalAssign(n, "&&=")
	case ast.KindNullAsgn:
		return c.emitLogicalAssign(n, "??=")
	case ast.KindMAsgn:
		return c.emitMultiAssign(n, ctx)

	// on_send / on_sendw / on_send_bang / on_await / on_attr / on_call are
	// aliases of one routine (resolution of the duplicate
	// handler definitions); attr alone differs by reference-vs-call.
	case ast.KindSend, ast.KindCSend, ast.KindSendW, ast.KindCall:
		return c.emitSend(n, ctx)
	case ast.KindAttr:
		return c.emitAttr(n, ctx)
	case ast.KindBlock, ast.KindNumBlock:
		return c.emitBlock(n)

	case ast.KindAnd:
		return c.emitBinary(n, "&&")
	case ast.KindOr:
		return c.emitBinary(n, c.orOp())
	case ast.KindNullish, ast.KindNullishOr:
		return c.emitBinary(n, "??")
	case ast.KindLogicalOr:
		return c.emitBinary(n, "||")
	case ast.KindNot:
		c.buf.Emit("!")
		return c.emitGrouped(n.ChildNode(0), precUnary)

	case ast.KindIf:
		return c.emitIf(n, ctx)
	case ast.KindCase:
		return c.emitCase(n, ctx)
	case ast.KindWhile:
		return c.emitLoop(n, false)
	case ast.KindUntil:
		return c.emitLoop(n, true)
	case ast.KindWhilePost:
		return c.emitPostLoop(n, false)
	case ast.KindUntilPost:
		return c.emitPostLoop(n, true)
	case ast.KindFor:
		return c.emitFor(n)
	case ast.KindForOf:
		return c.emitForOf(n)

	case ast.KindBreak:
		if len(n.Children) > 0 {
			return c.unsupported(n, "break with an argument outside loop context")
		}
		c.buf.Emit("break")
	case ast.KindNext:
		c.buf.Emit("continue")
	case ast.KindReturn:
		return c.emitReturn(n)
	case ast.KindRedo:
		// Inside the redo$ sentinel loop emitted by emitLoop.
		c.buf.Emit("redo$ = true; continue")
	case ast.KindRetry:
		// Inside the while(true) wrapper emitted by emitKwBegin.
		c.buf.Emit("continue")

	case ast.KindKwBegin:
		return c.emitKwBegin(n, ctx)

	// on_def / on_defm / on_async / on_deff are aliases of one routine
	//; async defs differ only by the `async ` prefix.
	case ast.KindDef, ast.KindDefM, ast.KindDefF:
		return c.emitDef(n, false, false, ctx)
	case ast.KindDefS:
		return c.emitDef(n, true, false, ctx)
	case ast.KindAsync:
		return c.emitDef(n, false, true, ctx)
	case ast.KindAsyncS:
		return c.emitDef(n, true, true, ctx)
	case ast.KindAutoReturn:
		return c.emitAutoReturn(n)

	case ast.KindAwait:
		c.buf.Emit("await ")
		return c.emitGrouped(n.ChildNode(0), precUnary)

	// The four on_class* variants are one routine; shape
	// selection is structural inside emitClass.
	case ast.KindClass, ast.KindClass2, ast.KindClassHash, ast.KindClassExtend:
		return c.emitClass(n)
	case ast.KindModule, ast.KindModuleHash, ast.KindClassModule:
		return c.emitModule(n)

	case ast.KindYield:
		return c.emitYield(n)
	case ast.KindSuper:
		return c.emitSuper(n)
	case ast.KindZSuper:
		c.buf.Emit("super(...arguments)")

	case ast.KindSplat, ast.KindKwSplat:
		c.buf.Emit("...")
		return c.emitGrouped(n.ChildNode(0), precCall)
	case ast.KindBlockPass:
		return c.emitExpr(n.ChildNode(0), ctxExpr)

	case ast.KindRegexp:
		return c.emitRegexp(n)
	case ast.KindXStr:
		return c.emitXStr(n)
	case ast.KindImport:
		return c.emitImport(n)

	case ast.KindIRange, ast.KindERange:
		return c.emitRange(n)

	case ast.KindBegin:
		if ctx == ctxStatement {
			return c.emitStatementList(ast.Statements(n))
		}
		if len(n.Children) == 0 {
			c.buf.Emit(c.nullLiteral())
			return nil
		}
		return c.emitExpr(ast.Unwrap(n), ctxExpr)

	case ast.KindCaseMatch, ast.KindInPattern, ast.KindMatchPattern,
		ast.KindArrayPattern, ast.KindHashPattern, ast.KindFindPattern, ast.KindPin:
		return c.unsupported(n, "complex match patterns")

	default:
		return fmt.Errorf("convert: no emitter for kind %q%s", n.Kind, locSuffix(n))
	}
	return nil
}

// targetFileName derives the emitted file's name for the source map from
// the SRC file name.
func targetFileName(srcFile string) string {
	if srcFile == "" {
		return ""
	}
	if idx := strings.LastIndexByte(srcFile, '.'); idx > strings.LastIndexByte(srcFile, '/') {
		return srcFile[:idx] + ".js"
	}
	return srcFile + ".js"
}

func locSuffix(n *ast.Node) string {
	if n.Loc == nil {
		return ""
	}
	return fmt.Sprintf(" at line %d, column %d", n.Loc.Line, n.Loc.Column)
}

// orOp honors the `or` option: "nullish" emits `??` when the ES level has
// nullish coalescing (2020+); "auto", "logical", and "nullish" below 2020
// all emit `||`. The operands are not inspected.
func (c *Converter) orOp() string {
	if c.opts.Or == "nullish" && c.opts.ESLevel >= 2020 {
		return "??"
	}
	return "||"
}

func (c *Converter) orAssignOp() string {
	if c.opts.Or == "nullish" && c.opts.ESLevel >= 2021 {
		return "??="
	}
	return "||="
}

// nullLiteral honors the `truthy` option: SRC's `nil` is JS `null` under
// "js" semantics but targets `undefined` under Ruby-flavored truthiness
// parity, since JS treats both identically as falsy.
func (c *Converter) nullLiteral() string {
	if c.opts.Truthy == "ruby" {
		return "undefined"
	}
	return "null"
}

func (c *Converter) varName(n *ast.Node) string {
	name := n.ChildString(0)
	switch n.Kind {
	case ast.KindIVar:
		field := strings.TrimPrefix(name, "@")
		if len(c.classes) > 0 && c.fieldsDeclarable() {
			return "this.#" + field
		}
		return "this._" + field
	case ast.KindCVar:
		field := strings.TrimPrefix(name, "@@")
		if len(c.classes) > 0 && c.fieldsDeclarable() {
			return "this.constructor.#$" + field
		}
		return "this.constructor._" + field
	case ast.KindGVar:
		return "globalThis." + strings.TrimPrefix(name, "$")
	default:
		return name
	}
}

func (c *Converter) emitArrayLiteral(n *ast.Node) error {
	c.buf.Emit("[")
	elems := n.ChildNodes(0)
	for i, e := range elems {
		if i > 0 {
			c.buf.Emit(", ")
		}
		if err := c.emitExpr(e, ctxExpr); err != nil {
			return err
		}
	}
	c.buf.Emit("]")
	return nil
}

func (c *Converter) emitHash(n *ast.Node) error {
	c.buf.Emit("{")
	pairs := hashEntries(n)
	for i, p := range pairs {
		if i > 0 {
			c.buf.Emit(", ")
		}
		if p.Kind == ast.KindKwSplat {
			c.buf.Emit("...")
			if err := c.emitGrouped(p.ChildNode(0), precCall); err != nil {
				return err
			}
			continue
		}
		key := p.ChildNode(0)
		val := p.ChildNode(1)
		switch {
		case key == nil:
			return c.unsupported(p, "hash pair without a key")
		case key.Kind == ast.KindSym && isIdentifier(key.ChildString(0)):
			c.buf.Emit(key.ChildString(0))
		case key.Kind == ast.KindSym || key.Kind == ast.KindStr:
			c.buf.Emit(strconv.Quote(key.ChildString(0)))
		default:
			c.buf.Emit("[")
			if err := c.emitExpr(key, ctxExpr); err != nil {
				return err
			}
			c.buf.Emit("]")
		}
		c.buf.Emit(": ")
		if err := c.emitExpr(val, ctxExpr); err != nil {
			return err
		}
	}
	c.buf.Emit("}")
	return nil
}

// hashEntries tolerates both hash layouts: pairs stored inline as
// individual children (the lowering visitor's shape) or as one []*Node
// child (synthesized hashes).
func hashEntries(n *ast.Node) []*ast.Node {
	if n == nil {
		return nil
	}
	if pairs := n.ChildNodes(0); pairs != nil {
		return pairs
	}
	var out []*ast.Node
	for _, ch := range n.Children {
		if p, ok := ch.(*ast.Node); ok {
			out = append(out, p)
		}
	}
	return out
}

// emitTemplateLiteral renders dstr as a backtick template, collapsing
// `str` parts and wrapping non-`str` parts in `${...}` — via `String(...)`
// when nullish_to_s is set.
func (c *Converter) emitTemplateLiteral(n *ast.Node) error {
	if len(n.Children) == 0 {
		c.buf.Emit(`""`)
		return nil
	}
	c.buf.Emit("`")
	for _, child := range n.Children {
		part, ok := child.(*ast.Node)
		if !ok {
			continue
		}
		if part.Kind == ast.KindStr {
			c.buf.Emit(escapeTemplateText(part.ChildString(0)))
			continue
		}
		c.buf.Emit("${")
		if c.opts.NullishToS {
			c.buf.Emit("String(")
		}
		inner := part
		if inner.Kind == ast.KindBegin {
			inner = ast.Unwrap(inner)
		}
		if err := c.emitExpr(inner, ctxExpr); err != nil {
			return err
		}
		if c.opts.NullishToS {
			c.buf.Emit(")")
		}
		c.buf.Emit("}")
	}
	c.buf.Emit("`")
	return nil
}

// escapeTemplateText escapes `${` and backticks but preserves raw
// newlines, keeping heredoc layout verbatim.
func escapeTemplateText(s string) string {
	replacer := strings.NewReplacer("`", "\\`", "${", "\\${", "\\", "\\\\")
	return replacer.Replace(s)
}

// readKindForAssign maps an assignment kind to the read-form kind used to
// spell its left-hand side.
func readKindForAssign(k ast.Kind) ast.Kind {
	switch k {
	case ast.KindIVAsgn:
		return ast.KindIVar
	case ast.KindCVAsgn:
		return ast.KindCVar
	case ast.KindGVAsgn:
		return ast.KindGVar
	}
	return ast.KindLVar
}

// emitSimpleAssign applies the variable-declaration discipline: the first
// statement-context write of a local prefixes `let`; writes that cannot
// carry a declaration mark the name pending for the owning scope's
// hoist.
func (c *Converter) emitSimpleAssign(n *ast.Node, ctx exprContext) error {
	if n.Kind == ast.KindLVAsgn {
		name := n.ChildString(0)
		if ctx == ctxStatement {
			if c.declareVar(name) {
				c.buf.Emit("let ")
			}
		} else {
			c.markPending(name)
		}
	}
	target := ast.New(readKindForAssign(n.Kind), n.Loc, n.ChildString(0))
	if err := c.emitExpr(target, ctxExpr); err != nil {
		return err
	}
	c.buf.Emit(" = ")
	return c.emitExpr(n.ChildNode(1), ctxExpr)
}

func (c *Converter) emitConstAssign(n *ast.Node, ctx exprContext) error {
	target := n.ChildNode(0)
	name := ast.ConstName(target)
	if ctx == ctxStatement {
		c.buf.Emit("const ")
	}
	c.buf.EmitLoc(name, n.Loc, name)
	c.buf.Emit(" = ")
	c.ns.Declare(name, namespace.Capability{Kind: "self"})
	return c.emitExpr(n.ChildNode(1), ctxExpr)
}

func (c *Converter) emitOpAssign(n *ast.Node) error {
	target := n.ChildNode(0)
	op := n.ChildString(1)
	if err := c.emitExpr(target, ctxExpr); err != nil {
		return err
	}
	c.buf.Emit(" " + op + "= ")
	return c.emitExpr(n.ChildNode(2), ctxExpr)
}

func (c *Converter) emitLogicalAssign(n *ast.Node, op string) error {
	if err := c.emitExpr(n.ChildNode(0), ctxExpr); err != nil {
		return err
	}
	c.buf.Emit(" " + op + " ")
	return c.emitExpr(n.ChildNode(1), ctxExpr)
}

// emitMultiAssign lowers masgn(mlhs, rhs) to array destructuring. A splat
// target becomes a rest element; a first write of all-new names carries a
// single `let`.
func (c *Converter) emitMultiAssign(n *ast.Node, ctx exprContext) error {
	lhs := n.ChildNode(0)
	targets := lhs.ChildNodes(0)
	if targets == nil {
		// mlhs children may be stored inline rather than as one slice.
		targets = make([]*ast.Node, 0, len(lhs.Children))
		for _, ch := range lhs.Children {
			if t, ok := ch.(*ast.Node); ok {
				targets = append(targets, t)
			}
		}
	}

	allNew := ctx == ctxStatement
	for _, t := range targets {
		name := t.ChildString(0)
		if t.Kind == ast.KindSplat {
			if inner := t.ChildNode(0); inner != nil {
				name = inner.ChildString(0)
			}
		}
		if t.Kind != ast.KindLVAsgn && t.Kind != ast.KindSplat {
			allNew = false
			break
		}
		if c.declaredIn(name) {
			allNew = false
			break
		}
	}
	if allNew {
		c.buf.Emit("let ")
		for _, t := range targets {
			name := t.ChildString(0)
			if t.Kind == ast.KindSplat {
				if inner := t.ChildNode(0); inner != nil {
					name = inner.ChildString(0)
				}
			}
			c.declareVar(name)
		}
	}

	c.buf.Emit("[")
	for i, t := range targets {
		if i > 0 {
			c.buf.Emit(", ")
		}
		if t.Kind == ast.KindSplat {
			c.buf.Emit("...")
			if inner := t.ChildNode(0); inner != nil {
				c.buf.Emit(inner.ChildString(0))
			}
			continue
		}
		target := ast.New(readKindForAssign(t.Kind), t.Loc, t.ChildString(0))
		if err := c.emitExpr(target, ctxExpr); err != nil {
			return err
		}
	}
	c.buf.Emit("] = ")
	rhs := n.ChildNode(1)
	return c.emitExpr(rhs, ctxExpr)
}

// binaryOps maps Ruby operator method names to their JS spelling and the
// `comparison` option's effect on `==`/`!=` ("equality" emits `===`/`!==`
// to avoid loose-coercion footguns; "identity" keeps `==`/`!=`).
func (c *Converter) binaryOp(name string) (string, bool) {
	switch name {
	// `<<` is absent: sequence append lowers to push/concat, not a shift.
	case "+", "-", "*", "/", "%", "**", "&", "|", "^", ">>",
		"<", "<=", ">", ">=":
		return name, true
	case "==":
		if c.opts.Comparison == "identity" {
			return "==", true
		}
		return "===", true
	case "!=":
		if c.opts.Comparison == "identity" {
			return "!=", true
		}
		return "!==", true
	}
	return "", false
}

// isOperatorName reports whether name is ever rendered infix by binaryOp,
// independent of the comparison option.
func isOperatorName(name string) bool {
	switch name {
	case "+", "-", "*", "/", "%", "**", "&", "|", "^", ">>",
		"<", "<=", ">", ">=", "==", "!=":
		return true
	}
	return false
}

func jsMethodName(name string) string {
	name = strings.TrimSuffix(name, "?")
	name = strings.TrimSuffix(name, "!")
	return name
}

func (c *Converter) emitBinary(n *ast.Node, op string) error {
	prec := precOf(op)
	if err := c.emitGrouped(n.ChildNode(0), prec); err != nil {
		return err
	}
	c.buf.Emit(" " + op + " ")
	return c.emitGrouped(n.ChildNode(1), prec+1)
}

func (c *Converter) emitIf(n *ast.Node, ctx exprContext) error {
	cond := n.ChildNode(0)
	then := n.ChildNode(1)
	els := n.ChildNode(2)

	if ctx == ctxExpr {
		if err := c.emitGrouped(cond, precNullish); err != nil {
			return err
		}
		c.buf.Emit(" ? ")
		if err := c.emitGrouped(ast.Unwrap(then), precTernary); err != nil {
			return err
		}
		c.buf.Emit(" : ")
		return c.emitGrouped(ast.Unwrap(els), precTernary)
	}

	c.buf.Emit("if (")
	if err := c.emitCondition(cond); err != nil {
		return err
	}
	c.buf.Emit(") {")
	c.buf.NewLine()
	c.buf.Indent()
	c.pushScope(false)
	if err := c.emitStatementList(ast.Statements(then)); err != nil {
		return err
	}
	c.popScope()
	c.buf.Dedent()
	c.buf.Emit("}")
	if els != nil && !els.IsEmptyBegin() {
		if inner := ast.Unwrap(els); inner != nil && inner.Kind == ast.KindIf {
			c.buf.Emit(" else ")
			return c.emitIf(inner, ctxStatement)
		}
		c.buf.Emit(" else {")
		c.buf.NewLine()
		c.buf.Indent()
		c.pushScope(false)
		if err := c.emitStatementList(ast.Statements(els)); err != nil {
			return err
		}
		c.popScope()
		c.buf.Dedent()
		c.buf.Emit("}")
	}
	return nil
}

// emitCondition wraps the test in $T(...) under Ruby truthiness so `0`
// and `""` stay truthy like SRC.
func (c *Converter) emitCondition(cond *ast.Node) error {
	if c.opts.Truthy == "ruby" && needsTruthyWrap(cond) {
		c.buf.Emit("$T(")
		if err := c.emitExpr(cond, ctxExpr); err != nil {
			return err
		}
		c.buf.Emit(")")
		return nil
	}
	return c.emitExpr(cond, ctxExpr)
}

// needsTruthyWrap skips $T for tests that are already boolean-valued.
func needsTruthyWrap(n *ast.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case ast.KindTrue, ast.KindFalse, ast.KindNot, ast.KindAnd, ast.KindOr:
		return false
	case ast.KindSend:
		return !isComparisonName(n.Method())
	}
	return true
}

func isComparisonName(name string) bool {
	switch name {
	case "==", "!=", "<", "<=", ">", ">=", "is_a?", "kind_of?", "instance_of?":
		return true
	}
	return false
}

func (c *Converter) emitStatementList(stmts []*ast.Node) error {
	for _, s := range stmts {
		if err := c.emitStatement(s); err != nil {
			return err
		}
	}
	return nil
}

// emitCase lowers case/when. Classical values become switch; any range in
// a when arm flips the whole case to `switch (true)` with range-predicate
// arms; auto-break is inserted unless the arm already returns. Expression
// position lifts the case into an IIFE.
func (c *Converter) emitCase(n *ast.Node, ctx exprContext) error {
	if ctx == ctxExpr {
		c.buf.Emit("(() => {")
		c.buf.NewLine()
		c.buf.Indent()
		c.pushScope(true)
		lifted := liftCaseReturns(n)
		if err := c.emitCase(lifted, ctxStatement); err != nil {
			return err
		}
		c.buf.NewLine()
		c.popScope()
		c.buf.Dedent()
		c.buf.Emit("})()")
		return nil
	}

	subject := n.ChildNode(0)
	whens, elseClause := caseParts(n)
	ranged := false
	for _, w := range whens {
		for _, cond := range w.ChildNodes(0) {
			if cond.Kind == ast.KindIRange || cond.Kind == ast.KindERange {
				ranged = true
			}
		}
	}

	if ranged {
		c.buf.Emit("switch (true) {")
	} else {
		c.buf.Emit("switch (")
		if err := c.emitExpr(subject, ctxExpr); err != nil {
			return err
		}
		c.buf.Emit(") {")
	}
	c.buf.NewLine()
	c.buf.Indent()

	for _, when := range whens {
		for _, cond := range when.ChildNodes(0) {
			c.buf.Emit("case ")
			if ranged {
				if err := c.emitRangePredicate(subject, cond); err != nil {
					return err
				}
			} else if err := c.emitExpr(cond, ctxExpr); err != nil {
				return err
			}
			c.buf.Emit(":")
			c.buf.NewLine()
		}
		c.buf.Indent()
		body := ast.Statements(when.ChildNode(1))
		if err := c.emitStatementList(body); err != nil {
			return err
		}
		if !endsInReturn(body) {
			c.buf.Emit("break;")
			c.buf.NewLine()
		}
		c.buf.Dedent()
	}

	if elseClause != nil {
		c.buf.Emit("default:")
		c.buf.NewLine()
		c.buf.Indent()
		if err := c.emitStatementList(ast.Statements(elseClause)); err != nil {
			return err
		}
		c.buf.Dedent()
	}

	c.buf.Dedent()
	c.buf.Emit("}")
	return nil
}

func caseParts(n *ast.Node) (whens []*ast.Node, elseClause *ast.Node) {
	for i := 1; i < len(n.Children)-1; i++ {
		if w, ok := n.Child(i).(*ast.Node); ok && w.Kind == ast.KindWhen {
			whens = append(whens, w)
		}
	}
	elseClause = n.ChildNode(len(n.Children) - 1)
	return whens, elseClause
}

// emitRangePredicate renders one `switch (true)` arm's test:
// `subj >= lo && subj <= hi` (or `<` for exclusive), or `subj === cond`
// for the non-range conds sharing the switch.
func (c *Converter) emitRangePredicate(subject, cond *ast.Node) error {
	if cond.Kind != ast.KindIRange && cond.Kind != ast.KindERange {
		if err := c.emitGrouped(subject, precEquality); err != nil {
			return err
		}
		c.buf.Emit(" === ")
		return c.emitGrouped(cond, precEquality+1)
	}
	lo := cond.ChildNode(0)
	hi := cond.ChildNode(1)
	if err := c.emitGrouped(subject, precCompare); err != nil {
		return err
	}
	c.buf.Emit(" >= ")
	if err := c.emitGrouped(lo, precCompare+1); err != nil {
		return err
	}
	c.buf.Emit(" && ")
	if err := c.emitGrouped(subject, precCompare); err != nil {
		return err
	}
	if cond.Kind == ast.KindIRange {
		c.buf.Emit(" <= ")
	} else {
		c.buf.Emit(" < ")
	}
	return c.emitGrouped(hi, precCompare+1)
}

// liftCaseReturns rewrites each when body (and the else clause) so its
// tail expression becomes a return, making the IIFE lift yield a value.
func liftCaseReturns(n *ast.Node) *ast.Node {
	children := make([]any, len(n.Children))
	copy(children, n.Children)
	for i := 1; i < len(children); i++ {
		w, ok := children[i].(*ast.Node)
		if !ok || w == nil {
			continue
		}
		if w.Kind == ast.KindWhen {
			body := autoreturned(w.ChildNode(1))
			children[i] = w.Updated(nil, []any{w.Child(0), anyNodeOrNil(body)})
		} else if i == len(children)-1 {
			children[i] = anyNodeOrNil(autoreturned(w))
		}
	}
	return n.Updated(nil, children)
}

func anyNodeOrNil(n *ast.Node) any {
	if n == nil {
		return nil
	}
	return n
}

func endsInReturn(stmts []*ast.Node) bool {
	if len(stmts) == 0 {
		return false
	}
	last := ast.Unwrap(stmts[len(stmts)-1])
	if last == nil {
		return false
	}
	return last.Kind == ast.KindReturn || last.Kind == ast.KindAutoReturn
}

// emitLoop renders while/until. A body containing `redo` opts into the
// redo$ sentinel loop: each iteration runs the body in a do/while that
// repeats while redo$ is set.
func (c *Converter) emitLoop(n *ast.Node, negate bool) error {
	cond := n.ChildNode(0)
	body := n.ChildNode(1)

	c.buf.Emit("while (")
	if negate {
		c.buf.Emit("!(")
	}
	if err := c.emitCondition(cond); err != nil {
		return err
	}
	if negate {
		c.buf.Emit(")")
	}
	c.buf.Emit(") {")
	c.buf.NewLine()
	c.buf.Indent()
	c.pushScope(false)

	if containsRedo(body) {
		c.buf.Emit("let redo$;")
		c.buf.NewLine()
		c.buf.Emit("do {")
		c.buf.NewLine()
		c.buf.Indent()
		c.buf.Emit("redo$ = false;")
		c.buf.NewLine()
		if err := c.emitStatementList(ast.Statements(body)); err != nil {
			return err
		}
		c.buf.Dedent()
		c.buf.Emit("} while (redo$);")
		c.buf.NewLine()
	} else {
		if err := c.emitStatementList(ast.Statements(body)); err != nil {
			return err
		}
	}

	c.popScope()
	c.buf.Dedent()
	c.buf.Emit("}")
	return nil
}

// containsRedo reports whether body mentions redo outside a nested loop
// (nested loops own their redo).
func containsRedo(n *ast.Node) bool {
	if n == nil {
		return false
	}
	if n.Kind == ast.KindRedo {
		return true
	}
	switch n.Kind {
	case ast.KindWhile, ast.KindUntil, ast.KindFor, ast.KindForOf,
		ast.KindWhilePost, ast.KindUntilPost, ast.KindBlock, ast.KindNumBlock,
		ast.KindDef, ast.KindDefS:
		return false
	}
	for _, ch := range n.Children {
		switch v := ch.(type) {
		case *ast.Node:
			if containsRedo(v) {
				return true
			}
		case []*ast.Node:
			for _, item := range v {
				if containsRedo(item) {
					return true
				}
			}
		}
	}
	return false
}

// emitPostLoop lowers the modifier form `begin...end while cond` to JS
// `do {...} while (cond)`, the one loop shape keeping post-test semantics.
func (c *Converter) emitPostLoop(n *ast.Node, negate bool) error {
	cond := n.ChildNode(0)
	body := n.ChildNode(1)
	c.buf.Emit("do {")
	c.buf.NewLine()
	c.buf.Indent()
	c.pushScope(false)
	if err := c.emitStatementList(ast.Statements(body)); err != nil {
		return err
	}
	c.popScope()
	c.buf.Dedent()
	c.buf.Emit("} while (")
	if negate {
		c.buf.Emit("!(")
	}
	if err := c.emitCondition(cond); err != nil {
		return err
	}
	if negate {
		c.buf.Emit(")")
	}
	c.buf.Emit(")")
	return nil
}

// emitFor lowers `for x in collection`. An inclusive/exclusive range
// becomes a C-style for with `++` (or the step form,); any
// other collection iterates with for...of.
func (c *Converter) emitFor(n *ast.Node) error {
	target := n.ChildNode(0)
	collection := n.ChildNode(1)
	body := n.ChildNode(2)

	if collection != nil {
		switch collection.Kind {
		case ast.KindIRange, ast.KindERange:
			return c.emitRangeFor(target, collection, nil, body)
		case ast.KindSend:
			if collection.Method() == "step" && collection.Recv() != nil &&
				(collection.Recv().Kind == ast.KindIRange || collection.Recv().Kind == ast.KindERange) {
				return c.emitRangeFor(target, collection.Recv(), collection.Args(), body)
			}
		}
	}
	return c.emitForOf(n)
}

func (c *Converter) emitRangeFor(target, rng *ast.Node, stepArgs []*ast.Node, body *ast.Node) error {
	name := target.ChildString(0)
	param := ast.New(ast.KindArg, target.GetLoc(), name)
	return c.emitSteppedFor(rng, stepArgs, param, body)
}

func (c *Converter) emitForOf(n *ast.Node) error {
	target := n.ChildNode(0)
	collection := n.ChildNode(1)
	body := n.ChildNode(2)
	c.buf.Emit("for (const ")
	name := target.ChildString(0)
	if name != "" {
		c.buf.Emit(name)
	} else if err := c.emitExpr(target, ctxExpr); err != nil {
		return err
	}
	c.buf.Emit(" of ")
	if err := c.emitExpr(collection, ctxExpr); err != nil {
		return err
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

func (c *Converter) emitReturn(n *ast.Node) error {
	c.buf.Emit("return")
	if len(n.Children) > 0 && n.ChildNode(0) != nil {
		c.buf.Emit(" ")
		return c.emitExpr(n.ChildNode(0), ctxExpr)
	}
	return nil
}

func (c *Converter) emitYield(n *ast.Node) error {
	// on_yield compiles to a call of the implicit block parameter.
	c.buf.Emit("_implicitBlockYield(")
	for i, ch := range n.Children {
		if i > 0 {
			c.buf.Emit(", ")
		}
		arg, ok := ch.(*ast.Node)
		if !ok {
			continue
		}
		if err := c.emitExpr(arg, ctxExpr); err != nil {
			return err
		}
	}
	c.buf.Emit(")")
	return nil
}

// emitKwBegin lowers kwbegin(rescue/ensure) to try/catch/finally. A retry
// anywhere in a rescue clause wraps the whole construct in `while (true)`
// with a break on successful completion; a single catch-all rescue with no
// bound variable compiles to a bare `catch {}` on ES2019+.
func (c *Converter) emitKwBegin(n *ast.Node, ctx exprContext) error {
	if ctx == ctxExpr {
		c.buf.Emit("(() => {")
		c.buf.NewLine()
		c.buf.Indent()
		c.pushScope(true)
		if err := c.emitKwBegin(liftKwBeginReturns(n), ctxStatement); err != nil {
			return err
		}
		c.buf.NewLine()
		c.popScope()
		c.buf.Dedent()
		c.buf.Emit("})()")
		return nil
	}

	inner := n.ChildNode(0)
	if inner == nil {
		return nil
	}
	ensureBody, rescueNode, plainBody := splitEnsure(inner)

	// A kwbegin with neither rescue nor ensure is just a statement group.
	if rescueNode == nil && ensureBody == nil {
		return c.emitStatementList(ast.Statements(plainBody))
	}

	retrying := rescueNode != nil && rescueContainsRetry(rescueNode)
	if retrying {
		c.buf.Emit("while (true) {")
		c.buf.NewLine()
		c.buf.Indent()
	}

	c.buf.Emit("try {")
	c.buf.NewLine()
	c.buf.Indent()
	c.pushScope(false)

	bodyStmts := ast.Statements(plainBody)
	if rescueNode != nil {
		bodyStmts = ast.Statements(rescueNode.ChildNode(0))
	}
	if err := c.emitStatementList(bodyStmts); err != nil {
		return err
	}
	if retrying {
		c.buf.Emit("break;")
		c.buf.NewLine()
	}
	c.popScope()
	c.buf.Dedent()

	if rescueNode != nil {
		catchVar, bare := catchBinding(rescueNode, c.opts.ESLevel)
		if bare {
			c.buf.Emit("} catch {")
		} else {
			c.buf.Emit("} catch (" + catchVar + ") {")
		}
		c.buf.NewLine()
		c.buf.Indent()
		c.pushScope(false)
		if err := c.emitResbodies(rescueNode, catchVar); err != nil {
			return err
		}
		c.popScope()
		c.buf.Dedent()
	}
	c.buf.Emit("}")

	if ensureBody != nil {
		c.buf.Emit(" finally {")
		c.buf.NewLine()
		c.buf.Indent()
		c.pushScope(false)
		if err := c.emitStatementList(ast.Statements(ensureBody)); err != nil {
			return err
		}
		c.popScope()
		c.buf.Dedent()
		c.buf.Emit("}")
	}

	if retrying {
		c.buf.NewLine()
		c.buf.Dedent()
		c.buf.Emit("}")
	}
	return nil
}

// liftKwBeginReturns threads autoreturn through the rescue body and each
// resbody so the IIFE lift of a begin-as-expression yields its value.
func liftKwBeginReturns(n *ast.Node) *ast.Node {
	inner := n.ChildNode(0)
	if inner == nil {
		return n
	}
	rewrite := func(rescueNode *ast.Node) *ast.Node {
		children := make([]any, len(rescueNode.Children))
		copy(children, rescueNode.Children)
		children[0] = anyNodeOrNil(autoreturned(rescueNode.ChildNode(0)))
		for i := 1; i < len(children)-1; i++ {
			rb, ok := children[i].(*ast.Node)
			if !ok || rb == nil || rb.Kind != ast.KindResbody {
				continue
			}
			rbChildren := make([]any, len(rb.Children))
			copy(rbChildren, rb.Children)
			rbChildren[len(rbChildren)-1] = anyNodeOrNil(autoreturned(rb.ChildNode(len(rb.Children) - 1)))
			children[i] = rb.Updated(nil, rbChildren)
		}
		return rescueNode.Updated(nil, children)
	}
	switch inner.Kind {
	case ast.KindRescue:
		return n.Updated(nil, []any{rewrite(inner)})
	case ast.KindEnsure:
		body := inner.ChildNode(0)
		if body != nil && body.Kind == ast.KindRescue {
			updated := inner.Updated(nil, []any{rewrite(body), inner.Child(1)})
			return n.Updated(nil, []any{updated})
		}
		return n
	}
	// Plain statement group: the tail expression is the value.
	return n.Updated(nil, []any{anyNodeOrNil(autoreturned(inner))})
}

func rescueContainsRetry(rescueNode *ast.Node) bool {
	for i := 1; i < len(rescueNode.Children)-1; i++ {
		rb, ok := rescueNode.Child(i).(*ast.Node)
		if !ok {
			continue
		}
		if subtreeContains(rb, ast.KindRetry) {
			return true
		}
	}
	return false
}

func subtreeContains(n *ast.Node, kind ast.Kind) bool {
	if n == nil {
		return false
	}
	if n.Kind == kind {
		return true
	}
	for _, ch := range n.Children {
		switch v := ch.(type) {
		case *ast.Node:
			if subtreeContains(v, kind) {
				return true
			}
		case []*ast.Node:
			for _, item := range v {
				if subtreeContains(item, kind) {
					return true
				}
			}
		}
	}
	return false
}

// splitEnsure unpacks the kwbegin inner node into its ensure body, rescue
// node, and plain body (whichever are present).
func splitEnsure(n *ast.Node) (ensureBody, rescueNode, plainBody *ast.Node) {
	switch n.Kind {
	case ast.KindEnsure:
		body := n.ChildNode(0)
		ensureBody = n.ChildNode(1)
		if body != nil && body.Kind == ast.KindRescue {
			return ensureBody, body, nil
		}
		return ensureBody, nil, body
	case ast.KindRescue:
		return nil, n, nil
	}
	return nil, nil, n
}

// catchBinding picks the catch variable: the first resbody's bound name,
// or `e$` when none binds one. bare is true when no clause binds a
// variable, no clause filters by class, and the ES level supports the
// optional catch binding (2019+).
func catchBinding(rescueNode *ast.Node, eslevel int) (name string, bare bool) {
	name = "e$"
	bound := false
	filtered := false
	for i := 1; i < len(rescueNode.Children)-1; i++ {
		rb, ok := rescueNode.Child(i).(*ast.Node)
		if !ok {
			continue
		}
		if len(rb.ChildNodes(0)) > 0 {
			filtered = true
		}
		if ref := rb.ChildNode(1); ref != nil && !bound {
			name = ref.ChildString(0)
			bound = true
		}
	}
	return name, !bound && !filtered && eslevel >= 2019
}

// emitResbodies renders rescue clauses: class-filtered clauses become an
// if/else-if chain over instanceof tests, with the bare `String` class
// special-cased to a typeof test.
func (c *Converter) emitResbodies(rescueNode *ast.Node, catchVar string) error {
	var resbodies []*ast.Node
	for i := 1; i < len(rescueNode.Children)-1; i++ {
		if rb, ok := rescueNode.Child(i).(*ast.Node); ok && rb != nil {
			resbodies = append(resbodies, rb)
		}
	}

	filtered := false
	for _, rb := range resbodies {
		if len(rb.ChildNodes(0)) > 0 {
			filtered = true
		}
	}

	for i, rb := range resbodies {
		classes := rb.ChildNodes(0)
		body := rb.ChildNode(len(rb.Children) - 1)
		if ref := rb.ChildNode(1); ref != nil && ref.ChildString(0) != catchVar {
			c.buf.Emit("let " + ref.ChildString(0) + " = " + catchVar + ";")
			c.buf.NewLine()
		}
		if len(classes) == 0 {
			if filtered {
				if i > 0 {
					c.buf.Emit("else {")
					c.buf.NewLine()
					c.buf.Indent()
				}
				if err := c.emitStatementList(ast.Statements(body)); err != nil {
					return err
				}
				if i > 0 {
					c.buf.Dedent()
					c.buf.Emit("}")
					c.buf.NewLine()
				}
			} else if err := c.emitStatementList(ast.Statements(body)); err != nil {
				return err
			}
			continue
		}
		if i > 0 {
			c.buf.Emit("else ")
		}
		c.buf.Emit("if (")
		for j, cls := range classes {
			if j > 0 {
				c.buf.Emit(" || ")
			}
			if cls.Kind == ast.KindConst && ast.ConstName(cls) == "String" {
				c.buf.Emit("typeof " + catchVar + ` === "string"`)
				continue
			}
			c.buf.Emit(catchVar + " instanceof ")
			if err := c.emitExpr(cls, ctxExpr); err != nil {
				return err
			}
		}
		c.buf.Emit(") {")
		c.buf.NewLine()
		c.buf.Indent()
		if err := c.emitStatementList(ast.Statements(body)); err != nil {
			return err
		}
		c.buf.Dedent()
		c.buf.Emit("}")
		c.buf.NewLine()
	}

	if filtered {
		// No clause matched: rethrow so unknown exceptions escape.
		c.buf.Emit("else {")
		c.buf.NewLine()
		c.buf.Indent()
		c.buf.Emit("throw " + catchVar + ";")
		c.buf.NewLine()
		c.buf.Dedent()
		c.buf.Emit("}")
		c.buf.NewLine()
	}

	if elseClause := rescueNode.ChildNode(len(rescueNode.Children) - 1); elseClause != nil {
		if err := c.emitStatementList(ast.Statements(elseClause)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Converter) emitSuper(n *ast.Node) error {
	c.buf.Emit("super(")
	first := true
	for _, ch := range n.Children {
		arg, ok := ch.(*ast.Node)
		if !ok {
			continue
		}
		if !first {
			c.buf.Emit(", ")
		}
		first = false
		if err := c.emitExpr(arg, ctxExpr); err != nil {
			return err
		}
	}
	c.buf.Emit(")")
	return nil
}

// emitImport renders the import nodes filters hoist through the prepend
// list: import(names []string, from string) — under `module: "cjs"` the
// same node spells a require destructuring.
func (c *Converter) emitImport(n *ast.Node) error {
	names, _ := n.Child(0).([]string)
	from := n.ChildString(1)
	if c.opts.Module == "cjs" {
		c.buf.Emit("const {" + strings.Join(names, ", ") + "} = require(" + strconv.Quote(from) + ")")
		return nil
	}
	c.buf.Emit("import {" + strings.Join(names, ", ") + "} from " + strconv.Quote(from))
	return nil
}

// emitXStr renders a backtick x-string as a call to the caller-supplied
// binding's shellExec hook. The security check (x-strings without a
// binding option are fatal,) runs in srcjs.Convert before the
// converter is reached.
func (c *Converter) emitXStr(n *ast.Node) error {
	c.buf.Emit("shellExec(")
	if err := c.emitTemplateLiteral(ast.New(ast.KindDstr, n.Loc, n.Children...)); err != nil {
		return err
	}
	c.buf.Emit(")")
	return nil
}

// emitRange renders a bare range in expression position as an eagerly
// materialized array (`(a..b).to_a` routes here too).
func (c *Converter) emitRange(n *ast.Node) error {
	lo := n.ChildNode(0)
	hi := n.ChildNode(1)
	op := "<="
	if n.Kind == ast.KindERange {
		op = "<"
	}
	c.buf.Emit("Array.from({length: (")
	if err := c.emitExpr(lo, ctxExpr); err != nil {
		return err
	}
	c.buf.Emit(" " + op + " ")
	if err := c.emitExpr(hi, ctxExpr); err != nil {
		return err
	}
	c.buf.Emit(" ? ")
	if err := c.emitExpr(hi, ctxExpr); err != nil {
		return err
	}
	c.buf.Emit(" - ")
	if err := c.emitExpr(lo, ctxExpr); err != nil {
		return err
	}
	if n.Kind == ast.KindERange {
		c.buf.Emit(" : 0)")
	} else {
		c.buf.Emit(" + 1 : 0)")
	}
	c.buf.Emit("}, (_, i) => i + ")
	if err := c.emitExpr(lo, ctxExpr); err != nil {
		return err
	}
	c.buf.Emit(")")
	return nil
}

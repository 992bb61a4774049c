package convert

import (
	"sort"
	"strings"

	"github.com/oxhq/srcjs/ast"
	"github.com/oxhq/srcjs/namespace"
)

// classParts is the structural partition of a class body: the converter
// sorts every body statement into one of these buckets before deciding
// the emission shape.
type classParts struct {
	constructor   *ast.Node   // def initialize
	methods       []*ast.Node // def (instance)
	statics       []*ast.Node // defs / def self.x
	readers       []string    // attr_reader / attr_accessor
	writers       []string    // attr_writer / attr_accessor
	consts        []*ast.Node // casgn
	includes      []*ast.Node // include M
	nested        []*ast.Node // nested class/module
	methodMissing *ast.Node
	ivars         []string // every @ivar mentioned anywhere in the body
	private       map[string]bool
	other         []*ast.Node
}

// partitionClass walks the body statements and buckets them. Visibility
// markers (`private` / `public` / `protected`) flip the mode for every
// def that follows, matching SRC's statement-ordered visibility.
func (c *Converter) partitionClass(body *ast.Node) (*classParts, error) {
	parts := &classParts{private: make(map[string]bool)}
	mode := "public"
	for _, stmt := range ast.Statements(body) {
		stmt := ast.Unwrap(stmt)
		if stmt == nil {
			continue
		}
		switch stmt.Kind {
		case ast.KindDef:
			name := stmt.ChildString(0)
			switch {
			case name == "initialize":
				parts.constructor = stmt
			case name == "method_missing":
				parts.methodMissing = stmt
			default:
				parts.methods = append(parts.methods, stmt)
				if mode != "public" {
					parts.private[name] = true
				}
			}
		case ast.KindDefS:
			parts.statics = append(parts.statics, stmt)
		case ast.KindCAsgn:
			parts.consts = append(parts.consts, stmt)
		case ast.KindClass, ast.KindModule:
			parts.nested = append(parts.nested, stmt)
		case ast.KindSend:
			if stmt.Recv() != nil {
				parts.other = append(parts.other, stmt)
				break
			}
			switch stmt.Method() {
			case "attr_accessor":
				for _, s := range symArgs(stmt) {
					parts.readers = append(parts.readers, s)
					parts.writers = append(parts.writers, s)
				}
			case "attr_reader":
				parts.readers = append(parts.readers, symArgs(stmt)...)
			case "attr_writer":
				parts.writers = append(parts.writers, symArgs(stmt)...)
			case "include":
				parts.includes = append(parts.includes, stmt.Args()...)
			case "private":
				if len(stmt.Args()) == 0 {
					mode = "private"
				} else {
					for _, s := range symArgs(stmt) {
						parts.private[s] = true
					}
				}
			case "public":
				mode = "public"
			case "protected":
				mode = "protected"
			default:
				parts.other = append(parts.other, stmt)
			}
		default:
			parts.other = append(parts.other, stmt)
		}
	}
	collectIvarNames(body, &parts.ivars)
	return parts, nil
}

func symArgs(send *ast.Node) []string {
	var out []string
	for _, a := range send.Args() {
		if a.Kind == ast.KindSym {
			out = append(out, a.ChildString(0))
		}
	}
	return out
}

func collectIvarNames(n *ast.Node, out *[]string) {
	if n == nil {
		return
	}
	if n.Kind == ast.KindIVar || n.Kind == ast.KindIVAsgn {
		name := strings.TrimPrefix(n.ChildString(0), "@")
		for _, seen := range *out {
			if seen == name {
				return
			}
		}
		*out = append(*out, name)
	}
	for _, c := range n.Children {
		switch v := c.(type) {
		case *ast.Node:
			collectIvarNames(v, out)
		case []*ast.Node:
			for _, item := range v {
				collectIvarNames(item, out)
			}
		}
	}
}

// privatePrefix is the spelling for private members: `#` on 2022+ unless
// the underscored_private option holds it back to `_`.
func (c *Converter) privatePrefix() string {
	if c.opts.ESLevel >= 2022 && !c.opts.UnderscoredPrivate {
		return "#"
	}
	return "_"
}

// fieldsDeclarable reports whether ivars become declared class fields
// (2022+, non-underscored mode).
func (c *Converter) fieldsDeclarable() bool {
	return c.opts.ESLevel >= 2022 && !c.opts.UnderscoredPrivate
}

// emitClass decides the class shape structurally. Redeclaring a name the
// namespace has already seen selects the class_extend path (merge into the
// existing object); everything else takes the class2 native-declaration
// path.
func (c *Converter) emitClass(n *ast.Node) error {
	name := ast.ConstName(n.ChildNode(0))
	super := n.ChildNode(1)
	body := n.ChildNode(2)

	previous := c.ns.Enter(name)
	defer c.ns.Leave()

	parts, err := c.partitionClass(body)
	if err != nil {
		return err
	}
	c.declareClassSymbols(parts)

	if previous != nil {
		return c.emitClassExtend(name, parts)
	}
	return c.emitClass2(n, name, super, parts)
}

// declareClassSymbols registers every member with the namespace tracker so
// send dispatch inside the body resolves `this.` calls, private prefixes,
// and autobinding.
func (c *Converter) declareClassSymbols(parts *classParts) {
	prefix := c.privatePrefix()
	for _, m := range parts.methods {
		name := m.ChildString(0)
		if parts.private[name] {
			c.ns.Declare(name, namespace.Capability{Kind: "private_method", Prefix: prefix})
		} else {
			c.ns.Declare(name, namespace.Capability{Kind: "autobind"})
		}
	}
	if parts.constructor != nil {
		c.ns.Declare("initialize", namespace.Capability{Kind: "self"})
	}
	for _, r := range parts.readers {
		c.ns.Declare(r, namespace.Capability{Kind: "self"})
	}
	for _, w := range parts.writers {
		c.ns.Declare(w+"=", namespace.Capability{Kind: "setter"})
	}
}

func (c *Converter) emitClass2(n *ast.Node, name string, super *ast.Node, parts *classParts) error {
	c.classes = append(c.classes, classFrame{shape: "class2", name: name})
	defer func() { c.classes = c.classes[:len(c.classes)-1] }()

	c.buf.EmitLoc("class "+name, n.Loc, name)
	if super != nil {
		c.buf.Emit(" extends ")
		if err := c.emitExpr(super, ctxExpr); err != nil {
			return err
		}
	}
	c.buf.Emit(" {")
	c.buf.NewLine()
	c.buf.Indent()

	prefix := c.privatePrefix()

	// Instance-variable field declarations are hoisted to the top of the
	// class in 2022+ non-underscored mode.
	if c.fieldsDeclarable() {
		fields := c.fieldNames(parts)
		for _, f := range fields {
			c.buf.Emit("#" + f + ";")
			c.buf.NewLine()
		}
	}

	if parts.constructor != nil {
		if err := c.emitConstructor(parts.constructor); err != nil {
			return err
		}
	}

	for _, r := range parts.readers {
		c.buf.Emit("get " + r + "() {")
		c.buf.NewLine()
		c.buf.Indent()
		c.buf.Emit("return this." + c.fieldRef(r, prefix) + ";")
		c.buf.NewLine()
		c.buf.Dedent()
		c.buf.Emit("}")
		c.buf.NewLine()
	}
	for _, w := range parts.writers {
		c.buf.Emit("set " + w + "(" + w + ") {")
		c.buf.NewLine()
		c.buf.Indent()
		c.buf.Emit("this." + c.fieldRef(w, prefix) + " = " + w + ";")
		c.buf.NewLine()
		c.buf.Dedent()
		c.buf.Emit("}")
		c.buf.NewLine()
	}

	for _, m := range parts.methods {
		if err := c.emitClassMethod(m, parts.private[m.ChildString(0)], false); err != nil {
			return err
		}
	}
	for _, s := range parts.statics {
		if err := c.emitClassMethod(s, false, true); err != nil {
			return err
		}
	}
	if parts.methodMissing != nil {
		if err := c.emitClassMethod(parts.methodMissing, false, false); err != nil {
			return err
		}
	}

	for _, cst := range parts.consts {
		c.buf.Emit("static " + ast.ConstName(cst.ChildNode(0)) + " = ")
		if err := c.emitExpr(cst.ChildNode(1), ctxExpr); err != nil {
			return err
		}
		c.buf.Emit(";")
		c.buf.NewLine()
	}

	c.buf.Dedent()
	c.buf.Emit("}")

	for _, inc := range parts.includes {
		c.buf.Emit(";")
		c.buf.NewLine()
		c.buf.Emit("Object.assign(" + name + ".prototype, ")
		if err := c.emitExpr(inc, ctxExpr); err != nil {
			return err
		}
		c.buf.Emit(")")
	}

	for _, nested := range parts.nested {
		c.buf.Emit(";")
		c.buf.NewLine()
		if err := c.emitExpr(nested, ctxStatement); err != nil {
			return err
		}
	}

	if parts.methodMissing != nil {
		c.buf.Emit(";")
		c.buf.NewLine()
		c.emitMethodMissingProxy(name)
	}
	return nil
}

// fieldNames returns the sorted set of ivar-backed fields, folding in
// accessor storage so `attr_accessor :x` on 2022+ declares `#x` even when
// no method body mentions `@x`.
func (c *Converter) fieldNames(parts *classParts) []string {
	set := make(map[string]bool)
	for _, f := range parts.ivars {
		set[f] = true
	}
	for _, r := range parts.readers {
		set[r] = true
	}
	for _, w := range parts.writers {
		set[w] = true
	}
	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (c *Converter) fieldRef(name, prefix string) string {
	if c.fieldsDeclarable() {
		return "#" + name
	}
	return prefix + name
}

// emitConstructor renders `def initialize` as the one constructor the
// emitted class carries, its parameter list preserved (its
// parameter list must match initialize's).
func (c *Converter) emitConstructor(def *ast.Node) error {
	params := def.ChildNodes(1)
	body := def.ChildNode(2)
	c.buf.EmitLoc("constructor", def.Loc, "initialize")
	if err := c.emitParamList(params); err != nil {
		return err
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
	c.buf.NewLine()
	return nil
}

func (c *Converter) emitClassMethod(def *ast.Node, private, static bool) error {
	var name string
	var params []*ast.Node
	var body *ast.Node
	if static {
		name = def.ChildString(1)
		params = def.ChildNodes(2)
		body = def.ChildNode(3)
	} else {
		name = def.ChildString(0)
		params = def.ChildNodes(1)
		body = def.ChildNode(2)
	}

	if static {
		c.buf.Emit("static ")
	}
	emitted := jsMethodName(name)
	if private {
		emitted = c.privatePrefix() + emitted
	}
	// Accessor-style defs (no parens, no args in source) become getters.
	if !static && !ast.IsMethodStyle(def, params) {
		c.buf.Emit("get ")
		body = autoreturned(body)
	}
	c.buf.EmitLoc(emitted, def.Loc, name)
	if err := c.emitParamList(params); err != nil {
		return err
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
	c.buf.NewLine()
	return nil
}

// autoreturned wraps body in autoreturn unless it already is one, so
// accessor-style defs return their tail expression.
func autoreturned(body *ast.Node) *ast.Node {
	if body == nil || body.Kind == ast.KindAutoReturn {
		return body
	}
	return ast.New(ast.KindAutoReturn, body.GetLoc(), body)
}

// emitMethodMissingProxy defines the `ClassName$` Proxy-wrapping
// factory: construction through it yields an
// instance whose unknown property reads forward to method_missing.
func (c *Converter) emitMethodMissingProxy(name string) {
	c.buf.Emit("const " + name + "$ = new Proxy(" + name + ", {")
	c.buf.NewLine()
	c.buf.Indent()
	c.buf.Emit("construct(target, args) {")
	c.buf.NewLine()
	c.buf.Indent()
	c.buf.Emit("const obj = new target(...args);")
	c.buf.NewLine()
	c.buf.Emit("return new Proxy(obj, {")
	c.buf.NewLine()
	c.buf.Indent()
	c.buf.Emit("get(o, prop) {")
	c.buf.NewLine()
	c.buf.Indent()
	c.buf.Emit("if (prop in o) return o[prop];")
	c.buf.NewLine()
	c.buf.Emit("return (...margs) => o.method_missing(prop, ...margs);")
	c.buf.NewLine()
	c.buf.Dedent()
	c.buf.Emit("}")
	c.buf.NewLine()
	c.buf.Dedent()
	c.buf.Emit("});")
	c.buf.NewLine()
	c.buf.Dedent()
	c.buf.Emit("}")
	c.buf.NewLine()
	c.buf.Dedent()
	c.buf.Emit("})")
}

// emitClassExtend merges members into an already-declared target instead
// of redeclaring it (the class_extend shape): methods land on the
// prototype, statics on the constructor object itself.
func (c *Converter) emitClassExtend(name string, parts *classParts) error {
	c.classes = append(c.classes, classFrame{shape: "class_extend", name: name})
	defer func() { c.classes = c.classes[:len(c.classes)-1] }()

	c.buf.Emit("Object.assign(" + name + ".prototype, {")
	c.buf.NewLine()
	c.buf.Indent()
	for i, m := range parts.methods {
		if i > 0 {
			c.buf.Emit(",")
			c.buf.NewLine()
		}
		if err := c.emitObjectMethod(m); err != nil {
			return err
		}
	}
	c.buf.NewLine()
	c.buf.Dedent()
	c.buf.Emit("})")
	for _, s := range parts.statics {
		c.buf.Emit(";")
		c.buf.NewLine()
		name2 := s.ChildString(1)
		c.buf.Emit(name + "." + jsMethodName(name2) + " = function")
		if err := c.emitParamList(s.ChildNodes(2)); err != nil {
			return err
		}
		c.buf.Emit(" {")
		c.buf.NewLine()
		c.buf.Indent()
		c.pushScope(true)
		if err := c.emitStatementList(ast.Statements(s.ChildNode(3))); err != nil {
			return err
		}
		c.popScope()
		c.buf.Dedent()
		c.buf.Emit("}")
	}

	// Accessors merge as property descriptors; descriptor emission is the
	// defineProperty/defineProperties arm of the assignment normalization.
	prefix := c.privatePrefix()
	for _, r := range parts.readers {
		c.buf.Emit(";")
		c.buf.NewLine()
		c.buf.Emit("Object.defineProperty(" + name + ".prototype, \"" + r + "\", {")
		c.buf.NewLine()
		c.buf.Indent()
		c.buf.Emit("get() { return this." + prefix + r + "; },")
		c.buf.NewLine()
		if containsString(parts.writers, r) {
			c.buf.Emit("set(" + r + ") { this." + prefix + r + " = " + r + "; },")
			c.buf.NewLine()
		}
		c.buf.Emit("enumerable: true")
		c.buf.NewLine()
		c.buf.Dedent()
		c.buf.Emit("})")
	}

	// Constants are plain values and take the Object.assign arm.
	if len(parts.consts) > 0 {
		c.buf.Emit(";")
		c.buf.NewLine()
		pairs := make([]*ast.Node, 0, len(parts.consts))
		for _, cst := range parts.consts {
			key := ast.New(ast.KindSym, cst.GetLoc(), ast.ConstName(cst.ChildNode(0)))
			pairs = append(pairs, ast.New(ast.KindPair, cst.GetLoc(), key, cst.ChildNode(1)))
		}
		if err := c.onAssign(name, []*ast.Node{ast.New(ast.KindHash, nil, pairs)}); err != nil {
			return err
		}
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// emitObjectMethod renders a def as an object-literal shorthand method,
// the spelling the class_hash/class_module/class_extend shapes share.
func (c *Converter) emitObjectMethod(def *ast.Node) error {
	name := def.ChildString(0)
	params := def.ChildNodes(1)
	body := def.ChildNode(2)
	c.buf.EmitLoc(jsMethodName(name), def.Loc, name)
	if err := c.emitParamList(params); err != nil {
		return err
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

// emitModule lowers a module. A body of only defs/classes/modules becomes
// a plain object of exported members (the nested class-object shape);
// anything else compiles to an IIFE that declares its locals privately and
// returns a hash of the exported names, visibility markers gating
// inclusion.
func (c *Converter) emitModule(n *ast.Node) error {
	name := ast.ConstName(n.ChildNode(0))
	c.buf.EmitLoc("const "+name+" = ", n.Loc, name)
	return c.emitModuleValue(n)
}

// emitModuleValue renders the module's value expression (object literal or
// IIFE), without the `const name = ` binding, so a nested module can sit
// in an enclosing object's value position.
func (c *Converter) emitModuleValue(n *ast.Node) error {
	name := ast.ConstName(n.ChildNode(0))
	body := n.ChildNode(1)

	c.ns.Enter(name)
	defer c.ns.Leave()

	parts, err := c.partitionClass(body)
	if err != nil {
		return err
	}
	c.declareClassSymbols(parts)

	onlyDecls := len(parts.other) == 0 && parts.constructor == nil &&
		len(parts.readers) == 0 && len(parts.writers) == 0 &&
		len(parts.consts) == 0

	c.classes = append(c.classes, classFrame{shape: "class_module", name: name})
	defer func() { c.classes = c.classes[:len(c.classes)-1] }()

	if onlyDecls {
		return c.emitModuleObject(n, name, parts)
	}
	return c.emitModuleIIFE(n, name, parts)
}

func (c *Converter) emitModuleObject(n *ast.Node, name string, parts *classParts) error {
	c.buf.Emit("{")
	c.buf.NewLine()
	c.buf.Indent()
	first := true
	sep := func() {
		if !first {
			c.buf.Emit(",")
			c.buf.NewLine()
		}
		first = false
	}
	for _, m := range parts.methods {
		if parts.private[m.ChildString(0)] {
			continue
		}
		sep()
		if err := c.emitObjectMethod(m); err != nil {
			return err
		}
	}
	for _, cst := range parts.consts {
		sep()
		c.buf.Emit(ast.ConstName(cst.ChildNode(0)) + ": ")
		if err := c.emitExpr(cst.ChildNode(1), ctxExpr); err != nil {
			return err
		}
	}
	for _, nested := range parts.nested {
		sep()
		nestedName := ast.ConstName(nested.ChildNode(0))
		c.buf.Emit(nestedName + ": ")
		if nested.Kind == ast.KindModule {
			if err := c.emitModuleValue(nested); err != nil {
				return err
			}
			continue
		}
		if err := c.emitExpr(nested, ctxExpr); err != nil {
			return err
		}
	}
	c.buf.NewLine()
	c.buf.Dedent()
	c.buf.Emit("}")
	return nil
}

func (c *Converter) emitModuleIIFE(n *ast.Node, name string, parts *classParts) error {
	c.buf.Emit("(() => {")
	c.buf.NewLine()
	c.buf.Indent()
	c.pushScope(true)

	var exports []string
	for _, m := range parts.methods {
		mname := m.ChildString(0)
		c.buf.Emit("function " + jsMethodName(mname))
		if err := c.emitParamList(m.ChildNodes(1)); err != nil {
			return err
		}
		c.buf.Emit(" {")
		c.buf.NewLine()
		c.buf.Indent()
		c.pushScope(true)
		if err := c.emitStatementList(ast.Statements(m.ChildNode(2))); err != nil {
			return err
		}
		c.popScope()
		c.buf.Dedent()
		c.buf.Emit("}")
		c.buf.NewLine()
		if !parts.private[mname] {
			exports = append(exports, jsMethodName(mname))
		}
	}
	for _, cst := range parts.consts {
		cname := ast.ConstName(cst.ChildNode(0))
		c.buf.Emit("const " + cname + " = ")
		if err := c.emitExpr(cst.ChildNode(1), ctxExpr); err != nil {
			return err
		}
		c.buf.Emit(";")
		c.buf.NewLine()
		exports = append(exports, cname)
	}
	for _, stmt := range parts.other {
		if err := c.emitStatement(stmt); err != nil {
			return err
		}
	}
	c.buf.Emit("return {" + strings.Join(exports, ", ") + "};")
	c.buf.NewLine()
	c.popScope()
	c.buf.Dedent()
	c.buf.Emit("})()")
	return nil
}

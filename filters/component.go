package filters

import (
	"sort"
	"strings"

	"github.com/oxhq/srcjs/ast"
)

// htmlTags is the known-element table the component filter consults when
// deciding whether a receiverless send is a tag emission rather than an
// ordinary method call.
var htmlTags = map[string]bool{
	"div": true, "span": true, "p": true, "a": true, "button": true,
	"input": true, "img": true, "ul": true, "li": true, "section": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// Component rewrites classes inheriting from a `Component` base: their
// `template` (or `view_template`) method becomes a `render(props)` method
// that concatenates HTML fragments into a local buffer, with instance
// variables turned into destructured props. Two phases: a
// collect-metadata pass over the class body, then a rewrite pass.
type Component struct{ Base }

func (Component) Name() string { return "component" }

func (f Component) Process(node *ast.Node, pc *ProcessContext) *ast.Node {
	if node == nil {
		return nil
	}
	if node.Kind == ast.KindClass && f.isComponentClass(node) {
		return f.rewriteClass(node, pc)
	}
	return f.Base.Recurse(node, pc, f)
}

func (f Component) isComponentClass(class *ast.Node) bool {
	super := class.ChildNode(1)
	return super != nil && ast.ConstName(super) == "Component"
}

func (f Component) rewriteClass(class *ast.Node, pc *ProcessContext) *ast.Node {
	name := class.ChildNode(0)
	super := class.ChildNode(1)
	body := class.ChildNode(2)
	stmts := ast.Statements(body)

	// Collect pass: every ivar this class's methods touch becomes a
	// destructured render(props) parameter, and every other method is
	// recursed into normally (and kept as-is in the output class).
	props := map[string]bool{}
	var templateBody *ast.Node
	var other []*ast.Node
	for _, stmt := range stmts {
		collectIvars(stmt, props)
		if stmt.Kind == ast.KindDef && (stmt.ChildString(0) == "template" || stmt.ChildString(0) == "view_template") {
			templateBody = stmt.ChildNode(2)
			continue
		}
		other = append(other, f.Base.Recurse(stmt, pc, f))
	}

	propNames := make([]string, 0, len(props))
	for p := range props {
		propNames = append(propNames, p)
	}
	sort.Strings(propNames)

	var newStmts []*ast.Node
	newStmts = append(newStmts, other...)
	if templateBody != nil {
		newStmts = append(newStmts, f.buildRenderMethod(templateBody, propNames))
	}

	newBody := ast.Begin(body.GetLoc(), newStmts...)
	return ast.New(ast.KindClass, class.Loc, anyNode(name), anyNode(super), newBody)
}

func collectIvars(n *ast.Node, props map[string]bool) {
	if n == nil {
		return
	}
	if n.Kind == ast.KindIVar || n.Kind == ast.KindIVAsgn {
		props[strings.TrimPrefix(n.ChildString(0), "@")] = true
	}
	for _, c := range n.Children {
		if child, ok := c.(*ast.Node); ok {
			collectIvars(child, props)
		}
		if list, ok := c.([]*ast.Node); ok {
			for _, item := range list {
				collectIvars(item, props)
			}
		}
	}
}

// buildRenderMethod rewrites templateBody into a render(props) method: a
// `$html` local buffer, one `$html += ...` push per tag emission or
// statement, and a final `return $html`. ivar reads are rewritten to lvar
// reads of the same name against the destructured props parameter.
func (f Component) buildRenderMethod(templateBody *ast.Node, propNames []string) *ast.Node {
	loc := templateBody.GetLoc()
	paramName := "props"
	if len(propNames) > 0 {
		paramName = "{ " + strings.Join(propNames, ", ") + " }"
	}
	param := ast.New(ast.KindArg, loc, paramName)

	bufferInit := ast.New(ast.KindLVAsgn, loc, "$html", ast.New(ast.KindStr, loc, ""))

	var pushes []*ast.Node
	for _, stmt := range ast.Statements(templateBody) {
		rewritten := rewriteIvarsToProps(stmt)
		pushes = append(pushes, f.emitFragment(rewritten))
	}

	ret := ast.New(ast.KindReturn, loc, ast.New(ast.KindLVar, loc, "$html"))

	bodyStmts := append([]*ast.Node{bufferInit}, pushes...)
	bodyStmts = append(bodyStmts, ret)

	return ast.New(ast.KindDef, loc, "render", []*ast.Node{param}, ast.Begin(loc, bodyStmts...))
}

func rewriteIvarsToProps(n *ast.Node) *ast.Node {
	if n == nil {
		return nil
	}
	if n.Kind == ast.KindIVar {
		return ast.New(ast.KindLVar, n.Loc, strings.TrimPrefix(n.ChildString(0), "@"))
	}
	changed := false
	newChildren := make([]any, len(n.Children))
	for i, c := range n.Children {
		switch v := c.(type) {
		case *ast.Node:
			r := rewriteIvarsToProps(v)
			newChildren[i] = anyNode(r)
			if r != v {
				changed = true
			}
		case []*ast.Node:
			list := make([]*ast.Node, len(v))
			for j, item := range v {
				list[j] = rewriteIvarsToProps(item)
			}
			newChildren[i] = list
			changed = true
		default:
			newChildren[i] = c
		}
	}
	if !changed {
		return n
	}
	return n.Updated(nil, newChildren)
}

// emitFragment turns one template-body statement into a `$html +=
// <fragment>` op. A known HTML tag send partitions its attribute hash into
// static attributes (folded into the open-tag string literal) and dynamic
// attributes (interpolated via dstr); anything else is appended as-is,
// leaving the conversion to a string to `+=`.
func (f Component) emitFragment(stmt *ast.Node) *ast.Node {
	loc := stmt.GetLoc()
	fragment := f.tagFragment(stmt)
	if fragment == nil {
		fragment = stmt
	}
	current := ast.New(ast.KindLVar, loc, "$html")
	return ast.New(ast.KindOpAsgn, loc, current, "+", fragment)
}

// dynamicAttr is one attribute whose value must be interpolated at run
// time: the fragment carries ` name="` + value + `"` around the
// expression.
type dynamicAttr struct {
	name  string
	value *ast.Node
}

func (f Component) tagFragment(stmt *ast.Node) *ast.Node {
	if stmt == nil || stmt.Kind != ast.KindSend || stmt.Recv() != nil {
		return nil
	}
	tag := stmt.Method()
	if !htmlTags[tag] {
		return nil
	}
	loc := stmt.GetLoc()

	open := "<" + tag
	var dynamic []dynamicAttr
	for _, arg := range stmt.Args() {
		if arg.Kind != ast.KindHash {
			continue
		}
		for _, c := range arg.Children {
			pair, ok := c.(*ast.Node)
			if !ok || pair.Kind != ast.KindPair {
				continue
			}
			key := pair.ChildNode(0)
			val := pair.ChildNode(1)
			if key == nil || val == nil {
				continue
			}
			name := key.ChildString(0)
			if val.Kind.IsLiteral() {
				open += " " + name + `="` + literalText(val) + `"`
			} else {
				dynamic = append(dynamic, dynamicAttr{name: name, value: val})
			}
		}
	}

	if len(dynamic) == 0 {
		return ast.New(ast.KindDstr, loc,
			ast.New(ast.KindStr, loc, open+">"),
			ast.New(ast.KindStr, loc, "</"+tag+">"))
	}

	// Interleave str parts with the dynamic values so each renders as
	// ` name="${value}"` inside the template literal.
	var parts []any
	pending := open
	for _, d := range dynamic {
		pending += " " + d.name + `="`
		parts = append(parts, ast.New(ast.KindStr, loc, pending), d.value)
		pending = `"`
	}
	parts = append(parts, ast.New(ast.KindStr, loc, pending+"></"+tag+">"))
	return ast.New(ast.KindDstr, loc, parts...)
}

// literalText spells a literal attribute value as raw text inside the
// open-tag string.
func literalText(val *ast.Node) string {
	switch val.Kind {
	case ast.KindTrue:
		return "true"
	case ast.KindFalse:
		return "false"
	case ast.KindNil:
		return ""
	default:
		return val.ChildString(0)
	}
}

package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/srcjs/ast"
	"github.com/oxhq/srcjs/filters"
)

func render(t *testing.T, opts filters.Options, root *ast.Node) string {
	t.Helper()
	text, _, err := New(opts, nil, nil).Convert(root)
	require.NoError(t, err)
	return text
}

func renderDefault(t *testing.T, root *ast.Node) string {
	return render(t, filters.DefaultOptions(), root)
}

func lvar(name string) *ast.Node  { return ast.New(ast.KindLVar, nil, name) }
func num(text string) *ast.Node   { return ast.New(ast.KindInt, nil, text) }
func str(text string) *ast.Node   { return ast.New(ast.KindStr, nil, text) }
func sym(text string) *ast.Node   { return ast.New(ast.KindSym, nil, text) }
func constRef(n string) *ast.Node { return ast.ConstPath(nil, nil, n) }

func TestLiteralStatements(t *testing.T) {
	out := renderDefault(t, ast.Begin(nil,
		ast.New(ast.KindLVAsgn, nil, "a", num("42")),
		ast.New(ast.KindLVAsgn, nil, "b", str("hi")),
	))
	assert.Contains(t, out, `let a = 42;`)
	assert.Contains(t, out, `let b = "hi";`)
}

func TestLetOnlyOnFirstWrite(t *testing.T) {
	out := renderDefault(t, ast.Begin(nil,
		ast.New(ast.KindLVAsgn, nil, "x", num("1")),
		ast.New(ast.KindLVAsgn, nil, "x", num("2")),
	))
	assert.Contains(t, out, "let x = 1;")
	assert.Contains(t, out, "x = 2;")
	assert.Equal(t, 1, strings.Count(out, "let x"))
}

func TestEndlessMethodReturns(t *testing.T) {
	sq := ast.New(ast.KindDef, nil, "sq",
		[]*ast.Node{ast.New(ast.KindArg, nil, "x")},
		ast.New(ast.KindAutoReturn, nil, ast.Send(nil, lvar("x"), "*", lvar("x"))))
	out := renderDefault(t, sq)
	assert.Contains(t, out, "function sq(x) { return x * x; }")
}

func TestExclusiveRangeFor(t *testing.T) {
	loop := ast.New(ast.KindFor, nil,
		ast.New(ast.KindLVAsgn, nil, "i"),
		ast.New(ast.KindERange, nil, num("0"), num("3")),
		ast.Send(nil, nil, "p", lvar("i")))
	out := renderDefault(t, loop)
	assert.Contains(t, out, "for (let i = 0; i < 3; i++) { p(i); }")
}

func TestInclusiveRangeForUsesLessEqual(t *testing.T) {
	loop := ast.New(ast.KindFor, nil,
		ast.New(ast.KindLVAsgn, nil, "i"),
		ast.New(ast.KindIRange, nil, num("1"), num("5")),
		ast.Send(nil, nil, "p", lvar("i")))
	out := renderDefault(t, loop)
	assert.Contains(t, out, "for (let i = 1; i <= 5; i++)")
}

func TestCaseWithRangeSwitchesOnTrue(t *testing.T) {
	when := ast.New(ast.KindWhen, nil,
		[]*ast.Node{ast.New(ast.KindIRange, nil, num("0"), num("3"))},
		str("low"))
	caseNode := ast.New(ast.KindCase, nil, lvar("n"), when, str("other"))
	out := renderDefault(t, caseNode)
	assert.Contains(t, out, "switch (true)")
	assert.Contains(t, out, "case n >= 0 && n <= 3:")
	assert.Contains(t, out, "break;")
	assert.Contains(t, out, "default:")
}

func TestCaseClassicalValues(t *testing.T) {
	when := ast.New(ast.KindWhen, nil, []*ast.Node{num("1"), num("2")}, str("small"))
	caseNode := ast.New(ast.KindCase, nil, lvar("n"), when, nil)
	out := renderDefault(t, caseNode)
	assert.Contains(t, out, "switch (n)")
	assert.Contains(t, out, "case 1:")
	assert.Contains(t, out, "case 2:")
}

func TestCaseInExpressionPositionIsIIFE(t *testing.T) {
	when := ast.New(ast.KindWhen, nil, []*ast.Node{num("1")}, str("one"))
	caseNode := ast.New(ast.KindCase, nil, lvar("n"), when, str("many"))
	root := ast.New(ast.KindLVAsgn, nil, "label", caseNode)
	out := renderDefault(t, root)
	assert.Contains(t, out, "let label = (() => {")
	assert.Contains(t, out, `return "one";`)
	assert.Contains(t, out, `return "many";`)
	assert.Contains(t, out, "})()")
}

func TestAccessorPre2022UsesUnderscore(t *testing.T) {
	class := ast.New(ast.KindClass, nil, constRef("C"), nil,
		ast.Send(nil, nil, "attr_accessor", sym("x")))
	opts := filters.DefaultOptions()
	opts.ESLevel = 2015
	out := render(t, opts, class)
	assert.Contains(t, out, "class C {")
	assert.Contains(t, out, "get x() { return this._x; }")
	assert.Contains(t, out, "set x(x) { this._x = x; }")
}

func TestAccessor2022UsesPrivateFields(t *testing.T) {
	class := ast.New(ast.KindClass, nil, constRef("C"), nil,
		ast.Send(nil, nil, "attr_accessor", sym("x")))
	out := renderDefault(t, class)
	assert.Contains(t, out, "#x;")
	assert.Contains(t, out, "return this.#x;")
}

func TestConstructorFromInitialize(t *testing.T) {
	initialize := ast.New(ast.KindDef, nil, "initialize",
		[]*ast.Node{ast.New(ast.KindArg, nil, "a"), ast.New(ast.KindArg, nil, "b")},
		ast.New(ast.KindIVAsgn, nil, "@a", lvar("a")))
	class := ast.New(ast.KindClass, nil, constRef("Point"), nil, initialize)
	out := renderDefault(t, class)
	assert.Contains(t, out, "constructor(a, b)")
	assert.Equal(t, 1, strings.Count(out, "constructor("))
}

func TestMethodMissingProxy(t *testing.T) {
	mm := ast.New(ast.KindDef, nil, "method_missing",
		[]*ast.Node{ast.New(ast.KindArg, nil, "name"), ast.New(ast.KindRestArg, nil, "args")},
		ast.New(ast.KindNil, nil))
	class := ast.New(ast.KindClass, nil, constRef("Ghost"), nil, mm)
	out := renderDefault(t, class)
	assert.Contains(t, out, "class Ghost")
	assert.Contains(t, out, "const Ghost$ = new Proxy(Ghost, {")
	assert.Contains(t, out, "o.method_missing(prop, ...margs)")
}

func TestKeywordArgsWithRest(t *testing.T) {
	def := ast.New(ast.KindDef, nil, "f",
		[]*ast.Node{
			ast.New(ast.KindRestArg, nil, "a"),
			ast.New(ast.KindKwArg, nil, "x"),
			ast.New(ast.KindKwOptArg, nil, "y", num("2")),
		},
		nil)
	out := renderDefault(t, def)
	assert.Contains(t, out, "function f(...a)")
	assert.Contains(t, out, "a.pop() : {}")
	assert.Contains(t, out, "kw$.x;")
	assert.Contains(t, out, "kw$.y ?? 2;")
}

func TestKeywordOnlyParamsDestructure(t *testing.T) {
	def := ast.New(ast.KindDef, nil, "g",
		[]*ast.Node{
			ast.New(ast.KindKwArg, nil, "x"),
			ast.New(ast.KindKwOptArg, nil, "y", num("2")),
		},
		nil)
	out := renderDefault(t, def)
	assert.Contains(t, out, "function g({ x, y = 2 } = {})")
}

func TestEmptyBeginInExpressionIsNull(t *testing.T) {
	root := ast.New(ast.KindLVAsgn, nil, "x", ast.EmptyBegin(nil))
	out := renderDefault(t, root)
	assert.Contains(t, out, "let x = null;")
}

func TestEmptyDstrIsEmptyString(t *testing.T) {
	root := ast.New(ast.KindLVAsgn, nil, "x", ast.New(ast.KindDstr, nil))
	out := renderDefault(t, root)
	assert.Contains(t, out, `let x = "";`)
}

func TestDstrTemplateLiteral(t *testing.T) {
	dstr := ast.New(ast.KindDstr, nil, str("a"), lvar("x"), str("b"))
	root := ast.New(ast.KindLVAsgn, nil, "s", dstr)
	out := renderDefault(t, root)
	assert.Contains(t, out, "let s = `a${x}b`;")
}

func TestDstrNullishToSWrapsInString(t *testing.T) {
	dstr := ast.New(ast.KindDstr, nil, str("a"), lvar("x"))
	root := ast.New(ast.KindLVAsgn, nil, "s", dstr)
	opts := filters.DefaultOptions()
	opts.NullishToS = true
	out := render(t, opts, root)
	assert.Contains(t, out, "${String(x)}")
}

func TestHeredocPreservesNewlines(t *testing.T) {
	dstr := ast.New(ast.KindDstr, nil, str("line1\n"), str("line2\n"))
	root := ast.New(ast.KindLVAsgn, nil, "s", dstr)
	out := renderDefault(t, root)
	assert.Contains(t, out, "`line1\nline2\n`")
}

func TestOperatorPrecedenceGrouping(t *testing.T) {
	// (a + b) * c groups; a + b * c does not.
	grouped := ast.Send(nil, ast.Send(nil, lvar("a"), "+", lvar("b")), "*", lvar("c"))
	flat := ast.Send(nil, lvar("a"), "+", ast.Send(nil, lvar("b"), "*", lvar("c")))
	assert.Contains(t, renderDefault(t, grouped), "(a + b) * c")
	assert.Contains(t, renderDefault(t, flat), "a + b * c")
}

func TestComparisonOptionControlsEquality(t *testing.T) {
	eq := ast.Send(nil, lvar("a"), "==", lvar("b"))
	out := renderDefault(t, eq)
	assert.Contains(t, out, "a === b")

	opts := filters.DefaultOptions()
	opts.Comparison = "identity"
	out = render(t, opts, eq)
	assert.Contains(t, out, "a == b")
	assert.NotContains(t, out, "===")
}

func TestIntegerReceiverIsGrouped(t *testing.T) {
	out := renderDefault(t, ast.Send(nil, num("1"), "to_s"))
	assert.Contains(t, out, "(1).toString()")
}

func TestSpaceship(t *testing.T) {
	out := renderDefault(t, ast.Send(nil, lvar("a"), "<=>", lvar("b")))
	assert.Contains(t, out, "a < b ? -1 : a > b ? 1 : 0")
}

func TestInstanceOfTests(t *testing.T) {
	out := renderDefault(t, ast.Send(nil, lvar("a"), "is_a?", constRef("C")))
	assert.Contains(t, out, "a instanceof C")

	out = renderDefault(t, ast.Send(nil, lvar("a"), "instance_of?", constRef("C")))
	assert.Contains(t, out, "a.constructor === C")
}

func TestShovelChainCollapsesToPush(t *testing.T) {
	chain := ast.Send(nil, ast.Send(nil, lvar("list"), "<<", num("1")), "<<", num("2"))
	out := renderDefault(t, chain)
	assert.Contains(t, out, "list.push(1, 2)")
}

func TestIndexAccess(t *testing.T) {
	out := renderDefault(t, ast.Send(nil, lvar("h"), "[]", sym("key")))
	assert.Contains(t, out, "h.key")

	out = renderDefault(t, ast.Send(nil, lvar("h"), "[]", str("two words")))
	assert.Contains(t, out, `h["two words"]`)

	out = renderDefault(t, ast.Send(nil, lvar("a"), "[]", ast.New(ast.KindIRange, nil, num("1"), num("3"))))
	assert.Contains(t, out, "a.slice(1, 3 + 1)")
}

func TestSetterMethod(t *testing.T) {
	out := renderDefault(t, ast.Send(nil, lvar("o"), "x=", num("1")))
	assert.Contains(t, out, "o.x = 1")
}

func TestRaise(t *testing.T) {
	out := renderDefault(t, ast.Send(nil, nil, "raise", constRef("TypeError"), str("boom")))
	assert.Contains(t, out, `throw new TypeError("boom")`)

	out = renderDefault(t, ast.Send(nil, nil, "raise", str("boom")))
	assert.Contains(t, out, `throw new Error("boom")`)
}

func TestNewExpression(t *testing.T) {
	out := renderDefault(t, ast.Send(nil, constRef("Point"), "new", num("1"), num("2")))
	assert.Contains(t, out, "new Point(1, 2)")

	out = renderDefault(t, ast.Send(nil, constRef("Regexp"), "new", str("ab")))
	assert.Contains(t, out, `new RegExp("ab")`)
}

func TestMatchOperator(t *testing.T) {
	re := ast.New(ast.KindRegexp, nil, str("a+"), ast.New(ast.KindRegOpt, nil))
	out := renderDefault(t, ast.Send(nil, lvar("s"), "=~", re))
	assert.Contains(t, out, "/a+/.test(s)")

	out = renderDefault(t, ast.Send(nil, lvar("s"), "!~", re))
	assert.Contains(t, out, "!/a+/.test(s)")
}

func TestRegexpLiteralAndConstructor(t *testing.T) {
	lit := ast.New(ast.KindRegexp, nil, str("a/b"), ast.New(ast.KindRegOpt, nil, "i"))
	out := renderDefault(t, ast.New(ast.KindLVAsgn, nil, "re", lit))
	assert.Contains(t, out, `/a\/b/i`)

	interp := ast.New(ast.KindRegexp, nil, str("^"), lvar("word"), ast.New(ast.KindRegOpt, nil))
	out = renderDefault(t, ast.New(ast.KindLVAsgn, nil, "re", interp))
	assert.Contains(t, out, "new RegExp(`^${word}`")
}

func TestRegexpAnchorTranslation(t *testing.T) {
	lit := ast.New(ast.KindRegexp, nil, str(`\Aabc\z`), ast.New(ast.KindRegOpt, nil))
	out := renderDefault(t, ast.New(ast.KindLVAsgn, nil, "re", lit))
	assert.Contains(t, out, "/^abc$/")
}

func TestWhileWithRedoUsesSentinel(t *testing.T) {
	body := ast.Begin(nil,
		ast.Send(nil, nil, "work"),
		ast.New(ast.KindIf, nil, lvar("again"), ast.New(ast.KindRedo, nil), nil))
	loop := ast.New(ast.KindWhile, nil, lvar("cond"), body)
	out := renderDefault(t, loop)
	assert.Contains(t, out, "let redo$;")
	assert.Contains(t, out, "redo$ = false;")
	assert.Contains(t, out, "while (redo$)")
	assert.Contains(t, out, "redo$ = true; continue;")
}

func TestUntilNegatesCondition(t *testing.T) {
	loop := ast.New(ast.KindUntil, nil, lvar("done"), ast.Send(nil, nil, "step"))
	out := renderDefault(t, loop)
	assert.Contains(t, out, "while (!(done))")
}

func TestPostLoopIsDoWhile(t *testing.T) {
	loop := ast.New(ast.KindWhilePost, nil, lvar("more"), ast.Send(nil, nil, "step"))
	out := renderDefault(t, loop)
	assert.Contains(t, out, "do {")
	assert.Contains(t, out, "} while (more)")
}

func TestRescueToCatch(t *testing.T) {
	resbody := ast.New(ast.KindResbody, nil,
		[]*ast.Node{constRef("IOError")},
		ast.New(ast.KindLVar, nil, "err"),
		ast.Send(nil, nil, "recover"))
	rescue := ast.New(ast.KindRescue, nil, ast.Send(nil, nil, "risky"), resbody, nil)
	kw := ast.New(ast.KindKwBegin, nil, rescue)
	out := renderDefault(t, kw)
	assert.Contains(t, out, "try {")
	assert.Contains(t, out, "catch (err)")
	assert.Contains(t, out, "err instanceof IOError")
	assert.Contains(t, out, "throw err;")
}

func TestRescueStringClassUsesTypeof(t *testing.T) {
	resbody := ast.New(ast.KindResbody, nil,
		[]*ast.Node{constRef("String")}, nil,
		ast.Send(nil, nil, "recover"))
	rescue := ast.New(ast.KindRescue, nil, ast.Send(nil, nil, "risky"), resbody, nil)
	out := renderDefault(t, ast.New(ast.KindKwBegin, nil, rescue))
	assert.Contains(t, out, `typeof e$ === "string"`)
}

func TestBareRescueCompilesToBareCatch(t *testing.T) {
	resbody := ast.New(ast.KindResbody, nil, nil, nil, ast.Send(nil, nil, "recover"))
	rescue := ast.New(ast.KindRescue, nil, ast.Send(nil, nil, "risky"), resbody, nil)
	out := renderDefault(t, ast.New(ast.KindKwBegin, nil, rescue))
	assert.Contains(t, out, "} catch {")
}

func TestRetryWrapsInWhileTrue(t *testing.T) {
	resbody := ast.New(ast.KindResbody, nil, nil, nil, ast.New(ast.KindRetry, nil))
	rescue := ast.New(ast.KindRescue, nil, ast.Send(nil, nil, "risky"), resbody, nil)
	out := renderDefault(t, ast.New(ast.KindKwBegin, nil, rescue))
	assert.Contains(t, out, "while (true)")
	assert.Contains(t, out, "break;")
	assert.Contains(t, out, "continue;")
}

func TestEnsureBecomesFinally(t *testing.T) {
	ensure := ast.New(ast.KindEnsure, nil, ast.Send(nil, nil, "risky"), ast.Send(nil, nil, "cleanup"))
	out := renderDefault(t, ast.New(ast.KindKwBegin, nil, ensure))
	assert.Contains(t, out, "finally {")
	assert.Contains(t, out, "cleanup();")
}

func TestBlockAsTrailingCallback(t *testing.T) {
	call := ast.Send(nil, lvar("items"), "map")
	block := ast.New(ast.KindBlock, nil, call,
		[]*ast.Node{ast.New(ast.KindArg, nil, "x")},
		ast.Send(nil, lvar("x"), "*", num("2")))
	out := renderDefault(t, block)
	assert.Contains(t, out, "items.map((x) => x * 2)")
}

func TestNumblockSynthesizesParams(t *testing.T) {
	call := ast.Send(nil, lvar("items"), "map")
	block := ast.New(ast.KindNumBlock, nil, call, 1, ast.Send(nil, lvar("_1"), "+", num("1")))
	out := renderDefault(t, block)
	assert.Contains(t, out, "items.map((_1) => _1 + 1)")
}

func TestRangeStepBlockBecomesCountedFor(t *testing.T) {
	rng := ast.New(ast.KindIRange, nil, num("0"), num("10"))
	call := ast.Send(nil, rng, "step", num("2"))
	block := ast.New(ast.KindBlock, nil, call,
		[]*ast.Node{ast.New(ast.KindArg, nil, "i")},
		ast.Send(nil, nil, "p", lvar("i")))
	out := renderDefault(t, block)
	assert.Contains(t, out, "for (let i = 0; i <= 10; i += 2)")
}

func TestNegativeStepCountsDown(t *testing.T) {
	rng := ast.New(ast.KindIRange, nil, num("10"), num("0"))
	call := ast.Send(nil, rng, "step", num("-1"))
	block := ast.New(ast.KindBlock, nil, call,
		[]*ast.Node{ast.New(ast.KindArg, nil, "i")},
		ast.Send(nil, nil, "p", lvar("i")))
	out := renderDefault(t, block)
	assert.Contains(t, out, "for (let i = 10; i >= 0; i--)")
}

func TestLambdaBlockIsArrow(t *testing.T) {
	call := ast.Send(nil, nil, "lambda")
	block := ast.New(ast.KindBlock, nil, call,
		[]*ast.Node{ast.New(ast.KindArg, nil, "x")},
		ast.Send(nil, lvar("x"), "+", num("1")))
	root := ast.New(ast.KindLVAsgn, nil, "f", block)
	out := renderDefault(t, root)
	assert.Contains(t, out, "let f = (x) => x + 1;")
}

func TestYieldCompilesToImplicitBlockCall(t *testing.T) {
	def := ast.New(ast.KindDef, nil, "each_twice",
		[]*ast.Node{ast.New(ast.KindArg, nil, "v")},
		ast.New(ast.KindYield, nil, lvar("v")))
	out := renderDefault(t, def)
	assert.Contains(t, out, "_implicitBlockYield = null")
	assert.Contains(t, out, "_implicitBlockYield(v)")
}

func TestPrivateMethodsUnderscoredOption(t *testing.T) {
	body := ast.Begin(nil,
		ast.Send(nil, nil, "private"),
		ast.New(ast.KindDef, nil, "secret", nil, ast.New(ast.KindNil, nil)))
	class := ast.New(ast.KindClass, nil, constRef("C"), nil, body)

	opts := filters.DefaultOptions()
	opts.UnderscoredPrivate = true
	out := render(t, opts, class)
	assert.Contains(t, out, "_secret")
	assert.NotContains(t, out, "#secret")
}

func TestPrivateMethods2022UseHash(t *testing.T) {
	body := ast.Begin(nil,
		ast.Send(nil, nil, "private"),
		ast.New(ast.KindDef, nil, "secret", nil, ast.New(ast.KindNil, nil)))
	class := ast.New(ast.KindClass, nil, constRef("C"), nil, body)
	out := renderDefault(t, class)
	assert.Contains(t, out, "#secret")
}

func TestModuleOfDefsIsObjectLiteral(t *testing.T) {
	body := ast.Begin(nil,
		ast.New(ast.KindDef, nil, "helper", nil, ast.New(ast.KindAutoReturn, nil, num("1"))))
	module := ast.New(ast.KindModule, nil, constRef("Util"), body)
	out := renderDefault(t, module)
	assert.Contains(t, out, "const Util = {")
	assert.Contains(t, out, "helper()")
}

func TestModuleWithStatementsIsIIFE(t *testing.T) {
	body := ast.Begin(nil,
		ast.New(ast.KindCAsgn, nil, ast.ConstPath(nil, nil, "MAX"), num("10")),
		ast.New(ast.KindDef, nil, "limit", nil, ast.New(ast.KindAutoReturn, nil, constRef("MAX"))),
		ast.Send(nil, nil, "setup"))
	module := ast.New(ast.KindModule, nil, constRef("Config"), body)
	out := renderDefault(t, module)
	assert.Contains(t, out, "const Config = (() => {")
	assert.Contains(t, out, "return {limit, MAX};")
	assert.Contains(t, out, "})()")
}

func TestMultiAssignDestructures(t *testing.T) {
	mlhs := ast.New(ast.KindMLHS, nil, []*ast.Node{
		ast.New(ast.KindLVAsgn, nil, "a"),
		ast.New(ast.KindLVAsgn, nil, "b"),
	})
	masgn := ast.New(ast.KindMAsgn, nil, mlhs,
		ast.New(ast.KindArray, nil, []*ast.Node{num("1"), num("2")}))
	out := renderDefault(t, masgn)
	assert.Contains(t, out, "let [a, b] = [1, 2]")
}

func TestTruthyRubyEmitsHelpers(t *testing.T) {
	opts := filters.DefaultOptions()
	opts.Truthy = "ruby"
	ifNode := ast.New(ast.KindIf, nil, lvar("x"), ast.Send(nil, nil, "go"), nil)
	out := render(t, opts, ifNode)
	assert.Contains(t, out, "const $T = (v) => v !== false && v !== null && v !== undefined;")
	assert.Contains(t, out, "if ($T(x))")
}

func TestIVarsOptionSubstitutesValues(t *testing.T) {
	opts := filters.DefaultOptions()
	opts.IVars = map[string]any{"@limit": 10, "@label": "max"}
	root := ast.Begin(nil,
		ast.New(ast.KindLVAsgn, nil, "a", ast.New(ast.KindIVar, nil, "@limit")),
		ast.New(ast.KindLVAsgn, nil, "b", ast.New(ast.KindIVar, nil, "@label")))
	out := render(t, opts, root)
	assert.Contains(t, out, "let a = 10;")
	assert.Contains(t, out, `let b = "max";`)
}

func TestIVarsInsideClassStillUseFields(t *testing.T) {
	opts := filters.DefaultOptions()
	opts.IVars = map[string]any{"@x": 1}
	method := ast.New(ast.KindDef, nil, "peek", nil,
		ast.New(ast.KindAutoReturn, nil, ast.New(ast.KindIVar, nil, "@x")))
	class := ast.New(ast.KindClass, nil, constRef("C"), nil, method)
	out := render(t, opts, class)
	assert.Contains(t, out, "this.#x")
}

func TestStrictModePrepended(t *testing.T) {
	opts := filters.DefaultOptions()
	opts.Strict = true
	out := render(t, opts, ast.New(ast.KindLVAsgn, nil, "x", num("1")))
	assert.True(t, strings.HasPrefix(out, `"use strict";`))
}

func TestXStrEmitsShellExec(t *testing.T) {
	x := ast.New(ast.KindXStr, nil, str("ls -la"))
	out := renderDefault(t, x)
	assert.Contains(t, out, "shellExec(`ls -la`)")
}

func TestBreakWithArgumentIsUnsupported(t *testing.T) {
	root := ast.New(ast.KindBreak, nil, num("1"))
	_, _, err := New(filters.DefaultOptions(), nil, nil).Convert(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported construct")
}

func TestUnknownKindIsError(t *testing.T) {
	root := ast.New(ast.Kind("bogus"), nil)
	_, _, err := New(filters.DefaultOptions(), nil, nil).Convert(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no emitter for kind")
}

func TestIfExpressionIsTernary(t *testing.T) {
	ifNode := ast.New(ast.KindIf, nil, lvar("ok"), num("1"), num("2"))
	root := ast.New(ast.KindLVAsgn, nil, "x", ifNode)
	out := renderDefault(t, root)
	assert.Contains(t, out, "let x = ok ? 1 : 2;")
}

func TestIfStatementWithElse(t *testing.T) {
	ifNode := ast.New(ast.KindIf, nil, lvar("ok"),
		ast.Send(nil, nil, "yes"),
		ast.Send(nil, nil, "no"))
	out := renderDefault(t, ifNode)
	assert.Contains(t, out, "if (ok)")
	assert.Contains(t, out, "else")
	assert.Contains(t, out, "yes();")
	assert.Contains(t, out, "no();")
}

func TestSafeNavigation(t *testing.T) {
	csend := ast.New(ast.KindCSend, nil, lvar("user"), "name")
	out := renderDefault(t, csend)
	assert.Contains(t, out, "user?.name()")
}

func TestSourceMapRecordsNamedSymbols(t *testing.T) {
	root := ast.New(ast.KindLVAsgn,
		&ast.Location{StartOffset: 0, EndOffset: 5, Line: 1, Column: 0},
		"x", num("1"))
	text, smap, err := New(filters.DefaultOptions(), nil, nil).Convert(root)
	require.NoError(t, err)
	assert.Contains(t, text, "let x = 1;")
	require.NotNil(t, smap)
	payload := smap.Build()
	assert.Equal(t, 3, payload.Version)
	assert.NotEmpty(t, payload.Mappings)
}

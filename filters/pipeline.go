package filters

import "github.com/oxhq/srcjs/ast"

// Pipeline runs an ordered chain of Filters over an AST.
type Pipeline struct {
	Filters []Filter
	Options Options
}

// New builds a Pipeline, applying each filter's Reorder hook (in
// configured order) before composition, so a filter that needs to run
// before/after another can say so without the caller hardcoding order.
func New(fs []Filter, opts Options) *Pipeline {
	fs = selectEnabled(fs, opts)
	for _, f := range fs {
		fs = f.Reorder(fs)
	}
	return &Pipeline{Filters: fs, Options: opts}
}

// selectEnabled applies include_only/include/exclude to the
// configured filter list.
func selectEnabled(fs []Filter, opts Options) []Filter {
	if len(opts.IncludeOnly) > 0 {
		allowed := toSet(opts.IncludeOnly)
		out := make([]Filter, 0, len(fs))
		for _, f := range fs {
			if allowed[f.Name()] {
				out = append(out, f)
			}
		}
		return out
	}
	excluded := toSet(opts.Exclude)
	included := toSet(opts.Include)
	out := make([]Filter, 0, len(fs))
	for _, f := range fs {
		if excluded[f.Name()] && !included[f.Name()] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Result is what Run hands back: the rewritten root (already wrapped with
// any prepends) ready for comment reassociation and conversion.
type Result struct {
	Root *ast.Node
}

// Run composes the configured filters left-to-right — the leftmost filter
// is the outermost rewriter, so it is applied LAST against the output of
// every filter after it, matching "composition order is the
// input list reversed, producing a linear chain." After every filter has
// run, the prepend list is deduplicated, import nodes are ordered first,
// and a synthetic begin wraps them ahead of the rewritten root's own
// statements.
func (p *Pipeline) Run(root *ast.Node) Result {
	var prepends []*ast.Node
	pc := &ProcessContext{Options: p.Options, Prepends: &prepends}

	node := root
	for i := len(p.Filters) - 1; i >= 0; i-- {
		node = p.Filters[i].Process(node, pc)
	}

	prepends = dedupePrepends(prepends)
	if p.Options.DisableAutoimports {
		prepends = dropImports(prepends)
	}
	if len(prepends) == 0 {
		return Result{Root: node}
	}

	stmts := make([]*ast.Node, 0, len(prepends)+1)
	stmts = append(stmts, prepends...)
	stmts = append(stmts, ast.Statements(node)...)
	return Result{Root: ast.Begin(root.Loc, stmts...)}
}

func dropImports(nodes []*ast.Node) []*ast.Node {
	out := make([]*ast.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind != ast.KindImport {
			out = append(out, n)
		}
	}
	return out
}

// dedupePrepends removes duplicate prepend requests (same kind + children
// rendered the same way, approximated here by kind + the string values
// among the first three children; non-string children are not compared)
// and stably sorts import nodes before everything else
func dedupePrepends(nodes []*ast.Node) []*ast.Node {
	seen := make(map[string]bool, len(nodes))
	deduped := make([]*ast.Node, 0, len(nodes))
	for _, n := range nodes {
		key := prependKey(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, n)
	}

	imports := make([]*ast.Node, 0, len(deduped))
	rest := make([]*ast.Node, 0, len(deduped))
	for _, n := range deduped {
		if n.Kind == ast.KindImport {
			imports = append(imports, n)
		} else {
			rest = append(rest, n)
		}
	}
	return append(imports, rest...)
}

func prependKey(n *ast.Node) string {
	key := string(n.Kind)
	for i, c := range n.Children {
		if i > 2 {
			break
		}
		if s, ok := c.(string); ok {
			key += "|" + s
		}
	}
	return key
}

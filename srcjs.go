// Package srcjs is the public entry to the SRC-to-TGT transformation
// engine: parse (external), lower, associate comments, run the filter
// pipeline, convert, and return TGT text plus an optional source map.
// One Convert call is a pure function of its inputs; concurrent
// calls each own their namespace tracker, comment map, and serializer.
package srcjs

import (
	"sync"

	"github.com/oxhq/srcjs/ast"
	"github.com/oxhq/srcjs/comments"
	"github.com/oxhq/srcjs/convert"
	"github.com/oxhq/srcjs/filters"
	"github.com/oxhq/srcjs/lowering"
	"github.com/oxhq/srcjs/namespace"
	"github.com/oxhq/srcjs/sourcemap"
)

// Options is the recognized option set, shared verbatim
// with the filter pipeline and converter.
type Options = filters.Options

// DefaultOptions mirrors filters.DefaultOptions for callers that start
// from the package root.
func DefaultOptions() Options { return filters.DefaultOptions() }

// Parser is the external SRC parser seam:
// given SRC text it returns the concrete tree root, the comment list, and
// any syntax errors. The first error is surfaced verbatim and aborts the
// conversion.
type Parser interface {
	Parse(source, file string) (lowering.ParserNode, []comments.Comment, []error)
}

var (
	parserMu   sync.Mutex
	parserInit func() Parser
	parser     Parser
)

// InitParser registers the one-time parser loader (the parser
// loader is the single global concern; it is loaded and memoized once and
// exposed through this call point). Safe to call before any Convert; the
// loader runs on first use. Re-registering resets the memoized instance.
func InitParser(load func() Parser) {
	parserMu.Lock()
	defer parserMu.Unlock()
	parserInit = load
	parser = nil
}

func loadedParser() Parser {
	parserMu.Lock()
	defer parserMu.Unlock()
	if parser == nil && parserInit != nil {
		parser = parserInit()
	}
	return parser
}

// Result carries one conversion's outputs.
type Result struct {
	Text string
	Map  *sourcemap.Map
}

// Convert translates SRC text into TGT text per opts. Requires a parser
// registered through InitParser.
func Convert(source string, opts Options) (*Result, error) {
	p := loadedParser()
	if p == nil {
		return nil, &Error{Kind: ErrParse, Message: "no parser registered; call InitParser first", File: opts.File}
	}

	root, comm, errs := p.Parse(source, opts.File)
	if len(errs) > 0 {
		return nil, &Error{Kind: ErrParse, Message: errs[0].Error(), File: opts.File}
	}

	tree, err := (lowering.Visitor{}).Lower(root)
	if err != nil {
		return nil, wrapError(err, opts.File)
	}

	return ConvertTree(tree, comm, opts)
}

// ConvertTree runs the post-parse stages on an already lowered tree:
// security check, comment association, filter pipeline, reassociation,
// conversion. Exposed so hosts that embed their own parser binding (or
// tests building trees directly) share the exact pipeline Convert uses.
func ConvertTree(tree *ast.Node, comm []comments.Comment, opts Options) (*Result, error) {
	if loc := findXStr(tree); loc != nil && opts.Binding == nil {
		return nil, securityError(loc, opts.File)
	}

	cm := comments.Associate(tree, comm)

	pipeline := filters.New(resolveFilters(opts), opts)
	rewritten := pipeline.Run(tree)
	if rewritten.Root != tree {
		// New nodes replaced old ones; comment association is recomputed
		// against the rewritten tree.
		cm = comments.Associate(rewritten.Root, comm)
	}

	ns := namespace.New()
	conv := convert.New(opts, ns, cm)
	text, smap, err := conv.Convert(rewritten.Root)
	if err != nil {
		return nil, wrapError(err, opts.File)
	}
	return &Result{Text: text, Map: smap}, nil
}

// findXStr returns the location of the first x-string in the tree, or nil.
func findXStr(n *ast.Node) *ast.Location {
	if n == nil {
		return nil
	}
	if n.Kind == ast.KindXStr {
		return n.GetLoc()
	}
	for _, ch := range n.Children {
		switch v := ch.(type) {
		case *ast.Node:
			if loc := findXStr(v); loc != nil {
				return loc
			}
		case []*ast.Node:
			for _, item := range v {
				if loc := findXStr(item); loc != nil {
					return loc
				}
			}
		}
	}
	return nil
}

// filterRegistry maps option names to filter constructors. Optional
// filters beyond the built-in three register here (individual
// filters are plugins against the Filter contract).
var (
	filterRegistryMu sync.RWMutex
	filterRegistry   = map[string]func() filters.Filter{
		"component": func() filters.Filter { return filters.Component{} },
		"asyncify":  func() filters.Filter { return filters.Asyncify{} },
		"esnext":    func() filters.Filter { return filters.ESNext{} },
	}
)

// RegisterFilter makes a filter available to the `filters` option under
// name. Later registrations replace earlier ones.
func RegisterFilter(name string, ctor func() filters.Filter) {
	filterRegistryMu.Lock()
	defer filterRegistryMu.Unlock()
	filterRegistry[name] = ctor
}

// resolveFilters materializes the configured filter chain in configured
// order; unknown names are skipped rather than fatal so option sets stay
// portable across hosts with different filter plugins.
func resolveFilters(opts Options) []filters.Filter {
	filterRegistryMu.RLock()
	defer filterRegistryMu.RUnlock()
	out := make([]filters.Filter, 0, len(opts.FilterNames))
	for _, name := range opts.FilterNames {
		if ctor, ok := filterRegistry[name]; ok {
			out = append(out, ctor())
		}
	}
	return out
}

// Package filters implements the AST-to-AST rewriter pipeline: an
// ordered chain of Filters, each a polymorphic visitor
// that returns an equivalent or rewritten node, composed so the leftmost
// configured filter is the outermost rewriter.
package filters

import "github.com/oxhq/srcjs/ast"

// Options carries the recognized pipeline/converter option keys. Every
// field is read by at least one filter or by
// the converter; the converter gets its own copy of the same struct so
// `eslevel`, `truthy`, etc. stay consistent between rewriting and emission.
type Options struct {
	ESLevel              int    // 2015..2025
	Strict               bool
	Comparison           string // "equality" | "identity"
	Or                   string // "auto" | "logical" | "nullish"
	Truthy               string // "js" | "ruby"
	NullishToS           bool
	Module               string // "esm" | "cjs"
	UnderscoredPrivate   bool
	Width                int
	IVars                map[string]any
	Binding              any
	FilterNames          []string
	IncludeOnly          []string
	Include              []string
	Exclude              []string
	DisableAutoimports   bool
	DisableAutoexports   bool
	Source               string
	File                 string
	Namespace            string
}

// DefaultOptions returns the "no surprises" defaults left
// unspecified otherwise.
func DefaultOptions() Options {
	return Options{
		ESLevel:    2022,
		Comparison: "equality",
		Or:         "auto",
		Truthy:     "js",
		Module:     "esm",
		Width:      80,
	}
}

// Filter is a polymorphic visitor over nodes: Process returns an
// equivalent or rewritten node. The base Visitor embedded by every
// concrete filter recurses into children and is the identity on kinds the
// filter doesn't override.
type Filter interface {
	// Name identifies the filter for `include`/`exclude`/`include_only`
	// option matching.
	Name() string

	// Process rewrites node (which may be nil, for an absent optional
	// child) and returns the replacement.
	Process(node *ast.Node, pc *ProcessContext) *ast.Node

	// Reorder lets a filter rearrange the configured filter list before
	// composition runs. Most filters return
	// filters unchanged.
	Reorder(fs []Filter) []Filter
}

// ProcessContext is threaded through every Process call: the prepend list a
// filter can push onto (e.g. hoisted imports) and the options governing
// this run.
type ProcessContext struct {
	Options  Options
	Prepends *[]*ast.Node
}

// Prepend appends node to the shared prepend list.
func (pc *ProcessContext) Prepend(node *ast.Node) {
	*pc.Prepends = append(*pc.Prepends, node)
}

// Package checker runs a sanity parse of emitted TGT text before it
// reaches the caller: an emission bug that produces unbalanced or
// otherwise invalid output is caught here with the first offending
// position, instead of surfacing later as a runtime syntax error in the
// host.
package checker

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// Issue is one ERROR or MISSING region the parse found.
type Issue struct {
	Line    int // 1-based
	Column  int // 0-based
	Snippet string
}

func (i Issue) String() string {
	return fmt.Sprintf("%d:%d: %s", i.Line, i.Column, i.Snippet)
}

// Checker owns one parser instance. Not safe for concurrent use; the CLI
// builds a fresh Checker for every check it runs.
type Checker struct {
	parser *sitter.Parser
}

// New returns a Checker for the emitted TGT language.
func New() *Checker {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	return &Checker{parser: parser}
}

// Check parses text and returns every syntax issue found, in document
// order. An empty slice means the output parsed cleanly.
func (c *Checker) Check(ctx context.Context, text string) ([]Issue, error) {
	tree, err := c.parser.ParseCtx(ctx, nil, []byte(text))
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}

	var issues []Issue
	collectErrors(root, []byte(text), &issues)
	return issues, nil
}

func collectErrors(node *sitter.Node, source []byte, out *[]Issue) {
	if node.IsError() || node.IsMissing() {
		start := node.StartPoint()
		snippet := node.Content(source)
		if len(snippet) > 40 {
			snippet = snippet[:40] + "..."
		}
		*out = append(*out, Issue{
			Line:    int(start.Row) + 1,
			Column:  int(start.Column),
			Snippet: snippet,
		})
		return
	}
	if !node.HasError() {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collectErrors(node.Child(i), source, out)
	}
}

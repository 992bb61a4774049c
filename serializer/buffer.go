// Package serializer implements the converter's output side: an
// append-only token/line buffer, indentation, a reflow
// pass that collapses multi-line brace/bracket/paren groups that fit the
// configured width, and the source-map segment recorder tied to each
// emitted token's originating location.
package serializer

import (
	"strings"

	"github.com/oxhq/srcjs/ast"
	"github.com/oxhq/srcjs/sourcemap"
)

// Separator selects statement-joining style within one line.
type Separator int

const (
	// SeparatorCompact joins statements with "; " on one line.
	SeparatorCompact Separator = iota
	// SeparatorVertical puts each statement on its own line ending ";".
	SeparatorVertical
)

// Token is one emitted unit of text, optionally tied back to a SRC
// location for the source map, and optionally carrying a symbol Name
// (lvar/lvasgn/const/casgn).
type Token struct {
	Text string
	Loc  *ast.Location
	Name string
}

// line is one row of tokens at a given indent depth.
type line struct {
	indent int
	tokens []Token
}

// Buffer is the serializer's mutable aggregate: confined to one converter
// instance, transient, flattened once at the end of a run.
type Buffer struct {
	IndentWidth int
	Width       int // target line width for reflow
	Separator   Separator

	lines   []line
	cur     line
	depth   int
	file    string
	srcName string
}

// New returns an empty Buffer. file/srcName populate the eventual source
// map's File/Sources fields.
func New(file, srcName string) *Buffer {
	return &Buffer{IndentWidth: 2, Width: 80, Separator: SeparatorVertical, file: file, srcName: srcName}
}

// Emit appends a token to the current line.
func (b *Buffer) Emit(text string) {
	b.cur.tokens = append(b.cur.tokens, Token{Text: text})
}

// EmitLoc appends a token carrying source location/name for the map.
func (b *Buffer) EmitLoc(text string, loc *ast.Location, name string) {
	b.cur.tokens = append(b.cur.tokens, Token{Text: text, Loc: loc, Name: name})
}

// NewLine flushes the current line (even if empty, to preserve intentional
// blank lines the "source" vertical-whitespace option asks for) and starts
// a fresh one at the current indent depth.
func (b *Buffer) NewLine() {
	b.cur.indent = b.depth
	b.lines = append(b.lines, b.cur)
	b.cur = line{}
}

// Mark flushes any in-progress line and returns a position usable with
// InsertLineAt. The converter records one per scope (the `output_location`
// variable-declaration discipline) so a hoisted
// `let a, b` can be inserted where the scope body began once the scope
// closes and the full pending set is known.
func (b *Buffer) Mark() int {
	b.flushPending()
	return len(b.lines)
}

// InsertLineAt inserts a single-token line at the position a prior Mark
// returned, using the indent depth that was current at the mark.
func (b *Buffer) InsertLineAt(at int, text string) {
	if at < 0 || at > len(b.lines) {
		at = len(b.lines)
	}
	indent := b.depth
	if at < len(b.lines) {
		indent = b.lines[at].indent
	}
	inserted := line{indent: indent, tokens: []Token{{Text: text}}}
	b.lines = append(b.lines[:at], append([]line{inserted}, b.lines[at:]...)...)
}

// Indent increases the indent depth for subsequent NewLine calls.
func (b *Buffer) Indent() { b.depth++ }

// Dedent decreases the indent depth.
func (b *Buffer) Dedent() {
	if b.depth > 0 {
		b.depth--
	}
}

// Capture runs fn against a fresh child Buffer sharing this Buffer's
// configuration, and returns the rendered text plus whether it fits on one
// line at the current width budget. This is the "capture primitive" from
// that delimits a subtree's tokens so per-subtree reflow is
// independent: callers use it to try rendering a block body inline before
// committing to the multi-line form.
func (b *Buffer) Capture(fn func(sub *Buffer)) (text string, oneLine bool) {
	sub := &Buffer{IndentWidth: b.IndentWidth, Width: b.Width, Separator: b.Separator, file: b.file, srcName: b.srcname()}
	fn(sub)
	sub.flushPending()
	rendered := sub.renderCompact()
	return rendered, len(rendered) <= b.Width-b.currentColumn()
}

func (b *Buffer) srcname() string { return b.srcName }

// currentColumn is a width estimate for the line in progress, used only by
// Capture's fits-on-one-line heuristic.
func (b *Buffer) currentColumn() int {
	col := b.depth * b.IndentWidth
	for _, t := range b.cur.tokens {
		col += len(t.Text)
	}
	return col
}

func (b *Buffer) flushPending() {
	if len(b.cur.tokens) > 0 {
		b.NewLine()
	}
}

// renderCompact joins every captured line with SeparatorCompact regardless
// of the Buffer's configured separator, for Capture's one-line trial.
func (b *Buffer) renderCompact() string {
	parts := make([]string, 0, len(b.lines))
	for _, l := range b.lines {
		parts = append(parts, joinTokens(l.tokens))
	}
	return strings.Join(parts, "; ")
}

func joinTokens(toks []Token) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// String renders the full buffer to final TGT text using the configured
// indent width, one output line per buffered line (the Separator setting
// is not consulted), performing the reflow pass described in
// along the way.
func (b *Buffer) String() string {
	b.flushPending()
	return b.render(reflow(b.lines, b.Width, b.IndentWidth))
}

func (b *Buffer) render(lines []line) string {
	var sb strings.Builder
	indentUnit := strings.Repeat(" ", b.IndentWidth)
	for i, l := range lines {
		sb.WriteString(strings.Repeat(indentUnit, l.indent))
		sb.WriteString(joinTokens(l.tokens))
		if i < len(lines)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// SourceMap renders the accumulated token locations into a sourcemap.Map.
// Call after String() has fixed final line/column positions.
func (b *Buffer) SourceMap() *sourcemap.Map {
	b.flushPending()
	lines := reflow(b.lines, b.Width, b.IndentWidth)
	m := sourcemap.New(b.file, b.srcName)
	for lineIdx, l := range lines {
		col := l.indent * b.IndentWidth
		for _, t := range l.tokens {
			if t.Loc != nil {
				m.Add(sourcemap.Segment{
					OutLine:   lineIdx,
					OutCol:    col,
					SrcIndex:  0,
					SrcLine:   t.Loc.Line - 1,
					SrcCol:    t.Loc.Column,
					NameIndex: m.NameIndex(t.Name),
				})
			}
			col += len(t.Text)
		}
	}
	return m
}

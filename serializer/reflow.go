package serializer

import "strings"

// reflow attempts to collapse a multi-line opening/closing brace/bracket/
// paren group into a single line when the joined text fits within
// width. It operates purely on the rendered
// lines (not the AST), matching braces by nesting depth delta between
// consecutive lines: a line ending in an opener followed immediately (at
// depth+1) by lines culminating in the matching closer is a collapse
// candidate.
func reflow(lines []line, width, indentWidth int) []line {
	out := make([]line, 0, len(lines))
	i := 0
	for i < len(lines) {
		l := lines[i]
		text := joinTokens(l.tokens)
		if opensGroup(text) {
			end := matchingClose(lines, i)
			if end > i {
				collapsed, ok := tryCollapse(lines, i, end, width, indentWidth)
				if ok {
					out = append(out, collapsed)
					i = end + 1
					continue
				}
			}
		}
		out = append(out, l)
		i++
	}
	return out
}

func opensGroup(text string) bool {
	trimmed := strings.TrimRight(text, " ")
	return strings.HasSuffix(trimmed, "{") || strings.HasSuffix(trimmed, "[") || strings.HasSuffix(trimmed, "(")
}

func closesGroup(text string) bool {
	trimmed := strings.TrimLeft(text, " ")
	return strings.HasPrefix(trimmed, "}") || strings.HasPrefix(trimmed, "]") || strings.HasPrefix(trimmed, ")")
}

// matchingClose finds the index of the line at open's indent depth whose
// text begins with a closer, scanning forward. Returns -1 if none found
// before the buffer ends or depth goes negative (malformed — left alone).
func matchingClose(lines []line, open int) int {
	depth := lines[open].indent
	for j := open + 1; j < len(lines); j++ {
		if lines[j].indent == depth && closesGroup(joinTokens(lines[j].tokens)) {
			return j
		}
		if lines[j].indent < depth {
			return -1
		}
	}
	return -1
}

// tryCollapse joins lines[open..close] into one, space-separating inner
// lines and adding ";" between what were separate statements, returning ok
// = false when the result would exceed width. A group containing a comment
// line is never collapsed, preserving comment adjacency.
func tryCollapse(lines []line, open, close, width, indentWidth int) (line, bool) {
	for k := open; k <= close; k++ {
		if strings.HasPrefix(strings.TrimLeft(joinTokens(lines[k].tokens), " "), "//") {
			return line{}, false
		}
	}

	var sb strings.Builder
	sb.WriteString(joinTokens(lines[open].tokens))
	for k := open + 1; k < close; k++ {
		sb.WriteByte(' ')
		text := joinTokens(lines[k].tokens)
		sb.WriteString(text)
		if k < close-1 && needsSeparator(text) {
			sb.WriteString(";")
		}
	}
	sb.WriteByte(' ')
	sb.WriteString(joinTokens(lines[close].tokens))

	text := sb.String()
	if lines[open].indent*indentWidth+len(text) > width {
		return line{}, false
	}
	return line{indent: lines[open].indent, tokens: []Token{{Text: text}}}, true
}

// needsSeparator reports whether a joined line needs a ";" before the next
// one: lines already ending in a statement terminator, an opener, a block
// close, a case label, or a list comma do not.
func needsSeparator(text string) bool {
	t := strings.TrimRight(text, " ")
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case ';', '{', '}', ':', ',', '(', '[':
		return false
	}
	return true
}

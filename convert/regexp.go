package convert

import (
	"strconv"
	"strings"

	"github.com/oxhq/srcjs/ast"
)

// emitRegexp renders regexp(parts..., regopt) "Regular
// expressions": a literal `/.../flags` when the pattern is a single
// uninterpolated string with at most three unescaped slashes, otherwise
// `new RegExp(string, flags)`. Ruby's \A/\z anchors become ^/$, the `x`
// flag strips whitespace and comments before emission, and a leading `^`
// combined with `.` forces dotall on.
func (c *Converter) emitRegexp(n *ast.Node) error {
	opts := n.ChildNode(len(n.Children) - 1)
	flags := regexpFlags(opts)

	var parts []*ast.Node
	for i := 0; i < len(n.Children)-1; i++ {
		if p, ok := n.Child(i).(*ast.Node); ok && p != nil {
			parts = append(parts, p)
		}
	}

	interpolated := false
	for _, p := range parts {
		if p.Kind != ast.KindStr {
			interpolated = true
		}
	}

	extended := strings.Contains(flags, "x")
	flags = strings.ReplaceAll(flags, "x", "")

	if !interpolated {
		source := ""
		for _, p := range parts {
			source += p.ChildString(0)
		}
		if extended {
			source = stripExtended(source)
		}
		source = translateAnchors(source)
		if strings.HasPrefix(source, "^") && strings.Contains(source, ".") && !strings.Contains(flags, "s") {
			flags += "s"
		}
		if countUnescapedSlashes(source) <= 3 {
			c.buf.EmitLoc("/"+escapeSlashes(source)+"/"+flags, n.Loc, "")
			return nil
		}
		c.buf.Emit("new RegExp(" + strconv.Quote(source) + ", " + strconv.Quote(flags) + ")")
		return nil
	}

	c.buf.Emit("new RegExp(")
	if err := c.emitTemplateLiteral(ast.New(ast.KindDstr, n.Loc, n.Children[:len(n.Children)-1]...)); err != nil {
		return err
	}
	c.buf.Emit(", " + strconv.Quote(flags) + ")")
	return nil
}

func regexpFlags(opts *ast.Node) string {
	if opts == nil || opts.Kind != ast.KindRegOpt {
		return ""
	}
	var flags strings.Builder
	for _, ch := range opts.Children {
		if s, ok := ch.(string); ok {
			flags.WriteString(s)
		}
	}
	return flags.String()
}

// translateAnchors maps Ruby's absolute anchors to their JS equivalents.
func translateAnchors(source string) string {
	source = strings.ReplaceAll(source, `\A`, "^")
	source = strings.ReplaceAll(source, `\z`, "$")
	source = strings.ReplaceAll(source, `\Z`, "$")
	return source
}

// stripExtended removes the whitespace and #-comments the `x` flag allows
// in SRC regex source, since JS has no extended mode.
func stripExtended(source string) string {
	var out strings.Builder
	inClass := false
	escaped := false
	inComment := false
	for _, r := range source {
		if inComment {
			if r == '\n' {
				inComment = false
			}
			continue
		}
		if escaped {
			out.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			out.WriteRune(r)
			escaped = true
		case '[':
			inClass = true
			out.WriteRune(r)
		case ']':
			inClass = false
			out.WriteRune(r)
		case '#':
			if inClass {
				out.WriteRune(r)
			} else {
				inComment = true
			}
		case ' ', '\t', '\n', '\r':
			if inClass {
				out.WriteRune(r)
			}
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}

func countUnescapedSlashes(source string) int {
	count := 0
	escaped := false
	for _, r := range source {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '/':
			count++
		}
	}
	return count
}

func escapeSlashes(source string) string {
	var out strings.Builder
	escaped := false
	for _, r := range source {
		if !escaped && r == '/' {
			out.WriteString(`\/`)
			continue
		}
		escaped = !escaped && r == '\\'
		out.WriteRune(r)
	}
	return out.String()
}

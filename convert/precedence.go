package convert

import (
	"fmt"

	"github.com/oxhq/srcjs/ast"
)

// Precedence buckets, low to high, following standard JS operator
// precedence (an operand is grouped when its own operator
// index is lower than the current context's index).
const (
	precLowest = iota
	precTernary
	precNullish
	precLogicalOr
	precLogicalAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precCompare
	precShift
	precAdditive
	precMultiplicative
	precPower
	precUnary
	precCall
)

// precOf maps an emitted operator spelling to its bucket.
func precOf(op string) int {
	switch op {
	case "??":
		return precNullish
	case "||":
		return precLogicalOr
	case "&&":
		return precLogicalAnd
	case "|":
		return precBitOr
	case "^":
		return precBitXor
	case "&":
		return precBitAnd
	case "==", "!=", "===", "!==":
		return precEquality
	case "<", "<=", ">", ">=", "instanceof", "in":
		return precCompare
	case "<<", ">>", ">>>":
		return precShift
	case "+", "-":
		return precAdditive
	case "*", "/", "%":
		return precMultiplicative
	case "**":
		return precPower
	}
	return precLowest
}

// precedenceOf reports the binding strength of n's own emitted spelling,
// or precCall when n renders as a primary/call expression that never needs
// grouping.
func precedenceOf(c *Converter, n *ast.Node) int {
	if n == nil {
		return precCall
	}
	switch n.Kind {
	case ast.KindAnd:
		return precLogicalAnd
	case ast.KindOr:
		return precLogicalOr
	case ast.KindNullish:
		return precNullish
	case ast.KindNot:
		return precUnary
	case ast.KindIf:
		return precTernary
	case ast.KindLVAsgn, ast.KindIVAsgn, ast.KindCVAsgn, ast.KindGVAsgn,
		ast.KindCAsgn, ast.KindOpAsgn, ast.KindOrAsgn, ast.KindAndAsgn,
		ast.KindNullAsgn, ast.KindMAsgn:
		return precLowest
	case ast.KindSend, ast.KindCSend:
		if n.Recv() != nil && len(n.Args()) == 1 {
			if op, ok := c.binaryOp(n.Method()); ok {
				return precOf(op)
			}
		}
		switch n.Method() {
		case "-@", "+@", "!", "~":
			return precUnary
		case "<=>", "is_a?", "kind_of?", "instance_of?":
			return precTernary
		}
		return precCall
	case ast.KindKwBegin:
		return precLowest
	}
	return precCall
}

// emitGrouped emits n, parenthesizing when its own precedence is lower
// than the surrounding context's.
func (c *Converter) emitGrouped(n *ast.Node, contextPrec int) error {
	if precedenceOf(c, n) < contextPrec {
		c.buf.Emit("(")
		if err := c.emitExpr(n, ctxExpr); err != nil {
			return err
		}
		c.buf.Emit(")")
		return nil
	}
	return c.emitExpr(n, ctxExpr)
}

// UnsupportedError flags a construct the target cannot express: fatal,
// carrying the SRC location of the offending node.
type UnsupportedError struct {
	What string
	Loc  *ast.Location
}

func (e *UnsupportedError) Error() string {
	if e.Loc != nil {
		return fmt.Sprintf("unsupported construct at line %d, column %d: %s", e.Loc.Line, e.Loc.Column, e.What)
	}
	return "unsupported construct: " + e.What
}

func (c *Converter) unsupported(n *ast.Node, what string) error {
	return &UnsupportedError{What: what, Loc: n.GetLoc()}
}

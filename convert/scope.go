package convert

import (
	"sort"
	"strconv"
	"strings"
)

// varState tracks one local through the declaration discipline:
// "true" means declared with `let` at its first write;
// "pending" means the name was referenced from a nested scope before the
// owning scope declared it, so a hoisted `let` is owed at the scope's
// remembered output position. "masgn" and "implicit" are the intermediate
// states multi-assignment and block parameters pass through before they
// settle into one of the first two.
type varState string

const (
	varDeclared varState = "true"
	varPending  varState = "pending"
	varMasgn    varState = "masgn"
	varImplicit varState = "implicit"
)

// scope is one frame of the converter's vars stack. function marks a
// hard boundary: a `let` never crosses it, so a pending hoist stops here.
type scope struct {
	vars     map[string]varState
	mark     int // serializer position where a hoisted `let` belongs
	function bool
}

func (c *Converter) pushScope(function bool) {
	c.scopes = append(c.scopes, &scope{
		vars:     make(map[string]varState),
		mark:     c.buf.Mark(),
		function: function,
	})
}

// popScope closes the innermost scope, inserting the single hoisted
// `let name1, name2, ...` line for every name that went pending while the
// scope was open. Names are sorted so the hoist is deterministic.
func (c *Converter) popScope() {
	if len(c.scopes) == 0 {
		return
	}
	top := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]

	var pending []string
	for name, state := range top.vars {
		if state == varPending {
			pending = append(pending, name)
		}
	}
	if len(pending) == 0 {
		return
	}
	sort.Strings(pending)
	c.buf.InsertLineAt(top.mark, "let "+strings.Join(pending, ", ")+";")
}

// declareVar implements the first-write rule: it returns true when the
// write site should prefix `let` (first statement-context write of an
// undeclared name), and records the declaration either way.
func (c *Converter) declareVar(name string) bool {
	if len(c.scopes) == 0 {
		return false
	}
	for i := len(c.scopes) - 1; i >= 0; i-- {
		s := c.scopes[i]
		if state, ok := s.vars[name]; ok {
			if state == varPending {
				// Hoist already owed; the write is a plain assignment.
				return false
			}
			return false
		}
		if s.function {
			break
		}
	}
	c.scopes[len(c.scopes)-1].vars[name] = varDeclared
	return true
}

// markPending records a write that cannot carry its own `let` (expression
// position, or a nested block writing an outer name) so the owning scope
// hoists it on exit. TDZ-safe ordering comes from inserting the hoist at
// the scope's mark, before any use.
func (c *Converter) markPending(name string) {
	if len(c.scopes) == 0 {
		return
	}
	for i := len(c.scopes) - 1; i >= 0; i-- {
		s := c.scopes[i]
		if state, ok := s.vars[name]; ok && state == varDeclared {
			return // declared in a reachable scope; nothing owed
		}
		if s.function || i == 0 {
			if _, ok := s.vars[name]; !ok {
				s.vars[name] = varPending
			}
			return
		}
	}
}

// declaredIn reports whether name is visible from the innermost scope.
func (c *Converter) declaredIn(name string) bool {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if _, ok := c.scopes[i].vars[name]; ok {
			return true
		}
		if c.scopes[i].function {
			return false
		}
	}
	return false
}

// tmpVar hands out scope-unique synthesized names for desugarings that
// need a temporary (kwarg prologs, case-as-expression lifts).
func (c *Converter) tmpVar(stem string) string {
	c.tmpSeq++
	if c.tmpSeq == 1 {
		return stem + "$"
	}
	return stem + "$" + strconv.Itoa(c.tmpSeq)
}

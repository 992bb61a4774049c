package ast

// Send builds a send(recv, name, *args) node. recv is nil for a
// receiverless call, matching invariant.
func Send(loc *Location, recv *Node, name string, args ...*Node) *Node {
	children := make([]any, 0, 2+len(args))
	children = append(children, anyOrNil(recv), name)
	for _, a := range args {
		children = append(children, a)
	}
	nextID++
	return &Node{Kind: KindSend, Children: children, Loc: loc, id: nextID}
}

func anyOrNil(n *Node) any {
	if n == nil {
		return nil
	}
	return n
}

// ConstPath builds a const(parent, name) node. parent is nil for
// top-level, or Cbase() for an absolute reference, or another *Node to form
// a path.
func ConstPath(loc *Location, parent *Node, name string) *Node {
	return New(KindConst, loc, anyOrNil(parent), name)
}

// Cbase is the sentinel "absolute reference" const parent (`::Foo`).
func Cbase(loc *Location) *Node {
	return New("cbase", loc)
}

// ConstName flattens a const path into its dotted/double-colon display
// name, e.g. const(const(nil, "Foo"), "Bar") -> "Foo::Bar". Used by the
// namespace tracker and by the converter when it needs a qualified name for
// diagnostics.
func ConstName(n *Node) string {
	if n == nil || n.Kind != KindConst {
		return ""
	}
	name := n.ChildString(1)
	parent := n.ChildNode(0)
	if parent == nil {
		return name
	}
	if parent.Kind == "cbase" {
		return "::" + name
	}
	return ConstName(parent) + "::" + name
}

// EmptyBegin is the canonical "no expression" placeholder.
func EmptyBegin(loc *Location) *Node {
	return New(KindBegin, loc)
}

// Begin wraps stmts in a begin node, collapsing to the single child per the
// invariant only where callers explicitly ask for it via Unwrap
// — Begin itself always produces the wrapper so callers can append more
// statements (e.g. the filter pipeline's prepend list) after the fact.
func Begin(loc *Location, stmts ...*Node) *Node {
	children := make([]any, len(stmts))
	for i, s := range stmts {
		children[i] = s
	}
	nextID++
	return &Node{Kind: KindBegin, Children: children, Loc: loc, id: nextID}
}

// Statements extracts a begin's children as []*Node; for a non-begin node it
// returns a single-element slice of n itself, and for nil it returns nil.
func Statements(n *Node) []*Node {
	if n == nil {
		return nil
	}
	if n.Kind != KindBegin {
		return []*Node{n}
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if node, ok := c.(*Node); ok {
			out = append(out, node)
		}
	}
	return out
}

package convert

import (
	"github.com/oxhq/srcjs/ast"
)

// onAssign normalizes the assignment shapes of into calls on
// the host Object: when every argument is a plain value hash with
// non-accessor entries it emits Object.assign(target, ...); hashes whose
// values are property-descriptor hashes (keys drawn from get/set/
// enumerable/configurable/value/writable) route through Object.defineProperty (one key)
// or Object.defineProperties. Sibling definitions of the same key are
// merged before emission, last write winning per JS object semantics.
// on_assign / class-merge / module-merge are aliases of this one routine.
func (c *Converter) onAssign(target string, hashes []*ast.Node) error {
	pairs := mergeSiblingPairs(hashes)

	descriptors := len(pairs) > 0
	for _, p := range pairs {
		if !isDescriptorHash(p.ChildNode(1)) {
			descriptors = false
			break
		}
	}

	if !descriptors {
		c.buf.Emit("Object.assign(" + target + ", ")
		if err := c.emitHash(ast.New(ast.KindHash, nil, pairs)); err != nil {
			return err
		}
		c.buf.Emit(")")
		return nil
	}

	if len(pairs) == 1 {
		key := pairs[0].ChildNode(0)
		c.buf.Emit("Object.defineProperty(" + target + ", ")
		if err := c.emitExpr(keyAsExpr(key), ctxExpr); err != nil {
			return err
		}
		c.buf.Emit(", ")
		if err := c.emitHash(pairs[0].ChildNode(1)); err != nil {
			return err
		}
		c.buf.Emit(")")
		return nil
	}

	c.buf.Emit("Object.defineProperties(" + target + ", ")
	if err := c.emitHash(ast.New(ast.KindHash, nil, pairs)); err != nil {
		return err
	}
	c.buf.Emit(")")
	return nil
}

// mergeSiblingPairs flattens the argument hashes into one pair list,
// collapsing repeated keys: a later plain value replaces an earlier one,
// and two descriptor hashes for the same key (a get and a set defined
// separately) merge their entries.
func mergeSiblingPairs(hashes []*ast.Node) []*ast.Node {
	var order []string
	byKey := make(map[string]*ast.Node)
	for _, h := range hashes {
		if h == nil {
			continue
		}
		for _, p := range hashPairs(h) {
			key := p.ChildNode(0).ChildString(0)
			prev, seen := byKey[key]
			if !seen {
				order = append(order, key)
				byKey[key] = p
				continue
			}
			merged := mergePair(prev, p)
			byKey[key] = merged
		}
	}
	out := make([]*ast.Node, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out
}

func hashPairs(h *ast.Node) []*ast.Node {
	if h == nil || h.Kind != ast.KindHash {
		return nil
	}
	var out []*ast.Node
	for _, p := range hashEntries(h) {
		if p.Kind == ast.KindPair {
			out = append(out, p)
		}
	}
	return out
}

func mergePair(a, b *ast.Node) *ast.Node {
	av := a.ChildNode(1)
	bv := b.ChildNode(1)
	if !isDescriptorHash(av) || !isDescriptorHash(bv) {
		return b
	}
	combined := append(append([]*ast.Node{}, hashPairs(av)...), hashPairs(bv)...)
	merged := mergeSiblingPairs([]*ast.Node{ast.New(ast.KindHash, nil, toAnySlice(combined)...)})
	value := ast.New(ast.KindHash, bv.GetLoc(), merged)
	return ast.New(ast.KindPair, b.GetLoc(), b.ChildNode(0), value)
}

func toAnySlice(ns []*ast.Node) []any {
	out := make([]any, len(ns))
	for i, n := range ns {
		out[i] = n
	}
	return out
}

// isDescriptorHash reports whether v is a hash whose keys all come from
// the property-descriptor vocabulary.
func isDescriptorHash(v *ast.Node) bool {
	if v == nil || v.Kind != ast.KindHash {
		return false
	}
	pairs := hashPairs(v)
	if len(pairs) == 0 {
		return false
	}
	for _, p := range pairs {
		key := p.ChildNode(0)
		if key == nil {
			return false
		}
		switch key.ChildString(0) {
		case "get", "set", "enumerable", "configurable", "value", "writable":
		default:
			return false
		}
	}
	return true
}

func keyAsExpr(key *ast.Node) *ast.Node {
	if key == nil {
		return nil
	}
	if key.Kind == ast.KindSym {
		return ast.New(ast.KindStr, key.Loc, key.ChildString(0))
	}
	return key
}

package doctree

import "errors"

var (
	// ErrNoAddresses means a sibling replacement was requested with an
	// empty address list.
	ErrNoAddresses = errors.New("doctree: no addresses given")
	// ErrRootInSiblings means "root" was combined with other addresses
	// in a sibling replacement.
	ErrRootInSiblings = errors.New("doctree: root cannot be combined with sibling addresses")
	// ErrCrossParent means the sibling addresses do not share a parent.
	ErrCrossParent = errors.New("doctree: sibling addresses must share a parent")
	// ErrNoReplacements means a whole-tree replacement was requested
	// without a replacement tree.
	ErrNoReplacements = errors.New("doctree: no replacement subtrees given")
)

// ReplaceOne returns a tree with the node at addr replaced by sub.
// Replacing "root" yields sub entirely. A stale or malformed address is
// a no-op: the input tree is returned unchanged. The input is never
// mutated; only nodes along the edited path are rebuilt and untouched
// subtrees are shared with the result.
func ReplaceOne(tree *Node, addr Address, sub *Node) *Node {
	if addr == Root {
		return sub
	}
	parent, ok := addr.Parent()
	if !ok {
		return tree
	}
	idx := addr.Index()
	if idx < 0 {
		return tree
	}
	return splice(tree, parent, idx, 1, []*Node{sub})
}

// ReplaceSiblings replaces a contiguous range of one parent's children.
// The range spans [min, max] of the addresses' last-segment indices:
// siblings inside the span that were not explicitly listed are removed
// too. reps is spliced in at the range's position and need not match
// the removed count. A lone "root" address replaces the whole tree with
// reps[0]. Contract violations (empty addrs, root mixed with siblings,
// addresses under different parents) return an explicit error; a stale
// parent address is a data-level no-op returning the tree unchanged.
func ReplaceSiblings(tree *Node, addrs []Address, reps []*Node) (*Node, error) {
	if len(addrs) == 0 {
		return nil, ErrNoAddresses
	}

	parent, hasParent := addrs[0].Parent()
	for _, a := range addrs {
		if a == Root {
			if len(addrs) > 1 {
				return nil, ErrRootInSiblings
			}
			if len(reps) == 0 {
				return nil, ErrNoReplacements
			}
			return reps[0], nil
		}
		p, ok := a.Parent()
		if !ok || !hasParent || p != parent {
			return nil, ErrCrossParent
		}
	}

	lo, hi := addrs[0].Index(), addrs[0].Index()
	for _, a := range addrs[1:] {
		if i := a.Index(); i < lo {
			lo = i
		} else if i > hi {
			hi = i
		}
	}
	if lo < 0 {
		return tree, nil
	}
	return splice(tree, parent, lo, hi-lo+1, reps), nil
}

// splice rebuilds the path down to parent and replaces remove children
// starting at start with reps. Any unresolvable index along the way
// returns the tree unchanged.
func splice(tree *Node, parent Address, start, remove int, reps []*Node) *Node {
	path, ok := parent.indices()
	if !ok {
		return tree
	}
	return rebuild(tree, path, start, remove, reps)
}

func rebuild(n *Node, path []int, start, remove int, reps []*Node) *Node {
	if len(path) == 0 {
		if start < 0 || start+remove > len(n.Children) {
			return n
		}
		kids := make([]*Node, 0, len(n.Children)-remove+len(reps))
		kids = append(kids, n.Children[:start]...)
		kids = append(kids, reps...)
		kids = append(kids, n.Children[start+remove:]...)
		return &Node{Title: n.Title, Text: n.Text, Children: kids}
	}
	i := path[0]
	if i >= len(n.Children) {
		return n
	}
	child := rebuild(n.Children[i], path[1:], start, remove, reps)
	if child == n.Children[i] {
		return n
	}
	kids := make([]*Node, len(n.Children))
	copy(kids, n.Children)
	kids[i] = child
	return &Node{Title: n.Title, Text: n.Text, Children: kids}
}

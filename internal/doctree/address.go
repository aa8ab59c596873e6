package doctree

import (
	"strconv"
	"strings"
)

// Address identifies a node by the child-index path leading to it from
// the root: "root" or "root-i1-i2-...-ik" with 0-based indices. An
// address is positional, not a persistent identity — it is only valid
// against the exact tree snapshot it was computed from and must be
// re-resolved after any structural edit.
type Address string

// Root addresses the tree's root node.
const Root Address = "root"

// Parent returns the address with the last segment stripped. The root
// has no parent.
func (a Address) Parent() (Address, bool) {
	i := strings.LastIndexByte(string(a), '-')
	if i < 0 {
		return "", false
	}
	return a[:i], true
}

// IsAncestorOf reports whether a is a strict ancestor of b. It is
// irreflexive: an address is never its own ancestor.
func (a Address) IsAncestorOf(b Address) bool {
	return strings.HasPrefix(string(b), string(a)+"-")
}

// Index returns the last segment as a child index, or -1 for the root
// or a malformed address.
func (a Address) Index() int {
	i := strings.LastIndexByte(string(a), '-')
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(string(a[i+1:]))
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// indices returns the child-index path encoded by the address, empty
// for "root". ok is false for addresses that are not rooted at "root"
// or carry a non-numeric segment.
func (a Address) indices() ([]int, bool) {
	if a == Root {
		return nil, true
	}
	s, found := strings.CutPrefix(string(a), string(Root)+"-")
	if !found {
		return nil, false
	}
	segs := strings.Split(s, "-")
	path := make([]int, len(segs))
	for i, seg := range segs {
		n, err := strconv.Atoi(seg)
		if err != nil || n < 0 {
			return nil, false
		}
		path[i] = n
	}
	return path, true
}

// Resolve walks addr's child indices from root. ok is false when the
// address is malformed or any index is out of range; callers treat a
// miss as a stale address, not a failure.
func Resolve(root *Node, addr Address) (*Node, bool) {
	path, ok := addr.indices()
	if !ok || root == nil {
		return nil, false
	}
	cur := root
	for _, i := range path {
		if i >= len(cur.Children) {
			return nil, false
		}
		cur = cur.Children[i]
	}
	return cur, true
}

package doctree

// Node is a section in an outline tree. A tree is a single rooted Node.
// Child order is significant and preserved by every operation in this
// package. Trees are treated as immutable values: operations return new
// trees and may share untouched subtrees with their input.
type Node struct {
	Title    string  `json:"title"`
	Text     string  `json:"text,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// Clone returns a deep copy of the tree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Title: n.Title, Text: n.Text}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// CountNodes returns the number of nodes in the tree, root included.
func (n *Node) CountNodes() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, ch := range n.Children {
		total += ch.CountNodes()
	}
	return total
}

package generate

import (
	"testing"

	"github.com/dgallion1/outliner/internal/doctree"
)

func TestFragmenterSectionTargets(t *testing.T) {
	f := NewFragmenter([]doctree.Address{"root-0", "root-1"})

	frag := f.Fragment("## A\ntext a\n## B")
	// "## B" has no terminator yet; only A is safe to show.
	if len(frag.Nodes) != 1 || frag.Nodes[0].Title != "A" {
		t.Errorf("streaming fragment = %+v, want only A", frag.Nodes)
	}

	frag = f.Fragment("## A\ntext a\n## B\n")
	if len(frag.Nodes) != 2 || frag.Nodes[1].Title != "B" {
		t.Errorf("fragment after terminator = %+v, want A and B", frag.Nodes)
	}
}

func TestFragmenterFinalKeepsLastLine(t *testing.T) {
	f := NewFragmenter([]doctree.Address{"root-0"})
	frag := f.Final("## A\nlast line")
	if len(frag.Nodes) != 1 {
		t.Fatalf("final fragment = %+v", frag.Nodes)
	}
	if frag.Nodes[0].Text != "last line" {
		t.Errorf("final node text = %q, want %q", frag.Nodes[0].Text, "last line")
	}
}

func TestFragmenterWholeTreeTarget(t *testing.T) {
	f := NewFragmenter([]doctree.Address{doctree.Root})
	frag := f.Final("# New Title\n## A\n")
	if len(frag.Nodes) != 1 {
		t.Fatalf("whole-tree fragment = %+v", frag.Nodes)
	}
	root := frag.Nodes[0]
	if root.Title != "New Title" || len(root.Children) != 1 || root.Children[0].Title != "A" {
		t.Errorf("whole-tree root = %+v", root)
	}
}

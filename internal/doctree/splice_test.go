package doctree

import (
	"errors"
	"testing"
)

func TestReplaceOneRoot(t *testing.T) {
	tree := sampleTree()
	sub := &Node{Title: "Fresh"}
	got := ReplaceOne(tree, Root, sub)
	if got != sub {
		t.Errorf("ReplaceOne at root = %+v, want the replacement itself", got)
	}
}

func TestReplaceOneChild(t *testing.T) {
	tree := sampleTree()
	sub := &Node{Title: "A2'", Text: "rewritten"}
	got := ReplaceOne(tree, "root-0-1", sub)

	n, ok := Resolve(got, "root-0-1")
	if !ok || n.Title != "A2'" {
		t.Fatalf("expected replacement at root-0-1, got %+v", n)
	}
	// Sibling order preserved.
	if got.Children[0].Children[0].Title != "A1" {
		t.Errorf("expected A1 untouched, got %q", got.Children[0].Children[0].Title)
	}
	if got.Children[1].Title != "B" {
		t.Errorf("expected B untouched, got %q", got.Children[1].Title)
	}
}

func TestReplaceOneDoesNotMutateInput(t *testing.T) {
	tree := sampleTree()
	_ = ReplaceOne(tree, "root-0-1", &Node{Title: "X"})
	if tree.Children[0].Children[1].Title != "A2" {
		t.Errorf("input tree mutated: %q", tree.Children[0].Children[1].Title)
	}
}

func TestReplaceOneSharesUntouchedSubtrees(t *testing.T) {
	tree := sampleTree()
	got := ReplaceOne(tree, "root-0-1", &Node{Title: "X"})
	if got.Children[1] != tree.Children[1] {
		t.Error("expected untouched sibling subtree to be shared, not copied")
	}
}

func TestReplaceOneStaleAddressIsNoOp(t *testing.T) {
	tree := sampleTree()
	for _, addr := range []Address{"root-9-0", "root-0-9", "root-x-1", "bogus-1"} {
		got := ReplaceOne(tree, addr, &Node{Title: "X"})
		if got != tree {
			t.Errorf("ReplaceOne(%q) should be a no-op returning the input tree", addr)
		}
	}
}

func TestReplaceSiblingsSpan(t *testing.T) {
	tree := &Node{Title: "Doc", Children: []*Node{
		{Title: "S0"}, {Title: "S1"}, {Title: "S2"}, {Title: "S3"},
	}}
	reps := []*Node{{Title: "R1"}, {Title: "R2"}, {Title: "R3"}}

	got, err := ReplaceSiblings(tree, []Address{"root-1", "root-2"}, reps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"S0", "R1", "R2", "R3", "S3"}
	if len(got.Children) != len(want) {
		t.Fatalf("expected %d children, got %d", len(want), len(got.Children))
	}
	for i, w := range want {
		if got.Children[i].Title != w {
			t.Errorf("child %d = %q, want %q", i, got.Children[i].Title, w)
		}
	}
	// Input untouched.
	if len(tree.Children) != 4 || tree.Children[1].Title != "S1" {
		t.Error("input tree mutated by ReplaceSiblings")
	}
}

func TestReplaceSiblingsCountChange(t *testing.T) {
	// N - (max-min+1) + len(reps) for a few shapes.
	tests := []struct {
		addrs []Address
		reps  int
		want  int
	}{
		{[]Address{"root-0"}, 1, 4},
		{[]Address{"root-0", "root-3"}, 1, 1}, // span covers unlisted middle siblings
		{[]Address{"root-1", "root-2"}, 0, 2}, // pure deletion
		{[]Address{"root-2"}, 5, 8},
	}
	for _, tt := range tests {
		tree := &Node{Children: []*Node{{}, {}, {}, {}}}
		reps := make([]*Node, tt.reps)
		for i := range reps {
			reps[i] = &Node{Title: "R"}
		}
		got, err := ReplaceSiblings(tree, tt.addrs, reps)
		if err != nil {
			t.Fatalf("addrs=%v: unexpected error: %v", tt.addrs, err)
		}
		if len(got.Children) != tt.want {
			t.Errorf("addrs=%v reps=%d: %d children, want %d", tt.addrs, tt.reps, len(got.Children), tt.want)
		}
	}
}

func TestReplaceSiblingsRootAlone(t *testing.T) {
	tree := sampleTree()
	rep := &Node{Title: "Whole"}
	got, err := ReplaceSiblings(tree, []Address{Root}, []*Node{rep})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != rep {
		t.Errorf("expected whole-tree replacement, got %+v", got)
	}
}

func TestReplaceSiblingsContractErrors(t *testing.T) {
	tree := sampleTree()
	tests := []struct {
		name  string
		addrs []Address
		reps  []*Node
		want  error
	}{
		{"empty addrs", nil, []*Node{{}}, ErrNoAddresses},
		{"root mixed with siblings", []Address{"root", "root-0"}, []*Node{{}}, ErrRootInSiblings},
		{"cross parent", []Address{"root-0-0", "root-1"}, []*Node{{}}, ErrCrossParent},
		{"root without replacement", []Address{"root"}, nil, ErrNoReplacements},
	}
	for _, tt := range tests {
		_, err := ReplaceSiblings(tree, tt.addrs, tt.reps)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestReplaceSiblingsStaleParentIsNoOp(t *testing.T) {
	tree := sampleTree()
	got, err := ReplaceSiblings(tree, []Address{"root-5-0", "root-5-1"}, []*Node{{Title: "R"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != tree {
		t.Error("expected stale parent to be a no-op returning the input tree")
	}
}

func TestReplaceSiblingsNested(t *testing.T) {
	tree := sampleTree()
	got, err := ReplaceSiblings(tree, []Address{"root-0-0", "root-0-1"}, []*Node{{Title: "Merged"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := got.Children[0]
	if len(a.Children) != 1 || a.Children[0].Title != "Merged" {
		t.Errorf("expected [Merged] under A, got %+v", a.Children)
	}
	if a.Text != "text a" {
		t.Errorf("parent text lost: %q", a.Text)
	}
}

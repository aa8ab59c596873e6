package generate

import (
	"github.com/dgallion1/outliner/internal/doctree"
	"github.com/dgallion1/outliner/internal/merge"
	"github.com/dgallion1/outliner/internal/parser"
)

// Fragmenter converts the accumulated generation text into cumulative
// tree fragments for the merge driver. Section targets map each
// top-level "##" section of the output to one target address; a lone
// "root" target takes the whole parsed tree.
type Fragmenter struct {
	streaming parser.HeadingParser
	final     parser.HeadingParser
	whole     bool
}

func NewFragmenter(targets []doctree.Address) *Fragmenter {
	return &Fragmenter{
		streaming: parser.HeadingParser{Streaming: true},
		whole:     len(targets) == 1 && targets[0] == doctree.Root,
	}
}

// Fragment parses a still-growing text. The unterminated final line is
// excluded, so a half-streamed heading never shows up as a node.
func (f *Fragmenter) Fragment(text string) merge.Fragment {
	return f.toFragment(f.streaming.Parse(text))
}

// Final parses the completed text, final line included.
func (f *Fragmenter) Final(text string) merge.Fragment {
	return f.toFragment(f.final.Parse(text))
}

func (f *Fragmenter) toFragment(tree *doctree.Node) merge.Fragment {
	if f.whole {
		return merge.Fragment{Nodes: []*doctree.Node{tree}}
	}
	return merge.Fragment{Nodes: tree.Children}
}

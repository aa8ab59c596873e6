package generate

import (
	"fmt"
	"strings"

	"github.com/dgallion1/outliner/internal/doctree"
	"github.com/dgallion1/outliner/internal/render"
)

// Selection is one user-selected node, as supplied by the UI
// collaborator. The address is resolved against the tree frozen at the
// start of the generation.
type Selection struct {
	Address doctree.Address `json:"address"`
	Label   string          `json:"label"`
	Text    string          `json:"text,omitempty"`
}

// RewriteSystemPrompt constrains the model's output to the shape the
// fragmenter expects: one "##" section per requested section, in
// order, and nothing else.
const RewriteSystemPrompt = `You revise sections of an outline document. The user supplies the full document as markdown, the list of sections to rewrite, and an instruction.

Respond with markdown only:
- Emit exactly one "##" heading per requested section, in the order listed, with the rewritten body under it.
- Do not echo sections that were not requested.
- Do not add commentary, preamble, or code fences.
- When asked to rewrite the entire document, instead start with a single "#" title line and emit the whole document.`

// BuildRewritePrompt renders the frozen base tree and the selection
// into the user prompt for one generation.
func BuildRewritePrompt(tree *doctree.Node, selections []Selection, instruction string) string {
	var sb strings.Builder
	sb.WriteString("Document:\n\n")
	sb.WriteString(render.ToMarkdown(tree))
	sb.WriteString("\n---\n")

	if len(selections) == 1 && selections[0].Address == doctree.Root {
		sb.WriteString("Rewrite the entire document.\n")
	} else {
		sb.WriteString("Sections to rewrite, in order:\n")
		for i, sel := range selections {
			label := sel.Label
			if label == "" {
				if n, ok := doctree.Resolve(tree, sel.Address); ok {
					label = n.Title
				} else {
					label = string(sel.Address)
				}
			}
			fmt.Fprintf(&sb, "%d. %s\n", i+1, label)
			if sel.Text != "" {
				fmt.Fprintf(&sb, "   Context: %s\n", truncate(sel.Text, 300))
			}
		}
	}

	sb.WriteString("\nInstruction: ")
	sb.WriteString(instruction)
	sb.WriteString("\n")
	return sb.String()
}

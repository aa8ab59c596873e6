// Package render serializes outline trees back to text for export and
// for prompting. ToMarkdown is the inverse of the heading parser for
// trees the parser can produce.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dgallion1/outliner/internal/doctree"
	"github.com/yuin/goldmark"
)

// ToMarkdown serializes a tree to heading-structured text. The root's
// title becomes the level-1 heading; children start at level 2. Levels
// deeper than 6 are capped at 6, matching what the parser can express.
func ToMarkdown(root *doctree.Node) string {
	var sb strings.Builder
	if root.Title != "" {
		sb.WriteString("# " + root.Title + "\n\n")
	}
	if root.Text != "" {
		sb.WriteString(root.Text + "\n\n")
	}
	writeNodes(&sb, root.Children, 2)
	return sb.String()
}

func writeNodes(sb *strings.Builder, nodes []*doctree.Node, level int) {
	if level > 6 {
		level = 6
	}
	for _, n := range nodes {
		sb.WriteString(strings.Repeat("#", level) + " " + n.Title + "\n\n")
		if n.Text != "" {
			sb.WriteString(n.Text + "\n\n")
		}
		writeNodes(sb, n.Children, level+1)
	}
}

// ToHTML renders the tree's markdown serialization to HTML.
func ToHTML(root *doctree.Node) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(ToMarkdown(root)), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

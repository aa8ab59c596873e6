package parser

import (
	"regexp"
	"strings"

	"github.com/dgallion1/outliner/internal/doctree"
)

var (
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	hruleRe   = regexp.MustCompile(`^ *(-( *-){2,}|\*( *\*){2,}|_( *_){2,}) *$`)
)

// HeadingParser builds an outline tree from heading-structured text.
// It is a pure function of the total text accumulated so far, so it can
// be re-run from scratch on every new chunk of a growing stream. It
// never fails: anything that is not a heading or a horizontal rule
// degrades to body text.
type HeadingParser struct {
	// Streaming excludes an unterminated final line from the parse, so
	// a chunk boundary in the middle of a heading token can never
	// produce a spurious node. Re-running on the grown text picks the
	// line up once its terminator arrives.
	Streaming bool
}

// Parse converts text into a rooted tree. A level-1 heading sets the
// root's title directly; deeper headings attach via a level stack, so
// an orphan heading (say a #### with no open ###) lands under the
// deepest ancestor still open. Body lines buffer into the innermost
// open node and flush, trimmed, when a new heading starts or input
// ends. Horizontal rules are discarded entirely.
func (p *HeadingParser) Parse(text string) *doctree.Node {
	if p.Streaming && text != "" && !strings.HasSuffix(text, "\n") {
		if i := strings.LastIndexByte(text, '\n'); i >= 0 {
			text = text[:i+1]
		} else {
			text = ""
		}
	}

	root := &doctree.Node{}
	type stackEntry struct {
		node  *doctree.Node
		level int
	}
	stack := []stackEntry{{root, 0}}

	var buf []string
	flush := func() {
		t := strings.TrimSpace(strings.Join(buf, "\n"))
		if t != "" {
			top := stack[len(stack)-1].node
			if top.Text != "" {
				top.Text += "\n" + t
			} else {
				top.Text = t
			}
		}
		buf = buf[:0]
	}

	for rest := text; rest != ""; {
		line := rest
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i+1]
			rest = rest[i+1:]
		} else {
			rest = ""
		}
		line = strings.TrimRight(line, "\r\n")
		if hruleRe.MatchString(line) {
			continue
		}
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			buf = append(buf, line)
			continue
		}

		flush()
		level := len(m[1])
		title := strings.TrimSpace(m[2])

		if level == 1 {
			// Document-level heading: titles the root, opens no child.
			root.Title = title
			stack = stack[:1]
			continue
		}

		node := &doctree.Node{Title: title}
		for len(stack) > 1 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].node
		parent.Children = append(parent.Children, node)
		stack = append(stack, stackEntry{node, level})
	}
	flush()

	return root
}

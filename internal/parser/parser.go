package parser

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/dgallion1/outliner/internal/doctree"
)

// Importer converts a document payload into an outline tree.
type Importer interface {
	Parse(r io.Reader) (*doctree.Node, error)
}

// ForContentType returns the importer for a document content type.
// Plain and markdown text go through the heading parser; HTML maps
// h1..h6 onto the same tree shape.
func ForContentType(contentType string) (Importer, error) {
	mt := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mt = parsed
	}
	switch strings.ToLower(mt) {
	case "", "text/plain", "text/markdown":
		return &textImporter{}, nil
	case "text/html":
		return &HTMLImporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

// textImporter adapts the heading parser to the Importer interface for
// complete (non-streaming) payloads.
type textImporter struct{}

func (p *textImporter) Parse(r io.Reader) (*doctree.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	hp := &HeadingParser{}
	return hp.Parse(string(src)), nil
}

// Package render provides output renderers for an assembled book.
// EPUB is the primary format; markdown, JSON and PDF are secondary.
package render

import (
	_ "embed"
	"fmt"

	"github.com/gaurav-prasanna/novelpipe/core"
	"github.com/gaurav-prasanna/novelpipe/core/normalize"
)

// Stylesheet is the CSS resource embedded in every EPUB.
//
//go:embed style.css
var Stylesheet string

// Format names accepted by New.
const (
	FormatEPUB     = "epub"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatPDF      = "pdf"
)

// Formats lists every supported format name.
var Formats = []string{FormatEPUB, FormatMarkdown, FormatJSON, FormatPDF}

// Options carries format-specific settings.
type Options struct {
	// PDFFont is an optional TTF file used for PDF text (needed for CJK).
	PDFFont string
}

// New creates the renderer for format.
func New(format string, opts Options) (core.Renderer, error) {
	switch format {
	case "", FormatEPUB:
		return NewEPUBRenderer(), nil
	case FormatMarkdown:
		return NewMarkdownRenderer(normalize.New()), nil
	case FormatJSON:
		return NewJSONRenderer(), nil
	case FormatPDF:
		return NewPDFRenderer(opts.PDFFont), nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/gaurav-prasanna/novelpipe/core"
)

// Normalizer converts an HTML fragment into Markdown.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// MarkdownRenderer writes the whole book as one Markdown document: the book
// title as a level-1 heading and each chapter under a level-2 heading.
type MarkdownRenderer struct {
	normalizer Normalizer
}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer(n Normalizer) *MarkdownRenderer {
	return &MarkdownRenderer{normalizer: n}
}

// Render converts every chapter to Markdown and joins them in book order.
func (r *MarkdownRenderer) Render(book *core.Book) ([]byte, error) {
	var buf strings.Builder
	fmt.Fprintf(&buf, "# %s\n", book.Title)

	for i, ch := range book.Chapters {
		md, err := r.normalizer.Normalize("<h2>" + html.EscapeString(ch.Title) + "</h2>" + ch.BodyHTML())
		if err != nil {
			return nil, fmt.Errorf("chapter %d: %w", i+1, err)
		}
		buf.WriteString("\n")
		buf.WriteString(md)
		buf.WriteString("\n")
	}
	return []byte(buf.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

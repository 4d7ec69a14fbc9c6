// Package core defines the pipeline types and interfaces for novelpipe.
// Each stage of the pipeline is a small, testable interface.
package core

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
)

// FetchResult holds the raw body and response metadata from a download.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// ChapterLink is a chapter URL discovered on the table-of-contents page.
type ChapterLink struct {
	Index int    `json:"index"`
	Href  string `json:"href"` // raw attribute value
	URL   string `json:"url"`  // resolved against the ToC URL
	Text  string `json:"text,omitempty"`
}

// Chapter is one extracted chapter of the book.
type Chapter struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
	URL        string   `json:"url"`
	FileName   string   `json:"file_name"`
	// Placeholder marks a chapter that stands in for one that was skipped.
	Placeholder bool `json:"placeholder,omitempty"`
}

// HTML returns the chapter document body: an <h1> title followed by one
// <p> per paragraph, with no separator between blocks.
func (c Chapter) HTML() string {
	var b strings.Builder
	b.WriteString("<h1>")
	b.WriteString(html.EscapeString(c.Title))
	b.WriteString("</h1>")
	b.WriteString(c.BodyHTML())
	return b.String()
}

// BodyHTML returns only the paragraph blocks of the chapter.
func (c Chapter) BodyHTML() string {
	var b strings.Builder
	for _, p := range c.Paragraphs {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(p))
		b.WriteString("</p>")
	}
	return b.String()
}

// SkippedChapter records a chapter replaced by a placeholder.
type SkippedChapter struct {
	Index  int    `json:"index"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Book is the assembled e-book, ready for rendering.
type Book struct {
	Title      string           `json:"title"`
	Language   string           `json:"language"`
	Identifier string           `json:"identifier"`
	SourceURL  string           `json:"source_url"`
	Chapters   []Chapter        `json:"chapters"`
	Skipped    []SkippedChapter `json:"skipped,omitempty"`
	Stylesheet string           `json:"-"`
	// Modified is the newest source page time. Renderers stamp it instead
	// of the wall clock so rebuilding from a warm cache is byte-identical.
	Modified   time.Time        `json:"-"`
}

// Validate checks the invariants that must hold before a book is rendered:
// at least one chapter and unique internal file names.
func (b *Book) Validate() error {
	if len(b.Chapters) == 0 {
		return &AssemblyError{Reason: "book has no chapters"}
	}
	seen := make(map[string]int, len(b.Chapters))
	for i, ch := range b.Chapters {
		if ch.FileName == "" {
			return &AssemblyError{Reason: fmt.Sprintf("chapter %d has no file name", i+1)}
		}
		if j, dup := seen[ch.FileName]; dup {
			return &AssemblyError{Reason: fmt.Sprintf("chapters %d and %d share file name %q", j+1, i+1, ch.FileName)}
		}
		seen[ch.FileName] = i
	}
	return nil
}

// Fetcher downloads the raw bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Renderer serializes a finished book into an output format.
type Renderer interface {
	Render(book *Book) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".epub").
	Extension() string
}

// Progress receives the chapter total once links are known, then one tick
// per finished chapter.
type Progress interface {
	ChangeMax(max int)
	Add(n int) error
}

// Package extract isolates the chapter text of a page.
// It locates the content container (a CSS selector, "#content" by default,
// or an XPath expression) and splits its descendant text into paragraphs.
package extract

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/novelpipe/core"
	"github.com/gaurav-prasanna/novelpipe/core/page"
)

// DefaultContainer is the selector of the content container on most sites.
const DefaultContainer = "#content"

// ignoredElements contribute no readable text to a chapter.
var ignoredElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// HTMLExtractor pulls the title and paragraphs out of a chapter page.
type HTMLExtractor struct {
	describe string
	find     func(root *html.Node) *html.Node
}

// New creates an HTMLExtractor whose container is the first element matched
// by the CSS selector.
func New(selector string) (*HTMLExtractor, error) {
	if selector == "" {
		selector = DefaultContainer
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compiling container selector %q: %w", selector, err)
	}
	return &HTMLExtractor{
		describe: selector,
		find:     sel.MatchFirst,
	}, nil
}

// NewXPath creates an HTMLExtractor whose container is the first node matched
// by the XPath expression.
func NewXPath(expr string) (*HTMLExtractor, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling container xpath %q: %w", expr, err)
	}
	return &HTMLExtractor{
		describe: "xpath " + expr,
		find: func(root *html.Node) *html.Node {
			return htmlquery.QuerySelector(root, compiled)
		},
	}, nil
}

// Extract returns the page title verbatim and the container text split into
// paragraphs. A page without a container yields a *core.ExtractionError.
func (e *HTMLExtractor) Extract(doc *page.Document) (string, []string, error) {
	title := doc.Title()

	container := e.find(doc.Root)
	if container == nil {
		return title, nil, &core.ExtractionError{
			URL:    doc.URL,
			Reason: fmt.Sprintf("no content container matching %s", e.describe),
		}
	}
	return title, Paragraphs(container), nil
}

// Paragraphs collects the non-empty descendant text nodes of n in document
// order. Each is trimmed and stripped of newlines.
func Paragraphs(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if p := cleanText(n.Data); p != "" {
				out = append(out, p)
			}
			return
		case html.ElementNode:
			if ignoredElements[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "")
}

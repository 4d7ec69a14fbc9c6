// Package page turns cached page bytes into parsed HTML documents.
package page

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/gaurav-prasanna/novelpipe/core"
)

// Document is a parsed HTML page together with the URL it came from.
type Document struct {
	URL  string
	Root *html.Node

	doc *goquery.Document
}

// Parse decodes raw page bytes to UTF-8 (honouring a BOM or <meta charset>)
// and parses them leniently. Unclosed tags and missing namespaces are
// tolerated; only a broken decoder or reader produces a *core.ParseError.
func Parse(url string, raw []byte) (*Document, error) {
	r, err := charset.NewReader(bytes.NewReader(raw), "")
	if err != nil {
		return nil, &core.ParseError{URL: url, Err: fmt.Errorf("detecting charset: %w", err)}
	}
	root, err := html.Parse(r)
	if err != nil {
		return nil, &core.ParseError{URL: url, Err: err}
	}
	return &Document{
		URL:  url,
		Root: root,
		doc:  goquery.NewDocumentFromNode(root),
	}, nil
}

// Selection returns a goquery view of the whole document.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

// Title returns the text of the first <title> element, verbatim.
func (d *Document) Title() string {
	return d.doc.Find("title").First().Text()
}

// Package crawl discovers chapter links on a table-of-contents page.
// Which anchors count as chapters, and in what order they are crawled, is
// decided by a Strategy.
package crawl

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/gaurav-prasanna/novelpipe/core"
	"github.com/gaurav-prasanna/novelpipe/core/page"
)

// Strategy decides which anchors are chapter links and how they are ordered.
type Strategy struct {
	Name string
	// Candidates selects the anchors to consider.
	Candidates cascadia.Selector
	// Match filters candidates by href. Nil accepts every candidate.
	Match func(href string) bool
	// Dedupe drops repeated hrefs, keeping the first one seen.
	Dedupe bool
	// Sort orders links lexicographically by href instead of document order.
	Sort bool
}

var (
	anchorsWithHref  = cascadia.MustCompile("a[href]")
	anchorsWithTitle = cascadia.MustCompile("a[href][title]")
	digitsHTML       = regexp.MustCompile(`(?i)\d+\.html`)
)

// Digits matches hrefs containing one or more digits followed by ".html",
// de-duplicates them and sorts them by href.
func Digits() Strategy {
	return Strategy{
		Name:       "digits",
		Candidates: anchorsWithHref,
		Match:      digitsHTML.MatchString,
		Dedupe:     true,
		Sort:       true,
	}
}

// Titled accepts every anchor carrying both href and title, in document
// order, without de-duplication.
func Titled() Strategy {
	return Strategy{
		Name:       "titled",
		Candidates: anchorsWithTitle,
	}
}

// Pattern accepts anchors whose href matches expr, de-duplicated, in
// document order.
func Pattern(expr string) (Strategy, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Strategy{}, fmt.Errorf("compiling link pattern: %w", err)
	}
	return Strategy{
		Name:       "pattern",
		Candidates: anchorsWithHref,
		Match:      re.MatchString,
		Dedupe:     true,
	}, nil
}

// Selector accepts anchors matched by a CSS selector, de-duplicated, in
// document order.
func Selector(css string) (Strategy, error) {
	sel, err := cascadia.Compile(css)
	if err != nil {
		return Strategy{}, fmt.Errorf("compiling link selector: %w", err)
	}
	return Strategy{
		Name:       "selector",
		Candidates: sel,
		Dedupe:     true,
	}, nil
}

// ParseStrategy builds a Strategy from its configuration form:
// "digits", "titled", "pattern:<regexp>" or "selector:<css>".
func ParseStrategy(s string) (Strategy, error) {
	switch {
	case s == "" || s == "digits":
		return Digits(), nil
	case s == "titled":
		return Titled(), nil
	case strings.HasPrefix(s, "pattern:"):
		return Pattern(strings.TrimPrefix(s, "pattern:"))
	case strings.HasPrefix(s, "selector:"):
		return Selector(strings.TrimPrefix(s, "selector:"))
	}
	return Strategy{}, fmt.Errorf("unknown link strategy %q", s)
}

// LinkExtractor finds chapter links on a parsed ToC page.
type LinkExtractor struct {
	strategy   Strategy
	legacyJoin bool
	logger     *slog.Logger
}

// Option configures a LinkExtractor.
type Option func(*LinkExtractor)

// WithLegacyJoin resolves hrefs by plain string concatenation with the ToC
// URL instead of RFC 3986 resolution.
func WithLegacyJoin(on bool) Option {
	return func(e *LinkExtractor) { e.legacyJoin = on }
}

// WithLogger sets the logger used for link events.
func WithLogger(l *slog.Logger) Option {
	return func(e *LinkExtractor) { e.logger = l }
}

// NewLinkExtractor creates a LinkExtractor using the given strategy.
func NewLinkExtractor(strategy Strategy, opts ...Option) *LinkExtractor {
	e := &LinkExtractor{
		strategy: strategy,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the chapter links of doc in crawl order, resolved against
// the document URL.
func (e *LinkExtractor) Extract(doc *page.Document) ([]core.ChapterLink, error) {
	base, err := url.Parse(doc.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	var links []core.ChapterLink
	seen := mapset.NewThreadUnsafeSet[string]()

	doc.Selection().FindMatcher(e.strategy.Candidates).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if e.strategy.Match != nil && !e.strategy.Match(href) {
			return
		}
		if e.strategy.Dedupe && !seen.Add(href) {
			return
		}
		links = append(links, core.ChapterLink{
			Href: href,
			Text: strings.TrimSpace(s.Text()),
		})
	})

	if e.strategy.Sort {
		sort.SliceStable(links, func(i, j int) bool { return links[i].Href < links[j].Href })
	}

	resolved := links[:0]
	for _, link := range links {
		if !IsNavigable(link.Href) {
			e.logger.Debug("skipping link", "href", link.Href)
			continue
		}
		if e.legacyJoin {
			link.URL = LegacyJoin(doc.URL, link.Href)
		} else {
			u, ok := Resolve(base, link.Href)
			if !ok {
				e.logger.Warn("unresolvable link", "href", link.Href)
				continue
			}
			link.URL = u
		}
		link.Index = len(resolved)
		resolved = append(resolved, link)
	}

	e.logger.Info("chapter links found", "strategy", e.strategy.Name, "count", len(resolved), "root", doc.URL)
	return resolved, nil
}

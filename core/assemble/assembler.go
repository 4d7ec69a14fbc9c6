// Package assemble drives the crawl: it loads the table of contents, fetches
// and extracts every chapter, and turns the result into a rendered book.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/novelpipe/core"
	"github.com/gaurav-prasanna/novelpipe/core/page"
	"github.com/gaurav-prasanna/novelpipe/crawl"
)

// DefaultLanguage is the book language when none is configured.
const DefaultLanguage = "zh"

// PageLoader returns parsed pages, normally through the cache store.
type PageLoader interface {
	Load(ctx context.Context, url string) (*page.Document, error)
}

// LinkExtractor lists the chapter links of a ToC page in crawl order.
type LinkExtractor interface {
	Extract(doc *page.Document) ([]core.ChapterLink, error)
}

// ContentExtractor pulls the title and paragraphs out of a chapter page.
type ContentExtractor interface {
	Extract(doc *page.Document) (string, []string, error)
}

// PathResolver maps a URL to its cache file path.
type PathResolver interface {
	PathFor(url string) string
}

// Writer stores rendered bytes and returns the final path.
type Writer interface {
	Write(path string, data []byte) (string, error)
}

// Assembler builds and publishes books.
type Assembler struct {
	loader   PageLoader
	links    LinkExtractor
	content  ContentExtractor
	paths    PathResolver
	renderer core.Renderer
	writer   Writer

	language    string
	concurrency int
	skipFailed  bool
	output      string
	stylesheet  string
	progress    core.Progress
	logger      *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLanguage sets the book language tag.
func WithLanguage(lang string) Option {
	return func(a *Assembler) { a.language = lang }
}

// WithConcurrency sets how many chapters are fetched at once.
func WithConcurrency(n int) Option {
	return func(a *Assembler) { a.concurrency = n }
}

// WithSkipFailed replaces chapters that fail to download or parse with
// placeholders instead of aborting the run.
func WithSkipFailed(on bool) Option {
	return func(a *Assembler) { a.skipFailed = on }
}

// WithOutput overrides the output path.
func WithOutput(path string) Option {
	return func(a *Assembler) { a.output = path }
}

// WithStylesheet sets the CSS packaged with the book.
func WithStylesheet(css string) Option {
	return func(a *Assembler) { a.stylesheet = css }
}

// WithProgress reports one tick per finished chapter.
func WithProgress(p core.Progress) Option {
	return func(a *Assembler) { a.progress = p }
}

// WithLogger sets the logger used for crawl events.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

// New creates an Assembler from its pipeline stages.
func New(loader PageLoader, links LinkExtractor, content ContentExtractor, paths PathResolver, renderer core.Renderer, writer Writer, opts ...Option) *Assembler {
	a := &Assembler{
		loader:      loader,
		links:       links,
		content:     content,
		paths:       paths,
		renderer:    renderer,
		writer:      writer,
		language:    DefaultLanguage,
		concurrency: 1,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.concurrency < 1 {
		a.concurrency = 1
	}
	return a
}

// Identifier returns the stable book identifier for a ToC URL.
func Identifier(tocURL string) string {
	return "urn:uuid:" + uuid.NewV5(uuid.NamespaceURL, tocURL).String()
}

// Build crawls tocURL and returns the assembled book. Any failure to load the
// ToC is fatal. Chapters are stored by link index, so book order never
// depends on which download finishes first.
func (a *Assembler) Build(ctx context.Context, tocURL string) (*core.Book, error) {
	toc, err := a.loader.Load(ctx, tocURL)
	if err != nil {
		return nil, fmt.Errorf("loading table of contents: %w", err)
	}
	links, err := a.links.Extract(toc)
	if err != nil {
		return nil, fmt.Errorf("extracting chapter links: %w", err)
	}
	if len(links) == 0 {
		return nil, &core.AssemblyError{Reason: "no chapter links found on " + tocURL}
	}

	if a.progress != nil {
		a.progress.ChangeMax(len(links))
	}

	chapters := make([]core.Chapter, len(links))
	skipped := make([]*core.SkippedChapter, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, link := range links {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ch, skip, err := a.chapter(gctx, i, link)
			if err != nil {
				return err
			}
			chapters[i] = ch
			skipped[i] = skip
			if a.progress != nil {
				_ = a.progress.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	assignFileNames(chapters)

	book := &core.Book{
		Title:      toc.Title(),
		Language:   a.language,
		Identifier: Identifier(tocURL),
		SourceURL:  tocURL,
		Chapters:   chapters,
		Stylesheet: a.stylesheet,
		Modified:   a.sourceTime(tocURL, links),
	}
	for _, s := range skipped {
		if s != nil {
			book.Skipped = append(book.Skipped, *s)
		}
	}
	if err := book.Validate(); err != nil {
		return nil, err
	}

	a.logger.Info("book assembled", "title", book.Title, "chapters", len(book.Chapters), "skipped", len(book.Skipped))
	return book, nil
}

// Publish builds the book, renders it and writes it out. The default output
// path is the cache path of the last chapter with the renderer's extension.
func (a *Assembler) Publish(ctx context.Context, tocURL string) (string, *core.Book, error) {
	book, err := a.Build(ctx, tocURL)
	if err != nil {
		return "", nil, err
	}

	data, err := a.renderer.Render(book)
	if err != nil {
		return "", nil, fmt.Errorf("rendering book: %w", err)
	}

	path := a.output
	if path == "" {
		last := book.Chapters[len(book.Chapters)-1]
		path = a.paths.PathFor(last.URL) + a.renderer.Extension()
	}
	written, err := a.writer.Write(path, data)
	if err != nil {
		return "", nil, err
	}

	a.logger.Info("book written", "path", written, "bytes", len(data))
	return written, book, nil
}

// chapter loads and extracts one chapter. A recoverable failure yields a
// placeholder and a skip record instead of an error.
func (a *Assembler) chapter(ctx context.Context, i int, link core.ChapterLink) (core.Chapter, *core.SkippedChapter, error) {
	a.logger.Info("handle chapter", "index", i+1, "url", link.URL)

	doc, err := a.loader.Load(ctx, link.URL)
	if err != nil {
		return a.skipOrFail(ctx, i, link, err)
	}
	title, paragraphs, err := a.content.Extract(doc)
	if err != nil {
		return a.skipOrFail(ctx, i, link, err)
	}
	return core.Chapter{Title: title, Paragraphs: paragraphs, URL: link.URL}, nil, nil
}

func (a *Assembler) skipOrFail(ctx context.Context, i int, link core.ChapterLink, err error) (core.Chapter, *core.SkippedChapter, error) {
	if ctx.Err() != nil {
		return core.Chapter{}, nil, ctx.Err()
	}
	if !core.IsRecoverable(err) && !(a.skipFailed && isDownloadError(err)) {
		return core.Chapter{}, nil, fmt.Errorf("chapter %d: %w", i+1, err)
	}

	a.logger.Warn("chapter skipped", "index", i+1, "url", link.URL, "err", err)
	return placeholder(i, link), &core.SkippedChapter{Index: i + 1, URL: link.URL, Reason: err.Error()}, nil
}

func isDownloadError(err error) bool {
	var fe *core.FetchError
	var pe *core.ParseError
	return errors.As(err, &fe) || errors.As(err, &pe)
}

func placeholder(i int, link core.ChapterLink) core.Chapter {
	return core.Chapter{
		Title:       fmt.Sprintf("%d. (unavailable)", i+1),
		Paragraphs:  []string{"This chapter could not be retrieved from " + link.URL},
		URL:         link.URL,
		Placeholder: true,
	}
}

// assignFileNames names each chapter after the last path segment of its URL,
// falling back to chapter-NNNN.xhtml when the segment is empty or taken.
func assignFileNames(chapters []core.Chapter) {
	used := make(map[string]bool, len(chapters))
	for i := range chapters {
		name := crawl.LastSegment(chapters[i].URL)
		if name == "" || used[name] {
			name = fmt.Sprintf("chapter-%04d.xhtml", i+1)
		}
		used[name] = true
		chapters[i].FileName = name
	}
}

// sourceTime returns the newest cache file time among the ToC and chapter
// pages, truncated to seconds. Pages never cached are ignored.
func (a *Assembler) sourceTime(tocURL string, links []core.ChapterLink) time.Time {
	var newest time.Time
	stamp := func(url string) {
		if info, err := os.Stat(a.paths.PathFor(url)); err == nil && info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	stamp(tocURL)
	for _, link := range links {
		stamp(link.URL)
	}
	return newest.UTC().Truncate(time.Second)
}

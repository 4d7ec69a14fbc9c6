// Package cmd: build command.
// Wires the pipeline together:
// fetch → cache → parse → links → extract → assemble → render → write.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gaurav-prasanna/novelpipe/config"
	"github.com/gaurav-prasanna/novelpipe/core/assemble"
	"github.com/gaurav-prasanna/novelpipe/core/cache"
	"github.com/gaurav-prasanna/novelpipe/core/extract"
	"github.com/gaurav-prasanna/novelpipe/core/fetch"
	"github.com/gaurav-prasanna/novelpipe/core/output"
	"github.com/gaurav-prasanna/novelpipe/core/page"
	"github.com/gaurav-prasanna/novelpipe/core/render"
	"github.com/gaurav-prasanna/novelpipe/crawl"
)

var buildCmd = &cobra.Command{
	Use:   "build [url]",
	Short: "Crawl a table-of-contents page and build the book",
	Long: `Build fetches the table-of-contents page, follows every chapter link,
extracts the chapter text and writes one book file.

Pages are cached under --cache-dir; a second run with a warm cache makes no
network requests. Settings can also come from NOVELPIPE_* environment
variables or a config file.

Examples:
  novelpipe build https://www.example.com/book/1234/
  novelpipe build --url https://www.example.com/book/1234/ --strategy titled
  novelpipe build https://www.example.com/book/1234/ --format markdown --output novel.md
  novelpipe build https://www.example.com/book/1234/ --concurrency 4 --skip-failed --progress`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addBuildFlags(buildCmd.Flags())
}

// addBuildFlags registers the build settings on f. Both the root command
// and "build" carry them, so "novelpipe <url>" works like "novelpipe build <url>".
func addBuildFlags(f *pflag.FlagSet) {
	d := config.Default()
	f.String("url", "", "Table-of-contents URL (alternative to the positional argument)")
	f.String("cache-dir", d.CacheDir, "Directory for cached pages and the default output")
	f.String("cache-naming", d.CacheNaming, "Cache file naming: sanitize or hash")
	f.String("lang", d.Language, "Book language tag")
	f.String("strategy", d.Strategy, "Link strategy: digits, titled, pattern:<regexp>, selector:<css>")
	f.String("container", d.Container, "CSS selector of the chapter text container")
	f.String("container-xpath", d.ContainerXPath, "XPath of the chapter text container (overrides --container)")
	f.String("format", d.Format, "Output format: epub, markdown, json, pdf")
	f.String("output", d.Output, "Output file (default: next to the last chapter in the cache dir)")
	f.Int("concurrency", d.Concurrency, "Chapters fetched at once")
	f.Int("retries", d.Retries, "Retries for transient network errors")
	f.Duration("timeout", d.Timeout, "Per-request timeout")
	f.Bool("skip-failed", d.SkipFailed, "Replace chapters that fail to download with placeholders")
	f.Bool("legacy-join", d.LegacyJoin, "Join links to the ToC URL by string concatenation")
	f.String("pdf-font", d.PDFFont, "TTF font for PDF output (needed for CJK text)")
	f.Bool("progress", d.Progress, "Show a progress bar")
}

func runBuild(cmd *cobra.Command, args []string) error {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	if len(args) == 1 {
		v.Set("url", args[0])
	}
	configFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	logger := newLogger(level)
	slog.SetDefault(logger)

	asm, err := newAssembler(cfg, logger)
	if err != nil {
		return err
	}

	path, book, err := asm.Publish(cmd.Context(), cfg.URL)
	if err != nil {
		return err
	}
	logger.Info("done", "title", book.Title, "chapters", len(book.Chapters), "skipped", len(book.Skipped), "output", path)
	return nil
}

// newAssembler builds every pipeline stage from cfg.
func newAssembler(cfg config.Config, logger *slog.Logger) (*assemble.Assembler, error) {
	fetcher := fetch.New(
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithRetries(cfg.Retries),
		fetch.WithLogger(logger),
	)
	store, err := cache.New(cfg.CacheDir, fetcher,
		cache.WithNaming(cache.Naming(cfg.CacheNaming)),
		cache.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	strategy, err := crawl.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	links := crawl.NewLinkExtractor(strategy,
		crawl.WithLegacyJoin(cfg.LegacyJoin),
		crawl.WithLogger(logger),
	)

	var content *extract.HTMLExtractor
	if cfg.ContainerXPath != "" {
		content, err = extract.NewXPath(cfg.ContainerXPath)
	} else {
		content, err = extract.New(cfg.Container)
	}
	if err != nil {
		return nil, err
	}

	renderer, err := render.New(cfg.Format, render.Options{PDFFont: cfg.PDFFont})
	if err != nil {
		return nil, err
	}
	writer, err := output.New("")
	if err != nil {
		return nil, err
	}

	opts := []assemble.Option{
		assemble.WithLanguage(cfg.Language),
		assemble.WithConcurrency(cfg.Concurrency),
		assemble.WithSkipFailed(cfg.SkipFailed),
		assemble.WithOutput(cfg.Output),
		assemble.WithStylesheet(render.Stylesheet),
		assemble.WithLogger(logger),
	}
	if cfg.Progress {
		opts = append(opts, assemble.WithProgress(progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("chapters"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)))
	}

	return assemble.New(page.NewLoader(store), links, content, store, renderer, writer, opts...), nil
}

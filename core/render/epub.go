// Package render: EPUB renderer.
// Packs one XHTML document per chapter, a generated nav/NCX and the
// stylesheet into a single EPUB file using go-epub.
package render

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bmaupin/go-epub"
	"github.com/vincent-petithory/dataurl"

	"github.com/gaurav-prasanna/novelpipe/core"
)

const cssFileName = "nav.css"

// modifiedLayout is the dcterms:modified format required by EPUB 3.
const modifiedLayout = "2006-01-02T15:04:05Z"

var modifiedMeta = regexp.MustCompile(`(<meta[^>]*property="dcterms:modified"[^>]*>)[^<]*(</meta>)`)

// EPUBRenderer renders a book as an EPUB package.
type EPUBRenderer struct{}

// NewEPUBRenderer creates an EPUBRenderer.
func NewEPUBRenderer() *EPUBRenderer {
	return &EPUBRenderer{}
}

// Render builds the EPUB and returns its bytes.
func (r *EPUBRenderer) Render(book *core.Book) ([]byte, error) {
	e := epub.NewEpub(book.Title)
	e.SetLang(book.Language)
	if book.Identifier != "" {
		e.SetIdentifier(book.Identifier)
	}

	css := book.Stylesheet
	if css == "" {
		css = Stylesheet
	}
	// go-epub only takes media by source, so the CSS travels as a data URL.
	cssPath, err := e.AddCSS(dataurl.New([]byte(css), "text/css").String(), cssFileName)
	if err != nil {
		return nil, fmt.Errorf("adding stylesheet: %w", err)
	}

	for i, ch := range book.Chapters {
		if _, err := e.AddSection(ch.HTML(), ch.Title, ch.FileName, cssPath); err != nil {
			return nil, fmt.Errorf("adding chapter %d (%s): %w", i+1, ch.FileName, err)
		}
	}

	// go-epub writes to a path; stage it in a temp dir and hand back bytes.
	dir, err := os.MkdirTemp("", "novelpipe-epub-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "book"+r.Extension())
	if err := e.Write(out); err != nil {
		return nil, fmt.Errorf("writing epub: %w", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("reading epub: %w", err)
	}
	return stampPackage(data, modifiedStamp(book.Modified))
}

// Extension returns the file extension for EPUB output.
func (r *EPUBRenderer) Extension() string {
	return ".epub"
}

// modifiedStamp formats t for the package metadata. A zero time maps to the
// Unix epoch.
func modifiedStamp(t time.Time) string {
	if t.IsZero() {
		t = time.Unix(0, 0)
	}
	return t.UTC().Format(modifiedLayout)
}

// stampPackage rewrites the archive go-epub produced so it depends only on
// the book: dcterms:modified in the OPF is replaced with stamp, and entry
// headers carry no timestamps. Entry order and compression methods are
// kept, so mimetype stays first and stored.
func stampPackage(data []byte, stamp string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("reading epub archive: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		body, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(f.Name, ".opf") {
			body = modifiedMeta.ReplaceAll(body, []byte("${1}"+stamp+"${2}"))
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: f.Method})
		if err != nil {
			return nil, fmt.Errorf("writing epub entry %s: %w", f.Name, err)
		}
		if _, err := w.Write(body); err != nil {
			return nil, fmt.Errorf("writing epub entry %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing epub archive: %w", err)
	}
	return buf.Bytes(), nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening epub entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading epub entry %s: %w", f.Name, err)
	}
	return body, nil
}

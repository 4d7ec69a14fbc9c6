package render

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gaurav-prasanna/novelpipe/core"
	"github.com/gaurav-prasanna/novelpipe/core/normalize"
)

func sampleBook() *core.Book {
	return &core.Book{
		Title:      "Novel",
		Language:   "zh",
		Identifier: "urn:uuid:6ba7b811-9dad-11d1-80b4-00c04fd430c8",
		SourceURL:  "http://example.com/toc.html",
		Chapters: []core.Chapter{
			{Title: "C1", Paragraphs: []string{"Hello"}, URL: "http://example.com/1.html", FileName: "1.html"},
			{Title: "C2", Paragraphs: []string{"World"}, URL: "http://example.com/2.html", FileName: "2.html"},
		},
		Skipped:    []core.SkippedChapter{{Index: 3, URL: "http://example.com/3.html", Reason: "no content container"}},
		Stylesheet: Stylesheet,
	}
}

func TestNewKnowsEveryFormat(t *testing.T) {
	for _, f := range Formats {
		if _, err := New(f, Options{}); err != nil {
			t.Errorf("New(%q): %v", f, err)
		}
	}
	if _, err := New("docx", Options{}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestStylesheetEmbedded(t *testing.T) {
	if !strings.Contains(Stylesheet, "@namespace epub") {
		t.Errorf("embedded stylesheet looks wrong: %q", Stylesheet)
	}
}

func TestEPUBRenderer(t *testing.T) {
	data, err := NewEPUBRenderer().Render(sampleBook())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("output is not a zip: %v", err)
	}

	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		files[f.Name] = string(b)
	}

	if got := files["mimetype"]; got != "application/epub+zip" {
		t.Errorf("mimetype = %q", got)
	}

	var c1, c2, css bool
	for name, body := range files {
		switch {
		case strings.HasSuffix(name, "/1.html"):
			c1 = strings.Contains(body, "<h1>C1</h1><p>Hello</p>")
		case strings.HasSuffix(name, "/2.html"):
			c2 = strings.Contains(body, "<h1>C2</h1><p>World</p>")
		case strings.HasSuffix(name, "/nav.css"):
			css = strings.Contains(body, "@namespace epub")
		}
	}
	if !c1 || !c2 {
		t.Errorf("chapter documents missing or wrong (c1=%v c2=%v)", c1, c2)
	}
	if !css {
		t.Error("stylesheet not packaged")
	}
}

func TestEPUBRendererIsReproducible(t *testing.T) {
	book := sampleBook()
	book.Modified = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := NewEPUBRenderer()

	first, err := r.Render(book)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// Cross a second boundary so a wall-clock stamp would differ.
	time.Sleep(1100 * time.Millisecond)
	second, err := r.Render(book)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("renders differ: %d vs %d bytes", len(first), len(second))
	}

	zr, err := zip.NewReader(bytes.NewReader(first), int64(len(first)))
	if err != nil {
		t.Fatalf("output is not a zip: %v", err)
	}
	if zr.File[0].Name != "mimetype" || zr.File[0].Method != zip.Store {
		t.Errorf("first entry = %s (method %d), want stored mimetype", zr.File[0].Name, zr.File[0].Method)
	}
	var stamped bool
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".opf") {
			continue
		}
		rc, _ := f.Open()
		body, _ := io.ReadAll(rc)
		rc.Close()
		stamped = strings.Contains(string(body), ">2024-05-01T10:00:00Z</meta>")
	}
	if !stamped {
		t.Error("package document does not carry the book's modification time")
	}
}

func TestModifiedStamp(t *testing.T) {
	if got := modifiedStamp(time.Time{}); got != "1970-01-01T00:00:00Z" {
		t.Errorf("zero time = %q", got)
	}
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("CST", 8*3600))
	if got := modifiedStamp(at); got != "2024-05-01T04:30:00Z" {
		t.Errorf("stamp = %q, want UTC", got)
	}
}

func TestMarkdownRenderer(t *testing.T) {
	data, err := NewMarkdownRenderer(normalize.New()).Render(sampleBook())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	md := string(data)
	if !strings.HasPrefix(md, "# Novel\n") {
		t.Errorf("missing book heading: %q", md)
	}
	i1 := strings.Index(md, "## C1")
	i2 := strings.Index(md, "## C2")
	if i1 < 0 || i2 < 0 || i1 > i2 {
		t.Errorf("chapters missing or out of order: %q", md)
	}
	if !strings.Contains(md, "Hello") || !strings.Contains(md, "World") {
		t.Errorf("paragraph text missing: %q", md)
	}
}

func TestJSONRenderer(t *testing.T) {
	data, err := NewJSONRenderer().Render(sampleBook())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(string(data), "@namespace epub") {
		t.Error("stylesheet should not be part of the manifest")
	}
	var got struct {
		Title    string `json:"title"`
		Chapters []struct {
			FileName string `json:"file_name"`
		} `json:"chapters"`
		Skipped []struct {
			Index int `json:"index"`
		} `json:"skipped"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Title != "Novel" || len(got.Chapters) != 2 || got.Chapters[1].FileName != "2.html" {
		t.Errorf("unexpected manifest: %+v", got)
	}
	if len(got.Skipped) != 1 || got.Skipped[0].Index != 3 {
		t.Errorf("skipped chapters not recorded: %+v", got.Skipped)
	}
}

func TestPDFRenderer(t *testing.T) {
	r := NewPDFRenderer("")
	data, err := r.Render(sampleBook())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("output does not look like a PDF: %q", data[:min(len(data), 16)])
	}
	if r.Extension() != ".pdf" {
		t.Errorf("Extension = %q", r.Extension())
	}
}

func TestPDFRendererMissingFont(t *testing.T) {
	_, err := NewPDFRenderer(t.TempDir() + "/missing.ttf").Render(sampleBook())
	if err == nil {
		t.Fatal("expected error for missing font file")
	}
}

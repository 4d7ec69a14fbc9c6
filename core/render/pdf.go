// Package render: PDF renderer.
// Lays the book out with gofpdf: a title page line, then each chapter on a
// new page with its heading and paragraphs.
package render

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/novelpipe/core"
)

const pdfFamily = "body"

// PDFRenderer renders a book as a PDF document.
type PDFRenderer struct {
	// fontFile is an optional TTF. Without it the core Helvetica font is
	// used, which cannot draw CJK text.
	fontFile string
}

// NewPDFRenderer creates a PDFRenderer. fontFile may be empty.
func NewPDFRenderer(fontFile string) *PDFRenderer {
	return &PDFRenderer{fontFile: fontFile}
}

// Render lays out every chapter and returns the PDF bytes.
func (r *PDFRenderer) Render(book *core.Book) ([]byte, error) {
	fontDir := ""
	if r.fontFile != "" {
		fontDir = filepath.Dir(r.fontFile)
	}
	pdf := gofpdf.New("P", "mm", "A4", fontDir)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(book.Title, true)

	family := "Helvetica"
	tr := func(s string) string { return s }
	if r.fontFile != "" {
		base := filepath.Base(r.fontFile)
		pdf.AddUTF8Font(pdfFamily, "", base)
		pdf.AddUTF8Font(pdfFamily, "B", base)
		family = pdfFamily
	} else {
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("loading font %s: %w", r.fontFile, err)
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 20)
	pdf.MultiCell(0, 10, tr(book.Title), "", "C", false)
	if book.SourceURL != "" {
		pdf.Ln(4)
		pdf.SetFont(family, "", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.MultiCell(0, 5, tr("Source: "+book.SourceURL), "", "C", false)
		pdf.SetTextColor(0, 0, 0)
	}

	for _, ch := range book.Chapters {
		pdf.AddPage()
		renderHeading(pdf, family, tr(ch.Title))
		pdf.SetFont(family, "", 11)
		for _, p := range ch.Paragraphs {
			pdf.MultiCell(0, 6, tr(p), "", "L", false)
			pdf.Ln(2)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

func renderHeading(pdf *gofpdf.Fpdf, family, text string) {
	pdf.SetFont(family, "B", 15)
	pdf.MultiCell(0, 9, text, "", "L", false)
	pdf.Ln(4)
}

// Package render: JSON renderer.
// Writes the assembled book, including skipped-chapter accounting, as an
// indented JSON manifest.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/novelpipe/core"
)

// JSONRenderer produces a JSON manifest of the book.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render marshals the book. Field order is fixed, so output is deterministic.
func (r *JSONRenderer) Render(book *core.Book) ([]byte, error) {
	data, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

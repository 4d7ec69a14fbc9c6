package normalize

import (
	"strings"
	"testing"
)

func TestNormalizeChapter(t *testing.T) {
	md, err := New().Normalize("<h1>C1</h1><p>Hello</p><p>World</p>")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !strings.HasPrefix(md, "# C1") {
		t.Errorf("expected a level-1 heading, got %q", md)
	}
	if !strings.Contains(md, "Hello\n\nWorld") {
		t.Errorf("expected paragraphs separated by a blank line, got %q", md)
	}
	if strings.HasSuffix(md, "\n") {
		t.Errorf("trailing newline not trimmed: %q", md)
	}
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildRequiresURL(t *testing.T) {
	rootCmd.SetArgs([]string{"build", "--cache-dir", t.TempDir()})
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "URL") {
		t.Fatalf("expected missing URL error, got %v", err)
	}
}

func TestBuildWritesBook(t *testing.T) {
	pages := map[string]string{
		"/toc.html": `<html><head><title>Novel</title></head><body><a href="1.html">one</a><a href="2.html">two</a></body></html>`,
		"/1.html":   `<html><head><title>C1</title></head><body><div id="content">Hello</div></body></html>`,
		"/2.html":   `<html><head><title>C2</title></head><body><div id="content">World</div></body></html>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	out := filepath.Join(dir, "novel.json")
	rootCmd.SetArgs([]string{
		"build", srv.URL + "/toc.html",
		"--cache-dir", filepath.Join(dir, "cache"),
		"--format", "json",
		"--output", out,
		"--log-level", "error",
	})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	var book struct {
		Title    string `json:"title"`
		Chapters []struct {
			Title string `json:"title"`
		} `json:"chapters"`
	}
	if err := json.Unmarshal(data, &book); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if book.Title != "Novel" || len(book.Chapters) != 2 || book.Chapters[1].Title != "C2" {
		t.Errorf("unexpected book: %+v", book)
	}
}

func TestRootAcceptsURLWithoutBuild(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/toc.html":
			fmt.Fprint(w, `<html><head><title>Short</title></head><body><a href="1.html">one</a></body></html>`)
		case "/1.html":
			fmt.Fprint(w, `<html><head><title>Only</title></head><body><div id="content">Text</div></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	out := filepath.Join(dir, "short.json")
	rootCmd.SetArgs([]string{
		srv.URL + "/toc.html",
		"--cache-dir", filepath.Join(dir, "cache"),
		"--format", "json",
		"--output", out,
		"--log-level", "error",
	})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("novelpipe <url>: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.Contains(string(data), `"Only"`) {
		t.Errorf("chapter missing from output: %s", data)
	}
}

func TestRootRejectsExtraArgs(t *testing.T) {
	rootCmd.SetArgs([]string{"http://a.invalid/", "http://b.invalid/", "--cache-dir", t.TempDir()})
	if err := rootCmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected an error for two URLs")
	}
}

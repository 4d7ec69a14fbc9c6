package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gaurav-prasanna/novelpipe/core"
)

// countingFetcher serves fixed pages and counts network calls.
type countingFetcher struct {
	pages map[string]string
	calls atomic.Int32
	delay time.Duration
}

func (f *countingFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, &core.FetchError{URL: url, StatusCode: 404}
	}
	return &core.FetchResult{URL: url, StatusCode: 200, Body: []byte(body)}, nil
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://a.com/1.html", "https___a_com_1_html"},
		{`a<b>c\d|e;f*g?h&i,j`, "a_b_c_d_e_f_g_h_i_j"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeRemovesBlocklist(t *testing.T) {
	urls := []string{
		"https://www.example.com/book/123/456.html?x=1&y=2,3;4",
		`C:\dir\file.html`,
		"http://host:8080/a|b*c<d>e",
	}
	for _, u := range urls {
		got := Sanitize(u)
		if strings.ContainsAny(got, `:.<>/\|;*?&,`) {
			t.Errorf("Sanitize(%q) = %q still contains blocked characters", u, got)
		}
		if again := Sanitize(u); again != got {
			t.Errorf("Sanitize is not deterministic: %q vs %q", got, again)
		}
	}
}

func TestPathForHashNaming(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, &countingFetcher{}, WithNaming(NamingHash))
	if err != nil {
		t.Fatal(err)
	}
	a := s.PathFor("https://a.com/1.html")
	b := s.PathFor("https://a.com/1_html")
	if a == b {
		t.Error("hash naming should separate URLs that sanitize identically")
	}
	if filepath.Dir(a) != dir || len(filepath.Base(a)) != 64 {
		t.Errorf("unexpected hash path %q", a)
	}
}

func TestFetchAndStoreMissThenHit(t *testing.T) {
	const url = "https://a.com/1.html"
	f := &countingFetcher{pages: map[string]string{url: "chapter one"}}
	s, err := New(t.TempDir(), f)
	if err != nil {
		t.Fatal(err)
	}

	if s.Exists(url) {
		t.Fatal("Exists before first fetch")
	}
	data, err := s.FetchAndStore(context.Background(), url)
	if err != nil {
		t.Fatalf("FetchAndStore: %v", err)
	}
	if string(data) != "chapter one" {
		t.Errorf("data = %q", data)
	}
	if !s.Exists(url) {
		t.Error("Exists after fetch should be true")
	}
	onDisk, err := os.ReadFile(s.PathFor(url))
	if err != nil || string(onDisk) != "chapter one" {
		t.Errorf("cache file = %q, %v", onDisk, err)
	}

	// A fresh store over the same directory must not touch the network.
	s2, _ := New(s.Dir(), f)
	if _, err := s2.FetchAndStore(context.Background(), url); err != nil {
		t.Fatal(err)
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("network calls = %d, want 1", n)
	}
}

func TestFetchAndStoreNeverFetchesExisting(t *testing.T) {
	const url = "https://a.com/2.html"
	f := &countingFetcher{}
	s, _ := New(t.TempDir(), f)
	if err := os.WriteFile(s.PathFor(url), []byte("seeded"), 0644); err != nil {
		t.Fatal(err)
	}

	data, err := s.FetchAndStore(context.Background(), url)
	if err != nil {
		t.Fatalf("FetchAndStore: %v", err)
	}
	if string(data) != "seeded" {
		t.Errorf("data = %q", data)
	}
	if n := f.calls.Load(); n != 0 {
		t.Errorf("network calls = %d, want 0", n)
	}
}

func TestFetchAndStoreFailureWritesNothing(t *testing.T) {
	const url = "https://a.com/missing.html"
	s, _ := New(t.TempDir(), &countingFetcher{})

	_, err := s.FetchAndStore(context.Background(), url)
	var fetchErr *core.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.StatusCode != 404 {
		t.Fatalf("expected 404 FetchError, got %v", err)
	}
	if s.Exists(url) {
		t.Error("failed download must not create a cache file")
	}
	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 0 {
		t.Errorf("cache dir should be empty, has %d entries", len(entries))
	}
}

func TestFetchAndStoreConcurrentSameURL(t *testing.T) {
	const url = "https://a.com/3.html"
	f := &countingFetcher{pages: map[string]string{url: "shared"}, delay: 20 * time.Millisecond}
	s, _ := New(t.TempDir(), f)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := s.FetchAndStore(context.Background(), url)
			if err != nil || string(data) != "shared" {
				t.Errorf("FetchAndStore = %q, %v", data, err)
			}
		}()
	}
	wg.Wait()

	if n := f.calls.Load(); n != 1 {
		t.Errorf("network calls = %d, want 1", n)
	}
	onDisk, _ := os.ReadFile(s.PathFor(url))
	if string(onDisk) != "shared" {
		t.Errorf("cache file = %q", onDisk)
	}
}

func TestWriteOnceKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page")
	if err := os.WriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := writeOnce(path, []byte("second")); err != nil {
		t.Fatalf("writeOnce: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "first" {
		t.Errorf("existing file was clobbered: %q", data)
	}
}

func TestFetchAndStoreRepeatServedFromMemory(t *testing.T) {
	const url = "https://a.com/4.html"
	f := &countingFetcher{pages: map[string]string{url: "repeated"}}
	s, _ := New(t.TempDir(), f)

	if _, err := s.FetchAndStore(context.Background(), url); err != nil {
		t.Fatalf("FetchAndStore: %v", err)
	}
	// A repeated link within one run must not need the disk again.
	if err := os.Remove(s.PathFor(url)); err != nil {
		t.Fatal(err)
	}
	data, err := s.FetchAndStore(context.Background(), url)
	if err != nil {
		t.Fatalf("second FetchAndStore: %v", err)
	}
	if string(data) != "repeated" {
		t.Errorf("data = %q", data)
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("network calls = %d, want 1", n)
	}
	if s.Exists(url) {
		t.Error("repeat request should not touch the disk")
	}
}

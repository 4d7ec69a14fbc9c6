package page

import (
	"context"
)

// Source returns raw page bytes for a URL, typically from the cache store.
type Source interface {
	FetchAndStore(ctx context.Context, url string) ([]byte, error)
}

// Loader fetches pages through a Source and parses them.
type Loader struct {
	src Source
}

// NewLoader creates a Loader reading from src.
func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

// Load returns the parsed page for url, downloading it only on a cache miss.
func (l *Loader) Load(ctx context.Context, url string) (*Document, error) {
	raw, err := l.src.FetchAndStore(ctx, url)
	if err != nil {
		return nil, err
	}
	return Parse(url, raw)
}

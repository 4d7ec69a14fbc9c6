// Package cache stores raw page bytes on disk, one file per URL.
// Files are written once and never modified or evicted.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/gaurav-prasanna/novelpipe/core"
)

// Naming selects how a URL is turned into a cache file name.
type Naming string

const (
	// NamingSanitize replaces filesystem-unsafe characters with underscores.
	NamingSanitize Naming = "sanitize"
	// NamingHash uses the hex sha256 of the URL.
	NamingHash Naming = "hash"
)

const (
	hotTTL     = 10 * time.Minute
	hotCleanup = 15 * time.Minute
)

// unsafeChars are replaced by '_' when sanitizing a URL into a file name.
var unsafeChars = strings.NewReplacer(
	":", "_", ".", "_", "<", "_", ">", "_", "/", "_", `\`, "_",
	"|", "_", ";", "_", "*", "_", "?", "_", "&", "_", ",", "_",
)

// Sanitize maps a URL to a file name. It is a pure function of its input.
func Sanitize(url string) string {
	return unsafeChars.Replace(url)
}

// Store maps URLs to files under a cache directory.
type Store struct {
	dir     string
	naming  Naming
	fetcher core.Fetcher
	logger  *slog.Logger

	group singleflight.Group
	hot   *gocache.Cache
}

// Option configures a Store.
type Option func(*Store)

// WithNaming selects the file naming scheme.
func WithNaming(n Naming) Option {
	return func(s *Store) { s.naming = n }
}

// WithLogger sets the logger used for cache events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store rooted at dir, creating the directory if needed.
// Misses are downloaded through fetcher.
func New(dir string, fetcher core.Fetcher, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	s := &Store{
		dir:     dir,
		naming:  NamingSanitize,
		fetcher: fetcher,
		logger:  slog.New(slog.DiscardHandler),
		hot:     gocache.New(hotTTL, hotCleanup),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// PathFor returns the cache file path for url.
func (s *Store) PathFor(url string) string {
	if s.naming == NamingHash {
		sum := sha256.Sum256([]byte(url))
		return filepath.Join(s.dir, hex.EncodeToString(sum[:]))
	}
	return filepath.Join(s.dir, Sanitize(url))
}

// Exists reports whether url is already cached on disk.
func (s *Store) Exists(url string) bool {
	info, err := os.Stat(s.PathFor(url))
	return err == nil && info.Mode().IsRegular()
}

// FetchAndStore returns the bytes for url. A cached page is returned without
// any network access. A miss is downloaded, written to the cache, and
// returned; a failed download writes nothing.
func (s *Store) FetchAndStore(ctx context.Context, url string) ([]byte, error) {
	path := s.PathFor(url)
	if v, ok := s.hot.Get(path); ok {
		return v.([]byte), nil
	}

	v, err, _ := s.group.Do(path, func() (interface{}, error) {
		data, err := os.ReadFile(path)
		if err == nil {
			s.logger.Debug("cache hit", "url", url, "path", path)
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading cache file %s: %w", path, err)
		}

		res, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := writeOnce(path, res.Body); err != nil {
			return nil, err
		}
		s.logger.Info("download and save", "url", url, "path", path)
		return res.Body, nil
	})
	if err != nil {
		return nil, err
	}

	data := v.([]byte)
	s.hot.SetDefault(path, data)
	return data, nil
}

// writeOnce writes data to path through a temp file in the same directory.
// If path appeared in the meantime it is left untouched.
func writeOnce(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".partial-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache file %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache file %s: %w", path, err)
	}

	// Link fails if path exists, which gives write-once without a lock file.
	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		// Filesystems without hard links fall back to rename.
		if _, statErr := os.Stat(path); statErr == nil {
			return nil
		}
		if err := os.Rename(tmpName, path); err != nil {
			return fmt.Errorf("saving cache file %s: %w", path, err)
		}
	}
	return nil
}

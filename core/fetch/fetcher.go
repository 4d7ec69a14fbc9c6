// Package fetch implements the core.Fetcher interface.
// It performs HTTP GET requests over one shared client, with a per-request
// timeout and a bounded retry on transient failures.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/gaurav-prasanna/novelpipe/core"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultUserAgent  = "novelpipe/1.0 (https://github.com/gaurav-prasanna/novelpipe)"
	defaultMaxRetries = 2
	defaultBackoff    = time.Second
	maxRetryAfter     = 60 * time.Second
)

// HTTPFetcher downloads pages via HTTP.
type HTTPFetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) { f.client.Timeout = d }
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) Option {
	return func(f *HTTPFetcher) { f.maxRetries = n }
}

// WithBackoff sets the base delay between retries. It doubles per attempt.
func WithBackoff(d time.Duration) Option {
	return func(f *HTTPFetcher) { f.backoff = d }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) { f.userAgent = ua }
}

// WithLogger sets the logger used for download events.
func WithLogger(l *slog.Logger) Option {
	return func(f *HTTPFetcher) { f.logger = l }
}

// WithClient replaces the underlying HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// New creates an HTTPFetcher with a sensible timeout and retry budget.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:     &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the raw body of the given URL. Any non-2xx status that
// survives the retry budget is returned as a *core.FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	resp, err := f.doWithRetry(ctx, url)
	if err != nil {
		f.logger.Error("download failed", "url", url, "err", err)
		return nil, &core.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Error("download failed", "url", url, "status", resp.StatusCode)
		return nil, &core.FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.FetchError{URL: url, Err: fmt.Errorf("reading response body: %w", err)}
	}

	return &core.FetchResult{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// doWithRetry issues the GET, retrying network errors and retryable statuses
// with exponential backoff. The last response is returned even when its
// status is still retryable, so the caller can report it.
func (f *HTTPFetcher) doWithRetry(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response
	var err error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			wait := f.backoff * time.Duration(1<<(attempt-1))
			if resp != nil {
				if ra := retryAfter(resp); ra > 0 {
					wait = ra
				}
				resp.Body.Close()
			}
			f.logger.Debug("retrying download", "url", url, "attempt", attempt, "wait", wait)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		var req *http.Request
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err = f.client.Do(req)
		if err != nil {
			resp = nil
			if !isRetryableError(err) || ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// isRetryableError reports whether err from client.Do is transient. Every
// such error is a *url.Error, which is itself a net.Error, so the cause is
// inspected instead: timeouts, dial/read failures, resets and truncated
// responses are retried; bad schemes, malformed URLs and TLS failures are not.
func isRetryableError(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// retryAfter returns the Retry-After delay in seconds, capped, or zero.
func retryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	secs, err := strconv.Atoi(ra)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}

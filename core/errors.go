package core

import (
	"errors"
	"fmt"
)

// FetchError reports a download that failed with a non-success status or a
// network error.
type FetchError struct {
	URL        string
	StatusCode int // zero when the request never got a response
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a page whose markup could not be parsed.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractionError reports a chapter page without a usable content container.
// It is recoverable: the chapter is skipped, the crawl continues.
type ExtractionError struct {
	URL    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %s", e.URL, e.Reason)
}

// AssemblyError reports a book that cannot be rendered.
type AssemblyError struct {
	Reason string
}

func (e *AssemblyError) Error() string {
	return "assembling book: " + e.Reason
}

// IsRecoverable reports whether err only affects a single chapter and can be
// skipped without aborting the run.
func IsRecoverable(err error) bool {
	var extractErr *ExtractionError
	return errors.As(err, &extractErr)
}

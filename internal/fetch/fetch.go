// Package fetch retrieves the raw text of fragments.
//
// Failures come in two kinds that callers can tell apart with errors.As:
// a *TransportError means the fragment could not be reached at all, a
// *StatusError means the backend answered but refused (HTTP status or the
// file-system equivalent). Fetchers never retry.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Fetcher retrieves fragment text for a source identifier.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (string, error)
}

// Func adapts a plain function to the Fetcher interface.
type Func func(ctx context.Context, source string) (string, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, source string) (string, error) {
	return f(ctx, source)
}

// TransportError reports that a source could not be reached.
type TransportError struct {
	Source string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-success response for a source.
type StatusError struct {
	Source     string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// New returns the fetcher for base: an HTTP fetcher when base is an http or
// https URL, a file fetcher rooted at base otherwise. timeout bounds HTTP
// requests; zero means no client-side timeout.
func New(base string, timeout time.Duration) (Fetcher, error) {
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid fragment base URL '%s': %w", base, err)
		}
		return NewHTTPFetcher(u, timeout), nil
	}
	return NewFileFetcher(base), nil
}

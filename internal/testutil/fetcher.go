package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/vk/htmlinclude/internal/fetch"
)

// FakeFetcher serves fragments from memory and counts fetches per source.
// Unknown sources fail with a 404 StatusError.
type FakeFetcher struct {
	mu        sync.Mutex
	fragments map[string]string
	errs      map[string]error
	calls     map[string]int
	// gate, when set, holds every fetch until it is closed.
	gate chan struct{}
}

// NewFakeFetcher returns a fetcher serving fragments.
func NewFakeFetcher(fragments map[string]string) *FakeFetcher {
	f := &FakeFetcher{
		fragments: make(map[string]string),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
	for k, v := range fragments {
		f.fragments[k] = v
	}
	return f
}

// Set replaces the text served for source.
func (f *FakeFetcher) Set(source, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fragments[source] = text
	delete(f.errs, source)
}

// FailWith makes fetches of source fail with err.
func (f *FakeFetcher) FailWith(source string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[source] = err
}

// Hold makes fetches block until the returned release function is called.
func (f *FakeFetcher) Hold() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Fetch implements fetch.Fetcher.
func (f *FakeFetcher) Fetch(ctx context.Context, source string) (string, error) {
	f.mu.Lock()
	f.calls[source]++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", &fetch.TransportError{Source: source, Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[source]; ok {
		return "", err
	}
	text, ok := f.fragments[source]
	if !ok {
		return "", &fetch.StatusError{
			Source:     source,
			StatusCode: http.StatusNotFound,
			Status:     fmt.Sprintf("%d %s", http.StatusNotFound, http.StatusText(http.StatusNotFound)),
		}
	}
	return text, nil
}

// Calls returns how many times source was fetched.
func (f *FakeFetcher) Calls(source string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[source]
}

// TotalCalls returns the number of fetches across all sources.
func (f *FakeFetcher) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

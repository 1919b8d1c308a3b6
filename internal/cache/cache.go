// Package cache holds fetched fragment text keyed by fragment source.
//
// Each source has at most one Entry. An entry starts Pending when a fetch is
// reserved for it and becomes Ready exactly once when the fetch completes.
// Concurrent requesters of the same source wait on the same entry, so N
// simultaneous loads cost a single fetch. Ready entries live as long as the
// Cache; nothing is evicted. Invalidate exists for host adapters that want an
// explicit re-fetch.
//
// A fetch that fails completes its pending entry with the error, so every
// waiter observes the failure, and the entry is dropped so that a later
// request fetches again.
//
// Completed entries carry a BLAKE3 digest of their text, which Refresh uses to
// tell whether a re-fetched fragment actually changed.
package cache

import (
	"context"
	"sync"

	"github.com/vk/htmlinclude/internal/ctxlog"
	"github.com/zeebo/blake3"
)

// Status is the state of a source in the cache.
type Status int

const (
	// Absent means no entry exists for the source.
	Absent Status = iota
	// Pending means a fetch is in flight.
	Pending
	// Ready means the text is available.
	Ready
)

func (s Status) String() string {
	switch s {
	case Absent:
		return "absent"
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// FetchFunc retrieves the raw text of a source.
type FetchFunc func(ctx context.Context, source string) (string, error)

// Entry is the cache slot of one source. The zero value is not usable; entries
// are created by Reserve or Put.
type Entry struct {
	source string
	done   chan struct{}
	once   sync.Once

	// Written once before done is closed.
	text   string
	err    error
	digest [32]byte
}

func newEntry(source string) *Entry {
	return &Entry{source: source, done: make(chan struct{})}
}

// Source returns the fragment source the entry belongs to.
func (e *Entry) Source() string { return e.source }

// Status reports Pending until the entry completes, Ready afterwards.
func (e *Entry) Status() Status {
	select {
	case <-e.done:
		return Ready
	default:
		return Pending
	}
}

// Done is closed once the entry completes.
func (e *Entry) Done() <-chan struct{} { return e.done }

// Wait blocks until the entry completes or ctx ends. A ctx error only stops
// the wait; the fetch backing the entry keeps running.
func (e *Entry) Wait(ctx context.Context) (string, error) {
	select {
	case <-e.done:
		return e.text, e.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Text returns the text of a completed, successful entry.
func (e *Entry) Text() (string, bool) {
	if e.Status() != Ready || e.err != nil {
		return "", false
	}
	return e.text, true
}

// Digest returns the BLAKE3-256 digest of the text of a completed, successful
// entry.
func (e *Entry) Digest() ([32]byte, bool) {
	if _, ok := e.Text(); !ok {
		return [32]byte{}, false
	}
	return e.digest, true
}

// Cache maps fragment sources to entries. It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// Get returns the entry for source and its status. The entry is nil when the
// status is Absent.
func (c *Cache) Get(source string) (*Entry, Status) {
	c.mu.Lock()
	e, ok := c.entries[source]
	c.mu.Unlock()
	if !ok {
		return nil, Absent
	}
	return e, e.Status()
}

// Reserve returns the entry for source, creating a Pending one when the
// source is absent. owner is true only for the caller that created the entry;
// that caller must complete it with Put or Fail.
func (c *Cache) Reserve(source string) (e *Entry, owner bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[source]; ok {
		return e, false
	}
	e = newEntry(source)
	c.entries[source] = e
	return e, true
}

// Put stores text for source. A pending entry is completed, releasing its
// waiters; an absent source gets a new Ready entry. A Ready entry is left
// untouched, since entries become Ready exactly once.
func (c *Cache) Put(source, text string) *Entry {
	c.mu.Lock()
	e, ok := c.entries[source]
	if !ok {
		e = newEntry(source)
		c.entries[source] = e
	}
	c.mu.Unlock()
	e.complete(text, nil)
	return e
}

// Fail completes a pending entry with err and removes it from the cache, so
// the next request for the source fetches again.
func (c *Cache) Fail(e *Entry, err error) {
	c.mu.Lock()
	if cur, ok := c.entries[e.source]; ok && cur == e {
		delete(c.entries, e.source)
	}
	c.mu.Unlock()
	e.complete("", err)
}

// Invalidate drops the entry for source. Waiters of a pending entry still
// receive its result. It reports whether an entry was removed.
func (c *Cache) Invalidate(source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[source]; !ok {
		return false
	}
	delete(c.entries, source)
	return true
}

// Len returns the number of entries, pending or ready.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Load returns the text of source, fetching it with fetch at most once across
// all concurrent callers. The fetch runs detached from ctx cancellation so
// that it always lands in the cache; a caller whose ctx ends simply stops
// waiting.
func (c *Cache) Load(ctx context.Context, source string, fetch FetchFunc) (string, error) {
	return c.load(ctx, source, fetch).Wait(ctx)
}

// Refresh drops the entry for source and fetches it again. changed is false
// only when the previous entry was Ready and the new text has the same
// digest. A failed fetch counts as a change.
func (c *Cache) Refresh(ctx context.Context, source string, fetch FetchFunc) (changed bool, err error) {
	var (
		before [32]byte
		had    bool
	)
	if e, _ := c.Get(source); e != nil {
		before, had = e.Digest()
	}
	c.Invalidate(source)

	e := c.load(ctx, source, fetch)
	if _, err := e.Wait(ctx); err != nil {
		return true, err
	}
	after, _ := e.Digest()
	changed = !had || after != before
	ctxlog.FromContext(ctx).Debug("Fragment refreshed.", "source", source, "changed", changed)
	return changed, nil
}

// load returns the entry for source, starting its fetch when the caller
// reserved it.
func (c *Cache) load(ctx context.Context, source string, fetch FetchFunc) *Entry {
	logger := ctxlog.FromContext(ctx)

	e, owner := c.Reserve(source)
	if !owner {
		logger.Debug("Cache hit.", "source", source, "status", e.Status().String())
		return e
	}
	logger.Debug("Cache miss, fetching fragment.", "source", source)
	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		text, err := fetch(fetchCtx, source)
		if err != nil {
			logger.Debug("Fragment fetch failed.", "source", source, "error", err)
			c.Fail(e, err)
			return
		}
		// An invalidated entry still releases its waiters but is not re-added.
		e.complete(text, nil)
		logger.Debug("Fragment cached.", "source", source, "bytes", len(text))
	}()
	return e
}

func (e *Entry) complete(text string, err error) {
	e.once.Do(func() {
		e.text = text
		e.err = err
		if err == nil {
			e.digest = blake3.Sum256([]byte(text))
		}
		close(e.done)
	})
}

package app

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/vk/htmlinclude/internal/ctxlog"
	"github.com/vk/htmlinclude/internal/include"
	"github.com/zeebo/blake3"
)

// Handler returns the HTTP interface of the app:
//
//	GET  /health               liveness probe
//	GET  /pages/{name}         rendered page, with a content ETag
//	POST /pages/{name}/source  form value "src": switch the page's root source
//	POST /invalidate           form value "source": re-fetch a fragment and, when
//	                           its text changed, re-resolve it everywhere
//
// Responses are gzip-compressed for clients that accept it.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /pages/{name}", a.pageHandler)
	mux.HandleFunc("POST /pages/{name}/source", a.sourceHandler)
	mux.HandleFunc("POST /invalidate", a.invalidateHandler)
	return gzhttp.GzipHandler(mux)
}

// Serve runs the HTTP server until ctx ends, then shuts it down gracefully.
func (a *App) Serve(ctx context.Context, port int) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	addr := fmt.Sprintf(":%d", port)

	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("🩺 Page server starting", "address", fmt.Sprintf("http://localhost%s/pages/", addr))
		// ListenAndServe will return an error on graceful shutdown.
		// We check for this specific error to avoid logging a false positive.
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			a.logger.Error("Page server failed unexpectedly", "error", err)
			return fmt.Errorf("page server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	a.logger.Info("🩺 Shutting down page server...")
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Page server shutdown failed", "error", err)
		return err
	}
	a.logger.Debug("Page server shut down gracefully.")
	return nil
}

// requestContext carries the app logger and outlives the request, so that a
// disconnecting client does not leave a page half resolved.
func (a *App) requestContext(r *http.Request) context.Context {
	return ctxlog.WithLogger(context.WithoutCancel(r.Context()), a.logger)
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// servedPage returns the resolved tree of the named page, resolving it on
// first use. ok is false for unknown pages.
func (a *App) servedPage(ctx context.Context, name string) (root *include.Node, ok bool, err error) {
	page, ok := a.model.Page(name)
	if !ok {
		return nil, false, nil
	}

	a.pagesMu.Lock()
	st, exists := a.pages[name]
	if !exists {
		st = &pageState{ready: make(chan struct{})}
		a.pages[name] = st
	}
	a.pagesMu.Unlock()

	if !exists {
		st.root, st.err = a.RenderPage(ctx, page)
		close(st.ready)
	}
	<-st.ready
	return st.root, true, st.err
}

// servedRoots returns the trees of all pages resolved so far, waiting for
// resolutions in progress.
func (a *App) servedRoots() []*include.Node {
	a.pagesMu.Lock()
	states := make([]*pageState, 0, len(a.pages))
	for _, st := range a.pages {
		states = append(states, st)
	}
	a.pagesMu.Unlock()

	var roots []*include.Node
	for _, st := range states {
		<-st.ready
		if st.root != nil {
			roots = append(roots, st.root)
		}
	}
	return roots
}

// writeRendered writes the page markup. A page whose root failed is a 502 and
// carries no ETag.
func (a *App) writeRendered(w http.ResponseWriter, r *http.Request, root *include.Node) {
	body := root.Render()
	if root.State() == include.Failed {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, body)
		return
	}

	sum := blake3.Sum256([]byte(body))
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, body)
}

func (a *App) pageHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	root, ok, err := a.servedPage(a.requestContext(r), name)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown page %q", name), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.writeRendered(w, r, root)
}

func (a *App) sourceHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	src := r.FormValue("src")
	if src == "" {
		http.Error(w, "missing form value 'src'", http.StatusBadRequest)
		return
	}

	ctx := a.requestContext(r)
	root, ok, err := a.servedPage(ctx, name)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown page %q", name), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	a.logger.Info("▶️ Page source changed.", "page", name, "from", root.Source(), "to", src)
	if err := a.resolver.Reresolve(ctx, root, src); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.logFailures(ctx, root)
	a.writeRendered(w, r, root)
}

func (a *App) invalidateHandler(w http.ResponseWriter, r *http.Request) {
	source := r.FormValue("source")
	if source == "" {
		http.Error(w, "missing form value 'source'", http.StatusBadRequest)
		return
	}

	ctx := a.requestContext(r)
	changed, err := a.resolver.Cache().Refresh(ctx, source, a.fetcher.Fetch)
	if err != nil {
		a.logger.Warn("Fragment refresh failed.", "source", source, "error", err)
	}
	if !changed {
		a.logger.Info("Fragment unchanged.", "source", source)
		fmt.Fprintln(w, "invalidated 0 node(s)")
		return
	}

	// Re-resolve the outermost nodes showing the source; their subtrees
	// follow.
	var stale []*include.Node
	for _, root := range a.servedRoots() {
		root.Walk(func(n *include.Node) bool {
			if n.Source() == source {
				stale = append(stale, n)
				return false
			}
			return true
		})
	}
	for _, n := range stale {
		if err := a.resolver.Reresolve(ctx, n, source); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		a.logFailures(ctx, n)
	}

	a.logger.Info("Fragment invalidated.", "source", source, "nodes", len(stale))
	fmt.Fprintf(w, "invalidated %d node(s)\n", len(stale))
}

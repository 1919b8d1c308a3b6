package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vk/htmlinclude/internal/config"
	"github.com/vk/htmlinclude/internal/ctxlog"
	"github.com/vk/htmlinclude/internal/include"
	"golang.org/x/sync/errgroup"
)

// Run executes the main application logic: it serves pages when a port is
// configured and renders every page once otherwise.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.logger.Debug("App.Run method finished.")

	if a.config.ServePort > 0 {
		return a.Serve(ctx, a.config.ServePort)
	}
	return a.RenderAll(ctx)
}

// RenderAll renders every configured page and writes it to its output, at
// most Workers pages at a time. Pages are written even when some of their
// includes failed; the returned error lists the pages whose root fragment
// could not be loaded.
func (a *App) RenderAll(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if len(a.model.Pages) == 0 {
		a.logger.Warn("No pages configured, nothing to render.")
		return nil
	}

	a.logger.Info("🚀 Rendering pages...", "count", len(a.model.Pages), "workers", a.model.Settings.Workers)

	var (
		mu     sync.Mutex
		failed []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.model.Settings.Workers)
	for _, page := range a.model.Pages {
		g.Go(func() error {
			root, err := a.RenderPage(gctx, page)
			if err != nil {
				return fmt.Errorf("page '%s': %w", page.Name, err)
			}
			if err := a.writePage(page, root.Render()); err != nil {
				return fmt.Errorf("page '%s': %w", page.Name, err)
			}
			if root.State() == include.Failed {
				mu.Lock()
				failed = append(failed, page.Name)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rendering failed: %w", err)
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d page(s) failed to render: %s", len(failed), strings.Join(failed, ", "))
	}
	a.logger.Info("🏁 Rendering finished.", "pages", len(a.model.Pages), "cached_fragments", a.resolver.Cache().Len())
	return nil
}

// RenderPage resolves the include tree of page.
func (a *App) RenderPage(ctx context.Context, page *config.Page) (*include.Node, error) {
	ctx, logger := ctxlog.With(ctx, "page", page.Name)
	logger.Debug("▶️ Resolving page.", "source", page.Source, "params", page.Params)

	root, err := a.resolver.Resolve(ctx, page.Source, page.Params)
	if err != nil {
		return nil, err
	}
	a.logFailures(ctx, root)
	logger.Info("✅ Page resolved.", "state", root.State().String())
	return root, nil
}

func (a *App) logFailures(ctx context.Context, root *include.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, n := range root.Failures() {
		logger.Warn("Include failed to load.", "source", n.Source(), "error", n.Err())
	}
}

// writePage writes markup to the page's output file, or to the app's output
// stream when the page has none.
func (a *App) writePage(page *config.Page, markup string) error {
	if page.Output == "" {
		a.outMu.Lock()
		defer a.outMu.Unlock()
		_, err := fmt.Fprintln(a.outW, markup)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(page.Output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(page.Output, []byte(markup), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	a.logger.Debug("Page written.", "page", page.Name, "output", page.Output, "bytes", len(markup))
	return nil
}

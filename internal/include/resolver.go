package include

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/vk/htmlinclude/internal/cache"
	"github.com/vk/htmlinclude/internal/ctxlog"
	"github.com/vk/htmlinclude/internal/fetch"
	"github.com/vk/htmlinclude/internal/params"
	"github.com/vk/htmlinclude/internal/template"
	"golang.org/x/sync/errgroup"
)

// Resolver resolves include trees against a fetcher and a fragment cache.
// It is safe for concurrent use.
type Resolver struct {
	fetcher fetch.Fetcher
	cache   *cache.Cache
	tag     string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache shares c instead of a private cache.
func WithCache(c *cache.Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithTag sets the element name of include references.
func WithTag(tag string) Option {
	return func(r *Resolver) {
		if tag != "" {
			r.tag = strings.ToLower(tag)
		}
	}
}

// NewResolver returns a Resolver fetching fragments with f.
func NewResolver(f fetch.Fetcher, opts ...Option) *Resolver {
	r := &Resolver{fetcher: f, tag: DefaultTag}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = cache.New()
	}
	return r
}

// Cache returns the fragment cache of the resolver.
func (r *Resolver) Cache() *cache.Cache { return r.cache }

// Tag returns the element name of include references.
func (r *Resolver) Tag() string { return r.tag }

// Resolve builds and resolves the tree rooted at source with parameters p.
// Fragment failures are recorded on the failing nodes and rendered in place;
// the returned error is only set when ctx ends before the tree settles, in
// which case the partially resolved tree is returned too.
func (r *Resolver) Resolve(ctx context.Context, source string, p *params.Set) (*Node, error) {
	root := newNode(source, p.Clone(), nil, nil)
	if err := r.resolve(ctx, root, "", nil); err != nil {
		return root, err
	}
	return root, nil
}

// Reresolve switches n to newSource and rebuilds its subtree. The previous
// children are discarded and any resolution of n still in flight is
// superseded. An empty newSource is ignored. The fragment cache is not
// invalidated; callers wanting a fresh fetch invalidate the source first.
func (r *Resolver) Reresolve(ctx context.Context, n *Node, newSource string) error {
	if newSource == "" {
		return nil
	}
	ctxlog.FromContext(ctx).Debug("Re-resolving include.", "from", n.Source(), "to", newSource)
	return r.resolve(ctx, n, newSource, chainOf(n))
}

// Detach removes n and its subtree from resolution. In-flight work for the
// subtree keeps filling the cache but no longer changes the nodes.
func (r *Resolver) Detach(n *Node) {
	n.detach()
}

// resolve runs one resolution of n, switching it to source first unless
// source is empty.
func (r *Resolver) resolve(ctx context.Context, n *Node, source string, ancestors *chain) error {
	gen, source, ok := n.begin(source)
	if !ok {
		return nil
	}
	// The node's attributes stay off ctx so that children and the cache log
	// each source once.
	attrs := []any{"source", source}
	if p := n.Parent(); p != nil {
		attrs = append(attrs, "parent", p.Source())
	}
	logger := ctxlog.FromContext(ctx).With(attrs...)
	logger.Debug("Include fetching.", "params", n.Params)

	if ancestors.contains(source) {
		err := &CycleError{Source: source, Chain: ancestors.push(source).sources()}
		logger.Warn("Include failed.", "error", err)
		n.settle(gen, Failed, err)
		return nil
	}

	text, err := r.cache.Load(ctx, source, r.fetcher.Fetch)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			n.settle(gen, Unstarted, nil)
			return err
		}
		logger.Warn("Include failed.", "error", err)
		n.settle(gen, Failed, err)
		return nil
	}

	if logger.Enabled(ctx, slog.LevelDebug) {
		if unbound := template.Unbound(text, n.Params); len(unbound) > 0 {
			logger.Debug("Fragment references unbound parameters.", "keys", unbound)
		}
	}
	markup := template.Render(text, n.Params)
	refs, err := scanReferences(markup, r.tag)
	if err != nil {
		logger.Warn("Include failed.", "error", err)
		n.settle(gen, Failed, err)
		return nil
	}

	segments := make([]segment, 0, 2*len(refs)+1)
	children := make([]*Node, 0, len(refs))
	last := 0
	for _, ref := range refs {
		if ref.start > last {
			segments = append(segments, segment{text: markup[last:ref.start]})
		}
		child := newNode(ref.source, ref.local, n.Params, n)
		child.Fallback = ref.fallback
		child.startTag = ref.startTag
		child.endTag = ref.endTag
		segments = append(segments, segment{child: child})
		children = append(children, child)
		last = ref.end
	}
	if last < len(markup) {
		segments = append(segments, segment{text: markup[last:]})
	}

	if !n.attach(gen, markup, segments, children) {
		logger.Debug("Include result discarded.")
		return nil
	}
	logger.Debug("Include resolving.", "children", len(children))

	next := ancestors.push(source)
	g, gctx := errgroup.WithContext(ctx)
	for _, child := range children {
		g.Go(func() error {
			return r.resolve(gctx, child, "", next)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if n.settle(gen, Resolved, nil) {
		logger.Debug("Include resolved.")
	}
	return nil
}

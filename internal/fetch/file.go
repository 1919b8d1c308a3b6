package fetch

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vk/htmlinclude/internal/ctxlog"
)

// FileFetcher reads fragments from a directory tree. Sources are
// slash-separated paths relative to Root and cannot escape it; a leading
// slash or "./" is ignored.
//
// File-system outcomes are reported like their HTTP equivalents: a missing
// file is a 404 StatusError, a permission failure a 403.
type FileFetcher struct {
	Root string
}

// NewFileFetcher creates a fetcher rooted at root.
func NewFileFetcher(root string) *FileFetcher {
	return &FileFetcher{Root: root}
}

// Fetch implements Fetcher.
func (f *FileFetcher) Fetch(ctx context.Context, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &TransportError{Source: source, Err: err}
	}
	name := f.path(source)
	ctxlog.FromContext(ctx).Debug("Reading fragment file.", "source", source, "path", name)

	data, err := os.ReadFile(name)
	switch {
	case err == nil:
		return string(data), nil
	case errors.Is(err, fs.ErrNotExist):
		return "", &StatusError{Source: source, StatusCode: http.StatusNotFound, Status: "404 Not Found"}
	case errors.Is(err, fs.ErrPermission):
		return "", &StatusError{Source: source, StatusCode: http.StatusForbidden, Status: "403 Forbidden"}
	default:
		return "", &TransportError{Source: source, Err: err}
	}
}

func (f *FileFetcher) path(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	clean := strings.TrimPrefix(path.Clean("/"+source), "/")
	root := f.Root
	if root == "" {
		root = "."
	}
	return filepath.Join(root, filepath.FromSlash(clean))
}

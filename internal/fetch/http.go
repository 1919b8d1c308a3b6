package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vk/htmlinclude/internal/ctxlog"
)

// HTTPFetcher fetches fragments with GET requests. Relative sources are
// resolved against Base.
type HTTPFetcher struct {
	Client *http.Client
	Base   *url.URL
}

// NewHTTPFetcher creates a fetcher with a pooled client shared by every fetch.
func NewHTTPFetcher(base *url.URL, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Base: base,
		Client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, source string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	target, err := f.resolve(source)
	if err != nil {
		return "", &TransportError{Source: source, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", &TransportError{Source: source, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "text/html, */*;q=0.5")

	logger.Debug("Making HTTP request", "method", req.Method, "url", target)
	resp, err := f.client().Do(req)
	if err != nil {
		return "", &TransportError{Source: source, Err: err}
	}
	defer resp.Body.Close()
	logger.Debug("Received HTTP response", "url", target, "status", resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection goes back to the pool.
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{Source: source, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Source: source, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	return string(body), nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client().CloseIdleConnections()
	return nil
}

func (f *HTTPFetcher) client() *http.Client {
	if f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

func (f *HTTPFetcher) resolve(source string) (string, error) {
	ref, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("invalid source '%s': %w", source, err)
	}
	if f.Base == nil {
		if !ref.IsAbs() {
			return "", fmt.Errorf("relative source '%s' without a base URL", source)
		}
		return ref.String(), nil
	}
	return f.Base.ResolveReference(ref).String(), nil
}

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFragmentServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/fragments/header.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<header>{{title}}</header>")
	})
	mux.HandleFunc("/fragments/broken.html", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher(t *testing.T) {
	srv := newFragmentServer(t)
	base, err := url.Parse(srv.URL + "/fragments/")
	require.NoError(t, err)
	f := NewHTTPFetcher(base, 5*time.Second)
	t.Cleanup(func() { f.Close() })

	t.Run("relative source resolves against base", func(t *testing.T) {
		text, err := f.Fetch(context.Background(), "header.html")
		require.NoError(t, err)
		assert.Equal(t, "<header>{{title}}</header>", text)
	})

	t.Run("absolute source ignores base", func(t *testing.T) {
		text, err := f.Fetch(context.Background(), srv.URL+"/fragments/header.html")
		require.NoError(t, err)
		assert.Equal(t, "<header>{{title}}</header>", text)
	})

	t.Run("missing fragment is a status error", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), "missing.html")
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
		assert.Equal(t, "missing.html", statusErr.Source)
		assert.EqualError(t, err, "HTTP 404")
	})

	t.Run("server error is a status error", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), "broken.html")
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	})
}

func TestHTTPFetcher_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	srv.Close()

	f := NewHTTPFetcher(base, time.Second)
	_, err = f.Fetch(context.Background(), "a.html")

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "a.html", transportErr.Source)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr), "unreachable must not look like a status failure")
}

func TestHTTPFetcher_RelativeWithoutBase(t *testing.T) {
	f := &HTTPFetcher{}
	_, err := f.Fetch(context.Background(), "a.html")
	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestFileFetcher(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "partials"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "partials", "nav.html"), []byte("<nav></nav>"), 0644))
	outside := filepath.Join(filepath.Dir(root), "secret.html")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0644))
	t.Cleanup(func() { os.Remove(outside) })

	f := NewFileFetcher(root)

	testCases := []struct {
		name       string
		source     string
		want       string
		wantStatus int
	}{
		{name: "plain path", source: "partials/nav.html", want: "<nav></nav>"},
		{name: "leading slash", source: "/partials/nav.html", want: "<nav></nav>"},
		{name: "dot segments", source: "./partials/../partials/nav.html", want: "<nav></nav>"},
		{name: "query is ignored", source: "partials/nav.html?v=2", want: "<nav></nav>"},
		{name: "missing file", source: "partials/none.html", wantStatus: http.StatusNotFound},
		{name: "cannot escape root", source: "../secret.html", wantStatus: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text, err := f.Fetch(context.Background(), tc.source)
			if tc.wantStatus != 0 {
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr), "got %v", err)
				assert.Equal(t, tc.wantStatus, statusErr.StatusCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, text)
		})
	}
}

func TestNew(t *testing.T) {
	f, err := New("https://example.com/fragments/", time.Second)
	require.NoError(t, err)
	httpFetcher, ok := f.(*HTTPFetcher)
	require.True(t, ok)
	assert.Equal(t, "example.com", httpFetcher.Base.Host)
	assert.Equal(t, time.Second, httpFetcher.Client.Timeout)

	f, err = New("./fragments", 0)
	require.NoError(t, err)
	fileFetcher, ok := f.(*FileFetcher)
	require.True(t, ok)
	assert.Equal(t, "./fragments", fileFetcher.Root)
}

func TestFunc(t *testing.T) {
	var f Fetcher = Func(func(ctx context.Context, source string) (string, error) {
		return "<p>" + source + "</p>", nil
	})
	text, err := f.Fetch(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", text)
}

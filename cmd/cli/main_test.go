package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/htmlinclude/internal/cli"
)

func TestRun_RendersPages(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A config directory with one page built from two fragments.
	dir := t.TempDir()
	files := map[string]string{
		"site.hcl": `
settings {
  base = "fragments"
}

page "index" {
  source = "index.html"
  output = "public/index.html"
  params = { name = "Ada" }
}
`,
		"fragments/index.html":    `<main><html-include src="greeting.html"></html-include></main>`,
		"fragments/greeting.html": `Hello, {{name}}!`,
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"--log-level", "warn", dir})

	// --- Assert ---
	require.NoError(t, err)
	rendered, err := os.ReadFile(filepath.Join(dir, "public", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, `<main><html-include src="greeting.html">Hello, Ada!</html-include></main>`, string(rendered))
}

func TestRun_ConfigError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// An HCL file with a syntax error fails while loading the configuration.
	invalidHCL := `
		page "index" {
		  source = "index.html"
		// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0600), "failed to set up test file")
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, out, []string{filePath})

	// --- Assert ---
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "failed to load configuration")
	assert.Contains(t, runErr.Error(), "failed to parse")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Providing an unknown flag will cause cli.Parse to return an error.
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	require.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_PagesToStdoutLogsToStderr(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A page without an output file is written to stdout at the default log
	// level.
	dir := t.TempDir()
	files := map[string]string{
		"site.yaml": "settings:\n  base: fragments\npages:\n  - name: hello\n    source: hello.html\n    params:\n      name: Ada\n",
		"fragments/hello.html": `<p>{{name}}</p>`,
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), stdout, stderr, []string{dir})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "<p>Ada</p>\n", stdout.String())
	assert.Contains(t, stderr.String(), "Rendering finished.")
}

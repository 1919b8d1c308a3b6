package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/vk/htmlinclude/internal/params"
)

// Defaults applied to settings the configuration leaves out.
const (
	DefaultBase    = "."
	DefaultTimeout = 10 * time.Second
	DefaultTag     = "html-include"
	DefaultWorkers = 4
)

// Model is the unified, format-agnostic representation of the entire
// application configuration.
type Model struct {
	Settings Settings
	Pages    []*Page
}

// Settings configure fragment fetching and resolution.
type Settings struct {
	// Base is the directory or http(s) URL relative sources resolve against.
	Base string
	// Timeout bounds a single HTTP fetch. Zero disables it.
	Timeout time.Duration
	// Tag is the element name of include references.
	Tag string
	// Workers bounds how many pages render at once.
	Workers int
}

// Page is one document to render: a root fragment and its parameters.
type Page struct {
	Name   string
	Source string
	// Output is the file the rendered page is written to. Empty means the
	// application's output stream.
	Output string
	Params *params.Set
}

// NewModel returns an empty model with default settings.
func NewModel() *Model {
	return &Model{Settings: DefaultSettings()}
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		Base:    DefaultBase,
		Timeout: DefaultTimeout,
		Tag:     DefaultTag,
		Workers: DefaultWorkers,
	}
}

// Page returns the page called name.
func (m *Model) Page(name string) (*Page, bool) {
	for _, p := range m.Pages {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Validate checks the model for errors a loader cannot catch on its own.
func (m *Model) Validate() error {
	var errs []error
	if m.Settings.Workers < 1 {
		errs = append(errs, fmt.Errorf("settings: workers must be at least 1, got %d", m.Settings.Workers))
	}
	if m.Settings.Timeout < 0 {
		errs = append(errs, fmt.Errorf("settings: timeout must not be negative, got %s", m.Settings.Timeout))
	}
	seen := make(map[string]struct{}, len(m.Pages))
	for _, p := range m.Pages {
		if p.Name == "" {
			errs = append(errs, errors.New("page: name must not be empty"))
			continue
		}
		if _, dup := seen[p.Name]; dup {
			errs = append(errs, fmt.Errorf("page '%s': defined more than once", p.Name))
		}
		seen[p.Name] = struct{}{}
		if p.Source == "" {
			errs = append(errs, fmt.Errorf("page '%s': source is required", p.Name))
		}
	}
	return errors.Join(errs...)
}

// ResolvePath makes a relative filesystem path p relative to dir, the
// directory of the file declaring it. Empty paths, absolute paths and URLs
// are returned unchanged.
func ResolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(dir, p)
}

package hcl

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/htmlinclude/internal/config"
	"github.com/vk/htmlinclude/internal/ctxlog"
	"github.com/vk/htmlinclude/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// Extension is the file extension the loader reads.
const Extension = ".hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Env is exposed to expressions as the `env` object. Nil means the
	// process environment.
	Env map[string]string
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load orchestrates the entire HCL configuration loading process. Blocks from
// all files are merged into one model; at most one `settings` block may be
// declared across them.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := fsutil.CollectFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no %s files found in %v", Extension, paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	model := config.NewModel()
	evalCtx := l.evalContext()
	parser := hclparse.NewParser()
	settingsFrom := ""

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		dir := filepath.Dir(file)
		for _, s := range root.Settings {
			if settingsFrom != "" {
				return nil, fmt.Errorf("duplicate settings block in %s: already declared in %s", file, settingsFrom)
			}
			settingsFrom = file
			if err := translateSettings(s, dir, &model.Settings); err != nil {
				return nil, fmt.Errorf("invalid settings in %s: %w", file, err)
			}
		}
		for _, p := range root.Pages {
			page, err := translatePage(p, dir, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("invalid page in %s: %w", file, err)
			}
			model.Pages = append(model.Pages, page)
		}
	}

	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debug("HCL loading complete.", "pages", len(model.Pages), "base", model.Settings.Base)
	return model, nil
}

// evalContext exposes the environment to expressions.
func (l *Loader) evalContext() *hcl.EvalContext {
	env := l.Env
	if env == nil {
		env = config.Environ()
	}
	vals := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vals[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vals),
		},
	}
}

package hcl

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/htmlinclude/internal/config"
	"github.com/vk/htmlinclude/internal/params"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// translateSettings applies the attributes set in s onto dst.
func translateSettings(s *settingsBlock, dir string, dst *config.Settings) error {
	if s.Base != nil {
		dst.Base = config.ResolvePath(dir, *s.Base)
	}
	if s.Timeout != nil {
		timeout, err := time.ParseDuration(*s.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", *s.Timeout, err)
		}
		dst.Timeout = timeout
	}
	if s.Tag != nil {
		dst.Tag = *s.Tag
	}
	if s.Workers != nil {
		dst.Workers = *s.Workers
	}
	return nil
}

// translatePage converts a page block into the agnostic model.
func translatePage(p *pageBlock, dir string, evalCtx *hcl.EvalContext) (*config.Page, error) {
	set, err := evalParams(p.Params, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("page '%s': %w", p.Name, err)
	}
	return &config.Page{
		Name:   p.Name,
		Source: p.Source,
		Output: config.ResolvePath(dir, p.Output),
		Params: set,
	}, nil
}

// evalParams evaluates a params expression into a parameter set. Any object
// or map whose values convert to strings is accepted; a missing expression
// yields an empty set.
func evalParams(expr hcl.Expression, evalCtx *hcl.EvalContext) (*params.Set, error) {
	if expr == nil {
		return params.New(), nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return params.New(), nil
	}

	converted, err := convert.Convert(val, cty.Map(cty.String))
	if err != nil {
		return nil, fmt.Errorf("params must be a map of strings: %w", err)
	}
	if !converted.IsWhollyKnown() {
		return nil, fmt.Errorf("params must be known at load time")
	}

	var m map[string]string
	if err := gocty.FromCtyValue(converted, &m); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	return params.FromMap(m), nil
}

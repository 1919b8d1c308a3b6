// Package template implements the fragment mini-language.
//
// Two passes run in a fixed order over a fragment's text:
//
//  1. ApplyConditionals keeps or drops {{#if key == "v"}}...{{/if}} blocks.
//  2. Interpolate replaces {{ key }} placeholders with parameter values.
//
// Conditionals run first so that interpolation can never corrupt their
// syntax, and placeholders inside a kept block body are still substituted by
// the second pass. Malformed templating never fails: a block whose condition
// does not parse is dropped, a placeholder without a value becomes empty.
package template

import "github.com/vk/htmlinclude/internal/params"

// Render runs both passes over text.
func Render(text string, p *params.Set) string {
	return Interpolate(ApplyConditionals(text, p), p)
}

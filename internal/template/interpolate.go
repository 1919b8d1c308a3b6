package template

import (
	"regexp"
	"strings"

	"github.com/vk/htmlinclude/internal/params"
)

var placeholderRegex = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Interpolate replaces every {{ key }} in text with the value bound to the
// trimmed key, or with nothing when the key is absent. Substituted values are
// not scanned again. Stray conditional tags ({{#...}}, {{/...}}) are left as
// they are.
func Interpolate(text string, p *params.Set) string {
	return placeholderRegex.ReplaceAllStringFunc(text, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-2])
		if strings.HasPrefix(key, "#") || strings.HasPrefix(key, "/") {
			return match
		}
		v, _ := p.Get(key)
		return v
	})
}

// Placeholders lists the distinct keys referenced by text, in order of first
// appearance.
func Placeholders(text string) []string {
	var keys []string
	seen := make(map[string]struct{})
	for _, m := range placeholderRegex.FindAllStringSubmatch(text, -1) {
		key := strings.TrimSpace(m[1])
		if strings.HasPrefix(key, "#") || strings.HasPrefix(key, "/") {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// Unbound lists the keys text refers to, in conditions or placeholders, that
// have no value in p. Keys appear once, conditions first.
func Unbound(text string, p *params.Set) []string {
	var keys []string
	seen := make(map[string]struct{})
	add := func(key string) {
		if _, ok := seen[key]; ok || p.Has(key) {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for _, b := range ParseBlocks(text) {
		add(b.Key)
	}
	for _, key := range Placeholders(ApplyConditionals(text, p)) {
		add(key)
	}
	return keys
}

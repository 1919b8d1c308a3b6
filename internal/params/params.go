// Package params implements the key/value context that resolves placeholders
// and conditions for one include node.
//
// A Set is an explicit, key-unique mapping from parameter name to value.
// Presence is meaningful: Get distinguishes a key bound to the empty string
// from an absent key, which the conditional resolver relies on.
package params

import (
	"log/slog"
	"sort"
	"strings"
)

// Set is a key-unique string mapping. Keys keep their first insertion order
// for deterministic iteration; the order carries no meaning otherwise.
//
// A nil *Set behaves as the empty set for all read operations.
type Set struct {
	keys   []string
	values map[string]string
}

// New returns an empty set.
func New() *Set {
	return &Set{values: make(map[string]string)}
}

// FromMap builds a set from m. Keys are inserted in sorted order.
func FromMap(m map[string]string) *Set {
	s := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Put(k, m[k])
	}
	return s
}

// Of builds a set from alternating key/value pairs. A trailing key without a
// value is bound to the empty string.
func Of(pairs ...string) *Set {
	s := New()
	for i := 0; i < len(pairs); i += 2 {
		v := ""
		if i+1 < len(pairs) {
			v = pairs[i+1]
		}
		s.Put(pairs[i], v)
	}
	return s
}

// Put binds key to value, replacing any previous binding.
func (s *Set) Put(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the value bound to key and whether the key is present.
func (s *Set) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is present.
func (s *Set) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Len returns the number of keys.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the keys in insertion order.
func (s *Set) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Map returns a copy of the set as a plain map.
func (s *Set) Map() map[string]string {
	out := make(map[string]string, s.Len())
	if s == nil {
		return out
	}
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	out := New()
	if s == nil {
		return out
	}
	for _, k := range s.keys {
		out.Put(k, s.values[k])
	}
	return out
}

// Merge returns the effective set of a child node: every entry of parent,
// overridden by the entries the child declares locally. Neither input is
// modified. A locally declared key always wins, whatever the parent binds it to.
func Merge(parent, local *Set) *Set {
	out := parent.Clone()
	if local == nil {
		return out
	}
	for _, k := range local.keys {
		out.Put(k, local.values[k])
	}
	return out
}

// String renders the set as `{k=v, ...}` in insertion order.
func (s *Set) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range s.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		v, _ := s.Get(k)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	b.WriteByte('}')
	return b.String()
}

// LogValue implements slog.LogValuer.
func (s *Set) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, s.Len())
	for _, k := range s.Keys() {
		v, _ := s.Get(k)
		attrs = append(attrs, slog.String(k, v))
	}
	return slog.GroupValue(attrs...)
}

package params

import "strings"

// DataPrefix marks attributes that declare parameters on an include element.
const DataPrefix = "data-"

// DatasetKey converts a data attribute name to its parameter key using the
// DOM dataset naming rule: the prefix is dropped and every '-' followed by an
// ASCII lowercase letter is removed, upper-casing that letter
// ("data-user-name" becomes "userName"). ok is false for attributes that do
// not carry the prefix.
func DatasetKey(attr string) (key string, ok bool) {
	attr = strings.ToLower(attr)
	if !strings.HasPrefix(attr, DataPrefix) {
		return "", false
	}
	name := attr[len(DataPrefix):]
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '-' && i+1 < len(name) && name[i+1] >= 'a' && name[i+1] <= 'z' {
			b.WriteByte(name[i+1] - ('a' - 'A'))
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), true
}

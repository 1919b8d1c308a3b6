package include

import (
	"errors"
	"io"
	"strings"

	"github.com/vk/htmlinclude/internal/params"
	"golang.org/x/net/html"
)

// DefaultTag is the element name of an include reference.
const DefaultTag = "html-include"

// SourceAttr is the attribute naming an include's fragment source.
const SourceAttr = "src"

// reference is an include element found in rendered markup.
type reference struct {
	// start and end are byte offsets of the whole element.
	start, end int
	startTag   string
	endTag     string
	source     string
	local      *params.Set
	fallback   string
}

// scanReferences finds the outermost include elements of text. Include
// elements nested inside another include's content belong to its fallback
// and are not returned. Elements without a source, or with an empty one, are
// ignored.
func scanReferences(text, tag string) ([]reference, error) {
	z := html.NewTokenizer(strings.NewReader(text))

	var (
		refs   []reference
		cur    *reference
		depth  int
		inner  int
		offset int
	)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			break
		}
		raw := string(z.Raw())
		tokStart := offset
		offset += len(raw)

		if tt != html.StartTagToken && tt != html.EndTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != tag {
			continue
		}

		if cur != nil {
			switch tt {
			case html.StartTagToken:
				depth++
			case html.EndTagToken:
				depth--
				if depth == 0 {
					cur.fallback = text[inner:tokStart]
					cur.endTag = raw
					cur.end = offset
					refs = append(refs, *cur)
					cur = nil
				}
			}
			continue
		}
		if tt == html.EndTagToken {
			continue
		}

		source, local, ok := readAttributes(z, hasAttr)
		if !ok {
			continue
		}
		ref := reference{
			start:  tokStart,
			source: source,
			local:  local,
			endTag: "</" + tag + ">",
		}
		if tt == html.SelfClosingTagToken {
			ref.startTag = strings.TrimRight(strings.TrimSuffix(raw, "/>"), " \t\r\n") + ">"
			ref.end = offset
			refs = append(refs, ref)
			continue
		}
		ref.startTag = raw
		cur = &ref
		depth = 1
		inner = offset
	}

	// An unclosed include owns the rest of the text.
	if cur != nil {
		cur.fallback = text[inner:]
		cur.end = len(text)
		refs = append(refs, *cur)
	}
	return refs, nil
}

// readAttributes returns the source and the data-* parameters of the current
// tag. ok is false when the tag has no source attribute or an empty one.
func readAttributes(z *html.Tokenizer, more bool) (source string, local *params.Set, ok bool) {
	local = params.New()
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		k := string(key)
		if k == SourceAttr {
			source, ok = string(val), len(val) > 0
			continue
		}
		if name, isData := params.DatasetKey(k); isData {
			local.Put(name, string(val))
		}
	}
	return source, local, ok
}

package template

import (
	"regexp"

	"github.com/vk/htmlinclude/internal/params"
)

// Op is a comparison operator of a conditional block.
type Op string

const (
	OpEqual    Op = "=="
	OpNotEqual Op = "!="
)

// Block is one parsed {{#if}} region. It only exists while a fragment's text
// is being resolved.
type Block struct {
	Key      string
	Op       Op
	Expected string
	Body     string
}

// Eval evaluates the block's condition against p. An absent key never equals
// a literal, so == is false and != is true for it. The != case is policy: a
// block guarded by `role != "admin"` is shown when no role is given.
func (b Block) Eval(p *params.Set) bool {
	actual, ok := p.Get(b.Key)
	switch b.Op {
	case OpEqual:
		return ok && actual == b.Expected
	case OpNotEqual:
		return !ok || actual != b.Expected
	default:
		return false
	}
}

var (
	// The first {{/if}} closes a block; nested blocks are not supported and
	// an inner {{#if}} is part of the outer body.
	blockRegex = regexp.MustCompile(`(?s)\{\{#if\b(.*?)\}\}(.*?)\{\{/if\}\}`)

	conditionRegex = regexp.MustCompile(`^\s*([A-Za-z_$][A-Za-z0-9_$-]*)\s*(==|!=)\s*(?:"([^"]*)"|'([^']*)')\s*$`)
)

// ParseCondition parses `<identifier> <op> "<literal>"` (single quotes are
// accepted too). ok is false when cond does not match the grammar.
func ParseCondition(cond string) (key string, op Op, expected string, ok bool) {
	m := conditionRegex.FindStringSubmatchIndex(cond)
	if m == nil {
		return "", "", "", false
	}
	key = cond[m[2]:m[3]]
	op = Op(cond[m[4]:m[5]])
	if m[6] >= 0 {
		expected = cond[m[6]:m[7]]
	} else {
		expected = cond[m[8]:m[9]]
	}
	return key, op, expected, true
}

// ParseBlocks returns the well-formed blocks of text in order of appearance.
// Blocks with malformed conditions are skipped.
func ParseBlocks(text string) []Block {
	var blocks []Block
	for _, m := range blockRegex.FindAllStringSubmatch(text, -1) {
		key, op, expected, ok := ParseCondition(m[1])
		if !ok {
			continue
		}
		blocks = append(blocks, Block{Key: key, Op: op, Expected: expected, Body: m[2]})
	}
	return blocks
}

// ApplyConditionals replaces every block in text by its body when the
// condition holds and by nothing otherwise. Blocks with malformed conditions
// are dropped whole. Bodies are kept verbatim.
func ApplyConditionals(text string, p *params.Set) string {
	return blockRegex.ReplaceAllStringFunc(text, func(match string) string {
		m := blockRegex.FindStringSubmatch(match)
		key, op, expected, ok := ParseCondition(m[1])
		if !ok {
			return ""
		}
		b := Block{Key: key, Op: op, Expected: expected, Body: m[2]}
		if b.Eval(p) {
			return b.Body
		}
		return ""
	})
}

package template

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/htmlinclude/internal/params"
)

func TestRender_Scenarios(t *testing.T) {
	testCases := []struct {
		name   string
		text   string
		params *params.Set
		want   string
	}{
		{
			name:   "placeholder",
			text:   `<p>{{name}}</p>`,
			params: params.Of("name", "Ada"),
			want:   `<p>Ada</p>`,
		},
		{
			name:   "equality false drops body",
			text:   `{{#if role=="admin"}}<b>secret</b>{{/if}}`,
			params: params.Of("role", "user"),
			want:   ``,
		},
		{
			name:   "inequality with absent key keeps body",
			text:   `{{#if role!="admin"}}<b>visible</b>{{/if}}`,
			params: params.New(),
			want:   `<b>visible</b>`,
		},
		{
			name:   "placeholders inside kept body are interpolated",
			text:   `{{#if role == 'admin'}}<b>{{ name }}</b>{{/if}}`,
			params: params.Of("role", "admin", "name", "Ada"),
			want:   `<b>Ada</b>`,
		},
		{
			name:   "interpolation cannot forge conditional syntax",
			text:   `{{x}}`,
			params: params.Of("x", `{{#if a=="b"}}boom{{/if}}`),
			want:   `{{#if a=="b"}}boom{{/if}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Render(tc.text, tc.params))
		})
	}
}

func TestParseCondition(t *testing.T) {
	testCases := []struct {
		cond         string
		wantKey      string
		wantOp       Op
		wantExpected string
		wantOK       bool
	}{
		{cond: `role=="admin"`, wantKey: "role", wantOp: OpEqual, wantExpected: "admin", wantOK: true},
		{cond: ` role != 'admin' `, wantKey: "role", wantOp: OpNotEqual, wantExpected: "admin", wantOK: true},
		{cond: `userName == ""`, wantKey: "userName", wantOp: OpEqual, wantExpected: "", wantOK: true},
		{cond: `x == "it's"`, wantKey: "x", wantOp: OpEqual, wantExpected: "it's", wantOK: true},
		{cond: `x == 'say "hi"'`, wantKey: "x", wantOp: OpEqual, wantExpected: `say "hi"`, wantOK: true},
		{cond: `role = "admin"`},
		{cond: `role == admin`},
		{cond: `role == "admin`},
		{cond: `role > "admin"`},
		{cond: `== "admin"`},
		{cond: `role`},
		{cond: ``},
	}

	for _, tc := range testCases {
		t.Run(tc.cond, func(t *testing.T) {
			key, op, expected, ok := ParseCondition(tc.cond)
			require.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantKey, key)
			assert.Equal(t, tc.wantOp, op)
			assert.Equal(t, tc.wantExpected, expected)
		})
	}
}

func TestApplyConditionals(t *testing.T) {
	p := params.Of("role", "admin", "lang", "en")

	testCases := []struct {
		name string
		text string
		want string
	}{
		{name: "equal holds", text: `a{{#if role=="admin"}}B{{/if}}c`, want: "aBc"},
		{name: "not equal fails", text: `a{{#if role!="admin"}}B{{/if}}c`, want: "ac"},
		{name: "equal with absent key fails", text: `{{#if team=="x"}}B{{/if}}`, want: ""},
		{name: "not equal with absent key holds", text: `{{#if team!="x"}}B{{/if}}`, want: "B"},
		{name: "malformed condition drops whole block", text: `a{{#if role}}B{{/if}}c`, want: "ac"},
		{name: "empty condition drops whole block", text: `a{{#if}}B{{/if}}c`, want: "ac"},
		{name: "several blocks left to right", text: `{{#if role=="admin"}}1{{/if}}-{{#if lang=="de"}}2{{/if}}-{{#if lang=="en"}}3{{/if}}`, want: "1--3"},
		{name: "multiline body kept verbatim", text: "{{#if lang==\"en\"}}\n<p>{{ hello }}</p>\n{{/if}}", want: "\n<p>{{ hello }}</p>\n"},
		{name: "nested block is opaque", text: `{{#if role=="admin"}}x{{#if lang=="en"}}y{{/if}}z{{/if}}`, want: `x{{#if lang=="en"}}yz{{/if}}`},
		{name: "unterminated block is left alone", text: `{{#if role=="admin"}}x`, want: `{{#if role=="admin"}}x`},
		{name: "similar tag name is not a block", text: `{{#iffy}}x{{/if}}`, want: `{{#iffy}}x{{/if}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ApplyConditionals(tc.text, p))
		})
	}
}

func TestApplyConditionals_EqualityProperty(t *testing.T) {
	values := []string{"", "v", "V", "other"}
	for _, bound := range append(values, "<absent>") {
		for _, expected := range values {
			p := params.New()
			if bound != "<absent>" {
				p.Put("k", bound)
			}
			name := fmt.Sprintf("k=%s expected=%s", bound, expected)
			t.Run(name, func(t *testing.T) {
				eq := ApplyConditionals(fmt.Sprintf(`{{#if k=="%s"}}BODY{{/if}}`, expected), p)
				neq := ApplyConditionals(fmt.Sprintf(`{{#if k!="%s"}}BODY{{/if}}`, expected), p)

				if bound == expected {
					assert.Equal(t, "BODY", eq)
					assert.Equal(t, "", neq)
				} else {
					assert.Equal(t, "", eq)
					assert.Equal(t, "BODY", neq)
				}
			})
		}
	}
}

func TestInterpolate(t *testing.T) {
	p := params.Of("name", "Ada", "empty", "", "nested", "{{name}}")

	testCases := []struct {
		name string
		text string
		want string
	}{
		{name: "simple", text: "Hi {{name}}!", want: "Hi Ada!"},
		{name: "whitespace trimmed", text: "Hi {{  name \t}}!", want: "Hi Ada!"},
		{name: "repeated", text: "{{name}}{{name}}", want: "AdaAda"},
		{name: "absent becomes empty", text: "[{{missing}}]", want: "[]"},
		{name: "present but empty", text: "[{{empty}}]", want: "[]"},
		{name: "no recursive expansion", text: "{{nested}}", want: "{{name}}"},
		{name: "stray conditional tags untouched", text: `{{#if x}}a{{/if}}`, want: `{{#if x}}a{{/if}}`},
		{name: "no placeholders", text: "<p>plain</p>", want: "<p>plain</p>"},
		{name: "braces spanning lines are not placeholders", text: "{{na\nme}}", want: "{{na\nme}}"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Interpolate(tc.text, p))
		})
	}
}

func TestInterpolate_Idempotent(t *testing.T) {
	p := params.Of("title", "Home", "user", "Ada <admin>")
	inputs := []string{
		"<h1>{{title}}</h1>",
		"{{user}} / {{ title }} / {{missing}}",
		`{{#if x=="y"}}left{{/if}} {{title}}`,
		"",
	}
	for _, in := range inputs {
		once := Interpolate(in, p)
		assert.Equal(t, once, Interpolate(once, p), "input %q", in)
	}
}

func TestPlaceholders(t *testing.T) {
	keys := Placeholders(`{{a}} {{ b }} {{a}} {{#if x=="1"}}{{c}}{{/if}}`)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestParseBlocks(t *testing.T) {
	blocks := ParseBlocks(`{{#if a=="1"}}one{{/if}}{{#if broken}}x{{/if}}{{#if b!='2'}}two{{/if}}`)
	require.Len(t, blocks, 2)
	assert.Equal(t, Block{Key: "a", Op: OpEqual, Expected: "1", Body: "one"}, blocks[0])
	assert.Equal(t, Block{Key: "b", Op: OpNotEqual, Expected: "2", Body: "two"}, blocks[1])
}

func TestUnbound(t *testing.T) {
	text := `{{#if role=="admin"}}{{secret}}{{/if}}{{#if lang!="en"}}{{ name }}{{/if}} {{name}} {{title}}`

	testCases := []struct {
		name string
		p    *params.Set
		want []string
	}{
		{name: "nothing bound", p: nil, want: []string{"role", "lang", "name", "title"}},
		{name: "all bound", p: params.Of("role", "user", "lang", "en", "name", "Ada", "title", "T")},
		{name: "hidden body not reported", p: params.Of("role", "user", "lang", "en"), want: []string{"name", "title"}},
		{name: "shown body reported", p: params.Of("role", "admin", "lang", "en", "title", "T"), want: []string{"secret", "name"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Unbound(text, tc.p))
		})
	}
}

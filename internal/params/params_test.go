package params

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_PresenceSemantics(t *testing.T) {
	s := Of("name", "Ada", "empty", "")

	v, ok := s.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Ada", v)

	v, ok = s.Get("empty")
	assert.True(t, ok, "a key bound to the empty string is present")
	assert.Equal(t, "", v)

	_, ok = s.Get("missing")
	assert.False(t, ok)

	var nilSet *Set
	_, ok = nilSet.Get("name")
	assert.False(t, ok)
	assert.Equal(t, 0, nilSet.Len())
	assert.Empty(t, nilSet.Keys())
}

func TestSet_PutKeepsKeysUnique(t *testing.T) {
	s := New()
	s.Put("a", "1")
	s.Put("b", "2")
	s.Put("a", "3")

	assert.Equal(t, []string{"a", "b"}, s.Keys())
	v, _ := s.Get("a")
	assert.Equal(t, "3", v)
	assert.Equal(t, "{a=3, b=2}", s.String())
}

func TestFromMap_IsSorted(t *testing.T) {
	s := FromMap(map[string]string{"b": "2", "a": "1", "c": "3"})
	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, s.Map())
}

func TestMerge(t *testing.T) {
	testCases := []struct {
		name   string
		parent *Set
		local  *Set
		key    string
		want   string
		wantOK bool
	}{
		{name: "inherits parent value", parent: Of("x", "1"), local: Of("y", "2"), key: "x", want: "1", wantOK: true},
		{name: "local override wins", parent: Of("x", "1"), local: Of("x", "2"), key: "x", want: "2", wantOK: true},
		{name: "local empty value still wins", parent: Of("x", "1"), local: Of("x", ""), key: "x", want: "", wantOK: true},
		{name: "nil parent", parent: nil, local: Of("x", "2"), key: "x", want: "2", wantOK: true},
		{name: "nil local", parent: Of("x", "1"), local: nil, key: "x", want: "1", wantOK: true},
		{name: "absent everywhere", parent: Of("x", "1"), local: Of("y", "2"), key: "z", wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			merged := Merge(tc.parent, tc.local)
			v, ok := merged.Get(tc.key)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, v)
		})
	}

	t.Run("inputs are not modified", func(t *testing.T) {
		parent := Of("x", "1")
		local := Of("x", "2", "y", "3")
		Merge(parent, local)
		assert.Equal(t, "{x=1}", parent.String())
		assert.Equal(t, "{x=2, y=3}", local.String())
	})
}

func TestSet_LogValue(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))
	logger.Info("resolving", "params", Of("role", "admin"))
	assert.Contains(t, buf.String(), "params.role=admin")
}

func TestDatasetKey(t *testing.T) {
	testCases := []struct {
		attr   string
		want   string
		wantOK bool
	}{
		{attr: "data-name", want: "name", wantOK: true},
		{attr: "data-user-name", want: "userName", wantOK: true},
		{attr: "DATA-X", want: "x", wantOK: true},
		{attr: "data-a-b-c", want: "aBC", wantOK: true},
		{attr: "data-x-1", want: "x-1", wantOK: true},
		{attr: "data-trailing-", want: "trailing-", wantOK: true},
		{attr: "src", wantOK: false},
		{attr: "datafoo", wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.attr, func(t *testing.T) {
			got, ok := DatasetKey(tc.attr)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

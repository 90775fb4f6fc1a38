package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShorten(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		maxLength int
		want      string
	}{
		{name: "short text untouched", input: "hello", maxLength: 10, want: "hello"},
		{name: "whitespace normalized", input: "a\n\tb   c", maxLength: 10, want: "a b c"},
		{name: "truncated with ellipsis", input: "hello wonderful world", maxLength: 10, want: "hello w..."},
		{name: "non-string values", input: map[string]any{"k": "v"}, maxLength: 20, want: "map[k:v]"},
		{name: "tiny max length", input: "hello", maxLength: 2, want: "he"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Shorten(tt.input, tt.maxLength))
		})
	}
}

func TestTextChunks(t *testing.T) {
	assert.Nil(t, TextChunks("", 10))
	assert.Nil(t, TextChunks("abc", 0))
	assert.Equal(t, []string{"abc"}, TextChunks("abc", 10))
	assert.Equal(t, []string{"ab", "cd", "e"}, TextChunks("abcde", 2))

	t.Run("rune boundaries", func(t *testing.T) {
		chunks := TextChunks("äöüß", 2)
		assert.Equal(t, []string{"äö", "üß"}, chunks)
	})
}

func TestCanonicalJSON(t *testing.T) {
	a, err := CanonicalJSON(map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)
	b, err := CanonicalJSON(map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, a, b, "map key order does not affect the serialization")
	assert.Equal(t, `{"a":1,"b":2}`, a)

	_, err = CanonicalJSON(func() {})
	require.Error(t, err)
}

func TestNormalizeToMap(t *testing.T) {
	got, err := NormalizeToMap(struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}{Name: "x", Count: 3})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "x", "count": float64(3)}, got)

	_, err = NormalizeToMap("not an object")
	require.Error(t, err)
}

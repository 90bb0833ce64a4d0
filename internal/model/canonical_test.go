package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"bool", Bool(true), "true"},
		{"null", Null{}, "null"},
		{"empty object", Object{}, "{}"},
		{"nested", Object{"b": Object{"y": Int(1), "x": Null{}}, "a": String("v")}, `{"a":"v","b":{"x":null,"y":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(String("<a&b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed, err := MarshalCanonical(String("e\u0301te"))
	require.NoError(t, err)
	composed, err := MarshalCanonical(String("\u00e9te"))
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+1F600 encodes as surrogates D83D DE00, which sort below U+FF5E in UTF-16
	// but above it in UTF-8.
	obj := Object{"～": Int(1), "\U0001F600": Int(2)}
	assert.Equal(t, []string{"\U0001F600", "～"}, obj.SortedKeys())
}

package model

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface for values that may appear in a canonical
// encoding. Only Null, String, Int, Bool and Object implement it.
// There is no float variant: prices and bounds are always integers.
type Value interface {
	canonicalValue()
}

// Null is an explicit JSON null (an absent price bound).
type Null struct{}

func (Null) canonicalValue() {}

// String is a string value.
type String string

func (String) canonicalValue() {}

// Int is an integer value. Always int64.
type Int int64

func (Int) canonicalValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) canonicalValue() {}

// Object maps string keys to values. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) canonicalValue() {}

// OptionalInt returns Int(*n), or Null when n is nil.
func OptionalInt(n *int64) Value {
	if n == nil {
		return Null{}
	}
	return Int(*n)
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go's string comparison orders by UTF-8 bytes, which differs for
// characters outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

package filter

import (
	"strings"
)

// maxPriceDigits bounds the integer part so that cents fit in int64.
const maxPriceDigits = 12

// ParsePrice parses a euro amount typed by the user into cents.
//
// Accepts "12", "12.5", "12,50" and surrounding whitespace. A third
// fractional digit rounds half up. Empty, malformed or negative input
// returns nil ("no bound"), never an error.
func ParsePrice(text string) *int64 {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	s = strings.Replace(s, ",", ".", 1)

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && frac == "" {
		return nil
	}
	if !allDigits(whole) || !allDigits(frac) || len(whole) > maxPriceDigits {
		return nil
	}

	var cents int64
	for _, r := range whole {
		cents = cents*10 + int64(r-'0')
	}
	cents *= 100

	var fracDigits [3]int64
	for i := 0; i < len(frac) && i < 3; i++ {
		fracDigits[i] = int64(frac[i] - '0')
	}
	cents += fracDigits[0]*10 + fracDigits[1]
	if fracDigits[2] >= 5 {
		cents++
	}
	return &cents
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

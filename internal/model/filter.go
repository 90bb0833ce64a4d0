package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CategoryAll is the sentinel category meaning "no category filter".
const CategoryAll = "all"

// FeedCategories lists the categories offered by the feed filter, sentinel first.
var FeedCategories = []string{
	CategoryAll, "Tops", "Bottoms", "Dresses", "Outerwear", "Activewear", "Shoes", "Accessories",
}

// FilterState is the raw filter as edited by the user.
// MinPrice and MaxPrice are in minor units; nil means "no bound".
type FilterState struct {
	Search   string `json:"search" yaml:"search"`
	Category string `json:"category" yaml:"category"`
	MinPrice *int64 `json:"min_price,omitempty" yaml:"min_price,omitempty"`
	MaxPrice *int64 `json:"max_price,omitempty" yaml:"max_price,omitempty"`
}

// Filter is a normalized FilterState. Construct it with Normalize;
// two FilterStates that normalize identically yield equal Filters and
// equal signatures.
type Filter struct {
	Search   string `json:"search"`
	Category string `json:"category"`
	MinPrice *int64 `json:"min_price,omitempty"`
	MaxPrice *int64 `json:"max_price,omitempty"`
}

// Normalize converts a raw FilterState to its canonical form.
//
// Search text is NFC normalized, trimmed, whitespace runs are collapsed and
// the result is case folded (title matching is case-insensitive, so case
// never changes the result set). An empty category becomes CategoryAll.
// Negative price bounds are dropped.
func Normalize(s FilterState) Filter {
	f := Filter{
		Search:   NormalizeSearch(s.Search),
		Category: strings.TrimSpace(s.Category),
	}
	if f.Category == "" || strings.EqualFold(f.Category, CategoryAll) {
		f.Category = CategoryAll
	}
	if s.MinPrice != nil && *s.MinPrice >= 0 {
		v := *s.MinPrice
		f.MinPrice = &v
	}
	if s.MaxPrice != nil && *s.MaxPrice >= 0 {
		v := *s.MaxPrice
		f.MaxPrice = &v
	}
	return f
}

// NormalizeSearch applies the search normalization used by Normalize.
func NormalizeSearch(s string) string {
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	// A Caser is stateful; never share one between goroutines.
	return cases.Fold().String(s)
}

// Unfiltered reports whether the filter places no constraint on results.
func (f Filter) Unfiltered() bool {
	return f.Search == "" && f.Category == CategoryAll && f.MinPrice == nil && f.MaxPrice == nil
}

// Object returns the canonical representation of the filter.
func (f Filter) Object() Object {
	return Object{
		"search":    String(f.Search),
		"category":  String(f.Category),
		"min_price": OptionalInt(f.MinPrice),
		"max_price": OptionalInt(f.MaxPrice),
	}
}

// Signature returns the cache key for the filter.
func (f Filter) Signature() string {
	data, err := MarshalCanonical(f.Object())
	if err != nil {
		// Object only holds String, Int and Null values.
		panic("filter signature: " + err.Error())
	}
	return hashWithDomain(DomainFilter, data)
}

// State converts the filter back to a FilterState, for display and round trips.
func (f Filter) State() FilterState {
	return FilterState{Search: f.Search, Category: f.Category, MinPrice: f.MinPrice, MaxPrice: f.MaxPrice}
}

// Int64 returns a pointer to v; convenient for price bounds.
func Int64(v int64) *int64 {
	return &v
}

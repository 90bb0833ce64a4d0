package queryir

import (
	"github.com/roach88/reelfeed/internal/model"
)

// ListingColumns are the columns of a feed row, in scan order.
var ListingColumns = []string{
	"id", "title", "price_cents", "category", "size",
	"video_url", "thumb_url", "created_at", "status",
}

// NewestFirst is the feed order. The id tie-break keeps pages disjoint
// when several listings share a timestamp.
var NewestFirst = []Order{
	{Field: "created_at", Direction: Desc},
	{Field: "id", Direction: Desc},
}

// ListingFilter builds the predicate for a normalized feed filter.
func ListingFilter(f model.Filter) Predicate {
	preds := []Predicate{
		Equals{Field: "status", Value: model.String(model.StatusActive)},
	}
	if f.Search != "" {
		preds = append(preds, Contains{Field: "title", Needle: f.Search})
	}
	if f.Category != "" && f.Category != model.CategoryAll {
		preds = append(preds, Equals{Field: "category", Value: model.String(f.Category)})
	}
	if f.MinPrice != nil {
		preds = append(preds, AtLeast{Field: "price_cents", Value: *f.MinPrice})
	}
	if f.MaxPrice != nil {
		preds = append(preds, AtMost{Field: "price_cents", Value: *f.MaxPrice})
	}
	return And{Predicates: preds}
}

// ListingPage builds the query for one feed page.
func ListingPage(f model.Filter, pageIndex, pageSize int) Select {
	return Select{
		From:    "listings",
		Columns: ListingColumns,
		Filter:  ListingFilter(f),
		OrderBy: NewestFirst,
		Limit:   pageSize,
		Offset:  pageIndex * pageSize,
	}
}

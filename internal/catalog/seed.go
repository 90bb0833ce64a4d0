package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/reelfeed/internal/model"
)

// Sink receives seeded sellers and listings. store.Store implements it.
type Sink interface {
	UpsertProfile(ctx context.Context, id, email string) error
	CreateListing(ctx context.Context, draft model.ListingDraft) (model.Listing, error)
}

// Seed writes the catalog's sellers and listings into sink, in key order.
// It returns the created listings.
func Seed(ctx context.Context, sink Sink, cat *Catalog) ([]model.Listing, error) {
	for _, s := range cat.Sellers {
		if err := sink.UpsertProfile(ctx, s.ID, s.Email); err != nil {
			return nil, fmt.Errorf("seed seller %s: %w", s.ID, err)
		}
	}
	created := make([]model.Listing, 0, len(cat.Entries))
	for _, e := range cat.Entries {
		l, err := sink.CreateListing(ctx, e.Draft)
		if err != nil {
			return created, fmt.Errorf("seed listing %s: %w", e.Key, err)
		}
		created = append(created, l)
	}
	return created, nil
}

var syntheticNouns = []string{"jacket", "tee", "jeans", "dress", "coat", "hoodie", "sneakers", "scarf"}
var syntheticAdjectives = []string{"Vintage", "Oversized", "Linen", "Denim", "Wool", "Cropped", "Retro", "Classic"}

// Synthetic builds a catalog of n listings for seller-1..seller-3, one
// minute apart, the newest at now. Output is deterministic for a given n
// and now.
func Synthetic(n int, now time.Time) *Catalog {
	cat := &Catalog{
		Sellers: []Seller{
			{ID: "seller-1", Email: "seller1@reelfeed.local"},
			{ID: "seller-2", Email: "seller2@reelfeed.local"},
			{ID: "seller-3", Email: "seller3@reelfeed.local"},
		},
	}
	for i := 0; i < n; i++ {
		title := fmt.Sprintf("%s %s #%d",
			syntheticAdjectives[i%len(syntheticAdjectives)],
			syntheticNouns[(i/len(syntheticAdjectives))%len(syntheticNouns)],
			i+1)
		cat.Entries = append(cat.Entries, Entry{
			Key: fmt.Sprintf("synthetic-%04d", i+1),
			Draft: model.ListingDraft{
				Title:      title,
				PriceCents: int64(500 + (i*731)%20000),
				Category:   model.ListingCategories[i%len(model.ListingCategories)],
				Size:       model.ListingSizes[i%len(model.ListingSizes)],
				SellerID:   cat.Sellers[i%len(cat.Sellers)].ID,
				CreatedAt:  now.Add(-time.Duration(n-1-i) * time.Minute).UTC(),
			},
		})
	}
	return cat
}

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/testutil"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// createTestStore opens a fresh database with predictable ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	ids := testutil.NewFixedIDGenerator("id")
	s, err := Open(path, WithIDGenerator(ids.Next), WithNow(func() time.Time { return epoch }))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seed creates n listings; listing i is i minutes newer than epoch.
func seed(t *testing.T, s *Store, n int) []model.Listing {
	t.Helper()
	var out []model.Listing
	for i := 1; i <= n; i++ {
		l, err := s.CreateListing(context.Background(), model.ListingDraft{
			Title:      "Item " + string(rune('A'+i-1)),
			PriceCents: int64(i) * 100,
			Category:   model.ListingCategories[(i-1)%len(model.ListingCategories)],
			Size:       "M",
			SellerID:   "seller-1",
			CreatedAt:  epoch.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		out = append(out, l)
	}
	return out
}

func TestOpen_PragmasAndVersion(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "2"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.CreateListing(context.Background(), model.ListingDraft{
		Title: "Linen shirt", PriceCents: 1500, Category: "Tops", Size: "S", SellerID: "seller-1",
	})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	n, err := s2.CountListings(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFetchListings_PagesNewestFirst(t *testing.T) {
	s := createTestStore(t)
	seed(t, s, 5)
	ctx := context.Background()
	all := model.Normalize(model.FilterState{})

	p0, err := s.FetchListings(ctx, all, 0, 2)
	require.NoError(t, err)
	p1, err := s.FetchListings(ctx, all, 1, 2)
	require.NoError(t, err)
	p2, err := s.FetchListings(ctx, all, 2, 2)
	require.NoError(t, err)

	ids := func(p model.Page) []string {
		var out []string
		for _, l := range p.Items {
			out = append(out, l.ID)
		}
		return out
	}
	assert.Equal(t, []string{"id-0005", "id-0004"}, ids(p0))
	assert.Equal(t, []string{"id-0003", "id-0002"}, ids(p1))
	assert.Equal(t, []string{"id-0001"}, ids(p2))
	assert.False(t, p0.IsLastPage)
	assert.True(t, p2.IsLastPage)
	assert.Equal(t, epoch.Add(5*time.Minute), p0.Items[0].CreatedAt)
}

func TestFetchListings_TieBreakOnID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.CreateListing(ctx, model.ListingDraft{
			Title: "Same time", PriceCents: 100, Category: "Tops", Size: "M", SellerID: "s", CreatedAt: epoch,
		})
		require.NoError(t, err)
	}
	page, err := s.FetchListings(ctx, model.Normalize(model.FilterState{}), 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "id-0003", page.Items[0].ID)
	assert.Equal(t, "id-0001", page.Items[2].ID)
}

func TestFetchListings_Filters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	drafts := []model.ListingDraft{
		{Title: "Vintage STRASSE Jacket", PriceCents: 4500, Category: "Outerwear", Size: "L"},
		{Title: "Straße boots", PriceCents: 8000, Category: "Shoes", Size: "40"},
		{Title: "Red 100% cotton tee", PriceCents: 1200, Category: "Tops", Size: "S"},
		{Title: "Red dress", PriceCents: 3000, Category: "Dresses", Size: "M"},
	}
	for i, d := range drafts {
		d.SellerID = "seller-1"
		d.CreatedAt = epoch.Add(time.Duration(i) * time.Minute)
		_, err := s.CreateListing(ctx, d)
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		state model.FilterState
		want  []string
	}{
		{"unfiltered", model.FilterState{}, []string{"Red dress", "Red 100% cotton tee", "Straße boots", "Vintage STRASSE Jacket"}},
		{"case folded search", model.FilterState{Search: "strasse"}, []string{"Straße boots", "Vintage STRASSE Jacket"}},
		{"whitespace collapsed", model.FilterState{Search: "  red   DRESS "}, []string{"Red dress"}},
		{"literal percent", model.FilterState{Search: "100%"}, []string{"Red 100% cotton tee"}},
		{"category", model.FilterState{Category: "Tops"}, []string{"Red 100% cotton tee"}},
		{"inclusive range", model.FilterState{MinPrice: model.Int64(3000), MaxPrice: model.Int64(4500)}, []string{"Red dress", "Vintage STRASSE Jacket"}},
		{"combined", model.FilterState{Search: "red", MaxPrice: model.Int64(2000)}, []string{"Red 100% cotton tee"}},
		{"no match", model.FilterState{Search: "sofa"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.FetchListings(ctx, model.Normalize(tt.state), 0, 20)
			require.NoError(t, err)
			var titles []string
			for _, l := range page.Items {
				titles = append(titles, l.Title)
			}
			assert.Equal(t, tt.want, titles)
			assert.True(t, page.IsLastPage)
		})
	}
}

func TestFetchListings_InvalidPage(t *testing.T) {
	s := createTestStore(t)
	_, err := s.FetchListings(context.Background(), model.Normalize(model.FilterState{}), -1, 20)
	assert.True(t, model.IsValidationRejected(err))
}

func TestFetchListingByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertProfile(ctx, "seller-1", "seller@example.test"))
	listings := seed(t, s, 1)

	d, err := s.FetchListingByID(ctx, listings[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "seller-1", d.SellerID)
	assert.Equal(t, "seller@example.test", d.SellerEmail, "empty email on listing creation keeps the stored one")
	assert.Equal(t, listings[0], d.Listing)

	_, err = s.FetchListingByID(ctx, "missing")
	assert.True(t, model.IsNotFound(err))
}

func TestCreateListing_RejectsInvalidDraft(t *testing.T) {
	s := createTestStore(t)
	_, err := s.CreateListing(context.Background(), model.ListingDraft{Title: "ok title", PriceCents: 50, Category: "Tops", Size: "M", SellerID: "s"})
	assert.True(t, model.IsValidationRejected(err))

	n, err := s.CountListings(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLikes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	l := seed(t, s, 1)[0]

	require.NoError(t, s.CreateLike(ctx, l.ID, "alice"))
	require.NoError(t, s.CreateLike(ctx, l.ID, "alice"))
	require.NoError(t, s.CreateLike(ctx, l.ID, "bob"))

	n, err := s.CountLikes(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	liked, err := s.HasLiked(ctx, l.ID, "alice")
	require.NoError(t, err)
	assert.True(t, liked)

	require.NoError(t, s.DeleteLike(ctx, l.ID, "alice"))
	require.NoError(t, s.DeleteLike(ctx, l.ID, "alice"))
	liked, err = s.HasLiked(ctx, l.ID, "alice")
	require.NoError(t, err)
	assert.False(t, liked)

	n, err = s.CountLikes(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reelfeed/internal/model"
)

func TestListingFilterUnfiltered(t *testing.T) {
	p := ListingFilter(model.Normalize(model.FilterState{}))
	assert.Equal(t, And{Predicates: []Predicate{
		Equals{Field: "status", Value: model.String("active")},
	}}, p)
}

func TestListingFilterAllFields(t *testing.T) {
	f := model.Normalize(model.FilterState{
		Search:   "  Red   DRESS ",
		Category: "Dresses",
		MinPrice: model.Int64(1000),
		MaxPrice: model.Int64(5000),
	})
	p := ListingFilter(f)
	assert.Equal(t, And{Predicates: []Predicate{
		Equals{Field: "status", Value: model.String("active")},
		Contains{Field: "title", Needle: "red dress"},
		Equals{Field: "category", Value: model.String("Dresses")},
		AtLeast{Field: "price_cents", Value: 1000},
		AtMost{Field: "price_cents", Value: 5000},
	}}, p)
}

func TestListingPage(t *testing.T) {
	q := ListingPage(model.Normalize(model.FilterState{}), 2, 20)
	assert.Equal(t, 40, q.Offset)
	assert.Equal(t, 20, q.Limit)
	assert.Equal(t, NewestFirst, q.OrderBy)
	require.NoError(t, Validate(q))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		wantErr string
	}{
		{
			name:  "valid pointer",
			query: &Select{From: "listings", Columns: []string{"id"}},
		},
		{
			name:    "nil",
			query:   nil,
			wantErr: "nil query",
		},
		{
			name:    "injected table",
			query:   Select{From: "listings; DROP TABLE likes", Columns: []string{"id"}},
			wantErr: "invalid table",
		},
		{
			name:    "no columns",
			query:   Select{From: "listings"},
			wantErr: "has no columns",
		},
		{
			name: "bad field in nested predicate",
			query: Select{From: "listings", Columns: []string{"id"}, Filter: And{Predicates: []Predicate{
				And{Predicates: []Predicate{Contains{Field: "Title"}}},
			}}},
			wantErr: `invalid field "Title"`,
		},
		{
			name:    "nil value",
			query:   Select{From: "listings", Columns: []string{"id"}, Filter: Equals{Field: "status"}},
			wantErr: "compared to nil value",
		},
		{
			name:    "bad direction",
			query:   Select{From: "listings", Columns: []string{"id"}, OrderBy: []Order{{Field: "id", Direction: "UP"}}},
			wantErr: "invalid direction",
		},
		{
			name:    "negative paging",
			query:   Select{From: "listings", Columns: []string{"id"}, Limit: -1, Offset: -5},
			wantErr: "negative offset -5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

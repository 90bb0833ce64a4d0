package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/queryir"
	"github.com/roach88/reelfeed/internal/remote"
)

// FetchListings returns one page of active listings matching filter,
// newest first.
func (s *Store) FetchListings(ctx context.Context, filter model.Filter, pageIndex, pageSize int) (model.Page, error) {
	if pageIndex < 0 || pageSize <= 0 {
		return model.Page{}, model.NewValidationError(remote.OpFetchListings,
			fmt.Sprintf("invalid page %d of size %d", pageIndex, pageSize), nil)
	}

	query, params, err := s.compiler.Compile(queryir.ListingPage(filter, pageIndex, pageSize))
	if err != nil {
		return model.Page{}, fmt.Errorf("fetch page %d: %w", pageIndex, err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return model.Page{}, fmt.Errorf("fetch page %d: %w", pageIndex, err)
	}
	defer rows.Close()

	items := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return model.Page{}, fmt.Errorf("fetch page %d: %w", pageIndex, err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return model.Page{}, fmt.Errorf("fetch page %d: %w", pageIndex, err)
	}

	return model.Page{
		Index:      pageIndex,
		Items:      items,
		IsLastPage: len(items) < pageSize,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanListing reads the columns of queryir.ListingColumns.
func scanListing(row scanner) (model.Listing, error) {
	var l model.Listing
	var created int64
	var status string
	err := row.Scan(&l.ID, &l.Title, &l.PriceCents, &l.Category, &l.Size,
		&l.VideoURL, &l.ThumbURL, &created, &status)
	if err != nil {
		return model.Listing{}, err
	}
	l.CreatedAt = fromTimestamp(created)
	l.Status = model.ListingStatus(status)
	return l, nil
}

// FetchListingByID returns a listing with its seller, in any status.
func (s *Store) FetchListingByID(ctx context.Context, id string) (model.ListingDetail, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT l.id, l.title, l.price_cents, l.category, l.size,
		       l.video_url, l.thumb_url, l.created_at, l.status,
		       l.user_id, p.email
		FROM listings l
		JOIN profiles p ON p.id = l.user_id
		WHERE l.id = ?
	`, id)

	var d model.ListingDetail
	var created int64
	var status string
	err := row.Scan(&d.ID, &d.Title, &d.PriceCents, &d.Category, &d.Size,
		&d.VideoURL, &d.ThumbURL, &created, &status,
		&d.SellerID, &d.SellerEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ListingDetail{}, model.NewNotFoundError(remote.OpFetchListing, "listing not found")
	}
	if err != nil {
		return model.ListingDetail{}, fmt.Errorf("fetch listing %s: %w", id, err)
	}
	d.CreatedAt = fromTimestamp(created)
	d.Status = model.ListingStatus(status)
	return d, nil
}

// CreateListing validates and stores a new active listing. The seller's
// profile is created if missing. A zero CreatedAt means now.
func (s *Store) CreateListing(ctx context.Context, draft model.ListingDraft) (model.Listing, error) {
	if err := model.ValidateDraft(draft); err != nil {
		return model.Listing{}, err
	}
	if err := s.UpsertProfile(ctx, draft.SellerID, ""); err != nil {
		return model.Listing{}, err
	}

	created := draft.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	l := model.Listing{
		ID:         s.newID(),
		Title:      draft.Title,
		PriceCents: draft.PriceCents,
		Category:   draft.Category,
		Size:       draft.Size,
		VideoURL:   draft.VideoURL,
		ThumbURL:   draft.ThumbURL,
		CreatedAt:  created.UTC(),
		Status:     model.StatusActive,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO listings
		(id, user_id, title, price_cents, category, size, video_url, thumb_url, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		l.ID, draft.SellerID, l.Title, l.PriceCents, l.Category, l.Size,
		l.VideoURL, l.ThumbURL, l.CreatedAt.UnixNano(), string(l.Status),
	)
	if err != nil {
		return model.Listing{}, fmt.Errorf("create listing: %w", err)
	}

	s.logger.Debug("listing created", "id", l.ID, "seller", draft.SellerID)
	return l, nil
}

// CountListings returns the number of listings with the given status.
// An empty status counts all.
func (s *Store) CountListings(ctx context.Context, status model.ListingStatus) (int, error) {
	var n int
	var err error
	if status == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings WHERE status = ?`, string(status)).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return n, nil
}

package store

import (
	"context"
	"fmt"
)

// CreateLike records that user likes a listing. Liking twice is a no-op.
func (s *Store) CreateLike(ctx context.Context, listingID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO likes (id, listing_id, user_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(listing_id, user_id) DO NOTHING
	`, s.newID(), listingID, userID, s.timestamp())
	if err != nil {
		return fmt.Errorf("create like: %w", err)
	}
	return nil
}

// DeleteLike removes a like. Removing a missing like is a no-op.
func (s *Store) DeleteLike(ctx context.Context, listingID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM likes WHERE listing_id = ? AND user_id = ?`, listingID, userID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return nil
}

// CountLikes returns how many users like a listing.
func (s *Store) CountLikes(ctx context.Context, listingID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE listing_id = ?`, listingID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return n, nil
}

// HasLiked reports whether user likes a listing.
func (s *Store) HasLiked(ctx context.Context, listingID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM likes WHERE listing_id = ? AND user_id = ?)`,
		listingID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has liked: %w", err)
	}
	return exists, nil
}

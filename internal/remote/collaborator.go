// Package remote defines the contract the feed engine requires of its
// remote collaborator, and a guarded wrapper that adds timeouts, rate
// limiting, circuit breaking, error classification and metrics.
package remote

import (
	"context"

	"github.com/roach88/reelfeed/internal/model"
)

// Operation names, used in errors, logs and metric labels.
const (
	OpFetchListings    = "fetch_listings"
	OpFetchListing     = "fetch_listing"
	OpCreateLike       = "create_like"
	OpDeleteLike       = "delete_like"
	OpCountLikes       = "count_likes"
	OpHasLiked         = "has_liked"
	OpInitiateCheckout = "initiate_checkout"
	OpCompleteCheckout = "complete_checkout"
	OpCreateListing    = "create_listing"
)

// ListingSource serves pages of listings.
//
// FetchListings returns the listings matching filter at the given page:
// case-insensitive substring match on title, category equality unless the
// category is "all", inclusive price range in cents, active listings only,
// ordered newest first with a stable tie-break so pages never overlap for
// a fixed filter.
type ListingSource interface {
	FetchListings(ctx context.Context, filter model.Filter, pageIndex, pageSize int) (model.Page, error)
	FetchListingByID(ctx context.Context, id string) (model.ListingDetail, error)
}

// LikeService manages the like relation.
type LikeService interface {
	CreateLike(ctx context.Context, listingID, userID string) error
	DeleteLike(ctx context.Context, listingID, userID string) error
	CountLikes(ctx context.Context, listingID string) (int64, error)
	HasLiked(ctx context.Context, listingID, userID string) (bool, error)
}

// CheckoutRequest starts a purchase.
type CheckoutRequest struct {
	ListingID   string `validate:"required"`
	BuyerID     string `validate:"required"`
	AmountCents int64  `validate:"gt=0"`
	Title       string `validate:"required"`
}

// CheckoutService starts and completes purchases.
type CheckoutService interface {
	InitiateCheckout(ctx context.Context, req CheckoutRequest) (model.CheckoutSession, error)
	CompleteCheckout(ctx context.Context, sessionID, paymentIntent string) (model.Transaction, error)
}

// ListingWriter creates listings.
type ListingWriter interface {
	CreateListing(ctx context.Context, draft model.ListingDraft) (model.Listing, error)
}

// Collaborator is the full remote contract.
type Collaborator interface {
	ListingSource
	LikeService
	CheckoutService
	ListingWriter
}

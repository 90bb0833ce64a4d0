// Package checkout starts and completes purchases of listings.
package checkout

import (
	"context"
	"log/slog"

	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/remote"
)

// OpBeginCheckout names Begin in errors.
const OpBeginCheckout = "begin_checkout"

// Remote is what the service needs from the collaborator.
type Remote interface {
	remote.CheckoutService
	FetchListingByID(ctx context.Context, id string) (model.ListingDetail, error)
}

// Service checks a purchase locally before handing it to the remote.
type Service struct {
	remote Remote
	logger *slog.Logger
}

// NewService creates a service. A nil logger uses slog.Default().
func NewService(r Remote, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{remote: r, logger: logger}
}

// Begin starts a checkout of listingID for user.
//
// Errors, in check order:
//   - Unauthorized: user is anonymous
//   - NotFound: the listing does not exist
//   - Conflict: the listing is sold
//   - ValidationRejected: the user is the seller
//
// Failures of the remote itself are returned classified.
func (s *Service) Begin(ctx context.Context, listingID string, user model.User) (model.CheckoutSession, error) {
	if !user.Authenticated() {
		return model.CheckoutSession{}, model.NewUnauthorizedError(OpBeginCheckout, "sign in to buy items")
	}

	detail, err := s.remote.FetchListingByID(ctx, listingID)
	if err != nil {
		return model.CheckoutSession{}, model.Classify(OpBeginCheckout, err)
	}
	if detail.Status == model.StatusSold {
		return model.CheckoutSession{}, model.NewConflictError(OpBeginCheckout, "listing is no longer available")
	}
	if detail.SellerID == user.ID {
		return model.CheckoutSession{}, model.NewValidationError(OpBeginCheckout, "you cannot buy your own listing", nil)
	}

	sess, err := s.remote.InitiateCheckout(ctx, remote.CheckoutRequest{
		ListingID:   detail.ID,
		BuyerID:     user.ID,
		AmountCents: detail.PriceCents,
		Title:       detail.Title,
	})
	if err != nil {
		return model.CheckoutSession{}, model.Classify(OpBeginCheckout, err)
	}
	if sess.RedirectURL == "" {
		return model.CheckoutSession{}, &model.Error{
			Code:    model.ErrCodeNetworkFailure,
			Op:      OpBeginCheckout,
			Message: "no checkout URL received",
		}
	}

	s.logger.Info("checkout started", "session", sess.ID, "listing", detail.ID, "buyer", user.ID,
		"amount", model.FormatPrice(detail.PriceCents))
	return sess, nil
}

// Complete settles a paid session and returns the recorded transaction.
func (s *Service) Complete(ctx context.Context, sessionID, paymentIntent string) (model.Transaction, error) {
	tx, err := s.remote.CompleteCheckout(ctx, sessionID, paymentIntent)
	if err != nil {
		return model.Transaction{}, model.Classify(remote.OpCompleteCheckout, err)
	}
	s.logger.Info("checkout completed", "transaction", tx.ID, "listing", tx.ListingID)
	return tx, nil
}

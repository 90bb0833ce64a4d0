package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/remote"
)

// InitiateCheckout stores a session for an active listing and returns it
// with its redirect URL.
func (s *Store) InitiateCheckout(ctx context.Context, req remote.CheckoutRequest) (model.CheckoutSession, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM listings WHERE id = ?`, req.ListingID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CheckoutSession{}, model.NewNotFoundError(remote.OpInitiateCheckout, "listing not found")
	}
	if err != nil {
		return model.CheckoutSession{}, fmt.Errorf("initiate checkout: %w", err)
	}
	if model.ListingStatus(status) != model.StatusActive {
		return model.CheckoutSession{}, model.NewConflictError(remote.OpInitiateCheckout, "listing is no longer available")
	}

	sess := model.CheckoutSession{
		ID:          s.newID(),
		ListingID:   req.ListingID,
		BuyerID:     req.BuyerID,
		AmountCents: req.AmountCents,
		Title:       req.Title,
	}
	if s.baseURL != "" {
		sess.RedirectURL = s.baseURL + sess.ID
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkout_sessions
		(id, listing_id, buyer_id, amount_cents, title, redirect_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.ListingID, sess.BuyerID, sess.AmountCents, sess.Title, sess.RedirectURL, s.timestamp())
	if err != nil {
		return model.CheckoutSession{}, fmt.Errorf("initiate checkout: %w", err)
	}
	return sess, nil
}

// CompleteCheckout settles a session: it records the transaction and marks
// the listing sold, atomically. A sold listing or a completed session is
// a Conflict.
func (s *Store) CompleteCheckout(ctx context.Context, sessionID, paymentIntent string) (tx model.Transaction, err error) {
	const op = remote.OpCompleteCheckout

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("complete checkout: %w", err)
	}
	defer func() {
		if err != nil {
			_ = dbtx.Rollback()
		}
	}()

	var sess model.CheckoutSession
	var completed bool
	err = dbtx.QueryRowContext(ctx, `
		SELECT id, listing_id, buyer_id, amount_cents, completed
		FROM checkout_sessions WHERE id = ?
	`, sessionID).Scan(&sess.ID, &sess.ListingID, &sess.BuyerID, &sess.AmountCents, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, model.NewNotFoundError(op, "checkout session not found")
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("complete checkout: %w", err)
	}
	if completed {
		return model.Transaction{}, model.NewConflictError(op, "checkout session already completed")
	}

	var sellerID, status string
	err = dbtx.QueryRowContext(ctx, `SELECT user_id, status FROM listings WHERE id = ?`, sess.ListingID).
		Scan(&sellerID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, model.NewNotFoundError(op, "listing not found")
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("complete checkout: %w", err)
	}
	if model.ListingStatus(status) == model.StatusSold {
		return model.Transaction{}, model.NewConflictError(op, "listing is no longer available")
	}

	tx = model.Transaction{
		ID:            s.newID(),
		ListingID:     sess.ListingID,
		BuyerID:       sess.BuyerID,
		SellerID:      sellerID,
		AmountCents:   sess.AmountCents,
		Status:        model.TransactionCompleted,
		PaymentIntent: paymentIntent,
		SessionID:     sess.ID,
	}

	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO transactions
		  (id, listing_id, buyer_id, seller_id, amount_cents, status, payment_intent, session_id, created_at)
		  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			[]any{tx.ID, tx.ListingID, tx.BuyerID, tx.SellerID, tx.AmountCents, tx.Status, tx.PaymentIntent, tx.SessionID, s.timestamp()}},
		{`UPDATE listings SET status = 'sold' WHERE id = ?`, []any{tx.ListingID}},
		{`UPDATE checkout_sessions SET completed = 1 WHERE id = ?`, []any{sess.ID}},
	}
	for _, st := range stmts {
		if _, err = dbtx.ExecContext(ctx, st.query, st.args...); err != nil {
			return model.Transaction{}, fmt.Errorf("complete checkout: %w", err)
		}
	}

	if err = dbtx.Commit(); err != nil {
		return model.Transaction{}, fmt.Errorf("complete checkout: %w", err)
	}
	s.logger.Info("checkout completed", "session", sess.ID, "listing", tx.ListingID, "buyer", tx.BuyerID)
	return tx, nil
}

// Transactions returns all transactions, oldest first.
func (s *Store) Transactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, listing_id, buyer_id, seller_id, amount_cents, status, payment_intent, session_id
		FROM transactions
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.ListingID, &t.BuyerID, &t.SellerID, &t.AmountCents, &t.Status, &t.PaymentIntent, &t.SessionID); err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

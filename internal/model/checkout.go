package model

// TransactionCompleted is the status of a settled checkout.
const TransactionCompleted = "completed"

// CheckoutSession is a started checkout awaiting payment.
type CheckoutSession struct {
	ID          string `json:"id"`
	ListingID   string `json:"listing_id"`
	BuyerID     string `json:"buyer_id"`
	AmountCents int64  `json:"amount_cents"`
	Title       string `json:"title"`
	RedirectURL string `json:"redirect_url"`
}

// Transaction records a completed purchase.
type Transaction struct {
	ID            string `json:"id"`
	ListingID     string `json:"listing_id"`
	BuyerID       string `json:"buyer_id"`
	SellerID      string `json:"seller_id"`
	AmountCents   int64  `json:"amount_cents"`
	Status        string `json:"status"`
	PaymentIntent string `json:"payment_intent,omitempty"`
	SessionID     string `json:"session_id"`
}

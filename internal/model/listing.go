package model

import (
	"fmt"
	"time"
)

// ListingStatus is the lifecycle state of a listing.
type ListingStatus string

const (
	StatusActive ListingStatus = "active"
	StatusSold   ListingStatus = "sold"
)

// DefaultPageSize is the number of listings per page.
const DefaultPageSize = 20

// Listing is a summary row as shown in the feed.
// Immutable once fetched except Status, which may move from active to sold.
type Listing struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	PriceCents int64         `json:"price_cents"`
	Category   string        `json:"category"`
	Size       string        `json:"size"`
	VideoURL   string        `json:"video_url"`
	ThumbURL   string        `json:"thumb_url"`
	CreatedAt  time.Time     `json:"created_at"`
	Status     ListingStatus `json:"status"`
}

// ListingDetail is a listing joined with its seller.
type ListingDetail struct {
	Listing
	SellerID    string `json:"seller_id"`
	SellerEmail string `json:"seller_email,omitempty"`
}

// Page is one slice of a result set.
type Page struct {
	Index      int       `json:"index"`
	Items      []Listing `json:"items"`
	IsLastPage bool      `json:"is_last_page"`
}

// ListingDraft is a new listing before it is stored.
type ListingDraft struct {
	Title      string    `json:"title" validate:"required,min=3,max=100"`
	PriceCents int64     `json:"price_cents" validate:"gte=100,lte=100000"`
	Category   string    `json:"category" validate:"required,listing_category"`
	Size       string    `json:"size" validate:"required,listing_size"`
	VideoURL   string    `json:"video_url" validate:"omitempty,url"`
	ThumbURL   string    `json:"thumb_url" validate:"omitempty,url"`
	SellerID   string    `json:"seller_id" validate:"required"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListingCategories are the categories a listing may be filed under.
var ListingCategories = FeedCategories[1:]

// ListingSizes are the sizes a listing may declare.
var ListingSizes = []string{
	"XXS", "XS", "S", "M", "L", "XL", "XXL",
	"34", "36", "38", "40", "42", "44", "46", "48",
	"One Size",
}

// FormatPrice renders a price in cents as euros, e.g. "€12.50".
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s€%d.%02d", sign, cents/100, cents%100)
}

// FormatLikes renders a like count, e.g. "1 like" or "3 likes".
func FormatLikes(n int64) string {
	if n == 1 {
		return "1 like"
	}
	return fmt.Sprintf("%d likes", n)
}

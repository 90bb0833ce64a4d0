package model

// User identifies the acting user. The zero value is the unauthenticated actor.
type User struct {
	ID string `json:"id"`
}

// Anonymous is the unauthenticated actor.
var Anonymous = User{}

// Authenticated reports whether the user has an identity.
func (u User) Authenticated() bool {
	return u.ID != ""
}

// LikeState is the like status of one listing for the current user.
type LikeState struct {
	ListingID          string `json:"listing_id"`
	LikedByCurrentUser bool   `json:"liked_by_current_user"`
	TotalCount         int64  `json:"total_count"`
}

// Toggled returns the optimistic state after flipping the liked flag.
// The count never drops below zero.
func (s LikeState) Toggled() LikeState {
	next := s
	next.LikedByCurrentUser = !s.LikedByCurrentUser
	if next.LikedByCurrentUser {
		next.TotalCount++
	} else {
		next.TotalCount = max(0, s.TotalCount-1)
	}
	return next
}

package model

import "time"

// Identity is the verified caller of a request, decoded from a bearer token.
// It lives only for the duration of the request.
type Identity struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"-"`
}

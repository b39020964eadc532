package model

import "time"

// Identity is the signed-in user behind a session, if any.
type Identity struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Session struct {
	ID        string
	Identity  Identity
	ExpiresAt time.Time
}

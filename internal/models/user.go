package models

import "time"

// User represents a registered account. Passwords are kept as submitted.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"` // Never expose this to the client
	CreatedAt time.Time `json:"createdAt"`
}

package models

import "time"

// Event represents a recorded action in the activity log.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "user.register", "review.put"
	Level     string    `json:"level"` // e.g., "info", "warn"
	Message   string    `json:"message"`
	Username  *string   `json:"username,omitempty"`
	ISBN      *string   `json:"isbn,omitempty"` // Nullable for account events
	CreatedAt time.Time `json:"createdAt"`
}

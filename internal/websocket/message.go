package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Actions pushed to clients.
const (
	ActionReviewUpdated = "review_updated"
	ActionReviewDeleted = "review_deleted"
	ActionCatalogStats  = "catalog_stats"
	ActionError         = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// ReviewPayload describes a change to one user's review of a book.
type ReviewPayload struct {
	ISBN     string `json:"isbn"`
	Title    string `json:"title"`
	Username string `json:"username"`
	Review   string `json:"review,omitempty"`
}

// Encode marshals a message, logging and returning nil on failure.
func Encode(action string, payload interface{}) []byte {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket message")
		return nil
	}
	return data
}

// NewErrorMessage builds an error message for a single client.
func NewErrorMessage(text string) []byte {
	return Encode(ActionError, map[string]string{"message": text})
}

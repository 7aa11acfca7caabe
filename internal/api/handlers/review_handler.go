package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/isdelr/book-review-be/internal/auth"
	"github.com/isdelr/book-review-be/internal/services"
	ws "github.com/isdelr/book-review-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// Publisher pushes encoded messages to the watchers of a book.
type Publisher interface {
	BroadcastTo(topic string, message []byte)
}

// ReviewHandler handles the authenticated review endpoints.
type ReviewHandler struct {
	service   services.BookServiceProvider
	events    services.EventServiceProvider
	publisher Publisher
}

// NewReviewHandler creates a new ReviewHandler. publisher may be nil.
func NewReviewHandler(service services.BookServiceProvider, events services.EventServiceProvider, publisher Publisher) *ReviewHandler {
	return &ReviewHandler{service: service, events: events, publisher: publisher}
}

// ReviewPayload is the body of a review submission.
type ReviewPayload struct {
	Review string `json:"review"`
}

// ReviewResponse confirms a review change.
type ReviewResponse struct {
	Message string `json:"message"`
	Book    string `json:"book"`
	Review  string `json:"review,omitempty"`
}

// Put adds or replaces the caller's review of a book.
func (h *ReviewHandler) Put(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve username from context")
		writeMessage(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	isbn := urlParam(r, "isbn")

	var payload ReviewPayload
	decodeBody(r, &payload)
	if payload.Review == "" {
		writeMessage(w, http.StatusBadRequest, "Review content is required")
		return
	}

	book, err := h.service.PutReview(isbn, username, payload.Review)
	if errors.Is(err, services.ErrBookNotFound) {
		writeMessage(w, http.StatusNotFound, "Book not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("isbn", isbn).Str("username", username).Msg("Failed to save review")
		writeMessage(w, http.StatusInternalServerError, "Failed to save review")
		return
	}

	log.Info().Str("isbn", isbn).Str("username", username).Msg("Review saved")
	recordEvent(r.Context(), h.events, services.EventReviewPut,
		fmt.Sprintf("User '%s' reviewed '%s'.", username, book.Title), username, isbn)
	h.publish(isbn, ws.ActionReviewUpdated, ws.ReviewPayload{ISBN: isbn, Title: book.Title, Username: username, Review: payload.Review})

	writeJSON(w, http.StatusOK, ReviewResponse{
		Message: "Review added/updated successfully",
		Book:    book.Title,
		Review:  payload.Review,
	})
}

// Delete removes the caller's review of a book.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve username from context")
		writeMessage(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	isbn := urlParam(r, "isbn")

	book, err := h.service.DeleteReview(isbn, username)
	switch {
	case errors.Is(err, services.ErrBookNotFound):
		writeMessage(w, http.StatusNotFound, "Book not found")
		return
	case errors.Is(err, services.ErrReviewNotFound):
		writeMessage(w, http.StatusNotFound, "No review found for this user")
		return
	case err != nil:
		log.Error().Err(err).Str("isbn", isbn).Str("username", username).Msg("Failed to delete review")
		writeMessage(w, http.StatusInternalServerError, "Failed to delete review")
		return
	}

	log.Info().Str("isbn", isbn).Str("username", username).Msg("Review deleted")
	recordEvent(r.Context(), h.events, services.EventReviewDelete,
		fmt.Sprintf("User '%s' deleted their review of '%s'.", username, book.Title), username, isbn)
	h.publish(isbn, ws.ActionReviewDeleted, ws.ReviewPayload{ISBN: isbn, Title: book.Title, Username: username})

	writeJSON(w, http.StatusOK, ReviewResponse{
		Message: "Review deleted successfully",
		Book:    book.Title,
	})
}

func (h *ReviewHandler) publish(isbn, action string, payload ws.ReviewPayload) {
	if h.publisher == nil {
		return
	}
	h.publisher.BroadcastTo(isbn, ws.Encode(action, payload))
}

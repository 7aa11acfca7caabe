package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/isdelr/book-review-be/internal/models"
	"github.com/isdelr/book-review-be/internal/services"
	"github.com/rs/zerolog/log"
)

// Simulated lookup latencies, applied only when enabled.
const (
	CallbackDelay = 1000 * time.Millisecond
	PromiseDelay  = 800 * time.Millisecond
	LookupDelay   = 500 * time.Millisecond
)

// BookHandler handles HTTP requests for browsing the catalog.
type BookHandler struct {
	service  services.BookServiceProvider
	simulate bool
}

// NewBookHandler creates a new BookHandler. With simulateLatency set, the
// list and lookup variants wait before answering.
func NewBookHandler(service services.BookServiceProvider, simulateLatency bool) *BookHandler {
	return &BookHandler{service: service, simulate: simulateLatency}
}

// BookListResponse wraps the catalog with a message and its size.
type BookListResponse struct {
	Message    string                 `json:"message"`
	TotalBooks int                    `json:"totalBooks"`
	Books      map[string]models.Book `json:"books"`
}

// BookLookupResponse wraps a single book. ISBN is only echoed by some routes.
type BookLookupResponse struct {
	Message string      `json:"message"`
	ISBN    string      `json:"isbn,omitempty"`
	Book    models.Book `json:"book"`
}

type lookupFailure struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	ISBN    string `json:"isbn,omitempty"`
}

// GetAll returns the whole catalog keyed by ISBN.
func (h *BookHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	writeIndentedJSON(w, http.StatusOK, h.service.GetAllBooks())
}

// ListAll returns a handler serving the catalog wrapped with message. All
// /books/* routes share it and differ only in message and delay.
func (h *BookHandler) ListAll(message string, delay time.Duration) http.HandlerFunc {
	if !h.simulate {
		delay = 0
	}
	return func(w http.ResponseWriter, r *http.Request) {
		books, err := h.service.ListAllBooks(r.Context(), delay)
		if err != nil {
			log.Error().Err(err).Msg("Failed to retrieve books")
			writeJSON(w, http.StatusInternalServerError, lookupFailure{Message: "Error retrieving books", Error: err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, BookListResponse{
			Message:    message,
			TotalBooks: len(books),
			Books:      books,
		})
	}
}

// Get returns a single book by ISBN.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	isbn := urlParam(r, "isbn")
	book, err := h.service.GetBookByISBN(isbn)
	if err != nil {
		log.Warn().Err(err).Str("isbn", isbn).Msg("Failed to get book by ISBN")
		writeMessage(w, http.StatusNotFound, "Book not found")
		return
	}
	writeIndentedJSON(w, http.StatusOK, book)
}

// Lookup returns a handler serving one book wrapped with message. All ISBN
// lookup variants share it; echoISBN adds the requested ISBN to the body.
func (h *BookHandler) Lookup(message string, echoISBN bool) http.HandlerFunc {
	delay := time.Duration(0)
	if h.simulate {
		delay = LookupDelay
	}
	return func(w http.ResponseWriter, r *http.Request) {
		isbn := urlParam(r, "isbn")
		echo := ""
		if echoISBN {
			echo = isbn
		}

		book, err := h.service.LookupBook(r.Context(), isbn, delay)
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			writeJSON(w, http.StatusNotFound, lookupFailure{Message: "Book not found", ISBN: echo})
			return
		case err != nil:
			log.Error().Err(err).Str("isbn", isbn).Msg("Failed to look up book")
			writeJSON(w, http.StatusInternalServerError, lookupFailure{Message: "Error retrieving book", Error: err.Error(), ISBN: echo})
			return
		}

		writeJSON(w, http.StatusOK, BookLookupResponse{Message: message, ISBN: echo, Book: book})
	}
}

// GetByAuthor returns the books whose author matches exactly, ignoring case.
func (h *BookHandler) GetByAuthor(w http.ResponseWriter, r *http.Request) {
	books := h.service.GetBooksByAuthor(urlParam(r, "author"))
	if len(books) == 0 {
		writeMessage(w, http.StatusNotFound, "No books found for this author")
		return
	}
	writeIndentedJSON(w, http.StatusOK, books)
}

// GetByTitle returns the books whose title matches exactly, ignoring case.
func (h *BookHandler) GetByTitle(w http.ResponseWriter, r *http.Request) {
	books := h.service.GetBooksByTitle(urlParam(r, "title"))
	if len(books) == 0 {
		writeMessage(w, http.StatusNotFound, "No books found with this title")
		return
	}
	writeIndentedJSON(w, http.StatusOK, books)
}

// GetReviews returns the reviews of a book keyed by username.
func (h *BookHandler) GetReviews(w http.ResponseWriter, r *http.Request) {
	isbn := urlParam(r, "isbn")
	reviews, err := h.service.GetReviews(isbn)
	if err != nil {
		log.Warn().Err(err).Str("isbn", isbn).Msg("Failed to get reviews")
		writeMessage(w, http.StatusNotFound, "Book not found")
		return
	}
	writeIndentedJSON(w, http.StatusOK, reviews)
}

package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/isdelr/book-review-be/internal/models"
)

//go:embed data/books.json
var seedCatalog []byte

// BookServiceProvider defines the interface for catalog services.
type BookServiceProvider interface {
	GetAllBooks() map[string]models.Book
	ListAllBooks(ctx context.Context, delay time.Duration) (map[string]models.Book, error)
	GetBookByISBN(isbn string) (models.Book, error)
	LookupBook(ctx context.Context, isbn string, delay time.Duration) (models.Book, error)
	GetBooksByAuthor(author string) []models.Book
	GetBooksByTitle(title string) []models.Book
	GetReviews(isbn string) (map[string]string, error)
	PutReview(isbn, username, review string) (models.Book, error)
	DeleteReview(isbn, username string) (models.Book, error)
	Stats() CatalogStats
}

// CatalogStats summarises the catalog contents.
type CatalogStats struct {
	Books   int `json:"books"`
	Reviews int `json:"reviews"`
}

// BookService is the in-memory book catalog. The set of ISBNs is fixed when
// the service is built; only reviews change afterwards.
type BookService struct {
	mu    sync.RWMutex
	books map[string]*models.Book
}

// NewBookService creates a catalog from the given books. Later duplicates of
// an ISBN replace earlier ones.
func NewBookService(books []models.Book) *BookService {
	s := &BookService{books: make(map[string]*models.Book, len(books))}
	for _, b := range books {
		b := b.Clone()
		s.books[b.ISBN] = &b
	}
	return s
}

// LoadCatalog reads a catalog file keyed by ISBN. An empty path loads the
// embedded seed catalog.
func LoadCatalog(path string) ([]models.Book, error) {
	data := seedCatalog
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
		data = raw
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) ([]models.Book, error) {
	var entries map[string]models.Book
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	books := make([]models.Book, 0, len(entries))
	for isbn, b := range entries {
		b.ISBN = isbn
		books = append(books, b)
	}
	sortBooks(books)
	return books, nil
}

// GetAllBooks returns a snapshot of the full catalog keyed by ISBN.
func (s *BookService) GetAllBooks() map[string]models.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Book, len(s.books))
	for isbn, b := range s.books {
		out[isbn] = b.Clone()
	}
	return out
}

// ListAllBooks waits for the given delay and then returns the full catalog.
func (s *BookService) ListAllBooks(ctx context.Context, delay time.Duration) (map[string]models.Book, error) {
	if err := wait(ctx, delay); err != nil {
		return nil, fmt.Errorf("listing books interrupted: %w", err)
	}
	return s.GetAllBooks(), nil
}

// GetBookByISBN retrieves a single book.
func (s *BookService) GetBookByISBN(isbn string) (models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[isbn]
	if !ok {
		return models.Book{}, fmt.Errorf("isbn %s: %w", isbn, ErrBookNotFound)
	}
	return b.Clone(), nil
}

// LookupBook waits for the given delay and then retrieves a single book.
func (s *BookService) LookupBook(ctx context.Context, isbn string, delay time.Duration) (models.Book, error) {
	if err := wait(ctx, delay); err != nil {
		return models.Book{}, fmt.Errorf("lookup of isbn %s interrupted: %w", isbn, err)
	}
	return s.GetBookByISBN(isbn)
}

// GetBooksByAuthor returns every book whose author matches case-insensitively.
func (s *BookService) GetBooksByAuthor(author string) []models.Book {
	return s.filter(func(b *models.Book) bool { return strings.EqualFold(b.Author, author) })
}

// GetBooksByTitle returns every book whose title matches case-insensitively.
func (s *BookService) GetBooksByTitle(title string) []models.Book {
	return s.filter(func(b *models.Book) bool { return strings.EqualFold(b.Title, title) })
}

func (s *BookService) filter(match func(*models.Book) bool) []models.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Book
	for _, b := range s.books {
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	sortBooks(out)
	return out
}

// GetReviews returns the reviews of a book keyed by username.
func (s *BookService) GetReviews(isbn string) (map[string]string, error) {
	b, err := s.GetBookByISBN(isbn)
	if err != nil {
		return nil, err
	}
	return b.Reviews, nil
}

// PutReview creates or replaces the user's review of a book.
func (s *BookService) PutReview(isbn, username, review string) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[isbn]
	if !ok {
		return models.Book{}, fmt.Errorf("isbn %s: %w", isbn, ErrBookNotFound)
	}
	if b.Reviews == nil {
		b.Reviews = make(map[string]string)
	}
	b.Reviews[username] = review
	return b.Clone(), nil
}

// DeleteReview removes the user's review of a book.
func (s *BookService) DeleteReview(isbn, username string) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[isbn]
	if !ok {
		return models.Book{}, fmt.Errorf("isbn %s: %w", isbn, ErrBookNotFound)
	}
	if _, ok := b.Reviews[username]; !ok {
		return models.Book{}, fmt.Errorf("isbn %s, user %s: %w", isbn, username, ErrReviewNotFound)
	}
	delete(b.Reviews, username)
	return b.Clone(), nil
}

// Stats counts books and reviews.
func (s *BookService) Stats() CatalogStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := CatalogStats{Books: len(s.books)}
	for _, b := range s.books {
		stats.Reviews += len(b.Reviews)
	}
	return stats
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// sortBooks orders books by ISBN, shorter numeric keys first so "2" precedes "10".
func sortBooks(books []models.Book) {
	sort.Slice(books, func(i, j int) bool {
		a, b := books[i].ISBN, books[j].ISBN
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}

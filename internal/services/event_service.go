package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/book-review-be/internal/models"
)

// Event types recorded by the handlers.
const (
	EventUserRegister = "user.register"
	EventUserLogin    = "user.login"
	EventReviewPut    = "review.put"
	EventReviewDelete = "review.delete"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, username, isbn *string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// EventService provides business logic for the activity log.
type EventService struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db, now: time.Now}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, username, isbn *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		Username:  username,
		ISBN:      isbn,
		CreatedAt: s.now().UTC(),
	}

	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO events (id, type, level, message, username, isbn, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, event.ID, event.Type, event.Level, event.Message, event.Username, event.ISBN, event.CreatedAt.UnixNano())
	return err
}

// GetRecentEvents retrieves the most recent events from the database, newest first.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, type, level, message, username, isbn, created_at FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var (
			event    models.Event
			username sql.NullString
			isbn     sql.NullString
			created  int64
		)
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &username, &isbn, &created); err != nil {
			return nil, err
		}
		if username.Valid {
			event.Username = &username.String
		}
		if isbn.Valid {
			event.ISBN = &isbn.String
		}
		event.CreatedAt = time.Unix(0, created).UTC()
		events = append(events, event)
	}
	return events, rows.Err()
}

package monitoring

import (
	"context"
	"fmt"

	"github.com/isdelr/book-review-be/internal/services"
	"github.com/isdelr/book-review-be/internal/websocket"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// SessionPurger drops expired sessions.
type SessionPurger interface {
	PurgeExpired() int
	Len() int
}

// Broadcaster pushes a message to every live client.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Stats is the periodic catalog summary pushed to websocket clients.
type Stats struct {
	services.CatalogStats
	Users    int `json:"users"`
	Sessions int `json:"sessions"`
}

// Scheduler runs the periodic housekeeping jobs.
type Scheduler struct {
	cron        *cron.Cron
	sessions    SessionPurger
	books       services.BookServiceProvider
	users       services.UserServiceProvider
	broadcaster Broadcaster
}

// NewScheduler creates a scheduler. Jobs are registered by Start.
func NewScheduler(sessions SessionPurger, books services.BookServiceProvider, users services.UserServiceProvider, broadcaster Broadcaster) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		sessions:    sessions,
		books:       books,
		users:       users,
		broadcaster: broadcaster,
	}
}

// Start registers the session sweep and stats jobs on their cron specs and
// starts running them in the background.
func (s *Scheduler) Start(sweepSpec, statsSpec string) error {
	if _, err := s.cron.AddFunc(sweepSpec, s.sweepSessions); err != nil {
		return fmt.Errorf("invalid session sweep schedule %q: %w", sweepSpec, err)
	}
	if _, err := s.cron.AddFunc(statsSpec, s.publishStats); err != nil {
		return fmt.Errorf("invalid stats schedule %q: %w", statsSpec, err)
	}

	log.Info().Str("sweep", sweepSpec).Str("stats", statsSpec).Msg("Starting background scheduler")
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		log.Info().Msg("Background scheduler stopped")
	case <-ctx.Done():
		log.Warn().Msg("Background scheduler did not stop in time")
	}
}

func (s *Scheduler) sweepSessions() {
	if removed := s.sessions.PurgeExpired(); removed > 0 {
		log.Info().Int("removed", removed).Int("remaining", s.sessions.Len()).Msg("Purged expired sessions")
	}
}

// CurrentStats summarises catalog, registry and session counts.
func (s *Scheduler) CurrentStats() Stats {
	return Stats{
		CatalogStats: s.books.Stats(),
		Users:        s.users.CountUsers(),
		Sessions:     s.sessions.Len(),
	}
}

func (s *Scheduler) publishStats() {
	stats := s.CurrentStats()
	log.Debug().Int("books", stats.Books).Int("reviews", stats.Reviews).Int("users", stats.Users).Msg("Publishing catalog stats")
	s.broadcaster.Broadcast(websocket.Encode(websocket.ActionCatalogStats, stats))
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/book-review-be/internal/api"
	"github.com/isdelr/book-review-be/internal/auth"
	"github.com/isdelr/book-review-be/internal/config"
	"github.com/isdelr/book-review-be/internal/database"
	"github.com/isdelr/book-review-be/internal/logger"
	"github.com/isdelr/book-review-be/internal/monitoring"
	"github.com/isdelr/book-review-be/internal/services"
	"github.com/isdelr/book-review-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	// Set up the activity log database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Load the catalog; its ISBNs are fixed from here on
	books, err := services.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("Failed to load catalog")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	bookService := services.NewBookService(books)
	userService := services.NewUserService()
	eventService := services.NewEventService(db)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	sessions := auth.NewSessionStore()

	// Set up and run the background scheduler
	scheduler := monitoring.NewScheduler(sessions, bookService, userService, hub)
	if err := scheduler.Start(cfg.SessionSweepSpec, cfg.StatsSpec); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Books:            bookService,
		Users:            userService,
		Events:           eventService,
		Tokens:           tokens,
		Sessions:         sessions,
		Hub:              hub,
		AllowedOrigins:   cfg.AllowedOrigins,
		SimulatedLatency: cfg.SimulatedLatency,
		SecureCookies:    cfg.Production,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Int("books", len(books)).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	scheduler.Stop(ctx)

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}

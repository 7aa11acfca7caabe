package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/book-review-be/internal/api/handlers"
	"github.com/isdelr/book-review-be/internal/auth"
	"github.com/isdelr/book-review-be/internal/services"
	"github.com/isdelr/book-review-be/internal/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Dependencies are the long-lived components the handlers are built from.
type Dependencies struct {
	Books    services.BookServiceProvider
	Users    services.UserServiceProvider
	Events   services.EventServiceProvider
	Tokens   *auth.TokenManager
	Sessions *auth.SessionStore
	Hub      *websocket.Hub

	AllowedOrigins   []string
	SimulatedLatency bool
	SecureCookies    bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Initialize handlers
	bookHandler := handlers.NewBookHandler(deps.Books, deps.SimulatedLatency)
	userHandler := handlers.NewUserHandler(deps.Users, deps.Events, deps.Tokens, deps.Sessions, deps.SecureCookies)
	reviewHandler := handlers.NewReviewHandler(deps.Books, deps.Events, deps.Hub)
	eventHandler := handlers.NewEventHandler(deps.Events)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Books, deps.AllowedOrigins)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public catalog routes
	r.Post("/register", userHandler.Register)
	r.Get("/", bookHandler.GetAll)
	r.Route("/books", func(r chi.Router) {
		r.Get("/async", bookHandler.ListAll("Books retrieved successfully using async callback", handlers.CallbackDelay))
		r.Get("/promise", bookHandler.ListAll("Books retrieved successfully using Promise", handlers.PromiseDelay))
		r.Get("/await", bookHandler.ListAll("Books retrieved successfully using async/await", handlers.PromiseDelay))
	})
	r.Route("/isbn", func(r chi.Router) {
		r.Get("/{isbn}", bookHandler.Get)
		r.Get("/promise/{isbn}", bookHandler.Lookup("Book retrieved successfully using Promise", false))
		r.Get("/await/{isbn}", bookHandler.Lookup("Book retrieved successfully using async/await", false))
	})
	r.Get("/isbn-promise/{isbn}", bookHandler.Lookup("Book retrieved successfully using Promise", true))
	r.Get("/isbn-async/{isbn}", bookHandler.Lookup("Book retrieved successfully using async/await", true))
	r.Get("/author/{author}", bookHandler.GetByAuthor)
	r.Get("/title/{title}", bookHandler.GetByTitle)
	r.Get("/review/{isbn}", bookHandler.GetReviews)

	// Activity log and live feed
	r.Get("/events", eventHandler.GetRecent)
	r.Get("/ws", wsHandler.Serve)
	r.Get("/ws/books/{isbn}", wsHandler.Serve)

	// Customer routes are served both at the root and under /customer.
	customer := func(r chi.Router) {
		r.Post("/login", userHandler.Login)
		r.Group(func(r chi.Router) {
			r.Use(auth.JWTMiddleware(deps.Tokens, deps.Sessions))
			r.Put("/auth/review/{isbn}", reviewHandler.Put)
			r.Delete("/auth/review/{isbn}", reviewHandler.Delete)
		})
	}
	customer(r)
	r.Route("/customer", customer)

	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Request handled")
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"message":"` + message + `"}`))
}

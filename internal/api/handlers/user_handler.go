package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/isdelr/book-review-be/internal/auth"
	"github.com/isdelr/book-review-be/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles registration and login.
type UserHandler struct {
	service       services.UserServiceProvider
	events        services.EventServiceProvider
	tokens        *auth.TokenManager
	sessions      *auth.SessionStore
	secureCookies bool
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, events services.EventServiceProvider, tokens *auth.TokenManager, sessions *auth.SessionStore, secureCookies bool) *UserHandler {
	return &UserHandler{
		service:       service,
		events:        events,
		tokens:        tokens,
		sessions:      sessions,
		secureCookies: secureCookies,
	}
}

// CredentialsPayload defines the structure for registration and login requests.
type CredentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// validate reports the first missing field.
func (p CredentialsPayload) validate() (string, bool) {
	if p.Username == "" {
		return "Username is required", false
	}
	if p.Password == "" {
		return "Password is required", false
	}
	return "", true
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload CredentialsPayload
	decodeBody(r, &payload)
	if msg, ok := payload.validate(); !ok {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	user, err := h.service.CreateUser(payload.Username, payload.Password)
	if errors.Is(err, services.ErrUserExists) {
		writeMessage(w, http.StatusConflict, "Username already exists")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("username", payload.Username).Msg("Failed to register user")
		writeMessage(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	log.Info().Str("username", user.Username).Str("user_id", user.ID).Msg("User registered")
	recordEvent(r.Context(), h.events, services.EventUserRegister,
		fmt.Sprintf("User '%s' registered.", user.Username), user.Username, "")

	writeMessage(w, http.StatusCreated, "User registered successfully")
}

// Login checks credentials, issues a token and records it in the client's session.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload CredentialsPayload
	decodeBody(r, &payload)
	if msg, ok := payload.validate(); !ok {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	user, err := h.service.Login(payload.Username, payload.Password)
	switch {
	case errors.Is(err, services.ErrInvalidUsername):
		log.Warn().Str("username", payload.Username).Msg("Login with unknown username")
		writeMessage(w, http.StatusUnauthorized, "Invalid username")
		return
	case errors.Is(err, services.ErrInvalidPassword):
		log.Warn().Str("username", payload.Username).Msg("Login with wrong password")
		writeMessage(w, http.StatusUnauthorized, "Invalid password")
		return
	case err != nil:
		log.Error().Err(err).Str("username", payload.Username).Msg("Failed to authenticate user")
		writeMessage(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	token, expiresAt, err := h.tokens.GenerateJWT(user.Username)
	if err != nil {
		log.Error().Err(err).Str("username", user.Username).Msg("Failed to generate JWT")
		writeMessage(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	sessionID := h.sessions.Create(auth.Session{Token: token, Username: user.Username, ExpiresAt: expiresAt})
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    sessionID,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	recordEvent(r.Context(), h.events, services.EventUserLogin,
		fmt.Sprintf("User '%s' logged in.", user.Username), user.Username, "")

	writeJSON(w, http.StatusOK, LoginResponse{Message: "User successfully logged in", Token: token})
}

// recordEvent writes to the activity log. Failures are logged and otherwise ignored.
func recordEvent(ctx context.Context, events services.EventServiceProvider, eventType, message, username, isbn string) {
	if events == nil {
		return
	}
	var userPtr, isbnPtr *string
	if username != "" {
		userPtr = &username
	}
	if isbn != "" {
		isbnPtr = &isbn
	}
	if err := events.CreateEvent(ctx, eventType, "info", message, userPtr, isbnPtr); err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("Failed to record event")
	}
}

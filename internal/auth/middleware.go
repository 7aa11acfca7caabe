package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type contextKey string

// UsernameKey is the context key for the authenticated username.
const UsernameKey = contextKey("username")

// WithUsername returns a copy of ctx carrying the authenticated username.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UsernameKey, username)
}

// UsernameFromContext returns the username set by JWTMiddleware.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok && username != ""
}

// JWTMiddleware creates a middleware for protecting routes. The token is taken
// from a bearer Authorization header, or else from the token stored in the
// client's session.
func JWTMiddleware(tokens *TokenManager, sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, found := bearerToken(r)

			if !found {
				if cookie, err := r.Cookie(SessionCookieName); err == nil {
					if session, ok := sessions.Get(cookie.Value); ok {
						tokenStr, found = session.Token, true
					}
				}
			}

			if !found {
				unauthorized(w, "User not logged in")
				return
			}

			claims, err := tokens.ValidateJWT(tokenStr)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected auth token")
				unauthorized(w, "User not authenticated")
				return
			}

			ctx := WithUsername(r.Context(), claims.Data)
			log.Debug().Str("username", claims.Data).Msg("Authenticated user")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reports found=true whenever an Authorization header is present,
// so a malformed header is rejected rather than silently ignored.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", true
	}
	return strings.TrimSpace(token), true
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

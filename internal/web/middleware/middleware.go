package middleware

import (
	"context"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/anshuman365/gofusion/internal/auth"
	"github.com/anshuman365/gofusion/internal/cache"
)

type contextKey string

const (
	// UserContextKey is the context key for the authenticated user
	UserContextKey contextKey = "user"
	// SessionContextKey is the context key for the session
	SessionContextKey contextKey = "session"

	// SessionCookie is the name of the session token cookie.
	SessionCookie = "session"

	// sessionCacheTTL bounds how long a validated session is served from
	// cache before hitting the database again.
	sessionCacheTTL = time.Minute
)

// Logger is a middleware that logs requests
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Msg("Request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// SessionAuth checks for a valid session cookie, consulting the session
// cache before the database. Requests without a live session get 401.
func SessionAuth(authService *auth.Service, sessions *cache.Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			session := cachedSession(sessions, cookie.Value)
			if session == nil {
				session, err = authService.ValidateSession(r.Context(), cookie.Value)
				if err != nil {
					log.Error().Err(err).Msg("Failed to validate session")
					http.Error(w, "Internal server error", http.StatusInternalServerError)
					return
				}
				if session == nil {
					clearCookie(w)
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				sessions.Set(cookie.Value, session, sessionCacheTTL)
			}

			user, err := authService.GetUserByID(r.Context(), session.UserID)
			if err != nil || user == nil {
				clearCookie(w)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Extend session on activity
			if err := authService.ExtendSession(r.Context(), session.Token); err != nil {
				log.Error().Err(err).Msg("Failed to extend session")
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			ctx = context.WithValue(ctx, SessionContextKey, session)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func cachedSession(sessions *cache.Cache, token string) *auth.Session {
	v, ok := sessions.Get(token)
	if !ok {
		return nil
	}
	session, ok := v.(*auth.Session)
	if !ok || time.Now().After(session.ExpiresAt) {
		sessions.Delete(token)
		return nil
	}
	return session
}

func clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// GetUser retrieves the user from context
func GetUser(ctx context.Context) *auth.User {
	user, ok := ctx.Value(UserContextKey).(*auth.User)
	if !ok {
		return nil
	}
	return user
}

// GetSession retrieves the session from context
func GetSession(ctx context.Context) *auth.Session {
	session, ok := ctx.Value(SessionContextKey).(*auth.Session)
	if !ok {
		return nil
	}
	return session
}

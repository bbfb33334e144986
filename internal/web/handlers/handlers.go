// Package handlers implements the HTTP API surface. Handlers stay thin: all
// persistence goes through the database manager contract.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/anshuman365/gofusion/internal/auth"
	"github.com/anshuman365/gofusion/internal/cache"
	"github.com/anshuman365/gofusion/internal/database"
	"github.com/anshuman365/gofusion/internal/web/middleware"
)

// Handlers carries the dependencies shared by all HTTP handlers.
type Handlers struct {
	db       *database.DB
	auth     *auth.Service
	sessions *cache.Cache
}

// New creates the handler set.
func New(db *database.DB, authService *auth.Service, sessions *cache.Cache) *Handlers {
	return &Handlers{db: db, auth: authService, sessions: sessions}
}

// Health reports liveness, including a round trip to the database.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.db.FetchOne(r.Context(), "SELECT 1 AS ok"); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login authenticates a user and opens a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.auth.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		log.Error().Err(err).Msg("Login failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	session, err := h.auth.CreateSession(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.audit(r, "user.login", user.ID, "")

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"username":   user.Username,
		"email":      user.Email,
		"expires_at": session.ExpiresAt,
	})
}

// Logout closes the current session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	user := middleware.GetUser(r.Context())

	if session != nil {
		if err := h.auth.DeleteSession(r.Context(), session.Token); err != nil {
			log.Error().Err(err).Msg("Failed to delete session")
		}
		h.sessions.Delete(session.Token)
	}
	if user != nil {
		h.audit(r, "user.logout", user.ID, "")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the authenticated user.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"is_active": user.IsActive,
	})
}

// GetKV reads one app_data key.
func (h *Handlers) GetKV(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	value, err := h.db.GetAppData(r.Context(), key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to get app data")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if value == "" {
		writeError(w, http.StatusNotFound, "key not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

// PutKV stores one app_data key.
func (h *Handlers) PutKV(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req struct {
		Value    string `json:"value"`
		DataType string `json:"data_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.db.SetAppData(r.Context(), key, req.Value, req.DataType); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to set app data")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": req.Value})
}

// DeleteKV removes one app_data key.
func (h *Handlers) DeleteKV(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := h.db.DeleteAppData(r.Context(), key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to delete app data")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// RecentAudit returns the newest audit entries.
func (h *Handlers) RecentAudit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.db.RecentAudit(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch audit log")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"id":         e.ID,
			"action":     e.Action,
			"user_id":    e.UserID,
			"details":    e.Details,
			"ip_address": e.IPAddress,
			"user_agent": e.UserAgent,
			"created_at": e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) audit(r *http.Request, action string, userID int64, details string) {
	err := h.db.RecordAudit(r.Context(), database.AuditEntry{
		Action:    action,
		UserID:    userID,
		Details:   details,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to record audit entry")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gooleh/Hotel-Management-App/internal/models"
	"github.com/gooleh/Hotel-Management-App/internal/store"
)

// BearerToken extracts the session id from an Authorization header.
func BearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

// SessionIDFromRequest accepts either a bearer token or a session_id query
// parameter; the realtime endpoint cannot always set headers.
func SessionIDFromRequest(r *http.Request) string {
	if token := BearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("session_id"))
}

func (h *Handler) authenticate(r *http.Request) (models.Session, error) {
	sessionID := SessionIDFromRequest(r)
	if sessionID == "" {
		return models.Session{}, store.ErrSessionNotFound
	}
	session, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		return models.Session{}, err
	}
	if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(time.Now().UTC()) {
		return models.Session{}, store.ErrSessionNotFound
	}
	return session, nil
}

func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	session, err := h.authenticate(r)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "valid session required")
		} else {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}
		return models.Session{}, false
	}
	return session, true
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	session, ok := h.requireSession(w, r)
	if !ok {
		return models.Session{}, false
	}
	if session.Department != models.DeptAdmin {
		writeError(w, http.StatusForbidden, "access_denied", "admin session required")
		return models.Session{}, false
	}
	return session, true
}

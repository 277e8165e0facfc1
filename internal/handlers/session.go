package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/HammerMeetNail/pairup/internal/models"
	"github.com/HammerMeetNail/pairup/internal/services"
)

const SessionCookieName = "session_token"

// SessionTokenFromRequest reads the session token from the session cookie or
// an "Authorization: Bearer" header, in that order.
func SessionTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// SessionHandler exposes the caller's session. Sessions are issued by the
// account service; this API only reads and revokes them.
type SessionHandler struct {
	sessionService services.SessionServiceInterface
	secure         bool
}

func NewSessionHandler(sessionService services.SessionServiceInterface, secure bool) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, secure: secure}
}

type SessionResponse struct {
	User    *models.User `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{User: user})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := SessionTokenFromRequest(r); token != "" {
		if err := h.sessionService.DeleteSession(r.Context(), token); err != nil {
			writeInternalError(w, r, "deleting session", err)
			return
		}
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, SessionResponse{Message: "Logged out successfully"})
}

func (h *SessionHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
	})
}

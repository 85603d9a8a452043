package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/quoteboard/internal/auth"
	"github.com/dukerupert/quoteboard/internal/middleware"
)

type AuthHandler struct {
	tokens   *auth.Service
	sessions *auth.Sessions
	logger   *slog.Logger
}

func NewAuthHandler(tokens *auth.Service, sessions *auth.Sessions, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, sessions: sessions, logger: logger}
}

// Redeem exchanges a one-time token from the URL for a session cookie and
// sends the browser to the rating page.
func (h *AuthHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := h.tokens.ValidateToken(r.Context(), r.PathValue("token"))
	if err != nil {
		if errors.Is(err, auth.ErrAuthFailed) {
			h.logger.Warn("token rejected", "reason", err, "remote", middleware.RealIP(r))
		} else {
			h.logger.Error("validate token", "error", err)
		}
		writeErr(w, err)
		return
	}

	session, err := h.sessions.Issue(id)
	if err != nil {
		h.logger.Error("issue session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    session,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	h.logger.Info("session started", "subject_id", id.SubjectID)
	http.Redirect(w, r, "/rate", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, id)
}

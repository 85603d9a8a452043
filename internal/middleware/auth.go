package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/quoteboard/internal/auth"
)

// RequireSession verifies the signed session cookie and puts the identity in
// the request context. Anything else gets a JSON 401.
func RequireSession(sessions *auth.Sessions, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			id, err := sessions.Parse(cookie.Value)
			if err != nil {
				logger.Debug("rejected session cookie", "error", err, "remote", RealIP(r))
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "authentication required")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

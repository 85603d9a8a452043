package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/quoteboard/internal/auth"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireSessionNoCookie(t *testing.T) {
	sessions := auth.NewSessions([]byte("0123456789abcdef"), time.Hour)
	handler := RequireSession(sessions, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestRequireSessionInvalidCookie(t *testing.T) {
	sessions := auth.NewSessions([]byte("0123456789abcdef"), time.Hour)
	handler := RequireSession(sessions, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "invalid-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireSessionForeignSecret(t *testing.T) {
	forged, err := auth.NewSessions([]byte("attacker-secret!"), time.Hour).Issue(auth.Identity{SubjectID: 1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	sessions := auth.NewSessions([]byte("0123456789abcdef"), time.Hour)
	handler := RequireSession(sessions, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: forged})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireSessionValid(t *testing.T) {
	sessions := auth.NewSessions([]byte("0123456789abcdef"), time.Hour)
	tok, err := sessions.Issue(auth.Identity{SubjectID: 77, DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var got auth.Identity
	handler := RequireSession(sessions, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected Identity in request context")
		}
		got = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: tok})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.SubjectID != 77 {
		t.Errorf("SubjectID = %d, want 77", got.SubjectID)
	}
	if got.DisplayName != "Alice" {
		t.Errorf("DisplayName = %q, want %q", got.DisplayName, "Alice")
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dukerupert/quoteboard/internal/auth"
	"github.com/dukerupert/quoteboard/internal/catalog"
	"github.com/dukerupert/quoteboard/internal/moderation"
	"github.com/dukerupert/quoteboard/internal/rating"
)

const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a single JSON object from a size-limited body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// statusFor maps workflow errors to HTTP status codes. Token failures are
// all 401 so callers cannot tell them apart.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrAuthFailed):
		return http.StatusUnauthorized
	case errors.Is(err, moderation.ErrCandidateNotFound),
		errors.Is(err, catalog.ErrQuoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, rating.ErrInvalidScore),
		errors.Is(err, moderation.ErrInvalidMessageID),
		errors.Is(err, moderation.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, rating.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		writeError(w, status, "internal error")
	case http.StatusUnauthorized:
		writeError(w, status, "authentication failed")
	default:
		writeError(w, status, err.Error())
	}
}

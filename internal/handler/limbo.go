package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/quoteboard/internal/auth"
	"github.com/dukerupert/quoteboard/internal/model"
	"github.com/dukerupert/quoteboard/internal/moderation"
)

const defaultLimboLimit = 1

type LimboHandler struct {
	moderation *moderation.Service
	logger     *slog.Logger
}

func NewLimboHandler(m *moderation.Service, logger *slog.Logger) *LimboHandler {
	return &LimboHandler{moderation: m, logger: logger}
}

func (h *LimboHandler) Next(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimboLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	candidates, err := h.moderation.Next(r.Context(), limit)
	if err != nil {
		h.logger.Error("list limbo", "error", err)
		writeErr(w, err)
		return
	}
	if candidates == nil {
		candidates = []model.Candidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

type decisionRequest struct {
	Action string `json:"action"`
}

func (h *LimboHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	action, err := moderation.ParseAction(req.Action)
	if err != nil {
		writeErr(w, err)
		return
	}

	id := r.PathValue("id")
	if err := h.moderation.Decide(r.Context(), id, action); err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("decide candidate", "message_id", id, "error", err)
		}
		writeErr(w, err)
		return
	}

	h.logger.Info("moderation decision", "message_id", id, "action", action, "moderator", auth.SubjectID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

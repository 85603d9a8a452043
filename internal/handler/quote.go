package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/quoteboard/internal/auth"
	"github.com/dukerupert/quoteboard/internal/catalog"
	"github.com/dukerupert/quoteboard/internal/model"
	"github.com/dukerupert/quoteboard/internal/rating"
)

type QuoteHandler struct {
	catalog *catalog.Service
	ratings *rating.Service
	logger  *slog.Logger
}

func NewQuoteHandler(c *catalog.Service, rs *rating.Service, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{catalog: c, ratings: rs, logger: logger}
}

func quoteID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

func (h *QuoteHandler) Random(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]*model.Quote{"quote": h.catalog.Random(r.Context())})
}

func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.catalog.List(r.Context())
	if err != nil {
		h.logger.Error("list quotes", "error", err)
		writeErr(w, err)
		return
	}
	if quotes == nil {
		quotes = []model.Quote{}
	}
	writeJSON(w, http.StatusOK, quotes)
}

type quoteDetail struct {
	Quote    *model.Quote   `json:"quote"`
	Ratings  rating.Summary `json:"ratings"`
	MaxScore int            `json:"max_score"`
}

func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := quoteID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid quote id")
		return
	}

	q, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("get quote", "id", id, "error", err)
		}
		writeErr(w, err)
		return
	}

	summary, err := h.ratings.Summary(r.Context(), id)
	if err != nil {
		h.logger.Error("rating summary", "id", id, "error", err)
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteDetail{Quote: q, Ratings: summary, MaxScore: h.ratings.MaxScore()})
}

type ratingRequest struct {
	Score int `json:"score"`
}

func (h *QuoteHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id, ok := quoteID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid quote id")
		return
	}

	var req ratingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	rater := auth.SubjectID(r.Context())
	if err := h.ratings.Submit(r.Context(), id, rater, req.Score); err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("submit rating", "id", id, "rater", rater, "error", err)
		}
		writeErr(w, err)
		return
	}

	summary, err := h.ratings.Summary(r.Context(), id)
	if err != nil {
		h.logger.Error("rating summary", "id", id, "error", err)
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

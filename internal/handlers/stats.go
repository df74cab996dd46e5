package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	logging "github.com/sagoresarker/edge-speed-compare/internal/logger"
)

const statsTimeout = 2 * time.Second

type Counter interface {
	Get(ctx context.Context) (int64, error)
	Increment(ctx context.Context, amount int64) (int64, error)
}

type StatsHandler struct {
	counter Counter
	logger  *slog.Logger
}

func NewStatsHandler(counter Counter, logger *slog.Logger) *StatsHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &StatsHandler{counter: counter, logger: logger}
}

// Get serves GET /api/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), statsTimeout)
	defer cancel()

	v, err := h.counter.Get(ctx)
	if err != nil {
		h.logger.Error("read counter", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch global stats")
		return
	}
	writeData(w, v)
}

// Increment serves POST /api/stats/increment.
func (h *StatsHandler) Increment(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), statsTimeout)
	defer cancel()

	v, err := h.counter.Increment(ctx, 1)
	if err != nil {
		h.logger.Error("increment counter", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to increment stats")
		return
	}
	writeData(w, v)
}

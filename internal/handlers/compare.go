package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sagoresarker/edge-speed-compare/internal/metadata"
	"github.com/sagoresarker/edge-speed-compare/internal/models"
	"github.com/sagoresarker/edge-speed-compare/internal/ratelimit"
	"github.com/sagoresarker/edge-speed-compare/internal/utils"
)

type Comparer interface {
	Compare(ctx context.Context, edgeTarget, originTarget string) models.ComparisonResult
}

type CompareHandler struct {
	comparer    Comparer
	rateLimiter *ratelimit.RateLimiter
	trustProxy  bool
}

// NewCompareHandler rate limits callers by remote address, or by
// X-Forwarded-For when trustProxy is set.
func NewCompareHandler(comparer Comparer, rateLimiter *ratelimit.RateLimiter, trustProxy bool) *CompareHandler {
	return &CompareHandler{comparer: comparer, rateLimiter: rateLimiter, trustProxy: trustProxy}
}

// Handle serves GET /api/compare?edge=<target>&origin=<target>. Omitted
// targets use the comparer's defaults.
func (h *CompareHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	if h.rateLimiter != nil {
		if err := h.rateLimiter.Allow(utils.ClientIP(r, h.trustProxy)); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimited) {
				writeError(w, http.StatusTooManyRequests, err.Error())
				return
			}
		}
	}

	edge := r.URL.Query().Get("edge")
	origin := r.URL.Query().Get("origin")
	for _, target := range []string{edge, origin} {
		if target == "" {
			continue
		}
		if _, err := metadata.ParseTarget(target); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid URL")
			return
		}
	}

	writeData(w, h.comparer.Compare(r.Context(), edge, origin))
}

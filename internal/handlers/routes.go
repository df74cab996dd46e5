package handlers

import (
	"log/slog"
	"net/http"

	"github.com/sagoresarker/edge-speed-compare/internal/metrics"
	"github.com/sagoresarker/edge-speed-compare/internal/ratelimit"
)

type Deps struct {
	Resolver    MetadataResolver
	Counter     Counter
	Comparer    Comparer
	RateLimiter *ratelimit.RateLimiter
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	// TrustProxy keys rate limiting on X-Forwarded-For.
	TrustProxy bool
}

// NewMux wires every route of the service.
func NewMux(d Deps) *http.ServeMux {
	healthHandler := NewHealthHandler()
	metadataHandler := NewMetadataHandler(d.Resolver)
	statsHandler := NewStatsHandler(d.Counter, d.Logger)
	compareHandler := NewCompareHandler(d.Comparer, d.RateLimiter, d.TrustProxy)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler.Handle)
	mux.HandleFunc("/api/metadata", d.Metrics.Instrument("/api/metadata", EnableCORS(metadataHandler.Handle)))
	mux.HandleFunc("/api/stats", d.Metrics.Instrument("/api/stats", EnableCORS(statsHandler.Get)))
	mux.HandleFunc("/api/stats/increment", d.Metrics.Instrument("/api/stats/increment", EnableCORS(statsHandler.Increment)))
	mux.HandleFunc("/api/compare", d.Metrics.Instrument("/api/compare", EnableCORS(compareHandler.Handle)))
	mux.Handle("/metrics", d.Metrics.Handler())
	return mux
}

package probe

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	logging "github.com/sagoresarker/edge-speed-compare/internal/logger"
	"github.com/sagoresarker/edge-speed-compare/internal/metrics"
	"github.com/sagoresarker/edge-speed-compare/internal/models"
)

const (
	DefaultEdgeTarget   = "https://www.cloudflare.com"
	DefaultOriginTarget = "https://www.google.com"

	EdgeLabel   = "Edge Network"
	OriginLabel = "Origin Server"

	DefaultNotifyTimeout = 2 * time.Second

	minSpeedup = 0.1
)

// TargetProber is satisfied by *Prober.
type TargetProber interface {
	Probe(ctx context.Context, target, label string) models.Measurement
}

// RunCounter is notified once per finished comparison.
type RunCounter interface {
	Increment(ctx context.Context, amount int64) (int64, error)
}

type CompareConfig struct {
	DefaultEdgeTarget   string
	DefaultOriginTarget string
	// NotifyTimeout bounds the run counter notification.
	NotifyTimeout time.Duration
}

type Comparer struct {
	prober  TargetProber
	counter RunCounter
	metrics *metrics.Metrics
	cfg     CompareConfig
	logger  *slog.Logger
}

// NewComparer builds a Comparer. counter and m may be nil.
func NewComparer(prober TargetProber, counter RunCounter, m *metrics.Metrics, cfg CompareConfig, logger *slog.Logger) *Comparer {
	if cfg.DefaultEdgeTarget == "" {
		cfg.DefaultEdgeTarget = DefaultEdgeTarget
	}
	if cfg.DefaultOriginTarget == "" {
		cfg.DefaultOriginTarget = DefaultOriginTarget
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Comparer{
		prober:  prober,
		counter: counter,
		metrics: m,
		cfg:     cfg,
		logger:  logger,
	}
}

// Compare probes the edge and origin targets concurrently and combines the
// two measurements. Empty targets fall back to the configured defaults.
// Compare always returns a complete result; cancelling ctx does not abort a
// comparison that has started.
func (c *Comparer) Compare(ctx context.Context, edgeTarget, originTarget string) models.ComparisonResult {
	if edgeTarget == "" {
		edgeTarget = c.cfg.DefaultEdgeTarget
	}
	if originTarget == "" {
		originTarget = c.cfg.DefaultOriginTarget
	}
	ctx = context.WithoutCancel(ctx)

	edgeCh := make(chan models.Measurement, 1)
	originCh := make(chan models.Measurement, 1)
	go func() { edgeCh <- c.prober.Probe(ctx, edgeTarget, EdgeLabel) }()
	go func() { originCh <- c.prober.Probe(ctx, originTarget, OriginLabel) }()
	edge := <-edgeCh
	origin := <-originCh

	speedup := Speedup(origin.TotalTime, edge.TotalTime)
	c.notify()

	c.metrics.ObserveProbe(metrics.RoleEdge, edge)
	c.metrics.ObserveProbe(metrics.RoleOrigin, origin)
	c.metrics.ObserveComparison(speedup)

	c.logger.Info("comparison complete",
		"edge", edgeTarget,
		"origin", originTarget,
		"edge_ms", edge.TotalTime,
		"origin_ms", origin.TotalTime,
		"speedup", speedup,
	)

	return models.ComparisonResult{
		ID:         uuid.NewString(),
		Edge:       edge,
		Origin:     origin,
		Speedup:    speedup,
		TargetURL:  edgeTarget,
		OriginURL:  originTarget,
		MeasuredAt: time.Now().UnixMilli(),
	}
}

// notify increments the run counter in the background. Its outcome is only
// logged.
func (c *Comparer) notify() {
	if c.counter == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Warn("run counter panicked", "panic", fmt.Sprint(r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.NotifyTimeout)
		defer cancel()
		if _, err := c.counter.Increment(ctx, 1); err != nil {
			c.logger.Warn("run counter increment failed", "error", err)
		}
	}()
}

// Speedup is originMs/edgeMs rounded to one decimal place. A non-finite
// ratio yields 1.0 and the result is never below 0.1.
func Speedup(originMs, edgeMs int) float64 {
	raw := float64(originMs) / float64(edgeMs)
	rounded := math.Round(raw*10) / 10
	if math.IsNaN(rounded) || math.IsInf(rounded, 0) {
		return 1.0
	}
	return math.Max(minSpeedup, rounded)
}

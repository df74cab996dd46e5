// Package probe times HTTP(S) exchanges against single targets and compares
// an edge target with an origin target.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/sagoresarker/edge-speed-compare/internal/breakdown"
	logging "github.com/sagoresarker/edge-speed-compare/internal/logger"
	"github.com/sagoresarker/edge-speed-compare/internal/models"
	"github.com/sagoresarker/edge-speed-compare/internal/traceroute"
	"github.com/sagoresarker/edge-speed-compare/internal/utils"
)

const (
	DefaultProbeTimeout    = 10 * time.Second
	DefaultMetadataTimeout = 3 * time.Second

	// maxBodyBytes caps how much of a response body is drained.
	maxBodyBytes = 10 << 20
)

// Values of the fixed record returned when a probe cannot be assembled.
const (
	fallbackTotalMs = 1000
	fallbackTTFBMs  = 800
	fallbackDurMs   = 200
	fallbackSize    = "0kb"
)

// MetadataResolver looks up the resolved address and payload size of a
// target. The prober treats any error as "unknown".
type MetadataResolver interface {
	Resolve(ctx context.Context, target string) (models.Metadata, error)
}

type ProberConfig struct {
	// Timeout bounds the network exchange.
	Timeout time.Duration
	// MetadataTimeout bounds the metadata lookup.
	MetadataTimeout time.Duration
	// Client overrides the HTTP client used for the exchange. Its timeout is
	// left untouched.
	Client *http.Client
}

type Prober struct {
	client          *http.Client
	resolver        MetadataResolver
	timeout         time.Duration
	metadataTimeout time.Duration
	logger          *slog.Logger
}

func NewProber(resolver MetadataResolver, cfg ProberConfig, logger *slog.Logger) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProbeTimeout
	}
	if cfg.MetadataTimeout <= 0 {
		cfg.MetadataTimeout = DefaultMetadataTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: true,
			},
			// A probe times exactly one exchange.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &Prober{
		client:          client,
		resolver:        resolver,
		timeout:         cfg.Timeout,
		metadataTimeout: cfg.MetadataTimeout,
		logger:          logger,
	}
}

// Probe times one exchange with target and returns its measurement. It
// never fails: a failed exchange is estimated from the elapsed time, and a
// panic while measuring yields the fixed fallback record.
func (p *Prober) Probe(ctx context.Context, target, label string) (m models.Measurement) {
	targetURL := utils.NormalizeTarget(target)

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("probe panicked, using fallback measurement",
				"label", label, "target", targetURL, "panic", fmt.Sprint(r))
			m = Fallback(label, targetURL)
		}
	}()

	return p.measure(ctx, targetURL, label)
}

func (p *Prober) measure(ctx context.Context, targetURL, label string) models.Measurement {
	ex := p.exchange(ctx, targetURL, label)

	totalMs := max(1, int(math.Round(float64(ex.elapsed)/float64(time.Millisecond))))
	md := p.metadata(ctx, targetURL)
	protocol := utils.Protocol(targetURL)

	bd, estimated := breakdown.Estimate(totalMs, ex.timing, protocol == models.ProtocolHTTPS)

	p.logger.Debug("probe complete",
		"label", label,
		"target", targetURL,
		"total_ms", totalMs,
		"estimated", estimated,
		"status", ex.statusCode,
	)

	return models.Measurement{
		Label:           label,
		TargetURL:       targetURL,
		ResolvedIP:      md.IP,
		Protocol:        protocol,
		TotalTime:       totalMs,
		TTFB:            bd.Wait,
		Duration:        bd.Download,
		Size:            md.Size,
		Breakdown:       bd,
		Traceroute:      traceroute.Generate(totalMs, md.IP),
		IsEstimated:     estimated,
		Source:          models.SourceInstrumented,
		TimingAvailable: ex.timing != nil,
		TLSVersion:      ex.tlsVersion,
		StatusCode:      ex.statusCode,
	}
}

type exchangeResult struct {
	elapsed    time.Duration
	timing     *breakdown.RawTiming
	statusCode int
	tlsVersion string
}

// exchange performs one best-effort GET. Any failure, including a target
// that cannot be built into a request, just ends the timer.
func (p *Prober) exchange(ctx context.Context, targetURL, label string) exchangeResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	trace := newExchangeTrace(start)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		p.logger.Debug("probe request not built", "label", label, "target", targetURL, "error", err)
		return exchangeResult{elapsed: time.Since(start)}
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace.clientTrace()))
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	var status int
	resp, err := p.client.Do(req)
	if err == nil {
		status = resp.StatusCode
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
	}
	trace.finish()
	elapsed := time.Since(start)

	return exchangeResult{
		elapsed:    elapsed,
		timing:     trace.raw(),
		statusCode: status,
		tlsVersion: trace.tlsVersionString(),
	}
}

// metadata resolves target metadata within the metadata timeout. A
// resolver that ignores its context cannot hold the probe past the timeout.
func (p *Prober) metadata(ctx context.Context, targetURL string) models.Metadata {
	unknown := models.Metadata{IP: models.AddressUnavailable, Size: models.SizeUnknown}
	if p.resolver == nil {
		return unknown
	}

	ctx, cancel := context.WithTimeout(ctx, p.metadataTimeout)
	defer cancel()

	type result struct {
		md  models.Metadata
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("metadata resolver panicked: %v", r)}
			}
		}()
		md, err := p.resolver.Resolve(ctx, targetURL)
		done <- result{md: md, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			p.logger.Debug("metadata lookup failed", "target", targetURL, "error", res.err)
			return unknown
		}
		if res.md.IP == "" {
			res.md.IP = models.AddressUnavailable
		}
		if res.md.Size == "" {
			res.md.Size = models.SizeUnknown
		}
		return res.md
	case <-ctx.Done():
		p.logger.Debug("metadata lookup timed out", "target", targetURL)
		return unknown
	}
}

// Fallback is the fixed measurement used when a probe cannot be assembled.
func Fallback(label, targetURL string) models.Measurement {
	return models.Measurement{
		Label:      label,
		TargetURL:  targetURL,
		ResolvedIP: models.AddressUnavailable,
		Protocol:   models.ProtocolHTTPS,
		TotalTime:  fallbackTotalMs,
		TTFB:       fallbackTTFBMs,
		Duration:   fallbackDurMs,
		Size:       fallbackSize,
		Breakdown: models.NetworkBreakdown{
			DNS:      50,
			Connect:  150,
			TLS:      150,
			Wait:     550,
			Download: 100,
		},
		Traceroute:  traceroute.Generate(fallbackTotalMs, models.AddressUnavailable),
		IsEstimated: true,
		Source:      models.SourceFallback,
		Degraded:    true,
	}
}

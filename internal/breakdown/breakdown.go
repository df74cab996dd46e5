// Package breakdown splits the elapsed time of one exchange into the five
// phases dns, connect, tls, wait and download.
package breakdown

import (
	"math"

	"github.com/sagoresarker/edge-speed-compare/internal/models"
)

// Weights applied to the total elapsed time when no trustworthy timing
// signal exists.
const (
	dnsWeight      = 0.05
	connectWeight  = 0.15
	tlsWeight      = 0.15
	waitWeight     = 0.55
	downloadWeight = 0.10
)

// RawTiming holds sub-phase timestamps of one exchange in milliseconds
// relative to the moment the exchange was started. A zero value means the
// phase was not observed. ConnectEnd covers the secure handshake, the way
// resource timing reports it.
type RawTiming struct {
	DomainLookupStart     float64
	DomainLookupEnd       float64
	ConnectStart          float64
	ConnectEnd            float64
	SecureConnectionStart float64
	RequestStart          float64
	ResponseStart         float64
	ResponseEnd           float64
}

// Duration is the span from the start of the exchange to the end of the
// response.
func (t *RawTiming) Duration() float64 {
	if t == nil {
		return 0
	}
	return t.ResponseEnd
}

// Measurable reports whether t describes a real, observable exchange.
func (t *RawTiming) Measurable() bool {
	return t != nil && t.Duration() > 0 && t.RequestStart > 0
}

// Estimate returns the breakdown of an exchange that took totalMs. Measured
// timestamps are used when raw is measurable; otherwise totalMs is split by
// fixed weights and the second return value is true.
func Estimate(totalMs int, raw *RawTiming, isHTTPS bool) (models.NetworkBreakdown, bool) {
	if raw.Measurable() {
		return measured(raw), false
	}
	return weighted(totalMs, isHTTPS), true
}

func measured(raw *RawTiming) models.NetworkBreakdown {
	b := models.NetworkBreakdown{
		DNS:      span(raw.DomainLookupStart, raw.DomainLookupEnd),
		Connect:  span(raw.ConnectStart, raw.ConnectEnd),
		Wait:     span(raw.RequestStart, raw.ResponseStart),
		Download: max(1, span(raw.ResponseStart, raw.ResponseEnd)),
	}
	if raw.SecureConnectionStart > 0 {
		b.TLS = span(raw.SecureConnectionStart, raw.ConnectEnd)
	}
	return b
}

func weighted(totalMs int, isHTTPS bool) models.NetworkBreakdown {
	total := float64(totalMs)
	b := models.NetworkBreakdown{
		DNS:      round(total * dnsWeight),
		Connect:  round(total * connectWeight),
		Wait:     round(total * waitWeight),
		Download: max(1, round(total*downloadWeight)),
	}
	if isHTTPS {
		b.TLS = round(total * tlsWeight)
	}
	return b
}

func span(start, end float64) int {
	return max(0, round(end-start))
}

func round(v float64) int {
	return int(math.Round(v))
}

// Package traceroute builds the synthetic path shown next to each
// measurement. The path is illustrative: hop latencies are fixed fractions
// of the measured total and every address but the last is a placeholder.
// Nothing here sends ICMP or UDP probes.
package traceroute

import (
	"fmt"
	"math"

	"github.com/sagoresarker/edge-speed-compare/internal/models"
)

// HopCount is the length of every generated path.
const HopCount = 6

// gatewayLatencyMs is the fixed latency of the second hop.
const gatewayLatencyMs = 2

var hopLabels = [HopCount]string{
	"Local Origin",
	"Local Gateway",
	"Access Network Node",
	"Regional Exchange Point",
	"Backbone Network",
	"Target Destination",
}

// Generate returns the six hops of a path whose end-to-end latency is
// totalMs. The final hop carries address and exactly totalMs.
func Generate(totalMs int, address string) []models.Hop {
	hops := make([]models.Hop, HopCount)
	prev := 0
	for i, label := range hopLabels {
		latency := clamp(hopLatency(i, totalMs), prev, max(totalMs, prev))
		if i == HopCount-1 {
			latency = totalMs
		}
		hops[i] = models.Hop{
			ID:      i + 1,
			Label:   label,
			Latency: latency,
			IP:      hopAddress(i, address),
		}
		prev = latency
	}
	return hops
}

func hopLatency(i, totalMs int) int {
	total := float64(totalMs)
	switch i {
	case 0:
		return 0
	case 1:
		return gatewayLatencyMs
	case 2:
		return int(math.Round(total * 0.15))
	case 3:
		return int(math.Round(total * 0.35))
	case 4:
		return int(math.Round(total * 0.65))
	default:
		return totalMs
	}
}

// PlaceholderAddress is the deterministic address of intermediate hop i
// (zero based). It does not describe real topology.
func PlaceholderAddress(i int) string {
	return fmt.Sprintf("%d.%d.1.%d", 10+i, i*4, i+22)
}

func hopAddress(i int, address string) string {
	if i == HopCount-1 {
		return address
	}
	return PlaceholderAddress(i)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

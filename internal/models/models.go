package models

// Sentinel values used when a probe could not learn a real value.
const (
	AddressUnavailable = "unavailable"
	SizeUnknown        = "unknown"
)

// Source tags distinguish an instrumented measurement from the fixed
// fallback record.
const (
	SourceInstrumented = "instrumented"
	SourceFallback     = "fallback"
)

const (
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"
)

type NetworkBreakdown struct {
	DNS      int `json:"dns"`
	Connect  int `json:"connect"`
	TLS      int `json:"tls"`
	Wait     int `json:"wait"`
	Download int `json:"download"`
}

// Hop is one entry of a synthetic path. Only the final hop carries a real
// address; the others are illustrative placeholders.
type Hop struct {
	ID      int    `json:"id"`
	Label   string `json:"label"`
	Latency int    `json:"latency"`
	IP      string `json:"ip"`
}

type Measurement struct {
	Label           string           `json:"label"`
	TargetURL       string           `json:"targetUrl"`
	ResolvedIP      string           `json:"resolvedIP"`
	Protocol        string           `json:"protocol"`
	TotalTime       int              `json:"totalTime"`
	TTFB            int              `json:"ttfb"`
	Duration        int              `json:"duration"`
	Size            string           `json:"size"`
	Breakdown       NetworkBreakdown `json:"breakdown"`
	Traceroute      []Hop            `json:"traceroute"`
	IsEstimated     bool             `json:"isEstimated"`
	Source          string           `json:"source"`
	TimingAvailable bool             `json:"timingAvailable"`
	TLSVersion      string           `json:"tlsVersion,omitempty"`
	StatusCode      int              `json:"statusCode,omitempty"`
	// Degraded marks the fixed fallback record. It is not an error signal:
	// a degraded measurement is still complete and usable.
	Degraded bool `json:"degraded"`
}

type ComparisonResult struct {
	ID         string      `json:"id"`
	Edge       Measurement `json:"edge"`
	Origin     Measurement `json:"origin"`
	Speedup    float64     `json:"speedup"`
	TargetURL  string      `json:"targetUrl"`
	OriginURL  string      `json:"originUrl"`
	MeasuredAt int64       `json:"measuredAt"`
}

// Metadata is what the metadata resolver learns about a target.
type Metadata struct {
	IP       string `json:"ip"`
	Size     string `json:"size"`
	Hostname string `json:"hostname"`
	Protocol string `json:"protocol"`
}

// APIResponse is the envelope successful JSON API routes answer with.
type APIResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

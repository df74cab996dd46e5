package probe

import (
	"crypto/tls"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/sagoresarker/edge-speed-compare/internal/breakdown"
	"github.com/sagoresarker/edge-speed-compare/internal/utils"
)

// exchangeTrace collects httptrace events of one exchange. Dial hooks may
// fire from other goroutines, so every field is guarded by mu.
type exchangeTrace struct {
	start time.Time

	mu           sync.Mutex
	observed     bool
	dnsStart     time.Time
	dnsDone      time.Time
	connectStart time.Time
	connectDone  time.Time
	tlsStart     time.Time
	tlsDone      time.Time
	gotConn      time.Time
	firstByte    time.Time
	responseEnd  time.Time
	tlsVersion   uint16
}

func newExchangeTrace(start time.Time) *exchangeTrace {
	return &exchangeTrace{start: start}
}

func (t *exchangeTrace) mark(field *time.Time, keepFirst bool) {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observed = true
	if keepFirst && !field.IsZero() {
		return
	}
	*field = now
}

func (t *exchangeTrace) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			t.mark(&t.dnsStart, true)
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			t.mark(&t.dnsDone, false)
		},
		ConnectStart: func(network, addr string) {
			t.mark(&t.connectStart, true)
		},
		ConnectDone: func(network, addr string, err error) {
			t.mark(&t.connectDone, false)
		},
		TLSHandshakeStart: func() {
			t.mark(&t.tlsStart, true)
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			t.mark(&t.tlsDone, false)
			if err == nil {
				t.mu.Lock()
				t.tlsVersion = state.Version
				t.mu.Unlock()
			}
		},
		GotConn: func(httptrace.GotConnInfo) {
			t.mark(&t.gotConn, true)
		},
		GotFirstResponseByte: func() {
			t.mark(&t.firstByte, true)
		},
	}
}

// finish records the end of the response body. It does not count as an
// observed event on its own.
func (t *exchangeTrace) finish() {
	now := time.Now()
	t.mu.Lock()
	t.responseEnd = now
	t.mu.Unlock()
}

// raw converts the collected events into resource-timing style offsets.
// It returns nil when no hook fired at all.
func (t *exchangeTrace) raw() *breakdown.RawTiming {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.observed {
		return nil
	}

	connectEnd := t.connectDone
	if t.tlsDone.After(connectEnd) {
		connectEnd = t.tlsDone
	}
	responseEnd := t.responseEnd
	if t.firstByte.IsZero() {
		responseEnd = time.Time{}
	}

	return &breakdown.RawTiming{
		DomainLookupStart:     t.offset(t.dnsStart),
		DomainLookupEnd:       t.offset(t.dnsDone),
		ConnectStart:          t.offset(t.connectStart),
		ConnectEnd:            t.offset(connectEnd),
		SecureConnectionStart: t.offset(t.tlsStart),
		RequestStart:          t.offset(t.gotConn),
		ResponseStart:         t.offset(t.firstByte),
		ResponseEnd:           t.offset(responseEnd),
	}
}

func (t *exchangeTrace) tlsVersionString() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tlsVersion == 0 {
		return ""
	}
	return utils.TLSVersionName(t.tlsVersion)
}

func (t *exchangeTrace) offset(at time.Time) float64 {
	if at.IsZero() {
		return 0
	}
	return float64(at.Sub(t.start)) / float64(time.Millisecond)
}

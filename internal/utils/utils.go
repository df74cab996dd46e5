package utils

import (
	"crypto/tls"
	"net"
	"net/http"
	"strings"

	"github.com/miekg/dns"

	"github.com/sagoresarker/edge-speed-compare/internal/models"
)

// FirstARecord returns the first IPv4 answer of msg and its TTL in seconds.
func FirstARecord(msg *dns.Msg) (string, uint32, bool) {
	if msg == nil {
		return "", 0, false
	}
	for _, rr := range msg.Answer {
		if a, ok := rr.(*dns.A); ok {
			return a.A.String(), a.Hdr.Ttl, true
		}
	}
	return "", 0, false
}

// ClientIP returns the host part of r.RemoteAddr. X-Forwarded-For is
// honoured only when trustProxy is set, since any client can send it.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NormalizeTarget prefixes target with https:// unless it already names the
// http or https scheme.
func NormalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return target
	}
	return "https://" + target
}

// Protocol reports the scheme of an already normalized target.
func Protocol(target string) string {
	if strings.HasPrefix(strings.ToLower(target), "http://") {
		return models.ProtocolHTTP
	}
	return models.ProtocolHTTPS
}

func IsIPAddress(host string) bool {
	return net.ParseIP(strings.Trim(host, "[]")) != nil
}

// TLSVersionName names a negotiated TLS version, e.g. "TLS 1.3".
func TLSVersionName(version uint16) string {
	name := tls.VersionName(version)
	if strings.HasPrefix(name, "0x") {
		return "Unknown"
	}
	return name
}

package utils

import (
	"crypto/tls"
	"net"
	"net/http/httptest"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeTarget(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "https://example.com"},
		{"  example.com/path ", "https://example.com/path"},
		{"http://example.com", "http://example.com"},
		{"HTTPS://Example.com", "HTTPS://Example.com"},
		{"httpbin.org", "https://httpbin.org"},
		{"1.1.1.1", "https://1.1.1.1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTarget(tt.in), tt.in)
	}
}

func TestProtocol(t *testing.T) {
	assert.Equal(t, "http", Protocol("http://example.com"))
	assert.Equal(t, "https", Protocol("https://example.com"))
	assert.Equal(t, "https", Protocol(NormalizeTarget("httpbin.org")))
}

func TestIsIPAddress(t *testing.T) {
	assert.True(t, IsIPAddress("8.8.8.8"))
	assert.True(t, IsIPAddress("2001:db8::1"))
	assert.True(t, IsIPAddress("[2001:db8::1]"))
	assert.False(t, IsIPAddress("example.com"))
	assert.False(t, IsIPAddress("999.1.1.1"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{"remote addr", "192.0.2.1:5555", "", false, "192.0.2.1"},
		{"forwarded ignored", "192.0.2.1:5555", "198.51.100.4", false, "192.0.2.1"},
		{"forwarded trusted", "192.0.2.1:5555", "198.51.100.4, 10.0.0.1", true, "198.51.100.4"},
		{"trusted without header", "192.0.2.1:5555", "", true, "192.0.2.1"},
		{"ipv6 remote", "[2001:db8::1]:443", "", false, "2001:db8::1"},
		{"no port", "192.0.2.9", "", false, "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, ClientIP(r, tt.trustProxy))
		})
	}
}

func TestFirstARecord(t *testing.T) {
	msg := new(dns.Msg)
	msg.Answer = []dns.RR{
		&dns.CNAME{Hdr: dns.RR_Header{Name: "www.example.com.", Rrtype: dns.TypeCNAME}, Target: "example.com."},
		&dns.A{Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeA, Ttl: 300}, A: net.ParseIP("93.184.216.34")},
	}

	ip, ttl, ok := FirstARecord(msg)
	assert.True(t, ok)
	assert.Equal(t, "93.184.216.34", ip)
	assert.Equal(t, uint32(300), ttl)

	_, _, ok = FirstARecord(new(dns.Msg))
	assert.False(t, ok)
	_, _, ok = FirstARecord(nil)
	assert.False(t, ok)
}

func TestTLSVersionName(t *testing.T) {
	assert.Equal(t, "TLS 1.3", TLSVersionName(tls.VersionTLS13))
	assert.Equal(t, "TLS 1.2", TLSVersionName(tls.VersionTLS12))
	assert.Equal(t, "Unknown", TLSVersionName(0))
}

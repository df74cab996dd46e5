// Package metadata resolves the address and payload size of probe targets.
// Lookups never fail past this package: unreachable resolvers and servers
// collapse into the "unavailable" address and the default size.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
	"golang.org/x/sync/singleflight"

	"github.com/sagoresarker/edge-speed-compare/internal/cache"
	logging "github.com/sagoresarker/edge-speed-compare/internal/logger"
	"github.com/sagoresarker/edge-speed-compare/internal/models"
	"github.com/sagoresarker/edge-speed-compare/internal/utils"
)

const (
	DefaultDNSServer   = "8.8.8.8:53"
	DefaultDNSTimeout  = 1500 * time.Millisecond
	DefaultSizeTimeout = time.Second
	DefaultCacheTTL    = 5 * time.Minute

	// DefaultSize is reported when the target does not announce a length.
	DefaultSize = "4.5kb"
)

var ErrInvalidURL = errors.New("invalid URL")

type Config struct {
	DNSServer   string
	DNSTimeout  time.Duration
	SizeTimeout time.Duration
	CacheTTL    time.Duration
	HTTPClient  *http.Client
}

type Resolver struct {
	dnsClient   *dns.Client
	dnsServer   string
	dnsTimeout  time.Duration
	sizeTimeout time.Duration
	httpClient  *http.Client
	addresses   *cache.AddressCache
	lookups     singleflight.Group
	logger      *slog.Logger
}

func NewResolver(cfg Config, logger *slog.Logger) *Resolver {
	if cfg.DNSServer == "" {
		cfg.DNSServer = DefaultDNSServer
	}
	if cfg.DNSTimeout <= 0 {
		cfg.DNSTimeout = DefaultDNSTimeout
	}
	if cfg.SizeTimeout <= 0 {
		cfg.SizeTimeout = DefaultSizeTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: true,
			},
		}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{
		dnsClient:   &dns.Client{Net: "udp", Timeout: cfg.DNSTimeout},
		dnsServer:   cfg.DNSServer,
		dnsTimeout:  cfg.DNSTimeout,
		sizeTimeout: cfg.SizeTimeout,
		httpClient:  cfg.HTTPClient,
		addresses:   cache.NewAddressCache(cfg.CacheTTL),
		logger:      logger,
	}
}

// ParseTarget normalizes rawURL the way probes do and returns it with an
// ASCII hostname.
func ParseTarget(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, ErrInvalidURL
	}
	u, err := url.Parse(utils.NormalizeTarget(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return nil, ErrInvalidURL
	}
	if !utils.IsIPAddress(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			ascii = strings.ToLower(host)
		}
		if port := u.Port(); port != "" {
			u.Host = ascii + ":" + port
		} else {
			u.Host = ascii
		}
	}
	return u, nil
}

// Resolve returns the resolved address and size of rawURL. The only error
// is ErrInvalidURL.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (models.Metadata, error) {
	u, err := ParseTarget(rawURL)
	if err != nil {
		return models.Metadata{}, err
	}

	var (
		wg      sync.WaitGroup
		address string
		size    string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		address = r.resolveAddress(ctx, u.Hostname())
	}()
	go func() {
		defer wg.Done()
		size = r.probeSize(ctx, u.String())
	}()
	wg.Wait()

	return models.Metadata{
		IP:       address,
		Size:     size,
		Hostname: u.Hostname(),
		Protocol: u.Scheme,
	}, nil
}

func (r *Resolver) resolveAddress(ctx context.Context, host string) string {
	if utils.IsIPAddress(host) {
		return strings.Trim(host, "[]")
	}
	if address, found := r.addresses.Get(host); found {
		return address
	}

	// The shared lookup outlives any single caller; lookupA bounds it with
	// the DNS timeout.
	lookup := r.lookups.DoChan(host, func() (interface{}, error) {
		return r.lookupA(context.WithoutCancel(ctx), host), nil
	})
	select {
	case res := <-lookup:
		return res.Val.(string)
	case <-ctx.Done():
		return models.AddressUnavailable
	}
}

func (r *Resolver) lookupA(ctx context.Context, host string) string {
	ctx, cancel := context.WithTimeout(ctx, r.dnsTimeout)
	defer cancel()

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)

	resp, rtt, err := r.dnsClient.ExchangeContext(ctx, msg, r.dnsServer)
	if err != nil {
		r.logger.Debug("dns lookup failed", "host", host, "server", r.dnsServer, "error", err)
		return models.AddressUnavailable
	}
	address, ttl, ok := utils.FirstARecord(resp)
	if !ok {
		r.logger.Debug("dns lookup returned no A record", "host", host, "rcode", dns.RcodeToString[resp.Rcode])
		return models.AddressUnavailable
	}

	r.addresses.Set(host, address, time.Duration(ttl)*time.Second)
	r.logger.Debug("dns lookup", "host", host, "address", address, "rtt", rtt)
	return address
}

// probeSize asks for the target headers only and formats Content-Length.
func (r *Resolver) probeSize(ctx context.Context, target string) string {
	ctx, cancel := context.WithTimeout(ctx, r.sizeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return DefaultSize
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Debug("size probe failed", "target", target, "error", err)
		return DefaultSize
	}
	defer resp.Body.Close()

	return FormatSize(resp.Header.Get("Content-Length"))
}

// FormatSize renders a Content-Length header value in kilobytes with one
// decimal, or DefaultSize when the value is missing or not positive.
func FormatSize(contentLength string) string {
	bytes, err := strconv.ParseInt(strings.TrimSpace(contentLength), 10, 64)
	if err != nil || bytes <= 0 {
		return DefaultSize
	}
	return fmt.Sprintf("%.1fkb", float64(bytes)/1024)
}

package checker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/WhyMan1/bot-reality/internal/common"
	"github.com/WhyMan1/bot-reality/internal/config"
	"github.com/WhyMan1/bot-reality/internal/geoip"
	"github.com/projectdiscovery/gologger"
)

// Checker runs the probe pipeline for one hostname and produces the
// structured report. A single instance is shared by all worker goroutines.
type Checker struct {
	resolver        Resolver
	enricher        *Enricher
	pingThresholdMs float64
	pingTimeout     time.Duration
	tlsTimeout      time.Duration
	httpTimeout     time.Duration
	portTimeout     time.Duration
}

// New builds a checker from application settings
func New(cfg *config.Config, resolver Resolver, locator geoip.Locator) *Checker {
	return &Checker{
		resolver:        resolver,
		enricher:        NewEnricher(locator, resolver, cfg.App.RIREnabled),
		pingThresholdMs: cfg.App.PingThresholdMs,
		pingTimeout:     3 * time.Second,
		tlsTimeout:      10 * time.Second,
		httpTimeout:     time.Duration(cfg.App.HTTPTimeout) * time.Second,
		portTimeout:     time.Duration(cfg.App.PortScanTimeout) * time.Second,
	}
}

// Run executes every probe against the hostname. DNS failure is fatal and
// yields a minimal report with only the resolution error; every later probe
// failure degrades to an error line inside the report instead.
func (c *Checker) Run(ctx context.Context, domain string, port int) (*Report, error) {
	report := &Report{Domain: domain, Port: port}

	ips, err := c.resolver.LookupA(domain)
	if err != nil || len(ips) == 0 {
		if err != nil {
			report.DNSErr = err.Error()
			gologger.Warning().Msgf("DNS resolution failed for %s: %v", domain, err)
		} else {
			report.DNSErr = "no A records"
		}
		return report, nil
	}
	report.IP = ips[0]

	if err := ctx.Err(); err != nil {
		return nil, common.NewTimeoutError(fmt.Sprintf("check of %s interrupted", domain), err)
	}

	report.Ping = measurePing(ctx, report.IP, c.pingTimeout)
	report.TLS = probeTLS(ctx, domain, port, c.tlsTimeout)
	report.HTTP = probeHTTP(ctx, domain, c.httpTimeout)

	if err := ctx.Err(); err != nil {
		return nil, common.NewTimeoutError(fmt.Sprintf("check of %s interrupted", domain), err)
	}

	report.Ports = scanPorts(ctx, report.IP, c.portTimeout)
	report.Enrich = c.enricher.Enrich(ctx, report.IP)

	if err := ctx.Err(); err != nil {
		return nil, common.NewTimeoutError(fmt.Sprintf("check of %s interrupted", domain), err)
	}

	report.WhoisExpiry = lookupWhoisExpiry(domain)

	report.WAF = DetectWAF(report.HTTP.Server)
	report.CDN = DetectCDN(report.HTTP, report.Enrich.Basic.ASN)

	return report, nil
}

// Analyze is the one-call form used by batch processing: it accepts
// "host" or "host:port", runs the pipeline and returns the rendered text.
func (c *Checker) Analyze(ctx context.Context, domainPort string, fullReport bool) (string, error) {
	domain := domainPort
	port := 443

	if host, portStr, err := net.SplitHostPort(domainPort); err == nil {
		p, convErr := strconv.Atoi(portStr)
		if convErr != nil || p < 1 || p > 65535 {
			return "", common.NewValidationError("port", fmt.Sprintf("invalid port in %q", domainPort))
		}
		domain = host
		port = p
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return "", common.NewValidationError("hostname", "hostname is required")
	}

	report, err := c.Run(ctx, domain, port)
	if err != nil {
		return "", err
	}
	return report.Render(fullReport, c.pingThresholdMs), nil
}

// PingThresholdMs exposes the verdict threshold for callers that render
// reports outside Run, such as cache-hit paths.
func (c *Checker) PingThresholdMs() float64 {
	return c.pingThresholdMs
}

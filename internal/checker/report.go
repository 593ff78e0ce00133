package checker

import (
	"fmt"
	"strings"
)

// VerdictSuitable is the verdict line written into reports for hosts that
// pass every suitability condition. The delivery layer and the approved-set
// gate match on it verbatim, so it must remain stable.
const VerdictSuitable = "✅ Suitable for Reality"

// TLSResult holds the outcome of the TLS handshake probe
type TLSResult struct {
	Version     string
	Cipher      string
	ExpiresDays int
	HasExpiry   bool
	Err         string
}

// HTTPResult holds the outcome of the HTTPS GET probe
type HTTPResult struct {
	HTTP2      bool
	HTTP3      bool
	TTFBSecs   float64
	Server     string // lower-cased Server header
	Redirect   string // Location header for 3xx responses
	HeaderBlob string // all response headers, lower-cased, for CDN matching
	Err        string
}

// PingResult holds one ICMP echo measurement
type PingResult struct {
	RTTMs float64
	OK    bool
}

// PortResult holds one TCP connect attempt
type PortResult struct {
	Port int
	Open bool
}

// GeoBasic is the fast geolocation/ASN bundle from ip-api.com
type GeoBasic struct {
	Location    string
	ASN         string
	CountryCode string
	ISP         string
}

// GeoCity is the offline city-level lookup (coordinates and accuracy only,
// the rest is already covered by GeoBasic)
type GeoCity struct {
	Coordinates    string
	AccuracyRadius uint16
}

// RIRInfo is the ownership data from the first registry that answered
type RIRInfo struct {
	Registry     string // display name with region emoji
	Regions      []string
	NetworkName  string
	Country      string
	OrgRef       string
	Status       string
	Descriptions []string
}

// IPInfo carries the secondary ipinfo.io fields not covered elsewhere
type IPInfo struct {
	Timezone string
	Org      string
	Hostname string
}

// Enrichment bundles every IP-derived signal, gathered once per check
type Enrichment struct {
	Basic    GeoBasic
	City     *GeoCity
	CityNote string // shown when City is nil
	RIR      *RIRInfo
	RIRNote  string // shown when RIR is nil
	Info     *IPInfo
	Spamhaus string // DNSBL fallback line, used when Info has no hostname
}

// Report is the structured bag of per-check results. It is immutable once
// rendered; the rendered text is the unit of caching and delivery.
type Report struct {
	Domain      string
	Port        int
	IP          string
	DNSErr      string
	Ping        PingResult
	TLS         TLSResult
	HTTP        HTTPResult
	Ports       []PortResult
	Enrich      *Enrichment
	WhoisExpiry string // "2006-01-02", empty on lookup failure
	WAF         string // detected vendor key, empty when none
	CDN         string // detected vendor key, empty when none
}

// Verdict returns the suitability verdict line. All four conditions holding
// (HTTP/2, TLS 1.3, ping under threshold, no CDN) makes the host suitable;
// a lone CDN finding is conditional; anything else is unsuitable with every
// failing reason listed in fixed order.
func (r *Report) Verdict(pingThresholdMs float64) string {
	var reasons []string

	if !r.HTTP.HTTP2 {
		reasons = append(reasons, "HTTP/2 missing")
	}
	if r.TLS.Version != "TLSv1.3" && r.TLS.Version != "TLS 1.3" {
		reasons = append(reasons, "TLS 1.3 missing")
	}
	// A missing ping sample does not count against the host
	if r.Ping.OK && r.Ping.RTTMs >= pingThresholdMs {
		reasons = append(reasons, fmt.Sprintf("high ping (%.1f ms)", r.Ping.RTTMs))
	}
	if r.CDN != "" {
		reasons = append(reasons, fmt.Sprintf("CDN detected (%s)", capitalize(r.CDN)))
	}

	switch {
	case len(reasons) == 0:
		return VerdictSuitable
	case r.CDN != "" && len(reasons) == 1:
		return fmt.Sprintf("⚠️ Conditionally suitable: CDN detected (%s)", capitalize(r.CDN))
	default:
		return "❌ Not suitable: " + strings.Join(reasons, ", ")
	}
}

// Render produces the report text. Short mode emits one line per category;
// full mode adds the port scan, enrichment and WHOIS sections, avoiding
// fields an earlier section already covered.
func (r *Report) Render(full bool, pingThresholdMs float64) string {
	lines := []string{fmt.Sprintf("🔍 Checking %s:", r.Domain)}

	if r.IP == "" {
		lines = append(lines, "❌ DNS: cannot resolve")
		return strings.Join(lines, "\n")
	}
	lines = append(lines, fmt.Sprintf("✅ A: %s", r.IP))

	pingLine := "❌ Ping: error"
	if r.Ping.OK {
		pingLine = fmt.Sprintf("🟢 Ping: ~%.1f ms", r.Ping.RTTMs)
	}

	tlsLines := r.tlsLines()
	httpLines := r.httpLines()
	wafLine := r.wafLine()
	cdnLine := r.cdnLine()
	verdict := r.Verdict(pingThresholdMs)

	if !full {
		lines = append(lines, pingLine)
		lines = append(lines, "🔒 TLS: "+tlsLines[0])
		lines = append(lines, "🌐 HTTP: "+httpLines[0])
		lines = append(lines, wafLine)
		lines = append(lines, cdnLine)
		lines = append(lines, "🛰 "+verdict)
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "", "🌐 DNS")
	lines = append(lines, fmt.Sprintf("✅ A: %s", r.IP))

	lines = append(lines, "", "📡 Port scan")
	for _, p := range r.Ports {
		status := "🔴 closed"
		if p.Open {
			status = "🟢 open"
		}
		lines = append(lines, fmt.Sprintf("TCP %d %s", p.Port, status))
	}

	lines = append(lines, r.enrichmentLines()...)
	lines = append(lines, pingLine)

	lines = append(lines, "", "🔒 TLS")
	lines = append(lines, tlsLines...)

	lines = append(lines, "", "🌐 HTTP")
	lines = append(lines, httpLines...)
	lines = append(lines, r.httpDetailLines()...)
	lines = append(lines, wafLine)
	lines = append(lines, cdnLine)

	lines = append(lines, "", "📄 WHOIS")
	if r.WhoisExpiry != "" {
		lines = append(lines, fmt.Sprintf("📆 Expiration date: %s", r.WhoisExpiry))
	} else {
		lines = append(lines, "❌ WHOIS: error")
	}

	lines = append(lines, "", "🛰 Suitability assessment")
	lines = append(lines, verdict)

	return strings.Join(lines, "\n")
}

func (r *Report) tlsLines() []string {
	if r.TLS.Version == "" {
		errText := r.TLS.Err
		if errText == "" {
			errText = "unknown"
		}
		return []string{fmt.Sprintf("❌ TLS: connection error (%s)", errText)}
	}

	lines := []string{fmt.Sprintf("✅ %s supported", r.TLS.Version)}
	if r.TLS.Cipher != "" {
		lines = append(lines, fmt.Sprintf("✅ %s used", r.TLS.Cipher))
	}
	if r.TLS.HasExpiry {
		lines = append(lines, fmt.Sprintf("⏳ TLS certificate expires in %d days", r.TLS.ExpiresDays))
	}
	return lines
}

func (r *Report) httpLines() []string {
	lines := make([]string, 0, 2)
	if r.HTTP.HTTP2 {
		lines = append(lines, "✅ HTTP/2 supported")
	} else {
		lines = append(lines, "❌ HTTP/2 not supported")
	}
	if r.HTTP.HTTP3 {
		lines = append(lines, "✅ HTTP/3 (h3) supported")
	} else {
		lines = append(lines, "❌ HTTP/3 not supported")
	}
	return lines
}

func (r *Report) httpDetailLines() []string {
	var lines []string
	if r.HTTP.TTFBSecs > 0 {
		lines = append(lines, fmt.Sprintf("⏱️ TTFB: %.2f sec", r.HTTP.TTFBSecs))
	} else {
		errText := r.HTTP.Err
		if errText == "" {
			errText = "unknown"
		}
		lines = append(lines, fmt.Sprintf("⏱️ TTFB: unknown (%s)", errText))
	}
	if r.HTTP.Redirect != "" {
		lines = append(lines, fmt.Sprintf("🔁 Redirect: %s", r.HTTP.Redirect))
	} else {
		lines = append(lines, "🔁 No redirect")
	}
	lines = append(lines, FingerprintServer(r.HTTP.Server))
	return lines
}

func (r *Report) wafLine() string {
	if r.WAF == "" {
		return "🛡 WAF not detected"
	}
	return fmt.Sprintf("🛡 WAF detected: %s", capitalize(r.WAF))
}

func (r *Report) cdnLine() string {
	if r.CDN == "" {
		return "🟢 No CDN detected"
	}
	return fmt.Sprintf("⚠️ CDN detected: %s", capitalize(r.CDN))
}

func (r *Report) enrichmentLines() []string {
	e := r.Enrich
	if e == nil {
		return nil
	}

	lines := []string{"", "🌍 Geography and ASN"}
	lines = append(lines, fmt.Sprintf("📍 IP: %s", e.Basic.Location))
	lines = append(lines, fmt.Sprintf("🏢 ASN: %s", e.Basic.ASN))

	if e.City != nil {
		lines = append(lines, "", "📊 GeoIP2 data:")
		if e.City.Coordinates != "" {
			lines = append(lines, fmt.Sprintf("📍 Coordinates: %s", e.City.Coordinates))
		}
		if e.City.AccuracyRadius > 0 {
			lines = append(lines, fmt.Sprintf("🎯 Accuracy: ±%d km", e.City.AccuracyRadius))
		}
	} else if e.CityNote != "" {
		lines = append(lines, fmt.Sprintf("📊 GeoIP2: %s", e.CityNote))
	}

	if e.RIR != nil {
		lines = append(lines, "", fmt.Sprintf("📋 %s data:", e.RIR.Registry))
		if e.RIR.NetworkName != "" {
			lines = append(lines, fmt.Sprintf("🌐 Network: %s", e.RIR.NetworkName))
		}
		if e.RIR.Country != "" {
			lines = append(lines, fmt.Sprintf("🏳️ Country: %s", e.RIR.Country))
		}
		if e.RIR.OrgRef != "" {
			lines = append(lines, fmt.Sprintf("🏢 Organization: %s", e.RIR.OrgRef))
		}
		if e.RIR.Status != "" {
			lines = append(lines, fmt.Sprintf("📊 Status: %s", e.RIR.Status))
		}
		descriptions := e.RIR.Descriptions
		if len(descriptions) > 2 {
			descriptions = descriptions[:2]
		}
		for _, desc := range descriptions {
			lines = append(lines, fmt.Sprintf("📝 %s", desc))
		}
		if len(e.RIR.Regions) > 0 {
			lines = append(lines, fmt.Sprintf("🌍 Regions: %s", strings.Join(e.RIR.Regions, ", ")))
		}
	} else if e.RIRNote != "" {
		lines = append(lines, fmt.Sprintf("📋 RIR: %s", e.RIRNote))
	}

	if e.Info != nil {
		lines = append(lines, "", "🔍 ipinfo.io (additional):")
		if e.Info.Timezone != "" && e.Info.Timezone != "N/A" {
			lines = append(lines, fmt.Sprintf("🕐 Timezone: %s", e.Info.Timezone))
		}
		lines = append(lines, reputationLine(e.Info.Hostname, e.Spamhaus))
	} else {
		lines = append(lines, e.Spamhaus)
	}

	return lines
}

// reputationLine infers reputation from the reverse hostname when one is
// available and falls back to the DNSBL query result otherwise
func reputationLine(hostname, spamhausFallback string) string {
	if hostname == "" || hostname == "N/A" {
		return spamhausFallback
	}
	if strings.Contains(strings.ToLower(hostname), "spamhaus") {
		return "⚠️ Found in Spamhaus"
	}
	return "✅ Not found in Spamhaus"
}

// DeriveShort extracts the short-mode category lines from a rendered
// full-mode report using its fixed section markers. It returns false when
// the text does not carry the full-report structure, in which case the
// caller must treat the cached entry as a miss.
func DeriveShort(fullReport string) (string, bool) {
	lines := strings.Split(fullReport, "\n")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "🔍 Checking") {
		return "", false
	}

	var dnsLine, pingLine, tlsLine, httpLine, wafLine, cdnLine, verdictLine string

	for i, line := range lines {
		switch {
		case dnsLine == "" && (strings.HasPrefix(line, "✅ A: ") || strings.HasPrefix(line, "❌ DNS:")):
			dnsLine = line
		case pingLine == "" && (strings.HasPrefix(line, "🟢 Ping:") || strings.HasPrefix(line, "❌ Ping:")):
			pingLine = line
		case tlsLine == "" && line == "🔒 TLS" && i+1 < len(lines):
			tlsLine = "🔒 TLS: " + lines[i+1]
		case httpLine == "" && line == "🌐 HTTP" && i+1 < len(lines):
			httpLine = "🌐 HTTP: " + lines[i+1]
		case wafLine == "" && strings.HasPrefix(line, "🛡"):
			wafLine = line
		case cdnLine == "" && (line == "🟢 No CDN detected" || strings.HasPrefix(line, "⚠️ CDN detected:")):
			cdnLine = line
		case verdictLine == "" && line == "🛰 Suitability assessment" && i+1 < len(lines):
			verdictLine = "🛰 " + lines[i+1]
		}
	}

	if verdictLine == "" || dnsLine == "" {
		return "", false
	}

	short := []string{lines[0], dnsLine}
	for _, line := range []string{pingLine, tlsLine, httpLine, wafLine, cdnLine, verdictLine} {
		if line != "" {
			short = append(short, line)
		}
	}
	return strings.Join(short, "\n"), true
}

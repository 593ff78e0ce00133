package checker

import (
	"strings"
	"testing"
)

func suitableReport() *Report {
	return &Report{
		Domain: "example.com",
		Port:   443,
		IP:     "93.184.216.34",
		Ping:   PingResult{RTTMs: 12.3, OK: true},
		TLS:    TLSResult{Version: "TLS 1.3", Cipher: "TLS_AES_128_GCM_SHA256", ExpiresDays: 120, HasExpiry: true},
		HTTP:   HTTPResult{HTTP2: true, TTFBSecs: 0.2},
		Ports:  []PortResult{{Port: 443, Open: true}},
	}
}

func TestVerdictSuitable(t *testing.T) {
	r := suitableReport()
	if got := r.Verdict(50); got != VerdictSuitable {
		t.Errorf("Expected suitable verdict, got %q", got)
	}
}

func TestVerdictConditionalOnLoneCDN(t *testing.T) {
	r := suitableReport()
	r.CDN = "cloudflare"

	want := "⚠️ Conditionally suitable: CDN detected (Cloudflare)"
	if got := r.Verdict(50); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestVerdictListsAllReasonsInOrder(t *testing.T) {
	r := suitableReport()
	r.HTTP.HTTP2 = false
	r.TLS.Version = "TLS 1.2"
	r.Ping = PingResult{RTTMs: 80, OK: true}

	want := "❌ Not suitable: HTTP/2 missing, TLS 1.3 missing, high ping (80.0 ms)"
	if got := r.Verdict(50); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestVerdictCDNPlusOtherFailureIsNotConditional(t *testing.T) {
	r := suitableReport()
	r.CDN = "fastly"
	r.HTTP.HTTP2 = false

	got := r.Verdict(50)
	if !strings.HasPrefix(got, "❌ Not suitable: ") {
		t.Errorf("Expected unsuitable verdict, got %q", got)
	}
	if !strings.Contains(got, "CDN detected (Fastly)") {
		t.Errorf("Expected CDN reason in verdict, got %q", got)
	}
}

func TestVerdictMissingPingDoesNotCount(t *testing.T) {
	r := suitableReport()
	r.Ping = PingResult{}

	if got := r.Verdict(50); got != VerdictSuitable {
		t.Errorf("Expected missing ping to be ignored, got %q", got)
	}
}

func TestVerdictAcceptsBothTLSVersionSpellings(t *testing.T) {
	r := suitableReport()
	r.TLS.Version = "TLSv1.3"

	if got := r.Verdict(50); got != VerdictSuitable {
		t.Errorf("Expected TLSv1.3 spelling to pass, got %q", got)
	}
}

func TestRenderDNSFailure(t *testing.T) {
	r := &Report{Domain: "nosuchhost.example", DNSErr: "no A records"}

	for _, full := range []bool{false, true} {
		got := r.Render(full, 50)
		want := "🔍 Checking nosuchhost.example:\n❌ DNS: cannot resolve"
		if got != want {
			t.Errorf("Render(full=%v) = %q, want %q", full, got, want)
		}
	}
}

func TestRenderShort(t *testing.T) {
	got := suitableReport().Render(false, 50)

	wantLines := []string{
		"🔍 Checking example.com:",
		"✅ A: 93.184.216.34",
		"🟢 Ping: ~12.3 ms",
		"🔒 TLS: ✅ TLS 1.3 supported",
		"🌐 HTTP: ✅ HTTP/2 supported",
		"🛡 WAF not detected",
		"🟢 No CDN detected",
		"🛰 ✅ Suitable for Reality",
	}
	want := strings.Join(wantLines, "\n")

	if got != want {
		t.Errorf("Short render mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderFullContainsAllSections(t *testing.T) {
	r := suitableReport()
	r.WhoisExpiry = "2027-01-15"
	r.Enrich = &Enrichment{
		Basic: GeoBasic{Location: "United States / California", ASN: "AS15133 Edgecast", CountryCode: "US", ISP: "Edgecast"},
	}
	got := r.Render(true, 50)

	for _, want := range []string{
		"🌐 DNS",
		"📡 Port scan",
		"TCP 443 🟢 open",
		"🌍 Geography and ASN",
		"📍 IP: United States / California",
		"🔒 TLS",
		"⏳ TLS certificate expires in 120 days",
		"🌐 HTTP",
		"⏱️ TTFB: 0.20 sec",
		"🔁 No redirect",
		"🧾 Server: hidden",
		"📄 WHOIS",
		"📆 Expiration date: 2027-01-15",
		"🛰 Suitability assessment",
		VerdictSuitable,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Full render missing %q:\n%s", want, got)
		}
	}
}

func TestDeriveShortFromFullRender(t *testing.T) {
	r := suitableReport()
	r.WhoisExpiry = "2027-01-15"
	r.Enrich = &Enrichment{
		Basic:    GeoBasic{Location: "N/A", ASN: "N/A", CountryCode: "N/A", ISP: "N/A"},
		Spamhaus: "✅ Not found in Spamhaus",
	}
	full := r.Render(true, 50)

	short, ok := DeriveShort(full)
	if !ok {
		t.Fatalf("DeriveShort failed on full render:\n%s", full)
	}

	want := r.Render(false, 50)
	if short != want {
		t.Errorf("Derived short mismatch:\ngot:\n%s\nwant:\n%s", short, want)
	}
}

func TestDeriveShortRejectsForeignText(t *testing.T) {
	if _, ok := DeriveShort("hello world"); ok {
		t.Error("Expected DeriveShort to reject non-report text")
	}
	if _, ok := DeriveShort(""); ok {
		t.Error("Expected DeriveShort to reject empty text")
	}
}

func TestDeriveShortHandlesDNSFailureReport(t *testing.T) {
	r := &Report{Domain: "nosuchhost.example", DNSErr: "no A records"}
	full := r.Render(true, 50)

	// A resolution-failure report has no verdict, so it cannot be served
	// as a short-form cache hit
	if _, ok := DeriveShort(full); ok {
		t.Error("Expected DeriveShort to reject verdict-less report")
	}
}

func TestReputationLine(t *testing.T) {
	cases := []struct {
		hostname string
		fallback string
		want     string
	}{
		{"", "❓ Spamhaus unavailable", "❓ Spamhaus unavailable"},
		{"N/A", "✅ Not found in Spamhaus", "✅ Not found in Spamhaus"},
		{"mail.spamhaus-listed.example", "", "⚠️ Found in Spamhaus"},
		{"server.clean.example", "", "✅ Not found in Spamhaus"},
	}

	for _, tc := range cases {
		if got := reputationLine(tc.hostname, tc.fallback); got != tc.want {
			t.Errorf("reputationLine(%q, %q) = %q, want %q", tc.hostname, tc.fallback, got, tc.want)
		}
	}
}

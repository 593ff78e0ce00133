package checker

import "testing"

func TestFingerprintServer(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", "🧾 Server: hidden"},
		{"nginx/1.25.3", "🧾 Server: NGINX"},
		{"Apache/2.4.57 (Ubuntu)", "🧾 Server: Apache"},
		{"Microsoft-IIS/10.0", "🧾 Server: Microsoft IIS"},
		{"cloudflare", "🧾 Server: Cloudflare"},
		{"mystery-httpd", "🧾 Server: Mystery-Httpd"},
	}

	for _, tc := range cases {
		if got := FingerprintServer(tc.header); got != tc.want {
			t.Errorf("FingerprintServer(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestDetectWAF(t *testing.T) {
	if got := DetectWAF("cloudflare"); got != "cloudflare" {
		t.Errorf("Expected cloudflare WAF, got %q", got)
	}
	if got := DetectWAF("nginx/1.25.3"); got != "" {
		t.Errorf("Expected no WAF for plain nginx, got %q", got)
	}
	if got := DetectWAF(""); got != "" {
		t.Errorf("Expected no WAF for empty header, got %q", got)
	}
}

func TestDetectCDNFromHeaders(t *testing.T) {
	http := HTTPResult{
		Server:     "cloudflare",
		HeaderBlob: "cf-ray: 8a1b2c3d\nserver: cloudflare\n",
	}
	if got := DetectCDN(http, ""); got != "cloudflare" {
		t.Errorf("Expected cloudflare from headers, got %q", got)
	}
}

func TestDetectCDNFromASN(t *testing.T) {
	http := HTTPResult{Server: "nginx"}
	if got := DetectCDN(http, "AS16509 Amazon.com, Inc."); got != "aws" {
		t.Errorf("Expected aws from ASN, got %q", got)
	}
}

func TestDetectCDNHeadersWinOverASN(t *testing.T) {
	http := HTTPResult{HeaderBlob: "x-served-by: cache-fra-fastly\n"}
	if got := DetectCDN(http, "AS13335 Cloudflare, Inc."); got != "fastly" {
		t.Errorf("Expected header match to win, got %q", got)
	}
}

func TestDetectCDNNone(t *testing.T) {
	http := HTTPResult{Server: "nginx", HeaderBlob: "content-type: text/html\n"}
	if got := DetectCDN(http, "AS64496 Example Hosting"); got != "" {
		t.Errorf("Expected no CDN, got %q", got)
	}
}

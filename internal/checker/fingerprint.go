package checker

import (
	"fmt"
	"strings"
	"unicode"
)

// serverFingerprints maps Server header substrings to display names.
// Ordered; first match wins.
var serverFingerprints = []struct {
	pattern string
	name    string
}{
	{"nginx", "NGINX"},
	{"apache", "Apache"},
	{"caddy", "Caddy"},
	{"iis", "Microsoft IIS"},
	{"litespeed", "LiteSpeed"},
	{"openresty", "OpenResty"},
	{"tengine", "Tengine"},
	{"cloudflare", "Cloudflare"},
}

// wafVendors are matched against the Server header; first match wins
var wafVendors = []string{
	"cloudflare", "imperva", "sucuri", "incapsula", "akamai", "barracuda",
}

// cdnVendors are checked in priority order (more popular vendors first),
// each vendor's patterns first against response headers, then against the
// ASN/organization string
var cdnVendors = []struct {
	name     string
	patterns []string
}{
	{"cloudflare", []string{"cloudflare", "cf-ray"}},
	{"akamai", []string{"akamai", "edgekey"}},
	{"fastly", []string{"fastly"}},
	{"aws", []string{"amazon", "aws", "cloudfront"}},
	{"google", []string{"google", "gws", "googleusercontent"}},
	{"azure", []string{"azure", "microsoft"}},
	{"incapsula", []string{"incapsula", "imperva"}},
	{"sucuri", []string{"sucuri"}},
	{"stackpath", []string{"stackpath", "netdna"}},
	{"mailru", []string{"mail.ru", "mailru"}},
	{"yandex", []string{"yandex"}},
}

// FingerprintServer renders the web server line from the Server header.
// Known vendors get their canonical name, unknown but present headers are
// shown title-cased, an absent header is reported as hidden.
func FingerprintServer(serverHeader string) string {
	if serverHeader == "" {
		return "🧾 Server: hidden"
	}

	serverLower := strings.ToLower(serverHeader)
	for _, fp := range serverFingerprints {
		if strings.Contains(serverLower, fp.pattern) {
			return fmt.Sprintf("🧾 Server: %s", fp.name)
		}
	}
	return fmt.Sprintf("🧾 Server: %s", titleCase(serverHeader))
}

// DetectWAF returns the detected WAF vendor key, or empty when none matches
func DetectWAF(serverHeader string) string {
	if serverHeader == "" {
		return ""
	}

	headerLower := strings.ToLower(serverHeader)
	for _, waf := range wafVendors {
		if strings.Contains(headerLower, waf) {
			return waf
		}
	}
	return ""
}

// DetectCDN returns the detected CDN vendor key, or empty when none matches
func DetectCDN(http HTTPResult, asn string) string {
	headers := []string{strings.ToLower(http.Server), strings.ToLower(http.HeaderBlob)}

	for _, header := range headers {
		if header == "" {
			continue
		}
		for _, cdn := range cdnVendors {
			for _, pattern := range cdn.patterns {
				if strings.Contains(header, pattern) {
					return cdn.name
				}
			}
		}
	}

	if asn != "" && asn != "N/A" {
		asnLower := strings.ToLower(asn)
		for _, cdn := range cdnVendors {
			for _, pattern := range cdn.patterns {
				if strings.Contains(asnLower, pattern) {
					return cdn.name
				}
			}
		}
	}

	return ""
}

// capitalize upper-cases the first rune
func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// titleCase upper-cases the first letter of every word
func titleCase(s string) string {
	runes := []rune(strings.ToLower(s))
	startOfWord := true
	for i, r := range runes {
		if unicode.IsLetter(r) {
			if startOfWord {
				runes[i] = unicode.ToUpper(r)
			}
			startOfWord = false
		} else {
			startOfWord = true
		}
	}
	return string(runes)
}

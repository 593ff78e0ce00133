package checker

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// probeHTTP issues one GET over HTTPS with redirects disabled and HTTP/2
// negotiation enabled. HTTP/3 support is inferred from the Alt-Svc header
// of the same response; no separate HTTP/3 connection is attempted.
func probeHTTP(ctx context.Context, host string, timeout time.Duration) HTTPResult {
	transport := &http.Transport{
		// Certificate validity is the TLS probe's concern
		TLSClientConfig:   &tls.Config{InsecureSkipVerify: true},
		ForceAttemptHTTP2: true,
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	defer transport.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("https://%s", host), nil)
	if err != nil {
		return HTTPResult{Err: err.Error()}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return HTTPResult{Err: err.Error()}
	}
	defer resp.Body.Close()

	result := HTTPResult{
		TTFBSecs:   time.Since(start).Seconds(),
		HTTP2:      resp.ProtoMajor == 2,
		Server:     strings.ToLower(resp.Header.Get("Server")),
		HeaderBlob: flattenHeaders(resp.Header),
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		result.Redirect = resp.Header.Get("Location")
	}

	altSvc := strings.ToLower(resp.Header.Get("Alt-Svc"))
	result.HTTP3 = strings.Contains(altSvc, "h3")

	return result
}

// flattenHeaders lower-cases all response headers into one string for
// substring fingerprinting
func flattenHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(strings.ToLower(k))
		b.WriteString(": ")
		b.WriteString(strings.ToLower(strings.Join(headers[k], " ")))
		b.WriteString("\n")
	}
	return b.String()
}

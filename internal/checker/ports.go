package checker

import (
	"context"
	"net"
	"strconv"
	"time"
)

// scannedPorts are probed on every full check
var scannedPorts = []int{80, 443, 8080, 8443}

// scanPorts attempts a TCP connect to each port. Connect errors of any kind
// are reported as closed.
func scanPorts(ctx context.Context, ip string, timeout time.Duration) []PortResult {
	results := make([]PortResult, 0, len(scannedPorts))
	dialer := &net.Dialer{Timeout: timeout}

	for _, port := range scannedPorts {
		open := false
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
		if err == nil {
			open = true
			conn.Close()
		}
		results = append(results, PortResult{Port: port, Open: open})
	}

	return results
}

package checker

import (
	"context"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/projectdiscovery/gologger"
)

// measurePing sends a single ICMP echo and returns the round-trip time in
// milliseconds. Absence of a reply is not fatal for the check; the caller
// renders it as an error line.
func measurePing(ctx context.Context, ip string, timeout time.Duration) PingResult {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		gologger.Warning().Msgf("Ping setup failed for %s: %v", ip, err)
		return PingResult{}
	}

	pinger.Count = 1
	pinger.Timeout = timeout

	if err := pinger.RunWithContext(ctx); err != nil {
		gologger.Warning().Msgf("Ping failed for %s: %v", ip, err)
		return PingResult{}
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return PingResult{}
	}

	return PingResult{
		RTTMs: float64(stats.AvgRtt.Microseconds()) / 1000.0,
		OK:    true,
	}
}

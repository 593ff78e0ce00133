package checker

import (
	"fmt"
	"strings"
	"time"

	"github.com/WhyMan1/bot-reality/internal/common"
	"github.com/projectdiscovery/retryabledns"
)

const spamhausZone = "zen.spamhaus.org"

// Resolver resolves A records. The production implementation is backed by
// retryabledns; tests substitute a stub.
type Resolver interface {
	LookupA(host string) ([]string, error)
}

type dnsResolver struct {
	client *retryabledns.Client
}

// NewResolver creates a resolver querying the given nameservers with a 5s
// per-query lifetime
func NewResolver(resolvers []string) (Resolver, error) {
	client, err := retryabledns.NewWithOptions(retryabledns.Options{
		BaseResolvers: resolvers,
		MaxRetries:    2,
		Timeout:       5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DNS resolver: %w", err)
	}
	return &dnsResolver{client: client}, nil
}

func (r *dnsResolver) LookupA(host string) ([]string, error) {
	data, err := r.client.Resolve(host)
	if err != nil {
		return nil, common.NewNetworkError(fmt.Sprintf("DNS resolution failed for %s", host), err)
	}
	return data.A, nil
}

// checkSpamhaus queries the reverse-octet name in the public blocklist
// zone. Any query failure reports the blocklist as unavailable.
func checkSpamhaus(resolver Resolver, ip string) string {
	octets := strings.Split(ip, ".")
	if len(octets) != 4 {
		return "❓ Spamhaus unavailable"
	}

	reversed := fmt.Sprintf("%s.%s.%s.%s.%s", octets[3], octets[2], octets[1], octets[0], spamhausZone)

	ips, err := resolver.LookupA(reversed)
	if err != nil {
		return "❓ Spamhaus unavailable"
	}
	if len(ips) > 0 {
		return "⚠️ Found in Spamhaus"
	}
	return "✅ Not found in Spamhaus"
}

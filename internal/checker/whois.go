package checker

import (
	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/projectdiscovery/gologger"
)

// lookupWhoisExpiry returns the domain's registration expiry date as
// YYYY-MM-DD, or empty when the lookup or parse fails
func lookupWhoisExpiry(domain string) string {
	raw, err := whois.Whois(domain)
	if err != nil {
		gologger.Warning().Msgf("WHOIS lookup failed for %s: %v", domain, err)
		return ""
	}

	info, err := whoisparser.Parse(raw)
	if err != nil {
		gologger.Warning().Msgf("WHOIS parse failed for %s: %v", domain, err)
		return ""
	}

	if info.Domain == nil || info.Domain.ExpirationDateInTime == nil {
		return ""
	}
	return info.Domain.ExpirationDateInTime.Format("2006-01-02")
}

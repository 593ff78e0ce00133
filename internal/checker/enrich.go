package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/WhyMan1/bot-reality/internal/geoip"
	"github.com/projectdiscovery/gologger"
)

// rirSources is the fixed registry priority order. RIPE is queried first
// because its REST API returns the richest ownership data; the first
// registry with substantive data wins, no merging across registries.
var rirSources = []struct {
	key     string
	name    string
	emoji   string
	regions []string
}{
	{"ripe", "RIPE NCC", "🇪🇺", []string{"Europe", "Middle East", "Central Asia"}},
	{"arin", "ARIN", "🇺🇸", []string{"North America"}},
	{"apnic", "APNIC", "🌏", []string{"Asia Pacific"}},
	{"lacnic", "LACNIC", "🌎", []string{"Latin America", "Caribbean"}},
	{"afrinic", "AFRINIC", "🌍", []string{"Africa"}},
}

// Enricher derives all IP-level signals once per check so that no two
// report sections trigger duplicate network calls
type Enricher struct {
	httpClient *http.Client
	locator    geoip.Locator
	resolver   Resolver
	rirEnabled bool
}

// NewEnricher creates an enricher sharing the given locator and resolver
func NewEnricher(locator geoip.Locator, resolver Resolver, rirEnabled bool) *Enricher {
	return &Enricher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		locator:    locator,
		resolver:   resolver,
		rirEnabled: rirEnabled,
	}
}

// Enrich gathers the geolocation/ASN bundle, offline city data, registry
// ownership, secondary IP info and the reputation signal for one IP.
// Individual source failures degrade to N/A fields or note lines.
func (e *Enricher) Enrich(ctx context.Context, ip string) *Enrichment {
	enrichment := &Enrichment{
		Basic: GeoBasic{Location: "N/A", ASN: "N/A", CountryCode: "N/A", ISP: "N/A"},
	}

	if basic, err := e.lookupBasic(ctx, ip); err == nil {
		enrichment.Basic = *basic
	} else {
		gologger.Warning().Msgf("ip-api.com lookup failed for %s: %v", ip, err)
	}

	if city, err := e.locator.City(ip); err == nil {
		enrichment.City = &GeoCity{
			Coordinates:    city.Coordinates,
			AccuracyRadius: city.AccuracyRadius,
		}
	} else {
		enrichment.CityNote = fmt.Sprintf("❌ %v", err)
	}

	if e.rirEnabled {
		rir, note := e.lookupRIR(ctx, ip)
		enrichment.RIR = rir
		enrichment.RIRNote = note
	} else {
		enrichment.RIRNote = "🔕 RIR requests disabled in settings"
	}

	if info, err := e.lookupIPInfo(ctx, ip); err == nil {
		enrichment.Info = info
	} else {
		gologger.Warning().Msgf("ipinfo.io lookup failed for %s: %v", ip, err)
	}

	// DNSBL query only when ipinfo provided no hostname to infer from
	if enrichment.Info == nil || enrichment.Info.Hostname == "" || enrichment.Info.Hostname == "N/A" {
		enrichment.Spamhaus = checkSpamhaus(e.resolver, ip)
	}

	return enrichment
}

type ipAPIResponse struct {
	Status      string `json:"status"`
	Country     string `json:"country"`
	RegionName  string `json:"regionName"`
	City        string `json:"city"`
	CountryCode string `json:"countryCode"`
	AS          string `json:"as"`
	ISP         string `json:"isp"`
}

// lookupBasic queries ip-api.com for the fast geolocation/ASN bundle
func (e *Enricher) lookupBasic(ctx context.Context, ip string) (*GeoBasic, error) {
	var data ipAPIResponse
	if err := e.getJSON(ctx, fmt.Sprintf("http://ip-api.com/json/%s", ip), &data); err != nil {
		return nil, err
	}
	if data.Status != "success" {
		return nil, fmt.Errorf("ip-api.com returned status %q", data.Status)
	}

	var locationParts []string
	for _, part := range []string{data.Country, data.RegionName, data.City} {
		if part != "" && part != "Unknown" {
			locationParts = append(locationParts, part)
		}
	}

	basic := &GeoBasic{
		Location:    "N/A",
		ASN:         valueOrNA(data.AS),
		CountryCode: valueOrNA(data.CountryCode),
		ISP:         valueOrNA(data.ISP),
	}
	if len(locationParts) > 0 {
		basic.Location = strings.Join(locationParts, " / ")
	}
	return basic, nil
}

type ripeResponse struct {
	Objects struct {
		Object []struct {
			Type       string `json:"type"`
			Attributes struct {
				Attribute []struct {
					Name  string `json:"name"`
					Value string `json:"value"`
				} `json:"attribute"`
			} `json:"attributes"`
		} `json:"object"`
	} `json:"objects"`
}

// lookupRIR walks the registries in priority order and returns the first
// substantive ownership answer, or a note when none responds
func (e *Enricher) lookupRIR(ctx context.Context, ip string) (*RIRInfo, string) {
	for _, rir := range rirSources {
		registry := fmt.Sprintf("%s %s", rir.emoji, rir.name)

		switch rir.key {
		case "ripe":
			info, err := e.lookupRIPE(ctx, ip)
			if err != nil {
				gologger.Debug().Msgf("%s lookup failed for %s: %v", rir.name, ip, err)
				continue
			}
			if info == nil {
				continue
			}
			info.Registry = registry
			info.Regions = rir.regions
			return info, ""

		case "arin":
			url := fmt.Sprintf("https://whois.arin.net/rest/ip/%s.json", ip)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				continue
			}
			resp, err := e.httpClient.Do(req)
			if err != nil {
				gologger.Debug().Msgf("ARIN lookup failed for %s: %v", ip, err)
				continue
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				continue
			}
			return &RIRInfo{
				Registry:    registry,
				Regions:     rir.regions,
				NetworkName: "ARIN Network",
				Status:      "ARIN Registry",
			}, ""

		default:
			// Remaining registries get basic region attribution only
			return &RIRInfo{
				Registry:    registry,
				Regions:     rir.regions,
				NetworkName: fmt.Sprintf("%s Network", rir.name),
				Status:      fmt.Sprintf("%s Registry", rir.name),
			}, ""
		}
	}

	return nil, "❌ Information not found in all RIRs"
}

// lookupRIPE queries the RIPE NCC REST API and extracts network/ownership
// attributes. Returns nil when the answer carries no substantive data.
func (e *Enricher) lookupRIPE(ctx context.Context, ip string) (*RIRInfo, error) {
	url := fmt.Sprintf(
		"https://rest.db.ripe.net/search.json?query-string=%s&source=ripe&type-filter=inetnum,inet6num,route,route6,aut-num",
		ip,
	)

	var data ripeResponse
	if err := e.getJSON(ctx, url, &data); err != nil {
		return nil, err
	}

	info := &RIRInfo{}
	substantive := false

	for _, obj := range data.Objects.Object {
		if obj.Type != "inetnum" && obj.Type != "inet6num" {
			continue
		}
		for _, attr := range obj.Attributes.Attribute {
			switch attr.Name {
			case "netname":
				info.NetworkName = attr.Value
				substantive = true
			case "country":
				info.Country = attr.Value
				substantive = true
			case "org":
				info.OrgRef = attr.Value
				substantive = true
			case "status":
				info.Status = attr.Value
				substantive = true
			case "descr":
				info.Descriptions = append(info.Descriptions, attr.Value)
				substantive = true
			}
		}
	}

	if !substantive {
		return nil, nil
	}
	return info, nil
}

type ipInfoResponse struct {
	Timezone string `json:"timezone"`
	Org      string `json:"org"`
	Hostname string `json:"hostname"`
}

// lookupIPInfo queries ipinfo.io for the fields no earlier source covered
func (e *Enricher) lookupIPInfo(ctx context.Context, ip string) (*IPInfo, error) {
	var data ipInfoResponse
	if err := e.getJSON(ctx, fmt.Sprintf("https://ipinfo.io/%s/json", ip), &data); err != nil {
		return nil, err
	}
	return &IPInfo{
		Timezone: valueOrNA(data.Timezone),
		Org:      valueOrNA(data.Org),
		Hostname: valueOrNA(data.Hostname),
	}, nil
}

func (e *Enricher) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Package geoip provides the offline city-level geolocation capability.
// The worker functions with or without a local database: a functioning
// MMDB-backed locator or a no-op variant is selected once at process start,
// and all call sites depend only on the Locator interface.
package geoip

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
	"github.com/projectdiscovery/gologger"
)

// City is the subset of the database record the report uses: coordinates
// and accuracy only, the rest is covered by the online lookup
type City struct {
	Coordinates    string
	AccuracyRadius uint16
}

// Locator resolves an IP to city-level location data
type Locator interface {
	City(ip string) (*City, error)
	Enabled() bool
	Close() error
}

// NewLocator opens the GeoLite2-City database at dbPath. A missing or
// unreadable database degrades to the no-op locator rather than failing
// startup.
func NewLocator(dbPath string) Locator {
	if dbPath == "" {
		return noopLocator{}
	}

	reader, err := geoip2.Open(dbPath)
	if err != nil {
		gologger.Warning().Msgf("GeoIP2 database unavailable at %s: %v. Offline geolocation disabled.", dbPath, err)
		return noopLocator{}
	}

	return &mmdbLocator{reader: reader}
}

type mmdbLocator struct {
	reader *geoip2.Reader
}

func (l *mmdbLocator) City(ip string) (*City, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("invalid IP address: %s", ip)
	}

	record, err := l.reader.City(parsed)
	if err != nil {
		return nil, fmt.Errorf("GeoIP2 lookup failed: %w", err)
	}

	// The reader returns a zero record for addresses absent from the database
	if record.Location.Latitude == 0 && record.Location.Longitude == 0 && record.Country.IsoCode == "" {
		return nil, fmt.Errorf("IP not found in GeoIP2 database")
	}

	return &City{
		Coordinates:    fmt.Sprintf("%.4f, %.4f", record.Location.Latitude, record.Location.Longitude),
		AccuracyRadius: record.Location.AccuracyRadius,
	}, nil
}

func (l *mmdbLocator) Enabled() bool { return true }

func (l *mmdbLocator) Close() error { return l.reader.Close() }

type noopLocator struct{}

func (noopLocator) City(ip string) (*City, error) {
	return nil, fmt.Errorf("GeoIP2 database not found")
}

func (noopLocator) Enabled() bool { return false }

func (noopLocator) Close() error { return nil }

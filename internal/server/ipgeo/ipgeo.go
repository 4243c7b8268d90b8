// Package ipgeo resolves client IPs to country codes using MaxMind MMDB files.
package ipgeo

import (
	"net/netip"

	"github.com/oschwald/maxminddb-golang/v2"
)

// Resolver maps IP addresses to ISO 3166-1 alpha-2 country codes.
type Resolver struct {
	reader *maxminddb.Reader
}

// Open opens an MMDB file for country lookups.
func Open(dbPath string) (*Resolver, error) {
	r, err := maxminddb.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Resolver{reader: r}, nil
}

// Close releases the MMDB reader resources.
func (g *Resolver) Close() error {
	return g.reader.Close()
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// CountryCode returns the country code for the given IP string.
// Returns "local" for loopback, private, and unspecified addresses and ""
// when the IP cannot be parsed or looked up. Callers treat "" as unknown.
func (g *Resolver) CountryCode(ipStr string) string {
	addr, err := netip.ParseAddr(ipStr)
	if err != nil {
		return ""
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() {
		return "local"
	}
	var rec countryRecord
	if err := g.reader.Lookup(addr).Decode(&rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}

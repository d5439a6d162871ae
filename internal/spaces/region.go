// Package spaces holds the Digital Ocean Spaces addressing primitives:
// regions, their endpoints, and access credentials.
package spaces

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRegion is returned by ParseRegion for codes outside the table.
var ErrUnknownRegion = errors.New("unknown region")

// Region selects a Spaces datacenter. The only values are the exported
// variables below and the zero value, which is invalid.
type Region struct {
	code       string
	datacenter string
}

var (
	SFO = Region{code: "SFO", datacenter: "sfo2"}
	AMS = Region{code: "AMS", datacenter: "ams3"}
	SGP = Region{code: "SGP", datacenter: "sgp1"}
	NYC = Region{code: "NYC", datacenter: "nyc3"}
	FRA = Region{code: "FRA", datacenter: "fra1"}
)

// regions is the lookup table; order is the display order of Regions().
var regions = []Region{SFO, AMS, SGP, NYC, FRA}

// Regions returns every supported region.
func Regions() []Region {
	out := make([]Region, len(regions))
	copy(out, regions)
	return out
}

// ParseRegion accepts a short code ("SFO") or a datacenter code ("sfo2"), case-insensitive.
func ParseRegion(s string) (Region, error) {
	s = strings.TrimSpace(s)
	for _, r := range regions {
		if strings.EqualFold(s, r.code) || strings.EqualFold(s, r.datacenter) {
			return r, nil
		}
	}
	return Region{}, fmt.Errorf("%w: %q", ErrUnknownRegion, s)
}

// Code is the short region code, e.g. "SFO".
func (r Region) Code() string { return r.code }

// Datacenter is the datacenter slug used in the endpoint host, e.g. "sfo2".
func (r Region) Datacenter() string { return r.datacenter }

// Endpoint returns the HTTPS origin for the region.
func (r Region) Endpoint() string {
	if r.IsZero() {
		return ""
	}
	return "https://" + r.datacenter + ".digitaloceanspaces.com"
}

// IsZero reports whether r is the unset Region.
func (r Region) IsZero() bool { return r.code == "" }

func (r Region) String() string {
	if r.IsZero() {
		return "<unset>"
	}
	return r.code
}

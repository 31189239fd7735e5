package location

import (
	"strings"

	"github.com/kasaops/kasa-backend/internal/model/report"
)

// Resolver derives an approximate location descriptor for a phone number.
// The production replacement would be a carrier or cell-tower API; the
// interface keeps that swap local.
type Resolver interface {
	Resolve(phone string) report.Location
}

// Prefix pairs a phone-number prefix with its location descriptor.
type Prefix struct {
	Prefix   string
	Location report.Location
}

// PrefixResolver matches phone numbers against a fixed prefix table,
// falling back to a pending-triangulation descriptor.
type PrefixResolver struct {
	prefixes []Prefix
}

// NewPrefixResolver builds a resolver over the supplied table. Longer
// prefixes are not prioritized; first match wins, as entries are expected
// to be disjoint.
func NewPrefixResolver(prefixes []Prefix) *PrefixResolver {
	return &PrefixResolver{prefixes: append([]Prefix(nil), prefixes...)}
}

// Resolve returns the first matching descriptor, or Fallback.
func (r *PrefixResolver) Resolve(phone string) report.Location {
	for _, entry := range r.prefixes {
		if strings.HasPrefix(phone, entry.Prefix) {
			return entry.Location
		}
	}
	return Fallback()
}

// Fallback is the descriptor used when no prefix matches.
func Fallback() report.Location {
	return report.Location{
		Address:         "Location being determined via cell tower triangulation",
		Landmark:        "Emergency services dispatched",
		NetworkProvider: "Detecting...",
	}
}

func ptr(f float64) *float64 { return &f }

// Seed returns the illustrative Nairobi prefix table.
func Seed() []Prefix {
	return []Prefix{
		{
			Prefix: "+254711",
			Location: report.Location{
				Latitude:        ptr(-1.2921),
				Longitude:       ptr(36.8219),
				Address:         "Nairobi Central Business District",
				Landmark:        "Near Kenyatta Avenue",
				CellTowerID:     "NRB_001",
				NetworkProvider: "Safaricom",
			},
		},
		{
			Prefix: "+254712",
			Location: report.Location{
				Latitude:        ptr(-1.3032),
				Longitude:       ptr(36.7073),
				Address:         "Westlands, Nairobi",
				Landmark:        "Near Sarit Centre",
				CellTowerID:     "WLD_002",
				NetworkProvider: "Safaricom",
			},
		},
		{
			Prefix: "+254720",
			Location: report.Location{
				Latitude:        ptr(-1.2833),
				Longitude:       ptr(36.8167),
				Address:         "Kilimani, Nairobi",
				Landmark:        "Near Yaya Centre",
				CellTowerID:     "KLM_003",
				NetworkProvider: "Airtel",
			},
		},
	}
}

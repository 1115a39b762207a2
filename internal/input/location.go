package input

import (
	"fmt"
	"strings"
)

// Location is a selectable search market.
type Location struct {
	Label   string `json:"label"`
	Country string `json:"country"` // gl code
}

// Locations is the fixed set offered to users, in display order.
var Locations = []Location{
	{"India", "in"},
	{"United States", "us"},
	{"United Kingdom", "uk"},
	{"Canada", "ca"},
	{"Australia", "au"},
	{"Germany", "de"},
	{"France", "fr"},
	{"Singapore", "sg"},
	{"UAE", "ae"},
}

// DefaultLocation is used when no location is selected.
var DefaultLocation = Locations[0]

// DefaultLanguage is the hl code used when none is given.
const DefaultLanguage = "en"

// LookupLocation finds a location by label (case-insensitive) or country
// code.
func LookupLocation(s string) (Location, error) {
	s = strings.TrimSpace(s)
	for _, loc := range Locations {
		if strings.EqualFold(loc.Label, s) || strings.EqualFold(loc.Country, s) {
			return loc, nil
		}
	}
	return Location{}, fmt.Errorf("%w: %q", ErrUnknownLocation, s)
}

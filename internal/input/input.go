// Package input collects and validates what a rank check needs: the API
// credential, the target domain, the keyword list and the search location.
package input

import (
	"errors"
	"strings"
)

var (
	ErrMissingAPIKey   = errors.New("API key is required")
	ErrMissingDomain   = errors.New("target domain is required")
	ErrNoKeywords      = errors.New("at least one keyword is required")
	ErrUnknownLocation = errors.New("unknown location")
)

// ParseKeywords splits blob on commas and newlines, trims each entry and
// drops empty ones. Order and duplicates are kept.
func ParseKeywords(blob string) []string {
	fields := strings.FieldsFunc(blob, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			keywords = append(keywords, f)
		}
	}
	return keywords
}

// Request is a collected, not yet validated, rank check.
type Request struct {
	APIKey   string
	Domain   string
	Keywords []string
	// Location is a label or country code; empty means DefaultLocation.
	Location string
	Language string
	// NoAPIKey skips the credential check for engines that need none.
	NoAPIKey bool
}

// LocationSelected reports whether the caller picked a location explicitly.
func (r Request) LocationSelected() bool {
	return strings.TrimSpace(r.Location) != ""
}

// ResolveLocation returns the selected location or DefaultLocation.
func (r Request) ResolveLocation() (Location, error) {
	if !r.LocationSelected() {
		return DefaultLocation, nil
	}
	return LookupLocation(r.Location)
}

// Lang returns the language code, defaulting to DefaultLanguage.
func (r Request) Lang() string {
	if l := strings.TrimSpace(r.Language); l != "" {
		return l
	}
	return DefaultLanguage
}

// Normalize trims the free-text fields and drops blank keywords.
func (r Request) Normalize() Request {
	r.APIKey = strings.TrimSpace(r.APIKey)
	r.Domain = strings.TrimSpace(r.Domain)
	kws := make([]string, 0, len(r.Keywords))
	for _, k := range r.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
	}
	r.Keywords = kws
	return r
}

// Validate checks r after normalization. All problems are reported at once
// in a *ValidationError.
func (r Request) Validate() error {
	r = r.Normalize()
	var errs []error
	if r.APIKey == "" && !r.NoAPIKey {
		errs = append(errs, ErrMissingAPIKey)
	}
	if r.Domain == "" {
		errs = append(errs, ErrMissingDomain)
	}
	if len(r.Keywords) == 0 {
		errs = append(errs, ErrNoKeywords)
	}
	if _, err := r.ResolveLocation(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errs: errs}
}

// ValidationError lists every reason a Request was rejected.
type ValidationError struct {
	Errs []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return "invalid request: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error { return e.Errs }

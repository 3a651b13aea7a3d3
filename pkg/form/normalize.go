package form

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/aretw0/formwire/pkg/domain"
)

// Normalizer rewrites client input before it is stored.
type Normalizer func(string) string

var normalizers = map[string]Normalizer{
	"trim":     strings.TrimSpace,
	"lower":    strings.ToLower,
	"upper":    strings.ToUpper,
	"language": normalizeLanguage,
	"region":   normalizeRegion,
}

// LookupNormalizer returns the named normalizer. The empty name yields nil.
func LookupNormalizer(name string) (Normalizer, error) {
	if name == "" {
		return nil, nil
	}
	n, ok := normalizers[name]
	if !ok {
		return nil, &domain.ConfigurationError{Component: "normalizer", Reason: fmt.Sprintf("unknown normalizer %q", name)}
	}
	return n, nil
}

// normalizeLanguage maps a language code to its canonical ISO 639 form, e.g.
// "DE" and "deu" both become "de". Unknown codes are only lowercased so the
// field check can report them.
func normalizeLanguage(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = strings.ToLower(s)
	b, err := language.ParseBase(s)
	if err != nil {
		return s
	}
	return b.String()
}

// normalizeRegion maps a region code to its ISO 3166 form, e.g. "ch" becomes "CH".
func normalizeRegion(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = strings.ToUpper(s)
	r, err := language.ParseRegion(s)
	if err != nil {
		return s
	}
	return r.String()
}

package device

import (
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	maxHintLen     = 64
	maxGeoPartLen  = 64
	maxLocationLen = 128
)

// geoHeaders lists city, region and country headers per provider, in that order.
var geoHeaders = [][3]string{
	{"CF-IPCity", "CF-Region", "CF-IPCountry"},
	{"X-Vercel-IP-City", "X-Vercel-IP-Country-Region", "X-Vercel-IP-Country"},
	{"X-AppEngine-City", "X-AppEngine-Region", "X-AppEngine-Country"},
}

// Location builds "city, region, country" from the first provider that sent any
// geo header. Returns an empty string when none is present.
func Location(h http.Header) string {
	for _, set := range geoHeaders {
		parts := make([]string, 0, 3)
		for _, name := range set {
			if v := Clean(h.Get(name), maxGeoPartLen); v != "" && v != "XX" {
				parts = append(parts, v)
			}
		}
		if len(parts) > 0 {
			return truncateRunes(strings.Join(parts, ", "), maxLocationLen)
		}
	}
	return ""
}

// Clean URL-decodes v when possible, normalizes it to NFC, drops control
// characters, collapses whitespace and truncates to max runes.
func Clean(v string, max int) string {
	if v == "" {
		return ""
	}
	if decoded, err := url.QueryUnescape(v); err == nil {
		v = decoded
	}
	v = norm.NFC.String(v)
	v = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, v)
	v = strings.Join(strings.Fields(v), " ")
	return truncateRunes(v, max)
}

func truncateRunes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

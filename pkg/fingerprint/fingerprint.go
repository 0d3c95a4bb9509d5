package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/dmitrymomot/gatekeeper/pkg/useragent"
)

const (
	// acceptLanguageLen bounds the accept-language component; the tail of
	// long q-value lists changes with browser settings.
	acceptLanguageLen = 32
	// fingerprintLen is the hex length of a full SHA-256.
	fingerprintLen = 64
)

// versionTail matches dotted or underscored versions with more than two components.
var versionTail = regexp.MustCompile(`(\d+[._]\d+)(?:[._]\d+)+`)

// Compute returns the hex SHA-256 fingerprint of c.
func Compute(c Components) string {
	parts := []string{
		norm(c.Seed),
		norm(c.Kind),
		norm(c.OSFamily),
		useragent.MajorMinor(norm(c.OSVersion)),
		norm(c.BrowserFamily),
		useragent.MajorMinor(norm(c.BrowserVersion)),
		norm(strings.Trim(c.Platform, `" `)),
		truncate(norm(c.AcceptLanguage), acceptLanguageLen),
		stripPatch(norm(c.UserAgent)),
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}

// Validate compares c against a stored fingerprint.
func Validate(c Components, stored string) error {
	if len(stored) != fingerprintLen {
		return ErrInvalidFingerprint
	}
	if _, err := hex.DecodeString(stored); err != nil {
		return ErrInvalidFingerprint
	}
	if Compute(c) != stored {
		return ErrMismatch
	}
	return nil
}

// stripPatch cuts every version inside the user agent down to major.minor, so the
// raw agent string follows the same patch tolerance as the parsed versions.
func stripPatch(ua string) string {
	return versionTail.ReplaceAllString(ua, "$1")
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

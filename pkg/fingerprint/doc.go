// Package fingerprint derives a stable device fingerprint from parsed request traits.
//
// The fingerprint is the hex SHA-256 of a pipe-joined, order-fixed tuple:
//
//	seed | kind | os family | os major.minor | browser family | browser major.minor |
//	platform hint | accept-language (first 32 chars) | user agent
//
// Every component is trimmed and lowercased. Versions, including those embedded in
// the user agent, are truncated to major.minor so
// that patch-level browser updates do not rotate the fingerprint, while switching OS or
// browser family does. Empty components keep their slot, so a missing header can never
// shift another value into its position.
//
// Basic usage:
//
//	fp := fingerprint.Compute(fingerprint.Components{
//		Seed:           cfg.DeviceHashSeed,
//		Kind:           "desktop",
//		OSFamily:       ua.OSFamily,
//		OSVersion:      ua.OSVersion,
//		BrowserFamily:  ua.BrowserFamily,
//		BrowserVersion: ua.BrowserVersion,
//		Platform:       r.Header.Get("Sec-CH-UA-Platform"),
//		AcceptLanguage: r.Header.Get("Accept-Language"),
//		UserAgent:      r.UserAgent(),
//	})
//
// # Security Notes
//
// A fingerprint identifies a device for bookkeeping (device lists, login counts). It is
// derived from client-controlled headers and must never be treated as a credential.
package fingerprint

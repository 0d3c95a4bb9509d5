// Package device derives a device identity from request headers: a stable
// fingerprint plus the human-readable metadata shown in device lists.
//
// Resolve is a pure function of the request. It never performs I/O, so it is safe to
// call from any number of goroutines.
//
// # Kind Precedence
//
//  1. bot signature in the user agent
//  2. explicit mobile client hint (Sec-CH-UA-Mobile: ?1)
//  3. tablet keyword or platform hint
//  4. mobile keyword or platform hint
//  5. any non-empty user agent: desktop
//  6. unknown
//
// # Free-text Headers
//
// Geo headers set by edge proxies (Cloudflare, Vercel, App Engine) and the client IP are
// URL-decoded, NFC-normalized, stripped of control characters and whitespace-collapsed.
// Values over the length bound are truncated, never rejected.
//
// # Usage
//
//	id := device.Resolve(r, device.WithSeed(cfg.DeviceHashSeed))
//	log.Info("login", "device", id.Label, "kind", id.Kind, "fp", id.Fingerprint)
package device

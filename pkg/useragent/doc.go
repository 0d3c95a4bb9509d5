// Package useragent extracts operating system, browser and device class hints from
// User-Agent strings.
//
// Detection is table-driven. OSRules, BrowserRules, BotPatterns, TabletKeywords and
// MobileKeywords are ordered lists evaluated top to bottom; the first match wins.
// Order matters because user agents carry legacy tokens for compatibility: every
// Chromium derivative also says "Chrome", and Chrome itself says "Safari". Edge, Opera
// and Samsung Internet therefore come before Chrome, and mobile Safari comes before
// desktop Safari.
//
// # Basic Usage
//
//	ua, err := useragent.Parse(r.UserAgent())
//	if errors.Is(err, useragent.ErrEmptyUserAgent) {
//		// no header, ua is the zero value
//	}
//
//	fmt.Println(ua.OSFamily, ua.OSVersion)           // "macos" "10.15.7"
//	fmt.Println(ua.BrowserFamily, ua.BrowserVersion) // "chrome" "120.0.6099.109"
//	fmt.Println(useragent.MajorMinor(ua.BrowserVersion)) // "120.0"
//
// Rule tables are exported so their ordering can be tested in isolation.
package useragent

package useragent

import (
	"strings"
)

// UserAgent is the parsed form of a User-Agent header.
type UserAgent struct {
	Raw            string
	OSFamily       string
	OSDisplay      string
	OSVersion      string
	BrowserFamily  string
	BrowserDisplay string
	BrowserVersion string
	Bot            bool
	Tablet         bool
	Mobile         bool
}

// Parse extracts OS, browser and device hints from ua.
// An empty ua yields the zero value and ErrEmptyUserAgent.
func Parse(ua string) (UserAgent, error) {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return UserAgent{}, ErrEmptyUserAgent
	}

	lower := strings.ToLower(ua)
	out := UserAgent{Raw: ua}

	if r, ver, ok := Match(OSRules, lower); ok {
		out.OSFamily, out.OSDisplay, out.OSVersion = r.Family, r.Display, ver
	}
	if r, ver, ok := Match(BrowserRules, lower); ok {
		out.BrowserFamily, out.BrowserDisplay, out.BrowserVersion = r.Family, r.Display, ver
	}

	out.Bot = containsAny(lower, BotPatterns)
	out.Tablet = containsAny(lower, TabletKeywords) || isAndroidTablet(lower)
	out.Mobile = !out.Tablet && containsAny(lower, MobileKeywords)

	return out, nil
}

// Match returns the first rule in rules matching the lowercased ua and the captured version.
func Match(rules []Rule, lower string) (Rule, string, bool) {
	for _, r := range rules {
		m := r.Pattern.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		ver := ""
		if len(m) > 1 {
			ver = strings.ReplaceAll(m[1], "_", ".")
		}
		return r, ver, true
	}
	return Rule{}, "", false
}

// MajorMinor truncates a dotted version to its first two components.
func MajorMinor(v string) string {
	v = strings.ReplaceAll(strings.TrimSpace(v), "_", ".")
	parts := strings.SplitN(v, ".", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, ".")
}

// Android phones carry "mobile", Android tablets do not.
func isAndroidTablet(lower string) bool {
	return strings.Contains(lower, "android") && !strings.Contains(lower, "mobile")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package useragent

import "regexp"

// Rule maps a pattern to a family. The first capture group, when present, is the version.
type Rule struct {
	Family  string
	Display string
	Pattern *regexp.Regexp
}

func rule(family, display, pattern string) Rule {
	return Rule{Family: family, Display: display, Pattern: regexp.MustCompile(pattern)}
}

// OSRules is evaluated in order against the lowercased user agent.
// Mobile platforms precede their desktop relatives (android before linux,
// windows phone before windows).
var OSRules = []Rule{
	rule("windows phone", "Windows Phone", `windows phone(?: os)? ([\d.]+)`),
	rule("ios", "iOS", `(?:iphone|ipad|ipod).*? os ([\d_]+)`),
	rule("android", "Android", `android ([\d.]+)`),
	rule("android", "Android", `android`),
	rule("chromeos", "ChromeOS", `cros \S+ ([\d.]+)`),
	rule("windows", "Windows", `windows nt ([\d.]+)`),
	rule("macos", "macOS", `mac os x ([\d_.]+)`),
	rule("macos", "macOS", `macintosh`),
	rule("linux", "Linux", `linux`),
}

// BrowserRules is evaluated in order against the lowercased user agent.
// Chromium derivatives precede chrome, mobile safari precedes safari.
var BrowserRules = []Rule{
	rule("edge", "Edge", `(?:edg|edge|edga|edgios)/([\d.]+)`),
	rule("opera", "Opera", `(?:opr|opera)/([\d.]+)`),
	rule("samsung", "Samsung Internet", `samsungbrowser/([\d.]+)`),
	rule("yandex", "Yandex", `yabrowser/([\d.]+)`),
	rule("firefox", "Firefox", `(?:firefox|fxios)/([\d.]+)`),
	rule("chrome", "Chrome", `(?:chrome|crios)/([\d.]+)`),
	rule("mobile safari", "Mobile Safari", `version/([\d.]+).*mobile/\S*.*safari`),
	rule("safari", "Safari", `version/([\d.]+).*safari`),
	rule("ie", "Internet Explorer", `(?:msie |trident/.*rv:)([\d.]+)`),
}

// BotPatterns are substrings that mark automated clients.
var BotPatterns = []string{
	"bot",
	"crawl",
	"spider",
	"slurp",
	"headless",
	"facebookexternalhit",
	"embedly",
	"curl/",
	"wget/",
	"python-requests",
	"go-http-client",
	"okhttp",
	"postmanruntime",
}

// TabletKeywords mark tablets. Checked before MobileKeywords.
var TabletKeywords = []string{
	"ipad",
	"tablet",
	"kindle",
	"silk/",
	"playbook",
}

// MobileKeywords mark phones and other handhelds.
var MobileKeywords = []string{
	"mobile",
	"iphone",
	"ipod",
	"android",
	"windows phone",
	"blackberry",
	"opera mini",
}

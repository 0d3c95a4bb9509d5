package device

import (
	"net/http"
	"strings"

	"github.com/dmitrymomot/gatekeeper/pkg/clientip"
	"github.com/dmitrymomot/gatekeeper/pkg/fingerprint"
	"github.com/dmitrymomot/gatekeeper/pkg/useragent"
)

// Kind classifies the client device.
type Kind string

const (
	KindBot     Kind = "bot"
	KindMobile  Kind = "mobile"
	KindTablet  Kind = "tablet"
	KindDesktop Kind = "desktop"
	KindUnknown Kind = "unknown"
)

const (
	maxIPLen = 64
	maxUALen = 512
)

// Identity is everything derived from one request about the calling device.
type Identity struct {
	Fingerprint    string
	Kind           Kind
	OSFamily       string
	OSVersion      string
	BrowserFamily  string
	BrowserVersion string
	Platform       string
	Label          string
	UserAgent      string
	IP             string
	Location       string
	Host           string
}

// Option configures Resolve.
type Option func(*options)

type options struct {
	seed string
}

// WithSeed mixes a deployment-specific seed into the fingerprint.
func WithSeed(seed string) Option {
	return func(o *options) { o.seed = seed }
}

// Resolve derives the device identity of r.
func Resolve(r *http.Request, opts ...Option) Identity {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rawUA := truncateRunes(strings.TrimSpace(r.UserAgent()), maxUALen)
	ua, _ := useragent.Parse(rawUA)
	platform := Clean(strings.Trim(r.Header.Get("Sec-CH-UA-Platform"), `"`), maxHintLen)
	kind := Classify(ua, r.Header.Get("Sec-CH-UA-Mobile"), platform)

	id := Identity{
		Kind:           kind,
		OSFamily:       ua.OSFamily,
		OSVersion:      ua.OSVersion,
		BrowserFamily:  ua.BrowserFamily,
		BrowserVersion: ua.BrowserVersion,
		Platform:       platform,
		UserAgent:      rawUA,
		IP:             Clean(clientip.GetIP(r), maxIPLen),
		Location:       Location(r.Header),
		Host:           strings.ToLower(Clean(r.Host, maxHintLen)),
	}
	id.Label = label(ua, kind)
	id.Fingerprint = fingerprint.Compute(fingerprint.Components{
		Seed:           o.seed,
		Kind:           string(kind),
		OSFamily:       ua.OSFamily,
		OSVersion:      ua.OSVersion,
		BrowserFamily:  ua.BrowserFamily,
		BrowserVersion: ua.BrowserVersion,
		Platform:       platform,
		AcceptLanguage: r.Header.Get("Accept-Language"),
		UserAgent:      rawUA,
	})

	return id
}

// Resolver resolves identities with a fixed seed.
type Resolver struct {
	seed string
}

// NewResolver creates a Resolver.
func NewResolver(seed string) Resolver {
	return Resolver{seed: seed}
}

// Resolve derives the device identity of r.
func (res Resolver) Resolve(r *http.Request) Identity {
	return Resolve(r, WithSeed(res.seed))
}

var (
	tabletPlatforms = []string{"ipados"}
	mobilePlatforms = []string{"ios", "android"}
)

// Classify applies the kind precedence to a parsed user agent and client hints.
func Classify(ua useragent.UserAgent, mobileHint, platform string) Kind {
	platform = strings.ToLower(platform)
	switch {
	case ua.Bot:
		return KindBot
	case strings.TrimSpace(mobileHint) == "?1":
		return KindMobile
	case ua.Tablet || oneOf(platform, tabletPlatforms):
		return KindTablet
	case ua.Mobile || oneOf(platform, mobilePlatforms):
		return KindMobile
	case ua.Raw != "":
		return KindDesktop
	default:
		return KindUnknown
	}
}

func label(ua useragent.UserAgent, kind Kind) string {
	switch {
	case kind == KindBot:
		return "Bot"
	case ua.BrowserDisplay != "" && ua.OSDisplay != "":
		return ua.BrowserDisplay + " on " + ua.OSDisplay
	case ua.BrowserDisplay != "":
		return ua.BrowserDisplay
	case ua.OSDisplay != "":
		return ua.OSDisplay + " device"
	default:
		return "Unknown device"
	}
}

func oneOf(s string, list []string) bool {
	for _, v := range list {
		if s == v {
			return true
		}
	}
	return false
}

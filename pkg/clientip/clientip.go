package clientip

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
)

// maxHeaderLen bounds how much of a proxy header is inspected.
const maxHeaderLen = 512

var headers = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// ErrInvalidProxy is returned for a trusted proxy entry that is neither an
// address nor a CIDR.
var ErrInvalidProxy = errors.New("clientip: invalid trusted proxy")

// DefaultTrustedProxies are the loopback and private ranges a reverse proxy
// usually connects from.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8", "::1/128",
	"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fc00::/7",
}

// Resolver reads forwarding headers only from trusted peers. A peer outside
// the trusted set is the client itself.
type Resolver struct {
	trusted  []netip.Prefix
	trustAll bool
}

// NewResolver trusts the given addresses and CIDRs. "*" trusts every peer and
// should only be used when the server is unreachable except through a proxy.
func NewResolver(proxies ...string) (*Resolver, error) {
	res := &Resolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
			continue
		case p == "*":
			res.trustAll = true
			continue
		case strings.Contains(p, "/"):
			pfx, err := netip.ParsePrefix(p)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, p)
			}
			res.trusted = append(res.trusted, pfx.Masked())
		default:
			addr, err := netip.ParseAddr(p)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, p)
			}
			addr = addr.Unmap()
			res.trusted = append(res.trusted, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return res, nil
}

var std atomic.Pointer[Resolver]

func init() {
	res, _ := NewResolver(DefaultTrustedProxies...)
	std.Store(res)
}

// SetDefault replaces the resolver GetIP uses.
func SetDefault(res *Resolver) {
	if res != nil {
		std.Store(res)
	}
}

// GetIP returns the client IP for r using the default resolver.
func GetIP(r *http.Request) string { return std.Load().IP(r) }

// Trusted reports whether ip belongs to a trusted proxy.
func (res *Resolver) Trusted(ip string) bool {
	if res.trustAll {
		return true
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap().WithZone("")
	for _, p := range res.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// IP returns the client IP for r. Proxy headers are consulted in the order
// documented in the package, and only when the connecting peer is trusted.
// Falls back to RemoteAddr when no header carries a valid address.
func (res *Resolver) IP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, ok := parse(host)
	if !ok {
		return r.RemoteAddr
	}
	if !res.Trusted(peer) {
		return peer
	}

	for _, h := range headers {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		if len(v) > maxHeaderLen {
			v = v[:maxHeaderLen]
		}
		if h == "X-Forwarded-For" {
			v = res.forwardedClient(v)
		}
		if ip, ok := parse(v); ok {
			return ip
		}
	}
	return peer
}

// forwardedClient walks X-Forwarded-For from the nearest hop and returns the
// first address not owned by a trusted proxy.
func (res *Resolver) forwardedClient(v string) string {
	hops := strings.Split(v, ",")
	if res.trustAll {
		return hops[0]
	}
	for i := len(hops) - 1; i >= 0; i-- {
		ip, ok := parse(hops[i])
		if !ok {
			return ""
		}
		if !res.Trusted(ip) {
			return ip
		}
	}
	return hops[0]
}

// Prefix returns the /24 network for IPv4 and the /64 network (first four groups)
// for IPv6. Values that are not IP addresses are returned trimmed and lowercased.
func Prefix(ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ip))
	}
	addr = addr.Unmap().WithZone("")

	bits := 64
	if addr.Is4() {
		bits = 24
	}
	p, err := addr.Prefix(bits)
	if err != nil {
		return addr.String()
	}
	return p.String()
}

func parse(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	ip := net.ParseIP(v)
	if ip == nil || ip.IsUnspecified() {
		return "", false
	}
	return ip.String(), true
}

package passkey

import (
	"net"
	"strings"
)

// ResolveRPID returns the relying party id for host. Hosts equal to or below one of
// apexes resolve to that apex; localhost-family hosts resolve to "localhost";
// anything else resolves to itself.
func ResolveRPID(host string, apexes []string) string {
	host = hostname(host)
	if isLocal(host) {
		return "localhost"
	}
	for _, apex := range apexes {
		apex = strings.ToLower(strings.Trim(strings.TrimSpace(apex), "."))
		if apex == "" {
			continue
		}
		if host == apex || strings.HasSuffix(host, "."+apex) {
			return apex
		}
	}
	return host
}

// matchesRPID reports whether host lies within the scope of rpID.
func matchesRPID(host, rpID string) bool {
	host = hostname(host)
	if rpID == "localhost" {
		return isLocal(host)
	}
	return host == rpID || strings.HasSuffix(host, "."+rpID)
}

func hostname(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.Trim(host, "[]")
}

func isLocal(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return strings.HasSuffix(host, ".localhost")
}

// Package cookie manages HTTP cookies under a deployment-wide naming policy.
//
// Two mutually exclusive policies exist:
//
//   - Host-only: names carry the "__Host-" prefix and no Domain attribute, so the cookie
//     is readable only by the exact host that set it. Browsers require Secure and Path=/
//     for prefixed cookies; the manager forces both. Outside of Secure deployments the
//     prefix is omitted because browsers would silently drop the cookie.
//   - Shared-domain: plain names with an explicit parent Domain attribute, shared by
//     every subdomain.
//
// The policy is resolved once when the Manager is built. Cookies are then declared
// up front with Define, which returns a Definition holding the final name and
// attributes. Nothing about naming is re-derived per request.
//
// # Basic Usage
//
//	m, err := cookie.New(cookie.Config{Mode: cookie.ModeHostOnly, Secure: true})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	session := m.Define("sid", cookie.WithSameSite(http.SameSiteLaxMode))
//	session.Name() // "__Host-sid"
//
//	err = session.Set(w, value, 30*24*time.Hour)
//	value, err := session.Get(r)
//	if errors.Is(err, cookie.ErrCookieNotFound) {
//		// no cookie
//	}
//	session.Delete(w)
//
// # Size Limit
//
// Set refuses values whose serialized Set-Cookie header exceeds MaxSize (4KB by
// default) and returns ErrCookieTooLarge instead of writing a truncated cookie.
package cookie

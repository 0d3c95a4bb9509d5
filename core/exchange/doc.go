// Package exchange bridges a login from the login host to an application host
// when host-only session cookies make the login host's cookie invisible there.
//
// The login host mints a short-lived exchange ticket and redirects the browser to
// the target host's exchange endpoint:
//
//	tok, _ := x.Mint(handoff.Exchange{UserID: id, Email: email, Next: "/billing"})
//	target, _ := exchange.RedirectURL("https://app.example.com/auth/exchange", tok, "/billing")
//	http.Redirect(w, r, target, http.StatusSeeOther)
//
// The endpoint (Exchange.ServeHTTP) verifies the ticket, asks the Issuer to perform
// full session issuance as if the login had happened on that host, then answers
// 303 to the validated next location. Failures answer 303 to the login path with
// error=exchange_failed and never disclose why the ticket was refused.
//
// next is accepted when it is a relative path ("/x", never "//x") or an absolute
// URL whose host is on the allow-list. Anything else falls back to the default.
package exchange

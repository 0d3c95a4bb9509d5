// Package oauth runs the redirect half of OAuth logins: it mints the signed state
// ticket, keeps a redundant copy in a short-lived cookie, and exchanges the
// authorization code with a bounded timeout and retry.
//
//	flow := oauth.New(codecs.OAuthState, cookies,
//		oauth.WithProvider("google", googleConfig),
//	)
//
//	// GET /oauth/google?next=/billing
//	authURL, err := flow.Begin(w, r, "google", "/billing", "login")
//	http.Redirect(w, r, authURL, http.StatusFound)
//
//	// GET /oauth/callback
//	res, err := flow.Callback(w, r)
//	profile, err := oauth.UserInfo(googleUserInfoURL).FetchProfile(ctx, res.Config, res.Token)
//
// The state ticket is read from the "state" (or "st") query parameter and falls
// back to the cookie when the parameter was lost. When both are present they must
// be identical. The PKCE verifier travels inside the signed ticket.
//
// Provider business rules (account creation, linking) are left to the caller.
package oauth

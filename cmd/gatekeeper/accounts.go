package main

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrymomot/gatekeeper/core/auth"
	"github.com/dmitrymomot/gatekeeper/core/oauth"
)

var errUnverifiedEmail = errors.New("oauth profile email is not verified")

// providerAccounts treats every verified provider identity as a local user.
// Real deployments plug in their own user directory here.
type providerAccounts struct {
	stepUp bool
}

func (a providerAccounts) ResolveOAuth(_ context.Context, provider string, p oauth.Profile) (auth.Login, bool, error) {
	if !p.EmailVerified || strings.TrimSpace(p.Email) == "" {
		return auth.Login{}, false, errUnverifiedEmail
	}
	return auth.Login{
		UserID:   provider + ":" + p.Subject,
		Email:    p.Email,
		FullName: p.Name,
		Method:   "oauth",
		Flow:     provider,
		Remember: true,
	}, a.stepUp, nil
}

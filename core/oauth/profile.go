package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// Profile is the identity a provider reports for the token owner.
type Profile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// ProfileFetcher loads the profile of a token owner.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (Profile, error)
}

// UserInfo fetches an OpenID-style userinfo document from url.
type UserInfo string

type userInfoDoc struct {
	Sub           string          `json:"sub"`
	ID            json.RawMessage `json:"id"`
	Email         string          `json:"email"`
	EmailVerified *bool           `json:"email_verified"`
	VerifiedEmail *bool           `json:"verified_email"`
	Name          string          `json:"name"`
}

const maxUserInfoBytes = 1 << 20

// FetchProfile implements ProfileFetcher.
func (u UserInfo) FetchProfile(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, string(u), nil)
	if err != nil {
		return Profile{}, errors.Join(ErrProfileFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return Profile{}, errors.Join(ErrProfileFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("%w: status %d", ErrProfileFailed, resp.StatusCode)
	}

	var doc userInfoDoc
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoBytes)).Decode(&doc); err != nil {
		return Profile{}, errors.Join(ErrProfileFailed, err)
	}

	p := Profile{
		Subject: doc.Sub,
		Email:   strings.ToLower(strings.TrimSpace(doc.Email)),
		Name:    strings.TrimSpace(doc.Name),
	}
	if p.Subject == "" && len(doc.ID) > 0 {
		p.Subject = strings.Trim(string(doc.ID), `"`)
	}
	switch {
	case doc.EmailVerified != nil:
		p.EmailVerified = *doc.EmailVerified
	case doc.VerifiedEmail != nil:
		p.EmailVerified = *doc.VerifiedEmail
	}
	if p.Subject == "" || p.Email == "" {
		return Profile{}, fmt.Errorf("%w: subject and email are required", ErrProfileFailed)
	}
	return p, nil
}

package sessiontransport

import "time"

// PayloadVersion is the current payload format. Version 2 introduced binds.
const PayloadVersion = 2

// Payload is the signed content of the session cookie.
type Payload struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	IssuedAt   int64  `json:"iat"`
	ExpiresAt  int64  `json:"exp"`
	Version    int    `json:"ver"`
	SID        string `json:"sid"`
	DeviceBind string `json:"did,omitempty"`
	UABind     string `json:"ua,omitempty"`
	IPBind     string `json:"ip,omitempty"`
}

// Claims identify the user a session is issued for.
type Claims struct {
	UserID string
	Email  string
}

// Issued returns iat as time.Time.
func (p Payload) Issued() time.Time { return time.UnixMilli(p.IssuedAt) }

// Expires returns exp as time.Time.
func (p Payload) Expires() time.Time { return time.UnixMilli(p.ExpiresAt) }

// HasBinds reports whether any bind field is present.
func (p Payload) HasBinds() bool {
	return p.DeviceBind != "" || p.UABind != "" || p.IPBind != ""
}

// Identified reports whether the payload carries the fields needed to track it
// server-side. Payloads minted before session tracking lack them.
func (p Payload) Identified() bool {
	return p.SID != "" && p.UserID != "" && p.Email != ""
}

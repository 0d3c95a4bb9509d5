// Package ticket implements short-lived, signed, typed JSON envelopes used to carry
// state across redirects and multi-step flows.
//
// Every ticket shares the same envelope fields (typ, iat, exp, nonce) and adds its own
// payload fields on top. The codec is generic over the payload type, so a ticket minted
// for one flow can never be decoded as a ticket of another flow.
//
// # Token Format
//
// Tokens follow the format: `<base64url-json>.<base64url-hmac>`
//
// Where:
//   - JSON: the payload fields merged with the envelope fields, base64url-encoded (no padding)
//   - HMAC: full HMAC-SHA256 of the encoded JSON segment, base64url-encoded (no padding)
//
// Timestamps (iat, exp) are Unix milliseconds.
//
// # Basic Usage
//
//	type Invite struct {
//		TeamID string `json:"teamId"`
//	}
//
//	func (Invite) TicketType() string { return "invite" }
//
//	tok, err := ticket.Encode(Invite{TeamID: "t1"}, secret, 10*time.Minute)
//	if err != nil {
//		return err
//	}
//
//	inv, err := ticket.Decode[Invite](tok, secret)
//	switch {
//	case errors.Is(err, ticket.ErrExpired):
//		// ask the user to start over
//	case err != nil:
//		// any other failure is terminal for the request
//	}
//
// A Codec bundles the secret, TTL and clock for one variant:
//
//	codec := ticket.NewCodec[Invite](secret, 10*time.Minute)
//	tok, _ := codec.Encode(Invite{TeamID: "t1"})
//	inv, hdr, err := codec.Decode(tok)
//
// Seal and Open expose the bare signed wire format for values that are not tickets
// but want the same integrity guarantees, such as session cookies.
//
// # Verification Order
//
// Decode checks, in order: secret present, token shape, signature (constant-time),
// JSON shape, ticket type, expiry. No payload field is read before the signature
// has been verified.
//
// # Error Handling
//
//   - ErrNoSecret: empty secret, decoding and encoding fail closed
//   - ErrMalformed: wrong shape, bad base64, or bad JSON
//   - ErrSignatureInvalid: HMAC mismatch
//   - ErrTypeMismatch: valid ticket of a different kind
//   - ErrExpired: valid ticket past its exp
//
// Callers should never echo which check failed back to end users.
package ticket

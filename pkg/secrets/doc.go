// Package secrets derives purpose-bound keys from a single application secret and
// generates random identifiers and opaque tokens.
//
// # Key Derivation
//
// Every signing purpose (tickets, session cookies, bind hashes) gets its own 32-byte key
// derived with HKDF-SHA256 from the application secret. A key leaked or misused in one
// place cannot forge values for another.
//
//	ring, err := secrets.NewKeyring(cfg.Secret)
//	if err != nil {
//		return err
//	}
//	ticketKey := ring.Key(secrets.PurposeTicket)
//	bindKey := ring.Key(secrets.PurposeBind)
//
// # Random Values
//
//	did, _ := secrets.RandomHex(32)       // 64 hex chars, device cookie
//	tok, _ := secrets.RandomToken(32)     // base64url, trust token
//	hash := secrets.HashToken(tok)        // hex SHA-256, stored instead of tok
//
// Use Equal for constant-time comparison of secret material.
package secrets

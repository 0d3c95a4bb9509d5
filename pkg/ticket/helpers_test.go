package ticket_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

func signForTest(body string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

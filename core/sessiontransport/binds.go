package sessiontransport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/dmitrymomot/gatekeeper/pkg/clientip"
)

// bindLen is the number of HMAC bytes kept per bind.
const bindLen = 16

const (
	bindDevice = "did"
	bindUA     = "ua"
	bindIP     = "ip"
)

func bindHash(key []byte, kind, value string) string {
	if value == "" {
		return ""
	}
	h := hmac.New(sha256.New, key)
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil)[:bindLen])
}

func normalizedUA(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(r.UserAgent()))
}

func normalizedIP(r *http.Request) string {
	return clientip.Prefix(clientip.GetIP(r))
}

// computeBinds returns the binds enabled in cfg for the given device id and request.
func computeBinds(cfg Config, key []byte, deviceID string, r *http.Request) (did, ua, ip string) {
	if cfg.BindDevice {
		did = bindHash(key, bindDevice, deviceID)
	}
	if cfg.BindUA {
		ua = bindHash(key, bindUA, normalizedUA(r))
	}
	if cfg.BindIP {
		ip = bindHash(key, bindIP, normalizedIP(r))
	}
	return did, ua, ip
}

func equal(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

package passkey_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/core/passkey"
)

var b64 = base64.RawURLEncoding

type authenticator struct {
	t   *testing.T
	key *ecdsa.PrivateKey
	id  []byte
}

func newAuthenticator(t *testing.T) *authenticator {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	id := make([]byte, 16)
	_, err = rand.Read(id)
	require.NoError(t, err)
	return &authenticator{t: t, key: key, id: id}
}

func (a *authenticator) credentialID() string { return b64.EncodeToString(a.id) }

// coseKey encodes the public key as a COSE_Key map {1:2, 3:-7, -1:1, -2:x, -3:y}.
func (a *authenticator) coseKey() []byte {
	x := make([]byte, 32)
	y := make([]byte, 32)
	a.key.PublicKey.X.FillBytes(x)
	a.key.PublicKey.Y.FillBytes(y)

	out := []byte{0xa5, 0x01, 0x02, 0x03, 0x26, 0x20, 0x01, 0x21, 0x58, 0x20}
	out = append(out, x...)
	out = append(out, 0x22, 0x58, 0x20)
	return append(out, y...)
}

func (a *authenticator) credential(userID string, count uint32) passkey.Credential {
	return passkey.Credential{UserID: userID, ID: a.credentialID(), PublicKey: a.coseKey(), SignCount: count}
}

type clientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

type assertOpts struct {
	rpID    string
	counter uint32
	flags   byte
}

func (a *authenticator) assert(cd clientData, o assertOpts) passkey.Assertion {
	a.t.Helper()
	if o.flags == 0 {
		o.flags = 0x05
	}

	clientRaw, err := json.Marshal(cd)
	require.NoError(a.t, err)

	rpHash := sha256.Sum256([]byte(o.rpID))
	authData := append([]byte{}, rpHash[:]...)
	authData = append(authData, o.flags)
	authData = binary.BigEndian.AppendUint32(authData, o.counter)

	clientHash := sha256.Sum256(clientRaw)
	digest := sha256.Sum256(append(append([]byte{}, authData...), clientHash[:]...))
	sig, err := ecdsa.SignASN1(rand.Reader, a.key, digest[:])
	require.NoError(a.t, err)

	return passkey.Assertion{
		CredentialID:      a.credentialID(),
		ClientDataJSON:    b64.EncodeToString(clientRaw),
		AuthenticatorData: b64.EncodeToString(authData),
		Signature:         b64.EncodeToString(sig),
	}
}

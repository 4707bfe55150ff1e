package obs

import (
	"crypto/sha256"
	"encoding/base64"
)

// authResponse computes the OBS WebSocket v5 challenge response:
// base64(sha256(base64(sha256(password + salt)) + challenge)).
// The intermediate secret is base64 encoded before the second hash; the
// server rejects anything hashed over the raw digest.
func authResponse(password, challenge, salt string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	answer := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(answer[:])
}

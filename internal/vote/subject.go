package vote

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// BlindSubject derives the ledger-visible subject id from a voter id.
// The key mixes the process secret with the signer id, so the same
// voter id blinds differently per signer and the ledger never sees a
// raw voter id.
func BlindSubject(secret, signerID, voterID string) string {
	mac := hmac.New(sha256.New, []byte(secret+signerID))
	mac.Write([]byte(voterID))
	return hex.EncodeToString(mac.Sum(nil))
}

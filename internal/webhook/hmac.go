package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// VerifySignature reports whether sigHex is the hex-encoded HMAC-SHA1 of
// body keyed by secret, as sent in Taiga's X-TAIGA-WEBHOOK-SIGNATURE header.
//
// The comparison runs over decoded MAC bytes via crypto/subtle, so it is
// constant-time and accepts either hex case. Malformed hex, an empty
// signature, or an empty secret all verify false; this function never
// reports why. Absence of the header entirely is the caller's condition to
// detect before calling.
func VerifySignature(secret, body []byte, sigHex string) bool {
	if len(secret) == 0 || sigHex == "" {
		return false
	}

	mac := hmac.New(sha1.New, secret)
	mac.Write(body)
	expectedMAC := mac.Sum(nil)

	providedMAC, err := hex.DecodeString(strings.TrimSpace(sigHex))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(expectedMAC, providedMAC) == 1
}

// SignHex computes the lowercase-hex HMAC-SHA1 signature for a body.
// This is what the sender puts on the wire; used in tests.
func SignHex(secret, body []byte) string {
	mac := hmac.New(sha1.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

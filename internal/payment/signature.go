package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the gateway's HMAC over the raw webhook body.
const SignatureHeader = "x-paychangu-signature"

// Sign returns the lowercase hex HMAC-SHA256 of body under secret.
func Sign(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is the HMAC of body under secret.
// The comparison runs in constant time over a fixed-length buffer, so a
// signature of the wrong length costs the same as one with the wrong bytes.
func VerifySignature(body []byte, signature string, secret []byte) bool {
	if signature == "" || len(secret) == 0 {
		return false
	}

	expected := []byte(Sign(body, secret))
	provided := make([]byte, len(expected))
	copy(provided, strings.ToLower(strings.TrimSpace(signature)))

	sameLen := subtle.ConstantTimeEq(int32(len(strings.TrimSpace(signature))), int32(len(expected)))
	return subtle.ConstantTimeCompare(expected, provided)&sameLen == 1
}

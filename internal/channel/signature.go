package channel

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader header Meta signs webhook deliveries with
const SignatureHeader = "X-Hub-Signature-256"

// Verify checks an X-Hub-Signature-256 value ("sha256=<hex>") against the raw body
func Verify(signature string, body []byte, secret string) bool {
	if secret == "" || !strings.HasPrefix(signature, "sha256=") {
		return false
	}

	expected, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hmac.Equal(expected, mac.Sum(nil))
}

// Sign computes the X-Hub-Signature-256 value for body
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

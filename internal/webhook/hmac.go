package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

const signaturePrefix = "sha256="

// Sign returns the "sha256=<hex>" HMAC-SHA256 signature of body.
func Sign(body []byte, secret string) string {
	return signaturePrefix + computeSignature(body, secret)
}

// Verify checks an HMAC-SHA256 signature against body. It is the receiving
// half of Sign, for services that consume tfboot callbacks.
//
// Accepted formats:
//   - "sha256=<hex>"
//   - "<hex>"
//
// All errors are generic.
func Verify(body []byte, signature, secret string) error {
	if secret == "" || signature == "" {
		return fmt.Errorf("webhook verification failed")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedMAC := mac.Sum(nil)

	actualMAC, err := parseSignature(signature)
	if err != nil {
		return fmt.Errorf("webhook verification failed")
	}

	if subtle.ConstantTimeCompare(expectedMAC, actualMAC) != 1 {
		return fmt.Errorf("webhook verification failed")
	}
	return nil
}

func parseSignature(signature string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(signature, signaturePrefix))
}

func computeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentSignature is the signature expected for a completed checkout.
func PaymentSignature(secret, orderID, paymentID string) string {
	return Sign(secret, []byte(orderID+"|"+paymentID))
}

func validSignature(secret string, payload []byte, provided string) bool {
	provided = strings.TrimSpace(provided)
	if strings.TrimSpace(secret) == "" || provided == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, payload)), []byte(strings.ToLower(provided)))
}

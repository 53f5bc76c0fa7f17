package security

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-langganan/internal/common"
)

// BodyLimit caps request payloads. Webhook routes get their own, larger cap
// because gateway payloads embed the full payment entity.
type BodyLimit struct {
	Max int64
}

// Middleware rejects oversized bodies with 413. Bodies without a declared
// length are wrapped so the decoder fails once it reads past Max.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			tooLarge(w)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}

// IsTooLarge reports whether err came from reading past a BodyLimit cap.
func IsTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func tooLarge(w http.ResponseWriter) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
}

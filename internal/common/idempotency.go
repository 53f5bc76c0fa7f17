package common

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader carries the client-chosen key for a write request.
const IdempotencyHeader = "Idempotency-Key"

const idemPending = "pending"

// Idem makes write endpoints safe to retry. The first request under a key
// runs normally and its response is stored. Later requests with the same key
// from the same caller and route get the stored response back with an
// Idempotent-Replayed header. Requests arriving while the first is still
// running get 409. Responses with status 5xx are not stored.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body"`
}

func idemKey(userID, method, path, key string) string {
	sum := sha256.Sum256([]byte(userID + "|" + method + " " + path + "|" + key))
	return "langganan:idem:" + hex.EncodeToString(sum[:])
}

// Middleware implements chi middleware.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		if len(header) > 255 {
			JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "idempotency key too long", nil)
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		userID, _ := UserID(r.Context())
		key := idemKey(userID, r.Method, r.URL.Path, header)

		fresh, err := i.R.SetNX(r.Context(), key, idemPending, ttl).Result()
		if err != nil {
			JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store unavailable", nil)
			return
		}
		if !fresh {
			i.replay(w, r, key)
			return
		}

		var body bytes.Buffer
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&body)
		completed := false
		defer func() {
			// Release the key when the handler fails or panics so the client may retry.
			ctx := context.WithoutCancel(r.Context())
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if !completed || status >= http.StatusInternalServerError {
				_ = i.R.Del(ctx, key).Err()
				return
			}
			encoded, err := json.Marshal(storedResponse{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        body.Bytes(),
			})
			if err != nil {
				_ = i.R.Del(ctx, key).Err()
				return
			}
			_ = i.R.Set(ctx, key, encoded, ttl).Err()
		}()
		next.ServeHTTP(ww, r)
		completed = true
	})
}

func (i Idem) replay(w http.ResponseWriter, r *http.Request, key string) {
	raw, err := i.R.Get(r.Context(), key).Result()
	if errors.Is(err, redis.Nil) || raw == idemPending {
		JSONError(w, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "a request with this idempotency key is still running", nil)
		return
	}
	if err != nil {
		JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store unavailable", nil)
		return
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		JSONError(w, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "a request with this idempotency key is still running", nil)
		return
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

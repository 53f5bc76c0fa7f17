package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-langganan/internal/common"
	"github.com/noah-isme/backend-langganan/internal/obs"
)

// WebhookSettler applies a verified gateway outcome to local state.
type WebhookSettler interface {
	ApplyWebhook(ctx context.Context, provider string, res WebhookResult) error
}

// Webhook handles payment provider callbacks, including signature verification
// and replay suppression.
type Webhook struct {
	Providers *Registry
	Settler   WebhookSettler
	Replay    *redis.Client
	ReplayTTL time.Duration
	Logger    zerolog.Logger
}

// Handle processes POST /webhooks/payment/{provider}.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Providers == nil || h.Settler == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	providerKey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
	provider, err := h.Providers.Get(providerKey)
	if err != nil {
		common.JSONError(w, http.StatusNotFound, "PROVIDER_NOT_SUPPORTED", "unknown provider", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxGatewayBody))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	result, err := provider.VerifyWebhook(r, body)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			obs.IncCounter(obs.PaymentWebhookTotal, providerKey, "invalid_signature")
			common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
			return
		}
		obs.IncCounter(obs.PaymentWebhookTotal, providerKey, "invalid")
		common.JSONError(w, http.StatusBadRequest, "WEBHOOK_INVALID", err.Error(), nil)
		return
	}
	release := func() {}
	if h.Replay != nil && h.ReplayTTL > 0 {
		sum := sha256.Sum256(body)
		key := "langganan:pay-wh:" + providerKey + ":" + hex.EncodeToString(sum[:])
		fresh, err := h.Replay.SetNX(r.Context(), key, "1", h.ReplayTTL).Result()
		if err != nil {
			h.Logger.Error().Err(err).Str("provider", providerKey).Msg("payment_webhook_replay_store")
			common.JSONError(w, http.StatusServiceUnavailable, "REPLAY_STORE_UNAVAILABLE", "try again later", nil)
			return
		}
		if !fresh {
			// Gateways retry until they see a 2xx, so a duplicate is acknowledged.
			obs.IncCounter(obs.PaymentWebhookTotal, providerKey, "replay")
			common.JSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
		release = func() { _ = h.Replay.Del(context.WithoutCancel(r.Context()), key).Err() }
	}
	if result.Status == WebhookIgnored {
		obs.IncCounter(obs.PaymentWebhookTotal, providerKey, "ignored")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.Settler.ApplyWebhook(r.Context(), provider.Name(), result); err != nil {
		release()
		obs.IncCounter(obs.PaymentWebhookTotal, providerKey, "error")
		h.Logger.Error().Err(err).Str("provider", providerKey).Str("order", result.OrderID).Msg("payment_webhook_failed")
		common.WriteError(w, err)
		return
	}
	obs.IncCounter(obs.PaymentWebhookTotal, providerKey, strings.ToLower(string(result.Status)))
	w.WriteHeader(http.StatusNoContent)
}

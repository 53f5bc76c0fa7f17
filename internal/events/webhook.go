package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-langganan/internal/db"
	dbgen "github.com/noah-isme/backend-langganan/internal/db/gen"
	"github.com/noah-isme/backend-langganan/internal/obs"
)

// WebhookNotifier posts signed event envelopes to outbound subscriber URLs.
type WebhookNotifier struct {
	Endpoints []string
	Secret    string
	Client    *http.Client
	// Redis, when set, suppresses a second delivery of the same event to the
	// same endpoint within ReplayTTL.
	Redis     *redis.Client
	ReplayTTL time.Duration
	Logger    zerolog.Logger
	Now       func() time.Time
}

type envelope struct {
	EventID     string          `json:"eventId"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Data        json.RawMessage `json:"data"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// Notify implements Notifier.
func (n WebhookNotifier) Notify(ctx context.Context, event dbgen.DomainEvent) error {
	if len(n.Endpoints) == 0 {
		return nil
	}
	occurred := db.Time(event.OccurredAt)
	if occurred.IsZero() {
		occurred = n.now()
	}
	data := json.RawMessage(event.Payload)
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	body, err := json.Marshal(envelope{
		EventID:     db.UUIDString(event.ID),
		Topic:       event.Topic,
		AggregateID: db.UUIDString(event.AggregateID),
		Data:        data,
		OccurredAt:  occurred.UTC(),
	})
	if err != nil {
		return err
	}
	var joined error
	for _, endpoint := range n.Endpoints {
		if err := n.deliver(ctx, endpoint, db.UUIDString(event.ID), event.Topic, body); err != nil {
			obs.IncCounter(obs.EventDeliveriesTotal, "failed")
			n.Logger.Warn().Err(err).Str("endpoint", endpoint).Str("topic", event.Topic).Msg("event_delivery_failed")
			joined = errors.Join(joined, err)
		}
	}
	return joined
}

func (n WebhookNotifier) deliver(ctx context.Context, endpoint, eventID, topic string, body []byte) error {
	ctx, span := otel.Tracer("events.WebhookNotifier").Start(ctx, "WebhookNotifier.deliver")
	defer span.End()
	span.SetAttributes(attribute.String("event.topic", topic), attribute.String("event.id", eventID))

	if err := ValidateEndpoint(endpoint); err != nil {
		return err
	}
	if n.Redis != nil && n.ReplayTTL > 0 {
		fresh, err := n.Redis.SetNX(ctx, "langganan:evt:"+endpoint+":"+eventID, 1, n.ReplayTTL).Result()
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("replay guard: %w", err)
		}
		if !fresh {
			obs.IncCounter(obs.EventDeliveriesTotal, "suppressed")
			return nil
		}
	}

	ts := n.now().Unix()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "langganan-events/1.0")
	req.Header.Set("X-Event-ID", eventID)
	req.Header.Set("X-Event-Topic", topic)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Signature", Sign(n.Secret, ts, eventID, body))

	resp, err := n.client().Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("deliver %s: %w", topic, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("deliver %s: endpoint returned %d", topic, resp.StatusCode)
	}
	obs.IncCounter(obs.EventDeliveriesTotal, "delivered")
	return nil
}

func (n WebhookNotifier) client() *http.Client {
	if n.Client != nil {
		return n.Client
	}
	return &http.Client{Timeout: 5 * time.Second}
}

func (n WebhookNotifier) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

// Sign returns the hex HMAC-SHA256 of "<ts>.<eventID>.<body>" keyed by secret.
func Sign(secret string, ts int64, eventID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(eventID))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateEndpoint accepts https URLs, and plain http only for loopback hosts.
func ValidateEndpoint(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid endpoint url: %w", err)
	}
	if parsed.Host == "" {
		return errors.New("endpoint url must include host")
	}
	switch parsed.Scheme {
	case "https":
		return nil
	case "http":
		host := parsed.Hostname()
		if host == "localhost" || host == "127.0.0.1" {
			return nil
		}
		return errors.New("plain http endpoints are only allowed for localhost")
	default:
		return errors.New("endpoint url must be http or https")
	}
}

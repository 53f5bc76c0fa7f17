package events

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-langganan/internal/db"
	dbgen "github.com/noah-isme/backend-langganan/internal/db/gen"
	"github.com/noah-isme/backend-langganan/internal/plans"
)

// LogNotifier writes every event to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, event dbgen.DomainEvent) error {
	n.Logger.Info().
		Str("event_id", db.UUIDString(event.ID)).
		Str("topic", event.Topic).
		Str("aggregate_id", db.UUIDString(event.AggregateID)).
		RawJSON("payload", event.Payload).
		Msg("domain_event")
	return nil
}

// PlansFallbackRecorder turns plan fallbacks into plans.fallback events.
type PlansFallbackRecorder struct {
	Bus    *Bus
	Logger zerolog.Logger
}

// PlansFallback implements plans.FallbackNotifier.
func (r PlansFallbackRecorder) PlansFallback(ctx context.Context, ref plans.ProductRef, reason string) {
	payload, _ := json.Marshal(map[string]string{
		"productId": ref.ID,
		"name":      ref.Name,
		"reason":    reason,
	})
	if _, err := r.Bus.Emit(ctx, TopicPlansFallback, AggregateID(ref.ID), payload); err != nil {
		r.Logger.Warn().Err(err).Str("product", ref.ID).Msg("plans_fallback_event_failed")
	}
}

package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	dbgen "github.com/noah-isme/backend-langganan/internal/db/gen"
	"github.com/noah-isme/backend-langganan/internal/events"
	"github.com/noah-isme/backend-langganan/internal/plans"
)

type stubStore struct {
	lastParams dbgen.InsertDomainEventParams
	event      dbgen.DomainEvent
}

func (s *stubStore) InsertDomainEvent(_ context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error) {
	s.lastParams = arg
	if !s.event.ID.Valid {
		id := uuid.New()
		s.event.ID = pgtype.UUID{Bytes: id, Valid: true}
	}
	s.event.Topic = arg.Topic
	s.event.AggregateID = arg.AggregateID
	s.event.Payload = arg.Payload
	if !s.event.OccurredAt.Valid {
		s.event.OccurredAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	}
	return s.event, nil
}

type captureScheduler struct {
	events []dbgen.DomainEvent
}

func (c *captureScheduler) Schedule(_ context.Context, event dbgen.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

type captureNotifier struct {
	events []dbgen.DomainEvent
}

func (c *captureNotifier) Notify(_ context.Context, event dbgen.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func toUUID(u uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: u, Valid: true}
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	scheduler := &captureScheduler{}
	notifier := &captureNotifier{}
	bus := events.Bus{
		Store:     store,
		Scheduler: scheduler,
		Notifiers: []events.Notifier{notifier},
	}

	aggregate := uuid.New()
	payload := map[string]any{"subscriptionId": "123"}
	ctx := context.Background()
	event, err := bus.Emit(ctx, events.TopicSubscriptionCreated, toUUID(aggregate), payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicSubscriptionCreated, store.lastParams.Topic)
	require.JSONEq(t, `{"subscriptionId":"123"}`, string(store.lastParams.Payload))
	require.Len(t, scheduler.events, 1)
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, scheduler.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, "123", decoded["subscriptionId"])
}

func TestEmitValidatesInput(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	ctx := context.Background()

	_, err := bus.Emit(ctx, " ", toUUID(uuid.New()), nil)
	require.Error(t, err)
	_, err = bus.Emit(ctx, "subscription.renamed", toUUID(uuid.New()), nil)
	require.ErrorContains(t, err, "unknown topic")
	_, err = bus.Emit(ctx, events.TopicSubscriptionCreated, pgtype.UUID{}, nil)
	require.Error(t, err)
	_, err = bus.Emit(ctx, events.TopicSubscriptionCreated, toUUID(uuid.New()), "not json")
	require.Error(t, err)

	ev, err := bus.Emit(ctx, events.TopicSubscriptionCreated, toUUID(uuid.New()), nil)
	require.NoError(t, err)
	require.Equal(t, "{}", string(ev.Payload))
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, dbgen.DomainEvent) error {
	return errors.New("subscriber endpoint down")
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	capture := &captureNotifier{}
	bus := events.Bus{Store: &stubStore{}, Notifiers: []events.Notifier{failingNotifier{}, nil, capture}}
	ev, err := bus.Emit(context.Background(), events.TopicSubscriptionFailed, toUUID(uuid.New()), nil)
	require.Error(t, err)
	require.True(t, ev.ID.Valid)
	require.Len(t, capture.events, 1)
}

func TestAggregateIDIsStable(t *testing.T) {
	id := uuid.New()
	require.Equal(t, toUUID(id), events.AggregateID(id.String()))
	require.Equal(t, events.AggregateID("zee5"), events.AggregateID("ZEE5"))
	require.NotEqual(t, events.AggregateID("zee5"), events.AggregateID("sonyliv"))
}

func TestPlansFallbackRecorderEmits(t *testing.T) {
	store := &stubStore{}
	var buf bytes.Buffer
	bus := &events.Bus{Store: store, Notifiers: []events.Notifier{events.LogNotifier{Logger: zerolog.New(&buf)}}}
	rec := events.PlansFallbackRecorder{Bus: bus, Logger: zerolog.Nop()}

	rec.PlansFallback(context.Background(), plans.ProductRef{ID: "zee5", Name: "ZEE5"}, "fetch_error")
	require.Equal(t, events.TopicPlansFallback, store.lastParams.Topic)
	require.JSONEq(t, `{"productId":"zee5","name":"ZEE5","reason":"fetch_error"}`, string(store.lastParams.Payload))
	require.Contains(t, buf.String(), `"topic":"plans.fallback"`)
	require.Contains(t, buf.String(), `"reason":"fetch_error"`)
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-langganan/internal/common"
	"github.com/noah-isme/backend-langganan/internal/obs"
	"github.com/noah-isme/backend-langganan/internal/plans"
)

// PlansRefresher reloads one product's vendor plans into the cache.
type PlansRefresher interface {
	Refresh(ctx context.Context, ref plans.ProductRef) (plans.Listing, error)
}

// SubscriptionExpirer fails unpaid checkouts.
type SubscriptionExpirer interface {
	Expire(ctx context.Context, id string) (bool, error)
	ExpireStale(ctx context.Context, limit int) (int, error)
}

// Handlers processes background tasks.
type Handlers struct {
	Plans         PlansRefresher
	Products      plans.ProductResolver
	Subscriptions SubscriptionExpirer
	Logger        zerolog.Logger
}

// Register binds every task type to mux.
func (h Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePlansRefresh, h.RefreshPlans)
	mux.HandleFunc(TypeSubscriptionExpire, h.ExpireSubscription)
	mux.HandleFunc(TypeSubscriptionsSweep, h.SweepSubscriptions)
}

// RefreshPlans handles plans:refresh. Products unknown to the catalog are
// refreshed by vendor key so adapters configured by key still work.
func (h Handlers) RefreshPlans(ctx context.Context, t *asynq.Task) error {
	var p PlansRefreshPayload
	if err := decode(t, &p); err != nil || p.Product == "" {
		return h.reject(t, err)
	}
	if h.Plans == nil {
		return fmt.Errorf("jobs: plans refresher not configured: %w", asynq.SkipRetry)
	}
	ref := plans.ProductRef{ID: p.Product}
	if h.Products != nil {
		resolved, err := h.Products.PlanRef(ctx, p.Product)
		switch {
		case err == nil:
			ref = resolved
		case isNotFound(err):
		default:
			return h.done(t, err)
		}
	}
	start := time.Now()
	listing, err := h.Plans.Refresh(ctx, ref)
	if err != nil {
		return h.done(t, err)
	}
	h.Logger.Info().
		Str("product", ref.ID).
		Str("source", string(listing.Source)).
		Int("plans", len(listing.Plans)).
		Dur("took", time.Since(start)).
		Msg("plans_refreshed")
	return h.done(t, nil)
}

// ExpireSubscription handles subscriptions:expire.
func (h Handlers) ExpireSubscription(ctx context.Context, t *asynq.Task) error {
	var p SubscriptionExpirePayload
	if err := decode(t, &p); err != nil || p.SubscriptionID == "" {
		return h.reject(t, err)
	}
	if h.Subscriptions == nil {
		return fmt.Errorf("jobs: subscription service not configured: %w", asynq.SkipRetry)
	}
	expired, err := h.Subscriptions.Expire(ctx, p.SubscriptionID)
	if err != nil {
		if isNotFound(err) {
			return h.reject(t, err)
		}
		return h.done(t, err)
	}
	if expired {
		h.Logger.Info().Str("subscription", p.SubscriptionID).Msg("subscription_expired")
	}
	return h.done(t, nil)
}

// SweepSubscriptions handles subscriptions:sweep, the periodic safety net for
// expiry tasks that were never scheduled.
func (h Handlers) SweepSubscriptions(ctx context.Context, t *asynq.Task) error {
	var p SweepPayload
	if len(t.Payload()) > 0 {
		if err := decode(t, &p); err != nil {
			return h.reject(t, err)
		}
	}
	if h.Subscriptions == nil {
		return fmt.Errorf("jobs: subscription service not configured: %w", asynq.SkipRetry)
	}
	if p.Limit <= 0 {
		p.Limit = sweepBatch
	}
	n, err := h.Subscriptions.ExpireStale(ctx, p.Limit)
	if err != nil {
		return h.done(t, err)
	}
	if n > 0 {
		h.Logger.Info().Int("expired", n).Msg("subscriptions_swept")
	}
	return h.done(t, nil)
}

func (h Handlers) done(t *asynq.Task, err error) error {
	result := "ok"
	if err != nil {
		result = "error"
		h.Logger.Warn().Err(err).Str("task", t.Type()).Msg("task_failed")
	}
	obs.IncCounter(obs.JobsProcessedTotal, t.Type(), result)
	return err
}

func (h Handlers) reject(t *asynq.Task, err error) error {
	if err == nil {
		err = errors.New("missing required field")
	}
	obs.IncCounter(obs.JobsProcessedTotal, t.Type(), "invalid")
	h.Logger.Error().Err(err).Str("task", t.Type()).Msg("task_rejected")
	return fmt.Errorf("jobs: invalid %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
}

func decode(t *asynq.Task, dst any) error {
	if err := json.Unmarshal(t.Payload(), dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var appErr *common.AppError
	return errors.As(err, &appErr) && appErr.Code == "NOT_FOUND"
}

package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TypePlansRefresh       = "plans:refresh"
	TypeSubscriptionExpire = "subscriptions:expire"
	TypeSubscriptionsSweep = "subscriptions:sweep"
	sweepBatch             = 200
)

// PlansRefreshPayload names the product whose cached plans should be reloaded.
type PlansRefreshPayload struct {
	Product string `json:"product"`
}

// SubscriptionExpirePayload names a checkout to fail if it is still unpaid.
type SubscriptionExpirePayload struct {
	SubscriptionID string `json:"subscriptionId"`
}

// SweepPayload bounds one stale-checkout sweep.
type SweepPayload struct {
	Limit int `json:"limit"`
}

// NewPlansRefreshTask builds a plans:refresh task for product.
func NewPlansRefreshTask(product string) (*asynq.Task, error) {
	product = strings.TrimSpace(product)
	if product == "" {
		return nil, fmt.Errorf("jobs: product is required")
	}
	raw, err := json.Marshal(PlansRefreshPayload{Product: product})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePlansRefresh, raw, asynq.MaxRetry(3)), nil
}

// NewSubscriptionExpireTask builds a subscriptions:expire task.
func NewSubscriptionExpireTask(subscriptionID string) (*asynq.Task, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return nil, fmt.Errorf("jobs: subscription id is required")
	}
	raw, err := json.Marshal(SubscriptionExpirePayload{SubscriptionID: subscriptionID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSubscriptionExpire, raw, asynq.MaxRetry(5)), nil
}

// NewSweepTask builds a subscriptions:sweep task.
func NewSweepTask(limit int) (*asynq.Task, error) {
	if limit <= 0 {
		limit = sweepBatch
	}
	raw, err := json.Marshal(SweepPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSubscriptionsSweep, raw, asynq.MaxRetry(1)), nil
}

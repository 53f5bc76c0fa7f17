package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	dbgen "github.com/noah-isme/backend-langganan/internal/db/gen"
	"github.com/noah-isme/backend-langganan/internal/events"
)

// Enqueuer is the subset of *asynq.Client used to queue tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler turns domain events into delayed tasks. It implements
// events.Scheduler.
type Scheduler struct {
	Client Enqueuer
	// ExpireAfter delays the expiry check of a new checkout.
	ExpireAfter time.Duration
	// RefreshAfter delays the plan refresh that follows a vendor fallback.
	RefreshAfter time.Duration
}

// Schedule implements events.Scheduler.
func (s Scheduler) Schedule(ctx context.Context, ev dbgen.DomainEvent) error {
	if s.Client == nil {
		return nil
	}
	switch ev.Topic {
	case events.TopicSubscriptionCreated:
		var p struct {
			SubscriptionID string `json:"subscriptionId"`
			Status         string `json:"status"`
		}
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("jobs: decode %s: %w", ev.Topic, err)
		}
		if p.Status != "PENDING" {
			return nil
		}
		task, err := NewSubscriptionExpireTask(p.SubscriptionID)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, task, "expire:"+p.SubscriptionID, orDefault(s.ExpireAfter, 30*time.Minute))
	case events.TopicPlansFallback:
		var p struct {
			ProductID string `json:"productId"`
		}
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("jobs: decode %s: %w", ev.Topic, err)
		}
		task, err := NewPlansRefreshTask(p.ProductID)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, task, "plans-refresh:"+p.ProductID, orDefault(s.RefreshAfter, 5*time.Minute))
	}
	return nil
}

// Enqueue queues task immediately.
func (s Scheduler) Enqueue(ctx context.Context, task *asynq.Task) (*asynq.TaskInfo, error) {
	if s.Client == nil {
		return nil, errors.New("jobs: task client not configured")
	}
	return s.Client.EnqueueContext(ctx, task)
}

func (s Scheduler) enqueue(ctx context.Context, task *asynq.Task, id string, delay time.Duration) error {
	_, err := s.Client.EnqueueContext(ctx, task, asynq.TaskID(id), asynq.ProcessIn(delay))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

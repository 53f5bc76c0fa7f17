package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-langganan/internal/common"
	dbgen "github.com/noah-isme/backend-langganan/internal/db/gen"
	"github.com/noah-isme/backend-langganan/internal/events"
	"github.com/noah-isme/backend-langganan/internal/jobs"
	"github.com/noah-isme/backend-langganan/internal/plans"
)

type fakeRefresher struct {
	refs []plans.ProductRef
	err  error
}

func (f *fakeRefresher) Refresh(_ context.Context, ref plans.ProductRef) (plans.Listing, error) {
	f.refs = append(f.refs, ref)
	return plans.Listing{ProductID: ref.ID, Source: plans.SourceVendor}, f.err
}

type fakeExpirer struct {
	expired []string
	swept   int
}

func (f *fakeExpirer) Expire(_ context.Context, id string) (bool, error) {
	if id == "missing" {
		return false, common.NotFound("subscription", pgx.ErrNoRows)
	}
	f.expired = append(f.expired, id)
	return true, nil
}

func (f *fakeExpirer) ExpireStale(_ context.Context, limit int) (int, error) {
	f.swept = limit
	return 2, nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

type fakeRegistrar struct {
	specs []string
	types []string
}

func (f *fakeRegistrar) Register(spec string, task *asynq.Task, _ ...asynq.Option) (string, error) {
	f.specs = append(f.specs, spec)
	f.types = append(f.types, task.Type())
	return spec, nil
}

func TestRefreshPlansResolvesProduct(t *testing.T) {
	refresher := &fakeRefresher{}
	h := jobs.Handlers{
		Plans:    refresher,
		Products: plans.StaticResolver{"zee5": {ID: "zee5-vendor", Name: "ZEE5"}},
	}
	task, err := jobs.NewPlansRefreshTask("zee5")
	require.NoError(t, err)
	require.NoError(t, h.RefreshPlans(context.Background(), task))

	unknown, err := jobs.NewPlansRefreshTask("sonyliv")
	require.NoError(t, err)
	require.NoError(t, h.RefreshPlans(context.Background(), unknown))

	require.Len(t, refresher.refs, 2)
	require.Equal(t, "zee5-vendor", refresher.refs[0].ID)
	require.Equal(t, "sonyliv", refresher.refs[1].ID)
}

func TestInvalidPayloadSkipsRetry(t *testing.T) {
	h := jobs.Handlers{Plans: &fakeRefresher{}, Subscriptions: &fakeExpirer{}}
	err := h.RefreshPlans(context.Background(), asynq.NewTask(jobs.TypePlansRefresh, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ExpireSubscription(context.Background(), asynq.NewTask(jobs.TypeSubscriptionExpire, []byte(`{}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)

	_, err = jobs.NewPlansRefreshTask(" ")
	require.Error(t, err)
}

func TestRefreshErrorIsRetried(t *testing.T) {
	h := jobs.Handlers{Plans: &fakeRefresher{err: errors.New("redis down")}}
	task, err := jobs.NewPlansRefreshTask("zee5")
	require.NoError(t, err)
	err = h.RefreshPlans(context.Background(), task)
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestExpireAndSweep(t *testing.T) {
	expirer := &fakeExpirer{}
	h := jobs.Handlers{Subscriptions: expirer}

	task, err := jobs.NewSubscriptionExpireTask("sub-1")
	require.NoError(t, err)
	require.NoError(t, h.ExpireSubscription(context.Background(), task))
	require.Equal(t, []string{"sub-1"}, expirer.expired)

	missing, err := jobs.NewSubscriptionExpireTask("missing")
	require.NoError(t, err)
	require.ErrorIs(t, h.ExpireSubscription(context.Background(), missing), asynq.SkipRetry)

	sweep, err := jobs.NewSweepTask(0)
	require.NoError(t, err)
	require.NoError(t, h.SweepSubscriptions(context.Background(), sweep))
	require.Equal(t, 200, expirer.swept)
}

func event(t *testing.T, topic string, payload any) dbgen.DomainEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return dbgen.DomainEvent{Topic: topic, AggregateID: events.AggregateID("x"), Payload: raw}
}

func TestSchedulerQueuesFollowUps(t *testing.T) {
	client := &fakeEnqueuer{}
	s := jobs.Scheduler{Client: client, ExpireAfter: time.Minute}
	ctx := context.Background()

	require.NoError(t, s.Schedule(ctx, event(t, events.TopicSubscriptionCreated, map[string]any{"subscriptionId": "sub-1", "status": "PENDING"})))
	require.NoError(t, s.Schedule(ctx, event(t, events.TopicSubscriptionCreated, map[string]any{"subscriptionId": "sub-2", "status": "ACTIVE"})))
	require.NoError(t, s.Schedule(ctx, event(t, events.TopicPlansFallback, map[string]any{"productId": "zee5", "reason": "timeout"})))
	require.NoError(t, s.Schedule(ctx, event(t, events.TopicBundleUpdated, map[string]any{"bundleId": "b"})))

	require.Len(t, client.tasks, 2)
	require.Equal(t, jobs.TypeSubscriptionExpire, client.tasks[0].Type())
	require.JSONEq(t, `{"subscriptionId":"sub-1"}`, string(client.tasks[0].Payload()))
	require.Equal(t, jobs.TypePlansRefresh, client.tasks[1].Type())
	require.Len(t, client.opts[0], 2)
}

func TestSchedulerIgnoresDuplicateTaskID(t *testing.T) {
	s := jobs.Scheduler{Client: &fakeEnqueuer{err: asynq.ErrTaskIDConflict}}
	err := s.Schedule(context.Background(), event(t, events.TopicSubscriptionCreated, map[string]any{"subscriptionId": "sub-1", "status": "PENDING"}))
	require.NoError(t, err)
}

func TestRegisterPeriodic(t *testing.T) {
	r := &fakeRegistrar{}
	require.NoError(t, jobs.RegisterPeriodic(r, []string{"zee5", "sonyliv"}, time.Hour, 0))
	require.Equal(t, []string{"@every 1h0m0s", "@every 1h0m0s", "@every 5m0s"}, r.specs)
	require.Equal(t, []string{jobs.TypePlansRefresh, jobs.TypePlansRefresh, jobs.TypeSubscriptionsSweep}, r.types)
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-langganan/internal/auth"
	"github.com/noah-isme/backend-langganan/internal/jobs"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQuoteCurated(t *testing.T) {
	out, err := execute(t, "", "quote",
		"--item", "quickbooks=10:8", "--item", "xero=20:15", "--item", "freshbooks=30:24",
		"--savings", "22")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, float64(3), got["totalProducts"])
	require.Equal(t, "60", got["individualPrice"])
	require.Equal(t, "47", got["bundlePrice"])
	require.Equal(t, "13", got["savingsAmount"])
	require.Equal(t, float64(22), got["savingsPercentage"])
	require.Equal(t, "507.6", got["annualPrice"])
	require.Len(t, got["lines"], 3)
}

func TestQuoteBuilderUsesTier(t *testing.T) {
	out, err := execute(t, "", "quote", "--builder", "--item", "a=10", "--item", "b=30")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, float64(15), got["savingsPercentage"])
	require.Equal(t, "34", got["bundlePrice"])
}

func TestQuoteRejectsBadItems(t *testing.T) {
	_, err := execute(t, "", "quote", "--item", "broken")
	require.Error(t, err)
	_, err = execute(t, "", "quote", "--item", "a=-1:2")
	require.Error(t, err)
	_, err = execute(t, "", "quote")
	require.Error(t, err)
}

func TestNormalizeFromStdin(t *testing.T) {
	payload := `[{"plan_id":"plan_A0qs3dlK","plan_name":"1 Month","plan_cost":60,"plan_mrp":80}]`
	out, err := execute(t, payload, "normalize", "-", "--product", "zee5")
	require.NoError(t, err)

	var res struct {
		Plans []struct {
			ID                 string `json:"id"`
			Price              string `json:"price"`
			DiscountPercentage int    `json:"discountPercentage"`
		} `json:"plans"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Plans, 1)
	require.Equal(t, "plan_A0qs3dlK", res.Plans[0].ID)
	require.Equal(t, "60", res.Plans[0].Price)
	require.Equal(t, 25, res.Plans[0].DiscountPercentage)

	_, err = execute(t, "{not json", "normalize", "-")
	require.Error(t, err)
}

func TestTokenVerifies(t *testing.T) {
	out, err := execute(t, "", "token", "--sub", "user-7", "--role", "admin", "--secret", "cli-secret", "--issuer", "iss", "--audience", "aud")
	require.NoError(t, err)

	v, err := auth.NewVerifier(auth.VerifierConfig{Secret: "cli-secret", Issuer: "iss", Audience: "aud"})
	require.NoError(t, err)
	claims, err := v.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, "user-7", claims.UserID)
	require.True(t, claims.IsAdmin())

	_, err = execute(t, "", "token", "--secret", "cli-secret")
	require.Error(t, err)
}

type captureEnqueuer struct {
	tasks []*asynq.Task
}

func (c *captureEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Queue: "default", Type: task.Type()}, nil
}

func TestEnqueueCommands(t *testing.T) {
	capture := &captureEnqueuer{}
	original := newEnqueuer
	newEnqueuer = func(string) (jobs.Enqueuer, func() error, error) {
		return capture, func() error { return nil }, nil
	}
	t.Cleanup(func() { newEnqueuer = original })

	out, err := execute(t, "", "enqueue", "refresh", "zee5", "--redis-url", "redis://localhost:6379/0")
	require.NoError(t, err)
	require.Contains(t, out, "queued plans:refresh as t1")

	_, err = execute(t, "", "enqueue", "sweep", "--limit", "10", "--redis-url", "redis://localhost:6379/0")
	require.NoError(t, err)

	require.Len(t, capture.tasks, 2)
	require.Equal(t, jobs.TypePlansRefresh, capture.tasks[0].Type())
	require.Equal(t, jobs.TypeSubscriptionsSweep, capture.tasks[1].Type())
	require.JSONEq(t, `{"limit":10}`, string(capture.tasks[1].Payload()))
}

func TestMigrateValidatesArgs(t *testing.T) {
	_, err := execute(t, "", "migrate", "sideways")
	require.Error(t, err)
	t.Setenv("DATABASE_URL", "")
	_, err = execute(t, "", "migrate", "up")
	require.ErrorContains(t, err, "DATABASE_URL")
}

package cli

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-langganan/internal/jobs"
)

// newEnqueuer is swapped in tests.
var newEnqueuer = func(redisURL string) (jobs.Enqueuer, func() error, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, nil, err
	}
	client := asynq.NewClient(opt)
	return client, client.Close, nil
}

func newEnqueueCmd() *cobra.Command {
	var redisURL string
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a background task for the worker",
	}
	cmd.PersistentFlags().StringVar(&redisURL, "redis-url", "", "redis URL (defaults to $REDIS_URL)")

	run := func(cmd *cobra.Command, build func() (*asynq.Task, error)) error {
		url := envOr(redisURL, "REDIS_URL")
		if url == "" {
			return errors.New("REDIS_URL or --redis-url is required")
		}
		task, err := build()
		if err != nil {
			return err
		}
		client, closeFn, err := newEnqueuer(url)
		if err != nil {
			return err
		}
		defer func() { _ = closeFn() }()
		info, err := jobs.Scheduler{Client: client}.Enqueue(cmd.Context(), task)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "queued %s as %s on %s\n", task.Type(), info.ID, info.Queue)
		return nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh <product>",
		Short: "Refresh one product's vendor plans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func() (*asynq.Task, error) { return jobs.NewPlansRefreshTask(args[0]) })
		},
	})
	var limit int
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Expire stale pending checkouts now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func() (*asynq.Task, error) { return jobs.NewSweepTask(limit) })
		},
	}
	sweep.Flags().IntVar(&limit, "limit", 0, "maximum checkouts to expire (0 uses the worker default)")
	cmd.AddCommand(sweep)
	cmd.AddCommand(&cobra.Command{
		Use:   "expire <subscription-id>",
		Short: "Expire one pending checkout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func() (*asynq.Task, error) { return jobs.NewSubscriptionExpireTask(args[0]) })
		},
	})
	return cmd
}

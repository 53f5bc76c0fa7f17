package jobs

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Registrar is the subset of *asynq.Scheduler used for periodic tasks.
type Registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// RegisterPeriodic schedules a plan refresh per product and the stale
// checkout sweep.
func RegisterPeriodic(r Registrar, products []string, refreshEvery, sweepEvery time.Duration) error {
	refreshEvery = orDefault(refreshEvery, 30*time.Minute)
	for _, product := range products {
		task, err := NewPlansRefreshTask(product)
		if err != nil {
			return err
		}
		if _, err := r.Register(every(refreshEvery, refreshEvery), task, asynq.Unique(refreshEvery/2)); err != nil {
			return fmt.Errorf("jobs: register refresh %s: %w", product, err)
		}
	}
	task, err := NewSweepTask(sweepBatch)
	if err != nil {
		return err
	}
	if _, err := r.Register(every(sweepEvery, 5*time.Minute), task); err != nil {
		return fmt.Errorf("jobs: register sweep: %w", err)
	}
	return nil
}

func every(d, def time.Duration) string {
	return "@every " + orDefault(d, def).String()
}

package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/ValueArena/consts"
	"github.com/dyike/ValueArena/internal/trading"
)

// CycleRunner runs one daily cycle over every agent.
type CycleRunner interface {
	RunDaily(ctx context.Context, ids ...string) ([]trading.AgentStatus, error)
}

// DailyCycleJob triggers the daily cycle from the schedule.
type DailyCycleJob struct {
	runner  CycleRunner
	timeout time.Duration
	log     zerolog.Logger
}

func NewDailyCycleJob(runner CycleRunner, timeout time.Duration, log zerolog.Logger) *DailyCycleJob {
	return &DailyCycleJob{
		runner:  runner,
		timeout: timeout,
		log:     log.With().Str("job", "daily_cycle").Logger(),
	}
}

func (j *DailyCycleJob) Name() string {
	return "daily_cycle"
}

func (j *DailyCycleJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	results, err := j.runner.RunDaily(ctx)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Status == consts.Status_Error {
			failed++
		}
	}
	j.log.Info().Int("agents", len(results)).Int("failed", failed).Msg("scheduled cycle finished")
	return nil
}

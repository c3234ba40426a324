package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

// Sweeper discards sessions idle for longer than maxIdle and reports how many went.
type Sweeper interface {
	SweepIdle(ctx context.Context, maxIdle time.Duration) int
}

// Janitor periodically evicts abandoned sessions.
type Janitor struct {
	scheduler *gocron.Scheduler
	sweeper   Sweeper
	maxIdle   time.Duration
	interval  time.Duration
}

func NewJanitor(sweeper Sweeper, interval, maxIdle time.Duration) *Janitor {
	return &Janitor{
		scheduler: gocron.NewScheduler(time.UTC),
		sweeper:   sweeper,
		maxIdle:   maxIdle,
		interval:  interval,
	}
}

// Start schedules the sweep and runs the scheduler in the background.
func (j *Janitor) Start() error {
	if j.interval <= 0 {
		return fmt.Errorf("janitor interval must be positive, got %v", j.interval)
	}
	if _, err := j.scheduler.Every(j.interval).Do(j.Sweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	j.scheduler.StartAsync()
	return nil
}

func (j *Janitor) Stop() {
	j.scheduler.Stop()
}

// Sweep runs one eviction pass.
func (j *Janitor) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if n := j.sweeper.SweepIdle(ctx, j.maxIdle); n > 0 {
		log.Info().Int("sessions", n).Dur("max_idle", j.maxIdle).Msg("swept idle sessions")
	}
}

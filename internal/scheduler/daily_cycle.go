package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mmorris35/council/internal/modules/agent"
)

// usMarketHolidays are the fixed-date NYSE closures the daily gate knows
// about. Floating holidays (Thanksgiving, Easter) are not modelled; a run
// on a closed market is harmless because quotes simply do not move.
var usMarketHolidays = map[string]bool{
	"01-01": true, // New Year's Day
	"06-19": true, // Juneteenth
	"07-04": true, // Independence Day
	"12-25": true, // Christmas Day
}

// DailyCycle runs the full orchestrated batch once per market day.
type DailyCycle struct {
	orchestrator *agent.Orchestrator
	timeout      time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// NewDailyCycle creates the daily cycle job
func NewDailyCycle(orchestrator *agent.Orchestrator, timeout time.Duration, log zerolog.Logger) *DailyCycle {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &DailyCycle{
		orchestrator: orchestrator,
		timeout:      timeout,
		now:          time.Now,
		log:          log.With().Str("job", "daily-cycle").Logger(),
	}
}

// Name implements Job.
func (j *DailyCycle) Name() string { return "daily-cycle" }

// Run executes the batch unless the market is closed today.
func (j *DailyCycle) Run() error {
	if !j.isMarketDay(j.now()) {
		j.log.Info().Msg("market closed, skipping cycle")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.orchestrator.RunAll(ctx)
	if err != nil {
		return err
	}
	j.log.Info().
		Int("runs", report.Runs).
		Int("failed", report.Failed).
		Int("trades", report.Trades).
		Msg("daily cycle finished")
	return nil
}

func (j *DailyCycle) isMarketDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !usMarketHolidays[t.Format("01-02")]
}

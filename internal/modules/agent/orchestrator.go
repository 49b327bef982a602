package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mmorris35/council/internal/domain"
	"github.com/mmorris35/council/internal/modules/strategy"
)

// BatchReport summarizes one orchestrated cycle over every account.
type BatchReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Accounts  int
	Runs      int
	Failed    int
	Trades    int
}

// Orchestrator fans the persona runners out across every account on a
// bounded worker pool. Runs are isolated: one failure never stops the
// batch, and a per-pair lock keeps concurrent cycles for the same
// (account, persona) from interleaving.
type Orchestrator struct {
	runner   *Runner
	accounts domain.AccountProvider
	policies []strategy.Policy
	notifier domain.AlertNotifier
	workers  int
	locks    keyedMutex
	log      zerolog.Logger
}

// NewOrchestrator creates an orchestrator. notifier may be nil when alerts
// are not configured.
func NewOrchestrator(runner *Runner, accounts domain.AccountProvider, policies []strategy.Policy, notifier domain.AlertNotifier, workers int, log zerolog.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		runner:   runner,
		accounts: accounts,
		policies: policies,
		notifier: notifier,
		workers:  workers,
		log:      log.With().Str("service", "orchestrator").Logger(),
	}
}

// RunAll executes every persona for every account and returns the batch
// report. The only error it returns is a failure to list accounts; run
// failures are counted, logged, and carried in the report.
func (o *Orchestrator) RunAll(ctx context.Context) (BatchReport, error) {
	started := time.Now()
	report := BatchReport{StartedAt: started.UTC()}

	accounts, err := o.accounts.ListAccounts()
	if err != nil {
		return report, fmt.Errorf("listing accounts: %w", err)
	}
	report.Accounts = len(accounts)

	o.log.Info().
		Int("accounts", len(accounts)).
		Int("personas", len(o.policies)).
		Int("workers", o.workers).
		Msg("starting batch")

	type job struct {
		account domain.Account
		policy  strategy.Policy
	}
	type result struct {
		account domain.Account
		summary domain.RunSummary
	}

	jobs := make(chan job)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- result{j.account, o.runOne(ctx, j.account, j.policy)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, account := range accounts {
			for _, policy := range o.policies {
				select {
				case jobs <- job{account, policy}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	byAccount := make(map[string][]domain.RunSummary, len(accounts))
	for res := range results {
		report.Runs++
		if res.summary.Status == domain.RunFailed {
			report.Failed++
		}
		report.Trades += res.summary.ExecutedTradeCount
		byAccount[res.account.ID] = append(byAccount[res.account.ID], res.summary)
	}

	for _, account := range accounts {
		o.maybeNotify(ctx, account, byAccount[account.ID])
	}

	report.Duration = time.Since(started)
	o.log.Info().
		Int("runs", report.Runs).
		Int("failed", report.Failed).
		Int("trades", report.Trades).
		Dur("duration", report.Duration).
		Msg("batch complete")
	return report, nil
}

// runOne executes a single pair under its lock, converting panics into
// failed summaries so a bad policy cannot take down the batch.
func (o *Orchestrator) runOne(ctx context.Context, account domain.Account, policy strategy.Policy) (summary domain.RunSummary) {
	unlock := o.locks.lock(account.ID + "/" + string(policy.Persona()))
	defer unlock()

	defer func() {
		if rec := recover(); rec != nil {
			o.log.Error().
				Str("account", account.ID).
				Str("persona", string(policy.Persona())).
				Interface("panic", rec).
				Msg("run panicked")
			summary = domain.RunSummary{
				Persona: policy.Persona(),
				Status:  domain.RunFailed,
				Error:   fmt.Sprintf("panic: %v", rec),
			}
		}
	}()

	return o.runner.Run(ctx, account, policy)
}

// maybeNotify sends the daily summary when the account opted in and at
// least one trade executed. Delivery failures are logged and dropped.
func (o *Orchestrator) maybeNotify(ctx context.Context, account domain.Account, summaries []domain.RunSummary) {
	if o.notifier == nil || !account.AlertsEnabled {
		return
	}
	trades := 0
	for _, s := range summaries {
		trades += s.ExecutedTradeCount
	}
	if trades == 0 {
		return
	}
	if err := o.notifier.Notify(ctx, account, summaries); err != nil {
		o.log.Warn().Err(err).Str("account", account.ID).Msg("alert delivery failed")
	}
}

// keyedMutex hands out one mutex per key, created lazily.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Package agent drives persona runs: one runner executes a single
// (account, persona) cycle, and the orchestrator fans runners out across
// the full account set on a worker pool.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mmorris35/council/internal/domain"
	"github.com/mmorris35/council/internal/modules/ledger"
	"github.com/mmorris35/council/internal/modules/strategy"
)

// RunnerConfig carries the tunables one run needs.
type RunnerConfig struct {
	StartingCash        float64
	ConfidenceThreshold float64
}

// Runner executes one persona's full decision cycle against one account's
// portfolio: load, refresh, analyze, recommend, execute, persist.
type Runner struct {
	store  domain.PortfolioStore
	market domain.MarketDataProvider
	ledger *ledger.Ledger
	cfg    RunnerConfig
	log    zerolog.Logger
}

// NewRunner creates a runner
func NewRunner(store domain.PortfolioStore, market domain.MarketDataProvider, led *ledger.Ledger, cfg RunnerConfig, log zerolog.Logger) *Runner {
	return &Runner{
		store:  store,
		market: market,
		ledger: led,
		cfg:    cfg,
		log:    log.With().Str("service", "agent-runner").Logger(),
	}
}

// Run executes one cycle for (account, policy). It always persists a run
// record, even on failure, and always returns a summary. Trade mutations
// that happened before a persistence failure stand; the transaction log is
// the recovery authority.
func (r *Runner) Run(ctx context.Context, account domain.Account, policy strategy.Policy) domain.RunSummary {
	started := time.Now()
	log := r.log.With().
		Str("account", account.ID).
		Str("persona", string(policy.Persona())).
		Logger()

	record := domain.AgentRunRecord{
		ID:        uuid.NewString(),
		Persona:   policy.Persona(),
		AccountID: account.ID,
		RunDate:   started.UTC(),
		Status:    domain.RunDone,
	}

	summary, err := r.cycle(ctx, account, policy, &record)
	record.Duration = time.Since(started)
	if err != nil {
		record.Status = domain.RunFailed
		record.Error = err.Error()
		summary.Status = domain.RunFailed
		summary.Error = err.Error()
		log.Error().Err(err).Msg("run failed")
	} else {
		log.Info().
			Int("executed", summary.ExecutedTradeCount).
			Float64("value", summary.ValueAfter).
			Dur("duration", record.Duration).
			Msg("run complete")
	}

	if saveErr := r.store.SaveRunRecord(record); saveErr != nil {
		log.Error().Err(saveErr).Msg("failed to persist run record")
		if err == nil {
			summary.Status = domain.RunFailed
			summary.Error = saveErr.Error()
		}
	}

	return summary
}

func (r *Runner) cycle(ctx context.Context, account domain.Account, policy strategy.Policy, record *domain.AgentRunRecord) (domain.RunSummary, error) {
	summary := domain.RunSummary{Persona: policy.Persona(), Status: domain.RunDone}

	portfolio, err := r.loadOrInit(account, policy.Persona())
	if err != nil {
		return summary, fmt.Errorf("loading portfolio: %w", err)
	}

	snapshots, err := r.fetchSnapshots(ctx, portfolio, policy)
	if err != nil {
		return summary, fmt.Errorf("fetching market data: %w", err)
	}
	view := strategy.NewMarketView(snapshots)

	r.ledger.RefreshPrices(portfolio, prices(snapshots))
	summary.ValueBefore = r.ledger.TotalValue(portfolio)
	record.ValueBefore = summary.ValueBefore

	record.Analysis = policy.Analyze(view)

	recs := policy.Recommend(portfolio, view)
	record.Recommendations = recs

	executed := r.execute(portfolio, recs, view)
	record.ExecutedTrades = make([]string, 0, len(executed))
	for _, tx := range executed {
		record.ExecutedTrades = append(record.ExecutedTrades, tx.ID)
	}
	summary.ExecutedTradeCount = len(executed)

	// Revalue after trading so the record reflects the post-trade book.
	r.ledger.RefreshPrices(portfolio, prices(snapshots))
	summary.ValueAfter = r.ledger.TotalValue(portfolio)
	record.ValueAfter = summary.ValueAfter

	if err := r.persist(portfolio, executed); err != nil {
		return summary, fmt.Errorf("persisting run: %w", err)
	}

	return summary, nil
}

// loadOrInit loads the persona's portfolio for the account, creating a
// fresh all-cash one on first run.
func (r *Runner) loadOrInit(account domain.Account, persona domain.Persona) (*domain.Portfolio, error) {
	portfolio, err := r.store.LoadPortfolio(account.ID, persona)
	if err != nil {
		return nil, err
	}
	if portfolio != nil {
		return portfolio, nil
	}

	portfolio = &domain.Portfolio{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Persona:   persona,
		Cash:      r.cfg.StartingCash,
		Positions: make(map[string]*domain.Position),
	}
	r.log.Info().
		Str("account", account.ID).
		Str("persona", string(persona)).
		Float64("cash", portfolio.Cash).
		Msg("initialized new portfolio")
	return portfolio, nil
}

// fetchSnapshots quotes the policy's universe plus every held symbol.
func (r *Runner) fetchSnapshots(ctx context.Context, p *domain.Portfolio, policy strategy.Policy) (map[string]*domain.Snapshot, error) {
	seen := make(map[string]bool)
	var symbols []string
	for _, s := range policy.Universe() {
		if !seen[s] {
			seen[s] = true
			symbols = append(symbols, s)
		}
	}
	for _, s := range p.Symbols() {
		if !seen[s] {
			seen[s] = true
			symbols = append(symbols, s)
		}
	}

	snapshots, err := r.market.GetSnapshots(ctx, symbols)
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// execute applies eligible recommendations in confidence-descending order,
// so the highest-conviction trades get first claim on cash. Individual
// trade rejections (insufficient funds, no position) are logged and
// skipped, never fatal.
func (r *Runner) execute(p *domain.Portfolio, recs []domain.TradeRecommendation, view strategy.MarketView) []domain.Transaction {
	eligible := make([]domain.TradeRecommendation, 0, len(recs))
	for _, rec := range recs {
		if rec.Confidence >= r.cfg.ConfidenceThreshold {
			eligible = append(eligible, rec)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Confidence > eligible[j].Confidence
	})

	var executed []domain.Transaction
	for _, rec := range eligible {
		snap := view.Get(rec.Symbol)
		if snap == nil || snap.Price <= 0 {
			r.log.Warn().Str("symbol", rec.Symbol).Msg("skipping trade without a quote")
			continue
		}

		var tx domain.Transaction
		var err error
		switch rec.Side {
		case domain.SideBuy:
			tx, err = r.ledger.ApplyBuy(p, rec.Symbol, rec.Shares, snap.Price)
		case domain.SideSell:
			tx, err = r.ledger.ApplySell(p, rec.Symbol, rec.Shares, snap.Price)
		default:
			continue
		}
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientFunds) || errors.Is(err, domain.ErrNoPosition) {
				r.log.Debug().Err(err).Str("symbol", rec.Symbol).Msg("trade rejected")
				continue
			}
			r.log.Warn().Err(err).Str("symbol", rec.Symbol).Msg("trade rejected")
			continue
		}

		tx.Reasoning = rec.Reasoning
		executed = append(executed, tx)
	}
	return executed
}

// persist writes the portfolio and its transactions. The portfolio goes
// first so a partial failure never records trades against a stale book.
func (r *Runner) persist(p *domain.Portfolio, executed []domain.Transaction) error {
	if err := r.store.SavePortfolio(p); err != nil {
		return fmt.Errorf("saving portfolio: %w", err)
	}
	for _, tx := range executed {
		if err := r.store.AppendTransaction(tx); err != nil {
			return fmt.Errorf("appending transaction %s: %w", tx.ID, err)
		}
	}
	return nil
}

func prices(snapshots map[string]*domain.Snapshot) map[string]float64 {
	out := make(map[string]float64, len(snapshots))
	for symbol, snap := range snapshots {
		if snap != nil && snap.Price > 0 {
			out[symbol] = snap.Price
		}
	}
	return out
}

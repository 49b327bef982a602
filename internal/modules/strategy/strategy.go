// Package strategy implements the six investor decision policies.
//
// Policies are pure: Analyze and Recommend read a portfolio and a market
// view and never mutate state or perform I/O. The runner fetches snapshots
// for Universe() plus held symbols and hands them in as a MarketView.
// Every screen fails closed: a missing snapshot field disqualifies the
// candidate instead of being guessed at, and no policy ever divides by zero.
package strategy

import (
	"github.com/mmorris35/council/internal/domain"
)

// Policy is the capability every persona implements.
type Policy interface {
	// Persona identifies the policy.
	Persona() domain.Persona

	// Name is the human-readable persona name used in narratives and alerts.
	Name() string

	// Universe returns the symbols the policy wants quoted, excluding
	// holdings (the runner always quotes held symbols).
	Universe() []string

	// Analyze produces the run's narrative. Pure and deterministic for a
	// given view.
	Analyze(view MarketView) string

	// Recommend produces an ordered list of trade recommendations.
	// Pure: it never mutates the portfolio.
	Recommend(p *domain.Portfolio, view MarketView) []domain.TradeRecommendation
}

// MarketView is a read-only lookup over the snapshots fetched for one run.
type MarketView struct {
	snapshots map[string]*domain.Snapshot
}

// NewMarketView wraps a snapshot map. A nil map yields an empty view.
func NewMarketView(snapshots map[string]*domain.Snapshot) MarketView {
	if snapshots == nil {
		snapshots = make(map[string]*domain.Snapshot)
	}
	return MarketView{snapshots: snapshots}
}

// Get returns the snapshot for symbol, or nil when the data source had none.
func (v MarketView) Get(symbol string) *domain.Snapshot {
	return v.snapshots[symbol]
}

// Len returns the number of symbols with data.
func (v MarketView) Len() int {
	return len(v.snapshots)
}

// Config carries the tunables shared by the policies. Zero values fall back
// to each policy's defaults.
type Config struct {
	// Watchlists override the built-in candidate lists (used by tests and
	// by operators who want a custom universe).
	Watchlists map[domain.Persona][]string
}

// watchlist resolves the candidate list for a persona.
func (c Config) watchlist(persona domain.Persona, fallback []string) []string {
	if list, ok := c.Watchlists[persona]; ok && len(list) > 0 {
		return list
	}
	return fallback
}

// All constructs every policy in the orchestrator's canonical order.
func All(cfg Config) []Policy {
	return []Policy{
		NewValueQuality(cfg),
		NewDeepValue(cfg),
		NewGARP(cfg),
		NewRiskParity(cfg),
		NewPassive(cfg),
		NewMomentum(cfg),
	}
}

// fval dereferences an optional snapshot field. ok is false when the data
// source did not provide the field; screens must then fail closed.
func fval(f *float64) (float64, bool) {
	if f == nil {
		return 0, false
	}
	return *f, true
}

// heldSymbols returns the set of symbols the portfolio currently holds.
func heldSymbols(p *domain.Portfolio) map[string]bool {
	held := make(map[string]bool, len(p.Positions))
	for sym := range p.Positions {
		held[sym] = true
	}
	return held
}

// totalValue values the portfolio at the last observed prices. Policies use
// it for sizing only; the ledger remains the authority over valuation.
func totalValue(p *domain.Portfolio) float64 {
	total := p.Cash
	for _, pos := range p.Positions {
		total += pos.MarketValue()
	}
	return total
}

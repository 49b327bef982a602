package domain

import "context"

// MarketDataProvider supplies point-in-time snapshots per instrument symbol.
// Implementations must honour the context deadline and report a missing
// instrument with ErrDataUnavailable rather than a zero-value snapshot.
type MarketDataProvider interface {
	// GetSnapshot returns the snapshot for one symbol.
	GetSnapshot(ctx context.Context, symbol string) (*Snapshot, error)

	// GetSnapshots returns snapshots for many symbols. Symbols without data
	// are simply absent from the result map; only transport-level failures
	// return an error.
	GetSnapshots(ctx context.Context, symbols []string) (map[string]*Snapshot, error)
}

// PortfolioStore persists portfolios, transactions, and run records.
// This interface is what the runner and orchestrator program against; the
// sqlite repositories implement it behind a composite store.
type PortfolioStore interface {
	// LoadPortfolio returns the portfolio for (account, persona), or nil
	// when none exists yet.
	LoadPortfolio(accountID string, persona Persona) (*Portfolio, error)

	// SavePortfolio upserts the portfolio and its positions.
	SavePortfolio(p *Portfolio) error

	// AppendTransaction appends one immutable transaction record.
	AppendTransaction(t Transaction) error

	// SaveRunRecord appends one agent run record.
	SaveRunRecord(r AgentRunRecord) error

	// LatestRunRecord returns the most recent run record for a persona, or
	// nil when the persona has never run.
	LatestRunRecord(persona Persona) (*AgentRunRecord, error)
}

// AccountProvider lists the accounts the daily batch iterates.
type AccountProvider interface {
	ListAccounts() ([]Account, error)
}

// AlertNotifier delivers the per-account daily summary. Calls are
// fire-and-forget: a notifier failure must never fail a run.
type AlertNotifier interface {
	Notify(ctx context.Context, account Account, summaries []RunSummary) error
}

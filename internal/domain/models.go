// Package domain provides core domain models and types shared across modules.
package domain

import "time"

// Persona identifies one of the six decision policies. Each persona manages
// its own paper-trading portfolio per account.
type Persona string

const (
	// PersonaValue buys quality companies with durable moats at fair prices
	PersonaValue Persona = "value"
	// PersonaDeepValue runs strict quantitative bargain screens
	PersonaDeepValue Persona = "deepvalue"
	// PersonaGARP buys growth at a reasonable price (PEG-driven)
	PersonaGARP Persona = "garp"
	// PersonaRiskParity maintains a fixed all-weather asset basket
	PersonaRiskParity Persona = "riskparity"
	// PersonaPassive holds a stock/bond index split with minimal trading
	PersonaPassive Persona = "passive"
	// PersonaMomentum chases high-growth innovation names
	PersonaMomentum Persona = "momentum"
)

// AllPersonas lists every persona in a stable order.
// The orchestrator iterates this set for each account.
func AllPersonas() []Persona {
	return []Persona{
		PersonaValue,
		PersonaDeepValue,
		PersonaGARP,
		PersonaRiskParity,
		PersonaPassive,
		PersonaMomentum,
	}
}

// TradeSide represents the direction of a trade
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Position represents a single holding inside a portfolio.
// A position exists iff its share count is greater than zero.
type Position struct {
	Symbol    string  `json:"symbol"`
	Shares    float64 `json:"shares"`
	AvgCost   float64 `json:"avg_cost"`
	LastPrice float64 `json:"last_price"`
}

// MarketValue returns shares times the last observed price.
func (p Position) MarketValue() float64 {
	return p.Shares * p.LastPrice
}

// GainLoss returns the unrealized profit or loss in currency terms.
func (p Position) GainLoss() float64 {
	return (p.LastPrice - p.AvgCost) * p.Shares
}

// GainLossPct returns the unrealized return relative to cost basis.
// Returns 0 when the cost basis is zero.
func (p Position) GainLossPct() float64 {
	if p.AvgCost == 0 {
		return 0
	}
	return (p.LastPrice - p.AvgCost) / p.AvgCost
}

// Portfolio is one persona's paper-trading account state.
// It is mutated only through the ledger and never deleted, so the
// transaction history behind it stays auditable.
type Portfolio struct {
	ID        string               `json:"id"`
	AccountID string               `json:"account_id"`
	Persona   Persona              `json:"persona"`
	Cash      float64              `json:"cash"`
	Positions map[string]*Position `json:"positions"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Position returns the held position for symbol, or nil.
func (p *Portfolio) Position(symbol string) *Position {
	if p.Positions == nil {
		return nil
	}
	return p.Positions[symbol]
}

// Symbols returns the set of held symbols.
func (p *Portfolio) Symbols() []string {
	out := make([]string, 0, len(p.Positions))
	for sym := range p.Positions {
		out = append(out, sym)
	}
	return out
}

// Transaction is an immutable, append-only record of an executed paper trade.
type Transaction struct {
	ID          string    `json:"id"`
	PortfolioID string    `json:"portfolio_id"`
	AccountID   string    `json:"account_id"`
	Persona     Persona   `json:"persona"`
	Side        TradeSide `json:"side"`
	Symbol      string    `json:"symbol"`
	Shares      float64   `json:"shares"`
	Price       float64   `json:"price"`
	Reasoning   string    `json:"reasoning"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// TotalValue returns shares times execution price.
func (t Transaction) TotalValue() float64 {
	return t.Shares * t.Price
}

// TradeRecommendation is a policy's suggested trade. It never mutates state;
// the runner decides whether to execute it.
type TradeRecommendation struct {
	Side       TradeSide `json:"side"`
	Symbol     string    `json:"symbol"`
	Shares     float64   `json:"shares"`
	Reasoning  string    `json:"reasoning"`
	Confidence float64   `json:"confidence"` // 0..1
}

// RunStatus is the terminal state of an agent run.
type RunStatus string

const (
	RunDone   RunStatus = "done"
	RunFailed RunStatus = "failed"
)

// AgentRunRecord captures everything one persona did for one account in a
// single cycle: the narrative, what was considered, and what was executed.
type AgentRunRecord struct {
	ID              string                `json:"id"`
	Persona         Persona               `json:"persona"`
	AccountID       string                `json:"account_id"`
	RunDate         time.Time             `json:"run_date"`
	Analysis        string                `json:"analysis"`
	Recommendations []TradeRecommendation `json:"recommendations"`
	ExecutedTrades  []string              `json:"executed_trades"` // transaction IDs
	ValueBefore     float64               `json:"value_before"`
	ValueAfter      float64               `json:"value_after"`
	Duration        time.Duration         `json:"duration"`
	Status          RunStatus             `json:"status"`
	Error           string                `json:"error,omitempty"`
}

// RunSummary is the per-pair result surfaced to the orchestrator's batch
// report and to the alert notifier.
type RunSummary struct {
	Persona            Persona   `json:"persona"`
	Status             RunStatus `json:"status"`
	ExecutedTradeCount int       `json:"executed_trade_count"`
	ValueBefore        float64   `json:"value_before"`
	ValueAfter         float64   `json:"value_after"`
	Error              string    `json:"error,omitempty"`
}

// Account is a user of the system. Each account gets one portfolio per
// persona, created lazily on first run.
type Account struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	AlertsEnabled bool      `json:"alerts_enabled"`
	CreatedAt     time.Time `json:"created_at"`
}

// Snapshot is a point-in-time valuation and quality view of one instrument.
// Ratio fields are pointers: a nil field means the data source did not
// provide it, and every policy screen treats that as a failed screen.
type Snapshot struct {
	Symbol           string    `json:"symbol"`
	Price            float64   `json:"price"`
	PERatio          *float64  `json:"pe_ratio,omitempty"`
	PBRatio          *float64  `json:"pb_ratio,omitempty"`
	PEGRatio         *float64  `json:"peg_ratio,omitempty"`
	MarketCap        *float64  `json:"market_cap,omitempty"`
	DividendYield    *float64  `json:"dividend_yield,omitempty"`
	CurrentRatio     *float64  `json:"current_ratio,omitempty"`
	DebtToEquity     *float64  `json:"debt_to_equity,omitempty"`
	RevenueGrowth    *float64  `json:"revenue_growth,omitempty"`
	EarningsGrowth   *float64  `json:"earnings_growth,omitempty"`
	ProfitMargin     *float64  `json:"profit_margin,omitempty"`
	ReturnOnEquity   *float64  `json:"return_on_equity,omitempty"`
	Beta             *float64  `json:"beta,omitempty"`
	FiftyTwoWeekHigh *float64  `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  *float64  `json:"fifty_two_week_low,omitempty"`
	Sector           string    `json:"sector,omitempty"`
	Industry         string    `json:"industry,omitempty"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// EPS derives earnings per share from price and P/E.
// Returns 0 when P/E is missing or non-positive.
func (s *Snapshot) EPS() float64 {
	if s.PERatio == nil || *s.PERatio <= 0 || s.Price <= 0 {
		return 0
	}
	return s.Price / *s.PERatio
}

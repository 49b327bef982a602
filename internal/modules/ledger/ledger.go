// Package ledger owns all portfolio mutation arithmetic: buys, sells, price
// refreshes, and valuation. Nothing else in the system changes cash or
// positions directly.
package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mmorris35/council/internal/domain"
)

// Ledger applies trade recommendations to a portfolio under cash and share
// constraints. All methods mutate the portfolio in memory only; the caller
// persists the portfolio and the returned transaction drafts.
type Ledger struct {
	log zerolog.Logger
}

// New creates a new ledger
func New(log zerolog.Logger) *Ledger {
	return &Ledger{log: log.With().Str("service", "ledger").Logger()}
}

// ApplyBuy executes a buy against the portfolio.
//
// Requested shares are floored to whole shares. If the full order exceeds
// available cash the order is clamped to floor(cash/price); if not even one
// share is affordable the buy fails with ErrInsufficientFunds and the
// portfolio is left untouched. On success the position's average cost is
// updated with the weighted-average formula and a transaction draft is
// returned for the caller to persist.
func (l *Ledger) ApplyBuy(p *domain.Portfolio, symbol string, requestedShares, price float64) (domain.Transaction, error) {
	if price <= 0 {
		return domain.Transaction{}, fmt.Errorf("buy %s: invalid price %v: %w", symbol, price, domain.ErrNoQuote)
	}

	shares := math.Floor(requestedShares)
	if shares <= 0 {
		return domain.Transaction{}, fmt.Errorf("buy %s: requested %v shares: %w", symbol, requestedShares, domain.ErrInsufficientFunds)
	}

	cost := shares * price
	if cost > p.Cash {
		affordable := math.Floor(p.Cash / price)
		if affordable <= 0 {
			return domain.Transaction{}, fmt.Errorf("buy %s: need %.2f, have %.2f: %w", symbol, cost, p.Cash, domain.ErrInsufficientFunds)
		}
		l.log.Debug().
			Str("symbol", symbol).
			Float64("requested", shares).
			Float64("clamped", affordable).
			Msg("Buy clamped to affordable shares")
		shares = affordable
		cost = shares * price
	}

	p.Cash -= cost

	if p.Positions == nil {
		p.Positions = make(map[string]*domain.Position)
	}

	if pos, ok := p.Positions[symbol]; ok {
		totalShares := pos.Shares + shares
		totalInvested := pos.Shares*pos.AvgCost + cost
		pos.AvgCost = totalInvested / totalShares
		pos.Shares = totalShares
		pos.LastPrice = price
	} else {
		p.Positions[symbol] = &domain.Position{
			Symbol:    symbol,
			Shares:    shares,
			AvgCost:   price,
			LastPrice: price,
		}
	}

	p.UpdatedAt = time.Now().UTC()

	return l.draft(p, domain.SideBuy, symbol, shares, price), nil
}

// ApplySell executes a sell against the portfolio.
//
// Selling a symbol the portfolio does not hold fails with ErrNoPosition.
// Executed shares are min(floored requested, held); the position is removed
// the moment its share count reaches zero. The average cost basis is never
// changed by a sell.
func (l *Ledger) ApplySell(p *domain.Portfolio, symbol string, requestedShares, price float64) (domain.Transaction, error) {
	if price <= 0 {
		return domain.Transaction{}, fmt.Errorf("sell %s: invalid price %v: %w", symbol, price, domain.ErrNoQuote)
	}

	pos := p.Position(symbol)
	if pos == nil {
		return domain.Transaction{}, fmt.Errorf("sell %s: %w", symbol, domain.ErrNoPosition)
	}

	shares := math.Floor(requestedShares)
	if shares <= 0 {
		return domain.Transaction{}, fmt.Errorf("sell %s: requested %v shares: %w", symbol, requestedShares, domain.ErrNoPosition)
	}
	if shares > pos.Shares {
		shares = pos.Shares
	}

	p.Cash += shares * price
	pos.Shares -= shares
	pos.LastPrice = price

	if pos.Shares <= 0 {
		delete(p.Positions, symbol)
	}

	p.UpdatedAt = time.Now().UTC()

	return l.draft(p, domain.SideSell, symbol, shares, price), nil
}

// RefreshPrices updates the last observed price on each held position from
// the lookup map. Cost basis and cash are never touched; symbols without a
// quote are skipped.
func (l *Ledger) RefreshPrices(p *domain.Portfolio, lookup map[string]float64) {
	for sym, pos := range p.Positions {
		price, ok := lookup[sym]
		if !ok || price <= 0 {
			l.log.Debug().Str("symbol", sym).Msg("No quote for held position, keeping last price")
			continue
		}
		pos.LastPrice = price
	}
}

// TotalValue returns cash plus the market value of every position.
// Pure read: recomputable at any time without side effects.
func (l *Ledger) TotalValue(p *domain.Portfolio) float64 {
	total := p.Cash
	for _, pos := range p.Positions {
		total += pos.MarketValue()
	}
	return total
}

func (l *Ledger) draft(p *domain.Portfolio, side domain.TradeSide, symbol string, shares, price float64) domain.Transaction {
	return domain.Transaction{
		ID:          uuid.NewString(),
		PortfolioID: p.ID,
		AccountID:   p.AccountID,
		Persona:     p.Persona,
		Side:        side,
		Symbol:      symbol,
		Shares:      shares,
		Price:       price,
		ExecutedAt:  time.Now().UTC(),
	}
}

package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mmorris35/council/internal/domain"
)

var defaultMomentumWatchlist = []string{
	"TSLA", "NVDA", "AMD", "PLTR", "COIN", "SQ", "SHOP", "ROKU", "PATH",
	"U", "RBLX", "NET", "DDOG", "CRWD", "ZS", "SNOW", "MDB", "TWLO",
	"DKNG", "HOOD", "SOFI", "RIVN", "LCID", "JOBY", "ACHR", "IONQ", "RGTI",
}

const (
	momentumMinScore       = 0.5
	momentumMaxPositionPct = 0.10
	momentumMaxCashPct     = 0.30
	momentumDipDrawdown    = 0.30
	momentumDipLossPct     = -0.20
	momentumDipScore       = 0.7
)

// Momentum buys disruptive growth names scored on revenue acceleration,
// market-cap runway, and volatility appetite, and adds to high-conviction
// holdings on deep drawdowns.
type Momentum struct {
	watchlist []string
}

// NewMomentum creates the momentum policy
func NewMomentum(cfg Config) *Momentum {
	return &Momentum{watchlist: cfg.watchlist(domain.PersonaMomentum, defaultMomentumWatchlist)}
}

func (m *Momentum) Persona() domain.Persona { return domain.PersonaMomentum }
func (m *Momentum) Name() string            { return "Disruptive Innovation" }
func (m *Momentum) Universe() []string      { return m.watchlist }

// Analyze narrates the highest-scoring names in the universe.
func (m *Momentum) Analyze(view MarketView) string {
	type scored struct {
		symbol string
		score  float64
	}
	var ranked []scored
	for _, symbol := range m.watchlist {
		snap := view.Get(symbol)
		if snap == nil {
			continue
		}
		ranked = append(ranked, scored{symbol, innovationScore(snap)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var b strings.Builder
	b.WriteString("Innovation solves problems. Top conviction names:\n")
	for i, s := range ranked {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "  - %s: conviction %.2f\n", s.symbol, s.score)
	}
	b.WriteString("\nVolatility is the price of admission for exponential growth.")
	return b.String()
}

// Recommend buys the top three unheld names above the conviction floor and
// averages down on held names in deep drawdowns.
func (m *Momentum) Recommend(p *domain.Portfolio, view MarketView) []domain.TradeRecommendation {
	var recs []domain.TradeRecommendation
	held := heldSymbols(p)
	total := totalValue(p)

	type candidate struct {
		symbol string
		score  float64
	}
	var candidates []candidate
	for _, symbol := range m.watchlist {
		if held[symbol] {
			continue
		}
		snap := view.Get(symbol)
		if snap == nil {
			continue
		}
		score := innovationScore(snap)
		if score > momentumMinScore {
			candidates = append(candidates, candidate{symbol, score})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	for i, c := range candidates {
		if i >= 3 {
			break
		}
		snap := view.Get(c.symbol)
		shares := m.positionSize(p, snap, c.score, total)
		if shares <= 0 {
			continue
		}
		recs = append(recs, domain.TradeRecommendation{
			Side:       domain.SideBuy,
			Symbol:     c.symbol,
			Shares:     shares,
			Reasoning:  fmt.Sprintf("conviction score %.2f", c.score),
			Confidence: math.Min(0.9, c.score),
		})
	}

	// Average down on deep drawdowns in names we already believe in.
	for _, pos := range p.Positions {
		snap := view.Get(pos.Symbol)
		if snap == nil {
			continue
		}
		high, ok := fval(snap.FiftyTwoWeekHigh)
		if !ok || high <= 0 {
			continue
		}
		drawdown := (high - snap.Price) / high
		if drawdown > momentumDipDrawdown && pos.GainLossPct() < momentumDipLossPct {
			shares := m.positionSize(p, snap, momentumDipScore, total)
			if shares <= 0 {
				continue
			}
			recs = append(recs, domain.TradeRecommendation{
				Side:       domain.SideBuy,
				Symbol:     pos.Symbol,
				Shares:     shares,
				Reasoning:  fmt.Sprintf("buying the dip, %.0f%% off 52-week high", drawdown*100),
				Confidence: 0.75,
			})
		}
	}

	return recs
}

// innovationScore averages three banded factors: revenue growth, market-cap
// runway, and beta. Higher means more disruptive upside.
func innovationScore(snap *domain.Snapshot) float64 {
	var factors []float64

	if growth, ok := fval(snap.RevenueGrowth); ok {
		switch {
		case growth > 0.30:
			factors = append(factors, 1.0)
		case growth > 0.20:
			factors = append(factors, 0.8)
		case growth > 0.10:
			factors = append(factors, 0.5)
		default:
			factors = append(factors, 0)
		}
	}

	if mcap, ok := fval(snap.MarketCap); ok && mcap > 0 {
		switch {
		case mcap < 10e9:
			factors = append(factors, 0.8)
		case mcap < 50e9:
			factors = append(factors, 0.6)
		default:
			factors = append(factors, 0.3)
		}
	}

	if beta, ok := fval(snap.Beta); ok {
		switch {
		case beta > 1.5:
			factors = append(factors, 0.7)
		case beta > 1.2:
			factors = append(factors, 0.5)
		default:
			factors = append(factors, 0)
		}
	}

	if len(factors) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range factors {
		sum += f
	}
	return sum / float64(len(factors))
}

// positionSize scales with conviction: 3% of total value plus up to 4% more,
// capped at 10% of total and 30% of cash.
func (m *Momentum) positionSize(p *domain.Portfolio, snap *domain.Snapshot, score, total float64) float64 {
	if snap == nil || snap.Price <= 0 {
		return 0
	}
	pct := math.Min(0.03+score*0.04, momentumMaxPositionPct)
	positionValue := math.Min(total*pct, p.Cash*momentumMaxCashPct)
	return math.Floor(positionValue / snap.Price)
}

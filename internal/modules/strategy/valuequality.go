package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mmorris35/council/internal/domain"
)

// defaultValueWatchlist holds large, moaty franchises the value persona
// screens every run.
var defaultValueWatchlist = []string{
	"AAPL", "KO", "AXP", "BAC", "CVX", "OXY", "KHC", "MCO", "DVA", "VRSN",
	"V", "MA", "JNJ", "PG", "WMT", "COST", "HD", "UNH", "JPM", "BRK-B",
}

// ValueQuality buys wonderful companies at fair prices: durable competitive
// advantages, strong returns on equity, conservative debt. Concentrated
// book, sells only on moat deterioration or extreme overvaluation.
type ValueQuality struct {
	watchlist     []string
	maxPositions  int
	maxBuysPerRun int
}

// NewValueQuality creates the value-quality policy
func NewValueQuality(cfg Config) *ValueQuality {
	return &ValueQuality{
		watchlist:     cfg.watchlist(domain.PersonaValue, defaultValueWatchlist),
		maxPositions:  10,
		maxBuysPerRun: 2,
	}
}

func (v *ValueQuality) Persona() domain.Persona { return domain.PersonaValue }
func (v *ValueQuality) Name() string            { return "Value & Quality" }
func (v *ValueQuality) Universe() []string      { return v.watchlist }

// Analyze scans the watchlist for moaty companies trading at acceptable
// multiples and narrates the best of them.
func (v *ValueQuality) Analyze(view MarketView) string {
	type scored struct {
		symbol string
		score  float64
		snap   *domain.Snapshot
	}

	var opportunities []scored
	for _, symbol := range v.watchlist {
		snap := view.Get(symbol)
		if snap == nil || !hasMoat(snap) {
			continue
		}
		if score := qualityScore(snap); score >= 0.6 {
			opportunities = append(opportunities, scored{symbol, score, snap})
		}
	}
	sort.Slice(opportunities, func(i, j int) bool { return opportunities[i].score > opportunities[j].score })

	var b strings.Builder
	b.WriteString("Philosophy: buy wonderful companies at fair prices.\n\nMarket scan results:\n")
	for i, op := range opportunities {
		if i >= 5 {
			break
		}
		pe := "N/A"
		if val, ok := fval(op.snap.PERatio); ok {
			pe = fmt.Sprintf("%.1f", val)
		}
		roe := "N/A"
		if val, ok := fval(op.snap.ReturnOnEquity); ok {
			roe = fmt.Sprintf("%.1f%%", val*100)
		}
		fmt.Fprintf(&b, "- %s: score %.2f, P/E %s, ROE %s\n", op.symbol, op.score, pe, roe)
	}
	if len(opportunities) == 0 {
		b.WriteString("No compelling opportunities today. Cash is a position.\n")
	}
	b.WriteString("\nThe market is designed to transfer money from the active to the patient.")
	return b.String()
}

// Recommend sells moat-lost or overheated holdings first, then buys up to
// two new candidates passing the moat, score, and multiple screens.
func (v *ValueQuality) Recommend(p *domain.Portfolio, view MarketView) []domain.TradeRecommendation {
	var recs []domain.TradeRecommendation
	held := heldSymbols(p)

	for _, pos := range p.Positions {
		snap := view.Get(pos.Symbol)
		if snap == nil {
			continue // no data: hold, do not guess
		}
		if v.shouldSell(snap) {
			recs = append(recs, domain.TradeRecommendation{
				Side:       domain.SideSell,
				Symbol:     pos.Symbol,
				Shares:     pos.Shares,
				Reasoning:  "Moat deterioration or extreme overvaluation",
				Confidence: 0.8,
			})
		}
	}

	if len(held) >= v.maxPositions {
		return recs
	}

	buys := 0
	for _, symbol := range v.watchlist {
		if buys >= v.maxBuysPerRun {
			break
		}
		if held[symbol] {
			continue
		}
		snap := view.Get(symbol)
		if snap == nil || !v.isBuyCandidate(snap) {
			continue
		}

		score := qualityScore(snap)
		shares := v.positionSize(p, snap)
		if shares <= 0 {
			continue
		}

		recs = append(recs, domain.TradeRecommendation{
			Side:       domain.SideBuy,
			Symbol:     symbol,
			Shares:     shares,
			Reasoning:  buyReasoning(snap, score),
			Confidence: math.Min(0.95, score),
		})
		buys++
	}

	return recs
}

// hasMoat checks for a durable competitive advantage: at least two of
// strong ROE, healthy margins, conservative debt, and growing revenue.
func hasMoat(snap *domain.Snapshot) bool {
	signals := 0
	if roe, ok := fval(snap.ReturnOnEquity); ok && roe > 0.15 {
		signals++
	}
	if margin, ok := fval(snap.ProfitMargin); ok && margin > 0.10 {
		signals++
	}
	if de, ok := fval(snap.DebtToEquity); ok && de < 100 {
		signals++
	}
	if growth, ok := fval(snap.RevenueGrowth); ok && growth > 0 {
		signals++
	}
	return signals >= 2
}

// qualityScore averages banded factor scores over the factors the snapshot
// actually provides. Range 0..1.
func qualityScore(snap *domain.Snapshot) float64 {
	score := 0.0
	factors := 0

	if pe, ok := fval(snap.PERatio); ok {
		switch {
		case pe < 15:
			score += 1.0
		case pe < 20:
			score += 0.7
		case pe < 25:
			score += 0.4
		default:
			score += 0.1
		}
		factors++
	}

	if roe, ok := fval(snap.ReturnOnEquity); ok {
		switch {
		case roe > 0.20:
			score += 1.0
		case roe > 0.15:
			score += 0.7
		case roe > 0.10:
			score += 0.4
		}
		factors++
	}

	if margin, ok := fval(snap.ProfitMargin); ok {
		switch {
		case margin > 0.20:
			score += 1.0
		case margin > 0.10:
			score += 0.6
		}
		factors++
	}

	if de, ok := fval(snap.DebtToEquity); ok {
		switch {
		case de < 50:
			score += 1.0
		case de < 100:
			score += 0.6
		case de < 200:
			score += 0.3
		}
		factors++
	}

	if cr, ok := fval(snap.CurrentRatio); ok {
		switch {
		case cr > 1.5:
			score += 0.8
		case cr > 1.0:
			score += 0.5
		}
		factors++
	}

	if factors == 0 {
		return 0
	}
	return score / float64(factors)
}

func (v *ValueQuality) isBuyCandidate(snap *domain.Snapshot) bool {
	if !hasMoat(snap) {
		return false
	}
	if qualityScore(snap) < 0.6 {
		return false
	}
	if pe, ok := fval(snap.PERatio); ok && pe > 30 {
		return false
	}
	return true
}

func (v *ValueQuality) shouldSell(snap *domain.Snapshot) bool {
	if !hasMoat(snap) {
		return true
	}
	if pe, ok := fval(snap.PERatio); ok && pe > 50 {
		return true
	}
	return false
}

// positionSize caps a new position at 15% of total value and 50% of cash.
func (v *ValueQuality) positionSize(p *domain.Portfolio, snap *domain.Snapshot) float64 {
	if snap.Price <= 0 {
		return 0
	}
	positionValue := math.Min(totalValue(p)*0.15, p.Cash*0.5)
	return math.Floor(positionValue / snap.Price)
}

func buyReasoning(snap *domain.Snapshot, score float64) string {
	var reasons []string
	if roe, ok := fval(snap.ReturnOnEquity); ok && roe > 0.15 {
		reasons = append(reasons, fmt.Sprintf("strong ROE of %.1f%%", roe*100))
	}
	if margin, ok := fval(snap.ProfitMargin); ok && margin > 0.10 {
		reasons = append(reasons, fmt.Sprintf("healthy margins of %.1f%%", margin*100))
	}
	if pe, ok := fval(snap.PERatio); ok && pe < 20 {
		reasons = append(reasons, fmt.Sprintf("reasonable P/E of %.1f", pe))
	}
	if de, ok := fval(snap.DebtToEquity); ok && de < 100 {
		reasons = append(reasons, "conservative debt levels")
	}
	if len(reasons) == 0 {
		return fmt.Sprintf("Quality score %.2f", score)
	}
	return fmt.Sprintf("Quality score %.2f. %s", score, strings.Join(reasons, "; "))
}

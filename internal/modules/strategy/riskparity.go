package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mmorris35/council/internal/domain"
)

// allWeatherTargets is a fixed cross-asset allocation meant to hold up in
// any economic environment: growth, recession, inflation, deflation.
var allWeatherTargets = map[string]float64{
	"VTI": 0.30,
	"TLT": 0.40,
	"IEI": 0.15,
	"GLD": 0.075,
	"DBC": 0.075,
}

const (
	riskParityDriftThreshold = 0.05
	riskParityCashDeployPct  = 0.10
)

// RiskParity maintains a static all-weather basket, rebalancing whenever an
// asset drifts more than five percentage points from target and deploying
// idle cash proportionally.
type RiskParity struct{}

// NewRiskParity creates the risk-parity policy
func NewRiskParity(cfg Config) *RiskParity { return &RiskParity{} }

func (r *RiskParity) Persona() domain.Persona { return domain.PersonaRiskParity }
func (r *RiskParity) Name() string            { return "All Weather Risk Parity" }

func (r *RiskParity) Universe() []string {
	symbols := make([]string, 0, len(allWeatherTargets))
	for s := range allWeatherTargets {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// Analyze reports current versus target weights for each sleeve.
func (r *RiskParity) Analyze(view MarketView) string {
	var b strings.Builder
	b.WriteString("Diversification is the holy grail. Target allocation:\n")
	for _, symbol := range r.Universe() {
		fmt.Fprintf(&b, "  - %s: %.1f%%", symbol, allWeatherTargets[symbol]*100)
		if snap := view.Get(symbol); snap != nil {
			fmt.Fprintf(&b, " (last %.2f)", snap.Price)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nHe who lives by the crystal ball will eat shattered glass.")
	return b.String()
}

// Recommend rebalances any sleeve that has drifted past threshold, then
// deploys idle cash proportionally when it exceeds 10% of the book.
// Rebalance trades are sized to close the drift to the nearest whole share.
func (r *RiskParity) Recommend(p *domain.Portfolio, view MarketView) []domain.TradeRecommendation {
	total := totalValue(p)
	if total <= 0 {
		return nil
	}

	var recs []domain.TradeRecommendation
	cash := p.Cash

	for _, symbol := range r.Universe() {
		target := allWeatherTargets[symbol]
		snap := view.Get(symbol)
		if snap == nil || snap.Price <= 0 {
			continue
		}

		current := 0.0
		var held float64
		if pos := p.Position(symbol); pos != nil {
			current = pos.MarketValue() / total
			held = pos.Shares
		}

		drift := current - target
		if math.Abs(drift) <= riskParityDriftThreshold {
			continue
		}

		shares := math.Floor(math.Abs(drift) * total / snap.Price)
		if shares <= 0 {
			continue
		}

		if drift < 0 {
			cost := shares * snap.Price
			if cost > cash {
				continue
			}
			cash -= cost
			recs = append(recs, domain.TradeRecommendation{
				Side:       domain.SideBuy,
				Symbol:     symbol,
				Shares:     shares,
				Reasoning:  fmt.Sprintf("underweight %.1f%% vs %.1f%% target", current*100, target*100),
				Confidence: 0.85,
			})
		} else {
			if held < shares {
				continue
			}
			cash += shares * snap.Price
			recs = append(recs, domain.TradeRecommendation{
				Side:       domain.SideSell,
				Symbol:     symbol,
				Shares:     shares,
				Reasoning:  fmt.Sprintf("overweight %.1f%% vs %.1f%% target", current*100, target*100),
				Confidence: 0.85,
			})
		}
	}

	if p.Cash > total*riskParityCashDeployPct {
		recs = append(recs, r.deployCash(p, view)...)
	}

	return recs
}

// deployCash buys every sleeve in proportion to target weight, committing
// 90% of cash and holding the rest back for rounding.
func (r *RiskParity) deployCash(p *domain.Portfolio, view MarketView) []domain.TradeRecommendation {
	deploy := p.Cash * 0.9
	var recs []domain.TradeRecommendation
	for _, symbol := range r.Universe() {
		snap := view.Get(symbol)
		if snap == nil || snap.Price <= 0 {
			continue
		}
		shares := math.Floor(deploy * allWeatherTargets[symbol] / snap.Price)
		if shares <= 0 {
			continue
		}
		recs = append(recs, domain.TradeRecommendation{
			Side:       domain.SideBuy,
			Symbol:     symbol,
			Shares:     shares,
			Reasoning:  fmt.Sprintf("deploying idle cash to %.1f%% sleeve", allWeatherTargets[symbol]*100),
			Confidence: 0.9,
		})
	}
	return recs
}

package strategy

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mmorris35/council/internal/domain"
)

// passiveTargets is a two-fund total-market allocation.
var passiveTargets = map[string]float64{
	"VTI": 0.70,
	"BND": 0.30,
}

const (
	passiveMinCashToInvest = 1000.0
	passiveDriftThreshold  = 0.05
	passiveBuyWindowDay    = 5
)

// Passive holds a two-fund portfolio, investing fresh cash early in the
// month and otherwise rebalancing only on meaningful drift.
type Passive struct {
	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewPassive creates the passive indexing policy
func NewPassive(cfg Config) *Passive {
	return &Passive{now: time.Now}
}

func (pp *Passive) Persona() domain.Persona { return domain.PersonaPassive }
func (pp *Passive) Name() string            { return "Two-Fund Indexing" }

func (pp *Passive) Universe() []string { return []string{"VTI", "BND"} }

// Analyze has very little to say. That is the point.
func (pp *Passive) Analyze(view MarketView) string {
	var b strings.Builder
	b.WriteString("Don't look for the needle in the haystack. Just buy the haystack.\n")
	for _, symbol := range pp.Universe() {
		if snap := view.Get(symbol); snap != nil {
			fmt.Fprintf(&b, "  - %s (%.1f%% target): %.2f\n", symbol, passiveTargets[symbol]*100, snap.Price)
		}
	}
	b.WriteString("\nStay the course.")
	return b.String()
}

// Recommend invests available cash proportionally during the first five days
// of the month, or rebalances when the invested split drifts past threshold.
// Most runs it does nothing, which is the correct behavior.
func (pp *Passive) Recommend(p *domain.Portfolio, view MarketView) []domain.TradeRecommendation {
	vti := view.Get("VTI")
	bnd := view.Get("BND")
	if vti == nil || bnd == nil || vti.Price <= 0 || bnd.Price <= 0 {
		return nil
	}

	var recs []domain.TradeRecommendation
	if p.Cash > passiveMinCashToInvest && pp.now().Day() <= passiveBuyWindowDay {
		recs = append(recs, pp.investCash(p, vti, bnd)...)
	}

	return append(recs, pp.rebalance(p, vti, bnd)...)
}

func (pp *Passive) investCash(p *domain.Portfolio, vti, bnd *domain.Snapshot) []domain.TradeRecommendation {
	var recs []domain.TradeRecommendation
	for _, alloc := range []struct {
		snap   *domain.Snapshot
		weight float64
	}{
		{vti, passiveTargets["VTI"]},
		{bnd, passiveTargets["BND"]},
	} {
		shares := math.Floor(p.Cash * alloc.weight / alloc.snap.Price)
		if shares <= 0 {
			continue
		}
		recs = append(recs, domain.TradeRecommendation{
			Side:       domain.SideBuy,
			Symbol:     alloc.snap.Symbol,
			Shares:     shares,
			Reasoning:  fmt.Sprintf("monthly contribution, %.0f%% allocation", alloc.weight*100),
			Confidence: 0.95,
		})
	}
	return recs
}

func (pp *Passive) rebalance(p *domain.Portfolio, vti, bnd *domain.Snapshot) []domain.TradeRecommendation {
	var stockValue, bondValue float64
	if pos := p.Position("VTI"); pos != nil {
		stockValue = pos.MarketValue()
	}
	if pos := p.Position("BND"); pos != nil {
		bondValue = pos.MarketValue()
	}
	invested := stockValue + bondValue
	if invested <= 0 {
		return nil
	}

	stockWeight := stockValue / invested
	drift := stockWeight - passiveTargets["VTI"]
	if math.Abs(drift) <= passiveDriftThreshold {
		return nil
	}

	excess := math.Abs(drift) * invested
	var over, under *domain.Snapshot
	if drift > 0 {
		over, under = vti, bnd
	} else {
		over, under = bnd, vti
	}

	sellShares := math.Floor(excess / over.Price)
	buyShares := math.Floor(excess / under.Price)
	if sellShares <= 0 || buyShares <= 0 {
		return nil
	}

	return []domain.TradeRecommendation{
		{
			Side:       domain.SideSell,
			Symbol:     over.Symbol,
			Shares:     sellShares,
			Reasoning:  fmt.Sprintf("rebalancing, stock weight %.1f%%", stockWeight*100),
			Confidence: 0.85,
		},
		{
			Side:       domain.SideBuy,
			Symbol:     under.Symbol,
			Shares:     buyShares,
			Reasoning:  fmt.Sprintf("rebalancing, stock weight %.1f%%", stockWeight*100),
			Confidence: 0.85,
		},
	}
}

package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mmorris35/council/internal/domain"
)

// defaultDeepValueWatchlist is a broad screen universe; the hard filter does
// the real work of narrowing it.
var defaultDeepValueWatchlist = []string{
	"F", "GM", "T", "VZ", "INTC", "WBA", "KSS", "M", "FL", "PARA",
	"C", "USB", "PFE", "BMY", "CVS", "MO", "KMI", "DOW", "LYB", "NUE",
	"WHR", "LEG", "NWL", "VFC", "HBI", "GPS", "AAL", "DAL", "UAL", "ALK",
}

// Deep-value screen thresholds and portfolio shape.
const (
	deepValueMaxPE           = 15.0
	deepValueMaxPB           = 1.5
	deepValueMinCurrentRatio = 2.0
	deepValueMaxDebtEquity   = 50.0
	deepValueMinPositions    = 20
	deepValueMaxPositions    = 30
	deepValueMaxPositionPct  = 0.05
	deepValueMinMargin       = 0.25 // margin of safety required to buy
)

// DeepValue runs strict quantitative bargain screens: statistically cheap
// balance sheets bought below intrinsic value, diversified across many
// small positions.
type DeepValue struct {
	watchlist []string
}

// NewDeepValue creates the deep-value policy
func NewDeepValue(cfg Config) *DeepValue {
	return &DeepValue{
		watchlist: cfg.watchlist(domain.PersonaDeepValue, defaultDeepValueWatchlist),
	}
}

func (d *DeepValue) Persona() domain.Persona { return domain.PersonaDeepValue }
func (d *DeepValue) Name() string            { return "Deep Value" }
func (d *DeepValue) Universe() []string      { return d.watchlist }

// Analyze screens the universe and narrates the bargains found.
func (d *DeepValue) Analyze(view MarketView) string {
	type bargain struct {
		symbol string
		margin float64
		snap   *domain.Snapshot
	}

	var bargains []bargain
	for _, symbol := range d.watchlist {
		snap := view.Get(symbol)
		if snap == nil || !passesDeepValueScreen(snap) {
			continue
		}
		margin := marginOfSafety(snap, intrinsicValue(snap))
		if margin > 0.2 {
			bargains = append(bargains, bargain{symbol, margin, snap})
		}
	}
	sort.Slice(bargains, func(i, j int) bool { return bargains[i].margin > bargains[j].margin })

	var b strings.Builder
	fmt.Fprintf(&b, "Philosophy: buy $1 bills for $0.50.\n\nScreening %d stocks:\n", len(d.watchlist))
	fmt.Fprintf(&b, "- P/E < %.0f\n- P/B < %.1f\n- Current ratio > %.1f\n- Debt/Equity < %.0f%%\n\n", deepValueMaxPE, deepValueMaxPB, deepValueMinCurrentRatio, deepValueMaxDebtEquity)
	fmt.Fprintf(&b, "Bargains found: %d\n", len(bargains))
	for i, bg := range bargains {
		if i >= 5 {
			break
		}
		pe, _ := fval(bg.snap.PERatio)
		pb, _ := fval(bg.snap.PBRatio)
		fmt.Fprintf(&b, "- %s: %.0f%% margin of safety, P/E %.1f, P/B %.2f\n", bg.symbol, bg.margin*100, pe, pb)
	}
	b.WriteString("\nIn the short run the market is a voting machine; in the long run it is a weighing machine.")
	return b.String()
}

// Recommend sells holdings that no longer pass the screen or whose multiple
// has expanded, then buys the three widest-margin bargains.
func (d *DeepValue) Recommend(p *domain.Portfolio, view MarketView) []domain.TradeRecommendation {
	var recs []domain.TradeRecommendation
	held := heldSymbols(p)

	for _, pos := range p.Positions {
		snap := view.Get(pos.Symbol)
		if snap == nil {
			continue
		}
		if !passesDeepValueScreen(snap) {
			recs = append(recs, domain.TradeRecommendation{
				Side:       domain.SideSell,
				Symbol:     pos.Symbol,
				Shares:     pos.Shares,
				Reasoning:  "No longer meets the quantitative screen",
				Confidence: 0.75,
			})
		} else if pe, ok := fval(snap.PERatio); ok && pe > 20 {
			recs = append(recs, domain.TradeRecommendation{
				Side:       domain.SideSell,
				Symbol:     pos.Symbol,
				Shares:     pos.Shares,
				Reasoning:  fmt.Sprintf("P/E expanded to %.1f, take profits", pe),
				Confidence: 0.7,
			})
		}
	}

	if len(held) >= deepValueMinPositions {
		return recs
	}

	type candidate struct {
		symbol string
		margin float64
		snap   *domain.Snapshot
	}
	var candidates []candidate
	for _, symbol := range d.watchlist {
		if held[symbol] {
			continue
		}
		snap := view.Get(symbol)
		if snap == nil || !passesDeepValueScreen(snap) {
			continue
		}
		margin := marginOfSafety(snap, intrinsicValue(snap))
		if margin > deepValueMinMargin {
			candidates = append(candidates, candidate{symbol, margin, snap})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].margin > candidates[j].margin })

	for i, c := range candidates {
		if i >= 3 {
			break
		}
		shares := d.positionSize(p, c.snap)
		if shares <= 0 {
			continue
		}
		recs = append(recs, domain.TradeRecommendation{
			Side:       domain.SideBuy,
			Symbol:     c.symbol,
			Shares:     shares,
			Reasoning:  fmt.Sprintf("Bargain: %.0f%% margin of safety", c.margin*100),
			Confidence: math.Min(0.9, 0.5+c.margin),
		})
	}

	return recs
}

// passesDeepValueScreen applies the hard filter. Any missing field fails
// the screen.
func passesDeepValueScreen(snap *domain.Snapshot) bool {
	pe, ok := fval(snap.PERatio)
	if !ok || pe <= 0 || pe > deepValueMaxPE {
		return false
	}
	pb, ok := fval(snap.PBRatio)
	if !ok || pb > deepValueMaxPB {
		return false
	}
	cr, ok := fval(snap.CurrentRatio)
	if !ok || cr < deepValueMinCurrentRatio {
		return false
	}
	de, ok := fval(snap.DebtToEquity)
	if !ok || de > deepValueMaxDebtEquity {
		return false
	}
	return true
}

// intrinsicValue applies the classic growth formula V = EPS * (8.5 + 2g),
// with g the expected growth percentage clamped to [0, 15] and defaulting
// to 5 when the source has no growth figure.
func intrinsicValue(snap *domain.Snapshot) float64 {
	eps := snap.EPS()
	if eps <= 0 {
		return 0
	}

	growth := 5.0
	if g, ok := fval(snap.EarningsGrowth); ok {
		growth = math.Min(15, math.Max(0, g*100))
	}

	return eps * (8.5 + 2*growth)
}

// marginOfSafety is the fractional discount of price below intrinsic value,
// floored at zero.
func marginOfSafety(snap *domain.Snapshot, intrinsic float64) float64 {
	if intrinsic <= 0 || snap.Price <= 0 {
		return 0
	}
	return math.Max(0, (intrinsic-snap.Price)/intrinsic)
}

// positionSize caps each position at 5% of total value; up to 80% of cash
// is deployable to keep the book wide.
func (d *DeepValue) positionSize(p *domain.Portfolio, snap *domain.Snapshot) float64 {
	if snap.Price <= 0 {
		return 0
	}
	positionValue := math.Min(totalValue(p)*deepValueMaxPositionPct, p.Cash*0.8)
	return math.Floor(positionValue / snap.Price)
}

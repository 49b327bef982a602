package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mmorris35/council/internal/domain"
)

// StockCategory classifies a stock by its growth character, which sets the
// expectations for what a fair multiple looks like.
type StockCategory string

const (
	CategorySlowGrower StockCategory = "slow grower"
	CategoryStalwart   StockCategory = "stalwart"
	CategoryFastGrower StockCategory = "fast grower"
	CategoryCyclical   StockCategory = "cyclical"
	CategoryTurnaround StockCategory = "turnaround"
	CategoryAssetPlay  StockCategory = "asset play"
)

var defaultGARPWatchlist = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA", "TSLA", "HD", "NKE",
	"SBUX", "MCD", "DIS", "TGT", "COST", "WMT", "LULU", "CMG", "NFLX",
	"CRM", "ADBE", "NOW", "SHOP", "SQ", "PYPL", "V", "MA", "AXP",
}

const (
	garpMaxPEG       = 1.5
	garpSellPEG      = 2.5
	garpMaxPositions = 15
)

// GARP buys growth at a reasonable price: fast growers and stalwarts whose
// P/E is cheap relative to their earnings growth.
type GARP struct {
	watchlist []string
}

// NewGARP creates the GARP policy
func NewGARP(cfg Config) *GARP {
	return &GARP{watchlist: cfg.watchlist(domain.PersonaGARP, defaultGARPWatchlist)}
}

func (g *GARP) Persona() domain.Persona { return domain.PersonaGARP }
func (g *GARP) Name() string            { return "Growth at a Reasonable Price" }
func (g *GARP) Universe() []string      { return g.watchlist }

// Analyze classifies the watchlist and narrates the cheapest fast growers
// and stalwarts by PEG.
func (g *GARP) Analyze(view MarketView) string {
	type entry struct {
		symbol string
		peg    float64
		snap   *domain.Snapshot
	}
	categorized := make(map[StockCategory][]entry)

	for _, symbol := range g.watchlist {
		snap := view.Get(symbol)
		if snap == nil {
			continue
		}
		peg, ok := pegRatio(snap)
		if !ok || peg <= 0 {
			continue
		}
		cat := classifyStock(snap)
		categorized[cat] = append(categorized[cat], entry{symbol, peg, snap})
	}

	var b strings.Builder
	b.WriteString("Philosophy: know what you own. PEG < 1 is a bargain.\n\nClassifications:\n")
	for _, cat := range []StockCategory{CategoryFastGrower, CategoryStalwart} {
		entries := categorized[cat]
		sort.Slice(entries, func(i, j int) bool { return entries[i].peg < entries[j].peg })
		fmt.Fprintf(&b, "\n%s:\n", cat)
		for i, e := range entries {
			if i >= 3 {
				break
			}
			growth, _ := fval(e.snap.EarningsGrowth)
			fmt.Fprintf(&b, "  - %s: PEG %.2f, growth %.0f%%\n", e.symbol, e.peg, growth*100)
		}
	}
	b.WriteString("\nGo for a business that any idiot can run.")
	return b.String()
}

// Recommend trims holdings whose PEG has blown out, then buys the two
// cheapest eligible fast growers or stalwarts.
func (g *GARP) Recommend(p *domain.Portfolio, view MarketView) []domain.TradeRecommendation {
	var recs []domain.TradeRecommendation
	held := heldSymbols(p)

	for _, pos := range p.Positions {
		snap := view.Get(pos.Symbol)
		if snap == nil {
			continue
		}
		if peg, ok := pegRatio(snap); ok && peg > garpSellPEG {
			recs = append(recs, domain.TradeRecommendation{
				Side:       domain.SideSell,
				Symbol:     pos.Symbol,
				Shares:     pos.Shares,
				Reasoning:  fmt.Sprintf("PEG expanded to %.2f, overvalued", peg),
				Confidence: 0.75,
			})
		}
	}

	if len(held) >= garpMaxPositions {
		return recs
	}

	type candidate struct {
		symbol   string
		peg      float64
		category StockCategory
	}
	var candidates []candidate
	for _, symbol := range g.watchlist {
		if held[symbol] {
			continue
		}
		snap := view.Get(symbol)
		if snap == nil {
			continue
		}
		peg, ok := pegRatio(snap)
		if !ok || peg >= garpMaxPEG {
			continue
		}
		cat := classifyStock(snap)
		if cat != CategoryFastGrower && cat != CategoryStalwart {
			continue
		}
		candidates = append(candidates, candidate{symbol, peg, cat})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].peg < candidates[j].peg })

	for i, c := range candidates {
		if i >= 2 {
			break
		}
		snap := view.Get(c.symbol)
		shares := g.positionSize(p, snap)
		if shares <= 0 {
			continue
		}
		recs = append(recs, domain.TradeRecommendation{
			Side:       domain.SideBuy,
			Symbol:     c.symbol,
			Shares:     shares,
			Reasoning:  fmt.Sprintf("%s: PEG %.2f", c.category, c.peg),
			Confidence: math.Min(0.9, 1.0-c.peg/2),
		})
	}

	return recs
}

// pegRatio returns the source-provided PEG when available, otherwise
// P/E divided by the earnings growth percentage. ok is false when either
// input is missing or non-positive.
func pegRatio(snap *domain.Snapshot) (float64, bool) {
	pe, ok := fval(snap.PERatio)
	if !ok || pe <= 0 {
		return 0, false
	}
	if peg, ok := fval(snap.PEGRatio); ok && peg > 0 {
		return peg, true
	}
	growth, ok := fval(snap.EarningsGrowth)
	if !ok || growth <= 0 {
		return 0, false
	}
	return pe / (growth * 100), true
}

// classifyStock buckets a stock by earnings growth, falling back to book
// value and sector signals when growth is flat.
func classifyStock(snap *domain.Snapshot) StockCategory {
	growth := 0.0
	if g, ok := fval(snap.EarningsGrowth); ok {
		growth = g * 100
	}

	switch {
	case growth > 20:
		return CategoryFastGrower
	case growth > 10:
		return CategoryStalwart
	case growth > 0:
		return CategorySlowGrower
	case growth < -10:
		return CategoryTurnaround
	}

	if pb, ok := fval(snap.PBRatio); ok && pb < 1.0 {
		return CategoryAssetPlay
	}

	switch snap.Sector {
	case "Energy", "Materials", "Industrials":
		return CategoryCyclical
	}

	return CategoryStalwart
}

// positionSize caps a position at 10% of total value and 40% of cash.
func (g *GARP) positionSize(p *domain.Portfolio, snap *domain.Snapshot) float64 {
	if snap == nil || snap.Price <= 0 {
		return 0
	}
	positionValue := math.Min(totalValue(p)*0.10, p.Cash*0.4)
	return math.Floor(positionValue / snap.Price)
}

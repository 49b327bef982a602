package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmorris35/council/internal/domain"
)

func hyperGrower(symbol string) *domain.Snapshot {
	return &domain.Snapshot{
		Symbol:        symbol,
		Price:         40,
		RevenueGrowth: f(0.35),
		MarketCap:     f(8e9),
		Beta:          f(1.8),
	}
}

func TestInnovationScore(t *testing.T) {
	// Growth 1.0, small cap 0.8, high beta 0.7: average 0.833.
	assert.InDelta(t, (1.0+0.8+0.7)/3, innovationScore(hyperGrower("PLTR")), 1e-9)

	// Mega-cap slow grower: growth and beta factors count but contribute
	// nothing, only the cap band scores.
	mature := &domain.Snapshot{
		Symbol:        "X",
		Price:         100,
		RevenueGrowth: f(0.05),
		MarketCap:     f(500e9),
		Beta:          f(0.9),
	}
	assert.InDelta(t, 0.3/3, innovationScore(mature), 1e-9)

	// No data, no score.
	assert.Zero(t, innovationScore(&domain.Snapshot{Symbol: "Y", Price: 10}))
}

func TestMomentumBuysTopConviction(t *testing.T) {
	m := NewMomentum(Config{Watchlists: map[domain.Persona][]string{
		domain.PersonaMomentum: {"PLTR", "IONQ", "SNOW", "SOFI"},
	}})
	p := newPortfolio(100000)

	view := viewOf(
		hyperGrower("PLTR"), // 0.833
		hyperGrower("IONQ"), // 0.833
		&domain.Snapshot{ // 0.533
			Symbol: "SNOW", Price: 150,
			RevenueGrowth: f(0.25), MarketCap: f(60e9), Beta: f(1.3),
		},
		&domain.Snapshot{ // 0.1: below the conviction floor
			Symbol: "SOFI", Price: 8,
			RevenueGrowth: f(0.05), MarketCap: f(100e9), Beta: f(1.0),
		},
	)

	recs := m.Recommend(p, view)
	require.Len(t, recs, 3)
	symbols := make(map[string]bool)
	for _, rec := range recs {
		assert.Equal(t, domain.SideBuy, rec.Side)
		symbols[rec.Symbol] = true
	}
	assert.True(t, symbols["PLTR"])
	assert.True(t, symbols["IONQ"])
	assert.True(t, symbols["SNOW"])
	assert.False(t, symbols["SOFI"])
}

func TestMomentumPositionSizeScalesWithConviction(t *testing.T) {
	m := NewMomentum(Config{Watchlists: map[domain.Persona][]string{
		domain.PersonaMomentum: {"PLTR"},
	}})
	p := newPortfolio(100000)

	recs := m.Recommend(p, viewOf(hyperGrower("PLTR")))
	require.Len(t, recs, 1)
	// pct = 3% + 0.833*4% = 6.33%; floor(6333.33/40) = 158.
	assert.Equal(t, 158.0, recs[0].Shares)
	assert.InDelta(t, (1.0+0.8+0.7)/3, recs[0].Confidence, 1e-9)
}

func TestMomentumBuysDeepDrawdown(t *testing.T) {
	m := NewMomentum(Config{Watchlists: map[domain.Persona][]string{
		domain.PersonaMomentum: {"RBLX"},
	}})
	p := newPortfolio(50000)
	// Bought at 80, now 40: down 50% with a 60% drawdown off the high.
	addPosition(p, "RBLX", 100, 80, 40)

	snap := hyperGrower("RBLX")
	snap.FiftyTwoWeekHigh = f(100)

	recs := m.Recommend(p, viewOf(snap))
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, domain.SideBuy, rec.Side)
	assert.Equal(t, "RBLX", rec.Symbol)
	// The add is sized at a fixed 0.7 conviction regardless of the name's
	// own score: total 54000, pct 3%+0.7*4% = 5.8%, floor(3132/40) = 78.
	assert.Equal(t, 78.0, rec.Shares)
	assert.Equal(t, 0.75, rec.Confidence)
	assert.Contains(t, rec.Reasoning, "52-week high")
}

func TestMomentumSkipsShallowDrawdown(t *testing.T) {
	m := NewMomentum(Config{Watchlists: map[domain.Persona][]string{
		domain.PersonaMomentum: {"RBLX"},
	}})
	p := newPortfolio(50000)
	// Down off the high but the position itself is up: no dip buy.
	addPosition(p, "RBLX", 100, 25, 40)

	snap := hyperGrower("RBLX")
	snap.FiftyTwoWeekHigh = f(100)

	assert.Empty(t, m.Recommend(p, viewOf(snap)))
}

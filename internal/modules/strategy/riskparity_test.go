package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmorris35/council/internal/domain"
)

func allWeatherView() MarketView {
	return viewOf(
		&domain.Snapshot{Symbol: "VTI", Price: 250},
		&domain.Snapshot{Symbol: "TLT", Price: 100},
		&domain.Snapshot{Symbol: "IEI", Price: 120},
		&domain.Snapshot{Symbol: "GLD", Price: 200},
		&domain.Snapshot{Symbol: "DBC", Price: 25},
	)
}

func TestRiskParityDeploysIdleCash(t *testing.T) {
	r := NewRiskParity(Config{})
	p := newPortfolio(100000)

	recs := r.Recommend(p, allWeatherView())

	// A fresh account is underweight every sleeve and sits on idle cash, so
	// both the drift buys and the deployment fire; the ledger clamps
	// whatever the cash cannot cover.
	var drift, deploy int
	want := map[string]float64{
		"VTI": 108, // floor(90000*0.30/250)
		"TLT": 360, // floor(90000*0.40/100)
		"IEI": 112, // floor(90000*0.15/120)
		"GLD": 33,  // floor(90000*0.075/200)
		"DBC": 270, // floor(90000*0.075/25)
	}
	for _, rec := range recs {
		assert.Equal(t, domain.SideBuy, rec.Side)
		switch rec.Confidence {
		case 0.85:
			drift++
		case 0.9:
			// 90% of cash split by target weight, floored to whole shares.
			assert.Equal(t, want[rec.Symbol], rec.Shares, rec.Symbol)
			deploy++
		default:
			t.Fatalf("unexpected confidence %v for %s", rec.Confidence, rec.Symbol)
		}
	}
	assert.Equal(t, 5, drift)
	assert.Equal(t, 5, deploy)
}

func TestRiskParityTrimsOverweightDespiteIdleCash(t *testing.T) {
	r := NewRiskParity(Config{})
	// 80% VTI against the 30% target with 20% cash: the overweight sleeve
	// must still be sold in the same run as the cash deployment.
	p := newPortfolio(20000)
	addPosition(p, "VTI", 320, 200, 250) // 80000

	recs := r.Recommend(p, allWeatherView())
	require.NotEmpty(t, recs)

	bySide := map[domain.TradeSide][]domain.TradeRecommendation{}
	for _, rec := range recs {
		bySide[rec.Side] = append(bySide[rec.Side], rec)
	}

	require.Len(t, bySide[domain.SideSell], 1)
	sell := bySide[domain.SideSell][0]
	assert.Equal(t, "VTI", sell.Symbol)
	// Drift is 50 points of a 100k book: floor(50000/250) = 200 shares.
	assert.Equal(t, 200.0, sell.Shares)
	assert.Equal(t, 0.85, sell.Confidence)

	require.NotEmpty(t, bySide[domain.SideBuy])
	var deployed bool
	for _, buy := range bySide[domain.SideBuy] {
		if buy.Confidence == 0.9 {
			deployed = true
		}
	}
	assert.True(t, deployed)
}

func TestRiskParityRebalancesConcentration(t *testing.T) {
	r := NewRiskParity(Config{})
	// Everything in VTI: massively overweight the 30% target.
	p := newPortfolio(0)
	addPosition(p, "VTI", 400, 200, 250)

	recs := r.Recommend(p, allWeatherView())
	require.NotEmpty(t, recs)

	var sellVTI *domain.TradeRecommendation
	for i := range recs {
		if recs[i].Symbol == "VTI" {
			sellVTI = &recs[i]
		}
	}
	require.NotNil(t, sellVTI)
	assert.Equal(t, domain.SideSell, sellVTI.Side)
	// Drift is 70 points of a 100k book: floor(70000/250) = 280 shares.
	assert.Equal(t, 280.0, sellVTI.Shares)
	assert.Equal(t, 0.85, sellVTI.Confidence)
}

func TestRiskParityBuysRespectProjectedCash(t *testing.T) {
	r := NewRiskParity(Config{})
	// Underweight everywhere but nearly no cash: buys must not overdraw.
	p := newPortfolio(150)
	addPosition(p, "VTI", 400, 200, 250)

	recs := r.Recommend(p, allWeatherView())
	cash := p.Cash
	for _, rec := range recs {
		if rec.Side != domain.SideBuy {
			continue
		}
		snap := allWeatherView().Get(rec.Symbol)
		cost := rec.Shares * snap.Price
		assert.LessOrEqual(t, cost, cash+1e-9, "buy of %s overdraws", rec.Symbol)
		cash -= cost
	}
}

func TestRiskParityHoldsWithinBand(t *testing.T) {
	r := NewRiskParity(Config{})
	// On-target book with small residual cash: nothing to do.
	p := newPortfolio(2000)
	addPosition(p, "VTI", 120, 240, 250) // 30000
	addPosition(p, "TLT", 400, 98, 100)  // 40000
	addPosition(p, "IEI", 125, 118, 120) // 15000
	addPosition(p, "GLD", 37, 195, 200)  // 7400
	addPosition(p, "DBC", 300, 24, 25)   // 7500

	assert.Empty(t, r.Recommend(p, allWeatherView()))
}

package runs_test

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmorris35/council/internal/database"
	"github.com/mmorris35/council/internal/domain"
	"github.com/mmorris35/council/internal/modules/runs"
)

func setupRepo(t *testing.T) *runs.RunRepository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec(database.SchemaFor("ledger"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return runs.NewRunRepository(db, zerolog.Nop())
}

func record(id string, persona domain.Persona, runDate time.Time) domain.AgentRunRecord {
	return domain.AgentRunRecord{
		ID:        id,
		Persona:   persona,
		AccountID: "a1",
		RunDate:   runDate,
		Analysis:  "looked at the market",
		Recommendations: []domain.TradeRecommendation{
			{Side: domain.SideBuy, Symbol: "AAPL", Shares: 10, Reasoning: "cheap", Confidence: 0.8},
		},
		ExecutedTrades: []string{"t1"},
		ValueBefore:    100000,
		ValueAfter:     100250,
		Duration:       1500 * time.Millisecond,
		Status:         domain.RunDone,
	}
}

func TestSaveAndLatest(t *testing.T) {
	repo := setupRepo(t)
	base := time.Date(2025, time.June, 2, 14, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(record("r1", domain.PersonaValue, base)))
	require.NoError(t, repo.Save(record("r2", domain.PersonaValue, base.AddDate(0, 0, 1))))

	latest, err := repo.Latest(domain.PersonaValue)
	require.NoError(t, err)
	require.NotNil(t, latest)

	assert.Equal(t, "r2", latest.ID)
	assert.Equal(t, "looked at the market", latest.Analysis)
	require.Len(t, latest.Recommendations, 1)
	assert.Equal(t, "AAPL", latest.Recommendations[0].Symbol)
	assert.Equal(t, 0.8, latest.Recommendations[0].Confidence)
	assert.Equal(t, []string{"t1"}, latest.ExecutedTrades)
	assert.Equal(t, 1500*time.Millisecond, latest.Duration)
}

func TestLatestForUnknownPersonaReturnsNil(t *testing.T) {
	repo := setupRepo(t)

	latest, err := repo.Latest(domain.PersonaGARP)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestFailedRunRoundTrip(t *testing.T) {
	repo := setupRepo(t)

	failed := record("r1", domain.PersonaMomentum, time.Now().UTC())
	failed.Status = domain.RunFailed
	failed.Error = "market data provider down"
	failed.Recommendations = nil
	failed.ExecutedTrades = nil
	require.NoError(t, repo.Save(failed))

	latest, err := repo.Latest(domain.PersonaMomentum)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, domain.RunFailed, latest.Status)
	assert.Equal(t, "market data provider down", latest.Error)
	assert.Empty(t, latest.Recommendations)
}

func TestHistoryOrderedOldestFirst(t *testing.T) {
	repo := setupRepo(t)
	base := time.Date(2025, time.June, 2, 14, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, repo.Save(record(id, domain.PersonaValue, base.AddDate(0, 0, i))))
	}
	// A different persona's runs must not leak in.
	require.NoError(t, repo.Save(record("other", domain.PersonaPassive, base)))

	history, err := repo.History("a1", domain.PersonaValue, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "r1", history[0].ID)
	assert.Equal(t, "r3", history[2].ID)
}

func TestListByAccountNewestFirst(t *testing.T) {
	repo := setupRepo(t)
	base := time.Date(2025, time.June, 2, 14, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(record("r1", domain.PersonaValue, base)))
	require.NoError(t, repo.Save(record("r2", domain.PersonaPassive, base.Add(time.Hour))))

	list, err := repo.ListByAccount("a1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0].ID)
}

func TestLatestOrdersSubSecondRunDates(t *testing.T) {
	repo := setupRepo(t)
	base := time.Date(2025, time.June, 2, 14, 0, 0, 0, time.UTC)

	// Two runs 100ms and 120ms into the same second: text timestamps would
	// order these backwards once the trailing zero of .1 is trimmed.
	require.NoError(t, repo.Save(record("r-early", domain.PersonaValue, base.Add(100*time.Millisecond))))
	require.NoError(t, repo.Save(record("r-late", domain.PersonaValue, base.Add(120*time.Millisecond))))

	latest, err := repo.Latest(domain.PersonaValue)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "r-late", latest.ID)
	assert.True(t, latest.RunDate.Equal(base.Add(120*time.Millisecond)))
}

package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmorris35/council/internal/database"
	"github.com/mmorris35/council/internal/domain"
	"github.com/mmorris35/council/internal/modules/accounts"
	"github.com/mmorris35/council/internal/modules/analytics"
	"github.com/mmorris35/council/internal/modules/portfolio"
	"github.com/mmorris35/council/internal/modules/runs"
	"github.com/mmorris35/council/internal/modules/strategy"
	"github.com/mmorris35/council/internal/modules/trading"
)

type testEnv struct {
	server   *Server
	accounts *accounts.Repository
	runs     *runs.RunRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	portfolioDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { portfolioDB.Close() })
	_, err = portfolioDB.Exec(database.SchemaFor("portfolio"))
	require.NoError(t, err)

	ledgerDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ledgerDB.Close() })
	_, err = ledgerDB.Exec(database.SchemaFor("ledger"))
	require.NoError(t, err)

	log := zerolog.Nop()
	accountRepo := accounts.NewRepository(portfolioDB, log)
	runRepo := runs.NewRunRepository(ledgerDB, log)

	srv := New(Config{
		Port:         0,
		Accounts:     accountRepo,
		Portfolios:   portfolio.NewRepository(portfolioDB, log),
		Runs:         runRepo,
		Transactions: trading.NewTransactionRepository(ledgerDB, log),
		Analytics:    analytics.NewService(runRepo, log),
		Policies:     strategy.All(strategy.Config{}),
		Log:          log,
	})

	return &testEnv{server: srv, accounts: accountRepo, runs: runRepo}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(into))
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestCreateAndListAccounts(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/accounts/", map[string]interface{}{
		"email":          "morgan@example.com",
		"alerts_enabled": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Account
	decode(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "morgan@example.com", created.Email)
	assert.True(t, created.AlertsEnabled)

	rec = env.request(t, http.MethodGet, "/api/accounts/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Accounts []domain.Account `json:"accounts"`
	}
	decode(t, rec, &listed)
	require.Len(t, listed.Accounts, 1)
	assert.Equal(t, created.ID, listed.Accounts[0].ID)
}

func TestCreateAccountRejectsBadEmail(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/accounts/", map[string]interface{}{
		"email": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAccountRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]interface{}{"email": "dup@example.com"}
	rec := env.request(t, http.MethodPost, "/api/accounts/", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/accounts/", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSetAlerts(t *testing.T) {
	env := newTestEnv(t)

	account, err := env.accounts.Create("alice@example.com", false)
	require.NoError(t, err)

	rec := env.request(t, http.MethodPut,
		fmt.Sprintf("/api/accounts/%s/alerts", account.ID),
		map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := env.accounts.Get(account.ID)
	require.NoError(t, err)
	assert.True(t, updated.AlertsEnabled)
}

func TestSetAlertsUnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPut, "/api/accounts/nope/alerts",
		map[string]bool{"enabled": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPersonas(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/personas", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Personas []struct {
			ID       string   `json:"id"`
			Name     string   `json:"name"`
			Universe []string `json:"universe"`
		} `json:"personas"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Personas, 6)
	for _, p := range body.Personas {
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Universe)
	}
}

func TestAccountRuns(t *testing.T) {
	env := newTestEnv(t)

	record := domain.AgentRunRecord{
		ID:          "run-1",
		Persona:     domain.PersonaValue,
		AccountID:   "acct-1",
		RunDate:     time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC),
		Analysis:    "quiet day",
		ValueBefore: 100000,
		ValueAfter:  100500,
		Status:      domain.RunDone,
	}
	require.NoError(t, env.runs.Save(record))

	rec := env.request(t, http.MethodGet, "/api/accounts/acct-1/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []domain.AgentRunRecord `json:"runs"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "run-1", body.Runs[0].ID)
}

func TestAccountPerformance(t *testing.T) {
	env := newTestEnv(t)

	for i, after := range []float64{101000, 102000} {
		require.NoError(t, env.runs.Save(domain.AgentRunRecord{
			ID:          fmt.Sprintf("run-%d", i),
			Persona:     domain.PersonaValue,
			AccountID:   "acct-1",
			RunDate:     time.Date(2026, 3, 2+i, 16, 0, 0, 0, time.UTC),
			ValueBefore: 100000,
			ValueAfter:  after,
			Status:      domain.RunDone,
		}))
	}

	rec := env.request(t, http.MethodGet, "/api/accounts/acct-1/performance", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Performance []analytics.Performance `json:"performance"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Performance, 1)
	assert.Equal(t, domain.PersonaValue, body.Performance[0].Persona)
	assert.Equal(t, 2, body.Performance[0].Runs)
}

func TestRunCycleWithoutOrchestrator(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/cycle/run", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

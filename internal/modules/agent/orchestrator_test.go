package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmorris35/council/internal/domain"
	"github.com/mmorris35/council/internal/modules/strategy"
)

type fakeAccounts struct {
	accounts []domain.Account
	err      error
}

func (f *fakeAccounts) ListAccounts() ([]domain.Account, error) {
	return f.accounts, f.err
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *fakeNotifier) Notify(ctx context.Context, account domain.Account, summaries []domain.RunSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, account.ID)
	return n.err
}

func testOrchestrator(store *fakeStore, market *fakeMarket, policies []strategy.Policy, accounts *fakeAccounts, notifier domain.AlertNotifier) *Orchestrator {
	return NewOrchestrator(testRunner(store, market), accounts, policies, notifier, 4, zerolog.Nop())
}

func TestOrchestratorRunsEveryPair(t *testing.T) {
	store := newFakeStore()
	market := &fakeMarket{snapshots: map[string]*domain.Snapshot{
		"AAPL": {Symbol: "AAPL", Price: 100},
	}}
	policies := []strategy.Policy{
		&scriptedPolicy{persona: domain.PersonaValue, universe: []string{"AAPL"}},
		&scriptedPolicy{persona: domain.PersonaPassive, universe: []string{"AAPL"}},
	}
	accounts := &fakeAccounts{accounts: []domain.Account{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}}

	report, err := testOrchestrator(store, market, policies, accounts, nil).RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Accounts)
	assert.Equal(t, 6, report.Runs)
	assert.Zero(t, report.Failed)
	assert.Len(t, store.runs, 6)

	// Every pair got its own portfolio.
	for _, acct := range []string{"a1", "a2", "a3"} {
		for _, persona := range []domain.Persona{domain.PersonaValue, domain.PersonaPassive} {
			p, _ := store.LoadPortfolio(acct, persona)
			assert.NotNil(t, p, "%s/%s missing", acct, persona)
		}
	}
}

func TestOrchestratorIsolatesPanickingPolicy(t *testing.T) {
	store := newFakeStore()
	market := &fakeMarket{snapshots: map[string]*domain.Snapshot{
		"AAPL": {Symbol: "AAPL", Price: 100},
	}}
	policies := []strategy.Policy{
		&scriptedPolicy{persona: domain.PersonaValue, universe: []string{"AAPL"}, panics: true},
		&scriptedPolicy{persona: domain.PersonaPassive, universe: []string{"AAPL"}},
	}
	accounts := &fakeAccounts{accounts: []domain.Account{{ID: "a1"}}}

	report, err := testOrchestrator(store, market, policies, accounts, nil).RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Runs)
	assert.Equal(t, 1, report.Failed)

	// The healthy persona still completed.
	p, _ := store.LoadPortfolio("a1", domain.PersonaPassive)
	assert.NotNil(t, p)
}

func TestOrchestratorNotifiesOnlyOnTrades(t *testing.T) {
	store := newFakeStore()
	market := &fakeMarket{snapshots: map[string]*domain.Snapshot{
		"AAPL": {Symbol: "AAPL", Price: 100},
	}}
	trading := &scriptedPolicy{
		persona:  domain.PersonaValue,
		universe: []string{"AAPL"},
		recs: []domain.TradeRecommendation{
			{Side: domain.SideBuy, Symbol: "AAPL", Shares: 10, Confidence: 0.9},
		},
	}
	idle := &scriptedPolicy{persona: domain.PersonaPassive, universe: []string{"AAPL"}}
	notifier := &fakeNotifier{}

	accounts := &fakeAccounts{accounts: []domain.Account{
		{ID: "trades", AlertsEnabled: true},
		{ID: "optout", AlertsEnabled: false},
	}}

	_, err := testOrchestrator(store, market, []strategy.Policy{trading, idle}, accounts, notifier).RunAll(context.Background())
	require.NoError(t, err)

	// Both accounts traded, but only the opted-in one is notified.
	assert.Equal(t, []string{"trades"}, notifier.calls)
}

func TestOrchestratorSkipsNotifyWhenNoTrades(t *testing.T) {
	store := newFakeStore()
	market := &fakeMarket{snapshots: map[string]*domain.Snapshot{
		"AAPL": {Symbol: "AAPL", Price: 100},
	}}
	idle := &scriptedPolicy{persona: domain.PersonaValue, universe: []string{"AAPL"}}
	notifier := &fakeNotifier{}
	accounts := &fakeAccounts{accounts: []domain.Account{{ID: "a1", AlertsEnabled: true}}}

	_, err := testOrchestrator(store, market, []strategy.Policy{idle}, accounts, notifier).RunAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notifier.calls)
}

func TestOrchestratorReturnsAccountListError(t *testing.T) {
	store := newFakeStore()
	market := &fakeMarket{}
	accounts := &fakeAccounts{err: assert.AnError}

	_, err := testOrchestrator(store, market, nil, accounts, nil).RunAll(context.Background())
	assert.Error(t, err)
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	var km keyedMutex
	var counter, max int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.lock("same")
			defer unlock()

			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()

			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, max, "same-key sections overlapped")
}

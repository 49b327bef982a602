package portfolio

import (
	"github.com/mmorris35/council/internal/domain"
	"github.com/mmorris35/council/internal/modules/runs"
	"github.com/mmorris35/council/internal/modules/trading"
)

// Store composes the portfolio, transaction, and run repositories behind
// the single persistence interface the runner programs against. Portfolios
// live in portfolio.db; transactions and run records in ledger.db.
type Store struct {
	portfolios   *Repository
	transactions *trading.TransactionRepository
	runs         *runs.RunRepository
}

// NewStore creates the composite store
func NewStore(portfolios *Repository, transactions *trading.TransactionRepository, runRepo *runs.RunRepository) *Store {
	return &Store{
		portfolios:   portfolios,
		transactions: transactions,
		runs:         runRepo,
	}
}

var _ domain.PortfolioStore = (*Store)(nil)

func (s *Store) LoadPortfolio(accountID string, persona domain.Persona) (*domain.Portfolio, error) {
	return s.portfolios.Load(accountID, persona)
}

func (s *Store) SavePortfolio(p *domain.Portfolio) error {
	return s.portfolios.Save(p)
}

func (s *Store) AppendTransaction(t domain.Transaction) error {
	return s.transactions.Append(t)
}

func (s *Store) SaveRunRecord(r domain.AgentRunRecord) error {
	return s.runs.Save(r)
}

func (s *Store) LatestRunRecord(persona domain.Persona) (*domain.AgentRunRecord, error) {
	return s.runs.Latest(persona)
}

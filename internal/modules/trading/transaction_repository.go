// Package trading persists the append-only trade log in ledger.db.
package trading

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mmorris35/council/internal/domain"
)

// TransactionRepository handles transaction database operations. Rows are
// append-only: there is no update or delete path.
type TransactionRepository struct {
	db  *sql.DB // ledger.db
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repo", "transactions").Logger(),
	}
}

// Append inserts one transaction record.
func (r *TransactionRepository) Append(t domain.Transaction) error {
	_, err := r.db.Exec(
		`INSERT INTO transactions
		 (id, portfolio_id, account_id, persona, side, symbol, shares, price, reasoning, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PortfolioID, t.AccountID, string(t.Persona), string(t.Side),
		t.Symbol, t.Shares, t.Price, t.Reasoning, t.ExecutedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// ListByPortfolio returns a portfolio's transactions oldest first, so a
// replay of the result reconstructs the book.
func (r *TransactionRepository) ListByPortfolio(portfolioID string) ([]domain.Transaction, error) {
	rows, err := r.db.Query(
		`SELECT id, portfolio_id, account_id, persona, side, symbol, shares, price, reasoning, executed_at
		 FROM transactions WHERE portfolio_id = ? ORDER BY executed_at, id`,
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// ListRecent returns the newest transactions across all portfolios.
func (r *TransactionRepository) ListRecent(limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, portfolio_id, account_id, persona, side, symbol, shares, price, reasoning, executed_at
		 FROM transactions ORDER BY executed_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var persona, side string
		var executedAt int64
		if err := rows.Scan(&t.ID, &t.PortfolioID, &t.AccountID, &persona, &side,
			&t.Symbol, &t.Shares, &t.Price, &t.Reasoning, &executedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Persona = domain.Persona(persona)
		t.Side = domain.TradeSide(side)
		t.ExecutedAt = time.Unix(0, executedAt).UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return out, nil
}

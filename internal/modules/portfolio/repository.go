// Package portfolio persists accounts, portfolios, and positions in
// portfolio.db.
package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mmorris35/council/internal/domain"
)

// Repository handles portfolio and position database operations.
type Repository struct {
	db  *sql.DB // portfolio.db
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Load returns the portfolio for (account, persona) with its positions, or
// nil when none exists.
func (r *Repository) Load(accountID string, persona domain.Persona) (*domain.Portfolio, error) {
	row := r.db.QueryRow(
		`SELECT id, account_id, persona, cash FROM portfolios WHERE account_id = ? AND persona = ?`,
		accountID, string(persona),
	)

	p := &domain.Portfolio{Positions: make(map[string]*domain.Position)}
	var personaStr string
	if err := row.Scan(&p.ID, &p.AccountID, &personaStr, &p.Cash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query portfolio: %w", err)
	}
	p.Persona = domain.Persona(personaStr)

	rows, err := r.db.Query(
		`SELECT symbol, shares, avg_cost, last_price FROM positions WHERE portfolio_id = ?`,
		p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		pos := &domain.Position{}
		if err := rows.Scan(&pos.Symbol, &pos.Shares, &pos.AvgCost, &pos.LastPrice); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		p.Positions[pos.Symbol] = pos
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return p, nil
}

// Save upserts the portfolio row and replaces its position set in one
// transaction, so readers never observe a half-written book.
func (r *Repository) Save(p *domain.Portfolio) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`INSERT INTO portfolios (id, account_id, persona, cash, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET cash = excluded.cash, updated_at = excluded.updated_at`,
		p.ID, p.AccountID, string(p.Persona), p.Cash, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert portfolio: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM positions WHERE portfolio_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}

	for _, pos := range p.Positions {
		_, err := tx.Exec(
			`INSERT INTO positions (portfolio_id, symbol, shares, avg_cost, last_price)
			 VALUES (?, ?, ?, ?, ?)`,
			p.ID, pos.Symbol, pos.Shares, pos.AvgCost, pos.LastPrice,
		)
		if err != nil {
			return fmt.Errorf("failed to insert position %s: %w", pos.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit portfolio save: %w", err)
	}
	return nil
}

// ListByAccount returns every persona portfolio for one account.
func (r *Repository) ListByAccount(accountID string) ([]*domain.Portfolio, error) {
	rows, err := r.db.Query(
		`SELECT persona FROM portfolios WHERE account_id = ? ORDER BY persona`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var personas []domain.Persona
	for rows.Next() {
		var persona string
		if err := rows.Scan(&persona); err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		personas = append(personas, domain.Persona(persona))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}

	portfolios := make([]*domain.Portfolio, 0, len(personas))
	for _, persona := range personas {
		p, err := r.Load(accountID, persona)
		if err != nil {
			return nil, err
		}
		if p != nil {
			portfolios = append(portfolios, p)
		}
	}
	return portfolios, nil
}

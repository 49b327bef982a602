// Package accounts persists the account roster in portfolio.db.
package accounts

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mmorris35/council/internal/domain"
)

// Repository handles account database operations.
type Repository struct {
	db  *sql.DB // portfolio.db
	log zerolog.Logger
}

// NewRepository creates a new account repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "accounts").Logger(),
	}
}

// Create inserts a new account. The email must be unique.
func (r *Repository) Create(email string, alertsEnabled bool) (domain.Account, error) {
	account := domain.Account{
		ID:            uuid.NewString(),
		Email:         email,
		AlertsEnabled: alertsEnabled,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := r.db.Exec(
		`INSERT INTO accounts (id, email, alerts_enabled, created_at) VALUES (?, ?, ?, ?)`,
		account.ID, account.Email, boolToInt(account.AlertsEnabled),
		account.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to insert account: %w", err)
	}

	r.log.Info().Str("account", account.ID).Str("email", email).Msg("account created")
	return account, nil
}

// Get returns one account by id, or nil when absent.
func (r *Repository) Get(id string) (*domain.Account, error) {
	row := r.db.QueryRow(
		`SELECT id, email, alerts_enabled, created_at FROM accounts WHERE id = ?`, id,
	)
	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &account, nil
}

// ListAccounts returns every account ordered by creation time.
func (r *Repository) ListAccounts() ([]domain.Account, error) {
	rows, err := r.db.Query(
		`SELECT id, email, alerts_enabled, created_at FROM accounts ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// SetAlerts toggles the daily summary email for one account.
func (r *Repository) SetAlerts(id string, enabled bool) error {
	res, err := r.db.Exec(
		`UPDATE accounts SET alerts_enabled = ? WHERE id = ?`, boolToInt(enabled), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update alerts flag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var account domain.Account
	var alerts int
	var createdAt string
	if err := row.Scan(&account.ID, &account.Email, &alerts, &createdAt); err != nil {
		return domain.Account{}, err
	}
	account.AlertsEnabled = alerts != 0
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		account.CreatedAt = t
	}
	return account, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

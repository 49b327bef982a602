// Package runs persists agent run records in ledger.db.
package runs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mmorris35/council/internal/domain"
)

// RunRepository handles agent run record database operations.
type RunRepository struct {
	db  *sql.DB // ledger.db
	log zerolog.Logger
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "runs").Logger(),
	}
}

// Save appends one run record. Recommendations and executed trade ids are
// stored as JSON columns.
func (r *RunRepository) Save(record domain.AgentRunRecord) error {
	recs, err := json.Marshal(record.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}
	trades, err := json.Marshal(record.ExecutedTrades)
	if err != nil {
		return fmt.Errorf("failed to marshal executed trades: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO agent_runs
		 (id, persona, account_id, run_date, analysis, recommendations, executed_trades,
		  value_before, value_after, duration_ms, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, string(record.Persona), record.AccountID,
		record.RunDate.UTC().UnixNano(),
		record.Analysis, string(recs), string(trades),
		record.ValueBefore, record.ValueAfter, record.Duration.Milliseconds(),
		string(record.Status), record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}
	return nil
}

// Latest returns the most recent run for a persona, or nil when the persona
// has never run.
func (r *RunRepository) Latest(persona domain.Persona) (*domain.AgentRunRecord, error) {
	row := r.db.QueryRow(
		`SELECT id, persona, account_id, run_date, analysis, recommendations, executed_trades,
		        value_before, value_after, duration_ms, status, error
		 FROM agent_runs WHERE persona = ? ORDER BY run_date DESC LIMIT 1`,
		string(persona),
	)
	record, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	return &record, nil
}

// ListByAccount returns an account's run history, newest first.
func (r *RunRepository) ListByAccount(accountID string, limit int) ([]domain.AgentRunRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(
		`SELECT id, persona, account_id, run_date, analysis, recommendations, executed_trades,
		        value_before, value_after, duration_ms, status, error
		 FROM agent_runs WHERE account_id = ? ORDER BY run_date DESC LIMIT ?`,
		accountID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []domain.AgentRunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return records, nil
}

// History returns a persona's run records over one account, oldest first,
// for the analytics module.
func (r *RunRepository) History(accountID string, persona domain.Persona, limit int) ([]domain.AgentRunRecord, error) {
	if limit <= 0 {
		limit = 365
	}
	rows, err := r.db.Query(
		`SELECT id, persona, account_id, run_date, analysis, recommendations, executed_trades,
		        value_before, value_after, duration_ms, status, error
		 FROM agent_runs WHERE account_id = ? AND persona = ?
		 ORDER BY run_date ASC LIMIT ?`,
		accountID, string(persona), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var records []domain.AgentRunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run history: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (domain.AgentRunRecord, error) {
	var record domain.AgentRunRecord
	var persona, recs, trades, status string
	var runDate, durationMS int64
	if err := row.Scan(&record.ID, &persona, &record.AccountID, &runDate,
		&record.Analysis, &recs, &trades,
		&record.ValueBefore, &record.ValueAfter, &durationMS, &status, &record.Error); err != nil {
		return domain.AgentRunRecord{}, err
	}
	record.Persona = domain.Persona(persona)
	record.Status = domain.RunStatus(status)
	record.Duration = time.Duration(durationMS) * time.Millisecond
	record.RunDate = time.Unix(0, runDate).UTC()
	if err := json.Unmarshal([]byte(recs), &record.Recommendations); err != nil {
		return domain.AgentRunRecord{}, fmt.Errorf("failed to decode recommendations: %w", err)
	}
	if err := json.Unmarshal([]byte(trades), &record.ExecutedTrades); err != nil {
		return domain.AgentRunRecord{}, fmt.Errorf("failed to decode executed trades: %w", err)
	}
	return record, nil
}

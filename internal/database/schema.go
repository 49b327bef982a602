package database

import (
	"fmt"
	"strings"
)

// Schema DDL per database name. Each database owns its schema; Migrate is
// idempotent so startup can always run it.
var schemas = map[string]string{
	"portfolio": portfolioSchema,
	"ledger":    ledgerSchema,
	"cache":     cacheSchema,
}

const portfolioSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id             TEXT PRIMARY KEY,
    email          TEXT NOT NULL UNIQUE,
    alerts_enabled INTEGER NOT NULL DEFAULT 0,
    created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS portfolios (
    id         TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    persona    TEXT NOT NULL,
    cash       REAL NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE (account_id, persona)
);

CREATE TABLE IF NOT EXISTS positions (
    portfolio_id TEXT NOT NULL,
    symbol       TEXT NOT NULL,
    shares       REAL NOT NULL,
    avg_cost     REAL NOT NULL,
    last_price   REAL NOT NULL,
    PRIMARY KEY (portfolio_id, symbol),
    FOREIGN KEY (portfolio_id) REFERENCES portfolios(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_portfolios_account ON portfolios(account_id);
`

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS transactions (
    id           TEXT PRIMARY KEY,
    portfolio_id TEXT NOT NULL,
    account_id   TEXT NOT NULL,
    persona      TEXT NOT NULL,
    side         TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
    symbol       TEXT NOT NULL,
    shares       REAL NOT NULL CHECK (shares > 0),
    price        REAL NOT NULL CHECK (price > 0),
    reasoning    TEXT NOT NULL DEFAULT '',
    executed_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS agent_runs (
    id              TEXT PRIMARY KEY,
    persona         TEXT NOT NULL,
    account_id      TEXT NOT NULL,
    run_date        INTEGER NOT NULL,
    analysis        TEXT NOT NULL DEFAULT '',
    recommendations TEXT NOT NULL DEFAULT '[]',
    executed_trades TEXT NOT NULL DEFAULT '[]',
    value_before    REAL NOT NULL DEFAULT 0,
    value_after     REAL NOT NULL DEFAULT 0,
    duration_ms     INTEGER NOT NULL DEFAULT 0,
    status          TEXT NOT NULL CHECK (status IN ('done', 'failed')),
    error           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_transactions_portfolio ON transactions(portfolio_id, executed_at);
CREATE INDEX IF NOT EXISTS idx_agent_runs_persona ON agent_runs(persona, run_date);
`

const cacheSchema = `
CREATE TABLE IF NOT EXISTS market_snapshots (
    symbol     TEXT PRIMARY KEY,
    payload    BLOB NOT NULL,
    fetched_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);
`

// Migrate applies the schema for this database. Unknown names are skipped
// so ad-hoc databases (tests) can manage their own schema.
func (db *DB) Migrate() error {
	ddl, ok := schemas[db.name]
	if !ok {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration for %s: %w", db.name, err)
	}

	if _, err := tx.Exec(ddl); err != nil {
		_ = tx.Rollback()
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("failed to apply schema for %s: %w", db.name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema for %s: %w", db.name, err)
	}
	return nil
}

// SchemaFor returns the DDL for a database name. Test helpers use it to
// build throwaway databases with the production schema.
func SchemaFor(name string) string {
	return schemas[name]
}

// Package clientdata provides persistent caching for external market data
// responses. Snapshots are stored as msgpack blobs with expiration
// timestamps for cache-first behavior.
package clientdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mmorris35/council/internal/domain"
)

// Repository provides cache operations over cache.db.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Store upserts a snapshot with expiration = now + ttl.
func (r *Repository) Store(snap *domain.Snapshot, ttl time.Duration) error {
	payload, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	now := time.Now()
	_, err = r.db.Exec(
		`INSERT OR REPLACE INTO market_snapshots (symbol, payload, fetched_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		snap.Symbol, payload, now.UnixNano(), now.Add(ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot for %s: %w", snap.Symbol, err)
	}
	return nil
}

// GetIfFresh returns the cached snapshot only while it is unexpired.
// Returns nil, nil on miss or expiry; use Get for the stale fallback.
func (r *Repository) GetIfFresh(symbol string) (*domain.Snapshot, error) {
	return r.get(symbol, true)
}

// Get returns the cached snapshot regardless of expiry. Stale data beats no
// data when the upstream provider is down.
func (r *Repository) Get(symbol string) (*domain.Snapshot, error) {
	return r.get(symbol, false)
}

func (r *Repository) get(symbol string, freshOnly bool) (*domain.Snapshot, error) {
	query := `SELECT payload FROM market_snapshots WHERE symbol = ?`
	args := []any{symbol}
	if freshOnly {
		query += ` AND expires_at > ?`
		args = append(args, time.Now().UnixNano())
	}

	var payload []byte
	err := r.db.QueryRow(query, args...).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot for %s: %w", symbol, err)
	}

	var snap domain.Snapshot
	if err := msgpack.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot for %s: %w", symbol, err)
	}
	return &snap, nil
}

// PurgeExpired deletes expired rows and reports how many were removed.
func (r *Repository) PurgeExpired() (int64, error) {
	res, err := r.db.Exec(
		`DELETE FROM market_snapshots WHERE expires_at <= ?`,
		time.Now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge count: %w", err)
	}
	return n, nil
}

package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mmorris35/council/internal/clientdata"
	"github.com/mmorris35/council/internal/reliability"
)

// CachePurge evicts expired market snapshots from cache.db.
type CachePurge struct {
	cache *clientdata.Repository
	log   zerolog.Logger
}

// NewCachePurge creates the cache purge job
func NewCachePurge(cache *clientdata.Repository, log zerolog.Logger) *CachePurge {
	return &CachePurge{
		cache: cache,
		log:   log.With().Str("job", "cache-purge").Logger(),
	}
}

// Name implements Job.
func (j *CachePurge) Name() string { return "cache-purge" }

// Run implements Job.
func (j *CachePurge) Run() error {
	purged, err := j.cache.PurgeExpired()
	if err != nil {
		return err
	}
	if purged > 0 {
		j.log.Info().Int64("purged", purged).Msg("expired snapshots evicted")
	}
	return nil
}

// Backup uploads the database files off-host.
type Backup struct {
	backup  *reliability.BackupService
	timeout time.Duration
}

// NewBackup creates the backup job
func NewBackup(backup *reliability.BackupService, timeout time.Duration) *Backup {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Backup{backup: backup, timeout: timeout}
}

// Name implements Job.
func (j *Backup) Name() string { return "database-backup" }

// Run implements Job.
func (j *Backup) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.backup.Run(ctx)
}

// Package marketdata supplies instrument snapshots, caching upstream
// responses in cache.db.
package marketdata

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mmorris35/council/internal/clientdata"
	"github.com/mmorris35/council/internal/domain"
)

// QuoteFetcher is the upstream client surface the service needs.
type QuoteFetcher interface {
	GetQuote(ctx context.Context, symbol string) (*domain.Snapshot, error)
}

// Service implements domain.MarketDataProvider with a cache-first strategy:
// fresh cache hit, else upstream fetch, else stale cache as a last resort.
type Service struct {
	client QuoteFetcher
	cache  *clientdata.Repository
	ttl    time.Duration
	log    zerolog.Logger
}

var _ domain.MarketDataProvider = (*Service)(nil)

// fetchWorkers bounds concurrent upstream requests in GetSnapshots.
const fetchWorkers = 4

// NewService creates the market data service. cache may be nil, which
// disables caching.
func NewService(client QuoteFetcher, cache *clientdata.Repository, ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{
		client: client,
		cache:  cache,
		ttl:    ttl,
		log:    log.With().Str("service", "marketdata").Logger(),
	}
}

// GetSnapshot returns the snapshot for one symbol.
func (s *Service) GetSnapshot(ctx context.Context, symbol string) (*domain.Snapshot, error) {
	if s.cache != nil {
		if snap, err := s.cache.GetIfFresh(symbol); err == nil && snap != nil {
			return snap, nil
		}
	}

	snap, err := s.client.GetQuote(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNoQuote) || errors.Is(err, domain.ErrDataUnavailable) {
			return nil, err
		}
		// Transport failure: stale data beats no data.
		if s.cache != nil {
			if stale, cacheErr := s.cache.Get(symbol); cacheErr == nil && stale != nil {
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("upstream failed, serving stale snapshot")
				return stale, nil
			}
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Store(snap, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to cache snapshot")
		}
	}
	return snap, nil
}

// GetSnapshots fetches many symbols on a small worker pool. Symbols without
// data are absent from the result; only a cancelled context fails the batch.
func (s *Service) GetSnapshots(ctx context.Context, symbols []string) (map[string]*domain.Snapshot, error) {
	out := make(map[string]*domain.Snapshot, len(symbols))
	var mu sync.Mutex

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < fetchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				snap, err := s.GetSnapshot(ctx, symbol)
				if err != nil {
					s.log.Debug().Err(err).Str("symbol", symbol).Msg("no snapshot")
					continue
				}
				mu.Lock()
				out[symbol] = snap
				mu.Unlock()
			}
		}()
	}

	for _, symbol := range symbols {
		select {
		case jobs <- symbol:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	return out, nil
}

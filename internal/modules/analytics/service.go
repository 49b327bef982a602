// Package analytics computes performance statistics over persona run
// history.
package analytics

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/mmorris35/council/internal/domain"
)

// Performance summarizes how one persona's book has evolved over its runs.
type Performance struct {
	Persona     domain.Persona `json:"persona"`
	Runs        int            `json:"runs"`
	TotalReturn float64        `json:"total_return"` // fractional, from first ValueBefore to last ValueAfter
	MeanReturn  float64        `json:"mean_return"`  // mean per-run return
	Volatility  float64        `json:"volatility"`   // stddev of per-run returns
	Sharpe      float64        `json:"sharpe"`       // mean over stddev, 0 when undefined
	WinRate     float64        `json:"win_rate"`     // fraction of runs that gained value
	FailureRate float64        `json:"failure_rate"` // fraction of runs that failed
}

// RunHistorySource is the slice of the run repository the service needs.
type RunHistorySource interface {
	History(accountID string, persona domain.Persona, limit int) ([]domain.AgentRunRecord, error)
}

// Service computes analytics from stored run records.
type Service struct {
	runs RunHistorySource
	log  zerolog.Logger
}

// NewService creates the analytics service
func NewService(runs RunHistorySource, log zerolog.Logger) *Service {
	return &Service{
		runs: runs,
		log:  log.With().Str("service", "analytics").Logger(),
	}
}

// PersonaPerformance computes the performance summary for one
// (account, persona) pair over its stored history.
func (s *Service) PersonaPerformance(accountID string, persona domain.Persona) (Performance, error) {
	records, err := s.runs.History(accountID, persona, 0)
	if err != nil {
		return Performance{}, err
	}
	return Compute(persona, records), nil
}

// AccountPerformance computes summaries for every persona of one account.
func (s *Service) AccountPerformance(accountID string) ([]Performance, error) {
	out := make([]Performance, 0, len(domain.AllPersonas()))
	for _, persona := range domain.AllPersonas() {
		perf, err := s.PersonaPerformance(accountID, persona)
		if err != nil {
			return nil, err
		}
		if perf.Runs > 0 {
			out = append(out, perf)
		}
	}
	return out, nil
}

// Compute derives the performance summary from a run series ordered oldest
// first. Failed runs count toward the failure rate but contribute no
// return observation.
func Compute(persona domain.Persona, records []domain.AgentRunRecord) Performance {
	perf := Performance{Persona: persona, Runs: len(records)}
	if len(records) == 0 {
		return perf
	}

	var returns []float64
	var wins, failed int
	var firstValue, lastValue float64

	for _, rec := range records {
		if rec.Status == domain.RunFailed {
			failed++
			continue
		}
		if firstValue == 0 {
			firstValue = rec.ValueBefore
		}
		lastValue = rec.ValueAfter

		if rec.ValueBefore > 0 {
			r := (rec.ValueAfter - rec.ValueBefore) / rec.ValueBefore
			returns = append(returns, r)
			if r > 0 {
				wins++
			}
		}
	}

	perf.FailureRate = float64(failed) / float64(len(records))
	if firstValue > 0 {
		perf.TotalReturn = (lastValue - firstValue) / firstValue
	}
	if len(returns) > 0 {
		perf.WinRate = float64(wins) / float64(len(returns))
		perf.MeanReturn = stat.Mean(returns, nil)
	}
	if len(returns) > 1 {
		perf.Volatility = math.Sqrt(stat.Variance(returns, nil))
		if perf.Volatility > 0 {
			perf.Sharpe = perf.MeanReturn / perf.Volatility
		}
	}
	return perf
}

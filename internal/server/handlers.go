package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmorris35/council/internal/domain"
)

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := s.cfg.Accounts.ListAccounts()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list accounts")
		s.writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": list})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email         string `json:"email"`
		AlertsEnabled bool   `json:"alerts_enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		s.writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	account, err := s.cfg.Accounts.Create(req.Email, req.AlertsEnabled)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			s.writeError(w, http.StatusConflict, "email already registered")
			return
		}
		s.log.Error().Err(err).Msg("failed to create account")
		s.writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}
	s.writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleSetAlerts(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.cfg.Accounts.SetAlerts(accountID, req.Enabled); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.writeError(w, http.StatusNotFound, "account not found")
			return
		}
		s.log.Error().Err(err).Msg("failed to update alerts")
		s.writeError(w, http.StatusInternalServerError, "failed to update alerts")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

// portfolioView is the dashboard shape for one persona's book.
type portfolioView struct {
	Persona    domain.Persona     `json:"persona"`
	Cash       float64            `json:"cash"`
	TotalValue float64            `json:"total_value"`
	Positions  []*domain.Position `json:"positions"`
}

func (s *Server) handleAccountPortfolios(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	portfolios, err := s.cfg.Portfolios.ListByAccount(accountID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load portfolios")
		s.writeError(w, http.StatusInternalServerError, "failed to load portfolios")
		return
	}

	views := make([]portfolioView, 0, len(portfolios))
	var grandTotal float64
	for _, p := range portfolios {
		view := portfolioView{Persona: p.Persona, Cash: p.Cash, TotalValue: p.Cash}
		for _, symbol := range p.Symbols() {
			pos := p.Positions[symbol]
			view.Positions = append(view.Positions, pos)
			view.TotalValue += pos.MarketValue()
		}
		grandTotal += view.TotalValue
		views = append(views, view)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"account_id":  accountID,
		"portfolios":  views,
		"total_value": grandTotal,
	})
}

func (s *Server) handleAccountRuns(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := s.cfg.Runs.ListByAccount(accountID, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load runs")
		s.writeError(w, http.StatusInternalServerError, "failed to load runs")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"runs": records})
}

func (s *Server) handleAccountPerformance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	performance, err := s.cfg.Analytics.AccountPerformance(accountID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to compute performance")
		s.writeError(w, http.StatusInternalServerError, "failed to compute performance")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"performance": performance})
}

func (s *Server) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	type personaView struct {
		ID       domain.Persona `json:"id"`
		Name     string         `json:"name"`
		Universe []string       `json:"universe"`
	}
	views := make([]personaView, 0, len(s.cfg.Policies))
	for _, p := range s.cfg.Policies {
		views = append(views, personaView{ID: p.Persona(), Name: p.Name(), Universe: p.Universe()})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"personas": views})
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	transactions, err := s.cfg.Transactions.ListRecent(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load transactions")
		s.writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": transactions})
}

// handleRunCycle triggers a full batch outside the schedule. The batch runs
// in the background; the response acknowledges the kick-off.
func (s *Server) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Orchestrator == nil {
		s.writeError(w, http.StatusServiceUnavailable, "orchestrator not configured")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := s.cfg.Orchestrator.RunAll(ctx); err != nil {
			s.log.Error().Err(err).Msg("manual cycle failed")
		}
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

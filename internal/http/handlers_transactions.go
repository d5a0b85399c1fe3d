package http

import (
	"net/http"
	"time"

	"esuvi/internal/core"
	"esuvi/internal/ledger"
	"esuvi/internal/log"
	"esuvi/internal/settings"
)

type transactionsResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	Count        int                `json:"count"`
}

type summaryResponse struct {
	AsOf string `json:"asOf"`
	core.Summary
	Currency string `json:"currency"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, settings.FeatureFinance, log.OpList) {
		return
	}
	txs := s.ledger.Snapshot()
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Body(transactionsResponse{Transactions: txs, Count: len(txs)}).Write(w)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	date, err := ParseDate(p.Get("date"), time.Local)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}

	tx, err := s.ledger.Add(r.Context(), ledger.Entry{
		Type:        p.Get("type"),
		Amount:      p.Get("amount"),
		Description: p.Get("description"),
		Category:    p.Get("category"),
		Date:        date,
	})
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(tx).Write(w)
}

func (s *Server) handlePurgeTransactions(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Purge(r.Context()); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleSummary reports figures for the month of asOf (YYYY-MM-DD, default
// today).
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, settings.FeatureFinance, log.OpRead) {
		return
	}
	now := s.now()
	asOf, err := ParseDate(r.URL.Query().Get("asOf"), now.Location())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	if asOf.IsZero() {
		asOf = now
	}
	currency := s.settings.StringOr(settings.CategoryFinance, settings.KeyCurrency, "")
	NewJSONResponse().Body(summaryResponse{
		AsOf:     asOf.Format(dateLayout),
		Summary:  s.ledger.Summarize(asOf),
		Currency: currency,
	}).Write(w)
}

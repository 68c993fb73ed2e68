package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/bookkeeping/internal/ledger"
)

func (s *Server) listJournals(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	var (
		f  ledger.JournalFilter
		ok bool
	)
	if f.PeriodID, ok = optionalID(w, r, "period_id"); !ok {
		return
	}
	if f.DocumentID, ok = optionalID(w, r, "document_id"); !ok {
		return
	}
	if f.From, ok = optionalDate(w, r, "from"); !ok {
		return
	}
	if f.To, ok = optionalDate(w, r, "to"); !ok {
		return
	}
	js, err := s.svc.Journals.List(r.Context(), biz.ID, f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toJournalResponses(js))
}

func (s *Server) getJournal(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	j, err := s.svc.Journals.Get(r.Context(), biz.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toJournalResponse(j))
}

func (s *Server) listLedgers(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	yearID, ok := optionalID(w, r, "fiscal_year_id")
	if !ok {
		return
	}
	if yearID == nil {
		badRequest(w, "fiscal_year_id is required")
		return
	}
	ls, err := s.svc.Balances.List(r.Context(), biz.ID, *yearID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]ledgerResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, toLedgerResponse(l))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) openLedger(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	var req ledgerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	opening, err := parseMoney(biz, "opening_balance", req.OpeningBalance)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	l, err := s.svc.Balances.OpenLedger(r.Context(), biz.ID, req.FiscalYearID, req.AccountID, opening, req.Notes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toLedgerResponse(l))
}

func (s *Server) setOpeningBalance(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req openingBalanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	opening, err := parseMoney(biz, "opening_balance", req.OpeningBalance)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	l, err := s.svc.Balances.SetOpeningBalance(r.Context(), biz.ID, id, opening)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toLedgerResponse(l))
}

// balanceAsOf defaults as_of to today (UTC).
func (s *Server) balanceAsOf(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	asOf, ok := optionalDate(w, r, "as_of")
	if !ok {
		return
	}
	date := ledger.DateOf(time.Now().UTC())
	if asOf != nil {
		date = *asOf
	}
	amt, err := s.svc.Balances.BalanceAsOf(r.Context(), biz.ID, id, date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, balanceResponse{LedgerID: id, AsOf: formatDate(date), Amount: amountString(amt)})
}

func (s *Server) closingBalance(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	amt, err := s.svc.Balances.ClosingBalance(r.Context(), biz.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, balanceResponse{LedgerID: id, Amount: amountString(amt)})
}

func (s *Server) periodActivity(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	periodID, ok := idParam(w, r, "periodID")
	if !ok {
		return
	}
	amt, err := s.svc.Balances.PeriodActivity(r.Context(), biz.ID, id, periodID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, balanceResponse{LedgerID: id, PeriodID: &periodID, Amount: amountString(amt)})
}

type nextNumberResponse struct {
	Key    string `json:"key"`
	Number int64  `json:"number"`
}

func (s *Server) nextNumber(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	n, err := s.svc.Numbers.GetNext(r.Context(), biz.ID, key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, nextNumberResponse{Key: key, Number: n})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

// readyz asks the store, when it can answer, with a short timeout.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	type readyIf interface{ Ready(context.Context) error }
	ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
	defer cancel()
	if rc, ok := s.store.(readyIf); ok {
		if err := rc.Ready(ctx); err != nil {
			s.log.Warn("not ready", "err", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

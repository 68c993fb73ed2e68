package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/ledger"
)

func (s *Server) listYears(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	ys, err := s.svc.Fiscal.ListYears(r.Context(), biz.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]yearResponse, 0, len(ys))
	for _, y := range ys {
		out = append(out, toYearResponse(y))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) createYear(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	var req yearRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	y, err := s.svc.Fiscal.CreateYear(r.Context(), biz.ID, req.Year, start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toYearResponse(y))
}

func (s *Server) getYear(w http.ResponseWriter, r *http.Request) {
	s.yearAction(w, r, http.StatusOK, s.svc.Fiscal.GetYear)
}

func (s *Server) beginClosing(w http.ResponseWriter, r *http.Request) {
	s.yearAction(w, r, http.StatusOK, s.svc.Fiscal.BeginClosing)
}

func (s *Server) completeClosing(w http.ResponseWriter, r *http.Request) {
	s.yearAction(w, r, http.StatusOK, s.svc.Fiscal.CompleteClosing)
}

// yearAction runs a service call keyed by the {id} fiscal year and writes the
// resulting year.
func (s *Server) yearAction(w http.ResponseWriter, r *http.Request, status int,
	fn func(ctx context.Context, businessID, yearID uuid.UUID) (ledger.FiscalYear, error)) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	y, err := fn(r.Context(), biz.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, status, toYearResponse(y))
}

func (s *Server) listPeriods(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	y, err := s.svc.Fiscal.GetYear(r.Context(), biz.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ps, err := s.svc.Fiscal.ListPeriods(r.Context(), biz.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toPeriodResponses(ps, y))
}

func (s *Server) createMonthlyPeriods(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	ps, err := s.svc.Fiscal.CreateMonthlyPeriods(r.Context(), biz.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	y, err := s.svc.Fiscal.GetYear(r.Context(), biz.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toPeriodResponses(ps, y))
}

func (s *Server) createPeriod(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req periodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.svc.Fiscal.CreatePeriod(r.Context(), biz.ID, id, req.Number, start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writePeriod(w, r, http.StatusCreated, p)
}

func (s *Server) closePeriod(w http.ResponseWriter, r *http.Request) {
	s.periodAction(w, r, s.svc.Fiscal.ClosePeriod)
}

func (s *Server) reopenPeriod(w http.ResponseWriter, r *http.Request) {
	s.periodAction(w, r, s.svc.Fiscal.ReopenPeriod)
}

func (s *Server) periodAction(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, businessID, periodID uuid.UUID) (ledger.FiscalPeriod, error)) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	p, err := fn(r.Context(), biz.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writePeriod(w, r, http.StatusOK, p)
}

// writePeriod loads the period's year for the display name.
func (s *Server) writePeriod(w http.ResponseWriter, r *http.Request, status int, p ledger.FiscalPeriod) {
	y, err := s.svc.Fiscal.GetYear(r.Context(), p.BusinessID, p.FiscalYearID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, status, toPeriodResponse(p, y))
}

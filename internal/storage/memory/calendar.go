package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

func (t *txView) CreateFiscalYear(_ context.Context, y ledger.FiscalYear) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, o := range t.st.years {
		if o.BusinessID == y.BusinessID && o.Year == y.Year {
			return errs.Conflict("fiscal year", y.Year, "already exists")
		}
	}
	t.st.years[y.ID] = y
	return nil
}

func (t *txView) UpdateFiscalYear(_ context.Context, y ledger.FiscalYear) error {
	if err := t.writable(); err != nil {
		return err
	}
	if o, ok := t.st.years[y.ID]; !ok || o.BusinessID != y.BusinessID {
		return errs.NotFound("fiscal year", y.ID)
	}
	t.st.years[y.ID] = y
	return nil
}

func (t *txView) FiscalYearByID(_ context.Context, businessID, id uuid.UUID) (ledger.FiscalYear, error) {
	y, ok := t.st.years[id]
	if !ok || y.BusinessID != businessID {
		return ledger.FiscalYear{}, errs.NotFound("fiscal year", id)
	}
	return y, nil
}

func (t *txView) FiscalYearByNumber(_ context.Context, businessID uuid.UUID, year int) (ledger.FiscalYear, error) {
	for _, y := range t.st.years {
		if y.BusinessID == businessID && y.Year == year {
			return y, nil
		}
	}
	return ledger.FiscalYear{}, errs.NotFound("fiscal year", year)
}

// LockFiscalYear needs no extra locking: the transaction already holds the
// store-wide write lock.
func (t *txView) LockFiscalYear(ctx context.Context, businessID, id uuid.UUID) (ledger.FiscalYear, error) {
	if err := t.writable(); err != nil {
		return ledger.FiscalYear{}, err
	}
	return t.FiscalYearByID(ctx, businessID, id)
}

func (t *txView) ListFiscalYears(_ context.Context, businessID uuid.UUID) ([]ledger.FiscalYear, error) {
	out := make([]ledger.FiscalYear, 0)
	for _, y := range t.st.years {
		if y.BusinessID == businessID {
			out = append(out, y)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

func (t *txView) CreateFiscalPeriod(_ context.Context, p ledger.FiscalPeriod) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.years[p.FiscalYearID]; !ok {
		return errs.NotFound("fiscal year", p.FiscalYearID)
	}
	for _, o := range t.st.periods {
		if o.FiscalYearID == p.FiscalYearID && o.Number == p.Number {
			return errs.Conflict("fiscal period", p.Number, "already exists")
		}
	}
	t.st.periods[p.ID] = p
	return nil
}

func (t *txView) UpdateFiscalPeriod(_ context.Context, p ledger.FiscalPeriod) error {
	if err := t.writable(); err != nil {
		return err
	}
	if o, ok := t.st.periods[p.ID]; !ok || o.BusinessID != p.BusinessID {
		return errs.NotFound("fiscal period", p.ID)
	}
	t.st.periods[p.ID] = p
	return nil
}

func (t *txView) FiscalPeriodByID(_ context.Context, businessID, id uuid.UUID) (ledger.FiscalPeriod, error) {
	p, ok := t.st.periods[id]
	if !ok || p.BusinessID != businessID {
		return ledger.FiscalPeriod{}, errs.NotFound("fiscal period", id)
	}
	return p, nil
}

func (t *txView) ListFiscalPeriods(_ context.Context, businessID, yearID uuid.UUID) ([]ledger.FiscalPeriod, error) {
	out := make([]ledger.FiscalPeriod, 0)
	for _, p := range t.st.periods {
		if p.BusinessID == businessID && p.FiscalYearID == yearID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (t *txView) FirstOpenPeriodOnOrAfter(_ context.Context, businessID uuid.UUID, date time.Time) (ledger.FiscalPeriod, ledger.FiscalYear, error) {
	d := ledger.DateOf(date)
	var best *ledger.FiscalPeriod
	for _, p := range t.st.periods {
		if p.BusinessID != businessID || p.Status != ledger.PeriodOpen || ledger.DateOf(p.EndDate).Before(d) {
			continue
		}
		if best == nil || p.StartDate.Before(best.StartDate) {
			p := p
			best = &p
		}
	}
	if best == nil {
		return ledger.FiscalPeriod{}, ledger.FiscalYear{}, errs.NotFound("fiscal period", ledger.FormatDate(d))
	}
	y, ok := t.st.years[best.FiscalYearID]
	if !ok {
		return ledger.FiscalPeriod{}, ledger.FiscalYear{}, errs.NotFound("fiscal year", best.FiscalYearID)
	}
	return *best, y, nil
}

// Package fiscal manages fiscal years and their periods.
//
// Every state change runs in one transaction that first takes an exclusive
// lock on the fiscal year row, so two callers racing to close the same year
// serialize and the second one sees the first one's result.
package fiscal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/storage"
)

// Repo is the persistence surface used by the service.
type Repo interface {
	BusinessByID(ctx context.Context, id uuid.UUID) (ledger.Business, error)
	CreateFiscalYear(ctx context.Context, y ledger.FiscalYear) error
	UpdateFiscalYear(ctx context.Context, y ledger.FiscalYear) error
	FiscalYearByID(ctx context.Context, businessID, id uuid.UUID) (ledger.FiscalYear, error)
	FiscalYearByNumber(ctx context.Context, businessID uuid.UUID, year int) (ledger.FiscalYear, error)
	LockFiscalYear(ctx context.Context, businessID, id uuid.UUID) (ledger.FiscalYear, error)
	ListFiscalYears(ctx context.Context, businessID uuid.UUID) ([]ledger.FiscalYear, error)
	CreateFiscalPeriod(ctx context.Context, p ledger.FiscalPeriod) error
	UpdateFiscalPeriod(ctx context.Context, p ledger.FiscalPeriod) error
	FiscalPeriodByID(ctx context.Context, businessID, id uuid.UUID) (ledger.FiscalPeriod, error)
	ListFiscalPeriods(ctx context.Context, businessID, yearID uuid.UUID) ([]ledger.FiscalPeriod, error)
	FirstOpenPeriodOnOrAfter(ctx context.Context, businessID uuid.UUID, date time.Time) (ledger.FiscalPeriod, ledger.FiscalYear, error)
}

type Service interface {
	CreateYear(ctx context.Context, businessID uuid.UUID, year int, start, end time.Time) (ledger.FiscalYear, error)
	// CreateMonthlyPeriods lays out calendar-month periods for a year that
	// has none yet.
	CreateMonthlyPeriods(ctx context.Context, businessID, yearID uuid.UUID) ([]ledger.FiscalPeriod, error)
	CreatePeriod(ctx context.Context, businessID, yearID uuid.UUID, number int, start, end time.Time) (ledger.FiscalPeriod, error)
	ClosePeriod(ctx context.Context, businessID, periodID uuid.UUID) (ledger.FiscalPeriod, error)
	ReopenPeriod(ctx context.Context, businessID, periodID uuid.UUID) (ledger.FiscalPeriod, error)
	BeginClosing(ctx context.Context, businessID, yearID uuid.UUID) (ledger.FiscalYear, error)
	CompleteClosing(ctx context.Context, businessID, yearID uuid.UUID) (ledger.FiscalYear, error)

	GetYear(ctx context.Context, businessID, yearID uuid.UUID) (ledger.FiscalYear, error)
	GetPeriod(ctx context.Context, businessID, periodID uuid.UUID) (ledger.FiscalPeriod, error)
	ListYears(ctx context.Context, businessID uuid.UUID) ([]ledger.FiscalYear, error)
	ListPeriods(ctx context.Context, businessID, yearID uuid.UUID) ([]ledger.FiscalPeriod, error)
	// YearForDate returns the year containing date.
	YearForDate(ctx context.Context, businessID uuid.UUID, date time.Time) (ledger.FiscalYear, error)
	// Contains reports whether date falls inside the given year.
	Contains(ctx context.Context, businessID, yearID uuid.UUID, date time.Time) (bool, error)
	FirstOpenPeriodOnOrAfter(ctx context.Context, businessID uuid.UUID, date time.Time) (ledger.FiscalPeriod, ledger.FiscalYear, error)
}

type service struct {
	store storage.Store
	log   *slog.Logger
}

func New(store storage.Store, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, log: logger}
}

func (s *service) CreateYear(ctx context.Context, businessID uuid.UUID, year int, start, end time.Time) (ledger.FiscalYear, error) {
	y := ledger.FiscalYear{
		ID:         uuid.New(),
		BusinessID: businessID,
		Year:       year,
		StartDate:  ledger.DateOf(start),
		EndDate:    ledger.DateOf(end),
		Status:     ledger.FiscalYearOpen,
	}
	if start.IsZero() || end.IsZero() {
		y.StartDate, y.EndDate = time.Time{}, time.Time{}
	}
	if err := y.Validate(); err != nil {
		return ledger.FiscalYear{}, errs.Invalid("fiscal year", year, "%v", err)
	}
	out, err := storage.Exec(ctx, s.store, func(tx storage.Repository) (ledger.FiscalYear, error) {
		if _, err := tx.BusinessByID(ctx, businessID); err != nil {
			return ledger.FiscalYear{}, err
		}
		_, err := tx.FiscalYearByNumber(ctx, businessID, year)
		switch {
		case err == nil:
			return ledger.FiscalYear{}, errs.Conflict("fiscal year", year, "already exists")
		case !errors.Is(err, errs.ErrNotFound):
			return ledger.FiscalYear{}, err
		}
		if err := tx.CreateFiscalYear(ctx, y); err != nil {
			return ledger.FiscalYear{}, err
		}
		return y, nil
	})
	if err == nil {
		s.log.Info("fiscal year created", "business_id", businessID, "year", year,
			"start", ledger.FormatDate(out.StartDate), "end", ledger.FormatDate(out.EndDate))
	}
	return out, err
}

func (s *service) CreateMonthlyPeriods(ctx context.Context, businessID, yearID uuid.UUID) ([]ledger.FiscalPeriod, error) {
	return storage.Exec(ctx, s.store, func(tx storage.Repository) ([]ledger.FiscalPeriod, error) {
		y, err := tx.LockFiscalYear(ctx, businessID, yearID)
		if err != nil {
			return nil, err
		}
		existing, err := tx.ListFiscalPeriods(ctx, businessID, yearID)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			return nil, errs.IllegalState("fiscal year", y.Year, "already has %d periods", len(existing))
		}
		periods := ledger.MonthlyPeriods(y)
		for _, p := range periods {
			if err := tx.CreateFiscalPeriod(ctx, p); err != nil {
				return nil, err
			}
		}
		s.log.Info("monthly periods created", "business_id", businessID, "year", y.Year, "periods", len(periods))
		return periods, nil
	})
}

func (s *service) CreatePeriod(ctx context.Context, businessID, yearID uuid.UUID, number int, start, end time.Time) (ledger.FiscalPeriod, error) {
	return storage.Exec(ctx, s.store, func(tx storage.Repository) (ledger.FiscalPeriod, error) {
		y, err := tx.LockFiscalYear(ctx, businessID, yearID)
		if err != nil {
			return ledger.FiscalPeriod{}, err
		}
		if y.Status == ledger.FiscalYearClosed {
			return ledger.FiscalPeriod{}, errs.IllegalState("fiscal year", y.Year, "is CLOSED")
		}
		p := ledger.FiscalPeriod{
			ID:           uuid.New(),
			BusinessID:   businessID,
			FiscalYearID: yearID,
			Number:       number,
			StartDate:    ledger.DateOf(start),
			EndDate:      ledger.DateOf(end),
			Status:       ledger.PeriodOpen,
		}
		if start.IsZero() || end.IsZero() {
			p.StartDate, p.EndDate = time.Time{}, time.Time{}
		}
		if err := p.ValidateIn(y); err != nil {
			return ledger.FiscalPeriod{}, errs.Invalid("fiscal period", number, "%v", err)
		}
		existing, err := tx.ListFiscalPeriods(ctx, businessID, yearID)
		if err != nil {
			return ledger.FiscalPeriod{}, err
		}
		for _, o := range existing {
			if o.Number == p.Number {
				return ledger.FiscalPeriod{}, errs.Conflict("fiscal period", number, "number already in use in fiscal year %d", y.Year)
			}
			if !p.IsAdjustment() && !o.IsAdjustment() && o.Overlaps(p) {
				return ledger.FiscalPeriod{}, errs.Invalid("fiscal period", number, "overlaps period %d", o.Number)
			}
		}
		if err := tx.CreateFiscalPeriod(ctx, p); err != nil {
			return ledger.FiscalPeriod{}, err
		}
		return p, nil
	})
}

// periodTransition loads a period, locks its year and applies fn.
func (s *service) periodTransition(ctx context.Context, businessID, periodID uuid.UUID, verb string,
	fn func(p *ledger.FiscalPeriod, y ledger.FiscalYear) error) (ledger.FiscalPeriod, error) {
	out, err := storage.Exec(ctx, s.store, func(tx storage.Repository) (ledger.FiscalPeriod, error) {
		p, err := tx.FiscalPeriodByID(ctx, businessID, periodID)
		if err != nil {
			return ledger.FiscalPeriod{}, err
		}
		y, err := tx.LockFiscalYear(ctx, businessID, p.FiscalYearID)
		if err != nil {
			return ledger.FiscalPeriod{}, err
		}
		// re-read under the year lock
		if p, err = tx.FiscalPeriodByID(ctx, businessID, periodID); err != nil {
			return ledger.FiscalPeriod{}, err
		}
		if err := fn(&p, y); err != nil {
			return ledger.FiscalPeriod{}, errs.IllegalState("fiscal period", p.DisplayName(y), "%v", err)
		}
		if err := tx.UpdateFiscalPeriod(ctx, p); err != nil {
			return ledger.FiscalPeriod{}, err
		}
		return p, nil
	})
	if err == nil {
		s.log.Info("fiscal period "+verb, "business_id", businessID, "period_id", periodID, "number", out.Number)
	}
	return out, err
}

func (s *service) ClosePeriod(ctx context.Context, businessID, periodID uuid.UUID) (ledger.FiscalPeriod, error) {
	return s.periodTransition(ctx, businessID, periodID, "closed", func(p *ledger.FiscalPeriod, _ ledger.FiscalYear) error {
		return p.Close()
	})
}

func (s *service) ReopenPeriod(ctx context.Context, businessID, periodID uuid.UUID) (ledger.FiscalPeriod, error) {
	return s.periodTransition(ctx, businessID, periodID, "reopened", func(p *ledger.FiscalPeriod, y ledger.FiscalYear) error {
		return p.Reopen(y)
	})
}

func (s *service) BeginClosing(ctx context.Context, businessID, yearID uuid.UUID) (ledger.FiscalYear, error) {
	out, err := storage.Exec(ctx, s.store, func(tx storage.Repository) (ledger.FiscalYear, error) {
		y, err := tx.LockFiscalYear(ctx, businessID, yearID)
		if err != nil {
			return ledger.FiscalYear{}, err
		}
		var prior *ledger.FiscalYear
		py, err := tx.FiscalYearByNumber(ctx, businessID, y.Year-1)
		switch {
		case err == nil:
			prior = &py
		case !errors.Is(err, errs.ErrNotFound):
			return ledger.FiscalYear{}, err
		}
		periods, err := tx.ListFiscalPeriods(ctx, businessID, yearID)
		if err != nil {
			return ledger.FiscalYear{}, err
		}
		if err := y.BeginClosing(prior, periods); err != nil {
			return ledger.FiscalYear{}, errs.IllegalState("fiscal year", y.Year, "%v", err)
		}
		if err := tx.UpdateFiscalYear(ctx, y); err != nil {
			return ledger.FiscalYear{}, err
		}
		return y, nil
	})
	if err == nil {
		s.log.Info("fiscal year closing", "business_id", businessID, "year", out.Year)
	}
	return out, err
}

func (s *service) CompleteClosing(ctx context.Context, businessID, yearID uuid.UUID) (ledger.FiscalYear, error) {
	out, err := storage.Exec(ctx, s.store, func(tx storage.Repository) (ledger.FiscalYear, error) {
		y, err := tx.LockFiscalYear(ctx, businessID, yearID)
		if err != nil {
			return ledger.FiscalYear{}, err
		}
		periods, err := tx.ListFiscalPeriods(ctx, businessID, yearID)
		if err != nil {
			return ledger.FiscalYear{}, err
		}
		if err := y.CompleteClosing(periods); err != nil {
			return ledger.FiscalYear{}, errs.IllegalState("fiscal year", y.Year, "%v", err)
		}
		if err := tx.UpdateFiscalYear(ctx, y); err != nil {
			return ledger.FiscalYear{}, err
		}
		return y, nil
	})
	if err == nil {
		s.log.Info("fiscal year closed", "business_id", businessID, "year", out.Year)
	}
	return out, err
}

func (s *service) GetYear(ctx context.Context, businessID, yearID uuid.UUID) (ledger.FiscalYear, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) (ledger.FiscalYear, error) {
		return tx.FiscalYearByID(ctx, businessID, yearID)
	})
}

func (s *service) GetPeriod(ctx context.Context, businessID, periodID uuid.UUID) (ledger.FiscalPeriod, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) (ledger.FiscalPeriod, error) {
		return tx.FiscalPeriodByID(ctx, businessID, periodID)
	})
}

func (s *service) ListYears(ctx context.Context, businessID uuid.UUID) ([]ledger.FiscalYear, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) ([]ledger.FiscalYear, error) {
		return tx.ListFiscalYears(ctx, businessID)
	})
}

func (s *service) ListPeriods(ctx context.Context, businessID, yearID uuid.UUID) ([]ledger.FiscalPeriod, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) ([]ledger.FiscalPeriod, error) {
		if _, err := tx.FiscalYearByID(ctx, businessID, yearID); err != nil {
			return nil, err
		}
		return tx.ListFiscalPeriods(ctx, businessID, yearID)
	})
}

func (s *service) YearForDate(ctx context.Context, businessID uuid.UUID, date time.Time) (ledger.FiscalYear, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) (ledger.FiscalYear, error) {
		return YearForDate(ctx, tx, businessID, date)
	})
}

// YearForDate scans the business's years for the one containing date.
func YearForDate(ctx context.Context, repo Repo, businessID uuid.UUID, date time.Time) (ledger.FiscalYear, error) {
	years, err := repo.ListFiscalYears(ctx, businessID)
	if err != nil {
		return ledger.FiscalYear{}, err
	}
	for _, y := range years {
		if y.Contains(date) {
			return y, nil
		}
	}
	return ledger.FiscalYear{}, errs.NotFound("fiscal year", ledger.FormatDate(date))
}

func (s *service) Contains(ctx context.Context, businessID, yearID uuid.UUID, date time.Time) (bool, error) {
	y, err := s.GetYear(ctx, businessID, yearID)
	if err != nil {
		return false, err
	}
	return y.Contains(date), nil
}

func (s *service) FirstOpenPeriodOnOrAfter(ctx context.Context, businessID uuid.UUID, date time.Time) (ledger.FiscalPeriod, ledger.FiscalYear, error) {
	var (
		p ledger.FiscalPeriod
		y ledger.FiscalYear
	)
	err := s.store.WithReadTx(ctx, func(tx storage.Repository) error {
		var err error
		p, y, err = tx.FirstOpenPeriodOnOrAfter(ctx, businessID, date)
		return err
	})
	return p, y, err
}

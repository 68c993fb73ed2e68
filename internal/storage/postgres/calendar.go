package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

const (
	yearColumns   = `id, business_id, year, start_date, end_date, status`
	periodColumns = `id, business_id, fiscal_year_id, number, start_date, end_date, status`
)

func scanYear(row pgx.Row) (ledger.FiscalYear, error) {
	var y ledger.FiscalYear
	var status string
	if err := row.Scan(&y.ID, &y.BusinessID, &y.Year, &y.StartDate, &y.EndDate, &status); err != nil {
		return ledger.FiscalYear{}, err
	}
	y.Status = ledger.FiscalYearStatus(status)
	return y, nil
}

func scanPeriod(row pgx.Row) (ledger.FiscalPeriod, error) {
	var p ledger.FiscalPeriod
	var status string
	if err := row.Scan(&p.ID, &p.BusinessID, &p.FiscalYearID, &p.Number, &p.StartDate, &p.EndDate, &status); err != nil {
		return ledger.FiscalPeriod{}, err
	}
	p.Status = ledger.PeriodStatus(status)
	return p, nil
}

func (r *repo) CreateFiscalYear(ctx context.Context, y ledger.FiscalYear) error {
	_, err := r.tx.Exec(ctx, `
		insert into fiscal_years (`+yearColumns+`)
		values ($1, $2, $3, $4, $5, $6)
	`, y.ID, y.BusinessID, y.Year, y.StartDate, y.EndDate, string(y.Status))
	return mapErr("fiscal year", y.Year, err)
}

func (r *repo) UpdateFiscalYear(ctx context.Context, y ledger.FiscalYear) error {
	ct, err := r.tx.Exec(ctx, `
		update fiscal_years set status = $1 where id = $2 and business_id = $3
	`, string(y.Status), y.ID, y.BusinessID)
	if err != nil {
		return mapErr("fiscal year", y.Year, err)
	}
	if ct.RowsAffected() == 0 {
		return errs.NotFound("fiscal year", y.ID)
	}
	return nil
}

func (r *repo) FiscalYearByID(ctx context.Context, businessID, id uuid.UUID) (ledger.FiscalYear, error) {
	y, err := scanYear(r.tx.QueryRow(ctx, `
		select `+yearColumns+` from fiscal_years where id = $1 and business_id = $2
	`, id, businessID))
	return y, mapErr("fiscal year", id, err)
}

func (r *repo) FiscalYearByNumber(ctx context.Context, businessID uuid.UUID, year int) (ledger.FiscalYear, error) {
	y, err := scanYear(r.tx.QueryRow(ctx, `
		select `+yearColumns+` from fiscal_years where business_id = $1 and year = $2
	`, businessID, year))
	return y, mapErr("fiscal year", year, err)
}

func (r *repo) LockFiscalYear(ctx context.Context, businessID, id uuid.UUID) (ledger.FiscalYear, error) {
	if r.readOnly {
		return ledger.FiscalYear{}, errs.IllegalState("fiscal year", id, "cannot lock in a read-only transaction")
	}
	y, err := scanYear(r.tx.QueryRow(ctx, `
		select `+yearColumns+` from fiscal_years where id = $1 and business_id = $2 for update
	`, id, businessID))
	return y, mapErr("fiscal year", id, err)
}

func (r *repo) ListFiscalYears(ctx context.Context, businessID uuid.UUID) ([]ledger.FiscalYear, error) {
	rows, err := r.tx.Query(ctx, `
		select `+yearColumns+` from fiscal_years where business_id = $1 order by year
	`, businessID)
	if err != nil {
		return nil, mapErr("fiscal year", nil, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.FiscalYear, error) { return scanYear(row) })
	return out, mapErr("fiscal year", nil, err)
}

func (r *repo) CreateFiscalPeriod(ctx context.Context, p ledger.FiscalPeriod) error {
	_, err := r.tx.Exec(ctx, `
		insert into fiscal_periods (`+periodColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.BusinessID, p.FiscalYearID, p.Number, p.StartDate, p.EndDate, string(p.Status))
	return mapErr("fiscal period", p.Number, err)
}

func (r *repo) UpdateFiscalPeriod(ctx context.Context, p ledger.FiscalPeriod) error {
	ct, err := r.tx.Exec(ctx, `
		update fiscal_periods set status = $1 where id = $2 and business_id = $3
	`, string(p.Status), p.ID, p.BusinessID)
	if err != nil {
		return mapErr("fiscal period", p.Number, err)
	}
	if ct.RowsAffected() == 0 {
		return errs.NotFound("fiscal period", p.ID)
	}
	return nil
}

func (r *repo) FiscalPeriodByID(ctx context.Context, businessID, id uuid.UUID) (ledger.FiscalPeriod, error) {
	p, err := scanPeriod(r.tx.QueryRow(ctx, `
		select `+periodColumns+` from fiscal_periods where id = $1 and business_id = $2
	`, id, businessID))
	return p, mapErr("fiscal period", id, err)
}

func (r *repo) ListFiscalPeriods(ctx context.Context, businessID, yearID uuid.UUID) ([]ledger.FiscalPeriod, error) {
	rows, err := r.tx.Query(ctx, `
		select `+periodColumns+` from fiscal_periods
		where business_id = $1 and fiscal_year_id = $2
		order by number
	`, businessID, yearID)
	if err != nil {
		return nil, mapErr("fiscal period", nil, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.FiscalPeriod, error) { return scanPeriod(row) })
	return out, mapErr("fiscal period", nil, err)
}

// FirstOpenPeriodOnOrAfter share-locks the chosen period and its year so a
// concurrent close has to wait for the posting transaction to finish.
func (r *repo) FirstOpenPeriodOnOrAfter(ctx context.Context, businessID uuid.UUID, date time.Time) (ledger.FiscalPeriod, ledger.FiscalYear, error) {
	d := ledger.DateOf(date)
	p, err := scanPeriod(r.tx.QueryRow(ctx, `
		select `+periodColumns+` from fiscal_periods
		where business_id = $1 and status = 'OPEN' and end_date >= $2
		order by start_date, number
		limit 1`+r.lock("for share"), businessID, d))
	if err != nil {
		return ledger.FiscalPeriod{}, ledger.FiscalYear{}, mapErr("fiscal period", ledger.FormatDate(d), err)
	}
	y, err := scanYear(r.tx.QueryRow(ctx, `
		select `+yearColumns+` from fiscal_years where id = $1`+r.lock("for share"), p.FiscalYearID))
	if err != nil {
		return ledger.FiscalPeriod{}, ledger.FiscalYear{}, mapErr("fiscal year", p.FiscalYearID, err)
	}
	return p, y, nil
}

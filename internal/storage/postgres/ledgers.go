package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

const ledgerColumns = `id, business_id, fiscal_year_id, account_id, opening_balance_minor, currency, notes`

func scanLedger(row pgx.Row) (ledger.AccountLedger, error) {
	var (
		l     ledger.AccountLedger
		minor int64
		curr  string
	)
	if err := row.Scan(&l.ID, &l.BusinessID, &l.FiscalYearID, &l.AccountID, &minor, &curr, &l.Notes); err != nil {
		return ledger.AccountLedger{}, err
	}
	l.OpeningBalance = ledger.FromMinor(strings.TrimSpace(curr), minor)
	return l, nil
}

func (r *repo) CreateLedger(ctx context.Context, l ledger.AccountLedger) error {
	units, ok := ledger.MinorUnits(l.OpeningBalance)
	if !ok {
		return errs.Invalid("ledger", l.ID, "opening balance is not representable in minor units")
	}
	_, err := r.tx.Exec(ctx, `
		insert into ledgers (`+ledgerColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, l.ID, l.BusinessID, l.FiscalYearID, l.AccountID, units, l.OpeningBalance.Curr().Code(), l.Notes)
	return mapErr("ledger", l.AccountID, err)
}

// UpdateLedger changes the opening balance and notes. The year and account
// a ledger belongs to are fixed.
func (r *repo) UpdateLedger(ctx context.Context, l ledger.AccountLedger) error {
	prev, err := scanLedger(r.tx.QueryRow(ctx, `
		select `+ledgerColumns+` from ledgers where id = $1 and business_id = $2 for update
	`, l.ID, l.BusinessID))
	if err != nil {
		return mapErr("ledger", l.ID, err)
	}
	if prev.FiscalYearID != l.FiscalYearID || prev.AccountID != l.AccountID {
		return errs.Immutable("ledger", l.ID, "fiscal year and account cannot change")
	}
	units, ok := ledger.MinorUnits(l.OpeningBalance)
	if !ok {
		return errs.Invalid("ledger", l.ID, "opening balance is not representable in minor units")
	}
	_, err = r.tx.Exec(ctx, `
		update ledgers set opening_balance_minor = $1, currency = $2, notes = $3
		where id = $4 and business_id = $5
	`, units, l.OpeningBalance.Curr().Code(), l.Notes, l.ID, l.BusinessID)
	return mapErr("ledger", l.ID, err)
}

func (r *repo) LedgerByID(ctx context.Context, businessID, id uuid.UUID) (ledger.AccountLedger, error) {
	l, err := scanLedger(r.tx.QueryRow(ctx, `
		select `+ledgerColumns+` from ledgers where id = $1 and business_id = $2
	`, id, businessID))
	return l, mapErr("ledger", id, err)
}

func (r *repo) LedgerByAccount(ctx context.Context, businessID, yearID, accountID uuid.UUID) (ledger.AccountLedger, error) {
	l, err := scanLedger(r.tx.QueryRow(ctx, `
		select `+ledgerColumns+` from ledgers
		where business_id = $1 and fiscal_year_id = $2 and account_id = $3
	`, businessID, yearID, accountID))
	return l, mapErr("ledger", accountID, err)
}

func (r *repo) ListLedgers(ctx context.Context, businessID, yearID uuid.UUID) ([]ledger.AccountLedger, error) {
	rows, err := r.tx.Query(ctx, `
		select `+ledgerColumns+` from ledgers
		where business_id = $1 and fiscal_year_id = $2
		order by account_id
	`, businessID, yearID)
	if err != nil {
		return nil, mapErr("ledger", nil, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.AccountLedger, error) { return scanLedger(row) })
	return out, mapErr("ledger", nil, err)
}

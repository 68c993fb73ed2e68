// Package balance derives account balances from an opening amount and the
// posted journal lines. Nothing is cached; every call sums from storage.
package balance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/storage"
)

// Repo is the persistence surface used by the service.
type Repo interface {
	BusinessByID(ctx context.Context, id uuid.UUID) (ledger.Business, error)
	AccountByID(ctx context.Context, businessID, id uuid.UUID) (ledger.Account, error)
	FiscalYearByID(ctx context.Context, businessID, id uuid.UUID) (ledger.FiscalYear, error)
	FiscalPeriodByID(ctx context.Context, businessID, id uuid.UUID) (ledger.FiscalPeriod, error)
	CreateLedger(ctx context.Context, l ledger.AccountLedger) error
	UpdateLedger(ctx context.Context, l ledger.AccountLedger) error
	LedgerByID(ctx context.Context, businessID, id uuid.UUID) (ledger.AccountLedger, error)
	LedgerByAccount(ctx context.Context, businessID, yearID, accountID uuid.UUID) (ledger.AccountLedger, error)
	ListLedgers(ctx context.Context, businessID, yearID uuid.UUID) ([]ledger.AccountLedger, error)
	PostedLines(ctx context.Context, q ledger.LineQuery) ([]ledger.PostedLine, error)
}

type Service interface {
	// BalanceAsOf is the opening balance plus every signed line posted on
	// or before date.
	BalanceAsOf(ctx context.Context, businessID, ledgerID uuid.UUID, date time.Time) (money.Amount, error)
	// PeriodActivity sums the signed lines of journals posted into period.
	PeriodActivity(ctx context.Context, businessID, ledgerID, periodID uuid.UUID) (money.Amount, error)
	// ClosingBalance is BalanceAsOf the fiscal year's end date.
	ClosingBalance(ctx context.Context, businessID, ledgerID uuid.UUID) (money.Amount, error)

	OpenLedger(ctx context.Context, businessID, yearID, accountID uuid.UUID, opening money.Amount, notes string) (ledger.AccountLedger, error)
	// SetOpeningBalance is only allowed while the ledger's year is OPEN.
	SetOpeningBalance(ctx context.Context, businessID, ledgerID uuid.UUID, opening money.Amount) (ledger.AccountLedger, error)
	Get(ctx context.Context, businessID, ledgerID uuid.UUID) (ledger.AccountLedger, error)
	List(ctx context.Context, businessID, yearID uuid.UUID) ([]ledger.AccountLedger, error)
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

func (s *service) BalanceAsOf(ctx context.Context, businessID, ledgerID uuid.UUID, date time.Time) (money.Amount, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) (money.Amount, error) {
		l, err := tx.LedgerByID(ctx, businessID, ledgerID)
		if err != nil {
			return money.Amount{}, err
		}
		return balanceThrough(ctx, tx, l, ledger.DateOf(date))
	})
}

func (s *service) ClosingBalance(ctx context.Context, businessID, ledgerID uuid.UUID) (money.Amount, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) (money.Amount, error) {
		l, err := tx.LedgerByID(ctx, businessID, ledgerID)
		if err != nil {
			return money.Amount{}, err
		}
		y, err := tx.FiscalYearByID(ctx, businessID, l.FiscalYearID)
		if err != nil {
			return money.Amount{}, err
		}
		return balanceThrough(ctx, tx, l, y.EndDate)
	})
}

func (s *service) PeriodActivity(ctx context.Context, businessID, ledgerID, periodID uuid.UUID) (money.Amount, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) (money.Amount, error) {
		l, err := tx.LedgerByID(ctx, businessID, ledgerID)
		if err != nil {
			return money.Amount{}, err
		}
		p, err := tx.FiscalPeriodByID(ctx, businessID, periodID)
		if err != nil {
			return money.Amount{}, err
		}
		if p.FiscalYearID != l.FiscalYearID {
			return money.Amount{}, errs.Invalid("fiscal period", periodID, "does not belong to the ledger's fiscal year")
		}
		curr := l.OpeningBalance.Curr().Code()
		units, err := sumLines(ctx, tx, ledger.LineQuery{
			BusinessID:   businessID,
			AccountID:    l.AccountID,
			FiscalYearID: l.FiscalYearID,
			PeriodID:     &periodID,
		})
		if err != nil {
			return money.Amount{}, err
		}
		return ledger.FromMinor(curr, units), nil
	})
}

func balanceThrough(ctx context.Context, repo Repo, l ledger.AccountLedger, through time.Time) (money.Amount, error) {
	opening, ok := ledger.MinorUnits(l.OpeningBalance)
	if !ok {
		return money.Amount{}, errs.Invalid("ledger", l.ID, "opening balance is not representable in minor units")
	}
	units, err := sumLines(ctx, repo, ledger.LineQuery{
		BusinessID:   l.BusinessID,
		AccountID:    l.AccountID,
		FiscalYearID: l.FiscalYearID,
		Through:      &through,
	})
	if err != nil {
		return money.Amount{}, err
	}
	total, err := ledger.AddMinor(opening, units)
	if err != nil {
		return money.Amount{}, errs.Invalid("ledger", l.ID, "balance: %v", err)
	}
	return ledger.FromMinor(l.OpeningBalance.Curr().Code(), total), nil
}

func sumLines(ctx context.Context, repo Repo, q ledger.LineQuery) (int64, error) {
	lines, err := repo.PostedLines(ctx, q)
	if err != nil {
		return 0, err
	}
	var sum int64
	for _, pl := range lines {
		if sum, err = ledger.AddMinor(sum, pl.Line.SignedMinor()); err != nil {
			return 0, errs.Invalid("ledger", q.AccountID, "balance: %v", err)
		}
	}
	return sum, nil
}

func (s *service) OpenLedger(ctx context.Context, businessID, yearID, accountID uuid.UUID, opening money.Amount, notes string) (ledger.AccountLedger, error) {
	out, err := storage.Exec(ctx, s.store, func(tx storage.Repository) (ledger.AccountLedger, error) {
		biz, err := tx.BusinessByID(ctx, businessID)
		if err != nil {
			return ledger.AccountLedger{}, err
		}
		if _, err := tx.FiscalYearByID(ctx, businessID, yearID); err != nil {
			return ledger.AccountLedger{}, err
		}
		if _, err := tx.AccountByID(ctx, businessID, accountID); err != nil {
			return ledger.AccountLedger{}, err
		}
		_, err = tx.LedgerByAccount(ctx, businessID, yearID, accountID)
		switch {
		case err == nil:
			return ledger.AccountLedger{}, errs.Conflict("ledger", accountID, "already exists for this fiscal year")
		case !errors.Is(err, errs.ErrNotFound):
			return ledger.AccountLedger{}, err
		}
		opening, err := checkOpening(biz, opening)
		if err != nil {
			return ledger.AccountLedger{}, err
		}
		l := ledger.AccountLedger{
			ID:             uuid.New(),
			BusinessID:     businessID,
			FiscalYearID:   yearID,
			AccountID:      accountID,
			OpeningBalance: opening,
			Notes:          strings.TrimSpace(notes),
		}
		if err := tx.CreateLedger(ctx, l); err != nil {
			return ledger.AccountLedger{}, err
		}
		return l, nil
	})
	if err == nil {
		s.log.Info("ledger opened", "business_id", businessID, "ledger_id", out.ID,
			"account_id", accountID, "opening_balance", ledger.FormatAmount(out.OpeningBalance))
	}
	return out, err
}

func (s *service) SetOpeningBalance(ctx context.Context, businessID, ledgerID uuid.UUID, opening money.Amount) (ledger.AccountLedger, error) {
	return storage.Exec(ctx, s.store, func(tx storage.Repository) (ledger.AccountLedger, error) {
		biz, err := tx.BusinessByID(ctx, businessID)
		if err != nil {
			return ledger.AccountLedger{}, err
		}
		l, err := tx.LedgerByID(ctx, businessID, ledgerID)
		if err != nil {
			return ledger.AccountLedger{}, err
		}
		y, err := tx.FiscalYearByID(ctx, businessID, l.FiscalYearID)
		if err != nil {
			return ledger.AccountLedger{}, err
		}
		if y.Status != ledger.FiscalYearOpen {
			return ledger.AccountLedger{}, errs.IllegalState("ledger", ledgerID,
				"opening balance cannot change: fiscal year %d is %s", y.Year, y.Status)
		}
		if l.OpeningBalance, err = checkOpening(biz, opening); err != nil {
			return ledger.AccountLedger{}, err
		}
		if err := tx.UpdateLedger(ctx, l); err != nil {
			return ledger.AccountLedger{}, err
		}
		return l, nil
	})
}

// checkOpening defaults a missing opening balance to zero in the business
// currency and rejects any other currency.
func checkOpening(biz ledger.Business, a money.Amount) (money.Amount, error) {
	if a == (money.Amount{}) {
		return ledger.Zero(biz.Currency), nil
	}
	if a.Curr().Code() != biz.Currency {
		return money.Amount{}, errs.Invalid("ledger", nil, "opening balance must be in %s", biz.Currency)
	}
	if _, ok := ledger.MinorUnits(a); !ok {
		return money.Amount{}, errs.Invalid("ledger", nil, "opening balance has more precision than %s allows", biz.Currency)
	}
	return a, nil
}

func (s *service) Get(ctx context.Context, businessID, ledgerID uuid.UUID) (ledger.AccountLedger, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) (ledger.AccountLedger, error) {
		return tx.LedgerByID(ctx, businessID, ledgerID)
	})
}

func (s *service) List(ctx context.Context, businessID, yearID uuid.UUID) ([]ledger.AccountLedger, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) ([]ledger.AccountLedger, error) {
		return tx.ListLedgers(ctx, businessID, yearID)
	})
}

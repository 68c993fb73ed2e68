package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/storage"
)

func seeded(t *testing.T) (*Store, ledger.Business) {
	t.Helper()
	s := New()
	b := ledger.Business{ID: uuid.New(), Name: "Test Co", Currency: "usd", Active: true}
	require.NoError(t, s.SeedBusiness(context.Background(), b))
	b.Currency = "USD"
	b.FiscalYearStartMonth = 1
	return s, b
}

func year2024(b ledger.Business) ledger.FiscalYear {
	return ledger.FiscalYear{
		ID: uuid.New(), BusinessID: b.ID, Year: 2024,
		StartDate: ledger.Date(2024, 1, 1), EndDate: ledger.Date(2024, 12, 31),
		Status: ledger.FiscalYearOpen,
	}
}

func TestSeedBusiness_Normalises(t *testing.T) {
	s, b := seeded(t)
	got, err := storage.Query(context.Background(), s, func(tx storage.Repository) (ledger.Business, error) {
		return tx.BusinessByID(context.Background(), b.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, 1, got.FiscalYearStartMonth)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s, b := seeded(t)
	ctx := context.Background()
	y := year2024(b)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx storage.Repository) error {
		if err := tx.CreateFiscalYear(ctx, y); err != nil {
			return err
		}
		if _, err := tx.AcquireSequence(ctx, b.ID, "JE"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = storage.Query(ctx, s, func(tx storage.Repository) (ledger.FiscalYear, error) {
		return tx.FiscalYearByID(ctx, b.ID, y.ID)
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Empty(t, s.st.sequences)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	s, b := seeded(t)
	ctx := context.Background()
	y := year2024(b)

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(tx storage.Repository) error {
			require.NoError(t, tx.CreateFiscalYear(ctx, y))
			panic("mid-transaction")
		})
	})

	years, err := storage.Query(ctx, s, func(tx storage.Repository) ([]ledger.FiscalYear, error) {
		return tx.ListFiscalYears(ctx, b.ID)
	})
	require.NoError(t, err)
	assert.Empty(t, years)
}

func TestWithReadTx_RejectsWrites(t *testing.T) {
	s, b := seeded(t)
	ctx := context.Background()
	err := s.WithReadTx(ctx, func(tx storage.Repository) error {
		return tx.CreateFiscalYear(ctx, year2024(b))
	})
	assert.ErrorIs(t, err, errReadOnly)
}

func TestCanceledContext(t *testing.T) {
	s, _ := seeded(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.WithTx(ctx, func(storage.Repository) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestInsertJournal_IsAppendOnly(t *testing.T) {
	s, b := seeded(t)
	ctx := context.Background()
	y := year2024(b)
	periods := ledger.MonthlyPeriods(y)
	cash, capital := uuid.New(), uuid.New()

	amt, err := ledger.ParseAmount("USD", "12.34")
	require.NoError(t, err)
	dr, err := ledger.DebitLine(cash, amt, "")
	require.NoError(t, err)
	cr, err := ledger.CreditLine(capital, amt, "")
	require.NoError(t, err)
	req, err := ledger.NewJournalRequest(ledger.JournalRequest{
		BusinessID: b.ID, EntryDate: ledger.Date(2024, 2, 14), DocumentID: uuid.New(),
		Type: ledger.JournalGeneral, Number: "JE-0001", Lines: []ledger.LineSpec{dr, cr},
	})
	require.NoError(t, err)

	var j ledger.Journal
	err = s.WithTx(ctx, func(tx storage.Repository) error {
		if err := tx.CreateFiscalYear(ctx, y); err != nil {
			return err
		}
		for _, p := range periods {
			if err := tx.CreateFiscalPeriod(ctx, p); err != nil {
				return err
			}
		}
		p, fy, err := tx.FirstOpenPeriodOnOrAfter(ctx, b.ID, req.EntryDate)
		if err != nil {
			return err
		}
		if j, err = ledger.NewJournal(req, b.Currency, p, fy); err != nil {
			return err
		}
		return tx.InsertJournal(ctx, j)
	})
	require.NoError(t, err)
	assert.Equal(t, periods[1].ID, j.FiscalPeriodID())

	err = s.WithTx(ctx, func(tx storage.Repository) error { return tx.InsertJournal(ctx, j) })
	assert.ErrorIs(t, err, errs.ErrImmutable)

	through := ledger.Date(2024, 2, 1)
	lines, err := storage.Query(ctx, s, func(tx storage.Repository) ([]ledger.PostedLine, error) {
		return tx.PostedLines(ctx, ledger.LineQuery{BusinessID: b.ID, AccountID: capital, FiscalYearID: y.ID, Through: &through})
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(-1234), lines[0].Line.SignedMinor())
}

func TestReset(t *testing.T) {
	s, b := seeded(t)
	s.Reset()
	_, err := storage.Query(context.Background(), s, func(tx storage.Repository) (ledger.Business, error) {
		return tx.BusinessByID(context.Background(), b.ID)
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

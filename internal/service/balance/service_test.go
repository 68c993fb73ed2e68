package balance_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/service/balance"
	"github.com/tinoosan/bookkeeping/internal/service/journal"
	"github.com/tinoosan/bookkeeping/internal/testkit"
)

func post(t *testing.T, b *testkit.Book, eng journal.Engine, date string, dr, cr ledger.Account, amount string) ledger.Journal {
	t.Helper()
	d, err := ledger.ParseDate(date)
	require.NoError(t, err)
	debit, err := ledger.DebitLine(dr.Info().ID, b.USD(t, amount), "")
	require.NoError(t, err)
	credit, err := ledger.CreditLine(cr.Info().ID, b.USD(t, amount), "")
	require.NoError(t, err)
	j, err := eng.Post(b.Ctx, ledger.JournalRequest{
		BusinessID: b.Business.ID,
		EntryDate:  d,
		DocumentID: uuid.New(),
		Type:       ledger.JournalGeneral,
		Number:     "JE-0001",
		Lines:      []ledger.LineSpec{debit, credit},
	})
	require.NoError(t, err)
	return j
}

func TestOpenLedger(t *testing.T) {
	b := testkit.New(t)
	svc := balance.New(b.Store, b.Log)

	l, err := svc.OpenLedger(b.Ctx, b.Business.ID, b.Year.ID, b.Cash.ID, money.Amount{}, "  first year ")
	require.NoError(t, err)
	assert.Equal(t, "0.00", ledger.FormatAmount(l.OpeningBalance), "defaults to zero")
	assert.Equal(t, "USD", l.OpeningBalance.Curr().Code())
	assert.Equal(t, "first year", l.Notes)

	_, err = svc.OpenLedger(b.Ctx, b.Business.ID, b.Year.ID, b.Cash.ID, b.USD(t, "1"), "")
	assert.ErrorIs(t, err, errs.ErrConflict, "one ledger per account and year")

	eur, err := ledger.ParseAmount("EUR", "10")
	require.NoError(t, err)
	_, err = svc.OpenLedger(b.Ctx, b.Business.ID, b.Year.ID, b.Capital.ID, eur, "")
	assert.ErrorIs(t, err, errs.ErrInvalid)

	_, err = svc.OpenLedger(b.Ctx, b.Business.ID, b.Year.ID, uuid.New(), money.Amount{}, "")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = svc.OpenLedger(b.Ctx, b.Business.ID, uuid.New(), b.Capital.ID, money.Amount{}, "")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	got, err := svc.Get(b.Ctx, b.Business.ID, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.AccountID, got.AccountID)

	all, err := svc.List(b.Ctx, b.Business.ID, b.Year.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestBalanceAsOf_FollowsPostingDates(t *testing.T) {
	b := testkit.New(t)
	svc := balance.New(b.Store, b.Log)
	eng := journal.New(b.Store, b.Log)

	cash, err := svc.OpenLedger(b.Ctx, b.Business.ID, b.Year.ID, b.Cash.ID, b.USD(t, "1000"), "")
	require.NoError(t, err)
	post(t, b, eng, "2024-03-15", b.Cash, b.Capital, "250")
	post(t, b, eng, "2024-05-20", b.Rent, b.Cash, "100.50")

	cases := []struct {
		date string
		want string
	}{
		{"2024-01-01", "1000.00"},
		{"2024-02-29", "1000.00"},
		{"2024-03-01", "1250.00"},
		{"2024-04-30", "1250.00"},
		{"2024-05-01", "1149.50"},
		{"2024-12-31", "1149.50"},
	}
	for _, tc := range cases {
		t.Run(tc.date, func(t *testing.T) {
			d, err := ledger.ParseDate(tc.date)
			require.NoError(t, err)
			got, err := svc.BalanceAsOf(b.Ctx, b.Business.ID, cash.ID, d)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ledger.FormatAmount(got))
		})
	}

	closing, err := svc.ClosingBalance(b.Ctx, b.Business.ID, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, "1149.50", ledger.FormatAmount(closing))

	_, err = svc.BalanceAsOf(b.Ctx, b.Business.ID, uuid.New(), ledger.Date(2024, 6, 1))
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPeriodActivity(t *testing.T) {
	b := testkit.New(t)
	svc := balance.New(b.Store, b.Log)
	eng := journal.New(b.Store, b.Log)

	capital, err := svc.OpenLedger(b.Ctx, b.Business.ID, b.Year.ID, b.Capital.ID, money.Amount{}, "")
	require.NoError(t, err)
	post(t, b, eng, "2024-03-15", b.Cash, b.Capital, "250")
	post(t, b, eng, "2024-03-28", b.Cash, b.Capital, "50")
	post(t, b, eng, "2024-04-02", b.Capital, b.Cash, "20")

	march, err := svc.PeriodActivity(b.Ctx, b.Business.ID, capital.ID, b.Periods[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "-300.00", ledger.FormatAmount(march), "credits are negative")

	april, err := svc.PeriodActivity(b.Ctx, b.Business.ID, capital.ID, b.Periods[3].ID)
	require.NoError(t, err)
	assert.Equal(t, "20.00", ledger.FormatAmount(april))

	quiet, err := svc.PeriodActivity(b.Ctx, b.Business.ID, capital.ID, b.Periods[8].ID)
	require.NoError(t, err)
	assert.True(t, quiet.IsZero())

	next, err := b.Fiscal.CreateYear(b.Ctx, b.Business.ID, 2025, ledger.Date(2025, 1, 1), ledger.Date(2025, 12, 31))
	require.NoError(t, err)
	ps, err := b.Fiscal.CreateMonthlyPeriods(b.Ctx, b.Business.ID, next.ID)
	require.NoError(t, err)
	_, err = svc.PeriodActivity(b.Ctx, b.Business.ID, capital.ID, ps[0].ID)
	assert.ErrorIs(t, err, errs.ErrInvalid, "period of another year")
}

func TestBalancesAreScopedToTheLedgerYear(t *testing.T) {
	b := testkit.New(t)
	svc := balance.New(b.Store, b.Log)
	eng := journal.New(b.Store, b.Log)

	next, err := b.Fiscal.CreateYear(b.Ctx, b.Business.ID, 2025, ledger.Date(2025, 1, 1), ledger.Date(2025, 12, 31))
	require.NoError(t, err)
	_, err = b.Fiscal.CreateMonthlyPeriods(b.Ctx, b.Business.ID, next.ID)
	require.NoError(t, err)

	cash2024, err := svc.OpenLedger(b.Ctx, b.Business.ID, b.Year.ID, b.Cash.ID, money.Amount{}, "")
	require.NoError(t, err)
	cash2025, err := svc.OpenLedger(b.Ctx, b.Business.ID, next.ID, b.Cash.ID, b.USD(t, "40"), "")
	require.NoError(t, err)

	post(t, b, eng, "2024-06-01", b.Cash, b.Capital, "40")
	post(t, b, eng, "2025-02-10", b.Cash, b.Capital, "5")

	end2024, err := svc.ClosingBalance(b.Ctx, b.Business.ID, cash2024.ID)
	require.NoError(t, err)
	assert.Equal(t, "40.00", ledger.FormatAmount(end2024))

	end2025, err := svc.ClosingBalance(b.Ctx, b.Business.ID, cash2025.ID)
	require.NoError(t, err)
	assert.Equal(t, "45.00", ledger.FormatAmount(end2025))
}

func TestSetOpeningBalance(t *testing.T) {
	b := testkit.New(t)
	svc := balance.New(b.Store, b.Log)

	l, err := svc.OpenLedger(b.Ctx, b.Business.ID, b.Year.ID, b.Cash.ID, money.Amount{}, "")
	require.NoError(t, err)

	l, err = svc.SetOpeningBalance(b.Ctx, b.Business.ID, l.ID, b.USD(t, "75.25"))
	require.NoError(t, err)
	assert.Equal(t, "75.25", ledger.FormatAmount(l.OpeningBalance))

	got, err := svc.BalanceAsOf(b.Ctx, b.Business.ID, l.ID, ledger.Date(2024, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "75.25", ledger.FormatAmount(got))

	b.CloseRegularPeriods(t)
	_, err = b.Fiscal.BeginClosing(b.Ctx, b.Business.ID, b.Year.ID)
	require.NoError(t, err)
	_, err = svc.SetOpeningBalance(b.Ctx, b.Business.ID, l.ID, b.USD(t, "1"))
	assert.ErrorIs(t, err, errs.ErrIllegalState, "year is closing")
}

// Package testkit builds a small, ready-to-post book on the memory store for
// service and handler tests.
package testkit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/service/account"
	"github.com/tinoosan/bookkeeping/internal/service/fiscal"
	"github.com/tinoosan/bookkeeping/internal/storage/memory"
)

// Book is a USD business with the template chart, a handful of accounts
// and an open calendar year with twelve monthly periods.
type Book struct {
	Ctx      context.Context
	Store    *memory.Store
	Log      *slog.Logger
	Accounts account.Service
	Fiscal   fiscal.Service

	Business ledger.Business
	Year     ledger.FiscalYear
	Periods  []ledger.FiscalPeriod

	Cash     ledger.GeneralLedgerAccount // 10.10.1000
	Capital  ledger.GeneralLedgerAccount // 30.10.1000
	Retained ledger.GeneralLedgerAccount // 30.90.1000
	Sales    ledger.GeneralLedgerAccount // 60.10.1000
	Rent     ledger.GeneralLedgerAccount // 80.20.1000
	AR       ledger.GeneralLedgerAccount // 10.20.1000, controls receivables
	Customer ledger.ReceivableAccount    // 10.20.1000.01
}

// Discard is a logger that drops everything.
func Discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// New builds a Book for fiscal year 2024.
func New(t testing.TB) *Book {
	t.Helper()
	b := &Book{Ctx: context.Background(), Store: memory.New(), Log: Discard()}
	b.Accounts = account.New(b.Store, b.Log)
	b.Fiscal = fiscal.New(b.Store, b.Log)
	b.Business = ledger.Business{ID: uuid.New(), Name: "Acme Books", Currency: "USD", FiscalYearStartMonth: 1, Active: true}
	require.NoError(t, b.Store.SeedBusiness(b.Ctx, b.Business))

	groups, err := b.Accounts.ApplyTemplate(b.Ctx, b.Business.ID)
	require.NoError(t, err)
	byNumber := make(map[string]ledger.AccountGroup, len(groups))
	for _, g := range groups {
		byNumber[g.FormattedNumber()] = g
	}

	b.Cash = b.GL(t, byNumber["10.10"], "CASH", "Cash on hand", "")
	b.Capital = b.GL(t, byNumber["30.10"], "CAPITAL", "Owner capital", "")
	b.Retained = b.GL(t, byNumber["30.90"], "RE", "Retained earnings", "")
	b.Sales = b.GL(t, byNumber["60.10"], "SALES", "Sales", "")
	b.Rent = b.GL(t, byNumber["80.20"], "RENT", "Rent", "")
	b.AR = b.GL(t, byNumber["10.20"], "AR", "Accounts receivable", ledger.KindReceivable)
	cust, err := b.Accounts.Create(b.Ctx, ledger.ReceivableAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: b.Business.ID, ShortCode: "ACME", Name: "Acme Ltd"},
		Subsidiary:  ledger.Subsidiary{Controlling: b.AR, Number: 1},
	})
	require.NoError(t, err)
	b.Customer = cust.(ledger.ReceivableAccount)

	b.Year, err = b.Fiscal.CreateYear(b.Ctx, b.Business.ID, 2024, ledger.Date(2024, time.January, 1), ledger.Date(2024, time.December, 31))
	require.NoError(t, err)
	b.Periods, err = b.Fiscal.CreateMonthlyPeriods(b.Ctx, b.Business.ID, b.Year.ID)
	require.NoError(t, err)
	return b
}

// GL creates a general ledger account numbered 1000 in group.
func (b *Book) GL(t testing.TB, group ledger.AccountGroup, code, name string, sub ledger.AccountKind) ledger.GeneralLedgerAccount {
	t.Helper()
	a, err := b.Accounts.Create(b.Ctx, ledger.GeneralLedgerAccount{
		AccountInfo:    ledger.AccountInfo{BusinessID: b.Business.ID, ShortCode: code, Name: name},
		Group:          group,
		Number:         1000,
		SubsidiaryKind: sub,
	})
	require.NoError(t, err)
	return a.(ledger.GeneralLedgerAccount)
}

// USD parses a decimal string in the book's currency.
func (b *Book) USD(t testing.TB, s string) money.Amount {
	t.Helper()
	a, err := ledger.ParseAmount(b.Business.Currency, s)
	require.NoError(t, err)
	return a
}

// Line builds a signed document line.
func (b *Book) Line(t testing.TB, acc ledger.Account, amount string) ledger.DocumentLine {
	t.Helper()
	return ledger.DocumentLine{AccountID: acc.Info().ID, Amount: b.USD(t, amount)}
}

// CloseRegularPeriods closes periods 1-12 of the book's year.
func (b *Book) CloseRegularPeriods(t testing.TB) {
	t.Helper()
	for _, p := range b.Periods {
		_, err := b.Fiscal.ClosePeriod(b.Ctx, b.Business.ID, p.ID)
		require.NoError(t, err)
	}
}

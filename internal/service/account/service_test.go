package account_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/service/account"
	"github.com/tinoosan/bookkeeping/internal/storage/memory"
)

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	svc     account.Service
	biz     ledger.Business
	current ledger.AccountGroup // 10.10 Current Assets
	banks   ledger.AccountGroup // 10.15 Cash and Bank
	stock   ledger.AccountGroup // 10.30 Inventory
	payable ledger.AccountGroup // 20.20 Payables
	equity  ledger.AccountGroup // 30.10 Owner Equity
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	biz := ledger.Business{ID: uuid.New(), Name: "Acme Books", Currency: "USD", FiscalYearStartMonth: 1, Active: true}
	require.NoError(t, store.SeedBusiness(ctx, biz))

	svc := account.New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	groups, err := svc.ApplyTemplate(ctx, biz.ID)
	require.NoError(t, err)
	require.Len(t, groups, 15)

	f := fixture{ctx: ctx, store: store, svc: svc, biz: biz}
	for _, g := range groups {
		switch g.FormattedNumber() {
		case "10.10":
			f.current = g
		case "10.15":
			f.banks = g
		case "10.30":
			f.stock = g
		case "20.20":
			f.payable = g
		case "30.10":
			f.equity = g
		}
	}
	for _, g := range []ledger.AccountGroup{f.current, f.banks, f.stock, f.payable, f.equity} {
		require.NotEqual(t, uuid.Nil, g.ID)
	}
	return f
}

func (f fixture) gl(t *testing.T, group ledger.AccountGroup, code, name string, number int, sub ledger.AccountKind) ledger.GeneralLedgerAccount {
	t.Helper()
	a, err := f.svc.Create(f.ctx, ledger.GeneralLedgerAccount{
		AccountInfo:    ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: code, Name: name},
		Group:          ledger.AccountGroup{ID: group.ID},
		Number:         number,
		SubsidiaryKind: sub,
	})
	require.NoError(t, err)
	return a.(ledger.GeneralLedgerAccount)
}

func TestApplyTemplate_IsIdempotent(t *testing.T) {
	f := setup(t)
	again, err := f.svc.ApplyTemplate(f.ctx, f.biz.ID)
	require.NoError(t, err)
	assert.Empty(t, again)

	all, err := f.svc.ListGroups(f.ctx, f.biz.ID)
	require.NoError(t, err)
	assert.Len(t, all, 15)

	_, err = f.svc.ApplyTemplate(f.ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCreateGroup(t *testing.T) {
	f := setup(t)
	g, err := f.svc.CreateGroup(f.ctx, ledger.AccountGroup{BusinessID: f.biz.ID, Type: ledger.AccountTypeExpense, Number: 40, Name: " Travel "})
	require.NoError(t, err)
	assert.Equal(t, "80.40", g.FormattedNumber())
	assert.Equal(t, "Travel", g.Name)
	assert.True(t, g.Active)

	_, err = f.svc.CreateGroup(f.ctx, ledger.AccountGroup{BusinessID: f.biz.ID, Type: ledger.AccountTypeExpense, Number: 40, Name: "Again"})
	assert.ErrorIs(t, err, errs.ErrConflict)

	_, err = f.svc.CreateGroup(f.ctx, ledger.AccountGroup{BusinessID: f.biz.ID, Type: ledger.AccountType(70), Number: 1, Name: "Nope"})
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestCreate_GeneralLedger(t *testing.T) {
	f := setup(t)
	cash := f.gl(t, f.current, "cash", "Cash on hand", 1000, "")

	assert.Equal(t, "CASH", cash.ShortCode)
	assert.Equal(t, "10.10.1000", cash.FormattedNumber())
	assert.Equal(t, "Current Assets", cash.Group.Name, "group is loaded from storage")
	assert.True(t, cash.Active)
	assert.True(t, cash.IsPosting())

	_, err := f.svc.Create(f.ctx, ledger.GeneralLedgerAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "Cash", Name: "Dup"},
		Group:       ledger.AccountGroup{ID: f.equity.ID},
		Number:      1,
	})
	assert.ErrorIs(t, err, errs.ErrConflict, "short codes are unique per business, case-insensitively")

	_, err = f.svc.Create(f.ctx, ledger.GeneralLedgerAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "PETTY", Name: "Petty"},
		Group:       ledger.AccountGroup{ID: f.current.ID},
		Number:      1000,
	})
	assert.ErrorIs(t, err, errs.ErrConflict, "number already used in the group")

	cases := map[string]ledger.GeneralLedgerAccount{
		"bad short code": {AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "CASH!", Name: "x"}, Group: ledger.AccountGroup{ID: f.current.ID}, Number: 1},
		"no name":        {AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "X1"}, Group: ledger.AccountGroup{ID: f.current.ID}, Number: 2},
		"number range":   {AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "X2", Name: "x"}, Group: ledger.AccountGroup{ID: f.current.ID}, Number: 10000},
	}
	for name, a := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, a)
			assert.ErrorIs(t, err, errs.ErrInvalid)
		})
	}

	_, err = f.svc.Create(f.ctx, ledger.GeneralLedgerAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "X3", Name: "x"},
		Group:       ledger.AccountGroup{ID: uuid.New()},
		Number:      3,
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCreate_Subsidiaries(t *testing.T) {
	f := setup(t)
	ar := f.gl(t, f.current, "AR", "Accounts receivable", 1200, ledger.KindReceivable)
	posting := f.gl(t, f.current, "CASH", "Cash", 1000, "")

	acme, err := f.svc.Create(f.ctx, ledger.ReceivableAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "acme", Name: "Acme Ltd"},
		Subsidiary:  ledger.Subsidiary{Controlling: ledger.GeneralLedgerAccount{AccountInfo: ledger.AccountInfo{ID: ar.ID}}, Number: 1},
		ContactName: "Jo Bloggs",
	})
	require.NoError(t, err)
	assert.Equal(t, "10.10.1200.01", acme.FormattedNumber())
	r := acme.(ledger.ReceivableAccount)
	assert.Equal(t, "AR", r.Controlling.ShortCode)
	assert.True(t, r.CreditLimit.IsZero())
	assert.Equal(t, "USD", r.CreditLimit.Curr().Code(), "money fields default to the business currency")

	_, err = f.svc.Create(f.ctx, ledger.ReceivableAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "GLOBEX", Name: "Globex"},
		Subsidiary:  ledger.Subsidiary{Controlling: ledger.GeneralLedgerAccount{AccountInfo: ledger.AccountInfo{ID: ar.ID}}, Number: 1},
	})
	assert.ErrorIs(t, err, errs.ErrConflict, "subsidiary number taken under AR")

	_, err = f.svc.Create(f.ctx, ledger.PayableAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "VEND", Name: "Vendor"},
		Subsidiary:  ledger.Subsidiary{Controlling: ledger.GeneralLedgerAccount{AccountInfo: ledger.AccountInfo{ID: ar.ID}}, Number: 2},
	})
	assert.ErrorIs(t, err, errs.ErrInvalid, "AR does not control payables")

	_, err = f.svc.Create(f.ctx, ledger.ReceivableAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "INITECH", Name: "Initech"},
		Subsidiary:  ledger.Subsidiary{Controlling: ledger.GeneralLedgerAccount{AccountInfo: ledger.AccountInfo{ID: posting.ID}}, Number: 3},
	})
	assert.ErrorIs(t, err, errs.ErrInvalid, "a posting account controls nothing")

	_, err = f.svc.Create(f.ctx, ledger.BankAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "CHK", Name: "Checking"},
		Subsidiary:  ledger.Subsidiary{Controlling: ledger.GeneralLedgerAccount{AccountInfo: ledger.AccountInfo{ID: acme.Info().ID}}, Number: 1},
	})
	assert.ErrorIs(t, err, errs.ErrInvalid, "a subsidiary cannot control")
}

func TestResolve(t *testing.T) {
	f := setup(t)
	cash := f.gl(t, f.current, "CASH", "Cash on hand", 1000, "")
	ar := f.gl(t, f.current, "AR", "Receivables", 1200, ledger.KindReceivable)
	dotted := f.gl(t, f.equity, "10.10.1000X", "Dotted code", 2000, "")
	acme, err := f.svc.Create(f.ctx, ledger.ReceivableAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "ACME", Name: "Acme Ltd"},
		Subsidiary:  ledger.Subsidiary{Controlling: ar, Number: 1},
		ContactName: "Wile E.",
	})
	require.NoError(t, err)

	hit := map[string]uuid.UUID{
		"cash":          cash.ID,
		" CASH ":        cash.ID,
		"10.10.1000":    cash.ID,
		"acme":          acme.Info().ID,
		"10.10.1200.01": acme.Info().ID,
		"10.10.1000x":   dotted.ID,
	}
	for text, want := range hit {
		a, ok, err := f.svc.Resolve(f.ctx, f.biz.ID, text)
		require.NoError(t, err, text)
		require.True(t, ok, text)
		assert.Equal(t, want, a.Info().ID, text)
	}

	miss := []string{"", "AR", "10.10.1200", "10.10.1200.02", "10.10.9999", "99.99.9999", "nothing"}
	for _, text := range miss {
		_, ok, err := f.svc.Resolve(f.ctx, f.biz.ID, text)
		require.NoError(t, err, text)
		assert.False(t, ok, text)
	}

	_, ok, err := f.svc.Resolve(f.ctx, uuid.New(), "CASH")
	require.NoError(t, err)
	assert.False(t, ok, "resolution is scoped to the business")

	require.NoError(t, f.svc.Deactivate(f.ctx, f.biz.ID, cash.ID))
	_, ok, err = f.svc.Resolve(f.ctx, f.biz.ID, "CASH")
	require.NoError(t, err)
	assert.False(t, ok, "inactive accounts do not resolve")
	_, ok, err = f.svc.Resolve(f.ctx, f.biz.ID, "10.10.1000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolve_SubsidiaryKinds(t *testing.T) {
	f := setup(t)
	bankGL := f.gl(t, f.banks, "BANKS", "Bank accounts", 100, ledger.KindBank)
	apGL := f.gl(t, f.payable, "AP", "Trade payables", 2000, ledger.KindPayable)
	stockGL := f.gl(t, f.stock, "STOCK", "Stock on hand", 1300, ledger.KindInventory)
	cash := f.gl(t, f.current, "CASH", "Cash on hand", 1000, "")

	checking, err := f.svc.Create(f.ctx, ledger.BankAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "CHK", Name: "Checking"},
		Subsidiary:  ledger.Subsidiary{Controlling: bankGL, Number: 1},
		BankName:    "First National",
	})
	require.NoError(t, err)
	vendor, err := f.svc.Create(f.ctx, ledger.PayableAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "INITECH", Name: "Initech"},
		Subsidiary:  ledger.Subsidiary{Controlling: apGL, Number: 1},
	})
	require.NoError(t, err)
	widgets, err := f.svc.Create(f.ctx, ledger.InventoryAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "WIDGET", Name: "Widgets"},
		Subsidiary:  ledger.Subsidiary{Controlling: stockGL, Number: 1},
		SKU:         "W-1",
	})
	require.NoError(t, err)

	cases := []struct {
		text string
		want ledger.Account
	}{
		{"10.15.0100.01", checking},
		{"CHK", checking},
		{"20.20.2000.01", vendor},
		{"initech", vendor},
		{"10.30.1300.01", widgets},
		{"WIDGET", widgets},
		{"10.10.1000", cash},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			a, ok, err := f.svc.Resolve(f.ctx, f.biz.ID, tc.text)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tc.want.Kind(), a.Kind())
			assert.Equal(t, tc.want.Info().ID, a.Info().ID)
		})
	}

	// formatted numbers resolve back to the account that produced them
	for _, acc := range []ledger.Account{cash, checking, vendor, widgets} {
		s := acc.FormattedNumber()
		a, ok, err := f.svc.Resolve(f.ctx, f.biz.ID, s)
		require.NoError(t, err, s)
		require.True(t, ok, s)
		assert.Equal(t, s, a.FormattedNumber())
		assert.Equal(t, acc.Info().ID, a.Info().ID, s)
	}

	for _, text := range []string{"10.15.0100.02", "20.20.2000.99", "10.30.1300.00", "10.15.0100", "10.15.100.01", "+10.15.0100.01"} {
		_, ok, err := f.svc.Resolve(f.ctx, f.biz.ID, text)
		require.NoError(t, err, text)
		assert.False(t, ok, text)
	}
}

func TestSearch(t *testing.T) {
	f := setup(t)
	f.gl(t, f.current, "CASH", "Cash on hand", 1000, "")
	ar := f.gl(t, f.current, "AR", "Trade receivables", 1200, ledger.KindReceivable)
	_, err := f.svc.Create(f.ctx, ledger.ReceivableAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "ACME", Name: "Acme Ltd"},
		Subsidiary:  ledger.Subsidiary{Controlling: ar, Number: 1},
		ContactName: "Road Runner",
	})
	require.NoError(t, err)

	found, err := f.svc.Search(f.ctx, f.biz.ID, "runner")
	require.NoError(t, err)
	require.Len(t, found, 1, "contact names are searchable")
	assert.Equal(t, "ACME", found[0].Info().ShortCode)

	found, err = f.svc.Search(f.ctx, f.biz.ID, "receivable")
	require.NoError(t, err)
	assert.Empty(t, found, "controlling accounts are not offered")

	found, err = f.svc.Search(f.ctx, f.biz.ID, "")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestUpdate_IdentityIsImmutable(t *testing.T) {
	f := setup(t)
	cash := f.gl(t, f.current, "CASH", "Cash", 1000, "")

	renamed := cash
	renamed.Name = "Cash on hand"
	renamed.ShortCode = "till"
	renamed.Description = "front desk"
	out, err := f.svc.Update(f.ctx, renamed)
	require.NoError(t, err)
	gl := out.(ledger.GeneralLedgerAccount)
	assert.Equal(t, "TILL", gl.ShortCode)
	assert.Equal(t, "Cash on hand", gl.Name)
	assert.Equal(t, "10.10.1000", gl.FormattedNumber())

	moved := gl
	moved.Number = 1001
	_, err = f.svc.Update(f.ctx, moved)
	assert.ErrorIs(t, err, errs.ErrImmutable)

	regrouped := gl
	regrouped.Group = f.equity
	_, err = f.svc.Update(f.ctx, regrouped)
	assert.ErrorIs(t, err, errs.ErrImmutable)

	controlling := gl
	controlling.SubsidiaryKind = ledger.KindBank
	_, err = f.svc.Update(f.ctx, controlling)
	assert.ErrorIs(t, err, errs.ErrImmutable)

	other := f.gl(t, f.equity, "CAPITAL", "Capital", 1000, "")
	clash := other
	clash.ShortCode = "TILL"
	_, err = f.svc.Update(f.ctx, clash)
	assert.ErrorIs(t, err, errs.ErrConflict)

	got, err := f.svc.Get(f.ctx, f.biz.ID, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, "TILL", got.Info().ShortCode)
}

func TestList_ByKind(t *testing.T) {
	f := setup(t)
	ar := f.gl(t, f.current, "AR", "Receivables", 1200, ledger.KindReceivable)
	f.gl(t, f.current, "CASH", "Cash", 1000, "")
	_, err := f.svc.Create(f.ctx, ledger.ReceivableAccount{
		AccountInfo: ledger.AccountInfo{BusinessID: f.biz.ID, ShortCode: "ACME", Name: "Acme"},
		Subsidiary:  ledger.Subsidiary{Controlling: ar, Number: 1},
	})
	require.NoError(t, err)

	all, err := f.svc.List(f.ctx, f.biz.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	subs, err := f.svc.List(f.ctx, f.biz.ID, ledger.KindReceivable)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, ledger.KindReceivable, subs[0].Kind())

	_, err = f.svc.List(f.ctx, f.biz.ID, "customer")
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

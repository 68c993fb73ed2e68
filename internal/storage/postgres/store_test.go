package postgres

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/storage"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T) *Store {
	t.Helper()
	dsn := getTestDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func seedBusiness(t *testing.T, s *Store) ledger.Business {
	t.Helper()
	b := ledger.Business{ID: uuid.New(), Name: "Test Co", Currency: "USD", FiscalYearStartMonth: 1, Active: true}
	if err := s.SeedBusiness(context.Background(), b); err != nil {
		t.Fatalf("seed business: %v", err)
	}
	return b
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	s := mustOpen(t)
	applied, err := s.Migrate(context.Background())
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected nothing to apply, got %v", applied)
	}
}

func TestStore_ConcurrentSequenceIsGapless(t *testing.T) {
	s := mustOpen(t)
	b := seedBusiness(t, s)
	ctx := context.Background()

	const workers = 16
	var (
		mu  sync.Mutex
		got []int64
		wg  sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := storage.Exec(ctx, s, func(tx storage.Repository) (int64, error) {
				seq, err := tx.AcquireSequence(ctx, b.ID, "JE")
				if err != nil {
					return 0, err
				}
				n := seq.NextNumber
				seq.NextNumber++
				return n, tx.AdvanceSequence(ctx, seq)
			})
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			mu.Lock()
			got = append(got, n)
			mu.Unlock()
		}()
	}
	wg.Wait()
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, n := range got {
		if n != int64(i+1) {
			t.Fatalf("numbers not gapless: %v", got)
		}
	}
}

func TestStore_AccountsAndJournals(t *testing.T) {
	s := mustOpen(t)
	b := seedBusiness(t, s)
	ctx := context.Background()

	group := ledger.AccountGroup{ID: uuid.New(), BusinessID: b.ID, Type: ledger.AccountTypeAsset, Number: 10, Name: "Current Assets", Active: true}
	equity := ledger.AccountGroup{ID: uuid.New(), BusinessID: b.ID, Type: ledger.AccountTypeEquity, Number: 10, Name: "Owner's Equity", Active: true}
	cash := ledger.GeneralLedgerAccount{
		AccountInfo: ledger.AccountInfo{ID: uuid.New(), BusinessID: b.ID, ShortCode: "CASH", Name: "Cash", Active: true},
		Group:       group, Number: 1000,
	}
	capital := ledger.GeneralLedgerAccount{
		AccountInfo: ledger.AccountInfo{ID: uuid.New(), BusinessID: b.ID, ShortCode: "CAPITAL", Name: "Capital", Active: true},
		Group:       equity, Number: 1000,
	}
	year := ledger.FiscalYear{ID: uuid.New(), BusinessID: b.ID, Year: 2024,
		StartDate: ledger.Date(2024, 1, 1), EndDate: ledger.Date(2024, 12, 31), Status: ledger.FiscalYearOpen}
	periods := ledger.MonthlyPeriods(year)

	err := s.WithTx(ctx, func(tx storage.Repository) error {
		for _, g := range []ledger.AccountGroup{group, equity} {
			if err := tx.CreateAccountGroup(ctx, g); err != nil {
				return err
			}
		}
		for _, a := range []ledger.Account{cash, capital} {
			if err := tx.CreateAccount(ctx, a); err != nil {
				return err
			}
		}
		if err := tx.CreateFiscalYear(ctx, year); err != nil {
			return err
		}
		for _, p := range periods {
			if err := tx.CreateFiscalPeriod(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	dup := cash
	dup.ID = uuid.New()
	dup.ShortCode = "cash"
	dup.Number = 1001
	err = s.WithTx(ctx, func(tx storage.Repository) error { return tx.CreateAccount(ctx, dup) })
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected short code conflict, got %v", err)
	}

	got, err := storage.Query(ctx, s, func(tx storage.Repository) (ledger.Account, error) {
		return tx.AccountByShortCode(ctx, b.ID, ledger.KindGeneralLedger, "cash")
	})
	if err != nil {
		t.Fatalf("by short code: %v", err)
	}
	if got.FormattedNumber() != "10.10.1000" {
		t.Fatalf("formatted number: %s", got.FormattedNumber())
	}

	amt, _ := ledger.ParseAmount("USD", "250.00")
	dr, _ := ledger.DebitLine(cash.ID, amt, "")
	cr, _ := ledger.CreditLine(capital.ID, amt, "")
	req, err := ledger.NewJournalRequest(ledger.JournalRequest{
		BusinessID: b.ID, EntryDate: ledger.Date(2024, 3, 15), DocumentID: uuid.New(),
		Type: ledger.JournalGeneral, Number: "JE-0001", Lines: []ledger.LineSpec{dr, cr},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	j, err := storage.Exec(ctx, s, func(tx storage.Repository) (ledger.Journal, error) {
		p, y, err := tx.FirstOpenPeriodOnOrAfter(ctx, b.ID, req.EntryDate)
		if err != nil {
			return ledger.Journal{}, err
		}
		j, err := ledger.NewJournal(req, b.Currency, p, y)
		if err != nil {
			return ledger.Journal{}, err
		}
		return j, tx.InsertJournal(ctx, j)
	})
	if err != nil {
		t.Fatalf("insert journal: %v", err)
	}
	if !j.PostingDate().Equal(ledger.Date(2024, 3, 1)) {
		t.Fatalf("posting date: %s", ledger.FormatDate(j.PostingDate()))
	}

	// the append-only trigger refuses updates
	_, err = s.pool.Exec(ctx, `update journals set description = 'x' where id = $1`, j.ID())
	if !errors.Is(mapErr("journal", j.ID(), err), errs.ErrImmutable) {
		t.Fatalf("expected immutable error, got %v", err)
	}

	through := ledger.Date(2024, 12, 31)
	lines, err := storage.Query(ctx, s, func(tx storage.Repository) ([]ledger.PostedLine, error) {
		return tx.PostedLines(ctx, ledger.LineQuery{BusinessID: b.ID, AccountID: cash.ID, FiscalYearID: year.ID, Through: &through})
	})
	if err != nil {
		t.Fatalf("posted lines: %v", err)
	}
	if len(lines) != 1 || lines[0].Line.SignedMinor() != 25000 {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

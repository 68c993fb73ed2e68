// Package storage defines the unit-of-work contract implemented by the
// memory and postgres backends. Services never hold a connection: they ask
// a Store for a transaction and run every read and write through the
// Repository handed to them.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/ledger"
)

// BusinessRepo reads tenant master data.
type BusinessRepo interface {
	BusinessByID(ctx context.Context, id uuid.UUID) (ledger.Business, error)
}

// AccountRepo persists the chart of accounts. Lookups return errs.ErrNotFound
// when nothing matches and do not filter on Active; callers decide.
type AccountRepo interface {
	CreateAccountGroup(ctx context.Context, g ledger.AccountGroup) error
	UpdateAccountGroup(ctx context.Context, g ledger.AccountGroup) error
	AccountGroupByID(ctx context.Context, businessID, id uuid.UUID) (ledger.AccountGroup, error)
	AccountGroupByNumber(ctx context.Context, businessID uuid.UUID, t ledger.AccountType, number int) (ledger.AccountGroup, error)
	ListAccountGroups(ctx context.Context, businessID uuid.UUID) ([]ledger.AccountGroup, error)

	CreateAccount(ctx context.Context, a ledger.Account) error
	UpdateAccount(ctx context.Context, a ledger.Account) error
	AccountByID(ctx context.Context, businessID, id uuid.UUID) (ledger.Account, error)
	AccountsByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error)
	// AccountByShortCode matches the code case-insensitively within one kind.
	AccountByShortCode(ctx context.Context, businessID uuid.UUID, kind ledger.AccountKind, code string) (ledger.Account, error)
	GeneralLedgerByNumber(ctx context.Context, businessID uuid.UUID, t ledger.AccountType, group, number int) (ledger.GeneralLedgerAccount, error)
	SubsidiaryByNumber(ctx context.Context, kind ledger.AccountKind, controllingID uuid.UUID, number int) (ledger.Account, error)
	// SearchAccounts returns accounts of one kind whose short code, name or
	// kind-specific secondary text contains query, case-insensitively.
	SearchAccounts(ctx context.Context, businessID uuid.UUID, kind ledger.AccountKind, query string) ([]ledger.Account, error)
	ListAccounts(ctx context.Context, businessID uuid.UUID, kind ledger.AccountKind) ([]ledger.Account, error)
}

// CalendarRepo persists fiscal years and periods.
type CalendarRepo interface {
	CreateFiscalYear(ctx context.Context, y ledger.FiscalYear) error
	UpdateFiscalYear(ctx context.Context, y ledger.FiscalYear) error
	FiscalYearByID(ctx context.Context, businessID, id uuid.UUID) (ledger.FiscalYear, error)
	FiscalYearByNumber(ctx context.Context, businessID uuid.UUID, year int) (ledger.FiscalYear, error)
	// LockFiscalYear reads the year and holds an exclusive lock on it until
	// the enclosing transaction ends.
	LockFiscalYear(ctx context.Context, businessID, id uuid.UUID) (ledger.FiscalYear, error)
	ListFiscalYears(ctx context.Context, businessID uuid.UUID) ([]ledger.FiscalYear, error)

	CreateFiscalPeriod(ctx context.Context, p ledger.FiscalPeriod) error
	UpdateFiscalPeriod(ctx context.Context, p ledger.FiscalPeriod) error
	FiscalPeriodByID(ctx context.Context, businessID, id uuid.UUID) (ledger.FiscalPeriod, error)
	ListFiscalPeriods(ctx context.Context, businessID, yearID uuid.UUID) ([]ledger.FiscalPeriod, error)
	// FirstOpenPeriodOnOrAfter returns the earliest OPEN period of the
	// business whose end date is on or after date, with its year. The pair
	// stays share-locked until the transaction ends.
	FirstOpenPeriodOnOrAfter(ctx context.Context, businessID uuid.UUID, date time.Time) (ledger.FiscalPeriod, ledger.FiscalYear, error)
}

// JournalRepo appends journals. There is deliberately no update or delete.
type JournalRepo interface {
	InsertJournal(ctx context.Context, j ledger.Journal) error
	JournalByID(ctx context.Context, businessID, id uuid.UUID) (ledger.Journal, error)
	ListJournals(ctx context.Context, businessID uuid.UUID, f ledger.JournalFilter) ([]ledger.Journal, error)
	PostedLines(ctx context.Context, q ledger.LineQuery) ([]ledger.PostedLine, error)
}

// DocumentRepo persists source documents.
type DocumentRepo interface {
	CreateDocument(ctx context.Context, d ledger.Document) error
	UpdateDocument(ctx context.Context, d ledger.Document) error
	DeleteDocument(ctx context.Context, businessID, id uuid.UUID) error
	DocumentByID(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error)
	// LockDocument reads the document and holds an exclusive lock on it
	// until the enclosing transaction ends.
	LockDocument(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error)
	ListDocuments(ctx context.Context, businessID uuid.UUID, f ledger.DocumentFilter) ([]ledger.Document, error)
}

// SequenceRepo is the lock protocol behind gapless numbering.
type SequenceRepo interface {
	// AcquireSequence makes sure the (business, key) row exists, starting at
	// 1, and holds an exclusive lock on it until the transaction ends. A
	// second caller for the same key blocks here.
	AcquireSequence(ctx context.Context, businessID uuid.UUID, key string) (ledger.NumberSequence, error)
	// AdvanceSequence writes back the next number of a sequence acquired in
	// the same transaction.
	AdvanceSequence(ctx context.Context, seq ledger.NumberSequence) error
}

// LedgerRepo persists per-year opening balances.
type LedgerRepo interface {
	CreateLedger(ctx context.Context, l ledger.AccountLedger) error
	UpdateLedger(ctx context.Context, l ledger.AccountLedger) error
	LedgerByID(ctx context.Context, businessID, id uuid.UUID) (ledger.AccountLedger, error)
	LedgerByAccount(ctx context.Context, businessID, yearID, accountID uuid.UUID) (ledger.AccountLedger, error)
	ListLedgers(ctx context.Context, businessID, yearID uuid.UUID) ([]ledger.AccountLedger, error)
}

// Repository is everything available inside a unit of work.
type Repository interface {
	BusinessRepo
	AccountRepo
	CalendarRepo
	JournalRepo
	DocumentRepo
	SequenceRepo
	LedgerRepo
}

// Store runs units of work. fn's writes commit when it returns nil and roll
// back when it returns an error.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
	// WithReadTx runs fn in a read-only transaction.
	WithReadTx(ctx context.Context, fn func(tx Repository) error) error
}

// Query runs fn in a read-only transaction and returns its result.
func Query[T any](ctx context.Context, st Store, fn func(tx Repository) (T, error)) (T, error) {
	var out T
	err := st.WithReadTx(ctx, func(tx Repository) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Exec runs fn in a read-write transaction and returns its result.
func Exec[T any](ctx context.Context, st Store, fn func(tx Repository) (T, error)) (T, error) {
	var out T
	err := st.WithTx(ctx, func(tx Repository) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

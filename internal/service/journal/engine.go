// Package journal is the posting engine: it turns a validated request into
// an immutable, balanced journal inside the caller's unit of work.
package journal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/storage"
)

var (
	journalsPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "journals_posted_total",
			Help:      "Journals written, by journal type",
		},
		[]string{"type"},
	)
	journalsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "journal_rejections_total",
			Help:      "Journal requests refused by the posting engine, by error kind",
		},
		[]string{"kind"},
	)
)

// Repo is what the engine reads and writes inside a unit of work.
type Repo interface {
	BusinessByID(ctx context.Context, id uuid.UUID) (ledger.Business, error)
	FirstOpenPeriodOnOrAfter(ctx context.Context, businessID uuid.UUID, date time.Time) (ledger.FiscalPeriod, ledger.FiscalYear, error)
	AccountsByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error)
	JournalByID(ctx context.Context, businessID, id uuid.UUID) (ledger.Journal, error)
	InsertJournal(ctx context.Context, j ledger.Journal) error
	ListJournals(ctx context.Context, businessID uuid.UUID, f ledger.JournalFilter) ([]ledger.Journal, error)
}

type Engine interface {
	// Create posts req using repo, which must belong to an open transaction.
	// Nothing is written when an error is returned.
	Create(ctx context.Context, repo Repo, req ledger.JournalRequest) (ledger.Journal, error)
	// Post runs Create in a transaction of its own.
	Post(ctx context.Context, req ledger.JournalRequest) (ledger.Journal, error)
	Get(ctx context.Context, businessID, id uuid.UUID) (ledger.Journal, error)
	List(ctx context.Context, businessID uuid.UUID, f ledger.JournalFilter) ([]ledger.Journal, error)
}

type engine struct {
	store storage.Store
	log   *slog.Logger
}

func New(store storage.Store, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &engine{store: store, log: logger}
}

func (e *engine) Create(ctx context.Context, repo Repo, req ledger.JournalRequest) (ledger.Journal, error) {
	j, err := e.create(ctx, repo, req)
	if err != nil {
		journalsRejected.WithLabelValues(errs.KindOf(err)).Inc()
		e.log.Debug("journal rejected", "business_id", req.BusinessID, "document_id", req.DocumentID, "err", err)
		return ledger.Journal{}, err
	}
	journalsPosted.WithLabelValues(string(j.Type())).Inc()
	e.log.Info("journal posted",
		"business_id", j.BusinessID(),
		"journal_id", j.ID(),
		"type", j.Type(),
		"number", j.Number(),
		"period_id", j.FiscalPeriodID(),
		"posting_date", ledger.FormatDate(j.PostingDate()),
		"lines", len(j.Lines()),
	)
	return j, nil
}

func (e *engine) create(ctx context.Context, repo Repo, req ledger.JournalRequest) (ledger.Journal, error) {
	number := req.Number
	req, err := ledger.NewJournalRequest(req)
	if err != nil {
		return ledger.Journal{}, errs.Invalid("journal", number, "%v", err)
	}
	biz, err := repo.BusinessByID(ctx, req.BusinessID)
	if err != nil {
		return ledger.Journal{}, err
	}

	period, year, err := repo.FirstOpenPeriodOnOrAfter(ctx, req.BusinessID, req.EntryDate)
	if errors.Is(err, errs.ErrNotFound) {
		return ledger.Journal{}, errs.IllegalState("journal", req.Number,
			"no open fiscal period found on or after %s", ledger.FormatDate(req.EntryDate))
	}
	if err != nil {
		return ledger.Journal{}, err
	}
	if !period.CanAcceptEntries(year) {
		return ledger.Journal{}, errs.IllegalState("journal", req.Number,
			"fiscal period %s cannot accept entries", period.DisplayName(year))
	}
	if req.Type == ledger.JournalClosing && !year.CanAcceptClosingEntries() {
		return ledger.Journal{}, errs.IllegalState("journal", req.Number,
			"closing entries require fiscal year %d to be CLOSING, it is %s", year.Year, year.Status)
	}

	dr, cr, err := req.Balance()
	if err != nil {
		return ledger.Journal{}, errs.Invalid("journal", req.Number, "%v", err)
	}
	if dr != cr {
		return ledger.Journal{}, errs.Invalid("journal", req.Number, "journal is not balanced: debits %s, credits %s",
			ledger.FormatAmount(ledger.FromMinor(biz.Currency, dr)), ledger.FormatAmount(ledger.FromMinor(biz.Currency, cr)))
	}

	if id, ok := reversed(req); ok {
		if _, err := repo.JournalByID(ctx, req.BusinessID, id); err != nil {
			return ledger.Journal{}, err
		}
	}

	if err := checkAccounts(ctx, repo, req); err != nil {
		return ledger.Journal{}, err
	}

	j, err := ledger.NewJournal(req, biz.Currency, period, year)
	if err != nil {
		return ledger.Journal{}, errs.Invalid("journal", req.Number, "%v", err)
	}
	if err := repo.InsertJournal(ctx, j); err != nil {
		return ledger.Journal{}, err
	}
	return j, nil
}

func reversed(req ledger.JournalRequest) (uuid.UUID, bool) {
	if req.ReversesJournalID == nil {
		return uuid.Nil, false
	}
	return *req.ReversesJournalID, true
}

// checkAccounts requires every line account to exist in the business and to
// accept postings.
func checkAccounts(ctx context.Context, repo Repo, req ledger.JournalRequest) error {
	ids := make([]uuid.UUID, 0, len(req.Lines))
	for _, l := range req.Lines {
		ids = append(ids, l.AccountID)
	}
	accounts, err := repo.AccountsByIDs(ctx, req.BusinessID, ids)
	if err != nil {
		return err
	}
	for i, l := range req.Lines {
		a, ok := accounts[l.AccountID]
		if !ok {
			return errs.NotFound("account", l.AccountID)
		}
		if !a.IsPosting() {
			return errs.Invalid("account", a.Info().ShortCode,
				"line %d: %s is a controlling account and cannot be posted to", i+1, a.FormattedNumber())
		}
	}
	return nil
}

func (e *engine) Post(ctx context.Context, req ledger.JournalRequest) (ledger.Journal, error) {
	return storage.Exec(ctx, e.store, func(tx storage.Repository) (ledger.Journal, error) {
		return e.Create(ctx, tx, req)
	})
}

func (e *engine) Get(ctx context.Context, businessID, id uuid.UUID) (ledger.Journal, error) {
	return storage.Query(ctx, e.store, func(tx storage.Repository) (ledger.Journal, error) {
		return tx.JournalByID(ctx, businessID, id)
	})
}

func (e *engine) List(ctx context.Context, businessID uuid.UUID, f ledger.JournalFilter) ([]ledger.Journal, error) {
	return storage.Query(ctx, e.store, func(tx storage.Repository) ([]ledger.Journal, error) {
		return tx.ListJournals(ctx, businessID, f)
	})
}

package document_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/service/document"
	"github.com/tinoosan/bookkeeping/internal/service/journal"
	"github.com/tinoosan/bookkeeping/internal/service/sequence"
	"github.com/tinoosan/bookkeeping/internal/testkit"
)

type fixture struct {
	*testkit.Book
	docs    document.Service
	journal journal.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := testkit.New(t)
	eng := journal.New(b.Store, b.Log)
	return &fixture{
		Book:    b,
		docs:    document.New(b.Store, eng, sequence.New(b.Store), b.Log),
		journal: eng,
	}
}

func (f *fixture) entry(t *testing.T, date string, lines ...ledger.DocumentLine) document.Draft {
	t.Helper()
	d, err := ledger.ParseDate(date)
	require.NoError(t, err)
	return document.Draft{
		Type: ledger.DocJournalEntry,
		Date: d,
		Body: ledger.JournalEntryBody{Lines: lines},
	}
}

// completed creates and completes a balanced cash/capital entry.
func (f *fixture) completed(t *testing.T, date, amount string) ledger.Document {
	t.Helper()
	doc, err := f.docs.Create(f.Ctx, f.Business.ID, f.entry(t, date,
		f.Line(t, f.Cash, amount), f.Line(t, f.Capital, "-"+amount)))
	require.NoError(t, err)
	doc, err = f.docs.Complete(f.Ctx, f.Business.ID, doc.ID)
	require.NoError(t, err)
	return doc
}

func TestCreate_NumbersDocumentsPerType(t *testing.T) {
	f := newFixture(t)

	first, err := f.docs.Create(f.Ctx, f.Business.ID, f.entry(t, "2024-03-15",
		f.Line(t, f.Cash, "100"), f.Line(t, f.Capital, "-100")))
	require.NoError(t, err)
	assert.Equal(t, "JE-0001", first.Number)
	assert.Equal(t, ledger.DocumentOpen, first.Status)
	assert.Nil(t, first.JournalID)

	second, err := f.docs.Create(f.Ctx, f.Business.ID, f.entry(t, "2024-03-16",
		f.Line(t, f.Cash, "1"), f.Line(t, f.Capital, "-1")))
	require.NoError(t, err)
	assert.Equal(t, "JE-0002", second.Number)

	got, err := f.docs.Get(f.Ctx, f.Business.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Number, got.Number)

	_, err = f.docs.Get(f.Ctx, uuid.New(), first.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture(t)

	invoice := f.entry(t, "2024-03-15", f.Line(t, f.Cash, "1"), f.Line(t, f.Sales, "-1"))
	invoice.Type = ledger.DocInvoice
	_, err := f.docs.Create(f.Ctx, f.Business.ID, invoice)
	assert.ErrorIs(t, err, errs.ErrIllegalState, "no body exists for invoices yet")

	unknown := f.entry(t, "2024-03-15")
	unknown.Type = "RECEIPT"
	_, err = f.docs.Create(f.Ctx, f.Business.ID, unknown)
	assert.ErrorIs(t, err, errs.ErrInvalid)

	mismatched := f.entry(t, "2024-03-15")
	mismatched.Body = ledger.ClosingEntryBody{FiscalYearID: f.Year.ID}
	_, err = f.docs.Create(f.Ctx, f.Business.ID, mismatched)
	assert.ErrorIs(t, err, errs.ErrInvalid)

	undated := document.Draft{Type: ledger.DocJournalEntry, Body: ledger.JournalEntryBody{}}
	_, err = f.docs.Create(f.Ctx, f.Business.ID, undated)
	assert.ErrorIs(t, err, errs.ErrInvalid)

	_, err = f.docs.Create(f.Ctx, uuid.New(), f.entry(t, "2024-03-15"))
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDraftsMayBeUnbalancedUntilComplete(t *testing.T) {
	f := newFixture(t)

	doc, err := f.docs.Create(f.Ctx, f.Business.ID, f.entry(t, "2024-03-15",
		f.Line(t, f.Cash, "100"), f.Line(t, f.Capital, "-90")))
	require.NoError(t, err)

	_, err = f.docs.Complete(f.Ctx, f.Business.ID, doc.ID)
	assert.ErrorIs(t, err, errs.ErrInvalid)

	fixed, err := f.docs.Update(f.Ctx, f.Business.ID, doc.ID, f.entry(t, "2024-03-15",
		f.Line(t, f.Cash, "100"), f.Line(t, f.Capital, "-100")))
	require.NoError(t, err)
	assert.Equal(t, doc.Number, fixed.Number)

	done, err := f.docs.Complete(f.Ctx, f.Business.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentCompleted, done.Status)

	_, err = f.docs.Update(f.Ctx, f.Business.ID, doc.ID, f.entry(t, "2024-03-15",
		f.Line(t, f.Cash, "5"), f.Line(t, f.Capital, "-5")))
	assert.ErrorIs(t, err, errs.ErrIllegalState, "completed documents are frozen")

	reopened, err := f.docs.Revert(f.Ctx, f.Business.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentOpen, reopened.Status)

	_, err = f.docs.Revert(f.Ctx, f.Business.ID, doc.ID)
	assert.ErrorIs(t, err, errs.ErrIllegalState)

	_, _, err = f.docs.Post(f.Ctx, f.Business.ID, doc.ID)
	assert.ErrorIs(t, err, errs.ErrIllegalState, "only completed documents post")
}

func TestComplete_RejectsOverflowingTotals(t *testing.T) {
	f := newFixture(t)
	huge := "46116860184273879.29"
	doc, err := f.docs.Create(f.Ctx, f.Business.ID, f.entry(t, "2024-03-15",
		f.Line(t, f.Capital, "-1"),
		f.Line(t, f.Cash, huge), f.Line(t, f.Cash, huge), f.Line(t, f.Cash, huge), f.Line(t, f.Cash, huge)))
	require.NoError(t, err)

	_, err = f.docs.Complete(f.Ctx, f.Business.ID, doc.ID)
	assert.ErrorIs(t, err, errs.ErrInvalid)

	got, err := f.docs.Get(f.Ctx, f.Business.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentOpen, got.Status)
}

func TestUpdate_TypeIsImmutable(t *testing.T) {
	f := newFixture(t)
	doc, err := f.docs.Create(f.Ctx, f.Business.ID, f.entry(t, "2024-03-15"))
	require.NoError(t, err)

	ce := document.Draft{Type: ledger.DocClosingEntry, Body: ledger.ClosingEntryBody{FiscalYearID: f.Year.ID}}
	_, err = f.docs.Update(f.Ctx, f.Business.ID, doc.ID, ce)
	assert.ErrorIs(t, err, errs.ErrImmutable)
}

func TestPost_LinksJournalAndFreezesDocument(t *testing.T) {
	f := newFixture(t)
	doc := f.completed(t, "2024-03-15", "250")

	posted, j, err := f.docs.Post(f.Ctx, f.Business.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentPosted, posted.Status)
	require.NotNil(t, posted.JournalID)
	assert.Equal(t, j.ID(), *posted.JournalID)

	assert.Equal(t, ledger.JournalGeneral, j.Type())
	assert.Equal(t, doc.ID, j.DocumentID())
	assert.Equal(t, doc.Number, j.Number())
	assert.Equal(t, "Journal Entry JE-0001", j.Description())
	assert.Equal(t, "2024-03-01", ledger.FormatDate(j.PostingDate()))
	assert.Equal(t, "2024-03-15", ledger.FormatDate(j.EntryDate()))
	assert.Equal(t, f.Periods[2].ID, j.FiscalPeriodID())

	_, _, err = f.docs.Post(f.Ctx, f.Business.ID, doc.ID)
	assert.ErrorIs(t, err, errs.ErrIllegalState)
	_, err = f.docs.Update(f.Ctx, f.Business.ID, doc.ID, f.entry(t, "2024-03-15"))
	assert.ErrorIs(t, err, errs.ErrIllegalState)
	assert.ErrorIs(t, f.docs.Delete(f.Ctx, f.Business.ID, doc.ID), errs.ErrIllegalState)
	_, err = f.docs.Revert(f.Ctx, f.Business.ID, doc.ID)
	assert.ErrorIs(t, err, errs.ErrIllegalState)
	_, err = f.docs.Void(f.Ctx, f.Business.ID, doc.ID)
	assert.ErrorIs(t, err, errs.ErrIllegalState)
}

func TestPost_FailedPostingLeavesDocumentCompleted(t *testing.T) {
	f := newFixture(t)
	doc, err := f.docs.Create(f.Ctx, f.Business.ID, f.entry(t, "2024-03-15",
		f.Line(t, f.AR, "10"), f.Line(t, f.Sales, "-10")))
	require.NoError(t, err)
	_, err = f.docs.Complete(f.Ctx, f.Business.ID, doc.ID)
	require.NoError(t, err)

	_, _, err = f.docs.Post(f.Ctx, f.Business.ID, doc.ID)
	assert.ErrorIs(t, err, errs.ErrInvalid, "controlling accounts take no direct postings")

	got, err := f.docs.Get(f.Ctx, f.Business.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentCompleted, got.Status)
	assert.Nil(t, got.JournalID)

	js, err := f.journal.List(f.Ctx, f.Business.ID, ledger.JournalFilter{})
	require.NoError(t, err)
	assert.Empty(t, js)
}

func TestDelete_OpenDocument(t *testing.T) {
	f := newFixture(t)
	doc, err := f.docs.Create(f.Ctx, f.Business.ID, f.entry(t, "2024-03-15"))
	require.NoError(t, err)

	require.NoError(t, f.docs.Delete(f.Ctx, f.Business.ID, doc.ID))
	_, err = f.docs.Get(f.Ctx, f.Business.ID, doc.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPostBatch(t *testing.T) {
	f := newFixture(t)
	a := f.completed(t, "2024-04-02", "10")
	b := f.completed(t, "2024-04-03", "15")

	docs, j, err := f.docs.PostBatch(f.Ctx, f.Business.ID, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, d := range docs {
		assert.Equal(t, ledger.DocumentPosted, d.Status)
		assert.Equal(t, j.ID(), *d.JournalID)
	}
	assert.Len(t, j.Lines(), 4)
	assert.Equal(t, "25.00", ledger.FormatAmount(j.TotalDebits()))
	assert.Equal(t, "Summary posting", j.Description())
}

func TestPostBatch_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	good := f.completed(t, "2024-04-02", "10")
	open, err := f.docs.Create(f.Ctx, f.Business.ID, f.entry(t, "2024-04-03",
		f.Line(t, f.Cash, "1"), f.Line(t, f.Capital, "-1")))
	require.NoError(t, err)

	_, _, err = f.docs.PostBatch(f.Ctx, f.Business.ID, []uuid.UUID{good.ID, open.ID})
	assert.ErrorIs(t, err, errs.ErrIllegalState)

	_, _, err = f.docs.PostBatch(f.Ctx, f.Business.ID, []uuid.UUID{good.ID, good.ID})
	assert.ErrorIs(t, err, errs.ErrInvalid)

	_, _, err = f.docs.PostBatch(f.Ctx, f.Business.ID, nil)
	assert.ErrorIs(t, err, errs.ErrInvalid)

	got, err := f.docs.Get(f.Ctx, f.Business.ID, good.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentCompleted, got.Status, "a failed batch posts nothing")
}

func TestPostBatch_RejectsMixedTypes(t *testing.T) {
	f := newFixture(t)
	je := f.completed(t, "2024-04-02", "10")
	ce, err := f.docs.Create(f.Ctx, f.Business.ID, document.Draft{
		Type: ledger.DocClosingEntry,
		Body: ledger.ClosingEntryBody{FiscalYearID: f.Year.ID, Lines: []ledger.DocumentLine{
			f.Line(t, f.Sales, "1"), f.Line(t, f.Retained, "-1"),
		}},
	})
	require.NoError(t, err)

	_, _, err = f.docs.PostBatch(f.Ctx, f.Business.ID, []uuid.UUID{je.ID, ce.ID})
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestClosingEntry_PostsIntoAdjustmentPeriod(t *testing.T) {
	f := newFixture(t)
	funding := f.completed(t, "2024-06-10", "500")
	_, _, err := f.docs.Post(f.Ctx, f.Business.ID, funding.ID)
	require.NoError(t, err)

	ce, err := f.docs.Create(f.Ctx, f.Business.ID, document.Draft{
		Type: ledger.DocClosingEntry,
		Body: ledger.ClosingEntryBody{FiscalYearID: f.Year.ID, Lines: []ledger.DocumentLine{
			f.Line(t, f.Sales, "500"), f.Line(t, f.Retained, "-500"),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "CE-0001", ce.Number)
	assert.Equal(t, "2024-12-31", ledger.FormatDate(ce.Date), "pinned to the fiscal year end")
	_, err = f.docs.Complete(f.Ctx, f.Business.ID, ce.ID)
	require.NoError(t, err)

	_, _, err = f.docs.Post(f.Ctx, f.Business.ID, ce.ID)
	assert.ErrorIs(t, err, errs.ErrIllegalState, "the year is not closing yet")

	f.CloseRegularPeriods(t)
	_, err = f.Fiscal.BeginClosing(f.Ctx, f.Business.ID, f.Year.ID)
	require.NoError(t, err)
	adj, err := f.Fiscal.CreatePeriod(f.Ctx, f.Business.ID, f.Year.ID, 13, f.Year.EndDate, f.Year.EndDate)
	require.NoError(t, err)

	posted, j, err := f.docs.Post(f.Ctx, f.Business.ID, ce.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentPosted, posted.Status)
	assert.Equal(t, ledger.JournalClosing, j.Type())
	assert.Equal(t, adj.ID, j.FiscalPeriodID())
	assert.Equal(t, f.Year.ID, j.FiscalYearID())
	assert.Equal(t, "Closing Entry - FY2024", j.Description())
	assert.Equal(t, "2024-12-31", ledger.FormatDate(j.PostingDate()))

	_, err = f.Fiscal.ClosePeriod(f.Ctx, f.Business.ID, adj.ID)
	require.NoError(t, err)
	closed, err := f.Fiscal.CompleteClosing(f.Ctx, f.Business.ID, f.Year.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.FiscalYearClosed, closed.Status)
}

func TestList_FiltersByTypeAndStatus(t *testing.T) {
	f := newFixture(t)
	done := f.completed(t, "2024-04-02", "10")
	_, err := f.docs.Create(f.Ctx, f.Business.ID, f.entry(t, "2024-04-03"))
	require.NoError(t, err)

	all, err := f.docs.List(f.Ctx, f.Business.ID, ledger.DocumentFilter{Type: ledger.DocJournalEntry})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed, err := f.docs.List(f.Ctx, f.Business.ID, ledger.DocumentFilter{Status: ledger.DocumentCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)

	_, err = f.docs.List(f.Ctx, f.Business.ID, ledger.DocumentFilter{Type: "RECEIPT"})
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

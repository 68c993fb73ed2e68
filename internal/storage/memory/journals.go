package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

// InsertJournal appends a journal. An existing id is never overwritten.
func (t *txView) InsertJournal(_ context.Context, j ledger.Journal) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.journals[j.ID()]; ok {
		return errs.Immutable("journal", j.ID(), "journals cannot be rewritten")
	}
	y, ok := t.st.years[j.FiscalYearID()]
	if !ok || y.BusinessID != j.BusinessID() {
		return errs.NotFound("fiscal year", j.FiscalYearID())
	}
	if err := ledger.CheckPostable(j, y); err != nil {
		return errs.Invalid("journal", j.ID(), "%v", err)
	}
	t.st.journals[j.ID()] = j.Record()
	t.st.journalSeq = append(t.st.journalSeq, j.ID())
	return nil
}

func (t *txView) JournalByID(_ context.Context, businessID, id uuid.UUID) (ledger.Journal, error) {
	r, ok := t.st.journals[id]
	if !ok || r.BusinessID != businessID {
		return ledger.Journal{}, errs.NotFound("journal", id)
	}
	return ledger.RestoreJournal(r), nil
}

func (t *txView) ListJournals(_ context.Context, businessID uuid.UUID, f ledger.JournalFilter) ([]ledger.Journal, error) {
	out := make([]ledger.Journal, 0)
	for _, id := range t.st.journalSeq {
		r := t.st.journals[id]
		if r.BusinessID != businessID {
			continue
		}
		j := ledger.RestoreJournal(r)
		if f.Matches(j) {
			out = append(out, j)
		}
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].PostingDate().Before(out[k].PostingDate()) })
	return out, nil
}

func (t *txView) PostedLines(_ context.Context, q ledger.LineQuery) ([]ledger.PostedLine, error) {
	out := make([]ledger.PostedLine, 0)
	for _, id := range t.st.journalSeq {
		r := t.st.journals[id]
		if r.BusinessID != q.BusinessID || r.FiscalYearID != q.FiscalYearID {
			continue
		}
		for _, l := range r.Lines {
			pl := ledger.PostedLine{
				JournalID:      r.ID,
				FiscalYearID:   r.FiscalYearID,
				FiscalPeriodID: r.FiscalPeriodID,
				PostingDate:    r.PostingDate,
				Line:           l,
			}
			if q.Matches(pl) {
				out = append(out, pl)
			}
		}
	}
	return out, nil
}

package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

const journalColumns = `id, business_id, fiscal_year_id, fiscal_period_id, type, number, entry_date, posting_date,
	document_id, reverses_journal_id, reference, description, currency, created_at`

// InsertJournal writes the header and its lines. The year is re-read and the
// posting rules checked once more against it before anything is written.
func (r *repo) InsertJournal(ctx context.Context, j ledger.Journal) error {
	y, err := r.FiscalYearByID(ctx, j.BusinessID(), j.FiscalYearID())
	if err != nil {
		return err
	}
	if err := ledger.CheckPostable(j, y); err != nil {
		return errs.Invalid("journal", j.ID(), "%v", err)
	}
	rec := j.Record()
	if _, err := r.tx.Exec(ctx, `
		insert into journals (`+journalColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, rec.ID, rec.BusinessID, rec.FiscalYearID, rec.FiscalPeriodID, string(rec.Type), rec.Number,
		rec.EntryDate, rec.PostingDate, rec.DocumentID, rec.ReversesJournalID, rec.Reference, rec.Description,
		rec.Currency, rec.CreatedAt); err != nil {
		return mapErr("journal", rec.ID, err)
	}
	batch := &pgx.Batch{}
	for _, l := range rec.Lines {
		units, ok := ledger.MinorUnits(l.Amount)
		if !ok {
			return errs.Invalid("journal", rec.ID, "line %d: amount is not representable in minor units", l.LineNumber)
		}
		batch.Queue(`
			insert into journal_lines (journal_id, line_number, account_id, entry_type, amount_minor, description)
			values ($1, $2, $3, $4, $5, $6)
		`, rec.ID, l.LineNumber, l.AccountID, string(l.EntryType), units, l.Description)
	}
	br := r.tx.SendBatch(ctx, batch)
	for range rec.Lines {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return mapErr("journal line", rec.ID, err)
		}
	}
	return br.Close()
}

func scanJournal(row pgx.Row) (ledger.JournalRecord, error) {
	var r ledger.JournalRecord
	var typ string
	err := row.Scan(&r.ID, &r.BusinessID, &r.FiscalYearID, &r.FiscalPeriodID, &typ, &r.Number, &r.EntryDate,
		&r.PostingDate, &r.DocumentID, &r.ReversesJournalID, &r.Reference, &r.Description, &r.Currency, &r.CreatedAt)
	r.Type = ledger.JournalType(typ)
	r.Currency = strings.TrimSpace(r.Currency)
	return r, err
}

func (r *repo) JournalByID(ctx context.Context, businessID, id uuid.UUID) (ledger.Journal, error) {
	out, err := r.loadJournals(ctx, `where business_id = $1 and id = $2`, businessID, id)
	if err != nil {
		return ledger.Journal{}, err
	}
	if len(out) == 0 {
		return ledger.Journal{}, errs.NotFound("journal", id)
	}
	return out[0], nil
}

func (r *repo) ListJournals(ctx context.Context, businessID uuid.UUID, f ledger.JournalFilter) ([]ledger.Journal, error) {
	where := []string{"business_id = $1"}
	args := []any{businessID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.PeriodID != nil {
		add("fiscal_period_id = $%d", *f.PeriodID)
	}
	if f.DocumentID != nil {
		add("document_id = $%d", *f.DocumentID)
	}
	if f.From != nil {
		add("posting_date >= $%d", ledger.DateOf(*f.From))
	}
	if f.To != nil {
		add("posting_date <= $%d", ledger.DateOf(*f.To))
	}
	return r.loadJournals(ctx, "where "+strings.Join(where, " and "), args...)
}

// loadJournals reads journal headers matching where, then their lines in a
// single query.
func (r *repo) loadJournals(ctx context.Context, where string, args ...any) ([]ledger.Journal, error) {
	rows, err := r.tx.Query(ctx, `select `+journalColumns+` from journals `+where+` order by posting_date, seq`, args...)
	if err != nil {
		return nil, mapErr("journal", nil, err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.JournalRecord, error) { return scanJournal(row) })
	if err != nil {
		return nil, mapErr("journal", nil, err)
	}
	if len(recs) == 0 {
		return []ledger.Journal{}, nil
	}
	ids := make([]uuid.UUID, len(recs))
	idx := make(map[uuid.UUID]*ledger.JournalRecord, len(recs))
	for i := range recs {
		ids[i] = recs[i].ID
		idx[recs[i].ID] = &recs[i]
	}
	lineRows, err := r.tx.Query(ctx, `
		select journal_id, line_number, account_id, entry_type, amount_minor, description
		from journal_lines
		where journal_id = any($1)
		order by journal_id, line_number
	`, ids)
	if err != nil {
		return nil, mapErr("journal line", nil, err)
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var (
			journalID uuid.UUID
			l         ledger.JournalLine
			side      string
			minor     int64
		)
		if err := lineRows.Scan(&journalID, &l.LineNumber, &l.AccountID, &side, &minor, &l.Description); err != nil {
			return nil, err
		}
		rec := idx[journalID]
		if rec == nil {
			continue
		}
		l.EntryType = ledger.EntryType(side)
		l.Amount = ledger.FromMinor(rec.Currency, minor)
		rec.Lines = append(rec.Lines, l)
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}
	out := make([]ledger.Journal, len(recs))
	for i, rec := range recs {
		out[i] = ledger.RestoreJournal(rec)
	}
	return out, nil
}

func (r *repo) PostedLines(ctx context.Context, q ledger.LineQuery) ([]ledger.PostedLine, error) {
	where := []string{"j.business_id = $1", "j.fiscal_year_id = $2", "l.account_id = $3"}
	args := []any{q.BusinessID, q.FiscalYearID, q.AccountID}
	if q.Through != nil {
		args = append(args, ledger.DateOf(*q.Through))
		where = append(where, fmt.Sprintf("j.posting_date <= $%d", len(args)))
	}
	if q.PeriodID != nil {
		args = append(args, *q.PeriodID)
		where = append(where, fmt.Sprintf("j.fiscal_period_id = $%d", len(args)))
	}
	rows, err := r.tx.Query(ctx, `
		select j.id, j.fiscal_year_id, j.fiscal_period_id, j.posting_date, j.currency,
		       l.line_number, l.account_id, l.entry_type, l.amount_minor, l.description
		from journal_lines l
		join journals j on j.id = l.journal_id
		where `+strings.Join(where, " and ")+`
		order by j.posting_date, j.seq, l.line_number
	`, args...)
	if err != nil {
		return nil, mapErr("journal line", nil, err)
	}
	defer rows.Close()
	out := make([]ledger.PostedLine, 0)
	for rows.Next() {
		var (
			pl    ledger.PostedLine
			curr  string
			side  string
			minor int64
		)
		if err := rows.Scan(&pl.JournalID, &pl.FiscalYearID, &pl.FiscalPeriodID, &pl.PostingDate, &curr,
			&pl.Line.LineNumber, &pl.Line.AccountID, &side, &minor, &pl.Line.Description); err != nil {
			return nil, err
		}
		pl.Line.EntryType = ledger.EntryType(side)
		pl.Line.Amount = ledger.FromMinor(strings.TrimSpace(curr), minor)
		out = append(out, pl)
	}
	return out, rows.Err()
}

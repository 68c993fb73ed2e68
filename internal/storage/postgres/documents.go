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

const documentColumns = `id, business_id, number, type, date, status, description, reference, notes,
	fiscal_year_id, journal_id, reversing_journal_id, created_at, updated_at`

func (r *repo) CreateDocument(ctx context.Context, d ledger.Document) error {
	if _, err := r.tx.Exec(ctx, `
		insert into documents (`+documentColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, d.ID, d.BusinessID, d.Number, string(d.Type), d.Date, string(d.Status), d.Description, d.Reference, d.Notes,
		closingYear(d), d.JournalID, d.ReversingJournalID, d.CreatedAt, d.UpdatedAt); err != nil {
		return mapErr("document", d.Number, err)
	}
	return r.writeDocumentLines(ctx, d)
}

// UpdateDocument rewrites the header and replaces every line. A journal
// link, once set, cannot be changed or removed.
func (r *repo) UpdateDocument(ctx context.Context, d ledger.Document) error {
	var linked *uuid.UUID
	if err := r.tx.QueryRow(ctx, `
		select journal_id from documents where id = $1 and business_id = $2 for update
	`, d.ID, d.BusinessID).Scan(&linked); err != nil {
		return mapErr("document", d.ID, err)
	}
	if linked != nil && (d.JournalID == nil || *d.JournalID != *linked) {
		return errs.Immutable("document", d.Number, "journal link cannot change")
	}
	if _, err := r.tx.Exec(ctx, `
		update documents
		set date = $1, status = $2, description = $3, reference = $4, notes = $5, fiscal_year_id = $6,
		    journal_id = $7, reversing_journal_id = $8, updated_at = $9
		where id = $10 and business_id = $11
	`, d.Date, string(d.Status), d.Description, d.Reference, d.Notes, closingYear(d),
		d.JournalID, d.ReversingJournalID, d.UpdatedAt, d.ID, d.BusinessID); err != nil {
		return mapErr("document", d.Number, err)
	}
	if _, err := r.tx.Exec(ctx, `delete from document_lines where document_id = $1`, d.ID); err != nil {
		return mapErr("document line", d.Number, err)
	}
	return r.writeDocumentLines(ctx, d)
}

func closingYear(d ledger.Document) *uuid.UUID {
	if ce, ok := d.Body.(ledger.ClosingEntryBody); ok {
		id := ce.FiscalYearID
		return &id
	}
	return nil
}

func (r *repo) writeDocumentLines(ctx context.Context, d ledger.Document) error {
	lines := d.Lines()
	if len(lines) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(lines))
	for i, l := range lines {
		units, ok := ledger.MinorUnits(l.Amount)
		if !ok {
			return errs.Invalid("document", d.Number, "line %d: amount is not representable in minor units", i+1)
		}
		rows = append(rows, []any{d.ID, i + 1, l.AccountID, units, l.Amount.Curr().Code(), l.Description})
	}
	_, err := r.tx.CopyFrom(ctx, pgx.Identifier{"document_lines"},
		[]string{"document_id", "line_number", "account_id", "amount_minor", "currency", "description"},
		pgx.CopyFromRows(rows))
	return mapErr("document line", d.Number, err)
}

func (r *repo) DeleteDocument(ctx context.Context, businessID, id uuid.UUID) error {
	ct, err := r.tx.Exec(ctx, `delete from documents where id = $1 and business_id = $2`, id, businessID)
	if err != nil {
		return mapErr("document", id, err)
	}
	if ct.RowsAffected() == 0 {
		return errs.NotFound("document", id)
	}
	return nil
}

func (r *repo) DocumentByID(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error) {
	return r.oneDocument(ctx, businessID, id, "")
}

func (r *repo) LockDocument(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error) {
	if r.readOnly {
		return ledger.Document{}, errs.IllegalState("document", id, "cannot lock in a read-only transaction")
	}
	return r.oneDocument(ctx, businessID, id, " for update")
}

func (r *repo) oneDocument(ctx context.Context, businessID, id uuid.UUID, lock string) (ledger.Document, error) {
	out, err := r.loadDocuments(ctx, `where business_id = $1 and id = $2`+lock, businessID, id)
	if err != nil {
		return ledger.Document{}, err
	}
	if len(out) == 0 {
		return ledger.Document{}, errs.NotFound("document", id)
	}
	return out[0], nil
}

func (r *repo) ListDocuments(ctx context.Context, businessID uuid.UUID, f ledger.DocumentFilter) ([]ledger.Document, error) {
	where := []string{"business_id = $1"}
	args := []any{businessID}
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	return r.loadDocuments(ctx, "where "+strings.Join(where, " and ")+" order by date, number", args...)
}

type documentRow struct {
	doc          ledger.Document
	fiscalYearID *uuid.UUID
}

func (r *repo) loadDocuments(ctx context.Context, where string, args ...any) ([]ledger.Document, error) {
	rows, err := r.tx.Query(ctx, `select `+documentColumns+` from documents `+where, args...)
	if err != nil {
		return nil, mapErr("document", nil, err)
	}
	found, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (documentRow, error) {
		var (
			dr          documentRow
			typ, status string
		)
		d := &dr.doc
		err := row.Scan(&d.ID, &d.BusinessID, &d.Number, &typ, &d.Date, &status, &d.Description, &d.Reference,
			&d.Notes, &dr.fiscalYearID, &d.JournalID, &d.ReversingJournalID, &d.CreatedAt, &d.UpdatedAt)
		d.Type = ledger.DocumentType(typ)
		d.Status = ledger.DocumentStatus(status)
		return dr, err
	})
	if err != nil {
		return nil, mapErr("document", nil, err)
	}
	if len(found) == 0 {
		return []ledger.Document{}, nil
	}
	ids := make([]uuid.UUID, len(found))
	for i := range found {
		ids[i] = found[i].doc.ID
	}
	lineRows, err := r.tx.Query(ctx, `
		select document_id, account_id, amount_minor, currency, description
		from document_lines
		where document_id = any($1)
		order by document_id, line_number
	`, ids)
	if err != nil {
		return nil, mapErr("document line", nil, err)
	}
	defer lineRows.Close()
	lines := make(map[uuid.UUID][]ledger.DocumentLine, len(found))
	for lineRows.Next() {
		var (
			docID uuid.UUID
			l     ledger.DocumentLine
			minor int64
			curr  string
		)
		if err := lineRows.Scan(&docID, &l.AccountID, &minor, &curr, &l.Description); err != nil {
			return nil, err
		}
		l.Amount = ledger.FromMinor(strings.TrimSpace(curr), minor)
		lines[docID] = append(lines[docID], l)
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}
	out := make([]ledger.Document, len(found))
	for i, dr := range found {
		d := dr.doc
		switch d.Type {
		case ledger.DocClosingEntry:
			body := ledger.ClosingEntryBody{Lines: lines[d.ID]}
			if dr.fiscalYearID != nil {
				body.FiscalYearID = *dr.fiscalYearID
			}
			d.Body = body
		default:
			d.Body = ledger.JournalEntryBody{Lines: lines[d.ID]}
		}
		out[i] = d
	}
	return out, nil
}

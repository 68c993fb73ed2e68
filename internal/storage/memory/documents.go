package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

func (t *txView) CreateDocument(_ context.Context, d ledger.Document) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.documents[d.ID]; ok {
		return errs.Conflict("document", d.ID, "already exists")
	}
	for _, o := range t.st.documents {
		if o.BusinessID == d.BusinessID && o.Number == d.Number {
			return errs.Conflict("document", d.Number, "number already in use")
		}
	}
	t.st.documents[d.ID] = cloneDocument(d)
	return nil
}

func (t *txView) UpdateDocument(_ context.Context, d ledger.Document) error {
	if err := t.writable(); err != nil {
		return err
	}
	o, ok := t.st.documents[d.ID]
	if !ok || o.BusinessID != d.BusinessID {
		return errs.NotFound("document", d.ID)
	}
	if o.JournalID != nil && (d.JournalID == nil || *d.JournalID != *o.JournalID) {
		return errs.Immutable("document", d.ID, "journal link cannot change")
	}
	t.st.documents[d.ID] = cloneDocument(d)
	return nil
}

func (t *txView) DeleteDocument(_ context.Context, businessID, id uuid.UUID) error {
	if err := t.writable(); err != nil {
		return err
	}
	o, ok := t.st.documents[id]
	if !ok || o.BusinessID != businessID {
		return errs.NotFound("document", id)
	}
	delete(t.st.documents, id)
	return nil
}

func (t *txView) DocumentByID(_ context.Context, businessID, id uuid.UUID) (ledger.Document, error) {
	d, ok := t.st.documents[id]
	if !ok || d.BusinessID != businessID {
		return ledger.Document{}, errs.NotFound("document", id)
	}
	return cloneDocument(d), nil
}

// LockDocument relies on the store-wide write lock held by the transaction.
func (t *txView) LockDocument(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error) {
	if err := t.writable(); err != nil {
		return ledger.Document{}, err
	}
	return t.DocumentByID(ctx, businessID, id)
}

func (t *txView) ListDocuments(_ context.Context, businessID uuid.UUID, f ledger.DocumentFilter) ([]ledger.Document, error) {
	out := make([]ledger.Document, 0)
	for _, d := range t.st.documents {
		if d.BusinessID == businessID && f.Matches(d) {
			out = append(out, cloneDocument(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

// cloneDocument copies the line slice and pointer fields so callers never
// share memory with the store.
func cloneDocument(d ledger.Document) ledger.Document {
	switch b := d.Body.(type) {
	case ledger.JournalEntryBody:
		b.Lines = append([]ledger.DocumentLine(nil), b.Lines...)
		d.Body = b
	case ledger.ClosingEntryBody:
		b.Lines = append([]ledger.DocumentLine(nil), b.Lines...)
		d.Body = b
	}
	if d.JournalID != nil {
		id := *d.JournalID
		d.JournalID = &id
	}
	if d.ReversingJournalID != nil {
		id := *d.ReversingJournalID
		d.ReversingJournalID = &id
	}
	return d
}

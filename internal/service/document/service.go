// Package document runs the source-document lifecycle: drafts are created
// and edited while OPEN, frozen by Complete, and turned into a journal by
// Post. Posting is the only path from a document to the ledger.
package document

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/service/journal"
	"github.com/tinoosan/bookkeeping/internal/service/sequence"
	"github.com/tinoosan/bookkeeping/internal/storage"
)

// NumberWidth is the zero padding of document numbers, e.g. JE-0001.
const NumberWidth = 4

// Repo is the persistence surface used by the service. It includes what
// the posting engine and the sequence generator need, since both run in
// the document's transaction.
type Repo interface {
	journal.Repo
	sequence.Repo
	FiscalYearByID(ctx context.Context, businessID, id uuid.UUID) (ledger.FiscalYear, error)
	CreateDocument(ctx context.Context, d ledger.Document) error
	UpdateDocument(ctx context.Context, d ledger.Document) error
	DeleteDocument(ctx context.Context, businessID, id uuid.UUID) error
	DocumentByID(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error)
	LockDocument(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error)
	ListDocuments(ctx context.Context, businessID uuid.UUID, f ledger.DocumentFilter) ([]ledger.Document, error)
}

// Draft carries the editable fields of a document.
type Draft struct {
	Type        ledger.DocumentType
	Date        time.Time
	Description string
	Reference   string
	Notes       string
	Body        ledger.DocumentBody
}

type Service interface {
	Create(ctx context.Context, businessID uuid.UUID, d Draft) (ledger.Document, error)
	// Update replaces the header and lines of an OPEN document. The type
	// cannot change.
	Update(ctx context.Context, businessID, id uuid.UUID, d Draft) (ledger.Document, error)
	Delete(ctx context.Context, businessID, id uuid.UUID) error
	Complete(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error)
	Revert(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error)
	Post(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, ledger.Journal, error)
	// PostBatch posts several documents of one type as a single summary
	// journal. Either every document ends up POSTED or none does.
	PostBatch(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]ledger.Document, ledger.Journal, error)
	Void(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error)
	Get(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error)
	List(ctx context.Context, businessID uuid.UUID, f ledger.DocumentFilter) ([]ledger.Document, error)
}

type service struct {
	store   storage.Store
	engine  journal.Engine
	numbers sequence.Generator
	log     *slog.Logger
	now     func() time.Time
}

func New(store storage.Store, engine journal.Engine, numbers sequence.Generator, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		store:   store,
		engine:  engine,
		numbers: numbers,
		log:     logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(ctx context.Context, businessID uuid.UUID, d Draft) (ledger.Document, error) {
	if err := checkDraft(d); err != nil {
		return ledger.Document{}, err
	}
	doc, err := storage.Exec(ctx, s.store, func(tx storage.Repository) (ledger.Document, error) {
		if _, err := tx.BusinessByID(ctx, businessID); err != nil {
			return ledger.Document{}, err
		}
		date, err := documentDate(ctx, tx, businessID, d)
		if err != nil {
			return ledger.Document{}, err
		}
		prefix := d.Type.Prefix()
		n, err := s.numbers.Next(ctx, tx, businessID, prefix)
		if err != nil {
			return ledger.Document{}, err
		}
		now := s.now()
		doc := ledger.Document{
			ID:          uuid.New(),
			BusinessID:  businessID,
			Number:      sequence.Format(prefix, n, NumberWidth),
			Type:        d.Type,
			Date:        date,
			Status:      ledger.DocumentOpen,
			Description: strings.TrimSpace(d.Description),
			Reference:   strings.TrimSpace(d.Reference),
			Notes:       d.Notes,
			Body:        d.Body,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateDocument(ctx, doc); err != nil {
			return ledger.Document{}, err
		}
		return doc, nil
	})
	if err == nil {
		s.log.Info("document created", "business_id", businessID, "document_id", doc.ID,
			"type", doc.Type, "number", doc.Number)
	}
	return doc, err
}

// checkDraft rejects drafts whose type cannot be posted or whose body does
// not belong to the type. Balance is left to Complete.
func checkDraft(d Draft) error {
	if !d.Type.Valid() {
		return errs.Invalid("document", nil, "unknown document type %q", d.Type)
	}
	if !d.Type.Supported() {
		return errs.IllegalState("document", nil, "unsupported document type %s", d.Type)
	}
	switch b := d.Body.(type) {
	case ledger.JournalEntryBody:
		if d.Type != ledger.DocJournalEntry {
			return errs.Invalid("document", nil, "journal entry body on %s document", d.Type)
		}
	case ledger.ClosingEntryBody:
		if d.Type != ledger.DocClosingEntry {
			return errs.Invalid("document", nil, "closing entry body on %s document", d.Type)
		}
		if b.FiscalYearID == uuid.Nil {
			return errs.Invalid("document", nil, "fiscal year is required")
		}
	case nil:
		return errs.Invalid("document", nil, "document has no body")
	default:
		return errs.Invalid("document", nil, "unsupported document body %T", d.Body)
	}
	if d.Type != ledger.DocClosingEntry && d.Date.IsZero() {
		return errs.Invalid("document", nil, "document date is required")
	}
	return nil
}

// documentDate pins closing entries to the end of their fiscal year.
func documentDate(ctx context.Context, repo Repo, businessID uuid.UUID, d Draft) (time.Time, error) {
	ce, ok := d.Body.(ledger.ClosingEntryBody)
	if !ok {
		return ledger.DateOf(d.Date), nil
	}
	y, err := repo.FiscalYearByID(ctx, businessID, ce.FiscalYearID)
	if err != nil {
		return time.Time{}, err
	}
	return ledger.DateOf(y.EndDate), nil
}

func (s *service) Update(ctx context.Context, businessID, id uuid.UUID, d Draft) (ledger.Document, error) {
	if err := checkDraft(d); err != nil {
		return ledger.Document{}, err
	}
	return storage.Exec(ctx, s.store, func(tx storage.Repository) (ledger.Document, error) {
		doc, err := tx.LockDocument(ctx, businessID, id)
		if err != nil {
			return ledger.Document{}, err
		}
		if !doc.Status.CanEdit() {
			return ledger.Document{}, errs.IllegalState("document", doc.Number, "only OPEN documents can be edited, it is %s", doc.Status)
		}
		if d.Type != doc.Type {
			return ledger.Document{}, errs.Immutable("document", doc.Number, "type cannot change")
		}
		date, err := documentDate(ctx, tx, businessID, d)
		if err != nil {
			return ledger.Document{}, err
		}
		doc.Date = date
		doc.Description = strings.TrimSpace(d.Description)
		doc.Reference = strings.TrimSpace(d.Reference)
		doc.Notes = d.Notes
		doc.Body = d.Body
		doc.UpdatedAt = s.now()
		if err := tx.UpdateDocument(ctx, doc); err != nil {
			return ledger.Document{}, err
		}
		return doc, nil
	})
}

func (s *service) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	return s.store.WithTx(ctx, func(tx storage.Repository) error {
		doc, err := tx.LockDocument(ctx, businessID, id)
		if err != nil {
			return err
		}
		if !doc.Status.CanEdit() {
			return errs.IllegalState("document", doc.Number, "only OPEN documents can be deleted, it is %s", doc.Status)
		}
		return tx.DeleteDocument(ctx, businessID, id)
	})
}

// transition locks a document, applies fn and saves the result.
func (s *service) transition(ctx context.Context, businessID, id uuid.UUID, event string, fn func(d *ledger.Document) error) (ledger.Document, error) {
	doc, err := storage.Exec(ctx, s.store, func(tx storage.Repository) (ledger.Document, error) {
		doc, err := tx.LockDocument(ctx, businessID, id)
		if err != nil {
			return ledger.Document{}, err
		}
		if err := fn(&doc); err != nil {
			return ledger.Document{}, classify(doc, err)
		}
		doc.UpdatedAt = s.now()
		if err := tx.UpdateDocument(ctx, doc); err != nil {
			return ledger.Document{}, err
		}
		return doc, nil
	})
	if err == nil {
		s.log.Info("document "+event, "business_id", businessID, "document_id", id, "number", doc.Number)
	}
	return doc, err
}

func (s *service) Complete(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error) {
	return s.transition(ctx, businessID, id, "completed", func(d *ledger.Document) error { return d.Complete() })
}

func (s *service) Revert(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error) {
	return s.transition(ctx, businessID, id, "reverted", func(d *ledger.Document) error { return d.Revert() })
}

func (s *service) Void(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) (ledger.Document, error) {
		doc, err := tx.DocumentByID(ctx, businessID, id)
		if err != nil {
			return ledger.Document{}, err
		}
		return ledger.Document{}, errs.IllegalState("document", doc.Number, "voiding posted documents is not supported")
	})
}

func (s *service) Post(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, ledger.Journal, error) {
	var (
		doc ledger.Document
		j   ledger.Journal
	)
	err := s.store.WithTx(ctx, func(tx storage.Repository) error {
		var err error
		if doc, err = tx.LockDocument(ctx, businessID, id); err != nil {
			return err
		}
		req, err := s.journalRequest(ctx, tx, doc)
		if err != nil {
			return err
		}
		if j, err = s.engine.Create(ctx, tx, req); err != nil {
			return err
		}
		if err := checkClosingYear(doc, j); err != nil {
			return err
		}
		return s.link(ctx, tx, &doc, j)
	})
	if err != nil {
		return ledger.Document{}, ledger.Journal{}, err
	}
	s.log.Info("document posted", "business_id", businessID, "document_id", id,
		"number", doc.Number, "journal_id", j.ID())
	return doc, j, nil
}

func (s *service) PostBatch(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]ledger.Document, ledger.Journal, error) {
	if len(ids) == 0 {
		return nil, ledger.Journal{}, errs.Invalid("document", nil, "at least one document is required")
	}
	var (
		docs []ledger.Document
		j    ledger.Journal
	)
	err := s.store.WithTx(ctx, func(tx storage.Repository) error {
		docs = make([]ledger.Document, 0, len(ids))
		seen := make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				return errs.Invalid("document", id, "listed more than once")
			}
			seen[id] = struct{}{}
			doc, err := tx.LockDocument(ctx, businessID, id)
			if err != nil {
				return err
			}
			if len(docs) > 0 && doc.Type != docs[0].Type {
				return errs.Invalid("document", doc.Number, "batch mixes %s and %s documents", docs[0].Type, doc.Type)
			}
			docs = append(docs, doc)
		}

		first := docs[0]
		req := ledger.JournalRequest{
			BusinessID: businessID,
			EntryDate:  first.Date,
			DocumentID: first.ID,
			Type:       first.Type.JournalType(),
			Number:     first.Number,
		}
		var refs, descs []string
		for _, doc := range docs {
			one, err := s.journalRequest(ctx, tx, doc)
			if err != nil {
				return err
			}
			req.Lines = append(req.Lines, one.Lines...)
			if doc.Reference != "" {
				refs = append(refs, doc.Reference)
			}
			if doc.Description != "" {
				descs = append(descs, doc.Description)
			}
		}
		req.Reference = strings.Join(refs, ", ")
		req.Description = strings.Join(descs, "; ")
		if req.Description == "" {
			req.Description = "Summary posting"
		}

		var err error
		if j, err = s.engine.Create(ctx, tx, req); err != nil {
			return err
		}
		for i := range docs {
			if err := checkClosingYear(docs[i], j); err != nil {
				return err
			}
			if err := s.link(ctx, tx, &docs[i], j); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, ledger.Journal{}, err
	}
	s.log.Info("documents posted", "business_id", businessID, "documents", len(docs), "journal_id", j.ID())
	return docs, j, nil
}

// journalRequest checks that doc can post and maps it onto a journal request.
func (s *service) journalRequest(ctx context.Context, repo Repo, doc ledger.Document) (ledger.JournalRequest, error) {
	if err := doc.CheckPostable(); err != nil {
		return ledger.JournalRequest{}, classify(doc, err)
	}
	if err := doc.Validate(); err != nil {
		return ledger.JournalRequest{}, errs.Invalid("document", doc.Number, "%v", err)
	}
	lines, err := ledger.ToJournalLines(doc.Body)
	if err != nil {
		return ledger.JournalRequest{}, errs.Invalid("document", doc.Number, "%v", err)
	}
	desc := doc.Description
	if desc == "" {
		year := 0
		if ce, ok := doc.Body.(ledger.ClosingEntryBody); ok {
			y, err := repo.FiscalYearByID(ctx, doc.BusinessID, ce.FiscalYearID)
			if err != nil {
				return ledger.JournalRequest{}, err
			}
			year = y.Year
		}
		desc = doc.DefaultDescription(year)
	}
	return ledger.JournalRequest{
		BusinessID:  doc.BusinessID,
		EntryDate:   doc.Date,
		DocumentID:  doc.ID,
		Type:        doc.Type.JournalType(),
		Number:      doc.Number,
		Reference:   doc.Reference,
		Description: desc,
		Lines:       lines,
	}, nil
}

// checkClosingYear makes sure a closing entry landed in the year it closes.
func checkClosingYear(doc ledger.Document, j ledger.Journal) error {
	ce, ok := doc.Body.(ledger.ClosingEntryBody)
	if !ok || ce.FiscalYearID == j.FiscalYearID() {
		return nil
	}
	return errs.Invalid("document", doc.Number, "closing entry would post outside the fiscal year it closes")
}

func (s *service) link(ctx context.Context, repo Repo, doc *ledger.Document, j ledger.Journal) error {
	if err := doc.MarkPosted(j.ID()); err != nil {
		return classify(*doc, err)
	}
	doc.UpdatedAt = s.now()
	return repo.UpdateDocument(ctx, *doc)
}

// classify maps domain errors onto the shared taxonomy: forbidden
// transitions are illegal state, anything else a validation failure.
func classify(doc ledger.Document, err error) error {
	var te *ledger.ErrTransition
	if errors.As(err, &te) {
		return errs.IllegalState("document", doc.Number, "%v", te)
	}
	if _, ok := errs.As(err); ok {
		return err
	}
	return errs.Invalid("document", doc.Number, "%v", err)
}

func (s *service) Get(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) (ledger.Document, error) {
		return tx.DocumentByID(ctx, businessID, id)
	})
}

func (s *service) List(ctx context.Context, businessID uuid.UUID, f ledger.DocumentFilter) ([]ledger.Document, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, errs.Invalid("document", nil, "unknown document type %q", f.Type)
	}
	return storage.Query(ctx, s.store, func(tx storage.Repository) ([]ledger.Document, error) {
		return tx.ListDocuments(ctx, businessID, f)
	})
}

package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/service/document"
)

type postResponse struct {
	Document documentResponse `json:"document"`
	Journal  journalResponse  `json:"journal"`
}

type postBatchRequest struct {
	DocumentIDs []uuid.UUID `json:"document_ids"`
}

type postBatchResponse struct {
	Documents []documentResponse `json:"documents"`
	Journal   journalResponse    `json:"journal"`
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	q := r.URL.Query()
	f := ledger.DocumentFilter{
		Type:   ledger.DocumentType(strings.ToUpper(q.Get("type"))),
		Status: ledger.DocumentStatus(strings.ToUpper(q.Get("status"))),
	}
	ds, err := s.svc.Documents.List(r.Context(), biz.ID, f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toDocumentResponses(ds, biz.Currency))
}

func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	var req documentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := draftFromRequest(biz, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	doc, err := s.svc.Documents.Create(r.Context(), biz.ID, d)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toDocumentResponse(doc, biz.Currency))
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	s.documentAction(w, r, s.svc.Documents.Get)
}

func (s *Server) updateDocument(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req documentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := draftFromRequest(biz, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	doc, err := s.svc.Documents.Update(r.Context(), biz.ID, id, d)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toDocumentResponse(doc, biz.Currency))
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.Documents.Delete(r.Context(), biz.ID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) completeDocument(w http.ResponseWriter, r *http.Request) {
	s.documentAction(w, r, s.svc.Documents.Complete)
}

func (s *Server) revertDocument(w http.ResponseWriter, r *http.Request) {
	s.documentAction(w, r, s.svc.Documents.Revert)
}

func (s *Server) voidDocument(w http.ResponseWriter, r *http.Request) {
	s.documentAction(w, r, s.svc.Documents.Void)
}

func (s *Server) documentAction(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, businessID, id uuid.UUID) (ledger.Document, error)) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	doc, err := fn(r.Context(), biz.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toDocumentResponse(doc, biz.Currency))
}

func (s *Server) postDocument(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	doc, j, err := s.svc.Documents.Post(r.Context(), biz.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, postResponse{
		Document: toDocumentResponse(doc, biz.Currency),
		Journal:  toJournalResponse(j),
	})
}

func (s *Server) postBatch(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	var req postBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	docs, j, err := s.svc.Documents.PostBatch(r.Context(), biz.ID, req.DocumentIDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, postBatchResponse{
		Documents: toDocumentResponses(docs, biz.Currency),
		Journal:   toJournalResponse(j),
	})
}

// draftFromRequest parses amounts in the business currency and picks the
// body variant from the document type.
func draftFromRequest(biz ledger.Business, req documentRequest) (document.Draft, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return document.Draft{}, err
	}
	lines := make([]ledger.DocumentLine, 0, len(req.Lines))
	for i, l := range req.Lines {
		amt, err := parseMoney(biz, "amount", l.Amount)
		if err != nil {
			return document.Draft{}, errs.Invalid("document line", i+1, "invalid amount %q", l.Amount)
		}
		lines = append(lines, ledger.DocumentLine{AccountID: l.AccountID, Amount: amt, Description: l.Description})
	}
	typ := ledger.DocumentType(strings.ToUpper(strings.TrimSpace(req.Type)))
	d := document.Draft{
		Type:        typ,
		Date:        date,
		Description: req.Description,
		Reference:   req.Reference,
		Notes:       req.Notes,
	}
	switch typ {
	case ledger.DocClosingEntry:
		d.Body = ledger.ClosingEntryBody{FiscalYearID: req.FiscalYearID, Lines: lines}
	default:
		d.Body = ledger.JournalEntryBody{Lines: lines}
	}
	return d, nil
}

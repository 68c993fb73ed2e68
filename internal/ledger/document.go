package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// DocumentStatus drives the lifecycle OPEN -> COMPLETED -> POSTED, with
// COMPLETED -> OPEN as the only way back.
type DocumentStatus string

const (
	DocumentOpen      DocumentStatus = "OPEN"
	DocumentCompleted DocumentStatus = "COMPLETED"
	DocumentPosted    DocumentStatus = "POSTED"
	DocumentVoided    DocumentStatus = "VOIDED"
)

func (s DocumentStatus) CanEdit() bool     { return s == DocumentOpen }
func (s DocumentStatus) CanComplete() bool { return s == DocumentOpen }
func (s DocumentStatus) CanRevert() bool   { return s == DocumentCompleted }
func (s DocumentStatus) CanPost() bool     { return s == DocumentCompleted }
func (s DocumentStatus) CanVoid() bool     { return s == DocumentPosted }

// DocumentType names a kind of source document.
type DocumentType string

const (
	DocJournalEntry     DocumentType = "JOURNAL_ENTRY"
	DocClosingEntry     DocumentType = "CLOSING_ENTRY"
	DocInvoice          DocumentType = "INVOICE"
	DocCreditMemo       DocumentType = "CREDIT_MEMO"
	DocCashReceipt      DocumentType = "CASH_RECEIPT"
	DocCashDisbursement DocumentType = "CASH_DISBURSEMENT"
	DocBill             DocumentType = "BILL"
	DocVendorCredit     DocumentType = "VENDOR_CREDIT"
)

var documentTypes = map[DocumentType]struct {
	prefix  string
	name    string
	journal JournalType
}{
	DocJournalEntry:     {"JE", "Journal Entry", JournalGeneral},
	DocClosingEntry:     {"CE", "Closing Entry", JournalClosing},
	DocInvoice:          {"INV", "Invoice", JournalSales},
	DocCreditMemo:       {"CM", "Credit Memo", JournalSales},
	DocCashReceipt:      {"CR", "Cash Receipt", JournalCashReceipts},
	DocCashDisbursement: {"CD", "Cash Disbursement", JournalCashDisbursements},
	DocBill:             {"BILL", "Bill", JournalPurchases},
	DocVendorCredit:     {"VC", "Vendor Credit", JournalPurchases},
}

func (t DocumentType) Valid() bool { _, ok := documentTypes[t]; return ok }

// Prefix is both the sequence key and the number prefix, e.g. "JE".
func (t DocumentType) Prefix() string { return documentTypes[t].prefix }

func (t DocumentType) DisplayName() string { return documentTypes[t].name }

// JournalType is the journal a posted document of this type lands in.
func (t DocumentType) JournalType() JournalType { return documentTypes[t].journal }

// Supported reports whether the type has a body that can be built and posted.
func (t DocumentType) Supported() bool { return t == DocJournalEntry || t == DocClosingEntry }

// DocumentLine is a signed line: positive debits, negative credits.
type DocumentLine struct {
	AccountID   uuid.UUID
	Amount      money.Amount
	Description string
}

// DocumentBody is the kind-specific part of a document. The variants are
// JournalEntryBody and ClosingEntryBody.
type DocumentBody interface {
	isDocumentBody()
}

// JournalEntryBody is a manual journal entry.
type JournalEntryBody struct {
	Lines []DocumentLine
}

// ClosingEntryBody is a year-end closing entry. Its document date is pinned
// to the fiscal year end.
type ClosingEntryBody struct {
	FiscalYearID uuid.UUID
	Lines        []DocumentLine
}

func (JournalEntryBody) isDocumentBody() {}
func (ClosingEntryBody) isDocumentBody() {}

// BodyLines returns the lines carried by a body.
func BodyLines(b DocumentBody) []DocumentLine {
	switch v := b.(type) {
	case JournalEntryBody:
		return v.Lines
	case ClosingEntryBody:
		return v.Lines
	}
	return nil
}

// ToJournalLines maps a body onto journal request lines.
func ToJournalLines(b DocumentBody) ([]LineSpec, error) {
	switch v := b.(type) {
	case JournalEntryBody:
		return signedToSpecs(v.Lines)
	case ClosingEntryBody:
		return signedToSpecs(v.Lines)
	case nil:
		return nil, fmt.Errorf("document has no body")
	}
	return nil, fmt.Errorf("unsupported document body %T", b)
}

func signedToSpecs(lines []DocumentLine) ([]LineSpec, error) {
	out := make([]LineSpec, 0, len(lines))
	for i, l := range lines {
		ls, err := SignedLine(l.AccountID, l.Amount, l.Description)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out = append(out, ls)
	}
	return out, nil
}

// Document is a source record that becomes a journal when posted.
type Document struct {
	ID                 uuid.UUID
	BusinessID         uuid.UUID
	Number             string
	Type               DocumentType
	Date               time.Time
	Status             DocumentStatus
	Description        string
	Reference          string
	Notes              string
	JournalID          *uuid.UUID
	ReversingJournalID *uuid.UUID
	Body               DocumentBody
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Lines returns the document's signed lines.
func (d Document) Lines() []DocumentLine { return BodyLines(d.Body) }

// IsPosted reports whether a journal is already linked.
func (d Document) IsPosted() bool { return d.JournalID != nil }

// Totals sums debits and credits in minor units. err is ErrOverflow when
// either side does not fit in int64.
func (d Document) Totals() (debits, credits int64, err error) {
	for _, l := range d.Lines() {
		u, _ := MinorUnits(l.Amount.Abs())
		if l.Amount.IsNeg() {
			credits, err = AddMinor(credits, u)
		} else {
			debits, err = AddMinor(debits, u)
		}
		if err != nil {
			return 0, 0, err
		}
	}
	return debits, credits, nil
}

// IsBalanced reports whether the signed lines sum to zero.
func (d Document) IsBalanced() bool {
	dr, cr, err := d.Totals()
	return err == nil && dr == cr
}

// Validate checks the header and the kind-specific rules a document must
// meet before it can complete or post.
func (d Document) Validate() error {
	if d.BusinessID == uuid.Nil {
		return fmt.Errorf("business is required")
	}
	if strings.TrimSpace(d.Number) == "" {
		return fmt.Errorf("document number is required")
	}
	if d.Date.IsZero() {
		return fmt.Errorf("document date is required")
	}
	switch v := d.Body.(type) {
	case JournalEntryBody:
		if d.Type != DocJournalEntry {
			return fmt.Errorf("journal entry body on %s document", d.Type)
		}
		return validateLines(d, v.Lines)
	case ClosingEntryBody:
		if d.Type != DocClosingEntry {
			return fmt.Errorf("closing entry body on %s document", d.Type)
		}
		if v.FiscalYearID == uuid.Nil {
			return fmt.Errorf("fiscal year is required")
		}
		return validateLines(d, v.Lines)
	case nil:
		return fmt.Errorf("document has no body")
	}
	return fmt.Errorf("unsupported document body %T", d.Body)
}

func validateLines(d Document, lines []DocumentLine) error {
	if len(lines) < 2 {
		return fmt.Errorf("at least 2 lines are required")
	}
	var curr string
	for i, l := range lines {
		if l.AccountID == uuid.Nil {
			return fmt.Errorf("line %d: account is required", i+1)
		}
		if l.Amount.IsZero() {
			return fmt.Errorf("line %d: amount must not be zero", i+1)
		}
		if _, ok := MinorUnits(l.Amount); !ok {
			return fmt.Errorf("line %d: amount has more precision than the currency allows", i+1)
		}
		code := l.Amount.Curr().Code()
		if curr == "" {
			curr = code
		} else if code != curr {
			return fmt.Errorf("line %d: currency %s does not match %s", i+1, code, curr)
		}
	}
	dr, cr, err := d.Totals()
	if err != nil {
		return fmt.Errorf("document totals: %w", err)
	}
	if dr != cr {
		return fmt.Errorf("document is not balanced: debits %s, credits %s",
			FormatAmount(FromMinor(curr, dr)), FormatAmount(FromMinor(curr, cr)))
	}
	return nil
}

// ErrTransition reports a lifecycle move that the current status forbids.
type ErrTransition struct {
	From   DocumentStatus
	Verb   string
	Reason string
}

func (e *ErrTransition) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s document: %s", e.Verb, e.Reason)
	}
	return fmt.Sprintf("cannot %s a document that is %s", e.Verb, e.From)
}

// Complete validates and freezes an OPEN document.
func (d *Document) Complete() error {
	if !d.Status.CanComplete() {
		return &ErrTransition{From: d.Status, Verb: "complete"}
	}
	if err := d.Validate(); err != nil {
		return err
	}
	d.Status = DocumentCompleted
	return nil
}

// Revert sends a COMPLETED document back to OPEN for editing.
func (d *Document) Revert() error {
	if !d.Status.CanRevert() {
		return &ErrTransition{From: d.Status, Verb: "revert"}
	}
	d.Status = DocumentOpen
	return nil
}

// CheckPostable reports why the document cannot be posted, if it cannot.
func (d Document) CheckPostable() error {
	if !d.Status.CanPost() {
		return &ErrTransition{From: d.Status, Verb: "post"}
	}
	if d.IsPosted() {
		return &ErrTransition{From: d.Status, Verb: "post", Reason: "already linked to a journal"}
	}
	return nil
}

// MarkPosted links the journal and moves the document to POSTED.
func (d *Document) MarkPosted(journalID uuid.UUID) error {
	if err := d.CheckPostable(); err != nil {
		return err
	}
	id := journalID
	d.JournalID = &id
	d.Status = DocumentPosted
	return nil
}

// DefaultDescription is used when a posted document has no description.
func (d Document) DefaultDescription(fiscalYear int) string {
	switch d.Type {
	case DocClosingEntry:
		return fmt.Sprintf("Closing Entry - FY%d", fiscalYear)
	case DocJournalEntry:
		return "Journal Entry " + d.Number
	}
	return d.Type.DisplayName() + " " + d.Number
}

package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// JournalType classifies journals by the book they belong to.
type JournalType string

const (
	JournalGeneral           JournalType = "JE"
	JournalClosing           JournalType = "CE"
	JournalCashReceipts      JournalType = "CR"
	JournalCashDisbursements JournalType = "CD"
	JournalSales             JournalType = "SJ"
	JournalPurchases         JournalType = "PJ"
)

func (t JournalType) Valid() bool {
	switch t {
	case JournalGeneral, JournalClosing, JournalCashReceipts, JournalCashDisbursements, JournalSales, JournalPurchases:
		return true
	}
	return false
}

func (t JournalType) DisplayName() string {
	switch t {
	case JournalGeneral:
		return "General Journal"
	case JournalClosing:
		return "Closing Entries"
	case JournalCashReceipts:
		return "Cash Receipts Journal"
	case JournalCashDisbursements:
		return "Cash Disbursements Journal"
	case JournalSales:
		return "Sales Journal"
	case JournalPurchases:
		return "Purchases Journal"
	}
	return string(t)
}

// EntryType is the side of a journal line.
type EntryType string

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

// JournalLine is one debit or credit. Amount is always strictly positive;
// the side carries the sign.
type JournalLine struct {
	LineNumber  int
	AccountID   uuid.UUID
	EntryType   EntryType
	Amount      money.Amount
	Description string
}

// Signed returns the amount with debits positive and credits negative.
func (l JournalLine) Signed() money.Amount {
	if l.EntryType == Credit {
		return l.Amount.Neg()
	}
	return l.Amount
}

// SignedMinor is Signed in minor units.
func (l JournalLine) SignedMinor() int64 {
	units, _ := MinorUnits(l.Amount)
	if l.EntryType == Credit {
		return -units
	}
	return units
}

// JournalRecord is the persisted layout of a journal. Storage reads and
// writes records; everything else holds a Journal.
type JournalRecord struct {
	ID                uuid.UUID
	BusinessID        uuid.UUID
	FiscalYearID      uuid.UUID
	FiscalPeriodID    uuid.UUID
	Type              JournalType
	Number            string
	EntryDate         time.Time
	PostingDate       time.Time
	DocumentID        uuid.UUID
	ReversesJournalID *uuid.UUID
	Reference         string
	Description       string
	Currency          string
	CreatedAt         time.Time
	Lines             []JournalLine
}

func (r JournalRecord) clone() JournalRecord {
	out := r
	out.Lines = append([]JournalLine(nil), r.Lines...)
	if r.ReversesJournalID != nil {
		id := *r.ReversesJournalID
		out.ReversesJournalID = &id
	}
	return out
}

// Journal is a posted, balanced transaction. It has no setters; a correction
// is a new journal that reverses this one.
type Journal struct {
	r JournalRecord
}

// NewJournal builds a journal from a request, posting it into period. The
// posting date is the period's start date and lines are numbered 1..n in
// request order.
func NewJournal(req JournalRequest, currency string, period FiscalPeriod, year FiscalYear) (Journal, error) {
	if len(req.Lines) == 0 {
		return Journal{}, fmt.Errorf("journal must have at least one line")
	}
	lines := make([]JournalLine, len(req.Lines))
	for i, ls := range req.Lines {
		if err := ls.validate(); err != nil {
			return Journal{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		if code := ls.Amount.Curr().Code(); code != currency {
			return Journal{}, fmt.Errorf("line %d: currency %s does not match %s", i+1, code, currency)
		}
		lines[i] = JournalLine{
			LineNumber:  i + 1,
			AccountID:   ls.AccountID,
			EntryType:   ls.EntryType,
			Amount:      ls.Amount,
			Description: ls.Description,
		}
	}
	var rev *uuid.UUID
	if req.ReversesJournalID != nil {
		id := *req.ReversesJournalID
		rev = &id
	}
	j := Journal{r: JournalRecord{
		ID:                uuid.New(),
		BusinessID:        req.BusinessID,
		FiscalYearID:      year.ID,
		FiscalPeriodID:    period.ID,
		Type:              req.Type,
		Number:            req.Number,
		EntryDate:         DateOf(req.EntryDate),
		PostingDate:       DateOf(period.StartDate),
		DocumentID:        req.DocumentID,
		ReversesJournalID: rev,
		Reference:         req.Reference,
		Description:       req.Description,
		Currency:          currency,
		CreatedAt:         time.Now().UTC(),
		Lines:             lines,
	}}
	if err := CheckPostable(j, year); err != nil {
		return Journal{}, err
	}
	return j, nil
}

// RestoreJournal rebuilds a journal read back from storage.
func RestoreJournal(r JournalRecord) Journal { return Journal{r: r.clone()} }

// CheckPostable is the rule set every stored journal satisfies: at least one
// line, debits equal credits, and closing entries only into a CLOSING year.
// Stores call it again right before writing.
func CheckPostable(j Journal, year FiscalYear) error {
	if len(j.r.Lines) == 0 {
		return fmt.Errorf("journal must have at least one line")
	}
	if year.ID != j.r.FiscalYearID {
		return fmt.Errorf("journal does not belong to fiscal year %d", year.Year)
	}
	if j.r.Type == JournalClosing && !year.CanAcceptClosingEntries() {
		return fmt.Errorf("closing entries require fiscal year %d to be CLOSING, it is %s", year.Year, year.Status)
	}
	if !j.IsBalanced() {
		return fmt.Errorf("journal is not balanced: debits %s, credits %s",
			FormatAmount(j.TotalDebits()), FormatAmount(j.TotalCredits()))
	}
	return nil
}

func (j Journal) ID() uuid.UUID             { return j.r.ID }
func (j Journal) BusinessID() uuid.UUID     { return j.r.BusinessID }
func (j Journal) FiscalYearID() uuid.UUID   { return j.r.FiscalYearID }
func (j Journal) FiscalPeriodID() uuid.UUID { return j.r.FiscalPeriodID }
func (j Journal) Type() JournalType         { return j.r.Type }
func (j Journal) Number() string            { return j.r.Number }
func (j Journal) EntryDate() time.Time      { return j.r.EntryDate }
func (j Journal) PostingDate() time.Time    { return j.r.PostingDate }
func (j Journal) DocumentID() uuid.UUID     { return j.r.DocumentID }
func (j Journal) Reference() string         { return j.r.Reference }
func (j Journal) Description() string       { return j.r.Description }
func (j Journal) Currency() string          { return j.r.Currency }
func (j Journal) CreatedAt() time.Time      { return j.r.CreatedAt }

// ReversesJournalID returns the journal this one reverses, if any.
func (j Journal) ReversesJournalID() (uuid.UUID, bool) {
	if j.r.ReversesJournalID == nil {
		return uuid.Nil, false
	}
	return *j.r.ReversesJournalID, true
}

func (j Journal) IsReversing() bool { return j.r.ReversesJournalID != nil }

// Lines returns a copy of the ordered lines.
func (j Journal) Lines() []JournalLine { return append([]JournalLine(nil), j.r.Lines...) }

// Record returns a copy of the persisted layout.
func (j Journal) Record() JournalRecord { return j.r.clone() }

func (j Journal) TotalDebits() money.Amount  { return j.total(Debit) }
func (j Journal) TotalCredits() money.Amount { return j.total(Credit) }

// IsBalanced compares debits and credits exactly, in minor units. A journal
// whose totals overflow is never balanced.
func (j Journal) IsBalanced() bool {
	dr, cr, err := j.totals()
	return err == nil && dr == cr
}

func (j Journal) totals() (debits, credits int64, err error) {
	for _, l := range j.r.Lines {
		u, _ := MinorUnits(l.Amount)
		if l.EntryType == Debit {
			debits, err = AddMinor(debits, u)
		} else {
			credits, err = AddMinor(credits, u)
		}
		if err != nil {
			return 0, 0, err
		}
	}
	return debits, credits, nil
}

func (j Journal) total(side EntryType) money.Amount {
	dr, cr, _ := j.totals()
	if side == Debit {
		return FromMinor(j.r.Currency, dr)
	}
	return FromMinor(j.r.Currency, cr)
}

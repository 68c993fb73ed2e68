package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// AccountLedger holds the opening balance of one account for one fiscal
// year. Current and closing balances are always derived from journal lines.
type AccountLedger struct {
	ID             uuid.UUID
	BusinessID     uuid.UUID
	FiscalYearID   uuid.UUID
	AccountID      uuid.UUID
	OpeningBalance money.Amount
	Notes          string
}

// PostedLine is a journal line together with the journal fields balances
// are filtered on.
type PostedLine struct {
	JournalID      uuid.UUID
	FiscalYearID   uuid.UUID
	FiscalPeriodID uuid.UUID
	PostingDate    time.Time
	Line           JournalLine
}

// LineQuery selects posted lines for one account. Through bounds the
// posting date (inclusive); PeriodID narrows to one period.
type LineQuery struct {
	BusinessID   uuid.UUID
	AccountID    uuid.UUID
	FiscalYearID uuid.UUID
	Through      *time.Time
	PeriodID     *uuid.UUID
}

// Matches reports whether pl satisfies q.
func (q LineQuery) Matches(pl PostedLine) bool {
	if pl.Line.AccountID != q.AccountID || pl.FiscalYearID != q.FiscalYearID {
		return false
	}
	if q.Through != nil && DateOf(pl.PostingDate).After(DateOf(*q.Through)) {
		return false
	}
	if q.PeriodID != nil && pl.FiscalPeriodID != *q.PeriodID {
		return false
	}
	return true
}

package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// LineSpec is one line of a journal creation request.
type LineSpec struct {
	AccountID   uuid.UUID
	EntryType   EntryType
	Amount      money.Amount
	Description string
}

func (l LineSpec) validate() error {
	if l.AccountID == uuid.Nil {
		return fmt.Errorf("account is required")
	}
	if l.EntryType != Debit && l.EntryType != Credit {
		return fmt.Errorf("entry type must be DEBIT or CREDIT")
	}
	if !l.Amount.IsPos() {
		return fmt.Errorf("amount must be greater than zero")
	}
	if _, ok := MinorUnits(l.Amount); !ok {
		return fmt.Errorf("amount %s has more precision than the currency allows", l.Amount)
	}
	return nil
}

// DebitLine builds a debit line; amount must be positive.
func DebitLine(account uuid.UUID, amount money.Amount, desc string) (LineSpec, error) {
	l := LineSpec{AccountID: account, EntryType: Debit, Amount: amount, Description: desc}
	return l, l.validate()
}

// CreditLine builds a credit line; amount must be positive.
func CreditLine(account uuid.UUID, amount money.Amount, desc string) (LineSpec, error) {
	l := LineSpec{AccountID: account, EntryType: Credit, Amount: amount, Description: desc}
	return l, l.validate()
}

// SignedLine maps a signed amount onto a side: positive debits, negative
// credits. Zero is rejected.
func SignedLine(account uuid.UUID, signed money.Amount, desc string) (LineSpec, error) {
	switch {
	case signed.IsPos():
		return DebitLine(account, signed, desc)
	case signed.IsNeg():
		return CreditLine(account, signed.Neg(), desc)
	}
	return LineSpec{}, fmt.Errorf("amount must not be zero")
}

// JournalRequest is everything the posting engine needs to create a journal.
// Build it with NewJournalRequest.
type JournalRequest struct {
	BusinessID        uuid.UUID
	EntryDate         time.Time
	DocumentID        uuid.UUID
	Type              JournalType
	Number            string
	Reference         string
	Description       string
	ReversesJournalID *uuid.UUID
	Lines             []LineSpec
}

// NewJournalRequest validates r. An empty line list or any non-positive line
// amount is rejected here, before the engine sees the request.
func NewJournalRequest(r JournalRequest) (JournalRequest, error) {
	if r.BusinessID == uuid.Nil {
		return JournalRequest{}, fmt.Errorf("business is required")
	}
	if r.DocumentID == uuid.Nil {
		return JournalRequest{}, fmt.Errorf("source document is required")
	}
	if r.EntryDate.IsZero() {
		return JournalRequest{}, fmt.Errorf("entry date is required")
	}
	if !r.Type.Valid() {
		return JournalRequest{}, fmt.Errorf("unknown journal type %q", r.Type)
	}
	if len(r.Lines) == 0 {
		return JournalRequest{}, fmt.Errorf("at least one line is required")
	}
	for i, l := range r.Lines {
		if err := l.validate(); err != nil {
			return JournalRequest{}, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	r.EntryDate = DateOf(r.EntryDate)
	r.Lines = append([]LineSpec(nil), r.Lines...)
	return r, nil
}

// Balance returns debit and credit totals of the request in minor units.
// err is ErrOverflow when either side does not fit in int64.
func (r JournalRequest) Balance() (debits, credits int64, err error) {
	for _, l := range r.Lines {
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

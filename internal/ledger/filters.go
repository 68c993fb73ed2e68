package ledger

import (
	"time"

	"github.com/google/uuid"
)

// JournalFilter narrows journal listings. Zero fields do not filter.
type JournalFilter struct {
	PeriodID   *uuid.UUID
	DocumentID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// Matches reports whether j satisfies f. From and To bound the posting date.
func (f JournalFilter) Matches(j Journal) bool {
	if f.PeriodID != nil && j.FiscalPeriodID() != *f.PeriodID {
		return false
	}
	if f.DocumentID != nil && j.DocumentID() != *f.DocumentID {
		return false
	}
	if f.From != nil && j.PostingDate().Before(DateOf(*f.From)) {
		return false
	}
	if f.To != nil && j.PostingDate().After(DateOf(*f.To)) {
		return false
	}
	return true
}

// DocumentFilter narrows document listings. Empty fields do not filter.
type DocumentFilter struct {
	Type   DocumentType
	Status DocumentStatus
}

func (f DocumentFilter) Matches(d Document) bool {
	if f.Type != "" && d.Type != f.Type {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	return true
}

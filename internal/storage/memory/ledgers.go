package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

func (t *txView) CreateLedger(_ context.Context, l ledger.AccountLedger) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, o := range t.st.ledgers {
		if o.FiscalYearID == l.FiscalYearID && o.AccountID == l.AccountID {
			return errs.Conflict("ledger", l.AccountID, "already exists for this fiscal year")
		}
	}
	t.st.ledgers[l.ID] = l
	return nil
}

func (t *txView) UpdateLedger(_ context.Context, l ledger.AccountLedger) error {
	if err := t.writable(); err != nil {
		return err
	}
	o, ok := t.st.ledgers[l.ID]
	if !ok || o.BusinessID != l.BusinessID {
		return errs.NotFound("ledger", l.ID)
	}
	if o.FiscalYearID != l.FiscalYearID || o.AccountID != l.AccountID {
		return errs.Immutable("ledger", l.ID, "fiscal year and account cannot change")
	}
	t.st.ledgers[l.ID] = l
	return nil
}

func (t *txView) LedgerByID(_ context.Context, businessID, id uuid.UUID) (ledger.AccountLedger, error) {
	l, ok := t.st.ledgers[id]
	if !ok || l.BusinessID != businessID {
		return ledger.AccountLedger{}, errs.NotFound("ledger", id)
	}
	return l, nil
}

func (t *txView) LedgerByAccount(_ context.Context, businessID, yearID, accountID uuid.UUID) (ledger.AccountLedger, error) {
	for _, l := range t.st.ledgers {
		if l.BusinessID == businessID && l.FiscalYearID == yearID && l.AccountID == accountID {
			return l, nil
		}
	}
	return ledger.AccountLedger{}, errs.NotFound("ledger", accountID)
}

func (t *txView) ListLedgers(_ context.Context, businessID, yearID uuid.UUID) ([]ledger.AccountLedger, error) {
	out := make([]ledger.AccountLedger, 0)
	for _, l := range t.st.ledgers {
		if l.BusinessID == businessID && l.FiscalYearID == yearID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID.String() < out[j].AccountID.String() })
	return out, nil
}

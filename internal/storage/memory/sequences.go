package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

// AcquireSequence creates the row at 1 on first use. The exclusive lock is
// the store-wide write lock already held by the transaction.
func (t *txView) AcquireSequence(_ context.Context, businessID uuid.UUID, key string) (ledger.NumberSequence, error) {
	if err := t.writable(); err != nil {
		return ledger.NumberSequence{}, err
	}
	k := seqKey{BusinessID: businessID, Key: key}
	next, ok := t.st.sequences[k]
	if !ok {
		next = 1
		t.st.sequences[k] = next
	}
	return ledger.NumberSequence{BusinessID: businessID, Key: key, NextNumber: next}, nil
}

func (t *txView) AdvanceSequence(_ context.Context, seq ledger.NumberSequence) error {
	if err := t.writable(); err != nil {
		return err
	}
	k := seqKey{BusinessID: seq.BusinessID, Key: seq.Key}
	cur, ok := t.st.sequences[k]
	if !ok {
		return errs.NotFound("number sequence", seq.Key)
	}
	if seq.NextNumber <= cur {
		return errs.Invalid("number sequence", seq.Key, "next number %d must be greater than %d", seq.NextNumber, cur)
	}
	t.st.sequences[k] = seq.NextNumber
	return nil
}

package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

// AcquireSequence creates the row on first use and then locks it. A second
// transaction asking for the same key blocks on the FOR UPDATE until the
// first one commits or rolls back; other keys are unaffected.
func (r *repo) AcquireSequence(ctx context.Context, businessID uuid.UUID, key string) (ledger.NumberSequence, error) {
	if r.readOnly {
		return ledger.NumberSequence{}, errs.IllegalState("number sequence", key, "cannot lock in a read-only transaction")
	}
	if _, err := r.tx.Exec(ctx, `
		insert into number_sequences (business_id, key, next_number)
		values ($1, $2, 1)
		on conflict (business_id, key) do nothing
	`, businessID, key); err != nil {
		return ledger.NumberSequence{}, mapErr("number sequence", key, err)
	}
	seq := ledger.NumberSequence{BusinessID: businessID, Key: key}
	err := r.tx.QueryRow(ctx, `
		select next_number from number_sequences
		where business_id = $1 and key = $2
		for update
	`, businessID, key).Scan(&seq.NextNumber)
	if err != nil {
		return ledger.NumberSequence{}, mapErr("number sequence", key, err)
	}
	return seq, nil
}

func (r *repo) AdvanceSequence(ctx context.Context, seq ledger.NumberSequence) error {
	ct, err := r.tx.Exec(ctx, `
		update number_sequences set next_number = $1
		where business_id = $2 and key = $3 and next_number < $1
	`, seq.NextNumber, seq.BusinessID, seq.Key)
	if err != nil {
		return mapErr("number sequence", seq.Key, err)
	}
	if ct.RowsAffected() == 0 {
		return errs.Invalid("number sequence", seq.Key, "next number %d does not advance the sequence", seq.NextNumber)
	}
	return nil
}

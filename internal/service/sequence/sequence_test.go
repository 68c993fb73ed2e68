package sequence_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/service/sequence"
	"github.com/tinoosan/bookkeeping/internal/storage"
	"github.com/tinoosan/bookkeeping/internal/storage/memory"
)

func setup(t *testing.T) (context.Context, *memory.Store, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	id := uuid.New()
	require.NoError(t, store.SeedBusiness(ctx, ledger.Business{ID: id, Name: "Acme", Currency: "USD", Active: true}))
	return ctx, store, id
}

func TestGetNext_StartsAtOneAndIncrements(t *testing.T) {
	ctx, store, bizID := setup(t)
	gen := sequence.New(store)

	for want := int64(1); want <= 3; want++ {
		n, err := gen.GetNext(ctx, bizID, "JE")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	n, err := gen.GetNext(ctx, bizID, "CE")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "keys are independent")

	otherBiz := uuid.New()
	require.NoError(t, store.SeedBusiness(ctx, ledger.Business{ID: otherBiz, Name: "Globex", Currency: "USD", Active: true}))
	n, err = gen.GetNext(ctx, otherBiz, "JE")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "businesses are independent")
}

func TestGetNext_Rejections(t *testing.T) {
	ctx, store, bizID := setup(t)
	gen := sequence.New(store)

	_, err := gen.GetNext(ctx, bizID, "  ")
	assert.ErrorIs(t, err, errs.ErrInvalid)

	_, err = gen.GetNext(ctx, uuid.New(), "JE")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = gen.Next(ctx, nil, uuid.Nil, "JE")
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestGetNext_ConcurrentCallersNeverShareANumber(t *testing.T) {
	ctx, store, bizID := setup(t)
	gen := sequence.New(store)

	const workers, perWorker = 8, 25
	var (
		mu  sync.Mutex
		got []int64
		wg  sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				n, err := gen.GetNext(ctx, bizID, "PO")
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				got = append(got, n)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, got, workers*perWorker)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, n := range got {
		assert.Equal(t, int64(i+1), n, "numbers are gapless and unique")
	}
}

func TestNext_RolledBackNumberIsReissued(t *testing.T) {
	ctx, store, bizID := setup(t)
	gen := sequence.New(store)
	boom := errors.New("document insert failed")

	err := store.WithTx(ctx, func(tx storage.Repository) error {
		n, err := gen.Next(ctx, tx, bizID, "JE")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := gen.GetNext(ctx, bizID, "JE")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "JE-0001", sequence.Format("JE", 1, 4))
	assert.Equal(t, "CE-0042", sequence.Format("CE", 42, 4))
	assert.Equal(t, "INV-12345", sequence.Format("INV", 12345, 4), "wide numbers are not truncated")
}

// Package memory provides an in-memory Store used for development and tests.
// Every write transaction runs under the store-wide lock against live maps;
// a snapshot taken at Begin is swapped back in when the transaction fails.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/storage"
)

var errReadOnly = errors.New("memory: write in read-only transaction")

type seqKey struct {
	BusinessID uuid.UUID
	Key        string
}

// state is the full dataset. Values are replaced on write, never mutated in
// place, so a shallow copy of each map is a consistent snapshot.
type state struct {
	businesses map[uuid.UUID]ledger.Business
	groups     map[uuid.UUID]ledger.AccountGroup
	accounts   map[uuid.UUID]ledger.Account
	years      map[uuid.UUID]ledger.FiscalYear
	periods    map[uuid.UUID]ledger.FiscalPeriod
	journals   map[uuid.UUID]ledger.JournalRecord
	// insertion order of journals, used for stable listings
	journalSeq []uuid.UUID
	documents  map[uuid.UUID]ledger.Document
	sequences  map[seqKey]int64
	ledgers    map[uuid.UUID]ledger.AccountLedger
}

func newState() *state {
	return &state{
		businesses: make(map[uuid.UUID]ledger.Business),
		groups:     make(map[uuid.UUID]ledger.AccountGroup),
		accounts:   make(map[uuid.UUID]ledger.Account),
		years:      make(map[uuid.UUID]ledger.FiscalYear),
		periods:    make(map[uuid.UUID]ledger.FiscalPeriod),
		journals:   make(map[uuid.UUID]ledger.JournalRecord),
		documents:  make(map[uuid.UUID]ledger.Document),
		sequences:  make(map[seqKey]int64),
		ledgers:    make(map[uuid.UUID]ledger.AccountLedger),
	}
}

func (s *state) clone() *state {
	return &state{
		businesses: copyMap(s.businesses),
		groups:     copyMap(s.groups),
		accounts:   copyMap(s.accounts),
		years:      copyMap(s.years),
		periods:    copyMap(s.periods),
		journals:   copyMap(s.journals),
		journalSeq: append([]uuid.UUID(nil), s.journalSeq...),
		documents:  copyMap(s.documents),
		sequences:  copyMap(s.sequences),
		ledgers:    copyMap(s.ledgers),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store is an in-memory implementation of storage.Store.
// It is guarded by an RWMutex; write transactions are fully serialized.
type Store struct {
	mu sync.RWMutex
	st *state
}

// New constructs an empty in-memory store.
func New() *Store { return &Store{st: newState()} }

// WithTx runs fn holding the write lock. If fn fails or panics the dataset
// is restored to what it was before fn ran.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Repository) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
		s.mu.Unlock()
	}()
	if err := fn(&txView{st: s.st}); err != nil {
		return err
	}
	committed = true
	return nil
}

// WithReadTx runs fn under the read lock; writes inside fn fail.
func (s *Store) WithReadTx(ctx context.Context, fn func(tx storage.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&txView{st: s.st, readOnly: true})
}

// Ready always succeeds for the memory backend.
func (s *Store) Ready(context.Context) error { return nil }

// SeedBusiness inserts or replaces a business. Business master data is
// owned elsewhere; this is how dev setups and tests get a tenant.
func (s *Store) SeedBusiness(_ context.Context, b ledger.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.Currency = strings.ToUpper(b.Currency)
	if b.FiscalYearStartMonth == 0 {
		b.FiscalYearStartMonth = 1
	}
	s.st.businesses[b.ID] = b
	return nil
}

// Reset drops all data.
func (s *Store) Reset() {
	s.mu.Lock()
	s.st = newState()
	s.mu.Unlock()
}

// txView is the Repository handed to a unit of work.
type txView struct {
	st       *state
	readOnly bool
}

func (t *txView) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

// Package sequence issues gapless document numbers.
//
// Numbers for one (business, key) pair are strictly increasing with no
// repeats. The only gap ever observed is a number issued inside a
// transaction that later rolled back.
package sequence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/storage"
)

var numbersIssued = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "sequence_numbers_issued_total",
		Help:      "Sequence numbers handed out, by key",
	},
	[]string{"key"},
)

// Repo is the lock protocol the generator runs against.
type Repo interface {
	AcquireSequence(ctx context.Context, businessID uuid.UUID, key string) (ledger.NumberSequence, error)
	AdvanceSequence(ctx context.Context, seq ledger.NumberSequence) error
}

// Generator issues numbers.
type Generator interface {
	// Next issues a number inside the caller's transaction. The row stays
	// locked until that transaction ends.
	Next(ctx context.Context, repo Repo, businessID uuid.UUID, key string) (int64, error)
	// GetNext issues a number in a transaction of its own.
	GetNext(ctx context.Context, businessID uuid.UUID, key string) (int64, error)
}

type generator struct {
	store storage.Store
}

func New(store storage.Store) Generator { return &generator{store: store} }

func (g *generator) Next(ctx context.Context, repo Repo, businessID uuid.UUID, key string) (int64, error) {
	key = strings.TrimSpace(key)
	if businessID == uuid.Nil {
		return 0, errs.Invalid("number sequence", key, "business is required")
	}
	if key == "" {
		return 0, errs.Invalid("number sequence", "", "key is required")
	}
	seq, err := repo.AcquireSequence(ctx, businessID, key)
	if err != nil {
		return 0, err
	}
	n := seq.NextNumber
	seq.NextNumber = n + 1
	if err := repo.AdvanceSequence(ctx, seq); err != nil {
		return 0, err
	}
	numbersIssued.WithLabelValues(key).Inc()
	return n, nil
}

func (g *generator) GetNext(ctx context.Context, businessID uuid.UUID, key string) (int64, error) {
	return storage.Exec(ctx, g.store, func(tx storage.Repository) (int64, error) {
		if _, err := tx.BusinessByID(ctx, businessID); err != nil {
			return 0, err
		}
		return g.Next(ctx, tx, businessID, key)
	})
}

// Format renders a number with a prefix and zero padding: Format("JE", 1, 4)
// is "JE-0001". Numbers wider than width are not truncated.
func Format(prefix string, n int64, width int) string {
	return fmt.Sprintf("%s-%0*d", prefix, width, n)
}

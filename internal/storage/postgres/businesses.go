package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/ledger"
)

func (r *repo) BusinessByID(ctx context.Context, id uuid.UUID) (ledger.Business, error) {
	var b ledger.Business
	err := r.tx.QueryRow(ctx, `
		select id, name, currency, fiscal_year_start_month, active
		from businesses
		where id = $1
	`, id).Scan(&b.ID, &b.Name, &b.Currency, &b.FiscalYearStartMonth, &b.Active)
	if err != nil {
		return ledger.Business{}, mapErr("business", id, err)
	}
	b.Currency = strings.TrimSpace(b.Currency)
	return b, nil
}

// SeedBusiness inserts or refreshes a business row. Business master data is
// owned elsewhere; this is how dev setups and tests get a tenant.
func (s *Store) SeedBusiness(ctx context.Context, b ledger.Business) error {
	if b.FiscalYearStartMonth == 0 {
		b.FiscalYearStartMonth = 1
	}
	_, err := s.pool.Exec(ctx, `
		insert into businesses (id, name, currency, fiscal_year_start_month, active)
		values ($1, $2, $3, $4, $5)
		on conflict (id) do update
		set name = excluded.name, currency = excluded.currency,
		    fiscal_year_start_month = excluded.fiscal_year_start_month, active = excluded.active
	`, b.ID, b.Name, strings.ToUpper(b.Currency), b.FiscalYearStartMonth, b.Active)
	return mapErr("business", b.ID, err)
}

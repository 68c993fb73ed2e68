// Package ledger holds the domain types of the posting engine and the pure
// rules attached to them: formatting, validation and state transitions.
// Nothing in this package touches storage.
package ledger

import "github.com/google/uuid"

// Business is the tenant every other entity is scoped to. Its master data is
// maintained elsewhere; the ledger only reads it.
type Business struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Currency             string    `json:"currency"`
	FiscalYearStartMonth int       `json:"fiscal_year_start_month"`
	Active               bool      `json:"active"`
}

package ledger

import "github.com/google/uuid"

// NumberSequence is the next number to issue for one (business, key) pair.
type NumberSequence struct {
	BusinessID uuid.UUID `json:"business_id"`
	Key        string    `json:"key"`
	NextNumber int64     `json:"next_number"`
}

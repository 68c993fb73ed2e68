package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AccountGroup is the middle level of the chart, between type and account.
type AccountGroup struct {
	ID           uuid.UUID   `json:"id"`
	BusinessID   uuid.UUID   `json:"business_id"`
	Type         AccountType `json:"type"`
	Number       int         `json:"number"`
	Name         string      `json:"name"`
	DisplayOrder int         `json:"display_order"`
	Active       bool        `json:"active"`
}

// FormattedNumber renders TT.GG.
func (g AccountGroup) FormattedNumber() string {
	return fmt.Sprintf("%02d.%02d", int(g.Type), g.Number)
}

// FullPath renders "Assets > Current Assets".
func (g AccountGroup) FullPath() string { return g.Type.DisplayName() + " > " + g.Name }

func (g AccountGroup) Validate() error {
	if g.BusinessID == uuid.Nil {
		return fmt.Errorf("business is required")
	}
	if !g.Type.Valid() {
		return fmt.Errorf("unknown account type %d", int(g.Type))
	}
	if g.Number < 0 || g.Number > 99 {
		return fmt.Errorf("group number must be between 0 and 99")
	}
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

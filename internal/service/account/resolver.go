package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

// Finder is the lookup surface the resolver runs over. Lookups return
// errs.ErrNotFound on a miss.
type Finder interface {
	AccountByShortCode(ctx context.Context, businessID uuid.UUID, kind ledger.AccountKind, code string) (ledger.Account, error)
	GeneralLedgerByNumber(ctx context.Context, businessID uuid.UUID, t ledger.AccountType, group, number int) (ledger.GeneralLedgerAccount, error)
	SubsidiaryByNumber(ctx context.Context, kind ledger.AccountKind, controllingID uuid.UUID, number int) (ledger.Account, error)
	SearchAccounts(ctx context.Context, businessID uuid.UUID, kind ledger.AccountKind, query string) ([]ledger.Account, error)
}

// Resolve maps user text to a postable account. Text containing a '.' is
// tried as a formatted number first and then as a short code, since short
// codes may contain dots too. A miss is (nil, false, nil); only storage
// failures return an error.
func Resolve(ctx context.Context, f Finder, businessID uuid.UUID, text string) (ledger.Account, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false, nil
	}
	if strings.Contains(text, ".") {
		a, ok, err := ResolveByFormattedNumber(ctx, f, businessID, text)
		if err != nil || ok {
			return a, ok, err
		}
	}
	return ResolveByShortCode(ctx, f, businessID, text)
}

// ResolveByShortCode tries each kind in ledger.ResolutionOrder and returns the
// first active match. A controlling GL account never resolves.
func ResolveByShortCode(ctx context.Context, f Finder, businessID uuid.UUID, code string) (ledger.Account, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false, nil
	}
	for _, kind := range ledger.ResolutionOrder {
		a, err := f.AccountByShortCode(ctx, businessID, kind, code)
		if errors.Is(err, errs.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		if !a.Info().Active {
			continue
		}
		if kind == ledger.KindGeneralLedger {
			// controlling accounts are not a match, but neither do they fall
			// through to the subsidiary kinds
			if !a.IsPosting() {
				return nil, false, nil
			}
		}
		return a, true, nil
	}
	return nil, false, nil
}

// ResolveByFormattedNumber handles TT.GG.AAAA (a posting GL account) and
// TT.GG.AAAA.SS (a subsidiary of the controlling account TT.GG.AAAA).
func ResolveByFormattedNumber(ctx context.Context, f Finder, businessID uuid.UUID, number string) (ledger.Account, bool, error) {
	n, ok := ledger.ParseAccountNumber(number)
	if !ok {
		return nil, false, nil
	}
	gl, err := f.GeneralLedgerByNumber(ctx, businessID, n.Type, n.Group, n.Account)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !n.HasSubsidiary {
		if gl.IsControlling() || !gl.Active {
			return nil, false, nil
		}
		return gl, true, nil
	}
	if !gl.IsControlling() {
		return nil, false, nil
	}
	sub, err := f.SubsidiaryByNumber(ctx, gl.SubsidiaryKind, gl.ID, n.Subsidiary)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !sub.Info().Active {
		return nil, false, nil
	}
	return sub, true, nil
}

// SearchAll matches query against every kind. GL hits are limited to posting
// accounts; subsidiaries follow in resolution order. Inactive accounts are
// left out.
func SearchAll(ctx context.Context, f Finder, businessID uuid.UUID, query string) ([]ledger.Account, error) {
	query = strings.TrimSpace(query)
	out := make([]ledger.Account, 0)
	seen := make(map[uuid.UUID]struct{})
	for _, kind := range ledger.ResolutionOrder {
		found, err := f.SearchAccounts(ctx, businessID, kind, query)
		if err != nil {
			return nil, err
		}
		for _, a := range found {
			info := a.Info()
			if !info.Active || !a.IsPosting() {
				continue
			}
			if kind == ledger.KindGeneralLedger {
				if _, dup := seen[info.ID]; dup {
					continue
				}
				seen[info.ID] = struct{}{}
			}
			out = append(out, a)
		}
	}
	return out, nil
}

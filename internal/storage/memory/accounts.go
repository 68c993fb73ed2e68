package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

func (t *txView) BusinessByID(_ context.Context, id uuid.UUID) (ledger.Business, error) {
	b, ok := t.st.businesses[id]
	if !ok {
		return ledger.Business{}, errs.NotFound("business", id)
	}
	return b, nil
}

// --- Account groups ---

func (t *txView) CreateAccountGroup(_ context.Context, g ledger.AccountGroup) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.groups[g.ID]; ok {
		return errs.Conflict("account group", g.ID, "already exists")
	}
	for _, o := range t.st.groups {
		if o.BusinessID == g.BusinessID && o.Type == g.Type && o.Number == g.Number {
			return errs.Conflict("account group", g.FormattedNumber(), "number already in use")
		}
	}
	t.st.groups[g.ID] = g
	return nil
}

func (t *txView) UpdateAccountGroup(_ context.Context, g ledger.AccountGroup) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.groups[g.ID]; !ok {
		return errs.NotFound("account group", g.ID)
	}
	t.st.groups[g.ID] = g
	return nil
}

func (t *txView) AccountGroupByID(_ context.Context, businessID, id uuid.UUID) (ledger.AccountGroup, error) {
	g, ok := t.st.groups[id]
	if !ok || g.BusinessID != businessID {
		return ledger.AccountGroup{}, errs.NotFound("account group", id)
	}
	return g, nil
}

func (t *txView) AccountGroupByNumber(_ context.Context, businessID uuid.UUID, typ ledger.AccountType, number int) (ledger.AccountGroup, error) {
	for _, g := range t.st.groups {
		if g.BusinessID == businessID && g.Type == typ && g.Number == number {
			return g, nil
		}
	}
	return ledger.AccountGroup{}, errs.NotFound("account group", ledger.AccountGroup{Type: typ, Number: number}.FormattedNumber())
}

func (t *txView) ListAccountGroups(_ context.Context, businessID uuid.UUID) ([]ledger.AccountGroup, error) {
	out := make([]ledger.AccountGroup, 0)
	for _, g := range t.st.groups {
		if g.BusinessID == businessID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

// --- Accounts ---

func (t *txView) CreateAccount(_ context.Context, a ledger.Account) error {
	if err := t.writable(); err != nil {
		return err
	}
	info := a.Info()
	if _, ok := t.st.accounts[info.ID]; ok {
		return errs.Conflict("account", info.ID, "already exists")
	}
	if err := t.checkUnique(a); err != nil {
		return err
	}
	t.st.accounts[info.ID] = a
	return nil
}

func (t *txView) UpdateAccount(_ context.Context, a ledger.Account) error {
	if err := t.writable(); err != nil {
		return err
	}
	info := a.Info()
	prev, ok := t.st.accounts[info.ID]
	if !ok || prev.Info().BusinessID != info.BusinessID {
		return errs.NotFound("account", info.ID)
	}
	if prev.Kind() != a.Kind() {
		return errs.Immutable("account", info.ID, "kind cannot change")
	}
	if err := t.checkUnique(a); err != nil {
		return err
	}
	t.st.accounts[info.ID] = a
	return nil
}

// checkUnique enforces the constraints a relational schema would: short code
// per business, GL number per group, subsidiary number per controlling account.
func (t *txView) checkUnique(a ledger.Account) error {
	info := a.Info()
	ctl, isSub := ledger.ControllingOf(a)
	subNo, _ := ledger.SubsidiaryNumberOf(a)
	for id, o := range t.st.accounts {
		if id == info.ID {
			continue
		}
		oi := o.Info()
		if oi.BusinessID != info.BusinessID {
			continue
		}
		if strings.EqualFold(oi.ShortCode, info.ShortCode) {
			return errs.Conflict("account", info.ShortCode, "short code already in use")
		}
		switch v := a.(type) {
		case ledger.GeneralLedgerAccount:
			if og, ok := o.(ledger.GeneralLedgerAccount); ok && og.Group.ID == v.Group.ID && og.Number == v.Number {
				return errs.Conflict("account", v.FormattedNumber(), "number already in use")
			}
		}
		if isSub {
			octl, ok := ledger.ControllingOf(o)
			if !ok || octl.ID != ctl.ID {
				continue
			}
			if n, _ := ledger.SubsidiaryNumberOf(o); n == subNo {
				return errs.Conflict("account", a.FormattedNumber(), "subsidiary number already in use")
			}
		}
	}
	return nil
}

func (t *txView) AccountByID(_ context.Context, businessID, id uuid.UUID) (ledger.Account, error) {
	a, ok := t.st.accounts[id]
	if !ok || a.Info().BusinessID != businessID {
		return nil, errs.NotFound("account", id)
	}
	return t.hydrate(a), nil
}

func (t *txView) AccountsByIDs(_ context.Context, businessID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
	out := make(map[uuid.UUID]ledger.Account, len(ids))
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		if a, ok := t.st.accounts[id]; ok && a.Info().BusinessID == businessID {
			out[id] = t.hydrate(a)
		}
	}
	return out, nil
}

func (t *txView) AccountByShortCode(_ context.Context, businessID uuid.UUID, kind ledger.AccountKind, code string) (ledger.Account, error) {
	for _, a := range t.st.accounts {
		info := a.Info()
		if info.BusinessID == businessID && a.Kind() == kind && strings.EqualFold(info.ShortCode, code) {
			return t.hydrate(a), nil
		}
	}
	return nil, errs.NotFound(string(kind)+" account", code)
}

func (t *txView) GeneralLedgerByNumber(_ context.Context, businessID uuid.UUID, typ ledger.AccountType, group, number int) (ledger.GeneralLedgerAccount, error) {
	for _, a := range t.st.accounts {
		gl, ok := t.hydrate(a).(ledger.GeneralLedgerAccount)
		if !ok || gl.BusinessID != businessID {
			continue
		}
		if gl.Group.Type == typ && gl.Group.Number == group && gl.Number == number {
			return gl, nil
		}
	}
	return ledger.GeneralLedgerAccount{}, errs.NotFound("general ledger account", ledger.GeneralLedgerAccount{
		Group: ledger.AccountGroup{Type: typ, Number: group}, Number: number,
	}.FormattedNumber())
}

func (t *txView) SubsidiaryByNumber(_ context.Context, kind ledger.AccountKind, controllingID uuid.UUID, number int) (ledger.Account, error) {
	for _, a := range t.st.accounts {
		if a.Kind() != kind {
			continue
		}
		ctl, _ := ledger.ControllingOf(a)
		n, _ := ledger.SubsidiaryNumberOf(a)
		if ctl.ID == controllingID && n == number {
			return t.hydrate(a), nil
		}
	}
	return nil, errs.NotFound(string(kind)+" account", number)
}

func (t *txView) SearchAccounts(_ context.Context, businessID uuid.UUID, kind ledger.AccountKind, query string) ([]ledger.Account, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]ledger.Account, 0)
	for _, a := range t.st.accounts {
		info := a.Info()
		if info.BusinessID != businessID || a.Kind() != kind {
			continue
		}
		if matches(a, q) {
			out = append(out, t.hydrate(a))
		}
	}
	sortAccounts(out)
	return out, nil
}

func (t *txView) ListAccounts(_ context.Context, businessID uuid.UUID, kind ledger.AccountKind) ([]ledger.Account, error) {
	out := make([]ledger.Account, 0)
	for _, a := range t.st.accounts {
		if a.Info().BusinessID != businessID {
			continue
		}
		if kind != "" && a.Kind() != kind {
			continue
		}
		out = append(out, t.hydrate(a))
	}
	sortAccounts(out)
	return out, nil
}

// hydrate refreshes the group and controlling-account snapshots carried by
// an account so renames are visible on read.
func (t *txView) hydrate(a ledger.Account) ledger.Account {
	switch v := a.(type) {
	case ledger.GeneralLedgerAccount:
		if g, ok := t.st.groups[v.Group.ID]; ok {
			v.Group = g
		}
		return v
	case ledger.ReceivableAccount:
		v.Controlling = t.controlling(v.Controlling)
		return v
	case ledger.PayableAccount:
		v.Controlling = t.controlling(v.Controlling)
		return v
	case ledger.BankAccount:
		v.Controlling = t.controlling(v.Controlling)
		return v
	case ledger.InventoryAccount:
		v.Controlling = t.controlling(v.Controlling)
		return v
	}
	return a
}

func (t *txView) controlling(gl ledger.GeneralLedgerAccount) ledger.GeneralLedgerAccount {
	if cur, ok := t.st.accounts[gl.ID].(ledger.GeneralLedgerAccount); ok {
		return t.hydrate(cur).(ledger.GeneralLedgerAccount)
	}
	return gl
}

func matches(a ledger.Account, q string) bool {
	if q == "" {
		return true
	}
	info := a.Info()
	if strings.Contains(strings.ToLower(info.ShortCode), q) || strings.Contains(strings.ToLower(info.Name), q) {
		return true
	}
	for _, s := range ledger.SecondaryText(a) {
		if s != "" && strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

func sortAccounts(out []ledger.Account) {
	sort.Slice(out, func(i, j int) bool { return out[i].FormattedNumber() < out[j].FormattedNumber() })
}

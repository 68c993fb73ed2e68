package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

// --- Account groups ---

const groupColumns = `id, business_id, type, number, name, display_order, active`

func scanGroup(row pgx.Row) (ledger.AccountGroup, error) {
	var g ledger.AccountGroup
	var typ int
	if err := row.Scan(&g.ID, &g.BusinessID, &typ, &g.Number, &g.Name, &g.DisplayOrder, &g.Active); err != nil {
		return ledger.AccountGroup{}, err
	}
	g.Type = ledger.AccountType(typ)
	return g, nil
}

func (r *repo) CreateAccountGroup(ctx context.Context, g ledger.AccountGroup) error {
	_, err := r.tx.Exec(ctx, `
		insert into account_groups (`+groupColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, g.ID, g.BusinessID, int(g.Type), g.Number, g.Name, g.DisplayOrder, g.Active)
	return mapErr("account group", g.FormattedNumber(), err)
}

func (r *repo) UpdateAccountGroup(ctx context.Context, g ledger.AccountGroup) error {
	ct, err := r.tx.Exec(ctx, `
		update account_groups
		set name = $1, display_order = $2, active = $3
		where id = $4 and business_id = $5
	`, g.Name, g.DisplayOrder, g.Active, g.ID, g.BusinessID)
	if err != nil {
		return mapErr("account group", g.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return errs.NotFound("account group", g.ID)
	}
	return nil
}

func (r *repo) AccountGroupByID(ctx context.Context, businessID, id uuid.UUID) (ledger.AccountGroup, error) {
	g, err := scanGroup(r.tx.QueryRow(ctx, `
		select `+groupColumns+` from account_groups where id = $1 and business_id = $2
	`, id, businessID))
	return g, mapErr("account group", id, err)
}

func (r *repo) AccountGroupByNumber(ctx context.Context, businessID uuid.UUID, t ledger.AccountType, number int) (ledger.AccountGroup, error) {
	g, err := scanGroup(r.tx.QueryRow(ctx, `
		select `+groupColumns+` from account_groups where business_id = $1 and type = $2 and number = $3
	`, businessID, int(t), number))
	return g, mapErr("account group", ledger.AccountGroup{Type: t, Number: number}.FormattedNumber(), err)
}

func (r *repo) ListAccountGroups(ctx context.Context, businessID uuid.UUID) ([]ledger.AccountGroup, error) {
	rows, err := r.tx.Query(ctx, `
		select `+groupColumns+` from account_groups where business_id = $1 order by type, number
	`, businessID)
	if err != nil {
		return nil, mapErr("account group", nil, err)
	}
	defer rows.Close()
	out := make([]ledger.AccountGroup, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// --- Accounts ---

const accountColumns = `id, business_id, kind, short_code, name, active, group_id, controlling_id,
	number, description, subsidiary_kind, details`

// accountRow is one row of the accounts table before its group and
// controlling account are attached.
type accountRow struct {
	ID             uuid.UUID
	BusinessID     uuid.UUID
	Kind           string
	ShortCode      string
	Name           string
	Active         bool
	GroupID        *uuid.UUID
	ControllingID  *uuid.UUID
	Number         int
	Description    string
	SubsidiaryKind string
	Details        []byte
}

// storedMoney keeps an amount in the jsonb details column.
type storedMoney struct {
	Currency string `json:"currency"`
	Minor    int64  `json:"minor"`
}

func toStored(a money.Amount) *storedMoney {
	units, ok := ledger.MinorUnits(a)
	if !ok {
		return nil
	}
	return &storedMoney{Currency: a.Curr().Code(), Minor: units}
}

func (m *storedMoney) amount() money.Amount {
	if m == nil {
		return money.Amount{}
	}
	return ledger.FromMinor(m.Currency, m.Minor)
}

// accountDetails holds the kind-specific fields.
type accountDetails struct {
	ContactName       string       `json:"contact_name,omitempty"`
	CreditLimit       *storedMoney `json:"credit_limit,omitempty"`
	PaymentTermsDays  int          `json:"payment_terms_days,omitempty"`
	BankName          string       `json:"bank_name,omitempty"`
	BankAccountNumber string       `json:"bank_account_number,omitempty"`
	RoutingNumber     string       `json:"routing_number,omitempty"`
	SwiftCode         string       `json:"swift_code,omitempty"`
	IBAN              string       `json:"iban,omitempty"`
	Currency          string       `json:"currency,omitempty"`
	Primary           bool         `json:"primary,omitempty"`
	SKU               string       `json:"sku,omitempty"`
	UnitOfMeasure     string       `json:"unit_of_measure,omitempty"`
	StandardCost      *storedMoney `json:"standard_cost,omitempty"`
}

func toRow(a ledger.Account) (accountRow, error) {
	info := a.Info()
	row := accountRow{
		ID:         info.ID,
		BusinessID: info.BusinessID,
		Kind:       string(a.Kind()),
		ShortCode:  info.ShortCode,
		Name:       info.Name,
		Active:     info.Active,
	}
	var d accountDetails
	switch v := a.(type) {
	case ledger.GeneralLedgerAccount:
		gid := v.Group.ID
		row.GroupID = &gid
		row.Number = v.Number
		row.Description = v.Description
		row.SubsidiaryKind = string(v.SubsidiaryKind)
	case ledger.ReceivableAccount:
		d = accountDetails{ContactName: v.ContactName, CreditLimit: toStored(v.CreditLimit), PaymentTermsDays: v.PaymentTermsDays}
	case ledger.PayableAccount:
		d = accountDetails{ContactName: v.ContactName, CreditLimit: toStored(v.CreditLimit), PaymentTermsDays: v.PaymentTermsDays}
	case ledger.BankAccount:
		d = accountDetails{
			BankName: v.BankName, BankAccountNumber: v.BankAccountNumber, RoutingNumber: v.RoutingNumber,
			SwiftCode: v.SwiftCode, IBAN: v.IBAN, Currency: v.Currency, Primary: v.Primary,
		}
	case ledger.InventoryAccount:
		d = accountDetails{SKU: v.SKU, UnitOfMeasure: v.UnitOfMeasure, StandardCost: toStored(v.StandardCost)}
	default:
		return accountRow{}, fmt.Errorf("unknown account kind %T", a)
	}
	if ctl, ok := ledger.ControllingOf(a); ok {
		cid := ctl.ID
		row.ControllingID = &cid
		row.Number, _ = ledger.SubsidiaryNumberOf(a)
	}
	b, err := json.Marshal(d)
	if err != nil {
		return accountRow{}, err
	}
	row.Details = b
	return row, nil
}

func scanAccountRow(row pgx.Row) (accountRow, error) {
	var a accountRow
	err := row.Scan(&a.ID, &a.BusinessID, &a.Kind, &a.ShortCode, &a.Name, &a.Active, &a.GroupID, &a.ControllingID,
		&a.Number, &a.Description, &a.SubsidiaryKind, &a.Details)
	return a, err
}

func (r *repo) CreateAccount(ctx context.Context, a ledger.Account) error {
	row, err := toRow(a)
	if err != nil {
		return errs.Invalid("account", a.Info().ShortCode, "%v", err)
	}
	_, err = r.tx.Exec(ctx, `
		insert into accounts (`+accountColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, row.ID, row.BusinessID, row.Kind, row.ShortCode, row.Name, row.Active, row.GroupID, row.ControllingID,
		row.Number, row.Description, row.SubsidiaryKind, row.Details)
	return mapErr("account", row.ShortCode, err)
}

// UpdateAccount writes the mutable columns. Kind, group, controlling account
// and number are part of the identity and never rewritten.
func (r *repo) UpdateAccount(ctx context.Context, a ledger.Account) error {
	row, err := toRow(a)
	if err != nil {
		return errs.Invalid("account", a.Info().ShortCode, "%v", err)
	}
	var kind string
	if err := r.tx.QueryRow(ctx, `
		select kind from accounts where id = $1 and business_id = $2 for update
	`, row.ID, row.BusinessID).Scan(&kind); err != nil {
		return mapErr("account", row.ID, err)
	}
	if kind != row.Kind {
		return errs.Immutable("account", row.ID, "kind cannot change")
	}
	_, err = r.tx.Exec(ctx, `
		update accounts
		set short_code = $1, name = $2, active = $3, description = $4, details = $5
		where id = $6 and business_id = $7
	`, row.ShortCode, row.Name, row.Active, row.Description, row.Details, row.ID, row.BusinessID)
	return mapErr("account", row.ShortCode, err)
}

func (r *repo) AccountByID(ctx context.Context, businessID, id uuid.UUID) (ledger.Account, error) {
	out, err := r.loadAccounts(ctx, `where business_id = $1 and id = $2`, businessID, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errs.NotFound("account", id)
	}
	return out[0], nil
}

func (r *repo) AccountsByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
	out := make(map[uuid.UUID]ledger.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	accs, err := r.loadAccounts(ctx, `where business_id = $1 and id = any($2)`, businessID, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range accs {
		out[a.Info().ID] = a
	}
	return out, nil
}

func (r *repo) AccountByShortCode(ctx context.Context, businessID uuid.UUID, kind ledger.AccountKind, code string) (ledger.Account, error) {
	out, err := r.loadAccounts(ctx, `where business_id = $1 and kind = $2 and upper(short_code) = upper($3)`,
		businessID, string(kind), strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errs.NotFound(string(kind)+" account", code)
	}
	return out[0], nil
}

func (r *repo) GeneralLedgerByNumber(ctx context.Context, businessID uuid.UUID, t ledger.AccountType, group, number int) (ledger.GeneralLedgerAccount, error) {
	out, err := r.loadAccounts(ctx, `
		where business_id = $1 and kind = 'general_ledger' and number = $4
		  and group_id = (select id from account_groups where business_id = $1 and type = $2 and number = $3)
	`, businessID, int(t), group, number)
	if err != nil {
		return ledger.GeneralLedgerAccount{}, err
	}
	if len(out) == 0 {
		return ledger.GeneralLedgerAccount{}, errs.NotFound("general ledger account", ledger.GeneralLedgerAccount{
			Group: ledger.AccountGroup{Type: t, Number: group}, Number: number,
		}.FormattedNumber())
	}
	return out[0].(ledger.GeneralLedgerAccount), nil
}

func (r *repo) SubsidiaryByNumber(ctx context.Context, kind ledger.AccountKind, controllingID uuid.UUID, number int) (ledger.Account, error) {
	out, err := r.loadAccounts(ctx, `where kind = $1 and controlling_id = $2 and number = $3`,
		string(kind), controllingID, number)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errs.NotFound(string(kind)+" account", number)
	}
	return out[0], nil
}

func (r *repo) SearchAccounts(ctx context.Context, businessID uuid.UUID, kind ledger.AccountKind, query string) ([]ledger.Account, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	return r.loadAccounts(ctx, `
		where business_id = $1 and kind = $2
		  and (short_code ilike $3 or name ilike $3
		       or details->>'contact_name' ilike $3
		       or details->>'bank_name' ilike $3
		       or details->>'sku' ilike $3)
	`, businessID, string(kind), pattern)
}

func (r *repo) ListAccounts(ctx context.Context, businessID uuid.UUID, kind ledger.AccountKind) ([]ledger.Account, error) {
	if kind == "" {
		return r.loadAccounts(ctx, `where business_id = $1`, businessID)
	}
	return r.loadAccounts(ctx, `where business_id = $1 and kind = $2`, businessID, string(kind))
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// loadAccounts selects account rows with the given filter and attaches their
// groups and controlling accounts. Results are ordered by formatted number.
func (r *repo) loadAccounts(ctx context.Context, where string, args ...any) ([]ledger.Account, error) {
	rows, err := r.tx.Query(ctx, `select `+accountColumns+` from accounts `+where, args...)
	if err != nil {
		return nil, mapErr("account", nil, err)
	}
	found, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (accountRow, error) { return scanAccountRow(row) })
	if err != nil {
		return nil, mapErr("account", nil, err)
	}
	if len(found) == 0 {
		return []ledger.Account{}, nil
	}

	// controlling accounts are general ledger rows; fetch the missing ones
	byID := make(map[uuid.UUID]accountRow, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	var missing []uuid.UUID
	for _, a := range found {
		if a.ControllingID != nil {
			if _, ok := byID[*a.ControllingID]; !ok {
				missing = append(missing, *a.ControllingID)
			}
		}
	}
	if len(missing) > 0 {
		rows, err := r.tx.Query(ctx, `select `+accountColumns+` from accounts where id = any($1)`, missing)
		if err != nil {
			return nil, mapErr("account", nil, err)
		}
		ctls, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (accountRow, error) { return scanAccountRow(row) })
		if err != nil {
			return nil, mapErr("account", nil, err)
		}
		for _, c := range ctls {
			byID[c.ID] = c
		}
	}

	groupIDs := make([]uuid.UUID, 0)
	for _, a := range byID {
		if a.GroupID != nil {
			groupIDs = append(groupIDs, *a.GroupID)
		}
	}
	groups := make(map[uuid.UUID]ledger.AccountGroup, len(groupIDs))
	if len(groupIDs) > 0 {
		rows, err := r.tx.Query(ctx, `select `+groupColumns+` from account_groups where id = any($1)`, groupIDs)
		if err != nil {
			return nil, mapErr("account group", nil, err)
		}
		gs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.AccountGroup, error) { return scanGroup(row) })
		if err != nil {
			return nil, mapErr("account group", nil, err)
		}
		for _, g := range gs {
			groups[g.ID] = g
		}
	}

	out := make([]ledger.Account, 0, len(found))
	for _, a := range found {
		acc, err := assemble(a, byID, groups)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	sortAccounts(out)
	return out, nil
}

func assembleGL(a accountRow, groups map[uuid.UUID]ledger.AccountGroup) ledger.GeneralLedgerAccount {
	gl := ledger.GeneralLedgerAccount{
		AccountInfo:    info(a),
		Number:         a.Number,
		Description:    a.Description,
		SubsidiaryKind: ledger.AccountKind(a.SubsidiaryKind),
	}
	if a.GroupID != nil {
		gl.Group = groups[*a.GroupID]
	}
	return gl
}

func assemble(a accountRow, byID map[uuid.UUID]accountRow, groups map[uuid.UUID]ledger.AccountGroup) (ledger.Account, error) {
	if ledger.AccountKind(a.Kind) == ledger.KindGeneralLedger {
		return assembleGL(a, groups), nil
	}
	var d accountDetails
	if len(a.Details) > 0 {
		if err := json.Unmarshal(a.Details, &d); err != nil {
			return nil, fmt.Errorf("postgres: account %s details: %w", a.ID, err)
		}
	}
	var sub ledger.Subsidiary
	if a.ControllingID != nil {
		if c, ok := byID[*a.ControllingID]; ok {
			sub.Controlling = assembleGL(c, groups)
		}
	}
	sub.Number = a.Number
	switch ledger.AccountKind(a.Kind) {
	case ledger.KindReceivable:
		return ledger.ReceivableAccount{AccountInfo: info(a), Subsidiary: sub,
			ContactName: d.ContactName, CreditLimit: d.CreditLimit.amount(), PaymentTermsDays: d.PaymentTermsDays}, nil
	case ledger.KindPayable:
		return ledger.PayableAccount{AccountInfo: info(a), Subsidiary: sub,
			ContactName: d.ContactName, CreditLimit: d.CreditLimit.amount(), PaymentTermsDays: d.PaymentTermsDays}, nil
	case ledger.KindBank:
		return ledger.BankAccount{AccountInfo: info(a), Subsidiary: sub,
			BankName: d.BankName, BankAccountNumber: d.BankAccountNumber, RoutingNumber: d.RoutingNumber,
			SwiftCode: d.SwiftCode, IBAN: d.IBAN, Currency: d.Currency, Primary: d.Primary}, nil
	case ledger.KindInventory:
		return ledger.InventoryAccount{AccountInfo: info(a), Subsidiary: sub,
			SKU: d.SKU, UnitOfMeasure: d.UnitOfMeasure, StandardCost: d.StandardCost.amount()}, nil
	}
	return nil, fmt.Errorf("postgres: account %s has unknown kind %q", a.ID, a.Kind)
}

func info(a accountRow) ledger.AccountInfo {
	return ledger.AccountInfo{ID: a.ID, BusinessID: a.BusinessID, ShortCode: a.ShortCode, Name: a.Name, Active: a.Active}
}

func sortAccounts(out []ledger.Account) {
	sort.Slice(out, func(i, j int) bool { return out[i].FormattedNumber() < out[j].FormattedNumber() })
}

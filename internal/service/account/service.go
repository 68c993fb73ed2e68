// Package account implements chart-of-accounts rules: structured numbering,
// business-unique short codes, controlling/subsidiary pairing, immutable
// identity fields and soft deactivation. Resolution of user text to an
// account lives in resolver.go.
package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/bookkeeping/internal/chart"
	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/shortcode"
	"github.com/tinoosan/bookkeeping/internal/storage"
)

// Repo is the persistence surface used by the service.
type Repo interface {
	Finder
	BusinessByID(ctx context.Context, id uuid.UUID) (ledger.Business, error)
	CreateAccountGroup(ctx context.Context, g ledger.AccountGroup) error
	AccountGroupByID(ctx context.Context, businessID, id uuid.UUID) (ledger.AccountGroup, error)
	AccountGroupByNumber(ctx context.Context, businessID uuid.UUID, t ledger.AccountType, number int) (ledger.AccountGroup, error)
	ListAccountGroups(ctx context.Context, businessID uuid.UUID) ([]ledger.AccountGroup, error)
	CreateAccount(ctx context.Context, a ledger.Account) error
	UpdateAccount(ctx context.Context, a ledger.Account) error
	AccountByID(ctx context.Context, businessID, id uuid.UUID) (ledger.Account, error)
	ListAccounts(ctx context.Context, businessID uuid.UUID, kind ledger.AccountKind) ([]ledger.Account, error)
}

type Service interface {
	Resolve(ctx context.Context, businessID uuid.UUID, text string) (ledger.Account, bool, error)
	Search(ctx context.Context, businessID uuid.UUID, query string) ([]ledger.Account, error)

	CreateGroup(ctx context.Context, g ledger.AccountGroup) (ledger.AccountGroup, error)
	ListGroups(ctx context.Context, businessID uuid.UUID) ([]ledger.AccountGroup, error)
	// ApplyTemplate creates the standard groups the business does not have yet.
	ApplyTemplate(ctx context.Context, businessID uuid.UUID) ([]ledger.AccountGroup, error)

	// Create stores a new account. The group (GL) or controlling account
	// (subsidiaries) only needs its ID set; the service loads the rest.
	Create(ctx context.Context, a ledger.Account) (ledger.Account, error)
	// Update replaces descriptive fields. Kind, number, group and
	// controlling account are immutable.
	Update(ctx context.Context, a ledger.Account) (ledger.Account, error)
	Deactivate(ctx context.Context, businessID, accountID uuid.UUID) error
	Get(ctx context.Context, businessID, accountID uuid.UUID) (ledger.Account, error)
	List(ctx context.Context, businessID uuid.UUID, kind ledger.AccountKind) ([]ledger.Account, error)
}

type service struct {
	store storage.Store
	log   *slog.Logger
}

func New(store storage.Store, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, log: logger}
}

func (s *service) Resolve(ctx context.Context, businessID uuid.UUID, text string) (ledger.Account, bool, error) {
	var (
		out ledger.Account
		ok  bool
	)
	err := s.store.WithReadTx(ctx, func(tx storage.Repository) error {
		var err error
		out, ok, err = Resolve(ctx, tx, businessID, text)
		return err
	})
	return out, ok, err
}

func (s *service) Search(ctx context.Context, businessID uuid.UUID, query string) ([]ledger.Account, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) ([]ledger.Account, error) {
		return SearchAll(ctx, tx, businessID, query)
	})
}

func (s *service) CreateGroup(ctx context.Context, g ledger.AccountGroup) (ledger.AccountGroup, error) {
	g.ID = uuid.New()
	g.Name = strings.TrimSpace(g.Name)
	g.Active = true
	if err := g.Validate(); err != nil {
		return ledger.AccountGroup{}, errs.Invalid("account group", g.FormattedNumber(), "%v", err)
	}
	return storage.Exec(ctx, s.store, func(tx storage.Repository) (ledger.AccountGroup, error) {
		if _, err := tx.BusinessByID(ctx, g.BusinessID); err != nil {
			return ledger.AccountGroup{}, err
		}
		if err := createGroup(ctx, tx, g); err != nil {
			return ledger.AccountGroup{}, err
		}
		return g, nil
	})
}

func createGroup(ctx context.Context, repo Repo, g ledger.AccountGroup) error {
	_, err := repo.AccountGroupByNumber(ctx, g.BusinessID, g.Type, g.Number)
	switch {
	case err == nil:
		return errs.Conflict("account group", g.FormattedNumber(), "number already in use")
	case !errors.Is(err, errs.ErrNotFound):
		return err
	}
	return repo.CreateAccountGroup(ctx, g)
}

func (s *service) ListGroups(ctx context.Context, businessID uuid.UUID) ([]ledger.AccountGroup, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) ([]ledger.AccountGroup, error) {
		return tx.ListAccountGroups(ctx, businessID)
	})
}

func (s *service) ApplyTemplate(ctx context.Context, businessID uuid.UUID) ([]ledger.AccountGroup, error) {
	created, err := storage.Exec(ctx, s.store, func(tx storage.Repository) ([]ledger.AccountGroup, error) {
		if _, err := tx.BusinessByID(ctx, businessID); err != nil {
			return nil, err
		}
		out := make([]ledger.AccountGroup, 0)
		for _, g := range chart.Template() {
			g.ID = uuid.New()
			g.BusinessID = businessID
			err := createGroup(ctx, tx, g)
			if errors.Is(err, errs.ErrConflict) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
		return out, nil
	})
	if err == nil {
		s.log.Info("chart template applied", "business_id", businessID, "groups_created", len(created))
	}
	return created, err
}

func (s *service) Create(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	return storage.Exec(ctx, s.store, func(tx storage.Repository) (ledger.Account, error) {
		info := a.Info()
		biz, err := tx.BusinessByID(ctx, info.BusinessID)
		if err != nil {
			return nil, err
		}
		info.ID = uuid.New()
		info.Active = true
		info.Name = strings.TrimSpace(info.Name)
		info.ShortCode = shortcode.Normalize(info.ShortCode)
		if !shortcode.Valid(info.ShortCode) {
			return nil, errs.Invalid("account", info.ShortCode, "short code must be 1-%d characters of A-Z, 0-9, '.', '_' or '-'", ledger.MaxShortCodeLen)
		}
		a = ledger.WithInfo(a, info)

		a, err = s.attachParents(ctx, tx, a)
		if err != nil {
			return nil, err
		}
		a, err = withDefaults(a, biz)
		if err != nil {
			return nil, err
		}
		if err := ledger.ValidateAccount(a); err != nil {
			return nil, errs.Invalid("account", info.ShortCode, "%v", err)
		}
		if err := ensureShortCodeFree(ctx, tx, info.BusinessID, info.ShortCode, info.ID); err != nil {
			return nil, err
		}
		if err := tx.CreateAccount(ctx, a); err != nil {
			return nil, err
		}
		s.log.Info("account created", "business_id", info.BusinessID, "account_id", info.ID,
			"kind", a.Kind(), "number", a.FormattedNumber(), "short_code", info.ShortCode)
		return a, nil
	})
}

// attachParents loads the group or controlling account referenced by ID so
// the stored account carries current values.
func (s *service) attachParents(ctx context.Context, repo Repo, a ledger.Account) (ledger.Account, error) {
	bizID := a.Info().BusinessID
	loadCtl := func(id uuid.UUID) (ledger.GeneralLedgerAccount, error) {
		acc, err := repo.AccountByID(ctx, bizID, id)
		if err != nil {
			return ledger.GeneralLedgerAccount{}, err
		}
		gl, ok := acc.(ledger.GeneralLedgerAccount)
		if !ok {
			return ledger.GeneralLedgerAccount{}, errs.Invalid("account", id, "controlling account must be a general ledger account")
		}
		return gl, nil
	}
	switch v := a.(type) {
	case ledger.GeneralLedgerAccount:
		g, err := repo.AccountGroupByID(ctx, bizID, v.Group.ID)
		if err != nil {
			return nil, err
		}
		v.Group = g
		return v, nil
	case ledger.ReceivableAccount:
		ctl, err := loadCtl(v.Controlling.ID)
		v.Controlling = ctl
		return v, err
	case ledger.PayableAccount:
		ctl, err := loadCtl(v.Controlling.ID)
		v.Controlling = ctl
		return v, err
	case ledger.BankAccount:
		ctl, err := loadCtl(v.Controlling.ID)
		v.Controlling = ctl
		return v, err
	case ledger.InventoryAccount:
		ctl, err := loadCtl(v.Controlling.ID)
		v.Controlling = ctl
		return v, err
	}
	return nil, errs.Invalid("account", nil, "unknown account kind %T", a)
}

// withDefaults fills money fields with zero in the business currency and
// rejects amounts in any other currency.
func withDefaults(a ledger.Account, biz ledger.Business) (ledger.Account, error) {
	fix := func(field string, m money.Amount) (money.Amount, error) {
		if m.IsZero() {
			return ledger.Zero(biz.Currency), nil
		}
		if m.Curr().Code() != biz.Currency {
			return m, errs.Invalid("account", a.Info().ShortCode, "%s must be in %s", field, biz.Currency)
		}
		return m, nil
	}
	var err error
	switch v := a.(type) {
	case ledger.ReceivableAccount:
		v.CreditLimit, err = fix("credit limit", v.CreditLimit)
		return v, err
	case ledger.PayableAccount:
		v.CreditLimit, err = fix("credit limit", v.CreditLimit)
		return v, err
	case ledger.InventoryAccount:
		v.StandardCost, err = fix("standard cost", v.StandardCost)
		return v, err
	case ledger.BankAccount:
		if strings.TrimSpace(v.Currency) == "" {
			v.Currency = biz.Currency
		}
		v.Currency = strings.ToUpper(v.Currency)
		return v, nil
	}
	return a, nil
}

func ensureShortCodeFree(ctx context.Context, repo Repo, businessID uuid.UUID, code string, self uuid.UUID) error {
	for _, kind := range ledger.ResolutionOrder {
		other, err := repo.AccountByShortCode(ctx, businessID, kind, code)
		if errors.Is(err, errs.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if other.Info().ID != self {
			return errs.Conflict("account", code, "short code already in use")
		}
	}
	return nil
}

func (s *service) Update(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	info := a.Info()
	return storage.Exec(ctx, s.store, func(tx storage.Repository) (ledger.Account, error) {
		prev, err := tx.AccountByID(ctx, info.BusinessID, info.ID)
		if err != nil {
			return nil, err
		}
		if prev.Kind() != a.Kind() {
			return nil, errs.Immutable("account", info.ID, "kind cannot change")
		}
		next, err := carryIdentity(prev, a)
		if err != nil {
			return nil, err
		}
		ni := next.Info()
		ni.Name = strings.TrimSpace(ni.Name)
		ni.ShortCode = shortcode.Normalize(ni.ShortCode)
		if !shortcode.Valid(ni.ShortCode) {
			return nil, errs.Invalid("account", ni.ShortCode, "short code must be 1-%d characters of A-Z, 0-9, '.', '_' or '-'", ledger.MaxShortCodeLen)
		}
		next = ledger.WithInfo(next, ni)
		biz, err := tx.BusinessByID(ctx, info.BusinessID)
		if err != nil {
			return nil, err
		}
		if next, err = withDefaults(next, biz); err != nil {
			return nil, err
		}
		if err := ledger.ValidateAccount(next); err != nil {
			return nil, errs.Invalid("account", info.ID, "%v", err)
		}
		if err := ensureShortCodeFree(ctx, tx, ni.BusinessID, ni.ShortCode, ni.ID); err != nil {
			return nil, err
		}
		if err := tx.UpdateAccount(ctx, next); err != nil {
			return nil, err
		}
		return next, nil
	})
}

// carryIdentity copies the identity of prev onto next, rejecting attempts to
// change the number, group, controlling account or subsidiary kind.
func carryIdentity(prev, next ledger.Account) (ledger.Account, error) {
	id := prev.Info().ID
	if p, ok := prev.(ledger.GeneralLedgerAccount); ok {
		n := next.(ledger.GeneralLedgerAccount)
		if n.Number != p.Number || (n.Group.ID != uuid.Nil && n.Group.ID != p.Group.ID) {
			return nil, errs.Immutable("account", id, "account number cannot change")
		}
		if n.SubsidiaryKind != p.SubsidiaryKind {
			return nil, errs.Immutable("account", id, "subsidiary kind cannot change")
		}
		n.Group = p.Group
		return n, nil
	}
	pc, _ := ledger.ControllingOf(prev)
	pn, _ := ledger.SubsidiaryNumberOf(prev)
	nc, _ := ledger.ControllingOf(next)
	nn, _ := ledger.SubsidiaryNumberOf(next)
	if nn != pn || (nc.ID != uuid.Nil && nc.ID != pc.ID) {
		return nil, errs.Immutable("account", id, "subsidiary number cannot change")
	}
	sub := ledger.Subsidiary{Controlling: pc, Number: pn}
	switch v := next.(type) {
	case ledger.ReceivableAccount:
		v.Subsidiary = sub
		return v, nil
	case ledger.PayableAccount:
		v.Subsidiary = sub
		return v, nil
	case ledger.BankAccount:
		v.Subsidiary = sub
		return v, nil
	case ledger.InventoryAccount:
		v.Subsidiary = sub
		return v, nil
	}
	return nil, errs.Invalid("account", id, "unknown account kind %T", next)
}

func (s *service) Deactivate(ctx context.Context, businessID, accountID uuid.UUID) error {
	return s.store.WithTx(ctx, func(tx storage.Repository) error {
		a, err := tx.AccountByID(ctx, businessID, accountID)
		if err != nil {
			return err
		}
		info := a.Info()
		if !info.Active {
			return nil
		}
		info.Active = false
		return tx.UpdateAccount(ctx, ledger.WithInfo(a, info))
	})
}

func (s *service) Get(ctx context.Context, businessID, accountID uuid.UUID) (ledger.Account, error) {
	return storage.Query(ctx, s.store, func(tx storage.Repository) (ledger.Account, error) {
		return tx.AccountByID(ctx, businessID, accountID)
	})
}

func (s *service) List(ctx context.Context, businessID uuid.UUID, kind ledger.AccountKind) ([]ledger.Account, error) {
	if kind != "" && !kind.Valid() {
		return nil, errs.Invalid("account", nil, "unknown account kind %q", kind)
	}
	return storage.Query(ctx, s.store, func(tx storage.Repository) ([]ledger.Account, error) {
		return tx.ListAccounts(ctx, businessID, kind)
	})
}

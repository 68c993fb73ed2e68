package httpapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	gs, err := s.svc.Accounts.ListGroups(r.Context(), biz.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toGroupResponses(gs))
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	var req groupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, ok := ledger.ParseAccountType(req.Type)
	if !ok {
		s.fail(w, r, errs.Invalid("account group", nil, "unknown account type %q", req.Type))
		return
	}
	g := ledger.AccountGroup{
		BusinessID:   biz.ID,
		Type:         t,
		Number:       req.Number,
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
		Active:       req.Active == nil || *req.Active,
	}
	created, err := s.svc.Accounts.CreateGroup(r.Context(), g)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toGroupResponse(created))
}

func (s *Server) applyTemplate(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	gs, err := s.svc.Accounts.ApplyTemplate(r.Context(), biz.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toGroupResponses(gs))
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	kind := ledger.AccountKind(strings.ToLower(r.URL.Query().Get("kind")))
	as, err := s.svc.Accounts.List(r.Context(), biz.ID, kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponses(as))
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	var req accountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := accountFromRequest(biz, uuid.New(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.svc.Accounts.Create(r.Context(), a)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(created))
}

func (s *Server) resolveAccount(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		badRequest(w, "q is required")
		return
	}
	a, found, err := s.svc.Accounts.Resolve(r.Context(), biz.ID, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !found {
		s.fail(w, r, errs.NotFound("account", q))
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(a))
}

func (s *Server) searchAccounts(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	as, err := s.svc.Accounts.Search(r.Context(), biz.ID, r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponses(as))
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	a, err := s.svc.Accounts.Get(r.Context(), biz.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(a))
}

// accountPatch lists the descriptive fields a PATCH may change. Fields not
// present keep their stored value.
type accountPatch struct {
	ShortCode   *string `json:"short_code,omitempty"`
	Name        *string `json:"name,omitempty"`
	Active      *bool   `json:"active,omitempty"`
	Description *string `json:"description,omitempty"`

	ContactName      *string `json:"contact_name,omitempty"`
	CreditLimit      *string `json:"credit_limit,omitempty"`
	PaymentTermsDays *int    `json:"payment_terms_days,omitempty"`

	BankName          *string `json:"bank_name,omitempty"`
	BankAccountNumber *string `json:"bank_account_number,omitempty"`
	RoutingNumber     *string `json:"routing_number,omitempty"`
	SwiftCode         *string `json:"swift_code,omitempty"`
	IBAN              *string `json:"iban,omitempty"`
	Currency          *string `json:"currency,omitempty"`
	Primary           *bool   `json:"primary,omitempty"`

	SKU           *string `json:"sku,omitempty"`
	UnitOfMeasure *string `json:"unit_of_measure,omitempty"`
	StandardCost  *string `json:"standard_cost,omitempty"`
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var patch accountPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	current, err := s.svc.Accounts.Get(r.Context(), biz.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	next, err := applyPatch(biz, current, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	updated, err := s.svc.Accounts.Update(r.Context(), next)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(updated))
}

func (s *Server) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	biz := businessFrom(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.Accounts.Deactivate(r.Context(), biz.ID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// accountFromRequest builds the variant named by req.Kind. Parents are
// referenced by ID only; the service loads them.
func accountFromRequest(biz ledger.Business, id uuid.UUID, req accountRequest) (ledger.Account, error) {
	info := ledger.AccountInfo{
		ID:         id,
		BusinessID: biz.ID,
		ShortCode:  req.ShortCode,
		Name:       req.Name,
		Active:     req.Active == nil || *req.Active,
	}
	kind := ledger.AccountKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if kind == "" {
		kind = ledger.KindGeneralLedger
	}
	if kind == ledger.KindGeneralLedger {
		sub := ledger.AccountKind(strings.ToLower(strings.TrimSpace(req.SubsidiaryKind)))
		if sub == "none" {
			sub = ""
		}
		return ledger.GeneralLedgerAccount{
			AccountInfo:    info,
			Group:          ledger.AccountGroup{ID: req.GroupID, BusinessID: biz.ID},
			Number:         req.Number,
			Description:    req.Description,
			SubsidiaryKind: sub,
		}, nil
	}
	subsidiary := ledger.Subsidiary{
		Controlling: ledger.GeneralLedgerAccount{AccountInfo: ledger.AccountInfo{ID: req.ControllingID, BusinessID: biz.ID}},
		Number:      req.Number,
	}
	switch kind {
	case ledger.KindReceivable, ledger.KindPayable:
		limit, err := parseMoney(biz, "credit_limit", req.CreditLimit)
		if err != nil {
			return nil, err
		}
		if kind == ledger.KindReceivable {
			return ledger.ReceivableAccount{AccountInfo: info, Subsidiary: subsidiary,
				ContactName: req.ContactName, CreditLimit: limit, PaymentTermsDays: req.PaymentTermsDays}, nil
		}
		return ledger.PayableAccount{AccountInfo: info, Subsidiary: subsidiary,
			ContactName: req.ContactName, CreditLimit: limit, PaymentTermsDays: req.PaymentTermsDays}, nil
	case ledger.KindBank:
		return ledger.BankAccount{
			AccountInfo:       info,
			Subsidiary:        subsidiary,
			BankName:          req.BankName,
			BankAccountNumber: req.BankAccountNumber,
			RoutingNumber:     req.RoutingNumber,
			SwiftCode:         req.SwiftCode,
			IBAN:              req.IBAN,
			Currency:          req.Currency,
			Primary:           req.Primary,
		}, nil
	case ledger.KindInventory:
		cost, err := parseMoney(biz, "standard_cost", req.StandardCost)
		if err != nil {
			return nil, err
		}
		return ledger.InventoryAccount{AccountInfo: info, Subsidiary: subsidiary,
			SKU: req.SKU, UnitOfMeasure: req.UnitOfMeasure, StandardCost: cost}, nil
	}
	return nil, errs.Invalid("account", nil, "unknown account kind %q", req.Kind)
}

func applyPatch(biz ledger.Business, a ledger.Account, p accountPatch) (ledger.Account, error) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	info := a.Info()
	set(&info.ShortCode, p.ShortCode)
	set(&info.Name, p.Name)
	if p.Active != nil {
		info.Active = *p.Active
	}
	a = ledger.WithInfo(a, info)

	switch v := a.(type) {
	case ledger.GeneralLedgerAccount:
		set(&v.Description, p.Description)
		return v, nil
	case ledger.ReceivableAccount:
		set(&v.ContactName, p.ContactName)
		if p.PaymentTermsDays != nil {
			v.PaymentTermsDays = *p.PaymentTermsDays
		}
		if p.CreditLimit != nil {
			limit, err := parseMoney(biz, "credit_limit", *p.CreditLimit)
			if err != nil {
				return nil, err
			}
			v.CreditLimit = limit
		}
		return v, nil
	case ledger.PayableAccount:
		set(&v.ContactName, p.ContactName)
		if p.PaymentTermsDays != nil {
			v.PaymentTermsDays = *p.PaymentTermsDays
		}
		if p.CreditLimit != nil {
			limit, err := parseMoney(biz, "credit_limit", *p.CreditLimit)
			if err != nil {
				return nil, err
			}
			v.CreditLimit = limit
		}
		return v, nil
	case ledger.BankAccount:
		set(&v.BankName, p.BankName)
		set(&v.BankAccountNumber, p.BankAccountNumber)
		set(&v.RoutingNumber, p.RoutingNumber)
		set(&v.SwiftCode, p.SwiftCode)
		set(&v.IBAN, p.IBAN)
		set(&v.Currency, p.Currency)
		if p.Primary != nil {
			v.Primary = *p.Primary
		}
		return v, nil
	case ledger.InventoryAccount:
		set(&v.SKU, p.SKU)
		set(&v.UnitOfMeasure, p.UnitOfMeasure)
		if p.StandardCost != nil {
			cost, err := parseMoney(biz, "standard_cost", *p.StandardCost)
			if err != nil {
				return nil, err
			}
			v.StandardCost = cost
		}
		return v, nil
	}
	return a, nil
}

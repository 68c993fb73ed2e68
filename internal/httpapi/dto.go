package httpapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/bookkeeping/internal/ledger"
)

// Amounts travel as decimal strings at the currency's scale and calendar
// dates as YYYY-MM-DD.

type groupRequest struct {
	Type         string `json:"type"`
	Number       int    `json:"number"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order"`
	Active       *bool  `json:"active,omitempty"`
}

type groupResponse struct {
	ID              uuid.UUID `json:"id"`
	Type            string    `json:"type"`
	TypeName        string    `json:"type_name"`
	Number          int       `json:"number"`
	FormattedNumber string    `json:"formatted_number"`
	Name            string    `json:"name"`
	FullPath        string    `json:"full_path"`
	DisplayOrder    int       `json:"display_order"`
	Active          bool      `json:"active"`
}

func toGroupResponse(g ledger.AccountGroup) groupResponse {
	return groupResponse{
		ID:              g.ID,
		Type:            g.Type.String(),
		TypeName:        g.Type.DisplayName(),
		Number:          g.Number,
		FormattedNumber: g.FormattedNumber(),
		Name:            g.Name,
		FullPath:        g.FullPath(),
		DisplayOrder:    g.DisplayOrder,
		Active:          g.Active,
	}
}

func toGroupResponses(gs []ledger.AccountGroup) []groupResponse {
	out := make([]groupResponse, 0, len(gs))
	for _, g := range gs {
		out = append(out, toGroupResponse(g))
	}
	return out
}

// accountRequest carries every kind's fields; only those of Kind are read.
type accountRequest struct {
	Kind      string `json:"kind"`
	ShortCode string `json:"short_code"`
	Name      string `json:"name"`
	Active    *bool  `json:"active,omitempty"`

	// general ledger
	GroupID        uuid.UUID `json:"group_id,omitempty"`
	Number         int       `json:"number"`
	Description    string    `json:"description,omitempty"`
	SubsidiaryKind string    `json:"subsidiary_kind,omitempty"`

	// subsidiaries
	ControllingID uuid.UUID `json:"controlling_id,omitempty"`

	ContactName      string `json:"contact_name,omitempty"`
	CreditLimit      string `json:"credit_limit,omitempty"`
	PaymentTermsDays int    `json:"payment_terms_days,omitempty"`

	BankName          string `json:"bank_name,omitempty"`
	BankAccountNumber string `json:"bank_account_number,omitempty"`
	RoutingNumber     string `json:"routing_number,omitempty"`
	SwiftCode         string `json:"swift_code,omitempty"`
	IBAN              string `json:"iban,omitempty"`
	Currency          string `json:"currency,omitempty"`
	Primary           bool   `json:"primary,omitempty"`

	SKU           string `json:"sku,omitempty"`
	UnitOfMeasure string `json:"unit_of_measure,omitempty"`
	StandardCost  string `json:"standard_cost,omitempty"`
}

type accountResponse struct {
	ID              uuid.UUID `json:"id"`
	Kind            string    `json:"kind"`
	ShortCode       string    `json:"short_code"`
	Name            string    `json:"name"`
	DisplayName     string    `json:"display_name"`
	Type            string    `json:"type"`
	FormattedNumber string    `json:"formatted_number"`
	Active          bool      `json:"active"`
	Posting         bool      `json:"posting"`

	GroupID        *uuid.UUID `json:"group_id,omitempty"`
	Number         *int       `json:"number,omitempty"`
	Description    string     `json:"description,omitempty"`
	SubsidiaryKind string     `json:"subsidiary_kind,omitempty"`

	ControllingID    *uuid.UUID `json:"controlling_id,omitempty"`
	SubsidiaryNumber *int       `json:"subsidiary_number,omitempty"`

	ContactName      string `json:"contact_name,omitempty"`
	CreditLimit      string `json:"credit_limit,omitempty"`
	PaymentTermsDays int    `json:"payment_terms_days,omitempty"`

	BankName          string `json:"bank_name,omitempty"`
	BankAccountNumber string `json:"bank_account_number,omitempty"`
	RoutingNumber     string `json:"routing_number,omitempty"`
	SwiftCode         string `json:"swift_code,omitempty"`
	IBAN              string `json:"iban,omitempty"`
	Currency          string `json:"currency,omitempty"`
	Primary           bool   `json:"primary,omitempty"`

	SKU           string `json:"sku,omitempty"`
	UnitOfMeasure string `json:"unit_of_measure,omitempty"`
	StandardCost  string `json:"standard_cost,omitempty"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	info := a.Info()
	out := accountResponse{
		ID:              info.ID,
		Kind:            string(a.Kind()),
		ShortCode:       info.ShortCode,
		Name:            info.Name,
		DisplayName:     info.DisplayName(),
		Type:            a.Type().String(),
		FormattedNumber: a.FormattedNumber(),
		Active:          info.Active,
		Posting:         a.IsPosting(),
	}
	if ctl, ok := ledger.ControllingOf(a); ok {
		id := ctl.ID
		n, _ := ledger.SubsidiaryNumberOf(a)
		out.ControllingID = &id
		out.SubsidiaryNumber = &n
	}
	switch v := a.(type) {
	case ledger.GeneralLedgerAccount:
		gid, n := v.Group.ID, v.Number
		out.GroupID = &gid
		out.Number = &n
		out.Description = v.Description
		out.SubsidiaryKind = string(v.SubsidiaryKind)
	case ledger.ReceivableAccount:
		out.ContactName = v.ContactName
		out.CreditLimit = amountString(v.CreditLimit)
		out.PaymentTermsDays = v.PaymentTermsDays
	case ledger.PayableAccount:
		out.ContactName = v.ContactName
		out.CreditLimit = amountString(v.CreditLimit)
		out.PaymentTermsDays = v.PaymentTermsDays
	case ledger.BankAccount:
		out.BankName = v.BankName
		out.BankAccountNumber = v.BankAccountNumber
		out.RoutingNumber = v.RoutingNumber
		out.SwiftCode = v.SwiftCode
		out.IBAN = v.IBAN
		out.Currency = v.Currency
		out.Primary = v.Primary
	case ledger.InventoryAccount:
		out.SKU = v.SKU
		out.UnitOfMeasure = v.UnitOfMeasure
		out.StandardCost = amountString(v.StandardCost)
	}
	return out
}

func toAccountResponses(as []ledger.Account) []accountResponse {
	out := make([]accountResponse, 0, len(as))
	for _, a := range as {
		out = append(out, toAccountResponse(a))
	}
	return out
}

func amountString(a money.Amount) string { return ledger.FormatAmount(a) }

type yearRequest struct {
	Year      int    `json:"year"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type yearResponse struct {
	ID        uuid.UUID `json:"id"`
	Year      int       `json:"year"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Status    string    `json:"status"`
}

func toYearResponse(y ledger.FiscalYear) yearResponse {
	return yearResponse{
		ID:        y.ID,
		Year:      y.Year,
		StartDate: formatDate(y.StartDate),
		EndDate:   formatDate(y.EndDate),
		Status:    string(y.Status),
	}
}

type periodRequest struct {
	Number    int    `json:"number"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type periodResponse struct {
	ID           uuid.UUID `json:"id"`
	FiscalYearID uuid.UUID `json:"fiscal_year_id"`
	Number       int       `json:"number"`
	Name         string    `json:"name"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	Status       string    `json:"status"`
	Adjustment   bool      `json:"adjustment"`
}

func toPeriodResponse(p ledger.FiscalPeriod, y ledger.FiscalYear) periodResponse {
	return periodResponse{
		ID:           p.ID,
		FiscalYearID: p.FiscalYearID,
		Number:       p.Number,
		Name:         p.DisplayName(y),
		StartDate:    formatDate(p.StartDate),
		EndDate:      formatDate(p.EndDate),
		Status:       string(p.Status),
		Adjustment:   p.IsAdjustment(),
	}
}

func toPeriodResponses(ps []ledger.FiscalPeriod, y ledger.FiscalYear) []periodResponse {
	out := make([]periodResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPeriodResponse(p, y))
	}
	return out
}

type documentLineDTO struct {
	AccountID   uuid.UUID `json:"account_id"`
	Amount      string    `json:"amount"`
	Description string    `json:"description,omitempty"`
}

type documentRequest struct {
	Type         string            `json:"type"`
	Date         string            `json:"date,omitempty"`
	Description  string            `json:"description,omitempty"`
	Reference    string            `json:"reference,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	FiscalYearID uuid.UUID         `json:"fiscal_year_id,omitempty"`
	Lines        []documentLineDTO `json:"lines"`
}

type documentResponse struct {
	ID                 uuid.UUID         `json:"id"`
	Number             string            `json:"number"`
	Type               string            `json:"type"`
	TypeName           string            `json:"type_name"`
	Date               string            `json:"date"`
	Status             string            `json:"status"`
	Description        string            `json:"description,omitempty"`
	Reference          string            `json:"reference,omitempty"`
	Notes              string            `json:"notes,omitempty"`
	FiscalYearID       *uuid.UUID        `json:"fiscal_year_id,omitempty"`
	JournalID          *uuid.UUID        `json:"journal_id,omitempty"`
	ReversingJournalID *uuid.UUID        `json:"reversing_journal_id,omitempty"`
	Lines              []documentLineDTO `json:"lines"`
	TotalDebits        string            `json:"total_debits"`
	TotalCredits       string            `json:"total_credits"`
	Balanced           bool              `json:"balanced"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func toDocumentResponse(d ledger.Document, currency string) documentResponse {
	dr, cr, _ := d.Totals()
	out := documentResponse{
		ID:                 d.ID,
		Number:             d.Number,
		Type:               string(d.Type),
		TypeName:           d.Type.DisplayName(),
		Date:               formatDate(d.Date),
		Status:             string(d.Status),
		Description:        d.Description,
		Reference:          d.Reference,
		Notes:              d.Notes,
		JournalID:          d.JournalID,
		ReversingJournalID: d.ReversingJournalID,
		Lines:              make([]documentLineDTO, 0, len(d.Lines())),
		TotalDebits:        amountString(ledger.FromMinor(currency, dr)),
		TotalCredits:       amountString(ledger.FromMinor(currency, cr)),
		Balanced:           dr == cr,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	if ce, ok := d.Body.(ledger.ClosingEntryBody); ok {
		id := ce.FiscalYearID
		out.FiscalYearID = &id
	}
	for _, l := range d.Lines() {
		out.Lines = append(out.Lines, documentLineDTO{AccountID: l.AccountID, Amount: amountString(l.Amount), Description: l.Description})
	}
	return out
}

func toDocumentResponses(ds []ledger.Document, currency string) []documentResponse {
	out := make([]documentResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, toDocumentResponse(d, currency))
	}
	return out
}

type journalLineResponse struct {
	LineNumber  int       `json:"line_number"`
	AccountID   uuid.UUID `json:"account_id"`
	EntryType   string    `json:"entry_type"`
	Amount      string    `json:"amount"`
	Description string    `json:"description,omitempty"`
}

type journalResponse struct {
	ID                uuid.UUID             `json:"id"`
	Number            string                `json:"number"`
	Type              string                `json:"type"`
	EntryDate         string                `json:"entry_date"`
	PostingDate       string                `json:"posting_date"`
	FiscalYearID      uuid.UUID             `json:"fiscal_year_id"`
	FiscalPeriodID    uuid.UUID             `json:"fiscal_period_id"`
	DocumentID        uuid.UUID             `json:"document_id"`
	ReversesJournalID *uuid.UUID            `json:"reverses_journal_id,omitempty"`
	Reference         string                `json:"reference,omitempty"`
	Description       string                `json:"description,omitempty"`
	Currency          string                `json:"currency"`
	TotalDebits       string                `json:"total_debits"`
	TotalCredits      string                `json:"total_credits"`
	Lines             []journalLineResponse `json:"lines"`
	CreatedAt         time.Time             `json:"created_at"`
}

func toJournalResponse(j ledger.Journal) journalResponse {
	out := journalResponse{
		ID:             j.ID(),
		Number:         j.Number(),
		Type:           string(j.Type()),
		EntryDate:      formatDate(j.EntryDate()),
		PostingDate:    formatDate(j.PostingDate()),
		FiscalYearID:   j.FiscalYearID(),
		FiscalPeriodID: j.FiscalPeriodID(),
		DocumentID:     j.DocumentID(),
		Reference:      j.Reference(),
		Description:    j.Description(),
		Currency:       j.Currency(),
		TotalDebits:    amountString(j.TotalDebits()),
		TotalCredits:   amountString(j.TotalCredits()),
		CreatedAt:      j.CreatedAt(),
	}
	if id, ok := j.ReversesJournalID(); ok {
		out.ReversesJournalID = &id
	}
	lines := j.Lines()
	out.Lines = make([]journalLineResponse, 0, len(lines))
	for _, l := range lines {
		out.Lines = append(out.Lines, journalLineResponse{
			LineNumber:  l.LineNumber,
			AccountID:   l.AccountID,
			EntryType:   string(l.EntryType),
			Amount:      amountString(l.Amount),
			Description: l.Description,
		})
	}
	return out
}

func toJournalResponses(js []ledger.Journal) []journalResponse {
	out := make([]journalResponse, 0, len(js))
	for _, j := range js {
		out = append(out, toJournalResponse(j))
	}
	return out
}

type ledgerRequest struct {
	FiscalYearID   uuid.UUID `json:"fiscal_year_id"`
	AccountID      uuid.UUID `json:"account_id"`
	OpeningBalance string    `json:"opening_balance,omitempty"`
	Notes          string    `json:"notes,omitempty"`
}

type openingBalanceRequest struct {
	OpeningBalance string `json:"opening_balance"`
}

type ledgerResponse struct {
	ID             uuid.UUID `json:"id"`
	FiscalYearID   uuid.UUID `json:"fiscal_year_id"`
	AccountID      uuid.UUID `json:"account_id"`
	OpeningBalance string    `json:"opening_balance"`
	Notes          string    `json:"notes,omitempty"`
}

func toLedgerResponse(l ledger.AccountLedger) ledgerResponse {
	return ledgerResponse{
		ID:             l.ID,
		FiscalYearID:   l.FiscalYearID,
		AccountID:      l.AccountID,
		OpeningBalance: amountString(l.OpeningBalance),
		Notes:          l.Notes,
	}
}

type balanceResponse struct {
	LedgerID uuid.UUID  `json:"ledger_id"`
	AsOf     string     `json:"as_of,omitempty"`
	PeriodID *uuid.UUID `json:"period_id,omitempty"`
	Amount   string     `json:"amount"`
}

// Package chart holds the starter chart of account groups a new business is
// seeded with.
package chart

import "github.com/tinoosan/bookkeeping/internal/ledger"

type GroupDef struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

var standard = map[ledger.AccountType][]GroupDef{
	ledger.AccountTypeAsset: {
		{Number: 10, Name: "Current Assets"},
		{Number: 15, Name: "Cash and Bank"},
		{Number: 20, Name: "Receivables"},
		{Number: 30, Name: "Inventory"},
		{Number: 50, Name: "Fixed Assets"},
	},
	ledger.AccountTypeLiability: {
		{Number: 10, Name: "Current Liabilities"},
		{Number: 20, Name: "Payables"},
		{Number: 50, Name: "Long-term Liabilities"},
	},
	ledger.AccountTypeEquity: {
		{Number: 10, Name: "Owner Equity"},
		{Number: 90, Name: "Retained Earnings"},
	},
	ledger.AccountTypeRevenue: {
		{Number: 10, Name: "Sales"},
		{Number: 90, Name: "Other Income"},
	},
	ledger.AccountTypeExpense: {
		{Number: 10, Name: "Cost of Sales"},
		{Number: 20, Name: "Operating Expenses"},
		{Number: 90, Name: "Other Expenses"},
	},
}

// GroupsFor returns the standard groups of one type, or of every type in
// chart order when t is nil.
func GroupsFor(t *ledger.AccountType) []GroupDef {
	if t == nil {
		out := make([]GroupDef, 0)
		for _, typ := range ledger.AccountTypes {
			out = append(out, standard[typ]...)
		}
		return out
	}
	return standard[*t]
}

// Template expands the standard groups into unsaved AccountGroup values.
// Display order follows chart order.
func Template() []ledger.AccountGroup {
	out := make([]ledger.AccountGroup, 0)
	order := 0
	for _, typ := range ledger.AccountTypes {
		for _, g := range standard[typ] {
			order++
			out = append(out, ledger.AccountGroup{Type: typ, Number: g.Number, Name: g.Name, DisplayOrder: order, Active: true})
		}
	}
	return out
}

package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// AccountType is the top level classification. The numeric value is the
// first segment of every formatted account number.
type AccountType int

const (
	AccountTypeAsset     AccountType = 10
	AccountTypeLiability AccountType = 20
	AccountTypeEquity    AccountType = 30
	AccountTypeRevenue   AccountType = 60
	AccountTypeExpense   AccountType = 80
)

// AccountTypes lists every type in chart order.
var AccountTypes = []AccountType{
	AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense,
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// String returns the lower-case code used on the wire.
func (t AccountType) String() string {
	switch t {
	case AccountTypeAsset:
		return "asset"
	case AccountTypeLiability:
		return "liability"
	case AccountTypeEquity:
		return "equity"
	case AccountTypeRevenue:
		return "revenue"
	case AccountTypeExpense:
		return "expense"
	}
	return strconv.Itoa(int(t))
}

// DisplayName is the plural heading used in charts, e.g. "Assets".
func (t AccountType) DisplayName() string {
	switch t {
	case AccountTypeAsset:
		return "Assets"
	case AccountTypeLiability:
		return "Liabilities"
	case AccountTypeEquity:
		return "Equity"
	case AccountTypeRevenue:
		return "Revenue"
	case AccountTypeExpense:
		return "Expenses"
	}
	return ""
}

// ParseAccountType accepts the wire code ("asset") or the two digit number ("10").
func ParseAccountType(s string) (AccountType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		t := AccountType(n)
		return t, t.Valid()
	}
	for _, t := range AccountTypes {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// AccountKind tags the variant of an Account.
type AccountKind string

const (
	KindGeneralLedger AccountKind = "general_ledger"
	KindReceivable    AccountKind = "receivable"
	KindPayable       AccountKind = "payable"
	KindBank          AccountKind = "bank"
	KindInventory     AccountKind = "inventory"
)

// ResolutionOrder is the fixed priority used when a short code is looked up
// without knowing its kind.
var ResolutionOrder = []AccountKind{KindGeneralLedger, KindReceivable, KindPayable, KindBank, KindInventory}

// SubsidiaryKinds lists the kinds owned by a controlling account.
var SubsidiaryKinds = []AccountKind{KindReceivable, KindPayable, KindBank, KindInventory}

func (k AccountKind) Valid() bool { return k == KindGeneralLedger || k.IsSubsidiary() }

func (k AccountKind) IsSubsidiary() bool {
	switch k {
	case KindReceivable, KindPayable, KindBank, KindInventory:
		return true
	}
	return false
}

// AccountInfo holds the fields common to every account kind.
type AccountInfo struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	ShortCode  string
	Name       string
	Active     bool
}

// Info returns the common header. Every variant gets it by embedding.
func (i AccountInfo) Info() AccountInfo { return i }

// DisplayName renders "CODE - Name".
func (i AccountInfo) DisplayName() string { return i.ShortCode + " - " + i.Name }

// Account is the closed union over the five account kinds. Only types in
// this package implement it.
type Account interface {
	Info() AccountInfo
	Kind() AccountKind
	Type() AccountType
	FormattedNumber() string
	// IsPosting reports whether journal lines may reference the account directly.
	IsPosting() bool
	isAccount()
}

// GeneralLedgerAccount sits directly under a group. When it declares a
// subsidiary kind it becomes a controlling account and cannot be posted to.
type GeneralLedgerAccount struct {
	AccountInfo
	Group          AccountGroup
	Number         int
	Description    string
	SubsidiaryKind AccountKind // empty for posting accounts
}

func (GeneralLedgerAccount) Kind() AccountKind   { return KindGeneralLedger }
func (a GeneralLedgerAccount) Type() AccountType { return a.Group.Type }
func (a GeneralLedgerAccount) IsPosting() bool   { return a.SubsidiaryKind == "" }
func (GeneralLedgerAccount) isAccount()          {}

// IsControlling is the inverse of IsPosting.
func (a GeneralLedgerAccount) IsControlling() bool { return a.SubsidiaryKind != "" }

// FormattedNumber renders TT.GG.AAAA.
func (a GeneralLedgerAccount) FormattedNumber() string {
	return fmt.Sprintf("%s.%04d", a.Group.FormattedNumber(), a.Number)
}

// Subsidiary is the part shared by the four subsidiary kinds.
type Subsidiary struct {
	Controlling GeneralLedgerAccount
	Number      int
}

func (s Subsidiary) Type() AccountType { return s.Controlling.Type() }
func (Subsidiary) IsPosting() bool     { return true }

// FormattedNumber renders TT.GG.AAAA.SS.
func (s Subsidiary) FormattedNumber() string {
	return fmt.Sprintf("%s.%02d", s.Controlling.FormattedNumber(), s.Number)
}

// ReceivableAccount tracks what one customer owes.
type ReceivableAccount struct {
	AccountInfo
	Subsidiary
	ContactName      string
	CreditLimit      money.Amount
	PaymentTermsDays int
}

func (ReceivableAccount) Kind() AccountKind { return KindReceivable }
func (ReceivableAccount) isAccount()        {}

// PayableAccount tracks what is owed to one vendor.
type PayableAccount struct {
	AccountInfo
	Subsidiary
	ContactName      string
	CreditLimit      money.Amount
	PaymentTermsDays int
}

func (PayableAccount) Kind() AccountKind { return KindPayable }
func (PayableAccount) isAccount()        {}

// BankAccount is a cash account held at a bank.
type BankAccount struct {
	AccountInfo
	Subsidiary
	BankName          string
	BankAccountNumber string
	RoutingNumber     string
	SwiftCode         string
	IBAN              string
	Currency          string
	Primary           bool
}

func (BankAccount) Kind() AccountKind { return KindBank }
func (BankAccount) isAccount()        {}

// InventoryAccount tracks one stocked item.
type InventoryAccount struct {
	AccountInfo
	Subsidiary
	SKU           string
	UnitOfMeasure string
	StandardCost  money.Amount
}

func (InventoryAccount) Kind() AccountKind { return KindInventory }
func (InventoryAccount) isAccount()        {}

// ControllingOf returns the controlling account of a subsidiary.
func ControllingOf(a Account) (GeneralLedgerAccount, bool) {
	switch v := a.(type) {
	case ReceivableAccount:
		return v.Controlling, true
	case PayableAccount:
		return v.Controlling, true
	case BankAccount:
		return v.Controlling, true
	case InventoryAccount:
		return v.Controlling, true
	}
	return GeneralLedgerAccount{}, false
}

// SubsidiaryNumberOf returns the 0-99 number of a subsidiary.
func SubsidiaryNumberOf(a Account) (int, bool) {
	switch v := a.(type) {
	case ReceivableAccount:
		return v.Number, true
	case PayableAccount:
		return v.Number, true
	case BankAccount:
		return v.Number, true
	case InventoryAccount:
		return v.Number, true
	}
	return 0, false
}

// SecondaryText returns kind-specific fields matched by free-text search.
func SecondaryText(a Account) []string {
	switch v := a.(type) {
	case ReceivableAccount:
		return []string{v.ContactName}
	case PayableAccount:
		return []string{v.ContactName}
	case BankAccount:
		return []string{v.BankName}
	case InventoryAccount:
		return []string{v.SKU}
	}
	return nil
}

// WithInfo returns a copy of a with its common header replaced.
func WithInfo(a Account, info AccountInfo) Account {
	switch v := a.(type) {
	case GeneralLedgerAccount:
		v.AccountInfo = info
		return v
	case ReceivableAccount:
		v.AccountInfo = info
		return v
	case PayableAccount:
		v.AccountInfo = info
		return v
	case BankAccount:
		v.AccountInfo = info
		return v
	case InventoryAccount:
		v.AccountInfo = info
		return v
	}
	return a
}

// ValidateAccount checks the structural rules every account must satisfy
// before it is stored.
func ValidateAccount(a Account) error {
	info := a.Info()
	if info.BusinessID == uuid.Nil {
		return fmt.Errorf("business is required")
	}
	if strings.TrimSpace(info.ShortCode) == "" {
		return fmt.Errorf("short code is required")
	}
	if len(info.ShortCode) > MaxShortCodeLen {
		return fmt.Errorf("short code exceeds %d characters", MaxShortCodeLen)
	}
	if strings.TrimSpace(info.Name) == "" {
		return fmt.Errorf("name is required")
	}
	switch v := a.(type) {
	case GeneralLedgerAccount:
		if v.Number < 0 || v.Number > 9999 {
			return fmt.Errorf("account number must be between 0 and 9999")
		}
		if v.Group.ID == uuid.Nil {
			return fmt.Errorf("account group is required")
		}
		if v.Group.BusinessID != info.BusinessID {
			return fmt.Errorf("account group belongs to another business")
		}
		if v.SubsidiaryKind != "" && !v.SubsidiaryKind.IsSubsidiary() {
			return fmt.Errorf("unknown subsidiary kind %q", v.SubsidiaryKind)
		}
		return nil
	}
	ctl, _ := ControllingOf(a)
	n, _ := SubsidiaryNumberOf(a)
	if n < 0 || n > 99 {
		return fmt.Errorf("subsidiary number must be between 0 and 99")
	}
	if ctl.ID == uuid.Nil {
		return fmt.Errorf("controlling account is required")
	}
	if ctl.BusinessID != info.BusinessID {
		return fmt.Errorf("controlling account belongs to another business")
	}
	if ctl.SubsidiaryKind != a.Kind() {
		return fmt.Errorf("controlling account %s does not control %s accounts", ctl.ShortCode, a.Kind())
	}
	return nil
}

// MaxShortCodeLen bounds short codes.
const MaxShortCodeLen = 50

// AccountNumber is a parsed TT.GG.AAAA[.SS] string.
type AccountNumber struct {
	Type          AccountType
	Group         int
	Account       int
	Subsidiary    int
	HasSubsidiary bool
}

// accountNumberWidths are the fixed digit counts of TT.GG.AAAA[.SS].
var accountNumberWidths = [...]int{2, 2, 4, 2}

// ParseAccountNumber splits a formatted number into its segments. It accepts
// exactly the zero-padded form FormattedNumber produces: three or four
// segments of 2, 2, 4 and 2 digits, with no signs.
func ParseAccountNumber(s string) (AccountNumber, bool) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 && len(parts) != 4 {
		return AccountNumber{}, false
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		if len(p) != accountNumberWidths[i] || strings.Trim(p, "0123456789") != "" {
			return AccountNumber{}, false
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return AccountNumber{}, false
		}
		nums[i] = n
	}
	out := AccountNumber{Type: AccountType(nums[0]), Group: nums[1], Account: nums[2]}
	if len(nums) == 4 {
		out.Subsidiary = nums[3]
		out.HasSubsidiary = true
	}
	return out, true
}

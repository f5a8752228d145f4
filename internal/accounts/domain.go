package accounts

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/shared"
)

// Category enumerates chart-of-accounts categories.
type Category string

const (
	CategoryAsset     Category = "ASSET"
	CategoryLiability Category = "LIABILITY"
	CategoryEquity    Category = "EQUITY"
	CategoryRevenue   Category = "REVENUE"
	CategoryExpense   Category = "EXPENSE"
)

// Account models an organization-scoped chart of accounts node. Balance is
// informational; the ledger entries are the source of truth.
type Account struct {
	ID        int64
	OrgID     int64
	Code      string
	Name      string
	Category  Category
	Balance   decimal.Decimal
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConfigType names a logical accounting role mapped to a concrete account
// per organization.
type ConfigType string

const (
	ConfigCash               ConfigType = "CASH"
	ConfigCOGS               ConfigType = "COGS"
	ConfigInventory          ConfigType = "INVENTORY"
	ConfigInventoryOffset    ConfigType = "INVENTORY_OFFSET"
	ConfigAccountsPayable    ConfigType = "ACCOUNTS_PAYABLE"
	ConfigAccountsReceivable ConfigType = "ACCOUNTS_RECEIVABLE"
	ConfigRetainedEarnings   ConfigType = "RETAINED_EARNINGS"
	ConfigCustomerDeposits   ConfigType = "CUSTOMER_DEPOSITS"
	ConfigVendorDeposits     ConfigType = "VENDOR_DEPOSITS"
)

// RequiredConfigTypes lists every role an organization must have mapped
// before documents can post.
var RequiredConfigTypes = []ConfigType{
	ConfigCash,
	ConfigCOGS,
	ConfigInventory,
	ConfigInventoryOffset,
	ConfigAccountsPayable,
	ConfigAccountsReceivable,
	ConfigRetainedEarnings,
	ConfigCustomerDeposits,
	ConfigVendorDeposits,
}

var configTypeNames = map[ConfigType]string{
	ConfigCash:               "Cash",
	ConfigCOGS:               "Cost of Goods Sold",
	ConfigInventory:          "Inventory",
	ConfigInventoryOffset:    "Inventory Offset",
	ConfigAccountsPayable:    "Accounts Payable",
	ConfigAccountsReceivable: "Accounts Receivable",
	ConfigRetainedEarnings:   "Retained Earnings",
	ConfigCustomerDeposits:   "Customer Deposits",
	ConfigVendorDeposits:     "Vendor Deposits",
}

// DisplayName renders the human-readable role name.
func (c ConfigType) DisplayName() string {
	if name, ok := configTypeNames[c]; ok {
		return name
	}
	return string(c)
}

// Configuration maps one organization and role to one account.
type Configuration struct {
	ID         int64
	OrgID      int64
	ConfigType ConfigType
	AccountID  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DefaultAccounts carries every resolved role for an organization. It is
// built once per operation and passed explicitly through the call chain so
// account lookups never happen ad hoc mid-posting.
type DefaultAccounts struct {
	accounts map[ConfigType]int64
}

// NewDefaultAccounts builds the role map directly; used by callers that
// already hold resolved mappings.
func NewDefaultAccounts(mapped map[ConfigType]int64) DefaultAccounts {
	accounts := make(map[ConfigType]int64, len(mapped))
	for role, id := range mapped {
		accounts[role] = id
	}
	return DefaultAccounts{accounts: accounts}
}

// Account returns the account id mapped to the role.
func (d DefaultAccounts) Account(role ConfigType) int64 {
	return d.accounts[role]
}

// ConfigurationError reports every missing role at once so an operator can
// fix the organization's setup in a single pass.
type ConfigurationError struct {
	OrgID   int64
	Missing []ConfigType
}

func (e *ConfigurationError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, role := range e.Missing {
		names = append(names, role.DisplayName())
	}
	return fmt.Sprintf("accounts: organization %d is missing default account configuration for: %s", e.OrgID, strings.Join(names, ", "))
}

// Unwrap ties the typed error into the shared taxonomy.
func (e *ConfigurationError) Unwrap() error {
	return shared.ErrConfiguration
}

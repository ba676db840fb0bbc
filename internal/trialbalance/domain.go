// Package trialbalance reconstructs classified trial balances from the
// hierarchical reports rendered by the upstream accounting API.
package trialbalance

import (
	"time"

	"github.com/shopspring/decimal"
)

// balanceTolerance is the fixed equality tolerance for balance checks.
var balanceTolerance = decimal.NewFromFloat(0.01)

// Category classifies an account into one of the five ledger buckets, plus
// an explicit unclassified bucket so dropped sections stay visible.
type Category string

const (
	CategoryAsset        Category = "ASSET"
	CategoryLiability    Category = "LIABILITY"
	CategoryEquity       Category = "EQUITY"
	CategoryRevenue      Category = "REVENUE"
	CategoryExpense      Category = "EXPENSE"
	CategoryUnclassified Category = "UNCLASSIFIED"
)

// AccountRecord is one classified account with its debit/credit split.
// At most one of Debit/Credit is nonzero; the sign of Balance decides which.
type AccountRecord struct {
	Name     string          `json:"name"`
	Balance  decimal.Decimal `json:"balance"`
	Debit    decimal.Decimal `json:"debit"`
	Credit   decimal.Decimal `json:"credit"`
	Section  string          `json:"section"`
	Category Category        `json:"category"`
}

// Totals aggregates every contributing account of a trial balance.
type Totals struct {
	Debits       decimal.Decimal `json:"totalDebits"`
	Credits      decimal.Decimal `json:"totalCredits"`
	Assets       decimal.Decimal `json:"totalAssets"`
	Liabilities  decimal.Decimal `json:"totalLiabilities"`
	Equity       decimal.Decimal `json:"totalEquity"`
	Revenue      decimal.Decimal `json:"totalRevenue"`
	Expenses     decimal.Decimal `json:"totalExpenses"`
	Unclassified decimal.Decimal `json:"totalUnclassified"`
}

// AccountingEquation reports assets against liabilities-plus-equity.
type AccountingEquation struct {
	Assets               decimal.Decimal `json:"assets"`
	LiabilitiesAndEquity decimal.Decimal `json:"liabilitiesAndEquity"`
	Balanced             bool            `json:"balanced"`
}

// BalanceCheck is the double-entry invariant for a trial balance.
type BalanceCheck struct {
	DebitsEqualCredits bool               `json:"debitsEqualCredits"`
	Difference         decimal.Decimal    `json:"difference"`
	Equation           AccountingEquation `json:"accountingEquation"`
}

// TrialBalance is the classified, totalled view of one entity as of one date.
// It is built fresh per request and never mutated afterwards.
type TrialBalance struct {
	EntityID   int64     `json:"entityId"`
	EntityName string    `json:"entityName"`
	AsOf       time.Time `json:"asOf"`

	Assets       []AccountRecord `json:"assets"`
	Liabilities  []AccountRecord `json:"liabilities"`
	Equity       []AccountRecord `json:"equity"`
	Revenue      []AccountRecord `json:"revenue"`
	Expenses     []AccountRecord `json:"expenses"`
	Unclassified []AccountRecord `json:"unclassified,omitempty"`

	Totals       Totals       `json:"totals"`
	BalanceCheck BalanceCheck `json:"balanceCheck"`

	// ProfitAndLossMissing marks a partial build where the P&L fetch failed
	// and revenue/expense lists are empty.
	ProfitAndLossMissing bool `json:"profitAndLossMissing,omitempty"`
}

// AccountCount is the number of classified accounts across all buckets.
func (tb TrialBalance) AccountCount() int {
	return len(tb.Assets) + len(tb.Liabilities) + len(tb.Equity) + len(tb.Revenue) + len(tb.Expenses) + len(tb.Unclassified)
}

// NewBalanceCheck derives the double-entry invariant from totals.
func NewBalanceCheck(totals Totals) BalanceCheck {
	difference := totals.Debits.Sub(totals.Credits)
	liabEq := totals.Liabilities.Add(totals.Equity)
	return BalanceCheck{
		DebitsEqualCredits: difference.Abs().LessThan(balanceTolerance),
		Difference:         difference,
		Equation: AccountingEquation{
			Assets:               totals.Assets,
			LiabilitiesAndEquity: liabEq,
			Balanced:             totals.Assets.Sub(liabEq).Abs().LessThan(balanceTolerance),
		},
	}
}

// Add sums two total sets field by field.
func (t Totals) Add(other Totals) Totals {
	return Totals{
		Debits:       t.Debits.Add(other.Debits),
		Credits:      t.Credits.Add(other.Credits),
		Assets:       t.Assets.Add(other.Assets),
		Liabilities:  t.Liabilities.Add(other.Liabilities),
		Equity:       t.Equity.Add(other.Equity),
		Revenue:      t.Revenue.Add(other.Revenue),
		Expenses:     t.Expenses.Add(other.Expenses),
		Unclassified: t.Unclassified.Add(other.Unclassified),
	}
}

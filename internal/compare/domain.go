package compare

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/trialbalance"
)

// ChangeType labels the direction of an account-level movement.
type ChangeType string

const (
	ChangeIncrease ChangeType = "INCREASE"
	ChangeDecrease ChangeType = "DECREASE"
	ChangeNew      ChangeType = "NEW_ACCOUNT"
	ChangeRemoved  ChangeType = "REMOVED_ACCOUNT"
)

// AccountChange is one account's movement between the two snapshots.
type AccountChange struct {
	AccountName string          `json:"accountName"`
	FromBalance decimal.Decimal `json:"fromBalance"`
	ToBalance   decimal.Decimal `json:"toBalance"`
	Change      decimal.Decimal `json:"change"`
	ChangeType  ChangeType      `json:"changeType"`
}

// PeriodSummary condenses one snapshot for the comparison payload.
type PeriodSummary struct {
	Date         time.Time                 `json:"date"`
	Totals       trialbalance.Totals       `json:"totals"`
	BalanceCheck trialbalance.BalanceCheck `json:"balanceCheck"`
}

// AggregateChanges holds the per-aggregate deltas between the two snapshots.
type AggregateChanges struct {
	Debits               decimal.Decimal `json:"totalDebits"`
	Credits              decimal.Decimal `json:"totalCredits"`
	Assets               decimal.Decimal `json:"totalAssets"`
	Liabilities          decimal.Decimal `json:"totalLiabilities"`
	Equity               decimal.Decimal `json:"totalEquity"`
	Revenue              decimal.Decimal `json:"totalRevenue"`
	Expenses             decimal.Decimal `json:"totalExpenses"`
	BalanceStatusChanged bool            `json:"balanceStatusChanged"`
}

// PeriodComparison is the diff of two point-in-time trial balances.
type PeriodComparison struct {
	EntityID           int64            `json:"entityId"`
	EntityName         string           `json:"entityName"`
	FromPeriod         PeriodSummary    `json:"fromPeriod"`
	ToPeriod           PeriodSummary    `json:"toPeriod"`
	Changes            AggregateChanges `json:"changes"`
	AccountChanges     []AccountChange  `json:"accountChanges"`
	SignificantChanges []AccountChange  `json:"significantChanges"`
	Basis              string           `json:"basis"`
}

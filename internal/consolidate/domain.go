package consolidate

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/trialbalance"
)

// SectionGroup collects one entity's accounts for a single category.
type SectionGroup struct {
	Category trialbalance.Category        `json:"category"`
	Accounts []trialbalance.AccountRecord `json:"accounts"`
	Total    decimal.Decimal              `json:"total"`
}

// CompanyView is one entity's contribution to the consolidated view.
type CompanyView struct {
	EntityID     int64                     `json:"entityId"`
	EntityName   string                    `json:"entityName"`
	TrialBalance trialbalance.TrialBalance `json:"trialBalance"`
	Sections     []SectionGroup            `json:"sections"`
	AccountCount int                       `json:"accountCount"`
}

// Summary carries the data-quality verdict of a consolidation run.
type Summary struct {
	EntityCount          int  `json:"entityCount"`
	TotalAccounts        int  `json:"totalAccounts"`
	BalancedEntities     int  `json:"balancedEntities"`
	AllConnected         bool `json:"allConnected"`
	AllBalanced          bool `json:"allBalanced"`
	ConsolidatedBalanced bool `json:"consolidatedBalanced"`
}

// ConsolidatedTrialBalance is the multi-entity roll-up for one as-of date.
// Totals are the arithmetic sum over the entities that fetched successfully.
type ConsolidatedTrialBalance struct {
	AsOf         time.Time                 `json:"asOf"`
	Companies    []CompanyView             `json:"companies"`
	Totals       trialbalance.Totals       `json:"totals"`
	BalanceCheck trialbalance.BalanceCheck `json:"balanceCheck"`
	Summary      Summary                   `json:"summary"`
}
